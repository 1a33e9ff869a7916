package audio

import (
	"sync"
	"time"
)

const (
	fakeFrameSize     = 1024
	fakeBytesPerFrame = 2 // 16-bit mono
	fakeSampleRate    = 16000
)

// FakeContext hands out FakeCapture devices for tests. With pcm set and
// realtime enabled it replays the signal at wall-clock pace; tests that need
// determinism leave pcm nil and push windows by hand via FakeCapture.Push.
type FakeContext struct {
	pcm      []byte
	realtime bool
	initErr  error

	// LastCapture is the most recent device handed out, for test assertions.
	LastCapture *FakeCapture
}

func NewFakeContext(pcm []byte, realtime bool) *FakeContext {
	return &FakeContext{pcm: pcm, realtime: realtime}
}

// NewFailingContext returns a context whose NewCapture always fails with err,
// simulating permission denial or a missing device.
func NewFailingContext(err error) *FakeContext {
	return &FakeContext{initErr: err}
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	if f.initErr != nil {
		return nil, f.initErr
	}
	return []DeviceInfo{{ID: "fake0", Name: "fake"}}, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	if f.initErr != nil {
		return nil, f.initErr
	}
	f.LastCapture = &FakeCapture{pcm: f.pcm, realtime: f.realtime, lost: make(chan struct{})}
	return f.LastCapture, nil
}

type FakeCapture struct {
	pcm      []byte
	realtime bool

	mu       sync.Mutex
	cb       DataCallback
	started  bool
	stopCh   chan struct{}
	feedDone chan struct{}
	lost     chan struct{}
	lostOnce sync.Once
	closed   bool
}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string { return "fake" }

func (f *FakeCapture) Lost() <-chan struct{} { return f.lost }

// SimulateLoss revokes the source as if the device vanished mid-session.
func (f *FakeCapture) SimulateLoss() {
	f.lostOnce.Do(func() { close(f.lost) })
}

// Push delivers one window of PCM to the registered callback, bypassing the
// replay goroutine. No-op unless the device is started.
func (f *FakeCapture) Push(data []byte) {
	f.mu.Lock()
	cb := f.cb
	started := f.started
	f.mu.Unlock()
	if cb != nil && started {
		cb(data, uint32(len(data)/fakeBytesPerFrame))
	}
}

func (f *FakeCapture) Start() error {
	f.mu.Lock()
	f.started = true
	f.stopCh = make(chan struct{})
	f.feedDone = make(chan struct{})
	f.mu.Unlock()

	if f.pcm == nil {
		close(f.feedDone)
		return nil
	}

	chunkBytes := fakeFrameSize * fakeBytesPerFrame
	interval := time.Duration(fakeFrameSize) * time.Second / time.Duration(fakeSampleRate)
	if !f.realtime {
		interval = time.Millisecond
	}

	go func() {
		defer close(f.feedDone)
		pos := 0
		silence := make([]byte, chunkBytes)
		for {
			select {
			case <-f.stopCh:
				return
			case <-time.After(interval):
			}

			f.mu.Lock()
			cb := f.cb
			f.mu.Unlock()
			if cb == nil {
				continue
			}

			if pos < len(f.pcm) {
				end := min(pos+chunkBytes, len(f.pcm))
				chunk := make([]byte, end-pos)
				copy(chunk, f.pcm[pos:end])
				cb(chunk, uint32(len(chunk)/fakeBytesPerFrame))
				pos = end
			} else {
				cb(silence, fakeFrameSize)
			}
		}
	}()
	return nil
}

func (f *FakeCapture) Stop() {
	f.mu.Lock()
	stopCh, feedDone := f.stopCh, f.feedDone
	f.started = false
	f.mu.Unlock()
	if stopCh == nil {
		return
	}
	select {
	case <-stopCh:
	default:
		close(stopCh)
	}
	if feedDone != nil {
		<-feedDone
	}
}

func (f *FakeCapture) Close() {
	f.Stop()
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

// Closed reports whether the session has released the device.
func (f *FakeCapture) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
