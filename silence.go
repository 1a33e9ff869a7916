package main

import (
	"encoding/binary"
	"math"
	"sync"
	"time"
)

const (
	defaultActivityThreshold = 0.01 // normalized RMS
	defaultSilenceTimeout    = 15 * time.Second
)

// silenceDetector taps the live capture signal and fires once when no
// window has crossed the activity threshold for the configured timeout.
// Process is called from the audio callback and must stay cheap; the signal
// is delivered on a buffered channel so the callback never blocks.
type silenceDetector struct {
	threshold float64
	timeout   time.Duration
	now       func() time.Time

	mu         sync.Mutex
	lastActive time.Time
	armed      bool
	c          chan struct{}
}

func newSilenceDetector(threshold float64, timeout time.Duration) *silenceDetector {
	if threshold <= 0 {
		threshold = defaultActivityThreshold
	}
	if timeout <= 0 {
		timeout = defaultSilenceTimeout
	}
	return &silenceDetector{
		threshold: threshold,
		timeout:   timeout,
		now:       time.Now,
		c:         make(chan struct{}, 1),
	}
}

// Attach arms the detector and starts the timeout window from now.
// Call again to re-arm after a SilenceDetected fired.
func (d *silenceDetector) Attach() {
	d.mu.Lock()
	d.lastActive = d.now()
	d.armed = true
	d.mu.Unlock()
}

// Detach disarms the detector without firing.
func (d *silenceDetector) Detach() {
	d.mu.Lock()
	d.armed = false
	d.mu.Unlock()
}

// C delivers at most one signal per Attach.
func (d *silenceDetector) C() <-chan struct{} { return d.c }

// Process evaluates one window of s16le PCM and returns its RMS level so the
// caller can reuse it for metering.
func (d *silenceDetector) Process(pcm []byte) float64 {
	rms := rmsLevel(pcm)

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.armed {
		return rms
	}

	now := d.now()
	if rms >= d.threshold {
		d.lastActive = now
		return rms
	}
	if now.Sub(d.lastActive) > d.timeout {
		d.armed = false
		select {
		case d.c <- struct{}{}:
		default:
		}
	}
	return rms
}

// rmsLevel computes the root-mean-square amplitude of little-endian 16-bit
// samples, normalized to [0, 1].
func rmsLevel(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sumSquares float64
	for i := 0; i+1 < len(pcm); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(pcm[i:]))
		normalized := float64(sample) / 32768.0
		sumSquares += normalized * normalized
	}
	return math.Sqrt(sumSquares / float64(n))
}
