package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bynzo/voiceanalyst/audio"
	"github.com/bynzo/voiceanalyst/encoder"
	"github.com/bynzo/voiceanalyst/gemini"
	"github.com/bynzo/voiceanalyst/log"
)

// SessionState is the lifecycle phase of a recording session. Transitions
// happen only on the session loop goroutine; readers observe the latest
// value via State or the sink's StateChanged callback.
type SessionState int32

const (
	StateIdle SessionState = iota
	StateCapturing
	StateSegmentFinalizing
	StateClassifying
	StateStopping
	StateError
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	case StateSegmentFinalizing:
		return "finalizing"
	case StateClassifying:
		return "classifying"
	case StateStopping:
		return "stopping"
	case StateError:
		return "error"
	}
	return "unknown"
}

type SessionMode int

const (
	// ModeContinuous seals a segment on a fixed cadence and keeps capturing
	// while each sealed segment is analyzed.
	ModeContinuous SessionMode = iota
	// ModeSingleShot records one segment from start to explicit stop.
	ModeSingleShot
)

func (m SessionMode) String() string {
	if m == ModeSingleShot {
		return "single-shot"
	}
	return "continuous"
}

type SessionConfig struct {
	Mode             SessionMode
	SegmentDuration  time.Duration
	Format           string // encoder format, "flac" or "wav"
	SilenceThreshold float64
	SilenceTimeout   time.Duration
}

// Events consumed by the session loop. Producers (timers, the capture
// watcher, analysis goroutines) hand them over via push and never touch
// session state directly.
type (
	segmentTimerFired struct{ seq int }
	stopRequested     struct{}
	silenceDetected   struct{}
	sourceLost        struct{}
	transcriptionDone struct {
		seq  int
		text string
		err  error
	}
	classificationDone struct {
		profiles []gemini.SpeakerProfile
		err      error
	}
)

// Session owns one capture-and-analyze run: it acquires the capture device,
// seals audio into segments, sends each segment through transcription and
// classification, and reports progress to the sink. A Session is single-use;
// create a new one per recording.
type Session struct {
	cfg      SessionConfig
	actx     audio.Context
	device   *audio.DeviceInfo
	analyzer gemini.Analyzer
	sink     Sink

	capture audio.CaptureDevice
	silence *silenceDetector
	current atomic.Pointer[segmentRecorder]

	state      atomic.Int32
	transcript *Transcript

	profilesMu sync.Mutex
	profiles   []gemini.SpeakerProfile

	events chan any
	done   chan struct{}

	// loop-owned, never touched off the loop goroutine after Start
	seq            int
	segTimer       *time.Timer
	queue          []sealedSegment
	analyzing      bool
	stopping       bool
	captureStopped bool
	finished       bool
	failure        error
	stopNotice     string
	endReason      string
	segmentsDone   int
}

func NewSession(actx audio.Context, device *audio.DeviceInfo, analyzer gemini.Analyzer, sink Sink, cfg SessionConfig) *Session {
	if cfg.SegmentDuration <= 0 {
		cfg.SegmentDuration = 15 * time.Second
	}
	if cfg.Format == "" {
		cfg.Format = "flac"
	}
	return &Session{
		cfg:        cfg,
		actx:       actx,
		device:     device,
		analyzer:   analyzer,
		sink:       sink,
		transcript: NewTranscript(),
		events:     make(chan any, 16),
		done:       make(chan struct{}),
	}
}

func (s *Session) State() SessionState { return SessionState(s.state.Load()) }

// Done is closed once the session has fully torn down and released the
// capture device.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) Transcript() string { return s.transcript.String() }

func (s *Session) Profiles() []gemini.SpeakerProfile {
	s.profilesMu.Lock()
	defer s.profilesMu.Unlock()
	out := make([]gemini.SpeakerProfile, len(s.profiles))
	copy(out, s.profiles)
	return out
}

// Stop requests an orderly shutdown: the current segment is sealed and
// analyzed before the session reaches Idle. Safe from any goroutine.
func (s *Session) Stop() { s.push(stopRequested{}) }

func (s *Session) setState(st SessionState) {
	s.state.Store(int32(st))
	s.sink.StateChanged(st)
}

func (s *Session) push(ev any) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

// Start acquires the capture device and launches the session loop. On
// acquisition failure the session never leaves Idle and the error is both
// surfaced on the sink and returned.
func (s *Session) Start() error {
	if s.State() != StateIdle {
		return errors.New("session already started")
	}

	capture, err := s.actx.NewCapture(s.device, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	})
	if err != nil {
		title, msg := acquisitionNotice(err)
		log.Errorf("capture acquisition failed: %v", err)
		s.sink.FatalError(title, msg)
		return err
	}
	s.capture = capture
	s.silence = newSilenceDetector(s.cfg.SilenceThreshold, s.cfg.SilenceTimeout)

	capture.SetCallback(func(data []byte, _ uint32) {
		if rec := s.current.Load(); rec != nil {
			rec.feed(data)
		}
		s.sink.AudioLevel(s.silence.Process(data))
	})
	if err := capture.Start(); err != nil {
		capture.ClearCallback()
		capture.Close()
		title, msg := acquisitionNotice(err)
		log.Errorf("capture start failed: %v", err)
		s.sink.FatalError(title, msg)
		return err
	}
	if s.cfg.Mode == ModeContinuous {
		s.silence.Attach()
	}

	s.setState(StateCapturing)
	s.sink.Status("Recording...", true)
	s.beginSegment()
	go s.watch()
	go s.loop()
	log.SessionStart(s.cfg.Mode.String(), capture.DeviceName())
	return nil
}

// watch forwards out-of-band capture signals into the event stream.
func (s *Session) watch() {
	for {
		select {
		case <-s.silence.C():
			s.push(silenceDetected{})
		case <-s.capture.Lost():
			s.push(sourceLost{})
			return
		case <-s.done:
			return
		}
	}
}

func (s *Session) loop() {
	for !s.finished {
		s.handle(<-s.events)
	}

	s.stopCapture()
	s.setState(StateIdle)
	if s.failure != nil {
		s.sink.Status("Stopped after error.", false)
	} else {
		s.sink.Status(s.stopNotice, false)
	}
	s.capture.Close()
	log.SessionEnd(s.segmentsDone, s.endReason)
	close(s.done)
}

func (s *Session) handle(ev any) {
	switch ev := ev.(type) {
	case segmentTimerFired:
		if s.stopping {
			return
		}
		rec := s.current.Load()
		if rec == nil || rec.seq != ev.seq {
			return // stale timer from an already sealed segment
		}
		// swap in the next recorder before sealing so the callback never
		// drops a window between segments
		s.beginSegment()
		s.ingest(rec.seal())

	case stopRequested:
		s.beginStop("Recording stopped.", "stopped")

	case silenceDetected:
		log.Info("silence timeout reached, stopping session")
		s.beginStop("Silence detected. Recording stopped.", "silence")

	case sourceLost:
		log.Warn("capture source lost")
		s.beginStop("Capture source was disconnected.", "source_lost")

	case transcriptionDone:
		if ev.err != nil {
			s.fail("Transcription Failed", ev.err)
			return
		}
		s.transcript.Append(ev.seq, ev.text)
		full := s.transcript.String()
		s.sink.TranscriptUpdated(full)
		log.TranscriptText(ev.text)
		if !s.stopping {
			s.setState(StateClassifying)
		}
		s.sink.Status("Classifying speakers...", true)
		go s.classifyTranscript(full)

	case classificationDone:
		s.analyzing = false
		if ev.err != nil {
			s.fail("Classification Failed", ev.err)
			return
		}
		s.profilesMu.Lock()
		s.profiles = ev.profiles
		s.profilesMu.Unlock()
		s.sink.ProfilesUpdated(ev.profiles)
		s.segmentsDone++

		if len(s.queue) > 0 {
			s.maybeAnalyze()
			return
		}
		if s.stopping {
			s.finishIfSettled()
			return
		}
		s.setState(StateCapturing)
		s.sink.Status("Recording...", true)
	}
}

// beginSegment opens the next recorder and, in continuous mode, schedules
// its seal. Called with capture running; audio lands in the new recorder
// immediately.
func (s *Session) beginSegment() {
	rec := newSegmentRecorder(s.seq)
	s.seq++
	s.current.Store(rec)
	if s.cfg.Mode == ModeContinuous {
		s.segTimer = time.AfterFunc(s.cfg.SegmentDuration, func() {
			s.push(segmentTimerFired{seq: rec.seq})
		})
	}
}

func (s *Session) beginStop(notice, reason string) {
	if s.stopping {
		return
	}
	s.stopping = true
	s.stopNotice = notice
	s.endReason = reason
	if s.segTimer != nil {
		s.segTimer.Stop()
	}
	// take the partial segment before the callback barrier wipes it
	rec := s.current.Swap(nil)
	s.stopCapture()
	s.setState(StateStopping)
	if rec != nil {
		s.ingest(rec.seal())
	}
	s.finishIfSettled()
}

// ingest routes a sealed segment into the analysis queue, or skips it in
// the transcript ordering if it carried no audio.
func (s *Session) ingest(seg sealedSegment) {
	if seg.empty() {
		log.Warnf("segment %d sealed empty, skipping", seg.seq)
		s.transcript.Skip(seg.seq)
		return
	}
	s.queue = append(s.queue, seg)
	s.maybeAnalyze()
}

// maybeAnalyze starts the next queued segment's analysis. At most one
// segment is in flight at a time so classification always sees the
// transcript up to and including that segment.
func (s *Session) maybeAnalyze() {
	if s.analyzing || len(s.queue) == 0 {
		return
	}
	seg := s.queue[0]
	s.queue = s.queue[1:]
	s.analyzing = true
	if !s.stopping {
		s.setState(StateSegmentFinalizing)
	}
	s.sink.Status("Transcribing...", true)
	go s.transcribeSegment(seg)
}

func (s *Session) transcribeSegment(seg sealedSegment) {
	payload, mimeType, encodeTime, err := encodeSegment(seg, s.cfg.Format)
	if err != nil {
		s.push(transcriptionDone{seq: seg.seq, err: fmt.Errorf("encode segment %d: %w", seg.seq, err)})
		return
	}

	start := time.Now()
	text, err := s.analyzer.Transcribe(context.Background(), payload, mimeType)
	log.Segment(log.SegmentMetrics{
		Seq:          seg.seq,
		AudioLengthS: seg.duration().Seconds(),
		RawSizeKB:    float64(len(seg.pcm)) / 1024,
		PayloadKB:    float64(len(payload)) / 1024,
		EncodeTimeMs: float64(encodeTime.Milliseconds()),
		APITimeMs:    float64(time.Since(start).Milliseconds()),
	}, mimeType)
	s.push(transcriptionDone{seq: seg.seq, text: text, err: err})
}

func (s *Session) classifyTranscript(full string) {
	profiles, err := s.analyzer.Classify(context.Background(), full)
	s.push(classificationDone{profiles: profiles, err: err})
}

// fail tears the session down after a remote analysis error. Text already
// appended to the transcript survives; only the failed segment and anything
// still queued behind it are dropped.
func (s *Session) fail(title string, err error) {
	s.analyzing = false
	s.queue = nil
	s.failure = err
	s.stopping = true
	s.endReason = "error"
	if s.segTimer != nil {
		s.segTimer.Stop()
	}
	s.stopCapture()
	s.setState(StateError)
	log.Errorf("%s: %v", title, err)
	s.sink.FatalError(title, err.Error())
	s.finishIfSettled()
}

func (s *Session) finishIfSettled() {
	if !s.analyzing && len(s.queue) == 0 {
		s.finished = true
	}
}

func (s *Session) stopCapture() {
	if s.captureStopped {
		return
	}
	s.captureStopped = true
	s.silence.Detach()
	s.capture.Stop()
	s.capture.ClearCallback()
	s.current.Store(nil)
}

// acquisitionNotice maps a capture acquisition failure onto a user-facing
// title and message.
func acquisitionNotice(err error) (title, message string) {
	switch {
	case errors.Is(err, audio.ErrPermissionDenied):
		return "Audio Access Denied", "Permission to capture audio was denied. Grant access and try again."
	case errors.Is(err, audio.ErrNoDevice):
		return "No Capture Device", "No audio capture device was found. Connect one and try again."
	case errors.Is(err, audio.ErrNoAudioTrack):
		return "No Audio Track", "The selected source carries no audio. Pick a source that plays sound."
	case errors.Is(err, audio.ErrUnsupported):
		return "Unsupported Source", "The selected source cannot be captured in the required format."
	}
	return "Capture Error", err.Error()
}
