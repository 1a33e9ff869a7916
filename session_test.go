package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bynzo/voiceanalyst/audio"
	"github.com/bynzo/voiceanalyst/gemini"
)

// recordingSink captures everything a session reports so tests can assert on
// the observable behavior instead of internals.
type recordingSink struct {
	mu         sync.Mutex
	transcript string
	profiles   []gemini.SpeakerProfile
	statuses   []string
	states     []SessionState
	fatalTitle string
	fatalMsg   string

	onState func(SessionState)
}

func (r *recordingSink) TranscriptUpdated(full string) {
	r.mu.Lock()
	r.transcript = full
	r.mu.Unlock()
}

func (r *recordingSink) ProfilesUpdated(profiles []gemini.SpeakerProfile) {
	r.mu.Lock()
	r.profiles = profiles
	r.mu.Unlock()
}

func (r *recordingSink) Status(message string, busy bool) {
	r.mu.Lock()
	r.statuses = append(r.statuses, message)
	r.mu.Unlock()
}

func (r *recordingSink) FatalError(title, message string) {
	r.mu.Lock()
	r.fatalTitle = title
	r.fatalMsg = message
	r.mu.Unlock()
}

func (r *recordingSink) AudioLevel(level float64) {}

func (r *recordingSink) StateChanged(state SessionState) {
	r.mu.Lock()
	r.states = append(r.states, state)
	cb := r.onState
	r.mu.Unlock()
	if cb != nil {
		cb(state)
	}
}

func (r *recordingSink) lastStatus() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.statuses) == 0 {
		return ""
	}
	return r.statuses[len(r.statuses)-1]
}

func (r *recordingSink) stateSequence() []SessionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]SessionState, len(r.states))
	copy(out, r.states)
	return out
}

func waitDone(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("session did not finish in time")
	}
}

func TestStopSealsFinalSegmentAndReachesIdle(t *testing.T) {
	fctx := audio.NewFakeContext(nil, false)
	sink := &recordingSink{}
	analyzer := &gemini.Fake{}

	closedAtIdle := false
	sink.onState = func(st SessionState) {
		if st == StateIdle {
			closedAtIdle = fctx.LastCapture.Closed()
		}
	}

	s := NewSession(fctx, nil, analyzer, sink, SessionConfig{Mode: ModeSingleShot})
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < 5; i++ {
		fctx.LastCapture.Push(genLevel(0.05))
	}
	s.Stop()
	waitDone(t, s)

	if got := s.Transcript(); got != "Speaker 1: hello" {
		t.Errorf("transcript = %q", got)
	}
	if got := s.Profiles(); len(got) != 1 || got[0].DISCProfile != "Influence" {
		t.Errorf("profiles = %+v", got)
	}
	if s.State() != StateIdle {
		t.Errorf("final state = %v, want idle", s.State())
	}
	if closedAtIdle {
		t.Error("capture released before reaching Idle")
	}
	if !fctx.LastCapture.Closed() {
		t.Error("capture not released after session end")
	}

	// stop must pass through Stopping before Idle
	seq := sink.stateSequence()
	sawStopping := false
	for _, st := range seq {
		if st == StateStopping {
			sawStopping = true
		}
		if st == StateIdle && !sawStopping {
			t.Fatalf("reached Idle without Stopping: %v", seq)
		}
	}
	if !sawStopping {
		t.Fatalf("never entered Stopping: %v", seq)
	}
}

func TestAcquisitionFailureStaysIdle(t *testing.T) {
	cause := fmt.Errorf("%w: backend said no", audio.ErrPermissionDenied)
	fctx := audio.NewFailingContext(cause)
	sink := &recordingSink{}

	s := NewSession(fctx, nil, &gemini.Fake{}, sink, SessionConfig{})
	err := s.Start()
	if !errors.Is(err, audio.ErrPermissionDenied) {
		t.Fatalf("Start error = %v", err)
	}
	if s.State() != StateIdle {
		t.Errorf("state = %v, want idle", s.State())
	}
	if sink.fatalTitle != "Audio Access Denied" {
		t.Errorf("fatal title = %q", sink.fatalTitle)
	}
}

func TestEmptySegmentSkipsAnalysis(t *testing.T) {
	fctx := audio.NewFakeContext(nil, false)
	sink := &recordingSink{}
	calls := 0
	analyzer := &gemini.Fake{
		TranscribeFunc: func(context.Context, []byte, string) (string, error) {
			calls++
			return "", nil
		},
	}

	s := NewSession(fctx, nil, analyzer, sink, SessionConfig{Mode: ModeSingleShot})
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Stop()
	waitDone(t, s)

	if calls != 0 {
		t.Errorf("transcription called %d times for an empty segment", calls)
	}
	if got := s.Transcript(); got != "" {
		t.Errorf("transcript = %q, want empty", got)
	}
	if s.State() != StateIdle {
		t.Errorf("state = %v, want idle", s.State())
	}
}

func TestSilenceAutoStop(t *testing.T) {
	fctx := audio.NewFakeContext(nil, false)
	sink := &recordingSink{}

	s := NewSession(fctx, nil, &gemini.Fake{}, sink, SessionConfig{
		Mode:            ModeContinuous,
		SegmentDuration: time.Hour, // keep the segment timer out of the way
		SilenceTimeout:  40 * time.Millisecond,
	})
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	quiet := genLevel(0.001)
	deadline := time.Now().Add(3 * time.Second)
	for {
		fctx.LastCapture.Push(quiet)
		select {
		case <-s.Done():
		case <-time.After(2 * time.Millisecond):
			if time.Now().Before(deadline) {
				continue
			}
			t.Fatal("silence never stopped the session")
		}
		break
	}

	if got := sink.lastStatus(); got != "Silence detected. Recording stopped." {
		t.Errorf("final status = %q", got)
	}
	if s.State() != StateIdle {
		t.Errorf("state = %v, want idle", s.State())
	}
	// the quiet partial segment is flushed through analysis, not discarded
	if got := s.Transcript(); got != "Speaker 1: hello" {
		t.Errorf("partial segment not flushed: transcript = %q", got)
	}
}

func TestSourceLostStopsSession(t *testing.T) {
	fctx := audio.NewFakeContext(nil, false)
	sink := &recordingSink{}

	s := NewSession(fctx, nil, &gemini.Fake{}, sink, SessionConfig{
		Mode:            ModeContinuous,
		SegmentDuration: time.Hour,
	})
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	fctx.LastCapture.Push(genLevel(0.05))
	fctx.LastCapture.SimulateLoss()
	waitDone(t, s)

	if got := sink.lastStatus(); got != "Capture source was disconnected." {
		t.Errorf("final status = %q", got)
	}
	// the sealed partial segment still went through analysis
	if got := s.Transcript(); got != "Speaker 1: hello" {
		t.Errorf("transcript = %q", got)
	}
}

func TestTranscriptionFailurePreservesPriorTranscript(t *testing.T) {
	fctx := audio.NewFakeContext(nil, false)
	sink := &recordingSink{}

	var mu sync.Mutex
	call := 0
	analyzer := &gemini.Fake{
		TranscribeFunc: func(context.Context, []byte, string) (string, error) {
			mu.Lock()
			defer mu.Unlock()
			call++
			if call == 1 {
				return "Speaker 1: first", nil
			}
			return "", errors.New("model unavailable")
		},
	}

	s := NewSession(fctx, nil, analyzer, sink, SessionConfig{
		Mode:            ModeContinuous,
		SegmentDuration: 25 * time.Millisecond,
	})
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// keep audio flowing so every sealed segment is non-empty
	go func() {
		loud := genLevel(0.05)
		for {
			select {
			case <-s.Done():
				return
			case <-time.After(2 * time.Millisecond):
				fctx.LastCapture.Push(loud)
			}
		}
	}()
	waitDone(t, s)

	if got := s.Transcript(); got != "Speaker 1: first" {
		t.Errorf("transcript = %q, want first segment preserved", got)
	}
	if sink.fatalTitle != "Transcription Failed" {
		t.Errorf("fatal title = %q", sink.fatalTitle)
	}

	seq := sink.stateSequence()
	sawError := false
	for _, st := range seq {
		if st == StateError {
			sawError = true
		}
	}
	if !sawError {
		t.Fatalf("never entered Error: %v", seq)
	}
	if seq[len(seq)-1] != StateIdle {
		t.Errorf("final state = %v, want idle", seq[len(seq)-1])
	}
	if !fctx.LastCapture.Closed() {
		t.Error("capture not released after failure")
	}
}

func TestContinuousSegmentsAppendInOrder(t *testing.T) {
	fctx := audio.NewFakeContext(nil, false)
	sink := &recordingSink{}

	var mu sync.Mutex
	call := 0
	analyzer := &gemini.Fake{
		TranscribeFunc: func(context.Context, []byte, string) (string, error) {
			mu.Lock()
			defer mu.Unlock()
			call++
			return fmt.Sprintf("Speaker 1: part %d\n", call), nil
		},
	}

	s := NewSession(fctx, nil, analyzer, sink, SessionConfig{
		Mode:            ModeContinuous,
		SegmentDuration: 25 * time.Millisecond,
	})
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	stopFeeding := make(chan struct{})
	go func() {
		loud := genLevel(0.05)
		for {
			select {
			case <-stopFeeding:
				return
			case <-time.After(2 * time.Millisecond):
				fctx.LastCapture.Push(loud)
			}
		}
	}()

	// wait until at least two segments have come back
	deadline := time.Now().Add(3 * time.Second)
	for {
		mu.Lock()
		n := call
		mu.Unlock()
		if n >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("segments never completed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	s.Stop()
	waitDone(t, s)
	close(stopFeeding)

	got := s.Transcript()
	if len(got) == 0 {
		t.Fatal("empty transcript")
	}
	// parts must appear in segment order
	first := "Speaker 1: part 1\n"
	if got[:len(first)] != first {
		t.Errorf("transcript does not start with first segment: %q", got)
	}
}
