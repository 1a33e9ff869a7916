package main

import (
	"strings"
	"sync"
)

// Transcript accumulates speaker-labeled text in segment start order.
// Remote analysis can in principle settle out of order; appends carry the
// segment sequence number and are buffered until they are contiguous, so the
// rendered transcript never interleaves segments.
type Transcript struct {
	mu      sync.Mutex
	next    int
	pending map[int]string
	parts   []string
}

func NewTranscript() *Transcript {
	return &Transcript{pending: make(map[int]string)}
}

// Append records the transcription of segment seq. Text for a future segment
// is held back until every earlier segment has been appended or skipped.
func (t *Transcript) Append(seq int, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending[seq] = text
	t.flush()
}

// Skip advances past a segment that produced no audio.
func (t *Transcript) Skip(seq int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if seq == t.next {
		t.next++
		t.flush()
		return
	}
	t.pending[seq] = ""
	// flush handles it once the sequence catches up
}

func (t *Transcript) flush() {
	for {
		text, ok := t.pending[t.next]
		if !ok {
			return
		}
		delete(t.pending, t.next)
		if text != "" {
			if len(t.parts) > 0 && !strings.HasSuffix(t.parts[len(t.parts)-1], "\n") {
				t.parts = append(t.parts, "\n")
			}
			t.parts = append(t.parts, text)
		}
		t.next++
	}
}

// String returns the full transcript so far.
func (t *Transcript) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.parts, "")
}

func (t *Transcript) Empty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.parts) == 0
}

// Reset drops all accumulated text and restarts the sequence.
func (t *Transcript) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next = 0
	t.pending = make(map[int]string)
	t.parts = nil
}
