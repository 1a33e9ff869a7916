// Package gemini wraps the generativelanguage generateContent API for the
// two remote calls the recorder makes: diarized transcription of a sealed
// audio segment, and DISC classification of the accumulated transcript.
package gemini

import (
	"context"
	"errors"
	"fmt"
)

// Returned when a response envelope is structurally valid but lacks the
// expected text payload. Neither is retried.
var (
	ErrNoTranscription   = errors.New("no transcription in API response")
	ErrNoClassification  = errors.New("no classification in API response")
	ErrMalformedResponse = errors.New("malformed classification payload")
)

// RequestError is a terminal transport or HTTP failure, produced after the
// retry budget is exhausted or immediately for non-retryable statuses.
type RequestError struct {
	Status int   // HTTP status, 0 for transport-level failures
	Err    error // underlying cause, nil when Status is set
}

func (e *RequestError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("API error %d", e.Status)
	}
	return fmt.Sprintf("request failed: %v", e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// Category is one of the four DISC personality classes.
type Category string

const (
	Dominance         Category = "Dominance"
	Influence         Category = "Influence"
	Steadiness        Category = "Steadiness"
	Conscientiousness Category = "Conscientiousness"
)

// SpeakerProfile pairs a diarization label with the model's DISC call.
// DISCProfile is passed through untouched; use Category to check whether it
// names a known class before styling it.
type SpeakerProfile struct {
	Speaker     string `json:"speaker"`
	DISCProfile string `json:"discProfile"`
}

// Category returns the parsed DISC category and whether it is one of the
// four known values.
func (p SpeakerProfile) Category() (Category, bool) {
	switch c := Category(p.DISCProfile); c {
	case Dominance, Influence, Steadiness, Conscientiousness:
		return c, true
	}
	return "", false
}

// Analyzer is the remote analysis surface the recording session depends on.
type Analyzer interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
	Classify(ctx context.Context, transcript string) ([]SpeakerProfile, error)
}
