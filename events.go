package main

import "github.com/bynzo/voiceanalyst/gemini"

// Sink abstracts the display layer so the Bubble Tea TUI and the test sink
// receive the same session events. Implementations must tolerate calls from
// the session goroutine and the audio callback.
type Sink interface {
	TranscriptUpdated(full string)
	ProfilesUpdated(profiles []gemini.SpeakerProfile)
	Status(message string, busy bool)
	FatalError(title, message string)
	AudioLevel(level float64)
	StateChanged(state SessionState)
}
