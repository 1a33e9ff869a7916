package gemini

import "context"

// Fake implements Analyzer for tests. Unset funcs return canned defaults.
type Fake struct {
	TranscribeFunc func(ctx context.Context, audio []byte, mimeType string) (string, error)
	ClassifyFunc   func(ctx context.Context, transcript string) ([]SpeakerProfile, error)
}

func (f *Fake) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if f.TranscribeFunc != nil {
		return f.TranscribeFunc(ctx, audio, mimeType)
	}
	return "Speaker 1: hello", nil
}

func (f *Fake) Classify(ctx context.Context, transcript string) ([]SpeakerProfile, error) {
	if f.ClassifyFunc != nil {
		return f.ClassifyFunc(ctx, transcript)
	}
	return []SpeakerProfile{{Speaker: "Speaker 1", DISCProfile: "Influence"}}, nil
}
