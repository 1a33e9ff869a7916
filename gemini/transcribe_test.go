package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTranscribeRequestShape(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		fmt.Fprintf(w, envelopeWithText, "Speaker 1: hello")
	}))
	defer srv.Close()

	c, _ := newTestClient(srv, 5)
	audio := []byte{0x01, 0x02, 0x03}
	text, err := c.Transcribe(context.Background(), audio, "audio/flac")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "Speaker 1: hello" {
		t.Errorf("text = %q", text)
	}

	if len(got.Contents) != 1 || got.Contents[0].Role != "user" {
		t.Fatalf("contents = %+v, want single user turn", got.Contents)
	}
	parts := got.Contents[0].Parts
	if len(parts) != 2 {
		t.Fatalf("parts = %d, want instruction + inline audio", len(parts))
	}
	if !strings.Contains(parts[0].Text, "Speaker 1") || !strings.Contains(parts[0].Text, "Transcribe") {
		t.Errorf("instruction missing diarization wording: %q", parts[0].Text)
	}
	if parts[1].InlineData == nil {
		t.Fatal("second part has no inlineData")
	}
	if parts[1].InlineData.MimeType != "audio/flac" {
		t.Errorf("mimeType = %q", parts[1].InlineData.MimeType)
	}
	if parts[1].InlineData.Data != base64.StdEncoding.EncodeToString(audio) {
		t.Errorf("inline data is not the base64 audio payload")
	}
	if got.GenerationConfig != nil {
		t.Error("transcription request should not carry generationConfig")
	}
}

func TestTranscribeMissingCandidates(t *testing.T) {
	for _, body := range []string{
		`{}`,
		`{"candidates":[]}`,
		`{"candidates":[{"content":{"parts":[]}}]}`,
		`{"candidates":[{"content":{"parts":[{"text":""}]}}]}`,
	} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, body)
		}))
		c, _ := newTestClient(srv, 5)
		_, err := c.Transcribe(context.Background(), []byte{1}, "audio/flac")
		srv.Close()
		if !errors.Is(err, ErrNoTranscription) {
			t.Errorf("body %s: err = %v, want ErrNoTranscription", body, err)
		}
	}
}

func TestTranscribePropagatesRequestError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, _ := newTestClient(srv, 5)
	_, err := c.Transcribe(context.Background(), []byte{1}, "audio/flac")

	var reqErr *RequestError
	if !errors.As(err, &reqErr) || reqErr.Status != http.StatusInternalServerError {
		t.Fatalf("err = %v, want RequestError{500}", err)
	}
}
