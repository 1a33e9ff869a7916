package gemini

import (
	"context"
	"encoding/base64"
)

const transcribeInstruction = "Transcribe the following audio conversation, " +
	"identifying each distinct speaker as 'Speaker 1', 'Speaker 2', etc. " +
	"Provide the output as a simple transcript, with each line beginning " +
	"with the speaker's label."

// Transcribe sends one sealed audio segment for diarized transcription and
// returns the speaker-labeled transcript text.
func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	req := generateRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{Text: transcribeInstruction},
				{InlineData: &inlineData{
					MimeType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(audio),
				}},
			},
		}},
	}

	resp, err := c.send(ctx, "transcribe", req)
	if err != nil {
		return "", err
	}
	text, ok := resp.text()
	if !ok {
		return "", ErrNoTranscription
	}
	return text, nil
}
