package gemini

import (
	"context"
	"encoding/json"
	"fmt"
)

const classifyPrompt = `Analyze the following transcript of a conversation. For each speaker identified (e.g., 'Speaker 1'), propose a personality profile based *only* on their dialogue, using the DISC model: Dominance (D), Influence (I), Steadiness (S), and Conscientiousness (C). Categorize each speaker into one of the four main categories based on the strongest indicator in their speech.

Transcript:
%s

Please provide the output in a JSON format. The JSON should be an array of objects, where each object has two properties: 'speaker' (e.g., "Speaker 1") and 'discProfile' (the category, e.g., "Dominance").`

func classifySchema() map[string]any {
	return map[string]any{
		"type": "ARRAY",
		"items": map[string]any{
			"type": "OBJECT",
			"properties": map[string]any{
				"speaker":     map[string]any{"type": "STRING"},
				"discProfile": map[string]any{"type": "STRING"},
			},
			"propertyOrdering": []string{"speaker", "discProfile"},
		},
	}
}

// Classify runs DISC classification over the full accumulated transcript.
// The response replaces any previous profile list wholesale; profiles with an
// unrecognized category are passed through for the sink to render as unknown.
func (c *Client) Classify(ctx context.Context, transcript string) ([]SpeakerProfile, error) {
	req := generateRequest{
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: fmt.Sprintf(classifyPrompt, transcript)}},
		}},
		GenerationConfig: &generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   classifySchema(),
		},
	}

	resp, err := c.send(ctx, "classify", req)
	if err != nil {
		return nil, err
	}
	text, ok := resp.text()
	if !ok {
		return nil, ErrNoClassification
	}

	var profiles []SpeakerProfile
	if err := json.Unmarshal([]byte(text), &profiles); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return profiles, nil
}
