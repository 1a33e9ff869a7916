package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bynzo/voiceanalyst/log"
)

const (
	DefaultModel   = "gemini-2.5-flash-preview-05-20"
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	defaultMaxRetries   = 5
	defaultInitialDelay = 1000 * time.Millisecond
)

type Config struct {
	APIKey       string
	Model        string        // DefaultModel when empty
	BaseURL      string        // override for tests
	MaxRetries   int           // retry budget for 429/transport failures; 0 means default, negative disables retries
	InitialDelay time.Duration // first backoff delay, doubles per retry
	HTTPClient   *http.Client
}

type Client struct {
	apiKey       string
	model        string
	baseURL      string
	maxRetries   int
	initialDelay time.Duration
	http         *http.Client
	sleep        func(time.Duration)
}

func NewClient(cfg Config) *Client {
	c := &Client{
		apiKey:       cfg.APIKey,
		model:        cfg.Model,
		baseURL:      cfg.BaseURL,
		maxRetries:   cfg.MaxRetries,
		initialDelay: cfg.InitialDelay,
		http:         cfg.HTTPClient,
		sleep:        time.Sleep,
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.maxRetries == 0 {
		c.maxRetries = defaultMaxRetries
	} else if c.maxRetries < 0 {
		c.maxRetries = 0
	}
	if c.initialDelay == 0 {
		c.initialDelay = defaultInitialDelay
	}
	if c.http == nil {
		c.http = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        4,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		}
	}
	return c
}

// Wire envelope for generateContent.

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string         `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// text extracts candidates[0].content.parts[0].text from the envelope.
func (r *generateResponse) text() (string, bool) {
	if len(r.Candidates) == 0 || len(r.Candidates[0].Content.Parts) == 0 {
		return "", false
	}
	t := r.Candidates[0].Content.Parts[0].Text
	return t, t != ""
}

// send POSTs the request, retrying on HTTP 429 and transport failures with
// exponential backoff. Any other non-2xx status fails immediately. The call
// label only feeds retry log lines.
func (c *Client) send(ctx context.Context, call string, reqBody generateRequest) (*generateResponse, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("encoding %s request: %w", call, err)
	}
	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)

	delay := c.initialDelay
	var lastStatus int
	var lastErr error

	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("building %s request: %w", call, err)
		}
		req.Header.Set("Content-Type", "application/json")
		// Key goes in a header so it never shows up in URLs or logs.
		req.Header.Set("x-goog-api-key", c.apiKey)

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastStatus, lastErr = 0, err
		} else {
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if readErr != nil {
				lastStatus, lastErr = 0, readErr
			} else if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				var envelope generateResponse
				if err := json.Unmarshal(body, &envelope); err != nil {
					return nil, fmt.Errorf("decoding %s response: %w", call, err)
				}
				return &envelope, nil
			} else if resp.StatusCode != http.StatusTooManyRequests {
				return nil, &RequestError{Status: resp.StatusCode}
			} else {
				lastStatus, lastErr = resp.StatusCode, nil
			}
		}

		if attempt >= c.maxRetries {
			return nil, &RequestError{Status: lastStatus, Err: lastErr}
		}

		cause := ""
		if lastErr != nil {
			cause = lastErr.Error()
		}
		log.Retry(call, attempt+1, delay, lastStatus, cause)
		c.sleep(delay)
		delay *= 2
	}
}
