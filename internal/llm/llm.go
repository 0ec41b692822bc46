package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"notice/internal/apperr"
	"notice/internal/metrics"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	maxAttempts    = 5
)

// Client talks to the Gemini generateContent endpoint. Both operations
// share one transport: POST JSON with a single text part, with additive
// backoff on quota errors.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

func NewClient(httpClient *http.Client, apiKey, model string) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		model:      model,
	}
}

// Summarize condenses page text into a short summary.
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	prompt := "Summarize the following web page content in 2-3 concise sentences. " +
		"Focus on the main topic and key information:\n\n" + text

	out, err := c.generate(ctx, prompt)
	metrics.RecordLLM("summarize", err == nil)
	return out, err
}

// Answer produces a grounded response to a query from retrieved
// context snippets.
func (c *Client) Answer(ctx context.Context, query string, contexts []string) (string, error) {
	var b strings.Builder
	b.WriteString("You are a search assistant. Answer the question using only the context below. ")
	b.WriteString("Keep the answer to 2-4 sentences. If the context does not contain the answer, say so.\n\nContext:\n")
	for _, c := range contexts {
		b.WriteString(c)
		b.WriteString("\n\n")
	}
	b.WriteString("Question: ")
	b.WriteString(query)

	out, err := c.generate(ctx, b.String())
	metrics.RecordLLM("answer", err == nil)
	return out, err
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// generate posts one prompt, retrying on quota exhaustion with an
// additive backoff of 5+attempt seconds.
func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", apperr.New(apperr.KindConfig, "gemini api key not configured")
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)

	payload, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", apperr.Wrap(apperr.KindAi, "encode generation request", err)
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return "", apperr.Wrap(apperr.KindAi, "build generation request", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return "", apperr.Wrap(apperr.KindAi, "generation request", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			if err := sleepCtx(ctx, time.Duration(5+attempt)*time.Second); err != nil {
				return "", err
			}
			continue
		}

		var body generateResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			if body.Error != nil {
				return "", apperr.Newf(apperr.KindAi, "generation failed: %s", body.Error.Message)
			}
			return "", apperr.Newf(apperr.KindAi, "generation status %d", resp.StatusCode)
		}
		if decodeErr != nil {
			return "", apperr.Wrap(apperr.KindAi, "decode generation response", decodeErr)
		}
		if body.Error != nil {
			return "", apperr.Newf(apperr.KindAi, "generation failed: %s", body.Error.Message)
		}

		text := extractText(body)
		if text == "" {
			return "", apperr.New(apperr.KindAi, "empty generation response")
		}
		return text, nil
	}

	return "", apperr.Newf(apperr.KindAi, "generation rate limited after %d attempts", maxAttempts)
}

func extractText(body generateResponse) string {
	if len(body.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range body.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return strings.TrimSpace(b.String())
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
