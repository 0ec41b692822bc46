package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(srv *httptest.Server) *Client {
	c := NewClient(&http.Client{Timeout: time.Second}, "test-key", "gemini-2.0-flash")
	c.baseURL = srv.URL
	return c
}

func generationServer(t *testing.T, reply string, gotPrompt *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "gemini-2.0-flash") {
			t.Errorf("model missing from path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("api key missing from query")
		}

		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if gotPrompt != nil && len(req.Contents) == 1 && len(req.Contents[0].Parts) == 1 {
			*gotPrompt = req.Contents[0].Parts[0].Text
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"` + reply + `"}]}}]}`))
	}))
}

func TestSummarize(t *testing.T) {
	var prompt string
	srv := generationServer(t, "A short summary.", &prompt)
	defer srv.Close()

	got, err := newTestClient(srv).Summarize(context.Background(), "page text here")
	if err != nil {
		t.Fatalf("Summarize returned error: %v", err)
	}
	if got != "A short summary." {
		t.Errorf("unexpected summary %q", got)
	}
	if !strings.Contains(prompt, "page text here") || !strings.Contains(prompt, "2-3 concise sentences") {
		t.Errorf("prompt not built correctly: %q", prompt)
	}
}

func TestAnswer_IncludesContexts(t *testing.T) {
	var prompt string
	srv := generationServer(t, "Grounded answer.", &prompt)
	defer srv.Close()

	contexts := []string{
		"Title: One\nURL: https://a/1\nSnippet: first",
		"Title: Two\nURL: https://a/2\nSnippet: second",
	}
	got, err := newTestClient(srv).Answer(context.Background(), "the question", contexts)
	if err != nil {
		t.Fatalf("Answer returned error: %v", err)
	}
	if got != "Grounded answer." {
		t.Errorf("unexpected answer %q", got)
	}
	for _, c := range contexts {
		if !strings.Contains(prompt, c) {
			t.Errorf("prompt missing context %q", c)
		}
	}
	if !strings.Contains(prompt, "the question") || !strings.Contains(prompt, "2-4 sentences") {
		t.Errorf("prompt not built correctly: %q", prompt)
	}
}

func TestGenerate_EmptyResponseIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	if _, err := newTestClient(srv).Summarize(context.Background(), "text"); err == nil {
		t.Error("expected error for empty candidates")
	}
}

func TestGenerate_StructuredError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"invalid argument"}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Summarize(context.Background(), "text")
	if err == nil || !strings.Contains(err.Error(), "invalid argument") {
		t.Errorf("expected structured error message, got %v", err)
	}
}

func TestGenerate_MissingAPIKey(t *testing.T) {
	c := NewClient(http.DefaultClient, "", "gemini-2.0-flash")
	if _, err := c.Summarize(context.Background(), "text"); err == nil {
		t.Error("expected config error without api key")
	}
}
