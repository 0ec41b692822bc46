package crawler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestScraper(maxBytes int64) *Scraper {
	return NewScraper(NewHTTPClient(2*time.Second), "NoticeBot/0.1", maxBytes)
}

func serveHTML(t *testing.T, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(body))
	}))
}

func TestScraper_ExtractsTitleAndText(t *testing.T) {
	srv := serveHTML(t, `<html>
		<head><title> Test Page </title></head>
		<body>
			<nav><a href="/">Home</a></nav>
			<article><p>First paragraph.</p><p>Second paragraph.</p></article>
			<footer>Copyright</footer>
		</body></html>`)
	defer srv.Close()

	page, err := newTestScraper(1 << 20).Scrape(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Scrape returned error: %v", err)
	}
	if page.Title == nil || *page.Title != "Test Page" {
		t.Errorf("title = %v, want Test Page", page.Title)
	}
	if !strings.Contains(page.Text, "First paragraph.") || !strings.Contains(page.Text, "Second paragraph.") {
		t.Errorf("text missing content: %q", page.Text)
	}
	if strings.Contains(page.Text, "Home") || strings.Contains(page.Text, "Copyright") {
		t.Errorf("noise leaked into text: %q", page.Text)
	}
	if page.FetchedAt.IsZero() {
		t.Error("FetchedAt not set")
	}
}

func TestScraper_DropsNoiseClassedElements(t *testing.T) {
	srv := serveHTML(t, `<html><body>
		<div class="sidebar"><p>Sidebar junk</p></div>
		<div id="cookie-banner"><p>Accept cookies</p></div>
		<div class="content"><p>Real content here.</p></div>
	</body></html>`)
	defer srv.Close()

	page, err := newTestScraper(1 << 20).Scrape(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Scrape returned error: %v", err)
	}
	if strings.Contains(page.Text, "Sidebar junk") || strings.Contains(page.Text, "Accept cookies") {
		t.Errorf("noise leaked: %q", page.Text)
	}
	if !strings.Contains(page.Text, "Real content here.") {
		t.Errorf("content missing: %q", page.Text)
	}
}

func TestScraper_RejectsNonHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"a":1}`))
	}))
	defer srv.Close()

	if _, err := newTestScraper(1 << 20).Scrape(context.Background(), srv.URL); err == nil {
		t.Error("expected content-type error")
	}
}

func TestScraper_RejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := newTestScraper(1 << 20).Scrape(context.Background(), srv.URL); err == nil {
		t.Error("expected status error")
	}
}

func TestScraper_RejectsOversizedBody(t *testing.T) {
	srv := serveHTML(t, "<html><body><p>"+strings.Repeat("x", 4096)+"</p></body></html>")
	defer srv.Close()

	if _, err := newTestScraper(1024).Scrape(context.Background(), srv.URL); err == nil {
		t.Error("expected size limit error")
	}
}

func TestScraper_EmptyExtraction(t *testing.T) {
	srv := serveHTML(t, `<html><body><nav><p>only nav text</p></nav></body></html>`)
	defer srv.Close()

	_, err := newTestScraper(1 << 20).Scrape(context.Background(), srv.URL)
	if !errors.Is(err, ErrEmptyExtraction) {
		t.Errorf("expected ErrEmptyExtraction, got %v", err)
	}
}

func TestScraper_TooManyRedirects(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+r.URL.Path+"x", http.StatusFound)
	}))
	defer srv.Close()

	if _, err := newTestScraper(1 << 20).Scrape(context.Background(), srv.URL+"/start"); err == nil {
		t.Error("expected redirect limit error")
	}
}
