package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newRobotsServer(t *testing.T, robotsBody string, fetches *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			fetches.Add(1)
			w.Write([]byte(robotsBody))
			return
		}
		http.NotFound(w, r)
	}))
}

func TestRobotsCache_DisallowPrefix(t *testing.T) {
	var fetches atomic.Int32
	srv := newRobotsServer(t, "User-agent: *\nDisallow: /private\n", &fetches)
	defer srv.Close()

	cache := NewRobotsCache(srv.Client(), "NoticeBot/0.1")
	ctx := context.Background()

	if !cache.Allowed(ctx, srv.URL+"/public") {
		t.Error("expected /public to be allowed")
	}
	if cache.Allowed(ctx, srv.URL+"/private/x") {
		t.Error("expected /private/x to be disallowed")
	}
}

func TestRobotsCache_FetchesOncePerHost(t *testing.T) {
	var fetches atomic.Int32
	srv := newRobotsServer(t, "User-agent: *\nDisallow: /x\n", &fetches)
	defer srv.Close()

	cache := NewRobotsCache(srv.Client(), "NoticeBot/0.1")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		cache.Allowed(ctx, srv.URL+"/page")
	}
	if n := fetches.Load(); n != 1 {
		t.Errorf("expected 1 robots fetch, got %d", n)
	}
}

func TestRobotsCache_SpecificAgentRulesWin(t *testing.T) {
	var fetches atomic.Int32
	body := "User-agent: *\nDisallow: /everyone\n\nUser-agent: NoticeBot\nDisallow: /bots\n"
	srv := newRobotsServer(t, body, &fetches)
	defer srv.Close()

	cache := NewRobotsCache(srv.Client(), "NoticeBot/0.1 (+https://example.com)")
	ctx := context.Background()

	if cache.Allowed(ctx, srv.URL+"/bots/area") {
		t.Error("expected specific agent rule to disallow /bots")
	}
	if !cache.Allowed(ctx, srv.URL+"/everyone") {
		t.Error("specific rules replace the wildcard group")
	}
}

func TestRobotsCache_UnreachableHostIsPermissive(t *testing.T) {
	client := &http.Client{Timeout: 200 * time.Millisecond}
	cache := NewRobotsCache(client, "NoticeBot/0.1")

	// Reserved TEST-NET address; the fetch fails fast.
	if !cache.Allowed(context.Background(), "http://192.0.2.1:9/page") {
		t.Error("expected permissive result when robots.txt is unreachable")
	}
}

func TestRobotsCache_BadURLDisallowed(t *testing.T) {
	cache := NewRobotsCache(http.DefaultClient, "NoticeBot/0.1")
	if cache.Allowed(context.Background(), "://not a url") {
		t.Error("expected unparseable URL to be disallowed")
	}
}
