package crawler

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/temoto/robotstxt"
)

// RobotsCache answers allowed-or-not per URL, caching parsed robots.txt
// rules by host. Fetch failures are treated as permissive: a site that
// cannot serve robots.txt does not block crawling.
type RobotsCache struct {
	mu     sync.RWMutex
	groups map[string]*robotstxt.Group

	client *http.Client
	agent  string
}

// NewRobotsCache builds a cache keyed by host. agent should be the full
// crawler user-agent; matching uses its product token.
func NewRobotsCache(client *http.Client, agent string) *RobotsCache {
	token := agent
	if i := strings.IndexAny(agent, "/ "); i > 0 {
		token = agent[:i]
	}
	return &RobotsCache{
		groups: make(map[string]*robotstxt.Group),
		client: client,
		agent:  token,
	}
}

// Allowed reports whether the crawler may fetch the URL. Unparseable
// URLs are not allowed; everything else defaults to permissive.
func (r *RobotsCache) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())

	r.mu.RLock()
	group, ok := r.groups[host]
	r.mu.RUnlock()

	if !ok {
		group = r.fetch(ctx, u.Scheme, u.Host)
		r.mu.Lock()
		r.groups[host] = group
		r.mu.Unlock()
	}

	if group == nil {
		return true
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	return group.Test(path)
}

// fetch retrieves and parses robots.txt for one host. A nil return
// means no restrictions.
func (r *RobotsCache) fetch(ctx context.Context, scheme, hostPort string) *robotstxt.Group {
	robotsURL := scheme + "://" + hostPort + "/robots.txt"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", r.agent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return nil
	}

	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return nil
	}
	return data.FindGroup(r.agent)
}
