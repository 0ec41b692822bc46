package crawler

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"notice/internal/apperr"
)

const maxDiscoveredURLs = 10

// Discoverer finds candidate URLs for a query by scraping public web
// search result pages. Mojeek is the primary source; Google in basic
// HTML mode is the fallback when Mojeek returns too few results.
type Discoverer struct {
	client    *http.Client
	userAgent string

	mojeekBase string
	googleBase string
}

func NewDiscoverer(client *http.Client, userAgent string) *Discoverer {
	return &Discoverer{
		client:     client,
		userAgent:  userAgent,
		mojeekBase: "https://www.mojeek.com",
		googleBase: "https://www.google.com",
	}
}

// FindURLs returns up to ten deduplicated result URLs for the query.
func (d *Discoverer) FindURLs(ctx context.Context, query string) ([]string, error) {
	urls, err := d.searchMojeek(ctx, query)
	if err != nil || len(urls) < 3 {
		fallback, ferr := d.searchGoogle(ctx, query)
		if ferr == nil {
			urls = append(urls, fallback...)
		} else if err != nil {
			return nil, err
		}
	}
	return dedupeCapped(urls, maxDiscoveredURLs), nil
}

func (d *Discoverer) searchMojeek(ctx context.Context, query string) ([]string, error) {
	doc, err := d.fetchResults(ctx, d.mojeekBase+"/search?q="+url.QueryEscape(query))
	if err != nil {
		return nil, err
	}

	var urls []string
	collect := func(_ int, sel *goquery.Selection) {
		if href, ok := sel.Attr("href"); ok && strings.HasPrefix(href, "http") {
			urls = append(urls, href)
		}
	}
	doc.Find("a.ob").Each(collect)
	if len(urls) == 0 {
		doc.Find(".results-standard .title a").Each(collect)
	}
	return urls, nil
}

func (d *Discoverer) searchGoogle(ctx context.Context, query string) ([]string, error) {
	// gbv=1 requests the basic HTML interface, which keeps result links
	// in plain anchors.
	doc, err := d.fetchResults(ctx, d.googleBase+"/search?q="+url.QueryEscape(query)+"&gbv=1")
	if err != nil {
		return nil, err
	}

	var urls []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		target, ok := decodeGoogleRedirect(href)
		if !ok || strings.Contains(target, "google.com/") {
			return
		}
		urls = append(urls, target)
	})
	return urls, nil
}

// decodeGoogleRedirect unwraps the /url?q=<target>&... indirection.
func decodeGoogleRedirect(href string) (string, bool) {
	target, found := strings.CutPrefix(href, "/url?q=")
	if !found {
		return "", false
	}
	if i := strings.Index(target, "&"); i >= 0 {
		target = target[:i]
	}
	if unescaped, err := url.QueryUnescape(target); err == nil {
		target = unescaped
	}
	if !strings.HasPrefix(target, "http") {
		return "", false
	}
	return target, true
}

func (d *Discoverer) fetchResults(ctx context.Context, searchURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindCrawler, "build discovery request", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindCrawler, "discovery fetch", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperr.Newf(apperr.KindCrawler, "discovery status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindCrawler, "parse discovery page", err)
	}
	return doc, nil
}

func dedupeCapped(urls []string, limit int) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, limit)
	for _, u := range urls {
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
		if len(out) == limit {
			break
		}
	}
	return out
}
