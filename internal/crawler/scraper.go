package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"notice/internal/apperr"
	"notice/internal/model"
)

// ErrEmptyExtraction means the page fetched fine but yielded no
// readable text after noise filtering.
var ErrEmptyExtraction = apperr.New(apperr.KindCrawler, "no textual content extracted")

const maxRedirects = 5

var noiseTags = map[string]bool{
	"nav": true, "header": true, "footer": true, "aside": true,
	"script": true, "style": true, "noscript": true,
}

var noiseAttrPattern = regexp.MustCompile(
	`nav|navbar|menu|footer|header|sidebar|aside|ad|ads|advertisement|cookie|popup|modal`)

const contentSelectors = "p, h1, h2, h3, h4, h5, h6, li, article, td, th, blockquote, pre, code, figcaption"

// NewHTTPClient builds the shared fetch client: pooled transport,
// request timeout, redirect chain capped at five hops.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}
}

// Scraper fetches a page and extracts its readable text.
type Scraper struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
}

func NewScraper(client *http.Client, userAgent string, maxBytes int64) *Scraper {
	return &Scraper{client: client, userAgent: userAgent, maxBytes: maxBytes}
}

// Scrape fetches the URL and returns its title, extracted text, and raw
// HTML. Non-2xx status, non-HTML content, and oversized bodies are
// classified crawler errors.
func (s *Scraper) Scrape(ctx context.Context, pageURL string) (model.ScrapedPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return model.ScrapedPage{}, apperr.Wrap(apperr.KindCrawler, "build request", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return model.ScrapedPage{}, apperr.Wrap(apperr.KindCrawler, "fetch "+pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return model.ScrapedPage{}, apperr.Newf(apperr.KindCrawler, "unexpected status %d for %s", resp.StatusCode, pageURL)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "text/html") {
		return model.ScrapedPage{}, apperr.Newf(apperr.KindCrawler, "unsupported content type %q", ct)
	}
	if resp.ContentLength > s.maxBytes {
		return model.ScrapedPage{}, apperr.Newf(apperr.KindCrawler, "content length %d exceeds limit %d", resp.ContentLength, s.maxBytes)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return model.ScrapedPage{}, apperr.Wrap(apperr.KindCrawler, "read body", err)
	}
	if int64(len(body)) > s.maxBytes {
		return model.ScrapedPage{}, apperr.Newf(apperr.KindCrawler, "body exceeds limit %d", s.maxBytes)
	}

	rawHTML := string(body)
	title, text, err := extractText(rawHTML)
	if err != nil {
		return model.ScrapedPage{}, err
	}

	return model.ScrapedPage{
		URL:       pageURL,
		Title:     title,
		Text:      text,
		RawHTML:   rawHTML,
		FetchedAt: time.Now().UTC(),
	}, nil
}

// extractText pulls the title and the readable body text. Elements
// inside navigation, chrome, or ad containers are dropped.
func extractText(rawHTML string) (*string, string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, "", apperr.Wrap(apperr.KindCrawler, "parse html", err)
	}

	var title *string
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		title = &t
	}

	var parts []string
	doc.Find(contentSelectors).Each(func(_ int, sel *goquery.Selection) {
		if len(sel.Nodes) == 0 || hasNoiseAncestor(sel.Nodes[0]) {
			return
		}
		if t := strings.TrimSpace(sel.Text()); t != "" {
			parts = append(parts, t)
		}
	})

	text := strings.TrimSpace(strings.Join(parts, "\n"))
	if text == "" {
		return nil, "", ErrEmptyExtraction
	}
	return title, text, nil
}

// hasNoiseAncestor walks the parent chain looking for a node that is
// itself noise. The node's own tag counts, so a <code> inside a <nav>
// and a noise-classed <p> are both dropped.
func hasNoiseAncestor(n *html.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type != html.ElementNode {
			continue
		}
		if noiseTags[cur.Data] {
			return true
		}
		for _, attr := range cur.Attr {
			if attr.Key != "class" && attr.Key != "id" {
				continue
			}
			if noiseAttrPattern.MatchString(strings.ToLower(attr.Val)) {
				return true
			}
		}
	}
	return false
}
