package crawler

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"notice/internal/store"
)

// Path and query fragments that mark a link as not worth crawling.
var skipSubstrings = []string{
	"/login", "/signup", "/register", "/logout", "/admin", "/api/",
	"/feed", "/rss",
	"/wiki/special:", "/wiki/talk:", "/wiki/user:",
	"category:", "template:", "help:", "file:", "portal:", "draft:", "module:",
	"/w/index.php",
	"action=edit", "action=history", "oldid=", "printable=yes", "#cite",
}

var skipExtensions = []string{
	".pdf", ".jpg", ".jpeg", ".png", ".gif", ".svg", ".css", ".js",
	".zip", ".tar", ".gz", ".mp3", ".mp4", ".avi", ".exe", ".dmg",
	".iso", ".xml", ".json", ".woff", ".woff2", ".ttf", ".eot",
}

// ExtractLinks pulls anchor targets out of a page, resolves them
// against the base URL, and keeps only same-domain links that pass the
// skip filters. Fragments are stripped and duplicates removed while
// preserving document order.
func ExtractLinks(rawHTML, baseURL string) ([]string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	baseHost := strings.ToLower(base.Hostname())

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var links []string

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		lowerHref := strings.ToLower(href)
		if strings.HasPrefix(lowerHref, "javascript:") ||
			strings.HasPrefix(lowerHref, "mailto:") ||
			strings.HasPrefix(lowerHref, "tel:") {
			return
		}

		resolved, err := base.Parse(href)
		if err != nil {
			return
		}
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		if !strings.EqualFold(resolved.Hostname(), baseHost) {
			return
		}
		if shouldSkip(resolved) {
			return
		}

		canonical, err := store.CanonicalizeURL(resolved.String())
		if err != nil {
			return
		}
		if _, dup := seen[canonical]; dup {
			return
		}
		seen[canonical] = struct{}{}
		links = append(links, canonical)
	})

	return links, nil
}

func shouldSkip(u *url.URL) bool {
	full := strings.ToLower(u.String())
	for _, sub := range skipSubstrings {
		if strings.Contains(full, sub) {
			return true
		}
	}
	path := strings.ToLower(u.Path)
	for _, ext := range skipExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}
