package crawler

import (
	"net/url"
	"strings"
	"unicode/utf8"
)

var boostHosts = []string{"wikipedia.org", "britannica.com", "github.com", "stackoverflow.com"}

var penaltyHosts = []string{"twitter.com", "x.com", "facebook.com", "instagram.com"}

// QualityScore rates a page from its URL, title, and extracted text.
// Reference and documentation hosts score up, social media scores down,
// longer pages score up. The result is clamped to [0.5, 3.0] and feeds
// the index ranking rules.
func QualityScore(pageURL string, title *string, text string) float64 {
	score := 1.0

	if u, err := url.Parse(pageURL); err == nil {
		host := strings.ToLower(u.Hostname())
		if hostBoosted(host) {
			score += 0.5
		}
		for _, h := range penaltyHosts {
			if strings.Contains(host, h) {
				score -= 0.3
				break
			}
		}
	}

	switch n := utf8.RuneCountInString(text); {
	case n > 10000:
		score += 0.5
	case n > 5000:
		score += 0.3
	case n < 500:
		score -= 0.3
	}

	if title != nil && *title != "" {
		score += 0.1
	}

	if score < 0.5 {
		return 0.5
	}
	if score > 3.0 {
		return 3.0
	}
	return score
}

func hostBoosted(host string) bool {
	for _, h := range boostHosts {
		if strings.Contains(host, h) {
			return true
		}
	}
	return strings.HasPrefix(host, "docs.") ||
		strings.Contains(host, ".gov") ||
		strings.Contains(host, ".edu")
}
