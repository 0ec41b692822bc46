package answer

import (
	"regexp"
	"strings"
)

// Intent kinds, ordered by classification priority. The kind string
// doubles as the history intent label and the instant-answer kind.
const (
	KindTimer    = "timer"
	KindUnit     = "unit_conversion"
	KindCurrency = "currency_conversion"
	KindMath     = "calculation"
	KindSearch   = "search"
)

// Intent is the classified form of a query. Expr carries the effective
// expression to evaluate; for bare trigger tokens it is a default.
type Intent struct {
	Kind string
	Expr string
}

var (
	timerRe = regexp.MustCompile(
		`(?i)^(?:(?:set|start|create)\s+)?(?:a\s+)?timer\s+(?:for\s+)?\d+\s*(?:s|secs?|seconds?|m|mins?|minutes?|h|hrs?|hours?)\b`)

	// Currency codes are matched case-sensitively so that unit
	// abbreviations like mph never classify as currency.
	currencyRe = regexp.MustCompile(
		`^\s*\d+(?:\.\d+)?\s*([A-Z]{3})\s+(?:to|in|into|as)\s+([A-Z]{3})\s*$`)

	arithmeticRe = regexp.MustCompile(`^[0-9\s+\-*/^%().]+$`)
	funcNameRe   = regexp.MustCompile(`\b(?:sqrt|cbrt|sin|cos|tan|log|ln|abs|ceil|floor)\b`)
	digitRe      = regexp.MustCompile(`[0-9]`)
)

// Classify maps a raw query to an intent. Rules apply in order; the
// first match wins.
func Classify(query string) Intent {
	q := strings.TrimSpace(query)
	lower := strings.ToLower(q)

	switch lower {
	case "timer", "stopwatch":
		return Intent{Kind: KindTimer, Expr: lower}
	case "calculator", "calc":
		return Intent{Kind: KindMath, Expr: "0"}
	case "converter":
		return Intent{Kind: KindCurrency, Expr: "1 USD to EUR"}
	}

	if timerRe.MatchString(q) {
		return Intent{Kind: KindTimer, Expr: lower}
	}

	if _, ok := parseUnitQuery(lower); ok {
		return Intent{Kind: KindUnit, Expr: lower}
	}

	if currencyRe.MatchString(q) {
		return Intent{Kind: KindCurrency, Expr: q}
	}

	if isMathQuery(q, lower) {
		return Intent{Kind: KindMath, Expr: q}
	}

	return Intent{Kind: KindSearch, Expr: q}
}

func isMathQuery(q, lower string) bool {
	if digitRe.MatchString(q) && arithmeticRe.MatchString(q) {
		return true
	}
	// English arithmetic phrasing and prefix function calls surface
	// after normalization.
	n := NormalizeMath(lower)
	if !digitRe.MatchString(n) {
		return false
	}
	stripped := funcNameRe.ReplaceAllString(n, "")
	return arithmeticRe.MatchString(stripped)
}
