package answer

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"notice/internal/apperr"
)

// Conversational prefixes stripped before evaluation, longest first.
var mathPrefixes = []string{
	"what is", "what's", "calculate", "compute", "evaluate", "find", "solve",
}

var numberWords = map[string]string{
	"zero": "0", "one": "1", "two": "2", "three": "3", "four": "4",
	"five": "5", "six": "6", "seven": "7", "eight": "8", "nine": "9",
	"ten": "10", "eleven": "11", "twelve": "12", "thirteen": "13",
	"fourteen": "14", "fifteen": "15", "sixteen": "16", "seventeen": "17",
	"eighteen": "18", "nineteen": "19",
	"twenty": "20", "thirty": "30", "forty": "40", "fifty": "50",
	"sixty": "60", "seventy": "70", "eighty": "80", "ninety": "90",
	"hundred": "100", "thousand": "1000", "million": "1000000",
}

var (
	numberWordRe = buildNumberWordRe()

	ordinalPowerRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s+to\s+the\s+(\d+)(?:st|nd|rd|th)?\s+power`)
	squareRootRe   = regexp.MustCompile(`\bsquare\s+root\s+of\s+(-?\d+(?:\.\d+)?)`)
	cubeRootRe     = regexp.MustCompile(`\bcube\s+root\s+of\s+(-?\d+(?:\.\d+)?)`)
	bareFuncRe     = regexp.MustCompile(`\b(sqrt|cbrt|sin|cos|tan|log|ln|abs|ceil|floor)\s+(-?\d+(?:\.\d+)?)`)
)

var phraseOps = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`\braised\s+to\s+the\s+power\s+of\b`), "^"},
	{regexp.MustCompile(`\bto\s+the\s+power\s+of\b`), "^"},
	{regexp.MustCompile(`\braised\s+to\b`), "^"},
	{regexp.MustCompile(`\bmultiplied\s+by\b`), "*"},
	{regexp.MustCompile(`\bdivided\s+by\b`), "/"},
	{regexp.MustCompile(`\btimes\b`), "*"},
	{regexp.MustCompile(`\bover\b`), "/"},
	{regexp.MustCompile(`\bplus\b`), "+"},
	{regexp.MustCompile(`\bminus\b`), "-"},
	{regexp.MustCompile(`\bmodulo\b`), "%"},
	{regexp.MustCompile(`\bmod\b`), "%"},
	{regexp.MustCompile(`\bsquared\b`), "^2"},
	{regexp.MustCompile(`\bcubed\b`), "^3"},
}

func buildNumberWordRe() *regexp.Regexp {
	words := make([]string, 0, len(numberWords))
	for w := range numberWords {
		words = append(words, w)
	}
	// Longer words first so "seventeen" wins over "seven".
	sort.Slice(words, func(i, j int) bool {
		return len(words[i]) > len(words[j])
	})
	return regexp.MustCompile(`\b(?:` + strings.Join(words, "|") + `)\b`)
}

// NormalizeMath rewrites an English arithmetic phrase into a plain
// expression. Already-normalized expressions pass through unchanged.
func NormalizeMath(query string) string {
	s := strings.ToLower(strings.TrimSpace(query))

	for _, p := range mathPrefixes {
		if strings.HasPrefix(s, p+" ") {
			s = strings.TrimSpace(s[len(p)+1:])
			break
		}
	}

	s = numberWordRe.ReplaceAllStringFunc(s, func(w string) string {
		return numberWords[w]
	})

	s = ordinalPowerRe.ReplaceAllString(s, "$1^$2")
	s = squareRootRe.ReplaceAllString(s, "sqrt($1)")
	s = cubeRootRe.ReplaceAllString(s, "cbrt($1)")
	s = bareFuncRe.ReplaceAllString(s, "$1($2)")

	for _, op := range phraseOps {
		s = op.re.ReplaceAllString(s, op.repl)
	}

	return strings.TrimSpace(s)
}

// EvalMath normalizes and evaluates an arithmetic query, returning the
// formatted result.
func EvalMath(query string) (string, error) {
	expr := NormalizeMath(query)
	v, err := evaluate(expr)
	if err != nil {
		return "", err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "", apperr.Newf(apperr.KindValidation, "expression has no finite value: %s", expr)
	}
	return FormatNumber(v), nil
}

// FormatNumber renders integers without a decimal point and trims
// trailing zeros otherwise.
func FormatNumber(v float64) string {
	if v == math.Floor(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokIdent
	tokOp
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	num  float64
}

func tokenize(expr string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(expr) {
		c := expr[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c >= '0' && c <= '9' || c == '.':
			j := i
			for j < len(expr) && (expr[j] >= '0' && expr[j] <= '9' || expr[j] == '.') {
				j++
			}
			n, err := strconv.ParseFloat(expr[i:j], 64)
			if err != nil {
				return nil, apperr.Newf(apperr.KindValidation, "bad number %q", expr[i:j])
			}
			toks = append(toks, token{kind: tokNumber, num: n})
			i = j
		case c >= 'a' && c <= 'z':
			j := i
			for j < len(expr) && expr[j] >= 'a' && expr[j] <= 'z' {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: expr[i:j]})
			i = j
		case c == '(':
			toks = append(toks, token{kind: tokLParen})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen})
			i++
		case strings.ContainsRune("+-*/%^", rune(c)):
			toks = append(toks, token{kind: tokOp, text: string(c)})
			i++
		default:
			return nil, apperr.Newf(apperr.KindValidation, "unexpected character %q", string(c))
		}
	}
	return toks, nil
}

type exprParser struct {
	toks []token
	pos  int
}

func evaluate(expr string) (float64, error) {
	toks, err := tokenize(expr)
	if err != nil {
		return 0, err
	}
	if len(toks) == 0 {
		return 0, apperr.New(apperr.KindValidation, "empty expression")
	}
	p := &exprParser{toks: toks}
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	if p.pos != len(p.toks) {
		return 0, apperr.New(apperr.KindValidation, "trailing input in expression")
	}
	return v, nil
}

func (p *exprParser) peek() *token {
	if p.pos >= len(p.toks) {
		return nil
	}
	return &p.toks[p.pos]
}

func (p *exprParser) parseExpr() (float64, error) {
	v, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		t := p.peek()
		if t == nil || t.kind != tokOp || (t.text != "+" && t.text != "-") {
			return v, nil
		}
		p.pos++
		rhs, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		if t.text == "+" {
			v += rhs
		} else {
			v -= rhs
		}
	}
}

func (p *exprParser) parseTerm() (float64, error) {
	v, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		t := p.peek()
		if t == nil || t.kind != tokOp || (t.text != "*" && t.text != "/" && t.text != "%") {
			return v, nil
		}
		p.pos++
		rhs, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		switch t.text {
		case "*":
			v *= rhs
		case "/":
			if rhs == 0 {
				return 0, apperr.New(apperr.KindValidation, "division by zero")
			}
			v /= rhs
		case "%":
			if rhs == 0 {
				return 0, apperr.New(apperr.KindValidation, "modulo by zero")
			}
			v = math.Mod(v, rhs)
		}
	}
}

func (p *exprParser) parseUnary() (float64, error) {
	if t := p.peek(); t != nil && t.kind == tokOp && t.text == "-" {
		p.pos++
		v, err := p.parseUnary()
		return -v, err
	}
	return p.parsePower()
}

func (p *exprParser) parsePower() (float64, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return 0, err
	}
	if t := p.peek(); t != nil && t.kind == tokOp && t.text == "^" {
		p.pos++
		// Right-associative.
		exp, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return math.Pow(base, exp), nil
	}
	return base, nil
}

func (p *exprParser) parsePrimary() (float64, error) {
	t := p.peek()
	if t == nil {
		return 0, apperr.New(apperr.KindValidation, "unexpected end of expression")
	}
	switch t.kind {
	case tokNumber:
		p.pos++
		return t.num, nil
	case tokLParen:
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if t := p.peek(); t == nil || t.kind != tokRParen {
			return 0, apperr.New(apperr.KindValidation, "missing closing parenthesis")
		}
		p.pos++
		return v, nil
	case tokIdent:
		name := t.text
		p.pos++
		if t := p.peek(); t == nil || t.kind != tokLParen {
			return 0, apperr.Newf(apperr.KindValidation, "function %q needs an argument", name)
		}
		p.pos++
		arg, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if t := p.peek(); t == nil || t.kind != tokRParen {
			return 0, apperr.New(apperr.KindValidation, "missing closing parenthesis")
		}
		p.pos++
		return applyFunc(name, arg)
	default:
		return 0, apperr.New(apperr.KindValidation, "unexpected token in expression")
	}
}

func applyFunc(name string, arg float64) (float64, error) {
	switch name {
	case "sqrt":
		if arg < 0 {
			return 0, apperr.New(apperr.KindValidation, "square root of negative number")
		}
		return math.Sqrt(arg), nil
	case "cbrt":
		return math.Cbrt(arg), nil
	case "sin":
		return math.Sin(arg), nil
	case "cos":
		return math.Cos(arg), nil
	case "tan":
		return math.Tan(arg), nil
	case "log":
		return math.Log10(arg), nil
	case "ln":
		return math.Log(arg), nil
	case "abs":
		return math.Abs(arg), nil
	case "ceil":
		return math.Ceil(arg), nil
	case "floor":
		return math.Floor(arg), nil
	default:
		return 0, apperr.Newf(apperr.KindValidation, "unknown function %q", name)
	}
}
