package answer

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"strconv"

	"notice/internal/apperr"
)

// RateSource provides a live FX rate between two ISO currency codes.
type RateSource interface {
	Rate(ctx context.Context, from, to string) (float64, error)
}

// FrankfurterClient fetches rates from the Frankfurter API.
type FrankfurterClient struct {
	client  *http.Client
	baseURL string
}

func NewFrankfurterClient(client *http.Client) *FrankfurterClient {
	return &FrankfurterClient{
		client:  client,
		baseURL: "https://api.frankfurter.dev",
	}
}

func (c *FrankfurterClient) Rate(ctx context.Context, from, to string) (float64, error) {
	endpoint := c.baseURL + "/v1/latest?from=" + url.QueryEscape(from) + "&to=" + url.QueryEscape(to)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindCrawler, "build fx request", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindCrawler, "fx rate fetch", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, apperr.Newf(apperr.KindCrawler, "fx rate status %d", resp.StatusCode)
	}

	var body struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, apperr.Wrap(apperr.KindCrawler, "decode fx response", err)
	}

	rate, ok := body.Rates[to]
	if !ok {
		return 0, apperr.Newf(apperr.KindValidation, "unknown currency %s", to)
	}
	return rate, nil
}

var currencyParseRe = regexp.MustCompile(
	`^\s*(\d+(?:\.\d+)?)\s*([A-Z]{3})\s+(?:to|in|into|as)\s+([A-Z]{3})\s*$`)

type currencyConversion struct {
	amount   float64
	from, to string
}

func parseCurrencyQuery(query string) (currencyConversion, bool) {
	m := currencyParseRe.FindStringSubmatch(query)
	if m == nil {
		return currencyConversion{}, false
	}
	amount, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return currencyConversion{}, false
	}
	return currencyConversion{amount: amount, from: m[2], to: m[3]}, true
}

// ConvertCurrency evaluates "amount CCY to CCY" against the rate
// source, formatting to four significant digits.
func ConvertCurrency(ctx context.Context, rates RateSource, query string) (string, error) {
	conv, ok := parseCurrencyQuery(query)
	if !ok {
		return "", apperr.Newf(apperr.KindValidation, "not a currency conversion: %s", query)
	}
	rate, err := rates.Rate(ctx, conv.from, conv.to)
	if err != nil {
		return "", err
	}
	return formatSignificant(conv.amount*rate, 4), nil
}

// formatSignificant rounds to the given number of significant digits
// and renders without an exponent.
func formatSignificant(v float64, digits int) string {
	if v == 0 {
		return "0"
	}
	magnitude := math.Ceil(math.Log10(math.Abs(v)))
	shift := math.Pow(10, float64(digits)-magnitude)
	rounded := math.Round(v*shift) / shift
	return strconv.FormatFloat(rounded, 'f', -1, 64)
}
