package answer

import (
	"regexp"
	"strconv"
	"strings"

	"notice/internal/apperr"
)

// Conversion tables per physical category, each expressed as a factor
// to the category's base unit.
var (
	lengthUnits = map[string]float64{ // meters
		"km": 1000, "m": 1, "cm": 0.01, "mm": 0.001,
		"mi": 1609.344, "ft": 0.3048, "in": 0.0254,
	}
	massUnits = map[string]float64{ // grams
		"kg": 1000, "g": 1, "lbs": 453.592, "oz": 28.3495,
	}
	volumeUnits = map[string]float64{ // liters
		"l": 1, "ml": 0.001, "gal": 3.78541, "oz": 0.0295735,
	}
	speedUnits = map[string]float64{ // meters per second
		"m/s": 1, "km/h": 1.0 / 3.6, "mph": 0.44704,
	}
	temperatureUnits = map[string]bool{"c": true, "f": true, "k": true}
)

var categories = []map[string]float64{lengthUnits, massUnits, volumeUnits, speedUnits}

var unitAliases = map[string]string{
	"miles": "mi", "mile": "mi",
	"meters": "m", "meter": "m",
	"feet": "ft", "foot": "ft",
	"inches": "in", "inch": "in",
	"pounds": "lbs", "pound": "lbs",
	"grams": "g", "gram": "g",
	"ounces": "oz", "ounce": "oz",
	"liters": "l", "liter": "l",
	"gallons": "gal", "gallon": "gal",
	"celsius": "c", "°c": "c",
	"fahrenheit": "f", "°f": "f",
	"kelvin": "k",
}

var unitQueryRe = regexp.MustCompile(
	`^\s*(-?\d+(?:\.\d+)?)\s*([a-z°/]+)\s+(?:to|in|into|as)\s+([a-z°/]+)\s*$`)

type unitConversion struct {
	amount   float64
	from, to string
}

// parseUnitQuery recognizes "amount UNIT to UNIT" with both units in a
// known category. The query must already be lowercased.
func parseUnitQuery(query string) (unitConversion, bool) {
	m := unitQueryRe.FindStringSubmatch(query)
	if m == nil {
		return unitConversion{}, false
	}
	amount, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return unitConversion{}, false
	}
	from := resolveUnit(m[2])
	to := resolveUnit(m[3])
	if !knownUnit(from) || !knownUnit(to) {
		return unitConversion{}, false
	}
	return unitConversion{amount: amount, from: from, to: to}, true
}

func resolveUnit(u string) string {
	if canonical, ok := unitAliases[u]; ok {
		return canonical
	}
	return u
}

func knownUnit(u string) bool {
	if temperatureUnits[u] {
		return true
	}
	for _, cat := range categories {
		if _, ok := cat[u]; ok {
			return true
		}
	}
	return false
}

// ConvertUnits evaluates a unit conversion query and formats the
// result to six significant digits.
func ConvertUnits(query string) (string, error) {
	conv, ok := parseUnitQuery(strings.ToLower(strings.TrimSpace(query)))
	if !ok {
		return "", apperr.Newf(apperr.KindValidation, "not a unit conversion: %s", query)
	}

	if temperatureUnits[conv.from] || temperatureUnits[conv.to] {
		if !temperatureUnits[conv.from] || !temperatureUnits[conv.to] {
			return "", apperr.Newf(apperr.KindValidation, "cannot convert %s to %s", conv.from, conv.to)
		}
		return formatSignificant(convertTemperature(conv.amount, conv.from, conv.to), 6), nil
	}

	// Ambiguous units like oz resolve to whichever category holds both
	// ends of the conversion.
	for _, cat := range categories {
		fromFactor, okFrom := cat[conv.from]
		toFactor, okTo := cat[conv.to]
		if okFrom && okTo {
			return formatSignificant(conv.amount*fromFactor/toFactor, 6), nil
		}
	}
	return "", apperr.Newf(apperr.KindValidation, "cannot convert %s to %s", conv.from, conv.to)
}

// convertTemperature pivots through Celsius.
func convertTemperature(v float64, from, to string) float64 {
	var c float64
	switch from {
	case "c":
		c = v
	case "f":
		c = (v - 32) * 5 / 9
	case "k":
		c = v - 273.15
	}
	switch to {
	case "c":
		return c
	case "f":
		return c*9/5 + 32
	case "k":
		return c + 273.15
	}
	return c
}
