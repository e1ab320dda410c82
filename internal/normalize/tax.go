package normalize

import (
	"strconv"
	"strings"
)

// NormalizeTaxRate turns a GST value given either as a fraction (0.18) or as a
// percentage (18, "18%") into a fraction. Anything but digits and '.' is stripped
// before parsing; unparseable input yields 0.
//
// Values above 1 are read as percentages. A real rate above 100% cannot occur for GST,
// so the single threshold is enough.
func NormalizeTaxRate(raw any) float64 {
	var rate float64
	switch raw.(type) {
	case string, []byte:
		rate = parseTaxText(toString(raw))
	default:
		f, ok := parseNumber(raw)
		if !ok {
			return 0
		}
		rate = f
	}

	if rate > 1 {
		return rate / 100
	}
	return rate
}

func parseTaxText(s string) float64 {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	f, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return f
}

// LandedCost returns the normalized rate and the tax-inclusive unit cost
func LandedCost(unitCost float64, rawTaxRate any) (rate, landed float64) {
	rate = NormalizeTaxRate(rawTaxRate)
	return rate, unitCost * (1 + rate)
}
