package scoring

import (
	"math"
	"strconv"
	"strings"
)

const (
	StatusTop     = "Top"
	StatusGood    = "Good"
	StatusAverage = "Average"
	StatusLow     = "Low"
	StatusNA      = "NA"
)

// lower bounds are inclusive: exactly 7.3 is Top
const (
	topThreshold     = 7.3
	goodThreshold    = 6.5
	averageThreshold = 5.5
)

// Classify maps an optional QR to its band. A nil or NaN QR is "NA".
func Classify(qr *float64) string {
	if qr == nil {
		return StatusNA
	}
	return ClassifyValue(*qr)
}

// ClassifyValue maps a QR to its band.
func ClassifyValue(qr float64) string {
	switch {
	case math.IsNaN(qr) || math.IsInf(qr, 0):
		return StatusNA
	case qr >= topThreshold:
		return StatusTop
	case qr >= goodThreshold:
		return StatusGood
	case qr >= averageThreshold:
		return StatusAverage
	default:
		return StatusLow
	}
}

// ClassifyText classifies a QR that arrives as free text (form fields,
// legacy rows). Empty or non-numeric input is "NA".
func ClassifyText(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return StatusNA
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return StatusNA
	}
	return ClassifyValue(v)
}
