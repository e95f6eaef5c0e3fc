// Package scoring turns raw image metrics into the composite QR score and its
// quality band.
package scoring

import "math"

// Weights and normalisation divisors are fixed: aesthetic quality counts more
// than sharpness, which counts more than exposure and contrast.
const (
	AestheticWeight  = 0.6
	BlurWeight       = 0.2
	BrightnessWeight = 0.1
	ContrastWeight   = 0.1

	blurDivisor        = 200.0
	brightnessMidpoint = 128.0
	contrastDivisor    = 64.0
)

// Metrics are the raw signals measured from one image.
type Metrics struct {
	Aesthetic  float64 // learned model score, roughly 0-10
	Blur       float64 // variance of the Laplacian
	Brightness float64 // mean grey level, 0-255
	Contrast   float64 // standard deviation of grey level
}

// Scores are the persisted values, each rounded to two decimals.
type Scores struct {
	Nima       float64
	Blur       float64
	Brightness float64
	Contrast   float64
	QR         float64
	QCStatus   string
}

// Score normalises each metric to 0-10 and combines them. QR is the rounded
// weighted sum of the unrounded components; rounding the components is for
// storage only.
func Score(m Metrics) Scores {
	blur := clamp(m.Blur/blurDivisor, 0, 1) * 10
	brightness := clamp(1-math.Abs(m.Brightness-brightnessMidpoint)/brightnessMidpoint, 0, 1) * 10
	contrast := clamp(m.Contrast/contrastDivisor, 0, 1) * 10

	s := Scores{
		Nima:       Round2(m.Aesthetic),
		Blur:       Round2(blur),
		Brightness: Round2(brightness),
		Contrast:   Round2(contrast),
		QR:         Composite(m.Aesthetic, blur, brightness, contrast),
	}
	s.QCStatus = ClassifyValue(s.QR)
	return s
}

// Composite applies the fixed weights to normalised component scores and
// rounds the result.
func Composite(nima, blur, brightness, contrast float64) float64 {
	return Round2(nima*AestheticWeight + blur*BlurWeight + brightness*BrightnessWeight + contrast*ContrastWeight)
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
