package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_Boundaries(t *testing.T) {
	cases := []struct {
		qr   float64
		want string
	}{
		{7.3, StatusTop},
		{9.99, StatusTop},
		{7.29, StatusGood},
		{6.5, StatusGood},
		{6.49, StatusAverage},
		{5.5, StatusAverage},
		{5.49, StatusLow},
		{0, StatusLow},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifyValue(tc.qr), "qr=%v", tc.qr)
		qr := tc.qr
		assert.Equal(t, tc.want, Classify(&qr), "qr=%v", tc.qr)
	}
}

func TestClassify_MissingOrInvalid(t *testing.T) {
	assert.Equal(t, StatusNA, Classify(nil))
	assert.Equal(t, StatusNA, ClassifyValue(math.NaN()))
	assert.Equal(t, StatusNA, ClassifyText(""))
	assert.Equal(t, StatusNA, ClassifyText("  "))
	assert.Equal(t, StatusNA, ClassifyText("abc"))
	assert.Equal(t, StatusTop, ClassifyText("7.3"))
	assert.Equal(t, StatusGood, ClassifyText(" 6.5 "))
}

func TestScore_EndToEndExample(t *testing.T) {
	s := Score(Metrics{Aesthetic: 8.0, Blur: 300, Brightness: 140, Contrast: 50})

	assert.Equal(t, 8.0, s.Nima)
	assert.Equal(t, 10.0, s.Blur)
	assert.Equal(t, 9.06, s.Brightness)
	assert.Equal(t, 7.81, s.Contrast)
	assert.Equal(t, 8.49, s.QR)
	assert.Equal(t, StatusTop, s.QCStatus)
}

func TestScore_QRUsesUnroundedComponents(t *testing.T) {
	// rounding the aesthetic score to 5.50 first would give 7.30 (Top)
	s := Score(Metrics{Aesthetic: 5.4951, Blur: 200, Brightness: 128.512, Contrast: 64})

	assert.Equal(t, 5.5, s.Nima)
	assert.Equal(t, 9.96, s.Brightness)
	assert.Equal(t, 7.29, s.QR)
	assert.Equal(t, StatusGood, s.QCStatus)
}

func TestScore_Clamps(t *testing.T) {
	s := Score(Metrics{Aesthetic: 5, Blur: 0, Brightness: 0, Contrast: 1000})
	assert.Equal(t, 0.0, s.Blur)
	assert.Equal(t, 0.0, s.Brightness)
	assert.Equal(t, 10.0, s.Contrast)

	s = Score(Metrics{Aesthetic: 5, Blur: -5, Brightness: 255, Contrast: -1})
	assert.Equal(t, 0.0, s.Blur)
	assert.Equal(t, 0.08, s.Brightness)
	assert.Equal(t, 0.0, s.Contrast)

	s = Score(Metrics{Brightness: 128})
	assert.Equal(t, 10.0, s.Brightness)
}

func TestScore_Deterministic(t *testing.T) {
	m := Metrics{Aesthetic: 5.4321, Blur: 123.456, Brightness: 99.9, Contrast: 33.3}
	first := Score(m)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Score(m))
	}
	assert.Equal(t, ClassifyValue(first.QR), first.QCStatus)
}

func TestComposite_MatchesWeights(t *testing.T) {
	assert.Equal(t, 10.0, Composite(10, 10, 10, 10))
	assert.Equal(t, 6.0, Composite(10, 0, 0, 0))
	assert.Equal(t, 2.0, Composite(0, 10, 0, 0))
}
