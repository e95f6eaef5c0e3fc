// Package vision measures image quality signals with OpenCV.
package vision

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"

	"github.com/camden-git/photoqueue/scoring"
)

// ErrUndecodable is returned when OpenCV cannot read an image file.
var ErrUndecodable = errors.New("image could not be decoded")

// Classical holds the three pixel statistics measured from the grey image.
type Classical struct {
	Blur       float64 // variance of the Laplacian
	Brightness float64 // mean grey level
	Contrast   float64 // grey level standard deviation
}

// AestheticScorer is the learned model, treated as a black box.
type AestheticScorer interface {
	Score(img gocv.Mat) (float64, error)
}

// ComputeClassical converts img to grey and measures blur, brightness and contrast.
func ComputeClassical(img gocv.Mat) (Classical, error) {
	if img.Empty() {
		return Classical{}, ErrUndecodable
	}

	gray := gocv.NewMat()
	defer gray.Close()
	switch img.Channels() {
	case 1:
		img.CopyTo(&gray)
	case 4:
		gocv.CvtColor(img, &gray, gocv.ColorBGRAToGray)
	default:
		gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	}

	mean := gocv.NewMat()
	defer mean.Close()
	stddev := gocv.NewMat()
	defer stddev.Close()
	gocv.MeanStdDev(gray, &mean, &stddev)
	brightness := mean.GetDoubleAt(0, 0)
	contrast := stddev.GetDoubleAt(0, 0)

	lap := gocv.NewMat()
	defer lap.Close()
	gocv.Laplacian(gray, &lap, gocv.MatTypeCV64F, 1, 1, 0, gocv.BorderDefault)

	lapMean := gocv.NewMat()
	defer lapMean.Close()
	lapStd := gocv.NewMat()
	defer lapStd.Close()
	gocv.MeanStdDev(lap, &lapMean, &lapStd)
	sd := lapStd.GetDoubleAt(0, 0)

	return Classical{Blur: sd * sd, Brightness: brightness, Contrast: contrast}, nil
}

// Extractor reads an image file and produces all four raw metrics.
type Extractor struct {
	Aesthetic AestheticScorer
}

func NewExtractor(aesthetic AestheticScorer) *Extractor {
	return &Extractor{Aesthetic: aesthetic}
}

// Measure decodes path and returns its metrics. Undecodable files wrap
// ErrUndecodable so batch callers can skip them.
func (e *Extractor) Measure(path string) (scoring.Metrics, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		img.Close()
		return scoring.Metrics{}, fmt.Errorf("%s: %w", path, ErrUndecodable)
	}
	defer img.Close()

	c, err := ComputeClassical(img)
	if err != nil {
		return scoring.Metrics{}, fmt.Errorf("%s: %w", path, err)
	}

	var aesthetic float64
	if e.Aesthetic != nil {
		aesthetic, err = e.Aesthetic.Score(img)
		if err != nil {
			return scoring.Metrics{}, fmt.Errorf("aesthetic model failed on %s: %w", path, err)
		}
	}

	return scoring.Metrics{
		Aesthetic:  aesthetic,
		Blur:       c.Blur,
		Brightness: c.Brightness,
		Contrast:   c.Contrast,
	}, nil
}
