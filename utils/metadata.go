package utils

import (
	"fmt"
	"image"
	"log"
	"math"
	"os"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
)

// CaptureDateLayout is the DateTime format stored on queue records.
const CaptureDateLayout = "2006-01-02 15:04:05"

// CaptureMetadata is the capture information written onto a queue record at ingest.
type CaptureMetadata struct {
	DateTime    *string
	Camera      string
	LensModel   string
	Width       *int
	Height      *int
	Exposure    string
	Aperture    string
	ISO         *int
	FocalLength *int
}

// Year returns the capture year, or "" when the file carried no date.
func (m *CaptureMetadata) Year() string {
	if m == nil || m.DateTime == nil || len(*m.DateTime) < 4 {
		return ""
	}
	return (*m.DateTime)[:4]
}

// helper to safely get and convert a rational tag (like Aperture, FocalLength)
func getRational(exifData *exif.Exif, tagName exif.FieldName) *float64 {
	tag, err := exifData.Get(tagName)
	if err != nil || tag == nil {
		return nil
	}
	num, den, err := tag.Rat2(0)
	if err != nil || den == 0 {
		// sometimes stored as Int instead
		valInt, errInt := tag.Int(0)
		if errInt == nil {
			fVal := float64(valInt)
			return &fVal
		}
		return nil
	}
	val := float64(num) / float64(den)
	return &val
}

func getInt(exifData *exif.Exif, tagName exif.FieldName) *int {
	tag, err := exifData.Get(tagName)
	if err != nil || tag == nil {
		return nil
	}
	val, err := tag.Int(0)
	if err != nil {
		return nil
	}
	return &val
}

// helper to safely get a string tag, trimming quotes and null terminators
func getString(exifData *exif.Exif, tagName exif.FieldName) string {
	tag, err := exifData.Get(tagName)
	if err != nil || tag == nil {
		return ""
	}
	val, err := tag.StringVal()
	if err != nil {
		val = strings.Trim(tag.String(), `"`)
	}
	return strings.TrimSpace(strings.TrimRight(val, "\x00"))
}

// formatExposure renders ExposureTime as 1/250 or 2.5s
func formatExposure(exifData *exif.Exif) string {
	tag, err := exifData.Get(exif.ExposureTime)
	if err != nil || tag == nil {
		return ""
	}
	num, den, err := tag.Rat2(0)
	if err != nil || den == 0 {
		return ""
	}
	if num == 1 && den > 1 {
		return fmt.Sprintf("1/%d", den)
	}
	val := float64(num) / float64(den)
	if val >= 1.0 {
		return fmt.Sprintf("%.1fs", val)
	}
	return fmt.Sprintf("1/%d", int(math.Round(1/val)))
}

// cameraName joins make and model, dropping the make when the model repeats it.
func cameraName(maker, model string) string {
	switch {
	case model == "":
		return maker
	case maker == "" || strings.HasPrefix(strings.ToLower(model), strings.ToLower(maker)):
		return model
	default:
		return maker + " " + model
	}
}

// GetCaptureMetadata extracts capture metadata using goexif. A file without
// EXIF still yields its pixel dimensions.
func GetCaptureMetadata(filePath string) (*CaptureMetadata, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("metadata: failed to open file %s: %w", filePath, err)
	}
	defer file.Close()

	meta := &CaptureMetadata{}
	config, _, err := image.DecodeConfig(file)
	if err == nil {
		w, h := config.Width, config.Height
		meta.Width, meta.Height = &w, &h
	} else {
		log.Printf("metadata: Warning - Could not decode config for dimensions of %s: %v", filePath, err)
	}

	if _, err = file.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("metadata: failed to seek file %s: %w", filePath, err)
	}

	exifData, err := exif.Decode(file)
	if err != nil {
		// not fatal, the file might just lack EXIF data
		log.Printf("metadata: No EXIF data found or error decoding EXIF for %s: %v", filePath, err)
		return meta, nil
	}

	meta.Camera = cameraName(getString(exifData, exif.Make), getString(exifData, exif.Model))
	meta.LensModel = getString(exifData, exif.LensModel)
	meta.Exposure = formatExposure(exifData)
	meta.ISO = getInt(exifData, exif.ISOSpeedRatings)
	if f := getRational(exifData, exif.FNumber); f != nil {
		meta.Aperture = fmt.Sprintf("f/%.1f", *f)
	}
	if fl := getRational(exifData, exif.FocalLength); fl != nil {
		v := int(math.Round(*fl))
		meta.FocalLength = &v
	}

	if dt, err := exifData.DateTime(); err == nil {
		s := dt.Format(CaptureDateLayout)
		meta.DateTime = &s
	} else {
		log.Printf("metadata: Could not read DateTimeOriginal for %s: %v", filePath, err)
	}

	return meta, nil
}
