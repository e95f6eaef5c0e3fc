package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingCaptureDate is returned when a record has no usable DateTime to
// derive its year bucket from.
var ErrMissingCaptureDate = errors.New("record has no capture DateTime")

// PhotoRecord is one row of the review queue. Column names follow the
// review_queue table the operator tools have always used.
type PhotoRecord struct {
	ID uint `gorm:"column:id;primaryKey;autoIncrement" json:"id"`

	OriginalFileName string `gorm:"column:Original_File_Name" json:"original_file_name"`
	Path             string `gorm:"column:Path" json:"path"`             // local working file until published, public URL after
	ThumbPath        string `gorm:"column:Thumb_Path" json:"thumb_path"` // same duality as Path

	// capture metadata, written once at ingest
	DateTime    *string `gorm:"column:DateTime" json:"date_time,omitempty"`
	Camera      string  `gorm:"column:Camera" json:"camera"`
	LensModel   string  `gorm:"column:Lens_model" json:"lens_model"`
	Width       *int    `gorm:"column:Width" json:"width,omitempty"`
	Height      *int    `gorm:"column:Height" json:"height,omitempty"`
	Exposure    string  `gorm:"column:Exposure" json:"exposure"`
	Aperture    string  `gorm:"column:Aperture" json:"aperture"`
	ISO         *int    `gorm:"column:ISO" json:"iso,omitempty"`
	FocalLength *int    `gorm:"column:Focal_length" json:"focal_length,omitempty"`

	// curated during review
	Folder   string `gorm:"column:Folder" json:"folder"`
	FileName string `gorm:"column:File_Name" json:"file_name"`
	Keywords string `gorm:"column:Keywords" json:"keywords"`
	Caption  string `gorm:"column:Caption" json:"caption"`
	Location string `gorm:"column:Location" json:"location"`
	Subject  string `gorm:"column:Subject" json:"subject"`

	// scoring, nil until the scoring stage has run
	NimaScore       *float64 `gorm:"column:nima_score" json:"nima_score,omitempty"`
	BlurScore       *float64 `gorm:"column:blur_score" json:"blur_score,omitempty"`
	BrightnessScore *float64 `gorm:"column:brightness_score" json:"brightness_score,omitempty"`
	ContrastScore   *float64 `gorm:"column:contrast_score" json:"contrast_score,omitempty"`
	QR              *float64 `gorm:"column:QR" json:"qr,omitempty"`
	QCStatus        *string  `gorm:"column:QC_Status" json:"qc_status,omitempty"`

	ReviewStatus *string `gorm:"column:Review_Status;index" json:"review_status,omitempty"`
}

// TableName explicitly sets the table name for GORM.
func (PhotoRecord) TableName() string {
	return "review_queue"
}

// Status returns the lifecycle state, treating a NULL or empty column as Pending.
func (r PhotoRecord) Status() ReviewStatus {
	if r.ReviewStatus == nil || *r.ReviewStatus == "" {
		return StatusPending
	}
	return ReviewStatus(*r.ReviewStatus)
}

// CaptureYear returns the first four characters of DateTime. Records without
// a DateTime fail instead of landing in a wrong year directory.
func (r PhotoRecord) CaptureYear() (string, error) {
	if r.DateTime == nil {
		return "", fmt.Errorf("record %d: %w", r.ID, ErrMissingCaptureDate)
	}
	dt := strings.TrimSpace(*r.DateTime)
	if len(dt) < 4 {
		return "", fmt.Errorf("record %d: %w (got %q)", r.ID, ErrMissingCaptureDate, dt)
	}
	year := dt[:4]
	for _, c := range year {
		if c < '0' || c > '9' {
			return "", fmt.Errorf("record %d: %w (got %q)", r.ID, ErrMissingCaptureDate, dt)
		}
	}
	return year, nil
}

// IsScored reports whether the scoring stage has completed for this record.
func (r PhotoRecord) IsScored() bool {
	return r.QR != nil && r.QCStatus != nil
}
