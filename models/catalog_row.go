package models

// CatalogRow is the published field set sent to the remote catalog and kept
// in the local mirror. Scoring sub-scores, Subject and Review_Status are local
// bookkeeping and are not replicated.
type CatalogRow struct {
	ID      uint `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	QueueID uint `gorm:"column:queue_id;index" json:"queue_id"`

	Folder           string   `gorm:"column:Folder;size:191;not null;uniqueIndex:idx_catalog_natural_key" json:"folder"`
	FileName         string   `gorm:"column:File_Name;size:191;not null;uniqueIndex:idx_catalog_natural_key" json:"file_name"`
	Path             string   `gorm:"column:Path" json:"path"`
	ThumbPath        string   `gorm:"column:Thumb_Path" json:"thumb_path"`
	DateTime         *string  `gorm:"column:DateTime" json:"date_time,omitempty"`
	Camera           string   `gorm:"column:Camera" json:"camera"`
	LensModel        string   `gorm:"column:Lens_model" json:"lens_model"`
	Width            *int     `gorm:"column:Width" json:"width,omitempty"`
	Height           *int     `gorm:"column:Height" json:"height,omitempty"`
	Exposure         string   `gorm:"column:Exposure" json:"exposure"`
	Aperture         string   `gorm:"column:Aperture" json:"aperture"`
	ISO              *int     `gorm:"column:ISO" json:"iso,omitempty"`
	FocalLength      *int     `gorm:"column:Focal_length" json:"focal_length,omitempty"`
	Keywords         string   `gorm:"column:Keywords" json:"keywords"`
	Caption          string   `gorm:"column:Caption" json:"caption"`
	Location         string   `gorm:"column:Location" json:"location"`
	QR               *float64 `gorm:"column:QR" json:"qr,omitempty"`
	QCStatus         *string  `gorm:"column:QC_Status" json:"qc_status,omitempty"`
	OriginalFileName string   `gorm:"column:Original_File_Name" json:"original_file_name"`
}

// NewCatalogRow copies the published fields of a queue record.
func NewCatalogRow(r PhotoRecord) CatalogRow {
	return CatalogRow{
		QueueID:          r.ID,
		Folder:           r.Folder,
		FileName:         r.FileName,
		Path:             r.Path,
		ThumbPath:        r.ThumbPath,
		DateTime:         r.DateTime,
		Camera:           r.Camera,
		LensModel:        r.LensModel,
		Width:            r.Width,
		Height:           r.Height,
		Exposure:         r.Exposure,
		Aperture:         r.Aperture,
		ISO:              r.ISO,
		FocalLength:      r.FocalLength,
		Keywords:         r.Keywords,
		Caption:          r.Caption,
		Location:         r.Location,
		QR:               r.QR,
		QCStatus:         r.QCStatus,
		OriginalFileName: r.OriginalFileName,
	}
}
