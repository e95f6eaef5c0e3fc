package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/camden-git/photoqueue/models"
)

const mirrorTable = "mirror_images"

var mirrorColumns = []string{
	"queue_id", "Folder", "File_Name", "Path", "Thumb_Path", "DateTime", "Camera", "Lens_model",
	"Width", "Height", "Exposure", "Aperture", "ISO", "Focal_length",
	"Keywords", "Caption", "Location", "QR", "QC_Status", "Original_File_Name", "mirrored_at",
}

// MirrorStore is the local durable copy of what was sent to the remote catalog.
type MirrorStore struct {
	DB Querier
}

func NewMirrorStore(db Querier) *MirrorStore {
	return &MirrorStore{DB: db}
}

// Upsert inserts the row or replaces the one with the same Folder+File_Name.
func (m *MirrorStore) Upsert(row models.CatalogRow) error {
	queryBuilder := psql.Insert(mirrorTable).
		Columns(mirrorColumns...).
		Values(
			row.QueueID, row.Folder, row.FileName, row.Path, row.ThumbPath, row.DateTime, row.Camera, row.LensModel,
			row.Width, row.Height, row.Exposure, row.Aperture, row.ISO, row.FocalLength,
			row.Keywords, row.Caption, row.Location, row.QR, row.QCStatus, row.OriginalFileName, time.Now().Unix(),
		).
		Suffix("ON CONFLICT(Folder, File_Name) DO UPDATE SET").
		Suffix("queue_id = excluded.queue_id, Path = excluded.Path, Thumb_Path = excluded.Thumb_Path,").
		Suffix("DateTime = excluded.DateTime, Camera = excluded.Camera, Lens_model = excluded.Lens_model,").
		Suffix("Width = excluded.Width, Height = excluded.Height, Exposure = excluded.Exposure,").
		Suffix("Aperture = excluded.Aperture, ISO = excluded.ISO, Focal_length = excluded.Focal_length,").
		Suffix("Keywords = excluded.Keywords, Caption = excluded.Caption, Location = excluded.Location,").
		Suffix("QR = excluded.QR, QC_Status = excluded.QC_Status,").
		Suffix("Original_File_Name = excluded.Original_File_Name, mirrored_at = excluded.mirrored_at")

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build SQL query for mirror upsert: %w", err)
	}

	_, err = m.DB.Exec(sqlStr, args...)
	if err != nil {
		return fmt.Errorf("failed to mirror %s/%s: %w", row.Folder, row.FileName, err)
	}
	return nil
}

// Get returns the mirrored row for a natural key, or sql.ErrNoRows.
func (m *MirrorStore) Get(folder, fileName string) (models.CatalogRow, error) {
	var row models.CatalogRow
	queryBuilder := psql.Select(
		"id", "queue_id", "Folder", "File_Name", "Path", "Thumb_Path", "DateTime", "Camera", "Lens_model",
		"Width", "Height", "Exposure", "Aperture", "ISO", "Focal_length",
		"Keywords", "Caption", "Location", "QR", "QC_Status", "Original_File_Name",
	).From(mirrorTable).
		Where(sq.Eq{"Folder": folder, "File_Name": fileName}).
		Limit(1)

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return row, fmt.Errorf("failed to build SQL query for mirror get: %w", err)
	}

	var path, thumb, camera, lens, exposure, aperture, keywords, caption, location, original sql.NullString
	err = m.DB.QueryRow(sqlStr, args...).Scan(
		&row.ID, &row.QueueID, &row.Folder, &row.FileName, &path, &thumb, &row.DateTime, &camera, &lens,
		&row.Width, &row.Height, &exposure, &aperture, &row.ISO, &row.FocalLength,
		&keywords, &caption, &location, &row.QR, &row.QCStatus, &original,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return row, sql.ErrNoRows
		}
		return row, fmt.Errorf("failed to query mirror row %s/%s: %w", folder, fileName, err)
	}
	row.Path, row.ThumbPath = path.String, thumb.String
	row.Camera, row.LensModel = camera.String, lens.String
	row.Exposure, row.Aperture = exposure.String, aperture.String
	row.Keywords, row.Caption, row.Location = keywords.String, caption.String, location.String
	row.OriginalFileName = original.String
	return row, nil
}

// Count returns the number of mirrored rows.
func (m *MirrorStore) Count() (int64, error) {
	sqlStr, args, err := psql.Select("COUNT(*)").From(mirrorTable).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build SQL query for mirror count: %w", err)
	}
	var n int64
	if err := m.DB.QueryRow(sqlStr, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count mirror rows: %w", err)
	}
	return n, nil
}
