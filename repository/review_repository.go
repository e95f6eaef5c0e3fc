package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/camden-git/photoqueue/models"
	"github.com/camden-git/photoqueue/scoring"
)

var (
	// ErrStatusChanged is returned by UpdateFieldsWhereStatus when the record
	// exists but is no longer in one of the expected states.
	ErrStatusChanged = errors.New("record status changed")
	// ErrUnknownField is returned when a field map names a column the queue does not have.
	ErrUnknownField = errors.New("unknown review queue field")
	// ErrQCStatusWithoutQR is returned when QC_Status is written on its own.
	ErrQCStatusWithoutQR = errors.New("QC_Status can only be written together with QR")
	// ErrIncompleteScores is returned when an update would leave QR set while
	// any of the four sub-scores is NULL, or clear a sub-score under a QR.
	ErrIncompleteScores = errors.New("QR requires all four sub-scores")
)

const (
	colQR           = "QR"
	colQCStatus     = "QC_Status"
	colReviewStatus = "Review_Status"
)

var subScoreColumns = []string{"nima_score", "blur_score", "brightness_score", "contrast_score"}

// writable columns; id is assigned by the store and never updated
var writableColumns = map[string]bool{
	"Original_File_Name": true, "Path": true, "Thumb_Path": true,
	"DateTime": true, "Camera": true, "Lens_model": true, "Width": true, "Height": true,
	"Exposure": true, "Aperture": true, "ISO": true, "Focal_length": true,
	"Folder": true, "File_Name": true, "Keywords": true, "Caption": true, "Location": true, "Subject": true,
	"nima_score": true, "blur_score": true, "brightness_score": true, "contrast_score": true,
	colQR: true, colQCStatus: true, colReviewStatus: true,
}

// ReviewRepository handles database operations for the review queue
type ReviewRepository struct {
	DB *gorm.DB
}

// NewReviewRepository creates a new instance of ReviewRepository
func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{DB: db}
}

var _ ReviewQueueStore = (*ReviewRepository)(nil)

// Create inserts a new Pending record and assigns its id.
func (r *ReviewRepository) Create(record *models.PhotoRecord) error {
	record.ID = 0
	record.ReviewStatus = models.StatusPending.Ptr()
	if err := r.DB.Create(record).Error; err != nil {
		return fmt.Errorf("failed to create queue record %s: %w", record.FileName, err)
	}
	return nil
}

// GetByID retrieves a record by its id
func (r *ReviewRepository) GetByID(id uint) (*models.PhotoRecord, error) {
	var rec models.PhotoRecord
	err := r.DB.First(&rec, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get queue record %d: %w", id, err)
	}
	return &rec, nil
}

// FindPendingScoring returns records the scoring stage has not completed.
func (r *ReviewRepository) FindPendingScoring() ([]models.PhotoRecord, error) {
	var recs []models.PhotoRecord
	err := r.DB.Where("QR IS NULL OR QC_Status IS NULL").Order("id ASC").Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find records pending scoring: %w", err)
	}
	return recs, nil
}

// FindForReview returns every record not yet uploaded, in id order.
func (r *ReviewRepository) FindForReview() ([]models.PhotoRecord, error) {
	var recs []models.PhotoRecord
	err := r.DB.Where("Review_Status IS NULL OR Review_Status <> ?", string(models.StatusUploaded)).
		Order("id ASC").Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find records for review: %w", err)
	}
	return recs, nil
}

// FindApproved returns records with Review_Status = Approved.
func (r *ReviewRepository) FindApproved() ([]models.PhotoRecord, error) {
	return r.FindByStatuses(models.StatusApproved)
}

// FindByStatuses returns records in any of the given states, in id order.
// Pending also matches a NULL or empty Review_Status.
func (r *ReviewRepository) FindByStatuses(statuses ...models.ReviewStatus) ([]models.PhotoRecord, error) {
	var recs []models.PhotoRecord
	if len(statuses) == 0 {
		return recs, nil
	}
	err := r.DB.Where(statusCondition(r.DB, statuses)).Order("id ASC").Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find records by status %v: %w", statuses, err)
	}
	return recs, nil
}

// FindByNaturalKey returns every record curated as folder/fileName, in id order.
func (r *ReviewRepository) FindByNaturalKey(folder, fileName string) ([]models.PhotoRecord, error) {
	var recs []models.PhotoRecord
	err := r.DB.Where("Folder = ? AND File_Name = ?", folder, fileName).Order("id ASC").Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find records named %s/%s: %w", folder, fileName, err)
	}
	return recs, nil
}

func statusCondition(db *gorm.DB, statuses []models.ReviewStatus) *gorm.DB {
	names := make([]string, 0, len(statuses))
	pending := false
	for _, s := range statuses {
		names = append(names, string(s))
		if s == models.StatusPending {
			pending = true
		}
	}
	cond := db.Session(&gorm.Session{NewDB: true}).Where("Review_Status IN ?", names)
	if pending {
		cond = cond.Or("Review_Status IS NULL").Or("Review_Status = ''")
	}
	return cond
}

// UpdateFields performs a partial update of the named columns. Writing QR
// always rewrites QC_Status from it.
func (r *ReviewRepository) UpdateFields(id uint, fields map[string]interface{}) error {
	updates, err := prepareUpdates(fields)
	if err != nil {
		return fmt.Errorf("record %d: %w", id, err)
	}
	if len(updates) == 0 {
		return nil
	}
	if err := r.checkScores(id, updates); err != nil {
		return err
	}

	result := r.DB.Model(&models.PhotoRecord{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update queue record %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("queue record %d: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

// UpdateFieldsWhereStatus applies the update only while the record is still
// in one of the expected states, so a stage retried after a restart cannot
// act on a record another run already moved on.
func (r *ReviewRepository) UpdateFieldsWhereStatus(id uint, expected []models.ReviewStatus, fields map[string]interface{}) error {
	updates, err := prepareUpdates(fields)
	if err != nil {
		return fmt.Errorf("record %d: %w", id, err)
	}
	if len(updates) == 0 {
		return nil
	}
	if err := r.checkScores(id, updates); err != nil {
		return err
	}

	result := r.DB.Model(&models.PhotoRecord{}).
		Where("id = ?", id).
		Where(statusCondition(r.DB, expected)).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update queue record %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		r.DB.Model(&models.PhotoRecord{}).Where("id = ?", id).Count(&count)
		if count == 0 {
			return fmt.Errorf("queue record %d: %w", id, gorm.ErrRecordNotFound)
		}
		return fmt.Errorf("queue record %d not in %v: %w", id, expected, ErrStatusChanged)
	}
	return nil
}

// SaveScores writes the four sub-scores, QR and QC_Status in one statement.
func (r *ReviewRepository) SaveScores(id uint, s scoring.Scores) error {
	return r.UpdateFields(id, map[string]interface{}{
		"nima_score":       s.Nima,
		"blur_score":       s.Blur,
		"brightness_score": s.Brightness,
		"contrast_score":   s.Contrast,
		colQR:              s.QR,
	})
}

// CountByStatus returns the number of records per lifecycle state.
func (r *ReviewRepository) CountByStatus() (map[models.ReviewStatus]int64, error) {
	type row struct {
		Status *string
		N      int64
	}
	var rows []row
	err := r.DB.Model(&models.PhotoRecord{}).
		Select("Review_Status AS status, COUNT(*) AS n").
		Group("Review_Status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count records by status: %w", err)
	}
	counts := make(map[models.ReviewStatus]int64)
	for _, rw := range rows {
		counts[models.PhotoRecord{ReviewStatus: rw.Status}.Status()] += rw.N
	}
	return counts, nil
}

// Delete removes a record by id.
func (r *ReviewRepository) Delete(id uint) error {
	result := r.DB.Delete(&models.PhotoRecord{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete queue record %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("queue record %d: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

// DeleteByStatus removes every record in the given state.
func (r *ReviewRepository) DeleteByStatus(status models.ReviewStatus) (int64, error) {
	result := r.DB.Where(statusCondition(r.DB, []models.ReviewStatus{status})).Delete(&models.PhotoRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete %s records: %w", status, result.Error)
	}
	return result.RowsAffected, nil
}

// DeleteAll empties the queue.
func (r *ReviewRepository) DeleteAll() (int64, error) {
	result := r.DB.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.PhotoRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to clear review queue: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// prepareUpdates validates column names and derives QC_Status from QR.
func prepareUpdates(fields map[string]interface{}) (map[string]interface{}, error) {
	updates := make(map[string]interface{}, len(fields)+1)
	for col, v := range fields {
		if !writableColumns[col] {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, col)
		}
		updates[col] = v
	}

	qr, hasQR := updates[colQR]
	if _, hasQC := updates[colQCStatus]; hasQC && !hasQR {
		return nil, ErrQCStatusWithoutQR
	}
	if hasQR {
		value, err := qrValue(qr)
		if err != nil {
			return nil, err
		}
		if value == nil {
			updates[colQR] = nil
			updates[colQCStatus] = nil
		} else {
			rounded := scoring.Round2(*value)
			updates[colQR] = rounded
			updates[colQCStatus] = scoring.ClassifyValue(rounded)
		}
	}
	return updates, nil
}

// checkScores keeps QR present only while all four sub-scores are. Columns
// the update does not touch are read from the stored row.
func (r *ReviewRepository) checkScores(id uint, updates map[string]interface{}) error {
	cols := append([]string{colQR}, subScoreColumns...)
	touched := false
	var stale []string
	for _, col := range cols {
		if _, ok := updates[col]; ok {
			touched = true
		} else {
			stale = append(stale, col)
		}
	}
	if !touched {
		return nil
	}

	final := make(map[string]interface{}, len(cols))
	for col, v := range updates {
		final[col] = v
	}
	if len(stale) > 0 {
		stored := map[string]interface{}{}
		result := r.DB.Model(&models.PhotoRecord{}).Select(stale).Where("id = ?", id).Take(&stored)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return fmt.Errorf("queue record %d: %w", id, gorm.ErrRecordNotFound)
			}
			return fmt.Errorf("failed to read scores of record %d: %w", id, result.Error)
		}
		for _, col := range stale {
			final[col] = stored[col]
		}
	}

	if isNilValue(final[colQR]) {
		return nil
	}
	for _, col := range subScoreColumns {
		if isNilValue(final[col]) {
			return fmt.Errorf("record %d: %s is NULL: %w", id, col, ErrIncompleteScores)
		}
	}
	return nil
}

func isNilValue(v interface{}) bool {
	if v == nil {
		return true
	}
	if p, ok := v.(*float64); ok {
		return p == nil
	}
	return false
}

func qrValue(v interface{}) (*float64, error) {
	switch q := v.(type) {
	case nil:
		return nil, nil
	case float64:
		return &q, nil
	case *float64:
		return q, nil
	case float32:
		f := float64(q)
		return &f, nil
	case int:
		f := float64(q)
		return &f, nil
	default:
		return nil, fmt.Errorf("QR must be numeric, got %T", v)
	}
}
