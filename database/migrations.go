package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/camden-git/photoqueue/models"
)

// schemaMigration records an applied migration version.
type schemaMigration struct {
	Version   int    `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	AppliedAt int64  `gorm:"not null"`
}

func (schemaMigration) TableName() string {
	return "schema_migrations"
}

// legacyReviewRow is the review_queue shape written by the first ingestion
// tool, before lifecycle and per-signal score columns existed.
type legacyReviewRow struct {
	ID          uint     `gorm:"column:id;primaryKey;autoIncrement"`
	Folder      string   `gorm:"column:Folder"`
	FileName    string   `gorm:"column:File_Name"`
	Path        string   `gorm:"column:Path"`
	ThumbPath   string   `gorm:"column:Thumb_Path"`
	DateTime    *string  `gorm:"column:DateTime"`
	Camera      string   `gorm:"column:Camera"`
	LensModel   string   `gorm:"column:Lens_model"`
	Width       *int     `gorm:"column:Width"`
	Height      *int     `gorm:"column:Height"`
	Exposure    string   `gorm:"column:Exposure"`
	Aperture    string   `gorm:"column:Aperture"`
	ISO         *int     `gorm:"column:ISO"`
	FocalLength *int     `gorm:"column:Focal_length"`
	Keywords    string   `gorm:"column:Keywords"`
	Caption     string   `gorm:"column:Caption"`
	Location    string   `gorm:"column:Location"`
	Subject     string   `gorm:"column:Subject"`
	QR          *float64 `gorm:"column:QR"`
	QCStatus    *string  `gorm:"column:QC_Status"`
}

func (legacyReviewRow) TableName() string {
	return "review_queue"
}

type migration struct {
	version int
	name    string
	up      func(tx *gorm.DB) error
}

func addMissingColumns(tx *gorm.DB, columns ...string) error {
	m := tx.Migrator()
	for _, col := range columns {
		if m.HasColumn(&models.PhotoRecord{}, col) {
			continue
		}
		if err := m.AddColumn(&models.PhotoRecord{}, col); err != nil {
			return fmt.Errorf("failed to add column %s: %w", col, err)
		}
	}
	return nil
}

// migrations are applied in order and never edited once released. Databases
// created by the older scripts have no schema_migrations table, so each step
// tolerates objects that already exist.
var migrations = []migration{
	{1, "baseline review_queue", func(tx *gorm.DB) error {
		if tx.Migrator().HasTable(&legacyReviewRow{}) {
			return nil
		}
		return tx.Migrator().CreateTable(&legacyReviewRow{})
	}},
	{2, "lifecycle columns", func(tx *gorm.DB) error {
		if err := addMissingColumns(tx, "ReviewStatus", "OriginalFileName"); err != nil {
			return err
		}
		return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_review_queue_review_status ON review_queue (Review_Status)`).Error
	}},
	{3, "per-signal score columns", func(tx *gorm.DB) error {
		return addMissingColumns(tx, "NimaScore", "BlurScore", "BrightnessScore", "ContrastScore")
	}},
	{4, "normalize pending status", func(tx *gorm.DB) error {
		return tx.Exec(`UPDATE review_queue SET Review_Status = ? WHERE Review_Status IS NULL OR Review_Status = ''`,
			string(models.StatusPending)).Error
	}},
}

// Migrate applies every migration newer than the recorded schema version.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&schemaMigration{}); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	var current int
	if err := db.Model(&schemaMigration{}).Select("COALESCE(MAX(version), 0)").Scan(&current).Error; err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := m.up(tx); err != nil {
				return err
			}
			return tx.Create(&schemaMigration{Version: m.version, Name: m.name, AppliedAt: time.Now().Unix()}).Error
		})
		if err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.version, m.name, err)
		}
		log.Printf("database: applied migration %d (%s)", m.version, m.name)
	}
	return nil
}

// SchemaVersion returns the highest applied migration.
func SchemaVersion(db *gorm.DB) (int, error) {
	var v int
	err := db.Model(&schemaMigration{}).Select("COALESCE(MAX(version), 0)").Scan(&v).Error
	return v, err
}
