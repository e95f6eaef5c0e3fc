// Package remote holds the replication targets of the upload stage: the
// remote relational catalog and the remote file stores.
package remote

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/camden-git/photoqueue/models"
)

// Catalog is the public image table on the remote MySQL server.
type Catalog struct {
	DB    *gorm.DB
	Table string
}

// OpenCatalog connects to MySQL. The DSN is the go-sql-driver form, e.g.
// user:pass@tcp(host:3306)/gallery?parseTime=true&charset=utf8mb4.
func OpenCatalog(dsn, table string) (*Catalog, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to remote catalog: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB for remote catalog: %w", err)
	}
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	log.Printf("remote.catalog: connected, table %s", table)
	return NewCatalog(db, table), nil
}

// NewCatalog wraps an existing connection.
func NewCatalog(db *gorm.DB, table string) *Catalog {
	return &Catalog{DB: db, Table: table}
}

// EnsureSchema creates the table and its natural key index if missing.
func (c *Catalog) EnsureSchema() error {
	if err := c.DB.Table(c.Table).AutoMigrate(&models.CatalogRow{}); err != nil {
		return fmt.Errorf("failed to migrate remote catalog table %s: %w", c.Table, err)
	}
	return nil
}

// Upsert inserts the row or overwrites the one with the same Folder and
// File_Name, so a batch retried after a failed transfer does not duplicate it.
func (c *Catalog) Upsert(row models.CatalogRow) error {
	row.ID = 0
	err := c.DB.Table(c.Table).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "Folder"}, {Name: "File_Name"}},
			UpdateAll: true,
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert %s/%s into %s: %w", row.Folder, row.FileName, c.Table, err)
	}
	return nil
}

// Count returns the number of rows for a natural key.
func (c *Catalog) Count(folder, fileName string) (int64, error) {
	var n int64
	err := c.DB.Table(c.Table).Where("Folder = ? AND File_Name = ?", folder, fileName).Count(&n).Error
	return n, err
}

func (c *Catalog) Close() error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
