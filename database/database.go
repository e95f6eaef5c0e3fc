package database

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// InitMirrorDB opens the local mirror database and creates its table.
func InitMirrorDB(dataSourceName string) (*sql.DB, error) {
	if dir := filepath.Dir(dataSourceName); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create mirror directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// enable write-ahead Logging for better concurrency
	_, err = db.Exec("PRAGMA journal_mode=WAL;")
	if err != nil {
		log.Printf("warning: failed to set WAL mode: %v", err)
	}

	sqlStmt := `
	CREATE TABLE IF NOT EXISTS mirror_images (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		queue_id INTEGER,
		Folder TEXT NOT NULL,
		File_Name TEXT NOT NULL,
		Path TEXT,
		Thumb_Path TEXT,
		DateTime TEXT,
		Camera TEXT,
		Lens_model TEXT,
		Width INTEGER,
		Height INTEGER,
		Exposure TEXT,
		Aperture TEXT,
		ISO INTEGER,
		Focal_length INTEGER,
		Keywords TEXT,
		Caption TEXT,
		Location TEXT,
		QR REAL,
		QC_Status TEXT,
		Original_File_Name TEXT,
		mirrored_at INTEGER NOT NULL,
		UNIQUE (Folder, File_Name)
	);
	`
	_, err = db.Exec(sqlStmt)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create mirror_images table: %w", err)
	}

	log.Println("database: mirror initialized at", dataSourceName)
	return db, nil
}
