package config

import (
	"fmt"
	"os"
	"strings"
)

// ConfigurationError reports missing or invalid setup. It is always fatal:
// callers stop before any record is touched.
type ConfigurationError struct {
	Stage string
	Keys  []string
	Err   error
}

func (e *ConfigurationError) Error() string {
	msg := "configuration error"
	if e.Stage != "" {
		msg += " (" + e.Stage + ")"
	}
	if len(e.Keys) > 0 {
		msg += ": " + strings.Join(e.Keys, ", ")
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

type requirement struct {
	key   string
	value string
}

func check(stage string, reqs ...requirement) error {
	var missing []string
	for _, r := range reqs {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.key)
		}
	}
	if len(missing) > 0 {
		return &ConfigurationError{Stage: stage, Keys: missing, Err: fmt.Errorf("required setting not set")}
	}
	return nil
}

func checkFile(stage, key, path string) error {
	if _, err := os.Stat(path); err != nil {
		return &ConfigurationError{Stage: stage, Keys: []string{key}, Err: err}
	}
	return nil
}

// ValidateForIngest checks what ingestion needs.
func (c Config) ValidateForIngest() error {
	if err := check("ingest",
		requirement{"DATABASE_PATH", c.DatabasePath},
		requirement{"ORIGINALS_ROOT", c.OriginalsRoot},
		requirement{"FOLDER_MAP_PATH", c.FolderMapPath},
	); err != nil {
		return err
	}
	return checkFile("ingest", "FOLDER_MAP_PATH", c.FolderMapPath)
}

// ValidateForScoring checks what the scoring stage needs.
func (c Config) ValidateForScoring() error {
	if err := check("score",
		requirement{"DATABASE_PATH", c.DatabasePath},
		requirement{"AESTHETIC_MODEL_PATH", c.AestheticModelPath},
	); err != nil {
		return err
	}
	return checkFile("score", "AESTHETIC_MODEL_PATH", c.AestheticModelPath)
}

// ValidateForPublish checks what review and publication need.
func (c Config) ValidateForPublish() error {
	if err := check("publish",
		requirement{"DATABASE_PATH", c.DatabasePath},
		requirement{"WEB_ROOT", c.WebRoot},
		requirement{"DESKTOP_ROOT", c.DesktopRoot},
		requirement{"ARCHIVE_ROOT", c.ArchiveRoot},
		requirement{"REJECTED_DIR", c.RejectedDir},
		requirement{"PUBLIC_BASE_URL", c.PublicBaseURL},
		requirement{"FOLDER_MAP_PATH", c.FolderMapPath},
	); err != nil {
		return err
	}
	return checkFile("publish", "FOLDER_MAP_PATH", c.FolderMapPath)
}

// ValidateForUpload checks credentials and paths for replication.
func (c Config) ValidateForUpload() error {
	reqs := []requirement{
		{"DATABASE_PATH", c.DatabasePath},
		{"MIRROR_DATABASE_PATH", c.MirrorDatabasePath},
		{"WEB_ROOT", c.WebRoot},
		{"REMOTE_CATALOG_DSN", c.RemoteCatalogDSN},
		{"REMOTE_CATALOG_TABLE", c.RemoteCatalogTable},
		{"UPLOAD_ERROR_LOG", c.UploadErrorLog},
		{"FOLDER_MAP_PATH", c.FolderMapPath},
	}
	switch c.FileStoreBackend {
	case FileStoreFTP:
		reqs = append(reqs,
			requirement{"FTP_HOST", c.FTPHost},
			requirement{"FTP_USER", c.FTPUser},
			requirement{"FTP_PASSWORD", c.FTPPassword},
		)
	case FileStoreSupabase:
		reqs = append(reqs,
			requirement{"SUPABASE_URL", c.SupabaseURL},
			requirement{"SUPABASE_SERVICE_KEY", c.SupabaseServiceKey},
			requirement{"SUPABASE_BUCKET", c.SupabaseBucket},
		)
	default:
		return &ConfigurationError{Stage: "upload", Keys: []string{"FILE_STORE_BACKEND"},
			Err: fmt.Errorf("unknown backend %q", c.FileStoreBackend)}
	}
	if err := check("upload", reqs...); err != nil {
		return err
	}
	return checkFile("upload", "FOLDER_MAP_PATH", c.FolderMapPath)
}
