package remote

import (
	"fmt"
	"strings"

	"github.com/camden-git/photoqueue/config"
)

// FileStore transfers rendered files, creating remote directories on demand.
type FileStore interface {
	EnsureDir(dir string) error
	Put(localPath, remoteDir, name string) error
	Close() error
}

// OpenFileStore connects the backend selected by FILE_STORE_BACKEND.
func OpenFileStore(cfg config.Config) (FileStore, error) {
	switch cfg.FileStoreBackend {
	case config.FileStoreFTP:
		return DialFTP(FTPConfig{
			Host:     cfg.FTPHost,
			Port:     cfg.FTPPort,
			User:     cfg.FTPUser,
			Password: cfg.FTPPassword,
		})
	case config.FileStoreSupabase:
		return NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseBucket)
	default:
		return nil, &config.ConfigurationError{Stage: "upload", Keys: []string{"FILE_STORE_BACKEND"},
			Err: fmt.Errorf("unknown backend %q", cfg.FileStoreBackend)}
	}
}

// splitDir breaks a slash path into its non-empty parts.
func splitDir(dir string) []string {
	var parts []string
	for _, p := range strings.Split(dir, "/") {
		if p != "" && p != "." {
			parts = append(parts, p)
		}
	}
	return parts
}
