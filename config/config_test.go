package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("WEB_MAX_SIZE", "not-a-number")
	t.Setenv("PUBLIC_BASE_URL", "https://example.com/images/")
	t.Setenv("WEB_ROOT", "web")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, defaultWebMaxSize, cfg.WebMaxSize)
	assert.Equal(t, defaultThumbMaxSize, cfg.ThumbMaxSize)
	assert.Equal(t, "https://example.com/images", cfg.PublicBaseURL)
	assert.True(t, filepath.IsAbs(cfg.WebRoot))
	assert.Equal(t, FileStoreFTP, cfg.FileStoreBackend)
	assert.Equal(t, "", cfg.ArchiveRoot)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.AllowedOrigins)
}

func TestLoadConfig_AllowedOrigins(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://review.example.com, ,http://localhost:3000 ")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://review.example.com", "http://localhost:3000"}, cfg.AllowedOrigins)
}

func TestValidateForUpload_ReportsMissingKeys(t *testing.T) {
	cfg := Config{FileStoreBackend: FileStoreFTP, DatabasePath: "review.db"}
	err := cfg.ValidateForUpload()
	require.Error(t, err)

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "upload", cfgErr.Stage)
	assert.Contains(t, cfgErr.Keys, "REMOTE_CATALOG_DSN")
	assert.Contains(t, cfgErr.Keys, "FTP_HOST")
	assert.NotContains(t, cfgErr.Keys, "DATABASE_PATH")
}

func TestValidateForUpload_UnknownBackend(t *testing.T) {
	err := Config{FileStoreBackend: "s3"}.ValidateForUpload()
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, []string{"FILE_STORE_BACKEND"}, cfgErr.Keys)
}

func TestValidateForPublish_RequiresFolderMapFile(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		DatabasePath:  "review.db",
		WebRoot:       dir,
		DesktopRoot:   dir,
		ArchiveRoot:   dir,
		RejectedDir:   dir,
		PublicBaseURL: "https://example.com/images",
		FolderMapPath: filepath.Join(dir, "folder_map.json"),
	}
	err := cfg.ValidateForPublish()
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, []string{"FOLDER_MAP_PATH"}, cfgErr.Keys)

	require.NoError(t, os.WriteFile(cfg.FolderMapPath, []byte(`{}`), 0644))
	assert.NoError(t, cfg.ValidateForPublish())
}
