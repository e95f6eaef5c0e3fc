package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	defaultWebMaxSize      = 1600
	defaultThumbMaxSize    = 300
	defaultDesktopMaxSize  = 2560
	defaultIngestQueueSize = 200
	defaultFTPPort         = 21
)

const (
	FileStoreFTP      = "ftp"
	FileStoreSupabase = "supabase"
)

type Config struct {
	// review queue database and its local mirror
	DatabasePath       string
	MirrorDatabasePath string

	// local file tree
	IncomingDir   string // where freshly captured files are picked up
	OriginalsRoot string // working files awaiting review, <year>/<folder>/
	WebRoot       string // rendered web images, <year>/<folder>/ and <year>/thumbs/<folder>/
	DesktopRoot   string // desktop copies, <folder>/
	ArchiveRoot   string // untouched originals, <year>/<folder>/
	RejectedDir   string // rejection holding area

	// operator reference data
	FolderMapPath    string
	LocationListPath string

	// publishing
	PublicBaseURL  string
	WatermarkText  string
	WebMaxSize     int
	ThumbMaxSize   int
	DesktopMaxSize int

	// scoring
	AestheticModelPath string

	// remote replication
	RemoteCatalogDSN   string
	RemoteCatalogTable string
	FileStoreBackend   string
	FTPHost            string
	FTPPort            int
	FTPUser            string
	FTPPassword        string
	RemoteBasePath     string
	SupabaseURL        string
	SupabaseServiceKey string
	SupabaseBucket     string
	UploadErrorLog     string

	// process
	LockPath        string
	ReviewTokenHash string // bcrypt hash guarding the review API; empty disables auth
	IngestQueueSize int
	Port            string
	AllowedOrigins  []string // CORS origins for the review UI
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func absPath(key, defaultValue string) (string, error) {
	raw := getEnvOrDefault(key, defaultValue)
	if raw == "" {
		return "", nil
	}
	abs, err := filepath.Abs(raw)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path for %s '%s': %w", key, raw, err)
	}
	return abs, nil
}

// LoadConfig reads the environment. It only fails on malformed values;
// missing settings are reported by the per-stage Validate methods.
func LoadConfig() (Config, error) {
	cfg := Config{
		DatabasePath:       getEnvOrDefault("DATABASE_PATH", filepath.Join("data", "review.db")),
		MirrorDatabasePath: getEnvOrDefault("MIRROR_DATABASE_PATH", filepath.Join("data", "mirror.db")),
		FolderMapPath:      getEnvOrDefault("FOLDER_MAP_PATH", filepath.Join("data", "folder_map.json")),
		LocationListPath:   getEnvOrDefault("LOCATION_LIST_PATH", filepath.Join("data", "location_list.json")),
		PublicBaseURL:      strings.TrimRight(os.Getenv("PUBLIC_BASE_URL"), "/"),
		WatermarkText:      os.Getenv("WATERMARK_TEXT"),
		WebMaxSize:         getEnvIntOrDefault("WEB_MAX_SIZE", defaultWebMaxSize),
		ThumbMaxSize:       getEnvIntOrDefault("THUMB_MAX_SIZE", defaultThumbMaxSize),
		DesktopMaxSize:     getEnvIntOrDefault("DESKTOP_MAX_SIZE", defaultDesktopMaxSize),
		AestheticModelPath: os.Getenv("AESTHETIC_MODEL_PATH"),
		RemoteCatalogDSN:   os.Getenv("REMOTE_CATALOG_DSN"),
		RemoteCatalogTable: getEnvOrDefault("REMOTE_CATALOG_TABLE", "images"),
		FileStoreBackend:   strings.ToLower(getEnvOrDefault("FILE_STORE_BACKEND", FileStoreFTP)),
		FTPHost:            os.Getenv("FTP_HOST"),
		FTPPort:            getEnvIntOrDefault("FTP_PORT", defaultFTPPort),
		FTPUser:            os.Getenv("FTP_USER"),
		FTPPassword:        os.Getenv("FTP_PASSWORD"),
		RemoteBasePath:     strings.TrimRight(os.Getenv("REMOTE_BASE_PATH"), "/"),
		SupabaseURL:        os.Getenv("SUPABASE_URL"),
		SupabaseServiceKey: os.Getenv("SUPABASE_SERVICE_KEY"),
		SupabaseBucket:     os.Getenv("SUPABASE_BUCKET"),
		UploadErrorLog:     getEnvOrDefault("UPLOAD_ERROR_LOG", filepath.Join("data", "upload_errors.log")),
		LockPath:           getEnvOrDefault("LOCK_PATH", filepath.Join("data", "photoqueue.lock")),
		ReviewTokenHash:    os.Getenv("REVIEW_TOKEN_HASH"),
		IngestQueueSize:    getEnvIntOrDefault("INGEST_QUEUE_SIZE", defaultIngestQueueSize),
		Port:               getEnvOrDefault("PORT", "8080"),
		AllowedOrigins:     splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
	}

	dirs := []struct {
		key    string
		def    string
		target *string
	}{
		{"INCOMING_DIR", "incoming", &cfg.IncomingDir},
		{"ORIGINALS_ROOT", "", &cfg.OriginalsRoot},
		{"WEB_ROOT", "", &cfg.WebRoot},
		{"DESKTOP_ROOT", "", &cfg.DesktopRoot},
		{"ARCHIVE_ROOT", "", &cfg.ArchiveRoot},
		{"REJECTED_DIR", "", &cfg.RejectedDir},
	}
	for _, d := range dirs {
		abs, err := absPath(d.key, d.def)
		if err != nil {
			return Config{}, &ConfigurationError{Keys: []string{d.key}, Err: err}
		}
		*d.target = abs
	}

	return cfg, nil
}
