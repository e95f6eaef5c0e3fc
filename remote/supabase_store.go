package remote

import (
	"fmt"
	"io"
	"log"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	storage "github.com/supabase-community/storage-go"
)

// supabaseUploader is the subset of *storage.Client used here.
type supabaseUploader interface {
	UploadFile(bucketId string, relativePath string, data io.Reader, fileOptions ...storage.FileOptions) (storage.FileUploadResponse, error)
}

// SupabaseStore uploads into a Supabase storage bucket. Buckets have no
// real directories, so EnsureDir has nothing to do.
type SupabaseStore struct {
	client supabaseUploader
	bucket string
}

func NewSupabaseStore(supabaseURL, serviceRoleKey, bucket string) (*SupabaseStore, error) {
	baseURL := strings.TrimRight(supabaseURL, "/")
	if baseURL == "" || bucket == "" {
		return nil, fmt.Errorf("supabase url and bucket are required")
	}
	client := storage.NewClient(baseURL+"/storage/v1", serviceRoleKey, nil)
	log.Printf("remote.supabase: using bucket %s", bucket)
	return &SupabaseStore{client: client, bucket: bucket}, nil
}

func (s *SupabaseStore) EnsureDir(string) error { return nil }

// Put uploads with upsert so a retried transfer overwrites the object.
func (s *SupabaseStore) Put(localPath, remoteDir, name string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if contentType == "" {
		contentType = "image/jpeg"
	}
	upsert := true
	objectPath := strings.TrimPrefix(path.Join(remoteDir, name), "/")
	_, err = s.client.UploadFile(s.bucket, objectPath, f, storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to bucket %s: %w", objectPath, s.bucket, err)
	}
	return nil
}

func (s *SupabaseStore) Close() error { return nil }
