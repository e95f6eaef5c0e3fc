package media

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Store resolves where each rendition of a photo lives on disk.
type Store interface {
	// Path returns the absolute path for an asset without touching the filesystem
	Path(assetType AssetType, year, folderKey, name string) (string, error)
	// Ensure is Path plus creating the parent directory
	Ensure(assetType AssetType, year, folderKey, name string) (string, error)
	// Root returns the configured root directory of an asset type
	Root(assetType AssetType) (string, error)
}

// LocalStorage implements the Store interface using the local filesystem
type LocalStorage struct {
	roots map[AssetType]string // maps AssetType to its absolute root
}

// NewLocalStorage creates a new local filesystem store. Thumbnails live under
// the web root unless given their own root.
func NewLocalStorage(roots map[AssetType]string) (*LocalStorage, error) {
	resolved := make(map[AssetType]string, len(roots)+1)
	for assetType, root := range roots {
		if root == "" {
			continue
		}
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("invalid %s storage path '%s': %w", assetType, root, err)
		}
		resolved[assetType] = abs
	}
	if _, ok := resolved[AssetTypeThumb]; !ok {
		if web, ok := resolved[AssetTypeWeb]; ok {
			resolved[AssetTypeThumb] = web
		}
	}

	log.Printf("media.store: Initialized LocalStorage with %d roots", len(resolved))
	return &LocalStorage{roots: resolved}, nil
}

// Root returns the absolute root for an asset type
func (ls *LocalStorage) Root(assetType AssetType) (string, error) {
	root, ok := ls.roots[assetType]
	if !ok {
		return "", fmt.Errorf("asset type '%s' has no configured root", assetType)
	}
	return root, nil
}

// Path calculates the absolute path and performs the traversal check
func (ls *LocalStorage) Path(assetType AssetType, year, folderKey, name string) (string, error) {
	root, err := ls.Root(assetType)
	if err != nil {
		return "", err
	}
	rel, err := RelativeDir(assetType, year, folderKey)
	if err != nil {
		return "", err
	}
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid file name '%s'", name)
	}

	fullPath := filepath.Join(root, filepath.FromSlash(rel), name)
	if !strings.HasPrefix(filepath.Clean(fullPath), root+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid path: '%s' resolves outside %s root", fullPath, assetType)
	}
	return fullPath, nil
}

// Ensure resolves the path and creates its directory
func (ls *LocalStorage) Ensure(assetType AssetType, year, folderKey, name string) (string, error) {
	fullPath, err := ls.Path(assetType, year, folderKey, name)
	if err != nil {
		return "", err
	}
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to ensure directory '%s': %w", dir, err)
	}
	return fullPath, nil
}

// RelativeDir is the slash-separated directory of an asset below its root.
// The same layout is used on disk, in public URLs and on the remote file store.
func RelativeDir(assetType AssetType, year, folderKey string) (string, error) {
	needsYear := assetType == AssetTypeOriginal || assetType == AssetTypeArchive ||
		assetType == AssetTypeWeb || assetType == AssetTypeThumb
	if needsYear && year == "" {
		return "", fmt.Errorf("%s asset requires a capture year", assetType)
	}
	if assetType != AssetTypeRejected && folderKey == "" {
		return "", fmt.Errorf("%s asset requires a folder", assetType)
	}

	switch assetType {
	case AssetTypeOriginal, AssetTypeArchive, AssetTypeWeb:
		return path.Join(year, folderKey), nil
	case AssetTypeThumb:
		return path.Join(year, "thumbs", folderKey), nil
	case AssetTypeDesktop:
		return folderKey, nil
	case AssetTypeRejected:
		return "", nil
	default:
		return "", fmt.Errorf("unknown asset type '%s'", assetType)
	}
}

// PublicURL builds the published address of a web image or thumbnail.
func PublicURL(baseURL string, assetType AssetType, year, folderKey, name string) (string, error) {
	if assetType != AssetTypeWeb && assetType != AssetTypeThumb {
		return "", fmt.Errorf("asset type '%s' is not published", assetType)
	}
	rel, err := RelativeDir(assetType, year, folderKey)
	if err != nil {
		return "", err
	}
	elems := append(strings.Split(rel, "/"), name)
	u, err := url.JoinPath(baseURL, elems...)
	if err != nil {
		return "", fmt.Errorf("invalid public base URL '%s': %w", baseURL, err)
	}
	return u, nil
}
