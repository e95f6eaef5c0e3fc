package handlers

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// AssetServer serves files below root for requests under routePrefix, e.g.
//
//	r.Get("/api/previews/*", AssetServer(cfg.OriginalsRoot, "/api/previews/", 0))
//	r.Get("/api/web/*", AssetServer(cfg.WebRoot, "/api/web/", 24*time.Hour))
//
// A zero cacheFor sends no-cache, for files that move while under review.
func AssetServer(root, routePrefix string, cacheFor time.Duration) http.HandlerFunc {
	root = filepath.Clean(root)
	log.Printf("handlers.assets: serving '%s*' from directory: %s", routePrefix, root)

	return func(w http.ResponseWriter, r *http.Request) {
		relativePath := strings.TrimPrefix(r.URL.Path, routePrefix)

		if relativePath == "" || relativePath == r.URL.Path || strings.Contains(relativePath, "..") {
			WriteAPIError(w, http.StatusBadRequest, "invalid_path", "Invalid asset path")
			return
		}

		cleanedAssetPath := filepath.Clean(filepath.Join(root, filepath.FromSlash(relativePath)))
		if !strings.HasPrefix(cleanedAssetPath, root+string(filepath.Separator)) {
			WriteAPIError(w, http.StatusForbidden, "forbidden", "Forbidden")
			log.Printf("SECURITY: Attempted asset access outside designated directory: Request='%s', Resolved='%s', Allowed Base='%s'",
				r.URL.Path, cleanedAssetPath, root)
			return
		}

		info, err := os.Stat(cleanedAssetPath)
		if os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		} else if err != nil {
			WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Internal Server Error")
			log.Printf("handlers.assets: error stating asset file %s: %v", cleanedAssetPath, err)
			return
		}
		if info.IsDir() {
			http.NotFound(w, r)
			return
		}

		if cacheFor > 0 {
			w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(cacheFor.Seconds())))
			w.Header().Set("Expires", time.Now().Add(cacheFor).Format(http.TimeFormat))
		} else {
			w.Header().Set("Cache-Control", "no-cache")
		}

		http.ServeFile(w, r, cleanedAssetPath)
	}
}
