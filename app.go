package main

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/camden-git/photoqueue/config"
	"github.com/camden-git/photoqueue/database"
	"github.com/camden-git/photoqueue/lookup"
	"github.com/camden-git/photoqueue/media"
	"github.com/camden-git/photoqueue/repository"
)

// app holds what every stage shares: the queue store, the local file tree
// and the operator reference lists.
type app struct {
	cfg       config.Config
	db        *gorm.DB
	repo      *repository.ReviewRepository
	files     *media.LocalStorage
	folders   *lookup.FolderMap
	locations *lookup.Locations
}

// openApp validates cfg for a stage and opens the shared resources. Folder
// and location lists are loaded only when the stage needs them.
func openApp(cfg config.Config, validate func() error, withLookups bool) (*app, error) {
	if validate != nil {
		if err := validate(); err != nil {
			return nil, err
		}
	}

	db, err := database.InitGormDB(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	files, err := media.NewLocalStorage(map[media.AssetType]string{
		media.AssetTypeOriginal: cfg.OriginalsRoot,
		media.AssetTypeArchive:  cfg.ArchiveRoot,
		media.AssetTypeWeb:      cfg.WebRoot,
		media.AssetTypeDesktop:  cfg.DesktopRoot,
		media.AssetTypeRejected: cfg.RejectedDir,
	})
	if err != nil {
		database.CloseGormDB(db)
		return nil, fmt.Errorf("failed to initialize media store: %w", err)
	}

	a := &app{cfg: cfg, db: db, repo: repository.NewReviewRepository(db), files: files}
	if !withLookups {
		return a, nil
	}

	a.folders, err = lookup.LoadFolderMap(cfg.FolderMapPath)
	if err != nil {
		a.Close()
		return nil, &config.ConfigurationError{Stage: "lookup", Keys: []string{"FOLDER_MAP_PATH"}, Err: err}
	}
	a.locations, err = lookup.LoadLocations(cfg.LocationListPath)
	if err != nil {
		a.Close()
		return nil, &config.ConfigurationError{Stage: "lookup", Keys: []string{"LOCATION_LIST_PATH"}, Err: err}
	}
	log.Printf("Loaded %d folder(s) and %d location(s)", len(a.folders.DisplayNames()), len(a.locations.All()))
	return a, nil
}

func (a *app) Close() {
	if err := database.CloseGormDB(a.db); err != nil {
		log.Printf("Error closing review queue database: %v", err)
	}
}
