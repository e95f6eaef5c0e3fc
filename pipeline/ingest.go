package pipeline

import (
	"fmt"
	"log"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/camden-git/photoqueue/lookup"
	"github.com/camden-git/photoqueue/media"
	"github.com/camden-git/photoqueue/models"
	"github.com/camden-git/photoqueue/realtime"
	"github.com/camden-git/photoqueue/repository"
	"github.com/camden-git/photoqueue/utils"
)

const unknownPart = "unknown"

var unsafeNameChars = regexp.MustCompile(`[^a-z0-9-]+`)

// IngestRequest describes one batch of files the operator dropped in. Folder
// is the display name.
type IngestRequest struct {
	Files    []string `json:"files"`
	Subject  string   `json:"subject"`
	Location string   `json:"location"`
	Folder   string   `json:"folder"`
}

// Ingestor turns incoming image files into Pending queue records.
type Ingestor struct {
	Store     repository.ReviewQueueStore
	Files     media.Store
	Folders   *lookup.FolderMap
	Locations *lookup.Locations
	Events    realtime.Broadcaster

	suffix func() (string, error)
}

func NewIngestor(store repository.ReviewQueueStore, files media.Store, folders *lookup.FolderMap) *Ingestor {
	return &Ingestor{Store: store, Files: files, Folders: folders, suffix: randomSuffix}
}

// Ingest processes every raster file in the request; other files are
// skipped. Failures are per file.
func (in *Ingestor) Ingest(req IngestRequest) (Summary, []Result) {
	summary := Summary{Stage: "ingest"}
	results := make([]Result, 0, len(req.Files))
	for _, src := range req.Files {
		if !media.IsRasterImage(src) {
			log.Printf("pipeline.ingest: skipping non-image file %s", src)
			continue
		}
		rec, err := in.IngestFile(src, req)
		res := Result{FileName: filepath.Base(src), Record: rec, Err: err}
		if rec != nil {
			res.ID, res.FileName = rec.ID, rec.FileName
		}
		summary.Add(res)
		results = append(results, res)
	}
	log.Printf("pipeline.ingest: %s", summary)
	return summary, results
}

// IngestFile reads capture metadata, moves src into the originals tree under
// a generated name and creates the Pending record. The request's location is
// remembered once the record exists.
func (in *Ingestor) IngestFile(src string, req IngestRequest) (*models.PhotoRecord, error) {
	meta, err := utils.GetCaptureMetadata(src)
	if err != nil {
		in.emitFailure(src, err)
		return nil, err
	}

	key := in.Folders.Resolve(req.Folder)
	year := meta.Year()
	if year == "" {
		year = unknownPart
	}
	suffix := in.suffix
	if suffix == nil {
		suffix = randomSuffix
	}
	tag, err := suffix()
	if err != nil {
		return nil, fmt.Errorf("failed to generate file name suffix: %w", err)
	}
	name := GenerateFileName(req.Subject, req.Location, key, meta.Camera, year, tag, filepath.Ext(src))

	dst, err := in.Files.Ensure(media.AssetTypeOriginal, year, key, name)
	if err != nil {
		in.emitFailure(src, err)
		return nil, err
	}
	if err := utils.MoveFile(src, dst); err != nil {
		in.emitFailure(src, err)
		return nil, err
	}

	rec := &models.PhotoRecord{
		OriginalFileName: filepath.Base(src),
		Path:             dst,
		DateTime:         meta.DateTime,
		Camera:           meta.Camera,
		LensModel:        meta.LensModel,
		Width:            meta.Width,
		Height:           meta.Height,
		Exposure:         meta.Exposure,
		Aperture:         meta.Aperture,
		ISO:              meta.ISO,
		FocalLength:      meta.FocalLength,
		Folder:           strings.TrimSpace(req.Folder),
		FileName:         name,
		Location:         req.Location,
		Subject:          req.Subject,
	}
	if err := in.Store.Create(rec); err != nil {
		// put the file back so the next attempt starts from the same state
		if mvErr := utils.MoveFile(dst, src); mvErr != nil {
			log.Printf("pipeline.ingest: could not restore %s after failed insert: %v", src, mvErr)
		}
		in.emitFailure(src, err)
		return nil, err
	}

	in.rememberLocation(req.Location)

	log.Printf("pipeline.ingest: queued %s as record %d (%s)", filepath.Base(src), rec.ID, name)
	realtime.Emit(in.Events, realtime.RecordEvent(realtime.EventRecordIngested, rec.ID, rec.FileName, string(models.StatusPending), nil))
	return rec, nil
}

func (in *Ingestor) rememberLocation(location string) {
	if strings.TrimSpace(location) == "" || in.Locations == nil {
		return
	}
	if _, err := in.Locations.Add(location); err != nil {
		log.Printf("pipeline.ingest: failed to remember location %q: %v", location, err)
	}
}

func (in *Ingestor) emitFailure(src string, err error) {
	log.Printf("pipeline.ingest: %s: %v", src, err)
	realtime.Emit(in.Events, realtime.RecordEvent(realtime.EventIngestFailed, 0, filepath.Base(src), "", err))
}

// GenerateFileName builds <subject>_<location>_<folder>_<camera>_<year>_<tag><ext>.
// Each part is lowercased and reduced to letters, digits and dashes.
func GenerateFileName(subject, location, folderKey, camera, year, tag, ext string) string {
	parts := []string{subject, location, folderKey, camera, year, tag}
	for i, p := range parts {
		parts[i] = slugPart(p)
	}
	ext = strings.ToLower(ext)
	if ext == "" || ext == ".jpeg" {
		ext = ".jpg"
	}
	return strings.Join(parts, "_") + ext
}

func slugPart(s string) string {
	s = unsafeNameChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return unknownPart
	}
	return s
}

// randomSuffix is the first 8 hex digits of a random UUID.
func randomSuffix() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(id.String(), "-", "")[:8], nil
}
