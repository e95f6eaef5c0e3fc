package pipeline

import (
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/camden-git/photoqueue/lookup"
	"github.com/camden-git/photoqueue/media"
	"github.com/camden-git/photoqueue/models"
	"github.com/camden-git/photoqueue/realtime"
	"github.com/camden-git/photoqueue/repository"
	"github.com/camden-git/photoqueue/utils"
)

const stepPrepare = "prepare"

// CatalogWriter inserts or replaces a row keyed by Folder+File_Name.
// The remote catalog and the local mirror both satisfy it.
type CatalogWriter interface {
	Upsert(row models.CatalogRow) error
}

// FileStore is the remote file transfer primitive.
type FileStore interface {
	EnsureDir(dir string) error
	Put(localPath, remoteDir, name string) error
}

// Uploader replicates materialized records to the remote catalog, the remote
// file store and the local mirror, then marks them Uploaded.
type Uploader struct {
	Store      repository.ReviewQueueStore
	Catalog    CatalogWriter
	Files      FileStore
	Mirror     CatalogWriter
	Local      media.Store
	Folders    *lookup.FolderMap
	RemoteBase string
	ErrorLog   string
	Events     realtime.Broadcaster

	now func() time.Time
}

func NewUploader(store repository.ReviewQueueStore, catalog CatalogWriter, files FileStore, mirror CatalogWriter, local media.Store, folders *lookup.FolderMap) *Uploader {
	return &Uploader{
		Store:   store,
		Catalog: catalog,
		Files:   files,
		Mirror:  mirror,
		Local:   local,
		Folders: folders,
		now:     time.Now,
	}
}

// Run processes every Approved or Published record in id order. A failing
// record is logged, counted and left unchanged for the next run; it never
// stops the batch. The returned error is only for failing to list candidates.
func (u *Uploader) Run() (Summary, []Result, error) {
	summary := Summary{Stage: "upload", ErrorLog: u.ErrorLog}
	records, err := u.Store.FindByStatuses(models.StatusApproved, models.StatusPublished)
	if err != nil {
		return summary, nil, err
	}
	if len(records) == 0 {
		log.Printf("pipeline.upload: nothing approved for upload")
		return summary, nil, nil
	}

	runID := uuid.NewString()
	log.Printf("pipeline.upload: run %s, %d candidate(s)", runID, len(records))

	results := make([]Result, 0, len(records))
	for i := range records {
		rec := &records[i]
		res := Result{ID: rec.ID, FileName: rec.FileName, Record: rec}
		if err := u.uploadOne(rec); err != nil {
			res.Err = err
			log.Printf("pipeline.upload: failed: %s: %v", rec.FileName, err)
			u.appendErrorLog(runID, rec.FileName, err)
			realtime.Emit(u.Events, realtime.RecordEvent(realtime.EventUploadFailed, rec.ID, rec.FileName, string(rec.Status()), err))
		} else {
			realtime.Emit(u.Events, realtime.RecordEvent(realtime.EventRecordUploaded, rec.ID, rec.FileName, string(models.StatusUploaded), nil))
		}
		summary.Add(res)
		results = append(results, res)
	}

	log.Printf("pipeline.upload: %s", summary)
	return summary, results, nil
}

func (u *Uploader) uploadOne(rec *models.PhotoRecord) error {
	fail := func(step string, err error) error {
		return &ReplicationError{ID: rec.ID, FileName: rec.FileName, Step: step, Err: err}
	}

	year, err := rec.CaptureYear()
	if err != nil {
		return fail(stepPrepare, err)
	}
	key := u.Folders.Resolve(rec.Folder)

	localWeb, err := u.Local.Path(media.AssetTypeWeb, year, key, rec.FileName)
	if err != nil {
		return fail(stepPrepare, err)
	}
	localThumb, err := u.Local.Path(media.AssetTypeThumb, year, key, rec.FileName)
	if err != nil {
		return fail(stepPrepare, err)
	}
	for _, p := range []string{localWeb, localThumb} {
		if !utils.FileExists(p) {
			return fail(stepPrepare, fmt.Errorf("rendered file %s: %w", p, os.ErrNotExist))
		}
	}
	webDir, err := u.remoteDir(media.AssetTypeWeb, year, key)
	if err != nil {
		return fail(stepPrepare, err)
	}
	thumbDir, err := u.remoteDir(media.AssetTypeThumb, year, key)
	if err != nil {
		return fail(stepPrepare, err)
	}

	row := models.NewCatalogRow(*rec)

	if err := u.Catalog.Upsert(row); err != nil {
		return fail(StepCatalog, err)
	}

	for _, t := range []struct{ local, dir string }{{localWeb, webDir}, {localThumb, thumbDir}} {
		if err := u.Files.EnsureDir(t.dir); err != nil {
			return fail(StepTransfer, err)
		}
		if err := u.Files.Put(t.local, t.dir, rec.FileName); err != nil {
			return fail(StepTransfer, err)
		}
	}

	if err := u.Mirror.Upsert(row); err != nil {
		return fail(StepMirror, err)
	}

	err = u.Store.UpdateFieldsWhereStatus(rec.ID,
		[]models.ReviewStatus{models.StatusApproved, models.StatusPublished},
		map[string]interface{}{"Review_Status": string(models.StatusUploaded)})
	if err != nil {
		return fail(StepStatus, err)
	}
	rec.ReviewStatus = models.StatusUploaded.Ptr()
	return nil
}

func (u *Uploader) remoteDir(assetType media.AssetType, year, key string) (string, error) {
	rel, err := media.RelativeDir(assetType, year, key)
	if err != nil {
		return "", err
	}
	if u.RemoteBase == "" {
		return rel, nil
	}
	return path.Join(u.RemoteBase, rel), nil
}

// appendErrorLog writes one line per failure. Failing to write the log is
// itself only logged.
func (u *Uploader) appendErrorLog(runID, fileName string, cause error) {
	if u.ErrorLog == "" {
		return
	}
	now := time.Now
	if u.now != nil {
		now = u.now
	}
	if err := os.MkdirAll(filepath.Dir(u.ErrorLog), 0755); err != nil {
		log.Printf("pipeline.upload: cannot create error log directory: %v", err)
		return
	}
	f, err := os.OpenFile(u.ErrorLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("pipeline.upload: cannot open error log %s: %v", u.ErrorLog, err)
		return
	}
	defer f.Close()

	msg := strings.ReplaceAll(cause.Error(), "\n", " ")
	line := fmt.Sprintf("%s run=%s file=%s err=%s\n", now().Format(time.RFC3339), runID, fileName, msg)
	if _, err := f.WriteString(line); err != nil {
		log.Printf("pipeline.upload: cannot write error log %s: %v", u.ErrorLog, err)
	}
}
