package pipeline

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/camden-git/photoqueue/lookup"
	"github.com/camden-git/photoqueue/media"
	"github.com/camden-git/photoqueue/models"
	"github.com/camden-git/photoqueue/realtime"
	"github.com/camden-git/photoqueue/repository"
	"github.com/camden-git/photoqueue/utils"
)

// CuratedFields are the values the operator confirms during review. Folder
// is the display name; QR, when set, replaces the scored value.
type CuratedFields struct {
	Folder   string   `json:"folder"`
	FileName string   `json:"file_name"`
	Keywords string   `json:"keywords"`
	Caption  string   `json:"caption"`
	Location string   `json:"location"`
	Subject  string   `json:"subject"`
	QR       *float64 `json:"qr,omitempty"`
}

// CuratedFrom prefills curated fields from a record.
func CuratedFrom(rec models.PhotoRecord) CuratedFields {
	return CuratedFields{
		Folder:   rec.Folder,
		FileName: rec.FileName,
		Keywords: rec.Keywords,
		Caption:  rec.Caption,
		Location: rec.Location,
		Subject:  rec.Subject,
		QR:       rec.QR,
	}
}

func (c CuratedFields) validate() error {
	if strings.TrimSpace(c.Folder) == "" {
		return fmt.Errorf("%w: Folder is empty", ErrInvalidCuratedFields)
	}
	name := strings.TrimSpace(c.FileName)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: File_Name %q", ErrInvalidCuratedFields, c.FileName)
	}
	return nil
}

// fields returns the column map for the curated values. QR is always written
// so the store re-derives QC_Status. An override is ignored until the record
// has been scored.
func (c CuratedFields) fields(rec models.PhotoRecord) map[string]interface{} {
	qr := rec.QR
	if c.QR != nil && rec.QR != nil {
		qr = c.QR
	}
	return map[string]interface{}{
		"Folder":    strings.TrimSpace(c.Folder),
		"File_Name": strings.TrimSpace(c.FileName),
		"Keywords":  c.Keywords,
		"Caption":   c.Caption,
		"Location":  c.Location,
		"Subject":   c.Subject,
		"QR":        qr,
	}
}

// Publisher carries out review decisions: approving (which publishes the
// files), rejecting, saving edits and marking records published.
type Publisher struct {
	Store         repository.ReviewQueueStore
	Files         media.Store
	Renderer      media.Renderer
	Folders       *lookup.FolderMap
	Locations     *lookup.Locations
	PublicBaseURL string
	Events        realtime.Broadcaster
}

func NewPublisher(store repository.ReviewQueueStore, files media.Store, renderer media.Renderer, folders *lookup.FolderMap, publicBaseURL string) *Publisher {
	return &Publisher{
		Store:         store,
		Files:         files,
		Renderer:      renderer,
		Folders:       folders,
		PublicBaseURL: publicBaseURL,
	}
}

// Approve publishes a Pending record: archive copy, move into the web tree,
// render, re-read dimensions, rewrite Path/Thumb_Path to public URLs, then
// persist the curated fields with Review_Status = Approved. There is no undo
// for earlier steps; a failure leaves the record Pending and a retry resumes
// from whatever the failed attempt left on disk.
func (p *Publisher) Approve(id uint, curated CuratedFields) (*models.PhotoRecord, error) {
	rec, err := p.Store.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := models.CheckTransition(rec.ID, rec.Status(), models.StatusApproved); err != nil {
		return nil, err
	}
	if err := curated.validate(); err != nil {
		return nil, err
	}
	year, err := rec.CaptureYear()
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(curated.FileName)
	key := p.Folders.Resolve(curated.Folder)
	if err := p.checkNameFree(rec.ID, strings.TrimSpace(curated.Folder), name); err != nil {
		return nil, err
	}

	var paths struct{ archive, web, thumb, desktop string }
	for _, t := range []struct {
		assetType media.AssetType
		dst       *string
	}{
		{media.AssetTypeArchive, &paths.archive},
		{media.AssetTypeWeb, &paths.web},
		{media.AssetTypeThumb, &paths.thumb},
		{media.AssetTypeDesktop, &paths.desktop},
	} {
		*t.dst, err = p.Files.Ensure(t.assetType, year, key, name)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", rec.ID, err)
		}
	}

	src := rec.Path
	resumed := !utils.FileExists(src)

	// 1. archive receives the untouched original and is never overwritten. On
	// a fresh attempt an existing archive must be this record's own copy.
	archived := utils.FileExists(paths.archive)
	switch {
	case !archived && resumed:
		return nil, fmt.Errorf("record %d: working file %s is missing and no archive copy exists", rec.ID, src)
	case !archived:
		if err := utils.CopyFile(src, paths.archive); err != nil {
			return nil, fmt.Errorf("record %d: archive copy: %w", rec.ID, err)
		}
	case !resumed:
		if err := requireSameFile(rec.ID, src, paths.archive); err != nil {
			return nil, err
		}
	}

	// 2. move the working file into the web tree
	if !resumed {
		if utils.FileExists(paths.web) {
			if err := requireSameFile(rec.ID, src, paths.web); err != nil {
				return nil, err
			}
		}
		if err := utils.MoveFile(src, paths.web); err != nil {
			return nil, fmt.Errorf("record %d: move to web: %w", rec.ID, err)
		}
	} else if !utils.FileExists(paths.web) {
		return nil, fmt.Errorf("record %d: working file %s is missing and not found at %s", rec.ID, src, paths.web)
	}

	// 3. render; on a resumed attempt the web file may already be a rendition,
	// so render from the archive copy, which holds the same original bytes
	renderSrc := paths.web
	if resumed {
		renderSrc = paths.archive
	}
	targets := media.RenderTargets{Web: paths.web, Thumb: paths.thumb, Desktop: paths.desktop}
	if err := p.Renderer.Render(renderSrc, targets); err != nil {
		rerr := &RenderError{ID: rec.ID, FileName: name, Err: err}
		log.Printf("pipeline.publish: %v", rerr)
		return nil, rerr
	}

	// 4. dimensions of the rendition
	width, height, err := media.ReadDimensions(paths.web)
	if err != nil {
		return nil, &RenderError{ID: rec.ID, FileName: name, Err: err}
	}

	// 5. public URLs replace the local paths
	webURL, err := media.PublicURL(p.PublicBaseURL, media.AssetTypeWeb, year, key, name)
	if err != nil {
		return nil, fmt.Errorf("record %d: %w", rec.ID, err)
	}
	thumbURL, err := media.PublicURL(p.PublicBaseURL, media.AssetTypeThumb, year, key, name)
	if err != nil {
		return nil, fmt.Errorf("record %d: %w", rec.ID, err)
	}

	// 6. persist
	fields := curated.fields(*rec)
	fields["Width"] = width
	fields["Height"] = height
	fields["Path"] = webURL
	fields["Thumb_Path"] = thumbURL
	fields["Review_Status"] = string(models.StatusApproved)
	if err := p.Store.UpdateFieldsWhereStatus(rec.ID, []models.ReviewStatus{models.StatusPending}, fields); err != nil {
		return nil, err
	}
	p.rememberLocation(curated.Location)

	updated, err := p.Store.GetByID(rec.ID)
	if err != nil {
		return nil, err
	}
	log.Printf("pipeline.publish: approved record %d as %s/%s/%s", rec.ID, year, key, name)
	realtime.Emit(p.Events, realtime.RecordEvent(realtime.EventRecordApproved, updated.ID, updated.FileName, string(models.StatusApproved), nil))
	return updated, nil
}

// checkNameFree refuses a name another record has already published under.
func (p *Publisher) checkNameFree(id uint, folder, name string) error {
	others, err := p.Store.FindByNaturalKey(folder, name)
	if err != nil {
		return err
	}
	for _, o := range others {
		if o.ID == id {
			continue
		}
		switch o.Status() {
		case models.StatusApproved, models.StatusPublished, models.StatusUploaded:
			return fmt.Errorf("record %d: %s/%s is held by record %d: %w", id, folder, name, o.ID, ErrNameTaken)
		}
	}
	return nil
}

func requireSameFile(id uint, src, existing string) error {
	same, err := utils.SameContent(src, existing)
	if err != nil {
		return fmt.Errorf("record %d: %w", id, err)
	}
	if !same {
		return fmt.Errorf("record %d: %s already exists with different content: %w", id, existing, ErrNameTaken)
	}
	return nil
}

// Reject moves the working file to the rejection holding area and deletes
// the record.
func (p *Publisher) Reject(id uint) error {
	rec, err := p.Store.GetByID(id)
	if err != nil {
		return err
	}
	if err := models.CheckTransition(rec.ID, rec.Status(), models.StatusRejected); err != nil {
		return err
	}

	if rec.Path != "" && utils.FileExists(rec.Path) {
		dst, err := p.Files.Ensure(media.AssetTypeRejected, "", "", filepath.Base(rec.Path))
		if err != nil {
			return fmt.Errorf("record %d: %w", rec.ID, err)
		}
		if err := utils.MoveFile(rec.Path, dst); err != nil {
			return fmt.Errorf("record %d: move to rejected: %w", rec.ID, err)
		}
	} else if rec.Path != "" {
		log.Printf("pipeline.publish: record %d working file %s already gone, deleting record only", rec.ID, rec.Path)
	}

	if err := p.Store.Delete(rec.ID); err != nil {
		return err
	}
	log.Printf("pipeline.publish: rejected record %d (%s)", rec.ID, rec.FileName)
	realtime.Emit(p.Events, realtime.RecordEvent(realtime.EventRecordRejected, rec.ID, rec.FileName, string(models.StatusRejected), nil))
	return nil
}

// SaveEdits persists curated fields while keeping the record Pending.
func (p *Publisher) SaveEdits(id uint, curated CuratedFields) (*models.PhotoRecord, error) {
	rec, err := p.Store.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := models.CheckTransition(rec.ID, rec.Status(), models.StatusPending); err != nil {
		return nil, err
	}

	fields := curated.fields(*rec)
	fields["Review_Status"] = string(models.StatusPending)
	if err := p.Store.UpdateFieldsWhereStatus(rec.ID, []models.ReviewStatus{models.StatusPending}, fields); err != nil {
		return nil, err
	}
	p.rememberLocation(curated.Location)

	updated, err := p.Store.GetByID(rec.ID)
	if err != nil {
		return nil, err
	}
	realtime.Emit(p.Events, realtime.RecordEvent(realtime.EventRecordEdited, updated.ID, updated.FileName, string(models.StatusPending), nil))
	return updated, nil
}

// MarkPublished moves an Approved record to Published.
func (p *Publisher) MarkPublished(id uint) error {
	rec, err := p.Store.GetByID(id)
	if err != nil {
		return err
	}
	if err := models.CheckTransition(rec.ID, rec.Status(), models.StatusPublished); err != nil {
		return err
	}
	err = p.Store.UpdateFieldsWhereStatus(rec.ID, []models.ReviewStatus{models.StatusApproved},
		map[string]interface{}{"Review_Status": string(models.StatusPublished)})
	if err != nil {
		return err
	}
	realtime.Emit(p.Events, realtime.RecordEvent(realtime.EventRecordPublished, rec.ID, rec.FileName, string(models.StatusPublished), nil))
	return nil
}

func (p *Publisher) rememberLocation(location string) {
	if p.Locations == nil || strings.TrimSpace(location) == "" {
		return
	}
	if _, err := p.Locations.Add(location); err != nil {
		log.Printf("pipeline.publish: failed to remember location %q: %v", location, err)
	}
}

// IsRetryable reports whether an Approve failure leaves the record in a state
// the operator can simply retry.
func IsRetryable(err error) bool {
	var rerr *RenderError
	return errors.As(err, &rerr) || errors.Is(err, os.ErrNotExist)
}
