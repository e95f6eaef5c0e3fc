package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/camden-git/photoqueue/lookup"
	"github.com/camden-git/photoqueue/models"
	"github.com/camden-git/photoqueue/pipeline"
	"github.com/camden-git/photoqueue/realtime"
	"github.com/camden-git/photoqueue/repository"
	"github.com/camden-git/photoqueue/scoring"
	"github.com/camden-git/photoqueue/workers"
)

// IngestQueue is satisfied by *workers.IngestWorker.
type IngestQueue interface {
	QueueJob(job workers.IngestJob) bool
	PendingCount() int
}

// ReviewHandler exposes the review queue to the operator UI.
type ReviewHandler struct {
	Store     repository.ReviewQueueStore
	Publisher *pipeline.Publisher
	Ingest    IngestQueue
	Folders   *lookup.FolderMap
	Locations *lookup.Locations
	Hub       *realtime.Hub

	IncomingDir   string
	OriginalsRoot string
}

// reviewRecord is a queue record as the UI sees it. PreviewURL points at the
// working file while the record is still Pending.
type reviewRecord struct {
	models.PhotoRecord
	FolderKey  string `json:"folder_key"`
	PreviewURL string `json:"preview_url,omitempty"`
}

type folderEntry struct {
	Key     string `json:"key"`
	Display string `json:"display"`
}

type ingestResponse struct {
	Queued  []string `json:"queued"`
	Skipped []string `json:"skipped"`
	Pending int      `json:"pending"`
}

// Routes mounts the review API on r.
func (h *ReviewHandler) Routes(r chi.Router) {
	r.Get("/review", h.ListForReview)
	r.Get("/review/summary", h.Summary)
	r.Route("/review/{id}", func(r chi.Router) {
		r.Get("/", h.GetRecord)
		r.Put("/", h.SaveEdits)
		r.Post("/approve", h.Approve)
		r.Post("/reject", h.Reject)
		r.Post("/publish", h.MarkPublished)
	})
	r.Post("/ingest", h.QueueIngest)
	r.Get("/folders", h.ListFolders)
	r.Get("/locations", h.ListLocations)
	if h.Hub != nil {
		r.Get("/events", h.Hub.ServeWS)
	}
}

func (h *ReviewHandler) ListForReview(w http.ResponseWriter, r *http.Request) {
	order := r.URL.Query().Get("sort")
	if order == "" {
		order = repository.DefaultSortOrder
	}
	if !repository.IsValidSortOrder(order) {
		WriteAPIError(w, http.StatusBadRequest, "invalid_sort", "Unknown sort order: "+order)
		return
	}
	records, err := h.Store.FindForReview()
	if err != nil {
		writeStageError(w, err)
		return
	}
	repository.SortRecords(records, order)
	out := make([]reviewRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, h.present(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ReviewHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	rec, err := h.Store.GetByID(id)
	if err != nil {
		writeStageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present(*rec))
}

func (h *ReviewHandler) SaveEdits(w http.ResponseWriter, r *http.Request) {
	id, curated, ok := h.curatedRequest(w, r)
	if !ok {
		return
	}
	updated, err := h.Publisher.SaveEdits(id, curated)
	if err != nil {
		writeStageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present(*updated))
}

func (h *ReviewHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, curated, ok := h.curatedRequest(w, r)
	if !ok {
		return
	}
	updated, err := h.Publisher.Approve(id, curated)
	if err != nil {
		if pipeline.IsRetryable(err) {
			log.Printf("handlers.review: approve record %d failed, retry is safe: %v", id, err)
		}
		writeStageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present(*updated))
}

func (h *ReviewHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	if err := h.Publisher.Reject(id); err != nil {
		writeStageError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ReviewHandler) MarkPublished(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	if err := h.Publisher.MarkPublished(id); err != nil {
		writeStageError(w, err)
		return
	}
	rec, err := h.Store.GetByID(id)
	if err != nil {
		writeStageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present(*rec))
}

func (h *ReviewHandler) Summary(w http.ResponseWriter, r *http.Request) {
	counts, err := h.Store.CountByStatus()
	if err != nil {
		writeStageError(w, err)
		return
	}
	out := make(map[string]int64, len(counts))
	for status, n := range counts {
		out[string(status)] = n
	}
	writeJSON(w, http.StatusOK, out)
}

// QueueIngest hands files from the incoming directory to the ingest worker.
// File names are relative to the incoming directory.
func (h *ReviewHandler) QueueIngest(w http.ResponseWriter, r *http.Request) {
	if h.Ingest == nil {
		WriteAPIError(w, http.StatusServiceUnavailable, "ingest_unavailable", "Ingest worker is not running")
		return
	}
	var req pipeline.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_body", "Invalid request body: "+err.Error())
		return
	}
	if len(req.Files) == 0 || strings.TrimSpace(req.Folder) == "" {
		WriteAPIError(w, http.StatusBadRequest, "invalid_body", "Missing required fields: files and folder")
		return
	}

	resp := ingestResponse{Queued: []string{}, Skipped: []string{}}
	for _, name := range req.Files {
		src, ok := h.incomingPath(name)
		if !ok {
			WriteAPIError(w, http.StatusBadRequest, "invalid_path", "Invalid file name: "+name)
			return
		}
		job := workers.IngestJob{SourcePath: src, Subject: req.Subject, Location: req.Location, Folder: req.Folder}
		if h.Ingest.QueueJob(job) {
			resp.Queued = append(resp.Queued, name)
		} else {
			resp.Skipped = append(resp.Skipped, name)
		}
	}
	resp.Pending = h.Ingest.PendingCount()
	writeJSON(w, http.StatusAccepted, resp)
}

func (h *ReviewHandler) ListFolders(w http.ResponseWriter, r *http.Request) {
	names := h.Folders.DisplayNames()
	out := make([]folderEntry, 0, len(names))
	for _, display := range names {
		out = append(out, folderEntry{Key: h.Folders.Resolve(display), Display: display})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ReviewHandler) ListLocations(w http.ResponseWriter, r *http.Request) {
	if h.Locations == nil {
		writeJSON(w, http.StatusOK, []string{})
		return
	}
	writeJSON(w, http.StatusOK, h.Locations.All())
}

// curatedRequest reads the record id and a curated-fields body. Fields the
// body leaves out keep the record's current values.
func (h *ReviewHandler) curatedRequest(w http.ResponseWriter, r *http.Request) (uint, pipeline.CuratedFields, bool) {
	id, ok := recordID(w, r)
	if !ok {
		return 0, pipeline.CuratedFields{}, false
	}
	rec, err := h.Store.GetByID(id)
	if err != nil {
		writeStageError(w, err)
		return 0, pipeline.CuratedFields{}, false
	}
	curated := pipeline.CuratedFrom(*rec)
	if err := json.NewDecoder(r.Body).Decode(&curated); err != nil && !errors.Is(err, io.EOF) {
		WriteAPIError(w, http.StatusBadRequest, "invalid_body", "Invalid request body: "+err.Error())
		return 0, pipeline.CuratedFields{}, false
	}
	return id, curated, true
}

func (h *ReviewHandler) present(rec models.PhotoRecord) reviewRecord {
	// QC_Status is derived data; never trust a stored value that disagrees with QR
	if rec.QR != nil {
		status := scoring.Classify(rec.QR)
		rec.QCStatus = &status
	}
	out := reviewRecord{PhotoRecord: rec, FolderKey: h.Folders.Resolve(rec.Folder)}
	if rec.Status() == models.StatusPending && h.OriginalsRoot != "" {
		if rel, err := filepath.Rel(h.OriginalsRoot, rec.Path); err == nil && !strings.HasPrefix(rel, "..") {
			out.PreviewURL = "/api/previews/" + filepath.ToSlash(rel)
		}
	}
	return out
}

func (h *ReviewHandler) incomingPath(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, "..") || filepath.IsAbs(name) {
		return "", false
	}
	return filepath.Join(h.IncomingDir, filepath.FromSlash(name)), true
}

func recordID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		WriteAPIError(w, http.StatusBadRequest, "invalid_id", "Invalid record ID: "+raw)
		return 0, false
	}
	return uint(id), true
}
