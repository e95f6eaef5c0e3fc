package handlers

import (
	"bytes"
	"encoding/json"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/camden-git/photoqueue/database"
	"github.com/camden-git/photoqueue/lookup"
	"github.com/camden-git/photoqueue/media"
	"github.com/camden-git/photoqueue/models"
	"github.com/camden-git/photoqueue/pipeline"
	"github.com/camden-git/photoqueue/repository"
	"github.com/camden-git/photoqueue/scoring"
	"github.com/camden-git/photoqueue/workers"
)

type fakeQueue struct {
	mu   sync.Mutex
	jobs []workers.IngestJob
	seen map[string]bool
}

func (q *fakeQueue) QueueJob(job workers.IngestJob) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.seen == nil {
		q.seen = make(map[string]bool)
	}
	if q.seen[job.SourcePath] {
		return false
	}
	q.seen[job.SourcePath] = true
	q.jobs = append(q.jobs, job)
	return true
}

func (q *fakeQueue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

type handlerEnv struct {
	root    string
	repo    *repository.ReviewRepository
	handler *ReviewHandler
	queue   *fakeQueue
	router  http.Handler
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()
	root := t.TempDir()
	db, err := database.InitGormDB(filepath.Join(root, "review.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseGormDB(db) })

	files, err := media.NewLocalStorage(map[media.AssetType]string{
		media.AssetTypeOriginal: filepath.Join(root, "originals"),
		media.AssetTypeArchive:  filepath.Join(root, "archive"),
		media.AssetTypeWeb:      filepath.Join(root, "web"),
		media.AssetTypeDesktop:  filepath.Join(root, "desktop"),
		media.AssetTypeRejected: filepath.Join(root, "rejected"),
	})
	require.NoError(t, err)

	repo := repository.NewReviewRepository(db)
	folders := lookup.NewFolderMap(map[string]string{"cats": "Animals/Cats", "dogs": "Animals/Dogs"})
	renderer := media.NewWatermarkRenderer(media.RenderOptions{WebMaxSize: 200, ThumbMaxSize: 50, DesktopMaxSize: 400})
	locations, err := lookup.LoadLocations(filepath.Join(root, "locations.json"))
	require.NoError(t, err)

	publisher := pipeline.NewPublisher(repo, files, renderer, folders, "https://photos.example.com/images")
	publisher.Locations = locations
	queue := &fakeQueue{}
	h := &ReviewHandler{
		Store:         repo,
		Publisher:     publisher,
		Ingest:        queue,
		Folders:       folders,
		Locations:     locations,
		IncomingDir:   filepath.Join(root, "incoming"),
		OriginalsRoot: filepath.Join(root, "originals"),
	}
	r := chi.NewRouter()
	r.Route("/api", h.Routes)
	return &handlerEnv{root: root, repo: repo, handler: h, queue: queue, router: r}
}

func (e *handlerEnv) addRecord(t *testing.T, name string) *models.PhotoRecord {
	t.Helper()
	path := filepath.Join(e.root, "originals", "2024", "cats", name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, imaging.Save(imaging.New(400, 300, color.NRGBA{90, 100, 110, 255}), path))
	dt := "2024-05-01 10:00:00"
	rec := &models.PhotoRecord{Path: path, DateTime: &dt, Folder: "Animals/Cats", FileName: name}
	require.NoError(t, e.repo.Create(rec))
	require.NoError(t, e.repo.SaveScores(rec.ID, scoring.Score(scoring.Metrics{Aesthetic: 7, Blur: 250, Brightness: 130, Contrast: 45})))
	return rec
}

func (e *handlerEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decodeRecord(t *testing.T, rr *httptest.ResponseRecorder) reviewRecord {
	t.Helper()
	var out reviewRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func TestListForReview_DerivesQCStatusAndPreview(t *testing.T) {
	env := newHandlerEnv(t)
	rec := env.addRecord(t, "tom.jpg")
	// a stale QC_Status must not leak to the UI
	require.NoError(t, env.repo.DB.Exec(`UPDATE review_queue SET QC_Status = 'Bad' WHERE id = ?`, rec.ID).Error)

	rr := env.do(t, http.MethodGet, "/api/review", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var out []reviewRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.Len(t, out, 1)
	require.NotNil(t, out[0].QCStatus)
	assert.Equal(t, scoring.Classify(out[0].QR), *out[0].QCStatus)
	assert.Equal(t, "cats", out[0].FolderKey)
	assert.Equal(t, "/api/previews/2024/cats/tom.jpg", out[0].PreviewURL)
}

func TestListForReview_Sort(t *testing.T) {
	env := newHandlerEnv(t)
	env.addRecord(t, "img10.jpg")
	env.addRecord(t, "img2.jpg")

	rr := env.do(t, http.MethodGet, "/api/review?sort=filename_nat", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var out []reviewRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.Len(t, out, 2)
	assert.Equal(t, "img2.jpg", out[0].FileName)

	rr = env.do(t, http.MethodGet, "/api/review?sort=size", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetRecord_NotFoundAndBadID(t *testing.T) {
	env := newHandlerEnv(t)

	rr := env.do(t, http.MethodGet, "/api/review/999", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/review/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var apiErr APIErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &apiErr))
	require.Len(t, apiErr.Errors, 1)
	assert.Equal(t, "invalid_id", apiErr.Errors[0].Code)
	assert.Equal(t, "400", apiErr.Errors[0].Status)
}

func TestSaveEdits_KeepsPendingAndMergesFields(t *testing.T) {
	env := newHandlerEnv(t)
	rec := env.addRecord(t, "tom.jpg")

	rr := env.do(t, http.MethodPut, "/api/review/1", map[string]string{"caption": "Sleeping", "location": "Garden"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	out := decodeRecord(t, rr)
	assert.Equal(t, rec.ID, out.ID)
	assert.Equal(t, "Sleeping", out.Caption)
	assert.Equal(t, "tom.jpg", out.FileName)
	assert.Equal(t, models.StatusPending, out.Status())
	assert.Equal(t, []string{"Garden"}, env.handler.Locations.All())
}

func TestApprove_PublishesAndRejectsSecondAttempt(t *testing.T) {
	env := newHandlerEnv(t)
	env.addRecord(t, "tom.jpg")

	rr := env.do(t, http.MethodPost, "/api/review/1/approve", map[string]string{"folder": "Animals/Cats", "file_name": "tom.jpg"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	out := decodeRecord(t, rr)
	assert.Equal(t, models.StatusApproved, out.Status())
	assert.Equal(t, "https://photos.example.com/images/2024/cats/tom.jpg", out.Path)
	assert.Empty(t, out.PreviewURL)

	rr = env.do(t, http.MethodPost, "/api/review/1/approve", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = env.do(t, http.MethodPost, "/api/review/1/publish", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, models.StatusPublished, decodeRecord(t, rr).Status())
}

func TestApprove_NameHeldByAnotherRecordConflicts(t *testing.T) {
	env := newHandlerEnv(t)
	env.addRecord(t, "tom.jpg")
	second := env.addRecord(t, "tom-2.jpg")

	body := map[string]string{"folder": "Animals/Cats", "file_name": "tom.jpg"}
	rr := env.do(t, http.MethodPost, "/api/review/1/approve", body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = env.do(t, http.MethodPost, "/api/review/2/approve", body)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "name_taken")
	assert.FileExists(t, second.Path)
}

func TestApprove_InvalidFileName(t *testing.T) {
	env := newHandlerEnv(t)
	env.addRecord(t, "tom.jpg")

	rr := env.do(t, http.MethodPost, "/api/review/1/approve", map[string]string{"file_name": "../escape.jpg"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestReject_DeletesRecord(t *testing.T) {
	env := newHandlerEnv(t)
	rec := env.addRecord(t, "tom.jpg")

	rr := env.do(t, http.MethodPost, "/api/review/1/reject", nil)
	require.Equal(t, http.StatusNoContent, rr.Code)
	assert.FileExists(t, filepath.Join(env.root, "rejected", "tom.jpg"))
	assert.NoFileExists(t, rec.Path)

	rr = env.do(t, http.MethodGet, "/api/review/1", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestQueueIngest(t *testing.T) {
	env := newHandlerEnv(t)

	body := pipeline.IngestRequest{Files: []string{"a.jpg", "b.jpg", "a.jpg"}, Subject: "Tom", Folder: "Animals/Cats"}
	rr := env.do(t, http.MethodPost, "/api/ingest", body)
	require.Equal(t, http.StatusAccepted, rr.Code)

	var resp ingestResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, resp.Queued)
	assert.Equal(t, []string{"a.jpg"}, resp.Skipped)
	require.Len(t, env.queue.jobs, 2)
	assert.Equal(t, filepath.Join(env.root, "incoming", "a.jpg"), env.queue.jobs[0].SourcePath)
	assert.Equal(t, "Animals/Cats", env.queue.jobs[0].Folder)

	rr = env.do(t, http.MethodPost, "/api/ingest", pipeline.IngestRequest{Files: []string{"../etc/passwd"}, Folder: "x"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodPost, "/api/ingest", pipeline.IngestRequest{Files: []string{"c.jpg"}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListFoldersAndSummary(t *testing.T) {
	env := newHandlerEnv(t)
	env.addRecord(t, "tom.jpg")

	rr := env.do(t, http.MethodGet, "/api/folders", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var folders []folderEntry
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &folders))
	assert.Equal(t, []folderEntry{{Key: "cats", Display: "Animals/Cats"}, {Key: "dogs", Display: "Animals/Dogs"}}, folders)

	rr = env.do(t, http.MethodGet, "/api/review/summary", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var counts map[string]int64
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &counts))
	assert.Equal(t, int64(1), counts["Pending"])
}

func TestTokenMiddleware(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })
	guarded := TokenMiddleware(string(hash))(ok)

	cases := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic s3cret", "", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", "", http.StatusUnauthorized},
		{"valid header", "Bearer s3cret", "", http.StatusTeapot},
		{"valid query", "", "?token=s3cret", http.StatusTeapot},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/review"+tc.query, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			guarded.ServeHTTP(rr, req)
			assert.Equal(t, tc.want, rr.Code)
		})
	}

	rr := httptest.NewRecorder()
	TokenMiddleware("")(ok).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rr.Code)
}

func TestAssetServer(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "2024", "cats"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "2024", "cats", "tom.jpg"), []byte("jpeg"), 0644))

	r := chi.NewRouter()
	r.Get("/api/web/*", AssetServer(root, "/api/web/", time.Hour))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/web/2024/cats/tom.jpg", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "jpeg", rr.Body.String())
	assert.Equal(t, "public, max-age=3600", rr.Header().Get("Cache-Control"))

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/web/2024/cats/missing.jpg", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/web/2024/cats", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
