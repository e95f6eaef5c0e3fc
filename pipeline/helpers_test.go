package pipeline

import (
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"

	"github.com/camden-git/photoqueue/database"
	"github.com/camden-git/photoqueue/lookup"
	"github.com/camden-git/photoqueue/media"
	"github.com/camden-git/photoqueue/models"
	"github.com/camden-git/photoqueue/realtime"
	"github.com/camden-git/photoqueue/repository"
	"github.com/camden-git/photoqueue/scoring"
)

type testEnv struct {
	root    string
	repo    *repository.ReviewRepository
	files   *media.LocalStorage
	folders *lookup.FolderMap
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	db, err := database.InitGormDB(filepath.Join(root, "data", "review.db"))
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

	return &testEnv{
		root:    root,
		repo:    repository.NewReviewRepository(db),
		files:   files,
		folders: lookup.NewFolderMap(map[string]string{"cats": "Animals/Cats"}),
	}
}

func writeImage(t *testing.T, path string, w, h int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	img := imaging.New(w, h, color.NRGBA{120, 130, 140, 255})
	require.NoError(t, imaging.Save(img, path))
}

// addWorkingRecord places a working file in the originals tree and queues it.
func (e *testEnv) addWorkingRecord(t *testing.T, name string) *models.PhotoRecord {
	t.Helper()
	path := filepath.Join(e.root, "originals", "2024", "cats", name)
	writeImage(t, path, 800, 400)
	dt := "2024-05-01 10:00:00"
	w, h := 800, 400
	rec := &models.PhotoRecord{
		OriginalFileName: "IMG_0001.JPG",
		Path:             path,
		DateTime:         &dt,
		Width:            &w,
		Height:           &h,
		Folder:           "Animals/Cats",
		FileName:         name,
	}
	require.NoError(t, e.repo.Create(rec))
	scores := scoring.Score(scoring.Metrics{Aesthetic: 8.0, Blur: 300, Brightness: 140, Contrast: 50})
	require.NoError(t, e.repo.SaveScores(rec.ID, scores))
	return rec
}

type failingRenderer struct{ err error }

func (f failingRenderer) Render(string, media.RenderTargets) error { return f.err }

type fakeMeasurer struct {
	metrics map[string]scoring.Metrics
	calls   []string
}

func (f *fakeMeasurer) Measure(path string) (scoring.Metrics, error) {
	f.calls = append(f.calls, path)
	m, ok := f.metrics[path]
	if !ok {
		return scoring.Metrics{}, errors.New("cannot decode")
	}
	return m, nil
}

// fakeCatalog keys rows by Folder+File_Name the way the real stores do.
type fakeCatalog struct {
	mu    sync.Mutex
	rows  map[string]models.CatalogRow
	calls int
	err   error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{rows: make(map[string]models.CatalogRow)}
}

func (f *fakeCatalog) Upsert(row models.CatalogRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.rows[row.Folder+"\x00"+row.FileName] = row
	return nil
}

type fakeFileStore struct {
	dirs    map[string]bool
	puts    []string
	failOn  string // remote dir whose Put fails
	failErr error
}

func newFakeFileStore() *fakeFileStore {
	return &fakeFileStore{dirs: make(map[string]bool)}
}

func (f *fakeFileStore) EnsureDir(dir string) error {
	f.dirs[dir] = true
	return nil
}

func (f *fakeFileStore) Put(localPath, remoteDir, name string) error {
	if _, err := os.Stat(localPath); err != nil {
		return err
	}
	if !f.dirs[remoteDir] {
		return errors.New("remote directory missing: " + remoteDir)
	}
	if f.failOn != "" && remoteDir == f.failOn {
		return f.failErr
	}
	f.puts = append(f.puts, remoteDir+"/"+name)
	return nil
}

type recordingEvents struct{ events []realtime.Event }

func (r *recordingEvents) Broadcast(ev realtime.Event) { r.events = append(r.events, ev) }

func (r *recordingEvents) types() []string {
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}
