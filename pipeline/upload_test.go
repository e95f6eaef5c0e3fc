package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camden-git/photoqueue/models"
)

func approveForUpload(t *testing.T, env *testEnv, name string) *models.PhotoRecord {
	t.Helper()
	rec := env.addWorkingRecord(t, name)
	updated, err := newTestPublisher(env, testRenderer()).Approve(rec.ID, curatedFor(name))
	require.NoError(t, err)
	return updated
}

func newTestUploader(env *testEnv, catalog, mirror *fakeCatalog, files *fakeFileStore) *Uploader {
	u := NewUploader(env.repo, catalog, files, mirror, env.files, env.folders)
	u.RemoteBase = "/public_html/images"
	u.ErrorLog = filepath.Join(env.root, "data", "upload_errors.log")
	return u
}

func TestUploader_ReplicatesAndMarksUploaded(t *testing.T) {
	env := newTestEnv(t)
	rec := approveForUpload(t, env, "tom.jpg")
	catalog, mirror, files := newFakeCatalog(), newFakeCatalog(), newFakeFileStore()
	events := &recordingEvents{}
	u := newTestUploader(env, catalog, mirror, files)
	u.Events = events

	summary, results, err := u.Run()
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)
	require.Len(t, results, 1)
	assert.True(t, results[0].OK())

	assert.Equal(t, []string{
		"/public_html/images/2024/cats/tom.jpg",
		"/public_html/images/2024/thumbs/cats/tom.jpg",
	}, files.puts)

	row, ok := catalog.rows["Animals/Cats\x00tom.jpg"]
	require.True(t, ok, "catalog keeps the display folder")
	assert.Equal(t, rec.Path, row.Path)
	assert.Equal(t, rec.ID, row.QueueID)
	assert.Len(t, mirror.rows, 1)

	got, err := env.repo.GetByID(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUploaded, got.Status())
	assert.Equal(t, []string{"record.uploaded"}, events.types())
	assert.NoFileExists(t, u.ErrorLog)
}

func TestUploader_TransferFailureIsRetriedWithoutDuplicates(t *testing.T) {
	env := newTestEnv(t)
	first := approveForUpload(t, env, "tom.jpg")
	second := approveForUpload(t, env, "felix.jpg")

	catalog, mirror, files := newFakeCatalog(), newFakeCatalog(), newFakeFileStore()
	files.failOn = "/public_html/images/2024/thumbs/cats"
	files.failErr = errors.New("553 permission denied")
	u := newTestUploader(env, catalog, mirror, files)

	summary, results, err := u.Run()
	require.NoError(t, err, "per-record failures are not a run-level error")
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 0, summary.Succeeded)
	assert.Equal(t, 2, summary.Failed)
	assert.Contains(t, summary.String(), u.ErrorLog)

	var rerr *ReplicationError
	require.True(t, errors.As(results[0].Err, &rerr))
	assert.Equal(t, StepTransfer, rerr.Step)
	assert.Empty(t, mirror.rows, "mirror is written only after transfers succeed")

	for _, id := range []uint{first.ID, second.ID} {
		got, err := env.repo.GetByID(id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, got.Status())
	}

	data, err := os.ReadFile(u.ErrorLog)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "file=tom.jpg")
	assert.Contains(t, lines[0], "553 permission denied")
	assert.Contains(t, lines[0], " run=")

	// next run with a healthy store
	files.failOn = ""
	summary, _, err = u.Run()
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Len(t, catalog.rows, 2, "retried rows replace instead of duplicating")
	assert.Equal(t, 4, catalog.calls)
}

func TestUploader_OneBadRecordDoesNotBlockOthers(t *testing.T) {
	env := newTestEnv(t)
	bad := approveForUpload(t, env, "tom.jpg")
	good := approveForUpload(t, env, "felix.jpg")

	// the rendered web file of the first record vanished
	require.NoError(t, os.Remove(filepath.Join(env.root, "web", "2024", "cats", "tom.jpg")))

	catalog, mirror, files := newFakeCatalog(), newFakeCatalog(), newFakeFileStore()
	summary, _, err := newTestUploader(env, catalog, mirror, files).Run()
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, catalog.calls, "a record that cannot be prepared never reaches the catalog")

	gotBad, err := env.repo.GetByID(bad.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, gotBad.Status())
	gotGood, err := env.repo.GetByID(good.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUploaded, gotGood.Status())
}

func TestUploader_CatalogFailureSkipsTransfer(t *testing.T) {
	env := newTestEnv(t)
	approveForUpload(t, env, "tom.jpg")

	catalog, mirror, files := newFakeCatalog(), newFakeCatalog(), newFakeFileStore()
	catalog.err = errors.New("connection refused")
	summary, results, err := newTestUploader(env, catalog, mirror, files).Run()
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	var rerr *ReplicationError
	require.True(t, errors.As(results[0].Err, &rerr))
	assert.Equal(t, StepCatalog, rerr.Step)
	assert.Empty(t, files.puts)
}

func TestUploader_MirrorFailureKeepsApprovedAndRetries(t *testing.T) {
	env := newTestEnv(t)
	rec := approveForUpload(t, env, "tom.jpg")

	catalog, mirror, files := newFakeCatalog(), newFakeCatalog(), newFakeFileStore()
	mirror.err = errors.New("database is locked")
	u := newTestUploader(env, catalog, mirror, files)

	summary, results, err := u.Run()
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, results, 1)
	var rerr *ReplicationError
	require.True(t, errors.As(results[0].Err, &rerr))
	assert.Equal(t, StepMirror, rerr.Step)
	assert.Len(t, catalog.rows, 1)
	assert.Len(t, files.puts, 2)

	got, err := env.repo.GetByID(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status())

	data, err := os.ReadFile(u.ErrorLog)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "file=tom.jpg")
	assert.Contains(t, lines[0], "database is locked")

	mirror.err = nil
	summary, _, err = u.Run()
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Len(t, mirror.rows, 1)
	assert.Len(t, catalog.rows, 1)
	got, err = env.repo.GetByID(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUploaded, got.Status())
}

func TestUploader_PublishedRecordsAreCandidates(t *testing.T) {
	env := newTestEnv(t)
	rec := approveForUpload(t, env, "tom.jpg")
	require.NoError(t, newTestPublisher(env, testRenderer()).MarkPublished(rec.ID))

	summary, _, err := newTestUploader(env, newFakeCatalog(), newFakeCatalog(), newFakeFileStore()).Run()
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
}

func TestUploader_PendingRecordsAreIgnored(t *testing.T) {
	env := newTestEnv(t)
	env.addWorkingRecord(t, "tom.jpg")

	summary, results, err := newTestUploader(env, newFakeCatalog(), newFakeCatalog(), newFakeFileStore()).Run()
	require.NoError(t, err)
	assert.Zero(t, summary.Processed)
	assert.Empty(t, results)
}
