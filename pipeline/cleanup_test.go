package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanup_PurgeUploadedKeepsOthers(t *testing.T) {
	env := newTestEnv(t)
	uploaded := approveForUpload(t, env, "tom.jpg")
	pending := env.addWorkingRecord(t, "felix.jpg")
	_, _, err := newTestUploader(env, newFakeCatalog(), newFakeCatalog(), newFakeFileStore()).Run()
	require.NoError(t, err)

	c := NewCleanup(env.repo)
	n, err := c.PurgeUploaded()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = env.repo.GetByID(uploaded.ID)
	assert.Error(t, err)
	_, err = env.repo.GetByID(pending.ID)
	assert.NoError(t, err)

	n, err = c.ClearQueue()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSummary_String(t *testing.T) {
	s := Summary{Stage: "upload", ErrorLog: "data/upload_errors.log"}
	s.Add(Result{})
	s.Add(Result{Err: &ReplicationError{Step: StepMirror, Err: assert.AnError}})
	assert.Equal(t, "upload: processed=2 succeeded=1 failed=1 (see data/upload_errors.log)", s.String())

	s = Summary{Stage: "score"}
	s.Add(Result{Err: &DecodeError{Err: assert.AnError}})
	assert.Equal(t, "score: processed=1 succeeded=0 failed=1 skipped=1", s.String())
}
