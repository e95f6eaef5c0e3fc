package workers

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camden-git/photoqueue/models"
	"github.com/camden-git/photoqueue/pipeline"
)

type blockingIngester struct {
	mu      sync.Mutex
	release chan struct{}
	seen    []string
	reqs    []pipeline.IngestRequest
	fail    map[string]bool
}

func (b *blockingIngester) IngestFile(src string, req pipeline.IngestRequest) (*models.PhotoRecord, error) {
	if b.release != nil {
		<-b.release
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seen = append(b.seen, src)
	b.reqs = append(b.reqs, req)
	if b.fail[src] {
		return nil, errors.New("boom")
	}
	return &models.PhotoRecord{ID: uint(len(b.seen)), FileName: src}, nil
}

func (b *blockingIngester) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.seen)
}

func TestIngestWorker_ProcessesInOrder(t *testing.T) {
	ing := &blockingIngester{fail: map[string]bool{"/in/b.jpg": true}}
	w := NewIngestWorker(ing, 10)
	defer w.Stop()

	var mu sync.Mutex
	var errs []error
	w.OnDone = func(job IngestJob, rec *models.PhotoRecord, err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	for _, p := range []string{"/in/a.jpg", "/in/b.jpg", "/in/c.jpg"} {
		require.True(t, w.QueueJob(IngestJob{SourcePath: p, Folder: "Animals/Cats", Subject: "Tom"}))
	}
	require.Eventually(t, func() bool { return ing.count() == 3 && w.PendingCount() == 0 }, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"/in/a.jpg", "/in/b.jpg", "/in/c.jpg"}, ing.seen)
	assert.Equal(t, "Animals/Cats", ing.reqs[0].Folder)
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, errs, 3)
	assert.Error(t, errs[1])
}

func TestIngestWorker_DedupesPendingFile(t *testing.T) {
	ing := &blockingIngester{release: make(chan struct{})}
	w := NewIngestWorker(ing, 10)

	assert.True(t, w.QueueJob(IngestJob{SourcePath: "/in/a.jpg"}))
	assert.False(t, w.QueueJob(IngestJob{SourcePath: "/in/./a.jpg"}), "same file while pending")
	assert.Equal(t, 1, w.PendingCount())

	close(ing.release)
	require.Eventually(t, func() bool { return w.PendingCount() == 0 }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, w.QueueJob(IngestJob{SourcePath: "/in/a.jpg"}), "queued again once done")
	require.Eventually(t, func() bool { return ing.count() == 2 }, 2*time.Second, 5*time.Millisecond)
	w.Stop()
}

func TestIngestWorker_QueueFull(t *testing.T) {
	ing := &blockingIngester{release: make(chan struct{})}
	w := NewIngestWorker(ing, 1)
	defer func() {
		close(ing.release)
		w.Stop()
	}()

	require.True(t, w.QueueJob(IngestJob{SourcePath: "/in/1.jpg"}))
	// wait for the worker to pick up the first job so the buffer is empty again
	require.Eventually(t, func() bool { return len(w.JobQueue) == 0 }, 2*time.Second, 5*time.Millisecond)
	require.True(t, w.QueueJob(IngestJob{SourcePath: "/in/2.jpg"}))
	assert.False(t, w.QueueJob(IngestJob{SourcePath: "/in/3.jpg"}))
	assert.Equal(t, 2, w.PendingCount())
}
