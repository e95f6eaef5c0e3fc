package workers

import (
	"log"
	"path/filepath"
	"sync"

	"github.com/camden-git/photoqueue/models"
	"github.com/camden-git/photoqueue/pipeline"
)

type IngestJob struct {
	SourcePath string
	Subject    string
	Location   string
	Folder     string // display name
}

// FileIngester is satisfied by *pipeline.Ingestor.
type FileIngester interface {
	IngestFile(src string, req pipeline.IngestRequest) (*models.PhotoRecord, error)
}

// IngestWorker runs ingestion off the request path. A single worker keeps
// record creation sequential; Pending stops the same file being queued twice.
type IngestWorker struct {
	JobQueue chan IngestJob
	Ingester FileIngester
	Wg       sync.WaitGroup
	StopChan chan struct{}
	Pending  map[string]bool
	Mutex    sync.Mutex

	// OnDone, when set, is called after each job
	OnDone func(job IngestJob, rec *models.PhotoRecord, err error)
}

func NewIngestWorker(ingester FileIngester, queueSize int) *IngestWorker {
	if queueSize <= 0 {
		queueSize = 100
	}
	w := &IngestWorker{
		JobQueue: make(chan IngestJob, queueSize),
		Ingester: ingester,
		StopChan: make(chan struct{}),
		Pending:  make(map[string]bool),
	}
	w.Wg.Add(1)
	go w.worker()
	log.Printf("workers.ingest: started with queue size %d", queueSize)
	return w
}

func (w *IngestWorker) worker() {
	defer w.Wg.Done()
	for {
		select {
		case job, ok := <-w.JobQueue:
			if !ok {
				log.Printf("workers.ingest: stopping, job queue closed")
				return
			}
			w.process(job)
		case <-w.StopChan:
			log.Printf("workers.ingest: stopping, stop signal received")
			return
		}
	}
}

func (w *IngestWorker) process(job IngestJob) {
	key := pendingKey(job.SourcePath)
	defer func() {
		w.Mutex.Lock()
		delete(w.Pending, key)
		w.Mutex.Unlock()
	}()

	req := pipeline.IngestRequest{Subject: job.Subject, Location: job.Location, Folder: job.Folder}
	rec, err := w.Ingester.IngestFile(job.SourcePath, req)
	if err != nil {
		log.Printf("workers.ingest: ERROR ingesting %s: %v", job.SourcePath, err)
	}
	if w.OnDone != nil {
		w.OnDone(job, rec, err)
	}
}

// QueueJob queues a file unless it is already pending or the queue is full.
func (w *IngestWorker) QueueJob(job IngestJob) bool {
	key := pendingKey(job.SourcePath)

	w.Mutex.Lock()
	if w.Pending[key] {
		w.Mutex.Unlock()
		return false
	}
	w.Pending[key] = true
	w.Mutex.Unlock()

	select {
	case w.JobQueue <- job:
		log.Printf("workers.ingest: queued %s", job.SourcePath)
		return true
	default:
		log.Printf("workers.ingest: WARNING job queue full, dropping %s", job.SourcePath)
		w.Mutex.Lock()
		delete(w.Pending, key)
		w.Mutex.Unlock()
		return false
	}
}

// PendingCount returns the number of queued or running jobs.
func (w *IngestWorker) PendingCount() int {
	w.Mutex.Lock()
	defer w.Mutex.Unlock()
	return len(w.Pending)
}

func (w *IngestWorker) Stop() {
	log.Println("workers.ingest: stopping worker...")
	close(w.StopChan)
	w.Wg.Wait()
	log.Println("workers.ingest: worker stopped")
}

func pendingKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
