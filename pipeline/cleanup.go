package pipeline

import (
	"log"

	"github.com/camden-git/photoqueue/models"
	"github.com/camden-git/photoqueue/repository"
)

// Cleanup retires records from the local queue.
type Cleanup struct {
	Store repository.ReviewQueueStore
}

func NewCleanup(store repository.ReviewQueueStore) *Cleanup {
	return &Cleanup{Store: store}
}

// PurgeUploaded deletes every record whose replication has been confirmed.
func (c *Cleanup) PurgeUploaded() (int64, error) {
	n, err := c.Store.DeleteByStatus(models.StatusUploaded)
	if err != nil {
		return 0, err
	}
	log.Printf("pipeline.cleanup: removed %d uploaded record(s)", n)
	return n, nil
}

// ClearQueue deletes every record regardless of status.
func (c *Cleanup) ClearQueue() (int64, error) {
	n, err := c.Store.DeleteAll()
	if err != nil {
		return 0, err
	}
	log.Printf("pipeline.cleanup: cleared %d record(s) from the review queue", n)
	return n, nil
}
