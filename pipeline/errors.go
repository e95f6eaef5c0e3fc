// Package pipeline runs the per-record stages of the review queue: scoring,
// review and publication, remote replication, ingest and cleanup.
package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/camden-git/photoqueue/models"
)

// ErrInvalidCuratedFields is returned when Folder or File_Name is unusable.
var ErrInvalidCuratedFields = errors.New("invalid curated fields")

// ErrNameTaken is returned when an approval would publish over files that
// belong to another record with the same Folder and File_Name.
var ErrNameTaken = errors.New("folder and file name already published")

// DecodeError means an image could not be opened or decoded while scoring.
type DecodeError struct {
	ID   uint
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode record %d (%s): %v", e.ID, e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// RenderError means the renderer failed during publication. The record keeps
// its prior status.
type RenderError struct {
	ID       uint
	FileName string
	Err      error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render record %d (%s): %v", e.ID, e.FileName, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Replication steps, in execution order.
const (
	StepCatalog  = "catalog"
	StepTransfer = "transfer"
	StepMirror   = "mirror"
	StepStatus   = "status"
)

// ReplicationError means one of the upload steps failed for a record.
type ReplicationError struct {
	ID       uint
	FileName string
	Step     string
	Err      error
}

func (e *ReplicationError) Error() string {
	return fmt.Sprintf("replicate record %d (%s) at %s: %v", e.ID, e.FileName, e.Step, e.Err)
}

func (e *ReplicationError) Unwrap() error { return e.Err }

// Result is the outcome of one record in a batch. Err is nil on success.
type Result struct {
	ID       uint
	FileName string
	Record   *models.PhotoRecord
	Err      error
}

func (r Result) OK() bool { return r.Err == nil }

// Summary counts a batch's outcomes.
type Summary struct {
	Stage     string
	Processed int
	Succeeded int
	Failed    int
	Skipped   int    // undecodable images, only used by scoring
	ErrorLog  string // where per-record failures were appended, if anywhere
}

// Add folds one result into the counts.
func (s *Summary) Add(r Result) {
	s.Processed++
	switch {
	case r.Err == nil:
		s.Succeeded++
	case isDecodeError(r.Err):
		s.Skipped++
		s.Failed++
	default:
		s.Failed++
	}
}

func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: processed=%d succeeded=%d failed=%d", s.Stage, s.Processed, s.Succeeded, s.Failed)
	if s.Skipped > 0 {
		fmt.Fprintf(&b, " skipped=%d", s.Skipped)
	}
	if s.Failed > 0 && s.ErrorLog != "" {
		fmt.Fprintf(&b, " (see %s)", s.ErrorLog)
	}
	return b.String()
}

func isDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
