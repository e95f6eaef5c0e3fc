package pipeline

import (
	"fmt"
	"log"

	"github.com/camden-git/photoqueue/models"
	"github.com/camden-git/photoqueue/realtime"
	"github.com/camden-git/photoqueue/repository"
	"github.com/camden-git/photoqueue/scoring"
)

// Measurer produces the raw metrics of an image file.
type Measurer interface {
	Measure(path string) (scoring.Metrics, error)
}

// ScoreStage fills the scoring fields of every record that lacks them.
type ScoreStage struct {
	Store    repository.ReviewQueueStore
	Measurer Measurer
	Events   realtime.Broadcaster

	// OnProgress is called after each record with the number done so far.
	OnProgress func(done, total int)
}

func NewScoreStage(store repository.ReviewQueueStore, measurer Measurer) *ScoreStage {
	return &ScoreStage{Store: store, Measurer: measurer}
}

// Run scores the pending records in id order. Only failing to list the
// pending records is returned as an error; per-image failures are in the results.
func (s *ScoreStage) Run() (Summary, []Result, error) {
	summary := Summary{Stage: "score"}
	pending, err := s.Store.FindPendingScoring()
	if err != nil {
		return summary, nil, err
	}
	log.Printf("pipeline.score: %d record(s) pending scoring", len(pending))

	results := make([]Result, 0, len(pending))
	for i := range pending {
		res := s.scoreOne(&pending[i])
		summary.Add(res)
		results = append(results, res)
		if s.OnProgress != nil {
			s.OnProgress(i+1, len(pending))
		}
	}

	log.Printf("pipeline.score: %s", summary)
	return summary, results, nil
}

func (s *ScoreStage) scoreOne(rec *models.PhotoRecord) Result {
	res := Result{ID: rec.ID, FileName: rec.FileName, Record: rec}

	metrics, err := s.Measurer.Measure(rec.Path)
	if err != nil {
		res.Err = &DecodeError{ID: rec.ID, Path: rec.Path, Err: err}
		log.Printf("pipeline.score: skipping record %d: %v", rec.ID, err)
		return res
	}

	scores := scoring.Score(metrics)
	if err := s.Store.SaveScores(rec.ID, scores); err != nil {
		res.Err = fmt.Errorf("failed to save scores: %w", err)
		log.Printf("pipeline.score: record %d: %v", rec.ID, res.Err)
		return res
	}

	rec.NimaScore, rec.BlurScore = &scores.Nima, &scores.Blur
	rec.BrightnessScore, rec.ContrastScore = &scores.Brightness, &scores.Contrast
	rec.QR, rec.QCStatus = &scores.QR, &scores.QCStatus
	realtime.Emit(s.Events, realtime.RecordEvent(realtime.EventRecordScored, rec.ID, rec.FileName, scores.QCStatus, nil))
	return res
}
