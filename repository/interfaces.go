package repository

import (
	"github.com/camden-git/photoqueue/models"
	"github.com/camden-git/photoqueue/scoring"
)

// ReviewQueueStore defines the methods for review queue data operations.
// Every write is a single-row statement committed immediately.
type ReviewQueueStore interface {
	Create(record *models.PhotoRecord) error
	GetByID(id uint) (*models.PhotoRecord, error)
	FindPendingScoring() ([]models.PhotoRecord, error)
	FindForReview() ([]models.PhotoRecord, error)
	FindApproved() ([]models.PhotoRecord, error)
	FindByStatuses(statuses ...models.ReviewStatus) ([]models.PhotoRecord, error)
	FindByNaturalKey(folder, fileName string) ([]models.PhotoRecord, error)
	UpdateFields(id uint, fields map[string]interface{}) error
	UpdateFieldsWhereStatus(id uint, expected []models.ReviewStatus, fields map[string]interface{}) error
	SaveScores(id uint, s scoring.Scores) error
	CountByStatus() (map[models.ReviewStatus]int64, error)
	Delete(id uint) error
	DeleteByStatus(status models.ReviewStatus) (int64, error)
	DeleteAll() (int64, error)
}
