package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"gorm.io/gorm"

	"github.com/camden-git/photoqueue/models"
	"github.com/camden-git/photoqueue/pipeline"
	"github.com/camden-git/photoqueue/repository"
)

// APIErrorDetail represents a single error in the standardized error response.
type APIErrorDetail struct {
	Code   string `json:"code"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// APIErrorResponse represents the standardized error response body.
type APIErrorResponse struct {
	Errors []APIErrorDetail `json:"errors"`
}

// WriteAPIError writes a standardized error response with the given HTTP status, code, and detail.
func WriteAPIError(w http.ResponseWriter, httpStatus int, code string, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)

	resp := APIErrorResponse{
		Errors: []APIErrorDetail{
			{
				Code:   code,
				Status: strconv.Itoa(httpStatus),
				Detail: detail,
			},
		},
	}

	_ = json.NewEncoder(w).Encode(resp)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("handlers: error encoding JSON response: %v", err)
		}
	}
}

// writeStageError maps a pipeline or store error onto an API error response.
func writeStageError(w http.ResponseWriter, err error) {
	var renderErr *pipeline.RenderError
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		WriteAPIError(w, http.StatusNotFound, "record_not_found", err.Error())
	case errors.Is(err, models.ErrInvalidTransition), errors.Is(err, repository.ErrStatusChanged):
		WriteAPIError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, pipeline.ErrNameTaken):
		WriteAPIError(w, http.StatusConflict, "name_taken", err.Error())
	case errors.Is(err, pipeline.ErrInvalidCuratedFields), errors.Is(err, repository.ErrQCStatusWithoutQR),
		errors.Is(err, repository.ErrIncompleteScores):
		WriteAPIError(w, http.StatusBadRequest, "invalid_fields", err.Error())
	case errors.Is(err, models.ErrMissingCaptureDate):
		WriteAPIError(w, http.StatusUnprocessableEntity, "missing_capture_date", err.Error())
	case errors.As(err, &renderErr):
		log.Printf("handlers: %v", err)
		WriteAPIError(w, http.StatusBadGateway, "render_failed", err.Error())
	default:
		log.Printf("handlers: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
