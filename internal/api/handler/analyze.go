package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kiranshivaraju/lookscore/internal/ai"
	"github.com/kiranshivaraju/lookscore/internal/api/response"
	"github.com/kiranshivaraju/lookscore/pkg/models"
)

// Analyzer defines the interface the analysis handlers depend on.
type Analyzer interface {
	Start(ctx context.Context, req models.AnalysisRequest) (string, error)
	Status(ctx context.Context, id string) (models.JobStatus, error)
}

type startResponse struct {
	JobID string `json:"jobId"`
}

// NewStartAnalysisHandler returns an http.HandlerFunc for POST /api/v1/analyses.
func NewStartAnalysisHandler(svc Analyzer, maxBodyBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

		var req models.AnalysisRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				response.Error(w, http.StatusRequestEntityTooLarge, "REQUEST_TOO_LARGE",
					"Request body exceeds the size limit", map[string]int64{"limit_bytes": tooLarge.Limit})
				return
			}
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		jobID, err := svc.Start(r.Context(), req)
		if err != nil {
			if errors.Is(err, ai.ErrInvalidRequest) {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", validationMessage(err), nil)
				return
			}
			slog.Error("failed to start analysis", "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		response.Accepted(w, startResponse{JobID: jobID})
	}
}

// NewAnalysisStatusHandler returns an http.HandlerFunc for GET /api/v1/analyses/{jobID}.
// Unknown and expired jobs answer 200 with status failed and error not_found.
func NewAnalysisStatusHandler(svc Analyzer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "jobID")

		status, err := svc.Status(r.Context(), jobID)
		if err != nil {
			slog.Error("failed to read job status", "job_id", jobID, "error", err)
			response.Error(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE",
				"Job status is temporarily unavailable", nil)
			return
		}

		response.JSON(w, status)
	}
}

// validationMessage strips the sentinel prefix so clients see only the field problem.
func validationMessage(err error) string {
	return strings.TrimPrefix(err.Error(), ai.ErrInvalidRequest.Error()+": ")
}
