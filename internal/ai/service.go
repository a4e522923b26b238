package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/lookscore/internal/analysis"
	"github.com/kiranshivaraju/lookscore/internal/audit"
	"github.com/kiranshivaraju/lookscore/internal/metrics"
	"github.com/kiranshivaraju/lookscore/internal/store"
	"github.com/kiranshivaraju/lookscore/pkg/models"
)

const recordTimeout = 5 * time.Second

// AnalysisService runs analysis jobs: it accepts requests, drives each job
// through the model gateway in a background goroutine and serves job status.
type AnalysisService struct {
	gateway  models.ModelGateway
	store    store.JobStore
	recorder audit.Recorder
	ttl      time.Duration
	now      func() time.Time

	wg sync.WaitGroup
}

// Option configures an AnalysisService.
type Option func(*AnalysisService)

// WithRecorder sets where terminal outcomes are recorded. Defaults to audit.NopRecorder.
func WithRecorder(r audit.Recorder) Option {
	return func(s *AnalysisService) { s.recorder = r }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *AnalysisService) { s.now = now }
}

// NewAnalysisService creates a new AnalysisService. Jobs older than ttl are
// reported as not found and removed.
func NewAnalysisService(gateway models.ModelGateway, st store.JobStore, ttl time.Duration, opts ...Option) *AnalysisService {
	s := &AnalysisService{
		gateway:  gateway,
		store:    st,
		recorder: audit.NopRecorder{},
		ttl:      ttl,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidateRequest checks the presence and enum constraints of a request.
// Category values other than the seven known ones and "all" are accepted and
// analysed with the single-category schema.
func ValidateRequest(req models.AnalysisRequest) error {
	if len(req.Images) == 0 {
		return fmt.Errorf("%w: at least one image is required", ErrInvalidRequest)
	}
	for i, img := range req.Images {
		if img == "" {
			return fmt.Errorf("%w: image %d is empty", ErrInvalidRequest, i)
		}
	}
	if req.Category == "" {
		return fmt.Errorf("%w: category is required", ErrInvalidRequest)
	}
	if !models.IsSupportedLanguage(req.Language) {
		return fmt.Errorf("%w: language must be one of en, tr", ErrInvalidRequest)
	}
	if req.Plan == "" {
		return fmt.Errorf("%w: plan is required", ErrInvalidRequest)
	}
	return nil
}

// Start creates a pending job and dispatches it to a background goroutine.
// Returns the job id immediately without waiting for the model.
func (s *AnalysisService) Start(ctx context.Context, req models.AnalysisRequest) (string, error) {
	if err := ValidateRequest(req); err != nil {
		return "", err
	}

	now := s.now()
	job := &models.Job{
		ID:        newJobID(),
		Status:    models.JobStatusPending,
		Variant:   models.VariantFor(req.Category),
		Category:  req.Category,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.Create(ctx, job); err != nil {
		return "", fmt.Errorf("creating job: %w", err)
	}
	metrics.JobsStarted.Inc()

	slog.Info("analysis job created",
		"job_id", job.ID,
		"variant", job.Variant,
		"category", req.Category,
		"language", req.Language,
		"plan", req.Plan,
		"images", len(req.Images),
	)

	s.wg.Add(1)
	go s.run(job, req)

	return job.ID, nil
}

// Status returns the poll view of a job. Unknown ids and jobs older than the
// TTL both read as failed with reason not_found; stale jobs are deleted on
// the way.
func (s *AnalysisService) Status(ctx context.Context, id string) (models.JobStatus, error) {
	job, err := s.store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return notFoundStatus(), nil
	}
	if err != nil {
		return models.JobStatus{}, fmt.Errorf("reading job: %w", err)
	}

	if s.expired(job) {
		s.evict(ctx, job.ID)
		return notFoundStatus(), nil
	}

	return models.JobStatus{
		Status: job.Status,
		Result: job.Result,
		Error:  job.Error,
	}, nil
}

// Sweep deletes every job older than the TTL and returns how many it removed.
func (s *AnalysisService) Sweep(ctx context.Context) (int, error) {
	jobs, err := s.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing jobs: %w", err)
	}
	removed := 0
	for _, job := range jobs {
		if !s.expired(job) {
			continue
		}
		s.evict(ctx, job.ID)
		removed++
	}
	return removed, nil
}

// RunSweeper calls Sweep every interval until ctx is cancelled.
func (s *AnalysisService) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Sweep(ctx)
			if err != nil {
				slog.Warn("job sweep failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("job sweep removed stale jobs", "count", n)
			}
		}
	}
}

// Wait blocks until every running job goroutine has returned or ctx is done.
func (s *AnalysisService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *AnalysisService) expired(job *models.Job) bool {
	return s.now().Sub(job.CreatedAt) > s.ttl
}

func (s *AnalysisService) evict(ctx context.Context, id string) {
	if err := s.store.Delete(ctx, id); err != nil {
		slog.Warn("failed to evict job", "job_id", id, "error", err)
		return
	}
	metrics.JobsEvicted.Inc()
	slog.Info("job evicted", "job_id", id)
}

func notFoundStatus() models.JobStatus {
	return models.JobStatus{Status: models.JobStatusFailed, Error: models.ReasonNotFound}
}

// run drives one job to a terminal state. It owns the job: no other code
// writes it after Start. Runs on a background context so the HTTP request
// finishing does not cancel the model call.
func (s *AnalysisService) run(job *models.Job, req models.AnalysisRequest) {
	defer s.wg.Done()
	metrics.JobsInFlight.Inc()
	defer metrics.JobsInFlight.Dec()

	ctx := context.Background()
	started := time.Now()
	attempts := 0
	finished := false

	end := func(value any, reason string) {
		finished = true
		s.finish(ctx, job, req, value, reason, attempts, started)
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in analysis job", "error", r, "job_id", job.ID)
			if !finished {
				end(nil, models.ReasonInternalError)
			}
		}
	}()

	job.Status = models.JobStatusProcessing
	job.UpdatedAt = s.now()
	if err := s.store.Set(ctx, job); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			slog.Warn("job evicted before processing", "job_id", job.ID)
			return
		}
		slog.Error("failed to mark job processing", "job_id", job.ID, "error", err)
		job.Status = models.JobStatusPending
		end(nil, models.ReasonStoreUnavailable)
		return
	}

	validate := analysis.ValidatorFor(job.Variant)

	attempts = 1
	value, valid, err := s.attempt(ctx, job.ID, req, attempts, validate)
	if err == nil && valid {
		end(value, "")
		return
	}

	attempts = 2
	value, valid, err = s.attempt(ctx, job.ID, req, attempts, validate)
	switch {
	case err != nil:
		end(nil, models.FailureReason(err))
	case !valid:
		end(nil, models.ReasonSchemaValidationFailed)
	default:
		end(value, "")
	}
}

// attempt makes one gateway call. The second attempt asks for the strict schema.
func (s *AnalysisService) attempt(ctx context.Context, jobID string, req models.AnalysisRequest, n int, validate analysis.Validator) (any, bool, error) {
	label := strconv.Itoa(n)
	strict := n > 1

	start := time.Now()
	value, err := s.gateway.Call(ctx, req, strict)
	elapsed := time.Since(start)
	metrics.ModelCallDuration.WithLabelValues(label).Observe(elapsed.Seconds())

	if err != nil {
		metrics.ModelCalls.WithLabelValues(label, "error").Inc()
		attrs := []any{
			"job_id", jobID,
			"attempt", n,
			"gateway", s.gateway.Name(),
			"reason", models.FailureReason(err),
			"duration_ms", elapsed.Milliseconds(),
		}
		var gwErr *models.GatewayError
		if errors.As(err, &gwErr) && gwErr.Detail != "" {
			attrs = append(attrs, "detail", gwErr.Detail)
		}
		slog.Warn("model call failed", attrs...)
		return nil, false, err
	}

	valid := validate(value)
	outcome := "valid"
	if !valid {
		outcome = "invalid"
	}
	metrics.ModelCalls.WithLabelValues(label, outcome).Inc()
	slog.Info("model call finished",
		"job_id", jobID,
		"attempt", n,
		"strict", strict,
		"outcome", outcome,
		"duration_ms", elapsed.Milliseconds(),
	)
	return value, valid, nil
}

// finish writes the terminal state. An empty reason means success with value.
func (s *AnalysisService) finish(ctx context.Context, job *models.Job, req models.AnalysisRequest, value any, reason string, attempts int, started time.Time) {
	if reason == "" {
		raw, err := json.Marshal(value)
		if err != nil {
			slog.Error("failed to encode analysis result", "job_id", job.ID, "error", err)
			reason = models.ReasonInternalError
		} else {
			job.Status = models.JobStatusSucceeded
			job.Result = raw
			job.Error = ""
		}
	}
	if reason != "" {
		job.Status = models.JobStatusFailed
		job.Result = nil
		job.Error = reason
	}
	job.UpdatedAt = s.now()

	// An outcome the store never saw is not counted or recorded.
	if err := s.store.Set(ctx, job); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			slog.Warn("job evicted before completion", "job_id", job.ID, "status", job.Status)
		} else {
			slog.Error("failed to store job result", "job_id", job.ID, "status", job.Status, "error", err)
		}
		return
	}

	metrics.JobsFinished.WithLabelValues(job.Status).Inc()
	slog.Info("analysis job finished",
		"job_id", job.ID,
		"status", job.Status,
		"reason", job.Error,
		"attempts", attempts,
		"duration_ms", time.Since(started).Milliseconds(),
	)

	recCtx, cancel := context.WithTimeout(ctx, recordTimeout)
	defer cancel()
	err := s.recorder.Record(recCtx, models.AnalysisOutcome{
		JobID:      job.ID,
		Variant:    job.Variant,
		Category:   req.Category,
		Language:   req.Language,
		Plan:       req.Plan,
		ImageCount: len(req.Images),
		Status:     job.Status,
		Error:      job.Error,
		Attempts:   attempts,
		Gateway:    s.gateway.Name(),
		CreatedAt:  job.CreatedAt,
		FinishedAt: job.UpdatedAt,
	})
	if err != nil {
		slog.Warn("failed to record analysis outcome", "job_id", job.ID, "error", err)
	}
}

// newJobID returns a time-ordered UUIDv7, falling back to a random v4.
func newJobID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
