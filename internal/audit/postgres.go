// Package audit keeps a durable record of how each analysis job ended.
// Only metadata is stored; results stay in the TTL-bounded job store.
package audit

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/lookscore/pkg/models"
)

var ErrNotFound = errors.New("outcome not found")

// Recorder persists terminal job outcomes.
type Recorder interface {
	Record(ctx context.Context, outcome models.AnalysisOutcome) error
	Ping(ctx context.Context) error
}

// NopRecorder discards outcomes. Used when no database is configured.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, models.AnalysisOutcome) error { return nil }
func (NopRecorder) Ping(context.Context) error                           { return nil }

// PostgresRecorder implements Recorder using pgx/v5.
type PostgresRecorder struct {
	pool *pgxpool.Pool
}

func NewPostgresRecorder(pool *pgxpool.Pool) *PostgresRecorder {
	return &PostgresRecorder{pool: pool}
}

func (r *PostgresRecorder) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Record inserts the outcome. A second record for the same job is ignored.
func (r *PostgresRecorder) Record(ctx context.Context, o models.AnalysisOutcome) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO analysis_outcomes (job_id, variant, category, language, plan, image_count, status, error, attempts, gateway, created_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10, $11, $12)
		 ON CONFLICT (job_id) DO NOTHING`,
		o.JobID, string(o.Variant), o.Category, o.Language, o.Plan, o.ImageCount,
		o.Status, o.Error, o.Attempts, o.Gateway, o.CreatedAt, o.FinishedAt)
	if err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	return nil
}

// Get returns the outcome recorded for jobID.
func (r *PostgresRecorder) Get(ctx context.Context, jobID string) (*models.AnalysisOutcome, error) {
	var (
		o       models.AnalysisOutcome
		variant string
		errMsg  *string
	)
	err := r.pool.QueryRow(ctx,
		`SELECT job_id, variant, category, language, plan, image_count, status, error, attempts, gateway, created_at, finished_at
		 FROM analysis_outcomes WHERE job_id = $1`, jobID,
	).Scan(&o.JobID, &variant, &o.Category, &o.Language, &o.Plan, &o.ImageCount,
		&o.Status, &errMsg, &o.Attempts, &o.Gateway, &o.CreatedAt, &o.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get outcome: %w", err)
	}
	o.Variant = models.Variant(variant)
	if errMsg != nil {
		o.Error = *errMsg
	}
	return &o, nil
}

var (
	_ Recorder = NopRecorder{}
	_ Recorder = (*PostgresRecorder)(nil)
)
