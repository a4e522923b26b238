package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/kiranshivaraju/lookscore/pkg/models"
)

var ErrNotFound = errors.New("job not found")
var ErrDuplicateKey = errors.New("duplicate job id")
var ErrInvalidTransition = errors.New("invalid job status transition")

// JobStore holds jobs keyed by id. Implementations must be safe for
// concurrent use. Each job has a single writer, its orchestrator goroutine.
type JobStore interface {
	Ping(ctx context.Context) error

	// Create inserts a new job. It fails with ErrDuplicateKey if the id exists.
	Create(ctx context.Context, job *models.Job) error
	// Get returns a copy of the job or ErrNotFound.
	Get(ctx context.Context, id string) (*models.Job, error)
	// Set replaces an existing job. It returns ErrNotFound when the job was
	// evicted, so a finished run never brings it back.
	Set(ctx context.Context, job *models.Job) error
	// Delete removes the job. Deleting a missing job is not an error.
	Delete(ctx context.Context, id string) error
	// List returns every stored job in no particular order.
	List(ctx context.Context) ([]*models.Job, error)
}

var validTransitions = map[string][]string{
	models.JobStatusPending:    {models.JobStatusProcessing, models.JobStatusFailed},
	models.JobStatusProcessing: {models.JobStatusSucceeded, models.JobStatusFailed},
}

// checkTransition allows same-status rewrites and the forward edges of
// pending -> processing -> {succeeded, failed}.
func checkTransition(from, to string) error {
	if from == to {
		return nil
	}
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

func cloneJob(j *models.Job) *models.Job {
	c := *j
	if j.Result != nil {
		c.Result = append([]byte(nil), j.Result...)
	}
	return &c
}
