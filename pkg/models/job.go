package models

import (
	"encoding/json"
	"time"
)

const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusSucceeded  = "succeeded"
	JobStatusFailed     = "failed"
)

// Job tracks one asynchronous analysis. The API returns its ID on POST /api/v1/analyses;
// the client polls GET /api/v1/analyses/{jobID} until status is succeeded or failed.
// Result and Error are mutually exclusive and only set in the matching terminal state.
type Job struct {
	ID        string          `json:"id"`
	Status    string          `json:"status"`
	Variant   Variant         `json:"variant"`
	Category  string          `json:"category"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// IsTerminal reports whether the job reached succeeded or failed.
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusSucceeded || j.Status == JobStatusFailed
}

// JobStatus is the poll view of a job returned by the status operation.
type JobStatus struct {
	Status string          `json:"status"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}
