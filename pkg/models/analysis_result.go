package models

import "time"

// SingleResult is the single-category analysis returned by the model.
type SingleResult struct {
	Score             float64  `json:"score"`
	Style             string   `json:"style"`
	ColorCoordination string   `json:"colorCoordination"`
	Accessories       string   `json:"accessories"`
	Harmony           string   `json:"harmony"`
	Suggestions       []string `json:"suggestions,omitempty"`
}

// CategoryResult is one entry of an all-categories analysis.
type CategoryResult struct {
	Category string  `json:"category"`
	Score    float64 `json:"score"`
	Analysis string  `json:"analysis"`
}

// AllResult is the seven-category analysis returned by the model.
type AllResult struct {
	OverallScore    float64          `json:"overallScore"`
	OverallAnalysis string           `json:"overallAnalysis"`
	Results         []CategoryResult `json:"results"`
}

// AnalysisOutcome is the audit record written once a job is terminal.
// It deliberately carries no result payload.
type AnalysisOutcome struct {
	JobID      string    `db:"job_id"      json:"job_id"`
	Variant    Variant   `db:"variant"     json:"variant"`
	Category   string    `db:"category"    json:"category"`
	Language   string    `db:"language"    json:"language"`
	Plan       string    `db:"plan"        json:"plan"`
	ImageCount int       `db:"image_count" json:"image_count"`
	Status     string    `db:"status"      json:"status"`
	Error      string    `db:"error"       json:"error,omitempty"`
	Attempts   int       `db:"attempts"    json:"attempts"`
	Gateway    string    `db:"gateway"     json:"gateway"`
	CreatedAt  time.Time `db:"created_at"  json:"created_at"`
	FinishedAt time.Time `db:"finished_at" json:"finished_at"`
}
