package model

import "time"

// RunStatus represents the current state of a pipeline run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one execution of the pipeline over a profile archive.
type Run struct {
	ID           string     `json:"id"`
	Source       string     `json:"source"`
	Status       RunStatus  `json:"status"`
	Documents    int        `json:"documents"`
	Failed       int        `json:"failed"`
	Legislatures int        `json:"legislatures"`
	PersonYears  int        `json:"person_years"`
	CreatedAt    time.Time  `json:"created_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// AuditEvent records one rule that fired, or one gap or failure, for one document.
type AuditEvent struct {
	RunID       string    `json:"run_id" csv:"run_id"`
	Document    string    `json:"document" csv:"document"`
	Surname     string    `json:"surname" csv:"surnames"`
	Given       string    `json:"given" csv:"given_names"`
	Legislature string    `json:"legislature" csv:"legislature"`
	Rule        string    `json:"rule" csv:"rule"`
	Detail      string    `json:"detail" csv:"detail"`
	CreatedAt   time.Time `json:"created_at" csv:"-"`
}
