// Package store persists pipeline runs, their output tables and the override audit trail.
package store

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/sells-group/legislator-panel/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the pipeline.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, source string) (*model.Run, error)
	FinishRun(ctx context.Context, run *model.Run) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Tables. Saving replaces whatever the run held before.
	SaveLegislatures(ctx context.Context, runID string, records []model.PersonLegislature) error
	LoadLegislatures(ctx context.Context, runID string) ([]model.PersonLegislature, error)
	SavePersonYears(ctx context.Context, runID string, rows []model.PersonYear) error
	LoadPersonYears(ctx context.Context, runID, legislature string) ([]model.PersonYear, error)

	// Audit
	SaveAudit(ctx context.Context, events []model.AuditEvent) error
	ClearAudit(ctx context.Context, runID, rule string) error
	ListAudit(ctx context.Context, runID string) ([]model.AuditEvent, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = eris.New("store: run not found")

// Column lists shared by both backends. Rows are keyed for filtering and ordering and
// carry the full record as a JSON document.
var (
	legislatureColumns = []string{"run_id", "person_id", "legislature", "surname", "given", "data"}
	personYearColumns  = []string{"run_id", "person_id", "legislature", "year", "data"}
	auditColumns       = []string{"run_id", "document", "surname", "given", "legislature", "rule", "detail", "created_at"}
)

func legislatureRows(runID string, records []model.PersonLegislature) ([][]any, error) {
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return nil, eris.Wrap(err, "store: marshal person legislature")
		}
		rows = append(rows, []any{runID, r.PersonID, r.Legislature, r.Surname, r.Given, string(data)})
	}
	return rows, nil
}

func personYearRows(runID string, records []model.PersonYear) ([][]any, error) {
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return nil, eris.Wrap(err, "store: marshal person year")
		}
		rows = append(rows, []any{runID, r.PersonID, r.Legislature, r.Year, string(data)})
	}
	return rows, nil
}

func auditRows(events []model.AuditEvent) [][]any {
	rows := make([][]any, 0, len(events))
	for _, e := range events {
		rows = append(rows, []any{e.RunID, e.Document, e.Surname, e.Given, e.Legislature, e.Rule, e.Detail, e.CreatedAt.UTC()})
	}
	return rows
}

// runIDs groups audit events by run so each backend can replace per run.
func runIDs(events []model.AuditEvent) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, e := range events {
		if !seen[e.RunID] {
			seen[e.RunID] = true
			ids = append(ids, e.RunID)
		}
	}
	return ids
}

type scannable interface {
	Scan(dest ...any) error
}

func scanJSON[T any](row scannable) (T, error) {
	var (
		v    T
		data string
	)
	if err := row.Scan(&data); err != nil {
		return v, eris.Wrap(err, "store: scan row")
	}
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return v, eris.Wrap(err, "store: unmarshal row")
	}
	return v, nil
}
