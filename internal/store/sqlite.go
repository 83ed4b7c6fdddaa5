package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/legislator-panel/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	source       TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	documents    INTEGER NOT NULL DEFAULT 0,
	failed       INTEGER NOT NULL DEFAULT 0,
	legislatures INTEGER NOT NULL DEFAULT 0,
	person_years INTEGER NOT NULL DEFAULT 0,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at  DATETIME
);

CREATE TABLE IF NOT EXISTS person_legislatures (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	person_id   INTEGER NOT NULL,
	legislature TEXT NOT NULL,
	surname     TEXT NOT NULL,
	given       TEXT NOT NULL,
	data        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS person_years (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	person_id   INTEGER NOT NULL,
	legislature TEXT NOT NULL,
	year        INTEGER NOT NULL,
	data        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_events (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	document    TEXT NOT NULL,
	surname     TEXT NOT NULL DEFAULT '',
	given       TEXT NOT NULL DEFAULT '',
	legislature TEXT NOT NULL DEFAULT '',
	rule        TEXT NOT NULL,
	detail      TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_person_legislatures_run ON person_legislatures(run_id, person_id, legislature);
CREATE INDEX IF NOT EXISTS idx_person_years_run ON person_years(run_id, legislature, person_id, year);
CREATE INDEX IF NOT EXISTS idx_audit_events_run ON audit_events(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, source string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, source, status, created_at) VALUES (?, ?, ?, ?)`,
		id, source, string(model.RunStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Source:    source,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
	}, nil
}

func (s *SQLiteStore) FinishRun(ctx context.Context, run *model.Run) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, documents = ?, failed = ?, legislatures = ?, person_years = ?, finished_at = ?
		 WHERE id = ?`,
		string(run.Status), run.Documents, run.Failed, run.Legislatures, run.PersonYears, now, run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", run.ID)
	}
	if err := checkRowsAffected(res, run.ID); err != nil {
		return err
	}
	run.FinishedAt = &now
	return nil
}

const runColumns = `id, source, status, documents, failed, legislatures, person_years, created_at, finished_at`

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)
	return scanSQLiteRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		r, err := scanSQLiteRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) SaveLegislatures(ctx context.Context, runID string, records []model.PersonLegislature) error {
	rows, err := legislatureRows(runID, records)
	if err != nil {
		return err
	}
	return s.replace(ctx, "person_legislatures", runID, legislatureColumns, rows)
}

func (s *SQLiteStore) LoadLegislatures(ctx context.Context, runID string) ([]model.PersonLegislature, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM person_legislatures WHERE run_id = ? ORDER BY person_id, legislature, rowid`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load legislatures")
	}
	return collect[model.PersonLegislature](rows)
}

func (s *SQLiteStore) SavePersonYears(ctx context.Context, runID string, records []model.PersonYear) error {
	rows, err := personYearRows(runID, records)
	if err != nil {
		return err
	}
	return s.replace(ctx, "person_years", runID, personYearColumns, rows)
}

func (s *SQLiteStore) LoadPersonYears(ctx context.Context, runID, legislature string) ([]model.PersonYear, error) {
	query := `SELECT data FROM person_years WHERE run_id = ?`
	args := []any{runID}
	if legislature != "" {
		query += ` AND legislature = ?`
		args = append(args, legislature)
	}
	query += ` ORDER BY person_id, legislature, year`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load person years")
	}
	return collect[model.PersonYear](rows)
}

func (s *SQLiteStore) SaveAudit(ctx context.Context, events []model.AuditEvent) error {
	if len(events) == 0 {
		return nil
	}
	return s.insert(ctx, "audit_events", auditColumns, auditRows(events))
}

// ClearAudit deletes the run's events recorded under rule.
func (s *SQLiteStore) ClearAudit(ctx context.Context, runID, rule string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM audit_events WHERE run_id = ? AND rule = ?`, runID, rule)
	return eris.Wrap(err, "sqlite: clear audit")
}

func (s *SQLiteStore) ListAudit(ctx context.Context, runID string) ([]model.AuditEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+strings.Join(auditColumns, ", ")+` FROM audit_events WHERE run_id = ? ORDER BY rowid`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list audit")
	}
	defer rows.Close() //nolint:errcheck

	var events []model.AuditEvent
	for rows.Next() {
		var e model.AuditEvent
		if err := rows.Scan(&e.RunID, &e.Document, &e.Surname, &e.Given, &e.Legislature, &e.Rule, &e.Detail, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan audit event")
		}
		events = append(events, e)
	}
	return events, eris.Wrap(rows.Err(), "sqlite: list audit iterate")
}

// replace deletes the run's rows from table and inserts rows, in one transaction.
func (s *SQLiteStore) replace(ctx context.Context, table, runID string, columns []string, rows [][]any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE run_id = ?`, runID); err != nil {
		return eris.Wrapf(err, "sqlite: clear %s", table)
	}
	if err := insertRows(ctx, tx, table, columns, rows); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

func (s *SQLiteStore) insert(ctx context.Context, table string, columns []string, rows [][]any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if err := insertRows(ctx, tx, table, columns, rows); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

func insertRows(ctx context.Context, tx *sql.Tx, table string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO `+table+` (`+strings.Join(columns, ", ")+`) VALUES (`+placeholders+`)`,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: prepare insert into %s", table)
	}
	defer stmt.Close() //nolint:errcheck

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return eris.Wrapf(err, "sqlite: insert into %s", table)
		}
	}
	return nil
}

// helpers

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrRunNotFound, "run %s", id)
	}
	return nil
}

func scanSQLiteRun(row scannable) (*model.Run, error) {
	var (
		r        model.Run
		finished sql.NullTime
	)
	err := row.Scan(&r.ID, &r.Source, &r.Status, &r.Documents, &r.Failed, &r.Legislatures, &r.PersonYears,
		&r.CreatedAt, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	return &r, nil
}

func collect[T any](rows *sql.Rows) ([]T, error) {
	defer rows.Close() //nolint:errcheck
	var out []T
	for rows.Next() {
		v, err := scanJSON[T](rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate rows")
}
