package store

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/legislator-panel/internal/db"
	"github.com/sells-group/legislator-panel/internal/model"
)

// PostgresStore implements Store using pgxpool. Tables are bulk-loaded with COPY.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements are prepared on each new connection.
var preparedStatements = map[string]string{
	"insert_run": `INSERT INTO runs (id, source, status, created_at) VALUES ($1, $2, $3, $4)`,
	"finish_run": `UPDATE runs SET status = $1, documents = $2, failed = $3, legislatures = $4, person_years = $5, finished_at = $6 WHERE id = $7`,
	"get_run":    `SELECT ` + runColumns + ` FROM runs WHERE id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	source       TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	documents    INTEGER NOT NULL DEFAULT 0,
	failed       INTEGER NOT NULL DEFAULT 0,
	legislatures INTEGER NOT NULL DEFAULT 0,
	person_years INTEGER NOT NULL DEFAULT 0,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at  TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS person_legislatures (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	person_id   INTEGER NOT NULL,
	legislature TEXT NOT NULL,
	surname     TEXT NOT NULL,
	given       TEXT NOT NULL,
	data        JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS person_years (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	person_id   INTEGER NOT NULL,
	legislature TEXT NOT NULL,
	year        INTEGER NOT NULL,
	data        JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_events (
	id          BIGSERIAL PRIMARY KEY,
	run_id      TEXT NOT NULL REFERENCES runs(id),
	document    TEXT NOT NULL,
	surname     TEXT NOT NULL DEFAULT '',
	given       TEXT NOT NULL DEFAULT '',
	legislature TEXT NOT NULL DEFAULT '',
	rule        TEXT NOT NULL,
	detail      TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_person_legislatures_run ON person_legislatures(run_id, person_id, legislature);
CREATE INDEX IF NOT EXISTS idx_person_years_run ON person_years(run_id, legislature, person_id, year);
CREATE INDEX IF NOT EXISTS idx_audit_events_run ON audit_events(run_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, source string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, source, status, created_at) VALUES ($1, $2, $3, $4)`,
		id, source, string(model.RunStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Source:    source,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
	}, nil
}

// RegisterRun inserts a run created by another store, so that a run exported from the
// local database keeps its id in the warehouse. An existing row is updated.
func (s *PostgresStore) RegisterRun(ctx context.Context, run *model.Run) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, source, status, documents, failed, legislatures, person_years, created_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, documents = EXCLUDED.documents,
		 failed = EXCLUDED.failed, legislatures = EXCLUDED.legislatures, person_years = EXCLUDED.person_years,
		 finished_at = EXCLUDED.finished_at`,
		run.ID, run.Source, string(run.Status), run.Documents, run.Failed, run.Legislatures, run.PersonYears,
		run.CreatedAt, run.FinishedAt,
	)
	return eris.Wrapf(err, "postgres: register run %s", run.ID)
}

func (s *PostgresStore) FinishRun(ctx context.Context, run *model.Run) error {
	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, documents = $2, failed = $3, legislatures = $4, person_years = $5, finished_at = $6 WHERE id = $7`,
		string(run.Status), run.Documents, run.Failed, run.Legislatures, run.PersonYears, now, run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", run.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrRunNotFound, "run %s", run.ID)
	}
	run.FinishedAt = &now
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM runs WHERE id = $1`, runID)
	r, err := scanPostgresRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get run")
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE 1=1`
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Status != "" {
		query += ` AND status = ` + next(string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ` + next(limit)
	if filter.Offset > 0 {
		query += ` OFFSET ` + next(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPostgresRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) SaveLegislatures(ctx context.Context, runID string, records []model.PersonLegislature) error {
	rows, err := legislatureRows(runID, records)
	if err != nil {
		return err
	}
	_, err = db.ReplaceRun(ctx, s.pool, "person_legislatures", runID, legislatureColumns, rows)
	return eris.Wrap(err, "postgres: save legislatures")
}

func (s *PostgresStore) LoadLegislatures(ctx context.Context, runID string) ([]model.PersonLegislature, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT data FROM person_legislatures WHERE run_id = $1 ORDER BY person_id, legislature`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load legislatures")
	}
	return collectPg[model.PersonLegislature](rows)
}

func (s *PostgresStore) SavePersonYears(ctx context.Context, runID string, records []model.PersonYear) error {
	rows, err := personYearRows(runID, records)
	if err != nil {
		return err
	}
	_, err = db.ReplaceRun(ctx, s.pool, "person_years", runID, personYearColumns, rows)
	return eris.Wrap(err, "postgres: save person years")
}

func (s *PostgresStore) LoadPersonYears(ctx context.Context, runID, legislature string) ([]model.PersonYear, error) {
	query := `SELECT data FROM person_years WHERE run_id = $1`
	args := []any{runID}
	if legislature != "" {
		query += ` AND legislature = $2`
		args = append(args, legislature)
	}
	query += ` ORDER BY person_id, legislature, year`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load person years")
	}
	return collectPg[model.PersonYear](rows)
}

func (s *PostgresStore) SaveAudit(ctx context.Context, events []model.AuditEvent) error {
	_, err := db.CopyFrom(ctx, s.pool, "audit_events", auditColumns, auditRows(events))
	return eris.Wrap(err, "postgres: save audit")
}

// ClearAudit deletes the run's events recorded under rule.
func (s *PostgresStore) ClearAudit(ctx context.Context, runID, rule string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM audit_events WHERE run_id = $1 AND rule = $2`, runID, rule)
	return eris.Wrap(err, "postgres: clear audit")
}

// ReplaceAudit swaps a run's audit trail, used when a run is exported again.
func (s *PostgresStore) ReplaceAudit(ctx context.Context, runID string, events []model.AuditEvent) error {
	_, err := db.ReplaceRun(ctx, s.pool, "audit_events", runID, auditColumns, auditRows(events))
	return eris.Wrap(err, "postgres: replace audit")
}

func (s *PostgresStore) ListAudit(ctx context.Context, runID string) ([]model.AuditEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+strings.Join(auditColumns, ", ")+` FROM audit_events WHERE run_id = $1 ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list audit")
	}
	defer rows.Close()

	var events []model.AuditEvent
	for rows.Next() {
		var e model.AuditEvent
		if err := rows.Scan(&e.RunID, &e.Document, &e.Surname, &e.Given, &e.Legislature, &e.Rule, &e.Detail, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan audit event")
		}
		events = append(events, e)
	}
	return events, eris.Wrap(rows.Err(), "postgres: list audit iterate")
}

func scanPostgresRun(row scannable) (*model.Run, error) {
	var r model.Run
	var status string
	err := row.Scan(&r.ID, &r.Source, &status, &r.Documents, &r.Failed, &r.Legislatures, &r.PersonYears,
		&r.CreatedAt, &r.FinishedAt)
	if err != nil {
		return nil, err
	}
	r.Status = model.RunStatus(status)
	return &r, nil
}

func collectPg[T any](rows pgx.Rows) ([]T, error) {
	defer rows.Close()
	var out []T
	for rows.Next() {
		v, err := scanJSON[T](rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate rows")
}
