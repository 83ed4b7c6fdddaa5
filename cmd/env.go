package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/legislator-panel/internal/pipeline"
	"github.com/sells-group/legislator-panel/internal/reference"
	"github.com/sells-group/legislator-panel/internal/store"
)

// initStore opens the configured store without migrating it.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.SQLitePath)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{MaxConns: cfg.Store.MaxConns})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// openStore opens and migrates the configured store. Callers close it.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// loadTables reads the reference tables, from parse.reference_dir when set.
func loadTables() (*reference.Tables, error) {
	if cfg.Parse.ReferenceDir == "" {
		return reference.Load()
	}
	zap.L().Info("loading reference tables", zap.String("dir", cfg.Parse.ReferenceDir))
	return reference.LoadDir(cfg.Parse.ReferenceDir)
}

// pipelineEnv holds the store and pipeline used by the parse, expand and run commands.
type pipelineEnv struct {
	Store    store.Store
	Tables   *reference.Tables
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline validates the config for mode, opens the store and builds the Pipeline.
// Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	tables, err := loadTables()
	if err != nil {
		return nil, eris.Wrap(err, "load reference tables")
	}

	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	p := pipeline.New(tables, st, pipeline.Options{
		Workers: cfg.Parse.Workers,
		Charset: cfg.Parse.Charset,
	})
	return &pipelineEnv{Store: st, Tables: tables, Pipeline: p}, nil
}
