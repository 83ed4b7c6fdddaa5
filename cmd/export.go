package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/legislator-panel/internal/export"
	"github.com/sells-group/legislator-panel/internal/model"
	"github.com/sells-group/legislator-panel/internal/store"
)

var (
	exportTarget      string
	exportDatabaseURL string
)

var exportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Export a stored run as CSV/XLSX files or into a Postgres warehouse",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		applyOutputFlags()
		if err := cfg.Validate("export"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "export")
		}
		t, err := storedTables(ctx, st, run.ID)
		if err != nil {
			return err
		}

		switch exportTarget {
		case "csv":
			paths, err := writeOutputs(cfg.Output.Dir, cfg.Output.XLSX, t)
			if err != nil {
				return err
			}
			zap.L().Info("export: files written", zap.String("run_id", run.ID), zap.Strings("files", paths))
		case "xlsx":
			if _, err := writeOutputs(cfg.Output.Dir, true, t); err != nil {
				return err
			}
		case "postgres":
			url := exportDatabaseURL
			if url == "" {
				url = cfg.Store.DatabaseURL
			}
			if url == "" {
				return eris.New("export: --database-url is required for the postgres target")
			}
			wh, err := store.NewPostgres(ctx, url, &store.PoolConfig{MaxConns: cfg.Store.MaxConns})
			if err != nil {
				return err
			}
			defer wh.Close() //nolint:errcheck
			if err := wh.Migrate(ctx); err != nil {
				return eris.Wrap(err, "export: migrate warehouse")
			}
			if err := exportToWarehouse(ctx, wh, run, t); err != nil {
				return err
			}
		default:
			return eris.Errorf("export: unknown target %q (csv, xlsx, postgres)", exportTarget)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportTarget, "to", "csv", "export target: csv, xlsx or postgres")
	exportCmd.Flags().StringVar(&exportDatabaseURL, "database-url", "", "warehouse connection string for --to postgres")
	exportCmd.Flags().StringVar(&outputDir, "out", "", "output directory (default from config)")
	exportCmd.Flags().BoolVar(&writeXLSX, "xlsx", false, "also write a review workbook with --to csv")
	rootCmd.AddCommand(exportCmd)
}

// warehouse is the part of PostgresStore an export needs.
type warehouse interface {
	RegisterRun(ctx context.Context, run *model.Run) error
	SaveLegislatures(ctx context.Context, runID string, records []model.PersonLegislature) error
	SavePersonYears(ctx context.Context, runID string, rows []model.PersonYear) error
	ReplaceAudit(ctx context.Context, runID string, events []model.AuditEvent) error
}

var _ warehouse = (*store.PostgresStore)(nil)

// exportToWarehouse copies a run under its local id. Exporting the same run again
// replaces its rows.
func exportToWarehouse(ctx context.Context, wh warehouse, run *model.Run, t export.Tables) error {
	if err := wh.RegisterRun(ctx, run); err != nil {
		return err
	}
	if err := wh.SaveLegislatures(ctx, run.ID, t.Legislatures); err != nil {
		return eris.Wrap(err, "export: legislatures")
	}
	if err := wh.SavePersonYears(ctx, run.ID, t.PersonYears); err != nil {
		return eris.Wrap(err, "export: person years")
	}
	if err := wh.ReplaceAudit(ctx, run.ID, t.Audit); err != nil {
		return eris.Wrap(err, "export: audit")
	}
	zap.L().Info("export: run copied to warehouse",
		zap.String("run_id", run.ID),
		zap.Int("legislatures", len(t.Legislatures)),
		zap.Int("person_years", len(t.PersonYears)),
		zap.Int("audit_events", len(t.Audit)),
	)
	return nil
}
