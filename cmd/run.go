package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/legislator-panel/internal/export"
	"github.com/sells-group/legislator-panel/internal/fetcher"
	"github.com/sells-group/legislator-panel/internal/pipeline"
	"github.com/sells-group/legislator-panel/internal/riskset"
	"github.com/sells-group/legislator-panel/internal/store"
)

var (
	archivePath string
	outputDir   string
	writeXLSX   bool
)

var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Parse a profile archive into the person-legislature table",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		applyOutputFlags()

		env, err := initPipeline(ctx, "parse")
		if err != nil {
			return err
		}
		defer env.Close()

		docs, err := fetcher.ReadZIP(cfg.Parse.Archive)
		if err != nil {
			return err
		}

		res, err := env.Pipeline.ParseRun(ctx, cfg.Parse.Archive, docs)
		if err != nil {
			return eris.Wrap(err, "parse")
		}

		for _, out := range []struct {
			name  string
			write func(string) error
		}{
			{export.PersonLegislature, func(p string) error { return export.WriteCSVFile(p, res.Parsed.Records) }},
			{export.Audit, func(p string) error { return export.WriteCSVFile(p, res.Parsed.Audit) }},
		} {
			if err := out.write(filepath.Join(cfg.Output.Dir, out.name+".csv")); err != nil {
				return err
			}
		}

		printResult(os.Stdout, res)
		return nil
	},
}

var expandCmd = &cobra.Command{
	Use:   "expand <run-id>",
	Short: "Expand a parsed run into the person-year panel and risk sets",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		applyOutputFlags()

		env, err := initPipeline(ctx, "expand")
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Pipeline.ExpandRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "expand")
		}

		if err := writeStoredRun(ctx, env.Store, res.Run.ID); err != nil {
			return err
		}
		printResult(os.Stdout, res)
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Parse a profile archive and build the panel in one run",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		applyOutputFlags()

		env, err := initPipeline(ctx, "run")
		if err != nil {
			return err
		}
		defer env.Close()

		docs, err := fetcher.ReadZIP(cfg.Parse.Archive)
		if err != nil {
			return err
		}

		res, err := env.Pipeline.Run(ctx, cfg.Parse.Archive, docs)
		if err != nil {
			return eris.Wrap(err, "run")
		}

		if err := writeStoredRun(ctx, env.Store, res.Run.ID); err != nil {
			return err
		}
		printResult(os.Stdout, res)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{parseCmd, runCmd} {
		c.Flags().StringVar(&archivePath, "archive", "", "profile archive (default from config)")
	}
	for _, c := range []*cobra.Command{parseCmd, expandCmd, runCmd} {
		c.Flags().StringVar(&outputDir, "out", "", "output directory (default from config)")
		c.Flags().BoolVar(&writeXLSX, "xlsx", false, "also write a review workbook")
		rootCmd.AddCommand(c)
	}
}

// applyOutputFlags lets command-line flags override the loaded config.
func applyOutputFlags() {
	if archivePath != "" {
		cfg.Parse.Archive = archivePath
	}
	if outputDir != "" {
		cfg.Output.Dir = outputDir
	}
	if writeXLSX {
		cfg.Output.XLSX = true
	}
}

// storedTables reads every table of a run back from the store. Risk sets are derived
// from the stored person years.
func storedTables(ctx context.Context, st store.Store, runID string) (export.Tables, error) {
	var t export.Tables
	var err error

	if t.Legislatures, err = st.LoadLegislatures(ctx, runID); err != nil {
		return t, eris.Wrap(err, "load legislatures")
	}
	if t.PersonYears, err = st.LoadPersonYears(ctx, runID, ""); err != nil {
		return t, eris.Wrap(err, "load person years")
	}
	if t.Audit, err = st.ListAudit(ctx, runID); err != nil {
		return t, eris.Wrap(err, "list audit")
	}
	t.RiskSet = riskset.Extract(t.PersonYears, false)
	t.RiskSetMulti = riskset.Extract(t.PersonYears, true)
	return t, nil
}

// writeOutputs writes the CSV tables, and the workbook when requested, into dir.
func writeOutputs(dir string, withXLSX bool, t export.Tables) ([]string, error) {
	paths, err := export.WriteAll(dir, t)
	if err != nil {
		return paths, err
	}
	if withXLSX {
		p := filepath.Join(dir, "panel.xlsx")
		if err := export.WriteXLSX(p, t); err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func writeStoredRun(ctx context.Context, st store.Store, runID string) error {
	t, err := storedTables(ctx, st, runID)
	if err != nil {
		return err
	}
	paths, err := writeOutputs(cfg.Output.Dir, cfg.Output.XLSX, t)
	if err != nil {
		return err
	}
	zap.L().Info("outputs written", zap.String("run_id", runID), zap.Strings("files", paths))
	return nil
}

// printResult writes a one-screen summary of a run.
func printResult(w io.Writer, res *pipeline.Result) {
	run := res.Run
	_, _ = fmt.Fprintf(w, "run %s (%s)\n", run.ID, run.Status)
	if res.Parsed != nil {
		_, _ = fmt.Fprintf(w, "  documents:     %d (%d failed)\n", res.Parsed.Documents, res.Parsed.Failed)
		_, _ = fmt.Fprintf(w, "  legislatures:  %d\n", len(res.Parsed.Records))
	}
	if res.Expanded != nil {
		_, _ = fmt.Fprintf(w, "  person-years:  %d\n", len(res.Expanded.PersonYears))
		_, _ = fmt.Fprintf(w, "  risk set:      %d (multi-year %d)\n", len(res.Expanded.RiskSet), len(res.Expanded.RiskSetMulti))
		_, _ = fmt.Fprintf(w, "  gaps:          %d\n", len(res.Expanded.Gaps))
	}
	_, _ = fmt.Fprintf(w, "  audit events:  %d\n", len(res.Audit()))
}
