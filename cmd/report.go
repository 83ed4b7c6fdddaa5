package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/legislator-panel/internal/career"
	"github.com/sells-group/legislator-panel/internal/model"
)

var reportCmd = &cobra.Command{
	Use:   "report <run-id>",
	Short: "Summarize a run: switches per legislature, fired rules and near-duplicate names",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("report"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "report")
		}
		records, err := st.LoadLegislatures(ctx, run.ID)
		if err != nil {
			return eris.Wrap(err, "report: load legislatures")
		}
		events, err := st.ListAudit(ctx, run.ID)
		if err != nil {
			return eris.Wrap(err, "report: list audit")
		}

		renderReport(os.Stdout, run, records, events, career.NearDuplicates(records, cfg.Review.SimilarityThreshold))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	t.SetTitle(title)
	return t
}

// renderReport writes the run summary tables to w.
func renderReport(w io.Writer, run *model.Run, records []model.PersonLegislature, events []model.AuditEvent, pairs []career.NamePair) {
	t := newTable(w, "Run "+run.ID)
	t.AppendHeader(table.Row{"Source", "Status", "Documents", "Failed", "Legislatures", "Person-years"})
	t.AppendRow(table.Row{run.Source, run.Status, run.Documents, run.Failed, run.Legislatures, run.PersonYears})
	t.Render()

	renderSwitches(w, records)
	renderRules(w, events)
	renderNearDuplicates(w, pairs)
}

type legislatureSummary struct {
	legislature string
	mandates    int
	switchers   int
	deaths      int
}

func summarizeLegislatures(records []model.PersonLegislature) []legislatureSummary {
	byLeg := make(map[string]*legislatureSummary)
	for _, r := range records {
		s := byLeg[r.Legislature]
		if s == nil {
			s = &legislatureSummary{legislature: r.Legislature}
			byLeg[r.Legislature] = s
		}
		s.mandates++
		if r.Switched() {
			s.switchers++
		}
		if r.DiedInOffice {
			s.deaths++
		}
	}
	out := make([]legislatureSummary, 0, len(byLeg))
	for _, s := range byLeg {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].legislature < out[j].legislature })
	return out
}

func renderSwitches(w io.Writer, records []model.PersonLegislature) {
	t := newTable(w, "Party switching by legislature")
	t.AppendHeader(table.Row{"Legislature", "Mandates", "Switchers", "Share", "Died in office"})
	var total legislatureSummary
	for _, s := range summarizeLegislatures(records) {
		t.AppendRow(table.Row{s.legislature, s.mandates, s.switchers, share(s.switchers, s.mandates), s.deaths})
		total.mandates += s.mandates
		total.switchers += s.switchers
		total.deaths += s.deaths
	}
	t.AppendFooter(table.Row{"Total", total.mandates, total.switchers, share(total.switchers, total.mandates), total.deaths})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	t.Render()
}

func share(part, whole int) string {
	if whole == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", 100*float64(part)/float64(whole))
}

type ruleCount struct {
	Rule  string
	Count int
}

// ruleCounts counts audit events per rule, most frequent first.
func ruleCounts(events []model.AuditEvent) []ruleCount {
	counts := make(map[string]int)
	for _, e := range events {
		counts[e.Rule]++
	}
	out := make([]ruleCount, 0, len(counts))
	for rule, n := range counts {
		out = append(out, ruleCount{Rule: rule, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Rule < out[j].Rule
	})
	return out
}

func renderRules(w io.Writer, events []model.AuditEvent) {
	t := newTable(w, "Fired rules and gaps")
	t.AppendHeader(table.Row{"Rule", "Events"})
	for _, rc := range ruleCounts(events) {
		t.AppendRow(table.Row{rc.Rule, rc.Count})
	}
	t.AppendFooter(table.Row{"Total", len(events)})
	t.Render()
}

func renderNearDuplicates(w io.Writer, pairs []career.NamePair) {
	t := newTable(w, "Near-duplicate names for review")
	t.AppendHeader(table.Row{"Name", "Similar to", "Jaro-Winkler"})
	for _, p := range pairs {
		t.AppendRow(table.Row{p.Left, p.Right, fmt.Sprintf("%.3f", p.Similarity)})
	}
	if len(pairs) == 0 {
		t.AppendRow(table.Row{"(none)", "", ""})
	}
	t.Render()
}
