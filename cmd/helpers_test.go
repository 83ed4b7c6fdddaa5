package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/legislator-panel/internal/config"
	"github.com/sells-group/legislator-panel/internal/model"
	"github.com/sells-group/legislator-panel/internal/store"
)

func testRecords() []model.PersonLegislature {
	return []model.PersonLegislature{
		{
			PersonID:     1,
			Legislature:  "2008-2012",
			Chamber:      model.ChamberDeputies,
			Constituency: "CLUJ",
			Surname:      "POP",
			Given:        "Ion",
			MandateStart: model.NewDate(2008, time.December, 15),
			MandateEnd:   model.NewDate(2012, time.November, 30),
			EntryParty:   "PSD",
			Rank:         model.RankMember,
			Destination:  "PNL",
			SwitchMonth:  3,
			SwitchYear:   2010,
			Seniority:    1,
		},
		{
			PersonID:     2,
			Legislature:  "2012-2016",
			Chamber:      model.ChamberSenate,
			Constituency: "IAŞI",
			Surname:      "POPA",
			Given:        "Ion",
			MandateStart: model.NewDate(2012, time.December, 19),
			MandateEnd:   model.NewDate(2016, time.November, 30),
			EntryParty:   "PNL",
			Rank:         model.RankLeader,
			Seniority:    1,
		},
	}
}

func testPersonYears() []model.PersonYear {
	var rows []model.PersonYear
	for year := 2009; year <= 2012; year++ {
		row := model.PersonYear{PersonID: 1, Surname: "POP", Given: "Ion", Legislature: "2008-2012", Year: year, StartParty: "PSD"}
		if year == 2010 {
			row.Switch, row.Destination = 1, "PNL"
		}
		rows = append(rows, row)
	}
	for year := 2013; year <= 2016; year++ {
		rows = append(rows, model.PersonYear{PersonID: 2, Surname: "POPA", Given: "Ion", Legislature: "2012-2016", Year: year, StartParty: "PNL"})
	}
	return rows
}

func testAudit(runID string) []model.AuditEvent {
	now := time.Now().UTC()
	return []model.AuditEvent{
		{RunID: runID, Document: "a.html", Surname: "POP", Given: "Ion", Legislature: "2008-2012", Rule: "party_override", CreatedAt: now},
		{RunID: runID, Document: "b.html", Surname: "POPA", Given: "Ion", Legislature: "2012-2016", Rule: "reference_gap", Detail: "2013 p_size PER", CreatedAt: now},
		{RunID: runID, Document: "b.html", Surname: "POPA", Given: "Ion", Legislature: "2012-2016", Rule: "reference_gap", Detail: "2014 p_size PER", CreatedAt: now},
	}
}

// seededStore returns a migrated SQLite store holding one complete run.
func seededStore(t *testing.T) (*store.SQLiteStore, *model.Run) {
	t.Helper()
	ctx := context.Background()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "panel.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(ctx))

	run, err := st.CreateRun(ctx, "profiles.zip")
	require.NoError(t, err)
	require.NoError(t, st.SaveLegislatures(ctx, run.ID, testRecords()))
	require.NoError(t, st.SavePersonYears(ctx, run.ID, testPersonYears()))
	require.NoError(t, st.SaveAudit(ctx, testAudit(run.ID)))

	run.Status = model.RunStatusComplete
	run.Documents, run.Legislatures, run.PersonYears = 2, 2, 8
	require.NoError(t, st.FinishRun(ctx, run))
	return st, run
}

// withConfig installs c as the command config for the duration of the test.
func withConfig(t *testing.T, c *config.Config) {
	t.Helper()
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}
