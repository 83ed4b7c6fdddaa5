package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/legislator-panel/internal/fetcher"
	"github.com/sells-group/legislator-panel/internal/model"
	"github.com/sells-group/legislator-panel/internal/reference"
	"github.com/sells-group/legislator-panel/internal/store"
)

type page struct {
	Title       string
	Legislature string
	Code        int
	Validated   string
	Party       string
	Caucus      string
}

func (p page) doc(name string) fetcher.Document {
	if p.Code == 0 {
		p.Code = 42
	}
	caucus := ""
	if p.Caucus != "" {
		caucus = fmt.Sprintf(`<div class="boxDep clearfix"><h3>Grupul parlamentar:</h3><table><tr><td>%s</td></tr></table></div>`, p.Caucus)
	}
	body := fmt.Sprintf(`<html><head><meta charset="utf-8"></head><body>
<table><tr><td class="cale-right">Prima pagina &gt; Legislatura %s / Camera Deputatilor &gt; Profil</td></tr></table>
<div class="boxTitle">%s</div>
<div class="boxDep clearfix"><h3>DEPUTAT</h3><p>ales în circumscripţia electorală nr.%d</p><div>Data validarii: %s - HCD nr.1</div></div>
<div class="boxDep clearfix"><h3>Formatiunea politica:</h3><table><tr><td>%s</td></tr></table></div>
%s
</body></html>`, p.Legislature, p.Title, p.Code, p.Validated, p.Party, caucus)
	return fetcher.Document{Name: name, Body: []byte(body)}
}

func loadTables(t *testing.T) *reference.Tables {
	t.Helper()
	tables, err := reference.Load()
	require.NoError(t, err)
	return tables
}

// twoMandates is one person in two legislatures plus one broken page.
func twoMandates() []fetcher.Document {
	return []fetcher.Document{
		page{
			Title:       "TESTESCU Ion",
			Legislature: "2008-2012",
			Validated:   "15 decembrie 2008",
			Party:       "PSD Partidul Social Democrat",
			Caucus:      "Grupul parlamentar al PSD Lider",
		}.doc("a.html"),
		page{
			Title:       "TESTESCU Ion",
			Legislature: "2012-2016",
			Validated:   "19 decembrie 2012",
			Party:       "PSD Partidul Social Democrat până în feb. 2014PNL Partidul Naţional Liberal din feb. 2014",
			Caucus:      "Grupul parlamentar al PSD",
		}.doc("b.html"),
		page{
			Title:       "STRICATU Vasile",
			Legislature: "2012-2016",
			Code:        99,
			Validated:   "19 decembrie 2012",
			Party:       "PNL Partidul Naţional Liberal",
		}.doc("broken.html"),
	}
}

func rules(events []model.AuditEvent) map[string][]string {
	out := make(map[string][]string)
	for _, e := range events {
		out[e.Document] = append(out[e.Document], e.Rule)
	}
	return out
}

func TestParse(t *testing.T) {
	p := New(loadTables(t), nil, Options{Workers: 2})

	parsed, err := p.Parse(context.Background(), twoMandates())
	require.NoError(t, err)

	assert.Equal(t, 3, parsed.Documents)
	assert.Equal(t, 1, parsed.Failed)
	require.Len(t, parsed.Records, 2)

	first, second := parsed.Records[0], parsed.Records[1]
	assert.Equal(t, 1, first.PersonID)
	assert.Equal(t, 1, second.PersonID)
	assert.Equal(t, "2008-2012", first.Legislature)
	assert.Equal(t, "2012-2016", second.Legislature)
	assert.Equal(t, 1, first.Seniority)
	assert.Equal(t, 2, second.Seniority)

	assert.Equal(t, "BUCUREŞTI", first.Constituency)
	assert.Equal(t, "PSD", first.EntryParty)
	assert.Equal(t, model.RankLeader, first.Rank)
	assert.Equal(t, "12.2008-11.2012", first.RankSpan.String())
	assert.False(t, first.Switched())

	assert.Equal(t, "PSD", second.EntryParty)
	assert.Equal(t, "PNL", second.Destination)
	assert.Equal(t, model.MonthYear{Month: 2, Year: 2014}, second.Switch())
	assert.Equal(t, model.RankMember, second.Rank)
	assert.Equal(t, "b.html", second.Document)

	byDoc := rules(parsed.Audit)
	assert.Equal(t, []string{RuleConstituency}, byDoc["broken.html"])
	assert.NotContains(t, byDoc, "a.html")
}

func TestParse_FailureRules(t *testing.T) {
	p := New(loadTables(t), nil, Options{Workers: 4})

	docs := []fetcher.Document{
		{Name: "empty.html", Body: []byte("<html><body></body></html>")},
		page{
			Title:       "DATARU Ana",
			Legislature: "2008-2012",
			Validated:   "15 decembrie 2008",
			Party:       "PNL Partidul Naţional Liberal până în curând",
		}.doc("switch.html"),
		page{
			Title:       "RANGU Ana",
			Legislature: "2008-2012",
			Validated:   "15 decembrie 2008",
			Party:       "PNL Partidul Naţional Liberal",
			Caucus:      "Grupul PNL Lider din",
		}.doc("rank.html"),
	}
	parsed, err := p.Parse(context.Background(), docs)
	require.NoError(t, err)

	assert.Equal(t, 3, parsed.Failed)
	assert.Empty(t, parsed.Records)

	byDoc := rules(parsed.Audit)
	assert.Equal(t, []string{RuleStructure}, byDoc["empty.html"])
	assert.Equal(t, []string{RuleSwitchDate}, byDoc["switch.html"])
	assert.Equal(t, []string{RuleRankRange}, byDoc["rank.html"])

	for _, e := range parsed.Audit {
		if e.Document != "empty.html" {
			assert.Equal(t, "2008-2012", e.Legislature)
		}
	}
}

func TestParse_Deterministic(t *testing.T) {
	tables := loadTables(t)
	docs := twoMandates()

	a, err := New(tables, nil, Options{Workers: 1}).Parse(context.Background(), docs)
	require.NoError(t, err)
	b, err := New(tables, nil, Options{Workers: 8}).Parse(context.Background(), docs)
	require.NoError(t, err)

	assert.Equal(t, a.Records, b.Records)
	assert.Equal(t, a.Audit, b.Audit)
}

func TestParse_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(loadTables(t), nil, Options{}).Parse(ctx, twoMandates())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExpand(t *testing.T) {
	p := New(loadTables(t), nil, Options{})
	parsed, err := p.Parse(context.Background(), twoMandates())
	require.NoError(t, err)

	expanded, err := p.Expand(context.Background(), parsed.Records)
	require.NoError(t, err)

	var years []int
	for _, r := range expanded.PersonYears {
		years = append(years, r.Year)
	}
	assert.Equal(t, []int{2009, 2010, 2011, 2012, 2013, 2014, 2015, 2016}, years)

	var risk []int
	for _, r := range expanded.RiskSet {
		risk = append(risk, r.Year)
	}
	assert.Equal(t, []int{2009, 2010, 2011, 2012, 2013, 2014}, risk)
	assert.Equal(t, expanded.RiskSet, expanded.RiskSetMulti)

	require.Len(t, expanded.Audit, len(expanded.Gaps))
	for i, e := range expanded.Audit {
		assert.Equal(t, RuleGap, e.Rule)
		assert.Equal(t, "TESTESCU", e.Surname)
		assert.Equal(t, expanded.Gaps[i].Legislature, e.Legislature)
		assert.NotEmpty(t, e.Document)
	}
}

func TestExpand_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(loadTables(t), nil, Options{}).Expand(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func newSQLite(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "panel.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestRun_SQLite(t *testing.T) {
	ctx := context.Background()
	st := newSQLite(t)
	p := New(loadTables(t), st, Options{Workers: 2})

	res, err := p.Run(ctx, "profiles.zip", twoMandates())
	require.NoError(t, err)
	require.NotNil(t, res.Parsed)
	require.NotNil(t, res.Expanded)

	run, err := st.GetRun(ctx, res.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	assert.Equal(t, "profiles.zip", run.Source)
	assert.Equal(t, 3, run.Documents)
	assert.Equal(t, 1, run.Failed)
	assert.Equal(t, 2, run.Legislatures)
	assert.Equal(t, 8, run.PersonYears)
	assert.NotNil(t, run.FinishedAt)

	records, err := st.LoadLegislatures(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Parsed.Records, records)

	rows, err := st.LoadPersonYears(ctx, run.ID, "2012-2016")
	require.NoError(t, err)
	assert.Len(t, rows, 4)

	events, err := st.ListAudit(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, events, len(res.Audit()))
	require.NotEmpty(t, events)
	assert.Equal(t, RuleConstituency, events[0].Rule)
	assert.Equal(t, run.ID, events[0].RunID)
}

func TestParseRunThenExpandRun(t *testing.T) {
	ctx := context.Background()
	st := newSQLite(t)
	p := New(loadTables(t), st, Options{})

	parsed, err := p.ParseRun(ctx, "profiles.zip", twoMandates())
	require.NoError(t, err)
	assert.Nil(t, parsed.Expanded)

	expanded, err := p.ExpandRun(ctx, parsed.Run.ID)
	require.NoError(t, err)
	assert.Len(t, expanded.Expanded.PersonYears, 8)

	run, err := st.GetRun(ctx, parsed.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, run.Legislatures)
	assert.Equal(t, 8, run.PersonYears)
	assert.Equal(t, model.RunStatusComplete, run.Status)
}

func TestExpandRun_ReplacesGapEvents(t *testing.T) {
	ctx := context.Background()
	st := newSQLite(t)
	p := New(loadTables(t), st, Options{})

	run, err := st.CreateRun(ctx, "profiles.zip")
	require.NoError(t, err)
	require.NoError(t, st.SaveLegislatures(ctx, run.ID, []model.PersonLegislature{{
		PersonID:     1,
		Surname:      "POP",
		Given:        "Ion",
		Legislature:  "2008-2012",
		Chamber:      model.ChamberDeputies,
		Constituency: "CLUJ",
		MandateStart: model.NewDate(2008, 12, 15),
		MandateEnd:   model.NewDate(2010, 11, 30),
		EntryParty:   "PER",
		Rank:         model.RankMember,
		Seniority:    1,
	}}))
	require.NoError(t, st.SaveAudit(ctx, []model.AuditEvent{{RunID: run.ID, Document: "a_.html", Rule: RuleNote, Detail: "chamber undetermined"}}))

	countRules := func() map[string]int {
		events, err := st.ListAudit(ctx, run.ID)
		require.NoError(t, err)
		out := map[string]int{}
		for _, e := range events {
			out[e.Rule]++
		}
		return out
	}

	_, err = p.ExpandRun(ctx, run.ID)
	require.NoError(t, err)
	first := countRules()
	require.Positive(t, first[RuleGap])

	_, err = p.ExpandRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, first, countRules())
	assert.Equal(t, 1, first[RuleNote])
}

func TestExpandRun_UnknownRun(t *testing.T) {
	p := New(loadTables(t), newSQLite(t), Options{})

	_, err := p.ExpandRun(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrRunNotFound)
}

func TestRun_NoStore(t *testing.T) {
	p := New(loadTables(t), nil, Options{})

	_, err := p.Run(context.Background(), "x", nil)
	assert.ErrorContains(t, err, "pipeline: no store configured")
	_, err = p.ExpandRun(context.Background(), "x")
	assert.ErrorContains(t, err, "pipeline: no store configured")
}

func TestRun_SaveFailureMarksRunFailed(t *testing.T) {
	ctx := context.Background()
	st := &mockStore{}
	run := &model.Run{ID: "run-1", Status: model.RunStatusRunning}

	st.On("CreateRun", mock.Anything, "profiles.zip").Return(run, nil)
	st.On("SaveLegislatures", mock.Anything, "run-1", mock.Anything).Return(eris.New("disk full"))
	st.On("FinishRun", mock.Anything, mock.MatchedBy(func(r *model.Run) bool {
		return r.Status == model.RunStatusFailed
	})).Return(nil)

	p := New(loadTables(t), st, Options{})
	_, err := p.Run(ctx, "profiles.zip", twoMandates())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline: save legislatures")
	assert.Contains(t, err.Error(), "disk full")

	st.AssertExpectations(t)
	st.AssertNotCalled(t, "SavePersonYears", mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_CreateRunError(t *testing.T) {
	st := &mockStore{}
	st.On("CreateRun", mock.Anything, "x").Return(nil, eris.New("locked"))

	_, err := New(loadTables(t), st, Options{}).Run(context.Background(), "x", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline: create run")
	st.AssertNotCalled(t, "FinishRun", mock.Anything, mock.Anything)
}

func TestResult_Audit(t *testing.T) {
	r := &Result{
		Parsed:   &Parsed{Audit: []model.AuditEvent{{Rule: "a"}}},
		Expanded: &Expanded{Audit: []model.AuditEvent{{Rule: "b"}, {Rule: "c"}}},
	}
	assert.Len(t, r.Audit(), 3)
	assert.Empty(t, (&Result{}).Audit())
}
