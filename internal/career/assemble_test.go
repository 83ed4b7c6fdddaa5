package career

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/legislator-panel/internal/model"
	"github.com/sells-group/legislator-panel/internal/reference"
)

func loadTables(t *testing.T) *reference.Tables {
	t.Helper()
	tables, err := reference.Load()
	require.NoError(t, err)
	return tables
}

func rec(surname, given, leg, dest string) model.PersonLegislature {
	r := model.PersonLegislature{
		Document:    surname + "-" + leg,
		Surname:     surname,
		Given:       given,
		Legislature: leg,
		Chamber:     model.ChamberDeputies,
		EntryParty:  "PSD",
		Rank:        model.RankMember,
	}
	if dest != "" {
		r.Destination, r.SwitchMonth, r.SwitchYear = dest, 3, 2006
	}
	return r
}

func TestDedupe(t *testing.T) {
	t.Parallel()
	a := rec("SILAGHI", "Ovidiu Ioan", "2012-2016", "")
	b := a
	b.Document = "another-file"
	c := a
	c.Constituency = "SATU MARE"

	got := Dedupe([]model.PersonLegislature{a, b, c})
	require.Len(t, got, 2)
	assert.Equal(t, a.Document, got[0].Document)
	assert.Equal(t, "SATU MARE", got[1].Constituency)
}

func TestAssemble(t *testing.T) {
	t.Parallel()
	tables := loadTables(t)

	records := []model.PersonLegislature{
		rec("BETA", "Maria", "2008-2012", ""),
		rec("ALPHA", "Ion", "2008-2012", ""),
		rec("ALPHA", "Ion", "2000-2004", ""),
		rec("ALPHA", "Ion", "2004-2008", "PNL"),
		rec("ALPHA", "Ion", "2004-2008", "PNL"),
	}
	got := Assemble(records, tables)
	require.Len(t, got, 4)

	type row struct {
		id       int
		leg      string
		senior   int
		switcher int
	}
	var rows []row
	for _, r := range got {
		rows = append(rows, row{r.PersonID, r.Legislature, r.Seniority, r.FormerSwitcher})
	}
	assert.Equal(t, []row{
		{1, "2000-2004", 1, 0},
		{1, "2004-2008", 2, 0},
		{1, "2008-2012", 3, 1},
		{2, "2008-2012", 1, 0},
	}, rows)
}

func TestAssemble_StableIDs(t *testing.T) {
	t.Parallel()
	tables := loadTables(t)

	a := []model.PersonLegislature{rec("ZED", "Ana", "2000-2004", ""), rec("ALPHA", "Ion", "2000-2004", "")}
	b := []model.PersonLegislature{a[1], a[0]}

	assert.Equal(t, Assemble(a, tables), Assemble(b, tables))
}

func TestAssemble_NameCollisions(t *testing.T) {
	t.Parallel()
	tables := loadTables(t)

	got := Assemble([]model.PersonLegislature{
		rec("POPESCU", "Virgil", "1990-1992", ""),
		rec("POPESCU", "Virgil", "1996-2000", ""),
		rec("POPESCU", "Corneliu", "2004-2008", ""),
		rec("POPESCU", "Corneliu", "2012-2016", ""),
	}, tables)
	require.Len(t, got, 4)

	ids := map[string]int{}
	for _, r := range got {
		ids[r.Key()] = r.PersonID
		assert.Equal(t, 1, r.Seniority, r.Key())
	}
	assert.NotEqual(t, ids["POPESCU Virgil|1990-1992"], ids["POPESCU Virgil|1996-2000"])
	assert.NotEqual(t, ids["POPESCU Corneliu|2004-2008"], ids["POPESCU Corneliu|2012-2016"])
}

func TestAssemble_FirstLegislatureKept(t *testing.T) {
	t.Parallel()
	tables := loadTables(t)

	got := Assemble([]model.PersonLegislature{
		rec("CAJAL", "Nicolae", "1990-1992", "PNL"),
		rec("CAJAL", "Nicolae", "1992-1996", ""),
	}, tables)
	require.Len(t, got, 2)
	assert.Equal(t, "1990-1992", got[0].Legislature)
	assert.Equal(t, 0, got[0].FormerSwitcher)
	assert.Equal(t, 1, got[1].FormerSwitcher)
}

func TestSeniority_Monotonic(t *testing.T) {
	t.Parallel()
	records := []model.PersonLegislature{
		{PersonID: 1, Legislature: "1996-2000"},
		{PersonID: 1, Legislature: "2004-2008"},
		{PersonID: 1, Legislature: "2004-2008"},
		{PersonID: 1, Legislature: "2012-2016"},
		{PersonID: 2, Legislature: "2016-2020"},
	}
	Seniority(records)

	var got []int
	for _, r := range records {
		got = append(got, r.Seniority)
	}
	assert.Equal(t, []int{1, 2, 2, 3, 1}, got)
}

func TestNearDuplicates(t *testing.T) {
	t.Parallel()
	records := []model.PersonLegislature{
		rec("ŢUREA", "Răzvan", "2008-2012", ""),
		rec("ȚUREA", "Răzvan", "2012-2016", ""),
		rec("POPESCU", "Ion", "2008-2012", ""),
		rec("VLAD", "Maria", "2008-2012", ""),
	}
	pairs := NearDuplicates(records, DefaultThreshold)
	require.Len(t, pairs, 1)
	assert.InDelta(t, 1.0, pairs[0].Similarity, 1e-9)
	assert.ElementsMatch(t, []string{"ŢUREA Răzvan", "ȚUREA Răzvan"}, []string{pairs[0].Left, pairs[0].Right})

	assert.Empty(t, NearDuplicates(records[2:], DefaultThreshold))
}
