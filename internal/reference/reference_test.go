package reference

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTables(t *testing.T) *Tables {
	t.Helper()
	tables, err := Load()
	require.NoError(t, err)
	return tables
}

func TestLoad_Embedded(t *testing.T) {
	t.Parallel()
	tables := loadTables(t)

	assert.Len(t, tables.Context.Legislatures, 8)
	assert.Equal(t, "Partidul Naţional Liberal", tables.PartyName("PNL"))
	assert.Empty(t, tables.PartyName("XYZ"))
	assert.Len(t, tables.Parties.Events, 6)
}

func TestConstituency_Eras(t *testing.T) {
	t.Parallel()
	tables := loadTables(t)

	tests := []struct {
		leg  string
		code int
		want string
		ok   bool
	}{
		{"1990-1992", 41, "BUCUREŞTI", true},
		{"1990-1992", 42, "", false},
		{"1996-2000", 42, "ILFOV", true},
		{"2004-2008", 25, "ILFOV", true},
		{"2004-2008", 42, "BUCUREŞTI", true},
		{"2016-2020", 43, "DIASPORA", true},
		{"2030-2034", 1, "", false},
	}
	for _, tt := range tests {
		got, ok := tables.Constituency(tt.leg, tt.code)
		assert.Equal(t, tt.ok, ok, "%s %d", tt.leg, tt.code)
		assert.Equal(t, tt.want, got, "%s %d", tt.leg, tt.code)
	}
}

func TestContinuityEvents(t *testing.T) {
	t.Parallel()
	tables := loadTables(t)

	assert.True(t, tables.RenameSuppresses("PDSR", 2001))
	assert.True(t, tables.RenameSuppresses("FSN", 1993))
	assert.False(t, tables.RenameSuppresses("PDSR", 2002))
	assert.False(t, tables.RenameSuppresses("PDL", 2015), "mergers are not renames")

	assert.True(t, tables.MergerSuppresses("PDL", "PNL", 2015))
	assert.True(t, tables.MergerSuppresses("PC", "ALDE", 2015))
	assert.False(t, tables.MergerSuppresses("PDL", "PSD", 2015))
	assert.False(t, tables.MergerSuppresses("PDL", "PNL", 2014))
}

func TestGovernmentAndSize(t *testing.T) {
	t.Parallel()
	tables := loadTables(t)

	govt, ok := tables.Government(2013, "PNL")
	require.True(t, ok)
	assert.Equal(t, "senior", govt)

	_, ok = tables.Government(2013, "USR")
	assert.False(t, ok)

	size, ok := tables.PartySize("2008-2012", "PDL")
	require.True(t, ok)
	assert.Equal(t, "large", size)
}

func TestSwitchCost_SplitParty(t *testing.T) {
	t.Parallel()
	tables := loadTables(t)

	c, ok := tables.SwitchCost("PSD", "PNL", 2014)
	require.True(t, ok)
	assert.Equal(t, 2, c)

	c, ok = tables.SwitchCost("PSD", "PNL", 2015)
	require.True(t, ok)
	assert.Equal(t, 1, c)

	c, ok = tables.SwitchCost("PMP", "PSD", 2018)
	require.True(t, ok)
	assert.Equal(t, 2, c)

	_, ok = tables.SwitchCost("USR", "PMP", 2018)
	assert.False(t, ok)
}

func TestMediaDate_FoldsDiacritics(t *testing.T) {
	t.Parallel()
	tables := loadTables(t)

	d, ok := tables.MediaDate("ROŞCA STĂNESCU", "Sorin")
	require.True(t, ok)
	assert.Equal(t, 2006, d.Year)

	d, ok = tables.MediaDate("ŞEREŞ", "Codruţ")
	require.True(t, ok)
	assert.Equal(t, "2008-10-26", d.String())

	_, ok = tables.MediaDate("POPESCU", "Nobody")
	assert.False(t, ok)
}

func TestFoldName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "serbanescu stefan", FoldName("ŞERBĂNESCU  Ştefan"))
	assert.Equal(t, FoldName("Țurea Răzvan"), FoldName("ŢUREA Răzvan"))
	assert.Equal(t, "bistrita nasaud", FoldName("BISTRIŢA-NĂSĂUD"))
}

func TestOverrides(t *testing.T) {
	t.Parallel()
	tables := loadTables(t)

	o, ok := tables.PartyOverride("BOLD", "Ion", "1992-1996")
	require.True(t, ok)
	assert.Equal(t, "PNTCD", o.Entry)
	require.NotNil(t, o.Switch)
	assert.Equal(t, SwitchDate{Month: 12, Year: 1994}, *o.Switch)

	o, ok = tables.PartyOverride("IORGOVAN", "Antonie", "1990-1992")
	require.True(t, ok)
	assert.Nil(t, o.Switch)

	_, ok = tables.PartyOverride("BOLD", "Ion", "1996-2000")
	assert.False(t, ok)

	dest, ok := tables.CaucusDestination("OPREA", "Gabriel", "2008-2012")
	require.True(t, ok)
	assert.Equal(t, "UNPR", dest)

	assert.True(t, tables.HasNoCaucus("CAZIMIR", "Ştefan"))
	assert.True(t, tables.ForcesDefaultMandate("SILAGHI", "Ovidiu Ioan", "2012-2016"))
	assert.Equal(t, "POPESCU Virgil (1990-1992)", tables.IdentityKey("POPESCU", "Virgil", "1990-1992"))
	assert.Equal(t, "POPESCU Virgil", tables.IdentityKey("POPESCU", "Virgil", "1996-2000"))

	fix, ok := tables.NameFix("Nicolae BĂNICIOIU")
	require.True(t, ok)
	assert.Equal(t, "BĂNICIOIU", fix.Surname)
}

func TestLegislatureNavigation(t *testing.T) {
	t.Parallel()
	tables := loadTables(t)

	prev, ok := tables.PreviousLegislature("2004-2008")
	require.True(t, ok)
	assert.Equal(t, "2000-2004", prev)

	_, ok = tables.PreviousLegislature("1990-1992")
	assert.False(t, ok)

	assert.True(t, tables.IsPanelLegislature("2008-2012"))
	assert.False(t, tables.IsPanelLegislature("1996-2000"))

	next, ok := tables.NextElection(2013)
	require.True(t, ok)
	assert.Equal(t, 2016, next)
	next, _ = tables.NextElection(2016)
	assert.Equal(t, 2016, next)

	start, end, ok := LegislatureBounds("2016-prezent")
	require.True(t, ok)
	assert.Equal(t, 2016, start)
	assert.Equal(t, 2020, end)
	_, _, ok = LegislatureBounds("bogus")
	assert.False(t, ok)
}

func TestLoadDir_PartialOverride(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	costs := "split_party: PNL\nsplit_year: 2014\nany_period: {PSD-PC: 2}\nbefore_split: {}\nafter_split: {}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "switch_costs.yaml"), []byte(costs), 0o644))

	tables, err := LoadDir(dir)
	require.NoError(t, err)

	c, ok := tables.SwitchCost("PSD", "PC", 2010)
	require.True(t, ok)
	assert.Equal(t, 2, c)

	// Other tables fall back to the embedded copy.
	assert.Len(t, tables.Context.Legislatures, 8)
}

func TestLoadDir_InvalidYAML(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "context.yaml"), []byte("legislatures: [\n"), 0o644))

	_, err := LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reference: parse context.yaml")
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tables := loadTables(t)

	bad := *tables
	bad.Parties.Events = append([]ContinuityEvent{{Old: "A", New: "B", Year: 2000, Kind: "split"}}, tables.Parties.Events...)
	assert.ErrorContains(t, bad.Validate(), "unknown kind")

	bad = *tables
	bad.Overrides.Party = []PartyOverride{{Surname: "X", Given: "Y", Legislature: "1980-1984"}}
	assert.ErrorContains(t, bad.Validate(), "unknown legislature")

	bad = *tables
	bad.Geography.Eras = []Era{{Legislatures: tables.Context.Legislatures, Codes: map[int]string{1: "ALBA", 3: "ARGEŞ"}}}
	assert.ErrorContains(t, bad.Validate(), "skips code")
}
