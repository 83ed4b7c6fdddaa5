package reference

import (
	"slices"
	"strconv"
	"strings"

	"github.com/sells-group/legislator-panel/internal/model"
)

type index struct {
	eras       map[string]map[int]string
	legOrder   map[string]int
	elections  map[int]bool
	ethnic     map[string]bool
	personal   map[string]bool
	overrides  map[string]PartyOverride
	noCaucus   map[string]bool
	defMandate map[string]bool
	identities map[string]string
	media      map[string]model.Date
}

func personKey(surname, given, legislature string) string {
	return surname + "|" + given + "|" + legislature
}

func buildIndex(t *Tables) index {
	idx := index{
		eras:       make(map[string]map[int]string),
		legOrder:   make(map[string]int, len(t.Context.Legislatures)),
		elections:  make(map[int]bool, len(t.Context.ElectionYears)),
		ethnic:     make(map[string]bool),
		personal:   make(map[string]bool),
		overrides:  make(map[string]PartyOverride, len(t.Overrides.Party)),
		noCaucus:   make(map[string]bool),
		defMandate: make(map[string]bool),
		identities: make(map[string]string),
		media:      make(map[string]model.Date, len(t.Justice.MediaAnnouncements)),
	}
	for _, era := range t.Geography.Eras {
		for _, l := range era.Legislatures {
			idx.eras[l] = era.Codes
		}
	}
	for i, l := range t.Context.Legislatures {
		idx.legOrder[l] = i
	}
	for _, y := range t.Context.ElectionYears {
		idx.elections[y] = true
	}
	for _, p := range t.Context.EthnicParties {
		idx.ethnic[p] = true
	}
	for _, p := range t.Context.PersonalityParties {
		idx.personal[p] = true
	}
	for _, o := range t.Overrides.Party {
		idx.overrides[personKey(o.Surname, o.Given, o.Legislature)] = o
	}
	for _, p := range t.Overrides.NoCaucus {
		idx.noCaucus[personKey(p.Surname, p.Given, "")] = true
	}
	for _, p := range t.Overrides.DefaultMandate {
		idx.defMandate[personKey(p.Surname, p.Given, p.Legislature)] = true
	}
	for _, id := range t.Overrides.Identities {
		idx.identities[personKey(id.Surname, id.Given, id.Legislature)] = id.Key
	}
	for _, m := range t.Justice.MediaAnnouncements {
		idx.media[FoldName(m.Name)] = m.Date
	}
	return idx
}

// PartyName returns the full name of a party code.
func (t *Tables) PartyName(code string) string {
	for _, p := range t.Parties.Codes {
		if p.Code == code {
			return p.Name
		}
	}
	return ""
}

// Constituency maps a numeric constituency code to its name using the numbering in
// force for the legislature.
func (t *Tables) Constituency(legislature string, code int) (string, bool) {
	name, ok := t.idx.eras[legislature][code]
	return name, ok
}

// Region returns the historical region of a constituency, 0 when unknown.
func (t *Tables) Region(constituency string) int {
	return t.Geography.Regions[constituency]
}

// County returns the local executive parties of a constituency in a legislature.
func (t *Tables) County(legislature, constituency string) (CountyPolitics, bool) {
	c, ok := t.Geography.CountyPolitics[legislature][constituency]
	return c, ok
}

// Canonical collapses a historically renamed party code to its modern code.
func (t *Tables) Canonical(code string) string {
	if c, ok := t.Parties.Canonical[code]; ok {
		return c
	}
	return code
}

// Lineage maps a party onto the party that absorbed it, for party-level context joins.
func (t *Tables) Lineage(code string) string {
	if c, ok := t.Parties.Lineage[code]; ok {
		return c
	}
	return code
}

// RenameSuppresses reports whether a switch out of party in year is the party renaming itself.
func (t *Tables) RenameSuppresses(party string, year int) bool {
	for _, ev := range t.Parties.Events {
		if ev.Kind == EventRename && ev.Old == party && ev.Year == year {
			return true
		}
	}
	return false
}

// MergerSuppresses reports whether a move from one party to another in year is a merger.
func (t *Tables) MergerSuppresses(from, to string, year int) bool {
	for _, ev := range t.Parties.Events {
		if ev.Kind == EventMerger && ev.Old == from && ev.New == to && ev.Year == year {
			return true
		}
	}
	return false
}

// IsPanelLegislature reports whether a legislature is expanded into person-years.
func (t *Tables) IsPanelLegislature(legislature string) bool {
	return slices.Contains(t.Context.PanelLegislatures, legislature)
}

// LegislatureIndex returns the chronological position of a legislature, -1 when unknown.
func (t *Tables) LegislatureIndex(legislature string) int {
	if i, ok := t.idx.legOrder[legislature]; ok {
		return i
	}
	return -1
}

// PreviousLegislature returns the legislature preceding the given one.
func (t *Tables) PreviousLegislature(legislature string) (string, bool) {
	i := t.LegislatureIndex(legislature)
	if i <= 0 {
		return "", false
	}
	return t.Context.Legislatures[i-1], true
}

// IsElectionYear reports whether a general election was held in year.
func (t *Tables) IsElectionYear(year int) bool {
	return t.idx.elections[year]
}

// NextElection returns the first election year at or after year.
func (t *Tables) NextElection(year int) (int, bool) {
	for _, y := range t.Context.ElectionYears {
		if y >= year {
			return y, true
		}
	}
	return 0, false
}

// LegislatureBounds returns the start and end years of a legislature label.
// The label "2016-prezent" reads as ending in 2020.
func LegislatureBounds(legislature string) (int, int, bool) {
	from, to, ok := strings.Cut(legislature, "-")
	if !ok {
		return 0, 0, false
	}
	start, err := strconv.Atoi(strings.TrimSpace(from))
	if err != nil {
		return 0, 0, false
	}
	to = strings.TrimSpace(to)
	if to == "prezent" {
		return start, 2020, true
	}
	end, err := strconv.Atoi(to)
	if err != nil {
		return 0, 0, false
	}
	return start, end, true
}

// PartySize returns the size category of a party in a legislature.
func (t *Tables) PartySize(legislature, party string) (string, bool) {
	s, ok := t.Context.PartySize[legislature][party]
	return s, ok
}

// Government returns senior, junior or opposition for a party in year.
func (t *Tables) Government(year int, party string) (string, bool) {
	s, ok := t.Context.Government[year][party]
	return s, ok
}

// LeaderChange reports whether the party changed leader in year.
func (t *Tables) LeaderChange(year int, party string) bool {
	return slices.Contains(t.Context.LeaderChanges[year], party)
}

// LeaderChangeFormal is LeaderChange counting formal office holders only.
func (t *Tables) LeaderChangeFormal(year int, party string) bool {
	return slices.Contains(t.Context.LeaderChangesFormal[year], party)
}

// Ethnic reports whether a party represents an ethnic minority.
func (t *Tables) Ethnic(party string) bool { return t.idx.ethnic[party] }

// Personality reports whether a party is built around a single personality.
func (t *Tables) Personality(party string) bool { return t.idx.personal[party] }

// LeaderConviction reports whether the party leader was convicted in year.
// With multiYear the signal persists while the leader stays in office.
func (t *Tables) LeaderConviction(year int, party string, multiYear bool) bool {
	table := t.Justice.LeaderConvictions.OneYear
	if multiYear {
		table = t.Justice.LeaderConvictions.MultiYear
	}
	return slices.Contains(table[year], party)
}

// Minister-conviction interpretive rules.
const (
	RuleFull = "full"
	RuleOld  = "old"
	RuleNew  = "new"
	RuleNone = "none"
)

// MinisterConvictions counts convicted ministers of party in year under rule.
func (t *Tables) MinisterConvictions(rule string, year int, party string) int {
	return t.Justice.MinisterConvictions[rule][year][party]
}

// MediaDate returns the first media mention of a probe into the named person.
func (t *Tables) MediaDate(surname, given string) (model.Date, bool) {
	d, ok := t.idx.media[FoldName(surname+" "+given)]
	return d, ok
}

// SwitchCost returns the ideological distance of a move from one party to another in year.
// Edges touching the split party use the weights before or after the split year.
func (t *Tables) SwitchCost(from, to string, year int) (int, bool) {
	edge := from + "-" + to
	table := t.Costs.AnyPeriod
	if from == t.Costs.SplitParty || to == t.Costs.SplitParty {
		table = t.Costs.AfterSplit
		if year <= t.Costs.SplitYear {
			table = t.Costs.BeforeSplit
		}
	}
	c, ok := table[edge]
	return c, ok
}

// PartyOverride returns the documented party correction for one mandate.
func (t *Tables) PartyOverride(surname, given, legislature string) (PartyOverride, bool) {
	o, ok := t.idx.overrides[personKey(surname, given, legislature)]
	return o, ok
}

// CaucusDestination returns the caucus a nominally independent legislator actually joined.
func (t *Tables) CaucusDestination(surname, given, legislature string) (string, bool) {
	d, ok := t.Overrides.CaucusDestinations[legislature][surname+" "+given]
	return d, ok
}

// HasNoCaucus reports whether the person never registered with a parliamentary group.
func (t *Tables) HasNoCaucus(surname, given string) bool {
	return t.idx.noCaucus[personKey(surname, given, "")]
}

// ForcesDefaultMandate reports whether the mandate dates in the profile must be ignored.
func (t *Tables) ForcesDefaultMandate(surname, given, legislature string) bool {
	return t.idx.defMandate[personKey(surname, given, legislature)]
}

// IdentityKey returns the key that distinguishes a person from namesakes.
func (t *Tables) IdentityKey(surname, given, legislature string) string {
	if k, ok := t.idx.identities[personKey(surname, given, legislature)]; ok {
		return k
	}
	return surname + " " + given
}

// NameFix returns the first documented correction whose marker occurs in the parsed given
// names. Garbled name blocks leave office titles and uppercase fragments there.
func (t *Tables) NameFix(given string) (NameFix, bool) {
	for _, f := range t.Overrides.Names {
		if strings.Contains(given, f.Contains) {
			return f, true
		}
	}
	return NameFix{}, false
}
