// Package panel expands person-legislature records into a person-year panel and joins in
// the yearly political context.
package panel

import (
	"fmt"

	"github.com/sells-group/legislator-panel/internal/model"
	"github.com/sells-group/legislator-panel/internal/reference"
)

// Gap is a reference lookup that found no value. The affected column is left empty.
type Gap struct {
	PersonID    int    `json:"person_id" csv:"person_id"`
	Legislature string `json:"legislature" csv:"legislature"`
	Year        int    `json:"year" csv:"year"`
	Field       string `json:"field" csv:"field"`
	Key         string `json:"key" csv:"key"`
}

var seniorityCategories = map[int]string{1: "novice", 2: "journeyman"}

var switchCostCategories = map[int]string{0: "low", 1: "medium", 2: "high"}

// Expander turns mandates into one row per calendar year served.
type Expander struct {
	Tables *reference.Tables
}

// NewExpander returns an Expander over tables.
func NewExpander(tables *reference.Tables) *Expander {
	return &Expander{Tables: tables}
}

// Expand generates the person-year rows of every record in a panel legislature. Mandates
// that ended in death are left out. Input records are not modified.
func (e *Expander) Expand(records []model.PersonLegislature) ([]model.PersonYear, []Gap) {
	legislatures := make(map[int]map[string]bool)
	for _, r := range records {
		if legislatures[r.PersonID] == nil {
			legislatures[r.PersonID] = make(map[string]bool)
		}
		legislatures[r.PersonID][r.Legislature] = true
	}

	var (
		rows []model.PersonYear
		gaps []Gap
	)
	for _, r := range records {
		if r.DiedInOffice || !e.Tables.IsPanelLegislature(r.Legislature) {
			continue
		}
		multi := 0
		if len(legislatures[r.PersonID]) > 1 {
			multi = 1
		}
		out, g := e.expandOne(r, multi)
		rows = append(rows, out...)
		gaps = append(gaps, g...)
	}
	return rows, gaps
}

// Years returns the calendar years a mandate covers. A mandate opened in December of the
// legislature's election year starts counting the following January.
func Years(r model.PersonLegislature) (int, int) {
	first := r.MandateStart.Year
	if start, _, ok := reference.LegislatureBounds(r.Legislature); ok && first == start && r.MandateStart.Month == 12 {
		first++
	}
	return first, r.MandateEnd.Year
}

func (e *Expander) expandOne(r model.PersonLegislature, multi int) ([]model.PersonYear, []Gap) {
	t := e.Tables
	var gaps []Gap
	gap := func(year int, field, key string) {
		gaps = append(gaps, Gap{PersonID: r.PersonID, Legislature: r.Legislature, Year: year, Field: field, Key: key})
	}

	first, last := Years(r)
	party := t.Lineage(r.EntryParty)

	region := t.Region(r.Constituency)
	if region == 0 {
		gap(0, "h_region", r.Constituency)
	}
	size, ok := t.PartySize(r.Legislature, party)
	if !ok {
		gap(0, "p_size", party)
	}
	seniorCat, ok := seniorityCategories[r.Seniority]
	if !ok {
		seniorCat = "master"
	}
	senate := 0
	if r.Chamber == model.ChamberSenate {
		senate = 1
	}
	overlap := e.localOverlap(r.Legislature, r.Constituency, party)

	rows := make([]model.PersonYear, 0, max(0, last-first+1))
	for year := first; year <= last; year++ {
		row := model.PersonYear{
			PersonID:          r.PersonID,
			Surname:           r.Surname,
			Given:             r.Given,
			Legislature:       r.Legislature,
			LegisClock:        year - first + 1,
			Year:              year,
			MultiLegis:        multi,
			Senate:            senate,
			Constituency:      r.Constituency,
			Region:            region,
			Seniority:         r.Seniority,
			SeniorityCategory: seniorCat,
			StartParty:        party,
			PartySize:         size,
			PartyEthnic:       flag(t.Ethnic(party)),
			PartyPersonality:  flag(t.Personality(party)),
			Rank:              model.RankMember,
			LocalOverlap:      overlap,
		}

		if govt, ok := t.Government(year, party); ok {
			row.Government = govt
		} else {
			gap(year, "p_govt", party)
		}

		if r.RankSpan.CoversYear(year) {
			row.Rank = r.Rank
		}

		if r.SwitchYear == year && !t.MergerSuppresses(r.EntryParty, r.Destination, year) {
			row.Switch = 1
			row.Destination = r.Destination
			if r.Destination == "" {
				gap(year, "p_dest", party)
			} else if c, ok := t.SwitchCost(party, r.Destination, year); ok {
				row.SwitchCost = switchCostCategories[c]
			} else {
				gap(year, "idlgcl_switch_cost", fmt.Sprintf("%s-%s", party, r.Destination))
			}
		}

		row.ElectionYear = flag(t.IsElectionYear(year))
		row.LeaderChange = flag(t.LeaderChange(year, party))
		row.LeaderChangeFormal = flag(t.LeaderChangeFormal(year, party))
		row.LeaveEarly = flag(year == last && int(r.MandateEnd.Month) <= t.Context.LeaveEarlyMonth)
		row.LeaderConvOneYear = flag(t.LeaderConviction(year, party, false))
		row.LeaderConvMulti = flag(t.LeaderConviction(year, party, true))
		row.MinConvFull = t.MinisterConvictions(reference.RuleFull, year, party)
		row.MinConvOld = t.MinisterConvictions(reference.RuleOld, year, party)
		row.MinConvNew = t.MinisterConvictions(reference.RuleNew, year, party)
		row.MinConvNone = t.MinisterConvictions(reference.RuleNone, year, party)

		rows = append(rows, row)
	}
	return rows, gaps
}

// localOverlap compares the party with the county executive and the county-seat mayor.
func (e *Expander) localOverlap(legislature, constituency, party string) string {
	c, ok := e.Tables.County(legislature, constituency)
	if !ok {
		return model.OverlapNone
	}
	switch matches := flag(c.CountyPresident == party) + flag(c.SeatMayor == party); matches {
	case 2:
		return model.OverlapFull
	case 1:
		return model.OverlapPartial
	default:
		return model.OverlapNone
	}
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}
