// Package riskset derives survival-analysis risk sets from the person-year panel.
package riskset

import (
	"sort"

	"github.com/sells-group/legislator-panel/internal/model"
)

type spell struct {
	person      int
	legislature string
}

// Extract keeps, for every person-legislature, the years up to and including the first
// switch. Spells without a switch keep every year. With multiYearOnly set, persons observed
// in fewer than two panel years are dropped; the count is taken before truncation, so a
// switch in the first year does not remove the person. The result is ordered by person, legislature and year;
// rows is left untouched.
func Extract(rows []model.PersonYear, multiYearOnly bool) []model.PersonYear {
	firstSwitch := make(map[spell]int)
	for _, r := range rows {
		if r.Switch != 1 {
			continue
		}
		k := spell{r.PersonID, r.Legislature}
		if y, ok := firstSwitch[k]; !ok || r.Year < y {
			firstSwitch[k] = r.Year
		}
	}

	// Panel years per person, counted before truncation.
	observed := make(map[int]int)
	for _, r := range rows {
		observed[r.PersonID]++
	}

	out := make([]model.PersonYear, 0, len(rows))
	for _, r := range rows {
		if multiYearOnly && observed[r.PersonID] < 2 {
			continue
		}
		if y, ok := firstSwitch[spell{r.PersonID, r.Legislature}]; ok && r.Year > y {
			continue
		}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.PersonID != b.PersonID {
			return a.PersonID < b.PersonID
		}
		if a.Legislature != b.Legislature {
			return a.Legislature < b.Legislature
		}
		return a.Year < b.Year
	})
	return out
}

// Colleagues indexes a risk set by start party and year, listing the full names of the
// members still at risk. Names are sorted and unique.
func Colleagues(rows []model.PersonYear) map[string]map[int][]string {
	seen := make(map[string]map[int]map[string]bool)
	for _, r := range rows {
		if seen[r.StartParty] == nil {
			seen[r.StartParty] = make(map[int]map[string]bool)
		}
		if seen[r.StartParty][r.Year] == nil {
			seen[r.StartParty][r.Year] = make(map[string]bool)
		}
		seen[r.StartParty][r.Year][r.FullName()] = true
	}

	out := make(map[string]map[int][]string, len(seen))
	for party, years := range seen {
		out[party] = make(map[int][]string, len(years))
		for year, names := range years {
			list := make([]string, 0, len(names))
			for n := range names {
				list = append(list, n)
			}
			sort.Strings(list)
			out[party][year] = list
		}
	}
	return out
}
