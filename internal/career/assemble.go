// Package career ties per-legislature records into person careers.
package career

import (
	"sort"

	"github.com/sells-group/legislator-panel/internal/model"
	"github.com/sells-group/legislator-panel/internal/reference"
)

// Assemble deduplicates the records, assigns person ids and computes seniority and the
// former-switcher flag. Ids follow the sorted identity keys, so the same input always
// yields the same ids. The result is ordered by person id and legislature.
func Assemble(records []model.PersonLegislature, tables *reference.Tables) []model.PersonLegislature {
	out := Dedupe(records)

	keys := make([]string, len(out))
	unique := make(map[string]int)
	for i, r := range out {
		keys[i] = tables.IdentityKey(r.Surname, r.Given, r.Legislature)
		unique[keys[i]] = 0
	}
	sorted := make([]string, 0, len(unique))
	for k := range unique {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)
	for i, k := range sorted {
		unique[k] = i + 1
	}
	for i := range out {
		out[i].PersonID = unique[keys[i]]
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PersonID != out[j].PersonID {
			return out[i].PersonID < out[j].PersonID
		}
		li, lj := tables.LegislatureIndex(out[i].Legislature), tables.LegislatureIndex(out[j].Legislature)
		if li != lj {
			return li < lj
		}
		return out[i].Chamber < out[j].Chamber
	})

	Seniority(out)
	FormerSwitchers(out, tables)
	return out
}

// Dedupe drops records that repeat every parsed field of an earlier record. The source
// document name is not compared.
func Dedupe(records []model.PersonLegislature) []model.PersonLegislature {
	seen := make(map[model.PersonLegislature]bool, len(records))
	out := make([]model.PersonLegislature, 0, len(records))
	for _, r := range records {
		k := r
		k.Document, k.PersonID, k.Seniority, k.FormerSwitcher = "", 0, 0, 0
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}

// Seniority numbers each person's legislatures 1, 2, 3, ... in the order given. Records
// must be grouped by person and ordered chronologically. Two records of one person in
// the same legislature share a number.
func Seniority(records []model.PersonLegislature) {
	for i := range records {
		switch {
		case i == 0 || records[i].PersonID != records[i-1].PersonID:
			records[i].Seniority = 1
		case records[i].Legislature == records[i-1].Legislature:
			records[i].Seniority = records[i-1].Seniority
		default:
			records[i].Seniority = records[i-1].Seniority + 1
		}
	}
}

// FormerSwitchers flags records whose person switched party in the preceding legislature.
func FormerSwitchers(records []model.PersonLegislature, tables *reference.Tables) {
	type stint struct {
		id  int
		leg string
	}
	switched := make(map[stint]bool)
	for _, r := range records {
		if r.Destination != "" {
			switched[stint{r.PersonID, r.Legislature}] = true
		}
	}
	for i := range records {
		records[i].FormerSwitcher = 0
		prev, ok := tables.PreviousLegislature(records[i].Legislature)
		if ok && switched[stint{records[i].PersonID, prev}] {
			records[i].FormerSwitcher = 1
		}
	}
}
