// Package party reconstructs a legislator's entry party and first party switch from the
// free-text party history of a profile page.
package party

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/legislator-panel/internal/model"
	"github.com/sells-group/legislator-panel/internal/reference"
)

// ErrSwitchDate marks a departure date that cannot be read.
var ErrSwitchDate = eris.New("party: malformed switch date")

// RuleKind names a correction or gap recorded while resolving.
type RuleKind string

const (
	RuleRebrandSuppressed  RuleKind = "rebrand_suppressed"
	RulePartyOverride      RuleKind = "party_override"
	RuleCaucusDestination  RuleKind = "caucus_destination"
	RuleStandardized       RuleKind = "standardized"
	RuleSameParty          RuleKind = "same_party_nullified"
	RuleUnknownEntry       RuleKind = "unknown_entry_code"
	RuleUnknownDestination RuleKind = "unknown_destination_code"
)

// Rule is one fired rule with a human-readable detail.
type Rule struct {
	Kind   RuleKind `json:"kind"`
	Detail string   `json:"detail"`
}

const (
	departureMarker = "până în"
	renameMarker    = "se transforma"

	independentName = "independent"
	minoritiesName  = "minorities"
)

var shortMonths = map[string]int{
	"ian": 1, "feb": 2, "mar": 3, "apr": 4, "mai": 5, "iun": 6,
	"iul": 7, "aug": 8, "sep": 9, "oct": 10, "noi": 11, "dec": 12,
}

// Input is the party-relevant part of one parsed profile.
type Input struct {
	Surname     string
	Given       string
	Legislature string
	Text        string
	Minority    bool
}

// Result is the resolved party history of one mandate.
type Result struct {
	EntryName   string
	Entry       string
	Switch      model.MonthYear
	Destination string
	Fired       []Rule
}

// Switched reports whether a first switch survived resolution.
func (r Result) Switched() bool { return !r.Switch.IsZero() }

// Resolver applies the general rules and then the override tables.
type Resolver struct {
	tables *reference.Tables
}

// NewResolver returns a Resolver backed by tables.
func NewResolver(tables *reference.Tables) *Resolver {
	return &Resolver{tables: tables}
}

func (r *Resolver) fire(res *Result, kind RuleKind, format string, args ...any) {
	res.Fired = append(res.Fired, Rule{Kind: kind, Detail: fmt.Sprintf(format, args...)})
}

// Resolve runs the cascade on one party history.
func (r *Resolver) Resolve(in Input) (Result, error) {
	var res Result
	if in.Minority {
		res.EntryName, res.Entry = minoritiesName, model.Minorities
	}

	segments := strings.Split(in.Text, departureMarker)
	if code := r.scan(segments[0]); code != "" {
		res.Entry, res.EntryName = code, r.tables.PartyName(code)
	}

	for i := 1; i < len(segments); i++ {
		if strings.Contains(segments[i], renameMarker) {
			continue
		}
		when, err := departure(segments[i])
		if err != nil {
			return Result{}, err
		}
		res.Switch = when
		res.Destination = r.destination(segments[i:])
		break
	}

	if res.Switched() && r.tables.RenameSuppresses(res.Entry, res.Switch.Year) {
		r.fire(&res, RuleRebrandSuppressed, "%s renamed in %d", res.Entry, res.Switch.Year)
		res.Switch, res.Destination = model.MonthYear{}, ""
	}

	if o, ok := r.tables.PartyOverride(in.Surname, in.Given, in.Legislature); ok {
		res.Entry = o.Entry
		res.EntryName = r.tables.PartyName(o.Entry)
		if o.Entry == model.Independent {
			res.EntryName = independentName
		}
		if o.Switch != nil {
			res.Switch = model.MonthYear{Month: o.Switch.Month, Year: o.Switch.Year}
		} else {
			res.Switch, res.Destination = model.MonthYear{}, ""
		}
		r.fire(&res, RulePartyOverride, "entry %s switch %s", o.Entry, res.Switch)
	}

	if res.Switched() {
		if dest, ok := r.tables.CaucusDestination(in.Surname, in.Given, in.Legislature); ok {
			r.fire(&res, RuleCaucusDestination, "%s -> %s", res.Destination, dest)
			res.Destination = dest
		}
	}

	if c := r.tables.Canonical(res.Entry); c != res.Entry {
		r.fire(&res, RuleStandardized, "entry %s -> %s", res.Entry, c)
		res.Entry = c
	}
	if c := r.tables.Canonical(res.Destination); c != res.Destination {
		r.fire(&res, RuleStandardized, "destination %s -> %s", res.Destination, c)
		res.Destination = c
	}

	if res.Switched() && res.Destination == res.Entry {
		r.fire(&res, RuleSameParty, "returned to %s", res.Entry)
		res.Switch, res.Destination = model.MonthYear{}, ""
	}

	if res.Entry == "" {
		r.fire(&res, RuleUnknownEntry, "%q", strings.TrimSpace(segments[0]))
	}
	if res.Switched() && res.Destination == "" {
		r.fire(&res, RuleUnknownDestination, "switch %s", res.Switch)
	}
	return res, nil
}

// scan returns the party code found in text. Codes are tried in table order and the
// last hit wins, so longer codes listed after their prefixes take precedence.
func (r *Resolver) scan(text string) string {
	found := ""
	for _, p := range r.tables.Parties.Codes {
		if strings.Contains(text, p.Code) {
			found = p.Code
		}
	}
	for _, s := range r.tables.Parties.Shadowed {
		if found != s.Code {
			continue
		}
		for _, longer := range s.Longer {
			if strings.Contains(text, longer) {
				found = longer
			}
		}
	}
	return found
}

func isIndependent(segment string) bool {
	return strings.Contains(segment, independentName) || strings.Contains(segment, "adeziune")
}

// destination finds the party joined at the boundary opening segs[0]. Independence is a
// way-station: the next segment naming a party is the real destination, and a legislator
// who stays independent until the end of the history is a genuine independent.
func (r *Resolver) destination(segs []string) string {
	if !isIndependent(segs[0]) {
		return r.scan(segs[0])
	}
	for _, s := range segs[1:] {
		if isIndependent(s) {
			continue
		}
		return r.scan(s)
	}
	return model.Independent
}

// departure reads the "MON. YEAR" date that opens a segment.
func departure(segment string) (model.MonthYear, error) {
	fields := strings.Fields(segment)
	if len(fields) < 2 {
		return model.MonthYear{}, eris.Wrapf(ErrSwitchDate, "segment %q", segment)
	}
	month, ok := shortMonths[strings.ReplaceAll(fields[0], ".", "")]
	if !ok {
		return model.MonthYear{}, eris.Wrapf(ErrSwitchDate, "month %q", fields[0])
	}
	yearText := fields[1]
	if len(yearText) > 4 {
		yearText = yearText[:4]
	}
	year, err := strconv.Atoi(yearText)
	if err != nil {
		return model.MonthYear{}, eris.Wrapf(ErrSwitchDate, "year %q", fields[1])
	}
	return model.MonthYear{Month: month, Year: year}, nil
}
