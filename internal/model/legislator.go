package model

// Chamber identifies the house a legislator sat in.
type Chamber string

const (
	ChamberDeputies Chamber = "DEPUTAT"
	ChamberSenate   Chamber = "SENATOR"
)

// RankLevel is a legislator's standing inside a parliamentary party group.
type RankLevel string

const (
	RankMember     RankLevel = "membru"
	RankSecretary  RankLevel = "secretar"
	RankViceLeader RankLevel = "vicelider"
	RankLeader     RankLevel = "lider"
)

var rankOrder = map[RankLevel]int{
	RankMember:     0,
	RankSecretary:  1,
	RankViceLeader: 2,
	RankLeader:     3,
}

// Ordinal returns the position of the rank in member < secretary < vice-leader < leader.
// Unknown ranks sort as members.
func (r RankLevel) Ordinal() int {
	return rankOrder[r]
}

// Independent is the party code for legislators without party membership.
const Independent = "IND"

// Minorities is the pseudo-party code for national minority representatives.
const Minorities = "MIN"

// PersonLegislature is one mandate of one person in one legislature.
type PersonLegislature struct {
	PersonID       int       `json:"person_id" csv:"person_id"`
	Document       string    `json:"document,omitempty" csv:"-"`
	Legislature    string    `json:"legislature" csv:"legislature"`
	Chamber        Chamber   `json:"chamber" csv:"chamber"`
	Constituency   string    `json:"constituency" csv:"constituency"`
	Surname        string    `json:"surname" csv:"surnames"`
	Given          string    `json:"given" csv:"given_names"`
	MandateStart   Date      `json:"mandate_start" csv:"mandate_start"`
	MandateEnd     Date      `json:"mandate_end" csv:"mandate_end"`
	DiedInOffice   bool      `json:"died_in_office" csv:"died_in_office"`
	EntryPartyName string    `json:"entry_party_name" csv:"entry_party_name"`
	EntryParty     string    `json:"entry_party" csv:"entry_party_code"`
	Rank           RankLevel `json:"rank" csv:"entry_ppg_rank"`
	RankSpan       Span      `json:"rank_span" csv:"entry_ppg_rank_dates"`
	Destination    string    `json:"destination,omitempty" csv:"destination_party_code"`
	SwitchMonth    int       `json:"switch_month,omitempty" csv:"first_party_switch_month,omitempty"`
	SwitchYear     int       `json:"switch_year,omitempty" csv:"first_party_switch_year,omitempty"`
	Seniority      int       `json:"seniority" csv:"seniority"`
	FormerSwitcher int       `json:"former_switcher" csv:"former_switcher"`
}

// FullName is the identity string "SURNAME Given".
func (p PersonLegislature) FullName() string {
	return p.Surname + " " + p.Given
}

// Switched reports whether a first party switch was recorded.
func (p PersonLegislature) Switched() bool {
	return p.SwitchYear != 0
}

// Switch returns the month and year of the first party switch.
func (p PersonLegislature) Switch() MonthYear {
	return MonthYear{Month: p.SwitchMonth, Year: p.SwitchYear}
}

// ClearSwitch drops the switch and its destination together.
func (p *PersonLegislature) ClearSwitch() {
	p.SwitchMonth, p.SwitchYear, p.Destination = 0, 0, ""
}

// Key identifies the mandate independently of the person id.
func (p PersonLegislature) Key() string {
	return p.FullName() + "|" + p.Legislature
}
