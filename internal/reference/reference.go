// Package reference loads the static historical tables that drive party resolution and
// person-year enrichment. The tables ship embedded in the binary and may be replaced
// file by file from a directory.
package reference

import (
	"embed"
	"errors"
	"io/fs"
	"os"
	"path"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/legislator-panel/internal/model"
)

//go:embed data/*.yaml
var embedded embed.FS

// PartyCode pairs a party acronym with its full name.
type PartyCode struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

// Shadow lists longer codes that contain a shorter one as a substring.
type Shadow struct {
	Code   string   `yaml:"code"`
	Longer []string `yaml:"longer"`
}

// EventKind distinguishes a party renaming itself from two parties merging.
type EventKind string

const (
	EventRename EventKind = "rename"
	EventMerger EventKind = "merger"
)

// ContinuityEvent records that party Old continued as party New in Year.
type ContinuityEvent struct {
	Old  string    `yaml:"old"`
	New  string    `yaml:"new"`
	Year int       `yaml:"year"`
	Kind EventKind `yaml:"kind"`
}

// Parties holds the party vocabulary.
type Parties struct {
	Codes     []PartyCode       `yaml:"codes"`
	Shadowed  []Shadow          `yaml:"shadowed"`
	Canonical map[string]string `yaml:"canonical"`
	Lineage   map[string]string `yaml:"lineage"`
	Events    []ContinuityEvent `yaml:"continuity_events"`
}

// Era maps constituency numbers to names for a group of legislatures.
type Era struct {
	Legislatures []string       `yaml:"legislatures"`
	Codes        map[int]string `yaml:"codes"`
}

// CountyPolitics is the party of a county's executive and of its seat's mayor.
type CountyPolitics struct {
	CountyPresident string `yaml:"county_president"`
	SeatMayor       string `yaml:"seat_mayor"`
}

// Geography holds constituency numbering, regions and local politics.
type Geography struct {
	Eras           []Era                                `yaml:"eras"`
	Regions        map[string]int                       `yaml:"regions"`
	CountyPolitics map[string]map[string]CountyPolitics `yaml:"county_politics"`
}

// Context holds time-varying party context.
type Context struct {
	Legislatures        []string                     `yaml:"legislatures"`
	PanelLegislatures   []string                     `yaml:"panel_legislatures"`
	ElectionYears       []int                        `yaml:"election_years"`
	LeaveEarlyMonth     int                          `yaml:"leave_early_month"`
	EthnicParties       []string                     `yaml:"ethnic_parties"`
	PersonalityParties  []string                     `yaml:"personality_parties"`
	PartySize           map[string]map[string]string `yaml:"party_size"`
	Government          map[int]map[string]string    `yaml:"government"`
	LeaderChanges       map[int][]string             `yaml:"leader_changes"`
	LeaderChangesFormal map[int][]string             `yaml:"leader_changes_formal"`
}

// LeaderConvictions lists, per year, parties whose leader was convicted.
type LeaderConvictions struct {
	OneYear   map[int][]string `yaml:"one_year"`
	MultiYear map[int][]string `yaml:"multi_year"`
}

// MediaAnnouncement is the first press mention of a corruption probe into a legislator.
type MediaAnnouncement struct {
	Name string     `yaml:"name"`
	Date model.Date `yaml:"date"`
}

// Justice holds conviction and media-scandal signals.
type Justice struct {
	LeaderConvictions   LeaderConvictions                 `yaml:"leader_convictions"`
	MinisterConvictions map[string]map[int]map[string]int `yaml:"minister_convictions"`
	MediaAnnouncements  []MediaAnnouncement               `yaml:"media_announcements"`
}

// SwitchCosts holds ideological distances per "FROM-TO" edge.
type SwitchCosts struct {
	SplitParty  string         `yaml:"split_party"`
	SplitYear   int            `yaml:"split_year"`
	AnyPeriod   map[string]int `yaml:"any_period"`
	BeforeSplit map[string]int `yaml:"before_split"`
	AfterSplit  map[string]int `yaml:"after_split"`
}

// NameFix repairs a garbled name block containing Contains.
// An empty Surname keeps the parsed surname.
type NameFix struct {
	Contains string `yaml:"contains"`
	Surname  string `yaml:"surname"`
	Given    string `yaml:"given"`
}

// SwitchDate is the month and year of a documented party switch.
type SwitchDate struct {
	Month int `yaml:"month"`
	Year  int `yaml:"year"`
}

// PartyOverride hard-replaces the entry party and switch date of one mandate.
// A nil Switch means the legislator did not switch.
type PartyOverride struct {
	Surname     string      `yaml:"surname"`
	Given       string      `yaml:"given"`
	Legislature string      `yaml:"legislature"`
	Entry       string      `yaml:"entry"`
	Switch      *SwitchDate `yaml:"switch"`
}

// Person names a legislator.
type Person struct {
	Surname     string `yaml:"surname"`
	Given       string `yaml:"given"`
	Legislature string `yaml:"legislature,omitempty"`
}

// Identity gives a same-name legislator a distinct identity key in one legislature.
type Identity struct {
	Surname     string `yaml:"surname"`
	Given       string `yaml:"given"`
	Legislature string `yaml:"legislature"`
	Key         string `yaml:"key"`
}

// Overrides holds the enumerated corrections for known-ambiguous cases.
type Overrides struct {
	Names              []NameFix                    `yaml:"names"`
	Party              []PartyOverride              `yaml:"party"`
	CaucusDestinations map[string]map[string]string `yaml:"caucus_destinations"`
	NoCaucus           []Person                     `yaml:"no_caucus"`
	DefaultMandate     []Person                     `yaml:"default_mandate"`
	Identities         []Identity                   `yaml:"identities"`
}

// Tables is the full, immutable reference set.
type Tables struct {
	Parties   Parties
	Geography Geography
	Context   Context
	Justice   Justice
	Costs     SwitchCosts
	Overrides Overrides

	idx index
}

type source struct {
	name string
	into any
}

func (t *Tables) sources() []source {
	return []source{
		{"parties.yaml", &t.Parties},
		{"geography.yaml", &t.Geography},
		{"context.yaml", &t.Context},
		{"justice.yaml", &t.Justice},
		{"switch_costs.yaml", &t.Costs},
		{"overrides.yaml", &t.Overrides},
	}
}

// Load parses the embedded reference tables.
func Load() (*Tables, error) {
	return LoadDir("")
}

// LoadDir parses reference tables from dir. Files missing from dir fall back to the
// embedded copy, so a directory may carry a single alternative table.
func LoadDir(dir string) (*Tables, error) {
	t := &Tables{}
	for _, src := range t.sources() {
		data, err := readTable(dir, src.name)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, src.into); err != nil {
			return nil, eris.Wrapf(err, "reference: parse %s", src.name)
		}
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	t.idx = buildIndex(t)
	return t, nil
}

func readTable(dir, name string) ([]byte, error) {
	if dir != "" {
		data, err := os.ReadFile(path.Join(dir, name))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, eris.Wrapf(err, "reference: read %s", name)
		}
	}
	data, err := fs.ReadFile(embedded, path.Join("data", name))
	if err != nil {
		return nil, eris.Wrapf(err, "reference: read embedded %s", name)
	}
	return data, nil
}

// Validate checks the tables for internal consistency.
func (t *Tables) Validate() error {
	if len(t.Parties.Codes) == 0 {
		return eris.New("reference: no party codes")
	}
	if len(t.Context.Legislatures) == 0 {
		return eris.New("reference: no legislatures")
	}
	known := make(map[string]bool, len(t.Context.Legislatures))
	for _, l := range t.Context.Legislatures {
		known[l] = true
	}

	for _, ev := range t.Parties.Events {
		if ev.Kind != EventRename && ev.Kind != EventMerger {
			return eris.Errorf("reference: continuity event %s->%s has unknown kind %q", ev.Old, ev.New, ev.Kind)
		}
	}

	covered := make(map[string]bool)
	for _, era := range t.Geography.Eras {
		for n := 1; n <= len(era.Codes); n++ {
			if _, ok := era.Codes[n]; !ok {
				return eris.Errorf("reference: constituency era %v skips code %d", era.Legislatures, n)
			}
		}
		for _, l := range era.Legislatures {
			covered[l] = true
		}
	}
	for _, l := range t.Context.Legislatures {
		if !covered[l] {
			return eris.Errorf("reference: legislature %s has no constituency numbering", l)
		}
	}

	for _, o := range t.Overrides.Party {
		if !known[o.Legislature] {
			return eris.Errorf("reference: party override for %s %s names unknown legislature %q", o.Surname, o.Given, o.Legislature)
		}
	}
	for l := range t.Overrides.CaucusDestinations {
		if !known[l] {
			return eris.Errorf("reference: caucus destinations name unknown legislature %q", l)
		}
	}
	for _, id := range t.Overrides.Identities {
		if !known[id.Legislature] {
			return eris.Errorf("reference: identity %q names unknown legislature %q", id.Key, id.Legislature)
		}
	}
	for _, l := range t.Context.PanelLegislatures {
		if !known[l] {
			return eris.Errorf("reference: panel legislature %q is not a legislature", l)
		}
	}
	return nil
}
