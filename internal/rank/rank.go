// Package rank reads a legislator's rank inside the first parliamentary group of a mandate.
package rank

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/legislator-panel/internal/model"
)

// ErrDateRange marks a rank span that does not resolve to two month.year boundaries.
var ErrDateRange = eris.New("rank: malformed date range")

// Rank is the highest rank held in the first group and the span it was held for.
type Rank struct {
	Level model.RankLevel
	Span  model.Span
}

// Covers reports whether year lies inside the rank span.
func (r Rank) Covers(year int) bool {
	return r.Span.CoversYear(year)
}

// Highest first; the first one present in the row wins.
var titles = []struct {
	token string
	level model.RankLevel
}{
	{"Lider", model.RankLeader},
	{"Vicelider", model.RankViceLeader},
	{"Secretar", model.RankSecretary},
}

var monthCodes = strings.NewReplacer(
	"ian", "01", "feb", "02", "mar", "03", "apr", "04", "mai", "05", "iun", "06",
	"iul", "07", "aug", "08", "sep", "09", "oct", "10", "noi", "11", "dec", "12",
)

// Resolve reads the first group row. Without a higher rank, or for a legislator who never
// joined a group, the result is a member for the whole mandate. Only the first interval of
// a repeated rank is captured.
func Resolve(row string, mandate model.Span, noCaucus bool) (Rank, error) {
	member := Rank{Level: model.RankMember, Span: mandate}
	if noCaucus {
		return member, nil
	}
	for _, t := range titles {
		i := strings.LastIndex(row, t.token)
		if i < 0 {
			continue
		}
		span, err := span(strings.TrimSpace(row[i+len(t.token):]), mandate)
		if err != nil {
			return Rank{}, eris.Wrapf(err, "rank: %s", t.level)
		}
		return Rank{Level: t.level, Span: span}, nil
	}
	return member, nil
}

// span turns the text after a rank title into a span. The title may be held from a date,
// until a date, between two dates, or for the whole stay in the group.
func span(tail string, mandate model.Span) (model.Span, error) {
	start, end := mandate.From.String(), mandate.To.String()

	var text string
	switch {
	case tail == "":
		return mandate, nil
	case strings.Contains(tail, "din") && strings.Contains(tail, "până"):
		text = strings.ReplaceAll(tail, "din", "")
		text = strings.ReplaceAll(text, "până în", "-")
		text = strings.ReplaceAll(text, " ", "")
	case strings.Contains(tail, "din"):
		text = strings.ReplaceAll(strings.ReplaceAll(tail, "din", ""), " ", "") + "-" + end
	default:
		text = start + "-" + strings.ReplaceAll(strings.ReplaceAll(tail, "până în", ""), " ", "")
	}
	text = monthCodes.Replace(text)

	// Some pages omit the dot between month and year, as in "052016".
	if len(text) < 5 {
		return model.Span{}, eris.Wrapf(ErrDateRange, "%q", text)
	}
	if !strings.Contains(text[:3], ".") {
		text = text[:2] + "." + text[2:]
	}
	if text[len(text)-5] != '.' {
		text = text[:len(text)-4] + "." + text[len(text)-4:]
	}
	if strings.Count(text, ".") != 2 {
		return model.Span{}, eris.Wrapf(ErrDateRange, "%q", text)
	}
	s, err := model.ParseSpan(text)
	if err != nil {
		return model.Span{}, eris.Wrapf(ErrDateRange, "%q: %v", text, err)
	}
	return s, nil
}
