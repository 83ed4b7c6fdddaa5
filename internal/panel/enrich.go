package panel

import (
	"sort"

	"github.com/sells-group/legislator-panel/internal/model"
	"github.com/sells-group/legislator-panel/internal/reference"
)

// Enrich fills the columns that depend on other rows of the table: the rank change
// against the previous year of the same mandate, and the media-scandal framings. Rows are
// sorted by person, legislature and year.
func Enrich(rows []model.PersonYear, tables *reference.Tables) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.PersonID != b.PersonID {
			return a.PersonID < b.PersonID
		}
		if a.Legislature != b.Legislature {
			return a.Legislature < b.Legislature
		}
		return a.Year < b.Year
	})

	for i := range rows {
		rows[i].RankChange = rankChange(rows, i)

		rows[i].MediaYear, rows[i].MediaToElection, rows[i].MediaToExit = 0, 0, 0
		announced, ok := tables.MediaDate(rows[i].Surname, rows[i].Given)
		if !ok {
			continue
		}
		y, year := announced.Year, rows[i].Year
		rows[i].MediaYear = flag(year == y)
		rows[i].MediaToExit = flag(year >= y)
		if next, ok := tables.NextElection(y); ok {
			rows[i].MediaToElection = flag(y <= year && year <= next)
		}
	}
}

func rankChange(rows []model.PersonYear, i int) string {
	if i == 0 || rows[i-1].PersonID != rows[i].PersonID || rows[i-1].Legislature != rows[i].Legislature {
		return model.RankChangeFirstYear
	}
	prev, cur := rows[i-1].Rank.Ordinal(), rows[i].Rank.Ordinal()
	switch {
	case cur > prev:
		return model.RankChangeIncrease
	case cur < prev:
		return model.RankChangeDecrease
	default:
		return model.RankChangeNone
	}
}
