package career

import (
	"sort"

	"github.com/antzucaro/matchr"

	"github.com/sells-group/legislator-panel/internal/model"
	"github.com/sells-group/legislator-panel/internal/reference"
)

// DefaultThreshold is the Jaro-Winkler similarity above which two names are listed for review.
const DefaultThreshold = 0.97

// NamePair is two distinct people whose names nearly coincide.
type NamePair struct {
	Left       string  `json:"left"`
	Right      string  `json:"right"`
	Similarity float64 `json:"similarity"`
}

// NearDuplicates lists pairs of distinct person names whose diacritic-folded forms are
// at least threshold similar. Spelling variants of one person across legislatures show up
// here, since ids are assigned by exact name. Nothing is merged.
func NearDuplicates(records []model.PersonLegislature, threshold float64) []NamePair {
	names := make(map[string]string)
	for _, r := range records {
		names[r.FullName()] = reference.FoldName(r.FullName())
	}
	full := make([]string, 0, len(names))
	for n := range names {
		full = append(full, n)
	}
	sort.Strings(full)

	var pairs []NamePair
	for i, left := range full {
		for _, right := range full[i+1:] {
			similarity := matchr.JaroWinkler(names[left], names[right], false)
			if similarity >= threshold {
				pairs = append(pairs, NamePair{Left: left, Right: right, Similarity: similarity})
			}
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].Similarity > pairs[j].Similarity
	})
	return pairs
}
