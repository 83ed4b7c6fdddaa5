// Package profile extracts the raw career fields of one legislator-legislature from a
// parliament profile page.
package profile

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/sells-group/legislator-panel/internal/model"
	"github.com/sells-group/legislator-panel/internal/reference"
)

var (
	// ErrStructure marks a page that does not have the expected layout.
	ErrStructure = eris.New("profile: unexpected document structure")

	// ErrConstituencyCode marks a constituency number outside the known numbering.
	ErrConstituencyCode = eris.New("profile: constituency code out of range")
)

// Overrides recorded on a Profile.
const (
	OverrideNameFix        = "name_fix"
	OverrideDefaultMandate = "default_mandate"
)

// MinoritiesConstituency is the single national constituency of minority representatives.
const MinoritiesConstituency = "MINORITĂŢI"

const maxConstituencyCode = 43

var (
	constituencyCode = regexp.MustCompile(`nr\.([0-9]+)`)

	longMonths = map[string]time.Month{
		"ianuarie": time.January, "februarie": time.February, "martie": time.March,
		"aprilie": time.April, "mai": time.May, "iunie": time.June,
		"iulie": time.July, "august": time.August, "septembrie": time.September,
		"octombrie": time.October, "noiembrie": time.November, "decembrie": time.December,
	}
)

// Profile holds the raw fields of one profile page.
type Profile struct {
	Document     string
	Surname      string
	Given        string
	Legislature  string
	Chamber      model.Chamber
	Constituency string
	MandateStart model.Date
	MandateEnd   model.Date
	DiedInOffice bool
	Minority     bool
	PartyText    string
	CaucusText   string
	Overrides    []string
	Notes        []string
}

// Parser reads profile pages. The zero Charset sniffs the encoding from the page.
type Parser struct {
	Tables  *reference.Tables
	Charset string
}

// NewParser returns a Parser backed by the given reference tables.
func NewParser(tables *reference.Tables, charsetName string) *Parser {
	return &Parser{Tables: tables, Charset: charsetName}
}

// Parse extracts a Profile from the raw page bytes.
func (p *Parser) Parse(name string, body []byte) (*Profile, error) {
	enc, err := p.encoding(body)
	if err != nil {
		return nil, err
	}
	if enc != nil && enc != encoding.Nop {
		body, err = enc.NewDecoder().Bytes(body)
		if err != nil {
			return nil, eris.Wrapf(err, "profile: decode %s", name)
		}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrapf(err, "profile: parse html %s", name)
	}

	pr := &Profile{Document: name}
	log := zap.L().With(zap.String("document", name))

	if err := p.names(doc, pr); err != nil {
		return nil, err
	}
	if err := legislature(doc, pr); err != nil {
		return nil, err
	}

	boxes := doc.Find("div.boxDep.clearfix")
	if boxes.Length() == 0 {
		return nil, eris.Wrap(ErrStructure, "profile: no info boxes")
	}
	first := boxes.First()

	chamberText := first.Find("h3").First().Text()
	switch {
	case strings.Contains(chamberText, string(model.ChamberDeputies)):
		pr.Chamber = model.ChamberDeputies
	case strings.Contains(chamberText, string(model.ChamberSenate)):
		pr.Chamber = model.ChamberSenate
	default:
		pr.Notes = append(pr.Notes, "chamber undetermined")
		log.Warn("profile: chamber undetermined", zap.String("text", strings.TrimSpace(chamberText)))
	}

	firstPara := doc.Find("p").First().Text()
	pr.DiedInOffice = strings.Contains(firstPara, "decedat")
	if err := p.constituency(firstPara, pr); err != nil {
		return nil, eris.Wrapf(err, "profile: %s", name)
	}

	if err := p.mandate(first, pr); err != nil {
		return nil, eris.Wrapf(err, "profile: %s", name)
	}

	boxes.Each(func(_ int, box *goquery.Selection) {
		heading := box.Contents().First().Text()
		if strings.Contains(heading, "minoritatilor nationale") {
			pr.Minority = true
		}
		if strings.Contains(heading, "Formatiunea politica") {
			box.Contents().Each(func(_ int, c *goquery.Selection) {
				if c.Nodes[0].Type != html.ElementNode {
					return
				}
				if text := c.Text(); !strings.Contains(text, ":") {
					pr.PartyText = Clean(text)
				}
			})
		}
		if strings.Contains(heading, "Grupul parlamentar") && pr.CaucusText == "" {
			pr.CaucusText = Clean(box.Find("tr").First().Text())
		}
	})

	return pr, nil
}

func (p *Parser) encoding(body []byte) (encoding.Encoding, error) {
	if p.Charset != "" {
		enc, err := htmlindex.Get(p.Charset)
		if err != nil {
			return nil, eris.Wrapf(err, "profile: unsupported charset %q", p.Charset)
		}
		return enc, nil
	}
	enc, name, _ := charset.DetermineEncoding(body, "")
	if name == "utf-8" || (name == "windows-1252" && utf8.Valid(body)) {
		return nil, nil
	}
	return enc, nil
}

// Clean flattens page text the way field matching expects: no-break spaces and line
// breaks removed, hyphens read as spaces.
func Clean(s string) string {
	r := strings.NewReplacer("\u00a0", "", "\r", "", "\n", "", "-", " ")
	return r.Replace(s)
}

func (p *Parser) names(doc *goquery.Document, pr *Profile) error {
	title := doc.Find("div.boxTitle")
	if title.Length() == 0 {
		return eris.Wrap(ErrStructure, "profile: no name block")
	}
	var surnames, given []string
	for _, tok := range strings.Fields(strings.ReplaceAll(title.First().Text(), "-", " ")) {
		if isUpper(tok) {
			surnames = append(surnames, tok)
		} else {
			given = append(given, tok)
		}
	}
	pr.Surname, pr.Given = strings.Join(surnames, " "), strings.Join(given, " ")

	if p.Tables != nil {
		if fix, ok := p.Tables.NameFix(pr.Given); ok {
			if fix.Surname != "" {
				pr.Surname = fix.Surname
			}
			pr.Given = fix.Given
			pr.Overrides = append(pr.Overrides, OverrideNameFix)
		}
	}
	return nil
}

// isUpper reports whether tok has at least one cased letter and no lowercase ones.
func isUpper(tok string) bool {
	cased := false
	for _, r := range tok {
		if unicode.IsLower(r) || unicode.IsTitle(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}

// legislature reads the label from a breadcrumb such as
// "Prima pagina > Legislatura 1990-1992 / Camera Deputatilor > Viorica Edelhauser".
func legislature(doc *goquery.Document, pr *Profile) error {
	crumb := doc.Find("td.cale-right")
	if crumb.Length() == 0 {
		return eris.Wrap(ErrStructure, "profile: no breadcrumb")
	}
	parts := strings.Split(crumb.First().Text(), ">")
	if len(parts) < 2 {
		return eris.Wrap(ErrStructure, "profile: breadcrumb has no legislature")
	}
	label, _, _ := strings.Cut(parts[1], "/")
	label = strings.TrimSpace(strings.ReplaceAll(label, "Legislatura", ""))
	label = strings.ReplaceAll(label, "prezent", "2020")
	if _, _, ok := reference.LegislatureBounds(label); !ok {
		return eris.Wrapf(ErrStructure, "profile: bad legislature label %q", label)
	}
	pr.Legislature = label
	return nil
}

func (p *Parser) constituency(text string, pr *Profile) error {
	if strings.Contains(text, "la nivel") {
		pr.Constituency = MinoritiesConstituency
		return nil
	}
	m := constituencyCode.FindStringSubmatch(text)
	if m == nil {
		return eris.Wrap(ErrStructure, "no constituency number")
	}
	code, err := strconv.Atoi(m[1])
	if err != nil || code < 1 || code > maxConstituencyCode {
		return eris.Wrapf(ErrConstituencyCode, "code %s", m[1])
	}
	if p.Tables == nil {
		pr.Constituency = m[1]
		return nil
	}
	name, ok := p.Tables.Constituency(pr.Legislature, code)
	if !ok {
		return eris.Wrapf(ErrConstituencyCode, "code %d in %s", code, pr.Legislature)
	}
	pr.Constituency = name
	return nil
}

// DefaultMandate returns the mandate boundaries assumed when a page states none.
// Elections fall in late autumn, except for the first two post-1989 legislatures.
func DefaultMandate(legislature string) (model.Date, model.Date) {
	switch legislature {
	case "1990-1992":
		return model.NewDate(1990, time.June, 1), model.NewDate(1992, time.August, 1)
	case "1992-1996":
		return model.NewDate(1992, time.October, 1), model.NewDate(1996, time.January, 1)
	}
	start, end, _ := reference.LegislatureBounds(legislature)
	return model.NewDate(start, time.December, 1), model.NewDate(end, time.November, 30)
}

func (p *Parser) mandate(first *goquery.Selection, pr *Profile) error {
	pr.MandateStart, pr.MandateEnd = DefaultMandate(pr.Legislature)

	contents := first.Contents()
	if contents.Length() < 3 {
		return eris.Wrap(ErrStructure, "no mandate block")
	}
	if p.Tables != nil && p.Tables.ForcesDefaultMandate(pr.Surname, pr.Given, pr.Legislature) {
		pr.Overrides = append(pr.Overrides, OverrideDefaultMandate)
		return nil
	}
	info := contents.Eq(2).Text()

	if _, after, ok := strings.Cut(info, "validarii:"); ok {
		d, err := mandateDate(after, 0)
		if err != nil {
			return eris.Wrap(err, "validation date")
		}
		pr.MandateStart = d
	}
	if _, after, ok := strings.Cut(info, "încetarii"); ok {
		d, err := mandateDate(after, 1)
		if err != nil {
			return eris.Wrap(err, "termination date")
		}
		pr.MandateEnd = d
	}
	if pr.MandateEnd.Before(pr.MandateStart) {
		return eris.Wrapf(ErrStructure, "mandate ends %s before it starts %s", pr.MandateEnd, pr.MandateStart)
	}
	return nil
}

// mandateDate reads "DAY MONTH YEAR" starting at token skip of the text before " - ".
func mandateDate(text string, skip int) (model.Date, error) {
	text, _, _ = strings.Cut(text, " - ")
	fields := strings.Fields(text)
	if len(fields) < skip+3 {
		return model.Date{}, eris.Wrapf(ErrStructure, "short date %q", text)
	}
	fields = fields[skip:]
	day, err := strconv.Atoi(fields[0])
	if err != nil {
		return model.Date{}, eris.Wrapf(ErrStructure, "day %q", fields[0])
	}
	month, ok := longMonths[fields[1]]
	if !ok {
		return model.Date{}, eris.Wrapf(ErrStructure, "month %q", fields[1])
	}
	yearText := fields[2]
	if len(yearText) > 4 {
		yearText = yearText[:4]
	}
	year, err := strconv.Atoi(yearText)
	if err != nil {
		return model.Date{}, eris.Wrapf(ErrStructure, "year %q", fields[2])
	}
	return model.NewDate(year, month, day), nil
}
