// Package export writes the pipeline tables as CSV files and as a review workbook.
package export

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/legislator-panel/internal/model"
)

// Sheet and file base names.
const (
	PersonLegislature = "person_legislature"
	PersonYear        = "person_year"
	RiskSet           = "risk_set"
	RiskSetMultiYear  = "risk_set_multi_year"
	Audit             = "audit"
)

// Tables is everything one run produces.
type Tables struct {
	Legislatures []model.PersonLegislature
	PersonYears  []model.PersonYear
	RiskSet      []model.PersonYear
	RiskSetMulti []model.PersonYear
	Audit        []model.AuditEvent
}

// WriteCSV writes a header line followed by one line per row. Column names come from the
// csv struct tags. An empty slice still produces the header.
func WriteCSV[T any](w io.Writer, rows []T) error {
	cw := csv.NewWriter(w)
	if err := encode(cw, rows); err != nil {
		return err
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

// WriteCSVFile writes rows to path, creating parent directories.
func WriteCSVFile[T any](path string, rows []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "export: create output directory")
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "export: create csv file")
	}
	if err := WriteCSV(f, rows); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrap(f.Close(), "export: close csv file")
}

// WriteAll writes one CSV per table into dir and returns the paths written.
func WriteAll(dir string, t Tables) ([]string, error) {
	files := []struct {
		name  string
		write func(string) error
	}{
		{PersonLegislature, func(p string) error { return WriteCSVFile(p, t.Legislatures) }},
		{PersonYear, func(p string) error { return WriteCSVFile(p, t.PersonYears) }},
		{RiskSet, func(p string) error { return WriteCSVFile(p, t.RiskSet) }},
		{RiskSetMultiYear, func(p string) error { return WriteCSVFile(p, t.RiskSetMulti) }},
		{Audit, func(p string) error { return WriteCSVFile(p, t.Audit) }},
	}
	paths := make([]string, 0, len(files))
	for _, f := range files {
		p := filepath.Join(dir, f.name+".csv")
		if err := f.write(p); err != nil {
			return paths, eris.Wrapf(err, "export: write %s", f.name)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// encode streams rows through csvutil into any record writer.
func encode[T any](w csvutil.Writer, rows []T) error {
	enc := csvutil.NewEncoder(w)
	if len(rows) == 0 {
		var zero T
		return eris.Wrap(enc.EncodeHeader(zero), "export: encode header")
	}
	return eris.Wrap(enc.Encode(rows), "export: encode rows")
}

// sheetWriter appends each record as a row of an xlsx sheet.
type sheetWriter struct {
	sheet *xlsx.Sheet
}

func (s sheetWriter) Write(record []string) error {
	row := s.sheet.AddRow()
	for _, v := range record {
		row.AddCell().SetString(v)
	}
	return nil
}

func addSheet[T any](f *xlsx.File, name string, rows []T) error {
	sheet, err := f.AddSheet(name)
	if err != nil {
		return eris.Wrapf(err, "export: add sheet %s", name)
	}
	return encode(sheetWriter{sheet: sheet}, rows)
}

// WriteXLSX writes the run's tables as one workbook, a sheet per table.
func WriteXLSX(path string, t Tables) error {
	f := xlsx.NewFile()
	steps := []func() error{
		func() error { return addSheet(f, PersonLegislature, t.Legislatures) },
		func() error { return addSheet(f, PersonYear, t.PersonYears) },
		func() error { return addSheet(f, RiskSet, t.RiskSet) },
		func() error { return addSheet(f, RiskSetMultiYear, t.RiskSetMulti) },
		func() error { return addSheet(f, Audit, t.Audit) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "export: create output directory")
	}
	return eris.Wrap(f.Save(path), "export: save workbook")
}
