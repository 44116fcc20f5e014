package imports

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// Supported table formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatXLS  = "xls"
)

// missingMarkers are cell texts that stand for "no value" in spreadsheet
// exports. Matching is exact after trimming.
var missingMarkers = map[string]struct{}{
	"#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {},
	"N/A": {}, "NA": {}, "NULL": {}, "NaN": {}, "None": {},
	"n/a": {}, "nan": {}, "null": {},
}

// cellValue trims raw and reports whether it carries a value.
func cellValue(raw string) (string, bool) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", false
	}
	if _, missing := missingMarkers[v]; missing {
		return "", false
	}
	return v, true
}

// Row is one data row: trimmed header -> non-blank cell text.
// Number counts data rows from 2 so that it lines up with the header being row 1.
type Row struct {
	Number int
	Cells  map[string]string
}

// Table is a parsed upload. Encoding is set for CSV only.
type Table struct {
	Format   string
	Encoding string
	Headers  []string
	Rows     []Row
}

// FormatOf maps a file name to its table format by extension.
func FormatOf(name string) (string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	case ".xls":
		return FormatXLS, nil
	}
	return "", ErrUnsupportedFormat
}

// ParseTable reads the whole file and returns its rows as raw text. The first row is the header.
// Blank cells, missing cells and missing-value markers ("NaN", "N/A", "NULL", ...)
// are left out of Row.Cells; rows with no cells at all are dropped.
func ParseTable(name string, r io.ReadSeeker) (*Table, error) {
	format, err := FormatOf(name)
	if err != nil {
		return nil, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	var records [][]string
	t := &Table{Format: format}
	switch format {
	case FormatCSV:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		records, t.Encoding, err = readCSV(data)
		if err != nil {
			return nil, err
		}
	case FormatXLSX:
		records, err = readXLSX(r)
		if err != nil {
			return nil, err
		}
	case FormatXLS:
		records, err = readXLS(r)
		if err != nil {
			return nil, err
		}
	}
	return buildTable(t, records)
}

func readCSV(data []byte) ([][]string, string, error) {
	charset := DetectEncoding(data)
	text, used, err := decodeWithRetry(data, charset)
	if err != nil {
		return nil, "", err
	}
	text = strings.TrimPrefix(text, "\ufeff")

	cr := csv.NewReader(strings.NewReader(text))
	cr.Comma = sniffDelimiter(text)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, "", fmt.Errorf("csv: %w", err)
	}
	return records, used, nil
}

// sniffDelimiter picks ';' over ',' when the header line uses it more often
// (spreadsheet exports in comma-decimal locales).
func sniffDelimiter(text string) rune {
	line := text
	if i := strings.IndexAny(text, "\r\n"); i >= 0 {
		line = text[:i]
	}
	if strings.Count(line, ";") > strings.Count(line, ",") {
		return ';'
	}
	return ','
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("xlsx: %w", err)
	}
	defer f.Close()
	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, ErrEmptyFile
	}
	// raw values keep number formats from rounding decimal columns
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("xlsx: %w", err)
	}
	return rows, nil
}

func readXLS(r io.ReadSeeker) (rows [][]string, err error) {
	// the BIFF reader panics on some malformed workbooks
	defer func() {
		if p := recover(); p != nil {
			rows, err = nil, fmt.Errorf("xls: %v", p)
		}
	}()
	wb, err := xls.OpenReader(r, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("xls: %w", err)
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, ErrEmptyFile
	}
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol()+1)
		for j := 0; j <= row.LastCol(); j++ {
			cells = append(cells, row.Col(j))
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func buildTable(t *Table, records [][]string) (*Table, error) {
	start := -1
	for i, rec := range records {
		if !blankRecord(rec) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, ErrEmptyFile
	}
	t.Headers = headerNames(records[start])

	for _, rec := range records[start+1:] {
		if blankRecord(rec) {
			continue
		}
		cells := make(map[string]string, len(t.Headers))
		for j, h := range t.Headers {
			if j >= len(rec) || h == "" {
				continue
			}
			if v, ok := cellValue(rec[j]); ok {
				cells[h] = v
			}
		}
		if len(cells) == 0 {
			continue
		}
		t.Rows = append(t.Rows, Row{Number: len(t.Rows) + 2, Cells: cells})
	}
	if len(t.Rows) == 0 {
		return nil, ErrEmptyFile
	}
	return t, nil
}

// headerNames trims the header cells and suffixes repeats (".1", ".2") so no column is lost.
func headerNames(rec []string) []string {
	seen := map[string]int{}
	out := make([]string, len(rec))
	for i, h := range rec {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if n := seen[h]; n > 0 {
			seen[h] = n + 1
			h = fmt.Sprintf("%s.%d", h, n)
		} else {
			seen[h] = 1
		}
		out[i] = h
	}
	return out
}

func blankRecord(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
