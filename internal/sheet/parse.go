// Package sheet reads uploaded spreadsheets into core.Sheet values and writes
// import templates back out as xlsx or csv.
package sheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/xuri/excelize/v2"

	"github.com/edrees2022/log-and-ledger-sub006/internal/core"
)

// Format is an input file format.
type Format string

const (
	FormatXLSX    Format = "xlsx"
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
	FormatUnknown Format = ""
)

const (
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeCSV  = "text/csv"
	mimeJSON = "application/json"
	mimeText = "text/plain"
	mimeZip  = "application/zip"

	// emptyHeader names columns whose header cell is blank.
	emptyHeader = "__EMPTY"
)

// ErrTooManyRows is wrapped into a ParseError when a file exceeds MaxRows.
var ErrTooManyRows = errors.New("file too large")

// Parser implements core.Parser for xlsx, csv and json uploads.
type Parser struct {
	// MaxRows caps the data rows accepted from one file. Zero means unlimited.
	MaxRows int
}

// NewParser returns a parser that rejects files with more than maxRows data rows.
func NewParser(maxRows int) *Parser {
	return &Parser{MaxRows: maxRows}
}

var _ core.Parser = (*Parser)(nil)

// DetectFormat picks a format from the file extension, falling back to
// content sniffing when the extension is missing or unknown.
func DetectFormat(fileName string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".csv", ".txt", ".tsv":
		return FormatCSV
	case ".json":
		return FormatJSON
	case "":
	default:
		// Legacy .xls, .pdf and friends are never sniffed into something else
		return FormatUnknown
	}

	mime := mimetype.Detect(data)
	switch {
	case mime.Is(mimeXLSX), mime.Is(mimeZip):
		return FormatXLSX
	case mime.Is(mimeJSON):
		return FormatJSON
	case mime.Is(mimeCSV), mime.Is(mimeText):
		return FormatCSV
	default:
		return FormatUnknown
	}
}

// Parse reads the first sheet of the file. The first row holds headers and
// every following non-blank row becomes a RawRow keyed by header.
func (p *Parser) Parse(fileName string, data []byte) (core.Sheet, error) {
	format := DetectFormat(fileName, data)

	var records [][]string
	var err error
	switch format {
	case FormatXLSX:
		records, err = readXLSX(data)
	case FormatCSV:
		records, err = readCSV(data)
	case FormatJSON:
		s, err := readJSON(data)
		return p.finish(fileName, s, err)
	default:
		mime := mimetype.Detect(data)
		return core.Sheet{}, &core.ParseError{
			Kind:     core.ParseUnsupportedFormat,
			FileName: fileName,
			Err:      fmt.Errorf("detected %s", mime.String()),
		}
	}
	if err != nil {
		return core.Sheet{}, &core.ParseError{Kind: core.ParseInvalidFile, FileName: fileName, Err: err}
	}

	return p.finish(fileName, fromRecords(records), nil)
}

func (p *Parser) finish(fileName string, s core.Sheet, err error) (core.Sheet, error) {
	if err != nil {
		return core.Sheet{}, &core.ParseError{Kind: core.ParseInvalidFile, FileName: fileName, Err: err}
	}
	if p.MaxRows > 0 && len(s.Rows) > p.MaxRows {
		return core.Sheet{}, &core.ParseError{
			Kind:     core.ParseInvalidFile,
			FileName: fileName,
			Err:      fmt.Errorf("%w: %d rows exceeds limit of %d", ErrTooManyRows, len(s.Rows), p.MaxRows),
		}
	}
	return s, nil
}

// readXLSX returns the raw cell text of the first worksheet.
func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

// readCSV decodes data (UTF-8 with optional BOM, or Windows-1252) and reads
// all records. Ragged rows are allowed.
func readCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(NewTextReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return records, nil
}

// fromRecords turns a header row plus data rows into a Sheet. Rows shorter
// than the header are padded with "". A column whose header cell is blank is
// kept as __EMPTY_n when any row has data under it; trailing columns that are
// blank throughout are dropped.
func fromRecords(records [][]string) core.Sheet {
	if len(records) == 0 {
		return core.Sheet{Headers: []string{}, Rows: []core.RawRow{}}
	}

	width := usedWidth(records)
	header := make([]string, width)
	copy(header, records[0])
	headers := UniqueHeaders(header)

	rows := make([]core.RawRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		if isBlankRecord(rec) {
			continue
		}
		raw := make(core.RawRow, len(headers))
		for i, h := range headers {
			cell := ""
			if i < len(rec) {
				cell = core.CleanCell(rec[i])
			}
			raw[h] = cell
		}
		rows = append(rows, raw)
	}

	return core.Sheet{Headers: headers, Rows: rows}
}

// usedWidth returns one past the last column holding a non-blank cell in any record.
func usedWidth(records [][]string) int {
	width := 0
	for _, rec := range records {
		for i := len(rec) - 1; i >= width; i-- {
			if core.CleanCell(rec[i]) != "" {
				width = i + 1
				break
			}
		}
	}
	return width
}

// UniqueHeaders cleans header cells and makes them unique: blank headers
// become __EMPTY, __EMPTY_1, ... and repeats become name_1, name_2, ...
func UniqueHeaders(raw []string) []string {
	out := make([]string, 0, len(raw))
	taken := make(map[string]bool, len(raw))
	next := make(map[string]int)
	for _, h := range raw {
		base := core.CleanCell(h)
		if base == "" {
			base = emptyHeader
		}
		name := base
		if taken[name] {
			n := max(next[base], 1)
			for taken[base+"_"+strconv.Itoa(n)] {
				n++
			}
			name = base + "_" + strconv.Itoa(n)
			next[base] = n + 1
		}
		taken[name] = true
		out = append(out, name)
	}
	return out
}

func isBlankRecord(rec []string) bool {
	for _, cell := range rec {
		if core.CleanCell(cell) != "" {
			return false
		}
	}
	return true
}
