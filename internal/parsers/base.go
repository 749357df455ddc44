// Package parsers reads the files that surround the extraction engine:
// message containers, the account mapping sheet, ledgers and previously
// written batch workbooks.
//
// Every tabular source goes through ReadTable, which understands:
//   - .xlsx / .xlsm workbooks (excelize)
//   - legacy .xls workbooks (extrame/xls)
//   - .csv files, decoded with the same multi-encoding fallback as messages
//
// Columns are looked up by trimmed, case-insensitive header name, with an
// optional spreadsheet column letter as a positional fallback for ledgers
// whose headers drift between exports.
//
// Example usage:
//
//	table, err := parsers.ReadTable("ledger.xlsx", "DWCKFS")
//	col, err := table.Column(parsers.ColumnRef{Name: "存款发生金额", Fallback: "O"})
//	for _, row := range table.Rows {
//		amount := table.Cell(row, col)
//	}
package parsers

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/pkg/errors"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/pkg/logger"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// Table is a header row plus data rows read from a sheet or CSV file
type Table struct {
	Source  string
	Sheet   string
	Headers []string
	Rows    [][]string

	headerMap map[string]int
}

// ColumnRef addresses a column by header name, or by spreadsheet letter when
// the header is absent.
type ColumnRef struct {
	Name     string `json:"name" yaml:"name" mapstructure:"name"`
	Fallback string `json:"fallback,omitempty" yaml:"fallback,omitempty" mapstructure:"fallback"`
}

// String returns a printable form of the reference
func (c ColumnRef) String() string {
	if c.Fallback == "" {
		return c.Name
	}
	return fmt.Sprintf("%s (or column %s)", c.Name, c.Fallback)
}

func newTable(source, sheet string, rows [][]string) *Table {
	t := &Table{Source: source, Sheet: sheet, headerMap: make(map[string]int)}
	if len(rows) == 0 {
		return t
	}

	t.Headers = rows[0]
	t.Rows = rows[1:]
	for i, h := range t.Headers {
		key := headerKey(h)
		if key == "" {
			continue
		}
		if _, exists := t.headerMap[key]; !exists {
			t.headerMap[key] = i
		}
	}
	return t
}

func headerKey(h string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
}

// ColumnIndex returns the index of a header, or -1 if not present
func (t *Table) ColumnIndex(name string) int {
	if idx, ok := t.headerMap[headerKey(name)]; ok {
		return idx
	}
	return -1
}

// Column resolves a reference by name first, then by fallback letter
func (t *Table) Column(ref ColumnRef) (int, error) {
	if idx := t.ColumnIndex(ref.Name); idx >= 0 {
		return idx, nil
	}
	if ref.Fallback != "" {
		n, err := excelize.ColumnNameToNumber(ref.Fallback)
		if err != nil {
			return -1, errors.ConfigurationError(errors.CodeInvalidConfig, "column fallback", ref.Fallback, err)
		}
		return n - 1, nil
	}
	return -1, errors.ParseError(errors.CodeMissingColumn, t.Source, 1, ref.Name, nil)
}

// RequireColumns resolves every name or reports the first missing one
func (t *Table) RequireColumns(names ...string) ([]int, error) {
	indexes := make([]int, len(names))
	for i, name := range names {
		idx, err := t.Column(ColumnRef{Name: name})
		if err != nil {
			return nil, err
		}
		indexes[i] = idx
	}
	return indexes, nil
}

// Cell returns the trimmed cell value, or "" for short rows and negative indexes
func (t *Table) Cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

// ReadTable reads the first row as headers and the rest as data. An empty
// sheet name selects the first sheet; a named sheet must exist.
func ReadTable(path, sheet string) (*Table, error) {
	log := logger.GetGlobalLogger().WithComponent("parsers").WithField("file", path)

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileError(errors.CodeFileNotFound, path, err)
		}
		return nil, errors.FileError(errors.CodeFilePermission, path, err)
	}

	var (
		table *Table
		err   error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx", ".xlsm":
		table, err = readXLSX(path, sheet)
	case ".xls":
		table, err = readXLS(path, sheet)
	case ".csv":
		table, err = readCSV(path)
	default:
		return nil, errors.ParseError(errors.CodeInvalidFormat, path, 0, "", fmt.Errorf("unsupported file type %q", ext))
	}
	if err != nil {
		return nil, err
	}

	log.WithFields(logger.Fields{
		"sheet":   table.Sheet,
		"columns": len(table.Headers),
		"rows":    len(table.Rows),
	}).Debug("Read table")

	return table, nil
}

func readXLSX(path, sheet string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	} else if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, errors.ParseError(errors.CodeMissingSheet, path, 0, sheet, err)
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.ParseError(errors.CodeInvalidFormat, path, 0, sheet, err)
	}

	return newTable(path, sheet, rows), nil
}

func readXLS(path, sheet string) (*Table, error) {
	wb, err := xls.Open(path, "utf-8")
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, path, err)
	}
	if wb.NumSheets() == 0 {
		return nil, errors.ParseError(errors.CodeMissingSheet, path, 0, sheet, nil)
	}

	var ws *xls.WorkSheet
	for i := 0; i < wb.NumSheets(); i++ {
		candidate := wb.GetSheet(i)
		if candidate == nil {
			continue
		}
		if sheet == "" || candidate.Name == sheet {
			ws = candidate
			break
		}
	}
	if ws == nil {
		return nil, errors.ParseError(errors.CodeMissingSheet, path, 0, sheet, nil)
	}

	rows := make([][]string, 0, int(ws.MaxRow)+1)
	for i := 0; i <= int(ws.MaxRow); i++ {
		row := ws.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, row.LastCol())
		for c := 0; c < row.LastCol(); c++ {
			cells[c] = row.Col(c)
		}
		rows = append(rows, cells)
	}

	return newTable(path, ws.Name, rows), nil
}

func readCSV(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.FileError(errors.CodeFilePermission, path, err)
	}

	text, _ := DecodeBytes(data)
	reader := csv.NewReader(bytes.NewReader([]byte(text)))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows [][]string
	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.ParseError(errors.CodeInvalidFormat, path, line, "", err)
		}
		rows = append(rows, record)
	}

	return newTable(path, "", rows), nil
}
