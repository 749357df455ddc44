package reporter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/collector"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/models"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/parsers"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/reconciler"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/pkg/errors"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/pkg/logger"

	"github.com/xuri/excelize/v2"
)

const (
	// UnmatchedSheetName lists the records that found no ledger row
	UnmatchedSheetName = "Unmatched_Step3"

	// MaxColumnWidth caps the autofit width of written sheets
	MaxColumnWidth = 80

	conflictFill  = "FFC000"
	unmatchedFill = "FFFF00"
)

// UnmatchedColumns is the header of the unmatched sheet
var UnmatchedColumns = []string{"Step Row", parsers.ColCounterpartyAccount, parsers.ColAmount, parsers.ColCounterpartyCode, "Reason"}

// BatchWorkbookName returns the workbook name for a batch run on day
func BatchWorkbookName(day time.Time) string {
	return day.Format("20060102") + "_Swift.xlsx"
}

// AnnotatedLedgerPath derives the default output path of an annotated ledger.
// The result always differs from the input so the ledger is never modified in place.
func AnnotatedLedgerPath(ledgerPath string) string {
	ext := filepath.Ext(ledgerPath)
	base := strings.TrimSuffix(filepath.Base(ledgerPath), ext)
	if !strings.EqualFold(ext, ".xlsm") {
		ext = ".xlsx"
	}
	return filepath.Join(filepath.Dir(ledgerPath), base+"_annotated"+ext)
}

// WriteBatchWorkbook writes the Step3_Final and Debug views of a batch into
// outputDir and returns the written path.
func WriteBatchWorkbook(outputDir string, batch *collector.BatchResult, day time.Time) (string, error) {
	if batch == nil {
		return "", errors.ValidationError(errors.CodeMissingField, "batch", nil, nil)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", errors.FileError(errors.CodeDirectoryError, outputDir, err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", parsers.FinalSheetName); err != nil {
		return "", errors.InternalError(errors.CodeUnexpectedError, "create final sheet", err)
	}
	if _, err := f.NewSheet(parsers.DebugSheetName); err != nil {
		return "", errors.InternalError(errors.CodeUnexpectedError, "create debug sheet", err)
	}

	final := batch.Final()
	finalRows := make([][]string, 0, len(final))
	for _, rec := range final {
		finalRows = append(finalRows, parsers.FinalRow(rec))
	}

	debugRows := make([][]string, 0, len(batch.Records))
	for _, rec := range batch.Debug() {
		debugRows = append(debugRows, debugRow(rec))
	}

	if err := writeSheet(f, parsers.FinalSheetName, parsers.FinalColumns, finalRows); err != nil {
		return "", err
	}
	if err := writeSheet(f, parsers.DebugSheetName, parsers.DebugColumns, debugRows); err != nil {
		return "", err
	}

	path := filepath.Join(outputDir, BatchWorkbookName(day))
	if err := saveWorkbook(f, path); err != nil {
		return "", err
	}

	logger.GetGlobalLogger().WithComponent("reporter").WithFields(logger.Fields{
		"file":  path,
		"final": len(finalRows),
		"debug": len(debugRows),
	}).Info("Wrote batch workbook")

	return path, nil
}

// WriteBatchJSON writes both views of a batch as one JSON document next to
// where the workbook would go.
func WriteBatchJSON(outputDir string, batch *collector.BatchResult, day time.Time) (string, error) {
	if batch == nil {
		return "", errors.ValidationError(errors.CodeMissingField, "batch", nil, nil)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", errors.FileError(errors.CodeDirectoryError, outputDir, err)
	}

	doc := struct {
		RunID string                     `json:"run_id"`
		Stats collector.BatchStats       `json:"stats"`
		Final []models.TransactionRecord `json:"final"`
		Debug []models.TransactionRecord `json:"debug"`
	}{batch.RunID, batch.Stats, batch.Final(), batch.Debug()}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", errors.InternalError(errors.CodeUnexpectedError, "encode batch", err)
	}

	path := filepath.Join(outputDir, strings.TrimSuffix(BatchWorkbookName(day), ".xlsx")+".json")
	if err := writeFileAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// WriteAnnotatedLedger writes the ledger with assigned codes in the target
// column, conflicted target cells filled orange and an Unmatched_Step3 sheet.
// xlsx ledgers are copied with every other cell intact; xls and csv ledgers are
// rebuilt from their cells. An empty outputPath selects AnnotatedLedgerPath.
func WriteAnnotatedLedger(result *reconciler.ReconciliationResult, outputPath string) (string, error) {
	if result == nil || result.Ledger == nil || result.Match == nil {
		return "", errors.ValidationError(errors.CodeMissingField, "reconciliation_result", nil, nil)
	}
	ledger := result.Ledger

	if outputPath == "" {
		outputPath = AnnotatedLedgerPath(ledger.Path)
	}
	if samePath(outputPath, ledger.Path) {
		return "", errors.ValidationError(errors.CodeInvalidConfig, "output_file", outputPath,
			fmt.Errorf("output would overwrite the ledger")).
			WithSuggestion("Choose an output file different from the ledger")
	}
	if ext := strings.ToLower(filepath.Ext(outputPath)); ext != ".xlsx" && ext != ".xlsm" {
		return "", errors.ValidationError(errors.CodeInvalidConfig, "output_file", outputPath,
			fmt.Errorf("annotated ledgers are written as .xlsx, got %q", ext))
	}

	f, sheet, err := openLedgerWorkbook(ledger)
	if err != nil {
		return "", err
	}
	defer f.Close()

	// existing style id -> same style with the conflict fill
	conflictStyles := make(map[int]int)

	written := 0
	for _, row := range ledger.Rows {
		cell, err := excelize.CoordinatesToCellName(ledger.TargetCol+1, row.SheetRow)
		if err != nil {
			return "", errors.InternalError(errors.CodeUnexpectedError, "target cell", err)
		}
		if code := row.AssignedCode(); code != "" {
			if err := f.SetCellStr(sheet, cell, code); err != nil {
				return "", errors.InternalError(errors.CodeUnexpectedError, "write target cell", err)
			}
			written++
		}
		if row.Conflicted() {
			if err := markConflict(f, sheet, cell, conflictStyles); err != nil {
				return "", errors.InternalError(errors.CodeUnexpectedError, "style conflict cell", err)
			}
		}
	}

	if err := writeUnmatchedSheet(f, result.Match.Unmatched); err != nil {
		return "", err
	}

	if err := saveWorkbook(f, outputPath); err != nil {
		return "", err
	}

	logger.GetGlobalLogger().WithComponent("reporter").WithFields(logger.Fields{
		"file":      outputPath,
		"written":   written,
		"conflicts": len(result.Match.Conflicts),
		"unmatched": len(result.Match.Unmatched),
	}).Info("Wrote annotated ledger")

	return outputPath, nil
}

// markConflict fills a cell orange and keeps its number format, font and
// borders.
func markConflict(f *excelize.File, sheet, cell string, cache map[int]int) error {
	base, err := f.GetCellStyle(sheet, cell)
	if err != nil {
		return err
	}
	id, ok := cache[base]
	if !ok {
		style, err := f.GetStyle(base)
		if err != nil {
			return err
		}
		style.Fill = excelize.Fill{Type: "pattern", Color: []string{conflictFill}, Pattern: 1}
		if id, err = f.NewStyle(style); err != nil {
			return err
		}
		cache[base] = id
	}
	return f.SetCellStyle(sheet, cell, cell, id)
}

func openLedgerWorkbook(ledger *parsers.Ledger) (*excelize.File, string, error) {
	switch strings.ToLower(filepath.Ext(ledger.Path)) {
	case ".xlsx", ".xlsm":
		f, err := excelize.OpenFile(ledger.Path)
		if err != nil {
			return nil, "", errors.FileError(errors.CodeFileCorrupted, ledger.Path, err)
		}
		return f, ledger.Sheet, nil
	}

	sheet := ledger.Sheet
	if sheet == "" {
		sheet = "Sheet1"
	}
	f := excelize.NewFile()
	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			f.Close()
			return nil, "", errors.InternalError(errors.CodeUnexpectedError, "create ledger sheet", err)
		}
	}

	rows := make([][]string, 0, len(ledger.Rows))
	for _, row := range ledger.Rows {
		rows = append(rows, row.Cells)
	}
	if err := writeSheet(f, sheet, ledger.Headers, rows); err != nil {
		f.Close()
		return nil, "", err
	}
	return f, sheet, nil
}

func writeUnmatchedSheet(f *excelize.File, unmatched []models.UnmatchedRecord) error {
	if idx, err := f.GetSheetIndex(UnmatchedSheetName); err == nil && idx >= 0 {
		if err := f.DeleteSheet(UnmatchedSheetName); err != nil {
			return errors.InternalError(errors.CodeUnexpectedError, "replace unmatched sheet", err)
		}
	}
	if _, err := f.NewSheet(UnmatchedSheetName); err != nil {
		return errors.InternalError(errors.CodeUnexpectedError, "create unmatched sheet", err)
	}

	rows := make([][]string, 0, len(unmatched))
	for _, u := range unmatched {
		rows = append(rows, []string{strconv.Itoa(u.StepRow), u.CounterpartyAccount, u.Amount, u.Code, u.Reason})
	}
	if err := writeSheet(f, UnmatchedSheetName, UnmatchedColumns, rows); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.InternalError(errors.CodeUnexpectedError, "create header style", err)
	}
	highlight, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{unmatchedFill}, Pattern: 1},
	})
	if err != nil {
		return errors.InternalError(errors.CodeUnexpectedError, "create unmatched style", err)
	}

	last, _ := excelize.ColumnNumberToName(len(UnmatchedColumns))
	if err := f.SetCellStyle(UnmatchedSheetName, "A1", last+"1", bold); err != nil {
		return errors.InternalError(errors.CodeUnexpectedError, "style unmatched header", err)
	}
	if len(rows) > 0 {
		if err := f.SetCellStyle(UnmatchedSheetName, "A2", last+strconv.Itoa(len(rows)+1), highlight); err != nil {
			return errors.InternalError(errors.CodeUnexpectedError, "style unmatched rows", err)
		}
	}
	return nil
}

// writeSheet fills sheet with a header and rows and sizes each column to
// min(longest cell + 2, MaxColumnWidth)
func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]string) error {
	widths := make([]int, len(headers))

	put := func(rowNum int, values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		for i, v := range values {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			if n := utf8.RuneCountInString(v); n > widths[i] {
				widths[i] = n
			}
		}
		return f.SetSheetRow(sheet, cell, &values)
	}

	if err := put(1, headers); err != nil {
		return errors.InternalError(errors.CodeUnexpectedError, "write "+sheet+" header", err)
	}
	for i, row := range rows {
		if err := put(i+2, row); err != nil {
			return errors.InternalError(errors.CodeUnexpectedError, "write "+sheet+" row", err)
		}
	}

	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return errors.InternalError(errors.CodeUnexpectedError, "column name", err)
		}
		if err := f.SetColWidth(sheet, col, col, float64(columnWidth(w))); err != nil {
			return errors.InternalError(errors.CodeUnexpectedError, "set column width", err)
		}
	}
	return nil
}

func columnWidth(longest int) int {
	if w := longest + 2; w < MaxColumnWidth {
		return w
	}
	return MaxColumnWidth
}

func debugRow(rec models.TransactionRecord) []string {
	row := make([]string, 0, len(parsers.DebugColumns))
	row = append(row, rec.FileName)
	row = append(row, parsers.FinalRow(rec)...)
	return append(row, rec.Error, strings.Join(rec.Warnings, "; "))
}

// saveWorkbook writes to a sibling temp file first so a failed save never
// leaves a truncated workbook at path
func saveWorkbook(f *excelize.File, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.FileError(errors.CodeDirectoryError, filepath.Dir(path), err)
	}
	tmp := filepath.Join(filepath.Dir(path), ".tmp-"+filepath.Base(path))
	if err := f.SaveAs(tmp); err != nil {
		os.Remove(tmp)
		return errors.FileError(errors.CodeWriteFailed, path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.FileError(errors.CodeWriteFailed, path, err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp := filepath.Join(filepath.Dir(path), ".tmp-"+filepath.Base(path))
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.FileError(errors.CodeWriteFailed, path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.FileError(errors.CodeWriteFailed, path, err)
	}
	return nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
