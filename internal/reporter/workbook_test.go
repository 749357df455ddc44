package reporter

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/collector"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/models"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/parsers"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/reconciler"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/pkg/logger"

	"github.com/xuri/excelize/v2"
)

func openWorkbook(t *testing.T, path string) *excelize.File {
	t.Helper()
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile(%s) error = %v", path, err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func cellValue(t *testing.T, f *excelize.File, sheet, cell string) string {
	t.Helper()
	v, err := f.GetCellValue(sheet, cell)
	if err != nil {
		t.Fatalf("GetCellValue(%s!%s) error = %v", sheet, cell, err)
	}
	return v
}

func fillColor(t *testing.T, f *excelize.File, sheet, cell string) string {
	t.Helper()
	id, err := f.GetCellStyle(sheet, cell)
	if err != nil {
		t.Fatalf("GetCellStyle() error = %v", err)
	}
	style, err := f.GetStyle(id)
	if err != nil {
		t.Fatalf("GetStyle() error = %v", err)
	}
	if len(style.Fill.Color) == 0 {
		return ""
	}
	return strings.ToUpper(style.Fill.Color[0])
}

func fontBold(t *testing.T, f *excelize.File, sheet, cell string) bool {
	t.Helper()
	id, err := f.GetCellStyle(sheet, cell)
	if err != nil {
		t.Fatalf("GetCellStyle() error = %v", err)
	}
	style, err := f.GetStyle(id)
	if err != nil {
		t.Fatalf("GetStyle() error = %v", err)
	}
	return style.Font != nil && style.Font.Bold
}

func TestBatchWorkbookName(t *testing.T) {
	day := time.Date(2024, 1, 15, 18, 30, 0, 0, time.UTC)
	if got := BatchWorkbookName(day); got != "20240115_Swift.xlsx" {
		t.Errorf("BatchWorkbookName() = %q, want 20240115_Swift.xlsx", got)
	}
}

func TestAnnotatedLedgerPath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{filepath.Join("data", "ledger.xlsx"), filepath.Join("data", "ledger_annotated.xlsx")},
		{filepath.Join("data", "ledger.XLS"), filepath.Join("data", "ledger_annotated.xlsx")},
		{filepath.Join("data", "ledger.csv"), filepath.Join("data", "ledger_annotated.xlsx")},
		{filepath.Join("data", "macro.xlsm"), filepath.Join("data", "macro_annotated.xlsm")},
	}
	for _, tt := range tests {
		if got := AnnotatedLedgerPath(tt.in); got != tt.want {
			t.Errorf("AnnotatedLedgerPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestColumnWidth(t *testing.T) {
	tests := []struct{ longest, want int }{
		{0, 2},
		{11, 13},
		{78, 80},
		{200, 80},
	}
	for _, tt := range tests {
		if got := columnWidth(tt.longest); got != tt.want {
			t.Errorf("columnWidth(%d) = %d, want %d", tt.longest, got, tt.want)
		}
	}
}

func testBatch() *collector.BatchResult {
	return &collector.BatchResult{
		RunID: "run-1",
		Records: []models.TransactionRecord{
			{
				FileName:            "20240115_outgoing_103.msg",
				ClientAccount:       "123-456789-001",
				Date:                "2024-01-15",
				Currency:            "USD",
				Amount:              amount("346000"),
				CounterpartyName:    "ACME GMBH",
				CounterpartyAccount: "DE89370400440532013000",
				CounterpartyCode:    "DEUTDEFF500",
				Direction:           models.DirectionOut,
			},
			{FileName: "internal_memo.msg", Direction: models.DirectionUnknown},
			{FileName: "broken.msg", Direction: models.DirectionUnknown, Error: "cannot decode message broken.msg"},
			{FileName: "thin.msg", Direction: models.DirectionIn, ClientAccount: "555", Warnings: []string{"no account line in block 50K", "no identifier code in block 52A"}},
		},
	}
}

func TestWriteBatchWorkbook(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.Local)

	path, err := WriteBatchWorkbook(dir, testBatch(), day)
	if err != nil {
		t.Fatalf("WriteBatchWorkbook() error = %v", err)
	}
	if filepath.Base(path) != "20240115_Swift.xlsx" {
		t.Errorf("path = %s", path)
	}

	f := openWorkbook(t, path)
	if sheets := f.GetSheetList(); len(sheets) != 2 || sheets[0] != parsers.FinalSheetName || sheets[1] != parsers.DebugSheetName {
		t.Fatalf("sheets = %v", sheets)
	}

	final, _ := f.GetRows(parsers.FinalSheetName)
	if len(final) != 3 {
		t.Fatalf("final rows = %d, want header + 2", len(final))
	}
	if strings.Join(final[0], "|") != strings.Join(parsers.FinalColumns, "|") {
		t.Errorf("final header = %v", final[0])
	}
	if final[1][4] != "346,000.00" || final[1][9] != "OUT" {
		t.Errorf("final row = %v", final[1])
	}

	debug, _ := f.GetRows(parsers.DebugSheetName)
	if len(debug) != 5 {
		t.Fatalf("debug rows = %d, want header + 4", len(debug))
	}
	if got := cellValue(t, f, parsers.DebugSheetName, "L4"); got != "cannot decode message broken.msg" {
		t.Errorf("debug ERROR = %q", got)
	}
	if got := cellValue(t, f, parsers.DebugSheetName, "M5"); got != "no account line in block 50K; no identifier code in block 52A" {
		t.Errorf("debug WARNINGS = %q", got)
	}

	// "123-456789-001" is the longest value in column A
	if w, _ := f.GetColWidth(parsers.FinalSheetName, "A"); w != 16 {
		t.Errorf("column A width = %v, want 16", w)
	}
	if w, _ := f.GetColWidth(parsers.DebugSheetName, "M"); w != 63 {
		t.Errorf("column M width = %v, want 63", w)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("output dir holds %d entries, want only the workbook", len(entries))
	}
}

func TestWriteBatchJSON(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteBatchJSON(dir, testBatch(), time.Date(2024, 2, 3, 0, 0, 0, 0, time.Local))
	if err != nil {
		t.Fatalf("WriteBatchJSON() error = %v", err)
	}
	if filepath.Base(path) != "20240203_Swift.json" {
		t.Errorf("path = %s", path)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `"amount": "346,000.00"`) {
		t.Errorf("amount not rendered as in the workbook:\n%s", data)
	}
}

func TestWriteAnnotatedLedger_XLSX(t *testing.T) {
	dir := t.TempDir()
	ledger := writeLedger(t, dir)
	result := reconcileFixture(t, ledger)

	path, err := WriteAnnotatedLedger(result, "")
	if err != nil {
		t.Fatalf("WriteAnnotatedLedger() error = %v", err)
	}
	if path != filepath.Join(dir, "ledger_annotated.xlsx") {
		t.Errorf("path = %s", path)
	}

	f := openWorkbook(t, path)
	sheet := ledger.Sheet

	if got := cellValue(t, f, sheet, "D2"); got != "HSBCHKHHHKH" {
		t.Errorf("D2 = %q, want first writer kept", got)
	}
	if got := cellValue(t, f, sheet, "D3"); got != "DEUTDEFF500" {
		t.Errorf("D3 = %q, want amount match", got)
	}
	if got := cellValue(t, f, sheet, "D4"); got != "" {
		t.Errorf("D4 = %q, want empty", got)
	}
	if got := fillColor(t, f, sheet, "D2"); !strings.HasSuffix(got, conflictFill) {
		t.Errorf("D2 fill = %q, want %s", got, conflictFill)
	}
	if got := fillColor(t, f, sheet, "D3"); got != "" {
		t.Errorf("D3 fill = %q, want none", got)
	}
	for _, cell := range []string{"D2", "D3"} {
		if !fontBold(t, f, sheet, cell) {
			t.Errorf("%s lost its existing bold font", cell)
		}
	}
	if got := cellValue(t, f, "Notes", "A1"); got != "keep me" {
		t.Errorf("unrelated sheet lost: %q", got)
	}

	rows, _ := f.GetRows(UnmatchedSheetName)
	if len(rows) != 3 {
		t.Fatalf("unmatched rows = %d, want header + 2", len(rows))
	}
	if rows[1][0] != "4" || rows[1][4] != models.ReasonEmptyCode {
		t.Errorf("unmatched row = %v", rows[1])
	}
	if rows[2][0] != "6" || rows[2][3] != "BOFAUS3NXXX" || rows[2][4] != models.ReasonNoLedgerMatch {
		t.Errorf("unmatched row = %v", rows[2])
	}
	if got := fillColor(t, f, UnmatchedSheetName, "E3"); !strings.HasSuffix(got, unmatchedFill) {
		t.Errorf("unmatched fill = %q, want %s", got, unmatchedFill)
	}

	original := openWorkbook(t, ledger.Path)
	if got := cellValue(t, original, sheet, "D2"); got != "" {
		t.Errorf("original ledger modified: D2 = %q", got)
	}
}

func TestWriteAnnotatedLedger_CSV(t *testing.T) {
	dir := t.TempDir()
	cfg := parsers.DefaultLedgerConfig()
	cfg.Sheet = ""
	cfg.Path = filepath.Join(dir, "ledger.csv")
	content := strings.Join([]string{
		"序号," + cfg.AccountColumn.Name + "," + cfg.AmountColumn.Name + "," + cfg.TargetColumn.Name,
		"1,6228480012345678,4772159.07,",
		"2,,1000,",
	}, "\n") + "\n"
	if err := os.WriteFile(cfg.Path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	service, _ := reconciler.NewReconciliationService(nil, logger.Discard())
	result, err := service.ProcessReconciliation(context.Background(), &reconciler.ReconciliationRequest{
		Records: fixtureRecords()[:2],
		Ledger:  cfg,
	})
	if err != nil {
		t.Fatalf("ProcessReconciliation() error = %v", err)
	}

	path, err := WriteAnnotatedLedger(result, filepath.Join(dir, "annotated.xlsx"))
	if err != nil {
		t.Fatalf("WriteAnnotatedLedger() error = %v", err)
	}

	f := openWorkbook(t, path)
	rows, _ := f.GetRows("Sheet1")
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if rows[0][1] != cfg.AccountColumn.Name || rows[1][1] != "6228480012345678" {
		t.Errorf("ledger cells not copied: %v", rows[:2])
	}
	if got := cellValue(t, f, "Sheet1", "D2"); got != "HSBCHKHHHKH" {
		t.Errorf("D2 = %q", got)
	}
	if got := cellValue(t, f, "Sheet1", "D3"); got != "DEUTDEFF500" {
		t.Errorf("D3 = %q", got)
	}
}

func TestWriteAnnotatedLedger_Rejects(t *testing.T) {
	dir := t.TempDir()
	ledger := writeLedger(t, dir)
	result := reconcileFixture(t, ledger)

	if _, err := WriteAnnotatedLedger(result, ledger.Path); err == nil {
		t.Error("writing over the ledger must be rejected")
	}
	if _, err := WriteAnnotatedLedger(result, filepath.Join(dir, "out.csv")); err == nil {
		t.Error("non-xlsx output must be rejected")
	}
	if _, err := WriteAnnotatedLedger(&reconciler.ReconciliationResult{}, ""); err == nil {
		t.Error("empty result must be rejected")
	}
}
