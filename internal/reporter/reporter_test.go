package reporter

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/collector"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/models"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/parsers"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/reconciler"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/pkg/errors"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

func amount(s string) models.Amount {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

// writeLedger creates a DWCKFS ledger plus an unrelated Notes sheet
func writeLedger(t *testing.T, dir string) *parsers.LedgerConfig {
	t.Helper()

	cfg := parsers.DefaultLedgerConfig()
	rows := [][]interface{}{
		{"序号", cfg.AccountColumn.Name, cfg.AmountColumn.Name, cfg.TargetColumn.Name},
		{1, "6228480012345678", "4772159.07", ""},
		{2, "", "1000", ""},
		{3, "998877", "250.00", ""},
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", cfg.Sheet); err != nil {
		t.Fatalf("SetSheetName() error = %v", err)
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(cfg.Sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow() error = %v", err)
		}
	}
	// target cells carry their own formatting, which annotation must keep
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		t.Fatalf("NewStyle() error = %v", err)
	}
	if err := f.SetCellStyle(cfg.Sheet, "D2", "D4", bold); err != nil {
		t.Fatalf("SetCellStyle() error = %v", err)
	}
	if _, err := f.NewSheet("Notes"); err != nil {
		t.Fatalf("NewSheet() error = %v", err)
	}
	if err := f.SetCellStr("Notes", "A1", "keep me"); err != nil {
		t.Fatalf("SetCellStr() error = %v", err)
	}

	cfg.Path = filepath.Join(dir, "ledger.xlsx")
	if err := f.SaveAs(cfg.Path); err != nil {
		t.Fatalf("SaveAs() error = %v", err)
	}
	return cfg
}

func fixtureRecords() []models.TransactionRecord {
	return []models.TransactionRecord{
		{CounterpartyAccount: "6228480012345678", Amount: amount("4772159.07"), CounterpartyCode: "HSBCHKHHHKH"},
		{CounterpartyAccount: "000", Amount: amount("1050"), CounterpartyCode: "DEUTDEFF500"},
		{CounterpartyAccount: "998877", Amount: amount("250"), CounterpartyCode: ""},
		{CounterpartyAccount: "6228480012345678", CounterpartyCode: "CHASUS33XXX"},
		{Amount: amount("5"), CounterpartyCode: "BOFAUS3NXXX"},
	}
}

func reconcileFixture(t *testing.T, ledger *parsers.LedgerConfig) *reconciler.ReconciliationResult {
	t.Helper()

	service, err := reconciler.NewReconciliationService(nil, logger.Discard())
	if err != nil {
		t.Fatalf("NewReconciliationService() error = %v", err)
	}
	result, err := service.ProcessReconciliation(context.Background(), &reconciler.ReconciliationRequest{
		Records: fixtureRecords(),
		Ledger:  ledger,
	})
	if err != nil {
		t.Fatalf("ProcessReconciliation() error = %v", err)
	}
	return result
}

func newGenerator(t *testing.T, format OutputFormat) *ReportGenerator {
	t.Helper()
	config := DefaultReportConfig()
	config.Format = format
	config.UseColors = false
	generator, err := NewReportGenerator(config)
	if err != nil {
		t.Fatalf("NewReportGenerator() error = %v", err)
	}
	return generator
}

func TestNewReportGenerator(t *testing.T) {
	tests := []struct {
		name        string
		config      *ReportConfig
		expectError bool
	}{
		{"default config", nil, false},
		{"yaml", &ReportConfig{Format: FormatYAML}, false},
		{"invalid format", &ReportConfig{Format: "xml"}, true},
		{"negative list limit", &ReportConfig{Format: FormatConsole, MaxListItems: -1}, true},
		{"csv without delimiter", &ReportConfig{Format: FormatCSV}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			generator, err := NewReportGenerator(tt.config)
			if (err != nil) != tt.expectError {
				t.Fatalf("NewReportGenerator() error = %v, expectError %v", err, tt.expectError)
			}
			if !tt.expectError && generator == nil {
				t.Error("expected generator but got nil")
			}
		})
	}
}

func TestGenerateReport_Console(t *testing.T) {
	result := reconcileFixture(t, writeLedger(t, t.TempDir()))

	var buf bytes.Buffer
	if err := newGenerator(t, FormatConsole).GenerateReport(result, &buf); err != nil {
		t.Fatalf("GenerateReport() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"RECONCILIATION REPORT",
		result.RunID,
		"Assigned:     2 (40.0%)",
		"Conflicts:    1 (overwritten 0)",
		"Unmatched:    2 (empty code 1)",
		"Sheet row 2: HSBCHKHHHKH vs CHASUS33XXX (ACCOUNT, kept)",
		"Step row 6",
		"no ledger match",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("console report missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("console report should not contain escape codes when colors are off")
	}
}

func TestGenerateReport_Structured(t *testing.T) {
	result := reconcileFixture(t, writeLedger(t, t.TempDir()))

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := newGenerator(t, FormatJSON).GenerateReport(result, &buf); err != nil {
			t.Fatalf("GenerateReport() error = %v", err)
		}
		var doc map[string]interface{}
		if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if doc["run_id"] != result.RunID {
			t.Errorf("run_id = %v, want %s", doc["run_id"], result.RunID)
		}
		summary := doc["summary"].(map[string]interface{})
		if summary["assigned"].(float64) != 2 {
			t.Errorf("summary.assigned = %v, want 2", summary["assigned"])
		}
		if len(doc["unmatched"].([]interface{})) != 2 {
			t.Errorf("unmatched = %v", doc["unmatched"])
		}
		if _, ok := doc["outcomes"]; ok {
			t.Error("outcomes should be omitted by default")
		}
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		if err := newGenerator(t, FormatYAML).GenerateReport(result, &buf); err != nil {
			t.Fatalf("GenerateReport() error = %v", err)
		}
		var doc struct {
			RunID   string `yaml:"run_id"`
			Summary struct {
				Conflicts int `yaml:"conflicts"`
				EmptyCode int `yaml:"empty_code"`
			} `yaml:"summary"`
			Conflicts []models.Conflict `yaml:"conflicts"`
		}
		if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
			t.Fatalf("invalid YAML: %v", err)
		}
		if doc.RunID != result.RunID || doc.Summary.Conflicts != 1 || doc.Summary.EmptyCode != 1 {
			t.Errorf("yaml document = %+v", doc)
		}
		if len(doc.Conflicts) != 1 || doc.Conflicts[0].Prior != "HSBCHKHHHKH" || doc.Conflicts[0].SheetRow != 2 {
			t.Errorf("conflicts = %+v", doc.Conflicts)
		}
	})

	t.Run("csv", func(t *testing.T) {
		var buf bytes.Buffer
		if err := newGenerator(t, FormatCSV).GenerateReport(result, &buf); err != nil {
			t.Fatalf("GenerateReport() error = %v", err)
		}
		lines, err := csv.NewReader(&buf).ReadAll()
		if err != nil {
			t.Fatalf("invalid CSV: %v", err)
		}
		if len(lines) != 4 {
			t.Fatalf("csv lines = %d, want header + 1 conflict + 2 unmatched", len(lines))
		}
		if lines[1][0] != "conflict" || lines[1][7] != "HSBCHKHHHKH" {
			t.Errorf("conflict line = %v", lines[1])
		}
		if lines[3][0] != "unmatched" || lines[3][3] != "6" || lines[3][9] != models.ReasonNoLedgerMatch {
			t.Errorf("unmatched line = %v", lines[3])
		}
	})
}

func TestGenerateReport_WithOutcomes(t *testing.T) {
	result := reconcileFixture(t, writeLedger(t, t.TempDir()))

	config := DefaultReportConfig()
	config.Format = FormatJSON
	config.IncludeOutcomes = true
	generator, err := NewReportGenerator(config)
	if err != nil {
		t.Fatalf("NewReportGenerator() error = %v", err)
	}

	var buf bytes.Buffer
	if err := generator.GenerateReport(result, &buf); err != nil {
		t.Fatalf("GenerateReport() error = %v", err)
	}
	var doc struct {
		Outcomes []outcomeLine `json:"outcomes"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(doc.Outcomes) != 5 {
		t.Fatalf("outcomes = %d, want 5", len(doc.Outcomes))
	}
	if o := doc.Outcomes[1]; o.Status != "assigned" || o.Kind != "AMOUNT" || o.SheetRow != 3 {
		t.Errorf("outcome 1 = %+v", o)
	}
}

func TestGenerateBatchSummary(t *testing.T) {
	failure := errors.ExtractionError(errors.CodeDecodeFailed, "broken.msg", nil)
	batch := &collector.BatchResult{
		RunID:    "run-1",
		InputDir: "in",
		Records: []models.TransactionRecord{
			{FileName: "a.msg", Direction: models.DirectionOut, ClientAccount: "111"},
			models.FailedRecord("broken.msg", failure),
		},
		Skipped:  []string{"FFD_notice.msg"},
		Failures: []*errors.AppError{failure},
		Stats:    collector.BatchStats{Processed: 2, Final: 1, Failed: 1, Skipped: 1},
	}

	var buf bytes.Buffer
	if err := newGenerator(t, FormatConsole).GenerateBatchSummary(batch, &buf); err != nil {
		t.Fatalf("GenerateBatchSummary() error = %v", err)
	}
	for _, want := range []string{"EXTRACTION SUMMARY", "Final rows:  1", "Failed:      1", "broken.msg: "} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("summary missing %q\n%s", want, buf.String())
		}
	}

	buf.Reset()
	if err := newGenerator(t, FormatYAML).GenerateBatchSummary(batch, &buf); err != nil {
		t.Fatalf("GenerateBatchSummary() error = %v", err)
	}
	var doc struct {
		Stats    collector.BatchStats `yaml:"stats"`
		Failures []failureLine        `yaml:"failures"`
	}
	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if doc.Stats.Failed != 1 || len(doc.Failures) != 1 || doc.Failures[0].Code != string(errors.CodeDecodeFailed) {
		t.Errorf("yaml summary = %+v", doc)
	}
}

func TestSafeReportGenerator_WriteReport(t *testing.T) {
	dir := t.TempDir()
	result := reconcileFixture(t, writeLedger(t, dir))

	generator, err := NewSafeReportGenerator(&ReportConfig{Format: FormatJSON}, logger.Discard())
	if err != nil {
		t.Fatalf("NewSafeReportGenerator() error = %v", err)
	}

	path := filepath.Join(dir, "report.json")
	if err := generator.WriteReport(result, path, nil); err != nil {
		t.Fatalf("WriteReport() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !json.Valid(data) {
		t.Error("report file is not valid JSON")
	}

	if err := generator.WriteReport(result, "", nil); err == nil {
		t.Error("expected error without a destination")
	}

	if err := generator.WriteReport(nil, filepath.Join(dir, "nil.json"), nil); err == nil {
		t.Error("expected error for nil result")
	}
	if _, err := os.Stat(filepath.Join(dir, "nil.json")); !os.IsNotExist(err) {
		t.Error("a failed report must not leave a file behind")
	}

	if _, err := NewSafeReportGenerator(&ReportConfig{Format: "pdf"}, logger.Discard()); err == nil {
		t.Error("expected configuration error for unknown format")
	}
}
