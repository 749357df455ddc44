// Package reporter renders batch and reconciliation results.
//
// Text reports are written to any io.Writer:
//   - Console: colored summary, conflicts and unmatched records for a terminal
//   - JSON / YAML: the same content as structured documents
//   - CSV: one line per conflict or unmatched record
//
// Workbooks are written by WriteBatchWorkbook (the Step3_Final and Debug
// views of an extraction batch) and WriteAnnotatedLedger (the ledger with the
// assigned codes, conflict highlighting and an Unmatched_Step3 sheet).
//
// Example usage:
//
//	generator, err := reporter.NewReportGenerator(&reporter.ReportConfig{Format: reporter.FormatYAML})
//	if err != nil {
//		return err
//	}
//	err = generator.GenerateReport(result, os.Stdout)
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/collector"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/matcher"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/models"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/reconciler"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

// OutputFormat represents the supported report output formats
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatYAML    OutputFormat = "yaml"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatYAML, FormatCSV:
		return true
	default:
		return false
	}
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format" yaml:"format" mapstructure:"format"`

	IncludeConflicts bool `json:"include_conflicts" yaml:"include_conflicts" mapstructure:"include_conflicts"`
	IncludeUnmatched bool `json:"include_unmatched" yaml:"include_unmatched" mapstructure:"include_unmatched"`
	IncludeOutcomes  bool `json:"include_outcomes" yaml:"include_outcomes" mapstructure:"include_outcomes"`

	// Console formatting options
	UseColors    bool `json:"use_colors" yaml:"use_colors" mapstructure:"use_colors"`
	MaxListItems int  `json:"max_list_items" yaml:"max_list_items" mapstructure:"max_list_items"`

	// CSV options
	CSVDelimiter rune `json:"csv_delimiter" yaml:"csv_delimiter" mapstructure:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers" yaml:"csv_headers" mapstructure:"csv_headers"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:           FormatConsole,
		IncludeConflicts: true,
		IncludeUnmatched: true,
		IncludeOutcomes:  false,
		UseColors:        true,
		MaxListItems:     20,
		CSVDelimiter:     ',',
		CSVHeaders:       true,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}

	if c.MaxListItems < 0 {
		return fmt.Errorf("max list items cannot be negative, got %d", c.MaxListItems)
	}

	if c.Format == FormatCSV && (c.CSVDelimiter == 0 || c.CSVDelimiter == '"' || c.CSVDelimiter == '\n') {
		return fmt.Errorf("invalid csv delimiter %q", c.CSVDelimiter)
	}

	return nil
}

// ReportGenerator generates reports in various formats
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a new report generator with the specified configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}

	return &ReportGenerator{config: config}, nil
}

// GetConfiguration returns the current configuration
func (rg *ReportGenerator) GetConfiguration() *ReportConfig {
	return rg.config
}

// reconciliationDocument is the structured form of a reconciliation report
type reconciliationDocument struct {
	RunID       string                   `json:"run_id" yaml:"run_id"`
	StartedAt   time.Time                `json:"started_at" yaml:"started_at"`
	CompletedAt time.Time                `json:"completed_at" yaml:"completed_at"`
	Timings     reconciler.Timings       `json:"timings" yaml:"timings"`
	Summary     matcher.Summary          `json:"summary" yaml:"summary"`
	Index       matcher.IndexStats       `json:"index" yaml:"index"`
	Conflicts   []models.Conflict        `json:"conflicts,omitempty" yaml:"conflicts,omitempty"`
	Unmatched   []models.UnmatchedRecord `json:"unmatched,omitempty" yaml:"unmatched,omitempty"`
	Outcomes    []outcomeLine            `json:"outcomes,omitempty" yaml:"outcomes,omitempty"`
}

type outcomeLine struct {
	RecordIndex int    `json:"record_index" yaml:"record_index"`
	Status      string `json:"status" yaml:"status"`
	Kind        string `json:"kind,omitempty" yaml:"kind,omitempty"`
	Code        string `json:"code,omitempty" yaml:"code,omitempty"`
	SheetRow    int    `json:"sheet_row,omitempty" yaml:"sheet_row,omitempty"`
	Reason      string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// GenerateReport writes a reconciliation report to writer
func (rg *ReportGenerator) GenerateReport(result *reconciler.ReconciliationResult, writer io.Writer) error {
	if result == nil || result.Match == nil {
		return fmt.Errorf("reconciliation result cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsoleReport(result, writer)
	case FormatJSON:
		return writeJSON(writer, rg.document(result))
	case FormatYAML:
		return writeYAML(writer, rg.document(result))
	case FormatCSV:
		return rg.generateCSVReport(result, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

func (rg *ReportGenerator) document(result *reconciler.ReconciliationResult) *reconciliationDocument {
	doc := &reconciliationDocument{
		RunID:       result.RunID,
		StartedAt:   result.StartedAt,
		CompletedAt: result.CompletedAt,
		Timings:     result.Timings,
		Summary:     result.Match.Summary,
		Index:       result.Match.Index,
	}
	if rg.config.IncludeConflicts {
		doc.Conflicts = result.Match.Conflicts
	}
	if rg.config.IncludeUnmatched {
		doc.Unmatched = result.Match.Unmatched
	}
	if rg.config.IncludeOutcomes {
		for _, o := range result.Match.Outcomes {
			line := outcomeLine{
				RecordIndex: o.RecordIndex,
				Status:      string(o.Status),
				Kind:        string(o.Kind),
				Code:        o.Code,
				Reason:      o.Reason,
			}
			if o.Row != nil {
				line.SheetRow = o.Row.SheetRow
			}
			doc.Outcomes = append(doc.Outcomes, line)
		}
	}
	return doc
}

func (rg *ReportGenerator) paint(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if !rg.config.UseColors {
		c.DisableColor()
	}
	return c
}

// generateConsoleReport generates a human-readable console report
func (rg *ReportGenerator) generateConsoleReport(result *reconciler.ReconciliationResult, writer io.Writer) error {
	var (
		header  = rg.paint(color.Bold)
		success = rg.paint(color.FgGreen)
		warn    = rg.paint(color.FgYellow)
		failure = rg.paint(color.FgRed)
	)
	s := result.Match.Summary

	header.Fprintf(writer, "RECONCILIATION REPORT\n")
	fmt.Fprintf(writer, "Run:      %s\n", result.RunID)
	fmt.Fprintf(writer, "Ledger:   %s\n", ledgerName(result))
	fmt.Fprintf(writer, "Duration: %v\n\n", result.Timings.Total)

	header.Fprintf(writer, "=== SUMMARY ===\n")
	fmt.Fprintf(writer, "Records:      %d\n", s.TotalRecords)
	fmt.Fprintf(writer, "Ledger Rows:  %d\n", s.LedgerRows)
	success.Fprintf(writer, "Assigned:     %d (%.1f%%)\n", s.Assigned, percentage(s.Assigned, s.TotalRecords))
	fmt.Fprintf(writer, "  by account: %d\n", s.AccountMatches)
	fmt.Fprintf(writer, "  by amount:  %d\n", s.AmountMatches)
	fmt.Fprintf(writer, "Repeats:      %d\n", s.Repeats)
	failure.Fprintf(writer, "Conflicts:    %d (overwritten %d)\n", s.Conflicts, s.Overwritten)
	warn.Fprintf(writer, "Unmatched:    %d (empty code %d)\n", s.Unmatched, s.EmptyCode)

	if rg.config.IncludeConflicts && len(result.Match.Conflicts) > 0 {
		fmt.Fprintln(writer)
		header.Fprintf(writer, "=== CONFLICTS ===\n")
		for i, c := range result.Match.Conflicts {
			if rg.truncated(writer, i, len(result.Match.Conflicts)) {
				break
			}
			action := "kept"
			if c.Overwritten {
				action = "overwritten"
			}
			failure.Fprintf(writer, "  %d. Sheet row %d: %s vs %s (%s, %s)\n",
				i+1, c.SheetRow, c.Prior, c.New, c.Kind, action)
		}
	}

	if rg.config.IncludeUnmatched && len(result.Match.Unmatched) > 0 {
		fmt.Fprintln(writer)
		header.Fprintf(writer, "=== UNMATCHED ===\n")
		for i, u := range result.Match.Unmatched {
			if rg.truncated(writer, i, len(result.Match.Unmatched)) {
				break
			}
			warn.Fprintf(writer, "  %d. Step row %d: A/C %q, AMT %q, SWIFT %q: %s\n",
				i+1, u.StepRow, u.CounterpartyAccount, u.Amount, u.Code, u.Reason)
		}
	}

	return nil
}

func (rg *ReportGenerator) truncated(writer io.Writer, i, total int) bool {
	if rg.config.MaxListItems == 0 || i < rg.config.MaxListItems {
		return false
	}
	fmt.Fprintf(writer, "  ... and %d more\n", total-i)
	return true
}

// generateCSVReport writes one line per conflict and unmatched record
func (rg *ReportGenerator) generateCSVReport(result *reconciler.ReconciliationResult, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter

	if rg.config.CSVHeaders {
		headers := []string{"Type", "Record", "Sheet_Row", "Step_Row", "CP_Account", "Amount", "Code", "Prior_Code", "Match_Type", "Detail"}
		if err := csvWriter.Write(headers); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	if rg.config.IncludeConflicts {
		for _, c := range result.Match.Conflicts {
			detail := "kept prior"
			if c.Overwritten {
				detail = "overwritten"
			}
			record := []string{
				"conflict",
				strconv.Itoa(c.RecordIndex),
				strconv.Itoa(c.SheetRow),
				strconv.Itoa(c.RecordIndex + matcher.StepRowOffset),
				"",
				"",
				c.New,
				c.Prior,
				string(c.Kind),
				detail,
			}
			if err := csvWriter.Write(record); err != nil {
				return fmt.Errorf("failed to write conflict record: %w", err)
			}
		}
	}

	if rg.config.IncludeUnmatched {
		for _, u := range result.Match.Unmatched {
			record := []string{
				"unmatched",
				strconv.Itoa(u.RecordIndex),
				"",
				strconv.Itoa(u.StepRow),
				u.CounterpartyAccount,
				u.Amount,
				u.Code,
				"",
				"",
				u.Reason,
			}
			if err := csvWriter.Write(record); err != nil {
				return fmt.Errorf("failed to write unmatched record: %w", err)
			}
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

// batchDocument is the structured form of a batch summary
type batchDocument struct {
	RunID       string               `json:"run_id" yaml:"run_id"`
	InputDir    string               `json:"input_dir" yaml:"input_dir"`
	StartedAt   time.Time            `json:"started_at" yaml:"started_at"`
	CompletedAt time.Time            `json:"completed_at" yaml:"completed_at"`
	Stats       collector.BatchStats `json:"stats" yaml:"stats"`
	Skipped     []string             `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Failures    []failureLine        `json:"failures,omitempty" yaml:"failures,omitempty"`
}

type failureLine struct {
	File    string `json:"file" yaml:"file"`
	Code    string `json:"code" yaml:"code"`
	Message string `json:"message" yaml:"message"`
}

// GenerateBatchSummary writes the outcome of an extraction batch. CSV is
// rendered as the console summary since a batch has no tabular report.
func (rg *ReportGenerator) GenerateBatchSummary(batch *collector.BatchResult, writer io.Writer) error {
	if batch == nil {
		return fmt.Errorf("batch result cannot be nil")
	}

	doc := &batchDocument{
		RunID:       batch.RunID,
		InputDir:    batch.InputDir,
		StartedAt:   batch.StartedAt,
		CompletedAt: batch.CompletedAt,
		Stats:       batch.Stats,
		Skipped:     batch.Skipped,
	}
	for _, rec := range batch.Records {
		if rec.Failed() {
			doc.Failures = append(doc.Failures, failureLine{File: rec.FileName, Code: failureCode(batch, rec.FileName), Message: rec.Error})
		}
	}

	switch rg.config.Format {
	case FormatJSON:
		return writeJSON(writer, doc)
	case FormatYAML:
		return writeYAML(writer, doc)
	}

	header := rg.paint(color.Bold)
	header.Fprintf(writer, "EXTRACTION SUMMARY\n")
	fmt.Fprintf(writer, "Run:         %s\n", doc.RunID)
	fmt.Fprintf(writer, "Input:       %s\n", doc.InputDir)
	fmt.Fprintf(writer, "Processed:   %d\n", doc.Stats.Processed)
	rg.paint(color.FgGreen).Fprintf(writer, "Final rows:  %d\n", doc.Stats.Final)
	fmt.Fprintf(writer, "Unknown:     %d\n", doc.Stats.Unknown)
	rg.paint(color.FgYellow).Fprintf(writer, "Warnings:    %d\n", doc.Stats.WithWarnings)
	rg.paint(color.FgRed).Fprintf(writer, "Failed:      %d\n", doc.Stats.Failed)
	fmt.Fprintf(writer, "Skipped:     %d\n", doc.Stats.Skipped)
	fmt.Fprintf(writer, "Duration:    %v\n", doc.Stats.Duration)

	for i, f := range doc.Failures {
		if rg.truncated(writer, i, len(doc.Failures)) {
			break
		}
		rg.paint(color.FgRed).Fprintf(writer, "  %s: %s\n", f.File, f.Message)
	}
	return nil
}

func failureCode(batch *collector.BatchResult, file string) string {
	for _, f := range batch.Failures {
		if name, ok := f.Context["file"].(string); ok && name == file {
			return string(f.Code)
		}
	}
	return ""
}

func writeJSON(writer io.Writer, v interface{}) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func writeYAML(writer io.Writer, v interface{}) error {
	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return err
	}
	return encoder.Close()
}

func ledgerName(result *reconciler.ReconciliationResult) string {
	if result.Ledger == nil {
		return ""
	}
	return strings.TrimSpace(result.Ledger.Path + " [" + result.Ledger.Sheet + "]")
}

func percentage(part, total int) float64 {
	if total == 0 {
		return 0.0
	}
	return float64(part) / float64(total) * 100.0
}
