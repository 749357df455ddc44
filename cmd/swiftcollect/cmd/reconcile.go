package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/cmd/swiftcollect/config"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/matcher"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/parsers"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/reconciler"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/reporter"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/pkg/errors"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Assign counterparty identifier codes from extracted records to a ledger",
	Long: `Reconcile reads the Step3_Final sheet of a batch workbook and assigns each
record's CP SWIFT code to one row of the ledger, first by counterparty account
and then by the closest amount within [amount - tolerance, amount].

Records are applied in workbook order and the first code written to a row
wins. A different code for an already assigned row is reported as a conflict
and the row is highlighted; --allow-overwrite lets the later code replace it.

The ledger itself is never modified: the result is written to a new workbook
(default <ledger>_annotated.xlsx) with an Unmatched_Step3 sheet listing every
record that found no row.

Examples:
  # Basic reconciliation
  swiftcollect reconcile --records 20240115_Swift.xlsx --ledger ledger.xlsx

  # Exact amounts only, report as JSON
  swiftcollect reconcile --records 20240115_Swift.xlsx --ledger ledger.xlsx \
    --amount-tolerance 0 --report-format json --report-file report.json

  # Later codes replace earlier ones, amount matches skip assigned rows
  swiftcollect reconcile --records 20240115_Swift.xlsx --ledger ledger.xls \
    --ledger-sheet DWCKFS --allow-overwrite --prefer-unclaimed`,
	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().StringP(config.KeyRecords, "r", "", "batch workbook (or .csv) holding the extracted records (required)")
	reconcileCmd.Flags().String(config.KeyRecordsSheet, parsers.FinalSheetName, "sheet of the records workbook")
	addLedgerFlags(reconcileCmd)
}

// addLedgerFlags registers the ledger, matching and report flags shared by
// reconcile and run
func addLedgerFlags(cmd *cobra.Command) {
	ledger := parsers.DefaultLedgerConfig()
	matching := matcher.DefaultMatchingConfig()
	report := reporter.DefaultReportConfig()

	cmd.Flags().StringP(config.KeyLedger, "l", "", "ledger workbook to reconcile against (required)")
	cmd.Flags().String(config.KeyLedgerSheet, ledger.Sheet, "ledger sheet name, empty for the first sheet")
	cmd.Flags().String(config.KeyLedgerAccountColumn, "", "ledger account column as HEADER or HEADER:LETTER")
	cmd.Flags().String(config.KeyLedgerAmountColumn, "", "ledger amount column as HEADER or HEADER:LETTER")
	cmd.Flags().String(config.KeyLedgerTargetColumn, "", "ledger column receiving the codes as HEADER or HEADER:LETTER")
	cmd.Flags().StringP(config.KeyOutputFile, "o", "", "annotated ledger path (default: <ledger>_annotated.xlsx)")

	cmd.Flags().StringP(config.KeyAmountTolerance, "a", matching.AmountTolerance.String(), "how far below a record's amount a ledger amount may be")
	cmd.Flags().Bool(config.KeyAllowOverwrite, matching.AllowOverwrite, "let a conflicting code replace the one already assigned")
	cmd.Flags().Bool(config.KeyPreferUnclaimed, matching.PreferUnclaimedOnAmount, "skip already assigned rows when matching by amount")

	cmd.Flags().StringP(config.KeyReportFormat, "f", string(report.Format), "report format: console, json, yaml, csv")
	cmd.Flags().String(config.KeyReportFile, "", "report file path (default: stdout)")
	cmd.Flags().Bool(config.KeyReportOutcomes, false, "list the outcome of every record in the report")
	cmd.Flags().Int(config.KeyReportMaxItems, report.MaxListItems, "maximum conflicts and unmatched records listed on the console, 0 for all")
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	records := viper.GetString(config.KeyRecords)
	if records == "" {
		return errors.ConfigurationError(errors.CodeMissingConfig, config.KeyRecords, "", fmt.Errorf("records is required")).
			WithSuggestion("Pass the batch workbook written by 'swiftcollect extract' with --records")
	}
	if err := validateFileExists(records, "records file"); err != nil {
		return err
	}

	return validateLedgerFlags()
}

// validateLedgerFlags checks the settings shared by reconcile and run
func validateLedgerFlags() error {
	v := viper.GetViper()

	ledger := v.GetString(config.KeyLedger)
	if ledger == "" {
		return errors.ConfigurationError(errors.CodeMissingConfig, config.KeyLedger, "", fmt.Errorf("ledger is required")).
			WithSuggestion("Pass the ledger workbook with --ledger")
	}
	if err := validateFileExists(ledger, "ledger file"); err != nil {
		return err
	}

	if _, err := config.CreateLedgerConfig(v); err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "ledger", ledger, err)
	}

	if _, err := config.CreateMatchingConfig(v); err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, config.KeyAmountTolerance, v.GetString(config.KeyAmountTolerance), err).
			WithSuggestion("Use a non-negative number such as 100 or 0.5")
	}

	if _, err := config.CreateReportConfig(v); err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, config.KeyReportFormat, v.GetString(config.KeyReportFormat), err).
			WithSuggestion("Use one of: console, json, yaml, csv")
	}

	if outputFile := v.GetString(config.KeyOutputFile); outputFile != "" {
		ext := strings.ToLower(filepath.Ext(outputFile))
		if ext != ".xlsx" && ext != ".xlsm" {
			return errors.ConfigurationError(errors.CodeInvalidConfig, config.KeyOutputFile, outputFile,
				fmt.Errorf("annotated ledger must be an .xlsx or .xlsm file"))
		}
		if err := validateParentDir(outputFile); err != nil {
			return err
		}
	}

	if reportFile := v.GetString(config.KeyReportFile); reportFile != "" {
		if err := validateParentDir(reportFile); err != nil {
			return err
		}
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return errors.ValidationError(errors.CodeMissingField, description, "", fmt.Errorf("%s path cannot be empty", description))
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return errors.FileError(errors.CodeFileNotFound, filePath, err).
			WithContext("description", description)
	}
	if info.IsDir() {
		return errors.FileError(errors.CodeInvalidFormat, filePath, fmt.Errorf("%s is a directory, expected a file", description))
	}

	file, err := os.Open(filePath)
	if err != nil {
		return errors.FileError(errors.CodeFilePermission, filePath, err)
	}
	file.Close()

	return nil
}

func validateParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if _, err := os.Stat(dir); err != nil {
		return errors.FileError(errors.CodeDirectoryError, dir, fmt.Errorf("output directory does not exist"))
	}
	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	recordsSource, err := config.CreateRecordsSourceConfig(viper.GetViper())
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, config.KeyRecords, viper.GetString(config.KeyRecords), err)
	}

	return reconcile(commandContext(cmd), cmd, &reconciler.ReconciliationRequest{RecordsSource: recordsSource})
}

// reconcile completes the request with the ledger settings, runs it, and
// writes the annotated ledger and the report
func reconcile(ctx context.Context, cmd *cobra.Command, request *reconciler.ReconciliationRequest) error {
	v := viper.GetViper()
	log := logger.GetGlobalLogger().WithComponent("cli")

	ledgerConfig, err := config.CreateLedgerConfig(v)
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "ledger", v.GetString(config.KeyLedger), err)
	}
	request.Ledger = ledgerConfig

	matchingConfig, err := config.CreateMatchingConfig(v)
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, config.KeyAmountTolerance, v.GetString(config.KeyAmountTolerance), err)
	}

	reportConfig, err := config.CreateReportConfig(v)
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, config.KeyReportFormat, v.GetString(config.KeyReportFormat), err)
	}
	generator, err := reporter.NewSafeReportGenerator(reportConfig, logger.GetGlobalLogger())
	if err != nil {
		return err
	}

	service, err := reconciler.NewReconciliationService(matchingConfig, logger.GetGlobalLogger())
	if err != nil {
		return err
	}

	log.WithFields(logger.Fields{
		"ledger":   ledgerConfig.Path,
		"matching": matchingConfig.String(),
	}).Debug("Starting reconciliation")

	result, err := service.ProcessReconciliation(ctx, request)
	if err != nil {
		return err
	}

	annotated, err := reporter.WriteAnnotatedLedger(result, v.GetString(config.KeyOutputFile))
	if err != nil {
		return err
	}

	if err := generator.WriteReport(result, v.GetString(config.KeyReportFile), cmd.OutOrStdout()); err != nil {
		return err
	}

	summary := result.Summary()
	fmt.Fprintf(cmd.ErrOrStderr(), "Annotated ledger written to %s\n", annotated)
	if summary.Conflicts > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d conflicting assignment(s) highlighted in the ledger\n", summary.Conflicts)
	}
	if unmatched := len(result.Unmatched()); unmatched > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d record(s) listed in sheet %s\n", unmatched, reporter.UnmatchedSheetName)
	}
	return nil
}
