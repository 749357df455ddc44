package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/cmd/swiftcollect/config"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/reconciler"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/reporter"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Extract a message directory and reconcile it against a ledger",
	Long: `Run performs extract and reconcile in one pass. The batch workbook is
written as with 'swiftcollect extract', and the final records are handed to
the reconciliation in batch order without being read back from that file.

Examples:
  swiftcollect run --input-dir ./messages --ledger ledger.xlsx

  swiftcollect run --input-dir ./messages --mapping-file mapping.xlsx \
    --ledger ledger.xlsx --output-file annotated.xlsx \
    --report-format yaml --report-file report.yaml`,
	PreRunE: validateRunFlags,
	RunE:    runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)
	addExtractFlags(runCmd)
	addLedgerFlags(runCmd)
}

func validateRunFlags(cmd *cobra.Command, args []string) error {
	if err := validateExtractFlags(cmd, args); err != nil {
		return err
	}
	return validateLedgerFlags()
}

func runPipeline(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	log := logger.GetGlobalLogger().WithComponent("cli")

	batch, err := extractBatch(ctx, cmd)
	if err != nil {
		return err
	}

	path, err := writeBatchOutput(batch, time.Now())
	if err != nil {
		return err
	}
	log.WithFields(logger.Fields{
		"run_id": batch.RunID,
		"file":   path,
		"stats":  batch.Stats.String(),
	}).Info("Batch written")
	fmt.Fprintf(cmd.ErrOrStderr(), "Batch written to %s (%s)\n", path, batch.Stats)

	// the report owns stdout; a json or yaml report must stay parseable
	if format := viper.GetString(config.KeyReportFormat); format == "" || strings.EqualFold(format, string(reporter.FormatConsole)) {
		if err := writeBatchSummary(cmd, batch); err != nil {
			return err
		}
	}

	return reconcile(ctx, cmd, &reconciler.ReconciliationRequest{Records: batch.Final()})
}
