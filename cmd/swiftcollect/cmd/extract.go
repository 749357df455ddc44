package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/cmd/swiftcollect/config"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/collector"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/parsers"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/reporter"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/pkg/errors"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract transaction records from a directory of SWIFT messages",
	Long: `Extract reads every message file in the input directory, in name order,
and writes one transaction record per message into YYYYMMDD_Swift.xlsx
(sheets Step3_Final and Debug) in the output directory.

Files whose names contain a skip keyword are ignored. A message that cannot
be decoded or parsed becomes a Debug row carrying the error; it never stops
the batch.

Examples:
  # Basic extraction into the current directory
  swiftcollect extract --input-dir ./messages

  # Resolve primary ids through the account mapping sheet
  swiftcollect extract --input-dir ./messages --mapping-file mapping.xlsx \
    --mapping-sheet "ACCT Mapping" --output-dir ./out

  # JSON output, no skip keywords, sequential processing
  swiftcollect extract --input-dir ./messages --output-format json \
    --skip-keywords "" --workers 1`,
	PreRunE: validateExtractFlags,
	RunE:    runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	addExtractFlags(extractCmd)
}

// addExtractFlags registers the flags shared by extract and run
func addExtractFlags(cmd *cobra.Command) {
	defaults := collector.DefaultConfig()
	mapping := parsers.DefaultMappingSourceConfig()

	cmd.Flags().StringP(config.KeyInputDir, "i", "", "directory holding the message files (required)")
	cmd.Flags().StringP(config.KeyOutputDir, "d", ".", "directory the batch output is written to")
	cmd.Flags().String(config.KeyOutputFormat, config.BatchFormatXLSX, "batch output format: xlsx, json")
	cmd.Flags().StringP(config.KeyMappingFile, "m", "", "account mapping table (.xlsx, .xls or .csv)")
	cmd.Flags().String(config.KeyMappingSheet, mapping.Sheet, "mapping sheet name, empty for the first sheet")
	cmd.Flags().StringSlice(config.KeySkipKeywords, defaults.SkipKeywords, "skip files whose name contains any of these")
	cmd.Flags().StringSlice(config.KeyExtensions, defaults.Extensions, "message file extensions")
	cmd.Flags().IntP(config.KeyWorkers, "w", defaults.Workers, "number of files processed in parallel")
	cmd.Flags().Bool(config.KeyProgress, false, "show progress indicators")
}

func validateExtractFlags(cmd *cobra.Command, args []string) error {
	inputDir := viper.GetString(config.KeyInputDir)
	if inputDir == "" {
		return errors.ConfigurationError(errors.CodeMissingConfig, config.KeyInputDir, "", fmt.Errorf("input-dir is required")).
			WithSuggestion("Pass the message directory with --input-dir")
	}
	if err := validateDirExists(inputDir, "input directory"); err != nil {
		return err
	}

	if err := config.ValidateBatchFormat(outputFormat()); err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, config.KeyOutputFormat, outputFormat(), err)
	}

	if outputDir := viper.GetString(config.KeyOutputDir); outputDir != "" {
		if info, err := os.Stat(outputDir); err == nil && !info.IsDir() {
			return errors.FileError(errors.CodeDirectoryError, outputDir, fmt.Errorf("output path is not a directory"))
		}
	}

	if mappingFile := viper.GetString(config.KeyMappingFile); mappingFile != "" {
		if err := validateFileExists(mappingFile, "mapping file"); err != nil {
			return err
		}
	}

	if viper.IsSet(config.KeyWorkers) && viper.GetInt(config.KeyWorkers) <= 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, config.KeyWorkers, viper.GetInt(config.KeyWorkers),
			fmt.Errorf("workers must be positive"))
	}

	return nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	batch, err := extractBatch(commandContext(cmd), cmd)
	if err != nil {
		return err
	}

	path, err := writeBatchOutput(batch, time.Now())
	if err != nil {
		return err
	}

	if err := writeBatchSummary(cmd, batch); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Batch written to %s\n", path)
	return nil
}

// extractBatch loads the mapping table and runs the collector over the
// input directory
func extractBatch(ctx context.Context, cmd *cobra.Command) (*collector.BatchResult, error) {
	v := viper.GetViper()
	log := logger.GetGlobalLogger().WithComponent("cli")

	mappingConfig, err := config.CreateMappingSourceConfig(v)
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "mapping", v.GetString(config.KeyMappingFile), err)
	}
	mapping, err := parsers.LoadMappingTable(mappingConfig)
	if err != nil {
		return nil, err
	}

	collectorConfig, err := config.CreateCollectorConfig(v)
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "collector", nil, err)
	}

	c, err := collector.New(collectorConfig, mapping, logger.GetGlobalLogger())
	if err != nil {
		return nil, err
	}

	if v.GetBool(config.KeyProgress) {
		stderr := cmd.ErrOrStderr()
		c.OnProgress(func(done, total int, file string) {
			fmt.Fprintf(stderr, "\r[%d/%d] %s", done, total, file)
			if done == total {
				fmt.Fprintln(stderr)
			}
		})
	}
	if v.GetBool(config.KeyVerbose) {
		c.OnStatus(func(status string) { log.Debug(status) })
	}

	return c.Run(ctx, v.GetString(config.KeyInputDir))
}

// writeBatchOutput writes the batch in the configured format and returns the
// written path
func writeBatchOutput(batch *collector.BatchResult, day time.Time) (string, error) {
	outputDir := viper.GetString(config.KeyOutputDir)
	if outputDir == "" {
		outputDir = "."
	}

	if outputFormat() == config.BatchFormatJSON {
		return reporter.WriteBatchJSON(outputDir, batch, day)
	}
	return reporter.WriteBatchWorkbook(outputDir, batch, day)
}

func writeBatchSummary(cmd *cobra.Command, batch *collector.BatchResult) error {
	reportConfig, err := config.CreateReportConfig(viper.GetViper())
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, config.KeyReportFormat, viper.GetString(config.KeyReportFormat), err)
	}
	generator, err := reporter.NewSafeReportGenerator(reportConfig, logger.GetGlobalLogger())
	if err != nil {
		return err
	}
	return generator.WriteBatchSummary(batch, "", cmd.OutOrStdout())
}

func outputFormat() string {
	if format := viper.GetString(config.KeyOutputFormat); format != "" {
		return format
	}
	return config.BatchFormatXLSX
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func validateDirExists(dir, description string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return errors.FileError(errors.CodeDirectoryError, dir, err).
			WithContext("description", description)
	}
	if !info.IsDir() {
		return errors.FileError(errors.CodeDirectoryError, dir, fmt.Errorf("%s is not a directory", description))
	}
	return nil
}
