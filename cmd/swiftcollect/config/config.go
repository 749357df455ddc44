// Package config turns viper settings into the typed configuration of each
// component. Keys mirror the command-line flag names so that a flag, a
// SWIFTCOLLECT_* environment variable and a config file entry all land on the
// same setting.
package config

import (
	"fmt"
	"strings"

	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/collector"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/matcher"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/parsers"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/reporter"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Setting keys shared by flags, environment and config files
const (
	KeyVerbose   = "verbose"
	KeyLogLevel  = "log-level"
	KeyLogFormat = "log-format"
	KeyLogFile   = "log-file"

	KeyInputDir         = "input-dir"
	KeyOutputDir        = "output-dir"
	KeyOutputFormat     = "output-format"
	KeyMappingFile      = "mapping-file"
	KeyMappingSheet     = "mapping-sheet"
	KeyMappingIDColumn  = "mapping-id-column"
	KeyMappingCCYColumn = "mapping-currency-column"
	KeyMappingACColumn  = "mapping-account-column"
	KeySkipKeywords     = "skip-keywords"
	KeyExtensions       = "extensions"
	KeyWorkers          = "workers"
	KeyProgress         = "progress"
	KeyProgressInterval = "progress-interval"

	KeyRecords             = "records"
	KeyRecordsSheet        = "records-sheet"
	KeyLedger              = "ledger"
	KeyLedgerSheet         = "ledger-sheet"
	KeyLedgerAccountColumn = "ledger-account-column"
	KeyLedgerAmountColumn  = "ledger-amount-column"
	KeyLedgerTargetColumn  = "ledger-target-column"
	KeyOutputFile          = "output-file"
	KeyAmountTolerance     = "amount-tolerance"
	KeyAllowOverwrite      = "allow-overwrite"
	KeyPreferUnclaimed     = "prefer-unclaimed"

	KeyReportFormat   = "report-format"
	KeyReportFile     = "report-file"
	KeyReportOutcomes = "report-outcomes"
	KeyReportMaxItems = "report-max-items"
	KeyNoColor        = "no-color"
)

// Output formats of the extract step
const (
	BatchFormatXLSX = "xlsx"
	BatchFormatJSON = "json"
)

// CreateLoggerConfig builds the logger configuration. --verbose raises the
// level to debug unless a level was set explicitly.
func CreateLoggerConfig(v *viper.Viper) (*logger.Config, error) {
	config := logger.DefaultConfig()

	if level := strings.ToLower(strings.TrimSpace(v.GetString(KeyLogLevel))); level != "" {
		config.Level = logger.Level(level)
	} else if v.GetBool(KeyVerbose) {
		config.Level = logger.DebugLevel
	}

	if format := strings.ToLower(strings.TrimSpace(v.GetString(KeyLogFormat))); format != "" {
		config.Format = logger.Format(format)
	}

	if file := strings.TrimSpace(v.GetString(KeyLogFile)); file != "" {
		config.Output = logger.FileOutput
		config.File = file
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// CreateCollectorConfig builds the batch collector configuration
func CreateCollectorConfig(v *viper.Viper) (*collector.Config, error) {
	config := collector.DefaultConfig()

	if v.IsSet(KeySkipKeywords) {
		config.SkipKeywords = cleanList(v.GetStringSlice(KeySkipKeywords))
	}

	if v.IsSet(KeyExtensions) {
		var exts []string
		for _, ext := range cleanList(v.GetStringSlice(KeyExtensions)) {
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			exts = append(exts, strings.ToLower(ext))
		}
		config.Extensions = exts
	}

	if v.IsSet(KeyWorkers) {
		config.Workers = v.GetInt(KeyWorkers)
	}

	if v.IsSet(KeyProgressInterval) {
		config.ProgressInterval = v.GetDuration(KeyProgressInterval)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// CreateMappingSourceConfig builds the mapping table source. An empty
// mapping file is valid and disables primary id resolution.
func CreateMappingSourceConfig(v *viper.Viper) (*parsers.MappingSourceConfig, error) {
	config := parsers.DefaultMappingSourceConfig()
	config.Path = strings.TrimSpace(v.GetString(KeyMappingFile))

	if v.IsSet(KeyMappingSheet) {
		config.Sheet = v.GetString(KeyMappingSheet)
	}
	overrideString(v, KeyMappingIDColumn, &config.PrimaryIDColumn)
	overrideString(v, KeyMappingCCYColumn, &config.CurrencyColumn)
	overrideString(v, KeyMappingACColumn, &config.AccountColumn)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// CreateLedgerConfig builds the ledger layout. Column settings accept a
// header name, optionally followed by ":LETTER" for the fallback column.
func CreateLedgerConfig(v *viper.Viper) (*parsers.LedgerConfig, error) {
	config := parsers.DefaultLedgerConfig()
	config.Path = strings.TrimSpace(v.GetString(KeyLedger))

	if v.IsSet(KeyLedgerSheet) {
		config.Sheet = v.GetString(KeyLedgerSheet)
	}

	columns := map[string]*parsers.ColumnRef{
		KeyLedgerAccountColumn: &config.AccountColumn,
		KeyLedgerAmountColumn:  &config.AmountColumn,
		KeyLedgerTargetColumn:  &config.TargetColumn,
	}
	for key, ref := range columns {
		if raw := strings.TrimSpace(v.GetString(key)); raw != "" {
			*ref = ParseColumnRef(raw)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// ParseColumnRef parses "Header" or "Header:X" into a column reference
func ParseColumnRef(raw string) parsers.ColumnRef {
	if i := strings.LastIndex(raw, ":"); i >= 0 {
		return parsers.ColumnRef{
			Name:     strings.TrimSpace(raw[:i]),
			Fallback: strings.ToUpper(strings.TrimSpace(raw[i+1:])),
		}
	}
	return parsers.ColumnRef{Name: raw}
}

// CreateRecordsSourceConfig builds the source of previously extracted records
func CreateRecordsSourceConfig(v *viper.Viper) (*parsers.RecordsSourceConfig, error) {
	config := parsers.DefaultRecordsSourceConfig()
	config.Path = strings.TrimSpace(v.GetString(KeyRecords))
	overrideString(v, KeyRecordsSheet, &config.Sheet)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// CreateMatchingConfig builds the matching policy. The tolerance is read as a
// string so that decimal values survive exactly.
func CreateMatchingConfig(v *viper.Viper) (*matcher.MatchingConfig, error) {
	config := matcher.DefaultMatchingConfig()

	if raw := strings.TrimSpace(v.GetString(KeyAmountTolerance)); raw != "" {
		tolerance, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("amount tolerance %q is not a number", raw)
		}
		config.AmountTolerance = tolerance
	}

	config.AllowOverwrite = v.GetBool(KeyAllowOverwrite)
	config.PreferUnclaimedOnAmount = v.GetBool(KeyPreferUnclaimed)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// CreateReportConfig builds the report configuration. Colors are only used
// for console output that goes to the terminal.
func CreateReportConfig(v *viper.Viper) (*reporter.ReportConfig, error) {
	config := reporter.DefaultReportConfig()

	if format := strings.ToLower(strings.TrimSpace(v.GetString(KeyReportFormat))); format != "" {
		config.Format = reporter.OutputFormat(format)
	}

	switch config.Format {
	case reporter.FormatJSON, reporter.FormatYAML:
		config.IncludeOutcomes = true
	case reporter.FormatCSV:
		config.IncludeOutcomes = true
		config.UseColors = false
	}

	if v.IsSet(KeyReportOutcomes) {
		config.IncludeOutcomes = v.GetBool(KeyReportOutcomes)
	}
	if v.IsSet(KeyReportMaxItems) {
		config.MaxListItems = v.GetInt(KeyReportMaxItems)
	}
	if v.GetBool(KeyNoColor) || v.GetString(KeyReportFile) != "" {
		config.UseColors = false
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// ValidateBatchFormat checks the extract output format
func ValidateBatchFormat(format string) error {
	switch format {
	case BatchFormatXLSX, BatchFormatJSON:
		return nil
	}
	return fmt.Errorf("invalid output format %q, valid formats: %s, %s", format, BatchFormatXLSX, BatchFormatJSON)
}

func overrideString(v *viper.Viper, key string, target *string) {
	if !v.IsSet(key) {
		return
	}
	if s := strings.TrimSpace(v.GetString(key)); s != "" {
		*target = s
	}
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, s := range values {
		// config files may hold "FFD, MT199" as a single string
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
