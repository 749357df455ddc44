package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/cmd/swiftcollect/config"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/pkg/errors"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by the CLI
const EnvPrefix = "SWIFTCOLLECT"

var (
	cfgFile string
	envFile string
	verbose bool
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "swiftcollect",
	Short: "SWIFT message extraction and ledger reconciliation",
	Long: `swiftcollect reads a directory of SWIFT MT payment messages, extracts one
transaction record per message into a workbook, and assigns the counterparty
bank identifier codes of those records to the rows of a deposit ledger.

Examples:
  swiftcollect extract --input-dir ./messages --mapping-file mapping.xlsx
  swiftcollect reconcile --records 20240115_Swift.xlsx --ledger ledger.xlsx
  swiftcollect run --input-dir ./messages --ledger ledger.xlsx --report-format json
  swiftcollect --version`,
	Version:           getVersionString(),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: prepareCommand,
}

// Execute runs the command tree. SIGINT and SIGTERM cancel the running
// batch; nothing is written when that happens.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file, YAML, TOML or JSON (default: ./swiftcollect.yaml if present)")
	flags.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading SWIFTCOLLECT_* variables")
	flags.BoolVarP(&verbose, config.KeyVerbose, "v", false, "verbose output")
	flags.String(config.KeyLogLevel, "", "log level: debug, info, warn, error")
	flags.String(config.KeyLogFormat, "text", "log format: text, json")
	flags.String(config.KeyLogFile, "", "write logs to this file instead of stderr")
	flags.Bool(config.KeyNoColor, false, "disable colored console output")
}

// prepareCommand binds the flags of the executing command, reads the config
// file and environment, and installs the global logger.
func prepareCommand(cmd *cobra.Command, args []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return errors.InternalError(errors.CodeUnexpectedError, "bind_flags", err)
	}

	if err := initConfig(); err != nil {
		return err
	}

	logConfig, err := config.CreateLoggerConfig(viper.GetViper())
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "logging", viper.GetString(config.KeyLogLevel), err).
			WithSuggestion("Use --log-level debug|info|warn|error and --log-format text|json")
	}
	log, err := logger.NewLogger(logConfig)
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "logging", logConfig.File, err)
	}
	logger.SetGlobalLogger(log)

	if used := viper.ConfigFileUsed(); used != "" {
		log.WithField("config", used).Debug("Using config file")
	}
	return nil
}

// initConfig reads the dotenv file, the config file and the environment
func initConfig() error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return errors.ConfigurationError(errors.CodeInvalidConfig, "env-file", envFile, err)
		}
	}

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return errors.ConfigurationError(errors.CodeInvalidConfig, "config", cfgFile, err).
				WithSuggestion("Check the config file path and syntax")
		}
		return nil
	}

	viper.SetConfigName("swiftcollect")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return errors.ConfigurationError(errors.CodeInvalidConfig, "config", "swiftcollect", err)
		}
	}
	return nil
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}
