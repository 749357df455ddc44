package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"syscall"

	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/reporter"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/pkg/errors"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/pkg/logger"

	"github.com/spf13/viper"
)

// CLIErrorHandler provides user-friendly error handling for CLI operations
type CLIErrorHandler struct {
	logger  logger.Logger
	verbose bool
	out     io.Writer
}

// NewCLIErrorHandler creates a new CLI error handler writing to stderr
func NewCLIErrorHandler() *CLIErrorHandler {
	return &CLIErrorHandler{
		logger:  logger.GetGlobalLogger().WithComponent("cli"),
		verbose: viper.GetBool("verbose"),
		out:     os.Stderr,
	}
}

// HandleError prints err for the user and returns the process exit code
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	h.logger.WithError(err).Debug("Command failed")

	if appErr, ok := errors.AsAppError(err); ok {
		return h.handleAppError(appErr)
	}

	return h.handleGenericError(err)
}

func (h *CLIErrorHandler) handleAppError(err *errors.AppError) int {
	fmt.Fprintf(h.out, "Error: %s\n", err.Message)

	if len(err.Context) > 0 {
		keys := make([]string, 0, len(err.Context))
		for key := range err.Context {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		fmt.Fprintf(h.out, "\nContext:\n")
		for _, key := range keys {
			fmt.Fprintf(h.out, "  %s: %v\n", key, err.Context[key])
		}
	}

	if err.Suggestion != "" {
		fmt.Fprintf(h.out, "\nSuggestion: %s\n", err.Suggestion)
	}

	if err.Code == errors.CodeCancelled {
		fmt.Fprintf(h.out, "\nThe run was cancelled before anything was written.\n")
	} else {
		fmt.Fprintf(h.out, "\n%s\n", h.getCategoryHelp(err.Category))
	}

	if h.verbose && err.Cause != nil {
		fmt.Fprintf(h.out, "\nUnderlying error: %v\n", err.Cause)
		if len(err.StackTrace) > 0 {
			fmt.Fprintf(h.out, "\nStack trace:%+v\n", err.StackTrace)
		}
	}

	return err.GetExitCode()
}

func (h *CLIErrorHandler) handleGenericError(err error) int {
	switch {
	case h.isFileNotFoundError(err):
		fmt.Fprintf(h.out, "Error: File not found\n")
		fmt.Fprintf(h.out, "Suggestion: Check if the file path is correct and the file exists\n")
		return 2
	case h.isPermissionError(err):
		fmt.Fprintf(h.out, "Error: Permission denied\n")
		fmt.Fprintf(h.out, "Suggestion: Check file permissions and ensure you have read access\n")
		return 2
	case h.isDiskFullError(err):
		fmt.Fprintf(h.out, "Error: Insufficient disk space\n")
		fmt.Fprintf(h.out, "Suggestion: Free up disk space and try again\n")
		return 2
	case stderrors.Is(err, context.Canceled):
		fmt.Fprintf(h.out, "Error: Cancelled\n")
		return 130
	}

	// cobra flag parsing errors land here
	fmt.Fprintf(h.out, "Error: %v\n", err)
	fmt.Fprintf(h.out, "Run 'swiftcollect --help' for usage.\n")
	return 1
}

// getCategoryHelp returns category-specific help text
func (h *CLIErrorHandler) getCategoryHelp(category errors.ErrorCategory) string {
	switch category {
	case errors.CategoryFile:
		return `File error help:
• Check that the file or directory exists and is readable
• Verify the path is correct (use absolute paths if needed)
• Ensure the output directory is writable
• Close the workbook in Excel if it is open there`

	case errors.CategoryParse:
		return `Parse error help:
• Verify the sheet name (--mapping-sheet, --ledger-sheet, --records-sheet)
• Check that the header row is the first row of the sheet
• Mapping sheets need the columns PRIMARY ID, CCY and R-TAG
• Save legacy files as .xlsx if they cannot be read`

	case errors.CategoryValidation:
		return `Validation error help:
• Check that all required values are present
• Amounts must be numbers, thousands separators are allowed
• Re-run 'swiftcollect extract' to regenerate the batch workbook`

	case errors.CategoryConfiguration:
		return `Configuration error help:
• Check your command-line flags and arguments
• Verify configuration file syntax if using --config
• SWIFTCOLLECT_* environment variables override the config file
• Use 'swiftcollect <command> --help' to see all available options`

	case errors.CategoryExtraction:
		return `Extraction error help:
• Check that the message file is an Outlook .msg or a plain text export
• Failed messages are listed on the Debug sheet with their error`

	case errors.CategoryReconciliation:
		return fmt.Sprintf(`Reconciliation error help:
• Check the ledger layout (account, amount and target columns)
• Try adjusting --amount-tolerance
• Unmatched records are listed on the %s sheet, they are not errors`, reporter.UnmatchedSheetName)

	default:
		return `For more help:
• Use 'swiftcollect --help' for general help
• Use 'swiftcollect <command> --help' for command-specific help
• Run with --verbose for the underlying error`
	}
}

func (h *CLIErrorHandler) isFileNotFoundError(err error) bool {
	return stderrors.Is(err, os.ErrNotExist) || strings.Contains(err.Error(), "no such file or directory")
}

func (h *CLIErrorHandler) isPermissionError(err error) bool {
	return stderrors.Is(err, os.ErrPermission) ||
		strings.Contains(err.Error(), "permission denied") ||
		strings.Contains(err.Error(), "access denied")
}

func (h *CLIErrorHandler) isDiskFullError(err error) bool {
	if stderrors.Is(err, syscall.ENOSPC) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "no space left") ||
		strings.Contains(errStr, "disk full") ||
		strings.Contains(errStr, "device full")
}
