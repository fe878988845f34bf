package cmd

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/viper"

	"golang-camt-importer/pkg/errors"
	"golang-camt-importer/pkg/logger"
)

// CLIErrorHandler provides user-friendly error handling for CLI operations
type CLIErrorHandler struct {
	logger  logger.Logger
	verbose bool
	out     io.Writer
}

// NewCLIErrorHandler creates a new CLI error handler
func NewCLIErrorHandler() *CLIErrorHandler {
	return &CLIErrorHandler{
		logger:  logger.GetGlobalLogger().WithComponent("cli"),
		verbose: viper.GetBool("verbose"),
		out:     os.Stderr,
	}
}

// HandleError prints err and returns the process exit code
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	h.logger.WithError(err).Debug("Command failed")

	var summary *errors.ErrorSummary
	if stderrors.As(err, &summary) {
		return h.handleErrorSummary(summary)
	}

	if importerErr, ok := errors.AsImporterError(err); ok {
		return h.handleImporterError(importerErr)
	}

	return h.handleGenericError(err)
}

func (h *CLIErrorHandler) handleImporterError(err *errors.ImporterError) int {
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

	fmt.Fprintf(h.out, "\n%s\n", h.getCategoryHelp(err.Category))

	if h.verbose && err.Cause != nil {
		fmt.Fprintf(h.out, "\nUnderlying error: %v\n", err.Cause)
	}

	return err.GetExitCode()
}

func (h *CLIErrorHandler) handleErrorSummary(summary *errors.ErrorSummary) int {
	fmt.Fprintf(h.out, "Error: %s\n", summary.Error())
	for i, err := range summary.Errors {
		fmt.Fprintf(h.out, "  %d. %s\n", i+1, err.Message)
		if i >= 9 && len(summary.Errors) > 10 {
			fmt.Fprintf(h.out, "  ... and %d more errors\n", len(summary.Errors)-10)
			break
		}
	}
	return summary.GetExitCode()
}

func (h *CLIErrorHandler) handleGenericError(err error) int {
	if h.isFileNotFoundError(err) {
		fmt.Fprintf(h.out, "Error: File not found\n")
		fmt.Fprintf(h.out, "Suggestion: Check if the file path is correct and the file exists\n")
		return 2
	}

	if h.isPermissionError(err) {
		fmt.Fprintf(h.out, "Error: Permission denied\n")
		fmt.Fprintf(h.out, "Suggestion: Check file permissions and ensure you have read access\n")
		return 2
	}

	if h.isDiskFullError(err) {
		fmt.Fprintf(h.out, "Error: Insufficient disk space\n")
		fmt.Fprintf(h.out, "Suggestion: Free up disk space and try again\n")
		return 2
	}

	fmt.Fprintf(h.out, "Error: %v\n", err)
	return 1
}

func (h *CLIErrorHandler) getCategoryHelp(category errors.ErrorCategory) string {
	switch category {
	case errors.CategoryFile:
		return `File error help:
• Check if the statement file exists and is readable
• Verify the file path is correct (use absolute paths if needed)
• Make sure the file is not empty`

	case errors.CategoryParse:
		return `Parse error help:
• Verify the file is a complete CAMT.053 document (BkToCstmrStmt)
• Check that the download finished and the file was not cut off
• Look at the reported line and element for the broken markup`

	case errors.CategoryValidation:
		return `Validation error help:
• Check that all required values are present
• Run identifiers use 1-128 characters from A-Z, a-z, 0-9, '-' and '_'`

	case errors.CategoryConfiguration:
		return `Configuration error help:
• Check the mapping profile syntax and setting names
• Verify the locale, level and default account settings
• Use 'camtimporter convert --help' to see all available options`

	case errors.CategoryUsage:
		return `Usage error help:
• Configure a run exactly once before starting it`

	case errors.CategoryConversion:
		return `Conversion error help:
• Inspect the per-record diagnostics in the report
• Adjust the mapping profile and convert again`

	default:
		return `For more help:
• Use 'camtimporter --help' for general help
• Use 'camtimporter convert --help' for command-specific help`
	}
}

func (h *CLIErrorHandler) isFileNotFoundError(err error) bool {
	return os.IsNotExist(err) || strings.Contains(err.Error(), "no such file or directory")
}

func (h *CLIErrorHandler) isPermissionError(err error) bool {
	return os.IsPermission(err) ||
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
