package errors

import (
	"fmt"
	"strings"
)

// MalformedStatementError reports statement content that cannot be interpreted at all.
// It is the only error that aborts a conversion run.
type MalformedStatementError struct {
	*ImporterError
	Offset  int64  `json:"offset"`
	Line    int    `json:"line"`
	Element string `json:"element,omitempty"`
	Reason  string `json:"reason"`
}

// NewMalformedStatementError creates a malformed statement error located at offset/line.
func NewMalformedStatementError(code ErrorCode, offset int64, line int, element, reason string, cause error) *MalformedStatementError {
	message := fmt.Sprintf("malformed statement at line %d (offset %d): %s", line, offset, reason)

	base := newOrWrap(cause, CategoryParse, code, message).
		WithContext("offset", offset).
		WithContext("line", line)
	if element != "" {
		base.WithContext("element", element)
	}

	switch code {
	case CodeMalformedMarkup:
		base.WithSuggestion("the file is not well-formed XML; check that it was not truncated")
	case CodeMissingElement:
		base.WithSuggestion("the file must contain a BkToCstmrStmt with a GrpHdr and at least one Stmt")
	case CodeInvalidCurrency:
		base.WithSuggestion("currency codes must be three upper-case letters (ISO 4217)")
	}

	return &MalformedStatementError{
		ImporterError: base,
		Offset:        offset,
		Line:          line,
		Element:       element,
		Reason:        reason,
	}
}

// Unwrap exposes the embedded ImporterError so errors.As finds it.
func (e *MalformedStatementError) Unwrap() error {
	return e.ImporterError
}

// GetDetailedError returns a detailed multi-line error description
func (e *MalformedStatementError) GetDetailedError() string {
	lines := []string{
		fmt.Sprintf("ERROR: %s", e.Reason),
		fmt.Sprintf("  → Line: %d", e.Line),
		fmt.Sprintf("  → Offset: %d", e.Offset),
	}
	if e.Element != "" {
		lines = append(lines, fmt.Sprintf("  → Element: %s", e.Element))
	}
	if e.Suggestion != "" {
		lines = append(lines, fmt.Sprintf("  → Suggestion: %s", e.Suggestion))
	}
	return strings.Join(lines, "\n")
}

// NotConfiguredError is returned when a run is started before its configuration was supplied.
type NotConfiguredError struct {
	*ImporterError
	RunID string `json:"run_id"`
}

// NewNotConfiguredError creates a usage error for the given run.
func NewNotConfiguredError(runID string) *NotConfiguredError {
	base := New(CategoryUsage, CodeNotConfigured, fmt.Sprintf("run %s has no configuration", runID)).
		WithSuggestion("call Configure before Run").
		WithContext("run_id", runID)

	return &NotConfiguredError{ImporterError: base, RunID: runID}
}

// Unwrap exposes the embedded ImporterError so errors.As finds it.
func (e *NotConfiguredError) Unwrap() error {
	return e.ImporterError
}

// AlreadyConfiguredError creates a usage error for a second Configure call.
func AlreadyConfiguredError(runID string) *ImporterError {
	return New(CategoryUsage, CodeAlreadyConfigured, fmt.Sprintf("run %s is already configured", runID)).
		WithSuggestion("create a new run for a different configuration").
		WithContext("run_id", runID)
}
