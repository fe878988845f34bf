// Package conversion drives one statement conversion run.
//
// A RoutineManager owns a run: it resolves the run identifier when it is
// created, takes the run configuration once, and then runs the pipeline
//
//	parse -> extract -> convert -> process -> merge diagnostics
//
// Only a statement that cannot be parsed aborts a run. Every later problem
// is a diagnostic at the index of the record it concerns.
//
// Example usage:
//
//	manager, err := conversion.NewRoutineManager("", conversion.WithSource(content.NewFile("statement.xml")))
//	if err != nil {
//		return err
//	}
//	if err := manager.Configure(cfg); err != nil {
//		return err
//	}
//	transactions, err := manager.Run(ctx)
package conversion

import (
	"context"
	"sync"

	"golang-camt-importer/internal/camt"
	"golang-camt-importer/internal/configuration"
	"golang-camt-importer/internal/content"
	"golang-camt-importer/internal/converter"
	"golang-camt-importer/internal/diagnostics"
	"golang-camt-importer/internal/extractor"
	"golang-camt-importer/internal/identifier"
	"golang-camt-importer/internal/models"
	"golang-camt-importer/pkg/errors"
	"golang-camt-importer/pkg/logger"
)

// Option configures a RoutineManager
type Option func(*RoutineManager)

// WithIdentifierService replaces the UUID based run identifier service
func WithIdentifierService(svc identifier.Service) Option {
	return func(m *RoutineManager) {
		if svc != nil {
			m.identifiers = svc
		}
	}
}

// WithSource sets where the statement is read from when no CLI content is forced
func WithSource(src content.Source) Option {
	return func(m *RoutineManager) {
		m.source = src
	}
}

// WithLogger sets the base logger of the run
func WithLogger(l logger.Logger) Option {
	return func(m *RoutineManager) {
		if l != nil {
			m.baseLogger = l
		}
	}
}

// RoutineManager runs the conversion of one statement
type RoutineManager struct {
	runID       string
	identifiers identifier.Service
	source      content.Source
	content     []byte
	forceCLI    bool
	cfg         *configuration.Configuration
	baseLogger  logger.Logger
	logger      logger.Logger

	mu     sync.RWMutex
	result *Result
}

// NewRoutineManager creates a run. An empty token generates a fresh run
// identifier; anything else is validated and adopted verbatim.
func NewRoutineManager(token string, opts ...Option) (*RoutineManager, error) {
	m := &RoutineManager{
		identifiers: identifier.NewUUIDService(),
		baseLogger:  logger.GetGlobalLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}

	runID, err := identifier.Resolve(m.identifiers, token)
	if err != nil {
		return nil, err
	}
	m.runID = runID
	m.logger = m.baseLogger.WithComponent("routine_manager").WithRun(runID)

	m.logger.Debug("Run created")
	return m, nil
}

// RunID returns the identifier of the run
func (m *RoutineManager) RunID() string {
	return m.runID
}

// Configure supplies the run configuration. It can be called once per run;
// the manager keeps its own copy.
func (m *RoutineManager) Configure(cfg *configuration.Configuration) error {
	if cfg == nil {
		return errors.ValidationError(errors.CodeMissingField, "configuration", nil, nil)
	}
	if m.cfg != nil {
		return errors.AlreadyConfiguredError(m.runID)
	}

	clone := cfg.Clone()
	if err := clone.Normalize(); err != nil {
		return err
	}
	if err := clone.Validate(); err != nil {
		return err
	}

	m.cfg = clone
	if clone.ForceCLI {
		m.forceCLI = true
	}

	m.logger.WithFields(logger.Fields{
		"level":           clone.Level,
		"default_account": clone.DefaultAccount,
		"accounts":        len(clone.AccountMapping),
	}).Debug("Run configured")
	return nil
}

// SetContent sets statement content passed on the command line. Non-empty
// content is read instead of the injected source.
func (m *RoutineManager) SetContent(data []byte) {
	m.content = data
}

// SetForceCLI makes the run read the CLI content even when it is empty
func (m *RoutineManager) SetForceCLI(force bool) {
	m.forceCLI = force
}

// Run converts the statement and returns the pseudo-transactions in record order.
// The merged diagnostics are available through the accessors afterwards.
func (m *RoutineManager) Run(ctx context.Context) ([]*models.PseudoTransaction, error) {
	if m.cfg == nil {
		return nil, errors.NewNotConfiguredError(m.runID)
	}

	m.mu.Lock()
	m.result = nil
	m.mu.Unlock()

	op := logger.NewOperationLogger("convert_statement", m.logger)

	source := m.contentSource()
	data, err := source.Content(ctx)
	if err != nil {
		op.Error(err, "Failed to read statement content")
		return nil, err
	}
	op.Stage("read", logger.Fields{"source": source.Name(), "bytes": len(data)})

	msg, err := camt.Parse(data, m.cfg.Level)
	if err != nil {
		op.Error(err, "Failed to parse statement")
		return nil, err
	}
	op.Stage("parse", logger.Fields{"statements": len(msg.Statements), "message_id": msg.MessageID})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	extracted := extractor.New(m.cfg).WithLogger(m.logger).Extract(msg)
	op.Stage("extract", logger.Fields{"records": extracted.Count, "entries": len(extracted.Entries)})

	conv, err := converter.New(m.cfg)
	if err != nil {
		return nil, errors.ConversionError(errors.CodeStageFailed, "convert", err)
	}
	converted := conv.WithLogger(m.logger).Convert(extracted.Entries)
	op.Stage("convert", logger.Fields{"transactions": len(converted.Transactions)})

	processed := process(converted.Transactions)
	op.Stage("process", logger.Fields{"transactions": len(processed.Transactions)})

	aggregator := diagnostics.NewAggregator()
	for _, c := range []*diagnostics.Collector{
		diagnostics.NewCollector(diagnostics.StageParser),
		extracted.Diagnostics,
		converted.Diagnostics,
		processed.Diagnostics,
	} {
		if err := aggregator.Register(c); err != nil {
			return nil, errors.InternalError(errors.CodeUnexpectedError, "diagnostics", err)
		}
	}
	merged := aggregator.Merge(extracted.Count)

	result := &Result{
		RunID:        m.runID,
		Source:       source.Name(),
		Level:        msg.Level,
		MessageID:    msg.MessageID,
		Statements:   len(msg.Statements),
		Records:      extracted.Count,
		Transactions: processed.Transactions,
		Diagnostics:  merged,
	}

	m.mu.Lock()
	m.result = result
	m.mu.Unlock()

	summary := merged.Summary()
	op.Success("Statement converted", logger.Fields{
		"records":      result.Records,
		"transactions": len(result.Transactions),
		"messages":     summary.Messages,
		"warnings":     summary.Warnings,
		"errors":       summary.Errors,
	})
	return result.Transactions, nil
}

func (m *RoutineManager) contentSource() content.Source {
	if m.forceCLI || m.source == nil || len(m.content) > 0 {
		return content.Static(m.content)
	}
	return m.source
}

func (m *RoutineManager) merged() *diagnostics.Merged {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.result == nil {
		return diagnostics.Empty()
	}
	return m.result.Diagnostics
}

// AllMessages returns the merged messages by record index
func (m *RoutineManager) AllMessages() [][]string {
	return m.merged().Messages
}

// AllWarnings returns the merged warnings by record index
func (m *RoutineManager) AllWarnings() [][]string {
	return m.merged().Warnings
}

// AllErrors returns the merged errors by record index
func (m *RoutineManager) AllErrors() [][]string {
	return m.merged().Errors
}

// Result returns the outcome of the last successful Run, or nil.
func (m *RoutineManager) Result() *Result {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.result
}
