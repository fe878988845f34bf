// Package extractor walks a parsed statement and yields raw entries.
//
// Records are numbered in document order across all statements, starting
// at 0. A record that cannot be extracted keeps its number: it produces an
// error diagnostic instead of a RawEntry, so later records never shift.
package extractor

import (
	"golang-camt-importer/internal/camt"
	"golang-camt-importer/internal/configuration"
	"golang-camt-importer/internal/diagnostics"
	"golang-camt-importer/internal/models"
	"golang-camt-importer/pkg/logger"
)

// booked is the status of a final, booked entry
const booked = "BOOK"

// Result holds the extracted entries and the extraction diagnostics.
type Result struct {
	Entries     []*models.RawEntry
	Count       int
	Diagnostics *diagnostics.Collector
}

// Extractor turns a message tree into raw entries
type Extractor struct {
	level  camt.Level
	logger logger.Logger
}

// New creates an extractor for the configured level
func New(cfg *configuration.Configuration) *Extractor {
	level := camt.DefaultLevel
	if cfg != nil && cfg.Level.IsValid() {
		level = cfg.Level
	}
	return &Extractor{
		level:  level,
		logger: logger.GetGlobalLogger().WithComponent("extractor"),
	}
}

// WithLogger sets the logger used for extraction summaries
func (e *Extractor) WithLogger(l logger.Logger) *Extractor {
	e.logger = l.WithComponent("extractor")
	return e
}

// Extract numbers every record of msg and extracts the ones that are usable.
// The message's own level wins over the configured one.
func (e *Extractor) Extract(msg *camt.Message) *Result {
	level := e.level
	if msg.Level.IsValid() {
		level = msg.Level
	}

	w := &walker{
		level:  level,
		result: &Result{Diagnostics: diagnostics.NewCollector(diagnostics.StageExtraction)},
	}
	for i := range msg.Statements {
		w.statement(&msg.Statements[i])
	}

	w.result.Count = w.next
	e.logger.WithFields(logger.Fields{
		"level":     level,
		"records":   w.result.Count,
		"extracted": len(w.result.Entries),
		"excluded":  w.result.Count - len(w.result.Entries),
	}).Debug("Extraction finished")

	return w.result
}

type walker struct {
	level  camt.Level
	next   int
	result *Result
}

func (w *walker) index() int {
	index := w.next
	w.next++
	return index
}

func (w *walker) statement(stmt *camt.Statement) {
	for i := range stmt.Entries {
		entry := &stmt.Entries[i]
		if w.level == camt.LevelB && len(entry.Details) > 0 {
			for j := range entry.Details {
				w.detail(stmt, entry, &entry.Details[j])
			}
			continue
		}
		w.entry(stmt, entry)
	}
}

// entry extracts one record for a whole Ntry.
func (w *walker) entry(stmt *camt.Statement, entry *camt.Entry) {
	index := w.index()
	diags := w.result.Diagnostics

	raw := newRawEntry(index, stmt, entry)
	raw.AdditionalInfo = entry.AdditionalInfo

	switch len(entry.Details) {
	case 0:
	case 1:
		applyDetails(raw, &entry.Details[0], entry.CreditDebit)
	default:
		for j := range entry.Details {
			raw.Remittance = append(raw.Remittance, entry.Details[j].Remittance...)
		}
		diags.Message(index, "batch booking with %d transactions kept as one record; use level B to split it", len(entry.Details))
	}

	if entry.Amount == nil {
		diags.Error(index, "entry has no amount")
		return
	}
	raw.Amount = entry.Amount.Value
	raw.Currency = entry.Amount.Currency

	w.finish(raw)
}

// detail extracts one record for one TxDtls of a batch booking.
func (w *walker) detail(stmt *camt.Statement, entry *camt.Entry, details *camt.TransactionDetails) {
	index := w.index()
	diags := w.result.Diagnostics

	raw := newRawEntry(index, stmt, entry)
	raw.AdditionalInfo = entry.AdditionalInfo
	if details.CreditDebit != "" {
		raw.CreditDebit = details.CreditDebit
	}
	applyDetails(raw, details, raw.CreditDebit)

	amount := details.Amount
	if amount == nil && len(entry.Details) == 1 {
		amount = entry.Amount
	}
	if amount == nil {
		diags.Error(index, "transaction detail has no amount")
		return
	}
	raw.Amount = amount.Value
	raw.Currency = amount.Currency
	if raw.Currency == "" && entry.Amount != nil {
		raw.Currency = entry.Amount.Currency
	}

	w.finish(raw)
}

// finish applies the checks shared by both levels and keeps the entry when usable.
func (w *walker) finish(raw *models.RawEntry) {
	diags := w.result.Diagnostics
	index := raw.Index

	if raw.BookingDate == "" && raw.ValueDate == "" {
		diags.Error(index, "entry has neither a booking date nor a value date")
		return
	}

	if raw.Currency == "" && raw.AccountCurrency != "" {
		raw.Currency = raw.AccountCurrency
		diags.Message(index, "currency %s inherited from the statement account", raw.Currency)
	}
	if raw.Status != "" && raw.Status != booked {
		diags.Message(index, "entry status is %s, not booked", raw.Status)
	}
	if raw.Reversal {
		diags.Message(index, "entry is a reversal of an earlier booking")
	}

	w.result.Entries = append(w.result.Entries, raw)
}

func newRawEntry(index int, stmt *camt.Statement, entry *camt.Entry) *models.RawEntry {
	return &models.RawEntry{
		Index:              index,
		StatementID:        stmt.ID,
		AccountIBAN:        stmt.Account.Identifier(),
		AccountCurrency:    stmt.Currency,
		CreditDebit:        entry.CreditDebit,
		BookingDate:        entry.BookingDate,
		ValueDate:          entry.ValueDate,
		Reference:          entry.Reference,
		AccountServicerRef: entry.AccountServicerRef,
		BankTxCode:         entry.BankTxCode,
		Status:             entry.Status,
		Reversal:           entry.Reversal,
	}
}

// applyDetails copies what one TxDtls says about the movement. indicator
// is the credit/debit indicator that governs the record's amount.
func applyDetails(raw *models.RawEntry, details *camt.TransactionDetails, indicator string) {
	raw.Counterparty = counterparty(details, indicator)
	raw.Remittance = append([]string(nil), details.Remittance...)
	raw.EndToEndID = details.EndToEndID
	if details.AdditionalInfo != "" {
		raw.AdditionalInfo = details.AdditionalInfo
	}
}

// counterparty is the debtor of a credit and the creditor of a debit.
func counterparty(details *camt.TransactionDetails, indicator string) *models.Party {
	var party *models.Party
	switch models.CreditDebit(indicator) {
	case models.Credit:
		party = details.Debtor
	case models.Debit:
		party = details.Creditor
	default:
		// indicator is unusable; the converter reports that
		party = details.Debtor
		if party == nil {
			party = details.Creditor
		}
	}

	if party == nil {
		return nil
	}
	copied := *party
	return &copied
}
