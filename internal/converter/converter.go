// Package converter turns raw entries into pseudo-transactions.
//
// Each entry is converted independently. Problems are reported against the
// entry's index: errors drop the entry, warnings and messages keep it.
package converter

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"golang-camt-importer/internal/configuration"
	"golang-camt-importer/internal/diagnostics"
	"golang-camt-importer/internal/models"
	"golang-camt-importer/pkg/errors"
	"golang-camt-importer/pkg/logger"
)

// Result holds the converted transactions and the conversion diagnostics.
type Result struct {
	Transactions []*models.PseudoTransaction
	Diagnostics  *diagnostics.Collector
}

// Converter applies a run configuration to raw entries
type Converter struct {
	cfg      *configuration.Configuration
	location *time.Location
	logger   logger.Logger
}

// New creates a converter. A nil configuration means Default. A configuration
// that was not normalized yet is normalized on a copy.
func New(cfg *configuration.Configuration) (*Converter, error) {
	if cfg == nil {
		cfg = configuration.Default()
	}
	if cfg.Locale.DecimalSeparator == "" {
		cfg = cfg.Clone()
		if err := cfg.Normalize(); err != nil {
			return nil, err
		}
	}

	location, err := cfg.Location()
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "locale.time_zone", cfg.Locale.TimeZone, err)
	}

	return &Converter{
		cfg:      cfg,
		location: location,
		logger:   logger.GetGlobalLogger().WithComponent("converter"),
	}, nil
}

// WithLogger sets the logger used for conversion summaries
func (c *Converter) WithLogger(l logger.Logger) *Converter {
	c.logger = l.WithComponent("converter")
	return c
}

// Convert converts every entry. The output keeps the input order and each
// transaction carries the index of the entry it came from.
func (c *Converter) Convert(entries []*models.RawEntry) *Result {
	result := &Result{
		Transactions: make([]*models.PseudoTransaction, 0, len(entries)),
		Diagnostics:  diagnostics.NewCollector(diagnostics.StageConversion),
	}

	for _, entry := range entries {
		if entry == nil {
			continue
		}
		if tx := c.convert(entry, result.Diagnostics); tx != nil {
			result.Transactions = append(result.Transactions, tx)
		}
	}

	c.logger.WithFields(logger.Fields{
		"entries":      len(entries),
		"transactions": len(result.Transactions),
		"summary":      result.Diagnostics.Summary().String(),
	}).Debug("Conversion finished")

	return result
}

// convert reports every problem of one entry before deciding whether it is kept.
func (c *Converter) convert(entry *models.RawEntry, diags *diagnostics.Collector) *models.PseudoTransaction {
	index := entry.Index
	tx := &models.PseudoTransaction{
		Index:       index,
		StatementID: entry.StatementID,
	}

	amount, amountOK := c.amount(entry, diags)
	tx.Amount = amount

	scale := int32(2)
	unit, err := c.cfg.Currency(entry.Currency)
	if err != nil {
		diags.Error(index, "currency %q is not a known ISO 4217 code and has no alias", entry.Currency)
	} else {
		tx.Currency = unit.String()
		scale = scaleOf(unit)
		if amountOK {
			tx.Amount = c.precision(index, amount, tx.Currency, scale, diags)
		}
	}

	tx.BookingDate, tx.ValueDate = c.dates(entry, diags)

	tx.AssetAccount = c.assetAccount(entry, diags)
	tx.OpposingAccount = c.opposingAccount(entry, diags)
	if entry.Counterparty != nil {
		tx.Counterparty = strings.TrimSpace(entry.Counterparty.Name)
	}

	tx.Description = c.joined(entry, configuration.FieldDescription)
	tx.ExternalID = c.first(entry, configuration.FieldExternalID)
	tx.Notes = c.first(entry, configuration.FieldNotes)

	if diags.HasErrors(index) {
		return nil
	}

	if tx.Description == "" {
		tx.Description = generatedDescription(tx, scale)
		diags.Warning(index, "no description in the mapped fields; generated %q", tx.Description)
	}

	if err := tx.Validate(); err != nil {
		diags.Error(index, "converted transaction is invalid: %v", err)
		return nil
	}
	return tx
}

func (c *Converter) amount(entry *models.RawEntry, diags *diagnostics.Collector) (decimal.Decimal, bool) {
	value, err := parseAmount(entry.Amount, c.cfg.Locale)
	if err != nil {
		diags.Error(entry.Index, "%v", err)
		return decimal.Zero, false
	}

	value, err = signed(value, entry.CreditDebit)
	if err != nil {
		diags.Error(entry.Index, "%v", err)
		return decimal.Zero, false
	}

	if value.IsZero() {
		diags.Warning(entry.Index, "amount is zero")
	}
	return value, true
}

func (c *Converter) precision(index int, amount decimal.Decimal, code string, scale int32, diags *diagnostics.Collector) decimal.Decimal {
	if !exceedsScale(amount, scale) {
		return amount
	}
	if !c.cfg.RoundExcessPrecision {
		diags.Error(index, "amount %s has more decimal places than %s allows (%d)", amount.String(), code, scale)
		return amount
	}

	rounded := amount.RoundBank(scale)
	diags.Warning(index, "amount %s rounded to %s for %s", amount.String(), rounded.StringFixed(scale), code)
	return rounded
}

// dates parses both dates. A missing date takes the value of the other one.
func (c *Converter) dates(entry *models.RawEntry, diags *diagnostics.Collector) (time.Time, time.Time) {
	index := entry.Index

	booking, bookingOK := c.date(index, "booking", entry.BookingDate, diags)
	value, valueOK := c.date(index, "value", entry.ValueDate, diags)

	switch {
	case entry.BookingDate == "" && entry.ValueDate == "":
		diags.Error(index, "entry has neither a booking date nor a value date")
	case entry.BookingDate == "" && valueOK:
		booking = value
		diags.Message(index, "booking date missing; used the value date %s", value.Format(models.DateLayout))
	case entry.ValueDate == "" && bookingOK:
		value = booking
		diags.Message(index, "value date missing; used the booking date %s", booking.Format(models.DateLayout))
	}
	return booking, value
}

func (c *Converter) date(index int, name, raw string, diags *diagnostics.Collector) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	for _, layout := range c.cfg.Locale.DateLayouts {
		t, err := time.ParseInLocation(layout, raw, c.location)
		if err != nil {
			continue
		}
		t = t.In(c.location)
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.location), true
	}

	diags.Error(index, "%s date %q does not match any configured date layout", name, raw)
	return time.Time{}, false
}

func (c *Converter) assetAccount(entry *models.RawEntry, diags *diagnostics.Collector) models.AccountRef {
	if account, ok := c.cfg.AccountFor(entry.AccountIBAN); ok {
		return models.AccountRef{Identifier: account, Kind: models.AccountMapped}
	}
	diags.Message(entry.Index, "used default account for entry; statement account %q is not mapped", entry.AccountIBAN)
	return models.AccountRef{Identifier: c.cfg.DefaultAccount, Kind: models.AccountDefault}
}

// opposingAccount prefers a mapped counterparty account, then the reported
// account id. A counterparty known only by name can still be mapped by name.
func (c *Converter) opposingAccount(entry *models.RawEntry, diags *diagnostics.Collector) models.AccountRef {
	party := entry.Counterparty

	if id := party.AccountID(); id != "" {
		if account, ok := c.cfg.AccountFor(id); ok {
			return models.AccountRef{Identifier: account, Kind: models.AccountMapped}
		}
		return models.AccountRef{Identifier: models.NormalizeIdentifier(id), Kind: models.AccountIBAN}
	}

	if party != nil {
		if account, ok := c.cfg.AccountFor(party.Name); ok {
			return models.AccountRef{Identifier: account, Kind: models.AccountMapped}
		}
	}

	diags.Warning(entry.Index, "counterparty account missing; used default account %s", c.cfg.DefaultAccount)
	return models.AccountRef{Identifier: c.cfg.DefaultAccount, Kind: models.AccountDefault}
}

// first returns the first non-empty raw field mapped to field
func (c *Converter) first(entry *models.RawEntry, field configuration.SemanticField) string {
	for _, source := range c.cfg.FieldMapping[field] {
		if value := entry.Field(source); value != "" {
			return value
		}
	}
	return ""
}

// joined concatenates all non-empty raw fields mapped to field
func (c *Converter) joined(entry *models.RawEntry, field configuration.SemanticField) string {
	var parts []string
	for _, source := range c.cfg.FieldMapping[field] {
		if value := entry.Field(source); value != "" {
			parts = append(parts, value)
		}
	}
	return strings.Join(parts, " ")
}

func generatedDescription(tx *models.PseudoTransaction, scale int32) string {
	direction := "Credit"
	if tx.IsDebit() {
		direction = "Debit"
	}
	text := fmt.Sprintf("%s of %s %s", direction, tx.Amount.Abs().StringFixed(scale), tx.Currency)
	if tx.Counterparty != "" {
		preposition := "from"
		if tx.IsDebit() {
			preposition = "to"
		}
		text += fmt.Sprintf(" %s %s", preposition, tx.Counterparty)
	}
	return text
}
