// Package configuration holds the run configuration of a statement conversion.
//
// A Configuration is usually read from a YAML mapping profile:
//
//	default_account: "Checking"
//	level: B
//	locale:
//	  language: de-CH
//	  time_zone: Europe/Zurich
//	field_mapping:
//	  description: [remittance, counterparty_name]
//	  external_id: [end_to_end_id]
//	account_mapping:
//	  CH9300762011623852957: "Savings"
//	currency_aliases:
//	  RMB: CNY
//
// Settings left out of the profile keep the values of Default.
package configuration

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"golang.org/x/text/currency"

	"golang-camt-importer/internal/camt"
	"golang-camt-importer/internal/models"
	"golang-camt-importer/pkg/errors"
)

// SemanticField is a field of a pseudo-transaction filled from raw fields
type SemanticField string

const (
	FieldDescription SemanticField = "description"
	FieldExternalID  SemanticField = "external_id"
	FieldNotes       SemanticField = "notes"
)

// IsValid checks if the field is a known semantic field
func (f SemanticField) IsValid() bool {
	return f == FieldDescription || f == FieldExternalID || f == FieldNotes
}

// FieldMapping maps a semantic field to the raw fields it is taken from, in order.
type FieldMapping map[SemanticField][]models.RawField

// Configuration is supplied once per run and read-only afterwards.
type Configuration struct {
	DefaultAccount       string            `yaml:"default_account" json:"default_account"`
	Level                camt.Level        `yaml:"level" json:"level"`
	Locale               Locale            `yaml:"locale" json:"locale"`
	FieldMapping         FieldMapping      `yaml:"field_mapping" json:"field_mapping"`
	AccountMapping       map[string]string `yaml:"account_mapping" json:"account_mapping,omitempty"`
	CurrencyAliases      map[string]string `yaml:"currency_aliases" json:"currency_aliases,omitempty"`
	RoundExcessPrecision bool              `yaml:"round_excess_precision" json:"round_excess_precision"`
	ForceCLI             bool              `yaml:"force_cli" json:"force_cli"`
}

// DefaultFieldMapping returns the mapping used when a profile names none
func DefaultFieldMapping() FieldMapping {
	return FieldMapping{
		FieldDescription: {models.FieldRemittance, models.FieldAdditionalInfo},
		FieldExternalID:  {models.FieldEndToEndID, models.FieldAccountServicerRef, models.FieldReference},
		FieldNotes:       {models.FieldBankTxCode},
	}
}

// Default returns a configuration that converts any statement into a single default account.
func Default() *Configuration {
	return &Configuration{
		DefaultAccount:  "Unassigned",
		Level:           camt.DefaultLevel,
		Locale:          DefaultLocale(),
		FieldMapping:    DefaultFieldMapping(),
		AccountMapping:  map[string]string{},
		CurrencyAliases: map[string]string{},
	}
}

// Normalize fills derived values in place: locale defaults, upper-case
// level, IBAN keys without spaces and upper-case currency aliases.
func (c *Configuration) Normalize() error {
	level, err := camt.ParseLevel(string(c.Level))
	if err != nil {
		return err
	}
	c.Level = level

	if err := c.Locale.applyDefaults(); err != nil {
		return err
	}

	if c.FieldMapping == nil {
		c.FieldMapping = DefaultFieldMapping()
	}

	accounts := make(map[string]string, len(c.AccountMapping))
	for iban, account := range c.AccountMapping {
		accounts[models.NormalizeIdentifier(iban)] = strings.TrimSpace(account)
	}
	c.AccountMapping = accounts

	aliases := make(map[string]string, len(c.CurrencyAliases))
	for from, to := range c.CurrencyAliases {
		aliases[strings.ToUpper(strings.TrimSpace(from))] = strings.ToUpper(strings.TrimSpace(to))
	}
	c.CurrencyAliases = aliases

	c.DefaultAccount = strings.TrimSpace(c.DefaultAccount)
	return nil
}

// Validate checks if the configuration is valid
func (c *Configuration) Validate() error {
	if c.DefaultAccount == "" {
		return errors.ConfigurationError(errors.CodeMissingConfig, "default_account", "", nil)
	}

	if !c.Level.IsValid() {
		return errors.ConfigurationError(errors.CodeUnsupportedLevel, "level", c.Level, nil)
	}

	if err := c.Locale.Validate(); err != nil {
		return err
	}

	for field, sources := range c.FieldMapping {
		if !field.IsValid() {
			return errors.ConfigurationError(errors.CodeInvalidConfig, "field_mapping", field, nil).
				WithSuggestion("use description, external_id or notes")
		}
		for _, source := range sources {
			if !source.IsValid() {
				return errors.ConfigurationError(errors.CodeInvalidConfig, fmt.Sprintf("field_mapping.%s", field), source, nil).
					WithSuggestion(fmt.Sprintf("known raw fields: %s", joinFields(models.RawFields)))
			}
		}
	}

	for iban, account := range c.AccountMapping {
		if iban == "" || account == "" {
			return errors.ConfigurationError(errors.CodeInvalidConfig, "account_mapping", fmt.Sprintf("%s: %s", iban, account), nil)
		}
	}

	for from, to := range c.CurrencyAliases {
		if _, err := currency.ParseISO(to); err != nil {
			return errors.ConfigurationError(errors.CodeInvalidConfig, fmt.Sprintf("currency_aliases.%s", from), to, err).
				WithSuggestion("aliases must point at a known ISO 4217 currency")
		}
	}

	return nil
}

// Clone returns a deep copy so the caller's value can change without affecting a run.
func (c *Configuration) Clone() *Configuration {
	clone := *c
	clone.Locale.DateLayouts = append([]string(nil), c.Locale.DateLayouts...)

	clone.FieldMapping = make(FieldMapping, len(c.FieldMapping))
	for field, sources := range c.FieldMapping {
		clone.FieldMapping[field] = append([]models.RawField(nil), sources...)
	}

	clone.AccountMapping = make(map[string]string, len(c.AccountMapping))
	for k, v := range c.AccountMapping {
		clone.AccountMapping[k] = v
	}

	clone.CurrencyAliases = make(map[string]string, len(c.CurrencyAliases))
	for k, v := range c.CurrencyAliases {
		clone.CurrencyAliases[k] = v
	}
	return &clone
}

// AccountFor returns the account mapped to an IBAN or account id.
func (c *Configuration) AccountFor(identifier string) (string, bool) {
	if identifier == "" {
		return "", false
	}
	account, ok := c.AccountMapping[models.NormalizeIdentifier(identifier)]
	return account, ok
}

// Currency resolves a bank currency code through the aliases to a known ISO 4217 unit.
func (c *Configuration) Currency(code string) (currency.Unit, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if alias, ok := c.CurrencyAliases[code]; ok {
		code = alias
	}
	return currency.ParseISO(code)
}

// Location returns the time zone dates are interpreted in
func (c *Configuration) Location() (*time.Location, error) {
	return c.Locale.Location()
}

func joinFields(fields []models.RawField) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}
