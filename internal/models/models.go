package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the layout used when dates leave the pipeline.
const DateLayout = "2006-01-02"

// CreditDebit is the bank's credit/debit indicator of an entry
type CreditDebit string

const (
	// Credit marks money coming into the statement account
	Credit CreditDebit = "CRDT"
	// Debit marks money leaving the statement account
	Debit CreditDebit = "DBIT"
)

// String returns the string representation of CreditDebit
func (c CreditDebit) String() string {
	return string(c)
}

// IsValid checks if the indicator is one of the two known values
func (c CreditDebit) IsValid() bool {
	return c == Credit || c == Debit
}

// ParseCreditDebit parses an indicator, accepting surrounding whitespace and any case.
func ParseCreditDebit(s string) (CreditDebit, error) {
	indicator := CreditDebit(strings.ToUpper(strings.TrimSpace(s)))
	if !indicator.IsValid() {
		return "", fmt.Errorf("invalid credit/debit indicator: %q", s)
	}
	return indicator, nil
}

// Party is the counterparty of an entry as reported by the bank
type Party struct {
	Name    string `json:"name,omitempty"`
	IBAN    string `json:"iban,omitempty"`
	OtherID string `json:"other_id,omitempty"`
	BIC     string `json:"bic,omitempty"`
}

// AccountID returns the IBAN, or the proprietary account id when there is no IBAN.
func (p *Party) AccountID() string {
	if p == nil {
		return ""
	}
	if p.IBAN != "" {
		return p.IBAN
	}
	return p.OtherID
}

// HasAccount reports whether the bank identified the counterparty's account.
func (p *Party) HasAccount() bool {
	return p.AccountID() != ""
}

// RawField names a raw entry field that mapping rules can refer to
type RawField string

const (
	FieldRemittance         RawField = "remittance"
	FieldAdditionalInfo     RawField = "additional_info"
	FieldReference          RawField = "reference"
	FieldEndToEndID         RawField = "end_to_end_id"
	FieldAccountServicerRef RawField = "account_servicer_ref"
	FieldBankTxCode         RawField = "bank_tx_code"
	FieldCounterpartyName   RawField = "counterparty_name"
)

// RawFields lists every mappable raw field
var RawFields = []RawField{
	FieldRemittance,
	FieldAdditionalInfo,
	FieldReference,
	FieldEndToEndID,
	FieldAccountServicerRef,
	FieldBankTxCode,
	FieldCounterpartyName,
}

// IsValid checks if the field is a known raw field
func (f RawField) IsValid() bool {
	for _, known := range RawFields {
		if f == known {
			return true
		}
	}
	return false
}

// RawEntry is one bank-reported movement as extracted from a statement.
// Values are kept as the text the bank sent; nothing is interpreted yet.
type RawEntry struct {
	Index              int      `json:"index"`
	StatementID        string   `json:"statement_id,omitempty"`
	AccountIBAN        string   `json:"account_iban,omitempty"`
	AccountCurrency    string   `json:"account_currency,omitempty"`
	Amount             string   `json:"amount"`
	Currency           string   `json:"currency"`
	CreditDebit        string   `json:"credit_debit"`
	BookingDate        string   `json:"booking_date,omitempty"`
	ValueDate          string   `json:"value_date,omitempty"`
	Counterparty       *Party   `json:"counterparty,omitempty"`
	Remittance         []string `json:"remittance,omitempty"`
	Reference          string   `json:"reference,omitempty"`
	EndToEndID         string   `json:"end_to_end_id,omitempty"`
	AccountServicerRef string   `json:"account_servicer_ref,omitempty"`
	BankTxCode         string   `json:"bank_tx_code,omitempty"`
	AdditionalInfo     string   `json:"additional_info,omitempty"`
	Status             string   `json:"status,omitempty"`
	Reversal           bool     `json:"reversal,omitempty"`
}

// Field returns the text of a raw field, or "" when the entry does not carry it.
func (e *RawEntry) Field(field RawField) string {
	switch field {
	case FieldRemittance:
		return strings.Join(nonEmpty(e.Remittance), " ")
	case FieldAdditionalInfo:
		return strings.TrimSpace(e.AdditionalInfo)
	case FieldReference:
		return strings.TrimSpace(e.Reference)
	case FieldEndToEndID:
		// NOTPROVIDED is the ISO 20022 placeholder for a missing id
		if id := strings.TrimSpace(e.EndToEndID); id != "NOTPROVIDED" {
			return id
		}
		return ""
	case FieldAccountServicerRef:
		return strings.TrimSpace(e.AccountServicerRef)
	case FieldBankTxCode:
		return strings.TrimSpace(e.BankTxCode)
	case FieldCounterpartyName:
		if e.Counterparty == nil {
			return ""
		}
		return strings.TrimSpace(e.Counterparty.Name)
	default:
		return ""
	}
}

// String returns a string representation of the RawEntry
func (e *RawEntry) String() string {
	return fmt.Sprintf("RawEntry{Index: %d, Amount: %s %s, Indicator: %s, Booked: %s}",
		e.Index, e.Amount, e.Currency, e.CreditDebit, e.BookingDate)
}

// AccountKind says how an account reference was resolved
type AccountKind string

const (
	AccountMapped  AccountKind = "mapped"
	AccountIBAN    AccountKind = "iban"
	AccountDefault AccountKind = "default"
)

// AccountRef points at an account for the downstream ledger mapping
type AccountRef struct {
	Identifier string      `json:"identifier"`
	Kind       AccountKind `json:"kind"`
}

// String returns the string representation of AccountRef
func (a AccountRef) String() string {
	return fmt.Sprintf("%s (%s)", a.Identifier, a.Kind)
}

// PseudoTransaction is a converted entry pending ledger-specific mapping.
type PseudoTransaction struct {
	Index           int             `json:"index"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	BookingDate     time.Time       `json:"booking_date"`
	ValueDate       time.Time       `json:"value_date"`
	Description     string          `json:"description"`
	ExternalID      string          `json:"external_id,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	AssetAccount    AccountRef      `json:"asset_account"`
	OpposingAccount AccountRef      `json:"opposing_account"`
	Counterparty    string          `json:"counterparty,omitempty"`
	StatementID     string          `json:"statement_id,omitempty"`
}

// Validate performs basic validation on the PseudoTransaction
func (p *PseudoTransaction) Validate() error {
	if p.Index < 0 {
		return fmt.Errorf("source index cannot be negative: %d", p.Index)
	}

	if len(p.Currency) != 3 {
		return fmt.Errorf("invalid currency: %q", p.Currency)
	}

	if p.BookingDate.IsZero() || p.ValueDate.IsZero() {
		return fmt.Errorf("booking and value date are required")
	}

	if strings.TrimSpace(p.AssetAccount.Identifier) == "" {
		return fmt.Errorf("asset account cannot be empty")
	}

	if strings.TrimSpace(p.OpposingAccount.Identifier) == "" {
		return fmt.Errorf("opposing account cannot be empty")
	}

	return nil
}

// IsDebit returns true if money left the asset account
func (p *PseudoTransaction) IsDebit() bool {
	return p.Amount.IsNegative()
}

// String returns a string representation of the PseudoTransaction
func (p *PseudoTransaction) String() string {
	return fmt.Sprintf("PseudoTransaction{Index: %d, Amount: %s %s, Booked: %s, Description: %q}",
		p.Index, p.Amount.String(), p.Currency, p.BookingDate.Format(DateLayout), p.Description)
}

// MarshalJSON implements custom JSON marshaling for PseudoTransaction
func (p *PseudoTransaction) MarshalJSON() ([]byte, error) {
	type Alias PseudoTransaction
	return json.Marshal(&struct {
		Amount      string `json:"amount"`
		BookingDate string `json:"booking_date"`
		ValueDate   string `json:"value_date"`
		*Alias
	}{
		Amount:      p.Amount.String(),
		BookingDate: p.BookingDate.Format(DateLayout),
		ValueDate:   p.ValueDate.Format(DateLayout),
		Alias:       (*Alias)(p),
	})
}

// Equals compares two PseudoTransaction instances for equality
func (p *PseudoTransaction) Equals(other *PseudoTransaction) bool {
	if other == nil {
		return false
	}

	return p.Index == other.Index &&
		p.Amount.Equal(other.Amount) &&
		p.Currency == other.Currency &&
		p.BookingDate.Equal(other.BookingDate) &&
		p.ValueDate.Equal(other.ValueDate) &&
		p.Description == other.Description &&
		p.ExternalID == other.ExternalID &&
		p.Notes == other.Notes &&
		p.AssetAccount == other.AssetAccount &&
		p.OpposingAccount == other.OpposingAccount &&
		p.Counterparty == other.Counterparty &&
		p.StatementID == other.StatementID
}

// NormalizeIdentifier normalizes an account identifier such as an IBAN for lookups
func NormalizeIdentifier(id string) string {
	return strings.ToUpper(strings.Join(strings.Fields(id), ""))
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
