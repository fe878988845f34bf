package camt

import (
	"strings"

	"golang-camt-importer/internal/models"
)

// Message is the parsed form of one statement file. It is built once by
// Parse and must be treated as read-only afterwards.
type Message struct {
	Level      Level
	MessageID  string
	CreatedAt  string
	Statements []Statement
}

// Statement is one account reporting period.
type Statement struct {
	ID             string
	CreatedAt      string
	Account        Account
	Currency       string
	OpeningBalance *Balance
	ClosingBalance *Balance
	Entries        []Entry
}

// Account identifies the statement account
type Account struct {
	IBAN    string
	OtherID string
	Name    string
}

// Identifier returns the IBAN or, failing that, the proprietary id.
func (a Account) Identifier() string {
	if a.IBAN != "" {
		return a.IBAN
	}
	return a.OtherID
}

// Balance is a reported balance (opening or closing)
type Balance struct {
	Code        string
	Amount      Amount
	CreditDebit string
	Date        string
}

// Amount is an amount as text with its currency attribute
type Amount struct {
	Value    string
	Currency string
}

// Entry is one movement (Ntry) on the statement account.
// Amount is nil when the bank did not report one.
type Entry struct {
	Reference          string
	Amount             *Amount
	CreditDebit        string
	Reversal           bool
	Status             string
	BookingDate        string
	ValueDate          string
	AccountServicerRef string
	BankTxCode         string
	AdditionalInfo     string
	Details            []TransactionDetails
}

// TransactionDetails is one underlying transaction (TxDtls) of an entry.
type TransactionDetails struct {
	MessageID      string
	EndToEndID     string
	TransactionID  string
	InstructionID  string
	Amount         *Amount
	CreditDebit    string
	Debtor         *models.Party
	Creditor       *models.Party
	Remittance     []string
	AdditionalInfo string
}

// EntryCount returns the number of entries over all statements.
func (m *Message) EntryCount() int {
	count := 0
	for _, stmt := range m.Statements {
		count += len(stmt.Entries)
	}
	return count
}

// RecordCount returns how many records extraction will number at the message's level.
func (m *Message) RecordCount() int {
	if m.Level != LevelB {
		return m.EntryCount()
	}

	count := 0
	for _, stmt := range m.Statements {
		for _, entry := range stmt.Entries {
			if n := len(entry.Details); n > 0 {
				count += n
			} else {
				count++
			}
		}
	}
	return count
}

func buildMessage(doc *xmlDocument, level Level) *Message {
	msg := &Message{
		Level:      level,
		MessageID:  strings.TrimSpace(doc.Report.Header.MessageID),
		CreatedAt:  strings.TrimSpace(doc.Report.Header.CreatedAt),
		Statements: make([]Statement, 0, len(doc.Report.Statements)),
	}

	for _, s := range doc.Report.Statements {
		msg.Statements = append(msg.Statements, buildStatement(s))
	}
	return msg
}

func buildStatement(s xmlStatement) Statement {
	stmt := Statement{
		ID:        strings.TrimSpace(s.ID),
		CreatedAt: strings.TrimSpace(s.CreatedAt),
		Account: Account{
			IBAN:    models.NormalizeIdentifier(s.Account.ID.IBAN),
			OtherID: strings.TrimSpace(s.Account.ID.Other.ID),
			Name:    strings.TrimSpace(s.Account.Name),
		},
		Currency: strings.TrimSpace(s.Account.Currency),
		Entries:  make([]Entry, 0, len(s.Entries)),
	}

	balances := make(map[string]*Balance, len(s.Balances))
	for _, b := range s.Balances {
		code := b.code()
		if _, seen := balances[code]; seen {
			continue
		}
		balances[code] = &Balance{
			Code:        code,
			Amount:      Amount{Value: strings.TrimSpace(b.Amount.Value), Currency: strings.TrimSpace(b.Amount.Currency)},
			CreditDebit: strings.TrimSpace(b.CreditDebit),
			Date:        b.Date.value(),
		}
	}
	// PRCD (previous closing) stands in for a missing opening balance
	stmt.OpeningBalance = balances["OPBD"]
	if stmt.OpeningBalance == nil {
		stmt.OpeningBalance = balances["PRCD"]
	}
	stmt.ClosingBalance = balances["CLBD"]

	for _, e := range s.Entries {
		stmt.Entries = append(stmt.Entries, buildEntry(e))
	}
	return stmt
}

func buildEntry(e xmlEntry) Entry {
	entry := Entry{
		Reference:          strings.TrimSpace(e.Reference),
		Amount:             buildAmount(e.Amount),
		CreditDebit:        strings.TrimSpace(e.CreditDebit),
		Reversal:           isTrue(e.Reversal),
		Status:             e.Status.value(),
		BookingDate:        e.BookingDate.value(),
		ValueDate:          e.ValueDate.value(),
		AccountServicerRef: strings.TrimSpace(e.AccountServicerRef),
		BankTxCode:         e.BankTxCode.code(),
		AdditionalInfo:     strings.TrimSpace(e.AdditionalInfo),
	}

	for _, group := range e.Details {
		for _, tx := range group.Transactions {
			entry.Details = append(entry.Details, buildDetails(tx))
		}
	}
	return entry
}

func buildDetails(t xmlTxDetails) TransactionDetails {
	details := TransactionDetails{
		MessageID:      strings.TrimSpace(t.Refs.MessageID),
		EndToEndID:     strings.TrimSpace(t.Refs.EndToEndID),
		TransactionID:  strings.TrimSpace(t.Refs.TransactionID),
		InstructionID:  strings.TrimSpace(t.Refs.InstructionID),
		Amount:         buildAmount(t.amount()),
		CreditDebit:    strings.TrimSpace(t.CreditDebit),
		Debtor:         buildParty(t.Parties.Debtor, t.Parties.DebtorAccount, t.Agents.DebtorAgent),
		Creditor:       buildParty(t.Parties.Creditor, t.Parties.CreditorAccount, t.Agents.CreditorAgent),
		AdditionalInfo: strings.TrimSpace(t.AdditionalInfo),
	}

	for _, line := range t.Remittance.Unstructured {
		if line = strings.TrimSpace(line); line != "" {
			details.Remittance = append(details.Remittance, line)
		}
	}
	for _, s := range t.Remittance.Structured {
		if ref := strings.TrimSpace(s.CreditorReference.Ref); ref != "" {
			details.Remittance = append(details.Remittance, ref)
		}
		for _, line := range s.AdditionalInfo {
			if line = strings.TrimSpace(line); line != "" {
				details.Remittance = append(details.Remittance, line)
			}
		}
	}
	return details
}

func buildAmount(a *xmlAmount) *Amount {
	if a == nil {
		return nil
	}
	value := strings.TrimSpace(a.Value)
	if value == "" {
		return nil
	}
	return &Amount{Value: value, Currency: strings.TrimSpace(a.Currency)}
}

func buildParty(p xmlParty, account xmlCashAccount, agent xmlAgent) *models.Party {
	party := &models.Party{
		Name:    p.name(),
		IBAN:    models.NormalizeIdentifier(account.ID.IBAN),
		OtherID: strings.TrimSpace(account.ID.Other.ID),
		BIC:     agent.bic(),
	}
	if *party == (models.Party{}) {
		return nil
	}
	return party
}

func isTrue(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1":
		return true
	default:
		return false
	}
}
