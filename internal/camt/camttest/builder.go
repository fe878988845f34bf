// Package camttest builds camt.053 documents for tests.
package camttest

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

// Namespace of the generated documents
const Namespace = "urn:iso:std:iso:20022:tech:xsd:camt.053.001.02"

// Statement describes one <Stmt>
type Statement struct {
	ID       string
	IBAN     string
	Currency string
	Opening  string
	Closing  string
	Entries  []Entry
}

// Entry describes one <Ntry>. Empty Amount omits <Amt>; empty Currency omits the Ccy attribute.
type Entry struct {
	Reference      string
	Amount         string
	Currency       string
	CreditDebit    string
	Reversal       bool
	Status         string
	BookingDate    string
	ValueDate      string
	AcctSvcrRef    string
	BankTxDomain   string
	BankTxFamily   string
	BankTxSub      string
	AdditionalInfo string
	Details        []Details
}

// Details describes one <TxDtls>
type Details struct {
	EndToEndID   string
	Amount       string
	Currency     string
	CreditDebit  string
	DebtorName   string
	DebtorIBAN   string
	CreditorName string
	CreditorIBAN string
	Remittance   []string
}

// Credit returns a booked credit entry paid by debtor into the statement account.
func Credit(amount, date, debtor, debtorIBAN, remittance string) Entry {
	return Entry{
		Amount:      amount,
		Currency:    "EUR",
		CreditDebit: "CRDT",
		Status:      "BOOK",
		BookingDate: date,
		ValueDate:   date,
		Details: []Details{{
			DebtorName: debtor,
			DebtorIBAN: debtorIBAN,
			Remittance: []string{remittance},
		}},
	}
}

// Debit returns a booked debit entry paid to creditor from the statement account.
func Debit(amount, date, creditor, creditorIBAN, remittance string) Entry {
	return Entry{
		Amount:      amount,
		Currency:    "EUR",
		CreditDebit: "DBIT",
		Status:      "BOOK",
		BookingDate: date,
		ValueDate:   date,
		Details: []Details{{
			CreditorName: creditor,
			CreditorIBAN: creditorIBAN,
			Remittance:   []string{remittance},
		}},
	}
}

// Document renders the statements as a camt.053.001.02 document.
func Document(statements ...Statement) []byte {
	w := &writer{}
	w.line(`<?xml version="1.0" encoding="UTF-8"?>`)
	w.open(fmt.Sprintf(`Document xmlns="%s"`, Namespace))
	w.open("BkToCstmrStmt")
	w.open("GrpHdr")
	w.leaf("MsgId", "MSG-0001")
	w.leaf("CreDtTm", "2024-03-31T18:00:00")
	w.close("GrpHdr")

	for _, s := range statements {
		writeStatement(w, s)
	}

	w.close("BkToCstmrStmt")
	w.close("Document")
	return w.buf.Bytes()
}

func writeStatement(w *writer, s Statement) {
	currency := s.Currency
	if currency == "" {
		currency = "EUR"
	}

	w.open("Stmt")
	w.leaf("Id", s.ID)
	w.leaf("CreDtTm", "2024-03-31T18:00:00")
	w.open("Acct")
	w.open("Id")
	w.leaf("IBAN", s.IBAN)
	w.close("Id")
	w.leaf("Ccy", currency)
	w.close("Acct")
	if s.Opening != "" {
		writeBalance(w, "OPBD", s.Opening, currency, "2024-03-01")
	}
	if s.Closing != "" {
		writeBalance(w, "CLBD", s.Closing, currency, "2024-03-31")
	}
	for _, e := range s.Entries {
		writeEntry(w, e)
	}
	w.close("Stmt")
}

func writeBalance(w *writer, code, amount, currency, date string) {
	w.open("Bal")
	w.open("Tp")
	w.open("CdOrPrtry")
	w.leaf("Cd", code)
	w.close("CdOrPrtry")
	w.close("Tp")
	w.leaf(fmt.Sprintf(`Amt Ccy="%s"`, currency), amount)
	w.leaf("CdtDbtInd", "CRDT")
	w.open("Dt")
	w.leaf("Dt", date)
	w.close("Dt")
	w.close("Bal")
}

func writeEntry(w *writer, e Entry) {
	w.open("Ntry")
	w.optional("NtryRef", e.Reference)
	writeAmount(w, e.Amount, e.Currency)
	w.optional("CdtDbtInd", e.CreditDebit)
	if e.Reversal {
		w.leaf("RvslInd", "true")
	}
	w.optional("Sts", e.Status)
	writeDate(w, "BookgDt", e.BookingDate)
	writeDate(w, "ValDt", e.ValueDate)
	w.optional("AcctSvcrRef", e.AcctSvcrRef)
	if e.BankTxDomain != "" {
		w.open("BkTxCd")
		w.open("Domn")
		w.leaf("Cd", e.BankTxDomain)
		w.open("Fmly")
		w.leaf("Cd", e.BankTxFamily)
		w.leaf("SubFmlyCd", e.BankTxSub)
		w.close("Fmly")
		w.close("Domn")
		w.close("BkTxCd")
	}
	if len(e.Details) > 0 {
		w.open("NtryDtls")
		for _, d := range e.Details {
			writeDetails(w, d)
		}
		w.close("NtryDtls")
	}
	w.optional("AddtlNtryInf", e.AdditionalInfo)
	w.close("Ntry")
}

func writeDetails(w *writer, d Details) {
	w.open("TxDtls")
	if d.EndToEndID != "" {
		w.open("Refs")
		w.leaf("EndToEndId", d.EndToEndID)
		w.close("Refs")
	}
	writeAmount(w, d.Amount, d.Currency)
	w.optional("CdtDbtInd", d.CreditDebit)
	if d.DebtorName != "" || d.DebtorIBAN != "" || d.CreditorName != "" || d.CreditorIBAN != "" {
		w.open("RltdPties")
		writeParty(w, "Dbtr", "DbtrAcct", d.DebtorName, d.DebtorIBAN)
		writeParty(w, "Cdtr", "CdtrAcct", d.CreditorName, d.CreditorIBAN)
		w.close("RltdPties")
	}
	if len(d.Remittance) > 0 {
		w.open("RmtInf")
		for _, line := range d.Remittance {
			w.leaf("Ustrd", line)
		}
		w.close("RmtInf")
	}
	w.close("TxDtls")
}

func writeParty(w *writer, party, account, name, iban string) {
	if name != "" {
		w.open(party)
		w.leaf("Nm", name)
		w.close(party)
	}
	if iban != "" {
		w.open(account)
		w.open("Id")
		w.leaf("IBAN", iban)
		w.close("Id")
		w.close(account)
	}
}

func writeAmount(w *writer, amount, currency string) {
	if amount == "" {
		return
	}
	if currency == "" {
		w.leaf("Amt", amount)
		return
	}
	w.leaf(fmt.Sprintf(`Amt Ccy="%s"`, currency), amount)
}

func writeDate(w *writer, element, date string) {
	if date == "" {
		return
	}
	w.open(element)
	if strings.Contains(date, "T") {
		w.leaf("DtTm", date)
	} else {
		w.leaf("Dt", date)
	}
	w.close(element)
}

type writer struct {
	buf   bytes.Buffer
	depth int
}

func (w *writer) line(s string) {
	w.buf.WriteString(strings.Repeat("  ", w.depth))
	w.buf.WriteString(s)
	w.buf.WriteByte('\n')
}

func (w *writer) open(tag string) {
	w.line("<" + tag + ">")
	w.depth++
}

func (w *writer) close(name string) {
	w.depth--
	w.line("</" + name + ">")
}

func (w *writer) leaf(tag, text string) {
	name := strings.Fields(tag)[0]
	var escaped bytes.Buffer
	_ = xml.EscapeText(&escaped, []byte(text))
	w.line("<" + tag + ">" + escaped.String() + "</" + name + ">")
}

func (w *writer) optional(tag, text string) {
	if text != "" {
		w.leaf(tag, text)
	}
}
