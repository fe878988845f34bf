package camt

import (
	"bytes"
	stderrors "errors"
	"testing"

	"golang-camt-importer/internal/camt/camttest"
	"golang-camt-importer/pkg/errors"
)

func sampleDocument() []byte {
	entry := camttest.Credit("100.00", "2024-03-04", "Alice", "DE02120300000000202051", "Invoice 17")
	entry.Reference = "E1"
	entry.AcctSvcrRef = "BANK-1"
	entry.BankTxDomain, entry.BankTxFamily, entry.BankTxSub = "PMNT", "RCDT", "ESCT"

	batch := camttest.Entry{
		Amount:      "30.00",
		Currency:    "EUR",
		CreditDebit: "DBIT",
		Status:      "BOOK",
		BookingDate: "2024-03-05",
		ValueDate:   "2024-03-06",
		Details: []camttest.Details{
			{Amount: "10.00", Currency: "EUR", CreditorName: "Shop A", Remittance: []string{"A"}},
			{Amount: "20.00", Currency: "EUR", CreditorName: "Shop B", Remittance: []string{"B"}},
		},
	}

	return camttest.Document(
		camttest.Statement{
			ID:       "STMT-1",
			IBAN:     "DE89 3704 0044 0532 0130 00",
			Opening:  "1000.00",
			Closing:  "1070.00",
			Entries:  []camttest.Entry{entry, batch},
			Currency: "EUR",
		},
		camttest.Statement{
			ID:      "STMT-2",
			IBAN:    "CH9300762011623852957",
			Entries: []camttest.Entry{camttest.Debit("5.00", "2024-03-07", "Cafe", "", "Coffee")},
		},
	)
}

func TestParseValidDocument(t *testing.T) {
	msg, err := Parse(sampleDocument(), LevelA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if msg.MessageID != "MSG-0001" {
		t.Errorf("expected message id MSG-0001, got %s", msg.MessageID)
	}
	if len(msg.Statements) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(msg.Statements))
	}

	stmt := msg.Statements[0]
	if stmt.Account.IBAN != "DE89370400440532013000" {
		t.Errorf("expected normalized IBAN, got %s", stmt.Account.IBAN)
	}
	if stmt.Currency != "EUR" {
		t.Errorf("expected currency EUR, got %s", stmt.Currency)
	}
	if stmt.OpeningBalance == nil || stmt.OpeningBalance.Amount.Value != "1000.00" {
		t.Errorf("expected opening balance 1000.00, got %+v", stmt.OpeningBalance)
	}
	if stmt.ClosingBalance == nil || stmt.ClosingBalance.Code != "CLBD" {
		t.Errorf("expected closing balance, got %+v", stmt.ClosingBalance)
	}
	if len(stmt.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(stmt.Entries))
	}

	first := stmt.Entries[0]
	if first.Amount == nil || first.Amount.Value != "100.00" || first.Amount.Currency != "EUR" {
		t.Errorf("unexpected amount %+v", first.Amount)
	}
	if first.CreditDebit != "CRDT" || first.Status != "BOOK" {
		t.Errorf("unexpected indicator/status %s/%s", first.CreditDebit, first.Status)
	}
	if first.BankTxCode != "PMNT-RCDT-ESCT" {
		t.Errorf("expected bank transaction code PMNT-RCDT-ESCT, got %s", first.BankTxCode)
	}
	if first.Reference != "E1" || first.AccountServicerRef != "BANK-1" {
		t.Errorf("unexpected references %s/%s", first.Reference, first.AccountServicerRef)
	}
	if len(first.Details) != 1 {
		t.Fatalf("expected 1 transaction detail, got %d", len(first.Details))
	}
	debtor := first.Details[0].Debtor
	if debtor == nil || debtor.Name != "Alice" || debtor.IBAN != "DE02120300000000202051" {
		t.Errorf("unexpected debtor %+v", debtor)
	}
	if first.Details[0].Creditor != nil {
		t.Errorf("expected no creditor, got %+v", first.Details[0].Creditor)
	}
	if len(first.Details[0].Remittance) != 1 || first.Details[0].Remittance[0] != "Invoice 17" {
		t.Errorf("unexpected remittance %v", first.Details[0].Remittance)
	}

	if stmt.Entries[1].ValueDate != "2024-03-06" {
		t.Errorf("expected value date 2024-03-06, got %s", stmt.Entries[1].ValueDate)
	}
	if msg.EntryCount() != 3 || msg.RecordCount() != 3 {
		t.Errorf("expected 3 entries and 3 records at level A, got %d and %d", msg.EntryCount(), msg.RecordCount())
	}
}

func TestParseLevelBRecordCount(t *testing.T) {
	msg, err := Parse(sampleDocument(), LevelB)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Level != LevelB {
		t.Errorf("expected level B, got %s", msg.Level)
	}
	// the batch booking splits into two records
	if msg.RecordCount() != 4 {
		t.Errorf("expected 4 records at level B, got %d", msg.RecordCount())
	}
}

func TestParseNewerSchemaVersion(t *testing.T) {
	content := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<Document xmlns="urn:iso:std:iso:20022:tech:xsd:camt.053.001.08">
  <BkToCstmrStmt>
    <GrpHdr><MsgId>M8</MsgId><CreDtTm>2024-03-31T18:00:00+01:00</CreDtTm></GrpHdr>
    <Stmt>
      <Id>S8</Id>
      <Acct><Id><Othr><Id>0532013000</Id></Othr></Id><Ccy>CHF</Ccy></Acct>
      <Bal><Tp><CdOrPrtry><Cd>PRCD</Cd></CdOrPrtry></Tp><Amt Ccy="CHF">10.00</Amt><CdtDbtInd>CRDT</CdtDbtInd><Dt><Dt>2024-02-29</Dt></Dt></Bal>
      <Ntry>
        <Amt Ccy="CHF">12.30</Amt>
        <CdtDbtInd>DBIT</CdtDbtInd>
        <RvslInd>true</RvslInd>
        <Sts><Cd>PDNG</Cd></Sts>
        <BookgDt><DtTm>2024-03-02T09:15:00+01:00</DtTm></BookgDt>
        <BkTxCd><Prtry><Cd>CARD</Cd></Prtry></BkTxCd>
        <NtryDtls><TxDtls>
          <Refs><EndToEndId>NOTPROVIDED</EndToEndId></Refs>
          <AmtDtls><TxAmt><Amt Ccy="CHF">12.30</Amt></TxAmt></AmtDtls>
          <RltdPties><Cdtr><Pty><Nm>Kiosk</Nm></Pty></Cdtr></RltdPties>
          <RltdAgts><CdtrAgt><FinInstnId><BICFI>UBSWCHZH80A</BICFI></FinInstnId></CdtrAgt></RltdAgts>
          <RmtInf><Strd><CdtrRefInf><Ref>RF18539007547034</Ref></CdtrRefInf></Strd></RmtInf>
        </TxDtls></NtryDtls>
      </Ntry>
    </Stmt>
  </BkToCstmrStmt>
</Document>`)

	msg, err := Parse(content, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Level != LevelA {
		t.Errorf("expected default level A, got %s", msg.Level)
	}

	stmt := msg.Statements[0]
	if stmt.Account.Identifier() != "0532013000" {
		t.Errorf("expected proprietary account id, got %s", stmt.Account.Identifier())
	}
	if stmt.OpeningBalance == nil || stmt.OpeningBalance.Code != "PRCD" {
		t.Errorf("expected PRCD to stand in for the opening balance, got %+v", stmt.OpeningBalance)
	}

	entry := stmt.Entries[0]
	if entry.Status != "PDNG" || !entry.Reversal {
		t.Errorf("expected pending reversal, got status %s reversal %v", entry.Status, entry.Reversal)
	}
	if entry.BookingDate != "2024-03-02T09:15:00+01:00" || entry.ValueDate != "" {
		t.Errorf("unexpected dates %q/%q", entry.BookingDate, entry.ValueDate)
	}
	if entry.BankTxCode != "CARD" {
		t.Errorf("expected proprietary code CARD, got %s", entry.BankTxCode)
	}

	details := entry.Details[0]
	if details.Amount == nil || details.Amount.Value != "12.30" {
		t.Errorf("expected amount from AmtDtls, got %+v", details.Amount)
	}
	if details.Creditor == nil || details.Creditor.Name != "Kiosk" || details.Creditor.BIC != "UBSWCHZH80A" {
		t.Errorf("unexpected creditor %+v", details.Creditor)
	}
	if len(details.Remittance) != 1 || details.Remittance[0] != "RF18539007547034" {
		t.Errorf("expected structured reference as remittance, got %v", details.Remittance)
	}
}

func TestParseLatin1Document(t *testing.T) {
	content := []byte("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n" +
		"<Document><BkToCstmrStmt><GrpHdr><MsgId>L1</MsgId></GrpHdr>" +
		"<Stmt><Id>S</Id><Acct><Id><IBAN>DE89370400440532013000</IBAN></Id><Ccy>EUR</Ccy></Acct>" +
		"<Ntry><Amt Ccy=\"EUR\">1.00</Amt><CdtDbtInd>CRDT</CdtDbtInd><BookgDt><Dt>2024-03-01</Dt></BookgDt>" +
		"<AddtlNtryInf>Caf\xe9</AddtlNtryInf></Ntry></Stmt></BkToCstmrStmt></Document>")

	msg, err := Parse(content, LevelA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := msg.Statements[0].Entries[0].AdditionalInfo; got != "Café" {
		t.Errorf("expected decoded text Café, got %q", got)
	}
}

func assertMalformed(t *testing.T, err error, code errors.ErrorCode) *errors.MalformedStatementError {
	t.Helper()
	var malformed *errors.MalformedStatementError
	if !stderrors.As(err, &malformed) {
		t.Fatalf("expected MalformedStatementError, got %T: %v", err, err)
	}
	if malformed.Code != code {
		t.Errorf("expected code %s, got %s", code, malformed.Code)
	}
	if malformed.Line < 1 {
		t.Errorf("expected a 1-based line, got %d", malformed.Line)
	}
	return malformed
}

func TestParseMalformedMarkup(t *testing.T) {
	valid := sampleDocument()

	tests := []struct {
		name    string
		content []byte
	}{
		{"empty", []byte("  \n ")},
		{"truncated", valid[:len(valid)/2]},
		{"mismatched tags", []byte("<Document><BkToCstmrStmt></Document></BkToCstmrStmt>")},
		{"text only", []byte("not xml at all")},
		{"two roots", []byte("<Document></Document><Document></Document>")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Parse(tt.content, LevelA)
			if msg != nil {
				t.Error("expected no message on failure")
			}
			assertMalformed(t, err, errors.CodeMalformedMarkup)
		})
	}
}

func TestParseMismatchedTagLine(t *testing.T) {
	content := []byte("<Document>\n<BkToCstmrStmt>\n<GrpHdr>\n</Stmt>\n</BkToCstmrStmt>\n</Document>")

	_, err := Parse(content, LevelA)
	malformed := assertMalformed(t, err, errors.CodeMalformedMarkup)
	if malformed.Line != 4 {
		t.Errorf("expected violation on line 4, got %d", malformed.Line)
	}
	if malformed.Offset <= 0 {
		t.Errorf("expected a positive offset, got %d", malformed.Offset)
	}
}

func TestParseInvalidCurrency(t *testing.T) {
	t.Run("attribute", func(t *testing.T) {
		entry := camttest.Credit("1.00", "2024-03-01", "A", "", "x")
		entry.Currency = "eur"
		content := camttest.Document(camttest.Statement{ID: "S", IBAN: "DE89370400440532013000", Entries: []camttest.Entry{entry}})

		_, err := Parse(content, LevelA)
		malformed := assertMalformed(t, err, errors.CodeInvalidCurrency)

		position := bytes.Index(content, []byte(`<Amt Ccy="eur">`))
		expectedLine := bytes.Count(content[:position], []byte("\n")) + 1
		if malformed.Line != expectedLine {
			t.Errorf("expected line %d, got %d", expectedLine, malformed.Line)
		}
		if malformed.Offset != int64(position) {
			t.Errorf("expected offset %d, got %d", position, malformed.Offset)
		}
		if malformed.Element != "Amt" {
			t.Errorf("expected element Amt, got %s", malformed.Element)
		}
	})

	t.Run("element", func(t *testing.T) {
		content := camttest.Document(camttest.Statement{ID: "S", IBAN: "DE89370400440532013000", Currency: "EURO"})

		_, err := Parse(content, LevelA)
		malformed := assertMalformed(t, err, errors.CodeInvalidCurrency)
		if malformed.Element != "Ccy" {
			t.Errorf("expected element Ccy, got %s", malformed.Element)
		}
	})

	t.Run("unknown but well-shaped code passes", func(t *testing.T) {
		content := camttest.Document(camttest.Statement{ID: "S", IBAN: "DE89370400440532013000", Currency: "ZZZ"})
		if _, err := Parse(content, LevelA); err != nil {
			t.Errorf("expected shape-only check, got %v", err)
		}
	})
}

func TestParseMissingElements(t *testing.T) {
	tests := []struct {
		name    string
		content string
		element string
	}{
		{
			name:    "no group header",
			content: `<Document><BkToCstmrStmt><Stmt><Id>S</Id></Stmt></BkToCstmrStmt></Document>`,
			element: "GrpHdr",
		},
		{
			name:    "no statement",
			content: `<Document><BkToCstmrStmt><GrpHdr><MsgId>M</MsgId></GrpHdr></BkToCstmrStmt></Document>`,
			element: "Stmt",
		},
		{
			name:    "other message type",
			content: `<Document><BkToCstmrAcctRpt><GrpHdr/><Rpt/></BkToCstmrAcctRpt></Document>`,
			element: "GrpHdr",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content), LevelA)
			malformed := assertMalformed(t, err, errors.CodeMissingElement)
			if malformed.Element != tt.element {
				t.Errorf("expected element %s, got %s", tt.element, malformed.Element)
			}
		})
	}
}

func TestParseUnsupportedLevel(t *testing.T) {
	_, err := Parse(sampleDocument(), Level("C"))
	importerErr, ok := errors.AsImporterError(err)
	if !ok || importerErr.Code != errors.CodeUnsupportedLevel {
		t.Errorf("expected unsupported level error, got %v", err)
	}
}

func TestParseIsPure(t *testing.T) {
	content := sampleDocument()
	original := append([]byte(nil), content...)

	first, err := Parse(content, LevelB)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _ := Parse(content, LevelB)

	if !bytes.Equal(content, original) {
		t.Error("expected input bytes to be left untouched")
	}
	if first.RecordCount() != second.RecordCount() || first.Statements[1].Entries[0].Details[0].Creditor.Name != second.Statements[1].Entries[0].Details[0].Creditor.Name {
		t.Error("expected identical results for identical input")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
		wantErr  bool
	}{
		{"", LevelA, false},
		{"A", LevelA, false},
		{"b", LevelB, false},
		{"Level-B", LevelB, false},
		{"level a", LevelA, false},
		{"C", "", true},
		{"AB", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}
