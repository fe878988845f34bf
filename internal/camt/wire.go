package camt

import "strings"

// XML bindings for camt.053. Tags carry no namespace so every schema
// version (001.02 up to 001.13) decodes into the same structs.

type xmlDocument struct {
	Report xmlReport `xml:"BkToCstmrStmt"`
}

type xmlReport struct {
	Header struct {
		MessageID string `xml:"MsgId"`
		CreatedAt string `xml:"CreDtTm"`
	} `xml:"GrpHdr"`
	Statements []xmlStatement `xml:"Stmt"`
}

type xmlStatement struct {
	ID        string       `xml:"Id"`
	CreatedAt string       `xml:"CreDtTm"`
	Account   xmlAccount   `xml:"Acct"`
	Balances  []xmlBalance `xml:"Bal"`
	Entries   []xmlEntry   `xml:"Ntry"`
}

type xmlAccount struct {
	ID       xmlAccountID `xml:"Id"`
	Currency string       `xml:"Ccy"`
	Name     string       `xml:"Nm"`
}

type xmlAccountID struct {
	IBAN  string `xml:"IBAN"`
	Other struct {
		ID string `xml:"Id"`
	} `xml:"Othr"`
}

type xmlBalance struct {
	Type struct {
		CodeOrProprietary struct {
			Code        string `xml:"Cd"`
			Proprietary string `xml:"Prtry"`
		} `xml:"CdOrPrtry"`
	} `xml:"Tp"`
	Amount      xmlAmount `xml:"Amt"`
	CreditDebit string    `xml:"CdtDbtInd"`
	Date        xmlDate   `xml:"Dt"`
}

func (b xmlBalance) code() string {
	if c := strings.TrimSpace(b.Type.CodeOrProprietary.Code); c != "" {
		return c
	}
	return strings.TrimSpace(b.Type.CodeOrProprietary.Proprietary)
}

type xmlAmount struct {
	Value    string `xml:",chardata"`
	Currency string `xml:"Ccy,attr"`
}

type xmlDate struct {
	Date     string `xml:"Dt"`
	DateTime string `xml:"DtTm"`
}

func (d *xmlDate) value() string {
	if d == nil {
		return ""
	}
	if v := strings.TrimSpace(d.Date); v != "" {
		return v
	}
	return strings.TrimSpace(d.DateTime)
}

// xmlStatus covers both <Sts>BOOK</Sts> (001.02) and <Sts><Cd>BOOK</Cd></Sts> (001.08+).
type xmlStatus struct {
	Value string `xml:",chardata"`
	Code  string `xml:"Cd"`
}

func (s xmlStatus) value() string {
	if c := strings.TrimSpace(s.Code); c != "" {
		return c
	}
	return strings.TrimSpace(s.Value)
}

type xmlEntry struct {
	Reference          string            `xml:"NtryRef"`
	Amount             *xmlAmount        `xml:"Amt"`
	CreditDebit        string            `xml:"CdtDbtInd"`
	Reversal           string            `xml:"RvslInd"`
	Status             xmlStatus         `xml:"Sts"`
	BookingDate        *xmlDate          `xml:"BookgDt"`
	ValueDate          *xmlDate          `xml:"ValDt"`
	AccountServicerRef string            `xml:"AcctSvcrRef"`
	BankTxCode         xmlBankTxCode     `xml:"BkTxCd"`
	Details            []xmlEntryDetails `xml:"NtryDtls"`
	AdditionalInfo     string            `xml:"AddtlNtryInf"`
}

type xmlBankTxCode struct {
	Domain struct {
		Code   string `xml:"Cd"`
		Family struct {
			Code          string `xml:"Cd"`
			SubFamilyCode string `xml:"SubFmlyCd"`
		} `xml:"Fmly"`
	} `xml:"Domn"`
	Proprietary struct {
		Code string `xml:"Cd"`
	} `xml:"Prtry"`
}

// code renders the structured code as DOMAIN-FAMILY-SUBFAMILY, or the proprietary code.
func (c xmlBankTxCode) code() string {
	parts := []string{
		strings.TrimSpace(c.Domain.Code),
		strings.TrimSpace(c.Domain.Family.Code),
		strings.TrimSpace(c.Domain.Family.SubFamilyCode),
	}
	if parts[0] != "" {
		out := parts[:1]
		for _, p := range parts[1:] {
			if p != "" {
				out = append(out, p)
			}
		}
		return strings.Join(out, "-")
	}
	return strings.TrimSpace(c.Proprietary.Code)
}

type xmlEntryDetails struct {
	Transactions []xmlTxDetails `xml:"TxDtls"`
}

type xmlTxDetails struct {
	Refs struct {
		MessageID     string `xml:"MsgId"`
		EndToEndID    string `xml:"EndToEndId"`
		TransactionID string `xml:"TxId"`
		InstructionID string `xml:"InstrId"`
	} `xml:"Refs"`
	Amount        *xmlAmount `xml:"Amt"`
	AmountDetails struct {
		TransactionAmount struct {
			Amount *xmlAmount `xml:"Amt"`
		} `xml:"TxAmt"`
	} `xml:"AmtDtls"`
	CreditDebit string `xml:"CdtDbtInd"`
	Parties     struct {
		Debtor          xmlParty       `xml:"Dbtr"`
		DebtorAccount   xmlCashAccount `xml:"DbtrAcct"`
		Creditor        xmlParty       `xml:"Cdtr"`
		CreditorAccount xmlCashAccount `xml:"CdtrAcct"`
	} `xml:"RltdPties"`
	Agents struct {
		DebtorAgent   xmlAgent `xml:"DbtrAgt"`
		CreditorAgent xmlAgent `xml:"CdtrAgt"`
	} `xml:"RltdAgts"`
	Remittance struct {
		Unstructured []string `xml:"Ustrd"`
		Structured   []struct {
			CreditorReference struct {
				Ref string `xml:"Ref"`
			} `xml:"CdtrRefInf"`
			AdditionalInfo []string `xml:"AddtlRmtInf"`
		} `xml:"Strd"`
	} `xml:"RmtInf"`
	AdditionalInfo string `xml:"AddtlTxInf"`
}

func (t xmlTxDetails) amount() *xmlAmount {
	if t.Amount != nil {
		return t.Amount
	}
	return t.AmountDetails.TransactionAmount.Amount
}

// xmlParty covers <Dbtr><Nm/></Dbtr> (001.02) and <Dbtr><Pty><Nm/></Pty></Dbtr> (001.08+).
type xmlParty struct {
	Name  string `xml:"Nm"`
	Party struct {
		Name string `xml:"Nm"`
	} `xml:"Pty"`
}

func (p xmlParty) name() string {
	if n := strings.TrimSpace(p.Name); n != "" {
		return n
	}
	return strings.TrimSpace(p.Party.Name)
}

type xmlCashAccount struct {
	ID xmlAccountID `xml:"Id"`
}

type xmlAgent struct {
	Institution struct {
		BIC   string `xml:"BIC"`
		BICFI string `xml:"BICFI"`
	} `xml:"FinInstnId"`
}

func (a xmlAgent) bic() string {
	if b := strings.TrimSpace(a.Institution.BICFI); b != "" {
		return b
	}
	return strings.TrimSpace(a.Institution.BIC)
}
