// Package camt parses ISO 20022 camt.053 bank-to-customer statements.
//
// Parse is all-or-nothing: it either returns a complete Message or a
// *errors.MalformedStatementError locating the first violation. Three things
// are checked before the message tree is built:
//   - the markup is well-formed
//   - every currency code (Ccy attributes and <Ccy> elements) has ISO 4217 shape
//   - the document has a group header and at least one statement
//
// Namespaces are ignored, so all camt.053 schema versions are accepted.
// Non UTF-8 documents are decoded according to their XML declaration.
//
// Example usage:
//
//	msg, err := camt.Parse(content, camt.LevelA)
//	if err != nil {
//		var malformed *errors.MalformedStatementError
//		if stderrors.As(err, &malformed) {
//			fmt.Println(malformed.GetDetailedError())
//		}
//	}
package camt

import (
	"bytes"
	"encoding/xml"
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
	"gopkg.in/xmlpath.v2"

	"golang-camt-importer/pkg/errors"
)

var (
	groupHeaderPath = xmlpath.MustCompile("/Document/BkToCstmrStmt/GrpHdr")
	statementPath   = xmlpath.MustCompile("/Document/BkToCstmrStmt/Stmt")
)

// Parse decodes content into a Message. level "" means DefaultLevel.
func Parse(content []byte, level Level) (*Message, error) {
	if level == "" {
		level = DefaultLevel
	}
	if !level.IsValid() {
		return nil, errors.ConfigurationError(errors.CodeUnsupportedLevel, "level", level, nil)
	}

	if len(bytes.TrimSpace(content)) == 0 {
		return nil, errors.NewMalformedStatementError(errors.CodeMalformedMarkup, 0, 1, "", "document is empty", nil)
	}

	root, err := scan(content)
	if err != nil {
		return nil, err
	}

	if err := checkStructure(content, root); err != nil {
		return nil, err
	}

	var doc xmlDocument
	if err := newDecoder(content).Decode(&doc); err != nil {
		return nil, errors.NewMalformedStatementError(errors.CodeMalformedMarkup, root.offset, root.line, root.name,
			"statement content cannot be decoded", err)
	}

	return buildMessage(&doc, level), nil
}

type rootElement struct {
	name   string
	offset int64
	line   int
}

func newDecoder(content []byte) *xml.Decoder {
	decoder := xml.NewDecoder(bytes.NewReader(content))
	decoder.CharsetReader = charset.NewReaderLabel
	return decoder
}

// scan walks every token once, checking well-formedness and currency shapes.
func scan(content []byte) (rootElement, error) {
	var (
		root      rootElement
		stack     []string
		inCcy     bool
		ccyText   strings.Builder
		ccyOffset int64
	)

	decoder := newDecoder(content)
	for {
		offset := decoder.InputOffset()
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			failedAt := decoder.InputOffset()
			line := lineAt(content, failedAt)
			reason := err.Error()
			var syntaxErr *xml.SyntaxError
			if stderrors.As(err, &syntaxErr) {
				line = syntaxErr.Line
				reason = syntaxErr.Msg
			}
			return root, errors.NewMalformedStatementError(errors.CodeMalformedMarkup, failedAt, line, top(stack), reason, err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			if len(stack) == 0 {
				if root.name != "" {
					return root, errors.NewMalformedStatementError(errors.CodeMalformedMarkup, offset, lineAt(content, offset),
						t.Name.Local, "document has more than one root element", nil)
				}
				root = rootElement{name: t.Name.Local, offset: offset, line: lineAt(content, offset)}
			}
			stack = append(stack, t.Name.Local)

			for _, attr := range t.Attr {
				if attr.Name.Local == "Ccy" && !isCurrencyShape(attr.Value) {
					return root, invalidCurrency(content, offset, t.Name.Local, attr.Value)
				}
			}
			if t.Name.Local == "Ccy" {
				inCcy = true
				ccyOffset = offset
				ccyText.Reset()
			}

		case xml.CharData:
			if inCcy {
				ccyText.Write(t)
			}

		case xml.EndElement:
			if t.Name.Local == "Ccy" && inCcy {
				inCcy = false
				if !isCurrencyShape(ccyText.String()) {
					return root, invalidCurrency(content, ccyOffset, "Ccy", ccyText.String())
				}
			}
			stack = stack[:len(stack)-1]
		}
	}

	if root.name == "" {
		return root, errors.NewMalformedStatementError(errors.CodeMalformedMarkup, int64(len(content)), lineAt(content, int64(len(content))),
			"", "document has no root element", nil)
	}
	if len(stack) > 0 {
		end := int64(len(content))
		return root, errors.NewMalformedStatementError(errors.CodeMalformedMarkup, end, lineAt(content, end),
			top(stack), "unexpected end of document", io.ErrUnexpectedEOF)
	}

	return root, nil
}

func checkStructure(content []byte, root rootElement) error {
	node, err := xmlpath.ParseDecoder(newDecoder(content))
	if err != nil {
		return errors.NewMalformedStatementError(errors.CodeMalformedMarkup, root.offset, root.line, root.name,
			"statement content cannot be decoded", err)
	}

	if !groupHeaderPath.Exists(node) {
		return errors.NewMalformedStatementError(errors.CodeMissingElement, root.offset, root.line, "GrpHdr",
			"missing statement header Document/BkToCstmrStmt/GrpHdr", nil)
	}
	if !statementPath.Exists(node) {
		return errors.NewMalformedStatementError(errors.CodeMissingElement, root.offset, root.line, "Stmt",
			"missing statement body Document/BkToCstmrStmt/Stmt", nil)
	}
	return nil
}

func invalidCurrency(content []byte, offset int64, element, value string) error {
	return errors.NewMalformedStatementError(errors.CodeInvalidCurrency, offset, lineAt(content, offset), element,
		fmt.Sprintf("currency code %q is not three upper-case letters", value), nil)
}

// isCurrencyShape reports whether s looks like an ISO 4217 code. It does not
// check that the currency exists.
func isCurrencyShape(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) != 3 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}

// lineAt returns the 1-based line containing byte offset.
func lineAt(content []byte, offset int64) int {
	if offset > int64(len(content)) {
		offset = int64(len(content))
	}
	if offset < 0 {
		offset = 0
	}
	return bytes.Count(content[:offset], []byte("\n")) + 1
}

func top(stack []string) string {
	if len(stack) == 0 {
		return ""
	}
	return stack[len(stack)-1]
}
