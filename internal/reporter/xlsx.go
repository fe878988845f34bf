package reporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"golang-camt-importer/internal/conversion"
)

// Sheet names of the XLSX report
const (
	SheetSummary      = "Summary"
	SheetTransactions = "Transactions"
	SheetDiagnostics  = "Diagnostics"
)

var summaryHeaders = []string{"Run_ID", "Source", "Message_ID", "Level", "Records", "Transactions", "Dropped", "Errors", "Warnings", "Messages"}

var diagnosticHeaders = []string{"Run_ID", "Index", "Kind", "Text"}

// generateXLSXReport writes a workbook with one sheet per report section.
func (rg *ReportGenerator) generateXLSXReport(results []*conversion.Result, writer io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}
	for _, name := range []string{SheetTransactions, SheetDiagnostics} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create %s sheet: %w", name, err)
		}
	}

	summary := newSheetWriter(f, SheetSummary)
	transactions := newSheetWriter(f, SheetTransactions)
	diags := newSheetWriter(f, SheetDiagnostics)

	if err := summary.row(toRow(summaryHeaders)); err != nil {
		return err
	}
	if err := transactions.row(toRow(csvHeaders)); err != nil {
		return err
	}
	if err := diags.row(toRow(diagnosticHeaders)); err != nil {
		return err
	}

	for _, result := range results {
		s := result.Summary()
		if err := summary.row([]interface{}{
			result.RunID, result.Source, result.MessageID, string(result.Level),
			s.Records, s.Transactions, s.Dropped, s.Errors, s.Warnings, s.Messages,
		}); err != nil {
			return err
		}

		if rg.config.IncludeTransactions {
			for _, tx := range result.Transactions {
				record := toRow(transactionRecord(result.RunID, tx))
				// amounts stay numeric in the workbook
				record[3] = tx.Amount.InexactFloat64()
				record[2] = tx.Index
				if err := transactions.row(record); err != nil {
					return err
				}
			}
		}

		for _, row := range rg.diagnosticRows(result.Diagnostics) {
			if err := diags.row([]interface{}{result.RunID, row.Index, string(row.Kind), row.Text}); err != nil {
				return err
			}
		}
	}

	f.SetActiveSheet(0)
	if err := f.Write(writer); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

type sheetWriter struct {
	file  *excelize.File
	sheet string
	next  int
}

func newSheetWriter(f *excelize.File, sheet string) *sheetWriter {
	return &sheetWriter{file: f, sheet: sheet, next: 1}
}

func (w *sheetWriter) row(values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, w.next)
	if err != nil {
		return err
	}
	if err := w.file.SetSheetRow(w.sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", w.sheet, w.next, err)
	}
	w.next++
	return nil
}

func toRow(values []string) []interface{} {
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	return row
}
