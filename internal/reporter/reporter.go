// Package reporter renders conversion results.
//
// Supported output formats:
//   - Console: human-readable summary, transactions and diagnostics by record
//   - JSON: the results as structured data
//   - CSV: one row per transaction and one row per diagnostic
//   - XLSX: a workbook with Summary, Transactions and Diagnostics sheets
//
// Example usage:
//
//	generator, err := reporter.NewReportGenerator(&reporter.ReportConfig{Format: reporter.FormatJSON})
//	if err != nil {
//		return err
//	}
//	err = generator.GenerateReport([]*conversion.Result{result}, os.Stdout)
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang-camt-importer/internal/conversion"
	"golang-camt-importer/internal/diagnostics"
	"golang-camt-importer/internal/models"
)

// OutputFormat represents the supported report output formats.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
	FormatXLSX    OutputFormat = "xlsx"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV, FormatXLSX:
		return true
	default:
		return false
	}
}

// IsBinary reports whether the format cannot be written to a terminal
func (f OutputFormat) IsBinary() bool {
	return f == FormatXLSX
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	IncludeTransactions bool `json:"include_transactions"`
	IncludeMessages     bool `json:"include_messages"`

	// Console formatting options
	TableMaxWidth int `json:"table_max_width"`
	MaxItems      int `json:"max_items"`

	// CSV options
	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:              FormatConsole,
		IncludeTransactions: true,
		IncludeMessages:     true,
		TableMaxWidth:       120,
		MaxItems:            50,
		CSVDelimiter:        ',',
		CSVHeaders:          true,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}

	if c.TableMaxWidth < 50 {
		return fmt.Errorf("table max width must be at least 50 characters, got %d", c.TableMaxWidth)
	}

	if c.MaxItems < 0 {
		return fmt.Errorf("max items cannot be negative, got %d", c.MaxItems)
	}

	if c.CSVDelimiter == 0 || c.CSVDelimiter == '"' || c.CSVDelimiter == '\n' || c.CSVDelimiter == '\r' {
		return fmt.Errorf("invalid CSV delimiter: %q", c.CSVDelimiter)
	}

	return nil
}

// ReportGenerator generates conversion reports in various formats
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a new report generator with the specified configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}

	return &ReportGenerator{
		config: config,
	}, nil
}

// GenerateReport writes a report of one or more run results to writer
func (rg *ReportGenerator) GenerateReport(results []*conversion.Result, writer io.Writer) error {
	if len(results) == 0 {
		return fmt.Errorf("no conversion results to report")
	}
	for i, result := range results {
		if result == nil {
			return fmt.Errorf("conversion result %d cannot be nil", i)
		}
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsoleReport(results, writer)
	case FormatJSON:
		return rg.generateJSONReport(results, writer)
	case FormatCSV:
		return rg.generateCSVReport(results, writer)
	case FormatXLSX:
		return rg.generateXLSXReport(results, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

// generateConsoleReport generates a human-readable console report
func (rg *ReportGenerator) generateConsoleReport(results []*conversion.Result, writer io.Writer) error {
	for i, result := range results {
		if i > 0 {
			fmt.Fprintf(writer, "\n")
		}

		fmt.Fprintf(writer, "CONVERSION REPORT\n")
		fmt.Fprintf(writer, "Run:        %s\n", result.RunID)
		fmt.Fprintf(writer, "Source:     %s\n", result.Source)
		fmt.Fprintf(writer, "Message:    %s (level %s, %d statements)\n\n", result.MessageID, result.Level, result.Statements)

		fmt.Fprintf(writer, "=== SUMMARY ===\n")
		rg.printSummary(result.Summary(), writer)
		fmt.Fprintf(writer, "\n")

		if rg.config.IncludeTransactions && len(result.Transactions) > 0 {
			fmt.Fprintf(writer, "=== TRANSACTIONS ===\n")
			rg.printTransactionList(result.Transactions, writer)
			fmt.Fprintf(writer, "\n")
		}

		if rows := rg.diagnosticRows(result.Diagnostics); len(rows) > 0 {
			fmt.Fprintf(writer, "=== DIAGNOSTICS ===\n")
			rg.printDiagnostics(rows, writer)
		}
	}
	return nil
}

// generateJSONReport generates a structured JSON report
func (rg *ReportGenerator) generateJSONReport(results []*conversion.Result, writer io.Writer) error {
	runs := make([]map[string]interface{}, 0, len(results))
	for _, result := range results {
		runs = append(runs, rg.filterResultForOutput(result))
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")

	return encoder.Encode(map[string]interface{}{"runs": runs})
}

var csvHeaders = []string{
	"Run_ID",
	"Type",
	"Index",
	"Amount",
	"Currency",
	"Booking_Date",
	"Value_Date",
	"Asset_Account",
	"Opposing_Account",
	"Counterparty",
	"Description",
	"External_ID",
	"Notes",
}

// generateCSVReport writes transactions followed by diagnostics.
func (rg *ReportGenerator) generateCSVReport(results []*conversion.Result, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter

	if rg.config.CSVHeaders {
		if err := csvWriter.Write(csvHeaders); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	for _, result := range results {
		if rg.config.IncludeTransactions {
			for _, tx := range result.Transactions {
				if err := csvWriter.Write(transactionRecord(result.RunID, tx)); err != nil {
					return fmt.Errorf("failed to write transaction record: %w", err)
				}
			}
		}

		for _, row := range rg.diagnosticRows(result.Diagnostics) {
			record := make([]string, len(csvHeaders))
			record[0] = result.RunID
			record[1] = string(row.Kind)
			record[2] = strconv.Itoa(row.Index)
			record[10] = row.Text
			if err := csvWriter.Write(record); err != nil {
				return fmt.Errorf("failed to write diagnostic record: %w", err)
			}
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

func transactionRecord(runID string, tx *models.PseudoTransaction) []string {
	return []string{
		runID,
		"transaction",
		strconv.Itoa(tx.Index),
		tx.Amount.String(),
		tx.Currency,
		tx.BookingDate.Format(models.DateLayout),
		tx.ValueDate.Format(models.DateLayout),
		tx.AssetAccount.Identifier,
		tx.OpposingAccount.Identifier,
		tx.Counterparty,
		tx.Description,
		tx.ExternalID,
		tx.Notes,
	}
}

// diagnosticRow is one diagnostic line flattened for output
type diagnosticRow struct {
	Index int
	Kind  diagnostics.Kind
	Text  string
}

// diagnosticRows lists diagnostics by index, errors first within an index.
func (rg *ReportGenerator) diagnosticRows(merged *diagnostics.Merged) []diagnosticRow {
	if merged == nil {
		return nil
	}

	var rows []diagnosticRow
	for index := 0; index < merged.Count(); index++ {
		for _, text := range merged.Errors[index] {
			rows = append(rows, diagnosticRow{index, diagnostics.KindError, text})
		}
		for _, text := range merged.Warnings[index] {
			rows = append(rows, diagnosticRow{index, diagnostics.KindWarning, text})
		}
		if !rg.config.IncludeMessages {
			continue
		}
		for _, text := range merged.Messages[index] {
			rows = append(rows, diagnosticRow{index, diagnostics.KindMessage, text})
		}
	}
	return rows
}

// Helper methods for console output formatting

func (rg *ReportGenerator) printSummary(summary conversion.Summary, writer io.Writer) {
	fmt.Fprintf(writer, "Records:      %d\n", summary.Records)
	fmt.Fprintf(writer, "Transactions: %d (%.1f%%)\n",
		summary.Transactions, rg.calculatePercentage(summary.Transactions, summary.Records))
	fmt.Fprintf(writer, "Dropped:      %d (%.1f%%)\n",
		summary.Dropped, rg.calculatePercentage(summary.Dropped, summary.Records))
	fmt.Fprintf(writer, "Errors:       %d\n", summary.Errors)
	fmt.Fprintf(writer, "Warnings:     %d\n", summary.Warnings)
	fmt.Fprintf(writer, "Messages:     %d\n", summary.Messages)
}

func (rg *ReportGenerator) printTransactionList(transactions []*models.PseudoTransaction, writer io.Writer) {
	for i, tx := range transactions {
		line := fmt.Sprintf("  #%d %s %s %s  %s -> %s  %s",
			tx.Index,
			tx.BookingDate.Format(models.DateLayout),
			tx.Amount.StringFixed(2),
			tx.Currency,
			tx.AssetAccount.Identifier,
			tx.OpposingAccount.Identifier,
			tx.Description)
		fmt.Fprintf(writer, "%s\n", rg.truncate(line))

		// Limit output for very long lists
		if rg.config.MaxItems > 0 && i+1 >= rg.config.MaxItems && len(transactions) > rg.config.MaxItems {
			fmt.Fprintf(writer, "  ... and %d more\n", len(transactions)-rg.config.MaxItems)
			break
		}
	}
}

func (rg *ReportGenerator) printDiagnostics(rows []diagnosticRow, writer io.Writer) {
	for _, row := range rows {
		line := fmt.Sprintf("  #%d %-7s %s", row.Index, strings.ToUpper(string(row.Kind)), row.Text)
		fmt.Fprintf(writer, "%s\n", rg.truncate(line))
	}
}

// Helper methods

func (rg *ReportGenerator) truncate(line string) string {
	runes := []rune(line)
	if len(runes) <= rg.config.TableMaxWidth {
		return line
	}
	return string(runes[:rg.config.TableMaxWidth-3]) + "..."
}

func (rg *ReportGenerator) calculatePercentage(part, total int) float64 {
	if total == 0 {
		return 0.0
	}
	return float64(part) / float64(total) * 100.0
}

func (rg *ReportGenerator) filterResultForOutput(result *conversion.Result) map[string]interface{} {
	output := map[string]interface{}{
		"run_id":     result.RunID,
		"source":     result.Source,
		"message_id": result.MessageID,
		"level":      result.Level,
		"summary":    result.Summary(),
		"errors":     result.Diagnostics.Errors,
		"warnings":   result.Diagnostics.Warnings,
	}

	if rg.config.IncludeTransactions {
		output["transactions"] = result.Transactions
	}

	if rg.config.IncludeMessages {
		output["messages"] = result.Diagnostics.Messages
	}

	return output
}

// UpdateConfiguration updates the report generator configuration
func (rg *ReportGenerator) UpdateConfiguration(config *ReportConfig) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid report configuration: %w", err)
	}

	rg.config = config
	return nil
}

// GetConfiguration returns the current configuration
func (rg *ReportGenerator) GetConfiguration() *ReportConfig {
	return rg.config
}
