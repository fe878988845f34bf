package conversion

import (
	"fmt"

	"golang-camt-importer/internal/camt"
	"golang-camt-importer/internal/diagnostics"
	"golang-camt-importer/internal/models"
)

// Result bundles everything a run produced for reporting
type Result struct {
	RunID        string                      `json:"run_id"`
	Source       string                      `json:"source"`
	Level        camt.Level                  `json:"level"`
	MessageID    string                      `json:"message_id"`
	Statements   int                         `json:"statements"`
	Records      int                         `json:"records"`
	Transactions []*models.PseudoTransaction `json:"transactions"`
	Diagnostics  *diagnostics.Merged         `json:"diagnostics"`
}

// Summary holds the counts of a run
type Summary struct {
	Records      int `json:"records"`
	Transactions int `json:"transactions"`
	Dropped      int `json:"dropped"`
	Messages     int `json:"messages"`
	Warnings     int `json:"warnings"`
	Errors       int `json:"errors"`
}

// Summary counts records, transactions and diagnostics
func (r *Result) Summary() Summary {
	counts := r.Diagnostics.Summary()
	return Summary{
		Records:      r.Records,
		Transactions: len(r.Transactions),
		Dropped:      r.Records - len(r.Transactions),
		Messages:     counts.Messages,
		Warnings:     counts.Warnings,
		Errors:       counts.Errors,
	}
}

// String returns a one-line summary
func (s Summary) String() string {
	return fmt.Sprintf("%d records, %d transactions, %d dropped (%d messages, %d warnings, %d errors)",
		s.Records, s.Transactions, s.Dropped, s.Messages, s.Warnings, s.Errors)
}
