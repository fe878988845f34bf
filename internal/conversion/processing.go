package conversion

import (
	"fmt"

	"golang-camt-importer/internal/diagnostics"
	"golang-camt-importer/internal/models"
)

type processed struct {
	Transactions []*models.PseudoTransaction
	Diagnostics  *diagnostics.Collector
}

// process runs the checks that need the whole converted sequence: final
// validation, reused external ids and likely duplicate bookings. Duplicates
// are reported, never removed.
func process(transactions []*models.PseudoTransaction) *processed {
	out := &processed{
		Transactions: make([]*models.PseudoTransaction, 0, len(transactions)),
		Diagnostics:  diagnostics.NewCollector(diagnostics.StageProcessing),
	}
	diags := out.Diagnostics

	externalIDs := make(map[string]int)
	bookings := make(map[string]int)

	for _, tx := range transactions {
		if err := tx.Validate(); err != nil {
			diags.Error(tx.Index, "transaction rejected: %v", err)
			continue
		}

		if tx.ExternalID != "" {
			if first, ok := externalIDs[tx.ExternalID]; ok {
				diags.Warning(tx.Index, "external id %q is also used by record %d", tx.ExternalID, first)
			} else {
				externalIDs[tx.ExternalID] = tx.Index
			}
		}

		key := bookingKey(tx)
		if first, ok := bookings[key]; ok {
			diags.Message(tx.Index, "same amount, date, counterparty and description as record %d; possible duplicate", first)
		} else {
			bookings[key] = tx.Index
		}

		out.Transactions = append(out.Transactions, tx)
	}
	return out
}

func bookingKey(tx *models.PseudoTransaction) string {
	return fmt.Sprintf("%s_%s_%s_%s_%s",
		tx.Amount.String(),
		tx.Currency,
		tx.BookingDate.Format(models.DateLayout),
		tx.OpposingAccount.Identifier,
		tx.Description)
}
