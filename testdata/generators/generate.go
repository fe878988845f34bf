package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"golang-camt-importer/internal/camt/camttest"
)

const accountIBAN = "DE89370400440532013000"

var counterparties = []struct {
	Name string
	IBAN string
}{
	{"Alice Example", "FR1420041010050500013M02606"},
	{"Stadtwerke Musterstadt", "DE02120300000000202051"},
	{"Bob's Bakery", "NL91ABNA0417164300"},
	{"Landlord GmbH", "DE75512108001245126199"},
	{"Online Shop Ltd", ""},
}

var (
	numberedRemittances = []string{"Invoice %d", "Order %d", "Direct debit %d"}
	monthlyRemittances  = []string{"Rent %s", "Salary %s", "Electricity %s"}
)

// Generator writes camt.053 statements for trying out the importer
type Generator struct {
	Seed      int64
	OutputDir string
	Count     int
	StartDate time.Time
	EndDate   time.Time
	MinAmount decimal.Decimal
	MaxAmount decimal.Decimal

	rnd *rand.Rand
}

func main() {
	var (
		outputDir = flag.String("output-dir", "generated", "Output directory for generated statements")
		seed      = flag.Int64("seed", time.Now().UnixNano(), "Random seed for reproducible generation")
		count     = flag.Int("count", 100, "Number of entries in the random statement")
		startDate = flag.String("start-date", "2024-01-01", "First booking date (YYYY-MM-DD)")
		endDate   = flag.String("end-date", "2024-03-31", "Last booking date (YYYY-MM-DD)")
		scenario  = flag.String("scenario", "all", "Scenario to generate: all, random, batch, ambiguous-sign, missing-counterparty, precision, duplicates, truncated")
	)
	flag.Parse()

	start, err := time.Parse("2006-01-02", *startDate)
	if err != nil {
		log.Fatalf("Invalid start date: %v", err)
	}
	end, err := time.Parse("2006-01-02", *endDate)
	if err != nil {
		log.Fatalf("Invalid end date: %v", err)
	}
	if end.Before(start) {
		log.Fatalf("End date %s is before start date %s", *endDate, *startDate)
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	g := &Generator{
		Seed:      *seed,
		OutputDir: *outputDir,
		Count:     *count,
		StartDate: start,
		EndDate:   end,
		MinAmount: decimal.NewFromInt(1),
		MaxAmount: decimal.NewFromInt(2500),
		rnd:       rand.New(rand.NewSource(*seed)),
	}

	scenarios := map[string]func() error{
		"random":               g.GenerateRandom,
		"batch":                g.GenerateBatchBookings,
		"ambiguous-sign":       g.GenerateAmbiguousSign,
		"missing-counterparty": g.GenerateMissingCounterparty,
		"precision":            g.GeneratePrecision,
		"duplicates":           g.GenerateDuplicates,
		"truncated":            g.GenerateTruncated,
	}

	if *scenario == "all" {
		for _, name := range []string{"random", "batch", "ambiguous-sign", "missing-counterparty", "precision", "duplicates", "truncated"} {
			if err := scenarios[name](); err != nil {
				log.Fatalf("Failed to generate %s: %v", name, err)
			}
		}
	} else {
		generate, ok := scenarios[*scenario]
		if !ok {
			log.Fatalf("Unknown scenario: %s", *scenario)
		}
		if err := generate(); err != nil {
			log.Fatalf("Failed to generate %s: %v", *scenario, err)
		}
	}

	fmt.Printf("Generated statements in %s\n", *outputDir)
	fmt.Printf("Seed used: %d\n", *seed)
}

// GenerateRandom writes a statement of Count random credits and debits
func (g *Generator) GenerateRandom() error {
	entries := make([]camttest.Entry, 0, g.Count)
	for i := 0; i < g.Count; i++ {
		entries = append(entries, g.randomEntry(i))
	}
	return g.write("random.xml", entries)
}

// GenerateBatchBookings writes entries with several transaction details, which
// give different record counts at level A and level B.
func (g *Generator) GenerateBatchBookings() error {
	var entries []camttest.Entry
	for i := 0; i < 5; i++ {
		parts := 2 + g.rnd.Intn(3)
		total := decimal.Zero
		entry := camttest.Entry{
			Currency:    "EUR",
			CreditDebit: "DBIT",
			Status:      "BOOK",
			BookingDate: g.randomDate(),
		}
		entry.ValueDate = entry.BookingDate

		for p := 0; p < parts; p++ {
			amount := g.randomAmount()
			total = total.Add(amount)
			party := counterparties[g.rnd.Intn(len(counterparties))]
			entry.Details = append(entry.Details, camttest.Details{
				EndToEndID:   fmt.Sprintf("BATCH-%d-%d", i, p),
				Amount:       amount.StringFixed(2),
				Currency:     "EUR",
				CreditDebit:  "DBIT",
				CreditorName: party.Name,
				CreditorIBAN: party.IBAN,
				Remittance:   []string{fmt.Sprintf("Batch %d part %d", i, p+1)},
			})
		}
		entry.Amount = total.StringFixed(2)
		entries = append(entries, entry)
	}
	return g.write("batch_bookings.xml", entries)
}

// GenerateAmbiguousSign writes an amount with its own sign next to a regular entry
func (g *Generator) GenerateAmbiguousSign() error {
	date := g.randomDate()
	return g.write("ambiguous_sign.xml", []camttest.Entry{
		camttest.Credit("-5.00", date, "Alice Example", "FR1420041010050500013M02606", "Refund"),
		camttest.Credit("5.00", date, "Alice Example", "FR1420041010050500013M02606", "Refund"),
	})
}

// GenerateMissingCounterparty writes an entry without any counterparty account
func (g *Generator) GenerateMissingCounterparty() error {
	entry := camttest.Debit("42.00", g.randomDate(), "", "", "Card payment")
	entry.Details = nil
	entry.AdditionalInfo = "POS 4711 Coffee"
	return g.write("missing_counterparty.xml", []camttest.Entry{entry})
}

// GeneratePrecision writes amounts with more decimal places than the currency allows
func (g *Generator) GeneratePrecision() error {
	date := g.randomDate()
	yen := camttest.Credit("1500.5", date, "Tokyo Trading", "", "Order 7")
	yen.Currency = "JPY"
	return g.write("precision.xml", []camttest.Entry{
		camttest.Credit("10.005", date, "Alice Example", "FR1420041010050500013M02606", "Interest"),
		yen,
	})
}

// GenerateDuplicates writes the same booking twice
func (g *Generator) GenerateDuplicates() error {
	date := g.randomDate()
	entry := camttest.Debit("89.90", date, "Online Shop Ltd", "", "Order 1001")
	return g.write("duplicates.xml", []camttest.Entry{entry, entry})
}

// GenerateTruncated writes a statement cut off in the middle, as an aborted download would be
func (g *Generator) GenerateTruncated() error {
	entries := []camttest.Entry{g.randomEntry(0), g.randomEntry(1)}
	data := g.document(entries)
	return os.WriteFile(filepath.Join(g.OutputDir, "truncated.xml"), data[:len(data)*2/3], 0644)
}

func (g *Generator) randomEntry(i int) camttest.Entry {
	party := counterparties[g.rnd.Intn(len(counterparties))]
	amount := g.randomAmount().StringFixed(2)
	date := g.randomDate()

	var remittance string
	if g.rnd.Intn(2) == 0 {
		remittance = fmt.Sprintf(numberedRemittances[g.rnd.Intn(len(numberedRemittances))], 1000+i)
	} else {
		remittance = fmt.Sprintf(monthlyRemittances[g.rnd.Intn(len(monthlyRemittances))], date[:7])
	}

	var entry camttest.Entry
	if g.rnd.Float64() < 0.6 { // 60% debits
		entry = camttest.Debit(amount, date, party.Name, party.IBAN, remittance)
	} else {
		entry = camttest.Credit(amount, date, party.Name, party.IBAN, remittance)
	}
	entry.AcctSvcrRef = fmt.Sprintf("REF%06d", i)
	return entry
}

func (g *Generator) randomAmount() decimal.Decimal {
	amountRange := g.MaxAmount.Sub(g.MinAmount)
	return decimal.NewFromFloat(g.rnd.Float64()).Mul(amountRange).Add(g.MinAmount).Round(2)
}

func (g *Generator) randomDate() string {
	days := int(g.EndDate.Sub(g.StartDate).Hours()/24) + 1
	return g.StartDate.AddDate(0, 0, g.rnd.Intn(days)).Format("2006-01-02")
}

func (g *Generator) document(entries []camttest.Entry) []byte {
	return camttest.Document(camttest.Statement{
		ID:       fmt.Sprintf("STMT-%d", g.Seed),
		IBAN:     accountIBAN,
		Currency: "EUR",
		Entries:  entries,
	})
}

func (g *Generator) write(name string, entries []camttest.Entry) error {
	path := filepath.Join(g.OutputDir, name)
	if err := os.WriteFile(path, g.document(entries), 0644); err != nil {
		return err
	}
	fmt.Printf("  %-28s %d entries\n", name, len(entries))
	return nil
}
