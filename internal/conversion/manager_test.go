package conversion

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"reflect"
	"strings"
	"testing"

	"golang-camt-importer/internal/camt"
	"golang-camt-importer/internal/camt/camttest"
	"golang-camt-importer/internal/configuration"
	"golang-camt-importer/internal/content"
	"golang-camt-importer/internal/identifier"
	"golang-camt-importer/pkg/errors"
)

const accountIBAN = "DE89370400440532013000"

func testConfig() *configuration.Configuration {
	cfg := configuration.Default()
	cfg.DefaultAccount = "Suspense"
	cfg.AccountMapping[accountIBAN] = "Giro"
	return cfg
}

func statement(entries ...camttest.Entry) []byte {
	return camttest.Document(camttest.Statement{
		ID:      "STMT-1",
		IBAN:    accountIBAN,
		Entries: entries,
	})
}

func newRun(t *testing.T, cfg *configuration.Configuration, data []byte) *RoutineManager {
	t.Helper()
	manager, err := NewRoutineManager("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != nil {
		if err := manager.Configure(cfg); err != nil {
			t.Fatalf("unexpected configure error: %v", err)
		}
	}
	manager.SetContent(data)
	return manager
}

type countingService struct {
	generated int
	adopted   int
}

func (s *countingService) Generate() string {
	s.generated++
	return "generated"
}

func (s *countingService) Adopt(token string) (string, error) {
	s.adopted++
	return token, identifier.Validate(token)
}

func TestNewRoutineManagerIdentifier(t *testing.T) {
	generated, err := NewRoutineManager("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := identifier.Validate(generated.RunID()); err != nil {
		t.Errorf("expected a valid generated run id, got %q: %v", generated.RunID(), err)
	}

	adopted, err := NewRoutineManager("import_2024-03")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if adopted.RunID() != "import_2024-03" {
		t.Errorf("expected adopted run id, got %q", adopted.RunID())
	}

	if _, err := NewRoutineManager("../etc/passwd"); err == nil {
		t.Error("expected an unsafe token to be rejected")
	}

	tests := []struct {
		token    string
		generate int
		adopt    int
	}{
		{"", 1, 0},
		{"given", 0, 1},
	}
	for _, tt := range tests {
		svc := &countingService{}
		if _, err := NewRoutineManager(tt.token, WithIdentifierService(svc)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if svc.generated != tt.generate || svc.adopted != tt.adopt {
			t.Errorf("token %q: expected %d/%d generate/adopt calls, got %d/%d",
				tt.token, tt.generate, tt.adopt, svc.generated, svc.adopted)
		}
	}
}

func TestRunWithoutConfiguration(t *testing.T) {
	manager := newRun(t, nil, statement(camttest.Credit("1.00", "2024-03-01", "A", "", "a")))

	transactions, err := manager.Run(context.Background())

	var notConfigured *errors.NotConfiguredError
	if !stderrors.As(err, &notConfigured) {
		t.Fatalf("expected NotConfiguredError, got %v", err)
	}
	if notConfigured.RunID != manager.RunID() {
		t.Errorf("expected run id %s in error, got %s", manager.RunID(), notConfigured.RunID)
	}
	if transactions != nil {
		t.Errorf("expected no transactions, got %v", transactions)
	}
}

func TestConfigure(t *testing.T) {
	manager := newRun(t, testConfig(), nil)

	err := manager.Configure(testConfig())
	importerErr, ok := errors.AsImporterError(err)
	if !ok || importerErr.Code != errors.CodeAlreadyConfigured {
		t.Errorf("expected already configured error, got %v", err)
	}

	fresh, _ := NewRoutineManager("")
	if err := fresh.Configure(nil); err == nil {
		t.Error("expected nil configuration to be rejected")
	}

	invalid := testConfig()
	invalid.DefaultAccount = ""
	if err := fresh.Configure(invalid); err == nil {
		t.Error("expected invalid configuration to be rejected")
	}
	if err := fresh.Configure(testConfig()); err != nil {
		t.Errorf("expected a rejected configuration not to count, got %v", err)
	}
}

func TestConfigureKeepsACopy(t *testing.T) {
	cfg := testConfig()
	manager := newRun(t, cfg, statement(camttest.Credit("1.00", "2024-03-01", "A", "", "a")))

	cfg.AccountMapping[accountIBAN] = "Changed"
	cfg.DefaultAccount = "Changed"

	transactions, err := manager.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := transactions[0].AssetAccount.Identifier; got != "Giro" {
		t.Errorf("expected the configured mapping, got %s", got)
	}
	if got := transactions[0].OpposingAccount.Identifier; got != "Suspense" {
		t.Errorf("expected the configured default account, got %s", got)
	}
}

func TestAccessorsBeforeRun(t *testing.T) {
	manager := newRun(t, testConfig(), nil)

	for name, got := range map[string][][]string{
		"messages": manager.AllMessages(),
		"warnings": manager.AllWarnings(),
		"errors":   manager.AllErrors(),
	} {
		if got == nil || len(got) != 0 {
			t.Errorf("expected empty %s before run, got %v", name, got)
		}
	}
	if manager.Result() != nil {
		t.Error("expected no result before run")
	}
}

func TestRunAmbiguousSignScenario(t *testing.T) {
	ambiguous := camttest.Credit("-20.00", "2024-03-02", "Bob", "DE02120300000000202051", "refund?")

	manager := newRun(t, testConfig(), statement(
		camttest.Credit("10.00", "2024-03-01", "Alice", "DE02100100100006820101", "invoice 1"),
		ambiguous,
		camttest.Credit("30.00", "2024-03-03", "Carol", "DE02500105170137075030", "invoice 3"),
	))

	transactions, err := manager.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(transactions) != 2 || transactions[0].Index != 0 || transactions[1].Index != 2 {
		t.Fatalf("expected transactions at indices 0 and 2, got %v", transactions)
	}

	errs := manager.AllErrors()
	if len(errs) != 3 {
		t.Fatalf("expected 3 error slots, got %d", len(errs))
	}
	if len(errs[0]) != 0 || len(errs[1]) == 0 || len(errs[2]) != 0 {
		t.Errorf("expected errors only at index 1, got %v", errs)
	}
	for _, index := range []int{0, 2} {
		if len(manager.AllWarnings()[index]) != 0 || len(manager.AllMessages()[index]) != 0 {
			t.Errorf("expected no warnings or messages at %d, got %v / %v",
				index, manager.AllWarnings()[index], manager.AllMessages()[index])
		}
	}
}

func TestRunMissingCounterpartyScenario(t *testing.T) {
	manager := newRun(t, testConfig(), statement(
		camttest.Credit("10.00", "2024-03-01", "Alice", "", "no account"),
	))

	transactions, err := manager.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(transactions) != 1 {
		t.Fatalf("expected the entry to be converted, got %d transactions", len(transactions))
	}
	if got := transactions[0].OpposingAccount.Identifier; got != "Suspense" {
		t.Errorf("expected default account Suspense, got %s", got)
	}
	if warnings := manager.AllWarnings()[0]; len(warnings) != 1 {
		t.Errorf("expected one warning at 0, got %v", warnings)
	}
}

func TestRunLengthLaw(t *testing.T) {
	batch := camttest.Entry{
		Amount:      "30.00",
		Currency:    "EUR",
		CreditDebit: "DBIT",
		BookingDate: "2024-03-05",
		Details: []camttest.Details{
			{Amount: "10.00", CreditorName: "Shop A", CreditorIBAN: "FR1420041010050500013M02606", Remittance: []string{"A"}},
			{CreditorName: "Shop B", Remittance: []string{"B"}},
			{Amount: "20.00", CreditorName: "Shop C", Remittance: []string{"C"}},
		},
	}
	data := statement(camttest.Credit("1.00", "2024-03-01", "A", "", "a"), batch)

	tests := []struct {
		level   camt.Level
		records int
	}{
		{camt.LevelA, 2},
		{camt.LevelB, 4},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			cfg := testConfig()
			cfg.Level = tt.level
			manager := newRun(t, cfg, data)

			transactions, err := manager.Run(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if len(transactions) > tt.records {
				t.Errorf("expected at most %d transactions, got %d", tt.records, len(transactions))
			}
			for name, slots := range map[string][][]string{
				"messages": manager.AllMessages(),
				"warnings": manager.AllWarnings(),
				"errors":   manager.AllErrors(),
			} {
				if len(slots) != tt.records {
					t.Errorf("expected %d %s slots, got %d", tt.records, name, len(slots))
				}
			}

			previous := -1
			for _, tx := range transactions {
				if tx.Index <= previous || tx.Index >= tt.records {
					t.Errorf("unexpected index order: %d after %d", tx.Index, previous)
				}
				if len(manager.AllErrors()[tx.Index]) != 0 {
					t.Errorf("expected no errors at converted index %d", tx.Index)
				}
				previous = tx.Index
			}

			if got := manager.Result().Summary(); got.Records != tt.records || got.Transactions != len(transactions) {
				t.Errorf("unexpected summary %s", got)
			}
		})
	}
}

func TestRunMalformedFailsFast(t *testing.T) {
	good := statement(camttest.Credit("1.00", "2024-03-01", "A", "", "a"))
	manager := newRun(t, testConfig(), good)
	if _, err := manager.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	manager.SetContent(good[:len(good)/2])
	transactions, err := manager.Run(context.Background())

	var malformed *errors.MalformedStatementError
	if !stderrors.As(err, &malformed) {
		t.Fatalf("expected MalformedStatementError, got %v", err)
	}
	if transactions != nil {
		t.Errorf("expected no transactions, got %v", transactions)
	}
	if len(manager.AllMessages()) != 0 || len(manager.AllWarnings()) != 0 || len(manager.AllErrors()) != 0 {
		t.Error("expected no diagnostics after a parse failure")
	}
	if manager.Result() != nil {
		t.Error("expected no result after a parse failure")
	}
}

func TestRunIsIdempotent(t *testing.T) {
	data := statement(
		camttest.Credit("10.00", "2024-03-01", "Alice", "", "first"),
		camttest.Credit("-1.00", "2024-03-02", "Bob", "", "bad"),
		camttest.Debit("5.5", "2024-03-03", "Shop", "FR1420041010050500013M02606", "third"),
	)

	run := func() ([]byte, [][]string, [][]string, [][]string) {
		manager := newRun(t, testConfig(), data)
		transactions, err := manager.Run(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		encoded, err := json.Marshal(transactions)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return encoded, manager.AllMessages(), manager.AllWarnings(), manager.AllErrors()
	}

	tx1, m1, w1, e1 := run()
	tx2, m2, w2, e2 := run()

	if string(tx1) != string(tx2) {
		t.Errorf("expected identical transactions:\n%s\n%s", tx1, tx2)
	}
	if !reflect.DeepEqual(m1, m2) || !reflect.DeepEqual(w1, w2) || !reflect.DeepEqual(e1, e2) {
		t.Error("expected identical diagnostics")
	}
}

func TestRunMergesStagesInOrder(t *testing.T) {
	entry := camttest.Credit("10.00", "2024-03-01", "Alice", "DE02100100100006820101", "inherited")
	entry.Currency = ""

	data := camttest.Document(camttest.Statement{
		ID:      "STMT-1",
		IBAN:    "CH9300762011623852957",
		Entries: []camttest.Entry{entry},
	})
	manager := newRun(t, testConfig(), data)

	if _, err := manager.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	messages := manager.AllMessages()[0]
	if len(messages) != 2 {
		t.Fatalf("expected extraction and conversion messages, got %v", messages)
	}
	if !strings.Contains(messages[0], "inherited") || !strings.Contains(messages[1], "default account") {
		t.Errorf("expected extraction before conversion, got %v", messages)
	}
}

func TestRunProcessingDiagnostics(t *testing.T) {
	first := camttest.Credit("10.00", "2024-03-01", "Alice", "DE02100100100006820101", "rent")
	first.Details[0].EndToEndID = "E2E-1"
	second := camttest.Credit("10.00", "2024-03-01", "Alice", "DE02100100100006820101", "rent")
	second.Details[0].EndToEndID = "E2E-1"

	manager := newRun(t, testConfig(), statement(first, second))
	transactions, err := manager.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(transactions) != 2 {
		t.Fatalf("expected duplicates to be kept, got %d transactions", len(transactions))
	}
	if warnings := manager.AllWarnings()[1]; len(warnings) != 1 || !strings.Contains(warnings[0], "record 0") {
		t.Errorf("expected reused external id warning at 1, got %v", warnings)
	}
	if messages := manager.AllMessages()[1]; len(messages) != 1 || !strings.Contains(messages[0], "possible duplicate") {
		t.Errorf("expected duplicate message at 1, got %v", messages)
	}
	if len(manager.AllWarnings()[0]) != 0 {
		t.Errorf("expected the first occurrence to stay clean, got %v", manager.AllWarnings()[0])
	}
}

func TestRunContentSelection(t *testing.T) {
	cliData := statement(camttest.Credit("1.00", "2024-03-01", "CLI", "", "cli"))
	uploadData := statement(
		camttest.Credit("2.00", "2024-03-01", "Upload", "", "upload"),
		camttest.Credit("3.00", "2024-03-01", "Upload", "", "upload 2"),
	)

	tests := []struct {
		name      string
		cli       []byte
		force     bool
		forceCfg  bool
		wantCount int
	}{
		{"source without cli content", nil, false, false, 2},
		{"cli content wins over source", cliData, false, false, 1},
		{"forced by setter", cliData, true, false, 1},
		{"forced by configuration", cliData, false, true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager, err := NewRoutineManager("", WithSource(content.Static(uploadData)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			cfg := testConfig()
			cfg.ForceCLI = tt.forceCfg
			if err := manager.Configure(cfg); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			manager.SetContent(tt.cli)
			manager.SetForceCLI(tt.force)

			transactions, err := manager.Run(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(transactions) != tt.wantCount {
				t.Errorf("expected %d transactions, got %d", tt.wantCount, len(transactions))
			}
		})
	}
}

func TestRunForcedEmptyContent(t *testing.T) {
	manager, err := NewRoutineManager("", WithSource(content.Static(statement(camttest.Credit("2.00", "2024-03-01", "Upload", "", "upload")))))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := manager.Configure(testConfig()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	manager.SetForceCLI(true)

	_, err = manager.Run(context.Background())
	importerErr, ok := errors.AsImporterError(err)
	if !ok || importerErr.Code != errors.CodeEmptyContent {
		t.Errorf("expected empty content error, got %v", err)
	}
}

func TestRunConverterFailure(t *testing.T) {
	manager := newRun(t, testConfig(), statement(camttest.Credit("1.00", "2024-03-01", "Alice", "", "one")))
	// a zone that was valid when configured can disappear from the host
	manager.cfg.Locale.TimeZone = "Mars/Olympus_Mons"

	transactions, err := manager.Run(context.Background())
	if transactions != nil {
		t.Errorf("expected no transactions, got %d", len(transactions))
	}
	importerErr, ok := errors.AsImporterError(err)
	if !ok || importerErr.Category != errors.CategoryConversion {
		t.Fatalf("expected a conversion error, got %v", err)
	}
	if importerErr.GetExitCode() != 5 {
		t.Errorf("expected exit code 5, got %d", importerErr.GetExitCode())
	}
}

func TestRunEmptyContent(t *testing.T) {
	manager := newRun(t, testConfig(), nil)

	_, err := manager.Run(context.Background())
	importerErr, ok := errors.AsImporterError(err)
	if !ok || importerErr.Code != errors.CodeEmptyContent {
		t.Errorf("expected empty content error, got %v", err)
	}
}
