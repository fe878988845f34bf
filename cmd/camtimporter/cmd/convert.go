package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"golang-camt-importer/cmd/camtimporter/config"
	"golang-camt-importer/internal/camt"
	"golang-camt-importer/internal/configuration"
	"golang-camt-importer/internal/conversion"
	"golang-camt-importer/internal/reporter"
	"golang-camt-importer/pkg/errors"
	"golang-camt-importer/pkg/logger"
)

// Flags for the convert command
var (
	files          []string
	mappingFile    string
	level          string
	defaultAccount string
	roundExcess    bool
	outputFormat   string
	outputFile     string
	identifier     string
	concurrency    int
	fromStdin      bool
)

// convertCmd represents the convert command
var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert CAMT.053 statements into transactions",
	Long: `Convert parses CAMT.053 statements, extracts one record per entry
(level A) or per transaction detail (level B) and converts every record into
a transaction. Records that cannot be converted are reported with their
errors instead of being imported.

Examples:
  # Convert one statement with the default profile
  camtimporter convert --file statement.xml

  # Several statements in parallel with a mapping profile
  camtimporter convert --file jan.xml,feb.xml --mapping profile.yaml --concurrency 2

  # Split batch bookings and write a JSON report
  camtimporter convert --file statement.xml --level B \
    --output-format json --output-file report.json

  # Read the statement from stdin and keep a known run id
  cat statement.xml | camtimporter convert --stdin --identifier import-2024-03

  # Spreadsheet report
  camtimporter convert --file statement.xml --output-format xlsx --output-file report.xlsx`,

	PreRunE: validateConvertFlags,
	RunE:    runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	// Input flags
	convertCmd.Flags().StringSliceVarP(&files, "file", "i", []string{}, "comma-separated paths to CAMT.053 statement files")
	convertCmd.Flags().BoolVar(&fromStdin, "stdin", false, "read a single statement from stdin")
	convertCmd.Flags().StringVar(&identifier, "identifier", "", "run id to adopt instead of generating one (single statement only)")

	// Profile flags
	convertCmd.Flags().StringVarP(&mappingFile, "mapping", "m", "", "path to the YAML mapping profile")
	convertCmd.Flags().StringVarP(&level, "level", "l", "", "record level: A (per entry) or B (per transaction detail)")
	convertCmd.Flags().StringVar(&defaultAccount, "default-account", "", "account used when no mapping applies")
	convertCmd.Flags().BoolVar(&roundExcess, "round", false, "round amounts with too many decimal places instead of rejecting them")

	// Output flags
	convertCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json, csv, xlsx")
	convertCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")

	convertCmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0, "statements converted in parallel (default: number of CPUs)")

	viper.BindPFlag("file", convertCmd.Flags().Lookup("file"))
	viper.BindPFlag("stdin", convertCmd.Flags().Lookup("stdin"))
	viper.BindPFlag("identifier", convertCmd.Flags().Lookup("identifier"))
	viper.BindPFlag("mapping", convertCmd.Flags().Lookup("mapping"))
	viper.BindPFlag("level", convertCmd.Flags().Lookup("level"))
	viper.BindPFlag("default-account", convertCmd.Flags().Lookup("default-account"))
	viper.BindPFlag("round", convertCmd.Flags().Lookup("round"))
	viper.BindPFlag("output-format", convertCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", convertCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("concurrency", convertCmd.Flags().Lookup("concurrency"))
}

func validateConvertFlags(cmd *cobra.Command, args []string) error {
	// Get values from viper (allows override from config file)
	files = viper.GetStringSlice("file")
	fromStdin = viper.GetBool("stdin")
	identifier = viper.GetString("identifier")
	mappingFile = viper.GetString("mapping")
	level = viper.GetString("level")
	defaultAccount = viper.GetString("default-account")
	roundExcess = viper.GetBool("round")
	outputFormat = viper.GetString("output-format")
	outputFile = viper.GetString("output-file")
	concurrency = viper.GetInt("concurrency")

	if fromStdin && len(files) > 0 {
		return fmt.Errorf("--stdin cannot be combined with --file")
	}
	if !fromStdin && len(files) == 0 {
		return fmt.Errorf("at least one statement file is required (use --file or --stdin)")
	}

	for i, file := range files {
		if err := validateFileExists(file, fmt.Sprintf("statement file %d", i+1)); err != nil {
			return err
		}
	}
	if mappingFile != "" {
		if err := validateFileExists(mappingFile, "mapping profile"); err != nil {
			return err
		}
	}

	if identifier != "" && len(files) > 1 {
		return fmt.Errorf("--identifier can only be used with a single statement")
	}

	if level != "" {
		if _, err := camt.ParseLevel(level); err != nil {
			return fmt.Errorf("invalid level '%s'. Valid levels: A, B", level)
		}
	}

	format := reporter.OutputFormat(outputFormat)
	if !format.IsValid() {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv, xlsx", outputFormat)
	}
	if format.IsBinary() && outputFile == "" {
		return fmt.Errorf("output format '%s' requires --output-file", outputFormat)
	}

	if concurrency < 0 {
		return fmt.Errorf("concurrency cannot be negative")
	}

	// Validate output file directory exists if specified
	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

// commandContext returns the command's context, which is unset when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("%s is not readable: %w", description, err)
	}
	file.Close()

	return nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt)
	defer stop()

	log := logger.GetGlobalLogger().WithComponent("cli")
	fs := afero.NewOsFs()

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Starting conversion...\n")
		if fromStdin {
			fmt.Fprintf(os.Stderr, "Statement: stdin\n")
		} else {
			fmt.Fprintf(os.Stderr, "Statements: %s\n", strings.Join(files, ", "))
		}
		if mappingFile != "" {
			fmt.Fprintf(os.Stderr, "Mapping profile: %s\n", mappingFile)
		}
		fmt.Fprintf(os.Stderr, "Output format: %s\n", outputFormat)
		if outputFile != "" {
			fmt.Fprintf(os.Stderr, "Output file: %s\n", outputFile)
		}
	}

	cfg, err := config.LoadProfile(fs, config.ProfileOptions{
		Path:           mappingFile,
		Level:          level,
		DefaultAccount: defaultAccount,
		RoundExcess:    roundExcess,
	})
	if err != nil {
		return err
	}

	var outcomes []conversion.Outcome
	if fromStdin {
		outcomes = []conversion.Outcome{convertStdin(ctx, cmd.InOrStdin(), cfg, log)}
	} else {
		inputs, err := config.CreateInputs(fs, files, identifier)
		if err != nil {
			return err
		}
		outcomes = conversion.RunBatch(ctx, cfg, inputs, concurrency, conversion.WithLogger(log))
	}

	results, failures := splitOutcomes(outcomes)
	if len(results) > 0 {
		if err := writeReport(cmd, results, log); err != nil {
			return err
		}
	}

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "\nConversion completed: %d of %d statements converted.\n", len(results), len(outcomes))
		for _, result := range results {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", result.RunID, result.Summary())
		}
	}

	return failures
}

// convertStdin converts a single statement buffer, the way a run started from
// the command line does.
func convertStdin(ctx context.Context, in io.Reader, cfg *configuration.Configuration, log logger.Logger) conversion.Outcome {
	outcome := conversion.Outcome{}

	data, err := io.ReadAll(in)
	if err != nil {
		outcome.Err = errors.FileError(errors.CodeFilePermission, "stdin", err)
		return outcome
	}

	manager, err := conversion.NewRoutineManager(identifier, conversion.WithLogger(log))
	if err != nil {
		outcome.Err = err
		return outcome
	}
	outcome.RunID = manager.RunID()

	if err := manager.Configure(cfg); err != nil {
		outcome.Err = err
		return outcome
	}
	manager.SetContent(data)
	manager.SetForceCLI(true)

	if _, err := manager.Run(ctx); err != nil {
		outcome.Err = err
		return outcome
	}
	outcome.Result = manager.Result()
	return outcome
}

// splitOutcomes separates converted runs from failed ones. Failures are
// printed and returned as one error summary.
func splitOutcomes(outcomes []conversion.Outcome) ([]*conversion.Result, error) {
	var results []*conversion.Result
	var failed []*errors.ImporterError

	for _, outcome := range outcomes {
		if outcome.Err == nil {
			results = append(results, outcome.Result)
			continue
		}

		fmt.Fprintf(os.Stderr, "Failed to convert %s: %v\n", describeInput(outcome), outcome.Err)
		var malformed *errors.MalformedStatementError
		if stderrors.As(outcome.Err, &malformed) {
			fmt.Fprintf(os.Stderr, "%s\n", malformed.GetDetailedError())
		}

		failed = append(failed, errors.WrapIfNeeded(outcome.Err, errors.CategoryInternal, errors.CodeUnexpectedError, outcome.Err.Error()))
	}

	if len(failed) == 0 {
		return results, nil
	}
	if len(failed) == 1 {
		return results, failed[0]
	}
	return results, errors.NewErrorSummary(failed)
}

func describeInput(outcome conversion.Outcome) string {
	if outcome.Input.Source != nil {
		return outcome.Input.Source.Name()
	}
	if outcome.RunID != "" {
		return "run " + outcome.RunID
	}
	return "statement"
}

func writeReport(cmd *cobra.Command, results []*conversion.Result, log logger.Logger) error {
	generator, err := reporter.NewSafeReportGenerator(config.CreateReportConfig(outputFormat), log)
	if err != nil {
		return err
	}

	return logger.TimedOperation("write_report", log, func() error {
		var output io.Writer = cmd.OutOrStdout()
		if outputFile != "" {
			file, err := os.Create(outputFile)
			if err != nil {
				return errors.FileError(errors.CodeFilePermission, outputFile, err)
			}
			defer file.Close()
			output = file
		}

		if err := generator.GenerateReportSafely(results, output); err != nil {
			return err
		}
		if outputFile != "" {
			log.Infof("Report of %d runs written to %s", len(results), outputFile)
		}
		return nil
	})
}
