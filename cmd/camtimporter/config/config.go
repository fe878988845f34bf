package config

import (
	"github.com/spf13/afero"

	"golang-camt-importer/internal/camt"
	"golang-camt-importer/internal/configuration"
	"golang-camt-importer/internal/content"
	"golang-camt-importer/internal/conversion"
	"golang-camt-importer/internal/reporter"
	"golang-camt-importer/pkg/errors"
	"golang-camt-importer/pkg/logger"
)

// ProfileOptions are command-line overrides of the mapping profile
type ProfileOptions struct {
	Path           string
	Level          string
	DefaultAccount string
	RoundExcess    bool
}

// LoadProfile reads the mapping profile and applies the overrides. Without a
// path the default profile is used.
func LoadProfile(fs afero.Fs, opts ProfileOptions) (*configuration.Configuration, error) {
	cfg := configuration.Default()
	if opts.Path != "" {
		loaded, err := configuration.Load(fs, opts.Path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if opts.Level != "" {
		level, err := camt.ParseLevel(opts.Level)
		if err != nil {
			return nil, err
		}
		cfg.Level = level
	}
	if opts.DefaultAccount != "" {
		cfg.DefaultAccount = opts.DefaultAccount
	}
	if opts.RoundExcess {
		cfg.RoundExcessPrecision = true
	}

	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// CreateInputs creates one batch input per statement file. The identifier is
// only adopted for a single file since run ids must differ.
func CreateInputs(fs afero.Fs, files []string, identifier string) ([]conversion.Input, error) {
	if identifier != "" && len(files) > 1 {
		return nil, errors.ValidationError(errors.CodeInvalidIdentifier, "identifier", identifier, nil).
			WithSuggestion("an identifier can only be given for a single statement file")
	}

	inputs := make([]conversion.Input, 0, len(files))
	for _, file := range files {
		inputs = append(inputs, conversion.Input{
			Identifier: identifier,
			Source:     &content.File{Fs: fs, Path: file},
		})
	}
	return inputs, nil
}

// CreateReportConfig creates a report configuration for the specified output format
func CreateReportConfig(format string) *reporter.ReportConfig {
	config := reporter.DefaultReportConfig()

	switch format {
	case "console":
		config.Format = reporter.FormatConsole
	case "json":
		config.Format = reporter.FormatJSON
	case "csv":
		config.Format = reporter.FormatCSV
		config.CSVHeaders = true
		config.CSVDelimiter = ','
	case "xlsx":
		config.Format = reporter.FormatXLSX
		config.MaxItems = 0 // workbooks list everything
	default:
		config.Format = reporter.OutputFormat(format)
	}

	return config
}

// CreateLoggerConfig creates the logger configuration of the CLI. Logs go to
// stderr so reports on stdout stay clean.
func CreateLoggerConfig(verbose bool, format string) *logger.Config {
	config := logger.DefaultConfig()
	config.Level = logger.WarnLevel
	if verbose {
		config = logger.DebugConfig()
	}
	if format == string(logger.JSONFormat) {
		config.Format = logger.JSONFormat
	}
	return config
}
