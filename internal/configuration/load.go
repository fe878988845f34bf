package configuration

import (
	"bytes"
	"io"
	"os"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"golang-camt-importer/pkg/errors"
)

// Load reads a YAML mapping profile from fs.
func Load(fs afero.Fs, path string) (*Configuration, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		code := errors.CodeFileNotFound
		if os.IsPermission(err) {
			code = errors.CodeFilePermission
		}
		return nil, errors.FileError(code, path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		if importerErr, ok := errors.AsImporterError(err); ok {
			importerErr.WithContext("profile", path)
		}
		return nil, err
	}
	return cfg, nil
}

// Parse decodes a YAML mapping profile on top of Default, then normalizes and validates it.
func Parse(data []byte) (*Configuration, error) {
	cfg := Default()
	// separators are derived from the profile's language unless set explicitly
	cfg.Locale = Locale{}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && err != io.EOF {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "mapping profile", "yaml", err).
			WithSuggestion("check the profile syntax and setting names")
	}

	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal renders the configuration as a YAML mapping profile
func (c *Configuration) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
