package configuration

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"

	"golang-camt-importer/pkg/errors"
)

// DefaultDateLayouts accept ISO dates and date-times as camt.053 carries them
var DefaultDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// Locale describes how numbers and dates are written in a statement.
type Locale struct {
	Language         string   `yaml:"language" json:"language"`
	DecimalSeparator string   `yaml:"decimal_separator" json:"decimal_separator"`
	GroupSeparator   string   `yaml:"group_separator" json:"group_separator"`
	DateLayouts      []string `yaml:"date_layouts" json:"date_layouts"`
	TimeZone         string   `yaml:"time_zone" json:"time_zone"`
}

// DefaultLocale matches the XML schema notation: "1234.56" and ISO dates in UTC.
func DefaultLocale() Locale {
	return Locale{
		Language:         "en",
		DecimalSeparator: ".",
		GroupSeparator:   "",
		DateLayouts:      append([]string(nil), DefaultDateLayouts...),
		TimeZone:         "UTC",
	}
}

type separators struct {
	decimal string
	group   string
}

// commaDecimal lists languages that write 1.234,56 or 1 234,56.
var commaDecimal = map[string]separators{
	"de": {",", "."},
	"nl": {",", "."},
	"it": {",", "."},
	"es": {",", "."},
	"pt": {",", "."},
	"da": {",", "."},
	"tr": {",", "."},
	"fr": {",", " "},
	"sv": {",", " "},
	"nb": {",", " "},
	"fi": {",", " "},
	"pl": {",", " "},
	"cs": {",", " "},
}

// separatorsFor derives separators from a BCP 47 tag; Switzerland and
// Liechtenstein use 1'234.56 whatever the language.
func separatorsFor(tag language.Tag) separators {
	if region, confidence := tag.Region(); confidence == language.Exact {
		switch region.String() {
		case "CH", "LI":
			return separators{".", "'"}
		}
	}

	base, _ := tag.Base()
	if s, ok := commaDecimal[base.String()]; ok {
		return s
	}
	return separators{".", ","}
}

func (l *Locale) applyDefaults() error {
	if strings.TrimSpace(l.Language) == "" {
		l.Language = "en"
	}

	tag, err := language.Parse(l.Language)
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "locale.language", l.Language, err).
			WithSuggestion("use a BCP 47 language tag such as en, de or fr-CH")
	}

	if l.DecimalSeparator == "" {
		derived := separatorsFor(tag)
		l.DecimalSeparator = derived.decimal
		if l.GroupSeparator == "" {
			l.GroupSeparator = derived.group
		}
	}
	if len(l.DateLayouts) == 0 {
		l.DateLayouts = append([]string(nil), DefaultDateLayouts...)
	}
	if strings.TrimSpace(l.TimeZone) == "" {
		l.TimeZone = "UTC"
	}
	return nil
}

// Validate checks if the locale is usable
func (l *Locale) Validate() error {
	if len([]rune(l.DecimalSeparator)) != 1 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "locale.decimal_separator", l.DecimalSeparator, nil).
			WithSuggestion("use a single character such as '.' or ','")
	}
	if len([]rune(l.GroupSeparator)) > 1 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "locale.group_separator", l.GroupSeparator, nil).
			WithSuggestion("use at most one character")
	}
	if l.GroupSeparator == l.DecimalSeparator {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "locale.group_separator", l.GroupSeparator, nil).
			WithSuggestion("group and decimal separator must differ")
	}
	if strings.ContainsAny(l.DecimalSeparator+l.GroupSeparator, "0123456789+-") {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "locale", fmt.Sprintf("%q/%q", l.DecimalSeparator, l.GroupSeparator), nil).
			WithSuggestion("separators cannot be digits or signs")
	}
	if len(l.DateLayouts) == 0 {
		return errors.ConfigurationError(errors.CodeMissingConfig, "locale.date_layouts", nil, nil)
	}
	if _, err := l.Location(); err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "locale.time_zone", l.TimeZone, err).
			WithSuggestion("use an IANA time zone name such as UTC or Europe/Berlin")
	}
	return nil
}

// Location loads the configured time zone
func (l *Locale) Location() (*time.Location, error) {
	return time.LoadLocation(l.TimeZone)
}
