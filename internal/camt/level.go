package camt

import (
	"strings"

	"golang-camt-importer/pkg/errors"
)

// Level selects how fine-grained the records of a statement are.
type Level string

const (
	// LevelA yields one record per entry (Ntry).
	LevelA Level = "A"
	// LevelB yields one record per transaction detail (TxDtls), so batch
	// bookings are split. An entry without details is still one record.
	LevelB Level = "B"
)

// DefaultLevel is used when no level is configured
const DefaultLevel = LevelA

// String returns the string representation of Level
func (l Level) String() string {
	return string(l)
}

// IsValid checks if the level is supported
func (l Level) IsValid() bool {
	return l == LevelA || l == LevelB
}

// ParseLevel accepts "A", "b", "level-a" and similar spellings; "" means DefaultLevel.
func ParseLevel(s string) (Level, error) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	normalized = strings.TrimPrefix(normalized, "LEVEL")
	normalized = strings.TrimLeft(normalized, " -_")

	if normalized == "" {
		return DefaultLevel, nil
	}

	level := Level(normalized)
	if !level.IsValid() {
		return "", errors.ConfigurationError(errors.CodeUnsupportedLevel, "level", s, nil)
	}
	return level, nil
}
