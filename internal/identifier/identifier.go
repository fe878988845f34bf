// Package identifier issues the opaque token that scopes one conversion run.
package identifier

import (
	"github.com/google/uuid"

	"golang-camt-importer/pkg/errors"
)

// MaxLength is the longest token Adopt accepts
const MaxLength = 128

// Service generates run identifiers or adopts caller-supplied ones.
type Service interface {
	// Generate returns a fresh token, unique across concurrent runs.
	Generate() string
	// Adopt validates a caller-supplied token and returns it unchanged.
	Adopt(token string) (string, error)
}

// UUIDService issues random (version 4) UUIDs.
type UUIDService struct{}

// NewUUIDService creates the default identifier service
func NewUUIDService() *UUIDService {
	return &UUIDService{}
}

// Generate returns a new UUID string
func (UUIDService) Generate() string {
	return uuid.NewString()
}

// Adopt accepts 1 to MaxLength characters of [A-Za-z0-9_-]. Such tokens are
// safe in URLs and as a single file-system path component.
func (UUIDService) Adopt(token string) (string, error) {
	if err := Validate(token); err != nil {
		return "", err
	}
	return token, nil
}

// Validate checks the shape of a token
func Validate(token string) error {
	if token == "" {
		return errors.ValidationError(errors.CodeMissingField, "identifier", token, nil)
	}
	if len(token) > MaxLength {
		return errors.ValidationError(errors.CodeInvalidIdentifier, "identifier", token, nil).
			WithContext("max_length", MaxLength)
	}
	for _, r := range token {
		if !isTokenRune(r) {
			return errors.ValidationError(errors.CodeInvalidIdentifier, "identifier", token, nil)
		}
	}
	return nil
}

func isTokenRune(r rune) bool {
	return r >= 'a' && r <= 'z' ||
		r >= 'A' && r <= 'Z' ||
		r >= '0' && r <= '9' ||
		r == '-' || r == '_'
}

// Resolve adopts token when one is given and generates a new one otherwise.
// Exactly one of the two service calls is made.
func Resolve(svc Service, token string) (string, error) {
	if token == "" {
		return svc.Generate(), nil
	}
	return svc.Adopt(token)
}
