// Package credentials resolves the bank-aggregator id and key.
//
// A value saved in the user's session wins over the process environment,
// which in turn wins over an optional .env file.
package credentials

import (
	"context"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"golang-camt-importer/internal/session"
	"golang-camt-importer/pkg/errors"
	"golang-camt-importer/pkg/logger"
)

// Names of the aggregator credentials. The environment uses the upper-case form.
const (
	AggregatorID  = "aggregator_id"
	AggregatorKey = "aggregator_key"
)

// Origin tells where a credential was found
type Origin string

const (
	OriginSession Origin = "session"
	OriginEnv     Origin = "environment"
	OriginDotEnv  Origin = "dotenv"
	OriginNone    Origin = "none"
)

// Provider looks up a named credential
type Provider interface {
	Lookup(ctx context.Context, name string) (string, bool)
}

// SessionProvider reads credentials from one session and falls back to the environment.
type SessionProvider struct {
	store     *session.Store
	sessionID string
	dotenv    map[string]string
	lookupEnv func(string) (string, bool)
	logger    logger.Logger
}

// Option configures a SessionProvider
type Option func(*SessionProvider) error

// WithEnvFile reads fallback values from a .env file. A missing file is skipped.
func WithEnvFile(path string) Option {
	return func(p *SessionProvider) error {
		values, err := godotenv.Read(path)
		if err != nil {
			if os.IsNotExist(err) {
				p.logger.WithField("path", path).Debug("No .env file found, relying on environment variables")
				return nil
			}
			return errors.ConfigurationError(errors.CodeInvalidConfig, "env_file", path, err)
		}
		p.dotenv = values
		return nil
	}
}

// WithLogger sets the logger of the provider
func WithLogger(l logger.Logger) Option {
	return func(p *SessionProvider) error {
		p.logger = l.WithComponent("credentials")
		return nil
	}
}

// NewSessionProvider creates a provider for sessionID. store may be nil when
// no session exists, e.g. on the command line.
func NewSessionProvider(store *session.Store, sessionID string, opts ...Option) (*SessionProvider, error) {
	p := &SessionProvider{
		store:     store,
		sessionID: sessionID,
		dotenv:    map[string]string{},
		lookupEnv: os.LookupEnv,
		logger:    logger.GetGlobalLogger().WithComponent("credentials"),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Lookup returns the credential value; empty values count as missing.
func (p *SessionProvider) Lookup(ctx context.Context, name string) (string, bool) {
	value, origin := p.Resolve(ctx, name)
	return value, origin != OriginNone
}

// Resolve returns the credential value and where it came from
func (p *SessionProvider) Resolve(ctx context.Context, name string) (string, Origin) {
	if ctx.Err() != nil {
		return "", OriginNone
	}

	if p.store != nil && p.sessionID != "" {
		if value, ok := p.store.GetString(p.sessionID, name); ok && value != "" {
			return value, OriginSession
		}
	}
	p.logger.WithField("name", name).Debug("Credential not in session, using environment")

	envName := strings.ToUpper(name)
	if value, ok := p.lookupEnv(envName); ok && value != "" {
		return value, OriginEnv
	}
	if value := p.dotenv[envName]; value != "" {
		return value, OriginDotEnv
	}
	return "", OriginNone
}

// Save stores a credential in the provider's session
func (p *SessionProvider) Save(name, value string) error {
	if p.store == nil || p.sessionID == "" {
		return errors.ValidationError(errors.CodeMissingField, "session", nil, nil).
			WithSuggestion("credentials can only be saved within a session")
	}
	p.store.Set(p.sessionID, name, value)
	return nil
}

// AggregatorCredentials returns the aggregator id and key
func AggregatorCredentials(ctx context.Context, p Provider) (id, key string, err error) {
	id, ok := p.Lookup(ctx, AggregatorID)
	if !ok {
		return "", "", missing(ctx, AggregatorID)
	}
	key, ok = p.Lookup(ctx, AggregatorKey)
	if !ok {
		return "", "", missing(ctx, AggregatorKey)
	}
	return id, key, nil
}

func missing(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.ConfigurationError(errors.CodeMissingConfig, strings.ToUpper(name), nil, nil).
		WithSuggestion("save it in the session or set " + strings.ToUpper(name) + " in the environment or .env file")
}
