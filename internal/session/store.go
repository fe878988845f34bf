// Package session keeps short-lived per-session values such as uploaded
// statements and aggregator credentials.
package session

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	DefaultExpiration = 30 * time.Minute
	cleanupInterval   = time.Hour

	keyFormat = "session/%s/%s"
)

// Store is an in-memory TTL store. Values of one session are invisible to other sessions.
type Store struct {
	cache *cache.Cache
}

// NewStore creates a store whose values expire after ttl. A ttl of zero uses DefaultExpiration.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultExpiration
	}
	return &Store{cache: cache.New(ttl, cleanupInterval)}
}

// cacheKey escapes the session id so that no id is a key prefix of another
func cacheKey(sessionID, key string) string {
	return fmt.Sprintf(keyFormat, url.PathEscape(sessionID), key)
}

// Set stores value under key for the session with the store's default expiration.
func (s *Store) Set(sessionID, key string, value interface{}) {
	s.cache.Set(cacheKey(sessionID, key), value, cache.DefaultExpiration)
}

// Get returns the value stored under key for the session
func (s *Store) Get(sessionID, key string) (interface{}, bool) {
	return s.cache.Get(cacheKey(sessionID, key))
}

// GetString returns a string value; values of other types are reported as missing.
func (s *Store) GetString(sessionID, key string) (string, bool) {
	value, ok := s.Get(sessionID, key)
	if !ok {
		return "", false
	}
	str, ok := value.(string)
	return str, ok
}

// GetBytes returns a byte slice value. Strings are converted.
func (s *Store) GetBytes(sessionID, key string) ([]byte, bool) {
	value, ok := s.Get(sessionID, key)
	if !ok {
		return nil, false
	}
	switch v := value.(type) {
	case []byte:
		return v, true
	case string:
		return []byte(v), true
	default:
		return nil, false
	}
}

// Delete removes one key of the session
func (s *Store) Delete(sessionID, key string) {
	s.cache.Delete(cacheKey(sessionID, key))
}

// Clear removes every value of the session
func (s *Store) Clear(sessionID string) {
	prefix := cacheKey(sessionID, "")
	for key := range s.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			s.cache.Delete(key)
		}
	}
}
