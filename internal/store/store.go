package store

import (
	"context"
	"errors"
	"time"
)

// KeyToken is the key under which the session token is persisted.
const KeyToken = "token"

// ErrNotFound is returned when a key has no value.
var ErrNotFound = errors.New("not found")

// KVStore handles persistent key-value storage.
type KVStore interface {
	// Get returns the value for key or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Store aggregates all storage interfaces.
type Store interface {
	KVStore

	// Close closes the underlying database connection.
	Close() error
}

const lookupTimeout = 2 * time.Second

// Credentials exposes the single "token" lookup the sync layer consults.
type Credentials struct {
	kv KVStore
}

// NewCredentials wraps a key-value store.
func NewCredentials(kv KVStore) *Credentials {
	return &Credentials{kv: kv}
}

// Token returns the stored token, or "" when none is stored or the lookup fails.
func (c *Credentials) Token() string {
	if c == nil || c.kv == nil {
		return ""
	}
	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()

	token, err := c.kv.Get(ctx, KeyToken)
	if err != nil {
		return ""
	}
	return token
}

// HasToken reports whether a non-empty token is stored.
func (c *Credentials) HasToken() bool {
	return c.Token() != ""
}

// SetToken persists a token.
func (c *Credentials) SetToken(ctx context.Context, token string) error {
	return c.kv.Set(ctx, KeyToken, token)
}

// ClearToken forgets the stored token.
func (c *Credentials) ClearToken(ctx context.Context) error {
	return c.kv.Delete(ctx, KeyToken)
}
