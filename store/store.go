package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// DefaultPrefix namespaces keys when no prefix is configured.
const DefaultPrefix = "itm_"

var (
	// ErrNotFound is returned by Get when the key is absent.
	ErrNotFound = errors.New("store: key not found")
	// ErrUnavailable marks a backend that could not be reached.
	ErrUnavailable = errors.New("store: backend unavailable")
)

// Scope selects what Clear removes.
type Scope int

const (
	// ScopePrefix removes only keys under the store's prefix.
	ScopePrefix Scope = iota
	// ScopeAll removes every key the backend holds.
	ScopeAll
)

// Store is a namespaced key-value store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context, scope Scope) error
}

// Error describes a failed store operation.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsStorageError reports whether err came from a failing backend rather than
// a missing key.
func IsStorageError(err error) bool {
	var se *Error
	return errors.As(err, &se)
}

// GetJSON decodes the value at key into v. It reports false with a nil error
// when the key is absent.
func GetJSON(ctx context.Context, s Store, key string, v any) (bool, error) {
	raw, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, &Error{Op: "decode", Key: key, Err: err}
	}
	return true, nil
}

// SetJSON encodes v and stores it at key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return &Error{Op: "encode", Key: key, Err: err}
	}
	return s.Set(ctx, key, raw)
}

func normalizePrefix(prefix string) string {
	if prefix == "" {
		return DefaultPrefix
	}
	return prefix
}
