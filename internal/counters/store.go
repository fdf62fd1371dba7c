// Package counters persists small named key/value namespaces such as the
// learner's streak and XP totals.
package counters

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"hskmaster/internal/config"
	"hskmaster/internal/database"
)

// ErrUnknownBackend is returned by Open for an unrecognised backend name
var ErrUnknownBackend = errors.New("unknown counter backend")

// Store loads and saves whole namespaces. Save writes every key of the
// namespace in one batch; keys not present in values are left untouched.
type Store interface {
	Load(ctx context.Context, namespace string) (Values, error)
	Save(ctx context.Context, namespace string, values Values) error
	Clear(ctx context.Context, namespace string) error
	Close() error
}

// Values is one namespace's keys. Everything is stored as a string; the typed
// accessors return the fallback when a key is missing or unparsable.
type Values map[string]string

// Int returns key as an int
func (v Values) Int(key string, fallback int) int {
	s, ok := v[key]
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

// String returns key as a string
func (v Values) String(key, fallback string) string {
	s, ok := v[key]
	if !ok {
		return fallback
	}
	return s
}

// Bool returns key as a bool
func (v Values) Bool(key string, fallback bool) bool {
	s, ok := v[key]
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return fallback
	}
	return b
}

// SetInt stores an int
func (v Values) SetInt(key string, n int) {
	v[key] = strconv.Itoa(n)
}

// SetString stores a string
func (v Values) SetString(key, s string) {
	v[key] = s
}

// SetBool stores a bool
func (v Values) SetBool(key string, b bool) {
	v[key] = strconv.FormatBool(b)
}

func (v Values) clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Open builds the store selected by cfg.CounterBackend. The sql backend
// shares db, which must already be migrated.
func Open(cfg *config.Config, db *database.DB) (Store, error) {
	switch cfg.CounterBackend {
	case "bolt", "":
		return OpenBolt(cfg.CounterPath)
	case "sql":
		if db == nil {
			return nil, fmt.Errorf("sql counter backend needs a database")
		}
		return NewSQLStore(db), nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.CounterBackend)
	}
}
