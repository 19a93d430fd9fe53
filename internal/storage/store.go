// Package storage persists the ledger state as opaque values under string
// keys. Backends store bytes verbatim; encoding is the caller's concern.
package storage

import (
	"context"
	"errors"
)

var ErrEmptyKey = errors.New("empty storage key")

// Store is the persistence port used by the ledger service.
type Store interface {
	// Save stores value under key, replacing any previous value.
	Save(ctx context.Context, key string, value []byte) error
	// Load returns the value for key and whether it exists.
	Load(ctx context.Context, key string) ([]byte, bool, error)
}

// Keys groups the logical keys for one application identifier.
type Keys struct {
	Groups   string
	Expenses string
	Members  string
}

// KeysFor derives the storage keys for an application identifier,
// e.g. "litepay" -> "litepay-groups".
func KeysFor(appID string) Keys {
	return Keys{
		Groups:   appID + "-groups",
		Expenses: appID + "-expenses",
		Members:  appID + "-members",
	}
}
