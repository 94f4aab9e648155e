package state

import "context"

// StateReader is the read-only half of the store: point lookups, a
// prefix listing, and an optional search. Operators that only need to
// observe state (e.g. a hook inspecting prior run history) can depend on
// this narrower interface instead of the full StateStore.
type StateReader interface {
	// Read returns the value stored at scope/key. found is false, err is
	// nil when the key simply doesn't exist.
	Read(ctx context.Context, scope Scope, key string) (value []byte, found bool, err error)

	// List returns every entry in scope whose key has the given prefix,
	// sorted by key. An empty prefix lists the whole scope.
	List(ctx context.Context, scope Scope, prefix string) ([]Entry, error)

	// Search ranks entries in scope against query. Implementations that
	// don't support search return (nil, nil) rather than an error.
	Search(ctx context.Context, scope Scope, query string, limit int) ([]SearchResult, error)
}

// StateStore adds mutation to StateReader.
type StateStore interface {
	StateReader

	// Write upserts value at scope/key.
	Write(ctx context.Context, scope Scope, key string, value []byte) error

	// Delete removes scope/key. Deleting a missing key is not an error.
	Delete(ctx context.Context, scope Scope, key string) error
}
