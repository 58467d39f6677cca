// Package session persists serialized conversation snapshots keyed by session id.
package session

import "context"

// Store is the durable mapping session-id -> snapshot bytes. Entries persist
// indefinitely; the engine consults the store only on in-memory cache miss
// and writes on every completed transition. Writes are last-writer-wins per
// key.
type Store interface {
	// Exists reports whether a snapshot is stored for the session.
	Exists(ctx context.Context, chatID int64) (bool, error)
	// Get returns the stored snapshot bytes.
	Get(ctx context.Context, chatID int64) ([]byte, error)
	// Put stores the snapshot bytes, replacing any previous value.
	Put(ctx context.Context, chatID int64, snapshot []byte) error
}
