// Package dedup tracks which item identities have already been delivered,
// so reappearing feed entries are suppressed across runs.
package dedup

import (
	"context"
	"time"
)

// Store is the persistent seen-record keeper. MarkSeen is idempotent: the
// first-seen timestamp of an existing record is never overwritten, so
// retention counts from true first appearance. Implementations are not safe
// for concurrent use; the pipeline serializes all access.
type Store interface {
	IsSeen(ctx context.Context, identity string) (bool, error)
	MarkSeen(ctx context.Context, identity string, firstSeen time.Time) error
	// Prune removes records with now - firstSeen > retention and returns the
	// number removed.
	Prune(ctx context.Context, retention time.Duration, now time.Time) (int, error)
	// Persist flushes the store to durable storage. Backends that write
	// through on every mark may treat it as a no-op.
	Persist(ctx context.Context) error
	Close() error
}

var (
	_ Store = (*FileStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
