// Package genstore tracks walk generations: a monotonic counter per page
// sequence. A fetch cycle records the generation it was started under and
// commits its results only while that generation is still current, so a slow
// superseded walk cannot clobber a newer one's writes.
package genstore

import (
	"context"
	"time"
)

// GenStore abstracts where generations live.
// Use LocalGenStore (default) for in-process generations, or RedisGenStore to
// share supersession across replicas.
type GenStore interface {
	// Snapshot returns the current generation; missing => 0.
	Snapshot(ctx context.Context, storageKey string) (uint64, error)
	// Bump atomically increments and returns the new generation.
	Bump(ctx context.Context, storageKey string) (uint64, error)
	// Cleanup prunes old metadata if applicable (no-op for Redis).
	Cleanup(retention time.Duration)
	// Close releases resources (no-op ok).
	Close(context.Context) error
}
