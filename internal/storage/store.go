// Package storage provides the durable key-value store for the two persisted
// records: the user progress aggregate and the in-flight session checkpoint.
package storage

import (
	"context"

	"judgequiz/internal/models"
)

// Fixed record keys. Each record is one standalone JSON document.
const (
	// ProgressKey names the user progress record
	ProgressKey = "progress.json"
	// CheckpointKey names the in-flight session checkpoint record
	CheckpointKey = "current-session.json"
)

// SchemaVersion is the current progress record schema version.
const SchemaVersion = "1.1.0"

// Store is the durable store for progress and checkpoint records.
//
// Failure semantics: corrupt or missing records read back as (nil, nil); write
// failures beyond the single quota-prune retry are absorbed after logging and
// surfaced through the event hook. Callers treat absence as a normal case and
// never receive storage-level panics.
type Store interface {
	// LoadProgress returns the persisted aggregate, migrating old schema
	// versions (and persisting the migrated record) before returning.
	// Absent or corrupt data yields (nil, nil).
	LoadProgress(ctx context.Context) (*models.UserProgress, error)
	// SaveProgress stamps LastActive and writes the aggregate through. On a
	// quota failure it prunes history to the retention cap and retries once.
	SaveProgress(ctx context.Context, progress *models.UserProgress) error
	// SaveCheckpoint overwrites the in-flight session snapshot wholesale.
	SaveCheckpoint(ctx context.Context, checkpoint *models.SessionCheckpoint) error
	// LoadCheckpoint returns the in-flight session snapshot, or (nil, nil).
	LoadCheckpoint(ctx context.Context) (*models.SessionCheckpoint, error)
	// ClearCheckpoint removes the snapshot. Clearing an absent snapshot is a no-op.
	ClearCheckpoint(ctx context.Context) error
	// ResetAll deletes both records unconditionally.
	ResetAll(ctx context.Context) error
	// Size reports the bytes currently used by persisted records.
	Size() int64
}
