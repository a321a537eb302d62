package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"judgequiz/internal/config"
	"judgequiz/internal/models"
	"judgequiz/internal/observability"
	contextutils "judgequiz/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// FileStore persists each record as one JSON document under a directory,
// with an optional byte quota on the progress record mirroring the storage
// cap the app originally lived under.
type FileStore struct {
	dir          string
	quotaBytes   int64
	retentionCap int
	logger       *observability.Logger
	events       observability.EventHook
}

// NewFileStore creates the storage directory if needed and returns a store.
func NewFileStore(cfg config.StorageConfig, logger *observability.Logger, events observability.EventHook) (*FileStore, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrStorageWrite, "failed to create storage directory %s: %w", cfg.Dir, err)
	}
	retention := cfg.RetentionCap
	if retention <= 0 {
		retention = config.DefaultRetentionCap
	}
	return &FileStore{
		dir:          cfg.Dir,
		quotaBytes:   cfg.QuotaBytes,
		retentionCap: retention,
		logger:       logger,
		events:       events,
	}, nil
}

// LoadProgress implements Store. Corrupt data is treated as absent so the
// caller re-initializes instead of crashing.
func (fs *FileStore) LoadProgress(ctx context.Context) (result0 *models.UserProgress, err error) {
	ctx, span := observability.TraceStorageFunction(ctx, "load_progress")
	defer observability.FinishSpan(span, &err)

	data, err := os.ReadFile(fs.path(ProgressKey))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		fs.logger.Warn(ctx, "Failed to read progress record", map[string]interface{}{"error": err.Error()})
		return nil, nil
	}

	progress := &models.UserProgress{}
	if err := json.Unmarshal(data, progress); err != nil {
		fs.logger.Warn(ctx, "Progress record is corrupt, treating as absent", map[string]interface{}{"error": err.Error()})
		fs.emit(ctx, observability.EventCorruptRecord, map[string]interface{}{"key": ProgressKey})
		return nil, nil
	}

	// Schema-version mismatch and self-healing of missing maps, with
	// write-back-on-read so the upgrade is persisted before first use.
	if migrated, from := MigrateProgress(progress); migrated {
		fs.logger.Info(ctx, "Migrated progress record", map[string]interface{}{
			"from_version": from,
			"to_version":   progress.Version,
		})
		fs.emit(ctx, observability.EventSchemaMigrated, map[string]interface{}{
			"from_version": from,
			"to_version":   progress.Version,
		})
		if err := fs.SaveProgress(ctx, progress); err != nil {
			return nil, err
		}
	}

	span.SetAttributes(attribute.Int("storage.history_len", len(progress.QuizHistory)))
	return progress, nil
}

// SaveProgress implements Store. A quota failure prunes history and retries
// once; that is the only retry, and any other failure is logged and surfaced
// to the event hook, never returned, since losing a write is preferred over
// failing the caller.
func (fs *FileStore) SaveProgress(ctx context.Context, progress *models.UserProgress) (err error) {
	ctx, span := observability.TraceStorageFunction(ctx, "save_progress")
	defer observability.FinishSpan(span, &err)

	progress.LastActive = time.Now().UTC()

	data, err := json.Marshal(progress)
	if err != nil {
		return contextutils.WrapError(err, "failed to serialize progress")
	}

	if writeErr := fs.write(ProgressKey, data); writeErr != nil {
		// Only quota pressure justifies dropping history; any other failure
		// would just lose sessions and then fail the retry anyway.
		if !contextutils.IsError(writeErr, contextutils.ErrQuotaExceeded) {
			fs.logger.Error(ctx, "Progress write failed", writeErr, map[string]interface{}{"size": len(data)})
			fs.emit(ctx, observability.EventWriteFailed, map[string]interface{}{
				"key":   ProgressKey,
				"error": writeErr.Error(),
			})
			return nil
		}

		fs.logger.Warn(ctx, "Progress write exceeded quota, pruning history and retrying", map[string]interface{}{
			"error": writeErr.Error(),
			"size":  len(data),
		})

		dropped := PruneHistory(progress, fs.retentionCap)
		fs.emit(ctx, observability.EventHistoryPruned, map[string]interface{}{
			"dropped":  dropped,
			"retained": len(progress.QuizHistory),
		})

		data, err = json.Marshal(progress)
		if err != nil {
			return contextutils.WrapError(err, "failed to serialize pruned progress")
		}
		if retryErr := fs.write(ProgressKey, data); retryErr != nil {
			fs.logger.Error(ctx, "Progress write failed after pruning, giving up", retryErr, map[string]interface{}{"size": len(data)})
			fs.emit(ctx, observability.EventWriteFailed, map[string]interface{}{
				"key":   ProgressKey,
				"error": retryErr.Error(),
			})
			return nil
		}
	}
	return nil
}

// SaveCheckpoint implements Store. The snapshot is best-effort: a failure is
// logged but never interrupts the session.
func (fs *FileStore) SaveCheckpoint(ctx context.Context, checkpoint *models.SessionCheckpoint) (err error) {
	ctx, span := observability.TraceStorageFunction(ctx, "save_checkpoint")
	defer observability.FinishSpan(span, &err)

	data, err := json.Marshal(checkpoint)
	if err != nil {
		return contextutils.WrapError(err, "failed to serialize checkpoint")
	}
	if writeErr := fs.writeRaw(CheckpointKey, data); writeErr != nil {
		fs.logger.Warn(ctx, "Failed to save session checkpoint", map[string]interface{}{"error": writeErr.Error()})
		fs.emit(ctx, observability.EventWriteFailed, map[string]interface{}{
			"key":   CheckpointKey,
			"error": writeErr.Error(),
		})
		return nil
	}
	fs.emit(ctx, observability.EventCheckpointSaved, map[string]interface{}{
		"session_id": checkpoint.Session.SessionID,
		"attempts":   len(checkpoint.Session.Questions),
	})
	return nil
}

// LoadCheckpoint implements Store.
func (fs *FileStore) LoadCheckpoint(ctx context.Context) (result0 *models.SessionCheckpoint, err error) {
	ctx, span := observability.TraceStorageFunction(ctx, "load_checkpoint")
	defer observability.FinishSpan(span, &err)

	data, err := os.ReadFile(fs.path(CheckpointKey))
	if err != nil {
		if !os.IsNotExist(err) {
			fs.logger.Warn(ctx, "Failed to read session checkpoint", map[string]interface{}{"error": err.Error()})
		}
		return nil, nil
	}

	checkpoint := &models.SessionCheckpoint{}
	if err := json.Unmarshal(data, checkpoint); err != nil {
		fs.logger.Warn(ctx, "Session checkpoint is corrupt, treating as absent", map[string]interface{}{"error": err.Error()})
		fs.emit(ctx, observability.EventCorruptRecord, map[string]interface{}{"key": CheckpointKey})
		return nil, nil
	}
	return checkpoint, nil
}

// ClearCheckpoint implements Store.
func (fs *FileStore) ClearCheckpoint(ctx context.Context) (err error) {
	ctx, span := observability.TraceStorageFunction(ctx, "clear_checkpoint")
	defer observability.FinishSpan(span, &err)

	if err := os.Remove(fs.path(CheckpointKey)); err != nil && !os.IsNotExist(err) {
		fs.logger.Warn(ctx, "Failed to clear session checkpoint", map[string]interface{}{"error": err.Error()})
		return nil
	}
	fs.emit(ctx, observability.EventCheckpointCleared, nil)
	return nil
}

// ResetAll implements Store. Used only for an explicit user-initiated wipe.
func (fs *FileStore) ResetAll(ctx context.Context) (err error) {
	ctx, span := observability.TraceStorageFunction(ctx, "reset_all")
	defer observability.FinishSpan(span, &err)

	for _, key := range []string{ProgressKey, CheckpointKey} {
		if err := os.Remove(fs.path(key)); err != nil && !os.IsNotExist(err) {
			fs.logger.Warn(ctx, "Failed to remove record during reset", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
	}
	fs.logger.Info(ctx, "All persisted records reset", nil)
	return nil
}

// Size implements Store.
func (fs *FileStore) Size() int64 {
	var total int64
	for _, key := range []string{ProgressKey, CheckpointKey} {
		if info, err := os.Stat(fs.path(key)); err == nil {
			total += info.Size()
		}
	}
	return total
}

func (fs *FileStore) path(key string) string {
	return filepath.Join(fs.dir, key)
}

// write enforces the quota before handing off to writeRaw.
func (fs *FileStore) write(key string, data []byte) error {
	if fs.quotaBytes > 0 && int64(len(data)) > fs.quotaBytes {
		return contextutils.WrapErrorf(contextutils.ErrQuotaExceeded, "record %s is %d bytes, quota is %d", key, len(data), fs.quotaBytes)
	}
	return fs.writeRaw(key, data)
}

// writeRaw writes atomically via a temp file rename so a crash mid-write
// never leaves a truncated record.
func (fs *FileStore) writeRaw(key string, data []byte) error {
	tmp := fs.path(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, fs.path(key))
}

func (fs *FileStore) emit(ctx context.Context, eventType observability.EventType, fields map[string]interface{}) {
	if fs.events == nil {
		return
	}
	fs.events.Emit(ctx, observability.Event{Type: eventType, Fields: fields})
}

// PruneHistory sorts history by descending start time and truncates to the
// given cap, returning how many sessions were dropped. The most recent
// sessions are always the ones retained.
func PruneHistory(progress *models.UserProgress, limit int) int {
	if len(progress.QuizHistory) <= limit {
		return 0
	}
	sort.SliceStable(progress.QuizHistory, func(i, j int) bool {
		return progress.QuizHistory[i].StartTime.After(progress.QuizHistory[j].StartTime)
	})
	dropped := len(progress.QuizHistory) - limit
	progress.QuizHistory = progress.QuizHistory[:limit]
	return dropped
}
