package storage

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"

	"wellness-log/internal/models"
)

// Collection keys.
const (
	KeyMeals          = "meals"
	KeyWaterLogs      = "waterLogs"
	KeyChatMessages   = "chatMessages"
	KeyJournalEntries = "journalEntries"
)

// RecordStore is the key/value persistence behind the collections.
type RecordStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, blob []byte) error
	Close() error
}

// Load decodes the collection stored under key. An absent, unreadable or
// undecodable blob yields def; the fault is logged, never returned.
func Load[T any](ctx context.Context, s RecordStore, key string, def T, log zerolog.Logger) T {
	blob, err := s.Get(ctx, key)
	if errors.Is(err, models.ErrNotFound) {
		return def
	}
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Error reading collection")
		return def
	}

	var out T
	if err := json.Unmarshal(blob, &out); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Error decoding collection")
		return def
	}
	return out
}

// Save writes the whole collection under key. Persistence is best-effort:
// failures are logged and reported as false, never as an error.
func Save[T any](ctx context.Context, s RecordStore, key string, value T, log zerolog.Logger) bool {
	blob, err := json.Marshal(value)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Error encoding collection")
		return false
	}
	if err := s.Put(ctx, key, blob); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Error writing collection")
		return false
	}
	return true
}
