package store

import (
	"context"
	"errors"

	"saral/pkg/domain"
)

// ErrUnknownDriver is returned by Open for an unsupported driver name.
var ErrUnknownDriver = errors.New("unknown store driver")

// HistoryStore keeps the upload and query history tabs. Lists are newest first.
type HistoryStore interface {
	AddUpload(ctx context.Context, rec domain.UploadHistoryRecord) error
	ListUploads(ctx context.Context) ([]domain.UploadHistoryRecord, error)
	AddQuery(ctx context.Context, rec domain.QueryHistoryRecord) error
	ListQueries(ctx context.Context) ([]domain.QueryHistoryRecord, error)
}

// SettingsStore keeps notification preferences per user email.
type SettingsStore interface {
	GetNotifications(ctx context.Context, email string) (domain.NotificationPrefs, bool, error)
	SaveNotifications(ctx context.Context, email string, prefs domain.NotificationPrefs) error
}

// ChunkStore keeps ingested text chunks.
type ChunkStore interface {
	ReplaceChunks(ctx context.Context, sourceID string, chunks []domain.Chunk) error
	SearchChunks(ctx context.Context, query string, limit int) ([]domain.Chunk, error)
	CountChunks(ctx context.Context) (int, error)
}

// Store is the full persistence surface used by the gateway and ingest worker.
type Store interface {
	HistoryStore
	SettingsStore
	ChunkStore
	Close() error
}

// SessionStore persists session tokens.
type SessionStore interface {
	NewSession(userID string) (string, error)
	GetUserIDByToken(token string) (string, bool, error)
	DeleteSession(token string) error
}

// Options selects and configures a Store driver.
type Options struct {
	// Driver is memory, postgres or sqlite.
	Driver string
	// DSN is the postgres DSN or the sqlite file path.
	DSN string
	// Seed loads the demo history into an empty store.
	Seed bool
}

// Open builds the configured Store.
func Open(ctx context.Context, opts Options) (Store, error) {
	var (
		s   Store
		err error
	)
	switch opts.Driver {
	case "", "memory":
		s = NewMemoryStore()
	case "postgres":
		s, err = NewGormStore(opts.DSN)
	case "sqlite":
		s, err = NewSQLiteStore(opts.DSN)
	default:
		return nil, ErrUnknownDriver
	}
	if err != nil {
		return nil, err
	}
	if opts.Seed {
		if err := SeedHistory(ctx, s); err != nil {
			_ = s.Close()
			return nil, err
		}
	}
	return s, nil
}
