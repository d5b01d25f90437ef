package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"saral/pkg/domain"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS upload_records (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	type TEXT NOT NULL,
	date TEXT NOT NULL,
	time TEXT NOT NULL,
	status TEXT NOT NULL,
	size TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS query_records (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	query TEXT NOT NULL,
	date TEXT NOT NULL,
	time TEXT NOT NULL,
	sources_count INTEGER NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS notifications (
	email TEXT PRIMARY KEY,
	prefs TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS chunks (
	id TEXT PRIMARY KEY,
	source_id TEXT NOT NULL,
	content TEXT NOT NULL,
	metadata TEXT,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source_id);
`

// SQLiteStore implements Store on an embedded SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and applies the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite path required")
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) AddUpload(ctx context.Context, rec domain.UploadHistoryRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO upload_records (id, name, type, date, time, status, size) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.Type, rec.Date, rec.Time, rec.Status, rec.Size)
	if err != nil {
		return fmt.Errorf("insert upload record: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListUploads(ctx context.Context) ([]domain.UploadHistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, type, date, time, status, size FROM upload_records ORDER BY seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("query upload records: %w", err)
	}
	defer rows.Close()
	out := []domain.UploadHistoryRecord{}
	for rows.Next() {
		var r domain.UploadHistoryRecord
		if err := rows.Scan(&r.ID, &r.Name, &r.Type, &r.Date, &r.Time, &r.Status, &r.Size); err != nil {
			return nil, fmt.Errorf("scan upload record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AddQuery(ctx context.Context, rec domain.QueryHistoryRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO query_records (id, query, date, time, sources_count) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.Query, rec.Date, rec.Time, rec.SourcesCount)
	if err != nil {
		return fmt.Errorf("insert query record: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListQueries(ctx context.Context) ([]domain.QueryHistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query, date, time, sources_count FROM query_records ORDER BY seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("query query records: %w", err)
	}
	defer rows.Close()
	out := []domain.QueryHistoryRecord{}
	for rows.Next() {
		var r domain.QueryHistoryRecord
		if err := rows.Scan(&r.ID, &r.Query, &r.Date, &r.Time, &r.SourcesCount); err != nil {
			return nil, fmt.Errorf("scan query record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetNotifications(ctx context.Context, email string) (domain.NotificationPrefs, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT prefs FROM notifications WHERE email = ?`, email).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotificationPrefs{}, false, nil
	}
	if err != nil {
		return domain.NotificationPrefs{}, false, fmt.Errorf("query notifications: %w", err)
	}
	var prefs domain.NotificationPrefs
	if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
		return domain.NotificationPrefs{}, false, fmt.Errorf("decode prefs: %w", err)
	}
	return prefs, true, nil
}

func (s *SQLiteStore) SaveNotifications(ctx context.Context, email string, prefs domain.NotificationPrefs) error {
	raw, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO notifications (email, prefs, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(email) DO UPDATE SET prefs = excluded.prefs, updated_at = excluded.updated_at`,
		email, string(raw))
	if err != nil {
		return fmt.Errorf("save notifications: %w", err)
	}
	return nil
}

// ReplaceChunks swaps all chunks of sourceID in one transaction.
func (s *SQLiteStore) ReplaceChunks(ctx context.Context, sourceID string, chunks []domain.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE source_id = ?`, sourceID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks (id, source_id, content, metadata, created_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	for _, c := range chunks {
		meta, _ := json.Marshal(c.Metadata)
		if _, err := stmt.ExecContext(ctx, c.ID, sourceID, c.Content, string(meta), c.CreatedAt.UnixNano()); err != nil {
			return fmt.Errorf("insert chunk: %w", err)
		}
	}
	return tx.Commit()
}

// SearchChunks prefilters with LIKE on each term and ranks in process.
func (s *SQLiteStore) SearchChunks(ctx context.Context, query string, limit int) ([]domain.Chunk, error) {
	terms := searchTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}
	conds := make([]string, 0, len(terms))
	args := make([]any, 0, len(terms)+1)
	for _, term := range terms {
		conds = append(conds, `content LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(term)+"%")
	}
	args = append(args, searchCandidates)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_id, content, metadata, created_at FROM chunks WHERE `+strings.Join(conds, " OR ")+` ORDER BY created_at DESC LIMIT ?`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()
	var chunks []domain.Chunk
	for rows.Next() {
		var (
			c       domain.Chunk
			meta    sql.NullString
			created int64
		)
		if err := rows.Scan(&c.ID, &c.SourceID, &c.Content, &meta, &created); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		c.CreatedAt = time.Unix(0, created).UTC()
		if meta.Valid && meta.String != "" {
			_ = json.Unmarshal([]byte(meta.String), &c.Metadata)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rankChunks(terms, chunks, limit), nil
}

func (s *SQLiteStore) CountChunks(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
