package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"saral/pkg/domain"
)

const migrateLockID int64 = 72577257

// searchCandidates caps how many rows a chunk search pulls before ranking.
const searchCandidates = 200

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations under an advisory lock.
func NewGormStore(dsn string) (*GormStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres dsn required")
	}
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&UploadRecordModel{}, &QueryRecordModel{}, &NotificationModel{}, &ChunkModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

func (s *GormStore) AddUpload(ctx context.Context, rec domain.UploadHistoryRecord) error {
	model := UploadRecordModel{
		ID: rec.ID, Name: rec.Name, Type: rec.Type, Date: rec.Date,
		Time: rec.Time, Status: rec.Status, Size: rec.Size,
	}
	return s.db.WithContext(ctx).Create(&model).Error
}

func (s *GormStore) ListUploads(ctx context.Context) ([]domain.UploadHistoryRecord, error) {
	var models []UploadRecordModel
	if err := s.db.WithContext(ctx).Order("seq DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.UploadHistoryRecord, 0, len(models))
	for _, m := range models {
		out = append(out, domain.UploadHistoryRecord{
			ID: m.ID, Name: m.Name, Type: m.Type, Date: m.Date,
			Time: m.Time, Status: m.Status, Size: m.Size,
		})
	}
	return out, nil
}

func (s *GormStore) AddQuery(ctx context.Context, rec domain.QueryHistoryRecord) error {
	model := QueryRecordModel{
		ID: rec.ID, Query: rec.Query, Date: rec.Date, Time: rec.Time, SourcesCount: rec.SourcesCount,
	}
	return s.db.WithContext(ctx).Create(&model).Error
}

func (s *GormStore) ListQueries(ctx context.Context) ([]domain.QueryHistoryRecord, error) {
	var models []QueryRecordModel
	if err := s.db.WithContext(ctx).Order("seq DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.QueryHistoryRecord, 0, len(models))
	for _, m := range models {
		out = append(out, domain.QueryHistoryRecord{
			ID: m.ID, Query: m.Query, Date: m.Date, Time: m.Time, SourcesCount: m.SourcesCount,
		})
	}
	return out, nil
}

func (s *GormStore) GetNotifications(ctx context.Context, email string) (domain.NotificationPrefs, bool, error) {
	var model NotificationModel
	err := s.db.WithContext(ctx).First(&model, "email = ?", email).Error
	if err == gorm.ErrRecordNotFound {
		return domain.NotificationPrefs{}, false, nil
	}
	if err != nil {
		return domain.NotificationPrefs{}, false, err
	}
	var prefs domain.NotificationPrefs
	if err := json.Unmarshal(model.Prefs, &prefs); err != nil {
		return domain.NotificationPrefs{}, false, fmt.Errorf("decode prefs: %w", err)
	}
	return prefs, true, nil
}

func (s *GormStore) SaveNotifications(ctx context.Context, email string, prefs domain.NotificationPrefs) error {
	raw, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	model := NotificationModel{Email: email, Prefs: raw, UpdatedAt: time.Now().UTC()}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"prefs", "updated_at"}),
	}).Create(&model).Error
}

// ReplaceChunks swaps all chunks of sourceID in one transaction.
func (s *GormStore) ReplaceChunks(ctx context.Context, sourceID string, chunks []domain.Chunk) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&ChunkModel{}, "source_id = ?", sourceID).Error; err != nil {
			return err
		}
		if len(chunks) == 0 {
			return nil
		}
		models := make([]ChunkModel, 0, len(chunks))
		for _, chunk := range chunks {
			model := chunkToModel(chunk)
			model.SourceID = sourceID
			models = append(models, model)
		}
		return tx.CreateInBatches(&models, 200).Error
	})
}

// SearchChunks prefilters with ILIKE on each term and ranks in process.
func (s *GormStore) SearchChunks(ctx context.Context, query string, limit int) ([]domain.Chunk, error) {
	terms := searchTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}
	q := s.db.WithContext(ctx).Model(&ChunkModel{})
	conds := make([]string, 0, len(terms))
	args := make([]any, 0, len(terms))
	for _, term := range terms {
		conds = append(conds, "content ILIKE ?")
		args = append(args, "%"+escapeLike(term)+"%")
	}
	var models []ChunkModel
	if err := q.Where(strings.Join(conds, " OR "), args...).
		Order("created_at DESC").Limit(searchCandidates).Find(&models).Error; err != nil {
		return nil, err
	}
	chunks := make([]domain.Chunk, 0, len(models))
	for _, m := range models {
		chunks = append(chunks, chunkFromModel(m))
	}
	return rankChunks(terms, chunks, limit), nil
}

func (s *GormStore) CountChunks(ctx context.Context) (int, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&ChunkModel{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}

// Close releases the connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func chunkToModel(chunk domain.Chunk) ChunkModel {
	meta, _ := json.Marshal(chunk.Metadata)
	return ChunkModel{
		ID:        chunk.ID,
		SourceID:  chunk.SourceID,
		Content:   chunk.Content,
		Metadata:  meta,
		CreatedAt: chunk.CreatedAt,
	}
}

func chunkFromModel(model ChunkModel) domain.Chunk {
	var meta map[string]string
	if len(model.Metadata) > 0 {
		_ = json.Unmarshal(model.Metadata, &meta)
	}
	return domain.Chunk{
		ID:        model.ID,
		SourceID:  model.SourceID,
		Content:   model.Content,
		Metadata:  meta,
		CreatedAt: model.CreatedAt,
	}
}
