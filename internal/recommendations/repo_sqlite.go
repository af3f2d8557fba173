package recommendations

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type sqliteRecord struct {
	ID        string    `gorm:"primaryKey"`
	Query     string    `gorm:"not null;index:idx_recommendations_query_created,priority:1"`
	Items     []Item    `gorm:"serializer:json;not null"`
	CreatedAt time.Time `gorm:"not null;index:idx_recommendations_query_created,priority:2"`
}

func (sqliteRecord) TableName() string { return "recommendations" }

// SQLiteRepo implements Repo on a local SQLite file through gorm.
type SQLiteRepo struct {
	DB *gorm.DB
}

// OpenSQLite opens or creates the database at path and migrates the schema.
func OpenSQLite(path string) (*SQLiteRepo, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.AutoMigrate(&sqliteRecord{}); err != nil {
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &SQLiteRepo{DB: db}, nil
}

// FindByQuery returns the oldest record for query.
func (r *SQLiteRepo) FindByQuery(ctx context.Context, query string) (Record, error) {
	var row sqliteRecord
	err := r.DB.WithContext(ctx).
		Where("query = ?", query).
		Order("created_at ASC").
		Order("id ASC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	return Record{
		ID:        row.ID,
		Query:     row.Query,
		Items:     cloneItems(row.Items),
		CreatedAt: row.CreatedAt.UTC(),
	}, nil
}

// Insert appends the record.
func (r *SQLiteRepo) Insert(ctx context.Context, record Record) error {
	row := sqliteRecord{
		ID:        record.ID,
		Query:     record.Query,
		Items:     cloneItems(record.Items),
		CreatedAt: record.CreatedAt,
	}
	return r.DB.WithContext(ctx).Create(&row).Error
}

// Ping checks the database file is still usable.
func (r *SQLiteRepo) Ping(ctx context.Context) error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool.
func (r *SQLiteRepo) Close() error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
