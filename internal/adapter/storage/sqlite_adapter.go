package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

type storageRecord struct {
	Key       string `gorm:"column:storage_key;primaryKey"`
	Value     []byte `gorm:"column:value;not null"`
	UpdatedAt time.Time
}

func (storageRecord) TableName() string { return "cart_storage" }

// SQLiteAdapter keeps records in a local SQLite file through GORM. It suits
// single-node deployments where carts must survive restarts without Redis.
type SQLiteAdapter struct {
	db *gorm.DB
}

// OpenSQLite opens (or creates) the database at path and migrates the
// cart_storage table. Use "file::memory:?cache=shared" for an in-memory store.
func OpenSQLite(path string) (*SQLiteAdapter, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return NewSQLiteAdapter(db)
}

func NewSQLiteAdapter(db *gorm.DB) (*SQLiteAdapter, error) {
	if err := db.AutoMigrate(&storageRecord{}); err != nil {
		return nil, fmt.Errorf("migrate cart_storage: %w", err)
	}
	return &SQLiteAdapter{db: db}, nil
}

func (s *SQLiteAdapter) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var rec storageRecord
	err := s.db.WithContext(ctx).Where("storage_key = ?", key).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query cart_storage: %w", err)
	}
	return rec.Value, true, nil
}

func (s *SQLiteAdapter) Set(ctx context.Context, key string, value []byte) error {
	rec := storageRecord{Key: key, Value: value}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "storage_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("upsert cart_storage: %w", err)
	}
	return nil
}

func (s *SQLiteAdapter) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *SQLiteAdapter) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
