package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const mysqlSchema = `
CREATE TABLE IF NOT EXISTS cart_storage (
	storage_key VARCHAR(191) NOT NULL PRIMARY KEY,
	value       MEDIUMBLOB   NOT NULL,
	version     BIGINT       NOT NULL DEFAULT 0,
	created_at  TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at  TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
)`

// MySQLAdapter keeps records in the cart_storage table, one row per key.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// EnsureSchema creates cart_storage if it does not exist.
func (m *MySQLAdapter) EnsureSchema(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, mysqlSchema); err != nil {
		return fmt.Errorf("create cart_storage: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := m.db.QueryRowContext(ctx,
		`SELECT value FROM cart_storage WHERE storage_key = ?`, key,
	).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query cart_storage: %w", err)
	}
	return value, true, nil
}

func (m *MySQLAdapter) Set(ctx context.Context, key string, value []byte) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO cart_storage (storage_key, value, version)
		VALUES (?, ?, 1)
		ON DUPLICATE KEY UPDATE value = VALUES(value), version = version + 1`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("upsert cart_storage: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}
