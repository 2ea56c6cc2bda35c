package storage

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/go-sql-driver/mysql"
)

func getMySQLDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/cartstore?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	return db
}

func TestMySQLAdapter_GetMissing(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	if err := adapter.EnsureSchema(ctx); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	db.ExecContext(ctx, `DELETE FROM cart_storage WHERE storage_key = 'test-missing'`)

	_, found, err := adapter.Get(ctx, "test-missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Error("expected no record")
	}
}

func TestMySQLAdapter_Upsert(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	if err := adapter.EnsureSchema(ctx); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	db.ExecContext(ctx, `DELETE FROM cart_storage WHERE storage_key = 'test-cart'`)
	defer db.ExecContext(ctx, `DELETE FROM cart_storage WHERE storage_key = 'test-cart'`)

	if err := adapter.Set(ctx, "test-cart", []byte(`[]`)); err != nil {
		t.Fatalf("first Set failed: %v", err)
	}
	if err := adapter.Set(ctx, "test-cart", []byte(`[{"itemId":"1","quantity":2}]`)); err != nil {
		t.Fatalf("second Set failed: %v", err)
	}

	value, found, err := adapter.Get(ctx, "test-cart")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !found {
		t.Fatal("expected record")
	}
	if string(value) != `[{"itemId":"1","quantity":2}]` {
		t.Errorf("unexpected value %s", value)
	}

	var version int64
	err = db.QueryRowContext(ctx, `SELECT version FROM cart_storage WHERE storage_key = 'test-cart'`).Scan(&version)
	if err != nil {
		t.Fatalf("query version failed: %v", err)
	}
	if version != 2 {
		t.Errorf("expected version 2, got %d", version)
	}
}
