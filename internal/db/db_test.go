package db

import (
	"context"
	"path/filepath"
	"testing"
)

func TestNewRedisClient_EmptyURLDisablesRedis(t *testing.T) {
	rdb, err := NewRedisClient(context.Background(), "")
	if err != nil || rdb != nil {
		t.Fatalf("expected nil client and nil error, got %v, %v", rdb, err)
	}
}

func TestNewRedisClient_BadURL(t *testing.T) {
	if _, err := NewRedisClient(context.Background(), "not-a-url"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestNewSQLite_SingleConnection(t *testing.T) {
	gdb, err := NewSQLite(filepath.Join(t.TempDir(), "t.db"), true)
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("DB: %v", err)
	}
	defer sqlDB.Close()

	if got := sqlDB.Stats().MaxOpenConnections; got != 1 {
		t.Errorf("MaxOpenConnections = %d, want 1", got)
	}
	if err := sqlDB.Ping(); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestNewPostgresPool_BadURL(t *testing.T) {
	if _, err := NewPostgresPool(context.Background(), "://nope", 0); err == nil {
		t.Fatal("expected parse error")
	}
}
