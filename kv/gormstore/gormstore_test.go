package gormstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fundexplorer/datakit/kv"
	"github.com/fundexplorer/datakit/logger"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"
)

func testLogger(t *testing.T) logger.Logger {
	t.Helper()
	log, _ := logger.New(&logger.Config{Level: "debug", Encoding: "console"})
	return log
}

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: glogger.Default.LogMode(glogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	s, err := New(testLogger(t), db)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{"valid", (&Config{Host: "localhost", User: "root", Database: "funds"}).MergeDefaults(), false},
		{"missing host", (&Config{User: "root", Database: "funds"}).MergeDefaults(), true},
		{"missing database", (&Config{Host: "localhost", User: "root"}).MergeDefaults(), true},
		{"bad log level", &Config{Host: "h", Port: 3306, User: "u", Database: "d", LogLevel: "loud"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStore_PutGetDelete(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, "fund/000001", []byte("v1"), 0); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	// overwrite
	if err := s.Put(ctx, "fund/000001", []byte("v2"), 0); err != nil {
		t.Fatalf("overwrite Put failed: %v", err)
	}

	got, err := s.Get(ctx, "fund/000001")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "v2" {
		t.Errorf("expected %q, got %q", "v2", got)
	}

	if err := s.Delete(ctx, "fund/000001"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Get(ctx, "fund/000001"); !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_TTL(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	now := time.Now()
	s.SetClock(func() time.Time { return now })

	if err := s.Put(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, err := s.Get(ctx, "k"); err != nil {
		t.Fatalf("expected hit before expiry, got %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := s.Get(ctx, "k"); !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("expected ErrNotFound after expiry, got %v", err)
	}
}

func TestStore_KeysFiltersExpired(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	now := time.Now()
	s.SetClock(func() time.Time { return now })

	if err := s.Put(ctx, "offline/000000", []byte("a"), 0); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := s.Put(ctx, "offline/000001", []byte("b"), time.Minute); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := s.Put(ctx, "fund/x", []byte("c"), 0); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	now = now.Add(2 * time.Minute)

	keys, err := s.Keys(ctx, "offline/")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != "offline/000000" {
		t.Errorf("unexpected keys: %v", keys)
	}
}
