package checkpoint

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	mod := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	base := Key("/archive/2025/03. MART/a.xlsx", 1024, mod, "v1")

	if base != Key("/archive/2025/03. MART/a.xlsx", 1024, mod, "v1") {
		t.Error("Expected identical inputs to give identical keys")
	}

	variants := []string{
		Key("/archive/2025/03. MART/b.xlsx", 1024, mod, "v1"),
		Key("/archive/2025/03. MART/a.xlsx", 2048, mod, "v1"),
		Key("/archive/2025/03. MART/a.xlsx", 1024, mod.Add(time.Second), "v1"),
		Key("/archive/2025/03. MART/a.xlsx", 1024, mod, "v2"),
	}
	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d: expected a different key", i)
		}
	}
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	if err := s.Put(ctx, "k", []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	data, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(data) != `{"ok":true}` {
		t.Errorf("Expected stored payload, got %s", data)
	}

	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Errorf("Expected deleting a missing key to succeed, got %v", err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestFileStore_Cleanup(t *testing.T) {
	ctx := context.Background()
	s, _ := NewFileStore(t.TempDir())
	_ = s.Put(ctx, "a", []byte("1"))

	removed, err := s.Cleanup(time.Hour)
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if removed != 0 {
		t.Errorf("Expected fresh entry to survive, removed %d", removed)
	}

	removed, _ = s.Cleanup(-time.Hour)
	if removed != 1 {
		t.Errorf("Expected 1 removed, got %d", removed)
	}
}

func TestRedisStore_Key(t *testing.T) {
	s := &RedisStore{cfg: DefaultRedisConfig("localhost:6379")}
	if got := s.key("abc"); got != "flightarchive:checkpoint:abc" {
		t.Errorf("key(abc) = %q, want %q", got, "flightarchive:checkpoint:abc")
	}
	if s.Name() != "redis" {
		t.Errorf("Expected name redis, got %s", s.Name())
	}
}
