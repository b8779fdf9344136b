package kv_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"voxtodo/internal/kv"
)

func openSQLite(t *testing.T) *kv.SQLite {
	t.Helper()
	s, err := kv.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "nested", "kv.db"))
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStores(t *testing.T) {
	stores := map[string]func(t *testing.T) kv.Store{
		"memory": func(t *testing.T) kv.Store { return kv.NewMemory() },
		"sqlite": func(t *testing.T) kv.Store { return openSQLite(t) },
	}

	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)

			if _, err := s.Get(ctx, "tasks"); !errors.Is(err, kv.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}

			if err := s.Set(ctx, "tasks", "[]"); err != nil {
				t.Fatalf("set failed: %v", err)
			}
			if err := s.Set(ctx, "tasks", `[{"id":1}]`); err != nil {
				t.Fatalf("overwrite failed: %v", err)
			}
			got, err := s.Get(ctx, "tasks")
			if err != nil {
				t.Fatalf("get failed: %v", err)
			}
			if got != `[{"id":1}]` {
				t.Errorf("expected overwritten value, got %q", got)
			}

			if err := s.Delete(ctx, "tasks"); err != nil {
				t.Fatalf("delete failed: %v", err)
			}
			if err := s.Delete(ctx, "tasks"); err != nil {
				t.Fatalf("deleting a missing key should succeed: %v", err)
			}
			if _, err := s.Get(ctx, "tasks"); !errors.Is(err, kv.ErrNotFound) {
				t.Errorf("expected ErrNotFound after delete, got %v", err)
			}
		})
	}
}

func TestSQLite_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kv.db")

	s, err := kv.OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if err := s.Set(ctx, "userEmail", "a@b.com"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	s.Close()

	s, err = kv.OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()
	got, err := s.Get(ctx, "userEmail")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != "a@b.com" {
		t.Errorf("expected persisted value, got %q", got)
	}
}
