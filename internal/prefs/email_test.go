package prefs_test

import (
	"context"
	"errors"
	"testing"

	"voxtodo/internal/kv"
	"voxtodo/internal/prefs"
)

func TestValid(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"a@b.com", true},
		{"first.last@sub.example.org", true},
		{"not-an-email", false},
		{"a@b", false},
		{"a b@c.com", false},
		{"@b.com", false},
		{"a@@b.com", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			if got := prefs.Valid(tt.addr); got != tt.want {
				t.Errorf("Valid(%q) = %v, want %v", tt.addr, got, tt.want)
			}
		})
	}
}

func TestEmail_LoadIsPrefillOnly(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	_ = mem.Set(ctx, prefs.EmailKey, "a@b.com")

	e := prefs.NewEmail(mem)
	if err := e.Load(ctx); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if e.Prefill() != "a@b.com" {
		t.Errorf("expected prefill, got %q", e.Prefill())
	}
	if e.Active() != "" {
		t.Errorf("loaded address must not be active, got %q", e.Active())
	}
}

func TestEmail_Save(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	e := prefs.NewEmail(mem)

	got, err := e.Save(ctx, "  a@b.com ")
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if got != "a@b.com" || e.Active() != "a@b.com" {
		t.Errorf("expected trimmed active address, got %q / %q", got, e.Active())
	}
	if v, _ := mem.Get(ctx, prefs.EmailKey); v != "a@b.com" {
		t.Errorf("expected persisted address, got %q", v)
	}
}

func TestEmail_SaveInvalidKeepsPrevious(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	e := prefs.NewEmail(mem)
	if _, err := e.Save(ctx, "a@b.com"); err != nil {
		t.Fatal(err)
	}

	_, err := e.Save(ctx, "not-an-email")
	if !errors.Is(err, prefs.ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if e.Active() != "a@b.com" {
		t.Errorf("active address changed to %q", e.Active())
	}
	if v, _ := mem.Get(ctx, prefs.EmailKey); v != "a@b.com" {
		t.Errorf("persisted address changed to %q", v)
	}
}

func TestEmail_Clear(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	e := prefs.NewEmail(mem)
	_, _ = e.Save(ctx, "a@b.com")

	if err := e.Clear(ctx); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if e.Active() != "" || e.Prefill() != "" {
		t.Errorf("expected empty state, got active=%q prefill=%q", e.Active(), e.Prefill())
	}
	if _, err := mem.Get(ctx, prefs.EmailKey); !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("expected key removed, got %v", err)
	}
}
