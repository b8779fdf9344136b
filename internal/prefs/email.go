// Package prefs stores the user's email address used for alarm messages.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"voxtodo/internal/kv"
)

// EmailKey is the durable-storage key holding the saved address.
const EmailKey = "userEmail"

// ErrInvalidEmail is returned by Save when the address is not email-shaped.
var ErrInvalidEmail = errors.New("please enter a valid email address")

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Email holds the saved and the active address.
//
// The saved address only pre-fills the input. Email is sent to the active
// address, which is set by Save during the current session.
type Email struct {
	kv      kv.Store
	prefill string
	active  string
}

// NewEmail creates an Email over store.
func NewEmail(store kv.Store) *Email {
	return &Email{kv: store}
}

// Load reads the saved address as a pre-fill. It does not activate it.
func (e *Email) Load(ctx context.Context) error {
	v, err := e.kv.Get(ctx, EmailKey)
	if errors.Is(err, kv.ErrNotFound) {
		e.prefill = ""
		return nil
	}
	if err != nil {
		return fmt.Errorf("load email: %w", err)
	}
	e.prefill = v
	return nil
}

// Valid reports whether addr looks like local-part@domain.tld.
func Valid(addr string) bool {
	return emailPattern.MatchString(addr)
}

// Save validates, persists and activates addr.
// On ErrInvalidEmail nothing changes.
func (e *Email) Save(ctx context.Context, addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if !Valid(addr) {
		return "", fmt.Errorf("%w: %q", ErrInvalidEmail, addr)
	}
	if err := e.kv.Set(ctx, EmailKey, addr); err != nil {
		return "", fmt.Errorf("save email: %w", err)
	}
	e.prefill = addr
	e.active = addr
	return addr, nil
}

// Clear removes the saved address and deactivates email.
func (e *Email) Clear(ctx context.Context) error {
	if err := e.kv.Delete(ctx, EmailKey); err != nil {
		return fmt.Errorf("clear email: %w", err)
	}
	e.prefill = ""
	e.active = ""
	return nil
}

// Active returns the address alarms are sent to, or "".
func (e *Email) Active() string {
	return e.active
}

// Prefill returns the saved address shown in the input field.
func (e *Email) Prefill() string {
	return e.prefill
}
