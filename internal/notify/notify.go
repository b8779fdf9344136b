// Package notify raises desktop notifications behind a persisted
// granted/denied/default permission.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/gen2brain/beeep"

	"voxtodo/internal/kv"
	"voxtodo/internal/logging"
)

// PermissionKey is the durable-storage key holding the permission.
const PermissionKey = "notificationPermission"

// Permission is the notification permission tri-state.
type Permission string

const (
	Default Permission = "default"
	Granted Permission = "granted"
	Denied  Permission = "denied"
)

// ParsePermission maps a stored value to a Permission. Unknown values are Default.
func ParsePermission(s string) Permission {
	switch Permission(s) {
	case Granted:
		return Granted
	case Denied:
		return Denied
	default:
		return Default
	}
}

// Notifier shows fire-and-forget desktop alerts.
type Notifier interface {
	Permission(ctx context.Context) Permission
	RequestPermission(ctx context.Context) (Permission, error)
	Show(title, body string) error
}

// Prompter asks the user a yes/no question.
type Prompter interface {
	Confirm(ctx context.Context, question string) (bool, error)
}

// PromptFunc adapts a function to Prompter.
type PromptFunc func(ctx context.Context, question string) (bool, error)

// Confirm implements Prompter.
func (f PromptFunc) Confirm(ctx context.Context, question string) (bool, error) {
	return f(ctx, question)
}

// RequestQuestion is the question asked when permission is undetermined.
const RequestQuestion = "Allow voxtodo to show desktop notifications for alarms?"

// Compile-time interface checks.
var (
	_ Notifier = (*Desktop)(nil)
	_ Notifier = Disabled{}
)

// Desktop shows notifications through the OS notification service.
type Desktop struct {
	kv     kv.Store
	prompt Prompter
	show   func(title, body string) error
	log    *log.Logger
}

// NewDesktop creates a Desktop notifier. prompt may be nil, in which case
// permission can never leave Default through RequestPermission.
func NewDesktop(store kv.Store, prompt Prompter, logger *log.Logger) *Desktop {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Desktop{
		kv:     store,
		prompt: prompt,
		show:   beeepShow,
		log:    logger,
	}
}

// SetShowFunc replaces the OS call. Used in tests.
func (d *Desktop) SetShowFunc(fn func(title, body string) error) {
	d.show = fn
}

func beeepShow(title, body string) error {
	return beeep.Notify(title, body, "")
}

// Permission returns the stored permission.
func (d *Desktop) Permission(ctx context.Context) Permission {
	v, err := d.kv.Get(ctx, PermissionKey)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			d.log.Warn("failed to read notification permission", "error", err)
		}
		return Default
	}
	return ParsePermission(v)
}

// RequestPermission asks the user and persists the answer.
// An answered permission is returned unchanged without asking again.
func (d *Desktop) RequestPermission(ctx context.Context) (Permission, error) {
	if p := d.Permission(ctx); p != Default {
		return p, nil
	}
	if d.prompt == nil {
		return Default, nil
	}
	ok, err := d.prompt.Confirm(ctx, RequestQuestion)
	if err != nil {
		return Default, fmt.Errorf("request notification permission: %w", err)
	}
	p := Denied
	if ok {
		p = Granted
	}
	if err := d.kv.Set(ctx, PermissionKey, string(p)); err != nil {
		return p, fmt.Errorf("save notification permission: %w", err)
	}
	d.log.Debug("notification permission answered", "permission", p)
	return p, nil
}

// Show raises one notification.
func (d *Desktop) Show(title, body string) error {
	if err := d.show(title, body); err != nil {
		return fmt.Errorf("show notification: %w", err)
	}
	return nil
}

// Disabled never shows anything; its permission is always Denied.
type Disabled struct{}

func (Disabled) Permission(context.Context) Permission { return Denied }

func (Disabled) RequestPermission(context.Context) (Permission, error) { return Denied, nil }

func (Disabled) Show(string, string) error { return nil }

// AlarmBody returns the notification body for a due task.
func AlarmBody(taskText string) string {
	return fmt.Sprintf("A tarefa \"%s\" está na hora!", taskText)
}
