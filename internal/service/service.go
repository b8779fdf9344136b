// Package service defines the interface commands and the terminal view use
// to operate on the to-do list.
package service

import (
	"context"
	"errors"
)

// ErrNotLoggedIn is returned by Google-backed operations before login.
var ErrNotLoggedIn = errors.New("not logged in (run: voxtodo login)")

// ErrNotRunning is returned when a request reaches a stopped application loop.
var ErrNotRunning = errors.New("application loop is not running")

// Service defines the to-do operations.
// Commands never touch storage or collaborators directly.
type Service interface {
	// Tasks returns the task list in insertion order.
	Tasks(ctx context.Context) ([]Task, error)

	// AddTask appends a task. Blank text is a silent no-op (added is false).
	// alarmInput is a local date-time or empty for no alarm.
	AddTask(ctx context.Context, text, alarmInput string) (task Task, added bool, err error)

	// SetCompleted sets the completed flag of a task.
	SetCompleted(ctx context.Context, id int64, completed bool) error

	// DeleteTask removes a task.
	DeleteTask(ctx context.Context, id int64) error

	// SetAlarmInput sets the alarm field used by the next spoken task.
	SetAlarmInput(ctx context.Context, value string) error

	// Listen captures one spoken task and adds it with the current alarm
	// field, which is then cleared.
	Listen(ctx context.Context) (task Task, added bool, err error)

	// SavedEmail returns the persisted address (a pre-fill, not active).
	SavedEmail(ctx context.Context) (string, error)

	// SaveEmail validates, persists and activates an address.
	SaveEmail(ctx context.Context, addr string) (string, error)

	// ClearEmail removes the saved address and deactivates email.
	ClearEmail(ctx context.Context) error

	// Sync mirrors the task list into Google Tasks.
	Sync(ctx context.Context) (SyncResult, error)
}

// Surface is the user-facing side of a running application.
type Surface interface {
	// Alert shows a message the user must see.
	Alert(msg string)

	// Status shows a transient message.
	Status(msg string)

	// Confirm asks a yes/no question.
	Confirm(ctx context.Context, question string) (bool, error)
}

// Runner is a Service that also runs the alarm loop.
type Runner interface {
	Service

	// Attach sets the surface and the render callback. Call before Run.
	Attach(surface Surface, render func(View))

	// Run polls for due alarms and serves requests until ctx is done.
	Run(ctx context.Context) error

	// StopAlarm silences the active alarm.
	StopAlarm(ctx context.Context) error
}
