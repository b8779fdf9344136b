// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"strings"
	"sync"

	"voxtodo/internal/prefs"
	"voxtodo/internal/service"
	"voxtodo/internal/tasks"
)

// FakeService is an in-memory implementation of service.Runner for testing.
type FakeService struct {
	mu         sync.RWMutex
	tasks      []service.Task
	nextID     int64
	alarmInput string
	email      string
	active     string
	stops      int
	surface    service.Surface
	render     func(service.View)

	// Transcript is what Listen hears.
	Transcript string

	// SyncResult is returned by Sync.
	SyncResult service.SyncResult

	// Error injection for testing
	TasksErr       error
	AddTaskErr     error
	SetCompleteErr error
	DeleteTaskErr  error
	ListenErr      error
	SaveEmailErr   error
	ClearEmailErr  error
	SyncErr        error
	RunErr         error
}

// Compile-time interface check.
var _ service.Runner = (*FakeService)(nil)

// NewFakeService creates an empty FakeService.
func NewFakeService() *FakeService {
	return &FakeService{nextID: 1}
}

// Seed appends a task directly, bypassing validation.
func (f *FakeService) Seed(text string, completed bool, alarm *tasks.Timestamp) service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := service.Task{ID: f.nextID, Text: text, Completed: completed, Alarm: alarm}
	f.nextID++
	f.tasks = append(f.tasks, t)
	return t
}

// SetSavedEmail sets the saved pre-fill address.
func (f *FakeService) SetSavedEmail(addr string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.email = addr
}

// ActiveEmail returns the address alarms would be sent to.
func (f *FakeService) ActiveEmail() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.active
}

// AlarmInput returns the current alarm field.
func (f *FakeService) AlarmInput() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.alarmInput
}

// Stops returns how many times StopAlarm was called.
func (f *FakeService) Stops() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.stops
}

// Tasks implements service.Service.
func (f *FakeService) Tasks(ctx context.Context) ([]service.Task, error) {
	if f.TasksErr != nil {
		return nil, f.TasksErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	result := make([]service.Task, len(f.tasks))
	copy(result, f.tasks)
	return result, nil
}

// AddTask implements service.Service.
func (f *FakeService) AddTask(ctx context.Context, text, alarmInput string) (service.Task, bool, error) {
	if f.AddTaskErr != nil {
		return service.Task{}, false, f.AddTaskErr
	}
	if strings.TrimSpace(text) == "" {
		return service.Task{}, false, nil
	}
	alarm, err := tasks.ParseAlarm(alarmInput, nil)
	if err != nil {
		return service.Task{}, false, err
	}
	f.mu.Lock()
	t := service.Task{ID: f.nextID, Text: text, Alarm: alarm}
	f.nextID++
	f.tasks = append(f.tasks, t)
	f.mu.Unlock()
	f.emit()
	return t, true, nil
}

// SetCompleted implements service.Service.
func (f *FakeService) SetCompleted(ctx context.Context, id int64, completed bool) error {
	if f.SetCompleteErr != nil {
		return f.SetCompleteErr
	}
	f.mu.Lock()
	i := f.indexLocked(id)
	if i < 0 {
		f.mu.Unlock()
		return tasks.ErrNotFound
	}
	f.tasks[i].Completed = completed
	f.mu.Unlock()
	f.emit()
	return nil
}

// DeleteTask implements service.Service.
func (f *FakeService) DeleteTask(ctx context.Context, id int64) error {
	if f.DeleteTaskErr != nil {
		return f.DeleteTaskErr
	}
	f.mu.Lock()
	i := f.indexLocked(id)
	if i < 0 {
		f.mu.Unlock()
		return tasks.ErrNotFound
	}
	f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
	f.mu.Unlock()
	f.emit()
	return nil
}

// SetAlarmInput implements service.Service.
func (f *FakeService) SetAlarmInput(ctx context.Context, value string) error {
	f.mu.Lock()
	f.alarmInput = value
	f.mu.Unlock()
	f.emit()
	return nil
}

// Listen implements service.Service. It adds Transcript with the alarm field.
func (f *FakeService) Listen(ctx context.Context) (service.Task, bool, error) {
	if f.ListenErr != nil {
		return service.Task{}, false, f.ListenErr
	}
	t, added, err := f.AddTask(ctx, f.Transcript, f.AlarmInput())
	if err != nil {
		return service.Task{}, false, err
	}
	f.mu.Lock()
	f.alarmInput = ""
	f.mu.Unlock()
	f.emit()
	return t, added, nil
}

// SavedEmail implements service.Service.
func (f *FakeService) SavedEmail(ctx context.Context) (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.email, nil
}

// SaveEmail implements service.Service.
func (f *FakeService) SaveEmail(ctx context.Context, addr string) (string, error) {
	if f.SaveEmailErr != nil {
		return "", f.SaveEmailErr
	}
	addr = strings.TrimSpace(addr)
	if !prefs.Valid(addr) {
		return "", prefs.ErrInvalidEmail
	}
	f.mu.Lock()
	f.email = addr
	f.active = addr
	f.mu.Unlock()
	f.emit()
	return addr, nil
}

// ClearEmail implements service.Service.
func (f *FakeService) ClearEmail(ctx context.Context) error {
	if f.ClearEmailErr != nil {
		return f.ClearEmailErr
	}
	f.mu.Lock()
	f.email = ""
	f.active = ""
	f.mu.Unlock()
	f.emit()
	return nil
}

// Sync implements service.Service.
func (f *FakeService) Sync(ctx context.Context) (service.SyncResult, error) {
	if f.SyncErr != nil {
		return service.SyncResult{}, f.SyncErr
	}
	return f.SyncResult, nil
}

// Attach implements service.Runner.
func (f *FakeService) Attach(surface service.Surface, render func(service.View)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.surface = surface
	f.render = render
}

// Run implements service.Runner. It renders once and blocks until ctx is done.
func (f *FakeService) Run(ctx context.Context) error {
	if f.RunErr != nil {
		return f.RunErr
	}
	f.emit()
	<-ctx.Done()
	return nil
}

// StopAlarm implements service.Runner.
func (f *FakeService) StopAlarm(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return nil
}

func (f *FakeService) indexLocked(id int64) int {
	for i, t := range f.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (f *FakeService) emit() {
	f.mu.RLock()
	render := f.render
	v := service.View{
		Tasks:        append([]service.Task(nil), f.tasks...),
		AlarmInput:   f.alarmInput,
		EmailPrefill: f.email,
		EmailActive:  f.active,
	}
	f.mu.RUnlock()
	if render != nil {
		render(v)
	}
}
