package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"voxtodo/internal/kv"
	"voxtodo/internal/logging"
)

// StorageKey is the durable-storage key holding the task array.
const StorageKey = "tasks"

// ErrNotFound is returned when no task has the given id.
var ErrNotFound = errors.New("task not found")

// Store is the ordered in-memory task list mirrored to durable storage.
// Every mutation rewrites the whole list before returning, and the
// in-memory list only changes once the write succeeded.
// Store is not safe for concurrent use; the app controller serializes access.
type Store struct {
	kv       kv.Store
	tasks    []Task
	raw      string // stored value last read or written
	loc      *time.Location
	now      func() time.Time
	onChange func([]Task)
	log      *log.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for ids.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLocation sets the zone local alarm input is interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) { s.loc = loc }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.log = l }
}

// NewStore creates an empty store over kv. Call Load to read persisted tasks.
func NewStore(store kv.Store, opts ...Option) *Store {
	s := &Store{
		kv:  store,
		loc: time.Local,
		now: time.Now,
		log: logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnChange registers fn to be called with a copy of the list after every
// mutation and load.
func (s *Store) OnChange(fn func([]Task)) {
	s.onChange = fn
}

// Load reads the persisted list. Absent, unparseable or schema-invalid data
// yields an empty list; only storage read failures are returned.
func (s *Store) Load(ctx context.Context) error {
	raw, err := s.read(ctx)
	if err != nil {
		return err
	}
	s.apply(raw)
	return nil
}

// Reload picks up writes made by other processes sharing the storage.
// It leaves the list alone when the stored value is the one last seen.
func (s *Store) Reload(ctx context.Context) (changed bool, err error) {
	raw, err := s.read(ctx)
	if err != nil {
		return false, err
	}
	if raw == s.raw {
		return false, nil
	}
	s.log.Debug("tasks changed in storage, reloading")
	s.apply(raw)
	return true, nil
}

func (s *Store) read(ctx context.Context) (string, error) {
	raw, err := s.kv.Get(ctx, StorageKey)
	if errors.Is(err, kv.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load tasks: %w", err)
	}
	return raw, nil
}

func (s *Store) apply(raw string) {
	s.raw = raw
	s.tasks = decode(raw, s.log)
	s.changed()
}

// decode parses the stored array; anything absent or invalid is empty.
func decode(raw string, logger *log.Logger) []Task {
	if raw == "" {
		return nil
	}
	if errs := Validate([]byte(raw)); len(errs) > 0 {
		logger.Warn("persisted tasks are invalid, starting empty", "error", errs[0], "violations", len(errs))
		return nil
	}
	var list []Task
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		logger.Warn("persisted tasks are unreadable, starting empty", "error", err)
		return nil
	}
	return list
}

// Tasks returns a copy of the list in order.
func (s *Store) Tasks() []Task {
	return cloneList(s.tasks)
}

// Get returns the task with id.
func (s *Store) Get(id int64) (Task, error) {
	i := s.indexOf(id)
	if i < 0 {
		return Task{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return cloneTask(s.tasks[i]), nil
}

// Add appends a task. Blank text is a silent no-op (added is false).
func (s *Store) Add(ctx context.Context, text, alarmInput string) (task Task, added bool, err error) {
	if strings.TrimSpace(text) == "" {
		return Task{}, false, nil
	}
	alarm, err := ParseAlarm(alarmInput, s.loc)
	if err != nil {
		return Task{}, false, err
	}

	task = Task{
		ID:    s.nextID(),
		Text:  text,
		Alarm: alarm,
	}
	if err := s.commit(ctx, append(cloneList(s.tasks), task)); err != nil {
		return Task{}, false, err
	}
	s.log.Debug("task added", "id", task.ID, "alarm", task.HasAlarm())
	return cloneTask(task), true, nil
}

// SetCompleted sets the completed flag of one task.
func (s *Store) SetCompleted(ctx context.Context, id int64, completed bool) error {
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	next := cloneList(s.tasks)
	next[i].Completed = completed
	return s.commit(ctx, next)
}

// Remove deletes one task, keeping the relative order of the rest.
func (s *Store) Remove(ctx context.Context, id int64) error {
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	next := cloneList(s.tasks)
	return s.commit(ctx, append(next[:i], next[i+1:]...))
}

// ClearAlarm sets the alarm of one task to null.
func (s *Store) ClearAlarm(ctx context.Context, id int64) error {
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	next := cloneList(s.tasks)
	next[i].Alarm = nil
	return s.commit(ctx, next)
}

func (s *Store) indexOf(id int64) int {
	for i, t := range s.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// nextID derives an id from the clock in milliseconds, bumped past every
// existing id so two adds within the same millisecond stay unique.
func (s *Store) nextID() int64 {
	id := s.now().UnixMilli()
	for _, t := range s.tasks {
		if t.ID >= id {
			id = t.ID + 1
		}
	}
	return id
}

// commit writes next and makes it the current list. On failure the
// current list is untouched.
func (s *Store) commit(ctx context.Context, next []Task) error {
	data, err := Encode(next)
	if err != nil {
		return fmt.Errorf("encode tasks: %w", err)
	}
	if err := s.kv.Set(ctx, StorageKey, data); err != nil {
		return fmt.Errorf("save tasks: %w", err)
	}
	s.tasks = next
	s.raw = data
	s.changed()
	return nil
}

func (s *Store) changed() {
	if s.onChange != nil {
		s.onChange(cloneList(s.tasks))
	}
}

func cloneTask(t Task) Task {
	if t.Alarm != nil {
		a := *t.Alarm
		t.Alarm = &a
	}
	return t
}

func cloneList(list []Task) []Task {
	out := make([]Task, len(list))
	for i, t := range list {
		out[i] = cloneTask(t)
	}
	return out
}
