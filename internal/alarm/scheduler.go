package alarm

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"voxtodo/internal/logging"
	"voxtodo/internal/tasks"
)

// DefaultPollInterval is how often due alarms are checked.
const DefaultPollInterval = 10 * time.Second

// TaskStore is the part of the task store the scheduler needs.
type TaskStore interface {
	Tasks() []tasks.Task
	ClearAlarm(ctx context.Context, id int64) error
}

// Firer fires one due task.
type Firer interface {
	Fire(ctx context.Context, task tasks.Task)
}

// Due returns the tasks whose alarm is set, that are not completed and
// whose alarm time is at or before now, in list order.
func Due(list []tasks.Task, now time.Time) []tasks.Task {
	var due []tasks.Task
	for _, t := range list {
		if t.IsDue(now) {
			due = append(due, t)
		}
	}
	return due
}

// Scheduler fires due alarms on each poll tick.
type Scheduler struct {
	store TaskStore
	firer Firer
	log   *log.Logger
}

// NewScheduler creates a Scheduler.
func NewScheduler(store TaskStore, firer Firer, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Scheduler{store: store, firer: firer, log: logger}
}

// Check fires every task due at now and clears its alarm in the same tick,
// so a fired alarm is never seen again. It returns the fired tasks.
func (s *Scheduler) Check(ctx context.Context, now time.Time) []tasks.Task {
	due := Due(s.store.Tasks(), now)
	for _, t := range due {
		s.firer.Fire(ctx, t)
		if err := s.store.ClearAlarm(ctx, t.ID); err != nil {
			s.log.Error("failed to clear fired alarm", "id", t.ID, "error", err)
		}
	}
	return due
}
