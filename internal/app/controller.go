// Package app owns the application state and runs the single loop that
// serializes user requests, speech events and alarm polling.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"voxtodo/internal/alarm"
	"voxtodo/internal/logging"
	"voxtodo/internal/notify"
	"voxtodo/internal/prefs"
	"voxtodo/internal/service"
	"voxtodo/internal/speech"
	"voxtodo/internal/tasks"
)

// Display texts.
const (
	ListeningText        = "Speak your task..."
	RecognitionErrorText = "recognition error: "
	UnsupportedText      = "Sorry, speech recognition is not available on this system. Configure [speech] endpoint and recorder."
)

// Mirror copies the task list to a remote service.
type Mirror interface {
	Sync(ctx context.Context, list []tasks.Task) (service.SyncResult, error)
}

// MirrorFactory builds a Mirror on demand, usually after checking login.
type MirrorFactory func(ctx context.Context) (Mirror, error)

// Deps are the collaborators a Controller drives.
type Deps struct {
	Store        *tasks.Store
	Email        *prefs.Email
	Trigger      *alarm.Trigger
	Capture      *speech.Capture
	Notifier     notify.Notifier
	Mirror       MirrorFactory
	Surface      *SurfaceSwitch
	PollInterval time.Duration
	Now          func() time.Time
	Log          *log.Logger
}

type request struct {
	ctx  context.Context
	fn   func(ctx context.Context) error
	done chan error
}

// Controller implements service.Runner.
type Controller struct {
	store    *tasks.Store
	email    *prefs.Email
	trigger  *alarm.Trigger
	sched    *alarm.Scheduler
	capture  *speech.Capture
	notifier notify.Notifier
	mirror   MirrorFactory
	poll     time.Duration
	now      func() time.Time
	log      *log.Logger

	surface *SurfaceSwitch
	render  func(service.View)

	// Owned by whoever executes requests: the caller before Run, the loop after.
	alarmInput string
	output     string
	listening  bool

	mu      sync.Mutex
	running bool
	reqs    chan request
	stopped chan struct{}
}

// Compile-time interface check.
var _ service.Runner = (*Controller)(nil)

// New creates a Controller. Call Load before use.
func New(d Deps) *Controller {
	if d.PollInterval <= 0 {
		d.PollInterval = alarm.DefaultPollInterval
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Log == nil {
		d.Log = logging.Discard()
	}
	if d.Notifier == nil {
		d.Notifier = notify.Disabled{}
	}
	if d.Capture == nil {
		d.Capture = speech.NewCapture(nil, speech.DefaultOptions(""), d.Log)
	}
	if d.Surface == nil {
		d.Surface = &SurfaceSwitch{}
	}
	return &Controller{
		store:    d.Store,
		email:    d.Email,
		trigger:  d.Trigger,
		sched:    alarm.NewScheduler(d.Store, d.Trigger, d.Log),
		capture:  d.Capture,
		notifier: d.Notifier,
		mirror:   d.Mirror,
		poll:     d.PollInterval,
		now:      d.Now,
		log:      d.Log,
		surface:  d.Surface,
		reqs:     make(chan request),
		stopped:  make(chan struct{}),
	}
}

// Load reads the persisted tasks and the saved email pre-fill.
func (c *Controller) Load(ctx context.Context) error {
	return c.do(ctx, func(ctx context.Context) error {
		if err := c.store.Load(ctx); err != nil {
			return err
		}
		return c.email.Load(ctx)
	})
}

// Attach implements service.Runner.
func (c *Controller) Attach(surface service.Surface, render func(service.View)) {
	c.surface.Set(surface)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.render = render
}

// Run implements service.Runner. It returns nil when ctx is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return errors.New("application loop already running")
	}
	c.running = true
	c.mu.Unlock()
	defer close(c.stopped)
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	c.startup(ctx)
	c.tick(ctx)

	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()

	c.log.Info("alarm loop started", "poll", c.poll, "tasks", len(c.store.Tasks()))
	for {
		select {
		case <-ctx.Done():
			c.trigger.Stop()
			c.log.Info("alarm loop stopped")
			return nil
		case <-ticker.C:
			c.tick(ctx)
		case req := <-c.reqs:
			req.done <- c.exec(req.ctx, req.fn)
		}
	}
}

// startup asks for notification permission once and reports a missing
// speech capability once.
func (c *Controller) startup(ctx context.Context) {
	if c.notifier.Permission(ctx) == notify.Default {
		if _, err := c.notifier.RequestPermission(ctx); err != nil {
			c.log.Debug("notification permission not answered", "error", err)
		}
	}
	if !c.capture.Supported() {
		c.surface.Alert(UnsupportedText)
	}
	c.emit()
}

func (c *Controller) tick(ctx context.Context) {
	reloaded := c.refresh(ctx)
	fired := c.sched.Check(ctx, c.now())
	if reloaded || len(fired) > 0 {
		c.emit()
	}
}

// refresh re-reads the persisted list so tasks written by other voxtodo
// processes are scheduled and survive the next whole-list write.
func (c *Controller) refresh(ctx context.Context) bool {
	changed, err := c.store.Reload(ctx)
	if err != nil {
		c.log.Warn("reloading tasks failed, keeping current list", "error", err)
		return false
	}
	return changed
}

// do executes fn on the loop when it is running, otherwise on the caller.
func (c *Controller) do(ctx context.Context, fn func(ctx context.Context) error) error {
	c.mu.Lock()
	if !c.running {
		defer c.mu.Unlock()
		return c.exec(ctx, fn)
	}
	c.mu.Unlock()

	req := request{ctx: ctx, fn: fn, done: make(chan error, 1)}
	select {
	case c.reqs <- req:
	case <-c.stopped:
		return service.ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) exec(ctx context.Context, fn func(ctx context.Context) error) error {
	c.refresh(ctx)
	err := fn(ctx)
	c.emit()
	return err
}

func (c *Controller) view() service.View {
	return service.View{
		Tasks:        c.store.Tasks(),
		AlarmInput:   c.alarmInput,
		Output:       c.output,
		Listening:    c.listening,
		EmailPrefill: c.email.Prefill(),
		EmailActive:  c.email.Active(),
		AlarmActive:  c.trigger.Active(),
	}
}

func (c *Controller) emit() {
	if c.render != nil {
		c.render(c.view())
	}
}

// Tasks implements service.Service.
func (c *Controller) Tasks(ctx context.Context) ([]service.Task, error) {
	var list []service.Task
	err := c.do(ctx, func(ctx context.Context) error {
		list = c.store.Tasks()
		return nil
	})
	return list, err
}

// AddTask implements service.Service.
func (c *Controller) AddTask(ctx context.Context, text, alarmInput string) (service.Task, bool, error) {
	var (
		task  service.Task
		added bool
	)
	err := c.do(ctx, func(ctx context.Context) error {
		var err error
		task, added, err = c.store.Add(ctx, text, alarmInput)
		return err
	})
	return task, added, err
}

// SetCompleted implements service.Service.
func (c *Controller) SetCompleted(ctx context.Context, id int64, completed bool) error {
	return c.do(ctx, func(ctx context.Context) error {
		return c.store.SetCompleted(ctx, id, completed)
	})
}

// DeleteTask implements service.Service.
func (c *Controller) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, func(ctx context.Context) error {
		return c.store.Remove(ctx, id)
	})
}

// SetAlarmInput implements service.Service.
func (c *Controller) SetAlarmInput(ctx context.Context, value string) error {
	return c.do(ctx, func(ctx context.Context) error {
		c.alarmInput = value
		return nil
	})
}

// Listen implements service.Service. Recording and transcription run on the
// caller; each session event is applied through the loop.
func (c *Controller) Listen(ctx context.Context) (service.Task, bool, error) {
	var (
		task  service.Task
		added bool
		addErr error
	)
	hooks := speech.Hooks{
		OnStart: func() {
			c.post(ctx, func(context.Context) error {
				c.listening = true
				c.output = ListeningText
				return nil
			})
		},
		OnResult: func(transcript string) {
			addErr = c.do(ctx, func(ctx context.Context) error {
				c.output = transcript
				var err error
				task, added, err = c.store.Add(ctx, transcript, c.alarmInput)
				if err != nil {
					c.output = err.Error()
					return err
				}
				c.alarmInput = ""
				return nil
			})
		},
		OnError: func(reason string) {
			c.post(ctx, func(context.Context) error {
				c.output = RecognitionErrorText + reason
				return nil
			})
		},
		OnEnd: func() {
			c.post(ctx, func(context.Context) error {
				c.listening = false
				return nil
			})
		},
	}

	_, err := c.capture.Listen(ctx, hooks)
	if err != nil {
		return service.Task{}, false, err
	}
	return task, added, addErr
}

// post applies a state change and logs instead of returning failures.
func (c *Controller) post(ctx context.Context, fn func(ctx context.Context) error) {
	if err := c.do(ctx, fn); err != nil {
		c.log.Debug("event dropped", "error", err)
	}
}

// SavedEmail implements service.Service.
func (c *Controller) SavedEmail(ctx context.Context) (string, error) {
	var addr string
	err := c.do(ctx, func(ctx context.Context) error {
		addr = c.email.Prefill()
		return nil
	})
	return addr, err
}

// SaveEmail implements service.Service.
func (c *Controller) SaveEmail(ctx context.Context, addr string) (string, error) {
	var saved string
	err := c.do(ctx, func(ctx context.Context) error {
		var err error
		saved, err = c.email.Save(ctx, addr)
		return err
	})
	return saved, err
}

// ClearEmail implements service.Service.
func (c *Controller) ClearEmail(ctx context.Context) error {
	return c.do(ctx, func(ctx context.Context) error {
		return c.email.Clear(ctx)
	})
}

// StopAlarm implements service.Runner.
func (c *Controller) StopAlarm(ctx context.Context) error {
	return c.do(ctx, func(context.Context) error {
		c.trigger.Stop()
		return nil
	})
}

// Sync implements service.Service. The remote calls run on the caller with
// a snapshot of the list.
func (c *Controller) Sync(ctx context.Context) (service.SyncResult, error) {
	if c.mirror == nil {
		return service.SyncResult{}, fmt.Errorf("task mirror is not configured")
	}
	list, err := c.Tasks(ctx)
	if err != nil {
		return service.SyncResult{}, err
	}
	m, err := c.mirror(ctx)
	if err != nil {
		return service.SyncResult{}, err
	}
	return m.Sync(ctx, list)
}

