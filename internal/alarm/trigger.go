// Package alarm polls the task list for due alarms and fires their side
// effects: the audio cue, a desktop notification and an optional email.
package alarm

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"voxtodo/internal/audio"
	"voxtodo/internal/logging"
	"voxtodo/internal/mail"
	"voxtodo/internal/notify"
	"voxtodo/internal/tasks"
)

const (
	// DefaultStopAfter is how long the cue sounds before it stops by itself.
	DefaultStopAfter = 15 * time.Second

	// DefaultTitle is the notification title.
	DefaultTitle = "Lembrete de Tarefa"

	// DefaultDisplayLayout renders alarm_date in emails.
	DefaultDisplayLayout = "02/01/2006, 15:04:05"

	// NoDate is sent as alarm_date when the task has no alarm.
	NoDate = "Sem data definida"

	// EmailFailedAlert is shown when the relay rejects a message.
	EmailFailedAlert = "Failed to send the alarm email. See the log for details."
)

// EmailSource provides the active destination address, or "".
type EmailSource interface {
	Active() string
}

// Alerter surfaces a blocking message to the user.
type Alerter interface {
	Alert(msg string)
}

// Timer is a pending delayed action.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// TriggerConfig holds Trigger settings.
type TriggerConfig struct {
	StopAfter     time.Duration
	Title         string
	ServiceID     string
	TemplateID    string
	DisplayLayout string
	Location      *time.Location
}

// Trigger fires alarm side effects. Only one alarm is active at a time;
// a new one pre-empts the previous one.
type Trigger struct {
	player   audio.Player
	notifier notify.Notifier
	relay    mail.Relay
	email    EmailSource
	alerter  Alerter
	cfg      TriggerConfig
	after    AfterFunc
	log      *log.Logger

	mu     sync.Mutex
	active bool
	gen    uint64
	timer  Timer
	taskID int64
}

// TriggerOption configures a Trigger.
type TriggerOption func(*Trigger)

// WithAfterFunc replaces time.AfterFunc. Used in tests.
func WithAfterFunc(fn AfterFunc) TriggerOption {
	return func(t *Trigger) { t.after = fn }
}

// WithTriggerLogger sets the logger.
func WithTriggerLogger(l *log.Logger) TriggerOption {
	return func(t *Trigger) { t.log = l }
}

// NewTrigger creates a Trigger. Zero config fields take their defaults.
func NewTrigger(player audio.Player, notifier notify.Notifier, relay mail.Relay, email EmailSource, alerter Alerter, cfg TriggerConfig, opts ...TriggerOption) *Trigger {
	if cfg.StopAfter <= 0 {
		cfg.StopAfter = DefaultStopAfter
	}
	if cfg.Title == "" {
		cfg.Title = DefaultTitle
	}
	if cfg.DisplayLayout == "" {
		cfg.DisplayLayout = DefaultDisplayLayout
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	t := &Trigger{
		player:   player,
		notifier: notifier,
		relay:    relay,
		email:    email,
		alerter:  alerter,
		cfg:      cfg,
		after:    realAfterFunc,
		log:      logging.Discard(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Fire runs the side effects for a due task. No step is fatal.
func (t *Trigger) Fire(ctx context.Context, task tasks.Task) {
	t.mu.Lock()
	if t.active {
		t.log.Debug("pre-empting active alarm", "id", t.taskID)
		t.stopLocked()
	}
	t.gen++
	gen := t.gen
	t.active = true
	t.taskID = task.ID
	t.mu.Unlock()

	t.log.Info("alarm", "id", task.ID, "text", task.Text)

	if err := t.player.Play(ctx); err != nil {
		t.log.Warn("failed to play alarm sound", "error", err)
	}

	// The auto-stop deadline counts from when the cue starts, so a pending
	// permission prompt or email send does not extend it.
	t.mu.Lock()
	if t.gen == gen && t.active {
		t.timer = t.after(t.cfg.StopAfter, func() { t.stopGen(gen) })
	}
	t.mu.Unlock()

	t.showNotification(ctx, task)
	t.sendEmail(ctx, task)
}

func (t *Trigger) showNotification(ctx context.Context, task tasks.Task) {
	body := notify.AlarmBody(task.Text)
	switch t.notifier.Permission(ctx) {
	case notify.Granted:
	case notify.Denied:
		return
	default:
		p, err := t.notifier.RequestPermission(ctx)
		if err != nil {
			t.log.Debug("notification permission request failed", "error", err)
		}
		if p != notify.Granted {
			return
		}
	}
	if err := t.notifier.Show(t.cfg.Title, body); err != nil {
		t.log.Warn("failed to show notification", "error", err)
	}
}

func (t *Trigger) sendEmail(ctx context.Context, task tasks.Task) {
	to := t.email.Active()
	if to == "" {
		t.log.Debug("no email address active, skipping alarm email", "id", task.ID)
		return
	}

	msg := mail.Message{
		ServiceID:  t.cfg.ServiceID,
		TemplateID: t.cfg.TemplateID,
		Params: map[string]string{
			mail.ParamTo:        to,
			mail.ParamTaskText:  task.Text,
			mail.ParamAlarmDate: tasks.FormatAlarm(task.Alarm, t.cfg.DisplayLayout, t.cfg.Location, NoDate),
		},
	}
	t.log.Debug("sending alarm email", "to", to)
	if err := t.relay.Send(ctx, msg); err != nil {
		t.log.Error("failed to send alarm email", "to", to, "error", err)
		if t.alerter != nil {
			t.alerter.Alert(EmailFailedAlert)
		}
		return
	}
	t.log.Debug("alarm email sent", "to", to)
}

// Stop silences the active alarm, if any.
func (t *Trigger) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

// Active reports whether an alarm is sounding.
func (t *Trigger) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

func (t *Trigger) stopGen(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gen != gen {
		return
	}
	t.log.Debug("alarm auto-stopped", "id", t.taskID)
	t.stopLocked()
}

func (t *Trigger) stopLocked() {
	t.player.Pause()
	t.player.Rewind()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.active = false
}
