package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"voxtodo/internal/alarm"
	"voxtodo/internal/audio"
	"voxtodo/internal/backend/googleauth"
	"voxtodo/internal/backend/googletasks"
	"voxtodo/internal/config"
	"voxtodo/internal/kv"
	"voxtodo/internal/logging"
	"voxtodo/internal/mail"
	"voxtodo/internal/notify"
	"voxtodo/internal/prefs"
	"voxtodo/internal/speech"
	"voxtodo/internal/tasks"
)

// Open builds a loaded Controller from cfg over the SQLite store.
// The returned close function releases the database.
func Open(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Controller, func() error, error) {
	db, err := kv.OpenSQLite(ctx, cfg.DatabasePath())
	if err != nil {
		return nil, nil, err
	}
	c, err := Build(ctx, cfg, db, logger)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return c, db.Close, nil
}

// Build assembles and loads a Controller over store.
func Build(ctx context.Context, cfg *config.Config, store kv.Store, logger *log.Logger) (*Controller, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	s := cfg.Settings
	surface := &SurfaceSwitch{}

	taskStore := tasks.NewStore(store, tasks.WithLogger(logger))
	email := prefs.NewEmail(store)

	var notifier notify.Notifier = notify.Disabled{}
	if s.Notify.Enabled {
		notifier = notify.NewDesktop(store, surface, logger)
	}

	trigger := alarm.NewTrigger(
		newPlayer(s.Audio, logger),
		notifier,
		newRelay(cfg, logger),
		email,
		surface,
		alarm.TriggerConfig{
			StopAfter:     s.Alarm.StopAfter.Duration,
			Title:         s.Notify.Title,
			ServiceID:     s.Email.ServiceID,
			TemplateID:    s.Email.TemplateID,
			DisplayLayout: s.Alarm.DisplayLayout,
		},
		alarm.WithTriggerLogger(logger),
	)

	c := New(Deps{
		Store:        taskStore,
		Email:        email,
		Trigger:      trigger,
		Capture:      speech.NewCapture(newRecognizer(s.Speech, logger), speech.DefaultOptions(s.Speech.Locale), logger),
		Notifier:     notifier,
		Mirror:       newMirrorFactory(cfg),
		Surface:      surface,
		PollInterval: s.Alarm.PollInterval.Duration,
		Log:          logger,
	})
	if err := c.Load(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// newPlayer prefers the configured cue and falls back to a system beep.
func newPlayer(s config.AudioSettings, logger *log.Logger) audio.Player {
	if s.Cue != "" {
		p, err := audio.NewCommandPlayer(s.Cue, s.Player, logger)
		if err == nil {
			return p
		}
		logger.Warn("alarm cue unavailable, using beep", "error", err)
	}
	return audio.NewBeepPlayer(s.BeepFrequency, logger)
}

func newRecognizer(s config.SpeechSettings, logger *log.Logger) speech.Recognizer {
	rec, err := speech.NewHTTPRecognizer(speech.HTTPConfig{
		Endpoint: s.Endpoint,
		Token:    s.Token,
		Model:    s.Model,
		Recorder: s.Recorder,
		Timeout:  s.Timeout.Duration,
	}, logger)
	if err != nil {
		logger.Debug("speech recognition disabled", "reason", err)
		return nil
	}
	return rec
}

func newRelay(cfg *config.Config, logger *log.Logger) mail.Relay {
	s := cfg.Settings.Email
	switch s.Relay {
	case "emailjs":
		return mail.NewEmailJS(s.Endpoint, s.PublicKey, s.PrivateKey, s.Timeout.Duration)
	case "gmail":
		return &lazyRelay{build: func(ctx context.Context) (mail.Relay, error) {
			httpClient, err := googleauth.HTTPClient(ctx, cfg)
			if err != nil {
				return nil, err
			}
			return mail.NewGmail(ctx, httpClient)
		}}
	default:
		logger.Debug("email relay disabled")
		return mail.Disabled{}
	}
}

// lazyRelay builds its relay on first use so a missing login only fails
// the send, not startup.
type lazyRelay struct {
	build func(ctx context.Context) (mail.Relay, error)

	mu    sync.Mutex
	relay mail.Relay
}

func (l *lazyRelay) Send(ctx context.Context, msg mail.Message) error {
	l.mu.Lock()
	if l.relay == nil {
		r, err := l.build(ctx)
		if err != nil {
			l.mu.Unlock()
			return fmt.Errorf("gmail relay: %w", err)
		}
		l.relay = r
	}
	r := l.relay
	l.mu.Unlock()
	return r.Send(ctx, msg)
}

func newMirrorFactory(cfg *config.Config) MirrorFactory {
	return func(ctx context.Context) (Mirror, error) {
		if !cfg.HasOAuthClient() {
			return nil, fmt.Errorf("%w: oauth_client.json not found in %s", googleauth.ErrNotLoggedIn, cfg.Dir)
		}
		c, err := googletasks.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}
