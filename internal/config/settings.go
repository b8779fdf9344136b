package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration is a time.Duration that decodes from strings like "10s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Settings mirrors config.toml.
type Settings struct {
	Storage StorageSettings `toml:"storage"`
	Alarm   AlarmSettings   `toml:"alarm"`
	Speech  SpeechSettings  `toml:"speech"`
	Audio   AudioSettings   `toml:"audio"`
	Notify  NotifySettings  `toml:"notify"`
	Email   EmailSettings   `toml:"email"`
	Mirror  MirrorSettings  `toml:"mirror"`
	Log     LogSettings     `toml:"log"`
}

// StorageSettings configures the durable key-value store.
type StorageSettings struct {
	Path string `toml:"path"`
}

// AlarmSettings configures polling and the active alarm.
type AlarmSettings struct {
	PollInterval  Duration `toml:"poll_interval"`
	StopAfter     Duration `toml:"stop_after"`
	DisplayLayout string   `toml:"display_layout"`
}

// SpeechSettings configures the speech recognizer.
type SpeechSettings struct {
	Locale   string   `toml:"locale"`
	Endpoint string   `toml:"endpoint"`
	Token    string   `toml:"token"`
	Model    string   `toml:"model"`
	Recorder []string `toml:"recorder"`
	Timeout  Duration `toml:"timeout"`
}

// AudioSettings configures the alarm sound.
type AudioSettings struct {
	Cue           string   `toml:"cue"`
	Player        []string `toml:"player"`
	BeepFrequency float64  `toml:"beep_frequency"`
}

// NotifySettings configures desktop notifications.
type NotifySettings struct {
	Enabled bool   `toml:"enabled"`
	Title   string `toml:"title"`
}

// EmailSettings configures the email relay.
type EmailSettings struct {
	// Relay is "emailjs", "gmail" or empty (disabled).
	Relay      string   `toml:"relay"`
	Endpoint   string   `toml:"endpoint"`
	ServiceID  string   `toml:"service_id"`
	TemplateID string   `toml:"template_id"`
	PublicKey  string   `toml:"public_key"`
	PrivateKey string   `toml:"private_key"`
	Timeout    Duration `toml:"timeout"`
}

// MirrorSettings configures the Google Tasks mirror.
type MirrorSettings struct {
	List string `toml:"list"`
}

// LogSettings configures console logging.
type LogSettings struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// DefaultSettings returns the built-in defaults.
func DefaultSettings() Settings {
	return Settings{
		Alarm: AlarmSettings{
			PollInterval:  Duration{10 * time.Second},
			StopAfter:     Duration{15 * time.Second},
			DisplayLayout: "02/01/2006, 15:04:05",
		},
		Speech: SpeechSettings{
			Locale:   "pt-BR",
			Model:    "whisper-1",
			Recorder: []string{"arecord", "-q", "-f", "S16_LE", "-r", "16000", "-c", "1", "-d", "5", "{file}"},
			Timeout:  Duration{30 * time.Second},
		},
		Audio: AudioSettings{
			Player:        []string{"aplay", "-q", "{file}"},
			BeepFrequency: 880,
		},
		Notify: NotifySettings{
			Enabled: true,
			Title:   "Lembrete de Tarefa",
		},
		Email: EmailSettings{
			Endpoint: "https://api.emailjs.com/api/v1.0/email/send",
			Timeout:  Duration{10 * time.Second},
		},
		Mirror: MirrorSettings{
			List: "Voice To-Do",
		},
		Log: LogSettings{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load creates a Config for configDir and applies, in order:
// defaults, config.toml (if present), then VOXTODO_* environment variables.
func Load(configDir string) (*Config, error) {
	cfg, err := New(configDir)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(cfg.SettingsPath()); err == nil {
		if _, err := toml.DecodeFile(cfg.SettingsPath(), &cfg.Settings); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", cfg.SettingsPath(), err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := loadFromEnv(&cfg.Settings); err != nil {
		return nil, err
	}
	if err := cfg.Settings.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail at runtime.
func (s *Settings) Validate() error {
	if s.Alarm.PollInterval.Duration <= 0 {
		return fmt.Errorf("alarm.poll_interval must be positive")
	}
	if s.Alarm.StopAfter.Duration <= 0 {
		return fmt.Errorf("alarm.stop_after must be positive")
	}
	switch s.Email.Relay {
	case "", "emailjs", "gmail":
	default:
		return fmt.Errorf("unknown email.relay: %s", s.Email.Relay)
	}
	return nil
}

// loadFromEnv overrides settings from environment variables.
func loadFromEnv(s *Settings) error {
	if v := os.Getenv("VOXTODO_DB"); v != "" {
		s.Storage.Path = v
	}
	if v := os.Getenv("VOXTODO_POLL_INTERVAL"); v != "" {
		if err := s.Alarm.PollInterval.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("VOXTODO_POLL_INTERVAL: %w", err)
		}
	}
	if v := os.Getenv("VOXTODO_STOP_AFTER"); v != "" {
		if err := s.Alarm.StopAfter.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("VOXTODO_STOP_AFTER: %w", err)
		}
	}
	if v := os.Getenv("VOXTODO_SPEECH_ENDPOINT"); v != "" {
		s.Speech.Endpoint = v
	}
	if v := os.Getenv("VOXTODO_SPEECH_TOKEN"); v != "" {
		s.Speech.Token = v
	}
	if v := os.Getenv("VOXTODO_SPEECH_LOCALE"); v != "" {
		s.Speech.Locale = v
	}
	if v := os.Getenv("VOXTODO_AUDIO_CUE"); v != "" {
		s.Audio.Cue = v
	}
	if v := os.Getenv("VOXTODO_EMAIL_RELAY"); v != "" {
		s.Email.Relay = v
	}
	if v := os.Getenv("VOXTODO_EMAILJS_PUBLIC_KEY"); v != "" {
		s.Email.PublicKey = v
	}
	if v := os.Getenv("VOXTODO_EMAILJS_PRIVATE_KEY"); v != "" {
		s.Email.PrivateKey = v
	}
	if v := os.Getenv("VOXTODO_LOG_LEVEL"); v != "" {
		s.Log.Level = v
	}
	return nil
}
