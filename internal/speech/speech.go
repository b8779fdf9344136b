// Package speech captures one spoken phrase and turns it into text.
package speech

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"voxtodo/internal/logging"
)

var (
	// ErrUnsupported is returned when no recognizer is available.
	ErrUnsupported = errors.New("speech recognition is not supported on this system")

	// ErrBusy is returned by Listen while another session is in flight.
	ErrBusy = errors.New("speech recognition already in progress")

	// ErrNoSpeech is returned when the recording contained nothing to transcribe.
	ErrNoSpeech = errors.New("no-speech")
)

// Options configure one recognition session.
type Options struct {
	Locale          string
	Interim         bool
	MaxAlternatives int
}

// DefaultOptions are fixed-locale, final-only, single-alternative options.
func DefaultOptions(locale string) Options {
	if locale == "" {
		locale = "pt-BR"
	}
	return Options{Locale: locale, Interim: false, MaxAlternatives: 1}
}

// Recognizer performs one-shot recognition and returns the final transcript.
type Recognizer interface {
	Recognize(ctx context.Context, opts Options) (string, error)
}

// Hooks receive session events. Any hook may be nil.
// OnEnd is always called last, whatever the outcome.
type Hooks struct {
	OnStart  func()
	OnResult func(transcript string)
	OnError  func(reason string)
	OnEnd    func()
}

// Capture runs at most one recognition session at a time.
type Capture struct {
	rec  Recognizer
	opts Options
	log  *log.Logger

	mu   sync.Mutex
	busy bool
}

// NewCapture wraps rec. A nil rec makes the capture unsupported.
func NewCapture(rec Recognizer, opts Options, logger *log.Logger) *Capture {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Capture{rec: rec, opts: opts, log: logger}
}

// Supported reports whether a recognizer is available.
func (c *Capture) Supported() bool {
	return c.rec != nil
}

// Listen runs one session and reports through hooks. It returns the
// transcript, ErrUnsupported, ErrBusy or the recognition error.
func (c *Capture) Listen(ctx context.Context, hooks Hooks) (string, error) {
	if c.rec == nil {
		return "", ErrUnsupported
	}

	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return "", ErrBusy
	}
	c.busy = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
		if hooks.OnEnd != nil {
			hooks.OnEnd()
		}
	}()

	if hooks.OnStart != nil {
		hooks.OnStart()
	}
	c.log.Debug("listening", "locale", c.opts.Locale)

	transcript, err := c.rec.Recognize(ctx, c.opts)
	if err != nil {
		c.log.Debug("recognition failed", "error", err)
		if hooks.OnError != nil {
			hooks.OnError(Reason(err))
		}
		return "", fmt.Errorf("recognize: %w", err)
	}

	if hooks.OnResult != nil {
		hooks.OnResult(transcript)
	}
	return transcript, nil
}

// Reason returns a short error reason suitable for display.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrNoSpeech):
		return "no-speech"
	case errors.Is(err, context.Canceled):
		return "aborted"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrUnsupported):
		return "not-supported"
	default:
		return err.Error()
	}
}
