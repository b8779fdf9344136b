// Package audio plays the looping alarm cue.
package audio

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gen2brain/beeep"

	"voxtodo/internal/logging"
)

// Player is a single pre-loaded sound.
//
// Play starts looping playback in the background and returns once it has
// started. Pause stops it; Rewind moves back to the start so the next Play
// begins from the top.
type Player interface {
	Play(ctx context.Context) error
	Pause()
	Rewind()
}

// Compile-time interface checks.
var (
	_ Player = (*CommandPlayer)(nil)
	_ Player = (*BeepPlayer)(nil)
)

// FilePlaceholder in a player argv is replaced with the cue path.
const FilePlaceholder = "{file}"

// CommandPlayer loops an external player command over a WAV cue.
type CommandPlayer struct {
	cue  string
	argv []string
	info Info
	log  *log.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	repeats int
}

// NewCommandPlayer validates the cue and the player binary.
func NewCommandPlayer(cue string, argv []string, logger *log.Logger) (*CommandPlayer, error) {
	if len(argv) == 0 {
		return nil, errors.New("audio player command is empty")
	}
	if _, err := exec.LookPath(argv[0]); err != nil {
		return nil, fmt.Errorf("audio player %s: %w", argv[0], err)
	}
	info, err := Inspect(cue)
	if err != nil {
		return nil, fmt.Errorf("load cue: %w", err)
	}
	if logger == nil {
		logger = logging.Discard()
	}
	logger.Debug("alarm cue loaded", "path", cue, "duration", info.Duration, "rate", info.SampleRate)
	return &CommandPlayer{cue: cue, argv: argv, info: info, log: logger}, nil
}

// Info returns the cue header.
func (p *CommandPlayer) Info() Info {
	return p.info
}

// Play implements Player. Playing an already playing cue is a no-op.
func (p *CommandPlayer) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return nil
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.loop(loopCtx, p.done)
	return nil
}

func (p *CommandPlayer) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	args := make([]string, len(p.argv))
	for i, a := range p.argv {
		args[i] = strings.ReplaceAll(a, FilePlaceholder, p.cue)
	}
	for ctx.Err() == nil {
		cmd := exec.CommandContext(ctx, args[0], args[1:]...)
		err := cmd.Run()
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			p.log.Warn("audio player failed", "error", err)
			return
		}
		p.mu.Lock()
		p.repeats++
		p.mu.Unlock()
	}
}

// Pause implements Player. It blocks until the player process has exited.
func (p *CommandPlayer) Pause() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Rewind implements Player.
func (p *CommandPlayer) Rewind() {
	p.mu.Lock()
	p.repeats = 0
	p.mu.Unlock()
}

// Repeats returns how many full passes of the cue have played since Rewind.
func (p *CommandPlayer) Repeats() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.repeats
}

// BeepPlayer loops a system beep when no cue file is configured.
type BeepPlayer struct {
	freq     float64
	length   time.Duration
	interval time.Duration
	beep     func(freq float64, ms int) error
	log      *log.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	count  int
}

// NewBeepPlayer creates a BeepPlayer at freq Hz.
func NewBeepPlayer(freq float64, logger *log.Logger) *BeepPlayer {
	if freq <= 0 {
		freq = beeep.DefaultFreq
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &BeepPlayer{
		freq:     freq,
		length:   300 * time.Millisecond,
		interval: time.Second,
		beep:     beeep.Beep,
		log:      logger,
	}
}

// SetBeepFunc replaces the system beep. Used in tests.
func (p *BeepPlayer) SetBeepFunc(fn func(freq float64, ms int) error, interval time.Duration) {
	p.beep = fn
	p.interval = interval
}

// Play implements Player.
func (p *BeepPlayer) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return nil
	}
	if err := p.beep(p.freq, int(p.length/time.Millisecond)); err != nil {
		return fmt.Errorf("beep: %w", err)
	}
	p.count++

	loopCtx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.loop(loopCtx, p.done)
	return nil
}

func (p *BeepPlayer) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.beep(p.freq, int(p.length/time.Millisecond)); err != nil {
				p.log.Warn("beep failed", "error", err)
				return
			}
			p.mu.Lock()
			p.count++
			p.mu.Unlock()
		}
	}
}

// Pause implements Player.
func (p *BeepPlayer) Pause() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Rewind implements Player.
func (p *BeepPlayer) Rewind() {
	p.mu.Lock()
	p.count = 0
	p.mu.Unlock()
}

// Beeps returns the number of beeps since Rewind.
func (p *BeepPlayer) Beeps() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}
