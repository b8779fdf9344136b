package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"

	"voxtodo/internal/app"
	"voxtodo/internal/logging"
)

// ConsoleSurface reports alarm-loop events on a plain terminal.
// Confirm reads a y/n answer only when interactive; otherwise it declines.
type ConsoleSurface struct {
	out         io.Writer
	log         *log.Logger
	interactive bool

	mu    sync.Mutex
	in    io.Reader
	once  sync.Once
	lines chan string
}

// NewConsoleSurface creates a surface writing alerts to out.
func NewConsoleSurface(in io.Reader, out io.Writer, interactive bool, logger *log.Logger) *ConsoleSurface {
	if logger == nil {
		logger = logging.Discard()
	}
	return &ConsoleSurface{
		out:         out,
		log:         logger,
		interactive: interactive,
		in:          in,
		lines:       make(chan string),
	}
}

// readLines feeds input lines to Confirm. A single reader outlives
// cancelled prompts so no input is lost or read twice.
func (s *ConsoleSurface) readLines() {
	sc := bufio.NewScanner(s.in)
	for sc.Scan() {
		s.lines <- sc.Text()
	}
	close(s.lines)
}

// StdinIsTerminal reports whether os.Stdin can answer prompts.
func StdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Alert implements service.Surface.
func (s *ConsoleSurface) Alert(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "alert: %s\n", msg)
}

// Status implements service.Surface.
func (s *ConsoleSurface) Status(msg string) {
	s.log.Info(msg)
}

// Confirm implements service.Surface.
func (s *ConsoleSurface) Confirm(ctx context.Context, question string) (bool, error) {
	if !s.interactive {
		return false, app.ErrNoSurface
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "%s [y/N] ", question)

	s.once.Do(func() { go s.readLines() })

	select {
	case line, ok := <-s.lines:
		if !ok {
			return false, io.EOF
		}
		reply := strings.ToLower(strings.TrimSpace(line))
		return reply == "y" || reply == "yes", nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
