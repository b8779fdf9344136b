package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"voxtodo/internal/config"
	"voxtodo/internal/exitcode"
	"voxtodo/internal/service"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	alarm string
}

// SetAlarm sets the alarm input (for testing).
func (c *AddCmd) SetAlarm(alarm string) {
	c.alarm = alarm
}

func (c *AddCmd) Name() string       { return "add" }
func (c *AddCmd) Aliases() []string  { return []string{"create"} }
func (c *AddCmd) Synopsis() string   { return "Add a task" }
func (c *AddCmd) Usage() string      { return "voxtodo add [--alarm <datetime>] <text...>" }
func (c *AddCmd) NeedsService() bool { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.alarm, "alarm", "", "")
	fs.StringVar(&c.alarm, "a", "", "")
}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	text := strings.Join(args, " ")
	if strings.TrimSpace(text) == "" {
		fmt.Fprintln(errOut, "error: task text required")
		return exitcode.UserError
	}

	if _, _, err := svc.AddTask(ctx, text, c.alarm); err != nil {
		return report(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
