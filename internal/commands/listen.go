package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"voxtodo/internal/config"
	"voxtodo/internal/exitcode"
	"voxtodo/internal/service"
)

func init() {
	Register(&ListenCmd{})
}

// ListenCmd captures one spoken task and adds it.
type ListenCmd struct {
	alarm string
}

// SetAlarm sets the alarm input (for testing).
func (c *ListenCmd) SetAlarm(alarm string) {
	c.alarm = alarm
}

func (c *ListenCmd) Name() string       { return "listen" }
func (c *ListenCmd) Aliases() []string  { return []string{"speak"} }
func (c *ListenCmd) Synopsis() string   { return "Add a task by voice" }
func (c *ListenCmd) Usage() string      { return "voxtodo listen [--alarm <datetime>]" }
func (c *ListenCmd) NeedsService() bool { return true }

func (c *ListenCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.alarm, "alarm", "", "")
	fs.StringVar(&c.alarm, "a", "", "")
}

func (c *ListenCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	if err := svc.SetAlarmInput(ctx, c.alarm); err != nil {
		return report(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(errOut, "listening...")
	}
	task, added, err := svc.Listen(ctx)
	if err != nil {
		return report(errOut, err)
	}
	if !added {
		fmt.Fprintln(errOut, "error: nothing was heard")
		return exitcode.UserError
	}

	if !cfg.Quiet {
		fmt.Fprintf(out, "added: %s\n", task.Text)
	}
	return exitcode.Success
}
