package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"voxtodo/internal/config"
	"voxtodo/internal/exitcode"
	"voxtodo/internal/logging"
	"voxtodo/internal/service"
)

func init() {
	Register(&RunCmd{stdin: os.Stdin, interactive: StdinIsTerminal})
}

// RunCmd runs the alarm loop headless until interrupted.
type RunCmd struct {
	email       string
	useSaved    bool
	stdin       io.Reader
	interactive func() bool
}

// SetInput replaces stdin and the terminal check (for testing).
func (c *RunCmd) SetInput(in io.Reader, interactive bool) {
	c.stdin = in
	c.interactive = func() bool { return interactive }
}

// SetEmail sets the --email flag (for testing).
func (c *RunCmd) SetEmail(addr string, useSaved bool) {
	c.email = addr
	c.useSaved = useSaved
}

func (c *RunCmd) Name() string       { return "run" }
func (c *RunCmd) Aliases() []string  { return []string{"daemon"} }
func (c *RunCmd) Synopsis() string   { return "Watch for due alarms until interrupted" }
func (c *RunCmd) Usage() string      { return "voxtodo run [--email <address>] [--use-saved-email]" }
func (c *RunCmd) NeedsService() bool { return true }

func (c *RunCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.email, "email", "", "")
	fs.BoolVar(&c.useSaved, "use-saved-email", false, "")
}

func (c *RunCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}
	runner, ok := svc.(service.Runner)
	if !ok {
		fmt.Fprintln(errOut, "error: alarm loop not available")
		return exitcode.BackendError
	}

	if code := activateEmail(ctx, svc, c.email, c.useSaved, errOut); code != exitcode.Success {
		return code
	}

	logger := logging.New(errOut, cfg.LogOptions())
	in := c.stdin
	if in == nil {
		in = os.Stdin
	}
	interactive := c.interactive != nil && c.interactive()
	runner.Attach(NewConsoleSurface(in, errOut, interactive, logger), nil)

	if !cfg.Quiet {
		fmt.Fprintln(errOut, "watching alarms (Ctrl+C to stop)")
	}
	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return report(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// activateEmail makes addr, or the saved address when useSaved is set, the
// active alarm email. Neither flag leaves email inactive.
func activateEmail(ctx context.Context, svc service.Service, addr string, useSaved bool, errOut io.Writer) int {
	if addr != "" && useSaved {
		fmt.Fprintln(errOut, "error: cannot use both --email and --use-saved-email")
		return exitcode.UserError
	}
	if useSaved {
		saved, err := svc.SavedEmail(ctx)
		if err != nil {
			return report(errOut, err)
		}
		if saved == "" {
			fmt.Fprintln(errOut, "error: no saved email (run: voxtodo email set <address>)")
			return exitcode.UserError
		}
		addr = saved
	}
	if addr == "" {
		return exitcode.Success
	}
	if _, err := svc.SaveEmail(ctx, addr); err != nil {
		return report(errOut, err)
	}
	return exitcode.Success
}
