package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"voxtodo/internal/config"
	"voxtodo/internal/exitcode"
	"voxtodo/internal/service"
	"voxtodo/internal/ui"
)

func init() {
	Register(&TUICmd{})
}

// TUICmd runs the interactive view with the alarm loop.
type TUICmd struct {
	useSaved bool
}

func (c *TUICmd) Name() string       { return "tui" }
func (c *TUICmd) Aliases() []string  { return []string{"ui"} }
func (c *TUICmd) Synopsis() string   { return "Interactive view with voice input and alarms" }
func (c *TUICmd) Usage() string      { return "voxtodo tui [--use-saved-email]" }
func (c *TUICmd) NeedsService() bool { return true }

func (c *TUICmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.useSaved, "use-saved-email", false, "")
}

func (c *TUICmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}
	runner, ok := svc.(service.Runner)
	if !ok {
		fmt.Fprintln(errOut, "error: alarm loop not available")
		return exitcode.BackendError
	}
	if f, ok := out.(*os.File); !ok || !isatty.IsTerminal(f.Fd()) {
		fmt.Fprintln(errOut, "error: tui requires a terminal")
		return exitcode.UserError
	}

	if code := activateEmail(ctx, svc, "", c.useSaved, errOut); code != exitcode.Success {
		return code
	}

	if err := ui.Run(ctx, runner, ui.Options{Layout: cfg.Settings.Alarm.DisplayLayout}); err != nil {
		return report(errOut, err)
	}
	return exitcode.Success
}
