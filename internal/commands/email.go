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
	Register(&EmailCmd{})
}

// EmailCmd shows, saves or clears the alarm email address.
type EmailCmd struct{}

func (c *EmailCmd) Name() string       { return "email" }
func (c *EmailCmd) Aliases() []string  { return nil }
func (c *EmailCmd) Synopsis() string   { return "Show, set or clear the alarm email address" }
func (c *EmailCmd) Usage() string      { return "voxtodo email [set <address> | clear]" }
func (c *EmailCmd) NeedsService() bool { return true }

func (c *EmailCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *EmailCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		addr, err := svc.SavedEmail(ctx)
		if err != nil {
			return report(errOut, err)
		}
		if addr == "" {
			if !cfg.Quiet {
				fmt.Fprintln(out, "no saved email")
			}
			return exitcode.Success
		}
		fmt.Fprintln(out, addr)
		return exitcode.Success
	}

	switch args[0] {
	case "set":
		addr := strings.TrimSpace(strings.Join(args[1:], " "))
		if addr == "" {
			fmt.Fprintln(errOut, "error: email address required")
			return exitcode.UserError
		}
		if _, err := svc.SaveEmail(ctx, addr); err != nil {
			return report(errOut, err)
		}
	case "clear":
		if len(args) > 1 {
			fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[1])
			return exitcode.UserError
		}
		if err := svc.ClearEmail(ctx); err != nil {
			return report(errOut, err)
		}
	default:
		fmt.Fprintf(errOut, "error: unknown email action: %s\n", args[0])
		return exitcode.UserError
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
