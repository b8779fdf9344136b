package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"voxtodo/internal/config"
	"voxtodo/internal/exitcode"
	"voxtodo/internal/service"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string       { return "help" }
func (c *HelpCmd) Aliases() []string  { return nil }
func (c *HelpCmd) Synopsis() string   { return "Print usage" }
func (c *HelpCmd) Usage() string      { return "voxtodo help" }
func (c *HelpCmd) NeedsService() bool { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	fmt.Fprintln(out, "Usage:")
	fmt.Fprintln(out, "  voxtodo\tList all tasks")

	tw := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	for _, cmd := range DefaultRegistry.All() {
		fmt.Fprintf(tw, "  %s\t%s\n", cmd.Usage(), cmd.Synopsis())
	}
	tw.Flush()

	fmt.Fprint(out, helpFooter)
	return exitcode.Success
}

const helpFooter = `
Task references:
  <n>              Position shown by list (1-based)
  @<id>            Task id shown by list --ids

Alarm date-times:
  2024-05-01T10:30, 2024-05-01 10:30 or RFC 3339, local time

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
