package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"voxtodo/internal/config"
	"voxtodo/internal/exitcode"
	"voxtodo/internal/output"
	"voxtodo/internal/service"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command.
// Handles both `voxtodo` (no args) and `voxtodo list`.
type ListCmd struct {
	ids  bool
	open bool
}

// SetShowIDs toggles id output (for testing).
func (c *ListCmd) SetShowIDs(ids bool) {
	c.ids = ids
}

// SetOpenOnly hides completed tasks (for testing).
func (c *ListCmd) SetOpenOnly(open bool) {
	c.open = open
}

func (c *ListCmd) Name() string       { return "list" }
func (c *ListCmd) Aliases() []string  { return []string{"ls"} }
func (c *ListCmd) Synopsis() string   { return "List tasks" }
func (c *ListCmd) Usage() string      { return "voxtodo list [--ids] [--open]" }
func (c *ListCmd) NeedsService() bool { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.ids, "ids", false, "")
	fs.BoolVar(&c.open, "open", false, "")
}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	list, err := svc.Tasks(ctx)
	if err != nil {
		return report(errOut, err)
	}

	opts := output.Options{
		Layout:  cfg.Settings.Alarm.DisplayLayout,
		ShowIDs: c.ids,
	}

	// Numbers always refer to the full list so done/rm references stay valid.
	shown := 0
	for i, task := range list {
		if c.open && task.Completed {
			continue
		}
		output.FormatTask(out, i+1, task, opts)
		shown++
	}

	if shown == 0 && !cfg.Quiet {
		fmt.Fprintln(out, "no tasks found")
	}
	return exitcode.Success
}
