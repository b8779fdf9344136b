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
	Register(&DoneCmd{})
}

// DoneCmd implements the done command.
type DoneCmd struct {
	undo bool
}

// SetUndo sets the undo flag (for testing).
func (c *DoneCmd) SetUndo(undo bool) {
	c.undo = undo
}

func (c *DoneCmd) Name() string       { return "done" }
func (c *DoneCmd) Aliases() []string  { return nil }
func (c *DoneCmd) Synopsis() string   { return "Mark a task completed" }
func (c *DoneCmd) Usage() string      { return "voxtodo done [--undo] <ref>" }
func (c *DoneCmd) NeedsService() bool { return true }

func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.undo, "undo", false, "")
}

func (c *DoneCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	task, code := resolveTaskArgs(ctx, svc, args, errOut)
	if code != exitcode.Success {
		return code
	}

	if err := svc.SetCompleted(ctx, task.ID, !c.undo); err != nil {
		return report(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
