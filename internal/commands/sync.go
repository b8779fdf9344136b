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
	Register(&SyncCmd{})
}

// SyncCmd mirrors the list into Google Tasks.
type SyncCmd struct{}

func (c *SyncCmd) Name() string       { return "sync" }
func (c *SyncCmd) Aliases() []string  { return nil }
func (c *SyncCmd) Synopsis() string   { return "Mirror tasks into Google Tasks" }
func (c *SyncCmd) Usage() string      { return "voxtodo sync" }
func (c *SyncCmd) NeedsService() bool { return true }

func (c *SyncCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *SyncCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	res, err := svc.Sync(ctx)
	if err != nil {
		return report(errOut, err)
	}

	if !cfg.Quiet {
		output.FormatSyncResult(out, res)
	}
	return exitcode.Success
}
