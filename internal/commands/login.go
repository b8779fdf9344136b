package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"voxtodo/internal/backend/googleauth"
	"voxtodo/internal/config"
	"voxtodo/internal/exitcode"
	"voxtodo/internal/service"
)

const (
	loginCallbackTimeout = 5 * time.Minute
	loginExchangeTimeout = 30 * time.Second
	loginCheckTimeout    = 10 * time.Second
)

func init() {
	Register(&LoginCmd{})
}

// LoginCmd implements the login command.
type LoginCmd struct{}

func (c *LoginCmd) Name() string       { return "login" }
func (c *LoginCmd) Aliases() []string  { return nil }
func (c *LoginCmd) Synopsis() string   { return "Authenticate with Google for sync and Gmail alarms" }
func (c *LoginCmd) Usage() string      { return "voxtodo login [common flags]" }
func (c *LoginCmd) NeedsService() bool { return false }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {}

// Run authorizes one token covering the Tasks mirror and the Gmail relay.
func (c *LoginCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if !cfg.HasOAuthClient() {
		printClientSetup(errOut, cfg.Dir)
		return exitcode.AuthError
	}

	if cfg.HasToken() {
		checkCtx, cancel := context.WithTimeout(ctx, loginCheckTimeout)
		usable := googleauth.TokenUsable(checkCtx, cfg)
		cancel()
		if usable {
			if !cfg.Quiet {
				fmt.Fprintln(out, "already logged in")
			}
			return exitcode.Success
		}
	}

	oauthConfig, err := googleauth.OAuthConfig(cfg)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}
	listener, err := googleauth.ListenCallback()
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}
	flow := googleauth.NewFlow(oauthConfig, listener)
	defer flow.Close()

	fmt.Fprintln(errOut, "Open this URL in your browser:")
	fmt.Fprintln(errOut, flow.AuthURL())

	code, err := flow.Wait(ctx, loginCallbackTimeout)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(errOut, "error: cancelled")
		} else {
			fmt.Fprintf(errOut, "error: %v\n", err)
		}
		return exitcode.AuthError
	}

	exchangeCtx, cancel := context.WithTimeout(ctx, loginExchangeTimeout)
	defer cancel()
	token, err := flow.Exchange(exchangeCtx, code)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}
	if err := googleauth.SaveToken(cfg, token); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

func printClientSetup(w io.Writer, dir string) {
	fmt.Fprintf(w, "error: oauth_client.json not found in %s\n\n", dir)
	fmt.Fprint(w, `Syncing to Google Tasks and sending alarm emails through Gmail need
a Google OAuth client:

  1. Open https://console.cloud.google.com/apis/credentials and pick a project.
  2. Enable the Google Tasks API and the Gmail API.
  3. Create an OAuth client ID of type "Desktop app" and download its JSON.
`)
	fmt.Fprintf(w, "  4. Save it as %s/oauth_client.json and run 'voxtodo login' again.\n", dir)
}
