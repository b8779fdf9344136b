package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"voxtodo/internal/exitcode"
	"voxtodo/internal/prefs"
	"voxtodo/internal/service"
	"voxtodo/internal/speech"
	"voxtodo/internal/tasks"
)

// report prints err and returns the matching exit code.
func report(errOut io.Writer, err error) int {
	switch {
	case errors.Is(err, service.ErrNotLoggedIn), strings.Contains(err.Error(), "token"):
		fmt.Fprintf(errOut, "error: auth error: %v\n", err)
		return exitcode.AuthError
	case errors.Is(err, tasks.ErrNotFound):
		fmt.Fprintln(errOut, "error: task not found")
		return exitcode.UserError
	case errors.Is(err, tasks.ErrInvalidAlarm),
		errors.Is(err, prefs.ErrInvalidEmail),
		errors.Is(err, speech.ErrUnsupported),
		errors.Is(err, speech.ErrBusy),
		errors.Is(err, speech.ErrNoSpeech):
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	default:
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return exitcode.BackendError
	}
}
