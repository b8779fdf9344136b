// Package exitcode defines the process exit codes of the voxtodo CLI.
package exitcode

// Exit codes returned by every command.
const (
	// Success means the command completed.
	Success = 0

	// UserError covers bad arguments, unknown tasks and invalid input
	// such as a malformed alarm or email address.
	UserError = 1

	// AuthError covers configuration problems and missing or unusable
	// Google credentials.
	AuthError = 2

	// BackendError covers storage, network and remote API failures.
	BackendError = 3
)
