package commands_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"voxtodo/internal/commands"
	"voxtodo/internal/config"
	"voxtodo/internal/exitcode"
	"voxtodo/internal/service"
	"voxtodo/internal/speech"
	"voxtodo/internal/testutil"
)

// runCommand is a helper to run a command with a FakeService.
func runCommand(t *testing.T, cmd commands.Command, svc service.Service, args []string, quiet bool) (stdout, stderr string, code int) {
	t.Helper()
	return runCommandCtx(t, context.Background(), cmd, svc, args, quiet)
}

func runCommandCtx(t *testing.T, ctx context.Context, cmd commands.Command, svc service.Service, args []string, quiet bool) (stdout, stderr string, code int) {
	t.Helper()

	var outBuf, errBuf bytes.Buffer

	cfg := &config.Config{
		Dir:      t.TempDir(),
		Quiet:    quiet,
		Settings: config.DefaultSettings(),
	}

	code = cmd.Run(ctx, cfg, svc, args, &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

// Tests for version command
func TestVersionCommand(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.VersionCmd{}, nil, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "voxtodo 0.1.0\n" {
		t.Errorf("expected version output, got %q", stdout)
	}
}

// Tests for help command
func TestHelpCommand(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.HelpCmd{}, nil, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	for _, want := range []string{"Usage:", "voxtodo add [--alarm <datetime>] <text...>", "voxtodo tui", "@<id>"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("help output should contain %q", want)
		}
	}
}

// Tests for list command
func TestListCommand_WithTasks(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.Seed("buy milk", false, nil)
	svc.Seed("call mom", true, nil)

	stdout, stderr, code := runCommand(t, &commands.ListCmd{}, svc, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	expected := "   1  [ ] buy milk  (Sem alarme)\n   2  [x] call mom  (Sem alarme)\n"
	if stdout != expected {
		t.Errorf("expected %q, got %q", expected, stdout)
	}
}

func TestListCommand_Empty(t *testing.T) {
	svc := testutil.NewFakeService()

	stdout, _, code := runCommand(t, &commands.ListCmd{}, svc, nil, false)
	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "no tasks found\n" {
		t.Errorf("expected 'no tasks found', got %q", stdout)
	}

	stdout, _, _ = runCommand(t, &commands.ListCmd{}, svc, nil, true)
	if stdout != "" {
		t.Errorf("expected no output in quiet mode, got %q", stdout)
	}
}

func TestListCommand_IDsAndOpen(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.Seed("done already", true, nil)
	svc.Seed("still open", false, nil)

	cmd := &commands.ListCmd{}
	cmd.SetShowIDs(true)
	stdout, _, _ := runCommand(t, cmd, svc, nil, false)
	expected := "   1  [x] done already  (Sem alarme)  @1\n   2  [ ] still open  (Sem alarme)  @2\n"
	if stdout != expected {
		t.Errorf("expected %q, got %q", expected, stdout)
	}

	// --open keeps the full-list numbering
	open := &commands.ListCmd{}
	open.SetOpenOnly(true)
	stdout, _, _ = runCommand(t, open, svc, nil, false)
	if stdout != "   2  [ ] still open  (Sem alarme)\n" {
		t.Errorf("unexpected open list %q", stdout)
	}
}

func TestListCommand_BackendError(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.TasksErr = errors.New("database is locked")

	_, stderr, code := runCommand(t, &commands.ListCmd{}, svc, nil, false)
	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
	if stderr != "error: backend error: database is locked\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

// Tests for add command
func TestAddCommand(t *testing.T) {
	svc := testutil.NewFakeService()

	stdout, stderr, code := runCommand(t, &commands.AddCmd{}, svc, []string{"buy", "milk"}, false)
	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (%s)", exitcode.Success, code, stderr)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok', got %q", stdout)
	}

	list, _ := svc.Tasks(context.Background())
	if len(list) != 1 || list[0].Text != "buy milk" || list[0].Alarm != nil {
		t.Errorf("unexpected tasks %+v", list)
	}
}

func TestAddCommand_WithAlarm(t *testing.T) {
	svc := testutil.NewFakeService()
	cmd := &commands.AddCmd{}
	cmd.SetAlarm("2024-05-01T10:30")

	if _, stderr, code := runCommand(t, cmd, svc, []string{"dentist"}, true); code != exitcode.Success {
		t.Fatalf("expected success, got %d (%s)", code, stderr)
	}
	list, _ := svc.Tasks(context.Background())
	if len(list) != 1 || list[0].Alarm == nil {
		t.Errorf("expected task with alarm, got %+v", list)
	}
}

func TestAddCommand_Errors(t *testing.T) {
	tests := []struct {
		name   string
		alarm  string
		args   []string
		inject error
		code   int
		stderr string
	}{
		{"no text", "", nil, nil, exitcode.UserError, "error: task text required\n"},
		{"blank text", "", []string{"  "}, nil, exitcode.UserError, "error: task text required\n"},
		{"invalid alarm", "tomorrow", []string{"x"}, nil, exitcode.UserError, "error: invalid alarm date/time: tomorrow\n"},
		{"backend", "", []string{"x"}, errors.New("disk full"), exitcode.BackendError, "error: backend error: disk full\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := testutil.NewFakeService()
			svc.AddTaskErr = tt.inject
			cmd := &commands.AddCmd{}
			cmd.SetAlarm(tt.alarm)

			stdout, stderr, code := runCommand(t, cmd, svc, tt.args, false)
			if code != tt.code {
				t.Errorf("expected exit code %d, got %d", tt.code, code)
			}
			if stderr != tt.stderr {
				t.Errorf("expected %q, got %q", tt.stderr, stderr)
			}
			if stdout != "" {
				t.Errorf("expected no stdout, got %q", stdout)
			}
		})
	}
}

// Tests for done and rm commands
func TestDoneCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.Seed("a", false, nil)
	svc.Seed("b", false, nil)

	if _, stderr, code := runCommand(t, &commands.DoneCmd{}, svc, []string{"2"}, false); code != exitcode.Success {
		t.Fatalf("expected success, got %d (%s)", code, stderr)
	}
	list, _ := svc.Tasks(context.Background())
	if list[0].Completed || !list[1].Completed {
		t.Errorf("expected only task 2 completed, got %+v", list)
	}

	undo := &commands.DoneCmd{}
	undo.SetUndo(true)
	if _, _, code := runCommand(t, undo, svc, []string{"@2"}, true); code != exitcode.Success {
		t.Fatalf("expected undo success, got %d", code)
	}
	list, _ = svc.Tasks(context.Background())
	if list[1].Completed {
		t.Error("expected task 2 reopened")
	}
}

func TestDoneCommand_RefErrors(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.Seed("a", false, nil)

	tests := []struct {
		args   []string
		stderr string
	}{
		{nil, "error: task reference required\n"},
		{[]string{"abc"}, "error: invalid task reference: abc\n"},
		{[]string{"0"}, "error: task number out of range: 0\n"},
		{[]string{"5"}, "error: task number out of range: 5\n"},
		{[]string{"@999"}, "error: task not found\n"},
		{[]string{"1", "2"}, "error: invalid task reference: 1 2\n"},
	}
	for _, tt := range tests {
		_, stderr, code := runCommand(t, &commands.DoneCmd{}, svc, tt.args, false)
		if code != exitcode.UserError {
			t.Errorf("%v: expected exit code %d, got %d", tt.args, exitcode.UserError, code)
		}
		if stderr != tt.stderr {
			t.Errorf("%v: expected %q, got %q", tt.args, tt.stderr, stderr)
		}
	}
}

func TestRmCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.Seed("a", false, nil)
	svc.Seed("b", false, nil)
	svc.Seed("c", false, nil)

	stdout, _, code := runCommand(t, &commands.RmCmd{}, svc, []string{"2"}, false)
	if code != exitcode.Success || stdout != "ok\n" {
		t.Fatalf("expected ok, got %d %q", code, stdout)
	}
	list, _ := svc.Tasks(context.Background())
	if len(list) != 2 || list[0].Text != "a" || list[1].Text != "c" {
		t.Errorf("expected order preserved, got %+v", list)
	}
}

// Tests for email command
func TestEmailCommand(t *testing.T) {
	svc := testutil.NewFakeService()

	stdout, _, _ := runCommand(t, &commands.EmailCmd{}, svc, nil, false)
	if stdout != "no saved email\n" {
		t.Errorf("expected no saved email, got %q", stdout)
	}

	_, stderr, code := runCommand(t, &commands.EmailCmd{}, svc, []string{"set", "nope"}, false)
	if code != exitcode.UserError || stderr != "error: please enter a valid email address\n" {
		t.Errorf("expected invalid email error, got %d %q", code, stderr)
	}

	if _, _, code := runCommand(t, &commands.EmailCmd{}, svc, []string{"set", " a@b.com "}, false); code != exitcode.Success {
		t.Fatalf("expected set success, got %d", code)
	}
	stdout, _, _ = runCommand(t, &commands.EmailCmd{}, svc, nil, true)
	if stdout != "a@b.com\n" {
		t.Errorf("expected saved address, got %q", stdout)
	}

	if _, _, code := runCommand(t, &commands.EmailCmd{}, svc, []string{"clear"}, false); code != exitcode.Success {
		t.Fatalf("expected clear success, got %d", code)
	}
	if svc.ActiveEmail() != "" {
		t.Error("expected email cleared")
	}

	_, stderr, code = runCommand(t, &commands.EmailCmd{}, svc, []string{"send"}, false)
	if code != exitcode.UserError || stderr != "error: unknown email action: send\n" {
		t.Errorf("expected unknown action error, got %d %q", code, stderr)
	}
}

// Tests for listen command
func TestListenCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.Transcript = "comprar pão"
	cmd := &commands.ListenCmd{}
	cmd.SetAlarm("2024-05-01 10:30")

	stdout, stderr, code := runCommand(t, cmd, svc, nil, false)
	if code != exitcode.Success {
		t.Fatalf("expected success, got %d (%s)", code, stderr)
	}
	if stdout != "added: comprar pão\n" {
		t.Errorf("unexpected stdout %q", stdout)
	}
	if stderr != "listening...\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
	list, _ := svc.Tasks(context.Background())
	if len(list) != 1 || list[0].Alarm == nil {
		t.Errorf("expected spoken task with alarm, got %+v", list)
	}
	if svc.AlarmInput() != "" {
		t.Error("alarm field should be cleared")
	}
}

func TestListenCommand_Errors(t *testing.T) {
	tests := []struct {
		err    error
		stderr string
	}{
		{speech.ErrNoSpeech, "error: no-speech\n"},
		{speech.ErrUnsupported, "error: speech recognition is not supported on this system\n"},
	}
	for _, tt := range tests {
		svc := testutil.NewFakeService()
		svc.ListenErr = tt.err
		_, stderr, code := runCommand(t, &commands.ListenCmd{}, svc, nil, true)
		if code != exitcode.UserError {
			t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
		}
		if stderr != tt.stderr {
			t.Errorf("expected %q, got %q", tt.stderr, stderr)
		}
	}
}

// Tests for sync command
func TestSyncCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.SyncResult = service.SyncResult{Inserted: 1, Unchanged: 2}

	stdout, _, code := runCommand(t, &commands.SyncCmd{}, svc, nil, false)
	if code != exitcode.Success {
		t.Fatalf("expected success, got %d", code)
	}
	if stdout != "inserted 1, updated 0, deleted 0, unchanged 2\n" {
		t.Errorf("unexpected stdout %q", stdout)
	}
}

func TestSyncCommand_NotLoggedIn(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.SyncErr = service.ErrNotLoggedIn

	_, stderr, code := runCommand(t, &commands.SyncCmd{}, svc, nil, false)
	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if !strings.HasPrefix(stderr, "error: auth error: not logged in") {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

// Tests for run command
func TestRunCommand_StopsOnCancel(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.SetSavedEmail("a@b.com")

	cmd := &commands.RunCmd{}
	cmd.SetInput(strings.NewReader(""), false)
	cmd.SetEmail("", true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stdout, stderr, code := runCommandCtx(t, ctx, cmd, svc, nil, false)
	if code != exitcode.Success {
		t.Fatalf("expected success, got %d (%s)", code, stderr)
	}
	if stdout != "ok\n" {
		t.Errorf("unexpected stdout %q", stdout)
	}
	if svc.ActiveEmail() != "a@b.com" {
		t.Errorf("expected saved email activated, got %q", svc.ActiveEmail())
	}
}

func TestRunCommand_EmailErrors(t *testing.T) {
	tests := []struct {
		name     string
		addr     string
		useSaved bool
		stderr   string
	}{
		{"both flags", "a@b.com", true, "error: cannot use both --email and --use-saved-email\n"},
		{"nothing saved", "", true, "error: no saved email (run: voxtodo email set <address>)\n"},
		{"invalid", "nope", false, "error: please enter a valid email address\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := testutil.NewFakeService()
			cmd := &commands.RunCmd{}
			cmd.SetInput(strings.NewReader(""), false)
			cmd.SetEmail(tt.addr, tt.useSaved)

			_, stderr, code := runCommand(t, cmd, svc, nil, false)
			if code != exitcode.UserError {
				t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
			}
			if stderr != tt.stderr {
				t.Errorf("expected %q, got %q", tt.stderr, stderr)
			}
		})
	}
}

func TestRunCommand_NoSavedEmailLeavesEmailOff(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.SetSavedEmail("a@b.com")
	cmd := &commands.RunCmd{}
	cmd.SetInput(strings.NewReader(""), false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, code := runCommandCtx(t, ctx, cmd, svc, nil, true); code != exitcode.Success {
		t.Fatalf("expected success, got %d", code)
	}
	if svc.ActiveEmail() != "" {
		t.Error("a saved address must not be used without --use-saved-email")
	}
}

// Tests for the console surface
func TestConsoleSurface(t *testing.T) {
	var out bytes.Buffer
	s := commands.NewConsoleSurface(strings.NewReader("y\nno\n"), &out, true, nil)

	ok, err := s.Confirm(context.Background(), "Allow notifications?")
	if err != nil || !ok {
		t.Errorf("expected yes, got %v %v", ok, err)
	}
	ok, err = s.Confirm(context.Background(), "Again?")
	if err != nil || ok {
		t.Errorf("expected no, got %v %v", ok, err)
	}

	s.Alert("Falha")
	want := "Allow notifications? [y/N] Again? [y/N] alert: Falha\n"
	if out.String() != want {
		t.Errorf("expected %q, got %q", want, out.String())
	}
}

func TestConsoleSurface_NotInteractive(t *testing.T) {
	var out bytes.Buffer
	s := commands.NewConsoleSurface(strings.NewReader("y\n"), &out, false, nil)

	ok, err := s.Confirm(context.Background(), "Allow notifications?")
	if ok || err == nil {
		t.Errorf("expected decline with error, got %v %v", ok, err)
	}
	if out.Len() != 0 {
		t.Errorf("nothing should be printed, got %q", out.String())
	}
}
