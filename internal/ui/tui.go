// Package ui provides the interactive terminal view.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"voxtodo/internal/output"
	"voxtodo/internal/service"
)

// Options configures the view.
type Options struct {
	// Layout and Location render alarm times.
	Layout   string
	Location *time.Location

	// ProgramOptions are passed to tea.NewProgram. Tests drop the alt screen.
	ProgramOptions []tea.ProgramOption
}

// Run attaches the view to runner, runs the alarm loop in the background
// and blocks until the user quits or ctx is done.
func Run(ctx context.Context, runner service.Runner, opts Options) error {
	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := newModel(loopCtx, runner, opts)
	popts := opts.ProgramOptions
	if popts == nil {
		popts = []tea.ProgramOption{tea.WithAltScreen()}
	}
	popts = append(popts, tea.WithContext(ctx))
	program := tea.NewProgram(m, popts...)

	runner.Attach(&programSurface{p: program}, func(v service.View) {
		program.Send(viewMsg(v))
	})

	loopErr := make(chan error, 1)
	go func() { loopErr <- runner.Run(loopCtx) }()

	_, err := program.Run()
	cancel()
	if lerr := <-loopErr; lerr != nil && err == nil {
		err = lerr
	}
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// programSurface delivers loop events to the running program.
type programSurface struct {
	p *tea.Program
}

func (s *programSurface) Alert(msg string)  { s.p.Send(alertMsg(msg)) }
func (s *programSurface) Status(msg string) { s.p.Send(statusMsg(msg)) }

func (s *programSurface) Confirm(ctx context.Context, question string) (bool, error) {
	reply := make(chan bool, 1)
	s.p.Send(confirmMsg{question: question, reply: reply})
	select {
	case ok := <-reply:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

type (
	viewMsg   service.View
	alertMsg  string
	statusMsg string
	resultMsg struct {
		status string
		err    error
	}
	confirmMsg struct {
		question string
		reply    chan<- bool
	}
)

type mode int

const (
	modeList mode = iota
	modeAlarm
	modeEmail
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	doneStyle    = lipgloss.NewStyle().Faint(true).Strikethrough(true)
	alarmStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	alertStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
	ringingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3"))
	helpStyle    = lipgloss.NewStyle().Faint(true)
)

type model struct {
	ctx    context.Context
	svc    service.Runner
	opts   output.Options
	view   service.View
	cursor int
	mode   mode
	input  textinput.Model
	status string

	// Modal state: an alert waits for any key, a confirm for y or n.
	alert   string
	confirm *confirmMsg
}

func newModel(ctx context.Context, svc service.Runner, opts Options) model {
	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 40
	return model{
		ctx:    ctx,
		svc:    svc,
		opts:   output.Options{Layout: opts.Layout, Location: opts.Location},
		input:  ti,
		status: "Press s to speak a task, ? for keys.",
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case viewMsg:
		m.view = service.View(msg)
		m.cursor = clampCursor(m.cursor, len(m.view.Tasks))
		return m, nil
	case alertMsg:
		m.alert = string(msg)
		return m, nil
	case statusMsg:
		m.status = string(msg)
		return m, nil
	case confirmMsg:
		m.confirm = &msg
		return m, nil
	case resultMsg:
		if msg.err != nil {
			m.status = "error: " + msg.err.Error()
		} else if msg.status != "" {
			m.status = msg.status
		}
		return m, nil
	case tea.WindowSizeMsg:
		if msg.Width > 20 {
			m.input.Width = msg.Width - 20
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}
	if m.confirm != nil {
		return m.updateConfirm(key)
	}
	if m.alert != "" {
		m.alert = ""
		return m, nil
	}
	if m.mode != modeList {
		return m.updateInput(key, msg)
	}
	return m.updateList(key)
}

func (m model) updateConfirm(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "y", "Y":
		m.confirm.reply <- true
	case "n", "N", "esc":
		m.confirm.reply <- false
	default:
		return m, nil
	}
	m.confirm = nil
	return m, nil
}

func (m model) updateInput(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case "esc":
		m.mode = modeList
		m.input.Blur()
		m.status = "Cancelled"
		return m, nil
	case "enter":
		value := strings.TrimSpace(m.input.Value())
		editing := m.mode
		m.mode = modeList
		m.input.Blur()
		m.input.SetValue("")
		if editing == modeAlarm {
			return m, m.call("Alarm set for next spoken task", func(ctx context.Context) error {
				return m.svc.SetAlarmInput(ctx, value)
			})
		}
		return m, m.call("Email saved", func(ctx context.Context) error {
			_, err := m.svc.SaveEmail(ctx, value)
			return err
		})
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m model) updateList(key string) (tea.Model, tea.Cmd) {
	n := len(m.view.Tasks)
	switch key {
	case "q":
		return m, tea.Quit
	case "down", "j":
		m.cursor = clampCursor(m.cursor+1, n)
	case "up", "k":
		m.cursor = clampCursor(m.cursor-1, n)
	case " ", "enter":
		if n == 0 {
			return m, nil
		}
		task := m.view.Tasks[m.cursor]
		return m, m.call("", func(ctx context.Context) error {
			return m.svc.SetCompleted(ctx, task.ID, !task.Completed)
		})
	case "d", "delete":
		if n == 0 {
			return m, nil
		}
		task := m.view.Tasks[m.cursor]
		return m, m.call("Deleted task", func(ctx context.Context) error {
			return m.svc.DeleteTask(ctx, task.ID)
		})
	case "s":
		if m.view.Listening {
			return m, nil
		}
		return m, m.call("", func(ctx context.Context) error {
			_, _, err := m.svc.Listen(ctx)
			return err
		})
	case "a":
		m.mode = modeAlarm
		m.input.Placeholder = "YYYY-MM-DDTHH:MM"
		m.input.SetValue(m.view.AlarmInput)
		m.input.Focus()
		m.status = "Alarm for the next spoken task (empty for none), enter to set"
	case "e":
		m.mode = modeEmail
		m.input.Placeholder = "you@example.com"
		value := m.view.EmailActive
		if value == "" {
			value = m.view.EmailPrefill
		}
		m.input.SetValue(value)
		m.input.Focus()
		m.status = "Email for alarms, enter to save"
	case "x":
		return m, m.call("Email cleared", func(ctx context.Context) error {
			return m.svc.ClearEmail(ctx)
		})
	case "m":
		return m, m.call("Alarm silenced", func(ctx context.Context) error {
			return m.svc.StopAlarm(ctx)
		})
	case "?":
		m.status = keyHelp
	}
	return m, nil
}

// call runs fn off the update goroutine. The loop renders through
// program.Send, which needs Update to be free.
func (m model) call(okStatus string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return resultMsg{status: okStatus, err: fn(ctx)}
	}
}

const keyHelp = "j/k move • space toggle • d delete • s speak • a alarm • e email • x clear email • m silence • q quit"

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Voice To-Do"))
	b.WriteString("\n\n")

	alarm := m.view.AlarmInput
	if alarm == "" {
		alarm = "none"
	}
	email := m.view.EmailActive
	if email == "" {
		email = "off"
	}
	fmt.Fprintf(&b, "Next alarm: %s   Email: %s\n", alarm, email)
	if m.view.AlarmActive {
		b.WriteString(ringingStyle.Render("Alarm ringing (m to silence)"))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if len(m.view.Tasks) == 0 {
		b.WriteString("No tasks yet. Press s to speak one.\n")
	} else {
		b.WriteString(m.renderTaskList())
	}

	b.WriteString("\n")
	if m.view.Output != "" {
		b.WriteString(m.view.Output)
		b.WriteString("\n")
	}

	switch {
	case m.confirm != nil:
		b.WriteString(alertStyle.Render(m.confirm.question + " [y/n]"))
		b.WriteString("\n")
	case m.alert != "":
		b.WriteString(alertStyle.Render(m.alert))
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("press any key"))
		b.WriteString("\n")
	case m.mode != modeList:
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.status)
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(keyHelp))
	return b.String()
}

func (m model) renderTaskList() string {
	var b strings.Builder
	for i, t := range m.view.Tasks {
		cursor := " "
		if m.cursor == i && m.mode == modeList {
			cursor = ">"
		}
		checkbox := "[ ]"
		text := t.Text
		if t.Completed {
			checkbox = "[x]"
			text = doneStyle.Render(text)
		}
		fmt.Fprintf(&b, "%s %s %s  %s\n", cursor, checkbox, text, alarmStyle.Render(output.AlarmText(t, m.opts)))
	}
	return b.String()
}

func clampCursor(cur, n int) int {
	if n <= 0 || cur < 0 {
		return 0
	}
	if cur >= n {
		return n - 1
	}
	return cur
}
