// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"voxtodo/internal/service"
	"voxtodo/internal/tasks"
)

const (
	// NoAlarm is shown for tasks without an alarm.
	NoAlarm = "Sem alarme"

	// DefaultLayout renders alarms as day/month/year, hour:minute:second.
	DefaultLayout = "02/01/2006, 15:04:05"
)

// Options controls how alarm times are rendered.
type Options struct {
	Layout   string
	Location *time.Location

	// ShowIDs appends "@<id>" to each line.
	ShowIDs bool
}

func (o Options) layout() string {
	if o.Layout == "" {
		return DefaultLayout
	}
	return o.Layout
}

// FormatTask formats one task line.
// Format: "{N:>4}  [x] {TEXT}  ({ALARM})\n", with "  @{ID}" before the
// newline when ShowIDs is set.
func FormatTask(w io.Writer, num int, task service.Task, opts Options) {
	fmt.Fprintf(w, "%4d  %s %s  (%s)", num, checkbox(task.Completed), normalizeText(task.Text), AlarmText(task, opts))
	if opts.ShowIDs {
		fmt.Fprintf(w, "  @%d", task.ID)
	}
	fmt.Fprintln(w)
}

// FormatTasks formats the whole list, numbered from 1.
func FormatTasks(w io.Writer, list []service.Task, opts Options) {
	for i, task := range list {
		FormatTask(w, i+1, task, opts)
	}
}

// AlarmText renders the alarm of task, or NoAlarm.
func AlarmText(task service.Task, opts Options) string {
	return tasks.FormatAlarm(task.Alarm, opts.layout(), opts.Location, NoAlarm)
}

// FormatSyncResult formats the outcome of a mirror sync.
func FormatSyncResult(w io.Writer, res service.SyncResult) {
	fmt.Fprintf(w, "inserted %d, updated %d, deleted %d, unchanged %d\n",
		res.Inserted, res.Updated, res.Deleted, res.Unchanged)
}

func checkbox(completed bool) string {
	if completed {
		return "[x]"
	}
	return "[ ]"
}

// normalizeText normalizes a task text for display.
// - Empty or whitespace-only texts become "(untitled)"
// - Newlines are replaced with spaces
func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r", " ")
	text = strings.ReplaceAll(text, "\n", " ")

	if strings.TrimSpace(text) == "" {
		return "(untitled)"
	}
	return text
}
