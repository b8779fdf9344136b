// Package googletasks mirrors the local to-do list into a Google Tasks list.
package googletasks

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"google.golang.org/api/option"
	gtasks "google.golang.org/api/tasks/v1"

	"voxtodo/internal/backend/googleauth"
	"voxtodo/internal/config"
	"voxtodo/internal/service"
	"voxtodo/internal/tasks"
)

const (
	// PageSize is the number of tasks per page.
	PageSize = 100

	// APITimeout is the timeout for API calls.
	APITimeout = 5 * time.Second

	// DefaultListTitle is the mirror list used when none is configured.
	DefaultListTitle = "Voice To-Do"

	// markerPrefix tags mirrored items in their notes.
	markerPrefix = "voxtodo:"

	statusCompleted   = "completed"
	statusNeedsAction = "needsAction"
)

// Client mirrors tasks into one Google Tasks list.
type Client struct {
	svc       *gtasks.Service
	listTitle string
}

// New creates a mirror client from the stored login.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	httpClient, err := googleauth.HTTPClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gtasks.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}
	return &Client{svc: svc, listTitle: listTitle(cfg.Settings.Mirror.List)}, nil
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, list string, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := gtasks.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{svc: svc, listTitle: listTitle(list)}, nil
}

func listTitle(s string) string {
	if strings.TrimSpace(s) == "" {
		return DefaultListTitle
	}
	return s
}

// Marker returns the notes tag identifying a mirrored task.
func Marker(id int64) string {
	return markerPrefix + strconv.FormatInt(id, 10)
}

// parseMarker extracts the local id from mirrored notes.
func parseMarker(notes string) (int64, bool) {
	for _, line := range strings.Split(notes, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, markerPrefix) {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimPrefix(line, markerPrefix), 10, 64)
		if err == nil {
			return id, true
		}
	}
	return 0, false
}

// Due returns the Google Tasks due value for an alarm.
// The API keeps only the date, so the time part is zeroed.
func Due(alarm *tasks.Timestamp) string {
	if alarm == nil {
		return ""
	}
	y, m, d := alarm.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Format("2006-01-02T15:04:05.000Z")
}

func status(t tasks.Task) string {
	if t.Completed {
		return statusCompleted
	}
	return statusNeedsAction
}

// Sync makes the mirror list match local: missing items are inserted,
// changed ones patched and mirrored items removed locally are deleted.
// Items in the list without a marker are left alone.
func (c *Client) Sync(ctx context.Context, local []tasks.Task) (service.SyncResult, error) {
	var res service.SyncResult

	listID, err := c.ensureList(ctx)
	if err != nil {
		return res, err
	}

	remote, err := c.mirrored(ctx, listID)
	if err != nil {
		return res, err
	}

	seen := make(map[int64]bool, len(local))
	for _, t := range local {
		seen[t.ID] = true
		want := &gtasks.Task{
			Title:  t.Text,
			Notes:  Marker(t.ID),
			Status: status(t),
			Due:    Due(t.Alarm),
		}

		have, ok := remote[t.ID]
		if !ok {
			if err := c.insert(ctx, listID, want); err != nil {
				return res, err
			}
			res.Inserted++
			continue
		}
		if have.Title == want.Title && have.Status == want.Status && sameDue(have.Due, want.Due) {
			res.Unchanged++
			continue
		}
		if err := c.patch(ctx, listID, have.Id, want); err != nil {
			return res, err
		}
		res.Updated++
	}

	for id, have := range remote {
		if seen[id] {
			continue
		}
		if err := c.delete(ctx, listID, have.Id); err != nil {
			return res, err
		}
		res.Deleted++
	}

	return res, nil
}

func sameDue(a, b string) bool {
	if a == b {
		return true
	}
	ta, errA := time.Parse(time.RFC3339, a)
	tb, errB := time.Parse(time.RFC3339, b)
	return errA == nil && errB == nil && ta.Equal(tb)
}

// ensureList finds the mirror list by title (case-insensitive, trimmed),
// creating it when absent.
func (c *Client) ensureList(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	want := strings.ToLower(strings.TrimSpace(c.listTitle))
	var id string
	err := c.svc.Tasklists.List().MaxResults(100).Pages(ctx, func(resp *gtasks.TaskLists) error {
		for _, list := range resp.Items {
			if id == "" && strings.ToLower(strings.TrimSpace(list.Title)) == want {
				id = list.Id
			}
		}
		return nil
	})
	if err != nil {
		return "", googleauth.WrapError(err)
	}
	if id != "" {
		return id, nil
	}

	created, err := c.svc.Tasklists.Insert(&gtasks.TaskList{Title: c.listTitle}).Context(ctx).Do()
	if err != nil {
		return "", googleauth.WrapError(err)
	}
	return created.Id, nil
}

// mirrored returns the marked items of the list keyed by local id.
func (c *Client) mirrored(ctx context.Context, listID string) (map[int64]*gtasks.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	out := make(map[int64]*gtasks.Task)
	err := c.svc.Tasks.List(listID).
		MaxResults(PageSize).
		ShowCompleted(true).
		ShowHidden(true).
		ShowDeleted(false).
		Pages(ctx, func(resp *gtasks.Tasks) error {
			for _, item := range resp.Items {
				if id, ok := parseMarker(item.Notes); ok {
					out[id] = item
				}
			}
			return nil
		})
	if err != nil {
		return nil, googleauth.WrapError(err)
	}
	return out, nil
}

func (c *Client) insert(ctx context.Context, listID string, t *gtasks.Task) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	if _, err := c.svc.Tasks.Insert(listID, t).Context(ctx).Do(); err != nil {
		return googleauth.WrapError(err)
	}
	return nil
}

func (c *Client) patch(ctx context.Context, listID, taskID string, t *gtasks.Task) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	// Send empty due explicitly so a cleared alarm clears the date.
	if t.Due == "" {
		t.NullFields = append(t.NullFields, "Due")
	}
	if t.Status == statusNeedsAction {
		t.NullFields = append(t.NullFields, "Completed")
	}
	if _, err := c.svc.Tasks.Patch(listID, taskID, t).Context(ctx).Do(); err != nil {
		return googleauth.WrapError(err)
	}
	return nil
}

func (c *Client) delete(ctx context.Context, listID, taskID string) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	if err := c.svc.Tasks.Delete(listID, taskID).Context(ctx).Do(); err != nil {
		return googleauth.WrapError(err)
	}
	return nil
}
