// Package tasks holds the task record and the persisted task list.
package tasks

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// isoLayout matches JavaScript's Date.prototype.toISOString.
const isoLayout = "2006-01-02T15:04:05.000Z"

// inputLayouts are the accepted local date-time forms for alarm input.
var inputLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
}

// ErrInvalidAlarm is returned when alarm input cannot be parsed.
var ErrInvalidAlarm = errors.New("invalid alarm date/time")

// Timestamp is an absolute point in time serialized in ISO form.
type Timestamp struct {
	time.Time
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(isoLayout))
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	t.Time = v
	return nil
}

// Task is one to-do item with an optional one-shot alarm.
type Task struct {
	ID        int64      `json:"id"`
	Text      string     `json:"text"`
	Completed bool       `json:"completed"`
	Alarm     *Timestamp `json:"alarm"`
}

// HasAlarm reports whether the task has a pending alarm.
func (t Task) HasAlarm() bool {
	return t.Alarm != nil
}

// IsDue reports whether the alarm is set, the task is open and now >= alarm.
func (t Task) IsDue(now time.Time) bool {
	return t.Alarm != nil && !t.Completed && !now.Before(t.Alarm.Time)
}

// ParseAlarm converts a local date-time input into an absolute timestamp.
// Empty input yields nil. RFC 3339 input is accepted with any zone. The
// result is truncated to the millisecond precision of the stored form.
func ParseAlarm(input string, loc *time.Location) (*Timestamp, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}
	if loc == nil {
		loc = time.Local
	}
	if v, err := time.Parse(time.RFC3339Nano, input); err == nil {
		return &Timestamp{v.UTC().Truncate(time.Millisecond)}, nil
	}
	for _, layout := range inputLayouts {
		if v, err := time.ParseInLocation(layout, input, loc); err == nil {
			return &Timestamp{v.UTC()}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrInvalidAlarm, input)
}

// FormatAlarm renders an alarm for humans in loc using layout.
// A nil alarm renders as none.
func FormatAlarm(alarm *Timestamp, layout string, loc *time.Location, none string) string {
	if alarm == nil {
		return none
	}
	if loc == nil {
		loc = time.Local
	}
	return alarm.In(loc).Format(layout)
}

// Encode serializes the list as the persisted JSON array.
// A nil list encodes as [] rather than null.
func Encode(list []Task) (string, error) {
	if list == nil {
		list = []Task{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(list); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
