// Package mail sends alarm messages through an email relay.
package mail

import (
	"context"
	"errors"
)

// Template parameter names shared by every relay.
const (
	ParamTo        = "to_email"
	ParamTaskText  = "task_text"
	ParamAlarmDate = "alarm_date"
)

// ErrNotConfigured is returned when the relay lacks required settings.
var ErrNotConfigured = errors.New("email relay is not configured")

// Message is one templated email.
type Message struct {
	ServiceID  string
	TemplateID string
	Params     map[string]string
}

// Relay delivers a Message. Delivery is attempted once.
type Relay interface {
	Send(ctx context.Context, msg Message) error
}

// Compile-time interface checks.
var (
	_ Relay = (*EmailJS)(nil)
	_ Relay = (*Gmail)(nil)
	_ Relay = Disabled{}
)

// Disabled rejects every message with ErrNotConfigured.
type Disabled struct{}

// Send implements Relay.
func (Disabled) Send(context.Context, Message) error { return ErrNotConfigured }
