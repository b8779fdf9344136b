package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"text/template"
	"time"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"voxtodo/internal/backend/googleauth"
)

// GmailTimeout bounds one send call.
const GmailTimeout = 10 * time.Second

// Template renders a message subject and plain-text body from the params.
type Template struct {
	Subject *template.Template
	Body    *template.Template
}

// DefaultTemplate is used when Message.TemplateID names no registered template.
var DefaultTemplate = Template{
	Subject: template.Must(template.New("subject").Parse(`Lembrete de Tarefa: {{.task_text}}`)),
	Body: template.Must(template.New("body").Parse(
		"A tarefa \"{{.task_text}}\" está na hora!\n\nHorário do alarme: {{.alarm_date}}\n")),
}

// Gmail sends alarm messages from the logged-in account.
type Gmail struct {
	svc       *gmail.Service
	templates map[string]Template
}

// NewGmail creates a Gmail relay over an authenticated HTTP client.
func NewGmail(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (*Gmail, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}
	return &Gmail{svc: svc, templates: make(map[string]Template)}, nil
}

// Register adds a named template selectable through Message.TemplateID.
func (g *Gmail) Register(id string, t Template) {
	g.templates[id] = t
}

// Send implements Relay.
func (g *Gmail) Send(ctx context.Context, msg Message) error {
	to := msg.Params[ParamTo]
	if to == "" {
		return fmt.Errorf("%w: missing %s", ErrNotConfigured, ParamTo)
	}
	tmpl, ok := g.templates[msg.TemplateID]
	if !ok {
		tmpl = DefaultTemplate
	}

	raw, err := render(tmpl, to, msg.Params)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, GmailTimeout)
	defer cancel()

	_, err = g.svc.Users.Messages.Send("me", &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(raw),
	}).Context(ctx).Do()
	if err != nil {
		return googleauth.WrapError(err)
	}
	return nil
}

func render(tmpl Template, to string, params map[string]string) ([]byte, error) {
	var subject, body bytes.Buffer
	if err := tmpl.Subject.Execute(&subject, params); err != nil {
		return nil, fmt.Errorf("render subject: %w", err)
	}
	if err := tmpl.Body.Execute(&body, params); err != nil {
		return nil, fmt.Errorf("render body: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject.String()))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	buf.WriteString("\r\n")
	buf.Write(body.Bytes())
	return buf.Bytes(), nil
}
