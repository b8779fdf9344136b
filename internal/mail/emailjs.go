package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultEmailJSEndpoint is the EmailJS REST send endpoint.
const DefaultEmailJSEndpoint = "https://api.emailjs.com/api/v1.0/email/send"

// EmailJS sends templated mail through the EmailJS REST API.
type EmailJS struct {
	Endpoint   string
	PublicKey  string
	PrivateKey string
	Client     *http.Client
}

// NewEmailJS creates an EmailJS relay. An empty endpoint uses the public API.
func NewEmailJS(endpoint, publicKey, privateKey string, timeout time.Duration) *EmailJS {
	if endpoint == "" {
		endpoint = DefaultEmailJSEndpoint
	}
	return &EmailJS{
		Endpoint:   endpoint,
		PublicKey:  publicKey,
		PrivateKey: privateKey,
		Client:     &http.Client{Timeout: timeout},
	}
}

type emailJSRequest struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	AccessToken    string            `json:"accessToken,omitempty"`
	TemplateParams map[string]string `json:"template_params"`
}

// Send implements Relay.
func (e *EmailJS) Send(ctx context.Context, msg Message) error {
	if msg.ServiceID == "" || msg.TemplateID == "" || e.PublicKey == "" {
		return fmt.Errorf("%w: emailjs needs service_id, template_id and public_key", ErrNotConfigured)
	}

	body, err := json.Marshal(emailJSRequest{
		ServiceID:      msg.ServiceID,
		TemplateID:     msg.TemplateID,
		UserID:         e.PublicKey,
		AccessToken:    e.PrivateKey,
		TemplateParams: msg.Params,
	})
	if err != nil {
		return fmt.Errorf("encode emailjs request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build emailjs request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := e.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("emailjs request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("emailjs: status %d: %s", resp.StatusCode, strings.TrimSpace(string(text)))
	}
	return nil
}
