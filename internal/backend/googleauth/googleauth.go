// Package googleauth loads the stored Google OAuth client and token.
package googleauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"voxtodo/internal/config"
	"voxtodo/internal/service"
)

const (
	// TasksScope grants access to Google Tasks (mirror).
	TasksScope = "https://www.googleapis.com/auth/tasks"

	// GmailSendScope grants send-only access to Gmail (email relay).
	GmailSendScope = "https://www.googleapis.com/auth/gmail.send"
)

// Scopes are requested at login; every Google-backed component shares one token.
var Scopes = []string{TasksScope, GmailSendScope}

// ErrNotLoggedIn is returned when the OAuth client or token is missing.
var ErrNotLoggedIn = service.ErrNotLoggedIn

// OAuthConfig reads oauth_client.json.
func OAuthConfig(cfg *config.Config) (*oauth2.Config, error) {
	clientJSON, err := os.ReadFile(cfg.OAuthClientPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth_client.json: %w", err)
	}
	oauthConfig, err := google.ConfigFromJSON(clientJSON, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("invalid oauth_client.json: %w", err)
	}
	return oauthConfig, nil
}

// HTTPClient returns an auto-refreshing authenticated client.
// Requires oauth_client.json and token.json to exist.
func HTTPClient(ctx context.Context, cfg *config.Config) (*http.Client, error) {
	if !cfg.HasOAuthClient() || !cfg.HasToken() {
		return nil, ErrNotLoggedIn
	}
	oauthConfig, err := OAuthConfig(cfg)
	if err != nil {
		return nil, err
	}

	token, err := LoadToken(cfg)
	if err != nil {
		return nil, err
	}
	return oauth2.NewClient(ctx, oauthConfig.TokenSource(ctx, token)), nil
}

// LoadToken reads token.json.
func LoadToken(cfg *config.Config) (*oauth2.Token, error) {
	data, err := os.ReadFile(cfg.TokenPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read token.json: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("invalid token.json: %w", err)
	}
	return &token, nil
}

// SaveToken writes token.json with mode 0600, creating the config dir.
func SaveToken(cfg *config.Config, token *oauth2.Token) error {
	if err := cfg.EnsureDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(cfg.TokenPath(), data, 0600); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// TokenUsable reports whether the stored token has a refresh token and
// still yields an access token, refreshing it if needed.
func TokenUsable(ctx context.Context, cfg *config.Config) bool {
	token, err := LoadToken(cfg)
	if err != nil || token.RefreshToken == "" {
		return false
	}
	oauthConfig, err := OAuthConfig(cfg)
	if err != nil {
		return false
	}
	_, err = oauthConfig.TokenSource(ctx, token).Token()
	return err == nil
}

// WrapError wraps API errors with user-friendly messages.
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	errStr := err.Error()

	if strings.Contains(errStr, "context deadline exceeded") {
		return fmt.Errorf("request timed out")
	}
	if strings.Contains(errStr, "401") || strings.Contains(errStr, "403") {
		return fmt.Errorf("token expired or revoked (run: voxtodo login)")
	}
	if strings.Contains(errStr, "404") {
		return fmt.Errorf("not found")
	}
	return err
}
