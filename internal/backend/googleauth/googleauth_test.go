package googleauth_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"voxtodo/internal/backend/googleauth"
	"voxtodo/internal/config"
)

func writeClient(t *testing.T, dir, tokenURL string) {
	t.Helper()
	client := fmt.Sprintf(`{"installed":{"client_id":"cid","client_secret":"secret","auth_uri":"https://accounts.example/auth","token_uri":%q,"redirect_uris":["http://localhost"]}}`, tokenURL)
	if err := os.WriteFile(filepath.Join(dir, "oauth_client.json"), []byte(client), 0600); err != nil {
		t.Fatal(err)
	}
}

func tokenServer(t *testing.T) (*httptest.Server, *url.Values) {
	t.Helper()
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		form = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"access_token":"at","refresh_token":"rt","token_type":"Bearer","expires_in":3600}`)
	}))
	t.Cleanup(srv.Close)
	return srv, &form
}

func TestOAuthConfig_Scopes(t *testing.T) {
	cfg := &config.Config{Dir: t.TempDir()}
	writeClient(t, cfg.Dir, "https://oauth.example/token")

	conf, err := googleauth.OAuthConfig(cfg)
	if err != nil {
		t.Fatalf("OAuthConfig failed: %v", err)
	}
	if strings.Join(conf.Scopes, " ") != googleauth.TasksScope+" "+googleauth.GmailSendScope {
		t.Errorf("unexpected scopes %v", conf.Scopes)
	}
}

func TestHTTPClient_NotLoggedIn(t *testing.T) {
	cfg := &config.Config{Dir: t.TempDir()}
	writeClient(t, cfg.Dir, "https://oauth.example/token")

	if _, err := googleauth.HTTPClient(context.Background(), cfg); !errors.Is(err, googleauth.ErrNotLoggedIn) {
		t.Errorf("expected ErrNotLoggedIn without token.json, got %v", err)
	}
}

func TestSaveToken_RoundTrip(t *testing.T) {
	cfg := &config.Config{Dir: filepath.Join(t.TempDir(), "nested")}
	want := &oauth2.Token{AccessToken: "at", RefreshToken: "rt", TokenType: "Bearer"}

	if err := googleauth.SaveToken(cfg, want); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	info, err := os.Stat(cfg.TokenPath())
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("token.json mode = %v, want 0600", info.Mode().Perm())
	}
	got, err := googleauth.LoadToken(cfg)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got.AccessToken != want.AccessToken || got.RefreshToken != want.RefreshToken {
		t.Errorf("token not restored: %+v", got)
	}
}

func TestTokenUsable(t *testing.T) {
	srv, _ := tokenServer(t)
	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"missing", "", false},
		{"corrupt", `{access`, false},
		{"no refresh token", `{"access_token":"x","token_type":"Bearer"}`, false},
		{"refreshes", `{"access_token":"old","refresh_token":"rt","token_type":"Bearer","expiry":"2020-01-01T00:00:00Z"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Dir: t.TempDir()}
			writeClient(t, cfg.Dir, srv.URL)
			if tt.token != "" {
				if err := os.WriteFile(cfg.TokenPath(), []byte(tt.token), 0600); err != nil {
					t.Fatal(err)
				}
			}
			if got := googleauth.TokenUsable(context.Background(), cfg); got != tt.want {
				t.Errorf("TokenUsable = %v, want %v", got, tt.want)
			}
		})
	}
}

func newFlow(t *testing.T, tokenURL string) *googleauth.Flow {
	t.Helper()
	cfg := &config.Config{Dir: t.TempDir()}
	writeClient(t, cfg.Dir, tokenURL)
	conf, err := googleauth.OAuthConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	f := googleauth.NewFlow(conf, l)
	t.Cleanup(func() { f.Close() })
	return f
}

// callback hits the redirect URL the way a browser would after consent.
func callback(t *testing.T, f *googleauth.Flow, query url.Values) int {
	t.Helper()
	u := strings.Replace(f.RedirectURL(), "localhost", "127.0.0.1", 1) + "?" + query.Encode()
	for i := 0; i < 50; i++ {
		resp, err := http.Get(u)
		if err == nil {
			resp.Body.Close()
			return resp.StatusCode
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("callback server never answered at %s", u)
	return 0
}

func TestFlow_CodeExchange(t *testing.T) {
	srv, form := tokenServer(t)
	f := newFlow(t, srv.URL)

	authURL, err := url.Parse(f.AuthURL())
	if err != nil {
		t.Fatal(err)
	}
	q := authURL.Query()
	if q.Get("access_type") != "offline" || q.Get("code_challenge_method") != "S256" {
		t.Errorf("auth url missing offline/PKCE options: %s", authURL)
	}
	if q.Get("redirect_uri") != f.RedirectURL() {
		t.Errorf("redirect_uri = %q, want %q", q.Get("redirect_uri"), f.RedirectURL())
	}
	state := q.Get("state")

	type result struct {
		code string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		code, err := f.Wait(context.Background(), 5*time.Second)
		done <- result{code, err}
	}()

	if status := callback(t, f, url.Values{"state": {"forged"}, "code": {"evil"}}); status != http.StatusBadRequest {
		t.Errorf("foreign state answered %d, want 400", status)
	}
	if status := callback(t, f, url.Values{"state": {state}, "code": {"good"}}); status != http.StatusOK {
		t.Errorf("valid callback answered %d, want 200", status)
	}

	res := <-done
	if res.err != nil || res.code != "good" {
		t.Fatalf("Wait = %q, %v", res.code, res.err)
	}

	token, err := f.Exchange(context.Background(), res.code)
	if err != nil {
		t.Fatalf("exchange failed: %v", err)
	}
	if token.RefreshToken != "rt" {
		t.Errorf("unexpected token %+v", token)
	}
	if form.Get("code") != "good" || form.Get("code_verifier") == "" {
		t.Errorf("exchange did not send code and verifier: %v", *form)
	}
}

func TestFlow_Denied(t *testing.T) {
	f := newFlow(t, "https://oauth.example/token")
	state, _ := url.Parse(f.AuthURL())

	done := make(chan error, 1)
	go func() {
		_, err := f.Wait(context.Background(), 5*time.Second)
		done <- err
	}()
	callback(t, f, url.Values{"state": {state.Query().Get("state")}, "error": {"access_denied"}})

	if err := <-done; err == nil || !strings.Contains(err.Error(), "access_denied") {
		t.Errorf("expected denial error, got %v", err)
	}
}

func TestFlow_Cancelled(t *testing.T) {
	f := newFlow(t, "https://oauth.example/token")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.Wait(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
