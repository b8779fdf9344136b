package googleauth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const (
	// CallbackStartPort is the first local port tried for the redirect.
	CallbackStartPort = 8085

	callbackPortAttempts = 5
	shutdownTimeout      = 5 * time.Second
)

// ErrStateMismatch is returned when the callback does not echo our state.
var ErrStateMismatch = errors.New("oauth state mismatch")

// ListenCallback binds the first free port in the callback range.
func ListenCallback() (net.Listener, error) {
	for i := 0; i < callbackPortAttempts; i++ {
		l, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", CallbackStartPort+i))
		if err == nil {
			return l, nil
		}
	}
	return nil, errors.New("could not bind to local port for OAuth callback")
}

// Flow is one installed-app authorization: PKCE verifier, a random state
// and a local callback server on listener.
type Flow struct {
	conf     oauth2.Config
	listener net.Listener
	verifier string
	state    string
}

// NewFlow prepares a flow redirecting to listener. The flow owns listener.
func NewFlow(conf *oauth2.Config, listener net.Listener) *Flow {
	f := &Flow{
		conf:     *conf,
		listener: listener,
		verifier: oauth2.GenerateVerifier(),
		state:    uuid.NewString(),
	}
	port := listener.Addr().(*net.TCPAddr).Port
	f.conf.RedirectURL = fmt.Sprintf("http://localhost:%d/callback", port)
	return f
}

// AuthURL is the consent page the user opens.
func (f *Flow) AuthURL() string {
	return f.conf.AuthCodeURL(f.state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(f.verifier))
}

// RedirectURL is where the consent page sends the code.
func (f *Flow) RedirectURL() string {
	return f.conf.RedirectURL
}

// Wait serves the callback until a code arrives, ctx is done or timeout
// passes. Requests with a foreign state are rejected and waiting goes on.
func (f *Flow) Wait(ctx context.Context, timeout time.Duration) (string, error) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	send := func(ch chan error, err error) {
		select {
		case ch <- err:
		default:
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != f.state {
			http.Error(w, ErrStateMismatch.Error(), http.StatusBadRequest)
			return
		}
		if reason := q.Get("error"); reason != "" {
			http.Error(w, "Authorization denied", http.StatusBadRequest)
			send(errCh, fmt.Errorf("authorization denied: %s", reason))
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "No code in callback", http.StatusBadRequest)
			send(errCh, errors.New("no code in callback"))
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><h1>voxtodo is authorized</h1><p>You may close this window.</p></body></html>")
		select {
		case codeCh <- code:
		default:
		}
	})

	server := &http.Server{Handler: mux}
	go func() {
		if err := server.Serve(f.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			send(errCh, err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case code := <-codeCh:
		return code, nil
	case err := <-errCh:
		return "", err
	case <-timer.C:
		return "", errors.New("oauth callback timed out")
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Exchange trades code for a token using the flow's verifier.
func (f *Flow) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := f.conf.Exchange(ctx, code, oauth2.VerifierOption(f.verifier))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code for token: %w", err)
	}
	return token, nil
}

// Close releases the callback port if Wait never ran.
func (f *Flow) Close() error {
	err := f.listener.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
