package speech_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"voxtodo/internal/audio"
	"voxtodo/internal/speech"
)

type fakeRecognizer struct {
	text    string
	err     error
	gotOpts speech.Options
	block   chan struct{}
}

func (f *fakeRecognizer) Recognize(ctx context.Context, opts speech.Options) (string, error) {
	f.gotOpts = opts
	if f.block != nil {
		<-f.block
	}
	return f.text, f.err
}

type events struct {
	seq    []string
	result string
	reason string
}

func (e *events) hooks() speech.Hooks {
	return speech.Hooks{
		OnStart:  func() { e.seq = append(e.seq, "start") },
		OnResult: func(s string) { e.seq = append(e.seq, "result"); e.result = s },
		OnError:  func(r string) { e.seq = append(e.seq, "error"); e.reason = r },
		OnEnd:    func() { e.seq = append(e.seq, "end") },
	}
}

func TestCapture_Result(t *testing.T) {
	rec := &fakeRecognizer{text: "comprar leite"}
	c := speech.NewCapture(rec, speech.DefaultOptions(""), nil)
	var ev events

	got, err := c.Listen(context.Background(), ev.hooks())
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	if got != "comprar leite" || ev.result != "comprar leite" {
		t.Errorf("unexpected transcript %q / %q", got, ev.result)
	}
	if strings.Join(ev.seq, ",") != "start,result,end" {
		t.Errorf("unexpected event order %v", ev.seq)
	}
	want := speech.Options{Locale: "pt-BR", Interim: false, MaxAlternatives: 1}
	if rec.gotOpts != want {
		t.Errorf("unexpected options %+v", rec.gotOpts)
	}
}

func TestCapture_Error(t *testing.T) {
	c := speech.NewCapture(&fakeRecognizer{err: speech.ErrNoSpeech}, speech.DefaultOptions("en-US"), nil)
	var ev events

	_, err := c.Listen(context.Background(), ev.hooks())
	if !errors.Is(err, speech.ErrNoSpeech) {
		t.Fatalf("expected ErrNoSpeech, got %v", err)
	}
	if ev.reason != "no-speech" {
		t.Errorf("unexpected reason %q", ev.reason)
	}
	if strings.Join(ev.seq, ",") != "start,error,end" {
		t.Errorf("unexpected event order %v", ev.seq)
	}
}

func TestCapture_Unsupported(t *testing.T) {
	c := speech.NewCapture(nil, speech.DefaultOptions(""), nil)
	if c.Supported() {
		t.Error("expected unsupported")
	}
	var ev events
	if _, err := c.Listen(context.Background(), ev.hooks()); !errors.Is(err, speech.ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
	if len(ev.seq) != 0 {
		t.Errorf("unsupported capture should emit no events, got %v", ev.seq)
	}
}

func TestCapture_Busy(t *testing.T) {
	rec := &fakeRecognizer{text: "x", block: make(chan struct{})}
	c := speech.NewCapture(rec, speech.DefaultOptions(""), nil)

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := c.Listen(context.Background(), speech.Hooks{OnStart: func() { close(started) }})
		done <- err
	}()
	<-started

	if _, err := c.Listen(context.Background(), speech.Hooks{}); !errors.Is(err, speech.ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}

	close(rec.block)
	if err := <-done; err != nil {
		t.Fatalf("first session failed: %v", err)
	}
	// Slot is free again.
	rec.block = nil
	if _, err := c.Listen(context.Background(), speech.Hooks{}); err != nil {
		t.Errorf("expected second session to run, got %v", err)
	}
}

func TestReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{speech.ErrNoSpeech, "no-speech"},
		{context.Canceled, "aborted"},
		{context.DeadlineExceeded, "timeout"},
		{errors.New("network: refused"), "network: refused"},
	}
	for _, tt := range tests {
		if got := speech.Reason(tt.err); got != tt.want {
			t.Errorf("Reason(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

type toneRecorder struct {
	length time.Duration
}

func (r toneRecorder) Record(ctx context.Context, path string) error {
	return audio.WriteTone(path, 440, r.length, 16000)
}

func TestHTTPRecognizer(t *testing.T) {
	var gotModel, gotLang, gotFormat, gotAuth, gotFile string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotModel = r.FormValue("model")
		gotLang = r.FormValue("language")
		gotFormat = r.FormValue("response_format")
		gotAuth = r.Header.Get("Authorization")
		if _, fh, err := r.FormFile("file"); err == nil {
			gotFile = fh.Filename
		}
		w.Write([]byte(`{"text":"  comprar leite "}`))
	}))
	defer srv.Close()

	h := &speech.HTTPRecognizer{
		Endpoint:    srv.URL,
		Token:       "secret",
		Model:       "whisper-1",
		Recorder:    toneRecorder{length: 300 * time.Millisecond},
		TempDir:     t.TempDir(),
		MinDuration: 100 * time.Millisecond,
	}

	got, err := h.Recognize(context.Background(), speech.DefaultOptions("pt-BR"))
	if err != nil {
		t.Fatalf("recognize failed: %v", err)
	}
	if got != "comprar leite" {
		t.Errorf("unexpected transcript %q", got)
	}
	if gotModel != "whisper-1" || gotLang != "pt" || gotFormat != "json" {
		t.Errorf("unexpected fields model=%q language=%q response_format=%q", gotModel, gotLang, gotFormat)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("unexpected auth header %q", gotAuth)
	}
	if !strings.HasPrefix(gotFile, "clip_") || !strings.HasSuffix(gotFile, ".wav") {
		t.Errorf("unexpected clip name %q", gotFile)
	}
}

func TestHTTPRecognizer_ShortClip(t *testing.T) {
	h := &speech.HTTPRecognizer{
		Endpoint:    "http://127.0.0.1:1",
		Recorder:    toneRecorder{length: 10 * time.Millisecond},
		TempDir:     t.TempDir(),
		MinDuration: 100 * time.Millisecond,
	}
	if _, err := h.Recognize(context.Background(), speech.DefaultOptions("")); !errors.Is(err, speech.ErrNoSpeech) {
		t.Errorf("expected ErrNoSpeech, got %v", err)
	}
}

func TestHTTPRecognizer_EmptyTranscript(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"text":""}`))
	}))
	defer srv.Close()

	h := &speech.HTTPRecognizer{
		Endpoint: srv.URL,
		Recorder: toneRecorder{length: 300 * time.Millisecond},
		TempDir:  t.TempDir(),
	}
	if _, err := h.Recognize(context.Background(), speech.DefaultOptions("")); !errors.Is(err, speech.ErrNoSpeech) {
		t.Errorf("expected ErrNoSpeech, got %v", err)
	}
}

func TestHTTPRecognizer_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	h := &speech.HTTPRecognizer{
		Endpoint: srv.URL,
		Recorder: toneRecorder{length: 300 * time.Millisecond},
		TempDir:  t.TempDir(),
	}
	_, err := h.Recognize(context.Background(), speech.DefaultOptions(""))
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Errorf("expected status error, got %v", err)
	}
}

func TestNewHTTPRecognizer_Unsupported(t *testing.T) {
	tests := []struct {
		name string
		cfg  speech.HTTPConfig
	}{
		{"no endpoint", speech.HTTPConfig{Recorder: []string{"sh"}}},
		{"no recorder", speech.HTTPConfig{Endpoint: "http://x", Recorder: nil}},
		{"missing binary", speech.HTTPConfig{Endpoint: "http://x", Recorder: []string{"voxtodo-no-such-recorder"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := speech.NewHTTPRecognizer(tt.cfg, nil); !errors.Is(err, speech.ErrUnsupported) {
				t.Errorf("expected ErrUnsupported, got %v", err)
			}
		})
	}
}

func TestCommandRecorder(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/out.wav"
	rec := speech.CommandRecorder{Argv: []string{"sh", "-c", `printf x > "$0"`, "{file}"}}
	if !rec.Available() {
		t.Skip("sh not available")
	}
	if err := rec.Record(context.Background(), path); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if _, err := audio.Inspect(path); !errors.Is(err, audio.ErrNotWAV) {
		t.Errorf("expected recorder output at placeholder path, got %v", err)
	}
}
