package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"voxtodo/internal/audio"
	"voxtodo/internal/logging"
)

// FilePlaceholder in a recorder argv is replaced with the clip path.
const FilePlaceholder = "{file}"

// Recorder records one clip into a WAV file at path.
type Recorder interface {
	Record(ctx context.Context, path string) error
}

// CommandRecorder runs an external recorder such as arecord.
type CommandRecorder struct {
	Argv []string
}

// Record implements Recorder.
func (r CommandRecorder) Record(ctx context.Context, path string) error {
	if len(r.Argv) == 0 {
		return fmt.Errorf("%w: recorder command is empty", ErrUnsupported)
	}
	args := make([]string, len(r.Argv))
	for i, a := range r.Argv {
		args[i] = strings.ReplaceAll(a, FilePlaceholder, path)
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("recorder %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// Available reports whether the recorder binary can be found.
func (r CommandRecorder) Available() bool {
	if len(r.Argv) == 0 {
		return false
	}
	_, err := exec.LookPath(r.Argv[0])
	return err == nil
}

// HTTPRecognizer records a clip and uploads it to an OpenAI-compatible
// transcription endpoint.
type HTTPRecognizer struct {
	Endpoint string
	Token    string
	Model    string
	Recorder Recorder
	TempDir  string
	Client   *http.Client
	Log      *log.Logger

	// MinDuration is the shortest clip considered to contain speech.
	MinDuration time.Duration
}

// Compile-time interface check.
var _ Recognizer = (*HTTPRecognizer)(nil)

// HTTPConfig holds settings for NewHTTPRecognizer.
type HTTPConfig struct {
	Endpoint string
	Token    string
	Model    string
	Recorder []string
	Timeout  time.Duration
}

// NewHTTPRecognizer returns ErrUnsupported when no endpoint is configured or
// the recorder binary is missing.
func NewHTTPRecognizer(cfg HTTPConfig, logger *log.Logger) (*HTTPRecognizer, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("%w: no speech endpoint configured", ErrUnsupported)
	}
	rec := CommandRecorder{Argv: cfg.Recorder}
	if !rec.Available() {
		return nil, fmt.Errorf("%w: recorder not found", ErrUnsupported)
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &HTTPRecognizer{
		Endpoint:    cfg.Endpoint,
		Token:       cfg.Token,
		Model:       cfg.Model,
		Recorder:    rec,
		Client:      &http.Client{Timeout: cfg.Timeout},
		Log:         logger,
		MinDuration: 100 * time.Millisecond,
	}, nil
}

type transcription struct {
	Text string `json:"text"`
}

// Recognize implements Recognizer.
func (h *HTTPRecognizer) Recognize(ctx context.Context, opts Options) (string, error) {
	dir := h.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	clip := filepath.Join(dir, fmt.Sprintf("clip_%s.wav", uuid.New().String()))
	defer os.Remove(clip)

	if err := h.Recorder.Record(ctx, clip); err != nil {
		return "", err
	}

	info, err := audio.Inspect(clip)
	if err != nil {
		return "", fmt.Errorf("inspect clip: %w", err)
	}
	if info.Duration < h.MinDuration {
		return "", ErrNoSpeech
	}
	h.logger().Debug("clip recorded", "duration", info.Duration, "rate", info.SampleRate)

	text, err := h.upload(ctx, clip, opts)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}

func (h *HTTPRecognizer) upload(ctx context.Context, clip string, opts Options) (string, error) {
	f, err := os.Open(clip)
	if err != nil {
		return "", err
	}
	defer f.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filepath.Base(clip))
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("copy clip: %w", err)
	}
	fields := [][2]string{{"response_format", "json"}}
	if h.Model != "" {
		fields = append(fields, [2]string{"model", h.Model})
	}
	if lang := language(opts.Locale); lang != "" {
		fields = append(fields, [2]string{"language", lang})
	}
	for _, f := range fields {
		if err := writer.WriteField(f[0], f[1]); err != nil {
			return "", fmt.Errorf("write field %s: %w", f[0], err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.Endpoint, body)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if h.Token != "" {
		req.Header.Set("Authorization", "Bearer "+h.Token)
	}

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("network: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcription endpoint: status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var out transcription
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("decode transcription: %w", err)
	}
	return out.Text, nil
}

func (h *HTTPRecognizer) logger() *log.Logger {
	if h.Log == nil {
		return logging.Discard()
	}
	return h.Log
}

// language reduces a BCP 47 locale like pt-BR to its ISO 639-1 part.
func language(locale string) string {
	lang, _, _ := strings.Cut(locale, "-")
	return strings.ToLower(lang)
}
