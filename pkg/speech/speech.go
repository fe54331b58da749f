// Package speech converts reply text into playable audio through a hosted
// text-to-speech service.
//
// Two backends exist, selected by configuration: a streaming service that
// returns a secondary audio URL (Voicevox on tts.quest) and a direct service
// that embeds the audio as base64 (Google Cloud Text-to-Speech). Both report
// failure through Result.Failure rather than an error.
package speech

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/parley/pkg/config"
)

// FailureNotice is shown to users when synthesis fails.
const FailureNotice = "音声合成に失敗しました。"

// Request is the input to one synthesis.
type Request struct {
	Text string

	// Voice selects the speaker. Empty uses the backend's configured default.
	Voice string

	// Language is a BCP-47 code. Empty uses the configured default.
	Language string
}

// Result is either playable audio or a failure marker.
type Result struct {
	Audio       []byte
	ContentType string

	// Path references the file-backed copy of Audio, when one was written.
	Path string

	Failure *Failure
}

// OK reports whether r holds audio that may be played.
func (r Result) OK() bool {
	return r.Failure == nil && len(r.Audio) > 0
}

// Failure describes why synthesis produced no audio.
type Failure struct {
	// Status is the HTTP status of the failing call, or 0 if none was made.
	Status  int
	Message string
}

func (f *Failure) Error() string {
	if f.Status == 0 {
		return "speech synthesis failed: " + f.Message
	}
	return fmt.Sprintf("speech synthesis failed (status %d): %s", f.Status, f.Message)
}

func failed(status int, format string, args ...any) Result {
	return Result{Failure: &Failure{Status: status, Message: fmt.Sprintf(format, args...)}}
}

// Synthesizer converts text to audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) Result
}

// empty rejects blank text before any network call is made.
func empty(req Request) (Result, bool) {
	if strings.TrimSpace(req.Text) == "" {
		return failed(0, "text is empty"), true
	}
	return Result{}, false
}

// New builds the backend named by cfg.Backend, wrapped with the output file
// when cfg.OutputPath is set. It returns a nil Synthesizer for the "none"
// backend.
func New(cfg config.SpeechConfig, httpClient *http.Client, logger *zap.Logger) (Synthesizer, error) {
	var s Synthesizer

	switch cfg.Backend {
	case config.BackendVoicevox:
		s = NewVoicevox(VoicevoxConfig{
			BaseURL:    cfg.VoicevoxURL,
			Token:      cfg.VoicevoxToken,
			Speaker:    cfg.Speaker,
			Timeout:    cfg.Timeout,
			HTTPClient: httpClient,
		}, logger)
	case config.BackendGoogle:
		s = NewGoogle(GoogleConfig{
			BaseURL:    cfg.GoogleURL,
			APIKey:     cfg.GoogleAPIKey,
			Voice:      cfg.Speaker,
			Language:   cfg.Language,
			Gender:     cfg.Gender,
			Encoding:   cfg.Encoding,
			Timeout:    cfg.Timeout,
			HTTPClient: httpClient,
		}, logger)
	case config.BackendNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown speech backend %q", cfg.Backend)
	}

	if cfg.OutputPath != "" {
		s = WithArtifact(s, NewArtifact(cfg.OutputPath), logger)
	}

	logger.Info("speech synthesis enabled",
		zap.String("backend", cfg.Backend),
		zap.String("output_path", cfg.OutputPath),
	)

	return s, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}
