package speech

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"go.uber.org/zap"
)

// DefaultVoicevoxSpeaker is used when neither the request nor the config names one.
const DefaultVoicevoxSpeaker = "1"

// VoicevoxConfig configures the streaming synthesis backend.
type VoicevoxConfig struct {
	// BaseURL of the service (e.g., "https://api.tts.quest")
	BaseURL string
	Token   string
	Speaker string

	// Timeout bounds both calls of one synthesis. Zero means no timeout.
	Timeout time.Duration

	HTTPClient *http.Client
}

// Voicevox synthesizes through a streaming service: the first call returns a
// streaming URL and a second call fetches the MP3 bytes from it.
type Voicevox struct {
	config     VoicevoxConfig
	httpClient *http.Client
	logger     *zap.Logger
}

type voicevoxResponse struct {
	Success         bool   `json:"success"`
	MP3StreamingURL string `json:"mp3StreamingUrl"`
	ErrorMessage    string `json:"errorMessage"`
}

// NewVoicevox creates a Voicevox backend.
func NewVoicevox(config VoicevoxConfig, logger *zap.Logger) *Voicevox {
	hc := config.HTTPClient
	if hc == nil {
		hc = cleanhttp.DefaultPooledClient()
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	return &Voicevox{config: config, httpClient: hc, logger: logger}
}

// Synthesize implements Synthesizer.
func (v *Voicevox) Synthesize(ctx context.Context, req Request) Result {
	if r, ok := empty(req); ok {
		return r
	}

	if v.config.Token == "" {
		return failed(0, "voicevox credential is not set")
	}

	ctx, cancel := withTimeout(ctx, v.config.Timeout)
	defer cancel()

	speaker := req.Voice
	if speaker == "" {
		speaker = v.config.Speaker
	}
	if speaker == "" {
		speaker = DefaultVoicevoxSpeaker
	}

	params := url.Values{}
	params.Set("text", req.Text)
	params.Set("speaker", speaker)
	synthesisURL := v.config.BaseURL + "/v3/voicevox/synthesis?" + params.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, synthesisURL, nil)
	if err != nil {
		return failed(0, "create request: %v", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+v.config.Token)

	v.logger.Debug("requesting voicevox synthesis",
		zap.String("speaker", speaker),
		zap.Int("text_bytes", len(req.Text)),
	)

	httpResp, err := v.httpClient.Do(httpReq)
	if err != nil {
		return failed(0, "do request: %v", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return failed(httpResp.StatusCode, "read response: %v", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		v.logger.Error("TTS API error",
			zap.Int("status", httpResp.StatusCode),
			zap.String("body", string(body)),
		)
		return failed(httpResp.StatusCode, "TTS API returned %d", httpResp.StatusCode)
	}

	var info voicevoxResponse
	if err := json.Unmarshal(body, &info); err != nil {
		return failed(httpResp.StatusCode, "malformed response: %v", err)
	}

	if !info.Success {
		msg := info.ErrorMessage
		if msg == "" {
			msg = "service reported success=false"
		}
		v.logger.Warn("voicevox synthesis was not successful", zap.String("message", msg))
		return failed(httpResp.StatusCode, "%s", msg)
	}

	if info.MP3StreamingURL == "" {
		return failed(httpResp.StatusCode, "response has no mp3StreamingUrl")
	}

	audio, status, err := v.fetch(ctx, info.MP3StreamingURL)
	if err != nil {
		return failed(status, "fetch audio: %v", err)
	}

	return Result{Audio: audio, ContentType: "audio/mpeg"}
}

func (v *Voicevox) fetch(ctx context.Context, audioURL string) ([]byte, int, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}

	httpResp, err := v.httpClient.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("do request: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, httpResp.StatusCode, fmt.Errorf("audio stream returned %d", httpResp.StatusCode)
	}

	audio, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, httpResp.StatusCode, fmt.Errorf("read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, httpResp.StatusCode, fmt.Errorf("audio stream was empty")
	}

	return audio, httpResp.StatusCode, nil
}
