package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"go.uber.org/zap"
)

// Defaults for the direct synthesis backend.
const (
	DefaultGoogleLanguage = "ja-JP"
	DefaultGoogleGender   = "NEUTRAL"
	DefaultGoogleEncoding = "MP3"
)

// GoogleConfig configures the direct synthesis backend.
type GoogleConfig struct {
	// BaseURL of the service (e.g., "https://texttospeech.googleapis.com")
	BaseURL string
	APIKey  string

	// Voice is an optional voice name such as "ja-JP-Neural2-B".
	Voice    string
	Language string
	Gender   string
	Encoding string

	// Timeout bounds one synthesis. Zero means no timeout.
	Timeout time.Duration

	HTTPClient *http.Client
}

// Google synthesizes through Cloud Text-to-Speech, which returns the audio
// inline as base64.
type Google struct {
	config     GoogleConfig
	httpClient *http.Client
	logger     *zap.Logger
}

type googleRequest struct {
	Input       googleInput       `json:"input"`
	Voice       googleVoice       `json:"voice"`
	AudioConfig googleAudioConfig `json:"audioConfig"`
}

type googleInput struct {
	Text string `json:"text"`
}

type googleVoice struct {
	LanguageCode string `json:"languageCode"`
	SSMLGender   string `json:"ssmlGender"`
	Name         string `json:"name,omitempty"`
}

type googleAudioConfig struct {
	AudioEncoding string `json:"audioEncoding"`
}

type googleResponse struct {
	AudioContent string `json:"audioContent"`
}

type googleError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// NewGoogle creates a Google backend.
func NewGoogle(config GoogleConfig, logger *zap.Logger) *Google {
	if config.Language == "" {
		config.Language = DefaultGoogleLanguage
	}
	if config.Gender == "" {
		config.Gender = DefaultGoogleGender
	}
	if config.Encoding == "" {
		config.Encoding = DefaultGoogleEncoding
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	hc := config.HTTPClient
	if hc == nil {
		hc = cleanhttp.DefaultPooledClient()
	}
	return &Google{config: config, httpClient: hc, logger: logger}
}

// Synthesize implements Synthesizer.
func (g *Google) Synthesize(ctx context.Context, req Request) Result {
	if r, ok := empty(req); ok {
		return r
	}

	if g.config.APIKey == "" {
		return failed(0, "google credential is not set")
	}

	ctx, cancel := withTimeout(ctx, g.config.Timeout)
	defer cancel()

	voice := googleVoice{
		LanguageCode: g.config.Language,
		SSMLGender:   g.config.Gender,
		Name:         g.config.Voice,
	}
	if req.Language != "" {
		voice.LanguageCode = req.Language
	}
	if req.Voice != "" {
		voice.Name = req.Voice
	}

	reqBody, err := json.Marshal(googleRequest{
		Input:       googleInput{Text: req.Text},
		Voice:       voice,
		AudioConfig: googleAudioConfig{AudioEncoding: g.config.Encoding},
	})
	if err != nil {
		return failed(0, "marshal request: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.config.BaseURL+"/v1/text:synthesize", bytes.NewReader(reqBody))
	if err != nil {
		return failed(0, "create request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Goog-Api-Key", g.config.APIKey)

	g.logger.Debug("requesting google synthesis",
		zap.String("language", voice.LanguageCode),
		zap.String("voice", voice.Name),
		zap.Int("text_bytes", len(req.Text)),
	)

	httpResp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return failed(0, "do request: %v", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return failed(httpResp.StatusCode, "read response: %v", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		var gerr googleError
		msg := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &gerr) == nil && gerr.Error.Message != "" {
			msg = gerr.Error.Message
		}
		if msg == "" {
			msg = http.StatusText(httpResp.StatusCode)
		}
		g.logger.Error("TTS API error",
			zap.Int("status", httpResp.StatusCode),
			zap.String("message", msg),
		)
		return failed(httpResp.StatusCode, "%s", msg)
	}

	var resp googleResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return failed(httpResp.StatusCode, "malformed response: %v", err)
	}
	if resp.AudioContent == "" {
		return failed(httpResp.StatusCode, "response has no audioContent")
	}

	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return failed(httpResp.StatusCode, "decode audioContent: %v", err)
	}

	return Result{Audio: audio, ContentType: ContentType(g.config.Encoding)}
}

// ContentType returns the MIME type for a Google audio encoding name.
func ContentType(encoding string) string {
	switch strings.ToUpper(encoding) {
	case "MP3":
		return "audio/mpeg"
	case "OGG_OPUS":
		return "audio/ogg"
	case "LINEAR16":
		return "audio/wav"
	case "MULAW", "ALAW":
		return "audio/basic"
	}
	return "application/octet-stream"
}
