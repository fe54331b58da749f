// Package config loads parley's process-wide configuration once at startup.
//
// Values are layered: built-in defaults, then an optional TOML file, then
// environment variables. Credentials are only ever read from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v9"
	"github.com/hashicorp/go-multierror"

	"github.com/papercomputeco/parley/pkg/llm"
)

// EnvConfigPath names the variable consulted when no --config flag is given.
const EnvConfigPath = "PARLEY_CONFIG"

const (
	DefaultListenAddr    = ":8501"
	DefaultCompletionURL = "https://api.groq.com/openai/v1"
	DefaultModel         = "llama3-70b-8192"
	DefaultSystemPrompt  = "必ず日本語で返信すること。あなたは親切で知識豊かなアシスタントです。ユーザーの質問に明確かつフレンドリーに答えてください。"
	DefaultFallback      = "エラーが発生しました。応答を取得できません。"
	DefaultVoicevoxURL   = "https://api.tts.quest"
	DefaultGoogleURL     = "https://texttospeech.googleapis.com"
	DefaultSpeaker       = "1"
	DefaultLanguage      = "ja-JP"
	DefaultGender        = "NEUTRAL"
	DefaultEncoding      = "MP3"
	DefaultOutputPath    = "output.mp3"
	DefaultSessionTTL    = 24 * time.Hour
)

// Speech backends.
const (
	BackendVoicevox = "voicevox"
	BackendGoogle   = "google"
	BackendNone     = "none"
)

// Config is the parley configuration.
type Config struct {
	// Address the web UI listens on (e.g., ":8501")
	ListenAddr string `toml:"listen" env:"PARLEY_LISTEN"`

	Debug bool `toml:"debug" env:"PARLEY_DEBUG"`

	Completion CompletionConfig `toml:"completion"`
	Speech     SpeechConfig     `toml:"speech"`
	Session    SessionConfig    `toml:"session"`
}

// CompletionConfig configures the chat completion service.
type CompletionConfig struct {
	Token string `toml:"-" env:"GROQ_API_KEY"`

	// BaseURL of an OpenAI-compatible API, without the /chat/completions suffix.
	BaseURL string `toml:"base_url" env:"PARLEY_COMPLETION_URL"`
	Model   string `toml:"model" env:"PARLEY_MODEL"`

	// SupportedModels restricts Model when non-empty.
	SupportedModels []string `toml:"supported_models"`

	MaxTokens       int    `toml:"max_tokens"`
	SystemPrompt    string `toml:"system_prompt"`
	FallbackMessage string `toml:"fallback_message"`

	// History is "full" or "latest".
	History string `toml:"history" env:"PARLEY_HISTORY"`

	// Timeout bounds a single completion call. Zero means no timeout.
	Timeout time.Duration `toml:"timeout"`
}

// SpeechConfig configures the text-to-speech backend.
type SpeechConfig struct {
	// Backend is one of "voicevox", "google" or "none".
	Backend string `toml:"backend" env:"PARLEY_SPEECH_BACKEND"`

	Speaker  string `toml:"speaker" env:"PARLEY_SPEAKER"`
	Language string `toml:"language"`
	Gender   string `toml:"gender"`
	Encoding string `toml:"encoding"`

	// OutputPath is the single-slot audio file rewritten after every
	// synthesis. Empty disables the file.
	OutputPath string `toml:"output_path" env:"PARLEY_OUTPUT_PATH"`

	VoicevoxToken string `toml:"-" env:"TTS_API_KEY"`
	VoicevoxURL   string `toml:"voicevox_url"`

	GoogleAPIKey string `toml:"-" env:"GOOGLE_TTS_API_KEY"`
	GoogleURL    string `toml:"google_url"`

	// Timeout bounds a single synthesis. Zero means no timeout.
	Timeout time.Duration `toml:"timeout"`
}

// SessionConfig configures the web UI session lifecycle.
type SessionConfig struct {
	// TTL is how long an idle browser session keeps its conversation.
	TTL time.Duration `toml:"ttl"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ListenAddr: DefaultListenAddr,
		Completion: CompletionConfig{
			BaseURL:         DefaultCompletionURL,
			Model:           DefaultModel,
			MaxTokens:       llm.DefaultMaxTokens,
			SystemPrompt:    DefaultSystemPrompt,
			FallbackMessage: DefaultFallback,
			History:         string(llm.HistoryFull),
		},
		Speech: SpeechConfig{
			Backend:     BackendVoicevox,
			Speaker:     DefaultSpeaker,
			Language:    DefaultLanguage,
			Gender:      DefaultGender,
			Encoding:    DefaultEncoding,
			OutputPath:  DefaultOutputPath,
			VoicevoxURL: DefaultVoicevoxURL,
			GoogleURL:   DefaultGoogleURL,
		},
		Session: SessionConfig{
			TTL: DefaultSessionTTL,
		},
	}
}

// Load builds the configuration from the process environment. path names an
// optional TOML file; when empty, $PARLEY_CONFIG is used if set.
func Load(path string) (*Config, error) {
	return load(path, nil)
}

// LoadWithEnv is Load with an explicit environment instead of the process one.
func LoadWithEnv(path string, environ map[string]string) (*Config, error) {
	if environ == nil {
		environ = map[string]string{}
	}
	return load(path, environ)
}

func load(path string, environ map[string]string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if environ != nil {
			path = environ[EnvConfigPath]
		} else {
			path = os.Getenv(EnvConfigPath)
		}
	}

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("config file %s does not exist", path)
			}
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parsing env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.ListenAddr == "" {
		result = multierror.Append(result, errors.New("listen address is empty"))
	}
	if c.Completion.BaseURL == "" {
		result = multierror.Append(result, errors.New("completion base_url is empty"))
	}
	if c.Completion.Model == "" {
		result = multierror.Append(result, errors.New("completion model is empty"))
	}
	if c.Completion.MaxTokens <= 0 {
		result = multierror.Append(result, fmt.Errorf("completion max_tokens must be positive, got %d", c.Completion.MaxTokens))
	}
	if c.Completion.FallbackMessage == "" {
		result = multierror.Append(result, errors.New("completion fallback_message is empty"))
	}
	if _, err := llm.ParseHistoryMode(c.Completion.History); err != nil {
		result = multierror.Append(result, err)
	}
	if len(c.Completion.SupportedModels) > 0 && !contains(c.Completion.SupportedModels, c.Completion.Model) {
		result = multierror.Append(result, fmt.Errorf("model %q is not in supported_models", c.Completion.Model))
	}

	switch c.Speech.Backend {
	case BackendVoicevox:
		if c.Speech.VoicevoxURL == "" {
			result = multierror.Append(result, errors.New("speech voicevox_url is empty"))
		}
	case BackendGoogle:
		if c.Speech.GoogleURL == "" {
			result = multierror.Append(result, errors.New("speech google_url is empty"))
		}
	case BackendNone:
	default:
		result = multierror.Append(result, fmt.Errorf("unknown speech backend %q (want %s, %s or %s)",
			c.Speech.Backend, BackendVoicevox, BackendGoogle, BackendNone))
	}

	if c.Completion.Timeout < 0 || c.Speech.Timeout < 0 {
		result = multierror.Append(result, errors.New("timeouts must not be negative"))
	}

	return result.ErrorOrNil()
}

// Warnings lists settings that are valid but will make every turn degrade,
// such as a missing credential.
func (c *Config) Warnings() []string {
	var w []string
	if c.Completion.Token == "" {
		w = append(w, "GROQ_API_KEY is not set; every reply will be the fallback message")
	}
	switch c.Speech.Backend {
	case BackendVoicevox:
		if c.Speech.VoicevoxToken == "" {
			w = append(w, "TTS_API_KEY is not set; speech synthesis will fail")
		}
	case BackendGoogle:
		if c.Speech.GoogleAPIKey == "" {
			w = append(w, "GOOGLE_TTS_API_KEY is not set; speech synthesis will fail")
		}
	}
	return w
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
