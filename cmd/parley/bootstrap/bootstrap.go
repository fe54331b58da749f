// Package bootstrap builds parley's components from configuration for the
// cobra commands.
package bootstrap

import (
	"fmt"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/parley/pkg/completion"
	"github.com/papercomputeco/parley/pkg/config"
	"github.com/papercomputeco/parley/pkg/llm"
	"github.com/papercomputeco/parley/pkg/logger"
	"github.com/papercomputeco/parley/pkg/speech"
	"github.com/papercomputeco/parley/pkg/turn"
)

// Flags shared by every command.
const (
	FlagConfig = "config"
	FlagDebug  = "debug"
)

// AddGlobalFlags registers the shared flags on cmd.
func AddGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String(FlagConfig, "", "Path to a TOML config file (default: $"+config.EnvConfigPath+")")
	cmd.PersistentFlags().Bool(FlagDebug, false, "Enable debug logging")
}

// LoadConfig reads the configuration named by the --config flag, or by
// $PARLEY_CONFIG, and applies --debug.
func LoadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(stringFlag(cmd, FlagConfig))
	if err != nil {
		return nil, fmt.Errorf("could not load configuration: %w", err)
	}
	if boolFlag(cmd, FlagDebug) {
		cfg.Debug = true
	}
	return cfg, nil
}

// Load is LoadConfig plus a logger writing to the command's stderr. Config
// warnings are logged once.
func Load(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	cfg, err := LoadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	log := logger.NewLoggerTo(cmd.ErrOrStderr(), cfg.Debug)
	LogWarnings(cfg, log)
	return cfg, log, nil
}

// LogWarnings logs settings that are valid but leave a feature degraded.
func LogWarnings(cfg *config.Config, log *zap.Logger) {
	for _, w := range cfg.Warnings() {
		log.Warn(w)
	}
}

// NewOrchestrator wires the completion client and, when withSpeech is set,
// the configured speech backend.
func NewOrchestrator(cfg *config.Config, log *zap.Logger, withSpeech bool) (*turn.Orchestrator, error) {
	history, err := llm.ParseHistoryMode(cfg.Completion.History)
	if err != nil {
		return nil, err
	}

	httpClient := cleanhttp.DefaultPooledClient()

	client := completion.New(completion.Config{
		Token:           cfg.Completion.Token,
		BaseURL:         cfg.Completion.BaseURL,
		Model:           cfg.Completion.Model,
		SupportedModels: cfg.Completion.SupportedModels,
		MaxTokens:       cfg.Completion.MaxTokens,
		FallbackMessage: cfg.Completion.FallbackMessage,
		History:         history,
		Timeout:         cfg.Completion.Timeout,
		HTTPClient:      httpClient,
	}, log)

	var synth speech.Synthesizer
	if withSpeech {
		synth, err = speech.New(cfg.Speech, httpClient, log)
		if err != nil {
			return nil, fmt.Errorf("could not create speech synthesizer: %w", err)
		}
	}

	return turn.New(client, synth, log), nil
}

// AudioType is the Content-Type of audio produced by the configured backend.
func AudioType(cfg config.SpeechConfig) string {
	if cfg.Backend == config.BackendGoogle {
		return speech.ContentType(cfg.Encoding)
	}
	return "audio/mpeg"
}

func stringFlag(cmd *cobra.Command, name string) string {
	if f := cmd.Flags().Lookup(name); f != nil {
		return f.Value.String()
	}
	return ""
}

func boolFlag(cmd *cobra.Command, name string) bool {
	if f := cmd.Flags().Lookup(name); f != nil {
		return f.Value.String() == "true"
	}
	return false
}
