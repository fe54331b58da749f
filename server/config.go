package server

import "time"

// Config is the web UI server configuration.
type Config struct {
	// Address to listen on (e.g., ":8501")
	ListenAddr string

	// SessionTTL is how long an idle browser session keeps its conversation.
	// Zero keeps sessions until the process exits.
	SessionTTL time.Duration

	// SystemPrompt seeds every new session.
	SystemPrompt string

	// AudioPath is the audio artifact served at /api/audio. Empty disables
	// the route.
	AudioPath string

	// AudioType is the Content-Type of the artifact.
	AudioType string
}
