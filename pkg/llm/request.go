package llm

import "fmt"

// DefaultMaxTokens is the output ceiling sent with every completion request.
const DefaultMaxTokens = 4096

// HistoryMode selects how much of a conversation is sent upstream.
type HistoryMode string

const (
	// HistoryFull sends every turn.
	HistoryFull HistoryMode = "full"

	// HistoryLatest sends the system turn and the latest user turn only.
	HistoryLatest HistoryMode = "latest"
)

// ParseHistoryMode parses s, treating "" as HistoryFull.
func ParseHistoryMode(s string) (HistoryMode, error) {
	switch HistoryMode(s) {
	case "", HistoryFull:
		return HistoryFull, nil
	case HistoryLatest:
		return HistoryLatest, nil
	}
	return "", fmt.Errorf("unknown history mode %q (want %q or %q)", s, HistoryFull, HistoryLatest)
}

// CompletionRequest is a conversation snapshot plus generation parameters.
// Temperature is always 0. Build it with NewCompletionRequest and treat it as
// immutable afterwards.
type CompletionRequest struct {
	Model       string  `json:"model"`
	Messages    []Turn  `json:"messages"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Stream      bool    `json:"stream"`
}

// NewCompletionRequest snapshots conv according to mode.
func NewCompletionRequest(model string, conv *Conversation, mode HistoryMode, maxTokens int, stream bool) CompletionRequest {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	var messages []Turn
	switch mode {
	case HistoryLatest:
		if conv.SystemPrompt() != "" {
			messages = append(messages, conv.turns[0])
		}
		if t, ok := conv.LastOf(RoleUser); ok {
			messages = append(messages, t)
		}
	default:
		messages = conv.Turns()
	}

	return CompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: 0,
		MaxTokens:   maxTokens,
		Stream:      stream,
	}
}
