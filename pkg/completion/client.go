// Package completion is parley's client for OpenAI-compatible chat completion
// services such as Groq.
//
// The client never returns an error to its caller: any failure is logged and
// replaced with a fixed, user-facing fallback message.
package completion

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/papercomputeco/parley/pkg/llm"
	"github.com/papercomputeco/parley/pkg/logger"
)

// greedyTemperature stands in for a temperature of 0. go-openai drops a zero
// temperature from the request body, and providers then apply their default
// of 1.
const greedyTemperature float32 = math.SmallestNonzeroFloat32

// ErrNoCredential is logged when a completion is attempted without a token.
var ErrNoCredential = errors.New("completion service credential is not set")

// Config configures a Client.
type Config struct {
	Token   string
	BaseURL string
	Model   string

	// SupportedModels restricts Model when non-empty.
	SupportedModels []string

	MaxTokens       int
	FallbackMessage string
	History         llm.HistoryMode

	// Timeout bounds one call. Zero means the call may block indefinitely.
	Timeout time.Duration

	// HTTPClient overrides the pooled client from go-cleanhttp.
	HTTPClient *http.Client
}

// Client produces assistant replies for a conversation.
type Client struct {
	config Config
	api    *openai.Client
	logger *zap.Logger
}

// New creates a Client.
func New(config Config, logger *zap.Logger) *Client {
	if config.MaxTokens <= 0 {
		config.MaxTokens = llm.DefaultMaxTokens
	}
	if config.History == "" {
		config.History = llm.HistoryFull
	}

	oc := openai.DefaultConfig(config.Token)
	if config.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(config.BaseURL, "/")
	}
	oc.HTTPClient = config.HTTPClient
	if oc.HTTPClient == nil {
		oc.HTTPClient = cleanhttp.DefaultPooledClient()
	}

	return &Client{
		config: config,
		api:    openai.NewClientWithConfig(oc),
		logger: logger,
	}
}

// FallbackMessage returns the text substituted for a failed completion.
func (c *Client) FallbackMessage() string {
	return c.config.FallbackMessage
}

// Complete issues a blocking completion and returns the first choice's content.
func (c *Client) Complete(ctx context.Context, conv *llm.Conversation) llm.CompletionResult {
	req := llm.NewCompletionRequest(c.config.Model, conv, c.config.History, c.config.MaxTokens, false)
	if err := c.check(); err != nil {
		return c.fallback(err)
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	startTime := time.Now()
	c.logger.Debug("sending completion request",
		zap.String("model", req.Model),
		zap.Int("message_count", len(req.Messages)),
	)

	resp, err := c.api.CreateChatCompletion(ctx, toOpenAI(req))
	if err != nil {
		return c.fallback(fmt.Errorf("creating chat completion: %w", err))
	}
	if len(resp.Choices) == 0 {
		return c.fallback(errors.New("no choices in completion response"))
	}

	text := resp.Choices[0].Message.Content
	c.logger.Debug("received completion",
		zap.String("content_preview", logger.Preview(text, 100)),
		zap.Duration("duration", time.Since(startTime)),
	)

	return llm.CompletionResult{Text: text}
}

// Stream issues a streaming completion. Every delivered chunk's delta content
// is one fragment. If the stream cannot be opened, the returned stream yields
// the fallback message once and reports Fallback.
func (c *Client) Stream(ctx context.Context, conv *llm.Conversation) *llm.Stream {
	req := llm.NewCompletionRequest(c.config.Model, conv, c.config.History, c.config.MaxTokens, true)
	if err := c.check(); err != nil {
		c.fallback(err)
		return llm.FallbackStream(c.config.FallbackMessage)
	}

	ctx, cancel := c.withTimeout(ctx)

	c.logger.Debug("opening completion stream",
		zap.String("model", req.Model),
		zap.Int("message_count", len(req.Messages)),
	)

	stream, err := c.api.CreateChatCompletionStream(ctx, toOpenAI(req))
	if err != nil {
		cancel()
		c.fallback(fmt.Errorf("creating chat completion stream: %w", err))
		return llm.FallbackStream(c.config.FallbackMessage)
	}

	recv := func() (string, error) {
		chunk, err := stream.Recv()
		if err != nil {
			return "", err
		}
		if len(chunk.Choices) == 0 {
			return "", nil
		}
		return chunk.Choices[0].Delta.Content, nil
	}

	closer := func() error {
		defer cancel()
		stream.Close()
		return nil
	}

	return llm.NewStream(recv, closer)
}

// CompleteStream accumulates Stream to completion, calling onFragment for
// every non-empty fragment as it arrives.
func (c *Client) CompleteStream(ctx context.Context, conv *llm.Conversation, onFragment func(string)) llm.CompletionResult {
	startTime := time.Now()

	s := c.Stream(ctx, conv)
	text, err := llm.Accumulate(s, onFragment)

	if s.Fallback() {
		return llm.CompletionResult{Text: text, Fallback: true}
	}

	if err != nil && text == "" {
		return c.fallback(fmt.Errorf("reading chat completion stream: %w", err))
	}
	if err != nil {
		c.logger.Warn("completion stream ended early",
			zap.Error(err),
			zap.Int("received_bytes", len(text)),
		)
		return llm.CompletionResult{Text: text, Partial: true}
	}

	c.logger.Debug("completion stream finished",
		zap.String("content_preview", logger.Preview(text, 100)),
		zap.Duration("duration", time.Since(startTime)),
	)

	return llm.CompletionResult{Text: text}
}

func (c *Client) check() error {
	if c.config.Token == "" {
		return ErrNoCredential
	}
	if len(c.config.SupportedModels) > 0 {
		for _, m := range c.config.SupportedModels {
			if m == c.config.Model {
				return nil
			}
		}
		return fmt.Errorf("model %q is not supported", c.config.Model)
	}
	return nil
}

func (c *Client) fallback(err error) llm.CompletionResult {
	fields := []zap.Field{zap.Error(err)}
	if status := statusCode(err); status != 0 {
		fields = append(fields, zap.Int("status", status))
	}
	c.logger.Error("completion failed, using fallback message", fields...)

	return llm.CompletionResult{Text: c.config.FallbackMessage, Fallback: true}
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.config.Timeout > 0 {
		return context.WithTimeout(ctx, c.config.Timeout)
	}
	return context.WithCancel(ctx)
}

func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

func toOpenAI(req llm.CompletionRequest) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, t := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(t.Role),
			Content: t.Content,
		})
	}

	temperature := req.Temperature
	if temperature == 0 {
		temperature = greedyTemperature
	}

	return openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      req.Stream,
	}
}
