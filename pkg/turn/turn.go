// Package turn runs one user submission through completion and synthesis.
package turn

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/parley/pkg/llm"
	"github.com/papercomputeco/parley/pkg/logger"
	"github.com/papercomputeco/parley/pkg/session"
	"github.com/papercomputeco/parley/pkg/speech"
)

// ErrEmptyInput is returned for a submission that is blank after trimming.
var ErrEmptyInput = errors.New("message is empty")

// Completer produces assistant replies. completion.Client implements it.
type Completer interface {
	Complete(ctx context.Context, conv *llm.Conversation) llm.CompletionResult
	CompleteStream(ctx context.Context, conv *llm.Conversation, onFragment func(string)) llm.CompletionResult
}

// Outcome is what one submission produced.
type Outcome struct {
	Reply    string
	Fallback bool
	Partial  bool

	// Speech holds playable audio. It is nil when synthesis is disabled,
	// skipped or failed.
	Speech *speech.Result

	// SpeechErr is set when synthesis was attempted and failed.
	SpeechErr error

	// TurnHash identifies the assistant turn appended to the session. It is
	// empty when nothing was appended.
	TurnHash string
}

// Orchestrator sequences a submission: user turn, completion, assistant
// turn, synthesis.
type Orchestrator struct {
	completer Completer
	speech    speech.Synthesizer
	logger    *zap.Logger
}

// New creates an Orchestrator. synth may be nil to disable speech.
func New(completer Completer, synth speech.Synthesizer, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		completer: completer,
		speech:    synth,
		logger:    logger,
	}
}

// SpeechEnabled reports whether replies are synthesized.
func (o *Orchestrator) SpeechEnabled() bool {
	return o.speech != nil
}

// Submit runs a blocking completion for text.
func (o *Orchestrator) Submit(ctx context.Context, sess *session.Session, text string) (Outcome, error) {
	return o.run(ctx, sess, text, func(conv *llm.Conversation) llm.CompletionResult {
		return o.completer.Complete(ctx, conv)
	})
}

// SubmitStream runs a streaming completion for text, calling onFragment for
// each piece of the reply as it arrives. Synthesis starts only once the reply
// is complete.
func (o *Orchestrator) SubmitStream(ctx context.Context, sess *session.Session, text string, onFragment func(string)) (Outcome, error) {
	return o.run(ctx, sess, text, func(conv *llm.Conversation) llm.CompletionResult {
		return o.completer.CompleteStream(ctx, conv, onFragment)
	})
}

func (o *Orchestrator) run(ctx context.Context, sess *session.Session, text string, complete func(*llm.Conversation) llm.CompletionResult) (Outcome, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Outcome{}, ErrEmptyInput
	}

	if err := sess.Begin(); err != nil {
		return Outcome{}, err
	}
	defer sess.End()

	mark := sess.Len()
	sess.Append(llm.RoleUser, text)

	o.logger.Debug("submitting turn",
		zap.String("session", sess.ID),
		zap.String("message", logger.Preview(text, 80)),
	)

	res := complete(sess.Conversation())
	if res.Fallback {
		sess.Rollback(mark)
		o.logger.Warn("completion fell back, turn discarded", zap.String("session", sess.ID))
		return Outcome{Reply: res.Text, Fallback: true}, nil
	}

	assistant := sess.Append(llm.RoleAssistant, res.Text)
	out := Outcome{
		Reply:    res.Text,
		Partial:  res.Partial,
		TurnHash: assistant.Hash,
	}

	if o.speech == nil {
		return out, nil
	}

	result := o.speech.Synthesize(ctx, speech.Request{Text: res.Text})
	switch {
	case result.Failure != nil:
		out.SpeechErr = result.Failure
	case !result.OK():
		out.SpeechErr = &speech.Failure{Message: "no audio returned"}
	default:
		out.Speech = &result
	}

	if out.SpeechErr != nil {
		o.logger.Warn("speech synthesis failed",
			zap.String("session", sess.ID),
			zap.Error(out.SpeechErr),
		)
	}

	return out, nil
}
