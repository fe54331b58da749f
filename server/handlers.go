package server

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/papercomputeco/parley/pkg/llm"
	"github.com/papercomputeco/parley/pkg/logger"
	"github.com/papercomputeco/parley/pkg/session"
	"github.com/papercomputeco/parley/pkg/speech"
	"github.com/papercomputeco/parley/pkg/turn"
)

// Messages shown inline in the UI.
const (
	msgEmptyInput = "メッセージを入力してください。"
	msgBusy       = "前のメッセージを処理中です。しばらくお待ちください。"
	msgBadRequest = "invalid request body"
	msgInternal   = "internal error"
)

// ChatRequest is the body of POST /api/chat and /api/chat/stream.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the result of one turn.
type ChatResponse struct {
	Reply     string `json:"reply"`
	ReplyHTML string `json:"reply_html"`
	Fallback  bool   `json:"fallback"`
	Partial   bool   `json:"partial"`

	// Audio is the synthesized speech, base64-encoded.
	Audio     string `json:"audio,omitempty"`
	AudioType string `json:"audio_type,omitempty"`
	AudioPath string `json:"audio_path,omitempty"`

	SpeechError string `json:"speech_error,omitempty"`

	// Turn is the hash of the assistant turn.
	Turn string `json:"turn,omitempty"`
}

// HistoryResponse lists the turns of the caller's session.
type HistoryResponse struct {
	Turns []llm.Turn `json:"turns"`
	Busy  bool       `json:"busy"`
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(indexHTML)
}

// handleChat runs a blocking turn.
func (s *Server) handleChat(c *fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		s.logger.Error("failed to load session", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: msgInternal})
	}

	var req ChatRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: msgBadRequest})
	}

	out, err := s.orch.Submit(c.UserContext(), sess, req.Message)
	if err != nil {
		return s.rejectTurn(c, err)
	}

	return c.JSON(s.chatResponse(out))
}

// handleChatStream runs a streaming turn. Fragments are sent as "fragment"
// events while the reply arrives, then a single "done" event carries the same
// payload as /api/chat. Validation failures are answered with plain JSON
// before the event stream opens.
func (s *Server) handleChatStream(c *fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		s.logger.Error("failed to load session", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: msgInternal})
	}

	var req ChatRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: msgBadRequest})
	}
	if strings.TrimSpace(req.Message) == "" {
		return s.rejectTurn(c, turn.ErrEmptyInput)
	}
	if sess.State() == session.Processing {
		return s.rejectTurn(c, session.ErrBusy)
	}

	id := requestID(c)

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		out, err := s.orch.SubmitStream(ctx, sess, req.Message, func(fragment string) {
			if err := writeEvent(w, "fragment", fragment); err != nil {
				s.logger.Warn("client went away during stream",
					zap.String("request_id", id),
					zap.Error(err),
				)
				cancel()
			}
		})
		if err != nil {
			_ = writeEvent(w, "error", llm.ErrorResponse{Error: rejectMessage(err)})
			return
		}

		s.logger.Debug("stream finished",
			zap.String("request_id", id),
			zap.String("reply_preview", logger.Preview(out.Reply, 100)),
		)
		_ = writeEvent(w, "done", s.chatResponse(out))
	}))

	return nil
}

func (s *Server) handleHistory(c *fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		s.logger.Error("failed to load session", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: msgInternal})
	}

	return c.JSON(HistoryResponse{
		Turns: sess.History(),
		Busy:  sess.State() == session.Processing,
	})
}

func (s *Server) handleReset(c *fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		s.logger.Error("failed to load session", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: msgInternal})
	}

	if err := sess.Reset(); err != nil {
		return s.rejectTurn(c, err)
	}
	s.sessions.Delete(sess.ID)

	return c.SendStatus(fiber.StatusNoContent)
}

// handleAudio serves the most recent audio artifact.
func (s *Server) handleAudio(c *fiber.Ctx) error {
	if s.config.AudioPath == "" {
		return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "audio file is disabled"})
	}

	audio, err := speech.NewArtifact(s.config.AudioPath).Read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "no audio yet"})
		}
		s.logger.Error("failed to read audio artifact", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: msgInternal})
	}

	contentType := s.config.AudioType
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(audio)
}

func (s *Server) rejectTurn(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, turn.ErrEmptyInput):
		status = fiber.StatusBadRequest
	case errors.Is(err, session.ErrBusy):
		status = fiber.StatusConflict
	default:
		s.logger.Error("turn failed", zap.Error(err))
	}
	return c.Status(status).JSON(llm.ErrorResponse{Error: rejectMessage(err)})
}

func rejectMessage(err error) string {
	switch {
	case errors.Is(err, turn.ErrEmptyInput):
		return msgEmptyInput
	case errors.Is(err, session.ErrBusy):
		return msgBusy
	}
	return msgInternal
}

func (s *Server) chatResponse(out turn.Outcome) ChatResponse {
	resp := ChatResponse{
		Reply:     out.Reply,
		ReplyHTML: s.markdown.Render(out.Reply),
		Fallback:  out.Fallback,
		Partial:   out.Partial,
		Turn:      out.TurnHash,
	}

	if out.Speech != nil {
		resp.Audio = base64.StdEncoding.EncodeToString(out.Speech.Audio)
		resp.AudioType = out.Speech.ContentType
		resp.AudioPath = out.Speech.Path
	}
	if out.SpeechErr != nil {
		resp.SpeechError = fmt.Sprintf("%s %v", speech.FailureNotice, out.SpeechErr)
	}

	return resp
}

func writeEvent(w *bufio.Writer, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", event, err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	return w.Flush()
}
