// Package server provides parley's browser UI: a single page backed by a
// small JSON and server-sent-events API.
package server

import (
	_ "embed"
	"fmt"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	fsession "github.com/gofiber/fiber/v2/middleware/session"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/parley/pkg/markdown"
	"github.com/papercomputeco/parley/pkg/session"
	"github.com/papercomputeco/parley/pkg/turn"
)

//go:embed index.html
var indexHTML []byte

const (
	sessionCookie = "parley_session"
	sweepInterval = time.Minute
	localRequest  = "request_id"
)

// Server is the web UI. Each browser session, identified by a cookie, owns an
// independent conversation held in memory.
type Server struct {
	config   Config
	orch     *turn.Orchestrator
	sessions *session.Store
	cookies  *fsession.Store
	markdown *markdown.Renderer
	logger   *zap.Logger
	server   *fiber.App
	stop     chan struct{}
}

// New creates a new Server.
func New(config Config, orch *turn.Orchestrator, logger *zap.Logger) (*Server, error) {
	if orch == nil {
		return nil, fmt.Errorf("turn orchestrator is required")
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	cookieTTL := config.SessionTTL
	if cookieTTL <= 0 {
		cookieTTL = 24 * time.Hour
	}

	s := &Server{
		config:   config,
		orch:     orch,
		sessions: session.NewStore(config.SystemPrompt, config.SessionTTL),
		cookies: fsession.New(fsession.Config{
			Expiration:     cookieTTL,
			KeyLookup:      "cookie:" + sessionCookie,
			CookieHTTPOnly: true,
			CookieSameSite: fiber.CookieSameSiteLaxMode,
		}),
		markdown: markdown.NewRenderer(),
		logger:   logger,
		server:   app,
		stop:     make(chan struct{}),
	}

	app.Use(s.logRequests)

	app.Get("/", s.handleIndex)
	app.Post("/api/chat", s.handleChat)
	app.Post("/api/chat/stream", s.handleChatStream)
	app.Get("/api/history", s.handleHistory)
	app.Delete("/api/history", s.handleReset)
	app.Get("/api/audio", s.handleAudio)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})

	if config.SessionTTL > 0 {
		go s.sweep()
	}

	return s, nil
}

// Run starts the server on the configured listening address.
func (s *Server) Run() error {
	s.logger.Info("starting web UI",
		zap.String("listen", s.config.ListenAddr),
		zap.Bool("speech", s.orch.SpeechEnabled()),
	)

	return s.server.Listen(s.config.ListenAddr)
}

// RunWithListener starts the server on an existing listener.
func (s *Server) RunWithListener(ln net.Listener) error {
	s.logger.Info("starting web UI", zap.String("listen", ln.Addr().String()))

	return s.server.Listener(ln)
}

// Close shuts the server down and stops expiring sessions.
func (s *Server) Close() error {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	return s.server.Shutdown()
}

func (s *Server) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if n := s.sessions.Sweep(); n > 0 {
				s.logger.Debug("expired sessions", zap.Int("count", n))
			}
		}
	}
}

// logRequests tags every request with an id and logs its outcome.
func (s *Server) logRequests(c *fiber.Ctx) error {
	startTime := time.Now()
	id := uuid.NewString()
	c.Locals(localRequest, id)
	c.Set("X-Request-Id", id)

	err := c.Next()

	s.logger.Debug("handled request",
		zap.String("request_id", id),
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", c.Response().StatusCode()),
		zap.Duration("duration", time.Since(startTime)),
	)

	return err
}

// session returns the conversation bound to the request's cookie, issuing a
// new cookie when there is none.
func (s *Server) session(c *fiber.Ctx) (*session.Session, error) {
	cs, err := s.cookies.Get(c)
	if err != nil {
		return nil, fmt.Errorf("loading session cookie: %w", err)
	}

	id := cs.ID()
	if cs.Fresh() {
		cs.Set("created_at", time.Now().Unix())
		if err := cs.Save(); err != nil {
			return nil, fmt.Errorf("saving session cookie: %w", err)
		}
		s.logger.Debug("new session", zap.String("request_id", requestID(c)))
	}

	return s.sessions.Get(id), nil
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals(localRequest).(string)
	return id
}
