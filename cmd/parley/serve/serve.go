package servecmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/parley/cmd/parley/bootstrap"
	"github.com/papercomputeco/parley/pkg/config"
	"github.com/papercomputeco/parley/server"
)

const serveLongDesc string = `Serve the parley web UI.

Each browser session keeps its own conversation in memory. Replies are
streamed into the page as they arrive and, when a speech backend is
configured, played back once synthesized.

Examples:
  parley serve
  parley serve --listen 127.0.0.1:9000
  parley serve --config parley.toml`

const serveShortDesc string = "Serve the web UI"

type serveCommander struct {
	listen string
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.listen, "listen", "l", "", "Address to listen on (default: "+config.DefaultListenAddr+")")

	return cmd
}

func (c *serveCommander) run(ctx context.Context, cmd *cobra.Command) error {
	cfg, log, err := bootstrap.Load(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	if c.listen != "" {
		cfg.ListenAddr = c.listen
	}

	orch, err := bootstrap.NewOrchestrator(cfg, log, true)
	if err != nil {
		return err
	}

	srvConfig := server.Config{
		ListenAddr:   cfg.ListenAddr,
		SessionTTL:   cfg.Session.TTL,
		SystemPrompt: cfg.Completion.SystemPrompt,
		AudioType:    bootstrap.AudioType(cfg.Speech),
	}
	if orch.SpeechEnabled() {
		srvConfig.AudioPath = cfg.Speech.OutputPath
	}

	srv, err := server.New(srvConfig, orch, log)
	if err != nil {
		return fmt.Errorf("could not create server: %w", err)
	}

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		if err := srv.Close(); err != nil {
			log.Error("shutdown failed", zap.Error(err))
		}
	}()

	if err := srv.Run(); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
