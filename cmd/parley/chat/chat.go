package chatcmder

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/parley/cmd/parley/bootstrap"
	"github.com/papercomputeco/parley/pkg/logger"
	"github.com/papercomputeco/parley/pkg/session"
	"github.com/papercomputeco/parley/pkg/tui"
)

const chatLongDesc string = `Chat with the assistant in the terminal.

Replies are rendered as markdown. When a speech backend is configured,
each reply is synthesized and the path of the audio file is shown below
the conversation. Press Esc or Ctrl+C to quit.

With --debug, logs are written to --log-file instead of the screen.

Examples:
  parley chat
  parley chat --no-speech
  parley chat --debug --log-file /tmp/parley.log`

const chatShortDesc string = "Chat in the terminal"

type chatCommander struct {
	noSpeech bool
	logFile  string
	style    string
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().BoolVar(&cmder.noSpeech, "no-speech", false, "Skip speech synthesis")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "parley.log", "Debug log destination")
	cmd.Flags().StringVar(&cmder.style, "style", "", "Markdown style (dark, light, notty; default: detect)")

	return cmd
}

func (c *chatCommander) run(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := bootstrap.LoadConfig(cmd)
	if err != nil {
		return err
	}

	// The terminal belongs to the UI, so logs go to a file or nowhere.
	log := zap.NewNop()
	if cfg.Debug {
		f, err := tea.LogToFile(c.logFile, "parley")
		if err != nil {
			return fmt.Errorf("could not open log file: %w", err)
		}
		defer f.Close()
		log = logger.NewLoggerTo(f, true)
	}
	defer log.Sync()
	bootstrap.LogWarnings(cfg, log)

	orch, err := bootstrap.NewOrchestrator(cfg, log, !c.noSpeech)
	if err != nil {
		return err
	}

	sess := session.New("tui", cfg.Completion.SystemPrompt)
	model := tui.New(ctx, orch, sess, tui.Config{Style: c.style})

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("chat UI failed: %w", err)
	}
	return nil
}
