package askcmder

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/parley/cmd/parley/bootstrap"
	"github.com/papercomputeco/parley/pkg/session"
	"github.com/papercomputeco/parley/pkg/speech"
)

const askLongDesc string = `Send one message and print the reply.

The reply is rendered as markdown when stdout is a terminal and printed
raw otherwise. Unless --no-speech is given, the reply is also synthesized
and written to the configured audio file, or to --out.

Examples:
  parley ask こんにちは
  parley ask --out reply.mp3 "今日の天気は？"
  parley ask --no-speech "Go のチャネルを説明して" > answer.md`

const askShortDesc string = "Send one message and print the reply"

type askCommander struct {
	out      string
	noSpeech bool
}

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask <message...>",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd, strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVarP(&cmder.out, "out", "o", "", "Write the synthesized audio to this file")
	cmd.Flags().BoolVar(&cmder.noSpeech, "no-speech", false, "Skip speech synthesis")

	return cmd
}

func (c *askCommander) run(ctx context.Context, cmd *cobra.Command, message string) error {
	cfg, log, err := bootstrap.Load(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	if c.out != "" {
		cfg.Speech.OutputPath = c.out
	}

	orch, err := bootstrap.NewOrchestrator(cfg, log, !c.noSpeech)
	if err != nil {
		return err
	}

	sess := session.New("cli", cfg.Completion.SystemPrompt)
	out, err := orch.Submit(ctx, sess, message)
	if err != nil {
		return err
	}

	stdout := cmd.OutOrStdout()
	fmt.Fprintln(stdout, render(stdout, out.Reply))

	stderr := cmd.ErrOrStderr()
	switch {
	case out.SpeechErr != nil:
		fmt.Fprintf(stderr, "%s %v\n", speech.FailureNotice, out.SpeechErr)
	case out.Speech != nil && out.Speech.Path != "":
		fmt.Fprintf(stderr, "audio: %s\n", out.Speech.Path)
	}

	return nil
}

// render formats reply as markdown when w is a terminal.
func render(w io.Writer, reply string) string {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return reply
	}

	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		width = 80
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return reply
	}

	rendered, err := r.Render(reply)
	if err != nil {
		return reply
	}
	return strings.TrimRight(rendered, "\n")
}
