package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	askcmder "github.com/papercomputeco/parley/cmd/parley/ask"
	"github.com/papercomputeco/parley/cmd/parley/bootstrap"
	chatcmder "github.com/papercomputeco/parley/cmd/parley/chat"
	servecmder "github.com/papercomputeco/parley/cmd/parley/serve"
)

const rootLongDesc string = `parley is a chat assistant that speaks its replies.

Messages go to an OpenAI-compatible completion service (Groq by default)
and replies are synthesized by a hosted text-to-speech service. Use it
from the browser (serve), a single command (ask) or the terminal (chat).

Credentials are read from the environment only:
  GROQ_API_KEY         completion service
  TTS_API_KEY          voicevox speech backend
  GOOGLE_TTS_API_KEY   google speech backend`

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "parley",
		Short:        "A chat assistant that speaks its replies",
		Long:         rootLongDesc,
		SilenceUsage: true,
	}

	bootstrap.AddGlobalFlags(cmd)

	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())

	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
