package main

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/korelabs/kore/internal/assistant"
	"github.com/korelabs/kore/internal/ratelimit"
	"github.com/korelabs/kore/internal/tui"
	"github.com/korelabs/kore/internal/voice"
)

func chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant interactively",
		Long: `Open the chat interface. Type what happened with your money and the
assistant records it after a short confirmation countdown.

Examples:
  kore chat
  KORE_GEMINI_API_KEY=... kore chat`,
		RunE: runChat,
	}
	cmd.Flags().Bool("speak", false, "Voice the assistant's responses aloud")
	return cmd
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	limiter := ratelimit.New()
	classifier, err := initClassifier(limiter)
	if err != nil {
		return err
	}
	defer func() { _ = classifier.Close() }()

	relay := tui.NewEventRelay()
	controller := assistant.NewController(store, slog.Default(), assistant.WithNotify(relay.Notify))
	defer controller.Close()

	opts := []assistant.SessionOption{}
	if speak, _ := cmd.Flags().GetBool("speak"); speak {
		opts = append(opts, assistant.WithSpeaker(initSpeaker(limiter)))
	}

	session := assistant.NewSession(classifier, store, controller, slog.Default(), opts...)
	defer session.Close()

	// voice.command names a speech-to-text program that streams transcript
	// lines on stdout. Absent or not installed, ctrl+v reports unsupported.
	var recognizer voice.Recognizer
	if r := voice.NewCommandRecognizer(viper.GetString("voice.command")); r != nil {
		recognizer = r
	}

	return tui.Run(ctx, session, relay, recognizer)
}
