package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/korelabs/kore/internal/certs"
	"github.com/korelabs/kore/internal/ratelimit"
	"github.com/korelabs/kore/internal/server"
	"github.com/korelabs/kore/internal/speech"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Expose the assistant and the transaction store over HTTP for web
and mobile frontends.

Examples:
  kore serve
  kore serve --addr :9000`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", ":8080", "Listen address")
	cmd.Flags().Bool("tls", false, "Serve HTTPS with a self-signed certificate")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("server.tls", cmd.Flags().Lookup("tls"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
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

	opts := []server.HandlerOption{}
	if synth, err := speech.NewElevenLabsClient(speech.Config{
		APIKey:  viper.GetString("elevenlabs.api_key"),
		VoiceID: viper.GetString("elevenlabs.voice_id"),
		ModelID: viper.GetString("elevenlabs.model_id"),
	}); err == nil {
		opts = append(opts, server.WithSynthesizer(synth))
	} else {
		slog.Debug("speech endpoint disabled", "error", err)
	}

	cfg := server.Config{
		Addr:           viper.GetString("server.addr"),
		AllowedOrigins: viper.GetStringSlice("server.allowed_origins"),
	}
	if viper.GetBool("server.tls") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		cert, err := certs.NewManager(filepath.Join(home, ".config", "kore", "certs")).GetOrCreateCertificate()
		if err != nil {
			return fmt.Errorf("failed to prepare TLS certificate: %w", err)
		}
		cfg.Certificate = &cert
	}

	handlers := server.NewHandlers(store, classifier, limiter, slog.Default(), opts...)
	srv := server.New(cfg, handlers, slog.Default())

	return srv.Run(ctx)
}
