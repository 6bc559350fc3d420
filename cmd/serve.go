package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/askmto/askmto/internal/chat"
	"github.com/askmto/askmto/internal/index"
	"github.com/askmto/askmto/internal/server"
	"github.com/askmto/askmto/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the question-answering API",
	Long: `Loads the latest handbook index and starts the HTTP API: POST /ask,
POST /ask-enhanced, POST /clear-context, and health endpoints. Run
` + "`askmto index`" + ` first to build the index.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := newLogger()
		if err != nil {
			return err
		}
		defer logger.Sync()

		embedder, err := createEmbedderFromConfig(cfg)
		if err != nil {
			return fmt.Errorf("creating embedder: %w", err)
		}
		provider, err := createLLMProviderFromConfig(cfg)
		if err != nil {
			return fmt.Errorf("creating LLM provider: %w", err)
		}

		idx, err := index.Load(cmd.Context(), cfg.IndexDir, embedder, logger)
		if err != nil {
			return fmt.Errorf("loading index from %s: %w\nRun `askmto index <handbook.pdf>` first", cfg.IndexDir, err)
		}
		defer idx.Close()

		prompt, err := chat.LoadPrompt(cfg.PromptFile)
		if err != nil {
			return err
		}

		svc := chat.NewService(
			idx,
			provider,
			session.NewMemoryStore(cfg.HistoryTurns),
			prompt,
			chat.Options{
				Model:           cfg.Model,
				TopK:            cfg.TopK,
				SimilarityFloor: cfg.SimilarityFloor,
				MaxTokens:       cfg.MaxTokens,
				Temperature:     cfg.Temperature,
			},
			logger,
		)

		srv := server.New(server.Config{
			Host:           cfg.Host,
			Port:           cfg.Port,
			CORSOrigins:    cfg.CORSOrigins,
			RequestTimeout: time.Duration(cfg.RequestTimeout) * time.Second,
		}, svc, logger)

		errCh := make(chan error, 1)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case sig := <-stop:
			logger.Info("shutting down", zap.String("signal", sig.String()))
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
