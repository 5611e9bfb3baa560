package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"

	"subgate/config"
	"subgate/listing"
	"subgate/metadata"
	"subgate/runtime"
	"subgate/server"
	"subgate/store"
)

func main() {
	cfg := config.FromEnv()

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("app", "subgate").Logger()

	ctx := context.Background()
	st, err := store.OpenSQLite(ctx, cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Str("db", cfg.DBPath).Msg("failed to open config store")
	}
	defer func() { _ = st.Close() }()

	registry := runtime.NewRegistry(runtime.Deps{
		Store:     st,
		Meta:      metadata.NewClient(logger),
		Listings:  listing.NewCache(logger),
		PublicURL: cfg.PublicURL,
		Log:       logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server.New(logger, cfg, st, registry).Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-shutdownCtx.Done()
		logger.Info().Msg("shutting down")
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(timeoutCtx); err != nil {
			logger.Warn().Err(err).Msg("server shutdown error")
		}
	}()

	fmt.Println("===========================================")
	fmt.Println("  Subgate — remote folder subtitles")
	fmt.Println("===========================================")
	fmt.Printf("Configure at %s/configure\n", cfg.PublicURL)
	fmt.Printf("Root manifest at %s/manifest.json\n", cfg.PublicURL)
	fmt.Println()

	logger.Info().Str("port", cfg.Port).Str("public_url", cfg.PublicURL).Msg("listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server failed")
	}
	logger.Info().Msg("server stopped")
}
