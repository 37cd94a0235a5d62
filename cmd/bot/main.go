package main

import (
	"context"
	"fmt"
	"net/http"

	"cstats-bot/internal/api"
	"cstats-bot/internal/config"
	"cstats-bot/internal/constants"
	fxmodules "cstats-bot/internal/fx"
	"cstats-bot/internal/llm"
	"cstats-bot/internal/server"
	"cstats-bot/internal/telegram"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(releaseClients),
		fx.Invoke(runServer),
		fx.Invoke(runTelegram),
	).Run()
}

func runServer(
	lc fx.Lifecycle,
	commandServer *server.CommandServer,
	cfg *config.Config,
	logger zerolog.Logger,
) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:           commandServer.Handler(),
		ReadHeaderTimeout: constants.ExternalAPITimeout,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Info().Str("addr", srv.Addr).Msg("server starting")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Fatal().Err(err).Msg("server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("server shutdown failed")
				return err
			}
			logger.Info().Msg("server stopped gracefully")
			return nil
		},
	})
}

func runTelegram(lc fx.Lifecycle, bot *telegram.Bot) {
	if bot == nil {
		return
	}
	lc.Append(fx.Hook{
		OnStart: bot.Start,
		OnStop:  bot.Stop,
	})
}

// releaseClients drops pooled outbound connections. It is invoked first so its
// OnStop hook runs after the chat surfaces have stopped.
func releaseClients(lc fx.Lifecycle, fiveE *api.FiveEClient, llmClient *llm.Client, logger zerolog.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			fiveE.Close()
			if llmClient != nil {
				llmClient.Close()
			}
			logger.Info().Msg("http clients closed")
			return nil
		},
	})
}
