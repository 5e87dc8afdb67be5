package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"codexgen/internal/bootstrap"
	"codexgen/internal/http/handlers"
	httpapi "codexgen/internal/http/httpapi"
	"codexgen/internal/infra"
	"codexgen/internal/metrics"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.Load(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: invalid configuration")
	}

	m := metrics.New()
	app := handlers.NewApp(rt.Generation, rt.Params, rt.Corpus, m, logger)
	router := httpapi.NewRouter(app, httpapi.Options{
		AllowedOrigins:     cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Metrics:            m.Handler(),
	})

	server := infra.NewHTTPServer(cfg, router)
	go func() {
		logger.Info().Str("addr", server.Addr()).Msg("api: listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("api: http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout())
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api: failed to shutdown server")
	}
	logger.Info().Msg("api: server stopped")
}
