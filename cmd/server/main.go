package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/iliamunaev/users-api/internal/app"
	"github.com/iliamunaev/users-api/internal/config"
	"github.com/iliamunaev/users-api/internal/logger"
)

// errCrashed reports that a controller panic stopped the server.
var errCrashed = errors.New("stopped after controller panic")

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log, cfg.Env, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, nil); err != nil {
		log.Error().Err(err).Msg("server stopped")
		stop()
		os.Exit(1)
	}
}

// run serves until ctx is canceled or a controller panic is reported with
// server.crash_on_panic set. The HTTP server drains within the shutdown
// timeout before the store is closed. A non-nil ln is used instead of
// listening on the configured address.
func run(ctx context.Context, cfg config.Config, log zerolog.Logger, ln net.Listener) error {
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error().Err(err).Msg("close store")
		}
	}()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           a.Handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return log.WithContext(context.Background()) },
	}

	serveErr := make(chan error, 1)
	go func() {
		var err error
		if ln != nil {
			err = srv.Serve(ln)
		} else {
			err = srv.ListenAndServe()
		}
		serveErr <- err
	}()
	log.Info().Str("addr", cfg.Server.Addr).Str("version", cfg.Version).Msg("listening")

	var result error
	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case v := <-a.Crashed():
		log.Error().Interface("panic", v).Msg("controller panic, shutting down")
		result = errCrashed
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Join(result, fmt.Errorf("shutdown: %w", err))
	}
	log.Info().Msg("server drained")
	return result
}
