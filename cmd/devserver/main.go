package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/joho/godotenv"

	"supplyfinder/internal/app"
	"supplyfinder/internal/config"
	"supplyfinder/internal/devserver"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using process environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	env := config.Env(os.Getenv)
	addr := env.Str("DEV_ADDR", "127.0.0.1:3000")

	secrets, err := app.Secrets(ctx, env, loadAWS)
	if err != nil {
		slog.Error("failed to create secret resolver", "err", err)
		os.Exit(1)
	}
	submitCfg, err := config.LoadSubmit(ctx, env, secrets)
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}
	submit, err := app.SubmitHandler(submitCfg, logger)
	if err != nil {
		slog.Error("failed to create submit handler", "err", err)
		os.Exit(1)
	}

	intelCfg := config.LoadIntel(env)
	ed, err := app.Editorial(ctx, intelCfg.EditorialTable, loadAWS)
	if err != nil {
		slog.Error("failed to create editorial client", "err", err)
		os.Exit(1)
	}
	intel, err := app.IntelHandler(intelCfg, ed, logger)
	if err != nil {
		slog.Error("failed to create intel handler", "err", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr: addr,
		Handler: devserver.NewRouter(submit.Handle, intel.Handle, devserver.Config{
			RatePerSec: env.Float("DEV_RATE_PER_SEC", 0),
			Burst:      env.Int("DEV_RATE_BURST", 0),
		}, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("shutdown", "err", err)
		}
	}()

	slog.Info("dev server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "err", err)
		os.Exit(1)
	}
}

func loadAWS(ctx context.Context) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx)
}
