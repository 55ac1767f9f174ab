package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"supplyfinder/internal/app"
	"supplyfinder/internal/config"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// ---- Configuration (read only here) ----
	cfg := config.LoadIntel(os.Getenv)

	// ---- Clients ----
	ed, err := app.Editorial(ctx, cfg.EditorialTable, loadAWS)
	if err != nil {
		slog.Error("failed to create editorial client", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	h, err := app.IntelHandler(cfg, ed, logger)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

func loadAWS(ctx context.Context) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx)
}
