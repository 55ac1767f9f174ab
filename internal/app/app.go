// Package app wires configuration, clients and services into the two HTTP
// handlers. It is shared by the Lambda binaries and the local dev server.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"supplyfinder/handler"
	"supplyfinder/internal/config"
	"supplyfinder/internal/integrations/editorial"
	"supplyfinder/internal/integrations/feeds"
	"supplyfinder/internal/integrations/paramstore"
	"supplyfinder/internal/integrations/sendgrid"
	"supplyfinder/internal/integrations/smtpmail"
	"supplyfinder/internal/market"
	"supplyfinder/internal/notify"
	"supplyfinder/internal/ratelimit"
	"supplyfinder/internal/usecase"
)

// AWSLoader loads the shared AWS SDK configuration. It is only called when a
// feature that needs AWS is configured.
type AWSLoader func(ctx context.Context) (aws.Config, error)

// Secrets returns a resolver backed by SSM when PARAM_PREFIX is set.
func Secrets(ctx context.Context, env config.Env, load AWSLoader) (*config.Secrets, error) {
	prefix := env.Str("PARAM_PREFIX", "")
	if prefix == "" || load == nil {
		return config.NewSecrets(env, nil, ""), nil
	}
	cfg, err := load(ctx)
	if err != nil {
		return nil, fmt.Errorf("app: load AWS config: %w", err)
	}
	ps, err := paramstore.New(awsssm.NewFromConfig(cfg))
	if err != nil {
		return nil, err
	}
	return config.NewSecrets(env, ps, prefix), nil
}

// Editorial returns a DynamoDB-backed reader for table, or nil when no table
// is configured.
func Editorial(ctx context.Context, table string, load AWSLoader) (market.EditorialReader, error) {
	if table == "" || load == nil {
		return nil, nil
	}
	cfg, err := load(ctx)
	if err != nil {
		return nil, fmt.Errorf("app: load AWS config: %w", err)
	}
	c, err := editorial.New(awsdynamodb.NewFromConfig(cfg), table)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// SubmitHandler builds the submit-request handler. The SMTP and SendGrid
// transports are both registered; the dispatcher uses the first configured.
func SubmitHandler(cfg config.Submit, logger *slog.Logger) (*handler.SubmitHandler, error) {
	limiter, err := ratelimit.New(cfg.RateLimitSecret,
		ratelimit.WithWindow(cfg.RateLimitWindow),
		ratelimit.WithCookieMaxAge(cfg.CookieMaxAge),
	)
	if err != nil {
		return nil, err
	}
	if !limiter.Enabled() {
		logger.Warn("rate limiting disabled, RATE_LIMIT_SECRET is not set")
	}

	dispatcher, err := notify.NewDispatcher(cfg.Mail, logger,
		smtpmail.New(cfg.SMTP, smtpmail.WithLogger(logger)),
		sendgrid.New(cfg.SendGridAPIKey, sendgrid.WithLogger(logger)),
	)
	if err != nil {
		return nil, err
	}
	if t := dispatcher.Transport(); t != nil {
		logger.Info("mail transport selected", "transport", t.Name())
	} else {
		logger.Warn("no mail transport configured")
	}

	svc, err := usecase.NewSubmitService(dispatcher)
	if err != nil {
		return nil, err
	}
	return handler.NewSubmitHandler(svc, limiter, logger)
}

// IntelHandler builds the market-intelligence handler. ed may be nil.
func IntelHandler(cfg config.Intel, ed market.EditorialReader, logger *slog.Logger) (*handler.IntelHandler, error) {
	chains := market.NewChains(cfg.Sources, feeds.NewClient(), ed)
	agg := market.NewAggregator(chains,
		market.WithFetchTimeout(cfg.FetchTimeout),
		market.WithLogger(logger),
	)
	cache := market.NewCache(cfg.TTL, time.Now)

	svc, err := usecase.NewIntelService(agg, cache, logger)
	if err != nil {
		return nil, err
	}
	return handler.NewIntelHandler(svc, cache.TTL(), logger)
}
