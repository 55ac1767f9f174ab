package config

import (
	"context"
	"time"

	"supplyfinder/internal/integrations/smtpmail"
	"supplyfinder/internal/market"
	"supplyfinder/internal/notify"
	"supplyfinder/internal/ratelimit"
)

// Submit configures the submit-request handler.
type Submit struct {
	RateLimitSecret string
	RateLimitWindow time.Duration
	CookieMaxAge    time.Duration
	Mail            notify.Config
	SMTP            smtpmail.Config
	SendGridAPIKey  string
}

// LoadSubmit reads MAIL_*, SMTP_*, RATE_LIMIT_* and SENDGRID_API_KEY.
func LoadSubmit(ctx context.Context, env Env, secrets *Secrets) (Submit, error) {
	rlSecret, err := secrets.Resolve(ctx, "RATE_LIMIT_SECRET", ParamRateLimitSecret)
	if err != nil {
		return Submit{}, err
	}
	smtpPass, err := secrets.Resolve(ctx, "SMTP_PASS", ParamSMTPPass)
	if err != nil {
		return Submit{}, err
	}
	sgKey, err := secrets.Resolve(ctx, "SENDGRID_API_KEY", ParamSendGridAPIKey)
	if err != nil {
		return Submit{}, err
	}

	port := env.Int("SMTP_PORT", smtpmail.DefaultPort)
	if port <= 0 {
		port = smtpmail.DefaultPort
	}
	implicitTLS, set := env.Bool("SMTP_SECURE")
	if !set {
		implicitTLS = port == 465
	}

	return Submit{
		RateLimitSecret: rlSecret,
		RateLimitWindow: env.Seconds("RATE_LIMIT_WINDOW_SECONDS", ratelimit.DefaultWindow),
		CookieMaxAge:    env.Seconds("RATE_LIMIT_COOKIE_MAX_AGE_SECONDS", ratelimit.DefaultCookieMaxAge),
		Mail: notify.Config{
			To:              env.Str("MAIL_TO", notify.DefaultAddress),
			From:            env.Str("MAIL_FROM", notify.DefaultAddress),
			SubjectTemplate: env.Str("MAIL_SUBJECT", notify.DefaultSubjectTemplate),
		},
		SMTP: smtpmail.Config{
			Host:        env.Str("SMTP_HOST", ""),
			Port:        port,
			Username:    env.Str("SMTP_USER", ""),
			Password:    smtpPass,
			ImplicitTLS: implicitTLS,
		},
		SendGridAPIKey: sgKey,
	}, nil
}

// Intel configures the market-intelligence handler.
type Intel struct {
	TTL            time.Duration
	FetchTimeout   time.Duration
	EditorialTable string
	Sources        market.SourceConfig
}

// LoadIntel reads INTEL_TTL_MINUTES, FETCH_TIMEOUT_SECONDS, EDITORIAL_TABLE
// and the provider URLs and keys.
func LoadIntel(env Env) Intel {
	return Intel{
		TTL:            env.Minutes("INTEL_TTL_MINUTES", market.DefaultTTL),
		FetchTimeout:   env.Seconds("FETCH_TIMEOUT_SECONDS", market.DefaultFetchTimeout),
		EditorialTable: env.Str("EDITORIAL_TABLE", ""),
		Sources: market.SourceConfig{
			SMMAPIKey:           env.Str("SMM_API_KEY", ""),
			SMMAPIURL:           env.Str("SMM_API_URL", ""),
			FastmarketsAPIKey:   env.Str("FASTM_API_KEY", ""),
			FastmarketsAPIURL:   env.Str("FASTM_API_URL", ""),
			CustomLithiumURL:    env.Str("CME_LI_API_URL", ""),
			MarineTrafficAPIKey: env.Str("MARINETRAFFIC_API_KEY", ""),
			MarineTrafficAPIURL: env.Str("MARINETRAFFIC_API_URL", ""),
			PortCongestionURL:   env.Str("PORT_CONGESTION_API_URL", ""),
			PolicyAlertURL:      env.Str("POLICY_ALERT_API_URL", ""),
		},
	}
}
