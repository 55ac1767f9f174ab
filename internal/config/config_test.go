package config

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"supplyfinder/internal/integrations/paramstore"
	"supplyfinder/internal/market"
	"supplyfinder/internal/notify"
	"supplyfinder/internal/ratelimit"
)

func envOf(m map[string]string) Env {
	return func(k string) string { return m[k] }
}

type fakeGetter struct {
	values map[string]string
	err    error
	names  []string
}

func (f *fakeGetter) GetParameter(_ context.Context, name string) (string, error) {
	f.names = append(f.names, name)
	if f.err != nil {
		return "", f.err
	}
	v, ok := f.values[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", paramstore.ErrNotFound, name)
	}
	return v, nil
}

func TestEnv_Helpers(t *testing.T) {
	env := envOf(map[string]string{
		"S":      "  value ",
		"I":      "42",
		"BAD_I":  "4x",
		"F":      "1.5",
		"NAN":    "NaN",
		"T":      "true",
		"FALSE":  "yes",
		"MIN":    "0.5",
		"NEGMIN": "-3",
	})

	require.Equal(t, "value", env.Str("S", "d"))
	require.Equal(t, "d", env.Str("MISSING", "d"))
	require.Equal(t, 42, env.Int("I", 1))
	require.Equal(t, 1, env.Int("BAD_I", 1))
	require.Equal(t, 1.5, env.Float("F", 0))
	require.Equal(t, 7.0, env.Float("NAN", 7))

	v, set := env.Bool("T")
	require.True(t, v)
	require.True(t, set)
	v, set = env.Bool("FALSE")
	require.False(t, v)
	require.True(t, set)
	_, set = env.Bool("MISSING")
	require.False(t, set)

	require.Equal(t, 30*time.Second, env.Minutes("MIN", time.Hour))
	require.Equal(t, time.Hour, env.Minutes("NEGMIN", time.Hour))
	require.Equal(t, 1500*time.Millisecond, env.Seconds("F", time.Hour))
}

func TestSecrets_EnvWinsOverSSM(t *testing.T) {
	g := &fakeGetter{values: map[string]string{"/sf/rate-limit-secret": "from-ssm"}}
	s := NewSecrets(envOf(map[string]string{"RATE_LIMIT_SECRET": "from-env"}), g, "/sf")

	v, err := s.Resolve(context.Background(), "RATE_LIMIT_SECRET", ParamRateLimitSecret)
	require.NoError(t, err)
	require.Equal(t, "from-env", v)
	require.Empty(t, g.names)
}

func TestSecrets_FallsBackToSSM(t *testing.T) {
	g := &fakeGetter{values: map[string]string{"/sf/smtp-pass": " hunter2 "}}
	s := NewSecrets(envOf(nil), g, "/sf/")

	v, err := s.Resolve(context.Background(), "SMTP_PASS", ParamSMTPPass)
	require.NoError(t, err)
	require.Equal(t, "hunter2", v)
	require.Equal(t, []string{"/sf/smtp-pass"}, g.names)
}

func TestSecrets_MissingParameterIsNotConfigured(t *testing.T) {
	s := NewSecrets(envOf(nil), &fakeGetter{}, "/sf")
	v, err := s.Resolve(context.Background(), "SENDGRID_API_KEY", ParamSendGridAPIKey)
	require.NoError(t, err)
	require.Empty(t, v)
}

func TestSecrets_SSMErrorPropagates(t *testing.T) {
	s := NewSecrets(envOf(nil), &fakeGetter{err: errors.New("access denied")}, "/sf")
	_, err := s.Resolve(context.Background(), "SMTP_PASS", ParamSMTPPass)
	require.ErrorContains(t, err, "access denied")
	require.ErrorContains(t, err, "SMTP_PASS")
}

func TestSecrets_NoPrefixSkipsSSM(t *testing.T) {
	g := &fakeGetter{}
	s := NewSecrets(envOf(nil), g, "")
	v, err := s.Resolve(context.Background(), "SMTP_PASS", ParamSMTPPass)
	require.NoError(t, err)
	require.Empty(t, v)
	require.Empty(t, g.names)
}

func TestLoadSubmit_Defaults(t *testing.T) {
	env := envOf(nil)
	cfg, err := LoadSubmit(context.Background(), env, NewSecrets(env, nil, ""))
	require.NoError(t, err)

	require.Empty(t, cfg.RateLimitSecret)
	require.Equal(t, ratelimit.DefaultWindow, cfg.RateLimitWindow)
	require.Equal(t, ratelimit.DefaultCookieMaxAge, cfg.CookieMaxAge)
	require.Equal(t, notify.DefaultAddress, cfg.Mail.To)
	require.Equal(t, notify.DefaultAddress, cfg.Mail.From)
	require.Equal(t, notify.DefaultSubjectTemplate, cfg.Mail.SubjectTemplate)
	require.Equal(t, 465, cfg.SMTP.Port)
	require.True(t, cfg.SMTP.ImplicitTLS)
	require.Empty(t, cfg.SendGridAPIKey)
}

func TestLoadSubmit_SMTPSecureRules(t *testing.T) {
	cases := []struct {
		name   string
		env    map[string]string
		port   int
		secure bool
	}{
		{"port 587 unset", map[string]string{"SMTP_PORT": "587"}, 587, false},
		{"port 587 forced", map[string]string{"SMTP_PORT": "587", "SMTP_SECURE": "true"}, 587, true},
		{"port 465 disabled", map[string]string{"SMTP_SECURE": "false"}, 465, false},
		{"invalid port", map[string]string{"SMTP_PORT": "abc"}, 465, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := envOf(tc.env)
			cfg, err := LoadSubmit(context.Background(), env, NewSecrets(env, nil, ""))
			require.NoError(t, err)
			require.Equal(t, tc.port, cfg.SMTP.Port)
			require.Equal(t, tc.secure, cfg.SMTP.ImplicitTLS)
		})
	}
}

func TestLoadSubmit_SecretsFromSSM(t *testing.T) {
	env := envOf(map[string]string{"SMTP_HOST": "smtp.zoho.eu", "SMTP_USER": "hello@supplyfinder.ai"})
	g := &fakeGetter{values: map[string]string{
		"/sf/rate-limit-secret": "rl",
		"/sf/smtp-pass":         "pw",
		"/sf/sendgrid-api-key":  "SG.key",
	}}
	cfg, err := LoadSubmit(context.Background(), env, NewSecrets(env, g, "/sf"))
	require.NoError(t, err)
	require.Equal(t, "rl", cfg.RateLimitSecret)
	require.Equal(t, "pw", cfg.SMTP.Password)
	require.Equal(t, "smtp.zoho.eu", cfg.SMTP.Host)
	require.Equal(t, "SG.key", cfg.SendGridAPIKey)
}

func TestLoadIntel(t *testing.T) {
	cfg := LoadIntel(envOf(map[string]string{
		"INTEL_TTL_MINUTES":     "5",
		"FETCH_TIMEOUT_SECONDS": "2",
		"EDITORIAL_TABLE":       "editorial",
		"SMM_API_KEY":           "smm",
		"MARINETRAFFIC_API_URL": "https://mt.example/api",
	}))
	require.Equal(t, 5*time.Minute, cfg.TTL)
	require.Equal(t, 2*time.Second, cfg.FetchTimeout)
	require.Equal(t, "editorial", cfg.EditorialTable)
	require.Equal(t, "smm", cfg.Sources.SMMAPIKey)
	require.Equal(t, "https://mt.example/api", cfg.Sources.MarineTrafficAPIURL)

	def := LoadIntel(envOf(map[string]string{"INTEL_TTL_MINUTES": "soon"}))
	require.Equal(t, market.DefaultTTL, def.TTL)
	require.Equal(t, market.DefaultFetchTimeout, def.FetchTimeout)
}

func TestEnv_DurationsSaturate(t *testing.T) {
	env := envOf(map[string]string{
		"HUGE":  "1e20",
		"EDGE":  "9223372036.854775807",
		"SMALL": "0.001",
	})
	require.Equal(t, time.Duration(math.MaxInt64), env.Minutes("HUGE", time.Hour))
	require.Equal(t, time.Duration(math.MaxInt64), env.Seconds("HUGE", time.Hour))
	require.Equal(t, time.Duration(math.MaxInt64), env.Seconds("EDGE", time.Hour))
	require.Equal(t, time.Millisecond, env.Seconds("SMALL", time.Hour))

	cfg := LoadIntel(envOf(map[string]string{"INTEL_TTL_MINUTES": "1e20"}))
	require.Equal(t, time.Duration(math.MaxInt64), cfg.TTL)
}
