package config

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"supplyfinder/internal/integrations/paramstore"
)

// SSM parameter names, relative to PARAM_PREFIX.
const (
	ParamRateLimitSecret = "/rate-limit-secret"
	ParamSMTPPass        = "/smtp-pass"
	ParamSendGridAPIKey  = "/sendgrid-api-key"
)

// Getter is the interface that wraps GetParameter.
type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// Secrets resolves a secret from the environment first and from SSM second.
type Secrets struct {
	env    Env
	params Getter
	prefix string
}

// NewSecrets returns a resolver. params may be nil, in which case only the
// environment is consulted.
func NewSecrets(env Env, params Getter, prefix string) *Secrets {
	return &Secrets{
		env:    env,
		params: params,
		prefix: strings.TrimRight(strings.TrimSpace(prefix), "/"),
	}
}

// Resolve returns "" without error when the secret is configured nowhere.
func (s *Secrets) Resolve(ctx context.Context, envKey, param string) (string, error) {
	if v := s.env.Str(envKey, ""); v != "" {
		return v, nil
	}
	if s.params == nil || s.prefix == "" {
		return "", nil
	}
	name := s.prefix + param
	v, err := s.params.GetParameter(ctx, name)
	if errors.Is(err, paramstore.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("config: resolve %s: %w", envKey, err)
	}
	return strings.TrimSpace(v), nil
}
