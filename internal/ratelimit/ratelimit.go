// Package ratelimit implements a stateless per-client cooldown backed by a
// signed cookie. The server keeps no state; the client presents the token it
// was issued on its last accepted submission.
package ratelimit

import (
	"net/http"
	"time"

	"supplyfinder/internal/token"
)

const (
	CookieName          = "sf_rl"
	DefaultWindow       = 30 * time.Second
	DefaultCookieMaxAge = 7 * 24 * time.Hour
)

// State is the outcome of a limiter check.
type State int

const (
	Allowed State = iota
	Limited
)

func (s State) String() string {
	if s == Limited {
		return "limited"
	}
	return "allowed"
}

// Decision carries the limiter state and what the caller must send back.
type Decision struct {
	State             State
	RetryAfterSeconds int
	// Token is set on Allowed decisions while the limiter is enabled.
	Token string

	maxAge time.Duration
}

// Cookie returns the cookie carrying the fresh token, or nil when there is none.
func (d Decision) Cookie() *http.Cookie {
	if d.Token == "" {
		return nil
	}
	return &http.Cookie{
		Name:     CookieName,
		Value:    d.Token,
		Path:     "/",
		MaxAge:   int(d.maxAge / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

type Option func(*Limiter)

// WithWindow sets the cooldown between accepted submissions.
func WithWindow(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.window = d
		}
	}
}

// WithCookieMaxAge sets the lifetime of the issued cookie. It is independent of
// the window so the client keeps presenting its token across visits.
func WithCookieMaxAge(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.maxAge = d
		}
	}
}

// Limiter decides whether a client may submit. A Limiter built without a
// secret is disabled and allows everything.
type Limiter struct {
	signer *token.Signer
	window time.Duration
	maxAge time.Duration
}

// New returns a Limiter. An empty secret disables rate limiting.
func New(secret string, opts ...Option) (*Limiter, error) {
	l := &Limiter{window: DefaultWindow, maxAge: DefaultCookieMaxAge}
	for _, opt := range opts {
		opt(l)
	}
	if secret == "" {
		return l, nil
	}
	signer, err := token.NewSigner(secret)
	if err != nil {
		return nil, err
	}
	l.signer = signer
	return l, nil
}

// Enabled reports whether the limiter has a secret.
func (l *Limiter) Enabled() bool {
	return l.signer != nil
}

// Window returns the cooldown window.
func (l *Limiter) Window() time.Duration {
	return l.window
}

// Check evaluates the token from the client's cookie at time now.
func (l *Limiter) Check(cookieValue string, now time.Time) (Decision, error) {
	if !l.Enabled() {
		return Decision{State: Allowed}, nil
	}

	nowMs := now.UnixMilli()
	if cookieValue != "" {
		if p, ok := l.signer.Verify(cookieValue); ok {
			elapsed := time.Duration(nowMs-p.IssuedAtMs) * time.Millisecond
			if elapsed < l.window {
				return Decision{State: Limited, RetryAfterSeconds: retryAfter(l.window - elapsed)}, nil
			}
		}
	}

	tok, err := l.signer.Sign(token.Payload{IssuedAtMs: nowMs})
	if err != nil {
		return Decision{}, err
	}
	return Decision{State: Allowed, Token: tok, maxAge: l.maxAge}, nil
}

// retryAfter rounds remaining up to whole seconds.
func retryAfter(remaining time.Duration) int {
	secs := int(remaining / time.Second)
	if remaining%time.Second != 0 {
		secs++
	}
	return secs
}
