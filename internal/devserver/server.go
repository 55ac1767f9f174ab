package devserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	SubmitPath = "/api/submit-request"
	IntelPath  = "/api/market-intelligence"
)

// Config tunes the per-IP throttle in front of the handlers.
type Config struct {
	RatePerSec float64
	Burst      int
}

func (c Config) withDefaults() Config {
	if c.RatePerSec <= 0 {
		c.RatePerSec = 5
	}
	if c.Burst <= 0 {
		c.Burst = 20
	}
	return c
}

// NewRouter mounts submit and intel at their production paths.
func NewRouter(submit, intel LambdaFunc, cfg Config, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	limiter := newIPLimiter(cfg.RatePerSec, cfg.Burst)

	mux := chi.NewRouter()
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Recoverer)
	mux.Use(withLogging(logger))

	mux.Group(func(r chi.Router) {
		r.Use(limiter.LimitRate)
		r.Handle(SubmitPath, Adapt(submit, logger))
		r.Handle(IntelPath, Adapt(intel, logger))
	})
	return mux
}

func withLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}
