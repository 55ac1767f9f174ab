package market

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"supplyfinder/internal/domain"
)

const DefaultFetchTimeout = 8 * time.Second

// Aggregator resolves the three signal chains concurrently into a Snapshot.
type Aggregator struct {
	chains  Chains
	timeout time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

type Option func(*Aggregator)

// WithFetchTimeout bounds every single source attempt.
func WithFetchTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.timeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

func NewAggregator(chains Chains, opts ...Option) *Aggregator {
	a := &Aggregator{
		chains:  chains,
		timeout: DefaultFetchTimeout,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate always fills every signal, either live or from the chain fallback.
// It fails only when a chain panics or ctx ends before the chains finish.
func (a *Aggregator) Aggregate(ctx context.Context) (domain.Snapshot, error) {
	var (
		snap domain.Snapshot
		g    errgroup.Group
	)
	g.Go(a.run(ctx, a.chains.Lithium, &snap.LithiumPrice, &snap.Sources.Lithium))
	g.Go(a.run(ctx, a.chains.Congestion, &snap.ShippingDelay, &snap.Sources.Congestion))
	g.Go(a.run(ctx, a.chains.Policy, &snap.PolicyAlert, &snap.Sources.Policy))
	if err := g.Wait(); err != nil {
		return domain.Snapshot{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.Snapshot{}, fmt.Errorf("market: aggregate: %w", err)
	}
	snap.FetchedAt = a.now()
	return snap, nil
}

func (a *Aggregator) run(ctx context.Context, c Chain, sig *domain.Signal, source *string) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("market: %s chain panicked: %v", c.Signal, r)
			}
		}()
		*sig, *source = a.resolve(ctx, c)
		return nil
	}
}

// resolve walks the chain in order and stops at the first source that answers.
func (a *Aggregator) resolve(ctx context.Context, c Chain) (domain.Signal, string) {
	for _, src := range c.Sources {
		if !src.Enabled || src.Fetch == nil {
			continue
		}
		sig, err := a.attempt(ctx, src)
		if err != nil {
			a.logger.Warn("market source failed",
				"signal", c.Signal,
				"source", src.Name,
				"err", err,
			)
			continue
		}
		return sig, src.Name
	}
	return c.Fallback, domain.SourceFallback
}

func (a *Aggregator) attempt(ctx context.Context, src Source) (domain.Signal, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return src.Fetch(ctx)
}
