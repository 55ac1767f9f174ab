package usecase

import (
	"context"
	"errors"
	"log/slog"

	"supplyfinder/internal/domain"
)

type SnapshotAggregator interface {
	Aggregate(ctx context.Context) (domain.Snapshot, error)
}

type SnapshotCache interface {
	Get() (domain.Snapshot, bool)
	Stale() (domain.Snapshot, bool)
	Put(s domain.Snapshot)
}

// IntelService serves market snapshots from cache, refreshing on expiry.
type IntelService struct {
	aggregator SnapshotAggregator
	cache      SnapshotCache
	logger     *slog.Logger
}

func NewIntelService(a SnapshotAggregator, c SnapshotCache, logger *slog.Logger) (*IntelService, error) {
	if a == nil {
		return nil, errors.New("usecase: aggregator must not be nil")
	}
	if c == nil {
		return nil, errors.New("usecase: cache must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IntelService{aggregator: a, cache: c, logger: logger}, nil
}

// Snapshot returns a fresh cached snapshot, or aggregates a new one. When
// aggregation fails an expired snapshot is served instead; only a failure with
// an empty cache is returned.
func (s *IntelService) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	if snap, ok := s.cache.Get(); ok {
		return snap, nil
	}

	snap, err := s.aggregator.Aggregate(ctx)
	if err != nil {
		if stale, ok := s.cache.Stale(); ok {
			s.logger.Warn("serving stale market snapshot", "err", err, "fetchedAt", stale.FetchedAt)
			return stale, nil
		}
		return domain.Snapshot{}, newError(ErrorInternal, "aggregation_failed", err)
	}

	s.cache.Put(snap)
	s.logger.Info("market snapshot refreshed",
		"lithium", snap.Sources.Lithium,
		"congestion", snap.Sources.Congestion,
		"policy", snap.Sources.Policy,
	)
	return snap, nil
}
