// Package feed maintains the rolling per-mint trade history fed by the
// momentum tick source, and derives windowed entry metrics from it.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alejandrodnm/mintbot/internal/domain"
	"github.com/alejandrodnm/mintbot/internal/obs"
	"github.com/alejandrodnm/mintbot/internal/ports"
)

// Aggregator tracks one FeedBucket per observed mint. Buckets are created
// on the first tick for a mint and bounded by the retention window; they
// are never explicitly destroyed.
type Aggregator struct {
	source    ports.TickSource
	retention time.Duration

	mu      sync.RWMutex
	buckets map[string]*domain.FeedBucket
}

// NewAggregator creates an Aggregator over the given tick source.
func NewAggregator(source ports.TickSource, retention time.Duration) *Aggregator {
	if retention <= 0 {
		retention = 5 * time.Minute
	}
	return &Aggregator{
		source:    source,
		retention: retention,
		buckets:   make(map[string]*domain.FeedBucket),
	}
}

// Run consumes the tick source until ctx is cancelled or the source closes.
func (a *Aggregator) Run(ctx context.Context) error {
	ticks, err := a.source.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("feed.Run: subscribe: %w", err)
	}

	slog.Info("feed aggregator starting", "retention", a.retention)
	for {
		select {
		case <-ctx.Done():
			slog.Info("feed aggregator stopped")
			return nil
		case tick, ok := <-ticks:
			if !ok {
				slog.Warn("feed aggregator: tick source closed")
				return nil
			}
			a.Record(tick)
		}
	}
}

// Record ingests one tick into the mint's bucket.
func (a *Aggregator) Record(tick domain.TradeTick) {
	if tick.Mint == "" {
		return
	}
	if tick.At.IsZero() {
		tick.At = time.Now().UTC()
	}

	a.mu.Lock()
	bucket, ok := a.buckets[tick.Mint]
	if !ok {
		bucket = &domain.FeedBucket{}
		a.buckets[tick.Mint] = bucket
	}
	bucket.Record(tick, a.retention)
	a.mu.Unlock()

	obs.FeedTick(string(tick.Side))
}

// Tracked returns the mints with at least one recorded trade.
func (a *Aggregator) Tracked() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	mints := make([]string, 0, len(a.buckets))
	for mint := range a.buckets {
		mints = append(mints, mint)
	}
	return mints
}

// Metrics computes the windowed metrics for one mint at the given horizons.
// Windows are sliding, measured back from now, recomputed on every call.
func (a *Aggregator) Metrics(mint string, windows []time.Duration) []domain.WindowMetrics {
	a.mu.RLock()
	defer a.mu.RUnlock()

	bucket, ok := a.buckets[mint]
	if !ok {
		return nil
	}

	now := time.Now().UTC()
	metrics := make([]domain.WindowMetrics, 0, len(windows))
	for _, w := range windows {
		metrics = append(metrics, bucket.MetricsFor(now, w))
	}
	return metrics
}

// Candidates implements ports.CandidateSource over the tracked mints.
func (a *Aggregator) Candidates(_ context.Context, windows []time.Duration) ([]domain.Candidate, error) {
	var cands []domain.Candidate
	for _, mint := range a.Tracked() {
		metrics := a.Metrics(mint, windows)
		if len(metrics) == 0 {
			continue
		}
		cands = append(cands, domain.Candidate{Mint: mint, Metrics: metrics})
	}
	return cands, nil
}
