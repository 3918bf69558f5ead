package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/mintbot/internal/domain"
)

// CandidateSource produces the current set of autonomous-entry candidates
// with metrics for the requested horizons. Implemented by the momentum
// feed aggregator and by the liquidity screener adapter.
type CandidateSource interface {
	Candidates(ctx context.Context, windows []time.Duration) ([]domain.Candidate, error)
}

// TickSource delivers momentum feed trade ticks for newly observed tokens.
type TickSource interface {
	// Subscribe starts the feed and returns the tick channel. The channel
	// closes when ctx is cancelled or the connection is lost for good.
	Subscribe(ctx context.Context) (<-chan domain.TradeTick, error)
}
