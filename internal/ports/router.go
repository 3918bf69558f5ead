package ports

import (
	"context"

	"github.com/alejandrodnm/mintbot/internal/domain"
)

// RouteProvider quotes and builds swaps against the route aggregator.
type RouteProvider interface {
	// Quote returns an executable route for swapping amountRaw of inputMint
	// into outputMint, bounded by slippageBps. Fails if no viable route exists.
	Quote(ctx context.Context, inputMint, outputMint string, amountRaw uint64, slippageBps int) (domain.Route, error)

	// BuildSwap turns a quoted route into an unsigned transaction payload
	// for the given wallet public key.
	BuildSwap(ctx context.Context, route domain.Route, wallet string) ([]byte, error)
}
