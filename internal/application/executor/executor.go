package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/alejandrodnm/mintbot/internal/domain"
	"github.com/alejandrodnm/mintbot/internal/ports"
)

// dustSOL is the threshold below which a remaining buy target is considered
// fully consumed (sub-lamport rounding noise).
const dustSOL = 1e-9

// Config holds the sharding and impact parameters of the engine.
type Config struct {
	MaxShards      int
	MinShardSOL    float64
	ExitShards     int
	ShardDelay     time.Duration
	HardImpactPct  float64
	SoftImpactPct  float64
	MaxSlippageBps int
}

// DefaultConfig returns conservative production parameters.
func DefaultConfig() Config {
	return Config{
		MaxShards:      4,
		MinShardSOL:    0.05,
		ExitShards:     3,
		ShardDelay:     800 * time.Millisecond,
		HardImpactPct:  8.0,
		SoftImpactPct:  3.0,
		MaxSlippageBps: 1_500,
	}
}

// Engine realizes a target buy or sell as one or more shards, applying
// impact-based sizing on buys and slippage bounds on every quote.
//
// Results are always returned alongside the error: a shard sequence that
// fails midway still reports what it executed, so callers can account for
// spent/received amounts before propagating the failure.
type Engine struct {
	routes ports.RouteProvider
	venue  ports.Venue
	signer ports.Signer
	cfg    Config
}

// New creates an execution engine with all dependencies injected.
func New(routes ports.RouteProvider, venue ports.Venue, signer ports.Signer, cfg Config) *Engine {
	if cfg.MaxShards <= 0 {
		cfg.MaxShards = 4
	}
	if cfg.ExitShards <= 0 {
		cfg.ExitShards = 3
	}
	return &Engine{routes: routes, venue: venue, signer: signer, cfg: cfg}
}

// clampSlippage bounds the caller-specified slippage by the hard ceiling.
func (e *Engine) clampSlippage(bps int) int {
	if bps <= 0 || bps > e.cfg.MaxSlippageBps {
		return e.cfg.MaxSlippageBps
	}
	return bps
}

// executeRoute runs one shard's network round trip: build, sign, submit,
// confirm. Submission failures are never retried within a shard.
func (e *Engine) executeRoute(ctx context.Context, route domain.Route) (string, error) {
	unsigned, err := e.routes.BuildSwap(ctx, route, e.signer.PublicKey())
	if err != nil {
		return "", fmt.Errorf("build swap: %w", err)
	}

	signed, err := e.signer.Sign(unsigned)
	if err != nil {
		return "", fmt.Errorf("sign: %w", err)
	}

	signature, err := e.venue.SubmitAndConfirm(ctx, signed)
	if err != nil {
		return "", fmt.Errorf("submit: %w", err)
	}
	return signature, nil
}

// wait sleeps the inter-shard delay, respecting context cancellation.
// The delay avoids oversaturating the venue and lets intervening price
// moves show up in the next quote.
func (e *Engine) wait(ctx context.Context) error {
	if e.cfg.ShardDelay <= 0 {
		return nil
	}
	select {
	case <-time.After(e.cfg.ShardDelay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
