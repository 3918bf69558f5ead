package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/mintbot/internal/domain"
	"github.com/alejandrodnm/mintbot/internal/obs"
	"github.com/alejandrodnm/mintbot/internal/ports"
)

// SellEngine is the slice of the execution engine the monitor needs.
type SellEngine interface {
	SellByRaw(ctx context.Context, mint string, rawAmount uint64, slippageBps int) (domain.SellResult, error)
}

// Config holds the monitor's polling and exit parameters.
type Config struct {
	Interval    time.Duration
	SlippageBps int

	// PartialExits enables the half-out-at-TP policy: first take-profit hit
	// sells half and moves the stop to breakeven. Disabled, a take-profit
	// hit always performs a full exit on first trigger.
	PartialExits bool
}

// Monitor re-prices every open position on a fixed interval and drives the
// take-profit / stop-loss state machine: OPEN → PARTIAL (first TP hit with
// partials enabled) → CLOSED, or OPEN → CLOSED directly via stop-loss.
type Monitor struct {
	routes   ports.RouteProvider
	venue    ports.Venue
	seller   SellEngine
	store    ports.PositionStore
	notifier ports.Notifier
	wallet   string
	cfg      Config
}

// New creates a Monitor with all dependencies injected.
func New(
	routes ports.RouteProvider,
	venue ports.Venue,
	seller SellEngine,
	store ports.PositionStore,
	notifier ports.Notifier,
	wallet string,
	cfg Config,
) *Monitor {
	return &Monitor{
		routes:   routes,
		venue:    venue,
		seller:   seller,
		store:    store,
		notifier: notifier,
		wallet:   wallet,
		cfg:      cfg,
	}
}

// Run evaluates positions on the configured interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	slog.Info("monitor starting",
		"interval", m.cfg.Interval,
		"partial_exits", m.cfg.PartialExits,
	)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("monitor stopped")
			return nil
		case <-ticker.C:
			m.RunOnce(ctx)
		}
	}
}

// RunOnce performs one evaluation pass over every open position. Errors on
// one position are logged and never interrupt the rest of the pass.
func (m *Monitor) RunOnce(ctx context.Context) {
	positions, err := m.store.All(ctx)
	if err != nil {
		slog.Error("monitor: list positions", "err", err)
		return
	}
	obs.SetOpenPositions(len(positions))

	for _, pos := range positions {
		if err := m.evaluate(ctx, pos); err != nil {
			slog.Warn("monitor: position evaluation failed",
				"mint", pos.Mint, "err", err)
		}
	}
}

// evaluate runs the state machine for one position.
func (m *Monitor) evaluate(ctx context.Context, pos domain.Position) error {
	if !pos.Monitorable() {
		return fmt.Errorf("monitor.evaluate: position %s has zero entry cost", pos.Mint)
	}

	balance, err := m.venue.TokenBalance(ctx, m.wallet, pos.Mint)
	if err != nil {
		return fmt.Errorf("monitor.evaluate: balance %s: %w", pos.Mint, err)
	}

	// Liquidated externally: remove without attempting a sell.
	if balance == 0 {
		if err := m.store.Delete(ctx, pos.Mint); err != nil {
			return fmt.Errorf("monitor.evaluate: delete %s: %w", pos.Mint, err)
		}
		m.notifier.NotifyExit(ctx, pos, "zero_balance", 0, 0)
		obs.ExitClosed("zero_balance")
		slog.Info("monitor: position gone on venue, removed", "mint", pos.Mint)
		return nil
	}

	// Re-price: sell-direction route for the full held balance, no execution.
	route, err := m.routes.Quote(ctx, pos.Mint, domain.WSOLMint, balance, m.cfg.SlippageBps)
	if err != nil {
		return fmt.Errorf("monitor.evaluate: reprice %s: %w", pos.Mint, err)
	}
	value := float64(route.OutAmountRaw) / domain.LamportsPerSOL
	pnl := pos.PnLPct(value)

	now := time.Now().UTC()
	pos.LastEvaluatedAt = &now

	slog.Debug("monitor: evaluated",
		"mint", pos.Mint, "value_sol", value, "pnl_pct", pnl,
		"tp", pos.TakeProfitPct, "sl", pos.StopLossPct,
	)

	switch {
	case pnl <= -pos.StopLossPct:
		return m.fullExit(ctx, pos, balance, pnl, "stop_loss")

	case pnl >= pos.TakeProfitPct:
		if m.cfg.PartialExits && !pos.PartialExitTaken {
			return m.partialExit(ctx, pos, balance, pnl)
		}
		return m.fullExit(ctx, pos, balance, pnl, "take_profit")

	default:
		if err := m.store.Put(ctx, pos); err != nil {
			return fmt.Errorf("monitor.evaluate: persist %s: %w", pos.Mint, err)
		}
		return nil
	}
}

// partialExit sells half the held balance, moves the stop to breakeven and
// keeps the position open.
func (m *Monitor) partialExit(ctx context.Context, pos domain.Position, balance uint64, pnl float64) error {
	res, err := m.seller.SellByRaw(ctx, pos.Mint, balance/2, m.cfg.SlippageBps)
	if err != nil {
		return fmt.Errorf("monitor.partialExit: %s: %w", pos.Mint, err)
	}

	pos.StopLossPct = 0 // breakeven
	pos.PartialExitTaken = true
	if err := m.store.Put(ctx, pos); err != nil {
		return fmt.Errorf("monitor.partialExit: persist %s: %w", pos.Mint, err)
	}

	m.notifier.NotifyExit(ctx, pos, "partial_take_profit", pnl, res.ReceivedSOL)
	obs.ExitClosed("partial_take_profit")
	slog.Info("monitor: partial take-profit",
		"mint", pos.Mint, "pnl_pct", pnl, "received_sol", res.ReceivedSOL)
	return nil
}

// fullExit sells the entire held balance and removes the position.
func (m *Monitor) fullExit(ctx context.Context, pos domain.Position, balance uint64, pnl float64, reason string) error {
	res, err := m.seller.SellByRaw(ctx, pos.Mint, balance, m.cfg.SlippageBps)
	if err != nil {
		return fmt.Errorf("monitor.fullExit: %s: %w", pos.Mint, err)
	}

	if err := m.store.Delete(ctx, pos.Mint); err != nil {
		return fmt.Errorf("monitor.fullExit: delete %s: %w", pos.Mint, err)
	}

	m.notifier.NotifyExit(ctx, pos, reason, pnl, res.ReceivedSOL)
	obs.ExitClosed(reason)
	slog.Info("monitor: position closed",
		"mint", pos.Mint, "reason", reason, "pnl_pct", pnl, "received_sol", res.ReceivedSOL)
	return nil
}
