// Package autobuy scores feed-tracked mints against the configured gates
// and opens autonomous positions under capacity and cooldown constraints.
package autobuy

import (
	"context"
	"log/slog"
	"time"

	"github.com/alejandrodnm/mintbot/internal/domain"
	"github.com/alejandrodnm/mintbot/internal/obs"
	"github.com/alejandrodnm/mintbot/internal/ports"
)

// BuyEngine is the slice of the execution engine the selector needs.
type BuyEngine interface {
	BuyByNative(ctx context.Context, mint string, targetSOL float64, slippageBps int) (domain.BuyResult, error)
}

// Config holds the selector's fixed (non-hot-editable) parameters.
type Config struct {
	Interval      time.Duration
	SlippageBps   int
	TakeProfitPct float64
	StopLossPct   float64
}

// Selector is the timer-driven autonomous entry loop.
type Selector struct {
	state    *State
	source   ports.CandidateSource
	buyer    BuyEngine
	store    ports.PositionStore
	notifier ports.Notifier
	cfg      Config
}

// New creates a Selector with all dependencies injected.
func New(
	state *State,
	source ports.CandidateSource,
	buyer BuyEngine,
	store ports.PositionStore,
	notifier ports.Notifier,
	cfg Config,
) *Selector {
	return &Selector{
		state:    state,
		source:   source,
		buyer:    buyer,
		store:    store,
		notifier: notifier,
		cfg:      cfg,
	}
}

// Run executes selection passes on the configured interval until ctx is
// cancelled.
func (s *Selector) Run(ctx context.Context) error {
	slog.Info("selector starting", "interval", s.cfg.Interval)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("selector stopped")
			return nil
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs one selection pass: gate → score → rank → attempt.
// At most one successful entry per pass; the global cooldown guarantees at
// most one successful entry per cooldown window.
func (s *Selector) RunOnce(ctx context.Context) {
	ap := s.state.Get()
	if !ap.Enabled {
		return
	}

	now := time.Now().UTC()
	if ap.CooldownActive(now) {
		slog.Debug("selector: global cooldown active",
			"since_last_entry", now.Sub(ap.LastEntryAt))
		return
	}

	positions, err := s.store.All(ctx)
	if err != nil {
		slog.Error("selector: list positions", "err", err)
		return
	}
	capacity := ap.MaxOpenPositions - len(positions)
	if capacity <= 0 {
		slog.Debug("selector: no open-position capacity",
			"open", len(positions), "max", ap.MaxOpenPositions)
		return
	}

	held := make(map[string]bool, len(positions))
	for _, pos := range positions {
		held[pos.Mint] = true
	}

	windows := make([]time.Duration, 0, len(ap.Gates))
	for _, gate := range ap.Gates {
		windows = append(windows, gate.Window)
	}

	cands, err := s.source.Candidates(ctx, windows)
	if err != nil {
		slog.Warn("selector: candidate source failed", "err", err)
		return
	}

	passing := make([]domain.Candidate, 0, len(cands))
	for _, cand := range cands {
		switch {
		case ap.Blacklisted(cand.Mint):
		case held[cand.Mint]:
		case ap.RetryActive(cand.Mint, now):
		case !cand.PassesGates(ap.Gates):
		default:
			passing = append(passing, cand)
		}
	}
	if len(passing) == 0 {
		return
	}

	ranked := domain.RankCandidates(passing, ap.Gates)
	if len(ranked) > capacity {
		ranked = ranked[:capacity]
	}

	slog.Info("selector: candidates pass gates",
		"tracked", len(cands), "passing", len(passing), "attempting", len(ranked))

	for _, cand := range ranked {
		if s.attempt(ctx, cand, ap) {
			return // only one successful entry per pass
		}
	}
}

// attempt opens a position for one candidate. The attempt timestamp is
// recorded before buying so failures still respect the per-mint retry
// cooldown; the global cooldown is set only on success.
func (s *Selector) attempt(ctx context.Context, cand domain.Candidate, ap domain.AutopilotConfig) bool {
	now := time.Now().UTC()
	if err := s.state.Update(ctx, func(cfg *domain.AutopilotConfig) {
		cfg.LastAttempted[cand.Mint] = now
	}); err != nil {
		slog.Error("selector: record attempt", "mint", cand.Mint, "err", err)
		return false
	}

	slog.Info("selector: attempting entry",
		"mint", cand.Mint, "score", cand.Score, "budget_sol", ap.BudgetSOL)

	res, err := s.buyer.BuyByNative(ctx, cand.Mint, ap.BudgetSOL, s.cfg.SlippageBps)
	if err != nil && res.ReceivedRaw == 0 {
		slog.Warn("selector: entry failed", "mint", cand.Mint, "err", err)
		return false
	}
	if err != nil {
		// Partial fill alongside an error still opened exposure; track it.
		slog.Warn("selector: entry partially filled", "mint", cand.Mint, "err", err)
	}

	pos := domain.Position{
		Mint:             cand.Mint,
		EntryCostSOL:     res.SpentSOL,
		EntryReceivedRaw: res.ReceivedRaw,
		TakeProfitPct:    s.cfg.TakeProfitPct,
		StopLossPct:      s.cfg.StopLossPct,
		OpenedAt:         time.Now().UTC(),
	}
	if err := s.store.Put(ctx, pos); err != nil {
		slog.Error("selector: persist position", "mint", cand.Mint, "err", err)
		return false
	}

	if err := s.state.Update(ctx, func(cfg *domain.AutopilotConfig) {
		cfg.LastEntryAt = time.Now().UTC()
	}); err != nil {
		slog.Error("selector: record entry time", "err", err)
	}

	s.notifier.NotifyEntry(ctx, pos, "autopilot")
	obs.EntryOpened("autopilot")
	return true
}
