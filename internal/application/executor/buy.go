package executor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/mintbot/internal/domain"
	"github.com/alejandrodnm/mintbot/internal/obs"
	"github.com/google/uuid"
)

// BuyByNative realizes a buy of targetSOL worth of mint as a sequence of
// shards. Shards are sized as targetSOL/MaxShards, floored to MinShardSOL,
// and executed strictly in sequence with the configured delay.
//
// Impact handling per candidate shard:
//   - impact > hard cap at minimum size: the whole operation aborts with
//     ErrImpactTooHigh (partial fills from earlier shards stay in the result);
//   - impact > hard cap above minimum size: the remaining amount is halved
//     and the attempt discarded entirely, no partial credit;
//   - impact > soft target above minimum size: a half-size route is probed
//     and executed instead if its impact is no worse, the other half staying
//     in the remainder;
//   - otherwise the shard executes as proposed.
//
// Returns ErrZeroOutput if no shard ever executed. Total spent never exceeds
// targetSOL by more than one shard's rounding slack.
func (e *Engine) BuyByNative(ctx context.Context, mint string, targetSOL float64, slippageBps int) (domain.BuyResult, error) {
	var res domain.BuyResult
	if targetSOL <= 0 {
		return res, fmt.Errorf("executor.BuyByNative: target must be positive, got %f", targetSOL)
	}

	opID := uuid.New().String()[:8]
	slippage := e.clampSlippage(slippageBps)

	shardSOL := targetSOL / float64(e.cfg.MaxShards)
	if shardSOL < e.cfg.MinShardSOL {
		shardSOL = e.cfg.MinShardSOL
	}

	slog.Info("buy: starting sharded execution",
		"op", opID, "mint", mint,
		"target_sol", targetSOL, "shard_sol", shardSOL,
		"max_shards", e.cfg.MaxShards, "slippage_bps", slippage,
	)

	remaining := targetSOL
	for remaining > dustSOL && res.Shards < e.cfg.MaxShards {
		size := shardSOL
		if size > remaining {
			size = remaining
		}
		lamports := uint64(size * domain.LamportsPerSOL)

		route, err := e.routes.Quote(ctx, domain.WSOLMint, mint, lamports, slippage)
		if err != nil {
			return e.finishBuy(res, opID, fmt.Errorf("executor.BuyByNative: quote shard %d: %w", res.Shards+1, err))
		}

		atMinimum := size <= e.cfg.MinShardSOL+dustSOL

		if route.PriceImpact > e.cfg.HardImpactPct {
			if atMinimum {
				return e.finishBuy(res, opID, fmt.Errorf("executor.BuyByNative: %.2f%% impact at minimum shard: %w",
					route.PriceImpact, domain.ErrImpactTooHigh))
			}
			// Discard this attempt entirely and retry at half the remainder.
			remaining /= 2
			if remaining < e.cfg.MinShardSOL {
				remaining = e.cfg.MinShardSOL
			}
			if shardSOL > remaining {
				shardSOL = remaining
			}
			slog.Warn("buy: impact above hard cap, halving remainder",
				"op", opID, "impact_pct", route.PriceImpact, "remaining_sol", remaining)
			continue
		}

		if route.PriceImpact > e.cfg.SoftImpactPct && !atMinimum {
			probe, perr := e.routes.Quote(ctx, domain.WSOLMint, mint, lamports/2, slippage)
			if perr == nil && probe.PriceImpact <= route.PriceImpact {
				slog.Debug("buy: soft target exceeded, taking half-size shard",
					"op", opID, "impact_pct", route.PriceImpact, "half_impact_pct", probe.PriceImpact)
				route = probe
				size /= 2
			}
		}

		signature, err := e.executeRoute(ctx, route)
		if err != nil {
			return e.finishBuy(res, opID, fmt.Errorf("executor.BuyByNative: shard %d: %w", res.Shards+1, err))
		}

		spent := float64(route.InAmountRaw) / domain.LamportsPerSOL
		res.ReceivedRaw += route.OutAmountRaw
		res.SpentSOL += spent
		res.Shards++
		remaining -= size
		obs.ShardExecuted("buy")

		slog.Info("buy: shard confirmed",
			"op", opID, "shard", res.Shards, "sig", signature,
			"spent_sol", spent, "received_raw", route.OutAmountRaw,
			"impact_pct", route.PriceImpact, "remaining_sol", remaining,
		)

		if remaining > dustSOL && res.Shards < e.cfg.MaxShards {
			if err := e.wait(ctx); err != nil {
				return e.finishBuy(res, opID, fmt.Errorf("executor.BuyByNative: %w", err))
			}
		}
	}

	return e.finishBuy(res, opID, nil)
}

// finishBuy applies the zero-output invariant and logs the outcome.
// The accumulated result is returned even on failure so callers can account
// for shards that did execute.
func (e *Engine) finishBuy(res domain.BuyResult, opID string, err error) (domain.BuyResult, error) {
	if err == nil && res.ReceivedRaw == 0 {
		err = fmt.Errorf("executor.BuyByNative: %w", domain.ErrZeroOutput)
	}
	if err != nil {
		slog.Warn("buy: finished with error",
			"op", opID, "shards", res.Shards, "spent_sol", res.SpentSOL, "err", err)
		return res, err
	}
	slog.Info("buy: complete",
		"op", opID, "shards", res.Shards,
		"spent_sol", res.SpentSOL, "received_raw", res.ReceivedRaw,
	)
	return res, nil
}
