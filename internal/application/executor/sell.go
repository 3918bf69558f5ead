package executor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/mintbot/internal/domain"
	"github.com/alejandrodnm/mintbot/internal/obs"
	"github.com/google/uuid"
)

// SellByRaw sells rawAmount of mint back into SOL across a fixed number of
// exit shards. Each shard takes the remaining balance divided evenly over
// the remaining slots; the last shard absorbs rounding. Unlike buys, sells
// never probe or resize on impact — the shard count alone is the mitigation.
//
// Returns ErrNothingToSell on a zero amount. The result reports what was
// sold even when a later shard fails.
func (e *Engine) SellByRaw(ctx context.Context, mint string, rawAmount uint64, slippageBps int) (domain.SellResult, error) {
	var res domain.SellResult
	if rawAmount == 0 {
		return res, fmt.Errorf("executor.SellByRaw: %w", domain.ErrNothingToSell)
	}

	opID := uuid.New().String()[:8]
	slippage := e.clampSlippage(slippageBps)
	slots := e.cfg.ExitShards

	slog.Info("sell: starting sharded exit",
		"op", opID, "mint", mint,
		"raw_amount", rawAmount, "exit_shards", slots, "slippage_bps", slippage,
	)

	remaining := rawAmount
	for slot := 0; slot < slots && remaining > 0; slot++ {
		size := remaining / uint64(slots-slot)
		if slot == slots-1 || size == 0 {
			// Last slot, or a balance too small to split further, takes it all.
			size = remaining
		}

		route, err := e.routes.Quote(ctx, mint, domain.WSOLMint, size, slippage)
		if err != nil {
			return e.finishSell(res, opID, fmt.Errorf("executor.SellByRaw: quote shard %d: %w", res.Shards+1, err))
		}

		signature, err := e.executeRoute(ctx, route)
		if err != nil {
			return e.finishSell(res, opID, fmt.Errorf("executor.SellByRaw: shard %d: %w", res.Shards+1, err))
		}

		received := float64(route.OutAmountRaw) / domain.LamportsPerSOL
		res.ReceivedSOL += received
		res.Shards++
		remaining -= size
		obs.ShardExecuted("sell")

		slog.Info("sell: shard confirmed",
			"op", opID, "shard", res.Shards, "sig", signature,
			"sold_raw", size, "received_sol", received,
			"impact_pct", route.PriceImpact, "remaining_raw", remaining,
		)

		if remaining > 0 {
			if err := e.wait(ctx); err != nil {
				return e.finishSell(res, opID, fmt.Errorf("executor.SellByRaw: %w", err))
			}
		}
	}

	return e.finishSell(res, opID, nil)
}

func (e *Engine) finishSell(res domain.SellResult, opID string, err error) (domain.SellResult, error) {
	if err != nil {
		slog.Warn("sell: finished with error",
			"op", opID, "shards", res.Shards, "received_sol", res.ReceivedSOL, "err", err)
		return res, err
	}
	slog.Info("sell: complete",
		"op", opID, "shards", res.Shards, "received_sol", res.ReceivedSOL,
	)
	return res, nil
}
