package control

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/mintbot/internal/adapters/notify"
	"github.com/alejandrodnm/mintbot/internal/application/autobuy"
	"github.com/alejandrodnm/mintbot/internal/domain"
	"github.com/alejandrodnm/mintbot/internal/obs"
	"github.com/alejandrodnm/mintbot/internal/ports"
)

const helpText = `commands:
  balance [mint]              SOL balance, or token balance for mint
  buy <mint> <sol>            sharded buy of <sol> SOL worth
  sell <mint> [pct]           sell pct (default 100) of held balance
  snipe <mint> <sol>          immediate entry at the slippage ceiling
  status                      open positions
  cancel <mint>               stop tracking without selling
  autopilot on|off|status     autonomous entries
  filter set <field> <value>  budget | max_positions | cooldown_s | retry_s
                              | gate<N>_buys | gate<N>_change
  blacklist add|remove|show   permanent exclusions`

// TradeEngine is the slice of the execution engine the dispatcher needs.
type TradeEngine interface {
	BuyByNative(ctx context.Context, mint string, targetSOL float64, slippageBps int) (domain.BuyResult, error)
	SellByRaw(ctx context.Context, mint string, rawAmount uint64, slippageBps int) (domain.SellResult, error)
}

// Config holds the dispatcher's trade parameters.
type Config struct {
	SlippageBps      int
	SnipeSlippageBps int
	TakeProfitPct    float64
	StopLossPct      float64
}

// Dispatcher executes parsed commands against the core and renders
// plain-text replies. Failures are replies, not errors: the operator
// always gets text back.
type Dispatcher struct {
	engine TradeEngine
	venue  ports.Venue
	wallet string
	store  ports.PositionStore
	state  *autobuy.State
	notif  ports.Notifier
	cfg    Config
}

// NewDispatcher creates a dispatcher with all dependencies injected.
func NewDispatcher(
	engine TradeEngine,
	venue ports.Venue,
	wallet string,
	store ports.PositionStore,
	state *autobuy.State,
	notif ports.Notifier,
	cfg Config,
) *Dispatcher {
	return &Dispatcher{
		engine: engine,
		venue:  venue,
		wallet: wallet,
		store:  store,
		state:  state,
		notif:  notif,
		cfg:    cfg,
	}
}

// Handle parses and executes one command line, returning the text reply.
func (d *Dispatcher) Handle(ctx context.Context, line string) string {
	cmd, err := Parse(line)
	if err != nil {
		return "error: " + err.Error()
	}

	switch c := cmd.(type) {
	case BalanceCmd:
		return d.handleBalance(ctx, c)
	case BuyCmd:
		return d.handleBuy(ctx, c.Mint, c.AmountSOL, d.cfg.SlippageBps, "manual")
	case SellCmd:
		return d.handleSell(ctx, c)
	case SnipeCmd:
		return d.handleBuy(ctx, c.Mint, c.AmountSOL, d.cfg.SnipeSlippageBps, "snipe")
	case StatusCmd:
		return d.handleStatus(ctx)
	case CancelCmd:
		return d.handleCancel(ctx, c)
	case AutopilotCmd:
		return d.handleAutopilot(ctx, c)
	case FilterSetCmd:
		return d.handleFilterSet(ctx, c)
	case BlacklistCmd:
		return d.handleBlacklist(ctx, c)
	case HelpCmd:
		return helpText
	}
	return "error: unhandled command"
}

func (d *Dispatcher) handleBalance(ctx context.Context, cmd BalanceCmd) string {
	if cmd.Mint == "" {
		sol, err := d.venue.SOLBalance(ctx, d.wallet)
		if err != nil {
			return "error: balance: " + err.Error()
		}
		return fmt.Sprintf("SOL balance: %.6f", sol)
	}

	raw, err := d.venue.TokenBalance(ctx, d.wallet, cmd.Mint)
	if err != nil {
		return "error: balance: " + err.Error()
	}
	return fmt.Sprintf("%s balance: %d raw", cmd.Mint, raw)
}

// handleBuy covers both buy and snipe; they differ only in slippage bound
// and the announced source.
func (d *Dispatcher) handleBuy(ctx context.Context, mint string, amountSOL float64, slippageBps int, source string) string {
	res, err := d.engine.BuyByNative(ctx, mint, amountSOL, slippageBps)
	if err != nil && res.ReceivedRaw == 0 {
		return "error: buy: " + err.Error()
	}

	pos := domain.Position{
		Mint:             mint,
		EntryCostSOL:     res.SpentSOL,
		EntryReceivedRaw: res.ReceivedRaw,
		TakeProfitPct:    d.cfg.TakeProfitPct,
		StopLossPct:      d.cfg.StopLossPct,
		OpenedAt:         time.Now().UTC(),
	}
	if perr := d.store.Put(ctx, pos); perr != nil {
		slog.Error("control: persist position", "mint", mint, "err", perr)
		return fmt.Sprintf("bought %d raw for %.4f SOL but FAILED to track position: %v",
			res.ReceivedRaw, res.SpentSOL, perr)
	}

	d.notif.NotifyEntry(ctx, pos, source)
	obs.EntryOpened(source)

	reply := fmt.Sprintf("bought %d raw for %.4f SOL in %d shard(s), tracking with TP %.1f%% / SL %.1f%%",
		res.ReceivedRaw, res.SpentSOL, res.Shards, pos.TakeProfitPct, pos.StopLossPct)
	if err != nil {
		reply += fmt.Sprintf(" (partial: %v)", err)
	}
	return reply
}

func (d *Dispatcher) handleSell(ctx context.Context, cmd SellCmd) string {
	balance, err := d.venue.TokenBalance(ctx, d.wallet, cmd.Mint)
	if err != nil {
		return "error: sell: balance: " + err.Error()
	}
	if balance == 0 {
		return "error: sell: nothing to sell"
	}

	amount := uint64(float64(balance) * cmd.Pct / 100)
	if amount == 0 {
		amount = balance
	}

	res, err := d.engine.SellByRaw(ctx, cmd.Mint, amount, d.cfg.SlippageBps)
	if err != nil && res.Shards == 0 {
		return "error: sell: " + err.Error()
	}

	// A full sell closes the tracked position, if any.
	if cmd.Pct >= 100 && err == nil {
		if derr := d.store.Delete(ctx, cmd.Mint); derr != nil {
			slog.Error("control: delete position", "mint", cmd.Mint, "err", derr)
		}
	}

	reply := fmt.Sprintf("sold %d raw for %.4f SOL in %d shard(s)", amount, res.ReceivedSOL, res.Shards)
	if err != nil {
		reply += fmt.Sprintf(" (partial: %v)", err)
	}
	return reply
}

func (d *Dispatcher) handleStatus(ctx context.Context) string {
	positions, err := d.store.All(ctx)
	if err != nil {
		return "error: status: " + err.Error()
	}

	var sb strings.Builder
	notify.RenderPositions(&sb, positions, time.Now().UTC())
	return sb.String()
}

func (d *Dispatcher) handleCancel(ctx context.Context, cmd CancelCmd) string {
	_, found, err := d.store.Get(ctx, cmd.Mint)
	if err != nil {
		return "error: cancel: " + err.Error()
	}
	if !found {
		return fmt.Sprintf("no tracked position for %s", cmd.Mint)
	}
	if err := d.store.Delete(ctx, cmd.Mint); err != nil {
		return "error: cancel: " + err.Error()
	}
	return fmt.Sprintf("cancelled tracking for %s (balance untouched)", cmd.Mint)
}

func (d *Dispatcher) handleAutopilot(ctx context.Context, cmd AutopilotCmd) string {
	switch cmd.Action {
	case "on", "off":
		enabled := cmd.Action == "on"
		if err := d.state.Update(ctx, func(cfg *domain.AutopilotConfig) {
			cfg.Enabled = enabled
		}); err != nil {
			return "error: autopilot: " + err.Error()
		}
		return "autopilot " + cmd.Action

	case "status":
		positions, err := d.store.All(ctx)
		if err != nil {
			return "error: autopilot: " + err.Error()
		}
		var sb strings.Builder
		notify.RenderAutopilot(&sb, d.state.Get(), len(positions), time.Now().UTC())
		return sb.String()
	}
	return "error: autopilot: unknown action"
}

func (d *Dispatcher) handleFilterSet(ctx context.Context, cmd FilterSetCmd) string {
	apply, err := filterMutation(cmd.Field, cmd.Value)
	if err != nil {
		return "error: filter: " + err.Error()
	}
	if err := d.state.Update(ctx, apply); err != nil {
		return "error: filter: " + err.Error()
	}
	return fmt.Sprintf("filter %s = %s", cmd.Field, cmd.Value)
}

// filterMutation maps a field name to a validated mutation of the config.
func filterMutation(field, value string) (func(*domain.AutopilotConfig), error) {
	switch field {
	case "budget":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("budget must be a positive number, got %q", value)
		}
		return func(cfg *domain.AutopilotConfig) { cfg.BudgetSOL = v }, nil

	case "max_positions":
		v, err := strconv.Atoi(value)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("max_positions must be a positive integer, got %q", value)
		}
		return func(cfg *domain.AutopilotConfig) { cfg.MaxOpenPositions = v }, nil

	case "cooldown_s":
		v, err := strconv.Atoi(value)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("cooldown_s must be a non-negative integer, got %q", value)
		}
		return func(cfg *domain.AutopilotConfig) { cfg.Cooldown = time.Duration(v) * time.Second }, nil

	case "retry_s":
		v, err := strconv.Atoi(value)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("retry_s must be a non-negative integer, got %q", value)
		}
		return func(cfg *domain.AutopilotConfig) { cfg.RetryCooldown = time.Duration(v) * time.Second }, nil
	}

	// gate<N>_buys / gate<N>_change, N 1-based
	var idx int
	var suffix string
	if n, err := fmt.Sscanf(field, "gate%d_%s", &idx, &suffix); err == nil && n == 2 && idx >= 1 {
		switch suffix {
		case "buys":
			v, err := strconv.Atoi(value)
			if err != nil || v < 0 {
				return nil, fmt.Errorf("%s must be a non-negative integer, got %q", field, value)
			}
			return gateMutation(idx-1, func(g *domain.HorizonGate) { g.MinBuyCount = v }), nil
		case "change":
			v, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("%s must be a number, got %q", field, value)
			}
			return gateMutation(idx-1, func(g *domain.HorizonGate) { g.MinChangePct = v }), nil
		}
	}

	return nil, fmt.Errorf("unknown field %q", field)
}

// gateMutation applies fn to gate i, silently ignoring out-of-range indexes
// at apply time (the gate count may have changed since parsing).
func gateMutation(i int, fn func(*domain.HorizonGate)) func(*domain.AutopilotConfig) {
	return func(cfg *domain.AutopilotConfig) {
		if i >= 0 && i < len(cfg.Gates) {
			fn(&cfg.Gates[i])
		}
	}
}

func (d *Dispatcher) handleBlacklist(ctx context.Context, cmd BlacklistCmd) string {
	switch cmd.Action {
	case "add":
		if err := d.state.Update(ctx, func(cfg *domain.AutopilotConfig) {
			cfg.Blacklist[cmd.Mint] = true
		}); err != nil {
			return "error: blacklist: " + err.Error()
		}
		return fmt.Sprintf("blacklisted %s", cmd.Mint)

	case "remove":
		if err := d.state.Update(ctx, func(cfg *domain.AutopilotConfig) {
			delete(cfg.Blacklist, cmd.Mint)
		}); err != nil {
			return "error: blacklist: " + err.Error()
		}
		return fmt.Sprintf("removed %s from blacklist", cmd.Mint)

	case "show":
		ap := d.state.Get()
		if len(ap.Blacklist) == 0 {
			return "blacklist empty"
		}
		mints := make([]string, 0, len(ap.Blacklist))
		for mint := range ap.Blacklist {
			mints = append(mints, mint)
		}
		return fmt.Sprintf("blacklist (%d):\n  %s", len(mints), strings.Join(mints, "\n  "))
	}
	return "error: blacklist: unknown action"
}
