// Package control implements the operator command channel: a closed set of
// typed commands parsed once at the boundary, a dispatcher that executes
// them against the core, and a websocket endpoint that carries them.
package control

import (
	"fmt"
	"strconv"
	"strings"
)

// Command is one parsed operator command. The set of variants is closed;
// anything else is a parse error.
type Command interface {
	isCommand()
}

// BalanceCmd queries the SOL balance, or a token balance when Mint is set.
type BalanceCmd struct {
	Mint string
}

// BuyCmd is a manual sharded buy of AmountSOL worth of Mint.
type BuyCmd struct {
	Mint      string
	AmountSOL float64
}

// SellCmd sells Pct percent of the held balance of Mint.
type SellCmd struct {
	Mint string
	Pct  float64
}

// SnipeCmd is an aggressive immediate entry: same execution path as a buy
// but with the slippage ceiling, for tokens moving too fast to stage.
type SnipeCmd struct {
	Mint      string
	AmountSOL float64
}

// StatusCmd lists the open positions.
type StatusCmd struct{}

// CancelCmd removes a position from tracking without selling.
type CancelCmd struct {
	Mint string
}

// AutopilotCmd toggles or inspects autonomous entries.
// Action is "on", "off" or "status".
type AutopilotCmd struct {
	Action string
}

// FilterSetCmd edits one autopilot filter field in place.
type FilterSetCmd struct {
	Field string
	Value string
}

// BlacklistCmd manages the permanent exclusion list.
// Action is "add", "remove" or "show"; Mint is empty for "show".
type BlacklistCmd struct {
	Action string
	Mint   string
}

// HelpCmd prints the command reference.
type HelpCmd struct{}

func (BalanceCmd) isCommand()   {}
func (BuyCmd) isCommand()       {}
func (SellCmd) isCommand()      {}
func (SnipeCmd) isCommand()     {}
func (StatusCmd) isCommand()    {}
func (CancelCmd) isCommand()    {}
func (AutopilotCmd) isCommand() {}
func (FilterSetCmd) isCommand() {}
func (BlacklistCmd) isCommand() {}
func (HelpCmd) isCommand()      {}

// Parse turns a free-text command line into a typed Command.
func Parse(line string) (Command, error) {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	verb := strings.ToLower(fields[0])
	args := fields[1:]

	switch verb {
	case "balance", "bal":
		cmd := BalanceCmd{}
		if len(args) > 0 {
			cmd.Mint = args[0]
		}
		return cmd, nil

	case "buy":
		if len(args) != 2 {
			return nil, fmt.Errorf("usage: buy <mint> <sol>")
		}
		amount, err := parseAmount(args[1])
		if err != nil {
			return nil, fmt.Errorf("buy: %w", err)
		}
		return BuyCmd{Mint: args[0], AmountSOL: amount}, nil

	case "sell":
		if len(args) < 1 || len(args) > 2 {
			return nil, fmt.Errorf("usage: sell <mint> [pct]")
		}
		cmd := SellCmd{Mint: args[0], Pct: 100}
		if len(args) == 2 {
			pct, err := strconv.ParseFloat(args[1], 64)
			if err != nil || pct <= 0 || pct > 100 {
				return nil, fmt.Errorf("sell: pct must be in (0, 100], got %q", args[1])
			}
			cmd.Pct = pct
		}
		return cmd, nil

	case "snipe":
		if len(args) != 2 {
			return nil, fmt.Errorf("usage: snipe <mint> <sol>")
		}
		amount, err := parseAmount(args[1])
		if err != nil {
			return nil, fmt.Errorf("snipe: %w", err)
		}
		return SnipeCmd{Mint: args[0], AmountSOL: amount}, nil

	case "status", "st":
		return StatusCmd{}, nil

	case "cancel":
		if len(args) != 1 {
			return nil, fmt.Errorf("usage: cancel <mint>")
		}
		return CancelCmd{Mint: args[0]}, nil

	case "autopilot", "ap":
		if len(args) != 1 {
			return nil, fmt.Errorf("usage: autopilot on|off|status")
		}
		action := strings.ToLower(args[0])
		switch action {
		case "on", "off", "status":
			return AutopilotCmd{Action: action}, nil
		}
		return nil, fmt.Errorf("autopilot: unknown action %q", args[0])

	case "filter":
		if len(args) != 3 || strings.ToLower(args[0]) != "set" {
			return nil, fmt.Errorf("usage: filter set <field> <value>")
		}
		return FilterSetCmd{Field: strings.ToLower(args[1]), Value: args[2]}, nil

	case "blacklist", "bl":
		if len(args) == 0 {
			return nil, fmt.Errorf("usage: blacklist add|remove|show [mint]")
		}
		action := strings.ToLower(args[0])
		switch action {
		case "show":
			return BlacklistCmd{Action: action}, nil
		case "add", "remove":
			if len(args) != 2 {
				return nil, fmt.Errorf("usage: blacklist %s <mint>", action)
			}
			return BlacklistCmd{Action: action, Mint: args[1]}, nil
		}
		return nil, fmt.Errorf("blacklist: unknown action %q", args[0])

	case "help", "?":
		return HelpCmd{}, nil
	}

	return nil, fmt.Errorf("unknown command %q (try help)", verb)
}

func parseAmount(s string) (float64, error) {
	amount, err := strconv.ParseFloat(s, 64)
	if err != nil || amount <= 0 {
		return 0, fmt.Errorf("amount must be a positive number, got %q", s)
	}
	return amount, nil
}
