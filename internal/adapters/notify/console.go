// Package notify implementa el Notifier de consola: anuncia entradas y
// salidas y renderiza el snapshot de posiciones como tabla.
package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alejandrodnm/mintbot/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Notifier.
type Console struct {
	out io.Writer
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// NotifyEntry anuncia una posición recién abierta.
func (c *Console) NotifyEntry(_ context.Context, pos domain.Position, source string) {
	now := time.Now().Format("15:04:05")
	fmt.Fprintf(c.out, "[%s] ENTRY [%s] %s  cost %.4f SOL  recv %d  TP %.1f%%  SL %.1f%%\n",
		now, source, shortMint(pos.Mint), pos.EntryCostSOL, pos.EntryReceivedRaw,
		pos.TakeProfitPct, pos.StopLossPct)
}

// NotifyExit anuncia un exit parcial o completo.
func (c *Console) NotifyExit(_ context.Context, pos domain.Position, reason string, pnlPct, receivedSOL float64) {
	now := time.Now().Format("15:04:05")
	sign := "+"
	if pnlPct < 0 {
		sign = ""
	}
	fmt.Fprintf(c.out, "[%s] EXIT [%s] %s  pnl %s%.2f%%  recv %.4f SOL  held %s\n",
		now, reason, shortMint(pos.Mint), sign, pnlPct, receivedSOL,
		formatAge(pos.Age(time.Now())))
}

// RenderPositions escribe la tabla de posiciones abiertas en el writer dado.
// Se usa también desde el canal de control, de ahí el writer explícito.
func RenderPositions(w io.Writer, positions []domain.Position, now time.Time) {
	if len(positions) == 0 {
		fmt.Fprintln(w, "no open positions")
		return
	}

	table := tablewriter.NewWriter(w)
	table.Header("#", "Mint", "Cost SOL", "Received", "TP%", "SL%", "Partial", "Age", "Last eval")

	for i, pos := range positions {
		partial := "-"
		if pos.PartialExitTaken {
			partial = "yes"
		}
		lastEval := "-"
		if pos.LastEvaluatedAt != nil {
			lastEval = formatAge(now.Sub(*pos.LastEvaluatedAt)) + " ago"
		}

		table.Append(
			fmt.Sprintf("%d", i+1),
			shortMint(pos.Mint),
			fmt.Sprintf("%.4f", pos.EntryCostSOL),
			fmt.Sprintf("%d", pos.EntryReceivedRaw),
			fmt.Sprintf("%.1f", pos.TakeProfitPct),
			fmt.Sprintf("%.1f", pos.StopLossPct),
			partial,
			formatAge(pos.Age(now)),
			lastEval,
		)
	}
	table.Render()
}

// RenderAutopilot escribe el estado del autopilot en el writer dado.
func RenderAutopilot(w io.Writer, ap domain.AutopilotConfig, openPositions int, now time.Time) {
	state := "OFF"
	if ap.Enabled {
		state = "ON"
	}
	fmt.Fprintf(w, "autopilot: %s\n", state)
	fmt.Fprintf(w, "  budget: %.4f SOL | positions: %d/%d\n",
		ap.BudgetSOL, openPositions, ap.MaxOpenPositions)

	if ap.CooldownActive(now) {
		remaining := ap.Cooldown - now.Sub(ap.LastEntryAt)
		fmt.Fprintf(w, "  cooldown: %s remaining\n", formatAge(remaining))
	} else {
		fmt.Fprintf(w, "  cooldown: ready\n")
	}

	table := tablewriter.NewWriter(w)
	table.Header("Window", "Min buys", "Min change%")
	for _, gate := range ap.Gates {
		table.Append(gate.Window.String(),
			fmt.Sprintf("%d", gate.MinBuyCount),
			fmt.Sprintf("%.1f", gate.MinChangePct))
	}
	table.Render()

	if len(ap.Blacklist) > 0 {
		mints := make([]string, 0, len(ap.Blacklist))
		for mint := range ap.Blacklist {
			mints = append(mints, shortMint(mint))
		}
		fmt.Fprintf(w, "  blacklist (%d): %s\n", len(ap.Blacklist), strings.Join(mints, ", "))
	}
}

func shortMint(mint string) string {
	if len(mint) <= 12 {
		return mint
	}
	return mint[:6] + ".." + mint[len(mint)-4:]
}

func formatAge(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
