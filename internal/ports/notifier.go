package ports

import (
	"context"

	"github.com/alejandrodnm/mintbot/internal/domain"
)

// Notifier anuncia eventos de trading al operador.
type Notifier interface {
	// NotifyEntry anuncia una posición recién abierta. source es "manual",
	// "snipe" o "autopilot".
	NotifyEntry(ctx context.Context, pos domain.Position, source string)

	// NotifyExit anuncia un exit parcial o completo. reason es "take_profit",
	// "partial_take_profit", "stop_loss" o "zero_balance".
	NotifyExit(ctx context.Context, pos domain.Position, reason string, pnlPct, receivedSOL float64)
}

// Authorizer es el allow-list check del canal de control. La gestión de la
// lista es externa al core.
type Authorizer interface {
	Allowed(senderID string) bool
}
