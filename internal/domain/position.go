package domain

import "time"

// LamportsPerSOL es el factor de conversión entre SOL y lamports.
const LamportsPerSOL = 1_000_000_000

// Position es una posición abierta sobre un mint.
// Se crea cuando una ejecución (manual o autónoma) produce output > 0,
// y la elimina el monitor en el exit completo (TP/SL), cuando el balance
// on-chain llega a cero, o un cancel externo.
type Position struct {
	Mint             string
	EntryCostSOL     float64 // SOL gastado al abrir
	EntryReceivedRaw uint64  // tokens recibidos, en unidades base
	TakeProfitPct    float64
	StopLossPct      float64
	OpenedAt         time.Time
	LastEvaluatedAt  *time.Time
	PartialExitTaken bool
}

// Monitorable devuelve true si la posición puede ser evaluada por el monitor.
// Una posición con coste cero no tiene PnL definible.
func (p Position) Monitorable() bool {
	return p.EntryCostSOL > 0
}

// PnLPct devuelve el PnL en porcentaje dado el valor estimado actual en SOL.
func (p Position) PnLPct(currentValueSOL float64) float64 {
	if p.EntryCostSOL <= 0 {
		return 0
	}
	return (currentValueSOL - p.EntryCostSOL) / p.EntryCostSOL * 100
}

// Age devuelve cuánto tiempo lleva abierta la posición.
func (p Position) Age(now time.Time) time.Duration {
	return now.Sub(p.OpenedAt)
}
