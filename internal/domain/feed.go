package domain

import "time"

// TradeSide es el lado de un trade observado en el feed.
type TradeSide string

const (
	SideBuy  TradeSide = "buy"
	SideSell TradeSide = "sell"
)

// TradeTick es un trade individual recibido del feed de momentum.
type TradeTick struct {
	Mint      string
	Side      TradeSide
	Price     float64 // precio en SOL por token
	AmountSOL float64
	At        time.Time
}

// FeedBucket acumula el historial reciente de trades de un mint.
// Se crea en la primera notificación de "new token" y se mantiene acotado
// por la ventana de retención — nunca se destruye explícitamente.
type FeedBucket struct {
	LastPrice *float64
	Trades    []TradeTick
}

// Record añade un tick al bucket y poda los trades fuera de retención.
func (b *FeedBucket) Record(tick TradeTick, retention time.Duration) {
	price := tick.Price
	b.LastPrice = &price
	b.Trades = append(b.Trades, tick)
	b.Prune(tick.At, retention)
}

// Prune elimina los trades anteriores a now-retention.
func (b *FeedBucket) Prune(now time.Time, retention time.Duration) {
	cutoff := now.Add(-retention)
	idx := 0
	for idx < len(b.Trades) && b.Trades[idx].At.Before(cutoff) {
		idx++
	}
	if idx > 0 {
		b.Trades = append(b.Trades[:0], b.Trades[idx:]...)
	}
}

// WindowMetrics son las métricas de una ventana deslizante medida desde now.
type WindowMetrics struct {
	Window    time.Duration
	BuyCount  int
	ChangePct float64
}

// MetricsFor calcula las métricas del bucket en la ventana dada.
// ChangePct es el cambio entre el primer y el último precio dentro de la
// ventana; 0 si hay menos de dos trades.
func (b *FeedBucket) MetricsFor(now time.Time, window time.Duration) WindowMetrics {
	m := WindowMetrics{Window: window}
	cutoff := now.Add(-window)

	var first, last *TradeTick
	for i := range b.Trades {
		t := &b.Trades[i]
		if t.At.Before(cutoff) {
			continue
		}
		if t.Side == SideBuy {
			m.BuyCount++
		}
		if first == nil {
			first = t
		}
		last = t
	}

	if first != nil && last != nil && first != last && first.Price > 0 {
		m.ChangePct = (last.Price - first.Price) / first.Price * 100
	}
	return m
}
