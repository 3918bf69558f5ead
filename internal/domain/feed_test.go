package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func tick(side TradeSide, price float64, at time.Time) TradeTick {
	return TradeTick{Mint: "m", Side: side, Price: price, AmountSOL: 0.1, At: at}
}

func TestFeedBucket_RecordUpdatesLastPrice(t *testing.T) {
	now := time.Now().UTC()
	var b FeedBucket

	b.Record(tick(SideBuy, 1.5, now), time.Minute)
	b.Record(tick(SideSell, 2.0, now.Add(time.Second)), time.Minute)

	assert.NotNil(t, b.LastPrice)
	assert.Equal(t, 2.0, *b.LastPrice)
	assert.Len(t, b.Trades, 2)
}

func TestFeedBucket_PruneDropsOldTrades(t *testing.T) {
	now := time.Now().UTC()
	var b FeedBucket

	b.Record(tick(SideBuy, 1.0, now.Add(-2*time.Minute)), time.Hour)
	b.Record(tick(SideBuy, 1.1, now.Add(-30*time.Second)), time.Hour)
	b.Prune(now, time.Minute)

	assert.Len(t, b.Trades, 1)
	assert.Equal(t, 1.1, b.Trades[0].Price)
}

func TestMetricsFor_CountsOnlyBuysInWindow(t *testing.T) {
	now := time.Now().UTC()
	var b FeedBucket
	b.Record(tick(SideBuy, 1.0, now.Add(-50*time.Second)), time.Hour)
	b.Record(tick(SideBuy, 1.2, now.Add(-20*time.Second)), time.Hour)
	b.Record(tick(SideSell, 1.1, now.Add(-10*time.Second)), time.Hour)
	b.Record(tick(SideBuy, 1.3, now.Add(-5*time.Second)), time.Hour)

	m := b.MetricsFor(now, 30*time.Second)

	// El buy a -50s queda fuera de la ventana; el sell no cuenta como buy
	assert.Equal(t, 2, m.BuyCount)
}

func TestMetricsFor_ChangeFirstToLast(t *testing.T) {
	now := time.Now().UTC()
	var b FeedBucket
	b.Record(tick(SideBuy, 1.0, now.Add(-25*time.Second)), time.Hour)
	b.Record(tick(SideSell, 1.4, now.Add(-15*time.Second)), time.Hour)
	b.Record(tick(SideBuy, 1.2, now.Add(-5*time.Second)), time.Hour)

	m := b.MetricsFor(now, 30*time.Second)

	// (1.2 - 1.0) / 1.0 × 100, independiente del pico intermedio
	assert.InDelta(t, 20.0, m.ChangePct, 0.001)
}

func TestMetricsFor_FewerThanTwoTradesZeroChange(t *testing.T) {
	now := time.Now().UTC()
	var b FeedBucket
	b.Record(tick(SideBuy, 1.0, now), time.Hour)

	m := b.MetricsFor(now, 30*time.Second)

	assert.Equal(t, 1, m.BuyCount)
	assert.Equal(t, 0.0, m.ChangePct)
}

func TestMetricsFor_EmptyBucket(t *testing.T) {
	var b FeedBucket
	m := b.MetricsFor(time.Now().UTC(), 30*time.Second)
	assert.Equal(t, 0, m.BuyCount)
	assert.Equal(t, 0.0, m.ChangePct)
}
