package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alejandrodnm/mintbot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wallet = "Wallet11111111111111111111111111"

type memStore struct {
	positions map[string]domain.Position
}

func newMemStore(positions ...domain.Position) *memStore {
	s := &memStore{positions: make(map[string]domain.Position)}
	for _, p := range positions {
		s.positions[p.Mint] = p
	}
	return s
}

func (s *memStore) Get(_ context.Context, mint string) (domain.Position, bool, error) {
	p, ok := s.positions[mint]
	return p, ok, nil
}

func (s *memStore) All(_ context.Context) ([]domain.Position, error) {
	out := make([]domain.Position, 0, len(s.positions))
	for _, p := range s.positions {
		out = append(out, p)
	}
	return out, nil
}

func (s *memStore) Put(_ context.Context, pos domain.Position) error {
	s.positions[pos.Mint] = pos
	return nil
}

func (s *memStore) Delete(_ context.Context, mint string) error {
	delete(s.positions, mint)
	return nil
}

// repriceRoutes quotes every sell-direction reprice at a fixed SOL value.
type repriceRoutes struct {
	valueSOL map[string]float64 // mint → estimated value
}

func (r *repriceRoutes) Quote(_ context.Context, inputMint, _ string, amountRaw uint64, bps int) (domain.Route, error) {
	value, ok := r.valueSOL[inputMint]
	if !ok {
		return domain.Route{}, domain.ErrNoRoute
	}
	return domain.Route{
		InputMint:    inputMint,
		OutputMint:   domain.WSOLMint,
		InAmountRaw:  amountRaw,
		OutAmountRaw: uint64(value * domain.LamportsPerSOL),
		PriceImpact:  0.5,
	}, nil
}

func (r *repriceRoutes) BuildSwap(_ context.Context, _ domain.Route, _ string) ([]byte, error) {
	return nil, errors.New("not used")
}

type balanceVenue struct {
	balances map[string]uint64
}

func (v *balanceVenue) SubmitAndConfirm(_ context.Context, _ []byte) (string, error) {
	return "", errors.New("not used")
}

func (v *balanceVenue) TokenBalance(_ context.Context, _, mint string) (uint64, error) {
	return v.balances[mint], nil
}

func (v *balanceVenue) SOLBalance(_ context.Context, _ string) (float64, error) { return 0, nil }

type sellCall struct {
	mint   string
	amount uint64
}

type fakeSeller struct {
	calls []sellCall
	err   error
}

func (f *fakeSeller) SellByRaw(_ context.Context, mint string, rawAmount uint64, _ int) (domain.SellResult, error) {
	f.calls = append(f.calls, sellCall{mint: mint, amount: rawAmount})
	if f.err != nil {
		return domain.SellResult{}, f.err
	}
	return domain.SellResult{ReceivedSOL: float64(rawAmount) / domain.LamportsPerSOL, Shards: 1}, nil
}

type exitEvent struct {
	mint   string
	reason string
}

type fakeNotifier struct {
	entries []string
	exits   []exitEvent
}

func (f *fakeNotifier) NotifyEntry(_ context.Context, pos domain.Position, _ string) {
	f.entries = append(f.entries, pos.Mint)
}

func (f *fakeNotifier) NotifyExit(_ context.Context, pos domain.Position, reason string, _, _ float64) {
	f.exits = append(f.exits, exitEvent{mint: pos.Mint, reason: reason})
}

func openPosition(mint string) domain.Position {
	return domain.Position{
		Mint:             mint,
		EntryCostSOL:     1.0,
		EntryReceivedRaw: 1_000,
		TakeProfitPct:    20,
		StopLossPct:      10,
		OpenedAt:         time.Now().UTC().Add(-time.Minute),
	}
}

func newTestMonitor(store *memStore, routes *repriceRoutes, venue *balanceVenue, seller *fakeSeller, notifier *fakeNotifier, partials bool) *Monitor {
	return New(routes, venue, seller, store, notifier, wallet, Config{
		Interval:     time.Second,
		SlippageBps:  500,
		PartialExits: partials,
	})
}

func TestMonitor_PartialTakeProfit(t *testing.T) {
	store := newMemStore(openPosition("mintA"))
	routes := &repriceRoutes{valueSOL: map[string]float64{"mintA": 1.25}} // pnl +25%
	venue := &balanceVenue{balances: map[string]uint64{"mintA": 1_000}}
	seller := &fakeSeller{}
	notifier := &fakeNotifier{}

	m := newTestMonitor(store, routes, venue, seller, notifier, true)
	m.RunOnce(context.Background())

	// Vende exactamente la mitad del balance
	require.Len(t, seller.calls, 1)
	assert.Equal(t, uint64(500), seller.calls[0].amount)

	// La posición sigue abierta, con stop en breakeven y el parcial marcado
	pos, found, _ := store.Get(context.Background(), "mintA")
	require.True(t, found, "la posición no debe cerrarse")
	assert.Equal(t, 0.0, pos.StopLossPct)
	assert.True(t, pos.PartialExitTaken)

	require.Len(t, notifier.exits, 1)
	assert.Equal(t, "partial_take_profit", notifier.exits[0].reason)
}

func TestMonitor_SecondTakeProfitClosesFully(t *testing.T) {
	pos := openPosition("mintA")
	pos.PartialExitTaken = true
	pos.StopLossPct = 0

	store := newMemStore(pos)
	routes := &repriceRoutes{valueSOL: map[string]float64{"mintA": 1.30}}
	venue := &balanceVenue{balances: map[string]uint64{"mintA": 500}}
	seller := &fakeSeller{}
	notifier := &fakeNotifier{}

	m := newTestMonitor(store, routes, venue, seller, notifier, true)
	m.RunOnce(context.Background())

	require.Len(t, seller.calls, 1)
	assert.Equal(t, uint64(500), seller.calls[0].amount, "vende todo el remanente")

	_, found, _ := store.Get(context.Background(), "mintA")
	assert.False(t, found)
	require.Len(t, notifier.exits, 1)
	assert.Equal(t, "take_profit", notifier.exits[0].reason)
}

func TestMonitor_PartialsDisabledFullExitOnFirstHit(t *testing.T) {
	store := newMemStore(openPosition("mintA"))
	routes := &repriceRoutes{valueSOL: map[string]float64{"mintA": 1.25}}
	venue := &balanceVenue{balances: map[string]uint64{"mintA": 1_000}}
	seller := &fakeSeller{}
	notifier := &fakeNotifier{}

	m := newTestMonitor(store, routes, venue, seller, notifier, false)
	m.RunOnce(context.Background())

	require.Len(t, seller.calls, 1)
	assert.Equal(t, uint64(1_000), seller.calls[0].amount)

	_, found, _ := store.Get(context.Background(), "mintA")
	assert.False(t, found)
}

func TestMonitor_StopLoss(t *testing.T) {
	store := newMemStore(openPosition("mintA"))
	routes := &repriceRoutes{valueSOL: map[string]float64{"mintA": 0.89}} // pnl -11%
	venue := &balanceVenue{balances: map[string]uint64{"mintA": 1_000}}
	seller := &fakeSeller{}
	notifier := &fakeNotifier{}

	m := newTestMonitor(store, routes, venue, seller, notifier, true)
	m.RunOnce(context.Background())

	require.Len(t, seller.calls, 1)
	assert.Equal(t, uint64(1_000), seller.calls[0].amount)

	_, found, _ := store.Get(context.Background(), "mintA")
	assert.False(t, found)
	require.Len(t, notifier.exits, 1)
	assert.Equal(t, "stop_loss", notifier.exits[0].reason)
}

func TestMonitor_StopLossBeforeTakeProfitOrder(t *testing.T) {
	// Parcial ya tomado y stop en breakeven: un retroceso a pnl 0 negativo
	// debe salir por stop, no esperar otro TP
	pos := openPosition("mintA")
	pos.PartialExitTaken = true
	pos.StopLossPct = 0

	store := newMemStore(pos)
	routes := &repriceRoutes{valueSOL: map[string]float64{"mintA": 0.99}}
	venue := &balanceVenue{balances: map[string]uint64{"mintA": 500}}
	seller := &fakeSeller{}
	notifier := &fakeNotifier{}

	m := newTestMonitor(store, routes, venue, seller, notifier, true)
	m.RunOnce(context.Background())

	require.Len(t, notifier.exits, 1)
	assert.Equal(t, "stop_loss", notifier.exits[0].reason)
}

func TestMonitor_ZeroBalanceRemovesWithoutSelling(t *testing.T) {
	store := newMemStore(openPosition("mintA"))
	routes := &repriceRoutes{valueSOL: map[string]float64{"mintA": 1.0}}
	venue := &balanceVenue{balances: map[string]uint64{}} // liquidada fuera
	seller := &fakeSeller{}
	notifier := &fakeNotifier{}

	m := newTestMonitor(store, routes, venue, seller, notifier, true)
	m.RunOnce(context.Background())

	assert.Empty(t, seller.calls, "no debe intentar vender")
	_, found, _ := store.Get(context.Background(), "mintA")
	assert.False(t, found)
	require.Len(t, notifier.exits, 1)
	assert.Equal(t, "zero_balance", notifier.exits[0].reason)
}

func TestMonitor_HoldWithinBands(t *testing.T) {
	store := newMemStore(openPosition("mintA"))
	routes := &repriceRoutes{valueSOL: map[string]float64{"mintA": 1.05}} // +5%
	venue := &balanceVenue{balances: map[string]uint64{"mintA": 1_000}}
	seller := &fakeSeller{}
	notifier := &fakeNotifier{}

	m := newTestMonitor(store, routes, venue, seller, notifier, true)
	m.RunOnce(context.Background())

	assert.Empty(t, seller.calls)
	pos, found, _ := store.Get(context.Background(), "mintA")
	require.True(t, found)
	assert.NotNil(t, pos.LastEvaluatedAt, "la evaluación debe quedar registrada")
}

func TestMonitor_OnePositionFailureDoesNotStopOthers(t *testing.T) {
	// mintBad no tiene ruta de reprice; mintA debe evaluarse igualmente
	store := newMemStore(openPosition("mintBad"), openPosition("mintA"))
	routes := &repriceRoutes{valueSOL: map[string]float64{"mintA": 0.80}}
	venue := &balanceVenue{balances: map[string]uint64{"mintBad": 1_000, "mintA": 1_000}}
	seller := &fakeSeller{}
	notifier := &fakeNotifier{}

	m := newTestMonitor(store, routes, venue, seller, notifier, true)
	m.RunOnce(context.Background())

	require.Len(t, notifier.exits, 1)
	assert.Equal(t, exitEvent{mint: "mintA", reason: "stop_loss"}, notifier.exits[0])

	// La posición fallida sigue abierta para el siguiente pase
	_, found, _ := store.Get(context.Background(), "mintBad")
	assert.True(t, found)
}
