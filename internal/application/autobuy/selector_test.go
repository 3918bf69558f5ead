package autobuy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alejandrodnm/mintbot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memConfigStore struct {
	cfg   domain.AutopilotConfig
	found bool
	saves int
}

func (s *memConfigStore) LoadAutopilot(_ context.Context) (domain.AutopilotConfig, bool, error) {
	return s.cfg, s.found, nil
}

func (s *memConfigStore) SaveAutopilot(_ context.Context, cfg domain.AutopilotConfig) error {
	s.cfg = cfg
	s.found = true
	s.saves++
	return nil
}

type memPositions struct {
	positions map[string]domain.Position
}

func newMemPositions(mints ...string) *memPositions {
	s := &memPositions{positions: make(map[string]domain.Position)}
	for _, mint := range mints {
		s.positions[mint] = domain.Position{Mint: mint, EntryCostSOL: 1}
	}
	return s
}

func (s *memPositions) Get(_ context.Context, mint string) (domain.Position, bool, error) {
	p, ok := s.positions[mint]
	return p, ok, nil
}

func (s *memPositions) All(_ context.Context) ([]domain.Position, error) {
	out := make([]domain.Position, 0, len(s.positions))
	for _, p := range s.positions {
		out = append(out, p)
	}
	return out, nil
}

func (s *memPositions) Put(_ context.Context, pos domain.Position) error {
	s.positions[pos.Mint] = pos
	return nil
}

func (s *memPositions) Delete(_ context.Context, mint string) error {
	delete(s.positions, mint)
	return nil
}

type staticSource struct {
	cands []domain.Candidate
}

func (s *staticSource) Candidates(_ context.Context, _ []time.Duration) ([]domain.Candidate, error) {
	return s.cands, nil
}

type fakeBuyer struct {
	attempts []string
	failFor  map[string]error
	partial  bool
}

func (f *fakeBuyer) BuyByNative(_ context.Context, mint string, targetSOL float64, _ int) (domain.BuyResult, error) {
	f.attempts = append(f.attempts, mint)
	if err, ok := f.failFor[mint]; ok {
		if f.partial {
			return domain.BuyResult{ReceivedRaw: 100, SpentSOL: targetSOL / 2, Shards: 1}, err
		}
		return domain.BuyResult{}, err
	}
	return domain.BuyResult{ReceivedRaw: 1_000, SpentSOL: targetSOL, Shards: 2}, nil
}

type fakeNotifier struct {
	entries []string
}

func (f *fakeNotifier) NotifyEntry(_ context.Context, pos domain.Position, _ string) {
	f.entries = append(f.entries, pos.Mint)
}

func (f *fakeNotifier) NotifyExit(_ context.Context, _ domain.Position, _ string, _, _ float64) {}

// passingCandidate supera los gates por defecto con margen.
func passingCandidate(mint string, strength float64) domain.Candidate {
	return domain.Candidate{
		Mint: mint,
		Metrics: []domain.WindowMetrics{
			{Window: 30 * time.Second, BuyCount: 20, ChangePct: 5.0 * strength},
			{Window: 3 * time.Minute, BuyCount: 50, ChangePct: 15.0 * strength},
		},
	}
}

func enabledConfig() domain.AutopilotConfig {
	cfg := domain.DefaultAutopilotConfig()
	cfg.Enabled = true
	return cfg
}

func newTestSelector(t *testing.T, cfg domain.AutopilotConfig, source *staticSource, buyer *fakeBuyer, positions *memPositions, notifier *fakeNotifier) (*Selector, *State) {
	t.Helper()
	store := &memConfigStore{cfg: cfg, found: true}
	state, err := LoadState(context.Background(), store)
	require.NoError(t, err)

	sel := New(state, source, buyer, positions, notifier, Config{
		Interval:      time.Second,
		SlippageBps:   500,
		TakeProfitPct: 20,
		StopLossPct:   10,
	})
	return sel, state
}

func TestSelector_DisabledSkipsPass(t *testing.T) {
	cfg := domain.DefaultAutopilotConfig() // Enabled = false
	buyer := &fakeBuyer{}
	sel, _ := newTestSelector(t, cfg, &staticSource{cands: []domain.Candidate{passingCandidate("m1", 1)}},
		buyer, newMemPositions(), &fakeNotifier{})

	sel.RunOnce(context.Background())

	assert.Empty(t, buyer.attempts)
}

func TestSelector_GlobalCooldownSkipsPass(t *testing.T) {
	cfg := enabledConfig()
	cfg.LastEntryAt = time.Now().UTC().Add(-10 * time.Second) // dentro de los 90s
	buyer := &fakeBuyer{}
	sel, _ := newTestSelector(t, cfg, &staticSource{cands: []domain.Candidate{passingCandidate("m1", 1)}},
		buyer, newMemPositions(), &fakeNotifier{})

	sel.RunOnce(context.Background())

	assert.Empty(t, buyer.attempts)
}

func TestSelector_NoCapacitySkipsPass(t *testing.T) {
	cfg := enabledConfig()
	cfg.MaxOpenPositions = 2
	buyer := &fakeBuyer{}
	sel, _ := newTestSelector(t, cfg, &staticSource{cands: []domain.Candidate{passingCandidate("m1", 1)}},
		buyer, newMemPositions("held1", "held2"), &fakeNotifier{})

	sel.RunOnce(context.Background())

	assert.Empty(t, buyer.attempts)
}

func TestSelector_ExcludesBlacklistedHeldAndGateFailing(t *testing.T) {
	cfg := enabledConfig()
	cfg.Blacklist["banned"] = true

	weak := domain.Candidate{
		Mint: "weak",
		Metrics: []domain.WindowMetrics{
			{Window: 30 * time.Second, BuyCount: 1, ChangePct: 0.1},
			{Window: 3 * time.Minute, BuyCount: 2, ChangePct: 0.5},
		},
	}
	source := &staticSource{cands: []domain.Candidate{
		passingCandidate("banned", 1),
		passingCandidate("held", 1),
		weak,
		passingCandidate("good", 1),
	}}
	buyer := &fakeBuyer{}
	notifier := &fakeNotifier{}
	sel, _ := newTestSelector(t, cfg, source, buyer, newMemPositions("held"), notifier)

	sel.RunOnce(context.Background())

	assert.Equal(t, []string{"good"}, buyer.attempts)
	assert.Equal(t, []string{"good"}, notifier.entries)
}

func TestSelector_RetryCooldownExcludesMint(t *testing.T) {
	cfg := enabledConfig()
	cfg.LastAttempted["recent"] = time.Now().UTC().Add(-time.Minute) // retry de 5m

	source := &staticSource{cands: []domain.Candidate{passingCandidate("recent", 1)}}
	buyer := &fakeBuyer{}
	sel, _ := newTestSelector(t, cfg, source, buyer, newMemPositions(), &fakeNotifier{})

	sel.RunOnce(context.Background())

	assert.Empty(t, buyer.attempts)
}

func TestSelector_OneEntryPerPass(t *testing.T) {
	source := &staticSource{cands: []domain.Candidate{
		passingCandidate("strong", 3),
		passingCandidate("mid", 2),
	}}
	buyer := &fakeBuyer{}
	positions := newMemPositions()
	sel, state := newTestSelector(t, enabledConfig(), source, buyer, positions, &fakeNotifier{})

	sel.RunOnce(context.Background())

	// Solo el mejor candidato; tras el éxito el pase termina
	assert.Equal(t, []string{"strong"}, buyer.attempts)

	pos, found, _ := positions.Get(context.Background(), "strong")
	require.True(t, found)
	assert.Equal(t, 20.0, pos.TakeProfitPct)
	assert.Equal(t, 10.0, pos.StopLossPct)

	assert.False(t, state.Get().LastEntryAt.IsZero(), "el cooldown global arranca con el éxito")
}

func TestSelector_FailureContinuesToNextCandidate(t *testing.T) {
	source := &staticSource{cands: []domain.Candidate{
		passingCandidate("strong", 3),
		passingCandidate("mid", 2),
	}}
	buyer := &fakeBuyer{failFor: map[string]error{"strong": errors.New("no route")}}
	positions := newMemPositions()
	sel, state := newTestSelector(t, enabledConfig(), source, buyer, positions, &fakeNotifier{})

	sel.RunOnce(context.Background())

	assert.Equal(t, []string{"strong", "mid"}, buyer.attempts)

	// El intento fallido queda registrado para su retry cooldown
	ap := state.Get()
	assert.Contains(t, ap.LastAttempted, "strong")

	_, found, _ := positions.Get(context.Background(), "strong")
	assert.False(t, found, "el fallo total no abre posición")
	_, found, _ = positions.Get(context.Background(), "mid")
	assert.True(t, found)
}

func TestSelector_PartialFillStillOpensPosition(t *testing.T) {
	source := &staticSource{cands: []domain.Candidate{passingCandidate("m1", 1)}}
	buyer := &fakeBuyer{failFor: map[string]error{"m1": errors.New("shard 2 failed")}, partial: true}
	positions := newMemPositions()
	sel, _ := newTestSelector(t, enabledConfig(), source, buyer, positions, &fakeNotifier{})

	sel.RunOnce(context.Background())

	// Hubo exposición real: la posición debe trackearse aunque fallara a medias
	pos, found, _ := positions.Get(context.Background(), "m1")
	require.True(t, found)
	assert.Equal(t, uint64(100), pos.EntryReceivedRaw)
}

func TestState_UpdatePersistsBeforeCommit(t *testing.T) {
	store := &memConfigStore{cfg: enabledConfig(), found: true}
	state, err := LoadState(context.Background(), store)
	require.NoError(t, err)

	saves := store.saves
	err = state.Update(context.Background(), func(cfg *domain.AutopilotConfig) {
		cfg.BudgetSOL = 0.5
	})
	require.NoError(t, err)

	assert.Equal(t, saves+1, store.saves)
	assert.Equal(t, 0.5, store.cfg.BudgetSOL, "el valor persistido es el mutado")
	assert.Equal(t, 0.5, state.Get().BudgetSOL)
}

func TestState_GetReturnsCopy(t *testing.T) {
	store := &memConfigStore{cfg: enabledConfig(), found: true}
	state, err := LoadState(context.Background(), store)
	require.NoError(t, err)

	cfg := state.Get()
	cfg.Blacklist["mutated"] = true

	assert.False(t, state.Get().Blacklisted("mutated"), "mutar la copia no toca el estado")
}

func TestLoadState_FirstRunDefaults(t *testing.T) {
	store := &memConfigStore{} // nunca guardado
	state, err := LoadState(context.Background(), store)
	require.NoError(t, err)

	cfg := state.Get()
	assert.False(t, cfg.Enabled)
	assert.NotEmpty(t, cfg.Gates)
	assert.NotNil(t, cfg.Blacklist)
	assert.NotNil(t, cfg.LastAttempted)
}
