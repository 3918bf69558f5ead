package autobuy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alejandrodnm/mintbot/internal/domain"
	"github.com/alejandrodnm/mintbot/internal/ports"
)

// State is the process-owned autopilot configuration, threaded into the
// selector and the command handlers. Every mutation goes through Update,
// which persists the full record before returning — a crash between
// mutation and persistence is never observable after restart.
type State struct {
	store ports.ConfigStore

	mu  sync.Mutex
	cfg domain.AutopilotConfig
}

// LoadState builds the State from the durable store, falling back to
// defaults on first run.
func LoadState(ctx context.Context, store ports.ConfigStore) (*State, error) {
	cfg, found, err := store.LoadAutopilot(ctx)
	if err != nil {
		return nil, fmt.Errorf("autobuy.LoadState: %w", err)
	}
	if !found {
		cfg = domain.DefaultAutopilotConfig()
	}
	if cfg.Blacklist == nil {
		cfg.Blacklist = make(map[string]bool)
	}
	if cfg.LastAttempted == nil {
		cfg.LastAttempted = make(map[string]time.Time)
	}
	return &State{store: store, cfg: cfg}, nil
}

// Get returns a copy of the current configuration. Maps are copied so the
// caller can't mutate shared state behind the lock's back.
func (s *State) Get() domain.AutopilotConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyConfig(s.cfg)
}

// Update applies fn to the configuration and persists the result.
func (s *State) Update(ctx context.Context, fn func(*domain.AutopilotConfig)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := copyConfig(s.cfg)
	fn(&next)
	if err := s.store.SaveAutopilot(ctx, next); err != nil {
		return fmt.Errorf("autobuy.Update: persist: %w", err)
	}
	s.cfg = next
	return nil
}

func copyConfig(cfg domain.AutopilotConfig) domain.AutopilotConfig {
	out := cfg
	out.Gates = append([]domain.HorizonGate(nil), cfg.Gates...)
	out.Blacklist = make(map[string]bool, len(cfg.Blacklist))
	for k, v := range cfg.Blacklist {
		out.Blacklist[k] = v
	}
	out.LastAttempted = make(map[string]time.Time, len(cfg.LastAttempted))
	for k, v := range cfg.LastAttempted {
		out.LastAttempted[k] = v
	}
	return out
}
