package storage

// sqlite.go — estado durable del bot.
//
// Dos registros lógicos:
//   - `positions`: una fila por posición abierta (mint como PK). Cada
//     mutación reescribe la fila completa — un crash entre mutación y
//     persistencia nunca deja estado a medias visible tras el restart.
//   - `autopilot`: fila única (id=1) con la configuración de entradas
//     autónomas. Gates, blacklist y cooldowns por mint van como JSON:
//     son listas pequeñas que siempre se leen/escriben enteras.

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/alejandrodnm/mintbot/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS positions (
    mint               TEXT PRIMARY KEY,
    entry_cost_sol     REAL    NOT NULL,
    entry_received_raw TEXT    NOT NULL,
    take_profit_pct    REAL    NOT NULL,
    stop_loss_pct      REAL    NOT NULL,
    opened_at_ms       INTEGER NOT NULL,
    last_evaluated_ms  INTEGER,
    partial_exit_taken INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS autopilot (
    id                 INTEGER PRIMARY KEY CHECK (id = 1),
    enabled            INTEGER NOT NULL DEFAULT 0,
    budget_sol         REAL    NOT NULL DEFAULT 0,
    max_open_positions INTEGER NOT NULL DEFAULT 0,
    cooldown_ms        INTEGER NOT NULL DEFAULT 0,
    retry_cooldown_ms  INTEGER NOT NULL DEFAULT 0,
    last_entry_ms      INTEGER NOT NULL DEFAULT 0,
    gates              TEXT    NOT NULL DEFAULT '[]',
    blacklist          TEXT    NOT NULL DEFAULT '[]',
    last_attempted     TEXT    NOT NULL DEFAULT '{}'
);
`

// SQLiteStore implementa ports.PositionStore y ports.ConfigStore usando
// SQLite (pure Go, sin CGo).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore abre (o crea) la base de datos en la ruta dada y aplica
// el schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStore: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStore: apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Get devuelve la posición del mint, si existe.
func (s *SQLiteStore) Get(ctx context.Context, mint string) (domain.Position, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT mint, entry_cost_sol, entry_received_raw, take_profit_pct,
		       stop_loss_pct, opened_at_ms, last_evaluated_ms, partial_exit_taken
		FROM positions WHERE mint = ?`, mint)

	pos, err := scanPosition(row)
	if err == sql.ErrNoRows {
		return domain.Position{}, false, nil
	}
	if err != nil {
		return domain.Position{}, false, fmt.Errorf("storage.Get: %w", err)
	}
	return pos, true, nil
}

// All devuelve todas las posiciones abiertas, las más antiguas primero.
func (s *SQLiteStore) All(ctx context.Context) ([]domain.Position, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT mint, entry_cost_sol, entry_received_raw, take_profit_pct,
		       stop_loss_pct, opened_at_ms, last_evaluated_ms, partial_exit_taken
		FROM positions ORDER BY opened_at_ms ASC`)
	if err != nil {
		return nil, fmt.Errorf("storage.All: query: %w", err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.All: scan: %w", err)
		}
		positions = append(positions, pos)
	}
	return positions, rows.Err()
}

// Put inserta o reescribe la posición completa.
func (s *SQLiteStore) Put(ctx context.Context, pos domain.Position) error {
	var lastEval *int64
	if pos.LastEvaluatedAt != nil {
		ms := pos.LastEvaluatedAt.UnixMilli()
		lastEval = &ms
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO positions
			(mint, entry_cost_sol, entry_received_raw, take_profit_pct,
			 stop_loss_pct, opened_at_ms, last_evaluated_ms, partial_exit_taken)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(mint) DO UPDATE SET
			entry_cost_sol     = excluded.entry_cost_sol,
			entry_received_raw = excluded.entry_received_raw,
			take_profit_pct    = excluded.take_profit_pct,
			stop_loss_pct      = excluded.stop_loss_pct,
			opened_at_ms       = excluded.opened_at_ms,
			last_evaluated_ms  = excluded.last_evaluated_ms,
			partial_exit_taken = excluded.partial_exit_taken`,
		pos.Mint,
		pos.EntryCostSOL,
		strconv.FormatUint(pos.EntryReceivedRaw, 10),
		pos.TakeProfitPct,
		pos.StopLossPct,
		pos.OpenedAt.UnixMilli(),
		lastEval,
		boolToInt(pos.PartialExitTaken),
	)
	if err != nil {
		return fmt.Errorf("storage.Put: upsert %s: %w", pos.Mint, err)
	}
	return nil
}

// Delete elimina la posición del mint. No falla si no existe.
func (s *SQLiteStore) Delete(ctx context.Context, mint string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM positions WHERE mint = ?`, mint); err != nil {
		return fmt.Errorf("storage.Delete: %s: %w", mint, err)
	}
	return nil
}

// LoadAutopilot devuelve la configuración persistida, o (zero, false) si
// nunca se guardó.
func (s *SQLiteStore) LoadAutopilot(ctx context.Context) (domain.AutopilotConfig, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT enabled, budget_sol, max_open_positions, cooldown_ms,
		       retry_cooldown_ms, last_entry_ms, gates, blacklist, last_attempted
		FROM autopilot WHERE id = 1`)

	var (
		enabled, maxOpen                    int
		budget                              float64
		cooldownMs, retryMs, lastEntryMs    int64
		gatesJSON, blackJSON, attemptedJSON string
	)
	err := row.Scan(&enabled, &budget, &maxOpen, &cooldownMs,
		&retryMs, &lastEntryMs, &gatesJSON, &blackJSON, &attemptedJSON)
	if err == sql.ErrNoRows {
		return domain.AutopilotConfig{}, false, nil
	}
	if err != nil {
		return domain.AutopilotConfig{}, false, fmt.Errorf("storage.LoadAutopilot: %w", err)
	}

	cfg := domain.AutopilotConfig{
		Enabled:          enabled == 1,
		BudgetSOL:        budget,
		MaxOpenPositions: maxOpen,
		Cooldown:         time.Duration(cooldownMs) * time.Millisecond,
		RetryCooldown:    time.Duration(retryMs) * time.Millisecond,
		Blacklist:        make(map[string]bool),
		LastAttempted:    make(map[string]time.Time),
	}
	if lastEntryMs > 0 {
		cfg.LastEntryAt = time.UnixMilli(lastEntryMs).UTC()
	}

	var gates []gateRecord
	if err := json.Unmarshal([]byte(gatesJSON), &gates); err != nil {
		return domain.AutopilotConfig{}, false, fmt.Errorf("storage.LoadAutopilot: gates: %w", err)
	}
	for _, g := range gates {
		cfg.Gates = append(cfg.Gates, domain.HorizonGate{
			Window:       time.Duration(g.WindowMs) * time.Millisecond,
			MinBuyCount:  g.MinBuyCount,
			MinChangePct: g.MinChangePct,
		})
	}

	var black []string
	if err := json.Unmarshal([]byte(blackJSON), &black); err != nil {
		return domain.AutopilotConfig{}, false, fmt.Errorf("storage.LoadAutopilot: blacklist: %w", err)
	}
	for _, mint := range black {
		cfg.Blacklist[mint] = true
	}

	var attempted map[string]int64
	if err := json.Unmarshal([]byte(attemptedJSON), &attempted); err != nil {
		return domain.AutopilotConfig{}, false, fmt.Errorf("storage.LoadAutopilot: last_attempted: %w", err)
	}
	for mint, ms := range attempted {
		cfg.LastAttempted[mint] = time.UnixMilli(ms).UTC()
	}

	return cfg, true, nil
}

// SaveAutopilot reescribe la configuración completa en la fila única.
func (s *SQLiteStore) SaveAutopilot(ctx context.Context, cfg domain.AutopilotConfig) error {
	gates := make([]gateRecord, 0, len(cfg.Gates))
	for _, g := range cfg.Gates {
		gates = append(gates, gateRecord{
			WindowMs:     g.Window.Milliseconds(),
			MinBuyCount:  g.MinBuyCount,
			MinChangePct: g.MinChangePct,
		})
	}
	gatesJSON, err := json.Marshal(gates)
	if err != nil {
		return fmt.Errorf("storage.SaveAutopilot: gates: %w", err)
	}

	black := make([]string, 0, len(cfg.Blacklist))
	for mint := range cfg.Blacklist {
		black = append(black, mint)
	}
	blackJSON, err := json.Marshal(black)
	if err != nil {
		return fmt.Errorf("storage.SaveAutopilot: blacklist: %w", err)
	}

	attempted := make(map[string]int64, len(cfg.LastAttempted))
	for mint, at := range cfg.LastAttempted {
		attempted[mint] = at.UnixMilli()
	}
	attemptedJSON, err := json.Marshal(attempted)
	if err != nil {
		return fmt.Errorf("storage.SaveAutopilot: last_attempted: %w", err)
	}

	var lastEntryMs int64
	if !cfg.LastEntryAt.IsZero() {
		lastEntryMs = cfg.LastEntryAt.UnixMilli()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO autopilot
			(id, enabled, budget_sol, max_open_positions, cooldown_ms,
			 retry_cooldown_ms, last_entry_ms, gates, blacklist, last_attempted)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			enabled            = excluded.enabled,
			budget_sol         = excluded.budget_sol,
			max_open_positions = excluded.max_open_positions,
			cooldown_ms        = excluded.cooldown_ms,
			retry_cooldown_ms  = excluded.retry_cooldown_ms,
			last_entry_ms      = excluded.last_entry_ms,
			gates              = excluded.gates,
			blacklist          = excluded.blacklist,
			last_attempted     = excluded.last_attempted`,
		boolToInt(cfg.Enabled),
		cfg.BudgetSOL,
		cfg.MaxOpenPositions,
		cfg.Cooldown.Milliseconds(),
		cfg.RetryCooldown.Milliseconds(),
		lastEntryMs,
		string(gatesJSON),
		string(blackJSON),
		string(attemptedJSON),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveAutopilot: upsert: %w", err)
	}
	return nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

// gateRecord es la forma serializada de un HorizonGate.
type gateRecord struct {
	WindowMs     int64   `json:"window_ms"`
	MinBuyCount  int     `json:"min_buy_count"`
	MinChangePct float64 `json:"min_change_pct"`
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanPosition lee una fila de positions. entry_received_raw va como TEXT
// porque los amounts raw no caben con garantía en el INTEGER de SQLite.
func scanPosition(row rowScanner) (domain.Position, error) {
	var (
		pos         domain.Position
		rawStr      string
		openedMs    int64
		lastEvalMs  *int64
		partialExit int
	)
	err := row.Scan(&pos.Mint, &pos.EntryCostSOL, &rawStr, &pos.TakeProfitPct,
		&pos.StopLossPct, &openedMs, &lastEvalMs, &partialExit)
	if err != nil {
		return domain.Position{}, err
	}

	raw, err := strconv.ParseUint(rawStr, 10, 64)
	if err != nil {
		return domain.Position{}, fmt.Errorf("parse entry_received_raw %q: %w", rawStr, err)
	}
	pos.EntryReceivedRaw = raw
	pos.OpenedAt = time.UnixMilli(openedMs).UTC()
	if lastEvalMs != nil {
		t := time.UnixMilli(*lastEvalMs).UTC()
		pos.LastEvaluatedAt = &t
	}
	pos.PartialExitTaken = partialExit == 1
	return pos, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
