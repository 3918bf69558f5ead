package domain

import "time"

// HorizonGate son los umbrales mínimos que un mint debe superar en una
// ventana temporal concreta para ser candidato de entrada autónoma.
type HorizonGate struct {
	Window       time.Duration
	MinBuyCount  int
	MinChangePct float64
}

// AutopilotConfig es el estado de configuración de entradas autónomas.
// Lo mutan los comandos del canal de control y el bookkeeping del selector;
// cada mutación debe persistirse antes de que la tarea ceda el control.
type AutopilotConfig struct {
	Enabled          bool
	BudgetSOL        float64
	MaxOpenPositions int
	Gates            []HorizonGate
	Cooldown         time.Duration
	RetryCooldown    time.Duration
	Blacklist        map[string]bool
	LastEntryAt      time.Time
	LastAttempted    map[string]time.Time
}

// DefaultGates devuelve los gates por defecto: un horizonte sub-minuto y
// otro multi-minuto. Los valores exactos son configuración, no constantes.
func DefaultGates() []HorizonGate {
	return []HorizonGate{
		{Window: 30 * time.Second, MinBuyCount: 8, MinChangePct: 3.0},
		{Window: 3 * time.Minute, MinBuyCount: 25, MinChangePct: 10.0},
	}
}

// DefaultAutopilotConfig devuelve una configuración apagada y conservadora.
func DefaultAutopilotConfig() AutopilotConfig {
	return AutopilotConfig{
		Enabled:          false,
		BudgetSOL:        0.25,
		MaxOpenPositions: 3,
		Gates:            DefaultGates(),
		Cooldown:         90 * time.Second,
		RetryCooldown:    5 * time.Minute,
		Blacklist:        make(map[string]bool),
		LastAttempted:    make(map[string]time.Time),
	}
}

// CooldownActive devuelve true si el cooldown global desde la última
// entrada exitosa todavía no ha expirado.
func (c AutopilotConfig) CooldownActive(now time.Time) bool {
	if c.LastEntryAt.IsZero() {
		return false
	}
	return now.Sub(c.LastEntryAt) < c.Cooldown
}

// RetryActive devuelve true si el mint sigue dentro de su cooldown de
// reintento individual, independiente del cooldown global.
func (c AutopilotConfig) RetryActive(mint string, now time.Time) bool {
	last, ok := c.LastAttempted[mint]
	if !ok {
		return false
	}
	return now.Sub(last) < c.RetryCooldown
}

// Blacklisted devuelve true si el mint está excluido permanentemente.
func (c AutopilotConfig) Blacklisted(mint string) bool {
	return c.Blacklist[mint]
}
