package ports

import (
	"context"

	"github.com/alejandrodnm/mintbot/internal/domain"
)

// PositionStore persiste el mapa mint → Position. Cada mutación reescribe
// el registro completo, así un crash nunca expone estado a medias.
type PositionStore interface {
	// Get devuelve la posición del mint, si existe.
	Get(ctx context.Context, mint string) (domain.Position, bool, error)

	// All devuelve todas las posiciones abiertas.
	All(ctx context.Context) ([]domain.Position, error)

	// Put inserta o reescribe la posición de forma durable.
	Put(ctx context.Context, pos domain.Position) error

	// Delete elimina la posición del mint. No falla si no existe.
	Delete(ctx context.Context, mint string) error
}

// ConfigStore persiste el AutopilotConfig como registro único.
type ConfigStore interface {
	// LoadAutopilot devuelve la configuración persistida, o (zero, false)
	// si nunca se guardó.
	LoadAutopilot(ctx context.Context) (domain.AutopilotConfig, bool, error)

	// SaveAutopilot reescribe la configuración completa.
	SaveAutopilot(ctx context.Context, cfg domain.AutopilotConfig) error
}
