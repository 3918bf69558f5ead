package domain

import "errors"

// Errores del motor de ejecución y del proveedor de rutas. Se comprueban
// con errors.Is a través de los wraps de cada capa.
var (
	// ErrNoRoute indica que no existe ruta ejecutable para el tamaño pedido.
	ErrNoRoute = errors.New("no viable route")

	// ErrImpactTooHigh indica que el impacto superó el hard cap con el
	// shard ya en tamaño mínimo.
	ErrImpactTooHigh = errors.New("price impact above hard cap")

	// ErrZeroOutput indica que ningún shard llegó a ejecutarse.
	ErrZeroOutput = errors.New("no shard executed, zero output")

	// ErrNothingToSell indica una venta con cantidad cero.
	ErrNothingToSell = errors.New("nothing to sell")
)
