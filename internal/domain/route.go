package domain

// WSOLMint es el mint de wrapped SOL, la pata nativa de todas las rutas.
const WSOLMint = "So11111111111111111111111111111111111111112"

// Route es una ruta ejecutable devuelta por el agregador para un par
// entrada/salida y una cantidad concreta.
type Route struct {
	InputMint    string
	OutputMint   string
	InAmountRaw  uint64  // cantidad de entrada esperada, unidades base
	OutAmountRaw uint64  // cantidad de salida esperada, unidades base
	PriceImpact  float64 // impacto estimado, en porcentaje (0.8 = 0.8%)
	SlippageBps  int
	Payload      []byte // ruta opaca que el builder de swaps consume tal cual
}

// BuyResult es el resultado agregado de una compra fragmentada.
type BuyResult struct {
	ReceivedRaw uint64
	SpentSOL    float64
	Shards      int
}

// SellResult es el resultado agregado de una venta fragmentada.
type SellResult struct {
	ReceivedSOL float64
	Shards      int
}
