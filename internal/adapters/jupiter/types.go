package jupiter

import "encoding/json"

// quoteResponse es la respuesta cruda del endpoint /quote.
// El payload completo se conserva opaco: el builder de swaps lo consume
// tal cual, sin que el core interprete la ruta.
type quoteResponse struct {
	InputMint      string `json:"inputMint"`
	OutputMint     string `json:"outputMint"`
	InAmount       string `json:"inAmount"`
	OutAmount      string `json:"outAmount"`
	PriceImpactPct string `json:"priceImpactPct"`
}

// swapRequest es el body del endpoint /swap.
type swapRequest struct {
	QuoteResponse             json.RawMessage `json:"quoteResponse"`
	UserPublicKey             string          `json:"userPublicKey"`
	WrapAndUnwrapSol          bool            `json:"wrapAndUnwrapSol"`
	PrioritizationFeeLamports uint64          `json:"prioritizationFeeLamports,omitempty"`
}

// swapResponse es la respuesta del endpoint /swap.
type swapResponse struct {
	SwapTransaction string `json:"swapTransaction"` // base64
}

// apiError es el formato de error del agregador.
type apiError struct {
	Error     string `json:"error"`
	ErrorCode string `json:"errorCode"`
}
