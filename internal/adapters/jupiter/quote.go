package jupiter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/alejandrodnm/mintbot/internal/domain"
)

// Quote pide una ruta ejecutable para cambiar amountRaw de inputMint a
// outputMint con el slippage dado. Implementa ports.RouteProvider.
func (c *Client) Quote(ctx context.Context, inputMint, outputMint string, amountRaw uint64, slippageBps int) (domain.Route, error) {
	q := url.Values{}
	q.Set("inputMint", inputMint)
	q.Set("outputMint", outputMint)
	q.Set("amount", strconv.FormatUint(amountRaw, 10))
	q.Set("slippageBps", strconv.Itoa(slippageBps))

	var raw json.RawMessage
	if err := c.get(ctx, c.baseURL+"/quote?"+q.Encode(), &raw); err != nil {
		var httpErr *httpError
		if errors.As(err, &httpErr) && isNoRoute(httpErr.body) {
			return domain.Route{}, fmt.Errorf("jupiter.Quote: %s→%s amount=%d: %w",
				short(inputMint), short(outputMint), amountRaw, domain.ErrNoRoute)
		}
		return domain.Route{}, fmt.Errorf("jupiter.Quote: %w", err)
	}

	var resp quoteResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return domain.Route{}, fmt.Errorf("jupiter.Quote: parse quote: %w", err)
	}

	return mapRoute(resp, raw, slippageBps)
}

// BuildSwap convierte una ruta cotizada en una transacción sin firmar para
// el wallet dado.
func (c *Client) BuildSwap(ctx context.Context, route domain.Route, wallet string) ([]byte, error) {
	req := swapRequest{
		QuoteResponse:             json.RawMessage(route.Payload),
		UserPublicKey:             wallet,
		WrapAndUnwrapSol:          true,
		PrioritizationFeeLamports: c.priorityFeeLamports,
	}

	var resp swapResponse
	if err := c.post(ctx, c.baseURL+"/swap", req, &resp); err != nil {
		return nil, fmt.Errorf("jupiter.BuildSwap: %w", err)
	}
	if resp.SwapTransaction == "" {
		return nil, fmt.Errorf("jupiter.BuildSwap: empty swap transaction")
	}

	tx, err := base64.StdEncoding.DecodeString(resp.SwapTransaction)
	if err != nil {
		return nil, fmt.Errorf("jupiter.BuildSwap: decode tx: %w", err)
	}
	return tx, nil
}

// mapRoute convierte la respuesta cruda del agregador al modelo de dominio.
func mapRoute(resp quoteResponse, raw json.RawMessage, slippageBps int) (domain.Route, error) {
	inAmount, err := strconv.ParseUint(resp.InAmount, 10, 64)
	if err != nil {
		return domain.Route{}, fmt.Errorf("jupiter.mapRoute: inAmount %q: %w", resp.InAmount, err)
	}
	outAmount, err := strconv.ParseUint(resp.OutAmount, 10, 64)
	if err != nil {
		return domain.Route{}, fmt.Errorf("jupiter.mapRoute: outAmount %q: %w", resp.OutAmount, err)
	}

	// priceImpactPct llega como fracción ("0.0123" = 1.23%)
	impact := 0.0
	if resp.PriceImpactPct != "" {
		frac, err := strconv.ParseFloat(resp.PriceImpactPct, 64)
		if err != nil {
			return domain.Route{}, fmt.Errorf("jupiter.mapRoute: priceImpactPct %q: %w", resp.PriceImpactPct, err)
		}
		impact = frac * 100
	}

	return domain.Route{
		InputMint:    resp.InputMint,
		OutputMint:   resp.OutputMint,
		InAmountRaw:  inAmount,
		OutAmountRaw: outAmount,
		PriceImpact:  impact,
		SlippageBps:  slippageBps,
		Payload:      raw,
	}, nil
}

// isNoRoute detecta la respuesta "no hay ruta" del agregador.
func isNoRoute(body []byte) bool {
	var apiErr apiError
	if json.Unmarshal(body, &apiErr) == nil && apiErr.ErrorCode != "" {
		return strings.Contains(apiErr.ErrorCode, "ROUTE")
	}
	return strings.Contains(string(body), "COULD_NOT_FIND_ANY_ROUTE")
}

// short acorta un mint para los mensajes de error.
func short(mint string) string {
	if len(mint) <= 8 {
		return mint
	}
	return mint[:4] + ".." + mint[len(mint)-4:]
}
