// Package screener implementa una fuente de candidatos sobre un screener
// de liquidez HTTP estilo DexScreener. Es la alternativa al feed de
// momentum cuando el websocket no está disponible.
package screener

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/alejandrodnm/mintbot/internal/domain"
	"golang.org/x/time/rate"
)

const (
	requestTimeout = 10 * time.Second
	maxProfiles    = 30
	// El screener público limita a ~60 req/min por endpoint.
	requestsPerSecond = 1
	burstSize         = 2
)

// Client consulta los perfiles recientes del screener y los convierte en
// candidatos con métricas por ventana.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient crea el cliente contra el base URL dado.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: requestTimeout},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burstSize),
	}
}

// tokenProfile es una entrada de /token-profiles/latest/v1.
type tokenProfile struct {
	ChainID      string `json:"chainId"`
	TokenAddress string `json:"tokenAddress"`
}

// pairsResponse es la respuesta de /latest/dex/tokens/{mint}.
type pairsResponse struct {
	Pairs []pair `json:"pairs"`
}

type pair struct {
	ChainID   string `json:"chainId"`
	BaseToken struct {
		Address string `json:"address"`
	} `json:"baseToken"`
	Txns        map[string]txnCount `json:"txns"`
	PriceChange map[string]float64  `json:"priceChange"`
	Liquidity   struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
}

type txnCount struct {
	Buys  int `json:"buys"`
	Sells int `json:"sells"`
}

// Candidates implementa ports.CandidateSource: pide los perfiles de token
// recientes en Solana y construye métricas para las ventanas pedidas.
func (c *Client) Candidates(ctx context.Context, windows []time.Duration) ([]domain.Candidate, error) {
	profiles, err := c.latestProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("screener.Candidates: %w", err)
	}

	var cands []domain.Candidate
	for _, p := range profiles {
		if p.ChainID != "solana" || p.TokenAddress == "" {
			continue
		}
		metrics, err := c.metricsFor(ctx, p.TokenAddress, windows)
		if err != nil {
			slog.Debug("screener: skipping token", "mint", p.TokenAddress, "err", err)
			continue
		}
		if len(metrics) == 0 {
			continue
		}
		cands = append(cands, domain.Candidate{Mint: p.TokenAddress, Metrics: metrics})
	}
	return cands, nil
}

// latestProfiles devuelve los perfiles de token más recientes.
func (c *Client) latestProfiles(ctx context.Context) ([]tokenProfile, error) {
	var profiles []tokenProfile
	if err := c.get(ctx, "/token-profiles/latest/v1", &profiles); err != nil {
		return nil, err
	}
	if len(profiles) > maxProfiles {
		profiles = profiles[:maxProfiles]
	}
	return profiles, nil
}

// metricsFor consulta los pares del token y proyecta sus buckets fijos
// (m5, h1, h24...) sobre las ventanas pedidas.
func (c *Client) metricsFor(ctx context.Context, mint string, windows []time.Duration) ([]domain.WindowMetrics, error) {
	var resp pairsResponse
	if err := c.get(ctx, "/latest/dex/tokens/"+mint, &resp); err != nil {
		return nil, err
	}

	// Elegir el par con más liquidez cuyo base token sea el mint.
	var best *pair
	for i := range resp.Pairs {
		p := &resp.Pairs[i]
		if p.ChainID != "solana" || p.BaseToken.Address != mint {
			continue
		}
		if best == nil || p.Liquidity.USD > best.Liquidity.USD {
			best = p
		}
	}
	if best == nil {
		return nil, fmt.Errorf("no solana pair for %s", mint)
	}

	metrics := make([]domain.WindowMetrics, 0, len(windows))
	for _, w := range windows {
		bucket := bucketFor(w)
		metrics = append(metrics, domain.WindowMetrics{
			Window:    w,
			BuyCount:  best.Txns[bucket].Buys,
			ChangePct: best.PriceChange[bucket],
		})
	}
	return metrics, nil
}

// bucketFor mapea una ventana al bucket fijo más cercano del screener.
func bucketFor(w time.Duration) string {
	switch {
	case w <= 5*time.Minute:
		return "m5"
	case w <= time.Hour:
		return "h1"
	case w <= 6*time.Hour:
		return "h6"
	default:
		return "h24"
	}
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, truncate(body, 200))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
