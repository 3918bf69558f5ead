package solana

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/alejandrodnm/mintbot/internal/domain"
	"golang.org/x/time/rate"
)

const (
	// Rate limit conservador para RPCs públicos.
	rpcRatePerSec = 10

	confirmPollEvery = 750 * time.Millisecond
	confirmTimeout   = 45 * time.Second
)

// RPCClient habla JSON-RPC con un nodo del venue. Implementa ports.Venue.
type RPCClient struct {
	http    *http.Client
	url     string
	limiter *rate.Limiter
}

// NewRPCClient crea un cliente contra el endpoint dado.
func NewRPCClient(url string, timeout time.Duration) *RPCClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &RPCClient{
		http:    &http.Client{Timeout: timeout},
		url:     url,
		limiter: rate.NewLimiter(rpcRatePerSec, 4),
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// call hace una llamada JSON-RPC y decodifica result en out.
func (c *RPCClient) call(ctx context.Context, method string, params []any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s: status %d: %s", method, resp.StatusCode, string(b))
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("%s: decode: %w", method, err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("%s: %w", method, rpcResp.Error)
	}
	if out != nil {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return fmt.Errorf("%s: unmarshal result: %w", method, err)
		}
	}
	return nil
}

// SubmitAndConfirm envía una transacción firmada y espera confirmación a
// nivel de venue. Falla si el envío da error o la confirmación reporta uno.
func (c *RPCClient) SubmitAndConfirm(ctx context.Context, signedTx []byte) (string, error) {
	encoded := base64.StdEncoding.EncodeToString(signedTx)

	var signature string
	err := c.call(ctx, "sendTransaction",
		[]any{encoded, map[string]any{"encoding": "base64", "skipPreflight": true, "maxRetries": 2}},
		&signature,
	)
	if err != nil {
		return "", fmt.Errorf("solana.SubmitAndConfirm: send: %w", err)
	}

	if err := c.awaitConfirmation(ctx, signature); err != nil {
		return signature, fmt.Errorf("solana.SubmitAndConfirm: confirm %s: %w", signature, err)
	}
	return signature, nil
}

// awaitConfirmation sondea el estado de la firma hasta confirmed/finalized.
func (c *RPCClient) awaitConfirmation(ctx context.Context, signature string) error {
	deadline := time.Now().Add(confirmTimeout)

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(confirmPollEvery):
		}

		var result struct {
			Value []*struct {
				ConfirmationStatus string          `json:"confirmationStatus"`
				Err                json.RawMessage `json:"err"`
			} `json:"value"`
		}
		err := c.call(ctx, "getSignatureStatuses",
			[]any{[]string{signature}, map[string]any{"searchTransactionHistory": false}},
			&result,
		)
		if err != nil {
			return err
		}
		if len(result.Value) == 0 || result.Value[0] == nil {
			continue
		}

		status := result.Value[0]
		if status.Err != nil && string(status.Err) != "null" {
			return fmt.Errorf("transaction failed on venue: %s", string(status.Err))
		}
		if status.ConfirmationStatus == "confirmed" || status.ConfirmationStatus == "finalized" {
			return nil
		}
	}
	return fmt.Errorf("confirmation timed out after %s", confirmTimeout)
}

// TokenBalance devuelve el balance raw del mint en el wallet, sumando todas
// sus token accounts. Cero si no hay holding.
func (c *RPCClient) TokenBalance(ctx context.Context, wallet, mint string) (uint64, error) {
	var result struct {
		Value []struct {
			Account struct {
				Data struct {
					Parsed struct {
						Info struct {
							TokenAmount struct {
								Amount string `json:"amount"`
							} `json:"tokenAmount"`
						} `json:"info"`
					} `json:"parsed"`
				} `json:"data"`
			} `json:"account"`
		} `json:"value"`
	}
	err := c.call(ctx, "getTokenAccountsByOwner",
		[]any{wallet, map[string]any{"mint": mint}, map[string]any{"encoding": "jsonParsed"}},
		&result,
	)
	if err != nil {
		return 0, fmt.Errorf("solana.TokenBalance: %w", err)
	}

	var total uint64
	for _, acc := range result.Value {
		amount, err := strconv.ParseUint(acc.Account.Data.Parsed.Info.TokenAmount.Amount, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("solana.TokenBalance: parse amount: %w", err)
		}
		total += amount
	}
	return total, nil
}

// SOLBalance devuelve el balance nativo del wallet en SOL.
func (c *RPCClient) SOLBalance(ctx context.Context, wallet string) (float64, error) {
	var result struct {
		Value uint64 `json:"value"`
	}
	if err := c.call(ctx, "getBalance", []any{wallet}, &result); err != nil {
		return 0, fmt.Errorf("solana.SOLBalance: %w", err)
	}
	return float64(result.Value) / domain.LamportsPerSOL, nil
}
