// Package feed suscribe al feed de momentum por websocket: primero a las
// notificaciones de "new token" y, por cada uno, a sus trade ticks.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/alejandrodnm/mintbot/internal/domain"
	"github.com/gorilla/websocket"
)

const (
	readLimit     = 1 << 20 // 1MB
	readTimeout   = 60 * time.Second
	writeTimeout  = 10 * time.Second
	pingInterval  = 20 * time.Second
	maxReconnects = 8
	baseReconnect = time.Second
)

// WSSource implementa ports.TickSource sobre un websocket estilo
// PumpPortal. Reintenta la conexión con backoff; cierra el canal de ticks
// cuando agota los reintentos o el contexto se cancela.
type WSSource struct {
	url string
}

// NewWSSource crea la fuente contra el URL dado.
func NewWSSource(url string) *WSSource {
	return &WSSource{url: url}
}

// subscribeMsg es el mensaje de suscripción saliente.
type subscribeMsg struct {
	Method string   `json:"method"`
	Keys   []string `json:"keys,omitempty"`
}

// feedMsg cubre los dos tipos de mensaje entrantes: creación de token y
// trade tick.
type feedMsg struct {
	TxType    string  `json:"txType"` // "create" | "buy" | "sell"
	Mint      string  `json:"mint"`
	SolAmount float64 `json:"solAmount"`
	// precio implícito: SOL por token, derivado de los amounts del tick
	TokenAmount   float64 `json:"tokenAmount"`
	VSolInCurve   float64 `json:"vSolInBondingCurve"`
	VTokensInCurve float64 `json:"vTokensInBondingCurve"`
}

// Subscribe arranca el loop de lectura en una goroutine y devuelve el
// canal de ticks.
func (s *WSSource) Subscribe(ctx context.Context) (<-chan domain.TradeTick, error) {
	ticks := make(chan domain.TradeTick, 1024)
	go s.run(ctx, ticks)
	return ticks, nil
}

// run mantiene la conexión viva con backoff exponencial.
func (s *WSSource) run(ctx context.Context, ticks chan<- domain.TradeTick) {
	defer close(ticks)

	for attempt := 0; attempt <= maxReconnects; attempt++ {
		if ctx.Err() != nil {
			return
		}

		err := s.consume(ctx, ticks)
		if err == nil || ctx.Err() != nil {
			return
		}

		wait := time.Duration(math.Pow(2, float64(attempt))) * baseReconnect
		slog.Warn("feed: connection lost, reconnecting",
			"attempt", attempt+1, "wait", wait, "err", err)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return
		}
	}
	slog.Error("feed: exhausted reconnect attempts", "max", maxReconnects)
}

// consume abre una conexión, se suscribe y bombea ticks hasta que falle.
func (s *WSSource) consume(ctx context.Context, ticks chan<- domain.TradeTick) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("feed.consume: dial %s: %w", s.url, err)
	}
	defer conn.Close()
	slog.Info("feed: connected", "url", s.url)

	conn.SetReadLimit(readLimit)
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	if err := s.send(conn, subscribeMsg{Method: "subscribeNewToken"}); err != nil {
		return fmt.Errorf("feed.consume: subscribe new tokens: %w", err)
	}

	// Cerrar la conexión cuando el contexto muera, para desbloquear ReadMessage.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				conn.Close()
				return
			case <-done:
				return
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("feed.consume: read: %w", err)
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		var msg feedMsg
		if err := json.Unmarshal(raw, &msg); err != nil {
			slog.Debug("feed: unparseable message", "err", err)
			continue
		}

		switch msg.TxType {
		case "create":
			// Nuevo token: suscribirse a sus trades.
			if msg.Mint == "" {
				continue
			}
			if err := s.send(conn, subscribeMsg{Method: "subscribeTokenTrade", Keys: []string{msg.Mint}}); err != nil {
				return fmt.Errorf("feed.consume: subscribe trades %s: %w", msg.Mint, err)
			}
			slog.Debug("feed: tracking new token", "mint", msg.Mint)

		case "buy", "sell":
			tick, ok := mapTick(msg)
			if !ok {
				continue
			}
			select {
			case ticks <- tick:
			default:
				slog.Warn("feed: tick buffer full, dropping", "mint", tick.Mint)
			}
		}
	}
}

func (s *WSSource) send(conn *websocket.Conn, msg subscribeMsg) error {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(msg)
}

// mapTick convierte un mensaje de trade al modelo de dominio. El precio se
// deriva de las reservas de la curva (SOL por token).
func mapTick(msg feedMsg) (domain.TradeTick, bool) {
	if msg.Mint == "" {
		return domain.TradeTick{}, false
	}

	side := domain.SideBuy
	if msg.TxType == "sell" {
		side = domain.SideSell
	}

	price := 0.0
	if msg.VTokensInCurve > 0 {
		price = msg.VSolInCurve / msg.VTokensInCurve
	} else if msg.TokenAmount > 0 {
		price = msg.SolAmount / msg.TokenAmount
	}
	if price <= 0 {
		return domain.TradeTick{}, false
	}

	return domain.TradeTick{
		Mint:      msg.Mint,
		Side:      side,
		Price:     price,
		AmountSOL: msg.SolAmount,
		At:        time.Now().UTC(),
	}, true
}
