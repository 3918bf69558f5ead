package control

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/alejandrodnm/mintbot/internal/ports"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// El endpoint escucha solo en loopback; el origen no aporta nada aquí.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// AllowList es un Authorizer estático sobre una lista de sender IDs.
// Una lista vacía permite todo (modo local).
type AllowList map[string]bool

// NewAllowList construye el allow-list desde una lista de IDs.
func NewAllowList(ids []string) AllowList {
	list := make(AllowList, len(ids))
	for _, id := range ids {
		list[id] = true
	}
	return list
}

// Allowed implementa ports.Authorizer.
func (a AllowList) Allowed(senderID string) bool {
	if len(a) == 0 {
		return true
	}
	return a[senderID]
}

// Server expone el dispatcher por websocket: cada mensaje de texto es un
// comando, cada comando produce exactamente una respuesta de texto.
type Server struct {
	dispatcher *Dispatcher
	auth       ports.Authorizer
	addr       string
}

// NewServer crea el servidor de control.
func NewServer(dispatcher *Dispatcher, auth ports.Authorizer, addr string) *Server {
	return &Server{dispatcher: dispatcher, auth: auth, addr: addr}
}

// Run levanta el endpoint y lo apaga limpiamente cuando ctx se cancela.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/control", s.handleWS(ctx))

	srv := &http.Server{Addr: s.addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("control server listening", "addr", s.addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("control server stopped")
	return nil
}

// handleWS atiende una conexión de operador. El sender se identifica con
// el query param "id" y se valida contra el Authorizer antes del upgrade.
func (s *Server) handleWS(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		senderID := r.URL.Query().Get("id")
		if !s.auth.Allowed(senderID) {
			slog.Warn("control: rejected sender", "id", senderID, "remote", r.RemoteAddr)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("control: upgrade failed", "err", err)
			return
		}
		defer conn.Close()

		slog.Info("control: operator connected", "id", senderID, "remote", r.RemoteAddr)

		conn.SetReadLimit(maxMessageSize)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})

		for {
			msgType, raw, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					slog.Warn("control: read error", "id", senderID, "err", err)
				}
				return
			}
			conn.SetReadDeadline(time.Now().Add(pongWait))
			if msgType != websocket.TextMessage {
				continue
			}

			line := string(raw)
			slog.Info("control: command", "id", senderID, "line", line)

			reply := s.dispatcher.Handle(ctx, line)

			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(reply)); err != nil {
				slog.Warn("control: write error", "id", senderID, "err", err)
				return
			}
		}
	}
}
