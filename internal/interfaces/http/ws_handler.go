package http

import (
	"context"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/tutorlab-api/internal/application/auth"
	"github.com/jhoicas/tutorlab-api/internal/domain/entity"
	"github.com/jhoicas/tutorlab-api/internal/infrastructure/ws"
	"github.com/jhoicas/tutorlab-api/pkg/logger"
)

// WSHandler canal websocket autenticado en el handshake.
type WSHandler struct {
	hub *ws.Hub
	log *logger.Logger
}

// NewWSHandler construye el handler.
func NewWSHandler(hub *ws.Hub, log *logger.Logger) *WSHandler {
	return &WSHandler{hub: hub, log: log.Component("ws_handler")}
}

// Upgrade rechaza peticiones que no son handshake websocket y autentica con la cookie antes
// de aceptar la conexión.
func (h *WSHandler) Upgrade(guard *auth.Guard) fiber.Handler {
	authn := RequireAnyRole(guard)
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return authn(c)
	}
}

// Serve registra la conexión y responde "WS Pong: <texto>" a cada mensaje de texto.
func (h *WSHandler) Serve() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		user, _ := conn.Locals(LocalUser).(*entity.User)
		if user == nil {
			_ = conn.Close()
			return
		}
		ctx := context.Background()
		client, err := h.hub.Register(ctx, user.ID, wsConn{conn})
		if err != nil {
			h.log.Warn().Err(err).Int64("user_id", user.ID).Msg("registro websocket rechazado")
			_ = conn.Close()
			return
		}
		// la conexión vuelve al pool de contrib/websocket al salir; el escritor debe haber terminado
		defer func() {
			h.hub.Unregister(client)
			<-client.Done()
		}()

		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if mt != websocket.TextMessage {
				continue
			}
			if err := h.hub.Reply(ctx, client, "WS Pong: "+string(data)); err != nil {
				return
			}
		}
	})
}

// wsConn adapta *websocket.Conn al transporte del hub.
type wsConn struct {
	c *websocket.Conn
}

func (w wsConn) WriteText(msg string) error {
	return w.c.WriteMessage(websocket.TextMessage, []byte(msg))
}

func (w wsConn) Close() error { return w.c.Close() }
