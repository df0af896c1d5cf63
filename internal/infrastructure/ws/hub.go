// Package ws mantiene el registro de conexiones de larga duración (usuario -> conexión).
//
// El mapa pertenece a una única goroutine (Hub.Run); Register, Unregister, SendTo, Broadcast y
// Count son mensajes hacia ella. Cada cliente tiene su propio escritor con buffer, así que un
// cliente lento nunca bloquea al dueño: si su buffer se llena se le desconecta.
package ws

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/jhoicas/tutorlab-api/internal/infrastructure/metrics"
	"github.com/jhoicas/tutorlab-api/pkg/logger"
)

var (
	// ErrHubStopped el hub ya no acepta mensajes.
	ErrHubStopped = errors.New("ws: hub detenido")
	// ErrNotConnected el usuario no tiene conexión registrada.
	ErrNotConnected = errors.New("ws: usuario sin conexión")
)

const outboundBuffer = 32

// Conn transporte mínimo que necesita el hub.
type Conn interface {
	WriteText(msg string) error
	Close() error
}

// Client una conexión registrada.
type Client struct {
	ID     string
	UserID int64
	conn   Conn
	out    chan string
	closed chan struct{}
}

// Done se cierra cuando el escritor terminó y la conexión está cerrada.
func (c *Client) Done() <-chan struct{} { return c.closed }

type direct struct {
	userID int64
	client *Client // si no es nil, solo se entrega si sigue vigente
	msg    string
	reply  chan error
}

// Hub dueño del registro.
type Hub struct {
	log        *logger.Logger
	register   chan *Client
	unregister chan *Client
	direct     chan direct
	broadcast  chan string
	count      chan chan int
	done       chan struct{}
	clients    map[int64]*Client
}

// NewHub crea el hub; hay que arrancarlo con Run.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		log:        log.Component("ws"),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		direct:     make(chan direct),
		broadcast:  make(chan string),
		count:      make(chan chan int),
		done:       make(chan struct{}),
		clients:    make(map[int64]*Client),
	}
}

// Run bucle del dueño. Al cancelar ctx cierra todos los clientes.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, c := range h.clients {
				h.drop(c)
			}
			metrics.WSConnections.Set(0)
			return
		case c := <-h.register:
			if prev, ok := h.clients[c.UserID]; ok {
				h.log.Debug().Int64("user_id", c.UserID).Str("client", prev.ID).Msg("conexión reemplazada")
				h.drop(prev)
			}
			h.clients[c.UserID] = c
			metrics.WSConnections.Set(float64(len(h.clients)))
		case c := <-h.unregister:
			if cur, ok := h.clients[c.UserID]; ok && cur == c {
				h.drop(c)
				metrics.WSConnections.Set(float64(len(h.clients)))
			}
		case d := <-h.direct:
			c, ok := h.clients[d.userID]
			if !ok || (d.client != nil && d.client != c) {
				d.reply <- ErrNotConnected
				continue
			}
			metrics.WSMessagesTotal.WithLabelValues("direct").Inc()
			d.reply <- h.deliver(c, d.msg)
		case msg := <-h.broadcast:
			metrics.WSMessagesTotal.WithLabelValues("broadcast").Inc()
			for _, c := range h.clients {
				_ = h.deliver(c, msg)
			}
			metrics.WSConnections.Set(float64(len(h.clients)))
		case reply := <-h.count:
			reply <- len(h.clients)
		}
	}
}

// deliver encola sin bloquear; si el buffer está lleno desconecta al cliente.
func (h *Hub) deliver(c *Client, msg string) error {
	select {
	case c.out <- msg:
		return nil
	default:
		metrics.WSMessagesTotal.WithLabelValues("dropped").Inc()
		h.log.Warn().Int64("user_id", c.UserID).Str("client", c.ID).Msg("cliente lento desconectado")
		h.drop(c)
		return ErrNotConnected
	}
}

// drop solo lo llama el dueño; cerrar out termina el escritor, que cierra la conexión.
func (h *Hub) drop(c *Client) {
	if cur, ok := h.clients[c.UserID]; ok && cur == c {
		delete(h.clients, c.UserID)
	}
	close(c.out)
}

// Register añade conn para userID, reemplazando cualquier conexión previa del mismo usuario.
func (h *Hub) Register(ctx context.Context, userID int64, conn Conn) (*Client, error) {
	c := &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		conn:   conn,
		out:    make(chan string, outboundBuffer),
		closed: make(chan struct{}),
	}
	select {
	case h.register <- c:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.done:
		return nil, ErrHubStopped
	}
	go h.writeLoop(c)
	return c, nil
}

// Unregister retira c si sigue siendo la conexión vigente de su usuario.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// SendTo mensaje personal a la conexión vigente de userID.
func (h *Hub) SendTo(ctx context.Context, userID int64, msg string) error {
	return h.send(ctx, direct{userID: userID, msg: msg, reply: make(chan error, 1)})
}

// Reply mensaje a una conexión concreta; falla con ErrNotConnected si ya fue reemplazada.
func (h *Hub) Reply(ctx context.Context, c *Client, msg string) error {
	return h.send(ctx, direct{userID: c.UserID, client: c, msg: msg, reply: make(chan error, 1)})
}

func (h *Hub) send(ctx context.Context, d direct) error {
	select {
	case h.direct <- d:
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrHubStopped
	}
	return <-d.reply
}

// Broadcast mensaje para todas las conexiones de este proceso.
func (h *Hub) Broadcast(ctx context.Context, msg string) error {
	select {
	case h.broadcast <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrHubStopped
	}
}

// Count conexiones registradas.
func (h *Hub) Count(ctx context.Context) (int, error) {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-h.done:
		return 0, ErrHubStopped
	}
	return <-reply, nil
}

func (h *Hub) writeLoop(c *Client) {
	defer close(c.closed)
	defer c.conn.Close()
	for msg := range c.out {
		if err := c.conn.WriteText(msg); err != nil {
			h.log.Debug().Err(err).Str("client", c.ID).Msg("escritura websocket fallida")
			h.Unregister(c)
			// vaciar hasta que el dueño cierre out
			for range c.out {
			}
			return
		}
	}
}
