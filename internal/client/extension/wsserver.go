package extension

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/noodlevault/noodlevault/internal/logging"
)

const (
	inboundQueueSize = 16
	writeWait        = 10 * time.Second
	maxRequestSize   = 64 * 1024
)

var upgrader = websocket.Upgrader{
	// The extension connects from a chrome-extension:// origin; the server
	// only ever binds to loopback.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub tracks connected extension clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*wsClient
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]*wsClient)}
}

func (h *Hub) Clients() []Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	clients := make([]Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	return clients
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c.id)
}

type wsClient struct {
	id      string
	conn    *websocket.Conn
	inbound chan []byte
	writeMu sync.Mutex
}

func (c *wsClient) ID() string { return c.id }

func (c *wsClient) Receive() ([]byte, bool) {
	select {
	case msg := <-c.inbound:
		return msg, true
	default:
		return nil, false
	}
}

func (c *wsClient) Send(message []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, message)
}

// Server accepts extension websocket connections on a loopback address and
// feeds their requests into the hub.
type Server struct {
	addr string
	hub  *Hub
	log  logging.Logger
}

func NewServer(addr string, hub *Hub, log logging.Logger) *Server {
	return &Server{addr: addr, hub: hub, log: log}
}

// Run serves until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.GET("/", s.serve)

	srv := &http.Server{Addr: s.addr, Handler: router}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) serve(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := &wsClient{
		id:      uuid.NewString(),
		conn:    conn,
		inbound: make(chan []byte, inboundQueueSize),
	}
	s.hub.register(client)
	s.log.Debug(c.Request.Context(), "extension client connected", "client", client.id)

	defer func() {
		s.hub.unregister(client)
		_ = conn.Close()
		s.log.Debug(c.Request.Context(), "extension client disconnected", "client", client.id)
	}()

	conn.SetReadLimit(maxRequestSize)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		select {
		case client.inbound <- data:
		default:
			s.log.Warn(c.Request.Context(), "extension request dropped, queue full", "client", client.id)
		}
	}
}
