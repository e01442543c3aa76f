package ws

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handler processes one inbound frame. It is called sequentially per
// connection, in arrival order.
type Handler interface {
	Dispatch(ctx context.Context, c Conn, raw []byte)
}

type Config struct {
	SendBuffer      int
	MaxMessageBytes int64
	AuthTimeout     time.Duration
	PongWait        time.Duration
	WriteWait       time.Duration
	AllowedOrigins  []string
}

func (c *Config) norm() {
	if c.SendBuffer <= 0 {
		c.SendBuffer = 256
	}
	if c.MaxMessageBytes <= 0 {
		c.MaxMessageBytes = 64 << 10
	}
	if c.AuthTimeout <= 0 {
		c.AuthTimeout = 30 * time.Second
	}
	if c.PongWait <= 0 {
		c.PongWait = 60 * time.Second
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 10 * time.Second
	}
}

func (c Config) pingPeriod() time.Duration { return c.PongWait * 9 / 10 }

// Server upgrades HTTP requests and runs the per-connection loops.
type Server struct {
	gate     *Gate
	registry *Registry
	handler  Handler
	cfg      Config
	upgrader websocket.Upgrader
	log      *zap.Logger

	mu      sync.Mutex
	clients map[*Client]struct{}
}

func NewServer(gate *Gate, registry *Registry, handler Handler, cfg Config, log *zap.Logger) *Server {
	cfg.norm()
	s := &Server{
		gate:     gate,
		registry: registry,
		handler:  handler,
		cfg:      cfg,
		log:      log.Named("ws"),
		clients:  make(map[*Client]struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, o := range s.cfg.AllowedOrigins {
		if o == origin {
			return true
		}
	}
	return false
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Info("upgrade failed", zap.Error(err))
		return
	}
	c := newClient(conn, s.cfg.SendBuffer)
	s.track(c)
	go c.writePump(s.cfg)
	go s.readLoop(c)
}

func (s *Server) readLoop(c *Client) {
	log := s.log.With(zap.String("conn", c.id))

	authTimer := time.AfterFunc(s.cfg.AuthTimeout, func() {
		if _, ok := s.registry.IdentityOf(c); !ok {
			log.Info("closing unauthenticated connection")
			c.Close()
		}
	})

	defer func() {
		authTimer.Stop()
		c.Close()
		s.untrack(c)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.gate.Disconnect(ctx, c)
	}()

	c.conn.SetReadLimit(s.cfg.MaxMessageBytes)
	c.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.gate.Heartbeat(ctx, c)
		return nil
	})

	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				log.Info("read error", zap.Error(err))
			} else if ne, ok := err.(net.Error); ok && ne.Timeout() {
				log.Info("read timeout")
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		s.handler.Dispatch(context.Background(), c, data)
	}
}

func (s *Server) track(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c] = struct{}{}
}

func (s *Server) untrack(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, c)
}

// CloseAll closes every open connection. Used on shutdown.
func (s *Server) CloseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		c.Close()
	}
}

// Connections returns the number of open connections, authenticated or not.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}
