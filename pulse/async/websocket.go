package async

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/teranos/maestro/errors"
	"github.com/teranos/maestro/logger"
)

const (
	wsSendBuffer   = 64
	wsWriteTimeout = 5 * time.Second
)

// WebSocketServer is a second control channel. Each text message may carry
// one or more command lines; they are submitted exactly like stdin lines.
// Every response line is broadcast to all connected clients.
type WebSocketServer struct {
	proc     *Processor
	upgrader websocket.Upgrader
	rps      float64
	log      *zap.SugaredLogger

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn
	send chan string
}

// NewWebSocketServer serves control commands for p, limiting each
// connection to ratePerSecond messages (0 disables the limit).
func NewWebSocketServer(p *Processor, ratePerSecond float64, log *zap.SugaredLogger) *WebSocketServer {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &WebSocketServer{
		proc: p,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  2048,
			WriteBufferSize: 2048,
			CheckOrigin:     checkOrigin,
		},
		rps:     ratePerSecond,
		log:     log,
		clients: make(map[*wsClient]struct{}),
	}
}

// checkOrigin accepts clients without an Origin header and browsers on localhost.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return strings.HasPrefix(origin, "http://localhost") ||
		strings.HasPrefix(origin, "https://localhost") ||
		strings.HasPrefix(origin, "http://127.0.0.1")
}

func (s *WebSocketServer) limiter() *rate.Limiter {
	if s.rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := int(s.rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(s.rps), burst)
}

// Respond implements Responder by broadcasting to every client. A client
// whose buffer is full misses the line rather than stalling the loop.
func (s *WebSocketServer) Respond(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- line:
		default:
			s.log.Warnw("Dropping response for slow websocket client", logger.FieldAddress, c.conn.RemoteAddr().String())
		}
	}
}

// Clients returns the number of connected clients.
func (s *WebSocketServer) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *WebSocketServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnw("WebSocket upgrade failed", logger.FieldAddress, r.RemoteAddr, logger.FieldError, err)
		return
	}
	c := &wsClient{conn: conn, send: make(chan string, wsSendBuffer)}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.log.Infow("Control client connected", logger.FieldAddress, r.RemoteAddr)

	ctx, cancel := context.WithCancel(r.Context())
	go s.writeLoop(ctx, c)

	s.readLoop(ctx, c)

	cancel()
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	conn.Close()
	s.log.Infow("Control client disconnected", logger.FieldAddress, r.RemoteAddr)
}

func (s *WebSocketServer) readLoop(ctx context.Context, c *wsClient) {
	limiter := s.limiter()
	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debugw("WebSocket read ended", logger.FieldError, err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		for _, line := range strings.Split(string(data), "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			if err := s.proc.Submit(ctx, line); err != nil {
				return
			}
		}
	}
}

func (s *WebSocketServer) writeLoop(ctx context.Context, c *wsClient) {
	for {
		select {
		case <-ctx.Done():
			return
		case line := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
				s.log.Debugw("WebSocket write failed", logger.FieldError, err)
				return
			}
		}
	}
}

// ListenAndServe serves the control endpoint at /dbops until ctx ends or the
// processor stops.
func (s *WebSocketServer) ListenAndServe(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/dbops", s)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", addr)
	}
	return serve(ctx, s.proc.Done(), ln, mux, s.log)
}

// serve runs an HTTP server on ln until ctx ends or stop closes.
func serve(ctx context.Context, stop <-chan struct{}, ln net.Listener, h http.Handler, log *zap.SugaredLogger) error {
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Infow("Serving", logger.FieldAddress, ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "serve")
	}
	return nil
}

// ServeMetrics exposes m at /metrics on addr until ctx ends or the
// processor stops.
func (p *Processor) ServeMetrics(ctx context.Context, addr string, m *Metrics) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", addr)
	}
	return serve(ctx, p.done, ln, mux, p.log)
}
