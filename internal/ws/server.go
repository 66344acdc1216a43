package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/tvanlaerhoven/cavy-cli/internal/metrics"
	"github.com/tvanlaerhoven/cavy-cli/internal/run"
	"github.com/tvanlaerhoven/cavy-cli/internal/screenshot"
)

// Sink receives everything read from agent connections. *run.Coordinator
// implements it.
type Sink interface {
	Connected(ctx context.Context, remote string) error
	Deliver(ctx context.Context, remote string, data []byte) error
	Disconnected(ctx context.Context, remote string) error
	Status(ctx context.Context) (run.Status, error)
}

// Server accepts agent websocket connections on "/" and serves a few
// operator endpoints next to it.
type Server struct {
	sink     Sink
	capturer *screenshot.Capturer
	metrics  *metrics.Metrics
	logger   *log.Logger
	upgrader websocket.Upgrader

	// ctx scopes the background work started by handlers (read loops,
	// screenshots); it outlives individual requests.
	ctx context.Context
}

// NewServer builds a server feeding sink. capturer and m may be nil, which
// disables the matching endpoint.
func NewServer(ctx context.Context, sink Sink, capturer *screenshot.Capturer, m *metrics.Metrics, logger *log.Logger) *Server {
	s := &Server{
		sink:     sink,
		capturer: capturer,
		metrics:  m,
		logger:   logger,
		ctx:      ctx,
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: checkOrigin}
	return s
}

func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", s.handleWS)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/screenshot", s.handleScreenshot)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade error", "remote", r.RemoteAddr, "err", err)
		return
	}

	remote := r.RemoteAddr
	if err := s.sink.Connected(s.ctx, remote); err != nil {
		conn.Close()
		return
	}

	go s.readLoop(conn, remote)
}

// readLoop forwards every data frame to the sink in the order it was read.
func (s *Server) readLoop(conn *websocket.Conn, remote string) {
	defer conn.Close()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("ws read error", "remote", remote, "err", err)
			}
			s.sink.Disconnected(s.ctx, remote)
			return
		}
		if err := s.sink.Deliver(s.ctx, remote, data); err != nil {
			return
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	st, err := s.sink.Status(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(st)
}

func (s *Server) handleScreenshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.capturer == nil {
		http.Error(w, "screenshots not available", http.StatusServiceUnavailable)
		return
	}

	s.capturer.CaptureAsync(s.ctx, r.URL.Query().Get("platform"))
	w.WriteHeader(http.StatusAccepted)
}

// loopbackHosts are origin hostnames that always refer to this machine.
var loopbackHosts = map[string]bool{
	"localhost": true,
	"127.0.0.1": true,
	"::1":       true,
}

// checkOrigin admits native agents, which send no Origin header, and
// browser agents served from this host or a loopback address.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Host == r.Host || loopbackHosts[u.Hostname()]
}

// NewHTTPServer wraps handler in an http.Server bound to addr.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
