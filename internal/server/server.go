// Package server accepts client connections for a table, over plain TCP and
// optionally over WebSocket, and runs one Session per connection.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/lox/tcpoker/internal/table"
)

// shutdownWait bounds how long Serve waits for the HTTP listener to drain.
const shutdownWait = 5 * time.Second

// Options configures the listeners.
type Options struct {
	Address   string // TCP address for line-delimited clients
	WSAddress string // optional HTTP address serving /ws and /health
}

// Server owns the listeners and the live sessions for one table.
type Server struct {
	opts     Options
	table    *table.Table
	logger   *log.Logger
	upgrader websocket.Upgrader

	listener   net.Listener
	wsListener net.Listener
	httpServer *http.Server

	mu       sync.Mutex
	ctx      context.Context
	closing  bool
	sessions map[*Session]struct{}
	wg       sync.WaitGroup
}

// New creates a server for tbl. Call Listen and Serve, or Run.
func New(opts Options, tbl *table.Table, logger *log.Logger) *Server {
	s := &Server{
		opts:   opts,
		table:  tbl,
		logger: logger.WithPrefix("server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		sessions: make(map[*Session]struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	s.httpServer = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	return s
}

// Listen binds the configured addresses.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.opts.Address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.opts.Address, err)
	}
	s.listener = ln

	if s.opts.WSAddress != "" {
		wsln, err := net.Listen("tcp", s.opts.WSAddress)
		if err != nil {
			_ = ln.Close()
			return fmt.Errorf("listen on %s: %w", s.opts.WSAddress, err)
		}
		s.wsListener = wsln
	}
	return nil
}

// Addr returns the TCP listener address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// WSAddr returns the WebSocket listener address, or nil if there is none.
func (s *Server) WSAddr() net.Addr {
	if s.wsListener == nil {
		return nil
	}
	return s.wsListener.Addr()
}

// Run listens and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Serve accepts connections until ctx is cancelled, then closes every
// session and waits for them to finish.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		return errors.New("server is not listening")
	}
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		cfg := s.table.Config()
		s.logger.Info("Listening for players", "addr", s.listener.Addr(), "capacity", cfg.Capacity, "ante", cfg.Ante)
		return s.acceptLoop(gctx)
	})

	if s.wsListener != nil {
		g.Go(func() error {
			s.logger.Info("Listening for WebSocket players", "addr", s.wsListener.Addr())
			if err := s.httpServer.Serve(s.wsListener); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("Shutting down")
		s.mu.Lock()
		s.closing = true
		s.mu.Unlock()
		_ = s.listener.Close()
		if s.wsListener != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
			defer cancel()
			_ = s.httpServer.Shutdown(shutdownCtx)
		}
		s.closeSessions()
		return nil
	})

	err := g.Wait()
	s.wg.Wait()
	return err
}

func (s *Server) acceptLoop(ctx context.Context) error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serve(ctx, newLineTransport(conn))
		}()
	}
}

func (s *Server) serve(ctx context.Context, tr transport) {
	sess := newSession(tr, s.table, s.logger)

	s.mu.Lock()
	s.sessions[sess] = struct{}{}
	total := len(s.sessions)
	s.mu.Unlock()
	s.logger.Info("Client connected", "session", sess.ID(), "remote", tr.RemoteAddr(), "total", total)

	sess.Serve(ctx)
	<-sess.Done()

	s.mu.Lock()
	delete(s.sessions, sess)
	total = len(s.sessions)
	s.mu.Unlock()
	s.logger.Info("Client disconnected", "session", sess.ID(), "player", sess.Name(), "total", total)
}

func (s *Server) closeSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sess := range s.sessions {
		sess.Close()
	}
}

// Sessions returns the number of live connections.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	ctx := s.ctx
	if ctx == nil || s.closing {
		s.mu.Unlock()
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return
	}
	// registered under mu so Serve's final Wait cannot miss it
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}
	s.serve(ctx, newWSTransport(conn))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, "OK")
}
