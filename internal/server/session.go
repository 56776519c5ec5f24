package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/lox/tcpoker/internal/protocol"
	"github.com/lox/tcpoker/internal/table"
)

// sendBuffer is how many outbound frames a session queues before it is
// considered stuck and dropped.
const sendBuffer = 256

// Session is one client connection: the handshake, the read loop feeding
// the table, and a write pump draining queued events.
type Session struct {
	id     string
	tr     transport
	table  *table.Table
	logger *log.Logger

	mu     sync.Mutex
	send   chan []byte
	closed bool
	name   string

	done chan struct{}
}

func newSession(tr transport, tbl *table.Table, logger *log.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		id:     id,
		tr:     tr,
		table:  tbl,
		logger: logger.WithPrefix("session").With("session", id[:8], "remote", tr.RemoteAddr()),
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
}

// ID returns the session's unique id.
func (s *Session) ID() string {
	return s.id
}

// Name returns the seated player name, or "" before the handshake.
func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// Send queues an event for the client. It never blocks; a client that stops
// reading is disconnected once its buffer fills.
func (s *Session) Send(ev protocol.Event) {
	frame, err := protocol.Encode(ev)
	if err != nil {
		s.logger.Error("Failed to encode event", "key", ev.Key(), "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.send <- frame:
	default:
		s.logger.Warn("Send buffer full, closing connection")
		s.closeLocked()
	}
}

// Close stops the session. Queued frames are still flushed before the
// connection is closed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

func (s *Session) closeLocked() {
	if !s.closed {
		s.closed = true
		close(s.send)
	}
}

// Done is closed once the connection has been torn down.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Serve runs the session until the client leaves, the connection fails or
// ctx is cancelled.
func (s *Session) Serve(ctx context.Context) {
	go s.writePump()
	defer s.Close()

	stop := context.AfterFunc(ctx, s.Close)
	defer stop()

	name, err := s.handshake()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			s.logger.Warn("Handshake failed", "error", err)
			s.Send(protocol.ErrorReport(err.Error()))
		}
		return
	}
	if err := s.table.Join(name, s); err != nil {
		s.logger.Warn("Join rejected", "player", name, "error", err)
		s.Send(protocol.ErrorReport(err.Error()))
		return
	}

	s.mu.Lock()
	s.name = name
	s.mu.Unlock()
	defer s.table.Leave(name)

	s.readLoop(name, s.logger.With("player", name))
}

// handshake reads the first non-blank frame, which must name the player.
func (s *Session) handshake() (string, error) {
	for {
		frame, err := s.tr.ReadFrame()
		if err != nil {
			return "", err
		}
		if protocol.IsBlank(frame) {
			s.logger.Debug("Ignored blank frame")
			continue
		}
		name, err := protocol.DecodeHello(frame)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(name), nil
	}
}

func (s *Session) readLoop(name string, logger *log.Logger) {
	for {
		frame, err := s.tr.ReadFrame()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				logger.Info("Connection lost", "error", err)
			} else {
				logger.Debug("Connection closed")
			}
			return
		}
		if protocol.IsBlank(frame) {
			logger.Debug("Ignored blank frame")
			continue
		}

		cmd, err := protocol.DecodeCommand(frame)
		if err != nil {
			logger.Warn("Rejected frame", "frame", string(frame), "error", err)
			s.Send(protocol.ErrorReport(err.Error()))
			continue
		}
		logger.Debug("Received command", "verb", cmd.Verb())

		if _, ok := cmd.(protocol.Exit); ok {
			logger.Info("Player exited")
			return
		}
		if err := s.table.Handle(name, cmd); err != nil {
			logger.Debug("Command rejected", "verb", cmd.Verb(), "error", err)
			s.Send(protocol.ErrorReport(fmt.Sprintf("%s: %v", cmd.Verb(), err)))
		}
	}
}

// writePump writes queued frames until the queue is closed, then closes the
// connection, which also unblocks the reader.
func (s *Session) writePump() {
	defer close(s.done)
	defer func() { _ = s.tr.Close() }()

	for frame := range s.send {
		if err := s.tr.WriteFrame(frame); err != nil {
			s.logger.Debug("Failed to write frame", "error", err)
			s.Close()
			return
		}
	}
}
