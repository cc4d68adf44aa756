package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// StreamPath is the HTTP path subscribers connect to.
const StreamPath = "/stream"

// Server accepts websocket subscribers and fans pose-stream messages out
// to them. Broadcast is called from the game loop; sessions are added and
// removed by the HTTP and I/O goroutines.
type Server struct {
	listener net.Listener
	http     *http.Server
	upgrader websocket.Upgrader

	nextID       atomic.Uint64
	mu           sync.Mutex
	sessions     map[uint64]*Session
	outSize      int
	writeTimeout time.Duration

	log *zap.Logger
}

func NewServer(bindAddr string, outSize int, writeTimeout time.Duration, log *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, err
	}
	s := &Server{
		listener: ln,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		sessions:     make(map[uint64]*Session),
		outSize:      outSize,
		writeTimeout: writeTimeout,
		log:          log,
	}
	mux := http.NewServeMux()
	mux.HandleFunc(StreamPath, s.handleStream)
	s.http = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	return s, nil
}

// Serve runs in its own goroutine until Shutdown.
func (s *Server) Serve() {
	if err := s.http.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Error("stream server stopped", zap.Error(err))
	}
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	id := s.nextID.Add(1)
	sess := NewSession(conn, id, s.outSize, s.writeTimeout, s.log)
	sess.onClose = s.remove

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	sess.Start()
	s.log.Info("subscriber connected", zap.Uint64("session", id), zap.String("ip", sess.IP))
}

func (s *Server) remove(sess *Session) {
	s.mu.Lock()
	delete(s.sessions, sess.ID)
	s.mu.Unlock()
	s.log.Info("subscriber disconnected", zap.Uint64("session", sess.ID))
}

// Broadcast sends one encoded message to every subscriber and returns how
// many accepted it.
func (s *Server) Broadcast(data []byte) (int, error) {
	pm, err := websocket.NewPreparedMessage(websocket.TextMessage, data)
	if err != nil {
		return 0, fmt.Errorf("prepare message: %w", err)
	}
	sent := 0
	for _, sess := range s.snapshot() {
		if sess.Send(pm) {
			sent++
		}
	}
	return sent, nil
}

// snapshot copies the session list so Send can close sessions (which
// takes mu) while iterating.
func (s *Server) snapshot() []*Session {
	s.mu.Lock()
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// NumSessions returns the number of connected subscribers.
func (s *Server) NumSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Shutdown stops accepting subscribers and closes the connected ones.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	for _, sess := range s.snapshot() {
		sess.Close()
	}
	return err
}

// Addr returns the listener's address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}
