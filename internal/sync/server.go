package sync

import (
	"bufio"
	"errors"
	"log/slog"
	"net"
	"sync"
)

// Server accepts line-oriented TCP clients that receive overlay events.
type Server struct {
	Addr string
	Hub  *Hub

	mu sync.Mutex
	ln net.Listener
}

func NewServer(addr string, hub *Hub) *Server {
	return &Server{Addr: addr, Hub: hub}
}

func (s *Server) Run() error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	slog.Info("tcp sync listening", "component", "sync", "addr", ln.Addr().String())

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			continue
		}

		// greet before joining so a concurrent Publish cannot interleave
		s.Hub.Welcome(conn)
		s.Hub.Add(conn)
		slog.Info("tcp client connected", "component", "sync", "remote", conn.RemoteAddr().String())

		go func(c net.Conn) {
			defer func() {
				s.Hub.Remove(c)
				slog.Info("tcp client disconnected", "component", "sync", "remote", c.RemoteAddr().String())
			}()

			// Incoming lines are ignored; reading only detects disconnects.
			sc := bufio.NewScanner(c)
			for sc.Scan() {
			}
		}(conn)
	}
}

// Close stops accepting new clients.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Close()
}
