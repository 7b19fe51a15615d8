package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/astaxie/beego/logs"
	"github.com/puzpuzpuz/xsync/v3"
)

const (
	lingerTimeout = 500 * time.Millisecond
	maxDrainBytes = 64 << 10
)

var ErrAddressInUse = errors.New("address already in use")

// NewServer validates config, fills defaults and prepares the document root.
// A nil logger is replaced by one built from config.Log.
func NewServer(config Config, logger *logs.BeeLogger) (Server, error) {
	config = config.withDefaults()
	if err := config.validate(); err != nil {
		return nil, err
	}

	resolver, err := NewResolver(config.DocumentRoot, config.IndexFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if logger == nil {
		if logger, err = newLogger(config.Log); err != nil {
			return nil, err
		}
	}

	return &server{
		config:      config,
		logger:      logger,
		admission:   newAdmission(config.MaxConnections),
		handler:     &requestHandler{resolver: resolver},
		connections: xsync.NewMapOf[int64, trackedConn](xsync.WithPresize(config.MaxConnections)),
	}, nil
}

func (s *server) Start(shutdownCtx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return fmt.Errorf("%w: %s", ErrAddressInUse, s.config.Address)
		}
		return err
	}
	s.listener = listener
	s.acceptDone = make(chan struct{})

	s.logger.Info("TCP Server listening on address %s", listener.Addr())

	go func() {
		<-shutdownCtx.Done()
		s.closeListener()
	}()

	go func() {
		defer close(s.acceptDone)
		for {
			// check if shutdown is triggered before accepting connections
			if shutdownCtx.Err() != nil {
				return
			}

			conn, err := listener.Accept()
			if err != nil {
				if shutdownCtx.Err() != nil || errors.Is(err, net.ErrClosed) {
					return // shutdown in progress
				}

				s.logger.Error("Error accepting connection: %v", err)
				continue // ignore error and try accepting again
			}

			release, ok := s.admission.TryAdmit()
			if !ok {
				s.rejected.Add(1)
				s.logger.Warning("Too many connections: %s rejected", conn.RemoteAddr())
				conn.Close()
				continue
			}

			s.accepted.Add(1)
			s.wg.Add(1)
			go s.handleConnection(shutdownCtx, conn, release)
		}
	}()
	return nil
}

func (s *server) Stop() {
	s.logger.Info("Shutting down...")
	s.closeListener()
	if s.acceptDone != nil {
		<-s.acceptDone
	}

	if !s.waitConnections(s.config.GracePeriod) {
		s.logger.Warning("Grace period exceeded. Closing %d connections in progress.", s.connections.Size())
		s.connections.Range(func(id int64, tc trackedConn) bool {
			tc.cancel()
			tc.conn.Close()
			return true
		})
		s.wg.Wait()
	}

	s.logger.Info("Finished successfully")
	s.logger.Flush()
}

func (s *server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *server) Stats() Stats {
	s.mu.Lock()
	live := s.liveConnections
	s.mu.Unlock()

	return Stats{
		Live:      live,
		Held:      s.admission.Held(),
		Available: s.admission.Available(),
		Accepted:  s.accepted.Load(),
		Rejected:  s.rejected.Load(),
	}
}

func (s *server) closeListener() {
	s.closeOnce.Do(func() {
		if s.listener == nil {
			return
		}
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Error("Error closing listener: %v", err)
		}
	})
}

// waitConnections reports whether every connection task finished within d.
func (s *server) waitConnections(d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(d):
		return false
	}
}

// handleConnection owns conn until it is closed. The permit is released and
// the live count dropped on every path out, panics included.
func (s *server) handleConnection(shutdownCtx context.Context, conn net.Conn, release func()) {
	addr := conn.RemoteAddr()

	connectionID := s.generateConnectionID()
	connectionCtx, cancelConnection := context.WithCancel(shutdownCtx)
	s.connections.Store(connectionID, trackedConn{conn: conn, cancel: cancelConnection})

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Connection error from %s: panic: %v", addr, r)
		}
		release()
		s.updateConnectionCount(-1)
		s.logger.Notice("Closed connection from %s", addr)

		cancelConnection()
		s.connections.Delete(connectionID)
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Debug("Error closing connection from %s: %v", addr, err)
		}
		s.wg.Done()
	}()

	s.updateConnectionCount(1)
	s.logger.Informational("Accepted connection from %s", addr)

	if err := s.applyDeadlines(conn); err != nil {
		s.logger.Error("Connection error from %s: %v", addr, err)
		return
	}

	outcome, err := s.handler.serve(conn)
	if err != nil {
		s.logConnectionError(addr, outcome, err)
		if isBadRequest(err) {
			s.lingerClose(conn)
		}
		return
	}
	s.logger.Debug("Request from %s: %s", addr, outcome)

	// simulate heavy processing while still holding the permit
	select {
	case <-time.After(s.config.ProcessingDelay):
	case <-connectionCtx.Done():
	}
	s.lingerClose(conn)
}

// lingerClose half-closes conn and discards input the request left unread.
// Closing with unread bytes makes the kernel reset the connection, which can
// destroy a response the peer has not read yet.
func (s *server) lingerClose(conn net.Conn) {
	if tc, ok := conn.(*net.TCPConn); ok {
		if err := tc.CloseWrite(); err != nil {
			return
		}
	}
	if err := conn.SetReadDeadline(time.Now().Add(lingerTimeout)); err != nil {
		return
	}
	io.CopyN(io.Discard, conn, maxDrainBytes)
}

func (s *server) applyDeadlines(conn net.Conn) error {
	now := time.Now()
	if s.config.ReadTimeout > 0 {
		if err := conn.SetReadDeadline(now.Add(s.config.ReadTimeout)); err != nil {
			return err
		}
	}
	if s.config.WriteTimeout > 0 {
		readWindow := s.config.ReadTimeout
		if readWindow < 0 {
			readWindow = 0
		}
		if err := conn.SetWriteDeadline(now.Add(readWindow + s.config.WriteTimeout)); err != nil {
			return err
		}
	}
	return nil
}

func (s *server) logConnectionError(addr net.Addr, outcome Outcome, err error) {
	var netErr net.Error
	switch {
	case errors.Is(err, ErrEmptyRequest):
		s.logger.Informational("Connection from %s closed without a request", addr)
	case errors.Is(err, syscall.EPIPE), errors.Is(err, syscall.ECONNRESET):
		s.logger.Error("Connection error from %s: Broken pipe (client disconnected)", addr)
	case errors.As(err, &netErr) && netErr.Timeout():
		s.logger.Error("Connection error from %s: timed out (%s)", addr, outcome)
	default:
		s.logger.Error("Connection error from %s: %v", addr, err)
	}
}

func (s *server) updateConnectionCount(delta int) {
	s.mu.Lock()
	s.liveConnections += delta
	count := s.liveConnections
	s.mu.Unlock()

	s.logger.Informational("Connection count: %d", count)
}

// generateConnectionID generates a unique ID for each connection using atomic operations.
func (s *server) generateConnectionID() int64 {
	return atomic.AddInt64(&s.connectionID, 1)
}
