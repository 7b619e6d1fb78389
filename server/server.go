// Copyright 2026 The Flouka Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package server exports a registry over TCP.
//
// A client sends one-byte requests and the server answers each in turn:
//
//	0  terminate: the server closes the connection
//	1  information: the information buffer, framed by its own length header
//	2  statistics: the counter values, 4 bytes per counter, unframed
//
// A client must request information before statistics, since the
// statistics response carries no length: the counter count comes from the
// information. Any other request, or statistics first, is a protocol
// violation and ends the session.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/flouka/flouka/wire"
	"github.com/google/uuid"
	"golang.org/x/exp/slog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Request codes.
const (
	RequestTerminate   byte = 0
	RequestInformation byte = 1
	RequestStatistics  byte = 2
)

// ErrProtocol is reported for sessions that break the request protocol.
var ErrProtocol = errors.New("protocol violation")

// A Registry is the part of *flouka.Registry the server uses.
type Registry interface {
	Information() ([]byte, error)
	Snapshot(dst []uint32) ([]uint32, error)
}

// A Server serves one registry.
type Server struct {
	Registry Registry
	Logger   *slog.Logger

	// MaxConns limits the number of concurrent sessions. Further
	// connections wait until a session ends. Zero means no limit.
	MaxConns int

	// IdleTimeout closes sessions that send no request for that long.
	// Zero means no timeout.
	IdleTimeout time.Duration

	// OnStatistics, if set, is called after every statistics response.
	OnStatistics func()

	mu     sync.Mutex
	conns  map[net.Conn]struct{}
	closed bool
}

// ListenAndServe listens on the TCP address addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then closes ln and
// every open session and waits for their goroutines. It returns nil after
// a clean shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	logger := s.logger()
	var sem *semaphore.Weighted
	if s.MaxConns > 0 {
		sem = semaphore.NewWeighted(int64(s.MaxConns))
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		ln.Close()
		s.closeAll()
		return nil
	})
	g.Go(func() error {
		logger.Info("serving statistics", "addr", ln.Addr().String())
		for {
			if sem != nil {
				if err := sem.Acquire(ctx, 1); err != nil {
					return nil
				}
			}
			conn, err := ln.Accept()
			if err != nil {
				if sem != nil {
					sem.Release(1)
				}
				if ctx.Err() != nil {
					return nil
				}
				var ne net.Error
				if errors.As(err, &ne) && ne.Timeout() {
					continue
				}
				return fmt.Errorf("accept: %w", err)
			}
			if !s.track(conn) {
				conn.Close()
				if sem != nil {
					sem.Release(1)
				}
				return nil
			}
			g.Go(func() error {
				defer func() {
					s.untrack(conn)
					if sem != nil {
						sem.Release(1)
					}
				}()
				s.serveConn(conn)
				return nil
			})
		}
	})
	return g.Wait()
}

func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// track records c for shutdown. It reports false once the server is
// shutting down.
func (s *Server) track(c net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	if s.conns == nil {
		s.conns = make(map[net.Conn]struct{})
	}
	s.conns[c] = struct{}{}
	return true
}

func (s *Server) untrack(c net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, c)
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for c := range s.conns {
		c.Close()
	}
}

// session is the state of one connection.
type session struct {
	conn     net.Conn
	informed bool
	values   []uint32
	out      []byte
}

func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()
	logger := s.logger().With("conn", uuid.NewString(), "remote", conn.RemoteAddr().String())
	logger.Info("session start")
	err := s.serveSession(&session{conn: conn}, logger)
	switch {
	case err == nil, errors.Is(err, io.EOF):
		logger.Info("session end")
	case errors.Is(err, net.ErrClosed):
		logger.Info("session closed by shutdown")
	default:
		logger.Error("session failed", "err", err)
	}
}

func (s *Server) serveSession(ss *session, logger *slog.Logger) error {
	var req [1]byte
	for {
		if s.IdleTimeout > 0 {
			ss.conn.SetReadDeadline(time.Now().Add(s.IdleTimeout))
		}
		if _, err := io.ReadFull(ss.conn, req[:]); err != nil {
			return err
		}
		switch req[0] {
		case RequestTerminate:
			logger.Debug("termination requested")
			return nil
		case RequestInformation:
			info, err := s.Registry.Information()
			if err != nil {
				return err
			}
			if _, err := ss.conn.Write(info); err != nil {
				return err
			}
			ss.informed = true
			logger.Debug("information sent", "bytes", len(info))
		case RequestStatistics:
			if !ss.informed {
				return fmt.Errorf("%w: statistics requested before information", ErrProtocol)
			}
			var err error
			ss.values, err = s.Registry.Snapshot(ss.values[:0])
			if err != nil {
				return err
			}
			ss.out = wire.AppendStatistics(ss.out[:0], ss.values)
			if _, err := ss.conn.Write(ss.out); err != nil {
				return err
			}
			if s.OnStatistics != nil {
				s.OnStatistics()
			}
		default:
			return fmt.Errorf("%w: unknown request %d", ErrProtocol, req[0])
		}
	}
}
