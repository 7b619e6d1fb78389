// Copyright 2026 The Flouka Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package server

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/flouka/flouka/wire"
)

// maxInformation bounds the information buffers a Client accepts.
const maxInformation = 64 << 20

// A Client is a session with a Server. It is not safe for concurrent use.
type Client struct {
	conn     net.Conn
	counters int
	buf      []byte
}

// Dial connects to the server at addr.
func Dial(ctx context.Context, addr string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewClient(conn), nil
}

// NewClient returns a client using conn.
func NewClient(conn net.Conn) *Client {
	return &Client{conn: conn, counters: -1}
}

// do sends req and calls read with ctx's deadline and cancellation applied
// to the connection.
func (c *Client) do(ctx context.Context, req byte, read func() error) error {
	if d, ok := ctx.Deadline(); ok {
		c.conn.SetDeadline(d)
	} else {
		c.conn.SetDeadline(time.Time{})
	}
	stop := context.AfterFunc(ctx, func() {
		c.conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	err := func() error {
		if _, err := c.conn.Write([]byte{req}); err != nil {
			return err
		}
		return read()
	}()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// The connection deadline may expire just before the context's.
		if d, ok := ctx.Deadline(); ok && !time.Now().Before(d) {
			return context.DeadlineExceeded
		}
	}
	return err
}

// InformationBytes requests the raw information buffer.
func (c *Client) InformationBytes(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := c.do(ctx, RequestInformation, func() error {
		var hdr [wire.HeaderSize]byte
		if _, err := io.ReadFull(c.conn, hdr[:]); err != nil {
			return err
		}
		n := binary.LittleEndian.Uint32(hdr[:])
		if n < wire.HeaderSize || n > maxInformation {
			return fmt.Errorf("%w: information of %d bytes", ErrProtocol, n)
		}
		buf = make([]byte, n)
		copy(buf, hdr[:])
		_, err := io.ReadFull(c.conn, buf[wire.HeaderSize:])
		return err
	})
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// Information requests and decodes the information of the registry. It
// must be called before Statistics.
func (c *Client) Information(ctx context.Context) (*wire.Information, error) {
	buf, err := c.InformationBytes(ctx)
	if err != nil {
		return nil, err
	}
	info, err := wire.Decode(buf)
	if err != nil {
		return nil, err
	}
	c.counters = len(info.Counters)
	return info, nil
}

// Statistics requests the current counter values.
func (c *Client) Statistics(ctx context.Context) ([]uint32, error) {
	if c.counters < 0 {
		return nil, fmt.Errorf("%w: statistics requested before information", ErrProtocol)
	}
	var values []uint32
	err := c.do(ctx, RequestStatistics, func() error {
		n := c.counters * wire.ValueSize
		if cap(c.buf) < n {
			c.buf = make([]byte, n)
		}
		c.buf = c.buf[:n]
		if _, err := io.ReadFull(c.conn, c.buf); err != nil {
			return err
		}
		var err error
		values, err = wire.DecodeStatistics(c.buf)
		return err
	})
	if err != nil {
		return nil, err
	}
	return values, nil
}

// Close ends the session and closes the connection.
func (c *Client) Close() error {
	c.conn.SetWriteDeadline(time.Now().Add(time.Second))
	c.conn.Write([]byte{RequestTerminate})
	return c.conn.Close()
}
