// go-suear
// Copyright (c) 2026 The go-suear Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-suear.
//
// go-suear is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-suear is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-suear; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package suear

import (
	"bytes"
	"context"
	"net/netip"
	"sync"
	"time"
)

// Datagram is one UDP payload together with its remote address
type Datagram struct {
	Data []byte
	Addr netip.AddrPort
}

// MockHandler simulates a device. It is called for every datagram sent
// through a MockConn and returns the datagrams the device answers with;
// their Addr is the sender seen by the receiving socket.
type MockHandler func(local uint16, sent Datagram) []Datagram

// MockTransport is an in-memory Transport for testing
type MockTransport struct {
	handler  MockHandler
	bindErr  error
	byPort   map[uint16]*MockConn
	conns    []*MockConn
	mu       sync.Mutex
	nextPort uint16
}

// NewMockTransport creates a mock transport with no device behind it
func NewMockTransport() *MockTransport {
	return &MockTransport{
		byPort:   make(map[uint16]*MockConn),
		nextPort: 40000,
	}
}

// SetHandler installs the device simulator
func (t *MockTransport) SetHandler(fn MockHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = fn
}

// SetBindError makes every subsequent Bind fail with err
func (t *MockTransport) SetBindError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bindErr = err
}

// Bind opens an in-memory socket. Port 0 picks an unused port.
func (t *MockTransport) Bind(port uint16) (Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bindErr != nil {
		return nil, t.bindErr
	}
	if port == 0 {
		port = t.nextPort
		t.nextPort++
	}

	c := &MockConn{
		transport: t,
		port:      port,
		inbox:     make(chan Datagram, 256),
		closed:    make(chan struct{}),
	}
	t.byPort[port] = c
	t.conns = append(t.conns, c)
	return c, nil
}

// Conn returns the most recent socket bound to port, or nil
func (t *MockTransport) Conn(port uint16) *MockConn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.byPort[port]
}

// Conns returns every socket bound so far in bind order
func (t *MockTransport) Conns() []*MockConn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*MockConn(nil), t.conns...)
}

// Type returns TransportMock
func (*MockTransport) Type() TransportType {
	return TransportMock
}

func (t *MockTransport) currentHandler() MockHandler {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.handler
}

// MockConn is an in-memory socket created by MockTransport
type MockConn struct {
	transport *MockTransport
	inbox     chan Datagram
	closed    chan struct{}
	sent      []Datagram
	mu        sync.Mutex
	closeOnce sync.Once
	port      uint16
}

// Port returns the local port
func (c *MockConn) Port() uint16 {
	return c.port
}

// SendTo records the datagram and queues whatever the handler answers
func (c *MockConn) SendTo(data []byte, addr netip.AddrPort) error {
	if c.isClosed() {
		return ErrClosed
	}

	dg := Datagram{Data: bytes.Clone(data), Addr: addr}
	c.mu.Lock()
	c.sent = append(c.sent, dg)
	c.mu.Unlock()

	if handler := c.transport.currentHandler(); handler != nil {
		for _, reply := range handler(c.port, dg) {
			c.Inject(reply)
		}
	}
	return nil
}

// ReceiveFrom returns the next queued datagram
func (c *MockConn) ReceiveFrom(buf []byte, timeout time.Duration) (int, netip.AddrPort, error) {
	if c.isClosed() {
		return 0, netip.AddrPort{}, ErrClosed
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case dg := <-c.inbox:
		return copy(buf, dg.Data), dg.Addr, nil
	case <-c.closed:
		return 0, netip.AddrPort{}, ErrClosed
	case <-timer.C:
		return 0, netip.AddrPort{}, NewTimeoutError("receive", "mock")
	}
}

// Inject queues a datagram as if it had arrived from dg.Addr
func (c *MockConn) Inject(dg Datagram) {
	select {
	case c.inbox <- Datagram{Data: bytes.Clone(dg.Data), Addr: dg.Addr}:
	case <-c.closed:
	}
}

// Sent returns every datagram sent through the socket
func (c *MockConn) Sent() []Datagram {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Datagram(nil), c.sent...)
}

// Closed reports whether Close has been called
func (c *MockConn) Closed() bool {
	return c.isClosed()
}

// Close unblocks pending receives
func (c *MockConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *MockConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// AlwaysReachable is a Prober that accepts every address
var AlwaysReachable = ProberFunc(func(context.Context, netip.Addr, time.Duration) bool { return true })

// NeverReachable is a Prober that rejects every address
var NeverReachable = ProberFunc(func(context.Context, netip.Addr, time.Duration) bool { return false })
