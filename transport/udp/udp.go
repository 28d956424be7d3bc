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

// Package udp provides the UDP socket transport for Suear cameras
package udp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"strconv"
	"sync"
	"time"

	suear "github.com/suearlabs/go-suear"
)

// Transport implements the suear.Transport interface over UDP sockets
type Transport struct {
	// ListenAddr is the local address sockets are bound to
	ListenAddr netip.Addr
}

// New creates a transport that binds sockets on all IPv4 interfaces
func New() *Transport {
	return &Transport{ListenAddr: netip.IPv4Unspecified()}
}

// Bind opens a UDP socket on port. Port 0 picks an ephemeral port; fixed
// ports are bound with SO_REUSEADDR so a restarted session can rebind.
func (t *Transport) Bind(port uint16) (suear.Conn, error) {
	lc := net.ListenConfig{}
	if port != 0 {
		lc.Control = reuseAddr
	}

	address := net.JoinHostPort(t.ListenAddr.String(), strconv.Itoa(int(port)))
	pc, err := lc.ListenPacket(context.Background(), "udp4", address)
	if err != nil {
		return nil, suear.NewTransportError("bind", address, err, suear.ErrorTypePermanent)
	}

	conn, ok := pc.(*net.UDPConn)
	if !ok {
		_ = pc.Close()
		return nil, fmt.Errorf("bind %s: unexpected connection type %T", address, pc)
	}
	return &Conn{conn: conn}, nil
}

// Type returns the transport type
func (*Transport) Type() suear.TransportType {
	return suear.TransportUDP
}

// Conn is one bound UDP socket
type Conn struct {
	conn   *net.UDPConn
	readMu sync.Mutex
}

// LocalAddr returns the bound address
func (c *Conn) LocalAddr() netip.AddrPort {
	return c.conn.LocalAddr().(*net.UDPAddr).AddrPort()
}

// SendTo sends one datagram to addr
func (c *Conn) SendTo(data []byte, addr netip.AddrPort) error {
	if _, err := c.conn.WriteToUDPAddrPort(data, addr); err != nil {
		return mapError("send", addr.String(), err)
	}
	return nil
}

// ReceiveFrom waits up to timeout for one datagram
func (c *Conn) ReceiveFrom(buf []byte, timeout time.Duration) (int, netip.AddrPort, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, netip.AddrPort{}, mapError("receive", "", err)
	}
	n, from, err := c.conn.ReadFromUDPAddrPort(buf)
	if err != nil {
		return 0, netip.AddrPort{}, mapError("receive", "", err)
	}
	return n, netip.AddrPortFrom(from.Addr().Unmap(), from.Port()), nil
}

// Close closes the socket; a blocked ReceiveFrom returns suear.ErrClosed
func (c *Conn) Close() error {
	if err := c.conn.Close(); err != nil {
		return mapError("close", "", err)
	}
	return nil
}

// mapError translates net errors into the suear error vocabulary
func mapError(op, peer string, err error) error {
	switch {
	case errors.Is(err, net.ErrClosed):
		return suear.NewTransportError(op, peer, suear.ErrClosed, suear.ErrorTypePermanent)
	case errors.Is(err, os.ErrDeadlineExceeded):
		return suear.NewTimeoutError(op, peer)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return suear.NewTimeoutError(op, peer)
	}
	return suear.NewTransportError(op, peer, err, suear.ErrorTypeTransient)
}
