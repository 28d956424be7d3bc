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
	"context"
	"net/netip"
	"time"
)

// Transport opens datagram sockets. The UDP implementation lives in
// transport/udp; tests use MockTransport.
type Transport interface {
	// Bind opens a socket on the given local port. Port 0 picks an
	// ephemeral port. Fixed ports are bound with address reuse enabled.
	Bind(port uint16) (Conn, error)

	// Type returns the transport type
	Type() TransportType
}

// Conn is one bound datagram socket
type Conn interface {
	// SendTo sends one datagram to addr
	SendTo(data []byte, addr netip.AddrPort) error

	// ReceiveFrom blocks for one datagram for at most timeout. It returns
	// ErrTimeout when nothing arrives and ErrClosed once Close was called.
	ReceiveFrom(buf []byte, timeout time.Duration) (int, netip.AddrPort, error)

	// Close releases the socket and unblocks a pending ReceiveFrom
	Close() error
}

// TransportType represents the type of transport
type TransportType string

const (
	// TransportUDP represents real UDP sockets
	TransportUDP TransportType = "udp"
	// TransportMock represents a mock transport for testing
	TransportMock TransportType = "mock"
)

// Prober checks that a device answers before a session is opened
type Prober interface {
	Reachable(ctx context.Context, addr netip.Addr, timeout time.Duration) bool
}

// ProberFunc adapts a function to the Prober interface
type ProberFunc func(ctx context.Context, addr netip.Addr, timeout time.Duration) bool

// Reachable calls f
func (f ProberFunc) Reachable(ctx context.Context, addr netip.Addr, timeout time.Duration) bool {
	return f(ctx, addr, timeout)
}
