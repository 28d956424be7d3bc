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

// Package probe checks whether a camera answers ICMP echo before a session
// opens sockets to it.
package probe

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"net/netip"
	"os"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

// ErrIPv6 is returned for addresses the prober cannot ping
var ErrIPv6 = errors.New("only IPv4 addresses can be probed")

const protocolICMP = 1

// Network selects how the echo socket is opened
type Network string

const (
	// Unprivileged uses datagram ICMP sockets (Linux ping_group_range, macOS)
	Unprivileged Network = "udp4"
	// Privileged uses raw ICMP sockets and needs CAP_NET_RAW or root
	Privileged Network = "ip4:icmp"
)

// ICMP sends a single echo request and waits for the matching reply
type ICMP struct {
	// Networks are tried in order until one can be opened
	Networks []Network
	// Payload is carried in the echo request
	Payload []byte
}

// NewICMP returns a prober that tries an unprivileged socket first and
// falls back to a raw socket
func NewICMP() *ICMP {
	return &ICMP{
		Networks: []Network{Unprivileged, Privileged},
		Payload:  []byte("go-suear"),
	}
}

// Reachable reports whether addr answered an echo request within timeout.
// Any failure, including being unable to open a socket, counts as
// unreachable.
func (p *ICMP) Reachable(ctx context.Context, addr netip.Addr, timeout time.Duration) bool {
	return p.Ping(ctx, addr, timeout) == nil
}

// Ping sends one echo request to addr and returns nil once the reply arrives
func (p *ICMP) Ping(ctx context.Context, addr netip.Addr, timeout time.Duration) error {
	addr = addr.Unmap()
	if !addr.Is4() {
		return fmt.Errorf("%w: %s", ErrIPv6, addr)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	conn, network, err := p.listen()
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("set deadline: %w", err)
	}

	// Closing the socket unblocks the read when ctx is cancelled first.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	id := os.Getpid() & 0xFFFF
	seq := rand.IntN(0xFFFF)
	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Body: &icmp.Echo{ID: id, Seq: seq, Data: p.Payload},
	}
	packet, err := msg.Marshal(nil)
	if err != nil {
		return fmt.Errorf("marshal echo request: %w", err)
	}

	dst := destination(network, addr)
	if _, err := conn.WriteTo(packet, dst); err != nil {
		return fmt.Errorf("send echo request to %s: %w", addr, err)
	}

	buf := make([]byte, 1500)
	for {
		n, peer, err := conn.ReadFrom(buf)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("wait for echo reply from %s: %w", addr, err)
		}
		if !samePeer(peer, addr) {
			continue
		}
		reply, err := icmp.ParseMessage(protocolICMP, buf[:n])
		if err != nil || reply.Type != ipv4.ICMPTypeEchoReply {
			continue
		}
		echo, ok := reply.Body.(*icmp.Echo)
		if !ok || echo.Seq != seq {
			continue
		}
		// Unprivileged sockets rewrite the echo id, so it is only checked on raw sockets.
		if network == Privileged && echo.ID != id {
			continue
		}
		return nil
	}
}

func (p *ICMP) listen() (*icmp.PacketConn, Network, error) {
	var errs []error
	for _, network := range p.Networks {
		conn, err := icmp.ListenPacket(string(network), "0.0.0.0")
		if err == nil {
			return conn, network, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", network, err))
	}
	if len(errs) == 0 {
		return nil, "", errors.New("no ICMP network configured")
	}
	return nil, "", fmt.Errorf("open ICMP socket: %w", errors.Join(errs...))
}

func destination(network Network, addr netip.Addr) net.Addr {
	if network == Unprivileged {
		return &net.UDPAddr{IP: addr.AsSlice()}
	}
	return &net.IPAddr{IP: addr.AsSlice()}
}

func samePeer(peer net.Addr, addr netip.Addr) bool {
	var ip net.IP
	switch a := peer.(type) {
	case *net.UDPAddr:
		ip = a.IP
	case *net.IPAddr:
		ip = a.IP
	default:
		return false
	}
	got, ok := netip.AddrFromSlice(ip)
	return ok && got.Unmap() == addr
}
