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
	"fmt"
	"net/netip"
	"time"

	"github.com/suearlabs/go-suear/wire"
)

// SendCommand sends req on the command port and returns the response
func (d *Device) SendCommand(req Request) (*Response, error) {
	return d.SendCommandContext(context.Background(), req)
}

// SendCommandContext sends req on the command port and returns the
// response. A disconnected session is connected first. A response with a
// nonzero err_code is returned as is; see Response.Err.
func (d *Device) SendCommandContext(ctx context.Context, req Request) (*Response, error) {
	if err := d.ConnectContext(ctx); err != nil {
		return nil, err
	}

	d.mu.Lock()
	conn := d.cmdConn
	d.mu.Unlock()
	if conn == nil {
		return nil, ErrNotConnected
	}

	return d.exchange(ctx, conn, d.config.CommandPort, req)
}

// SendRaw parses a complete legacy request datagram and sends it
func (d *Device) SendRaw(ctx context.Context, raw []byte) (*Response, error) {
	req, err := ParseRequest(raw)
	if err != nil {
		return nil, err
	}
	return d.SendCommandContext(ctx, req)
}

// exchange performs one request/response round trip on conn. The sequence
// id is consumed even when the exchange fails.
func (d *Device) exchange(ctx context.Context, conn Conn, port uint16, req Request) (*Response, error) {
	d.exchangeMu.Lock()
	defer d.exchangeMu.Unlock()

	id := d.nextSequence()
	packet, err := req.encode(id)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", req.Type, err)
	}

	peer := netip.AddrPortFrom(d.addr, port)
	debugf("-> %s %s id=%d len=%d", peer, req.Type, id, len(req.Payload))
	if err := conn.SendTo(packet, peer); err != nil {
		return nil, fmt.Errorf("send %s: %w", req.Type, err)
	}

	timeout, err := d.receiveTimeout(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s response: %w", req.Type, err)
	}

	buf := make([]byte, wire.MaxDatagramSize)
	n, from, err := conn.ReceiveFrom(buf, timeout)
	if err != nil {
		return nil, fmt.Errorf("%s response: %w", req.Type, err)
	}
	if from.Addr().Unmap() != d.addr {
		return nil, NewTransportError("receive "+req.Type.String()+" response", from.String(),
			ErrUnexpectedPeer, ErrorTypeTransient)
	}

	resp, err := decodeResponse(buf[:n])
	if err != nil {
		return nil, err
	}
	debugf("<- %s %s id=%d err=%d len=%d", from, resp.Header.Type, resp.Header.ID,
		resp.Header.ErrCode, len(resp.Payload))

	if resp.Header.ID != id {
		if d.config.StrictSequence {
			return nil, fmt.Errorf("%w: response id %d does not echo request id %d",
				ErrProtocolViolation, resp.Header.ID, id)
		}
		debugf("response id %d does not echo request id %d", resp.Header.ID, id)
	}
	return resp, nil
}

// receiveTimeout is the configured receive timeout, shortened to the
// context deadline when that comes first
func (d *Device) receiveTimeout(ctx context.Context) (time.Duration, error) {
	timeout := d.config.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return 0, fmt.Errorf("%w: %w", ErrTimeout, context.DeadlineExceeded)
		}
		timeout = min(timeout, remaining)
	}
	return timeout, nil
}
