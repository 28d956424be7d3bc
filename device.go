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
	"errors"
	"fmt"
	"net/netip"
	"sync"

	"github.com/suearlabs/go-suear/reassembly"
	"github.com/suearlabs/go-suear/wire"
)

// State is the lifecycle state of a Device
type State int

const (
	// StateDisconnected has no open sockets
	StateDisconnected State = iota
	// StateConnected has a command socket
	StateConnected
	// StateStreaming has a command socket and a stream socket
	StateStreaming
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateStreaming:
		return "streaming"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Device is a session with one Suear camera.
//
// Thread Safety: command methods may be called from several goroutines;
// exchanges are serialised so each response pairs with its request.
// NextFrame and Frames must be consumed by a single goroutine. Disconnect
// may be called from any goroutine and unblocks pending receives, which
// then fail with ErrClosed.
type Device struct {
	transport  Transport
	config     *DeviceConfig
	cmdConn    Conn
	streamConn Conn
	engine     *reassembly.Engine
	info       *wire.DeviceInfo
	license    *wire.LicenseInfo
	streamBuf  []byte
	camConfig  []byte
	stats      reassembly.Stats
	addr       netip.Addr
	mu         sync.Mutex // guards sockets, state, caches and seq
	connectMu  sync.Mutex // held by Connect from probe to bind
	exchangeMu sync.Mutex // held for one request/response pair
	streamMu   sync.Mutex // held while a frame is being received
	state      State
	seq        uint16
	// streamClosed is set when Disconnect ends an open stream
	streamClosed bool
}

// New creates a session for the camera at addr. No socket is opened until
// Connect.
func New(transport Transport, addr netip.Addr, opts ...Option) (*Device, error) {
	if transport == nil {
		return nil, fmt.Errorf("%w: transport is nil", ErrInvalidParameter)
	}
	if !addr.IsValid() {
		return nil, fmt.Errorf("%w: invalid device address", ErrInvalidParameter)
	}

	device := &Device{
		transport: transport,
		addr:      addr.Unmap(),
		config:    DefaultDeviceConfig(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(device); err != nil {
			return nil, err
		}
	}

	device.seq = device.config.InitialSequence
	device.streamBuf = make([]byte, wire.MaxDatagramSize)
	return device, nil
}

// Address returns the camera address
func (d *Device) Address() netip.Addr {
	return d.addr
}

// State returns the current lifecycle state
func (d *Device) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Transport returns the transport the device opens sockets on
func (d *Device) Transport() Transport {
	return d.transport
}

// Connect probes the device and opens the command socket
func (d *Device) Connect() error {
	return d.ConnectContext(context.Background())
}

// ConnectContext probes the device and opens the command socket. It is a
// no-op when the session is already connected.
func (d *Device) ConnectContext(ctx context.Context) error {
	d.connectMu.Lock()
	defer d.connectMu.Unlock()

	if d.State() != StateDisconnected {
		return nil
	}

	// The probe may take ProbeTimeout; d.mu stays free meanwhile.
	if !d.config.Prober.Reachable(ctx, d.addr, d.config.ProbeTimeout) {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("connect %s: %w", d.addr, err)
		}
		return fmt.Errorf("%w: %s did not answer within %v", ErrUnreachable, d.addr, d.config.ProbeTimeout)
	}

	conn, err := d.transport.Bind(0)
	if err != nil {
		return fmt.Errorf("open command socket: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.cmdConn = conn
	d.streamClosed = false
	d.state = StateConnected
	debugf("connected to %s", d.addr)
	return nil
}

// OpenVideo asks the device to start streaming and binds the stream socket
func (d *Device) OpenVideo() error {
	return d.OpenVideoContext(context.Background())
}

// OpenVideoContext asks the device to start streaming and binds the stream
// socket. It is a no-op while already streaming.
func (d *Device) OpenVideoContext(ctx context.Context) error {
	d.mu.Lock()
	state := d.state
	d.mu.Unlock()

	switch state {
	case StateStreaming:
		return nil
	case StateDisconnected:
		return ErrNotConnected
	}

	// OpenVideo goes to its own port from a short-lived socket
	initConn, err := d.transport.Bind(0)
	if err != nil {
		return fmt.Errorf("open stream init socket: %w", err)
	}
	resp, err := d.exchange(ctx, initConn, d.config.StreamInitPort, Request{Type: wire.TypeOpenVideo})
	if closeErr := initConn.Close(); closeErr != nil {
		debugf("closing stream init socket: %v", closeErr)
	}
	if err != nil {
		return fmt.Errorf("open video: %w", err)
	}
	if err := resp.Err(); err != nil {
		return err
	}

	streamConn, err := d.transport.Bind(d.config.StreamRecvPort)
	if err != nil {
		return fmt.Errorf("bind stream port %d: %w", d.config.StreamRecvPort, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != StateConnected {
		// Disconnect won the race
		_ = streamConn.Close()
		return fmt.Errorf("open video: %w", ErrClosed)
	}
	// Each stream starts with empty reassembly state
	d.engine = reassembly.New(d.config.PoolSize)
	d.stats = reassembly.Stats{}
	d.streamConn = streamConn
	d.streamClosed = false
	d.state = StateStreaming
	debugf("video stream from %s open on port %d", d.addr, d.config.StreamRecvPort)
	return nil
}

// Disconnect closes every socket and unblocks pending receives. Cached
// device properties are kept.
func (d *Device) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs []error
	if d.streamConn != nil {
		if err := d.streamConn.Close(); err != nil && !errors.Is(err, ErrClosed) {
			errs = append(errs, fmt.Errorf("close stream socket: %w", err))
		}
		d.streamConn = nil
		d.streamClosed = true
	}
	if d.cmdConn != nil {
		if err := d.cmdConn.Close(); err != nil && !errors.Is(err, ErrClosed) {
			errs = append(errs, fmt.Errorf("close command socket: %w", err))
		}
		d.cmdConn = nil
	}
	if d.state != StateDisconnected {
		debugf("disconnected from %s", d.addr)
	}
	d.state = StateDisconnected
	return errors.Join(errs...)
}

// Close is Disconnect; it lets a Device be used as an io.Closer
func (d *Device) Close() error {
	return d.Disconnect()
}

// StreamStats returns the reassembly counters of this session
func (d *Device) StreamStats() reassembly.Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// nextSequence advances the request id counter, wrapping at 0xFFFF
func (d *Device) nextSequence() uint16 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	return d.seq
}
