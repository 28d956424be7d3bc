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
	"fmt"
	"time"

	"github.com/suearlabs/go-suear/probe"
	"github.com/suearlabs/go-suear/reassembly"
)

// Default UDP ports used by Suear cameras
const (
	DefaultCommandPort    uint16 = 10005 // Device port for command exchanges
	DefaultStreamInitPort uint16 = 10006 // Device port that accepts OpenVideo
	DefaultStreamRecvPort uint16 = 22785 // Local port the device streams to
)

// DeviceConfig contains configuration options for the Device
type DeviceConfig struct {
	// Prober checks reachability before Connect opens a socket
	Prober Prober
	// Timeout bounds every single receive
	Timeout time.Duration
	// ProbeTimeout bounds the reachability check
	ProbeTimeout time.Duration
	// PoolSize is the number of frame buffers used for reassembly
	PoolSize int
	// InitialSequence is the id counter before the first request
	InitialSequence uint16
	// CommandPort is the device port for command exchanges
	CommandPort uint16
	// StreamInitPort is the device port that accepts OpenVideo
	StreamInitPort uint16
	// StreamRecvPort is the local port stream datagrams arrive on
	StreamRecvPort uint16
	// StrictSequence rejects responses whose id does not echo the request
	StrictSequence bool
}

// DefaultDeviceConfig returns default device configuration
func DefaultDeviceConfig() *DeviceConfig {
	return &DeviceConfig{
		Prober:         probe.NewICMP(),
		Timeout:        2 * time.Second,
		ProbeTimeout:   1 * time.Second,
		PoolSize:       reassembly.DefaultPoolSize,
		CommandPort:    DefaultCommandPort,
		StreamInitPort: DefaultStreamInitPort,
		StreamRecvPort: DefaultStreamRecvPort,
	}
}

// Option is a functional option for configuring a Device
type Option func(*Device) error

// WithTimeout sets the per-receive timeout
func WithTimeout(timeout time.Duration) Option {
	return func(d *Device) error {
		if timeout <= 0 {
			return fmt.Errorf("%w: timeout must be positive, got %v", ErrInvalidParameter, timeout)
		}
		d.config.Timeout = timeout
		return nil
	}
}

// WithProbeTimeout sets how long the reachability check may take
func WithProbeTimeout(timeout time.Duration) Option {
	return func(d *Device) error {
		if timeout <= 0 {
			return fmt.Errorf("%w: probe timeout must be positive, got %v", ErrInvalidParameter, timeout)
		}
		d.config.ProbeTimeout = timeout
		return nil
	}
}

// WithProber replaces the default ICMP reachability check
func WithProber(p Prober) Option {
	return func(d *Device) error {
		if p == nil {
			return fmt.Errorf("%w: prober is nil", ErrInvalidParameter)
		}
		d.config.Prober = p
		return nil
	}
}

// WithPorts overrides the command, stream init and stream receive ports
func WithPorts(command, streamInit, streamRecv uint16) Option {
	return func(d *Device) error {
		if command == 0 || streamInit == 0 {
			return fmt.Errorf("%w: device ports must be nonzero", ErrInvalidParameter)
		}
		d.config.CommandPort = command
		d.config.StreamInitPort = streamInit
		d.config.StreamRecvPort = streamRecv
		return nil
	}
}

// WithPoolSize sets the number of reassembly buffers
func WithPoolSize(n int) Option {
	return func(d *Device) error {
		if n < 1 {
			return fmt.Errorf("%w: pool size must be at least 1, got %d", ErrInvalidParameter, n)
		}
		d.config.PoolSize = n
		return nil
	}
}

// WithInitialSequence sets the sequence counter; the first request uses seq+1
func WithInitialSequence(seq uint16) Option {
	return func(d *Device) error {
		d.config.InitialSequence = seq
		return nil
	}
}

// WithStrictSequence makes a response id that does not echo the request id
// fail with ErrProtocolViolation instead of being logged
func WithStrictSequence() Option {
	return func(d *Device) error {
		d.config.StrictSequence = true
		return nil
	}
}
