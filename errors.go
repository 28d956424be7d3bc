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
	"errors"
	"fmt"

	"github.com/suearlabs/go-suear/reassembly"
	"github.com/suearlabs/go-suear/wire"
)

// Message errors
var (
	ErrMalformedMessage = errors.New("malformed message")
	ErrExtraneousData   = fmt.Errorf("%w: extraneous data after payload", ErrMalformedMessage)
)

// Protocol errors
var (
	ErrProtocolViolation = errors.New("protocol violation")
	ErrDeviceError       = fmt.Errorf("%w: device returned an error code", ErrProtocolViolation)
)

// Transport errors
var (
	ErrTimeout        = errors.New("operation timeout")
	ErrUnexpectedPeer = errors.New("datagram from unexpected peer")
	ErrClosed         = errors.New("transport closed")
	ErrUnreachable    = errors.New("device unreachable")
)

// Usage errors
var (
	ErrNotConnected     = errors.New("device not connected")
	ErrNotStreaming     = errors.New("video stream not open")
	ErrInvalidParameter = errors.New("invalid parameter")
)

// ErrorType classifies errors for retry decisions
type ErrorType int

const (
	// ErrorTypePermanent errors will not go away by repeating the call
	ErrorTypePermanent ErrorType = iota
	// ErrorTypeTransient errors may succeed on a later attempt
	ErrorTypeTransient
	// ErrorTypeTimeout is a receive that saw no datagram in time
	ErrorTypeTimeout
	// ErrorTypeMalformed is a datagram that could not be decoded
	ErrorTypeMalformed
	// ErrorTypeProtocol is a decodable message that breaks protocol rules
	ErrorTypeProtocol
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypePermanent:
		return "permanent"
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeTimeout:
		return "timeout"
	case ErrorTypeMalformed:
		return "malformed"
	case ErrorTypeProtocol:
		return "protocol"
	default:
		return fmt.Sprintf("ErrorType(%d)", int(t))
	}
}

// TransportError describes a failed socket operation
type TransportError struct {
	Err       error
	Op        string
	Peer      string
	Type      ErrorType
	Retryable bool
}

func (e *TransportError) Error() string {
	if e.Peer == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Peer, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError wraps err with operation context
func NewTransportError(op, peer string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Op:        op,
		Peer:      peer,
		Err:       err,
		Type:      errType,
		Retryable: errType == ErrorTypeTransient || errType == ErrorTypeTimeout,
	}
}

// NewTimeoutError returns a retryable TransportError wrapping ErrTimeout
func NewTimeoutError(op, peer string) *TransportError {
	return NewTransportError(op, peer, ErrTimeout, ErrorTypeTimeout)
}

// DeviceError is a command response carrying a nonzero err_code
type DeviceError struct {
	Command wire.MessageType
	Code    uint8
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s failed with device error code %d", e.Command, e.Code)
}

// Unwrap makes a DeviceError match ErrDeviceError and ErrProtocolViolation
func (*DeviceError) Unwrap() error {
	return ErrDeviceError
}

// GetErrorType classifies err
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ErrorTypePermanent
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Type
	}

	switch {
	case errors.Is(err, ErrTimeout):
		return ErrorTypeTimeout
	case errors.Is(err, ErrMalformedMessage),
		errors.Is(err, wire.ErrTruncated),
		errors.Is(err, wire.ErrBadMagic):
		return ErrorTypeMalformed
	case errors.Is(err, ErrProtocolViolation),
		errors.Is(err, reassembly.ErrChunkSizeMismatch),
		errors.Is(err, reassembly.ErrChunkOutOfBounds):
		return ErrorTypeProtocol
	case errors.Is(err, ErrUnexpectedPeer):
		return ErrorTypeTransient
	default:
		return ErrorTypePermanent
	}
}

// IsRetryable reports whether repeating the failed call may succeed.
// The library never retries on its own; this is for callers.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}

	switch GetErrorType(err) {
	case ErrorTypeTimeout, ErrorTypeTransient, ErrorTypeMalformed:
		return true
	default:
		return false
	}
}
