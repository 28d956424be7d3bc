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
	"fmt"
	"math"

	"github.com/suearlabs/go-suear/wire"
)

// Request is a command to send to the device. The header, including the
// sequence id, is built at send time.
type Request struct {
	Payload []byte
	Type    wire.MessageType
}

// Response is a decoded command response
type Response struct {
	Payload []byte
	Header  wire.Header
}

// OK reports whether the device signalled success
func (r *Response) OK() bool {
	return r.Header.OK()
}

// Err returns a *DeviceError when the response carries a nonzero err_code
func (r *Response) Err() error {
	if r.Header.OK() {
		return nil
	}
	return &DeviceError{Command: r.Header.Type, Code: r.Header.ErrCode}
}

// ParseRequest turns a complete legacy request datagram into a Request.
// The type and payload are kept; the header's id and length are discarded
// and rebuilt when the request is sent.
func ParseRequest(raw []byte) (Request, error) {
	h, err := wire.DecodeHeader(raw)
	if err != nil {
		return Request{}, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}

	var payload []byte
	if len(raw) > wire.HeaderSize {
		payload = bytes.Clone(raw[wire.HeaderSize:])
	}
	return Request{Type: h.Type, Payload: payload}, nil
}

// encode builds the datagram for req with the given sequence id
func (req Request) encode(id uint16) ([]byte, error) {
	if len(req.Payload) > math.MaxUint16 {
		return nil, fmt.Errorf("%w: payload of %d bytes exceeds %d",
			ErrInvalidParameter, len(req.Payload), math.MaxUint16)
	}
	packet := make([]byte, 0, wire.HeaderSize+len(req.Payload))
	packet = wire.NewRequestHeader(id, req.Type, len(req.Payload)).AppendTo(packet)
	return append(packet, req.Payload...), nil
}

// decodeResponse splits a response datagram into header and payload.
// The datagram must hold exactly the header plus the announced payload.
func decodeResponse(datagram []byte) (*Response, error) {
	h, err := wire.DecodeHeader(datagram)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}

	rest := datagram[wire.HeaderSize:]
	var payload []byte
	if h.Length > 0 {
		if len(rest) < int(h.Length) {
			return nil, fmt.Errorf("%w: %w: %s payload needs %d bytes, got %d",
				ErrMalformedMessage, wire.ErrTruncated, h.Type, h.Length, len(rest))
		}
		payload = bytes.Clone(rest[:h.Length])
		rest = rest[h.Length:]
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("%w: %d bytes after %s payload", ErrExtraneousData, len(rest), h.Type)
	}

	return &Response{Header: h, Payload: payload}, nil
}
