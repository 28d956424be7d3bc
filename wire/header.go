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

package wire

import (
	"encoding/binary"
	"fmt"
)

// Header is the command header that starts every request and response datagram.
//
// Layout (little-endian):
//
//	[0:4]   magic    = 0xFFEEFFEE
//	[4:6]   id       sequence number, echoed by the device
//	[6:8]   type     MessageType
//	[8]     unk      1 on requests
//	[9]     err_code 0 on success
//	[10:12] length   payload bytes following the header
type Header struct {
	Magic   uint32
	ID      uint16
	Type    MessageType
	Unk     uint8
	ErrCode uint8
	Length  uint16
}

// NewRequestHeader returns a request header for the given type and payload length
func NewRequestHeader(id uint16, typ MessageType, length int) Header {
	return Header{
		Magic:  Magic,
		ID:     id,
		Type:   typ,
		Unk:    1,
		Length: uint16(length),
	}
}

// DecodeHeader parses a command header from the first HeaderSize bytes of data.
// Trailing bytes are ignored; splitting them off is the caller's job.
func DecodeHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, truncated("command header", HeaderSize, len(data))
	}

	h := Header{
		Magic:   binary.LittleEndian.Uint32(data[0:4]),
		ID:      binary.LittleEndian.Uint16(data[4:6]),
		Type:    MessageType(binary.LittleEndian.Uint16(data[6:8])),
		Unk:     data[8],
		ErrCode: data[9],
		Length:  binary.LittleEndian.Uint16(data[10:12]),
	}
	if h.Magic != Magic {
		return Header{}, fmt.Errorf("%w: 0x%08X", ErrBadMagic, h.Magic)
	}
	return h, nil
}

// Encode serializes the header
func (h Header) Encode() []byte {
	return h.AppendTo(make([]byte, 0, HeaderSize))
}

// AppendTo appends the serialized header to dst
func (h Header) AppendTo(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, h.Magic)
	dst = binary.LittleEndian.AppendUint16(dst, h.ID)
	dst = binary.LittleEndian.AppendUint16(dst, uint16(h.Type))
	dst = append(dst, h.Unk, h.ErrCode)
	return binary.LittleEndian.AppendUint16(dst, h.Length)
}

// OK reports whether the device signalled success
func (h Header) OK() bool {
	return h.ErrCode == 0
}
