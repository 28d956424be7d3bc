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

// Package wire provides the fixed-layout binary records of the Suear UDP protocol
package wire

import (
	"errors"
	"fmt"
)

// Command magic and record sizes
const (
	Magic uint32 = 0xFFEEFFEE // Sentinel at the start of every command header

	HeaderSize      = 12  // magic + id + type + unk + err_code + length
	DeviceInfoSize  = 128 // GetDeviceInfo response payload
	LicenseInfoSize = 176 // GetLicense response payload
	ChunkHeaderSize = 16  // Per-chunk header inside a stream datagram
	LicenseBlobSize = 144 // Opaque license blob inside LicenseInfo
)

// Stream limits
const (
	ChunkPayloadSize = 1456 // Nominal payload bytes following a chunk header
	MaxDatagramSize  = 8192 // Receive buffer size for a single datagram
)

// Codec errors
var (
	ErrTruncated = errors.New("truncated record")
	ErrBadMagic  = errors.New("bad magic")
	ErrNotText   = errors.New("field is not printable ASCII text")
)

// MessageType identifies a command request/response kind
type MessageType uint16

// Known message types
const (
	TypeGetDeviceInfo   MessageType = 0x0001
	TypeGetLicense      MessageType = 0x0002
	TypeSetLicense      MessageType = 0x0003
	TypeOpenVideo       MessageType = 0x0004
	TypeUpdateFirmware  MessageType = 0x0006
	TypeSetLed          MessageType = 0x000A
	TypeCameraCommand   MessageType = 0x000C
	TypeGetCameraConfig MessageType = 0x000D
	TypeSetCameraConfig MessageType = 0x000E
)

var messageTypeNames = map[MessageType]string{
	TypeGetDeviceInfo:   "GetDeviceInfo",
	TypeGetLicense:      "GetLicense",
	TypeSetLicense:      "SetLicense",
	TypeOpenVideo:       "OpenVideo",
	TypeUpdateFirmware:  "UpdateFirmware",
	TypeSetLed:          "SetLed",
	TypeCameraCommand:   "CameraCommand",
	TypeGetCameraConfig: "GetCameraConfig",
	TypeSetCameraConfig: "SetCameraConfig",
}

// Valid reports whether t is part of the known enumeration
func (t MessageType) Valid() bool {
	_, ok := messageTypeNames[t]
	return ok
}

func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("MessageType(0x%04X)", uint16(t))
}

// truncated builds an ErrTruncated wrapper naming the record and sizes
func truncated(record string, want, got int) error {
	return fmt.Errorf("%w: %s needs %d bytes, got %d", ErrTruncated, record, want, got)
}
