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

package testing

import (
	"bytes"
	"sync"

	"github.com/suearlabs/go-suear/wire"
)

// Test fixtures
const (
	TestVendor      = "Suear"
	TestModel       = "K-Scope"
	TestFirmware    = "2.1.4"
	TestSSID        = "SUEAR-4F2A"
	TestSerial      = "SE2024000117"
	TestFrameWidth  = 640
	TestFrameHeight = 480
)

// TestJPEG is a minimal byte sequence shaped like a JPEG image
var TestJPEG = append(append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, bytes.Repeat([]byte{0x5A}, 3000)...), 0xFF, 0xD9)

// VirtualCamera answers command datagrams the way a Suear camera does
type VirtualCamera struct {
	ErrCodes   map[wire.MessageType]uint8
	Requests   map[wire.MessageType]int
	Vendor     string
	Model      string
	Firmware   string
	SSID       string
	Serial     string
	Config     []byte
	Battery    int
	mu         sync.Mutex
	Capacity   uint8
	Charging   bool
	Silent     bool
	BadEchoIDs bool
}

// NewVirtualCamera creates a camera with the default test identity
func NewVirtualCamera() *VirtualCamera {
	return &VirtualCamera{
		ErrCodes: make(map[wire.MessageType]uint8),
		Requests: make(map[wire.MessageType]int),
		Vendor:   TestVendor,
		Model:    TestModel,
		Firmware: TestFirmware,
		SSID:     TestSSID,
		Serial:   TestSerial,
		Config:   []byte{0x01, 0x00, 0x1E},
		Battery:  87,
		Capacity: 16,
	}
}

// SetBattery changes the reported battery level and charging flag
func (v *VirtualCamera) SetBattery(level int, charging bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Battery = level
	v.Charging = charging
}

// SetErrCode makes every response of typ carry code
func (v *VirtualCamera) SetErrCode(typ wire.MessageType, code uint8) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ErrCodes[typ] = code
}

// RequestCount returns how many requests of typ were answered
func (v *VirtualCamera) RequestCount(typ wire.MessageType) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.Requests[typ]
}

// Handle answers one request datagram. ok is false when the camera stays
// silent (malformed request or Silent set).
func (v *VirtualCamera) Handle(request []byte) (response []byte, ok bool) {
	h, err := wire.DecodeHeader(request)
	if err != nil {
		return nil, false
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.Silent {
		return nil, false
	}
	v.Requests[h.Type]++

	id := h.ID
	if v.BadEchoIDs {
		id++
	}
	if code := v.ErrCodes[h.Type]; code != 0 {
		return BuildErrorResponse(id, h.Type, code), true
	}

	var payload []byte
	switch h.Type {
	case wire.TypeGetDeviceInfo:
		payload = BuildDeviceInfo(v.Vendor, v.Model, v.Firmware, v.SSID, v.Battery, v.Charging, v.Capacity)
	case wire.TypeGetLicense:
		payload = BuildLicense(v.Serial)
	case wire.TypeCameraCommand, wire.TypeGetCameraConfig:
		payload = bytes.Clone(v.Config)
	}
	return BuildResponse(id, h.Type, 0, payload), true
}
