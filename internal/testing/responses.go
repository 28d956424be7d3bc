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
	"github.com/suearlabs/go-suear/wire"
)

// BuildResponse creates a command response datagram
func BuildResponse(id uint16, typ wire.MessageType, errCode uint8, payload []byte) []byte {
	h := wire.Header{
		Magic:   wire.Magic,
		ID:      id,
		Type:    typ,
		ErrCode: errCode,
		Length:  uint16(len(payload)),
	}
	return append(h.Encode(), payload...)
}

// BuildErrorResponse creates a payload-less response carrying errCode
func BuildErrorResponse(id uint16, typ wire.MessageType, errCode uint8) []byte {
	return BuildResponse(id, typ, errCode, nil)
}

// BuildDeviceInfo creates a GetDeviceInfo payload
func BuildDeviceInfo(vendor, product, firmware, ssid string, battery int, charging bool, capacity uint8) []byte {
	var info wire.DeviceInfo
	copy(info.VendorRaw[:], vendor)
	copy(info.ProductRaw[:], product)
	copy(info.FirmwareRaw[:], firmware)
	copy(info.SSIDRaw[:], ssid)
	info.PowerInfo = uint16(battery) << 9
	if charging {
		info.PowerInfo |= 1 << 8
	}
	info.Capacity = capacity
	return info.Encode()
}

// BuildLicense creates a GetLicense payload
func BuildLicense(serial string) []byte {
	var lic wire.LicenseInfo
	copy(lic.SerialRaw[:], serial)
	for i := range lic.License {
		lic.License[i] = byte(i)
	}
	return lic.Encode()
}

// BuildChunkDatagram creates a stream datagram holding a single chunk.
// total is nonzero only for the final chunk of a frame.
func BuildChunkDatagram(frame, chunk, total uint8, payload []byte) []byte {
	h := wire.ChunkHeader{
		Unk1:        1,
		NChunk:      chunk,
		NFrame:      frame,
		TotalChunks: total,
		ResWidth:    TestFrameWidth,
		ResHeight:   TestFrameHeight,
	}
	if total != 0 {
		h.LastChunk = 1
	}
	return append(h.Encode(), payload...)
}

// BuildFrameDatagrams splits data into chunkSize pieces starting at chunk
// index firstChunk and returns one datagram per chunk in sending order
func BuildFrameDatagrams(frame, firstChunk uint8, data []byte, chunkSize int) [][]byte {
	total := (len(data) + chunkSize - 1) / chunkSize
	datagrams := make([][]byte, 0, total)
	for i := 0; i < total; i++ {
		end := min((i+1)*chunkSize, len(data))
		var announced uint8
		if i == total-1 {
			announced = uint8(total)
		}
		datagrams = append(datagrams,
			BuildChunkDatagram(frame, firstChunk+uint8(i), announced, data[i*chunkSize:end]))
	}
	return datagrams
}
