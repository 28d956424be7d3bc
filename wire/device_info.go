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

import "encoding/binary"

// DeviceInfo is the GetDeviceInfo response payload.
//
// Text fields are kept as raw fixed-width buffers; use the accessor methods
// for a checked ASCII view. Unknown fields are preserved for re-encoding.
type DeviceInfo struct {
	VendorRaw   [32]byte
	ProductRaw  [32]byte
	FirmwareRaw [16]byte
	SSIDRaw     [32]byte
	Unk113      uint32
	Unk124      uint32
	Unk117      uint16
	PowerInfo   uint16
	Unk0        uint8
	Capacity    uint8
	Workmode1   uint8
	Workmode2   uint8
}

// DecodeDeviceInfo parses a DeviceInfo record
func DecodeDeviceInfo(data []byte) (DeviceInfo, error) {
	if len(data) < DeviceInfoSize {
		return DeviceInfo{}, truncated("device info", DeviceInfoSize, len(data))
	}

	var d DeviceInfo
	d.Unk0 = data[0]
	copy(d.VendorRaw[:], data[1:33])
	copy(d.ProductRaw[:], data[33:65])
	copy(d.FirmwareRaw[:], data[65:81])
	copy(d.SSIDRaw[:], data[81:113])
	d.Unk113 = binary.LittleEndian.Uint32(data[113:117])
	d.Unk117 = binary.LittleEndian.Uint16(data[117:119])
	d.PowerInfo = binary.LittleEndian.Uint16(data[119:121])
	d.Capacity = data[121]
	d.Workmode1 = data[122]
	d.Workmode2 = data[123]
	d.Unk124 = binary.LittleEndian.Uint32(data[124:128])
	return d, nil
}

// Encode serializes the record
func (d DeviceInfo) Encode() []byte {
	buf := make([]byte, 0, DeviceInfoSize)
	buf = append(buf, d.Unk0)
	buf = append(buf, d.VendorRaw[:]...)
	buf = append(buf, d.ProductRaw[:]...)
	buf = append(buf, d.FirmwareRaw[:]...)
	buf = append(buf, d.SSIDRaw[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, d.Unk113)
	buf = binary.LittleEndian.AppendUint16(buf, d.Unk117)
	buf = binary.LittleEndian.AppendUint16(buf, d.PowerInfo)
	buf = append(buf, d.Capacity, d.Workmode1, d.Workmode2)
	return binary.LittleEndian.AppendUint32(buf, d.Unk124)
}

// Battery returns the battery percentage (top 7 bits of PowerInfo)
func (d DeviceInfo) Battery() int {
	return int(d.PowerInfo >> 9)
}

// IsCharging reports the charge flag. The shift pair isolates bit 8 of
// PowerInfo; keep it literal, the neighbouring bits are undocumented.
func (d DeviceInfo) IsCharging() bool {
	return ((uint32(d.PowerInfo)<<0x17)&0xFFFFFFFF)>>0x1F != 0
}

// LowPowerOff returns the low-power-off field (bits 1..7 of PowerInfo)
func (d DeviceInfo) LowPowerOff() uint8 {
	return uint8(((uint32(d.PowerInfo) << 0x18) & 0xFFFFFFFF) >> 0x19)
}

// Vendor returns the vendor string
func (d DeviceInfo) Vendor() (string, error) {
	return asciiText(d.VendorRaw[:])
}

// ProductID returns the product (model) string
func (d DeviceInfo) ProductID() (string, error) {
	return asciiText(d.ProductRaw[:])
}

// FirmwareVersion returns the firmware version string
func (d DeviceInfo) FirmwareVersion() (string, error) {
	return asciiText(d.FirmwareRaw[:])
}

// SSID returns the Wi-Fi network name advertised by the device
func (d DeviceInfo) SSID() (string, error) {
	return asciiText(d.SSIDRaw[:])
}
