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

// LicenseInfo is the GetLicense response payload
type LicenseInfo struct {
	SerialRaw [32]byte
	License   [LicenseBlobSize]byte
}

// DecodeLicenseInfo parses a LicenseInfo record
func DecodeLicenseInfo(data []byte) (LicenseInfo, error) {
	if len(data) < LicenseInfoSize {
		return LicenseInfo{}, truncated("license info", LicenseInfoSize, len(data))
	}

	var l LicenseInfo
	copy(l.SerialRaw[:], data[0:32])
	copy(l.License[:], data[32:LicenseInfoSize])
	return l, nil
}

// Encode serializes the record
func (l LicenseInfo) Encode() []byte {
	buf := make([]byte, 0, LicenseInfoSize)
	buf = append(buf, l.SerialRaw[:]...)
	return append(buf, l.License[:]...)
}

// SerialNumber returns the device serial number
func (l LicenseInfo) SerialNumber() (string, error) {
	return asciiText(l.SerialRaw[:])
}
