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
	"context"
	"fmt"

	"github.com/suearlabs/go-suear/wire"
)

// DeviceInfo fetches a fresh device info record
func (d *Device) DeviceInfo() (wire.DeviceInfo, error) {
	return d.DeviceInfoContext(context.Background(), true)
}

// DeviceInfoContext returns the device info record. With refresh false a
// cached record is returned when one exists; with refresh true the device is
// always asked and the cache is replaced.
func (d *Device) DeviceInfoContext(ctx context.Context, refresh bool) (wire.DeviceInfo, error) {
	if !refresh {
		d.mu.Lock()
		cached := d.info
		d.mu.Unlock()
		if cached != nil {
			return *cached, nil
		}
	}

	payload, err := d.query(ctx, wire.TypeGetDeviceInfo)
	if err != nil {
		return wire.DeviceInfo{}, err
	}
	info, err := wire.DecodeDeviceInfo(payload)
	if err != nil {
		return wire.DeviceInfo{}, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}

	d.mu.Lock()
	d.info = &info
	d.mu.Unlock()
	return info, nil
}

// LicenseContext returns the license record, fetched once per session
func (d *Device) LicenseContext(ctx context.Context) (wire.LicenseInfo, error) {
	d.mu.Lock()
	cached := d.license
	d.mu.Unlock()
	if cached != nil {
		return *cached, nil
	}

	payload, err := d.query(ctx, wire.TypeGetLicense)
	if err != nil {
		return wire.LicenseInfo{}, err
	}
	lic, err := wire.DecodeLicenseInfo(payload)
	if err != nil {
		return wire.LicenseInfo{}, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}

	d.mu.Lock()
	d.license = &lic
	d.mu.Unlock()
	return lic, nil
}

// CameraConfigContext returns the opaque camera configuration blob,
// fetched once per session. The device answers it through CameraCommand.
func (d *Device) CameraConfigContext(ctx context.Context) ([]byte, error) {
	d.mu.Lock()
	cached := d.camConfig
	d.mu.Unlock()
	if cached != nil {
		return bytes.Clone(cached), nil
	}

	payload, err := d.query(ctx, wire.TypeCameraCommand)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		payload = []byte{}
	}

	d.mu.Lock()
	d.camConfig = payload
	d.mu.Unlock()
	return bytes.Clone(payload), nil
}

// SetLed sends the SetLed command with an opaque argument payload
func (d *Device) SetLed(ctx context.Context, payload []byte) error {
	resp, err := d.SendCommandContext(ctx, Request{Type: wire.TypeSetLed, Payload: payload})
	if err != nil {
		return err
	}
	return resp.Err()
}

// BatteryLevel returns the battery level from a fresh device info record
func (d *Device) BatteryLevel(ctx context.Context) (int, error) {
	info, err := d.DeviceInfoContext(ctx, true)
	if err != nil {
		return 0, err
	}
	return info.Battery(), nil
}

// IsCharging reports the charging flag from a fresh device info record
func (d *Device) IsCharging(ctx context.Context) (bool, error) {
	info, err := d.DeviceInfoContext(ctx, true)
	if err != nil {
		return false, err
	}
	return info.IsCharging(), nil
}

// LowPowerOff returns the low-power-off field from a fresh device info record
func (d *Device) LowPowerOff(ctx context.Context) (uint8, error) {
	info, err := d.DeviceInfoContext(ctx, true)
	if err != nil {
		return 0, err
	}
	return info.LowPowerOff(), nil
}

// Vendor returns the vendor name
func (d *Device) Vendor(ctx context.Context) (string, error) {
	return d.identity(ctx, "vendor", wire.DeviceInfo.Vendor)
}

// Model returns the product id
func (d *Device) Model(ctx context.Context) (string, error) {
	return d.identity(ctx, "model", wire.DeviceInfo.ProductID)
}

// FirmwareVersion returns the firmware version string
func (d *Device) FirmwareVersion(ctx context.Context) (string, error) {
	return d.identity(ctx, "firmware version", wire.DeviceInfo.FirmwareVersion)
}

// SSID returns the Wi-Fi network name the camera broadcasts
func (d *Device) SSID(ctx context.Context) (string, error) {
	return d.identity(ctx, "ssid", wire.DeviceInfo.SSID)
}

// Capacity returns the capacity byte from the cached device info record
func (d *Device) Capacity(ctx context.Context) (uint8, error) {
	info, err := d.DeviceInfoContext(ctx, false)
	if err != nil {
		return 0, err
	}
	return info.Capacity, nil
}

// SerialNumber returns the serial number from the license record
func (d *Device) SerialNumber(ctx context.Context) (string, error) {
	lic, err := d.LicenseContext(ctx)
	if err != nil {
		return "", err
	}
	serial, err := lic.SerialNumber()
	if err != nil {
		return "", fmt.Errorf("serial number: %w", err)
	}
	return serial, nil
}

// identity reads a text field from the cached device info record
func (d *Device) identity(ctx context.Context, name string, field func(wire.DeviceInfo) (string, error)) (string, error) {
	info, err := d.DeviceInfoContext(ctx, false)
	if err != nil {
		return "", err
	}
	s, err := field(info)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return s, nil
}

// query sends a payload-less request and returns the payload of a
// successful response
func (d *Device) query(ctx context.Context, typ wire.MessageType) ([]byte, error) {
	resp, err := d.SendCommandContext(ctx, Request{Type: typ})
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp.Payload, nil
}
