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

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func infoCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print device information",
		Long: `Connect to the camera and print its identity, battery and license details.

Examples:
  suear info
  suear info --host=192.168.1.1 --timeout=5s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(cmd, flags)
		},
	}
}

func runInfo(cmd *cobra.Command, flags *globalFlags) error {
	ctx, cancel := signalContext()
	defer cancel()

	device, err := newDevice(flags)
	if err != nil {
		return err
	}
	defer func() { _ = device.Close() }()

	if err := device.ConnectContext(ctx); err != nil {
		return fmt.Errorf("connect to %s: %w", device.Address(), err)
	}

	info, err := device.DeviceInfoContext(ctx, false)
	if err != nil {
		return fmt.Errorf("read device info: %w", err)
	}
	serial, err := device.SerialNumber(ctx)
	if err != nil {
		return fmt.Errorf("read license: %w", err)
	}

	vendor, _ := info.Vendor()
	model, _ := info.ProductID()
	firmware, _ := info.FirmwareVersion()
	ssid, _ := info.SSID()
	charging := "no"
	if info.IsCharging() {
		charging = "yes"
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Address:\t%s\n", device.Address())
	_, _ = fmt.Fprintf(w, "Vendor:\t%s\n", vendor)
	_, _ = fmt.Fprintf(w, "Model:\t%s\n", model)
	_, _ = fmt.Fprintf(w, "Firmware:\t%s\n", firmware)
	_, _ = fmt.Fprintf(w, "SSID:\t%s\n", ssid)
	_, _ = fmt.Fprintf(w, "Serial:\t%s\n", serial)
	_, _ = fmt.Fprintf(w, "Battery:\t%d%%\n", info.Battery())
	_, _ = fmt.Fprintf(w, "Charging:\t%s\n", charging)
	_, _ = fmt.Fprintf(w, "Capacity:\t%d\n", info.Capacity)
	if err := w.Flush(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "write output: %v\n", err)
	}
	return nil
}
