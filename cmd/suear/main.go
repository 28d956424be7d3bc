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
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	suear "github.com/suearlabs/go-suear"
	"github.com/suearlabs/go-suear/transport/udp"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// defaultHost is the address Suear cameras use on their own access point
const defaultHost = "192.168.1.1"

type globalFlags struct {
	host    string
	timeout time.Duration
	debug   bool
}

func main() {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "suear",
		Short: "Talk to Suear Wi-Fi inspection cameras",
		Long: `suear talks to Suear Wi-Fi ear and endoscope cameras over UDP.

Join the camera's access point first, then:

  suear info                 show device details
  suear snapshot frame.jpg   save one frame
  suear serve                relay the video over HTTP`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flags.debug {
				suear.SetDebugEnabled(true)
				slog.SetLogLoggerLevel(slog.LevelDebug)
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flags.host, "host", "H", defaultHost, "Camera IP address")
	rootCmd.PersistentFlags().DurationVarP(&flags.timeout, "timeout", "t", 2*time.Second, "Per-command receive timeout")
	rootCmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "Enable debug output")

	rootCmd.AddCommand(
		infoCmd(flags),
		snapshotCmd(flags),
		serveCmd(flags),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// newDevice creates an unconnected session for the camera named by flags
func newDevice(flags *globalFlags) (*suear.Device, error) {
	addr, err := netip.ParseAddr(flags.host)
	if err != nil {
		return nil, fmt.Errorf("invalid camera address %q: %w", flags.host, err)
	}
	device, err := suear.New(udp.New(), addr, suear.WithTimeout(flags.timeout))
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return device, nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
