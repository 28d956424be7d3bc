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
	"errors"
	"log/slog"
	"net"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/suearlabs/go-suear/relay"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var (
		listen     string
		certFile   string
		keyFile    string
		maxViewers int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Relay the camera over HTTP",
		Long: `Serve the camera to browsers and other clients.

Routes:
  /            viewer page
  /stream      multipart JPEG stream
  /ws          WebSocket stream of binary JPEG frames
  /battery     battery percentage (also /charging, /model, /serial, ...)
  /metrics     Prometheus metrics

Examples:
  suear serve
  suear serve --listen=:8443 --cert=cert.pem --key=key.pem`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(flags, listen, certFile, keyFile, maxViewers)
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", net.JoinHostPort("", strconv.Itoa(relay.DefaultPort)),
		"Address to serve HTTP on")
	cmd.Flags().StringVar(&certFile, "cert", "", "TLS certificate file (enables HTTPS with --key)")
	cmd.Flags().StringVar(&keyFile, "key", "", "TLS private key file")
	cmd.Flags().IntVar(&maxViewers, "max-viewers", 8, "Maximum concurrent stream viewers")

	return cmd
}

func runServe(flags *globalFlags, listen, certFile, keyFile string, maxViewers int) error {
	if (certFile == "") != (keyFile == "") {
		return errors.New("--cert and --key must be given together")
	}

	ctx, cancel := signalContext()
	defer cancel()

	device, err := newDevice(flags)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if flags.debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	config := relay.DefaultConfig(device)
	config.Logger = logger
	config.MaxViewers = maxViewers

	server, err := relay.New(config)
	if err != nil {
		return err
	}

	logger.Info("relaying camera", "camera", device.Address(), "listen", listen)
	return server.ListenAndServe(ctx, listen, certFile, keyFile)
}
