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
	"os"

	"github.com/spf13/cobra"

	suear "github.com/suearlabs/go-suear"
	"github.com/suearlabs/go-suear/internal/retry"
	"github.com/suearlabs/go-suear/reassembly"
)

func snapshotCmd(flags *globalFlags) *cobra.Command {
	var attempts int

	cmd := &cobra.Command{
		Use:   "snapshot <file>",
		Short: "Save one JPEG frame",
		Long: `Open the video stream, wait for the first complete frame and write it
to a file. Use "-" to write to stdout.

Examples:
  suear snapshot ear.jpg
  suear snapshot - > ear.jpg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshot(cmd, flags, args[0], attempts)
		},
	}

	cmd.Flags().IntVarP(&attempts, "attempts", "a", 5, "Receive timeouts tolerated before giving up")

	return cmd
}

func runSnapshot(cmd *cobra.Command, flags *globalFlags, path string, attempts int) error {
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
	if err := device.OpenVideoContext(ctx); err != nil {
		return fmt.Errorf("open video: %w", err)
	}

	config := retry.DefaultConfig("receive frame")
	config.MaxRetries = max(attempts-1, 0)
	config.RetryDelay = 0
	frame, err := retry.WithRetry(ctx, config, func(ctx context.Context) (*reassembly.Frame, bool, error) {
		frame, err := device.NextFrameContext(ctx)
		if err != nil {
			// Timeouts and malformed chunks are worth another read.
			return nil, suear.IsRetryable(err), err
		}
		return frame, false, nil
	})
	if err != nil {
		return err
	}

	if path == "-" {
		_, err = cmd.OutOrStdout().Write(frame.Data())
		return err
	}
	if err := os.WriteFile(path, frame.Data(), 0o600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Saved frame %d (%dx%d, %d bytes) to %s\n",
		frame.ID(), frame.Width(), frame.Height(), len(frame.Data()), path)
	return nil
}
