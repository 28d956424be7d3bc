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

/*
Package suear provides a pure Go client for Suear Wi-Fi inspection cameras
(ear scopes and endoscopes that stream JPEG video over their own access point).

The camera speaks a small proprietary UDP protocol: request/response commands
on one port, and a video stream that delivers each JPEG frame as a run of
fixed-size chunks on another. This library wraps both in a session with
explicit connection state, checked responses and frame reassembly.

Features:
  - Device identity, battery, license and camera configuration queries
  - Video stream reassembly tolerant of loss, reordering and duplicates
  - Reachability probing before any socket is opened
  - Typed, classified errors suitable for retry decisions
  - An in-memory transport for tests

Basic Usage:

	import (
	    "github.com/suearlabs/go-suear"
	    "github.com/suearlabs/go-suear/transport/udp"
	)

	device, err := suear.New(udp.New(), netip.MustParseAddr("192.168.1.1"),
	    suear.WithTimeout(2*time.Second),
	)
	if err != nil {
	    log.Fatal(err)
	}
	defer device.Close()

	if err := device.Connect(); err != nil {
	    log.Fatal(err)
	}

	model, err := device.Model(ctx)
	if err != nil {
	    log.Fatal(err)
	}
	fmt.Println("Camera:", model)

	if err := device.OpenVideo(); err != nil {
	    log.Fatal(err)
	}
	for frame, err := range device.Frames(ctx) {
	    if err != nil {
	        log.Println(err)
	        continue
	    }
	    fmt.Printf("frame %d: %d bytes\n", frame.ID(), len(frame.Data()))
	}

Sub-packages:

  - wire: byte-exact codecs for headers, records and stream chunks
  - reassembly: the chunk-to-frame engine, usable without a session
  - transport/udp: the UDP transport used against real cameras
  - probe: ICMP echo reachability checks
  - relay: an HTTP server exposing the stream and device properties

Error Handling:

Errors wrap sentinels that can be inspected with errors.Is:

	if errors.Is(err, suear.ErrTimeout) {
	    // the camera did not answer in time
	}

	var devErr *suear.DeviceError
	if errors.As(err, &devErr) {
	    // the camera answered with a nonzero error code
	}

IsRetryable and GetErrorType classify any returned error.

Thread Safety:

A Device may be shared between goroutines. Commands are serialized, and only
one goroutine receives frames at a time. Disconnect may be called from any
goroutine and unblocks pending receives.
*/
package suear
