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
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	testutil "github.com/suearlabs/go-suear/internal/testing"
)

var testCameraAddr = netip.MustParseAddr("192.168.1.1")

// newCameraHandler routes command and stream-init datagrams to cam
func newCameraHandler(cam *testutil.VirtualCamera) MockHandler {
	return func(_ uint16, sent Datagram) []Datagram {
		if sent.Addr.Addr() != testCameraAddr {
			return nil
		}
		switch sent.Addr.Port() {
		case DefaultCommandPort, DefaultStreamInitPort:
		default:
			return nil
		}
		resp, ok := cam.Handle(sent.Data)
		if !ok {
			return nil
		}
		return []Datagram{{Data: resp, Addr: sent.Addr}}
	}
}

// newTestDevice creates a device in front of a virtual camera
func newTestDevice(t *testing.T, opts ...Option) (*Device, *MockTransport, *testutil.VirtualCamera) {
	t.Helper()

	cam := testutil.NewVirtualCamera()
	mock := NewMockTransport()
	mock.SetHandler(newCameraHandler(cam))

	opts = append([]Option{WithProber(AlwaysReachable), WithTimeout(200 * time.Millisecond)}, opts...)
	device, err := New(mock, testCameraAddr, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = device.Disconnect() })
	return device, mock, cam
}

// newStreamingDevice returns a device with an open video stream and the
// socket stream datagrams are delivered to
func newStreamingDevice(t *testing.T, opts ...Option) (*Device, *MockConn) {
	t.Helper()

	device, mock, _ := newTestDevice(t, opts...)
	require.NoError(t, device.Connect())
	require.NoError(t, device.OpenVideo())

	conn := mock.Conn(DefaultStreamRecvPort)
	require.NotNil(t, conn)
	return device, conn
}

// fromCamera addresses a datagram as sent by the camera's stream source
func fromCamera(data []byte) Datagram {
	return Datagram{Data: data, Addr: netip.AddrPortFrom(testCameraAddr, 22784)}
}
