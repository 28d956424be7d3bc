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
	"context"
	"encoding/binary"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testutil "github.com/suearlabs/go-suear/internal/testing"
	"github.com/suearlabs/go-suear/wire"
)

// sentIDs returns the sequence ids of every request sent on conn
func sentIDs(conn *MockConn) []uint16 {
	var ids []uint16
	for _, dg := range conn.Sent() {
		ids = append(ids, binary.LittleEndian.Uint16(dg.Data[4:6]))
	}
	return ids
}

func TestDevice_SendCommand(t *testing.T) {
	t.Parallel()

	device, mock, _ := newTestDevice(t)

	resp, err := device.SendCommand(Request{Type: wire.TypeGetLicense})
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.Equal(t, wire.TypeGetLicense, resp.Header.Type)
	assert.Len(t, resp.Payload, wire.LicenseInfoSize)

	assert.Equal(t, StateConnected, device.State(), "send command connects on demand")
	sent := mock.Conns()[0].Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, netip.AddrPortFrom(testCameraAddr, DefaultCommandPort), sent[0].Addr)
}

func TestDevice_SendCommandErrorCodeIsReturned(t *testing.T) {
	t.Parallel()

	device, _, cam := newTestDevice(t)
	cam.SetErrCode(wire.TypeSetLed, 2)

	resp, err := device.SendCommand(Request{Type: wire.TypeSetLed, Payload: []byte{1}})
	require.NoError(t, err)
	assert.False(t, resp.OK())
	require.ErrorIs(t, resp.Err(), ErrDeviceError)

	require.ErrorIs(t, device.SetLed(context.Background(), []byte{1}), ErrDeviceError)
}

func TestDevice_SequenceIDs(t *testing.T) {
	t.Parallel()

	t.Run("first_request_uses_one", func(t *testing.T) {
		t.Parallel()

		device, mock, _ := newTestDevice(t)
		for range 3 {
			_, err := device.SendCommand(Request{Type: wire.TypeGetDeviceInfo})
			require.NoError(t, err)
		}
		assert.Equal(t, []uint16{1, 2, 3}, sentIDs(mock.Conns()[0]))
	})

	t.Run("wraps_after_0xFFFF", func(t *testing.T) {
		t.Parallel()

		device, mock, _ := newTestDevice(t, WithInitialSequence(0xFFFE))
		for range 3 {
			_, err := device.SendCommand(Request{Type: wire.TypeGetDeviceInfo})
			require.NoError(t, err)
		}
		assert.Equal(t, []uint16{0xFFFF, 0, 1}, sentIDs(mock.Conns()[0]))
	})

	t.Run("consumed_on_failure", func(t *testing.T) {
		t.Parallel()

		device, mock, cam := newTestDevice(t, WithTimeout(20*time.Millisecond))
		cam.Silent = true
		_, err := device.SendCommand(Request{Type: wire.TypeGetDeviceInfo})
		require.ErrorIs(t, err, ErrTimeout)

		cam.SetErrCode(wire.TypeGetDeviceInfo, 0)
		cam.Silent = false
		_, err = device.SendCommand(Request{Type: wire.TypeGetDeviceInfo})
		require.NoError(t, err)

		assert.Equal(t, []uint16{1, 2}, sentIDs(mock.Conns()[0]))
	})
}

func TestDevice_SendCommandTimeout(t *testing.T) {
	t.Parallel()

	device, _, cam := newTestDevice(t, WithTimeout(30*time.Millisecond))
	cam.Silent = true

	_, err := device.SendCommand(Request{Type: wire.TypeGetDeviceInfo})
	require.ErrorIs(t, err, ErrTimeout)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, StateConnected, device.State(), "a timeout does not close the session")
}

func TestDevice_SendCommandContextDeadline(t *testing.T) {
	t.Parallel()

	device, _, cam := newTestDevice(t, WithTimeout(10*time.Second))
	cam.Silent = true

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := device.SendCommandContext(ctx, Request{Type: wire.TypeGetDeviceInfo})
	require.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 5*time.Second, "context deadline bounds the receive")
}

func TestDevice_SendCommandCancelledContext(t *testing.T) {
	t.Parallel()

	device, _, _ := newTestDevice(t)
	require.NoError(t, device.Connect())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := device.SendCommandContext(ctx, Request{Type: wire.TypeGetDeviceInfo})
	require.ErrorIs(t, err, context.Canceled)
}

func TestDevice_SendCommandResponseValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		reply   func(id uint16) []byte
		wantErr error
		name    string
	}{
		{
			name: "extraneous_data",
			reply: func(id uint16) []byte {
				return append(testutil.BuildResponse(id, wire.TypeGetLicense, 0, []byte{1, 2}), 0xAA)
			},
			wantErr: ErrExtraneousData,
		},
		{
			name: "truncated_payload",
			reply: func(id uint16) []byte {
				resp := testutil.BuildResponse(id, wire.TypeGetLicense, 0, []byte{1, 2, 3, 4})
				return resp[:len(resp)-2]
			},
			wantErr: wire.ErrTruncated,
		},
		{
			name: "short_header",
			reply: func(uint16) []byte {
				return []byte{0xEE, 0xFF, 0xEE}
			},
			wantErr: ErrMalformedMessage,
		},
		{
			name: "bad_magic",
			reply: func(id uint16) []byte {
				resp := testutil.BuildResponse(id, wire.TypeGetLicense, 0, nil)
				resp[3] = 0x00
				return resp
			},
			wantErr: wire.ErrBadMagic,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mock := NewMockTransport()
			mock.SetHandler(func(_ uint16, sent Datagram) []Datagram {
				id := binary.LittleEndian.Uint16(sent.Data[4:6])
				return []Datagram{{Data: tt.reply(id), Addr: sent.Addr}}
			})
			device, err := New(mock, testCameraAddr, WithProber(AlwaysReachable))
			require.NoError(t, err)
			defer func() { _ = device.Disconnect() }()

			_, err = device.SendCommand(Request{Type: wire.TypeGetLicense})
			require.ErrorIs(t, err, tt.wantErr)
			require.ErrorIs(t, err, ErrMalformedMessage)
		})
	}
}

func TestDevice_SendCommandUnexpectedPeer(t *testing.T) {
	t.Parallel()

	stranger := netip.AddrPortFrom(netip.MustParseAddr("192.168.1.77"), DefaultCommandPort)
	mock := NewMockTransport()
	mock.SetHandler(func(_ uint16, sent Datagram) []Datagram {
		id := binary.LittleEndian.Uint16(sent.Data[4:6])
		return []Datagram{{Data: testutil.BuildResponse(id, wire.TypeGetLicense, 0, nil), Addr: stranger}}
	})
	device, err := New(mock, testCameraAddr, WithProber(AlwaysReachable))
	require.NoError(t, err)
	defer func() { _ = device.Disconnect() }()

	_, err = device.SendCommand(Request{Type: wire.TypeGetLicense})
	require.ErrorIs(t, err, ErrUnexpectedPeer)
	assert.Equal(t, ErrorTypeTransient, GetErrorType(err))
}

func TestDevice_ResponseIDMismatch(t *testing.T) {
	t.Parallel()

	t.Run("lenient_by_default", func(t *testing.T) {
		t.Parallel()

		device, _, cam := newTestDevice(t)
		cam.BadEchoIDs = true

		resp, err := device.SendCommand(Request{Type: wire.TypeGetDeviceInfo})
		require.NoError(t, err)
		assert.Equal(t, uint16(2), resp.Header.ID)
	})

	t.Run("strict", func(t *testing.T) {
		t.Parallel()

		device, _, cam := newTestDevice(t, WithStrictSequence())
		cam.BadEchoIDs = true

		_, err := device.SendCommand(Request{Type: wire.TypeGetDeviceInfo})
		require.ErrorIs(t, err, ErrProtocolViolation)
	})
}

func TestDevice_SendRaw(t *testing.T) {
	t.Parallel()

	device, mock, _ := newTestDevice(t, WithInitialSequence(41))

	legacy := []byte{0xEE, 0xFF, 0xEE, 0xFF, 0x00, 0x00, 0x0A, 0x00, 0x01, 0x00, 0x00, 0x00, 0x03}
	resp, err := device.SendRaw(context.Background(), legacy)
	require.NoError(t, err)
	assert.Equal(t, wire.TypeSetLed, resp.Header.Type)

	sent := mock.Conns()[0].Sent()
	require.Len(t, sent, 1)
	h, err := wire.DecodeHeader(sent[0].Data)
	require.NoError(t, err)
	assert.Equal(t, uint16(42), h.ID, "legacy id is replaced by the next sequence id")
	assert.Equal(t, uint16(1), h.Length, "length is recomputed from the payload")
	assert.Equal(t, []byte{0x03}, sent[0].Data[wire.HeaderSize:])

	_, err = device.SendRaw(context.Background(), []byte{0x00, 0x01})
	require.ErrorIs(t, err, ErrMalformedMessage)
}

func TestParseRequest(t *testing.T) {
	t.Parallel()

	req, err := ParseRequest([]byte{0xEE, 0xFF, 0xEE, 0xFF, 0x00, 0x00, 0x04, 0x00, 0x01, 0x00, 0x00, 0x00})
	require.NoError(t, err)
	assert.Equal(t, wire.TypeOpenVideo, req.Type)
	assert.Empty(t, req.Payload)

	_, err = ParseRequest([]byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x04, 0x00, 0x01, 0x00, 0x00, 0x00})
	require.ErrorIs(t, err, wire.ErrBadMagic)
}

func TestRequest_EncodeRejectsOversizedPayload(t *testing.T) {
	t.Parallel()

	_, err := Request{Type: wire.TypeSetLicense, Payload: make([]byte, 0x10000)}.encode(1)
	require.ErrorIs(t, err, ErrInvalidParameter)
}
