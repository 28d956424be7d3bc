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

package relay

import (
	"context"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	suear "github.com/suearlabs/go-suear"
	testutil "github.com/suearlabs/go-suear/internal/testing"
	"github.com/suearlabs/go-suear/wire"
)

var testCameraAddr = netip.MustParseAddr("192.168.1.1")

type testRelay struct {
	server *Server
	http   *httptest.Server
	mock   *suear.MockTransport
	camera *testutil.VirtualCamera
}

func newTestRelay(t *testing.T, configure func(*Config), opts ...suear.Option) *testRelay {
	t.Helper()

	cam := testutil.NewVirtualCamera()
	mock := suear.NewMockTransport()
	mock.SetHandler(func(_ uint16, sent suear.Datagram) []suear.Datagram {
		if sent.Addr.Addr() != testCameraAddr {
			return nil
		}
		resp, ok := cam.Handle(sent.Data)
		if !ok {
			return nil
		}
		return []suear.Datagram{{Data: resp, Addr: sent.Addr}}
	})

	opts = append([]suear.Option{
		suear.WithProber(suear.AlwaysReachable),
		suear.WithTimeout(50 * time.Millisecond),
	}, opts...)
	device, err := suear.New(mock, testCameraAddr, opts...)
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	config := DefaultConfig(device)
	config.Registerer = registry
	config.Gatherer = registry
	config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	config.StartRetryDelay = 10 * time.Millisecond
	if configure != nil {
		configure(&config)
	}

	server, err := New(config)
	require.NoError(t, err)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	// Runs before ts.Close so open streams end first.
	t.Cleanup(func() { _ = server.Close() })

	return &testRelay{server: server, http: ts, mock: mock, camera: cam}
}

func (r *testRelay) get(t *testing.T, path string) (int, string) {
	t.Helper()

	resp, err := http.Get(r.http.URL + path)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

// feedFrames injects a new frame from the camera every few milliseconds once
// the stream socket is bound
func (r *testRelay) feedFrames(t *testing.T) {
	t.Helper()

	require.Eventually(t, func() bool {
		return r.mock.Conn(suear.DefaultStreamRecvPort) != nil
	}, 2*time.Second, 5*time.Millisecond)
	conn := r.mock.Conn(suear.DefaultStreamRecvPort)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()

		var id uint8
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			id++
			for _, dg := range testutil.BuildFrameDatagrams(id, 0, testutil.TestJPEG, wire.ChunkPayloadSize) {
				conn.Inject(suear.Datagram{Data: dg, Addr: netip.AddrPortFrom(testCameraAddr, 22784)})
			}
		}
	}()
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := New(Config{})
	require.ErrorIs(t, err, suear.ErrInvalidParameter)

	device, err := suear.New(suear.NewMockTransport(), testCameraAddr)
	require.NoError(t, err)

	config := DefaultConfig(device)
	config.MaxViewers = 0
	_, err = New(config)
	require.ErrorIs(t, err, suear.ErrInvalidParameter)

	registry := prometheus.NewRegistry()
	config = DefaultConfig(device)
	config.Registerer = registry
	config.Gatherer = registry
	_, err = New(config)
	require.NoError(t, err)

	_, err = New(config)
	require.Error(t, err, "registering the same collectors twice must fail")
}

func TestServer_Properties(t *testing.T) {
	t.Parallel()

	relay := newTestRelay(t, nil)
	relay.camera.SetBattery(42, true)

	tests := []struct {
		path string
		want string
	}{
		{path: "/battery", want: "42"},
		{path: "/charging", want: "1"},
		{path: "/capacity", want: "16"},
		{path: "/model", want: testutil.TestModel},
		{path: "/vendor", want: testutil.TestVendor},
		{path: "/version", want: testutil.TestFirmware},
		{path: "/ssid", want: testutil.TestSSID},
		{path: "/serial", want: testutil.TestSerial},
	}

	for _, tt := range tests {
		t.Run(strings.TrimPrefix(tt.path, "/"), func(t *testing.T) {
			t.Parallel()
			status, body := relay.get(t, tt.path)
			assert.Equal(t, http.StatusOK, status)
			assert.Equal(t, tt.want, body)
		})
	}
}

func TestServer_PropertyErrors(t *testing.T) {
	t.Parallel()

	t.Run("unreachable camera", func(t *testing.T) {
		t.Parallel()
		relay := newTestRelay(t, nil, suear.WithProber(suear.NeverReachable))
		status, _ := relay.get(t, "/battery")
		assert.Equal(t, http.StatusServiceUnavailable, status)
	})

	t.Run("device error", func(t *testing.T) {
		t.Parallel()
		relay := newTestRelay(t, nil)
		relay.camera.SetErrCode(wire.TypeGetDeviceInfo, 2)
		status, body := relay.get(t, "/battery")
		assert.Equal(t, http.StatusBadGateway, status)
		assert.Contains(t, body, "camera error")
	})

	t.Run("silent camera", func(t *testing.T) {
		t.Parallel()
		relay := newTestRelay(t, nil)
		relay.camera.Silent = true
		status, _ := relay.get(t, "/vendor")
		assert.Equal(t, http.StatusGatewayTimeout, status)
	})
}

func TestServer_Index(t *testing.T) {
	t.Parallel()

	relay := newTestRelay(t, nil)
	status, body := relay.get(t, "/")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, testutil.TestVendor)
	assert.Contains(t, body, testutil.TestSerial)
	assert.Contains(t, body, `<img src="/stream">`)
	assert.Contains(t, body, "87")
}

func TestServer_NotFound(t *testing.T) {
	t.Parallel()

	relay := newTestRelay(t, nil)
	status, _ := relay.get(t, "/nope")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestServer_Metrics(t *testing.T) {
	t.Parallel()

	relay := newTestRelay(t, nil)
	status, _ := relay.get(t, "/battery")
	require.Equal(t, http.StatusOK, status)

	// The request is counted after its response has been written.
	var body string
	require.Eventually(t, func() bool {
		status, body = relay.get(t, "/metrics")
		return status == http.StatusOK &&
			strings.Contains(body, `suear_http_requests_total{code="200",route="/battery"} 1`)
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, body, "suear_viewers 0")
	assert.Contains(t, body, "suear_reassembly_chunks_total 0")
}

func TestServer_Stream(t *testing.T) {
	t.Parallel()

	relay := newTestRelay(t, nil)

	resp, err := http.Get(relay.http.URL + "/stream")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-cache", resp.Header.Get("Pragma"))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/x-mixed-replace", mediaType)
	assert.Equal(t, "suear-frame-boundary", params["boundary"])

	relay.feedFrames(t)

	reader := multipart.NewReader(resp.Body, params["boundary"])
	for range 2 {
		part, err := reader.NextPart()
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", part.Header.Get("Content-Type"))
		assert.NotEmpty(t, part.Header.Get("X-Timestamp"))

		size, err := strconv.Atoi(part.Header.Get("Content-Length"))
		require.NoError(t, err)
		require.Equal(t, len(testutil.TestJPEG), size)

		data := make([]byte, size)
		_, err = io.ReadFull(part, data)
		require.NoError(t, err)
		assert.Equal(t, testutil.TestJPEG, data)
	}

	assert.Equal(t, suear.StateStreaming, relay.server.device.State())
	assert.Equal(t, 1, relay.camera.RequestCount(wire.TypeOpenVideo))
}

func TestServer_StreamViewerLimit(t *testing.T) {
	t.Parallel()

	relay := newTestRelay(t, func(c *Config) { c.MaxViewers = 1 })

	first, err := http.Get(relay.http.URL + "/stream")
	require.NoError(t, err)
	defer func() { _ = first.Body.Close() }()
	require.Equal(t, http.StatusOK, first.StatusCode)

	status, _ := relay.get(t, "/stream")
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestServer_StreamStartFailure(t *testing.T) {
	t.Parallel()

	relay := newTestRelay(t, func(c *Config) { c.StartAttempts = 2 })
	relay.camera.SetErrCode(wire.TypeOpenVideo, 5)

	status, _ := relay.get(t, "/stream")
	assert.Equal(t, http.StatusBadGateway, status)
	// A device error is not retried.
	assert.Equal(t, 1, relay.camera.RequestCount(wire.TypeOpenVideo))
}

func TestServer_WebSocket(t *testing.T) {
	t.Parallel()

	relay := newTestRelay(t, nil)

	url := "ws" + strings.TrimPrefix(relay.http.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	relay.feedFrames(t)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, kind)
	assert.Equal(t, testutil.TestJPEG, data)
}

func TestServer_CloseEndsStreams(t *testing.T) {
	t.Parallel()

	relay := newTestRelay(t, nil)

	resp, err := http.Get(relay.http.URL + "/stream")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, relay.server.Close())
	assert.Equal(t, suear.StateDisconnected, relay.server.device.State())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = io.Copy(io.Discard, resp.Body)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream response did not end after Close")
	}

	status, _ := relay.get(t, "/stream")
	assert.Equal(t, http.StatusBadGateway, status)
}

func TestHub_StopAfterClose(t *testing.T) {
	t.Parallel()

	relay := newTestRelay(t, nil)

	resp, err := http.Get(relay.http.URL + "/stream")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	h := relay.server.hub
	require.NoError(t, h.close())

	// A pump that ended on its own while close was running still calls stop.
	require.NotPanics(t, func() { h.stop(context.Background()) })
}
