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
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	suear "github.com/suearlabs/go-suear"
	"github.com/suearlabs/go-suear/reassembly"
)

// metrics holds the Prometheus collectors of one relay server
type metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	framesTotal     prometheus.Counter
	frameBytes      prometheus.Histogram
	framesDropped   prometheus.Counter
	streamErrors    *prometheus.CounterVec
	viewers         prometheus.Gauge
}

func newMetrics(registry prometheus.Registerer, namespace string, device *suear.Device) *metrics {
	factory := promauto.With(registry)

	m := &metrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests served",
		}, []string{"route", "code"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),

		framesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Total number of frames received from the camera",
		}),

		frameBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_bytes",
			Help:      "Size of reassembled JPEG frames",
			Buckets:   prometheus.ExponentialBuckets(4096, 2, 6),
		}),

		framesDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "viewer_frames_dropped_total",
			Help:      "Frames skipped because a viewer was not keeping up",
		}),

		streamErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_errors_total",
			Help:      "Errors returned while receiving frames",
		}, []string{"error_type"}),

		viewers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "viewers",
			Help:      "Number of connected stream viewers",
		}),
	}

	statsCounter := func(name, help string, field func(s reassembly.Stats) uint64) {
		factory.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reassembly",
			Name:      name,
			Help:      help,
		}, func() float64 {
			return float64(field(device.StreamStats()))
		})
	}
	statsCounter("chunks_total", "Stream chunks ingested", func(s reassembly.Stats) uint64 { return s.Chunks })
	statsCounter("superseded_total", "Pending frames abandoned for a newer complete frame",
		func(s reassembly.Stats) uint64 { return s.Superseded })
	statsCounter("evicted_total", "Pending frames evicted because the pool was full",
		func(s reassembly.Stats) uint64 { return s.Evicted })
	statsCounter("dropped_total", "Frames dropped after a chunk size mismatch",
		func(s reassembly.Stats) uint64 { return s.Dropped })
	statsCounter("rejected_total", "Chunks rejected for exceeding the frame buffer",
		func(s reassembly.Stats) uint64 { return s.Rejected })

	return m
}

// observeFrame records one frame received from the camera
func (m *metrics) observeFrame(size int) {
	m.framesTotal.Inc()
	m.frameBytes.Observe(float64(size))
}

// observeStreamError records a NextFrame failure by its classification
func (m *metrics) observeStreamError(err error) {
	m.streamErrors.WithLabelValues(suear.GetErrorType(err).String()).Inc()
}

// middleware records request counts and durations by route pattern
func (m *metrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
