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
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	suear "github.com/suearlabs/go-suear"
	"github.com/suearlabs/go-suear/internal/retry"
)

// ErrTooManyViewers is returned when MaxViewers streams are already open
var ErrTooManyViewers = errors.New("too many viewers")

// viewerBuffer is how many frames a slow viewer may lag before frames are skipped
const viewerBuffer = 2

// hub fans frames from one camera stream out to every viewer. The stream is
// opened on the first subscription and kept running until the hub closes or
// the session fails.
type hub struct {
	device     *suear.Device
	logger     *slog.Logger
	metrics    *metrics
	viewers    map[uuid.UUID]chan []byte
	cancel     context.CancelFunc
	done       chan struct{}
	retry      retry.Config
	maxViewers int
	mu         sync.Mutex
	closed     bool
}

func newHub(device *suear.Device, logger *slog.Logger, m *metrics, maxViewers int, rc retry.Config) *hub {
	return &hub{
		device:     device,
		logger:     logger,
		metrics:    m,
		viewers:    make(map[uuid.UUID]chan []byte),
		maxViewers: maxViewers,
		retry:      rc,
	}
}

// subscribe registers a viewer and starts the stream if it is not running.
// Frames are delivered as private copies; the channel is closed when the
// stream ends.
func (h *hub) subscribe(ctx context.Context) (uuid.UUID, <-chan []byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return uuid.Nil, nil, suear.ErrClosed
	}
	if len(h.viewers) >= h.maxViewers {
		return uuid.Nil, nil, fmt.Errorf("%w: limit is %d", ErrTooManyViewers, h.maxViewers)
	}

	if h.cancel == nil {
		if err := h.start(ctx); err != nil {
			return uuid.Nil, nil, err
		}
	}

	id := uuid.New()
	ch := make(chan []byte, viewerBuffer)
	h.viewers[id] = ch
	h.metrics.viewers.Set(float64(len(h.viewers)))
	h.logger.Info("viewer joined", "viewer", id, "viewers", len(h.viewers))
	return id, ch, nil
}

// unsubscribe removes a viewer; the stream keeps running without viewers
func (h *hub) unsubscribe(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.viewers[id]; ok {
		delete(h.viewers, id)
		close(ch)
		h.metrics.viewers.Set(float64(len(h.viewers)))
		h.logger.Info("viewer left", "viewer", id, "viewers", len(h.viewers))
	}
}

// start opens the video stream and launches the pump. Caller holds h.mu.
func (h *hub) start(ctx context.Context) error {
	if h.done != nil {
		// A pump that ended on its own is still unwinding.
		<-h.done
	}

	_, err := retry.WithRetry(ctx, h.retry, retry.Classify(func(ctx context.Context) (struct{}, error) {
		if err := h.device.ConnectContext(ctx); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, h.device.OpenVideoContext(ctx)
	}))
	if err != nil {
		return fmt.Errorf("start stream: %w", err)
	}

	pumpCtx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.done = make(chan struct{})
	go h.pump(pumpCtx, h.done)
	return nil
}

// pump moves frames from the session to the viewers
func (h *hub) pump(ctx context.Context, done chan struct{}) {
	defer close(done)

	for frame, err := range h.device.Frames(ctx) {
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if errors.Is(err, suear.ErrTimeout) {
				continue
			}
			h.metrics.observeStreamError(err)
			h.logger.Warn("stream error", "error", err, "type", suear.GetErrorType(err).String())
			continue
		}

		data := bytes.Clone(frame.Data())
		h.metrics.observeFrame(len(data))
		h.broadcast(data)
	}

	h.stop(ctx)
}

// broadcast hands data to every viewer that has room for it
func (h *hub) broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.viewers {
		select {
		case ch <- data:
		default:
			h.metrics.framesDropped.Inc()
		}
	}
}

// stop disconnects every viewer after the pump has ended. A pump cancelled
// by close leaves cleanup to close.
func (h *hub) stop(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.logger.Warn("stream ended", "viewers", len(h.viewers))
	h.dropViewers()
	// close may have taken the cancel func already
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// close stops the stream and disconnects the session
func (h *hub) close() error {
	h.mu.Lock()
	h.closed = true
	cancel, done := h.cancel, h.done
	h.cancel = nil
	h.dropViewers()
	h.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	err := h.device.Disconnect()
	if done != nil {
		<-done
	}
	return err
}

// dropViewers closes every viewer channel. Caller holds h.mu.
func (h *hub) dropViewers() {
	for id, ch := range h.viewers {
		close(ch)
		delete(h.viewers, id)
	}
	h.metrics.viewers.Set(0)
}
