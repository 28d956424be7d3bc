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
	"errors"
	"fmt"
	"iter"

	"github.com/suearlabs/go-suear/reassembly"
)

// NextFrame blocks until a complete frame has been reassembled
func (d *Device) NextFrame() (*reassembly.Frame, error) {
	return d.NextFrameContext(context.Background())
}

// NextFrameContext receives stream datagrams until a frame completes. A
// receive that sees no datagram within the configured timeout returns
// ErrTimeout; the stream stays open and the call may be repeated.
//
// The returned frame is a view over a reassembly buffer; see the
// reassembly package for how long its data stays valid.
func (d *Device) NextFrameContext(ctx context.Context) (*reassembly.Frame, error) {
	d.streamMu.Lock()
	defer d.streamMu.Unlock()

	for {
		conn, engine, err := d.activeStream()
		if err != nil {
			return nil, err
		}
		if f, ok := engine.TakeCompleted(); ok {
			return f, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		timeout, err := d.receiveTimeout(ctx)
		if err != nil {
			return nil, err
		}
		n, from, err := conn.ReceiveFrom(d.streamBuf, timeout)
		if err != nil {
			return nil, fmt.Errorf("receive stream datagram: %w", err)
		}
		if from.Addr().Unmap() != d.addr {
			debugf("ignoring stream datagram from %s", from)
			continue
		}

		ingestErr := engine.IngestDatagram(d.streamBuf[:n])
		stats := engine.Stats()
		d.mu.Lock()
		if d.engine == engine {
			d.stats = stats
		}
		d.mu.Unlock()

		if f, ok := engine.TakeCompleted(); ok {
			if ingestErr != nil {
				debugf("stream datagram partly rejected: %v", ingestErr)
			}
			return f, nil
		}
		if ingestErr != nil {
			return nil, classifyStreamError(ingestErr)
		}
	}
}

// activeStream returns the socket and engine of the open stream. A stream
// ended by Disconnect reports ErrClosed; a session that never opened one
// reports ErrNotStreaming.
func (d *Device) activeStream() (Conn, *reassembly.Engine, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == StateStreaming && d.streamConn != nil {
		return d.streamConn, d.engine, nil
	}
	if d.streamClosed {
		return nil, nil, fmt.Errorf("%w: stream was disconnected", ErrClosed)
	}
	return nil, nil, ErrNotStreaming
}

// Frames returns an iterator over reassembled frames. Errors that leave the
// stream usable, such as timeouts or rejected chunks, are yielded and
// iteration continues; iteration ends after yielding an error that closes
// the stream or when ctx is done.
func (d *Device) Frames(ctx context.Context) iter.Seq2[*reassembly.Frame, error] {
	return func(yield func(*reassembly.Frame, error) bool) {
		for {
			f, err := d.NextFrameContext(ctx)
			if err != nil && terminalStreamError(ctx, err) {
				yield(nil, err)
				return
			}
			if !yield(f, err) {
				return
			}
		}
	}
}

// classifyStreamError tags an ingest failure as malformed or as a protocol
// violation
func classifyStreamError(err error) error {
	if GetErrorType(err) == ErrorTypeProtocol {
		return fmt.Errorf("%w: %w", ErrProtocolViolation, err)
	}
	return fmt.Errorf("%w: %w", ErrMalformedMessage, err)
}

func terminalStreamError(ctx context.Context, err error) bool {
	return ctx.Err() != nil ||
		errors.Is(err, ErrClosed) ||
		errors.Is(err, ErrNotStreaming)
}
