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

package reassembly

import (
	"errors"
	"fmt"
	"slices"

	"github.com/suearlabs/go-suear/wire"
)

// DefaultPoolSize is the number of frame slots used when none is configured
const DefaultPoolSize = 8

// Reassembly errors
var (
	ErrChunkSizeMismatch = errors.New("chunk size mismatch")
	ErrChunkOutOfBounds  = errors.New("chunk exceeds frame buffer")
)

// Stats counts engine activity since creation
type Stats struct {
	Chunks     uint64 // Chunks ingested
	Completed  uint64 // Frames that reached completion
	Superseded uint64 // Pending frames abandoned because a newer frame completed
	Evicted    uint64 // Pending frames discarded to free a slot (pool exhausted)
	Dropped    uint64 // Frames discarded after a chunk size mismatch
	Rejected   uint64 // Chunks refused because they fell outside the slot
	Unclaimed  uint64 // Completed frames overwritten before TakeCompleted
}

// slot is one pool entry and the bookkeeping the engine keeps about it
type slot struct {
	frame   Frame
	pending bool
	queued  bool
}

// Engine reassembles frames from stream chunks.
//
// Pending frames are tracked by an index from frame id to slot plus a FIFO of
// ids in arrival order; both are always updated together. The engine is not
// safe for concurrent use: one goroutine ingests and takes frames.
type Engine struct {
	pending map[uint8]*slot
	pool    []slot
	fifo    []uint8
	ready   []*slot
	stats   Stats
	next    int
}

// New creates an engine with poolSize frame slots of BufferSize bytes each.
// A poolSize below 1 selects DefaultPoolSize.
func New(poolSize int) *Engine {
	if poolSize < 1 {
		poolSize = DefaultPoolSize
	}

	pool := make([]slot, poolSize)
	for i := range pool {
		pool[i].frame.buf = make([]byte, BufferSize)
	}

	return &Engine{
		pool:    pool,
		pending: make(map[uint8]*slot, poolSize),
		fifo:    make([]uint8, 0, poolSize),
	}
}

// PoolSize returns the number of frame slots
func (e *Engine) PoolSize() int {
	return len(e.pool)
}

// Pending returns the number of frames currently being assembled
func (e *Engine) Pending() int {
	return len(e.pending)
}

// Stats returns a snapshot of the engine counters
func (e *Engine) Stats() Stats {
	return e.stats
}

// IngestDatagram splits a stream datagram into chunks and ingests each one.
// A bad chunk does not stop the rest of the datagram; all errors are joined.
func (e *Engine) IngestDatagram(datagram []byte) error {
	chunks, splitErr := wire.SplitDatagram(datagram)

	var errs []error
	for _, c := range chunks {
		if err := e.IngestChunk(c.Header, c.Payload); err != nil {
			errs = append(errs, err)
		}
	}
	if splitErr != nil {
		errs = append(errs, fmt.Errorf("stream datagram: %w", splitErr))
	}
	return errors.Join(errs...)
}

// IngestChunk adds one chunk to the frame identified by h.NFrame, creating the
// frame if the id is not pending. A chunk size mismatch drops the frame and
// returns ErrChunkSizeMismatch. A chunk that would not fit the slot is refused
// with ErrChunkOutOfBounds and the frame is left as it was.
func (e *Engine) IngestChunk(h wire.ChunkHeader, payload []byte) error {
	e.stats.Chunks++

	s, ok := e.pending[h.NFrame]
	if !ok {
		s = e.allocate(h)
	}
	f := &s.frame

	final := h.Final()
	switch {
	case !final && f.hasChunkSz && f.chunkSize != len(payload):
		want := f.chunkSize
		e.drop(s)
		return fmt.Errorf("%w: frame %d chunk %d has %d bytes, expected %d",
			ErrChunkSizeMismatch, h.NFrame, h.NChunk, len(payload), want)
	case !f.hasChunkSz:
		// A final chunk seen first is the only size hint available.
		f.chunkSize = len(payload)
		f.hasChunkSz = true
	}

	idx := f.effectiveIndex(h.NChunk)
	offset := f.chunkSize * (idx - int(f.firstChunk))
	if offset+len(payload) > len(f.buf) {
		e.stats.Rejected++
		return fmt.Errorf("%w: frame %d chunk %d at offset %d (+%d) exceeds %d bytes",
			ErrChunkOutOfBounds, h.NFrame, h.NChunk, offset, len(payload), len(f.buf))
	}

	copy(f.buf[offset:], payload)
	if f.markSeen(idx) {
		f.acquired += len(payload)
	}
	if final {
		f.total = int(h.TotalChunks)
	}

	if f.total > 0 && f.acquired > f.chunkSize*(f.total-1) {
		f.complete = true
		e.finish(s)
	}
	return nil
}

// TakeCompleted returns the oldest completed frame not yet taken
func (e *Engine) TakeCompleted() (*Frame, bool) {
	if len(e.ready) == 0 {
		return nil, false
	}
	s := e.ready[0]
	e.ready = slices.Delete(e.ready, 0, 1)
	s.queued = false
	return &s.frame, true
}

// allocate makes room if the pool is exhausted and starts a new frame view
func (e *Engine) allocate(h wire.ChunkHeader) *slot {
	for len(e.pending) >= len(e.pool) {
		e.evictOldest()
	}

	s := e.nextFree()
	if s.queued {
		e.ready = slices.DeleteFunc(e.ready, func(r *slot) bool { return r == s })
		s.queued = false
		e.stats.Unclaimed++
	}

	s.frame.reset(h.NFrame, h.NChunk, h.ResWidth, h.ResHeight, h.Position)
	s.pending = true
	e.pending[h.NFrame] = s
	e.fifo = append(e.fifo, h.NFrame)
	return s
}

// nextFree returns the next slot in round-robin order that holds no pending
// frame, evicting the oldest pending frame if every slot is taken.
func (e *Engine) nextFree() *slot {
	n := len(e.pool)
	for {
		for i := range n {
			idx := (e.next + i) % n
			if !e.pool[idx].pending {
				e.next = (idx + 1) % n
				return &e.pool[idx]
			}
		}
		e.evictOldest()
	}
}

// evictOldest discards the frame at the head of the FIFO
func (e *Engine) evictOldest() {
	if len(e.fifo) == 0 {
		return
	}
	id := e.fifo[0]
	e.fifo = slices.Delete(e.fifo, 0, 1)
	if s, ok := e.pending[id]; ok {
		s.pending = false
		delete(e.pending, id)
	}
	e.stats.Evicted++
}

// finish drains the FIFO up to and including the completed frame, abandoning
// every older pending frame, and queues the frame for TakeCompleted
func (e *Engine) finish(done *slot) {
	for len(e.fifo) > 0 {
		id := e.fifo[0]
		e.fifo = slices.Delete(e.fifo, 0, 1)
		if s, ok := e.pending[id]; ok {
			s.pending = false
			delete(e.pending, id)
		}
		if id == done.frame.id {
			break
		}
		e.stats.Superseded++
	}

	e.stats.Completed++
	done.queued = true
	e.ready = append(e.ready, done)
}

// drop removes a corrupt pending frame from the index and the FIFO
func (e *Engine) drop(s *slot) {
	id := s.frame.id
	delete(e.pending, id)
	e.fifo = slices.DeleteFunc(e.fifo, func(v uint8) bool { return v == id })
	s.pending = false
	e.stats.Dropped++
}
