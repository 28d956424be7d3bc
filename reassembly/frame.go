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

// Package reassembly rebuilds JPEG frames from Suear stream chunks.
//
// Chunks arrive out of order, may be lost or duplicated, and carry only 8-bit
// chunk and frame indices. The Engine assembles them into a fixed pool of
// reusable buffers and discards stale frames to keep memory bounded.
//
// Frame data returned by the engine is a view over a pool slot. It stays
// valid until the pool's round-robin allocation wraps back onto that slot,
// i.e. for the next PoolSize-1 new frames. Consumers that need the bytes
// longer must copy them.
package reassembly

// BufferSize is the capacity of one pool slot
const BufferSize = 131072

// seenWords covers effective chunk indices 0..511 (one unwrap of an 8-bit index)
const seenWords = 8

// Frame is an in-progress or completed frame occupying one pool slot
type Frame struct {
	buf        []byte
	seen       [seenWords]uint64
	position   [3]uint16
	chunkSize  int
	total      int
	acquired   int
	width      uint16
	height     uint16
	id         uint8
	firstChunk uint8
	hasChunkSz bool
	complete   bool
}

// reset reinitialises the view for a new frame instance
func (f *Frame) reset(id, firstChunk uint8, width, height uint16, position [3]uint16) {
	f.id = id
	f.firstChunk = firstChunk
	f.width = width
	f.height = height
	f.position = position
	f.seen = [seenWords]uint64{}
	f.chunkSize = 0
	f.hasChunkSz = false
	f.total = 0
	f.acquired = 0
	f.complete = false
}

// effectiveIndex unwraps an 8-bit chunk index relative to the first chunk seen
func (f *Frame) effectiveIndex(chunkIdx uint8) int {
	idx := int(chunkIdx)
	if idx < int(f.firstChunk) {
		idx += 256
	}
	return idx
}

// markSeen records idx and reports whether it was new
func (f *Frame) markSeen(idx int) bool {
	word, bit := idx/64, uint(idx%64)
	if f.seen[word]&(1<<bit) != 0 {
		return false
	}
	f.seen[word] |= 1 << bit
	return true
}

// ID returns the 8-bit frame identifier
func (f *Frame) ID() uint8 { return f.id }

// FirstChunk returns the chunk index of the first chunk received for this frame
func (f *Frame) FirstChunk() uint8 { return f.firstChunk }

// Width returns the advertised resolution width
func (f *Frame) Width() uint16 { return f.width }

// Height returns the advertised resolution height
func (f *Frame) Height() uint16 { return f.height }

// Position returns the 3-axis coordinate carried by the frame's first chunk.
// ok is false when the device sent no coordinate (all axes zero).
func (f *Frame) Position() (pos [3]uint16, ok bool) {
	return f.position, f.position != [3]uint16{}
}

// ChunkSize returns the inferred size of non-final chunks (0 until known)
func (f *Frame) ChunkSize() int { return f.chunkSize }

// TotalChunks returns the announced chunk count (0 until the final chunk arrives)
func (f *Frame) TotalChunks() int { return f.total }

// Len returns the number of payload bytes acquired so far
func (f *Frame) Len() int { return f.acquired }

// Complete reports whether every chunk of the frame has been acquired
func (f *Frame) Complete() bool { return f.complete }

// Data returns the reassembled JPEG bytes, or nil while the frame is incomplete
func (f *Frame) Data() []byte {
	if !f.complete {
		return nil
	}
	n := min(f.acquired, len(f.buf))
	return f.buf[:n:n]
}
