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
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suearlabs/go-suear/wire"
)

// chunkHeader builds a chunk header; total is nonzero only for final chunks
func chunkHeader(frame, idx, total uint8) wire.ChunkHeader {
	h := wire.ChunkHeader{
		Unk1:        1,
		NChunk:      idx,
		NFrame:      frame,
		TotalChunks: total,
		ResWidth:    640,
		ResHeight:   480,
	}
	if total != 0 {
		h.LastChunk = 1
	}
	return h
}

// fill returns n bytes of value b
func fill(b byte, n int) []byte {
	return bytes.Repeat([]byte{b}, n)
}

func TestEngine_OutOfOrderChunksReassembleInLogicalOrder(t *testing.T) {
	t.Parallel()

	e := New(DefaultPoolSize)

	require.NoError(t, e.IngestChunk(chunkHeader(5, 0, 0), fill(0xA0, 500)))
	require.NoError(t, e.IngestChunk(chunkHeader(5, 2, 0), fill(0xA2, 500)))
	require.NoError(t, e.IngestChunk(chunkHeader(5, 1, 0), fill(0xA1, 500)))

	_, ok := e.TakeCompleted()
	require.False(t, ok, "frame must not complete before the final chunk")

	require.NoError(t, e.IngestChunk(chunkHeader(5, 3, 4), fill(0xA3, 120)))

	frame, ok := e.TakeCompleted()
	require.True(t, ok)
	require.True(t, frame.Complete())

	data := frame.Data()
	require.Len(t, data, 1620)
	assert.Equal(t, fill(0xA0, 500), data[0:500])
	assert.Equal(t, fill(0xA1, 500), data[500:1000])
	assert.Equal(t, fill(0xA2, 500), data[1000:1500])
	assert.Equal(t, fill(0xA3, 120), data[1500:1620])

	assert.Equal(t, uint8(5), frame.ID())
	assert.Equal(t, uint16(640), frame.Width())
	assert.Equal(t, uint16(480), frame.Height())
	assert.Equal(t, 500, frame.ChunkSize())
	assert.Equal(t, 4, frame.TotalChunks())
	assert.Equal(t, 0, e.Pending())
	assert.Equal(t, uint64(1), e.Stats().Completed)
}

func TestEngine_ChunkIndexUnwrap(t *testing.T) {
	t.Parallel()

	const chunkSize = 100
	e := New(DefaultPoolSize)

	// Frame starts at chunk 250 and wraps through 255 -> 0 .. 3.
	for idx := 250; idx <= 255; idx++ {
		require.NoError(t, e.IngestChunk(chunkHeader(1, uint8(idx), 0), fill(byte(idx), chunkSize)))
	}
	for idx := 0; idx <= 2; idx++ {
		require.NoError(t, e.IngestChunk(chunkHeader(1, uint8(idx), 0), fill(byte(idx), chunkSize)))
	}
	require.NoError(t, e.IngestChunk(chunkHeader(1, 3, 10), fill(0x33, 50)))

	frame, ok := e.TakeCompleted()
	require.True(t, ok)
	assert.Equal(t, uint8(250), frame.FirstChunk())

	data := frame.Data()
	require.Len(t, data, 9*chunkSize+50)
	// Chunk 3 unwraps to 259, i.e. offset chunkSize*9, not chunkSize*3.
	assert.Equal(t, fill(0x33, 50), data[9*chunkSize:])
	assert.Equal(t, fill(250, chunkSize), data[0:chunkSize])
	assert.Equal(t, fill(0, chunkSize), data[6*chunkSize:7*chunkSize])
}

func TestEngine_PoolPressureEvictsOldest(t *testing.T) {
	t.Parallel()

	e := New(8)

	for id := uint8(1); id <= 8; id++ {
		require.NoError(t, e.IngestChunk(chunkHeader(id, 0, 0), fill(id, 500)))
	}
	assert.Equal(t, 8, e.Pending())
	assert.Equal(t, uint64(0), e.Stats().Evicted)

	require.NoError(t, e.IngestChunk(chunkHeader(9, 0, 0), fill(9, 500)))
	assert.Equal(t, 8, e.Pending())
	assert.Equal(t, uint64(1), e.Stats().Evicted)

	// Had frame 1 survived, this final chunk would complete it.
	require.NoError(t, e.IngestChunk(chunkHeader(1, 1, 2), fill(1, 100)))
	_, ok := e.TakeCompleted()
	assert.False(t, ok, "evicted frame must not be completable")

	// Frame 2 still completes: it was not evicted by frame 9.
	e2 := New(8)
	for id := uint8(1); id <= 9; id++ {
		require.NoError(t, e2.IngestChunk(chunkHeader(id, 0, 0), fill(id, 500)))
	}
	require.NoError(t, e2.IngestChunk(chunkHeader(2, 1, 2), fill(2, 100)))
	frame, ok := e2.TakeCompleted()
	require.True(t, ok)
	assert.Equal(t, uint8(2), frame.ID())
	assert.Len(t, frame.Data(), 600)
}

func TestEngine_CompletionDiscardsOlderPendingFrames(t *testing.T) {
	t.Parallel()

	e := New(DefaultPoolSize)

	// Frame A never completes.
	require.NoError(t, e.IngestChunk(chunkHeader(10, 0, 0), fill(0xAA, 400)))
	// Frame B completes.
	require.NoError(t, e.IngestChunk(chunkHeader(11, 0, 0), fill(0xBB, 400)))
	require.NoError(t, e.IngestChunk(chunkHeader(11, 1, 2), fill(0xBB, 10)))

	frame, ok := e.TakeCompleted()
	require.True(t, ok)
	assert.Equal(t, uint8(11), frame.ID())
	assert.Equal(t, 0, e.Pending())
	assert.Equal(t, uint64(1), e.Stats().Superseded)

	// A's last chunk now starts a brand new frame that cannot complete.
	require.NoError(t, e.IngestChunk(chunkHeader(10, 1, 2), fill(0xAA, 10)))
	_, ok = e.TakeCompleted()
	assert.False(t, ok)
	assert.Equal(t, 1, e.Pending())
}

func TestEngine_NewerPendingFramesSurviveCompletion(t *testing.T) {
	t.Parallel()

	e := New(DefaultPoolSize)

	require.NoError(t, e.IngestChunk(chunkHeader(1, 0, 0), fill(1, 200)))
	require.NoError(t, e.IngestChunk(chunkHeader(2, 0, 0), fill(2, 200)))
	require.NoError(t, e.IngestChunk(chunkHeader(1, 1, 2), fill(1, 20)))

	frame, ok := e.TakeCompleted()
	require.True(t, ok)
	assert.Equal(t, uint8(1), frame.ID())
	assert.Equal(t, 1, e.Pending(), "frame 2 arrived after frame 1 and stays pending")

	require.NoError(t, e.IngestChunk(chunkHeader(2, 1, 2), fill(2, 20)))
	frame, ok = e.TakeCompleted()
	require.True(t, ok)
	assert.Equal(t, uint8(2), frame.ID())
}

func TestEngine_DuplicateChunksAreIdempotent(t *testing.T) {
	t.Parallel()

	e := New(DefaultPoolSize)

	require.NoError(t, e.IngestChunk(chunkHeader(3, 0, 0), fill(0x10, 300)))
	require.NoError(t, e.IngestChunk(chunkHeader(3, 0, 0), fill(0x10, 300)))
	// Chunk 1 is still missing, so the final chunk must not complete the frame.
	require.NoError(t, e.IngestChunk(chunkHeader(3, 2, 3), fill(0x12, 30)))

	_, ok := e.TakeCompleted()
	require.False(t, ok)

	require.NoError(t, e.IngestChunk(chunkHeader(3, 1, 0), fill(0x11, 300)))
	frame, ok := e.TakeCompleted()
	require.True(t, ok)
	assert.Len(t, frame.Data(), 630)
}

func TestEngine_ChunkSizeMismatchDropsFrame(t *testing.T) {
	t.Parallel()

	e := New(DefaultPoolSize)

	require.NoError(t, e.IngestChunk(chunkHeader(4, 0, 0), fill(1, 500)))
	err := e.IngestChunk(chunkHeader(4, 1, 0), fill(1, 400))
	require.ErrorIs(t, err, ErrChunkSizeMismatch)

	assert.Equal(t, 0, e.Pending())
	assert.Equal(t, uint64(1), e.Stats().Dropped)

	// The engine keeps working after the error.
	require.NoError(t, e.IngestChunk(chunkHeader(5, 0, 1), fill(2, 64)))
	frame, ok := e.TakeCompleted()
	require.True(t, ok)
	assert.Equal(t, uint8(5), frame.ID())
}

func TestEngine_OutOfBoundsChunkIsRejected(t *testing.T) {
	t.Parallel()

	e := New(DefaultPoolSize)

	require.NoError(t, e.IngestChunk(chunkHeader(6, 0, 0), fill(1, wire.ChunkPayloadSize)))
	// 100 * 1456 is beyond the 131072-byte slot.
	err := e.IngestChunk(chunkHeader(6, 100, 0), fill(2, wire.ChunkPayloadSize))
	require.ErrorIs(t, err, ErrChunkOutOfBounds)

	assert.Equal(t, 1, e.Pending(), "frame stays pending after a rejected chunk")
	assert.Equal(t, uint64(1), e.Stats().Rejected)
}

func TestEngine_FinalChunkFirst(t *testing.T) {
	t.Parallel()

	e := New(DefaultPoolSize)

	require.NoError(t, e.IngestChunk(chunkHeader(7, 42, 1), fill(0xFF, 77)))
	frame, ok := e.TakeCompleted()
	require.True(t, ok)
	assert.Equal(t, 77, frame.ChunkSize())
	assert.Len(t, frame.Data(), 77)
}

func TestEngine_IngestDatagram(t *testing.T) {
	t.Parallel()

	e := New(DefaultPoolSize)

	first := chunkHeader(8, 0, 0)
	first.Position = [3]uint16{1, 2, 3}
	datagram := first.Encode()
	datagram = append(datagram, fill(0x01, wire.ChunkPayloadSize)...)
	datagram = chunkHeader(8, 1, 2).AppendTo(datagram)
	datagram = append(datagram, fill(0x02, 10)...)

	require.NoError(t, e.IngestDatagram(datagram))

	frame, ok := e.TakeCompleted()
	require.True(t, ok)
	assert.Len(t, frame.Data(), wire.ChunkPayloadSize+10)

	pos, ok := frame.Position()
	assert.True(t, ok)
	assert.Equal(t, [3]uint16{1, 2, 3}, pos)

	_, ok = e.TakeCompleted()
	assert.False(t, ok, "a frame is handed out once")
}

func TestEngine_IngestDatagramReportsTrailingFragment(t *testing.T) {
	t.Parallel()

	e := New(DefaultPoolSize)

	datagram := chunkHeader(9, 0, 1).Encode()
	datagram = append(datagram, fill(0x09, wire.ChunkPayloadSize)...)
	datagram = append(datagram, 0x01, 0x02)

	err := e.IngestDatagram(datagram)
	require.ErrorIs(t, err, wire.ErrTruncated)

	frame, ok := e.TakeCompleted()
	require.True(t, ok, "chunks before the fragment are still ingested")
	assert.Equal(t, uint8(9), frame.ID())
}

func TestFrame_IncompleteHasNoData(t *testing.T) {
	t.Parallel()

	e := New(1)
	require.NoError(t, e.IngestChunk(chunkHeader(1, 0, 0), fill(1, 10)))

	s := e.pending[1]
	require.NotNil(t, s)
	assert.False(t, s.frame.Complete())
	assert.Nil(t, s.frame.Data())
	assert.Equal(t, 10, s.frame.Len())

	_, ok := s.frame.Position()
	assert.False(t, ok)
}

func TestNew_DefaultPoolSize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultPoolSize, New(0).PoolSize())
	assert.Equal(t, 3, New(3).PoolSize())
}
