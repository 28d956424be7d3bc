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

package wire

import "encoding/binary"

// ChunkHeader precedes every JPEG fragment in a stream datagram.
//
// Layout (little-endian):
//
//	[0]     unk1
//	[1]     n_chunk      chunk index, wraps at 256
//	[2]     n_frame      frame id, wraps at 256
//	[3]     last_chunk   final-chunk flag (meaning unconfirmed)
//	[4]     total_chunks nonzero only on the final chunk
//	[5]     unk5
//	[6:12]  position     3 x u16
//	[12:14] res_width
//	[14:16] res_height
type ChunkHeader struct {
	Position    [3]uint16
	ResWidth    uint16
	ResHeight   uint16
	Unk1        uint8
	NChunk      uint8
	NFrame      uint8
	LastChunk   uint8
	TotalChunks uint8
	Unk5        uint8
}

// DecodeChunkHeader parses a chunk header
func DecodeChunkHeader(data []byte) (ChunkHeader, error) {
	if len(data) < ChunkHeaderSize {
		return ChunkHeader{}, truncated("chunk header", ChunkHeaderSize, len(data))
	}

	return ChunkHeader{
		Unk1:        data[0],
		NChunk:      data[1],
		NFrame:      data[2],
		LastChunk:   data[3],
		TotalChunks: data[4],
		Unk5:        data[5],
		Position: [3]uint16{
			binary.LittleEndian.Uint16(data[6:8]),
			binary.LittleEndian.Uint16(data[8:10]),
			binary.LittleEndian.Uint16(data[10:12]),
		},
		ResWidth:  binary.LittleEndian.Uint16(data[12:14]),
		ResHeight: binary.LittleEndian.Uint16(data[14:16]),
	}, nil
}

// Encode serializes the header
func (c ChunkHeader) Encode() []byte {
	return c.AppendTo(make([]byte, 0, ChunkHeaderSize))
}

// AppendTo appends the serialized header to dst
func (c ChunkHeader) AppendTo(dst []byte) []byte {
	dst = append(dst, c.Unk1, c.NChunk, c.NFrame, c.LastChunk, c.TotalChunks, c.Unk5)
	for _, p := range c.Position {
		dst = binary.LittleEndian.AppendUint16(dst, p)
	}
	dst = binary.LittleEndian.AppendUint16(dst, c.ResWidth)
	return binary.LittleEndian.AppendUint16(dst, c.ResHeight)
}

// Final reports whether the chunk announces the frame's chunk count
func (c ChunkHeader) Final() bool {
	return c.TotalChunks != 0
}

// Chunk is one header plus payload record from a stream datagram.
// Payload aliases the datagram buffer.
type Chunk struct {
	Payload []byte
	Header  ChunkHeader
}

// SplitDatagram splits a stream datagram into its chunk records. Each record is
// a ChunkHeader followed by up to ChunkPayloadSize payload bytes. When a
// trailing fragment is too short for a header, the chunks parsed so far are
// returned together with ErrTruncated.
func SplitDatagram(datagram []byte) ([]Chunk, error) {
	var chunks []Chunk
	for offset := 0; offset < len(datagram); {
		hdr, err := DecodeChunkHeader(datagram[offset:])
		if err != nil {
			return chunks, err
		}
		offset += ChunkHeaderSize

		end := min(offset+ChunkPayloadSize, len(datagram))
		chunks = append(chunks, Chunk{Header: hdr, Payload: datagram[offset:end]})
		offset = end
	}
	return chunks, nil
}
