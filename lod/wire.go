package lod

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeChunks serializes a sequence of chunks as the LOD binary chunk
// stream (spec.md §4.10), little-endian throughout, each chunk's node id
// and trailing point data padded up to 4-byte alignment.
func EncodeChunks(chunks []Chunk) []byte {
	var buf []byte
	buf = appendU32(buf, uint32(len(chunks)))
	for _, c := range chunks {
		buf = appendChunk(buf, c)
	}
	return buf
}

// EncodeChunk serializes a single chunk as a one-element chunk stream, for
// callers (e.g. the LOD Controller's per-node fetch) that request nodes
// individually.
func EncodeChunk(c Chunk) []byte {
	return EncodeChunks([]Chunk{c})
}

func appendChunk(buf []byte, c Chunk) []byte {
	idBytes := []byte(c.NodeID)
	buf = appendU32(buf, uint32(len(idBytes)))
	buf = append(buf, idBytes...)
	buf = padTo4(buf)

	for _, v := range c.Center {
		buf = appendF64(buf, v)
	}
	buf = appendU32(buf, uint32(c.Level))
	buf = appendF32(buf, c.Spacing)
	buf = appendU32(buf, c.PointCount)

	for _, v := range c.Positions {
		buf = appendF32(buf, v)
	}
	for i := 0; i < int(c.PointCount); i++ {
		buf = append(buf,
			clampByte(c.Colors[3*i]),
			clampByte(c.Colors[3*i+1]),
			clampByte(c.Colors[3*i+2]),
		)
	}
	for _, v := range c.Intensities {
		buf = appendU16(buf, uint16(clampf(v*65535, 0, 65535)))
	}
	for _, v := range c.Classifications {
		buf = append(buf, byte(clampf(v, 0, 255)))
	}
	buf = padTo4(buf)
	return buf
}

// DecodeChunks parses a full chunk stream, returning every chunk it
// contains.
func DecodeChunks(data []byte) ([]Chunk, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("lod: chunk stream truncated reading count")
	}
	count := binary.LittleEndian.Uint32(data)
	off := 4
	out := make([]Chunk, 0, count)
	for i := uint32(0); i < count; i++ {
		c, n, err := decodeChunkAt(data, off)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
		off += n
	}
	return out, nil
}

// DecodeChunk parses one chunk starting at data[0], returning the chunk
// and the number of bytes consumed (including its leading chunkCount=1
// framing word, if present — the controller's per-node fetch encodes a
// single chunk the same way EncodeChunks would for a one-element slice,
// so DecodeChunk tolerates either a bare chunk or a one-chunk stream).
func DecodeChunk(data []byte) (Chunk, int, error) {
	off := 0
	if len(data) >= 4 && binary.LittleEndian.Uint32(data) == 1 {
		off = 4
	}
	c, n, err := decodeChunkAt(data, off)
	if err != nil {
		return Chunk{}, 0, err
	}
	return c, off + n, nil
}

func decodeChunkAt(data []byte, off int) (Chunk, int, error) {
	start := off
	if len(data) < off+4 {
		return Chunk{}, 0, fmt.Errorf("lod: chunk truncated reading nodeIdLen")
	}
	idLen := int(binary.LittleEndian.Uint32(data[off:]))
	off += 4
	if len(data) < off+idLen {
		return Chunk{}, 0, fmt.Errorf("lod: chunk truncated reading nodeId")
	}
	nodeID := string(data[off : off+idLen])
	off += idLen
	off = alignUp(off)

	if len(data) < off+8*3+4+4+4 {
		return Chunk{}, 0, fmt.Errorf("lod: chunk truncated reading header")
	}
	var center [3]float64
	for i := range center {
		center[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[off:]))
		off += 8
	}
	level := binary.LittleEndian.Uint32(data[off:])
	off += 4
	spacing := math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
	off += 4
	count := binary.LittleEndian.Uint32(data[off:])
	off += 4

	posBytes := int(count) * 3 * 4
	colorBytes := int(count) * 3
	intensityBytes := int(count) * 2
	classBytes := int(count)
	if len(data) < off+posBytes+colorBytes+intensityBytes+classBytes {
		return Chunk{}, 0, fmt.Errorf("lod: chunk truncated reading point data")
	}

	positions := make([]float32, count*3)
	for i := range positions {
		positions[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
		off += 4
	}
	colors := make([]float32, count*3)
	for i := range colors {
		colors[i] = float32(data[off]) / 255
		off++
	}
	intensities := make([]float32, count)
	for i := range intensities {
		intensities[i] = float32(binary.LittleEndian.Uint16(data[off:])) / 65535
		off += 2
	}
	classifications := make([]float32, count)
	for i := range classifications {
		classifications[i] = float32(data[off])
		off++
	}
	off = alignUp(off)

	return Chunk{
		NodeID:          nodeID,
		Center:          center,
		Level:           uint8(level),
		Spacing:         spacing,
		Positions:       positions,
		Colors:          colors,
		Intensities:     intensities,
		Classifications: classifications,
		PointCount:      count,
	}, off - start, nil
}

func alignUp(n int) int {
	if rem := n % 4; rem != 0 {
		n += 4 - rem
	}
	return n
}

func padTo4(buf []byte) []byte {
	for len(buf)%4 != 0 {
		buf = append(buf, 0)
	}
	return buf
}

func appendU32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendU16(buf []byte, v uint16) []byte {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendF32(buf []byte, v float32) []byte {
	return appendU32(buf, math.Float32bits(v))
}

func appendF64(buf []byte, v float64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(v))
	return append(buf, tmp[:]...)
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampByte(v float32) byte {
	return byte(clampf(v*255, 0, 255))
}
