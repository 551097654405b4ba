package decode

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/OpenAEC-Foundation/open-pointcloud-studio/cloud"
)

// DecodeSTL reads both ASCII and binary STL triangle meshes. STL stores no
// shared vertex table: every triangle repeats its three corner
// coordinates, so this decoder deduplicates vertices by exact float32
// key to avoid tripling the point count on import.
func DecodeSTL(r io.Reader) (*cloud.Cloud, error) {
	br := bufio.NewReaderSize(r, 6)
	head, err := br.Peek(5)
	if err != nil {
		return nil, cloud.WrapError(cloud.Truncated, "stl header peek", err)
	}
	if string(head) == "solid" {
		return decodeSTLAscii(br)
	}
	return decodeSTLBinary(br)
}

type stlVertexKey [3]float32

func decodeSTLAscii(r io.Reader) (*cloud.Cloud, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	b := cloud.NewBuilder()
	seen := map[stlVertexKey]uint32{}
	var indices []uint32
	var cur []uint32

	for sc.Scan() {
		toks := strings.Fields(sc.Text())
		if len(toks) == 0 || toks[0] != "vertex" {
			continue
		}
		x, _ := strconv.ParseFloat(toks[1], 64)
		y, _ := strconv.ParseFloat(toks[2], 64)
		z, _ := strconv.ParseFloat(toks[3], 64)
		key := stlVertexKey{float32(x), float32(y), float32(z)}
		idx, ok := seen[key]
		if !ok {
			idx = uint32(b.Len())
			seen[key] = idx
			b.AddPoint(x, y, z, 0, 0, 0, 0, 0, false, false, false)
		}
		cur = append(cur, idx)
		if len(cur) == 3 {
			indices = append(indices, cur...)
			cur = nil
		}
	}
	if err := sc.Err(); err != nil {
		return nil, cloud.WrapError(cloud.Truncated, "reading stl ascii body", err)
	}
	if b.Len() == 0 {
		return nil, cloud.NewError(cloud.EmptyCloud, "stl contains no triangles")
	}

	c, err := b.Build("stl", [3]float64{1, 1, 1}, [3]float64{}, 1)
	if err != nil {
		return nil, err
	}
	c.Indices = indices
	return c, nil
}

func decodeSTLBinary(r io.Reader) (*cloud.Cloud, error) {
	var header [80]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, cloud.WrapError(cloud.Truncated, "stl binary header", err)
	}
	var triCount uint32
	if err := binary.Read(r, binary.LittleEndian, &triCount); err != nil {
		return nil, cloud.WrapError(cloud.Truncated, "stl binary triangle count", err)
	}
	if triCount == 0 {
		return nil, cloud.NewError(cloud.EmptyCloud, "stl contains no triangles")
	}

	b := cloud.NewBuilder()
	seen := map[stlVertexKey]uint32{}
	indices := make([]uint32, 0, triCount*3)

	rec := make([]byte, 50) // 12 bytes normal + 3*12 bytes vertices + 2 bytes attribute
	for i := uint32(0); i < triCount; i++ {
		if _, err := io.ReadFull(r, rec); err != nil {
			return nil, cloud.WrapError(cloud.Truncated, "stl binary triangle", err)
		}
		for v := 0; v < 3; v++ {
			off := 12 + v*12
			x := float64(math.Float32frombits(binary.LittleEndian.Uint32(rec[off : off+4])))
			y := float64(math.Float32frombits(binary.LittleEndian.Uint32(rec[off+4 : off+8])))
			z := float64(math.Float32frombits(binary.LittleEndian.Uint32(rec[off+8 : off+12])))
			key := stlVertexKey{float32(x), float32(y), float32(z)}
			idx, ok := seen[key]
			if !ok {
				idx = uint32(b.Len())
				seen[key] = idx
				b.AddPoint(x, y, z, 0, 0, 0, 0, 0, false, false, false)
			}
			indices = append(indices, idx)
		}
	}

	c, err := b.Build("stl", [3]float64{1, 1, 1}, [3]float64{}, 1)
	if err != nil {
		return nil, err
	}
	c.Indices = indices
	return c, nil
}
