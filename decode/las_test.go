package decode

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

// buildLASHeader synthesizes a minimal, spec-layout-exact LAS 1.2
// public header block (227 bytes) for point data format 3 (has color,
// no classification-extended bits), plus numPoints point records
// immediately following, each built from (x,y,z) integer coordinates and
// a classification byte.
func buildLASHeader(t *testing.T, numPoints uint32, scale, offset [3]float64) []byte {
	t.Helper()
	const recLen = 34 // format 3: 20B base + 8B GPS time + 6B RGB
	header := make([]byte, lasMinHeaderLen)
	copy(header[0:4], "LASF")
	header[24] = 1 // version major
	header[25] = 2 // version minor
	binary.LittleEndian.PutUint32(header[96:100], uint32(lasMinHeaderLen))
	header[104] = 3 // point data format
	binary.LittleEndian.PutUint16(header[105:107], recLen)
	binary.LittleEndian.PutUint32(header[107:111], numPoints)

	putF64 := func(off int, v float64) {
		binary.LittleEndian.PutUint64(header[off:off+8], math.Float64bits(v))
	}
	putF64(131, scale[0])
	putF64(139, scale[1])
	putF64(147, scale[2])
	putF64(155, offset[0])
	putF64(163, offset[1])
	putF64(171, offset[2])
	putF64(179, 100) // maxX
	putF64(187, 0)   // minX
	putF64(195, 100) // maxY
	putF64(203, 0)   // minY
	putF64(211, 100) // maxZ
	putF64(219, 0)   // minZ

	return header
}

func appendLASRecord(buf []byte, x, y, z int32, intensity uint16, class byte, r, g, b uint16) []byte {
	rec := make([]byte, 34)
	binary.LittleEndian.PutUint32(rec[0:4], uint32(x))
	binary.LittleEndian.PutUint32(rec[4:8], uint32(y))
	binary.LittleEndian.PutUint32(rec[8:12], uint32(z))
	binary.LittleEndian.PutUint16(rec[12:14], intensity)
	rec[15] = class
	binary.LittleEndian.PutUint16(rec[28:30], r)
	binary.LittleEndian.PutUint16(rec[30:32], g)
	binary.LittleEndian.PutUint16(rec[32:34], b)
	return append(buf, rec...)
}

func TestDecodeLASHeaderAndPoints(t *testing.T) {
	scale := [3]float64{0.001, 0.001, 0.001}
	offset := [3]float64{0, 0, 0}
	data := buildLASHeader(t, 2, scale, offset)
	data = appendLASRecord(data, 1000, 2000, 3000, 100, 5, 65535, 0, 0)
	data = appendLASRecord(data, 2000, 3000, 4000, 200, 7, 0, 65535, 0)

	c, err := DecodeLAS(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("DecodeLAS: %v", err)
	}
	if c.PointCount() != 2 {
		t.Fatalf("PointCount() = %d, want 2", c.PointCount())
	}
	if !c.HasColor || !c.HasIntensity || !c.HasClassification {
		t.Fatalf("flags = %+v, want all true", c)
	}
	if c.Header.LASVersion != "1.2" {
		t.Fatalf("LASVersion = %q, want 1.2", c.Header.LASVersion)
	}
	if c.Header.PointRecordFormat != 3 {
		t.Fatalf("PointRecordFormat = %d, want 3", c.Header.PointRecordFormat)
	}
}

func TestDecodeLASRejectsBadSignature(t *testing.T) {
	data := buildLASHeader(t, 1, [3]float64{1, 1, 1}, [3]float64{})
	copy(data[0:4], "XXXX")
	data = appendLASRecord(data, 0, 0, 0, 0, 0, 0, 0, 0)

	_, err := DecodeLAS(bytes.NewReader(data))
	if err == nil {
		t.Fatal("expected InvalidSignature error")
	}
}

func TestDecodeLASRejectsZeroPoints(t *testing.T) {
	data := buildLASHeader(t, 0, [3]float64{1, 1, 1}, [3]float64{})
	_, err := DecodeLAS(bytes.NewReader(data))
	if err == nil {
		t.Fatal("expected EmptyCloud error for a header reporting zero points")
	}
}
