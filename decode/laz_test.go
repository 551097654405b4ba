package decode

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"testing"

	"github.com/OpenAEC-Foundation/open-pointcloud-studio/cloud"
)

// fakeLazDecompressor hands back a pre-built raw LAS record buffer,
// standing in for a real LASzip arithmetic decoder.
type fakeLazDecompressor struct {
	raw []byte
	err error
}

func (f *fakeLazDecompressor) Decompress(vlr []byte, r io.Reader, recordLen, totalPoints int) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.raw, nil
}

// buildLAZHeader synthesizes a LAS 1.2 header followed by a single
// LASzip VLR (user id "laszip encoded", record id 22204) so
// findLASZipVLR has something to locate, then places offsetToPoints
// right after it.
func buildLAZHeader(t *testing.T, numPoints uint32, vlrPayload []byte) []byte {
	t.Helper()
	const recLen = 34
	vlrHeaderLen := 54
	pointsStart := lasMinHeaderLen + vlrHeaderLen + len(vlrPayload)

	header := make([]byte, lasMinHeaderLen)
	copy(header[0:4], "LASF")
	header[24] = 1
	header[25] = 2
	binary.LittleEndian.PutUint32(header[96:100], uint32(pointsStart))
	binary.LittleEndian.PutUint32(header[100:104], 1) // one VLR
	header[104] = 3
	binary.LittleEndian.PutUint16(header[105:107], recLen)
	binary.LittleEndian.PutUint32(header[107:111], numPoints)

	putF64 := func(off int, v float64) {
		binary.LittleEndian.PutUint64(header[off:off+8], math.Float64bits(v))
	}
	putF64(131, 0.001)
	putF64(139, 0.001)
	putF64(147, 0.001)
	putF64(155, 0)
	putF64(163, 0)
	putF64(171, 0)
	putF64(179, 100)
	putF64(187, 0)
	putF64(195, 100)
	putF64(203, 0)
	putF64(211, 100)
	putF64(219, 0)

	vlr := make([]byte, vlrHeaderLen)
	copy(vlr[2:18], lasZipUserID)
	binary.LittleEndian.PutUint16(vlr[18:20], lasZipRecordID)
	binary.LittleEndian.PutUint16(vlr[20:22], uint16(len(vlrPayload)))

	data := append(header, vlr...)
	data = append(data, vlrPayload...)
	return data
}

func TestDecodeLAZRequiresDecompressor(t *testing.T) {
	SetLazDecompressor(nil)
	data := buildLAZHeader(t, 1, []byte{1, 2, 3, 4})
	_, err := DecodeLAZ(bytes.NewReader(data))
	if err == nil {
		t.Fatal("expected UnsupportedVariant error with no decompressor installed")
	}
	kind, ok := cloud.KindOf(err)
	if !ok || kind != cloud.UnsupportedVariant {
		t.Fatalf("error kind = %v, want UnsupportedVariant", kind)
	}
}

func TestDecodeLAZDecodesViaInstalledDecompressor(t *testing.T) {
	raw := appendLASRecord(nil, 1000, 2000, 3000, 100, 5, 65535, 0, 0)
	SetLazDecompressor(&fakeLazDecompressor{raw: raw})
	defer SetLazDecompressor(nil)

	data := buildLAZHeader(t, 1, []byte{9, 9, 9, 9})
	c, err := DecodeLAZ(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("DecodeLAZ: %v", err)
	}
	if c.PointCount() != 1 {
		t.Fatalf("PointCount() = %d, want 1", c.PointCount())
	}
	if c.Header.LASVersion != "1.2" {
		t.Fatalf("LASVersion = %q, want 1.2", c.Header.LASVersion)
	}
}

func TestDecodeLAZPropagatesDecompressorError(t *testing.T) {
	SetLazDecompressor(&fakeLazDecompressor{err: io.ErrUnexpectedEOF})
	defer SetLazDecompressor(nil)

	data := buildLAZHeader(t, 1, []byte{1, 2, 3, 4})
	_, err := DecodeLAZ(bytes.NewReader(data))
	if err == nil {
		t.Fatal("expected BackendError wrapping the decompressor failure")
	}
}

func TestDecodeLAZRejectsMissingVLR(t *testing.T) {
	raw := appendLASRecord(nil, 0, 0, 0, 0, 0, 0, 0, 0)
	SetLazDecompressor(&fakeLazDecompressor{raw: raw})
	defer SetLazDecompressor(nil)

	data := buildLAZHeader(t, 1, []byte{1, 2, 3, 4})
	// Corrupt the VLR's user id so findLASZipVLR can't match it.
	copy(data[lasMinHeaderLen+2:lasMinHeaderLen+18], "not laszip       ")

	_, err := DecodeLAZ(bytes.NewReader(data))
	if err == nil {
		t.Fatal("expected an error when no laszip VLR can be found")
	}
}
