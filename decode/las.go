package decode

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/OpenAEC-Foundation/open-pointcloud-studio/cloud"
)

// lasHeader mirrors the subset of the LAS 1.2-1.4 public header block this
// decoder needs, laid out at the fixed byte offsets the format specifies.
type lasHeader struct {
	versionMajor, versionMinor    uint8
	pointDataFormat               uint8
	pointDataRecordLength         uint16
	numberOfPoints                uint64
	offsetToPoints                uint32
	scale, offset, min, max       [3]float64
	hasColor, hasGPSTime          bool
}

const lasMinHeaderLen = 227

func parseLASHeader(data []byte) (*lasHeader, error) {
	if len(data) < lasMinHeaderLen {
		return nil, cloud.NewError(cloud.Truncated, "las header shorter than 227 bytes")
	}
	if string(data[0:4]) != "LASF" {
		return nil, cloud.NewError(cloud.InvalidSignature, "missing LASF signature")
	}

	h := &lasHeader{
		versionMajor: data[24],
		versionMinor: data[25],
	}
	if h.versionMajor != 1 || h.versionMinor > 4 {
		return nil, cloud.NewError(cloud.UnsupportedVariant, "unsupported LAS version")
	}

	h.offsetToPoints = binary.LittleEndian.Uint32(data[96:100])
	h.pointDataFormat = data[104] & 0x7f // top bit marks LAS 1.4 extended formats
	h.pointDataRecordLength = binary.LittleEndian.Uint16(data[105:107])

	if h.versionMinor >= 4 && len(data) >= 255 {
		h.numberOfPoints = binary.LittleEndian.Uint64(data[247:255])
	} else {
		h.numberOfPoints = uint64(binary.LittleEndian.Uint32(data[107:111]))
	}

	readF64 := func(off int) float64 {
		return math.Float64frombits(binary.LittleEndian.Uint64(data[off : off+8]))
	}
	h.scale = [3]float64{readF64(131), readF64(139), readF64(147)}
	h.offset = [3]float64{readF64(155), readF64(163), readF64(171)}
	maxX, minX := readF64(179), readF64(187)
	maxY, minY := readF64(195), readF64(203)
	maxZ, minZ := readF64(211), readF64(219)
	h.min = [3]float64{minX, minY, minZ}
	h.max = [3]float64{maxX, maxY, maxZ}

	switch h.pointDataFormat {
	case 2, 3, 5, 7, 8, 10:
		h.hasColor = true
	}
	switch h.pointDataFormat {
	case 1, 3, 4, 5, 6, 7, 8, 9, 10:
		h.hasGPSTime = true
	}
	return h, nil
}

// colorByteOffset returns the byte offset of the RGB triple within a point
// record for the given point data format, or 0 if that format has no color.
func colorByteOffset(format uint8) int {
	switch format {
	case 2:
		return 20
	case 3, 5:
		return 28
	case 7, 8, 10:
		return 30
	default:
		return 0
	}
}

func classificationByteOffset(format uint8) int {
	if format >= 6 {
		return 16
	}
	return 15
}

// DecodeLAS reads an uncompressed LAS point cloud. The whole payload is
// buffered up front so random-access record reads stay simple; large files
// rely on Stride sampling rather than partial reads to stay under the soft
// point ceiling.
func DecodeLAS(r io.Reader) (*cloud.Cloud, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, cloud.WrapError(cloud.Truncated, "reading las file", err)
	}
	h, err := parseLASHeader(data)
	if err != nil {
		return nil, err
	}
	if h.numberOfPoints == 0 {
		return nil, cloud.NewError(cloud.EmptyCloud, "las header reports zero points")
	}

	b := cloud.NewBuilder()
	b.SetBounds(h.min, h.max)
	decodeLASRecords(b, data[h.offsetToPoints:], h)

	c, err := b.Build("las", h.scale, h.offset, 1)
	if err != nil {
		return nil, err
	}
	c.Header.LASVersion = lasVersionString(h.versionMajor, h.versionMinor)
	c.Header.PointRecordFormat = h.pointDataFormat
	return c, nil
}

// decodeLASRecords reads the ASPRS point-data-record array starting at raw[0]
// into b. It is shared by the uncompressed LAS path (raw is a slice into the
// file contents read into memory) and the LAZ path (raw is the decompressor's output buffer),
// since both produce the same fixed-layout records once decompressed.
func decodeLASRecords(b *cloud.Builder, raw []byte, h *lasHeader) {
	strideN := cloud.Stride(int(h.numberOfPoints))
	recLen := int(h.pointDataRecordLength)
	colorOff := colorByteOffset(h.pointDataFormat)
	classOff := classificationByteOffset(h.pointDataFormat)

	for i := uint64(0); i < h.numberOfPoints; i++ {
		if i%uint64(strideN) != 0 {
			continue
		}
		start := int(i) * recLen
		end := start + recLen
		if end > len(raw) {
			break
		}
		rec := raw[start:end]

		xi := int32(binary.LittleEndian.Uint32(rec[0:4]))
		yi := int32(binary.LittleEndian.Uint32(rec[4:8]))
		zi := int32(binary.LittleEndian.Uint32(rec[8:12]))
		x := float64(xi)*h.scale[0] + h.offset[0]
		y := float64(yi)*h.scale[1] + h.offset[1]
		z := float64(zi)*h.scale[2] + h.offset[2]

		intensity := float32(binary.LittleEndian.Uint16(rec[12:14])) / 65535

		var class float32
		if classOff < len(rec) {
			class = float32(rec[classOff] & 0x1f) // low 5 bits per ASPRS classification byte
		}

		var r, g, bl float32
		hasColor := h.hasColor && colorOff > 0 && colorOff+6 <= len(rec)
		if hasColor {
			r16 := binary.LittleEndian.Uint16(rec[colorOff : colorOff+2])
			g16 := binary.LittleEndian.Uint16(rec[colorOff+2 : colorOff+4])
			b16 := binary.LittleEndian.Uint16(rec[colorOff+4 : colorOff+6])
			r, g, bl = float32(r16)/65535, float32(g16)/65535, float32(b16)/65535
		}

		b.AddPoint(x, y, z, r, g, bl, intensity, class, hasColor, true, true)
	}
}

func lasVersionString(major, minor uint8) string {
	return fmt.Sprintf("%d.%d", major, minor)
}
