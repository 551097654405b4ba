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

type plyFormat int

const (
	plyAscii plyFormat = iota
	plyBinaryLittleEndian
	plyBinaryBigEndian
)

type plyPropertyType int

const (
	plyInt8 plyPropertyType = iota
	plyUint8
	plyInt16
	plyUint16
	plyInt32
	plyUint32
	plyFloat32
	plyFloat64
	plyList
)

type plyProperty struct {
	name string
	typ  plyPropertyType
}

type plyElement struct {
	name       string
	count      int
	properties []plyProperty
}

func (p plyPropertyType) size() int {
	switch p {
	case plyInt8, plyUint8:
		return 1
	case plyInt16, plyUint16:
		return 2
	case plyInt32, plyUint32, plyFloat32:
		return 4
	case plyFloat64:
		return 8
	default:
		return 0
	}
}

// DecodePLY reads ASCII and binary (little- or big-endian) Stanford PLY
// files, extracting the "vertex" element's x/y/z plus any of
// red/green/blue/intensity it carries. Other elements (e.g. face) are
// skipped.
func DecodePLY(r io.Reader) (*cloud.Cloud, error) {
	rb := bufio.NewReader(r)

	line, err := readPlyLine(rb)
	if err != nil || line != "ply" {
		return nil, cloud.NewError(cloud.InvalidSignature, "missing ply magic header")
	}

	format := plyAscii
	var elements []plyElement
	var cur *plyElement

headerLoop:
	for {
		line, err = readPlyLine(rb)
		if err != nil {
			return nil, cloud.WrapError(cloud.Truncated, "ply header", err)
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "comment", "obj_info":
			continue
		case "format":
			switch fields[1] {
			case "ascii":
				format = plyAscii
			case "binary_little_endian":
				format = plyBinaryLittleEndian
			case "binary_big_endian":
				format = plyBinaryBigEndian
			default:
				return nil, cloud.NewError(cloud.UnsupportedVariant, "unknown ply format "+fields[1])
			}
		case "element":
			count, _ := strconv.Atoi(fields[2])
			elements = append(elements, plyElement{name: fields[1], count: count})
			cur = &elements[len(elements)-1]
		case "property":
			if cur == nil {
				continue
			}
			if fields[1] == "list" {
				cur.properties = append(cur.properties, plyProperty{name: fields[len(fields)-1], typ: plyList})
				continue
			}
			cur.properties = append(cur.properties, plyProperty{name: fields[2], typ: plyTypeOf(fields[1])})
		case "end_header":
			break headerLoop
		}
	}

	b := cloud.NewBuilder()
	var total int
	for _, el := range elements {
		total += el.count
	}
	if total == 0 {
		return nil, cloud.NewError(cloud.EmptyCloud, "ply declares zero vertices")
	}

	for _, el := range elements {
		if el.name != "vertex" {
			if err := skipPlyElement(rb, el, format); err != nil {
				return nil, err
			}
			continue
		}
		if err := readPlyVertices(rb, el, format, b); err != nil {
			return nil, err
		}
	}

	return b.Build("ply", [3]float64{1, 1, 1}, [3]float64{}, 1)
}

func plyTypeOf(t string) plyPropertyType {
	switch t {
	case "char", "int8":
		return plyInt8
	case "uchar", "uint8":
		return plyUint8
	case "short", "int16":
		return plyInt16
	case "ushort", "uint16":
		return plyUint16
	case "int", "int32":
		return plyInt32
	case "uint", "uint32":
		return plyUint32
	case "double", "float64":
		return plyFloat64
	default: // "float", "float32"
		return plyFloat32
	}
}

func readPlyLine(rb *bufio.Reader) (string, error) {
	line, err := rb.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// plyOffset returns the byte offset of a named scalar property within its
// element's binary record, or false if absent.
func plyOffset(el plyElement, name string) (offset int, typ plyPropertyType, found bool) {
	off := 0
	for _, p := range el.properties {
		if p.name == name && p.typ != plyList {
			return off, p.typ, true
		}
		off += p.typ.size()
	}
	return 0, 0, false
}

func plyRecordLen(el plyElement) int {
	n := 0
	for _, p := range el.properties {
		n += p.typ.size()
	}
	return n
}

func readPlyVertices(rb *bufio.Reader, el plyElement, format plyFormat, b *cloud.Builder) error {
	xo, _, _ := plyOffset(el, "x")
	yo, _, _ := plyOffset(el, "y")
	zo, _, _ := plyOffset(el, "z")
	ro, _, hasColor := plyOffset(el, "red")
	go_, _, _ := plyOffset(el, "green")
	bo, _, _ := plyOffset(el, "blue")
	io_, ityp, hasIntensity := plyOffset(el, "intensity")
	stride := cloud.Stride(el.count)

	if format == plyAscii {
		propIndex := make(map[string]int, len(el.properties))
		for i, p := range el.properties {
			propIndex[p.name] = i
		}
		for i := 0; i < el.count; i++ {
			line, err := readPlyLine(rb)
			if err != nil {
				return cloud.WrapError(cloud.Truncated, "ply ascii vertex", err)
			}
			if i%stride != 0 {
				continue
			}
			toks := strings.Fields(line)
			val := func(name string) float64 {
				idx, ok := propIndex[name]
				if !ok || idx >= len(toks) {
					return 0
				}
				v, _ := strconv.ParseFloat(toks[idx], 64)
				return v
			}
			x, y, z := val("x"), val("y"), val("z")
			var r, g, bl, intensity float32
			if hasColor {
				r, g, bl = float32(val("red"))/255, float32(val("green"))/255, float32(val("blue"))/255
			}
			if hasIntensity {
				intensity = float32(val("intensity"))
			}
			b.AddPoint(x, y, z, r, g, bl, intensity, 0, hasColor, hasIntensity, false)
		}
		return nil
	}

	recLen := plyRecordLen(el)
	buf := make([]byte, recLen)
	order := binary.ByteOrder(binary.LittleEndian)
	if format == plyBinaryBigEndian {
		order = binary.BigEndian
	}
	for i := 0; i < el.count; i++ {
		if _, err := io.ReadFull(rb, buf); err != nil {
			return cloud.WrapError(cloud.Truncated, "ply binary vertex", err)
		}
		if i%stride != 0 {
			continue
		}
		_, xt, _ := plyOffset(el, "x")
		x := plyReadNumeric(buf, xo, xt, order)
		y := plyReadNumeric(buf, yo, xt, order)
		z := plyReadNumeric(buf, zo, xt, order)
		var r, g, bl, intensity float32
		if hasColor {
			r = float32(buf[ro]) / 255
			g = float32(buf[go_]) / 255
			bl = float32(buf[bo]) / 255
		}
		if hasIntensity {
			intensity = float32(plyReadNumeric(buf, io_, ityp, order))
		}
		b.AddPoint(x, y, z, r, g, bl, intensity, 0, hasColor, hasIntensity, false)
	}
	return nil
}

func plyReadNumeric(buf []byte, offset int, typ plyPropertyType, order binary.ByteOrder) float64 {
	switch typ {
	case plyInt8:
		return float64(int8(buf[offset]))
	case plyUint8:
		return float64(buf[offset])
	case plyInt16:
		return float64(int16(order.Uint16(buf[offset : offset+2])))
	case plyUint16:
		return float64(order.Uint16(buf[offset : offset+2]))
	case plyInt32:
		return float64(int32(order.Uint32(buf[offset : offset+4])))
	case plyUint32:
		return float64(order.Uint32(buf[offset : offset+4]))
	case plyFloat32:
		return float64(math.Float32frombits(order.Uint32(buf[offset : offset+4])))
	case plyFloat64:
		return math.Float64frombits(order.Uint64(buf[offset : offset+8]))
	default:
		return 0
	}
}

func skipPlyElement(rb *bufio.Reader, el plyElement, format plyFormat) error {
	if format == plyAscii {
		for i := 0; i < el.count; i++ {
			if _, err := readPlyLine(rb); err != nil {
				return cloud.WrapError(cloud.Truncated, "ply ascii skip", err)
			}
		}
		return nil
	}
	hasList := false
	for _, p := range el.properties {
		if p.typ == plyList {
			hasList = true
		}
	}
	if !hasList {
		n := plyRecordLen(el) * el.count
		if _, err := io.CopyN(io.Discard, rb, int64(n)); err != nil {
			return cloud.WrapError(cloud.Truncated, "ply binary skip", err)
		}
		return nil
	}
	// Face-like elements: each list is read as a "uchar count" followed by
	// count 4-byte indices, the overwhelming convention. The list's declared
	// count and index types are not consulted, so other layouts are misread.
	for i := 0; i < el.count; i++ {
		var n uint8
		if err := binary.Read(rb, binary.LittleEndian, &n); err != nil {
			return cloud.WrapError(cloud.Truncated, "ply face list count", err)
		}
		if _, err := io.CopyN(io.Discard, rb, int64(n)*4); err != nil {
			return cloud.WrapError(cloud.Truncated, "ply face list body", err)
		}
	}
	return nil
}
