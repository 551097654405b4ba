package decode

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/zhuyie/golzf"

	"github.com/OpenAEC-Foundation/open-pointcloud-studio/cloud"
	"github.com/OpenAEC-Foundation/open-pointcloud-studio/mat"
)

type pcdFormat int

const (
	pcdAscii pcdFormat = iota
	pcdBinary
	pcdBinaryCompressed
)

type pcdHeader struct {
	fields       []string
	size         []int
	typ          []string
	count        []int
	points       int
	format       pcdFormat
	hasViewpoint bool
	translation  [3]float64
	rotation     mat.Quaternion
}

// applyViewpoint rotates then translates a point by the PCD VIEWPOINT pose
// (tx ty tz qw qx qy qz), per the PCD spec's "viewpoint applies a
// quaternion rotation then translation" convention.
func (h *pcdHeader) applyViewpoint(x, y, z float64) (float64, float64, float64) {
	if !h.hasViewpoint {
		return x, y, z
	}
	v := h.rotation.Rotate(mat.NewVec3(float32(x), float32(y), float32(z)))
	return float64(v[0]) + h.translation[0], float64(v[1]) + h.translation[1], float64(v[2]) + h.translation[2]
}

// DecodePCD reads a PCD (Point Cloud Data) file in any of its three DATA
// variants: ascii, binary, and binary_compressed (LZF, per
// github.com/zhuyie/golzf). Field layout is read from the FIELDS/SIZE/
// TYPE/COUNT header lines rather than assumed, so non-standard field sets
// decode as long as x, y, z are present.
func DecodePCD(r io.Reader) (*cloud.Cloud, error) {
	rb := bufio.NewReader(r)
	h, err := parsePCDHeader(rb)
	if err != nil {
		return nil, cloud.WrapError(cloud.InvalidSignature, "pcd header", err)
	}
	if h.points == 0 {
		return nil, cloud.NewError(cloud.EmptyCloud, "pcd has zero points")
	}

	idx := map[string]int{}
	for i, f := range h.fields {
		idx[f] = i
	}
	xi, okX := idx["x"]
	yi, okY := idx["y"]
	zi, okZ := idx["z"]
	if !okX || !okY || !okZ {
		return nil, cloud.NewError(cloud.UnsupportedVariant, "pcd missing x/y/z fields")
	}
	ri, hasColor := idx["rgb"]
	if !hasColor {
		ri, hasColor = idx["rgba"]
	}
	ii, hasIntensity := idx["intensity"]
	li, hasClass := idx["label"]
	if !hasClass {
		li, hasClass = idx["classification"]
	}

	stride := 0
	offset := make([]int, len(h.fields))
	for i := range h.fields {
		offset[i] = stride
		stride += h.size[i] * h.count[i]
	}

	b := cloud.NewBuilder()
	stridePts := cloud.Stride(h.points)

	switch h.format {
	case pcdAscii:
		for p := 0; p < h.points; p++ {
			line, _, err := rb.ReadLine()
			if err != nil {
				return nil, cloud.WrapError(cloud.Truncated, "pcd ascii body", err)
			}
			toks := strings.Fields(string(line))
			if len(toks) < len(h.fields) {
				return nil, cloud.NewError(cloud.Truncated, "pcd ascii row short")
			}
			x, _ := strconv.ParseFloat(toks[xi], 64)
			y, _ := strconv.ParseFloat(toks[yi], 64)
			z, _ := strconv.ParseFloat(toks[zi], 64)
			x, y, z = h.applyViewpoint(x, y, z)
			var r, g, bl, intensity, class float32
			if hasColor {
				rgb, _ := strconv.ParseUint(toks[ri], 10, 32)
				r, g, bl = unpackRGB(uint32(rgb))
			}
			if hasIntensity {
				v, _ := strconv.ParseFloat(toks[ii], 64)
				intensity = float32(v)
			}
			if hasClass {
				v, _ := strconv.ParseFloat(toks[li], 64)
				class = float32(v)
			}
			if p%stridePts == 0 {
				b.AddPoint(x, y, z, r, g, bl, intensity, class, hasColor, hasIntensity, hasClass)
			}
		}
	case pcdBinary, pcdBinaryCompressed:
		data, err := readPCDBody(rb, h)
		if err != nil {
			return nil, err
		}
		get := func(field int, p int) []byte {
			from := p*stride + offset[field]
			return data[from : from+h.size[field]*h.count[field]]
		}
		for p := 0; p < h.points; p++ {
			if p%stridePts != 0 {
				continue
			}
			x := float64(leFloat32(get(xi, p)))
			y := float64(leFloat32(get(yi, p)))
			z := float64(leFloat32(get(zi, p)))
			x, y, z = h.applyViewpoint(x, y, z)
			var r, g, bl, intensity, class float32
			if hasColor {
				rgb := binary.LittleEndian.Uint32(get(ri, p))
				r, g, bl = unpackRGB(rgb)
			}
			if hasIntensity {
				intensity = leFloat32(get(ii, p))
			}
			if hasClass {
				class = leFloat32(get(li, p))
			}
			b.AddPoint(x, y, z, r, g, bl, intensity, class, hasColor, hasIntensity, hasClass)
		}
	}

	return b.Build("pcd", [3]float64{1, 1, 1}, [3]float64{}, 1)
}

func parsePCDHeader(rb *bufio.Reader) (*pcdHeader, error) {
	h := &pcdHeader{}
	for {
		line, _, err := rb.ReadLine()
		if err != nil {
			return nil, err
		}
		args := strings.Fields(string(line))
		if len(args) == 0 || strings.HasPrefix(args[0], "#") {
			continue
		}
		if len(args) < 2 {
			return nil, errors.New("header field missing value")
		}
		switch args[0] {
		case "FIELDS":
			h.fields = args[1:]
		case "SIZE":
			h.size = make([]int, len(args)-1)
			for i, s := range args[1:] {
				h.size[i], _ = strconv.Atoi(s)
			}
		case "TYPE":
			h.typ = args[1:]
		case "COUNT":
			h.count = make([]int, len(args)-1)
			for i, s := range args[1:] {
				h.count[i], _ = strconv.Atoi(s)
			}
		case "POINTS":
			h.points, _ = strconv.Atoi(args[1])
		case "VIEWPOINT":
			if len(args) >= 8 {
				tx, _ := strconv.ParseFloat(args[1], 64)
				ty, _ := strconv.ParseFloat(args[2], 64)
				tz, _ := strconv.ParseFloat(args[3], 64)
				qw, _ := strconv.ParseFloat(args[4], 64)
				qx, _ := strconv.ParseFloat(args[5], 64)
				qy, _ := strconv.ParseFloat(args[6], 64)
				qz, _ := strconv.ParseFloat(args[7], 64)
				h.translation = [3]float64{tx, ty, tz}
				h.rotation = mat.NewQuaternion(float32(qw), float32(qx), float32(qy), float32(qz))
				h.hasViewpoint = true
			}
		case "DATA":
			switch args[1] {
			case "ascii":
				h.format = pcdAscii
			case "binary":
				h.format = pcdBinary
			case "binary_compressed":
				h.format = pcdBinaryCompressed
			default:
				return nil, errors.New("unknown DATA format " + args[1])
			}
			if len(h.count) == 0 {
				h.count = make([]int, len(h.fields))
				for i := range h.count {
					h.count[i] = 1
				}
			}
			return h, nil
		}
	}
}

func readPCDBody(rb *bufio.Reader, h *pcdHeader) ([]byte, error) {
	if h.format == pcdBinary {
		data, err := io.ReadAll(rb)
		if err != nil {
			return nil, cloud.WrapError(cloud.Truncated, "pcd binary body", err)
		}
		return data, nil
	}

	var nCompressed, nUncompressed int32
	if err := binary.Read(rb, binary.LittleEndian, &nCompressed); err != nil {
		return nil, cloud.WrapError(cloud.Truncated, "pcd compressed size", err)
	}
	if err := binary.Read(rb, binary.LittleEndian, &nUncompressed); err != nil {
		return nil, cloud.WrapError(cloud.Truncated, "pcd uncompressed size", err)
	}
	compressed, err := io.ReadAll(rb)
	if err != nil {
		return nil, cloud.WrapError(cloud.Truncated, "pcd compressed body", err)
	}
	if int32(len(compressed)) < nCompressed {
		return nil, cloud.NewError(cloud.Truncated, "pcd compressed body shorter than declared")
	}

	dec := make([]byte, nUncompressed)
	n, err := lzf.Decompress(compressed[:nCompressed], dec)
	if err != nil {
		return nil, cloud.WrapError(cloud.Truncated, "pcd lzf decompress", err)
	}
	if n != int(nUncompressed) {
		return nil, cloud.NewError(cloud.Truncated, "pcd lzf size mismatch")
	}

	// dec is field-major (all x's, then all y's, ...); rearrange into a
	// point-major strided buffer so the reader logic above stays uniform
	// across binary and binary_compressed.
	stride := 0
	offset := make([]int, len(h.fields))
	fieldStart := make([]int, len(h.fields))
	var pos int
	for i := range h.fields {
		fieldStart[i] = pos
		offset[i] = stride
		pos += h.size[i] * h.count[i] * h.points
		stride += h.size[i] * h.count[i]
	}
	out := make([]byte, stride*h.points)
	for i := range h.fields {
		size := h.size[i] * h.count[i]
		for p := 0; p < h.points; p++ {
			from := fieldStart[i] + p*size
			to := p*stride + offset[i]
			copy(out[to:to+size], dec[from:from+size])
		}
	}
	return out, nil
}

func leFloat32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func unpackRGB(rgb uint32) (r, g, b float32) {
	return float32((rgb>>16)&0xff) / 255, float32((rgb>>8)&0xff) / 255, float32(rgb&0xff) / 255
}
