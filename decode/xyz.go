package decode

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/OpenAEC-Foundation/open-pointcloud-studio/cloud"
)

// DecodeXYZ reads whitespace- or comma-delimited ASCII point records
// covering the XYZ/CSV/TXT/ASC family: "x y z", "x y z r g b", or
// "x y z intensity" per row, one row per point. A column count outside
// {3,4,6,7} on the first data row is rejected as an unsupported variant.
func DecodeXYZ(r io.Reader) (*cloud.Cloud, error) {
	rb := bufio.NewScanner(r)
	rb.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var cols int
	b := cloud.NewBuilder()
	var rows [][]float64
	var n int

	for rb.Scan() {
		line := strings.TrimSpace(rb.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		toks := splitXYZRow(line)
		vals := make([]float64, 0, len(toks))
		ok := true
		for _, t := range toks {
			v, err := strconv.ParseFloat(t, 64)
			if err != nil {
				ok = false
				break
			}
			vals = append(vals, v)
		}
		if !ok {
			continue // header / label row
		}
		if cols == 0 {
			cols = len(vals)
			switch cols {
			case 3, 4, 6, 7:
			default:
				return nil, cloud.NewError(cloud.UnsupportedVariant, "unsupported xyz column count")
			}
		}
		if len(vals) != cols {
			return nil, cloud.NewError(cloud.Truncated, "xyz row column count mismatch")
		}
		rows = append(rows, vals)
		n++
	}
	if err := rb.Err(); err != nil {
		return nil, cloud.WrapError(cloud.Truncated, "reading xyz body", err)
	}
	if n == 0 {
		return nil, cloud.NewError(cloud.EmptyCloud, "no points decoded")
	}

	stride := cloud.Stride(n)
	hasColor := cols == 6 || cols == 7
	hasIntensity := cols == 4 || cols == 7
	for i, vals := range rows {
		if i%stride != 0 {
			continue
		}
		x, y, z := vals[0], vals[1], vals[2]
		var r, g, bl, intensity float32
		switch cols {
		case 4:
			intensity = float32(vals[3])
		case 6:
			r, g, bl = float32(vals[3])/255, float32(vals[4])/255, float32(vals[5])/255
		case 7:
			intensity = float32(vals[3])
			r, g, bl = float32(vals[4])/255, float32(vals[5])/255, float32(vals[6])/255
		}
		b.AddPoint(x, y, z, r, g, bl, intensity, 0, hasColor, hasIntensity, false)
	}

	return b.Build("xyz", [3]float64{1, 1, 1}, [3]float64{}, 1)
}

func splitXYZRow(line string) []string {
	line = strings.ReplaceAll(line, ",", " ")
	return strings.Fields(line)
}
