package decode

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/OpenAEC-Foundation/open-pointcloud-studio/cloud"
)

// DecodePTX reads the Leica Cyclone PTX format: one or more scans, each a
// fixed 10-line header (grid dimensions, scanner position, 3 scanner axes,
// 4x4 homogeneous transform) followed by numCols*numRows point rows of
// "x y z intensity [r g b]". A row of all zeros marks a missing return and
// is dropped rather than kept as a point at the origin.
func DecodePTX(r io.Reader) (*cloud.Cloud, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	b := cloud.NewBuilder()
	var total int

	for {
		numCols, ok := ptxReadInt(sc)
		if !ok {
			break // clean EOF between scans
		}
		numRows, ok := ptxReadInt(sc)
		if !ok {
			return nil, cloud.NewError(cloud.Truncated, "ptx missing row count")
		}
		for i := 0; i < 8; i++ { // scanner position/axes + 4x4 transform
			if !sc.Scan() {
				return nil, cloud.NewError(cloud.Truncated, "ptx scan header truncated")
			}
		}

		n := numCols * numRows
		stride := cloud.Stride(n)
		for i := 0; i < n; i++ {
			if !sc.Scan() {
				return nil, cloud.NewError(cloud.Truncated, "ptx point grid truncated")
			}
			if i%stride != 0 {
				continue
			}
			toks := strings.Fields(sc.Text())
			if len(toks) < 4 {
				continue
			}
			x, _ := strconv.ParseFloat(toks[0], 64)
			y, _ := strconv.ParseFloat(toks[1], 64)
			z, _ := strconv.ParseFloat(toks[2], 64)
			intensity, _ := strconv.ParseFloat(toks[3], 64)
			if x == 0 && y == 0 && z == 0 && intensity == 0 {
				continue // missing return
			}
			var r, g, bl float32
			hasColor := len(toks) >= 7
			if hasColor {
				rv, _ := strconv.ParseFloat(toks[4], 64)
				gv, _ := strconv.ParseFloat(toks[5], 64)
				bv, _ := strconv.ParseFloat(toks[6], 64)
				r, g, bl = float32(rv)/255, float32(gv)/255, float32(bv)/255
			}
			b.AddPoint(x, y, z, r, g, bl, float32(intensity), 0, hasColor, true, false)
			total++
		}
	}
	if err := sc.Err(); err != nil {
		return nil, cloud.WrapError(cloud.Truncated, "reading ptx body", err)
	}
	if total == 0 {
		return nil, cloud.NewError(cloud.EmptyCloud, "ptx contains no valid returns")
	}

	return b.Build("ptx", [3]float64{1, 1, 1}, [3]float64{}, 1)
}

func ptxReadInt(sc *bufio.Scanner) (int, bool) {
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		v, err := strconv.Atoi(line)
		if err != nil {
			return 0, false
		}
		return v, true
	}
	return 0, false
}
