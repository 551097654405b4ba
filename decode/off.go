package decode

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/OpenAEC-Foundation/open-pointcloud-studio/cloud"
)

// DecodeOFF reads the Geomview Object File Format: a magic "OFF" line,
// "numVertices numFaces numEdges", numVertices vertex lines, then numFaces
// face lines of "n v0 v1 ... vn-1" (fan-triangulated when n > 3).
func DecodeOFF(r io.Reader) (*cloud.Cloud, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !sc.Scan() {
		return nil, cloud.NewError(cloud.EmptyCloud, "empty off file")
	}
	magic := strings.TrimSpace(sc.Text())
	if magic != "OFF" && magic != "COFF" {
		return nil, cloud.NewError(cloud.InvalidSignature, "missing OFF magic")
	}
	hasColor := magic == "COFF"

	counts, ok := offNextInts(sc, 3)
	if !ok {
		return nil, cloud.NewError(cloud.Truncated, "off counts line")
	}
	numVertices, numFaces := counts[0], counts[1]
	if numVertices == 0 {
		return nil, cloud.NewError(cloud.EmptyCloud, "off declares zero vertices")
	}

	b := cloud.NewBuilder()
	for i := 0; i < numVertices; i++ {
		if !sc.Scan() {
			return nil, cloud.NewError(cloud.Truncated, "off vertex truncated")
		}
		toks := strings.Fields(sc.Text())
		if len(toks) < 3 {
			return nil, cloud.NewError(cloud.Truncated, "off vertex row short")
		}
		x, _ := strconv.ParseFloat(toks[0], 64)
		y, _ := strconv.ParseFloat(toks[1], 64)
		z, _ := strconv.ParseFloat(toks[2], 64)
		var r, g, bl float32
		if hasColor && len(toks) >= 6 {
			rv, _ := strconv.ParseFloat(toks[3], 64)
			gv, _ := strconv.ParseFloat(toks[4], 64)
			bv, _ := strconv.ParseFloat(toks[5], 64)
			r, g, bl = float32(rv), float32(gv), float32(bv)
			if r > 1 || g > 1 || bl > 1 {
				r, g, bl = r/255, g/255, bl/255
			}
		}
		b.AddPoint(x, y, z, r, g, bl, 0, 0, hasColor, false, false)
	}

	var faces [][]uint32
	for i := 0; i < numFaces; i++ {
		if !sc.Scan() {
			return nil, cloud.NewError(cloud.Truncated, "off face truncated")
		}
		toks := strings.Fields(sc.Text())
		if len(toks) == 0 {
			continue
		}
		k, _ := strconv.Atoi(toks[0])
		if len(toks) < k+1 {
			return nil, cloud.NewError(cloud.Truncated, "off face row short")
		}
		idx := make([]uint32, k)
		for j := 0; j < k; j++ {
			v, _ := strconv.Atoi(toks[1+j])
			idx[j] = uint32(v)
		}
		for j := 1; j+1 < k; j++ {
			faces = append(faces, []uint32{idx[0], idx[j], idx[j+1]})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, cloud.WrapError(cloud.Truncated, "reading off body", err)
	}

	c, err := b.Build("off", [3]float64{1, 1, 1}, [3]float64{}, 1)
	if err != nil {
		return nil, err
	}
	c.Indices = make([]uint32, 0, len(faces)*3)
	for _, f := range faces {
		c.Indices = append(c.Indices, f[0], f[1], f[2])
	}
	return c, nil
}

func offNextInts(sc *bufio.Scanner, want int) ([]int, bool) {
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		toks := strings.Fields(line)
		if len(toks) < want {
			return nil, false
		}
		out := make([]int, want)
		for i := 0; i < want; i++ {
			v, err := strconv.Atoi(toks[i])
			if err != nil {
				return nil, false
			}
			out[i] = v
		}
		return out, true
	}
	return nil, false
}
