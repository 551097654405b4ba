package decode

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/OpenAEC-Foundation/open-pointcloud-studio/cloud"
)

// DecodeOBJ reads Wavefront OBJ "v x y z [r g b]" vertex lines (the
// unofficial per-vertex-color extension some scanning tools emit) and the
// triangle/polygon "f" faces that reference them, fan-triangulating faces
// with more than 3 vertices. Normals, texture coordinates, and groups are
// ignored.
func DecodeOBJ(r io.Reader) (*cloud.Cloud, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	b := cloud.NewBuilder()
	var faces [][]uint32
	var hasColor bool
	var n int

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		toks := strings.Fields(line)
		switch toks[0] {
		case "v":
			if len(toks) < 4 {
				return nil, cloud.NewError(cloud.Truncated, "obj vertex short")
			}
			x, _ := strconv.ParseFloat(toks[1], 64)
			y, _ := strconv.ParseFloat(toks[2], 64)
			z, _ := strconv.ParseFloat(toks[3], 64)
			var r, g, bl float32
			if len(toks) >= 7 {
				hasColor = true
				rv, _ := strconv.ParseFloat(toks[4], 64)
				gv, _ := strconv.ParseFloat(toks[5], 64)
				bv, _ := strconv.ParseFloat(toks[6], 64)
				r, g, bl = float32(rv), float32(gv), float32(bv)
			}
			b.AddPoint(x, y, z, r, g, bl, 0, 0, hasColor, false, false)
			n++
		case "f":
			idx := make([]uint32, 0, len(toks)-1)
			for _, t := range toks[1:] {
				v := strings.SplitN(t, "/", 2)[0]
				vi, err := strconv.Atoi(v)
				if err != nil {
					continue
				}
				if vi < 0 {
					vi = n + vi + 1 // OBJ negative indices are relative to the current vertex count
				}
				idx = append(idx, uint32(vi-1))
			}
			for i := 1; i+1 < len(idx); i++ {
				faces = append(faces, []uint32{idx[0], idx[i], idx[i+1]})
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, cloud.WrapError(cloud.Truncated, "reading obj body", err)
	}
	if n == 0 {
		return nil, cloud.NewError(cloud.EmptyCloud, "obj contains no vertices")
	}

	c, err := b.Build("obj", [3]float64{1, 1, 1}, [3]float64{}, 1)
	if err != nil {
		return nil, err
	}
	c.Indices = make([]uint32, 0, len(faces)*3)
	for _, f := range faces {
		c.Indices = append(c.Indices, f[0], f[1], f[2])
	}
	return c, nil
}
