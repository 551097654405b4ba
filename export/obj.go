package export

import (
	"fmt"
	"io"

	"github.com/OpenAEC-Foundation/open-pointcloud-studio/cloud"
)

// WriteOBJ writes c as Wavefront OBJ: `v` lines (with inline color when
// present), `vn` lines when normals are available, and 1-based `f` lines
// (using the `a//a` normal-index form when normals are present).
func WriteOBJ(w io.Writer, c *cloud.Cloud, normals []float32) error {
	n := c.PointCount()
	if n == 0 {
		return errNoPoints
	}
	bw, flush := bufferedWriter(w)

	for i := 0; i < n; i++ {
		if c.HasColor {
			r, g, b := c.Colors[3*i], c.Colors[3*i+1], c.Colors[3*i+2]
			if _, err := fmt.Fprintf(bw, "v %g %g %g %g %g %g\n",
				c.Positions[3*i], c.Positions[3*i+1], c.Positions[3*i+2], r, g, b); err != nil {
				return err
			}
		} else if _, err := fmt.Fprintf(bw, "v %g %g %g\n",
			c.Positions[3*i], c.Positions[3*i+1], c.Positions[3*i+2]); err != nil {
			return err
		}
	}
	hasNormals := len(normals) == n*3
	if hasNormals {
		for i := 0; i < n; i++ {
			if _, err := fmt.Fprintf(bw, "vn %g %g %g\n", normals[3*i], normals[3*i+1], normals[3*i+2]); err != nil {
				return err
			}
		}
	}

	faces := len(c.Indices) / 3
	for t := 0; t < faces; t++ {
		a, b, cc := c.Indices[3*t]+1, c.Indices[3*t+1]+1, c.Indices[3*t+2]+1
		var err error
		if hasNormals {
			_, err = fmt.Fprintf(bw, "f %d//%d %d//%d %d//%d\n", a, a, b, b, cc, cc)
		} else {
			_, err = fmt.Fprintf(bw, "f %d %d %d\n", a, b, cc)
		}
		if err != nil {
			return err
		}
	}
	return flush()
}
