package export

import (
	"fmt"
	"io"

	"github.com/OpenAEC-Foundation/open-pointcloud-studio/cloud"
)

// WriteXYZ writes c as `x y z R G B` lines (spec.md §4.9).
func WriteXYZ(w io.Writer, c *cloud.Cloud) error {
	n := c.PointCount()
	if n == 0 {
		return errNoPoints
	}
	bw, flush := bufferedWriter(w)
	for i := 0; i < n; i++ {
		r, g, b := rgb8(c, i)
		if _, err := fmt.Fprintf(bw, "%g %g %g %d %d %d\n",
			c.Positions[3*i], c.Positions[3*i+1], c.Positions[3*i+2], r, g, b); err != nil {
			return err
		}
	}
	return flush()
}

// WritePTS writes c as a leading point-count line followed by
// `x y z intensity R G B` rows (spec.md §4.9).
func WritePTS(w io.Writer, c *cloud.Cloud) error {
	n := c.PointCount()
	if n == 0 {
		return errNoPoints
	}
	bw, flush := bufferedWriter(w)
	if _, err := fmt.Fprintf(bw, "%d\n", n); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		r, g, b := rgb8(c, i)
		if _, err := fmt.Fprintf(bw, "%g %g %g %g %d %d %d\n",
			c.Positions[3*i], c.Positions[3*i+1], c.Positions[3*i+2], intensityOf(c, i), r, g, b); err != nil {
			return err
		}
	}
	return flush()
}
