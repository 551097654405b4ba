// Package export serializes a Canonical Cloud to the common point-cloud
// interchange formats (spec.md §4.9).
package export

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"github.com/OpenAEC-Foundation/open-pointcloud-studio/cloud"
)

func colorByte(v float32) byte {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return byte(math.Round(float64(v) * 255))
}

func rgb8(c *cloud.Cloud, i int) (r, g, b byte) {
	if !c.HasColor {
		return colorByte(cloud.DefaultGray[0]), colorByte(cloud.DefaultGray[1]), colorByte(cloud.DefaultGray[2])
	}
	return colorByte(c.Colors[3*i]), colorByte(c.Colors[3*i+1]), colorByte(c.Colors[3*i+2])
}

func intensityOf(c *cloud.Cloud, i int) float32 {
	if !c.HasIntensity {
		return 0
	}
	return c.Intensities[i]
}

func classificationOf(c *cloud.Cloud, i int) float32 {
	if !c.HasClassification {
		return 0
	}
	return c.Classifications[i]
}

// bufferedWriter wraps w in a *bufio.Writer unless it already is one,
// matching the teacher's habit of letting exporters take any io.Writer
// while still batching syscalls on the common case of an *os.File.
func bufferedWriter(w io.Writer) (*bufio.Writer, func() error) {
	if bw, ok := w.(*bufio.Writer); ok {
		return bw, bw.Flush
	}
	bw := bufio.NewWriter(w)
	return bw, bw.Flush
}

var errNoPoints = fmt.Errorf("export: cloud has zero points")
