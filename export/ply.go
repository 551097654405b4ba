package export

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/OpenAEC-Foundation/open-pointcloud-studio/cloud"
)

func plyHeader(n, faces int, binaryFormat bool) string {
	format := "ascii"
	if binaryFormat {
		format = "binary_little_endian"
	}
	h := fmt.Sprintf(
		"ply\nformat %s 1.0\nelement vertex %d\n"+
			"property float x\nproperty float y\nproperty float z\n"+
			"property uchar red\nproperty uchar green\nproperty uchar blue\n"+
			"property float intensity\nproperty uchar classification\n",
		format, n)
	if faces > 0 {
		h += fmt.Sprintf("element face %d\nproperty list uchar int vertex_indices\n", faces)
	}
	h += "end_header\n"
	return h
}

// WritePLYAscii writes c as an ASCII PLY file, including a face element
// when c.Indices is non-empty.
func WritePLYAscii(w io.Writer, c *cloud.Cloud) error {
	n := c.PointCount()
	if n == 0 {
		return errNoPoints
	}
	bw, flush := bufferedWriter(w)
	faces := len(c.Indices) / 3
	if _, err := bw.WriteString(plyHeader(n, faces, false)); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		r, g, b := rgb8(c, i)
		if _, err := fmt.Fprintf(bw, "%g %g %g %d %d %d %g %d\n",
			c.Positions[3*i], c.Positions[3*i+1], c.Positions[3*i+2],
			r, g, b, intensityOf(c, i), int(classificationOf(c, i))); err != nil {
			return err
		}
	}
	for t := 0; t < faces; t++ {
		if _, err := fmt.Fprintf(bw, "3 %d %d %d\n", c.Indices[3*t], c.Indices[3*t+1], c.Indices[3*t+2]); err != nil {
			return err
		}
	}
	return flush()
}

// WritePLYBinary writes c as a binary-little-endian PLY file per spec.md
// §4.9's fixed per-vertex/per-face record layout (20B/13B).
func WritePLYBinary(w io.Writer, c *cloud.Cloud) error {
	n := c.PointCount()
	if n == 0 {
		return errNoPoints
	}
	bw, flush := bufferedWriter(w)
	faces := len(c.Indices) / 3
	if _, err := bw.WriteString(plyHeader(n, faces, true)); err != nil {
		return err
	}

	var rec [20]byte
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(rec[0:4], floatBits(c.Positions[3*i]))
		binary.LittleEndian.PutUint32(rec[4:8], floatBits(c.Positions[3*i+1]))
		binary.LittleEndian.PutUint32(rec[8:12], floatBits(c.Positions[3*i+2]))
		r, g, b := rgb8(c, i)
		rec[12], rec[13], rec[14] = r, g, b
		binary.LittleEndian.PutUint32(rec[15:19], floatBits(intensityOf(c, i)))
		rec[19] = byte(classificationOf(c, i))
		if _, err := bw.Write(rec[:]); err != nil {
			return err
		}
	}

	var frec [13]byte
	for t := 0; t < faces; t++ {
		frec[0] = 3
		binary.LittleEndian.PutUint32(frec[1:5], c.Indices[3*t])
		binary.LittleEndian.PutUint32(frec[5:9], c.Indices[3*t+1])
		binary.LittleEndian.PutUint32(frec[9:13], c.Indices[3*t+2])
		if _, err := bw.Write(frec[:]); err != nil {
			return err
		}
	}
	return flush()
}

func floatBits(v float32) uint32 {
	return math.Float32bits(v)
}
