package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/OpenAEC-Foundation/open-pointcloud-studio/cloud"
)

// WriteCSV writes c with the header `x,y,z,r,g,b,intensity,classification`
// via encoding/csv (spec.md §4.9).
func WriteCSV(w io.Writer, c *cloud.Cloud) error {
	n := c.PointCount()
	if n == 0 {
		return errNoPoints
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"x", "y", "z", "r", "g", "b", "intensity", "classification"}); err != nil {
		return err
	}
	row := make([]string, 8)
	for i := 0; i < n; i++ {
		r, g, b := rgb8(c, i)
		row[0] = strconv.FormatFloat(float64(c.Positions[3*i]), 'g', -1, 32)
		row[1] = strconv.FormatFloat(float64(c.Positions[3*i+1]), 'g', -1, 32)
		row[2] = strconv.FormatFloat(float64(c.Positions[3*i+2]), 'g', -1, 32)
		row[3] = strconv.Itoa(int(r))
		row[4] = strconv.Itoa(int(g))
		row[5] = strconv.Itoa(int(b))
		row[6] = strconv.FormatFloat(float64(intensityOf(c, i)), 'g', -1, 32)
		row[7] = strconv.Itoa(int(classificationOf(c, i)))
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
