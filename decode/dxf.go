package decode

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/OpenAEC-Foundation/open-pointcloud-studio/cloud"
)

// DecodeDXF reads ASCII DXF ENTITIES, collecting POINT and 3DFACE vertex
// coordinates. DXF is a group-code/value pair stream: every record is two
// lines, an integer code followed by its value. This decoder tracks the
// active entity type and its x/y/z group codes (10/20/30, 11/21/31, ...)
// and emits a point each time an entity closes.
func DecodeDXF(r io.Reader) (*cloud.Cloud, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	b := cloud.NewBuilder()
	inEntities := false
	var entity string
	coords := map[int][3]float64{}
	n := 0

	flush := func() {
		if entity == "" {
			return
		}
		switch entity {
		case "POINT":
			if c, ok := coords[0]; ok {
				b.AddPoint(c[0], c[1], c[2], 0, 0, 0, 0, 0, false, false, false)
				n++
			}
		case "3DFACE", "LINE":
			for v := 0; v <= 3; v++ {
				if c, ok := coords[v]; ok {
					b.AddPoint(c[0], c[1], c[2], 0, 0, 0, 0, 0, false, false, false)
					n++
				}
			}
		}
		entity = ""
		coords = map[int][3]float64{}
	}

	var code int
	haveCode := false
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !haveCode {
			v, err := strconv.Atoi(line)
			if err != nil {
				continue
			}
			code = v
			haveCode = true
			continue
		}
		value := line
		haveCode = false

		switch {
		case code == 0:
			flush()
			if value == "ENDSEC" {
				inEntities = false
			} else if inEntities {
				entity = value
			}
		case code == 2 && entity == "" && value == "ENTITIES":
			inEntities = true
		case inEntities && (code >= 10 && code <= 39):
			vertex := code % 10   // which vertex: 10/20/30->0, 11/21/31->1, ...
			axis := code/10 - 1   // 1x->0 (x), 2x->1 (y), 3x->2 (z)
			f, _ := strconv.ParseFloat(value, 64)
			cur := coords[vertex]
			cur[axis] = f
			coords[vertex] = cur
		}
	}
	flush()
	if err := sc.Err(); err != nil {
		return nil, cloud.WrapError(cloud.Truncated, "reading dxf body", err)
	}
	if n == 0 {
		return nil, cloud.NewError(cloud.EmptyCloud, "dxf contains no point entities")
	}

	return b.Build("dxf", [3]float64{1, 1, 1}, [3]float64{}, 1)
}
