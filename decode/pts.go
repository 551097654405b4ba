package decode

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/OpenAEC-Foundation/open-pointcloud-studio/cloud"
)

// DecodePTS reads the Leica Cyclone PTS format: a single leading line with
// the point count, followed by "x y z intensity r g b" rows (intensity in
// [0,2047], color in [0,255]).
func DecodePTS(r io.Reader) (*cloud.Cloud, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !sc.Scan() {
		return nil, cloud.NewError(cloud.EmptyCloud, "empty pts file")
	}
	count, err := strconv.Atoi(strings.TrimSpace(sc.Text()))
	if err != nil {
		return nil, cloud.WrapError(cloud.InvalidSignature, "pts leading count", err)
	}
	if count == 0 {
		return nil, cloud.NewError(cloud.EmptyCloud, "pts declares zero points")
	}

	b := cloud.NewBuilder()
	stride := cloud.Stride(count)
	i := 0
	for sc.Scan() && i < count {
		toks := strings.Fields(sc.Text())
		if len(toks) < 3 {
			return nil, cloud.NewError(cloud.Truncated, "pts row too short")
		}
		if i%stride == 0 {
			x, _ := strconv.ParseFloat(toks[0], 64)
			y, _ := strconv.ParseFloat(toks[1], 64)
			z, _ := strconv.ParseFloat(toks[2], 64)
			var intensity, r, g, bl float32
			hasIntensity := len(toks) >= 4
			hasColor := len(toks) >= 7
			if hasIntensity {
				v, _ := strconv.ParseFloat(toks[3], 64)
				intensity = float32(v / 2047)
			}
			if hasColor {
				rv, _ := strconv.ParseFloat(toks[4], 64)
				gv, _ := strconv.ParseFloat(toks[5], 64)
				bv, _ := strconv.ParseFloat(toks[6], 64)
				r, g, bl = float32(rv)/255, float32(gv)/255, float32(bv)/255
			}
			b.AddPoint(x, y, z, r, g, bl, intensity, 0, hasColor, hasIntensity, false)
		}
		i++
	}
	if err := sc.Err(); err != nil {
		return nil, cloud.WrapError(cloud.Truncated, "reading pts body", err)
	}

	return b.Build("pts", [3]float64{1, 1, 1}, [3]float64{}, 1)
}
