package selection

import (
	"github.com/OpenAEC-Foundation/open-pointcloud-studio/cloud"
	"github.com/OpenAEC-Foundation/open-pointcloud-studio/mat"
)

// minRectPixels is the smallest rectangle dimension treated as a drag
// rather than a click; rectangles smaller than this in both axes select
// nothing (spec.md §4.5).
const minRectPixels = 4

// Rect selects the point indices of c whose clip-space projection under
// viewProj lands inside the screen-space rectangle (x1,y1)-(x2,y2), given
// in pixels with width/height the viewport size. Points with non-positive
// clip-space w are skipped (they are behind the camera or on the
// projection plane). Results are returned in ascending point-index order.
func Rect(c *cloud.Cloud, viewProj mat.Mat4, x1, y1, x2, y2 int, width, height int) []uint32 {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	if x2-x1 < minRectPixels && y2-y1 < minRectPixels {
		return nil
	}

	ndcX1 := float32(x1)*2/float32(width) - 1
	ndcX2 := float32(x2)*2/float32(width) - 1
	ndcY1 := 1 - float32(y2)*2/float32(height)
	ndcY2 := 1 - float32(y1)*2/float32(height)

	var out []uint32
	n := c.PointCount()
	for i := 0; i < n; i++ {
		p := mat.NewVec3(c.Positions[3*i], c.Positions[3*i+1], c.Positions[3*i+2])
		clip := viewProj.Transform4(p)
		if clip[3] <= 0 {
			continue
		}
		ndcX := clip[0] / clip[3]
		ndcY := clip[1] / clip[3]
		if ndcX >= ndcX1 && ndcX <= ndcX2 && ndcY >= ndcY1 && ndcY <= ndcY2 {
			out = append(out, uint32(i))
		}
	}
	return out
}
