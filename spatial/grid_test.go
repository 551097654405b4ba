package spatial

import (
	"testing"

	"github.com/OpenAEC-Foundation/open-pointcloud-studio/mat"
)

func linePoints(n int) []mat.Vec3 {
	pts := make([]mat.Vec3, n)
	for i := range pts {
		pts[i] = mat.NewVec3(float32(i), 0, 0)
	}
	return pts
}

func TestKNearestReturnsClosestPoints(t *testing.T) {
	pts := linePoints(20)
	g := NewGrid(pts, 4)
	got := g.KNearest(mat.NewVec3(10, 0, 0), 3, 10)
	if len(got) != 3 {
		t.Fatalf("KNearest returned %d points, want 3", len(got))
	}
	for _, idx := range got {
		if idx == 10 {
			t.Fatalf("KNearest should exclude the query point itself, got %v", got)
		}
	}
}

func TestKNearestExcludesSelf(t *testing.T) {
	pts := []mat.Vec3{
		mat.NewVec3(0, 0, 0),
		mat.NewVec3(0.1, 0, 0),
	}
	g := NewGrid(pts, 1)
	got := g.KNearest(pts[0], 5, 0)
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("KNearest() = %v, want [1]", got)
	}
}

func TestGridHandlesDegenerateInput(t *testing.T) {
	g := NewGrid(nil, 5)
	if g.CellSize() != 1.0 {
		t.Fatalf("CellSize() = %v, want 1.0 fallback for empty input", g.CellSize())
	}
	if got := g.KNearest(mat.NewVec3(0, 0, 0), 3, -1); len(got) != 0 {
		t.Fatalf("KNearest on empty grid = %v, want empty", got)
	}
}

func TestKNearestSortedByDistance(t *testing.T) {
	pts := []mat.Vec3{
		mat.NewVec3(5, 0, 0),
		mat.NewVec3(1, 0, 0),
		mat.NewVec3(3, 0, 0),
	}
	g := NewGrid(pts, 1)
	got := g.KNearest(mat.NewVec3(0, 0, 0), 3, -1)
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 0 {
		t.Fatalf("KNearest() = %v, want [1,2,0] sorted by distance to origin", got)
	}
}
