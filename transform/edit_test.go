package transform

import (
	"math/rand"
	"testing"

	"github.com/OpenAEC-Foundation/open-pointcloud-studio/cloud"
)

func fourPointCloud() *cloud.Cloud {
	return &cloud.Cloud{
		Positions:       []float32{0, 0, 0, 1, 0, 0, 2, 0, 0, 3, 0, 0},
		Colors:          []float32{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1},
		Intensities:     []float32{0.1, 0.2, 0.3, 0.4},
		Classifications: []float32{1, 2, 3, 4},
		Indices:         []uint32{0, 1, 2, 1, 2, 3},
	}
}

func TestTranslateShiftsAllPoints(t *testing.T) {
	c := fourPointCloud()
	Translate(c, nil, 10, 20, 30)
	if c.Positions[0] != 10 || c.Positions[1] != 20 || c.Positions[2] != 30 {
		t.Fatalf("first point = %v, want (10,20,30)", c.Positions[:3])
	}
	if c.Positions[3] != 11 {
		t.Fatalf("second point x = %v, want 11", c.Positions[3])
	}
}

func TestScaleMultipliesComponentwise(t *testing.T) {
	c := fourPointCloud()
	Scale(c, nil, 2, 3, 4)
	if c.Positions[3] != 2 {
		t.Fatalf("second point x = %v, want 2", c.Positions[3])
	}
}

func TestTouchBumpsTransformVersion(t *testing.T) {
	c := fourPointCloud()
	e := &cloud.Entry{}
	Translate(c, e, 1, 0, 0)
	if e.TransformVersion != 1 {
		t.Fatalf("TransformVersion = %d, want 1", e.TransformVersion)
	}
	Scale(c, e, 2, 2, 2)
	if e.TransformVersion != 2 {
		t.Fatalf("TransformVersion = %d, want 2", e.TransformVersion)
	}
}

func TestDeleteIndicesCompactsAndDropsTriangles(t *testing.T) {
	c := fourPointCloud()
	DeleteIndices(c, nil, []int{1})

	if c.PointCount() != 3 {
		t.Fatalf("PointCount() = %d, want 3", c.PointCount())
	}
	if c.Positions[0] != 0 || c.Positions[3] != 2 || c.Positions[6] != 3 {
		t.Fatalf("positions after delete = %v, want [0,2,3] on x", []float32{c.Positions[0], c.Positions[3], c.Positions[6]})
	}
	for i := 0; i+2 < len(c.Indices); i += 3 {
		if c.Indices[i] == 1 || c.Indices[i+1] == 1 || c.Indices[i+2] == 1 {
			t.Fatalf("stale index 1 still present in %v", c.Indices)
		}
	}
	if len(c.Indices) != 0 {
		t.Fatalf("both triangles referenced the deleted vertex; want 0 surviving, got %v", c.Indices)
	}
}

func TestThinKeepsApproximatePercentage(t *testing.T) {
	c := &cloud.Cloud{
		Positions:       make([]float32, 300),
		Colors:          make([]float32, 300),
		Intensities:     make([]float32, 100),
		Classifications: make([]float32, 100),
	}
	Thin(c, nil, 50, rand.New(rand.NewSource(42)))
	if c.PointCount() != 50 {
		t.Fatalf("PointCount() = %d, want 50", c.PointCount())
	}
}

func TestThin100IsIdentity(t *testing.T) {
	c := fourPointCloud()
	before := c.PointCount()
	Thin(c, nil, 100, nil)
	if c.PointCount() != before {
		t.Fatalf("PointCount() = %d, want unchanged %d", c.PointCount(), before)
	}
}

func TestThinRoundsRatherThanTruncates(t *testing.T) {
	n := 250
	c := &cloud.Cloud{
		Positions:       make([]float32, n*3),
		Colors:          make([]float32, n*3),
		Intensities:     make([]float32, n),
		Classifications: make([]float32, n),
	}
	Thin(c, nil, 25, rand.New(rand.NewSource(1)))
	if c.PointCount() != 63 {
		t.Fatalf("PointCount() = %d, want round(250*25/100)=63, not the truncated 62", c.PointCount())
	}
}

func TestThinKeepsAtLeastOnePointForTinyPercent(t *testing.T) {
	c := &cloud.Cloud{
		Positions:       make([]float32, 30),
		Colors:          make([]float32, 30),
		Intensities:     make([]float32, 10),
		Classifications: make([]float32, 10),
	}
	Thin(c, nil, 0.01, rand.New(rand.NewSource(1)))
	if c.PointCount() != 1 {
		t.Fatalf("PointCount() = %d, want 1 (the max(1, ...) floor must keep at least one point)", c.PointCount())
	}
}
