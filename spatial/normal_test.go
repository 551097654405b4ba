package spatial

import (
	"math"
	"testing"

	"github.com/OpenAEC-Foundation/open-pointcloud-studio/mat"
)

func planePoints() []mat.Vec3 {
	var pts []mat.Vec3
	for x := -2; x <= 2; x++ {
		for y := -2; y <= 2; y++ {
			pts = append(pts, mat.NewVec3(float32(x), float32(y), 0))
		}
	}
	return pts
}

func TestEstimateNormalsOnFlatPlaneAreVertical(t *testing.T) {
	pts := planePoints()
	g := NewGrid(pts, 8)
	normals := EstimateNormals(pts, g, 8)

	for i, n := range normals {
		absZ := float64(n[2])
		if absZ < 0 {
			absZ = -absZ
		}
		if absZ < 0.99 {
			t.Fatalf("normal[%d] = %v, want close to (0,0,±1) for a flat z=0 plane", i, n)
		}
	}
}

func TestEstimateNormalsFallBackWithTooFewNeighbors(t *testing.T) {
	pts := []mat.Vec3{mat.NewVec3(0, 0, 0), mat.NewVec3(1, 0, 0)}
	g := NewGrid(pts, 1)
	normals := EstimateNormals(pts, g, 8)
	for i, n := range normals {
		if n != upY {
			t.Fatalf("normal[%d] = %v, want up-vector fallback with <3 neighbors", i, n)
		}
	}
}

func TestSmallestEigenvectorOfZeroMatrixFails(t *testing.T) {
	// A zero covariance matrix (all points coincide) has p=0: no dominant
	// plane, so the solver should report failure rather than a spurious
	// direction.
	_, ok := smallestEigenvector(0, 0, 0, 0, 0, 0)
	if ok {
		t.Fatal("expected smallestEigenvector to fail on a degenerate (zero) covariance matrix")
	}
}

func TestSmallestEigenvectorOfKnownPlane(t *testing.T) {
	// Covariance of points spread in x/y only (flat in z): smallest
	// eigenvalue's eigenvector should point along z.
	normal, ok := smallestEigenvector(1, 0, 0, 1, 0, 0)
	if !ok {
		t.Fatal("expected a valid eigenvector")
	}
	if math.Abs(float64(normal[2])) < 0.99 {
		t.Fatalf("normal = %v, want close to (0,0,±1)", normal)
	}
}
