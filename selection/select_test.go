package selection

import (
	"testing"

	"github.com/OpenAEC-Foundation/open-pointcloud-studio/cloud"
	"github.com/OpenAEC-Foundation/open-pointcloud-studio/mat"
)

// identityClip treats world space as already being NDC space: x,y in
// [-1,1] map directly to clip xy with w=1. This isolates Rect's pixel-to-
// NDC and point-in-rect logic from any real projection math.
var identityClip = mat.Identity()

func gridCloud() *cloud.Cloud {
	return &cloud.Cloud{
		Positions: []float32{
			-0.9, -0.9, 0,
			0, 0, 0,
			0.9, 0.9, 0,
		},
	}
}

func TestRectSelectsPointsInsideNDCRectangle(t *testing.T) {
	c := gridCloud()
	// Full viewport, 100x100 px: pick a rect covering only the center point.
	got := Rect(c, identityClip, 30, 30, 70, 70, 100, 100)
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("Rect() = %v, want [1] (only the center point)", got)
	}
}

func TestRectSelectsAllOnFullViewport(t *testing.T) {
	c := gridCloud()
	got := Rect(c, identityClip, 0, 0, 100, 100, 100, 100)
	if len(got) != 3 {
		t.Fatalf("Rect() = %v, want all 3 points", got)
	}
}

func TestRectTooSmallIsTreatedAsClick(t *testing.T) {
	c := gridCloud()
	got := Rect(c, identityClip, 50, 50, 51, 51, 100, 100)
	if got != nil {
		t.Fatalf("Rect() = %v, want nil for a sub-minimum drag", got)
	}
}

func TestRectNormalizesReversedCorners(t *testing.T) {
	c := gridCloud()
	a := Rect(c, identityClip, 30, 30, 70, 70, 100, 100)
	b := Rect(c, identityClip, 70, 70, 30, 30, 100, 100)
	if len(a) != len(b) || len(a) != 1 {
		t.Fatalf("Rect() with reversed corners = %v, %v, want matching single-element results", a, b)
	}
}

func TestRectSkipsPointsBehindCamera(t *testing.T) {
	c := &cloud.Cloud{Positions: []float32{0, 0, 0}}
	behindCamera := mat.Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, -1,
	}
	got := Rect(c, behindCamera, 0, 0, 100, 100, 100, 100)
	if got != nil {
		t.Fatalf("Rect() = %v, want nil when w <= 0", got)
	}
}
