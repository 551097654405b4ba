package decode

import (
	"strings"
	"testing"
)

func TestDecodeOBJTriangulatesQuadFace(t *testing.T) {
	src := `v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
f 1 2 3 4
`
	c, err := DecodeOBJ(strings.NewReader(src))
	if err != nil {
		t.Fatalf("DecodeOBJ: %v", err)
	}
	if c.PointCount() != 4 {
		t.Fatalf("PointCount() = %d, want 4", c.PointCount())
	}
	if len(c.Indices) != 6 {
		t.Fatalf("len(Indices) = %d, want 6 (one quad fan-triangulated into 2 triangles)", len(c.Indices))
	}
}

func TestDecodeOBJParsesVertexColor(t *testing.T) {
	src := `v 0 0 0 1 0 0
v 1 0 0 0 1 0
v 0 1 0 0 0 1
f 1 2 3
`
	c, err := DecodeOBJ(strings.NewReader(src))
	if err != nil {
		t.Fatalf("DecodeOBJ: %v", err)
	}
	if !c.HasColor {
		t.Fatal("expected HasColor true when vertex lines carry rgb")
	}
	if c.Colors[0] != 1 || c.Colors[1] != 0 || c.Colors[2] != 0 {
		t.Fatalf("Colors[0:3] = %v, want (1,0,0)", c.Colors[0:3])
	}
}

func TestDecodeOBJNegativeIndicesAreRelative(t *testing.T) {
	src := `v 0 0 0
v 1 0 0
v 0 1 0
f -3 -2 -1
`
	c, err := DecodeOBJ(strings.NewReader(src))
	if err != nil {
		t.Fatalf("DecodeOBJ: %v", err)
	}
	if len(c.Indices) != 3 {
		t.Fatalf("len(Indices) = %d, want 3", len(c.Indices))
	}
	if c.Indices[0] != 0 || c.Indices[1] != 1 || c.Indices[2] != 2 {
		t.Fatalf("Indices = %v, want [0 1 2] for negative relative indices", c.Indices)
	}
}

func TestDecodeOBJIgnoresFaceTextureAndNormalRefs(t *testing.T) {
	src := `v 0 0 0
v 1 0 0
v 0 1 0
f 1/1/1 2/2/2 3/3/3
`
	c, err := DecodeOBJ(strings.NewReader(src))
	if err != nil {
		t.Fatalf("DecodeOBJ: %v", err)
	}
	if c.PointCount() != 3 || len(c.Indices) != 3 {
		t.Fatalf("PointCount()=%d len(Indices)=%d, want 3 and 3", c.PointCount(), len(c.Indices))
	}
}

func TestDecodeOBJRejectsNoVertices(t *testing.T) {
	_, err := DecodeOBJ(strings.NewReader("# just a comment\n"))
	if err == nil {
		t.Fatal("expected EmptyCloud error for a file with no v lines")
	}
}
