package decode

import (
	"strings"
	"testing"
)

func TestDecodeOFFTriangulatesQuadFace(t *testing.T) {
	src := `OFF
4 1 0
0 0 0
1 0 0
1 1 0
0 1 0
4 0 1 2 3
`
	c, err := DecodeOFF(strings.NewReader(src))
	if err != nil {
		t.Fatalf("DecodeOFF: %v", err)
	}
	if len(c.Indices) != 6 {
		t.Fatalf("len(Indices) = %d, want 6 for one fan-triangulated quad", len(c.Indices))
	}
}

func TestDecodeCOFFParsesByteColor(t *testing.T) {
	src := `COFF
1 0 0
0 0 0 255 0 0 255
`
	c, err := DecodeOFF(strings.NewReader(src))
	if err != nil {
		t.Fatalf("DecodeOFF: %v", err)
	}
	if !c.HasColor {
		t.Fatal("expected HasColor true for a COFF vertex row")
	}
	if c.Colors[0] != 1 || c.Colors[1] != 0 || c.Colors[2] != 0 {
		t.Fatalf("Colors[0:3] = %v, want (1,0,0) normalized from 255,0,0", c.Colors[0:3])
	}
}

func TestDecodeOFFRejectsMissingMagic(t *testing.T) {
	_, err := DecodeOFF(strings.NewReader("3 1 0\n0 0 0\n1 0 0\n0 1 0\n3 0 1 2\n"))
	if err == nil {
		t.Fatal("expected InvalidSignature error for a missing OFF magic line")
	}
}

func TestDecodeOFFRejectsZeroVertices(t *testing.T) {
	_, err := DecodeOFF(strings.NewReader("OFF\n0 0 0\n"))
	if err == nil {
		t.Fatal("expected EmptyCloud error for zero declared vertices")
	}
}

func TestDecodeOFFSkipsCommentLines(t *testing.T) {
	src := `OFF
# a comment before the counts line
3 1 0
0 0 0
1 0 0
0 1 0
3 0 1 2
`
	c, err := DecodeOFF(strings.NewReader(src))
	if err != nil {
		t.Fatalf("DecodeOFF: %v", err)
	}
	if c.PointCount() != 3 {
		t.Fatalf("PointCount() = %d, want 3", c.PointCount())
	}
}
