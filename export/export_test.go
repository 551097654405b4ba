package export

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/OpenAEC-Foundation/open-pointcloud-studio/cloud"
)

func sampleCloud() *cloud.Cloud {
	return &cloud.Cloud{
		Positions:         []float32{0, 0, 0, 1, 2, 3},
		Colors:            []float32{1, 0, 0, 0, 1, 0},
		Intensities:       []float32{0.5, 0.75},
		Classifications:   []float32{2, 5},
		Indices:           []uint32{0, 1, 0},
		HasColor:          true,
		HasIntensity:      true,
		HasClassification: true,
	}
}

func TestWritePLYAsciiHasHeaderAndFace(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePLYAscii(&buf, sampleCloud()); err != nil {
		t.Fatalf("WritePLYAscii: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "ply\nformat ascii 1.0\n") {
		t.Fatalf("missing ascii ply header: %q", out[:40])
	}
	if !strings.Contains(out, "element vertex 2") || !strings.Contains(out, "element face 1") {
		t.Fatalf("missing vertex/face element counts: %q", out)
	}
}

func TestWritePLYBinaryRecordSize(t *testing.T) {
	var buf bytes.Buffer
	c := sampleCloud()
	if err := WritePLYBinary(&buf, c); err != nil {
		t.Fatalf("WritePLYBinary: %v", err)
	}
	out := buf.Bytes()
	headerEnd := bytes.Index(out, []byte("end_header\n"))
	if headerEnd < 0 {
		t.Fatal("missing end_header")
	}
	body := out[headerEnd+len("end_header\n"):]
	wantLen := c.PointCount()*20 + (len(c.Indices)/3)*13
	if len(body) != wantLen {
		t.Fatalf("binary body = %d bytes, want %d (20B/vertex + 13B/face)", len(body), wantLen)
	}
}

func TestWriteOBJFacesAreOneBased(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteOBJ(&buf, sampleCloud(), nil); err != nil {
		t.Fatalf("WriteOBJ: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "f 1 2 1\n") {
		t.Fatalf("expected 1-based face indices, got: %q", out)
	}
}

func TestWriteXYZLineCount(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXYZ(&buf, sampleCloud()); err != nil {
		t.Fatalf("WriteXYZ: %v", err)
	}
	n := countLines(buf.String())
	if n != 2 {
		t.Fatalf("got %d lines, want 2", n)
	}
}

func TestWritePTSLeadingCount(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePTS(&buf, sampleCloud()); err != nil {
		t.Fatalf("WritePTS: %v", err)
	}
	sc := bufio.NewScanner(&buf)
	sc.Scan()
	if sc.Text() != "2" {
		t.Fatalf("leading line = %q, want \"2\"", sc.Text())
	}
}

func TestWriteCSVHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleCloud()); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	sc := bufio.NewScanner(&buf)
	sc.Scan()
	if sc.Text() != "x,y,z,r,g,b,intensity,classification" {
		t.Fatalf("header = %q", sc.Text())
	}
}

func TestExportersRejectEmptyCloud(t *testing.T) {
	empty := &cloud.Cloud{}
	var buf bytes.Buffer
	if err := WriteXYZ(&buf, empty); err == nil {
		t.Fatal("expected error exporting an empty cloud")
	}
}

func countLines(s string) int {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}
