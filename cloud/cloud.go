package cloud

import (
	"math"

	"github.com/OpenAEC-Foundation/open-pointcloud-studio/mat"
)

// SoftPointCeiling is the per-cloud point budget every decoder enforces via
// stride sampling before a cloud is allowed into the Registry.
const SoftPointCeiling = 5_000_000

// DefaultGray is the uniform color assigned when a source carries no
// per-point color.
var DefaultGray = [3]float32{0.8, 0.8, 0.8}

// Header carries the original, source-frame metadata a decoder extracted,
// plus the legacy LAS-style scale/offset some formats use to recover exact
// integer-quantized coordinates.
type Header struct {
	Min, Max   [3]float64
	Scale      [3]float64
	Offset     [3]float64
	SourceTag  string

	// LASVersion and PointRecordFormat are populated by the LAS/LAZ
	// decoders only; every other decoder leaves them zero-valued.
	LASVersion        string
	PointRecordFormat uint8
}

// Cloud is the canonical in-memory representation every decoder produces
// and every editor/reconstructor/exporter operation consumes. See
// SPEC_FULL.md §5 / spec.md §3 for the invariants that must hold after any
// public operation.
type Cloud struct {
	Positions       []float32 // triples, Y-up, centered
	Colors          []float32 // triples in [0,1]
	Intensities     []float32 // in [0,1]
	Classifications []float32 // integer-valued, nonnegative ASPRS codes
	Indices         []uint32  // optional; present for meshes/reconstructions

	Header Header
	Center mat.Vec3 // source-frame offset subtracted to produce Positions

	HasColor          bool
	HasIntensity      bool
	HasClassification bool
}

// PointCount returns len(Positions)/3.
func (c *Cloud) PointCount() int {
	return len(c.Positions) / 3
}

// CenterFromBounds returns the midpoint of a source-frame AABB.
func CenterFromBounds(min, max [3]float64) [3]float64 {
	return [3]float64{
		(min[0] + max[0]) / 2,
		(min[1] + max[1]) / 2,
		(min[2] + max[2]) / 2,
	}
}

// ToYUp converts a source-frame point (right-handed, Z-up) into the
// canonical right-handed Y-up frame, centered at center.
func ToYUp(x, y, z float64, center [3]float64) mat.Vec3 {
	return mat.Vec3{
		float32(x - center[0]),
		float32(z - center[2]),
		float32(-(y - center[1])),
	}
}

// Stride returns the stride-sampling step for a raw point count so the
// sampled count never exceeds SoftPointCeiling.
func Stride(rawCount int) int {
	if rawCount <= SoftPointCeiling {
		return 1
	}
	return int(math.Ceil(float64(rawCount) / float64(SoftPointCeiling)))
}

// Validate checks every invariant spec.md §3/§8 requires to hold. Decoders
// and editor operations call this to catch bugs before a malformed Cloud
// reaches the Registry.
func (c *Cloud) Validate() error {
	n := len(c.Positions)
	if n%3 != 0 {
		return NewError(Truncated, "positions length not a multiple of 3")
	}
	if len(c.Colors) != n {
		return NewError(Truncated, "colors length does not match positions")
	}
	np := n / 3
	if len(c.Intensities) != np {
		return NewError(Truncated, "intensities length does not match point count")
	}
	if len(c.Classifications) != np {
		return NewError(Truncated, "classifications length does not match point count")
	}
	if len(c.Indices)%3 != 0 {
		return NewError(Truncated, "indices length not a multiple of 3")
	}
	for _, idx := range c.Indices {
		if int(idx) >= np {
			return NewError(Truncated, "index out of range")
		}
	}
	for i, v := range c.Colors {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) || v < 0 || v > 1 {
			return NewError(Truncated, "color component out of [0,1]")
		}
		_ = i
	}
	for _, v := range c.Intensities {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) || v < 0 || v > 1 {
			return NewError(Truncated, "intensity out of [0,1]")
		}
	}
	for _, v := range c.Classifications {
		if v < 0 || v != float32(math.Trunc(float64(v))) {
			return NewError(Truncated, "classification not a nonnegative integer")
		}
	}
	for i := 0; i < 3; i++ {
		if c.Header.Min[i] > c.Header.Max[i] {
			return NewError(Truncated, "header min exceeds max")
		}
	}
	if np == 0 {
		return NewError(EmptyCloud, "no points decoded")
	}
	return nil
}
