package cloud

import (
	"math"

	"github.com/OpenAEC-Foundation/open-pointcloud-studio/mat"
)

// Builder accumulates raw, source-frame points while a decoder streams
// through its input, then finalizes them into a canonical Cloud: computing
// the AABB (unless the source already provided one), converting to Y-up,
// and centering. It mirrors the role of the teacher's passThrough helpers
// in editor.go, but builds forward into fresh slices instead of filtering
// an existing Cloud in place.
type Builder struct {
	xs, ys, zs []float64
	colors     []float32
	intensity  []float32
	class      []float32

	hasColor, hasIntensity, hasClassification bool

	min, max    [3]float64
	boundsKnown bool
}

func NewBuilder() *Builder {
	return &Builder{
		min: [3]float64{math.MaxFloat64, math.MaxFloat64, math.MaxFloat64},
		max: [3]float64{-math.MaxFloat64, -math.MaxFloat64, -math.MaxFloat64},
	}
}

// AddPoint appends one source-frame point. r,g,b and intensity must already
// be normalized to [0,1]; classification must be an ASPRS integer code.
func (b *Builder) AddPoint(x, y, z float64, r, g, bl, intensity, classification float32, hasColor, hasIntensity, hasClass bool) {
	b.xs = append(b.xs, x)
	b.ys = append(b.ys, y)
	b.zs = append(b.zs, z)
	if hasColor {
		b.hasColor = true
		b.colors = append(b.colors, r, g, bl)
	} else {
		b.colors = append(b.colors, DefaultGray[0], DefaultGray[1], DefaultGray[2])
	}
	if hasIntensity {
		b.hasIntensity = true
	}
	b.intensity = append(b.intensity, intensity)
	if hasClass {
		b.hasClassification = true
	}
	b.class = append(b.class, classification)

	if x < b.min[0] {
		b.min[0] = x
	}
	if y < b.min[1] {
		b.min[1] = y
	}
	if z < b.min[2] {
		b.min[2] = z
	}
	if x > b.max[0] {
		b.max[0] = x
	}
	if y > b.max[1] {
		b.max[1] = y
	}
	if z > b.max[2] {
		b.max[2] = z
	}
}

// Len returns the number of points accumulated so far.
func (b *Builder) Len() int { return len(b.xs) }

// SetBounds overrides the AABB the builder would otherwise infer from the
// accumulated points, for decoders (e.g. LAS) that read bounds from a
// file header.
func (b *Builder) SetBounds(min, max [3]float64) {
	b.min, b.max = min, max
	b.boundsKnown = true
}

// Build finalizes the accumulated points into a Cloud, applying
// stride sampling (stride > 1 keeps every stride-th point in insertion
// order) and the Y-up conversion described in spec.md §3.
func (b *Builder) Build(sourceTag string, scale, offset [3]float64, stride int) (*Cloud, error) {
	n := len(b.xs)
	if n == 0 {
		return nil, NewError(EmptyCloud, "no points decoded")
	}
	if stride < 1 {
		stride = 1
	}

	min, max := b.min, b.max
	if !b.boundsKnown {
		min, max = [3]float64{math.MaxFloat64, math.MaxFloat64, math.MaxFloat64}, [3]float64{-math.MaxFloat64, -math.MaxFloat64, -math.MaxFloat64}
		for i := 0; i < n; i++ {
			p := [3]float64{b.xs[i], b.ys[i], b.zs[i]}
			for a := 0; a < 3; a++ {
				if p[a] < min[a] {
					min[a] = p[a]
				}
				if p[a] > max[a] {
					max[a] = p[a]
				}
			}
		}
	}
	center := CenterFromBounds(min, max)

	kept := (n + stride - 1) / stride
	c := &Cloud{
		Positions:       make([]float32, 0, kept*3),
		Colors:          make([]float32, 0, kept*3),
		Intensities:     make([]float32, 0, kept),
		Classifications: make([]float32, 0, kept),
		Header: Header{
			Min:       min,
			Max:       max,
			Scale:     scale,
			Offset:    offset,
			SourceTag: sourceTag,
		},
		Center:            mat.NewVec3(float32(center[0]), float32(center[1]), float32(center[2])),
		HasColor:          b.hasColor,
		HasIntensity:      b.hasIntensity,
		HasClassification: b.hasClassification,
	}

	for i := 0; i < n; i += stride {
		p := ToYUp(b.xs[i], b.ys[i], b.zs[i], center)
		c.Positions = append(c.Positions, p[0], p[1], p[2])
		c.Colors = append(c.Colors, b.colors[3*i], b.colors[3*i+1], b.colors[3*i+2])
		c.Intensities = append(c.Intensities, b.intensity[i])
		c.Classifications = append(c.Classifications, b.class[i])
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
