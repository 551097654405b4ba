package transform

import (
	"math"
	"math/rand"

	"github.com/OpenAEC-Foundation/open-pointcloud-studio/cloud"
)

// Translate shifts every position by (dx, dy, dz) in place. Lengths are
// unchanged; Translate(dx,dy,dz) followed by Translate(-dx,-dy,-dz) is the
// identity on positions within float32 rounding.
func Translate(c *cloud.Cloud, e *cloud.Entry, dx, dy, dz float32) {
	p := c.Positions
	for i := 0; i+2 < len(p); i += 3 {
		p[i] += dx
		p[i+1] += dy
		p[i+2] += dz
	}
	if e != nil {
		e.Touch()
	}
}

// Scale multiplies every position componentwise by (sx, sy, sz) about the
// cloud's local origin. Scale(1,1,1) is the identity.
func Scale(c *cloud.Cloud, e *cloud.Entry, sx, sy, sz float32) {
	p := c.Positions
	for i := 0; i+2 < len(p); i += 3 {
		p[i] *= sx
		p[i+1] *= sy
		p[i+2] *= sz
	}
	if e != nil {
		e.Touch()
	}
}

// Thin randomly drops points, keeping approximately percent% of them.
// Thin(100) is the identity. The surviving subset is chosen with a
// Fisher-Yates partial shuffle over point indices so every point has equal
// selection probability regardless of cloud size.
func Thin(c *cloud.Cloud, e *cloud.Entry, percent float64, rng *rand.Rand) {
	if percent >= 100 {
		if e != nil {
			e.Touch()
		}
		return
	}
	n := c.PointCount()
	if n == 0 {
		return
	}
	if percent < 1 {
		percent = 1
	} else if percent > 100 {
		percent = 100
	}
	keep := int(math.Round(float64(n) * percent / 100))
	if keep < 1 {
		keep = 1
	}
	if keep > n {
		keep = n
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	for i := 0; i < keep; i++ {
		j := i + rng.Intn(n-i)
		order[i], order[j] = order[j], order[i]
	}
	survivors := order[:keep]

	DeleteIndices(c, e, invertSelection(survivors, n))
}

// DeleteIndices removes the given point indices (order-independent,
// duplicates tolerated) and compacts the surviving points into contiguous
// slices, preserving relative order. If every point is removed the caller
// is expected to remove the Cloud Entry from the Registry.
func DeleteIndices(c *cloud.Cloud, e *cloud.Entry, indices []int) {
	n := c.PointCount()
	if n == 0 || len(indices) == 0 {
		if e != nil && len(indices) > 0 {
			e.Touch()
		}
		return
	}

	removed := make([]bool, n)
	for _, idx := range indices {
		if idx >= 0 && idx < n {
			removed[idx] = true
		}
	}

	oldToNew := make([]int32, n)
	w := 0
	for i := 0; i < n; i++ {
		if removed[i] {
			oldToNew[i] = -1
			continue
		}
		oldToNew[i] = int32(w)
		copy(c.Positions[3*w:3*w+3], c.Positions[3*i:3*i+3])
		copy(c.Colors[3*w:3*w+3], c.Colors[3*i:3*i+3])
		c.Intensities[w] = c.Intensities[i]
		c.Classifications[w] = c.Classifications[i]
		w++
	}
	c.Positions = c.Positions[:3*w]
	c.Colors = c.Colors[:3*w]
	c.Intensities = c.Intensities[:w]
	c.Classifications = c.Classifications[:w]

	if len(c.Indices) > 0 {
		out := c.Indices[:0]
		for i := 0; i+2 < len(c.Indices); i += 3 {
			a, b, cc := c.Indices[i], c.Indices[i+1], c.Indices[i+2]
			if removed[a] || removed[b] || removed[cc] {
				continue
			}
			out = append(out, uint32(oldToNew[a]), uint32(oldToNew[b]), uint32(oldToNew[cc]))
		}
		c.Indices = out
	}

	if e != nil {
		e.Touch()
	}
}

func invertSelection(keep []int, n int) []int {
	keepSet := make([]bool, n)
	for _, k := range keep {
		keepSet[k] = true
	}
	var removed []int
	for i := 0; i < n; i++ {
		if !keepSet[i] {
			removed = append(removed, i)
		}
	}
	return removed
}
