package reconstruct

import (
	"math"
	"sort"
	"sync/atomic"

	"github.com/OpenAEC-Foundation/open-pointcloud-studio/cloud"
	"github.com/OpenAEC-Foundation/open-pointcloud-studio/mat"
	"github.com/OpenAEC-Foundation/open-pointcloud-studio/spatial"
)

// Options tunes the greedy-projection triangulation.
type Options struct {
	KNeighbors    int     // default 15
	MaxEdgeLength float32 // default 2*cellSize, set by Run if zero
}

// Progress reports one of the four cooperative-yield phases.
type Progress struct {
	Phase    string
	Fraction float64
}

var phaseNames = []string{
	"Building spatial index",
	"Estimating normals",
	"Triangulating",
	"Finalizing",
}

// Cancel is polled at each of the reconstructor's four yield points.
type Cancel struct {
	flag atomic.Bool
}

func (c *Cancel) Cancel()          { c.flag.Store(true) }
func (c *Cancel) cancelled() bool  { return c.flag.Load() }

// Run triangulates c.Positions in place, attaching the result to
// c.Indices. It fails EmptyResult if zero triangles are produced, and
// Cancelled if cancel is signalled between phases.
func Run(c *cloud.Cloud, opts Options, cancel *Cancel, onProgress func(Progress)) error {
	report := func(phase string, frac float64) {
		if onProgress != nil {
			onProgress(Progress{Phase: phase, Fraction: frac})
		}
	}
	checkCancel := func() error {
		if cancel != nil && cancel.cancelled() {
			return cloud.NewError(cloud.Cancelled, "reconstruction cancelled")
		}
		return nil
	}

	n := c.PointCount()
	points := make([]mat.Vec3, n)
	for i := 0; i < n; i++ {
		points[i] = mat.NewVec3(c.Positions[3*i], c.Positions[3*i+1], c.Positions[3*i+2])
	}

	k := opts.KNeighbors
	if k <= 0 {
		k = 15
	}
	report(phaseNames[0], 0.10)
	grid := spatial.NewGrid(points, k)
	if err := checkCancel(); err != nil {
		return err
	}

	maxEdge := opts.MaxEdgeLength
	if maxEdge <= 0 {
		maxEdge = 2 * grid.CellSize()
	}
	maxEdgeSq := maxEdge * maxEdge

	report(phaseNames[1], 0.30)
	normals := spatial.EstimateNormals(points, grid, k)
	report(phaseNames[1], 0.60)
	if err := checkCancel(); err != nil {
		return err
	}

	report(phaseNames[2], 0.60)
	seen := map[[3]uint32]bool{}
	var indices []uint32
	for i := 0; i < n; i++ {
		tris := triangulateSeed(points, normals, grid, i, k, maxEdgeSq)
		for _, t := range tris {
			key := canonicalKey(t)
			if seen[key] {
				continue
			}
			seen[key] = true
			a, bIdx, cIdx := orientTriangle(points, normals[i], t)
			indices = append(indices, a, bIdx, cIdx)
		}
	}
	report(phaseNames[2], 0.90)
	if err := checkCancel(); err != nil {
		return err
	}

	report(phaseNames[3], 0.95)
	if err := checkCancel(); err != nil {
		return err
	}
	if len(indices) == 0 {
		return cloud.NewError(cloud.EmptyResult, "reconstruction produced zero triangles")
	}
	c.Indices = indices
	report("Complete", 1.0)
	return nil
}

// triangulateSeed builds the tangent-plane fan around seed i and returns
// the triangles it closes.
func triangulateSeed(points []mat.Vec3, normals []mat.Vec3, grid *spatial.Grid, i int, k int, maxEdgeSq float32) [][3]uint32 {
	p := points[i]
	n := normals[i]

	u := n.Cross(mat.NewVec3(1, 0, 0))
	if math.Abs(float64(n[0])) >= 0.9 {
		u = n.Cross(mat.NewVec3(0, 1, 0))
	}
	if u.Norm() < 1e-12 {
		return nil
	}
	u = u.Normalized()
	v := n.Cross(u)

	neighbors := grid.KNearest(p, k, i)
	type polar struct {
		idx   int
		angle float64
	}
	var ring []polar
	for _, idx := range neighbors {
		d := points[idx].Sub(p)
		if d.NormSq() > maxEdgeSq {
			continue
		}
		x := float64(d.Dot(u))
		y := float64(d.Dot(v))
		ring = append(ring, polar{idx: idx, angle: math.Atan2(y, x)})
	}
	if len(ring) < 2 {
		return nil
	}
	sort.Slice(ring, func(a, b int) bool { return ring[a].angle < ring[b].angle })

	var tris [][3]uint32
	for j := 0; j < len(ring); j++ {
		a := ring[j]
		bEl := ring[(j+1)%len(ring)]
		if a.idx == bEl.idx {
			continue
		}
		edgeSq := points[a.idx].Sub(points[bEl.idx]).NormSq()
		if edgeSq > maxEdgeSq {
			continue
		}
		gap := bEl.angle - a.angle
		if j == len(ring)-1 {
			gap = bEl.angle + 2*math.Pi - a.angle
		}
		if gap < 0 {
			gap += 2 * math.Pi
		}
		if gap > math.Pi/2 {
			continue
		}
		tris = append(tris, [3]uint32{uint32(i), uint32(a.idx), uint32(bEl.idx)})
	}
	return tris
}

func canonicalKey(t [3]uint32) [3]uint32 {
	s := t[:]
	sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })
	return [3]uint32{s[0], s[1], s[2]}
}

// orientTriangle flips (b,c) if needed so (p_b-p_i)x(p_c-p_i)·n >= 0.
func orientTriangle(points []mat.Vec3, n mat.Vec3, t [3]uint32) (a, b, c uint32) {
	pi, pb, pc := points[t[0]], points[t[1]], points[t[2]]
	cross := pb.Sub(pi).Cross(pc.Sub(pi))
	if cross.Dot(n) >= 0 {
		return t[0], t[1], t[2]
	}
	return t[0], t[2], t[1]
}
