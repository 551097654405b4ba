package spatial

import (
	"math"
	"sort"

	"github.com/OpenAEC-Foundation/open-pointcloud-studio/mat"
)

const maxRingRadius = 5

type cellCoord [3]int32

// Grid is a uniform spatial index over a fixed point set, sized so the
// expected per-cell occupancy approximates a target neighbor count k
// (spec.md §4.6): cellSize = extent / cbrt(n/k), falling back to 1.0 for a
// degenerate (zero-extent or empty) cloud.
type Grid struct {
	points   []mat.Vec3
	cellSize float32
	cells    map[cellCoord][]int
}

// NewGrid builds a Grid over points, targeting k points per cell.
func NewGrid(points []mat.Vec3, k int) *Grid {
	g := &Grid{
		points:   points,
		cellSize: 1.0,
		cells:    make(map[cellCoord][]int),
	}
	if len(points) > 0 && k > 0 {
		min, max := points[0], points[0]
		for _, p := range points {
			min = mat.Vec3Min(min, p)
			max = mat.Vec3Max(max, p)
		}
		extent := max.Sub(min).Norm()
		if extent > 0 {
			ratio := float64(len(points)) / float64(k)
			if ratio > 0 {
				g.cellSize = float32(float64(extent) / math.Cbrt(ratio))
			}
		}
	}
	if g.cellSize <= 0 {
		g.cellSize = 1.0
	}
	for i, p := range points {
		c := g.cellOf(p)
		g.cells[c] = append(g.cells[c], i)
	}
	return g
}

// CellSize returns the grid's cell edge length, as computed by NewGrid.
func (g *Grid) CellSize() float32 { return g.cellSize }

func (g *Grid) cellOf(p mat.Vec3) cellCoord {
	return cellCoord{
		int32(math.Floor(float64(p[0] / g.cellSize))),
		int32(math.Floor(float64(p[1] / g.cellSize))),
		int32(math.Floor(float64(p[2] / g.cellSize))),
	}
}

// Insert adds point index i (already present in the backing slice passed
// to NewGrid) into the grid. KNearest reads positions from that slice, so
// i must index it; points appended to a caller's slice after NewGrid are
// not visible to the grid.
func (g *Grid) Insert(i int, p mat.Vec3) {
	c := g.cellOf(p)
	g.cells[c] = append(g.cells[c], i)
}

type neighbor struct {
	idx    int
	distSq float32
}

// KNearest returns up to k point indices nearest to p, excluding exclude,
// sorted ascending by squared distance. It expands outward over
// concentric cell rings (Chebyshev distance from p's home cell) up to
// maxRingRadius; if fewer than k points are found by then, it returns
// what it has.
func (g *Grid) KNearest(p mat.Vec3, k int, exclude int) []int {
	home := g.cellOf(p)
	var found []neighbor

	for radius := int32(0); radius <= maxRingRadius; radius++ {
		g.forEachCellInRing(home, radius, func(c cellCoord) {
			for _, idx := range g.cells[c] {
				if idx == exclude {
					continue
				}
				d := g.points[idx].Sub(p).NormSq()
				found = append(found, neighbor{idx: idx, distSq: d})
			}
		})
		if len(found) >= k && radius > 0 {
			break
		}
	}

	sort.Slice(found, func(i, j int) bool { return found[i].distSq < found[j].distSq })
	if len(found) > k {
		found = found[:k]
	}
	out := make([]int, len(found))
	for i, n := range found {
		out[i] = n.idx
	}
	return out
}

func (g *Grid) forEachCellInRing(home cellCoord, radius int32, fn func(cellCoord)) {
	if radius == 0 {
		fn(home)
		return
	}
	for dx := -radius; dx <= radius; dx++ {
		for dy := -radius; dy <= radius; dy++ {
			for dz := -radius; dz <= radius; dz++ {
				if abs32(dx) != radius && abs32(dy) != radius && abs32(dz) != radius {
					continue // interior cell, already visited at a smaller radius
				}
				fn(cellCoord{home[0] + dx, home[1] + dy, home[2] + dz})
			}
		}
	}
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
