package lod

import (
	"math"
	"sort"
	"strconv"

	"github.com/OpenAEC-Foundation/open-pointcloud-studio/mat"
)

const (
	maxPointsPerLeaf = 65536
	maxDepth         = 12
	subsampleRatio   = 8
)

// Point is one record carried by the octree, independent of the canonical
// Cloud representation: the backend owns its own copy so an in-progress
// index build never observes edits to the live Cloud.
type Point struct {
	Pos            mat.Vec3
	Color          [3]float32
	Intensity      float32
	Classification float32
}

// Bounds is an axis-aligned bounding box in world space.
type Bounds struct {
	Min, Max mat.Vec3
}

func (b Bounds) Center() mat.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b Bounds) Size() mat.Vec3 {
	return b.Max.Sub(b.Min)
}

func (b Bounds) MaxExtent() float32 {
	s := b.Size()
	m := s[0]
	if s[1] > m {
		m = s[1]
	}
	if s[2] > m {
		m = s[2]
	}
	return m
}

// Octant returns the sub-box of b for the given octant index (0-7), split
// at b's center; bit 0 selects +X, bit 1 +Y, bit 2 +Z.
func (b Bounds) Octant(octant int) Bounds {
	c := b.Center()
	out := b
	if octant&1 != 0 {
		out.Min[0] = c[0]
	} else {
		out.Max[0] = c[0]
	}
	if octant&2 != 0 {
		out.Min[1] = c[1]
	} else {
		out.Max[1] = c[1]
	}
	if octant&4 != 0 {
		out.Min[2] = c[2]
	} else {
		out.Max[2] = c[2]
	}
	return out
}

// Node is one octree node: an internal node holds a coarse LOD subsample
// in Points, a leaf holds its full point set (up to maxPointsPerLeaf,
// except at maxDepth, where a leaf is not split and keeps every point).
type Node struct {
	NodeID   string
	Bounds   Bounds
	Level    uint8
	Points   []Point
	Children [8]*Node
}

func (n *Node) IsLeaf() bool {
	for _, c := range n.Children {
		if c != nil {
			return false
		}
	}
	return true
}

func (n *Node) HasChildren() bool {
	for _, c := range n.Children {
		if c != nil {
			return true
		}
	}
	return false
}

func (n *Node) PointCount() uint32 { return uint32(len(n.Points)) }

// Octree is the LOD backend's spatial index over one cloud's points.
// Wire terminology follows original_source/octree.rs: node ids are "r"
// (root) followed by one octant digit per level.
type Octree struct {
	Root        *Node
	TotalPoints uint64
}

// Build constructs an octree over points within bounds, then computes the
// coarse LOD subsample every internal node needs to render before its
// children are resident.
func Build(points []Point, bounds Bounds) *Octree {
	t := &Octree{
		Root:        &Node{NodeID: "r", Bounds: bounds, Level: 0},
		TotalPoints: uint64(len(points)),
	}
	for _, p := range points {
		insertPoint(t.Root, p)
	}
	buildLOD(t.Root)
	return t
}

func insertPoint(node *Node, p Point) {
	if node.IsLeaf() && len(node.Points) < maxPointsPerLeaf {
		node.Points = append(node.Points, p)
		return
	}
	if node.Level >= maxDepth {
		node.Points = append(node.Points, p)
		return
	}

	if node.IsLeaf() && len(node.Points) > 0 {
		existing := node.Points
		node.Points = nil
		for _, ep := range existing {
			child := ensureChild(node, octantOf(node.Bounds, ep.Pos))
			insertPoint(child, ep)
		}
	}

	child := ensureChild(node, octantOf(node.Bounds, p.Pos))
	insertPoint(child, p)
}

func octantOf(b Bounds, p mat.Vec3) int {
	c := b.Center()
	octant := 0
	if p[0] >= c[0] {
		octant |= 1
	}
	if p[1] >= c[1] {
		octant |= 2
	}
	if p[2] >= c[2] {
		octant |= 4
	}
	return octant
}

func ensureChild(node *Node, octant int) *Node {
	if node.Children[octant] == nil {
		node.Children[octant] = &Node{
			NodeID: node.NodeID + strconv.Itoa(octant),
			Bounds: node.Bounds.Octant(octant),
			Level:  node.Level + 1,
		}
	}
	return node.Children[octant]
}

// buildLOD populates every internal node's Points with a stride-subsample
// of its children's, bottom-up, so a partially loaded tree still has
// something to render at every level.
func buildLOD(node *Node) {
	for _, c := range node.Children {
		if c != nil {
			buildLOD(c)
		}
	}
	if node.HasChildren() && len(node.Points) == 0 {
		var subsample []Point
		for _, c := range node.Children {
			if c == nil {
				continue
			}
			for i, p := range c.Points {
				if i%subsampleRatio == 0 {
					subsample = append(subsample, p)
				}
			}
		}
		node.Points = subsample
	}
}

// NodeInfo is the LOD Controller-facing summary of a Node (spec.md §3
// "Octree Node").
type NodeInfo struct {
	NodeID      string
	Bounds      Bounds
	Level       uint8
	PointCount  uint32
	HasChildren bool
}

// GetNodeInfo returns metadata for the node with the given id, or false
// if unknown.
func (t *Octree) GetNodeInfo(nodeID string) (NodeInfo, bool) {
	n := findNode(t.Root, nodeID)
	if n == nil {
		return NodeInfo{}, false
	}
	return NodeInfo{
		NodeID:      n.NodeID,
		Bounds:      n.Bounds,
		Level:       n.Level,
		PointCount:  n.PointCount(),
		HasChildren: n.HasChildren(),
	}, true
}

func findNode(node *Node, nodeID string) *Node {
	if node.NodeID == nodeID {
		return node
	}
	for _, c := range node.Children {
		if c == nil {
			continue
		}
		if len(nodeID) >= len(c.NodeID) && nodeID[:len(c.NodeID)] == c.NodeID {
			if found := findNode(c, nodeID); found != nil {
				return found
			}
		}
	}
	return nil
}

// Chunk is the GPU-ready payload for one node (spec.md §3 "Point Chunk"):
// positions are stored relative to the node's bounds center to keep them
// representable in float32 regardless of the cloud's absolute extent.
type Chunk struct {
	NodeID          string
	Center          [3]float64
	Level           uint8
	Spacing         float32
	Positions       []float32
	Colors          []float32
	Intensities     []float32
	Classifications []float32
	PointCount      uint32
}

// GetNodeChunk packs a node's points for transfer, or returns false if the
// node is unknown or empty.
func (t *Octree) GetNodeChunk(nodeID string) (Chunk, bool) {
	n := findNode(t.Root, nodeID)
	if n == nil || len(n.Points) == 0 {
		return Chunk{}, false
	}

	center := n.Bounds.Center()
	count := len(n.Points)
	ch := Chunk{
		NodeID:          nodeID,
		Center:          [3]float64{float64(center[0]), float64(center[1]), float64(center[2])},
		Level:           n.Level,
		Positions:       make([]float32, 0, count*3),
		Colors:          make([]float32, 0, count*3),
		Intensities:     make([]float32, 0, count),
		Classifications: make([]float32, 0, count),
		PointCount:      uint32(count),
	}
	for _, p := range n.Points {
		ch.Positions = append(ch.Positions, p.Pos[0]-center[0], p.Pos[1]-center[1], p.Pos[2]-center[2])
		ch.Colors = append(ch.Colors, p.Color[0], p.Color[1], p.Color[2])
		ch.Intensities = append(ch.Intensities, p.Intensity)
		ch.Classifications = append(ch.Classifications, p.Classification)
	}

	dims := []float32{n.Bounds.Size()[0], n.Bounds.Size()[1], n.Bounds.Size()[2]}
	sort.Slice(dims, func(i, j int) bool { return dims[i] > dims[j] })
	surfaceArea := dims[0] * dims[1]
	ch.Spacing = float32(math.Sqrt(float64(surfaceArea) / float64(count)))

	return ch, true
}

// Camera is the LOD Controller's view of the active camera, matching the
// fields the visibility query needs.
type Camera struct {
	Position     mat.Vec3
	FovDegrees   float64
	ScreenHeight float64
}

// GetVisibleNodes returns node ids sorted by rendering priority (closest,
// largest screen-space error first), accumulating until pointBudget would
// be exceeded. At least one node is always returned if any candidate
// exists, even if it alone exceeds the budget.
func (t *Octree) GetVisibleNodes(cam Camera, pointBudget uint32) []string {
	type candidate struct {
		id       string
		priority float64
		count    uint32
	}
	var candidates []candidate
	var collect func(n *Node)
	collect = func(n *Node) {
		if len(n.Points) == 0 && !n.HasChildren() {
			return
		}
		center := n.Bounds.Center()
		d := center.Sub(cam.Position)
		distance := math.Sqrt(float64(d.Dot(d)))
		nodeSize := float64(n.Bounds.MaxExtent())

		var screenSize float64
		if distance > 0.001 {
			screenSize = (nodeSize / distance) * cam.ScreenHeight / (2 * math.Tan(cam.FovDegrees*math.Pi/180/2))
		} else {
			screenSize = math.MaxFloat64
		}
		if screenSize < 1.0 {
			return
		}

		shouldUse := n.IsLeaf() || screenSize < 200.0
		if shouldUse && len(n.Points) > 0 {
			denom := nodeSize
			if denom < 0.001 {
				denom = 0.001
			}
			candidates = append(candidates, candidate{id: n.NodeID, priority: distance / denom, count: n.PointCount()})
		}
		if !shouldUse || !n.IsLeaf() {
			for _, c := range n.Children {
				if c != nil {
					collect(c)
				}
			}
		}
	}
	collect(t.Root)

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].priority < candidates[j].priority })

	var result []string
	var total uint32
	for _, c := range candidates {
		if total+c.count > pointBudget && len(result) > 0 {
			break
		}
		total += c.count
		result = append(result, c.id)
	}
	return result
}
