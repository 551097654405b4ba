package lod

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"
	"golang.org/x/sync/semaphore"

	"github.com/OpenAEC-Foundation/open-pointcloud-studio/mat"
)

const (
	maxTickRate     = 10 // Hz
	loadBatchSize   = 15
	positionEpsilon = 1e-3
	rotationEpsilon = 1e-3
)

// CameraState is the controller's view of the renderer's camera, as
// reported by the UI on every frame.
type CameraState struct {
	Position    [3]float64
	Orientation [3]float64 // Euler angles, radians; L1 distance gates re-query
	FovDegrees  float64
	Aspect      float64
	Height      float64
}

// VisibleNode is one entry of a backend visibility plan.
type VisibleNode struct {
	NodeID      string
	Bounds      Bounds
	Level       uint8
	PointCount  uint32
	HasChildren bool
}

// Backend is the opaque LOD collaborator (spec.md §6 "LOD backend"): it
// owns the full octree for a cloud and answers visibility/chunk queries.
// A process that owns both sides (CLI/offline builds) can satisfy this
// with *Octree via OctreeBackend; a remote backend would satisfy it over
// a network RPC instead.
type Backend interface {
	GetVisibleNodes(ctx context.Context, cloudID string, cam CameraState, budget uint32) ([]VisibleNode, error)
	GetNodesBinary(ctx context.Context, cloudID string, nodeIDs []string) ([]byte, error)
}

// OctreeBackend adapts a locally built *Octree to the Backend interface,
// for the batch/CLI/test scenario where this process owns the index.
type OctreeBackend struct {
	Tree *Octree
}

func (b *OctreeBackend) GetVisibleNodes(_ context.Context, _ string, cam CameraState, budget uint32) ([]VisibleNode, error) {
	ids := b.Tree.GetVisibleNodes(Camera{
		Position:     mat.NewVec3(float32(cam.Position[0]), float32(cam.Position[1]), float32(cam.Position[2])),
		FovDegrees:   cam.FovDegrees,
		ScreenHeight: cam.Height,
	}, budget)
	out := make([]VisibleNode, 0, len(ids))
	for _, id := range ids {
		info, ok := b.Tree.GetNodeInfo(id)
		if !ok {
			continue
		}
		out = append(out, VisibleNode{
			NodeID:      info.NodeID,
			Bounds:      info.Bounds,
			Level:       info.Level,
			PointCount:  info.PointCount,
			HasChildren: info.HasChildren,
		})
	}
	return out, nil
}

func (b *OctreeBackend) GetNodesBinary(_ context.Context, _ string, nodeIDs []string) ([]byte, error) {
	chunks := make([]Chunk, 0, len(nodeIDs))
	for _, id := range nodeIDs {
		if chunk, ok := b.Tree.GetNodeChunk(id); ok {
			chunks = append(chunks, chunk)
		}
	}
	return EncodeChunks(chunks), nil
}

// LoadedNode is a resident chunk, with its positions already converted to
// the viewer's Y-up, world-offset-relative convention.
type LoadedNode struct {
	NodeID     string
	Chunk      Chunk
	LoadedAt   time.Time
}

// Controller owns the resident node set for one cloud and keeps it in
// sync with the backend's visibility plan as the camera moves
// (spec.md §4.8).
type Controller struct {
	backend     Backend
	cloudID     string
	worldOffset [3]float64
	budget      uint32

	mu          sync.Mutex
	loaded      map[string]*LoadedNode
	lastCamera  CameraState
	lastBudget  uint32
	lastTick    time.Time
	hasLast     bool
	disposed    bool
}

// NewController creates a controller for cloudID, backed by backend.
// worldOffset is the cloud's AABB center (the amount that was subtracted
// during Y-up centering at import time) and is re-added so loaded chunks
// land in the same world space the Canonical Cloud occupies.
func NewController(backend Backend, cloudID string, worldOffset [3]float64, initialBudget uint32) *Controller {
	return &Controller{
		backend:     backend,
		cloudID:     cloudID,
		worldOffset: worldOffset,
		budget:      initialBudget,
		loaded:      make(map[string]*LoadedNode),
	}
}

// SetPointBudget updates the controller's point budget; it takes effect
// on the next Tick.
func (c *Controller) SetPointBudget(n uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.budget = n
}

// Tick re-queries the backend once the throttle window has elapsed and
// the camera has moved enough or the point budget changed, and loads/unloads
// nodes to match the resulting visibility plan. Backend errors are
// absorbed: they are logged and the tick is skipped, to be retried on the
// next qualifying camera move (spec.md §7 BackendError).
func (c *Controller) Tick(ctx context.Context, cam CameraState) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	now := time.Now()
	if c.hasLast && now.Sub(c.lastTick) < time.Second/maxTickRate {
		c.mu.Unlock()
		return
	}
	if c.hasLast && !cameraMoved(c.lastCamera, cam) && c.budget == c.lastBudget {
		c.mu.Unlock()
		return
	}
	budget := c.budget
	c.lastCamera = cam
	c.lastBudget = budget
	c.lastTick = now
	c.hasLast = true
	c.mu.Unlock()

	plan, err := c.backend.GetVisibleNodes(ctx, c.cloudID, cam, budget)
	if err != nil {
		glog.Warningf("lod: visibility query failed for cloud %s: %v", c.cloudID, err)
		return
	}

	c.reconcile(ctx, plan)
}

func cameraMoved(a, b CameraState) bool {
	var posDelta float64
	for i := 0; i < 3; i++ {
		d := a.Position[i] - b.Position[i]
		posDelta += d * d
	}
	if posDelta > positionEpsilon*positionEpsilon {
		return true
	}
	var rotL1 float64
	for i := 0; i < 3; i++ {
		d := a.Orientation[i] - b.Orientation[i]
		if d < 0 {
			d = -d
		}
		rotL1 += d
	}
	return rotL1 > rotationEpsilon
}

func (c *Controller) reconcile(ctx context.Context, plan []VisibleNode) {
	wanted := make(map[string]VisibleNode, len(plan))
	for _, n := range plan {
		wanted[n.NodeID] = n
	}

	c.mu.Lock()
	var toUnload []string
	for id := range c.loaded {
		if _, ok := wanted[id]; !ok {
			toUnload = append(toUnload, id)
		}
	}
	for _, id := range toUnload {
		delete(c.loaded, id)
	}
	var toLoad []string
	for id := range wanted {
		if _, ok := c.loaded[id]; !ok {
			toLoad = append(toLoad, id)
		}
	}
	c.mu.Unlock()

	if len(toLoad) == 0 {
		return
	}
	c.loadBatch(ctx, toLoad)
}

// loadBatch fetches nodeIDs in batches of up to loadBatchSize concurrent
// requests (spec.md §4.8/§7).
func (c *Controller) loadBatch(ctx context.Context, nodeIDs []string) {
	sem := semaphore.NewWeighted(loadBatchSize)
	var wg sync.WaitGroup
	for _, id := range nodeIDs {
		id := id
		if err := sem.Acquire(ctx, 1); err != nil {
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			c.loadOne(ctx, id)
		}()
	}
	wg.Wait()
}

func (c *Controller) loadOne(ctx context.Context, nodeID string) {
	raw, err := c.backend.GetNodesBinary(ctx, c.cloudID, []string{nodeID})
	if err != nil {
		glog.Warningf("lod: chunk fetch failed for cloud %s node %s: %v", c.cloudID, nodeID, err)
		return
	}
	chunk, _, err := DecodeChunk(raw)
	if err != nil {
		glog.Warningf("lod: chunk decode failed for cloud %s node %s: %v", c.cloudID, nodeID, err)
		return
	}
	applyYUpOffset(&chunk, c.worldOffset)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}
	c.loaded[nodeID] = &LoadedNode{NodeID: nodeID, Chunk: chunk, LoadedAt: time.Now()}
}

// applyYUpOffset mirrors the import-time Y-up conversion
// (cloud.ToYUp) onto a chunk's center and its center-relative positions,
// and re-adds the world offset that was subtracted when the Canonical
// Cloud was centered, so resident chunks sit in the same world space as
// the rest of the cloud.
func applyYUpOffset(chunk *Chunk, worldOffset [3]float64) {
	x, y, z := chunk.Center[0], chunk.Center[1], chunk.Center[2]
	chunk.Center = [3]float64{
		x + worldOffset[0],
		z + worldOffset[1],
		-y + worldOffset[2],
	}
	p := chunk.Positions
	for i := 0; i+2 < len(p); i += 3 {
		p[i+1], p[i+2] = p[i+2], -p[i+1]
	}
}

// LoadedNodes returns a snapshot of the currently resident chunks.
func (c *Controller) LoadedNodes() []*LoadedNode {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*LoadedNode, 0, len(c.loaded))
	for _, n := range c.loaded {
		out = append(out, n)
	}
	return out
}

// Dispose releases all resident buffers and marks the controller dead;
// any load batch still in flight discards its results instead of adding
// them to the loaded set (spec.md §5 "disposed flag").
func (c *Controller) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disposed = true
	c.loaded = make(map[string]*LoadedNode)
}
