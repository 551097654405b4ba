package lod

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/OpenAEC-Foundation/open-pointcloud-studio/cloud"
)

type fakeBackend struct {
	mu       sync.Mutex
	plan     []VisibleNode
	chunks   map[string]Chunk
	calls    int
	failNext bool
}

func (f *fakeBackend) GetVisibleNodes(_ context.Context, _ string, _ CameraState, _ uint32) ([]VisibleNode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failNext {
		f.failNext = false
		return nil, cloud.NewError(cloud.BackendError, "boom")
	}
	return f.plan, nil
}

func (f *fakeBackend) GetNodesBinary(_ context.Context, _ string, nodeIDs []string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var chunks []Chunk
	for _, id := range nodeIDs {
		if c, ok := f.chunks[id]; ok {
			chunks = append(chunks, c)
		}
	}
	return EncodeChunks(chunks), nil
}

func TestControllerLoadsVisibleNodes(t *testing.T) {
	backend := &fakeBackend{
		plan: []VisibleNode{{NodeID: "r0", PointCount: 2}},
		chunks: map[string]Chunk{
			"r0": {NodeID: "r0", PointCount: 2, Positions: []float32{0, 0, 0, 1, 1, 1}, Colors: []float32{0, 0, 0, 0, 0, 0}, Intensities: []float32{0, 0}, Classifications: []float32{0, 0}},
		},
	}
	c := NewController(backend, "cloud-1", [3]float64{}, 1000)
	c.Tick(context.Background(), CameraState{Position: [3]float64{0, 0, 0}})

	loaded := c.LoadedNodes()
	if len(loaded) != 1 || loaded[0].NodeID != "r0" {
		t.Fatalf("LoadedNodes() = %+v, want one node r0", loaded)
	}
}

func TestControllerSkipsTickWithoutCameraMovement(t *testing.T) {
	backend := &fakeBackend{plan: nil}
	c := NewController(backend, "cloud-1", [3]float64{}, 1000)
	cam := CameraState{Position: [3]float64{1, 2, 3}}
	c.Tick(context.Background(), cam)
	c.lastTick = c.lastTick.Add(-time.Second) // defeat the Hz throttle without touching camera state
	c.Tick(context.Background(), cam)

	backend.mu.Lock()
	calls := backend.calls
	backend.mu.Unlock()
	if calls != 1 {
		t.Fatalf("backend called %d times, want 1 (second tick should be gated by cameraMoved)", calls)
	}
}

func TestControllerUnloadsNodesMissingFromPlan(t *testing.T) {
	backend := &fakeBackend{
		plan: []VisibleNode{{NodeID: "r0", PointCount: 1}},
		chunks: map[string]Chunk{
			"r0": {NodeID: "r0", PointCount: 1, Positions: []float32{0, 0, 0}, Colors: []float32{0, 0, 0}, Intensities: []float32{0}, Classifications: []float32{0}},
		},
	}
	c := NewController(backend, "cloud-1", [3]float64{}, 1000)
	c.Tick(context.Background(), CameraState{Position: [3]float64{0, 0, 0}})
	if len(c.LoadedNodes()) != 1 {
		t.Fatal("expected r0 loaded after first tick")
	}

	backend.mu.Lock()
	backend.plan = nil
	backend.mu.Unlock()
	c.lastTick = c.lastTick.Add(-time.Second)
	c.Tick(context.Background(), CameraState{Position: [3]float64{1, 0, 0}})

	if len(c.LoadedNodes()) != 0 {
		t.Fatalf("LoadedNodes() = %+v, want none after plan dropped r0", c.LoadedNodes())
	}
}

func TestControllerAbsorbsBackendErrors(t *testing.T) {
	backend := &fakeBackend{failNext: true}
	c := NewController(backend, "cloud-1", [3]float64{}, 1000)
	c.Tick(context.Background(), CameraState{Position: [3]float64{5, 5, 5}})
	if len(c.LoadedNodes()) != 0 {
		t.Fatal("expected no nodes loaded after a failed visibility query")
	}
}

func TestControllerDisposeClearsLoadedNodes(t *testing.T) {
	backend := &fakeBackend{
		plan: []VisibleNode{{NodeID: "r0", PointCount: 1}},
		chunks: map[string]Chunk{
			"r0": {NodeID: "r0", PointCount: 1, Positions: []float32{0, 0, 0}, Colors: []float32{0, 0, 0}, Intensities: []float32{0}, Classifications: []float32{0}},
		},
	}
	c := NewController(backend, "cloud-1", [3]float64{}, 1000)
	c.Tick(context.Background(), CameraState{Position: [3]float64{0, 0, 0}})
	c.Dispose()
	if len(c.LoadedNodes()) != 0 {
		t.Fatal("expected LoadedNodes empty after Dispose")
	}
}
