package protocol

import (
	"context"
	"sync"

	"github.com/OpenAEC-Foundation/open-pointcloud-studio/cloud"
)

// Dispatcher fans out ParseRequests to one goroutine each and applies
// completed results to a Registry as they arrive — independently, not in
// submission order (spec.md §5 "Ordering guarantees").
type Dispatcher struct {
	registry *cloud.Registry
	out      chan ParseResponse

	wg sync.WaitGroup
}

// NewDispatcher creates a Dispatcher that applies results to registry and
// republishes every response (including progress) on its Responses
// channel for a UI layer to observe.
func NewDispatcher(registry *cloud.Registry) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		out:      make(chan ParseResponse, 64),
	}
}

// Responses is the Dispatcher's outgoing response stream. The caller
// should drain it continuously; it is never closed (a Dispatcher may
// receive new requests for the life of the process).
func (d *Dispatcher) Responses() <-chan ParseResponse { return d.out }

// Submit starts decoding req on its own goroutine. It returns
// immediately; completion and any intermediate progress arrive on
// Responses.
func (d *Dispatcher) Submit(ctx context.Context, req ParseRequest, sourcePath string) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		local := make(chan ParseResponse, 8)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for resp := range local {
				if resp.Type == ResponseResult {
					entry := cloud.NewEntry(sourcePath, sourcePath, resp.Data)
					d.registry.Put(entry, resp.Data)
				}
				d.out <- resp
			}
		}()
		Submit(ctx, req, local)
		close(local)
		<-done
	}()
}

// Wait blocks until every Submit call started so far has completed its
// response stream.
func (d *Dispatcher) Wait() { d.wg.Wait() }
