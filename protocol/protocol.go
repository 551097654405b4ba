// Package protocol defines the wire envelope between the UI and the
// parse worker (spec.md §4.10): a ParseRequest in, a stream of
// ParseResponse messages out, ending in exactly one Result or Error.
package protocol

import (
	"bytes"
	"context"

	"github.com/golang/glog"

	"github.com/OpenAEC-Foundation/open-pointcloud-studio/cloud"
	"github.com/OpenAEC-Foundation/open-pointcloud-studio/decode"
)

// ParseRequest carries an id for correlating responses, the source file's
// extension (decoder selection key), and its raw bytes. Buffer ownership
// transfers to the worker with the request: callers must not reuse
// Buffer after Submit.
type ParseRequest struct {
	ID        string
	Extension string
	Buffer    []byte
}

// ResponseType discriminates the union of ParseResponse payloads.
type ResponseType int

const (
	ResponseProgress ResponseType = iota
	ResponseResult
	ResponseError
)

// ParseResponse is one message in the response stream for a ParseRequest.
// Exactly one ResponseResult or ResponseError terminates the stream for a
// given ID; any number of ResponseProgress messages may precede it.
type ParseResponse struct {
	Type    ResponseType
	ID      string
	Phase   string
	Percent float64
	Data    *cloud.Cloud // set only on ResponseResult
	Message string       // set only on ResponseError
}

// Submit decodes req on the calling goroutine's worker pool (via
// decode.Dispatch) and streams ParseResponse messages to out as they
// occur. Submit blocks until the request's response stream is complete;
// callers wanting concurrent requests should call Submit from separate
// goroutines, one per request — decode.Dispatch already runs the decode
// itself off-thread.
func Submit(ctx context.Context, req ParseRequest, out chan<- ParseResponse) {
	glog.V(1).Infof("protocol: dispatching parse request %s (%s, %d bytes)", req.ID, req.Extension, len(req.Buffer))

	path := "buffer" + req.Extension
	r := bytes.NewReader(req.Buffer)

	c, err := decode.Dispatch(ctx, path, r, func(p decode.Progress) {
		out <- ParseResponse{Type: ResponseProgress, ID: req.ID, Phase: p.Phase, Percent: p.Fraction}
	})
	if err != nil {
		glog.Warningf("protocol: parse request %s failed: %v", req.ID, err)
		out <- ParseResponse{Type: ResponseError, ID: req.ID, Message: err.Error()}
		return
	}
	out <- ParseResponse{Type: ResponseResult, ID: req.ID, Data: c}
}
