package decode

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"

	"github.com/OpenAEC-Foundation/open-pointcloud-studio/cloud"
)

// Decoder decodes a single point-cloud file format from r.
type Decoder func(r io.Reader) (*cloud.Cloud, error)

var decoders = map[string]Decoder{
	".las": DecodeLAS,
	".laz": DecodeLAZ,
	".ply": DecodePLY,
	".xyz": DecodeXYZ,
	".csv": DecodeXYZ,
	".txt": DecodeXYZ,
	".asc": DecodeXYZ,
	".pts": DecodePTS,
	".ptx": DecodePTX,
	".obj": DecodeOBJ,
	".off": DecodeOFF,
	".stl": DecodeSTL,
	".pcd": DecodePCD,
	".dxf": DecodeDXF,
	".e57": DecodeE57,
}

// Progress reports decode progress. Phase is one of "Reading file",
// "Parsing", "Transferring data", "Complete".
type Progress struct {
	Phase    string
	Fraction float64
}

// Dispatch picks a Decoder by file extension and runs it off the calling
// goroutine, reporting coarse progress through onProgress. E57 is run
// on the calling goroutine rather than handed to the pool (spec.md §4.2's
// "main-thread carve-out").
func Dispatch(ctx context.Context, path string, r io.Reader, onProgress func(Progress)) (*cloud.Cloud, error) {
	ext := strings.ToLower(filepath.Ext(path))
	dec, ok := decoders[ext]
	if !ok {
		if hint, proprietary := cloud.ProprietaryHint(ext); proprietary {
			return nil, cloud.NewError(cloud.ProprietaryFormat, hint)
		}
		return nil, cloud.NewError(cloud.UnsupportedExtension, fmt.Sprintf("no decoder registered for %q", ext))
	}

	report := func(p Progress) {
		if onProgress != nil {
			onProgress(p)
		}
	}
	report(Progress{Phase: "Reading file", Fraction: 0})

	if ext == ".e57" {
		glog.V(1).Infof("decode: running %s on calling goroutine", path)
		c, err := dec(r)
		if err != nil {
			return nil, err
		}
		report(Progress{Phase: "Complete", Fraction: 1})
		return c, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	var result *cloud.Cloud
	g.Go(func() error {
		report(Progress{Phase: "Parsing", Fraction: 0.3})
		c, err := dec(r)
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return cloud.WrapError(cloud.Cancelled, "decode cancelled", err)
		}
		report(Progress{Phase: "Transferring data", Fraction: 0.9})
		result = c
		return nil
	})
	if err := g.Wait(); err != nil {
		glog.Warningf("decode: %s failed: %v", path, err)
		return nil, err
	}
	report(Progress{Phase: "Complete", Fraction: 1})
	return result, nil
}
