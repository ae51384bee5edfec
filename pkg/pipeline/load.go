package pipeline

import (
	"context"
	stderrors "errors"
	"io/fs"
	"strings"
	"time"

	"github.com/matzehuels/drbmap/pkg/errors"
	"github.com/matzehuels/drbmap/pkg/graph"
	"github.com/matzehuels/drbmap/pkg/observability"
)

// LoadGraph returns the source graph named by opts.
func LoadGraph(ctx context.Context, opts Options) (*graph.Graph, error) {
	source := "inline"
	switch {
	case opts.Graph != nil:
		source = "graph"
	case opts.GraphPath != "":
		source = opts.GraphPath
	}

	hooks := observability.Pipeline()
	hooks.OnLoadStart(ctx, source)
	start := time.Now()

	g, err := loadGraph(opts)
	n := 0
	if g != nil {
		n = g.VertexCount()
	}
	hooks.OnLoadComplete(ctx, source, n, time.Since(start), err)
	return g, err
}

func loadGraph(opts Options) (*graph.Graph, error) {
	switch {
	case opts.Graph != nil:
		if err := opts.Graph.Validate(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidGraph, err, "invalid graph")
		}
		return opts.Graph, nil

	case opts.GraphPath != "":
		g, err := graph.ReadFile(opts.GraphPath)
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrap(errors.ErrCodeNotFound, err, "graph file %s", opts.GraphPath)
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidGraph, err, "read %s", opts.GraphPath)
		}
		return g, nil

	default:
		if err := errors.ValidateGraphPayload(opts.GraphText, opts.MaxGraphBytes); err != nil {
			return nil, err
		}
		g, err := graph.Decode(strings.NewReader(opts.GraphText))
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidGraph, err, "parse graph")
		}
		return g, nil
	}
}
