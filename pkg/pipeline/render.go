package pipeline

import (
	"context"

	"github.com/matzehuels/drbmap/pkg/arch"
	"github.com/matzehuels/drbmap/pkg/errors"
	"github.com/matzehuels/drbmap/pkg/render/jobtree"
)

// RenderTree renders a recorded job tree in each of the given formats.
func RenderTree(ctx context.Context, t *jobtree.Tree, a arch.Arch, formats []string) (map[string][]byte, error) {
	if err := ValidateFormats(formats); err != nil {
		return nil, err
	}
	dot := jobtree.ToDOT(t, jobtree.Options{Arch: a})

	artifacts := make(map[string][]byte, len(formats))
	for _, format := range formats {
		switch format {
		case FormatDOT:
			artifacts[format] = []byte(dot)
		case FormatSVG:
			svg, err := jobtree.RenderSVG(ctx, dot)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInternal, err, "render job tree")
			}
			artifacts[format] = svg
		}
	}
	return artifacts, nil
}
