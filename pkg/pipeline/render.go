package pipeline

import (
	"context"
	"fmt"

	"github.com/matzehuels/causeway/pkg/cache"
	"github.com/matzehuels/causeway/pkg/graph"
)

// RenderOptions configures artifact rendering.
type RenderOptions struct {
	Formats []string `json:"formats,omitempty"`
	Title   string   `json:"title,omitempty"`
	RankDir string   `json:"rank_dir,omitempty"`
}

// SetDefaults selects SVG when no format is given.
func (o *RenderOptions) SetDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
}

// Validate checks every format.
func (o *RenderOptions) Validate() error {
	for _, f := range o.Formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

func (o *RenderOptions) keyOpts(format string) cache.RenderKeyOpts {
	return cache.RenderKeyOpts{Format: format, Title: o.Title, RankDir: o.RankDir}
}

// Render produces one artifact per requested format.
func Render(ctx context.Context, g *graph.Graph, opts RenderOptions) (map[string][]byte, error) {
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	dot := graph.ToDOT(g, graph.DOTOptions{Title: opts.Title, RankDir: opts.RankDir})
	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		var data []byte
		var err error
		switch format {
		case FormatDOT:
			data = []byte(dot)
		case FormatSVG:
			data, err = graph.RenderSVG(ctx, dot)
		case FormatJSON:
			data, err = graph.MarshalGraph(g)
		}
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}
