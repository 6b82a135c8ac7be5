package filters

import (
	"context"

	"github.com/wudi/pdfdedup/ir/raw"
)

// ExtractFilters reads Filter and DecodeParms entries from a stream dictionary.
func ExtractFilters(dict raw.Dictionary) ([]string, []raw.Dictionary) {
	var names []string
	var params []raw.Dictionary
	if dict == nil {
		return names, params
	}

	filterObj, ok := dict.Get(raw.NameObj{Val: "Filter"})
	if !ok {
		return names, params
	}

	switch f := filterObj.(type) {
	case raw.Name:
		names = append(names, f.Value())
	case *raw.ArrayObj:
		for _, item := range f.Items {
			if n, ok := item.(raw.Name); ok {
				names = append(names, n.Value())
			}
		}
	}

	if len(names) > 0 {
		if pObj, ok := dict.Get(raw.NameObj{Val: "DecodeParms"}); ok {
			switch p := pObj.(type) {
			case raw.Dictionary:
				params = append(params, p)
			case *raw.ArrayObj:
				// keep positions aligned with names; null entries become nil
				for _, item := range p.Items {
					d, _ := item.(raw.Dictionary)
					params = append(params, d)
				}
			}
		}
	}

	return names, params
}

// Checker verifies that a stream's filter chain can be read end to end.
type Checker struct {
	pipeline *Pipeline
}

// NewChecker wraps p; a nil pipeline selects NewDefaultPipeline with
// DefaultLimits.
func NewChecker(p *Pipeline) *Checker {
	if p == nil {
		p = NewDefaultPipeline(DefaultLimits())
	}
	return &Checker{pipeline: p}
}

// Check decodes s through its declared filters and discards the output.
func (c *Checker) Check(ctx context.Context, s raw.Stream) error {
	names, params := ExtractFilters(s.Dictionary())
	if len(names) == 0 {
		return nil
	}
	_, err := c.pipeline.Decode(ctx, s.RawData(), names, params)
	return err
}
