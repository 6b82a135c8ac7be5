package optimize

import (
	"context"
	"errors"
	"fmt"

	"github.com/wudi/pdfdedup/filters"
	"github.com/wudi/pdfdedup/ir/raw"
	"github.com/wudi/pdfdedup/observability"
)

type Config struct {
	// SkipFilterCheck turns off decoding each image stream through its
	// filter chain. By default a stream that fails to decode is an
	// unreadable image. Content is always compared as stored.
	SkipFilterCheck bool
	// Filters overrides the pipeline used for the filter check. Nil selects
	// filters.NewDefaultPipeline with filters.DefaultLimits.
	Filters *filters.Pipeline
	// Rollback undoes already applied removals and rewrites when the commit
	// phase fails.
	Rollback bool
	Logger   observability.Logger
	Tracer   observability.Tracer
}

type Optimizer struct {
	config Config
	logger observability.Logger
	tracer observability.Tracer
}

func New(config Config) *Optimizer {
	o := &Optimizer{config: config, logger: config.Logger, tracer: config.Tracer}
	if o.logger == nil {
		o.logger = observability.NopLogger{}
	}
	if o.tracer == nil {
		o.tracer = observability.NopTracer()
	}
	return o
}

// Result summarises one deduplication run.
type Result struct {
	Scanned   int             `json:"scanned"`
	Invalid   int             `json:"invalid"`
	Classes   int             `json:"classes"`
	Removed   int             `json:"removed"`
	Remapped  []RemapEntry    `json:"remapped,omitempty"`
	Rewritten []raw.ObjectRef `json:"rewritten,omitempty"`
}

// DeduplicateImages collapses byte-identical image XObjects in g and returns
// how many objects were removed.
func DeduplicateImages(ctx context.Context, g Graph) (int, error) {
	res, err := New(Config{}).Run(ctx, g)
	if err != nil {
		return 0, err
	}
	return res.Removed, nil
}

// Run plans the whole deduplication before mutating g, then removes the
// duplicates and rewrites XObject maps. Extraction and planning never touch
// the graph; a failure there leaves it as it was.
func (o *Optimizer) Run(ctx context.Context, g Graph) (res *Result, err error) {
	ctx, span := o.tracer.StartSpan(ctx, "optimize.dedup_images")
	defer func() {
		if err != nil {
			span.SetError(err)
		}
		span.Finish()
	}()

	ex := &extractor{logger: o.logger}
	if !o.config.SkipFilterCheck {
		ex.checker = filters.NewChecker(o.config.Filters)
	}
	records, err := ex.extract(ctx, g)
	if err != nil {
		return nil, fmt.Errorf("extract images: %w", err)
	}
	classes := classify(records)
	table := plan(classes)

	res = &Result{Scanned: len(records), Classes: len(classes), Remapped: table.Entries()}
	for _, rec := range records {
		if !rec.Valid {
			res.Invalid++
		}
	}
	span.SetTag(observability.TagImagesScanned, res.Scanned)
	span.SetTag(observability.TagImagesInvalid, res.Invalid)

	if table.Len() == 0 {
		o.logger.Debug("no duplicate images", observability.Int("scanned", res.Scanned))
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var j *journal
	if o.config.Rollback {
		j = &journal{}
	}
	if err := o.commit(g, table, j, res); err != nil {
		if rbErr := j.rollback(g); rbErr != nil {
			o.logger.Error("rollback failed", observability.Error("error", rbErr))
			return nil, errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		if j != nil {
			o.logger.Warn("image deduplication rolled back", observability.Error("error", err))
		}
		return nil, err
	}

	span.SetTag(observability.TagImagesRemoved, res.Removed)
	span.SetTag(observability.TagOwnersRewritten, len(res.Rewritten))
	o.logger.Info("deduplicated images",
		observability.Int("scanned", res.Scanned),
		observability.Int("removed", res.Removed),
		observability.Int("rewritten", len(res.Rewritten)),
	)
	return res, nil
}

// commit applies the plan: all removals first, then the rewrite pass.
func (o *Optimizer) commit(g Graph, table *RemapTable, j *journal, res *Result) error {
	removed, err := removeDuplicates(g, table, j)
	if err != nil {
		return fmt.Errorf("remove duplicates: %w", err)
	}
	rw := &rewriter{table: table}
	rewritten, err := rw.rewrite(g, j)
	if err != nil {
		return fmt.Errorf("rewrite resources: %w", err)
	}
	res.Removed = removed
	res.Rewritten = rewritten
	return nil
}
