package optimize

import (
	"bytes"
	"context"

	"github.com/wudi/pdfdedup/filters"
	"github.com/wudi/pdfdedup/ir/raw"
	"github.com/wudi/pdfdedup/observability"
)

// ImageRecord is the comparable view of one image XObject.
type ImageRecord struct {
	Content []byte
	Width   int64
	Height  int64
	Valid   bool
	Origin  raw.ObjectRef
}

// Equal reports whether r and o describe the same image. Both records must
// be valid: an unreadable image equals nothing, not even another unreadable
// image with the same (empty) content and dimensions, so unreadable images
// always stay singletons.
func (r *ImageRecord) Equal(o *ImageRecord) bool {
	return r.Valid && o.Valid &&
		r.Width == o.Width && r.Height == o.Height &&
		bytes.Equal(r.Content, o.Content)
}

// isImageXObject matches /Type /XObject together with /Subtype /Image.
func isImageXObject(d raw.Dictionary) bool {
	return raw.HasName(d, "Type", "XObject") && raw.HasName(d, "Subtype", "Image")
}

type extractor struct {
	checker *filters.Checker // nil when the filter check is skipped
	logger  observability.Logger
}

// extract builds one record per image XObject in graph enumeration order.
// Unreadable streams produce invalid records; only graph faults are errors.
func (e *extractor) extract(ctx context.Context, g Graph) ([]*ImageRecord, error) {
	refs, err := g.Refs()
	if err != nil {
		return nil, &GraphAccessError{Op: "enumerate objects", Err: err}
	}
	var records []*ImageRecord
	for _, ref := range refs {
		obj, err := g.Get(ref)
		if err != nil {
			return nil, accessFault("read", ref, err)
		}
		dict, ok := raw.DictOf(obj)
		if !ok || !isImageXObject(dict) {
			continue
		}
		records = append(records, e.record(ctx, ref, obj, dict))
	}
	return records, nil
}

func (e *extractor) record(ctx context.Context, ref raw.ObjectRef, obj raw.Object, dict raw.Dictionary) *ImageRecord {
	rec := &ImageRecord{Origin: ref}
	if w, ok := raw.Lookup(dict, "Width").Int(); ok {
		rec.Width = w
	}
	if h, ok := raw.Lookup(dict, "Height").Int(); ok {
		rec.Height = h
	}

	stream, ok := obj.(raw.Stream)
	if !ok {
		e.unreadable(rec, ErrNoStream)
		return rec
	}
	if e.checker != nil {
		if err := e.checker.Check(ctx, stream); err != nil {
			e.unreadable(rec, err)
			return rec
		}
	}
	rec.Content = stream.RawData()
	rec.Valid = true
	return rec
}

func (e *extractor) unreadable(rec *ImageRecord, err error) {
	e.logger.Debug("unreadable image",
		observability.Stringer("ref", rec.Origin),
		observability.Int64("width", rec.Width),
		observability.Int64("height", rec.Height),
		observability.Error("error", err),
	)
}
