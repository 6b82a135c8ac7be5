package optimize

import (
	"errors"

	"github.com/wudi/pdfdedup/ir/raw"
)

// scope marks how an object takes part in resource lookup when it is only
// reachable through an indirect reference.
type scope uint8

const (
	// scopeResources: the object is a /Resources dictionary.
	scopeResources scope = 1 << iota
	// scopeXObjects: the object is a /XObject name map.
	scopeXObjects
)

type rewriter struct {
	table *RemapTable
}

// indirectScopes finds resource and XObject dictionaries that live in their
// own objects, so the rewrite pass can treat them like nested ones.
func (rw *rewriter) indirectScopes(g Graph, refs []raw.ObjectRef) (map[raw.ObjectRef]scope, error) {
	scopes := make(map[raw.ObjectRef]scope)
	for _, ref := range refs {
		obj, err := g.Get(ref)
		if err != nil {
			return nil, accessFault("read", ref, err)
		}
		dict, ok := raw.DictOf(obj)
		if !ok {
			continue
		}
		res := raw.Lookup(dict, "Resources")
		if target, ok := res.Ref(); ok {
			scopes[target] |= scopeResources
			continue
		}
		if d, ok := res.Dict(); ok {
			if target, ok := raw.Lookup(d, "XObject").Ref(); ok {
				scopes[target] |= scopeXObjects
			}
		}
	}
	for ref, s := range scopes {
		if s&scopeResources == 0 {
			continue
		}
		obj, err := g.Get(ref)
		if errors.Is(err, raw.ErrObjectNotFound) {
			// dangling /Resources reference: nothing to rewrite
			delete(scopes, ref)
			continue
		}
		if err != nil {
			return nil, accessFault("read", ref, err)
		}
		if d, ok := raw.DictOf(obj); ok {
			if target, ok := raw.Lookup(d, "XObject").Ref(); ok {
				scopes[target] |= scopeXObjects
			}
		}
	}
	return scopes, nil
}

// rewrite substitutes remapped references in every XObject name map and
// commits only the objects that changed. It returns the committed owners.
func (rw *rewriter) rewrite(g Graph, j *journal) ([]raw.ObjectRef, error) {
	refs, err := g.Refs()
	if err != nil {
		return nil, &GraphAccessError{Op: "enumerate objects", Err: err}
	}
	scopes, err := rw.indirectScopes(g, refs)
	if err != nil {
		return nil, err
	}

	var rewritten []raw.ObjectRef
	for _, ref := range refs {
		obj, err := g.Get(ref)
		if err != nil {
			return rewritten, accessFault("read", ref, err)
		}
		dict, ok := raw.DictOf(obj)
		if !ok {
			continue
		}
		updated, changed := rw.rewriteObject(dict, scopes[ref])
		if !changed {
			continue
		}
		if err := g.Put(ref, withDictionary(obj, updated)); err != nil {
			return rewritten, accessFault("commit", ref, err)
		}
		j.record(ref, obj)
		rewritten = append(rewritten, ref)
	}
	return rewritten, nil
}

// rewriteObject returns a copy of dict with remapped XObject entries, or
// dict itself when nothing changed. dict is never mutated.
func (rw *rewriter) rewriteObject(dict raw.Dictionary, s scope) (raw.Dictionary, bool) {
	top := dict
	changed := false

	if s&scopeXObjects != 0 {
		if next, ok := rw.rewriteXObjects(top); ok {
			top, changed = next, true
		}
	}
	if s&scopeResources != 0 {
		if next, ok := rw.rewriteResources(top); ok {
			top, changed = next, true
		}
	}
	if res, ok := raw.Lookup(top, "Resources").Dict(); ok {
		if next, ok := rw.rewriteResources(res); ok {
			top = withEntry(top, "Resources", next)
			changed = true
		}
	}
	return top, changed
}

// rewriteResources handles the /XObject entry of a resources dictionary.
func (rw *rewriter) rewriteResources(res raw.Dictionary) (raw.Dictionary, bool) {
	xobjects, ok := raw.Lookup(res, "XObject").Dict()
	if !ok {
		return nil, false
	}
	next, ok := rw.rewriteXObjects(xobjects)
	if !ok {
		return nil, false
	}
	return withEntry(res, "XObject", next), true
}

// rewriteXObjects copies a name map, swapping remapped references. The copy
// is returned only when at least one entry changed.
func (rw *rewriter) rewriteXObjects(xobjects raw.Dictionary) (raw.Dictionary, bool) {
	var out *raw.DictObj
	for _, key := range xobjects.Keys() {
		target, ok := raw.Lookup(xobjects, key.Value()).Ref()
		if !ok {
			continue
		}
		canonical, ok := rw.table.Lookup(target)
		if !ok {
			continue
		}
		if out == nil {
			out = cloneDict(xobjects)
		}
		out.Set(key, raw.RefTo(canonical))
	}
	if out == nil {
		return nil, false
	}
	return out, true
}

func cloneDict(d raw.Dictionary) *raw.DictObj {
	if do, ok := d.(*raw.DictObj); ok {
		return do.Clone()
	}
	out := raw.Dict()
	for _, k := range d.Keys() {
		v, _ := d.Get(k)
		out.Set(k, v)
	}
	return out
}

func withEntry(d raw.Dictionary, key string, value raw.Object) raw.Dictionary {
	out := cloneDict(d)
	out.Set(raw.NameLiteral(key), value)
	return out
}

// withDictionary rebuilds obj around a replacement dictionary. Stream
// payloads are shared, not copied.
func withDictionary(obj raw.Object, dict raw.Dictionary) raw.Object {
	s, ok := obj.(raw.Stream)
	if !ok {
		return dict
	}
	d, ok := dict.(*raw.DictObj)
	if !ok {
		d = cloneDict(dict)
	}
	return raw.NewStream(d, s.RawData())
}
