// Package pdfcpugraph exposes a pdfcpu document context as a mutable object
// graph for the optimize passes.
package pdfcpugraph

import (
	"errors"
	"fmt"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/wudi/pdfdedup/ir/raw"
)

// ErrNewStream is returned when Put would have to create a stream object
// that the context does not already hold.
var ErrNewStream = errors.New("cannot create stream object")

// Graph adapts a *model.Context. Get returns converted copies; Put writes
// them back. Removals are staged until Flush so that Put can restore a
// removed object exactly.
type Graph struct {
	ctx     *model.Context
	removed map[int]model.XRefTableEntry
}

// New wraps ctx. The caller keeps ownership of ctx.
func New(ctx *model.Context) *Graph {
	return &Graph{ctx: ctx, removed: make(map[int]model.XRefTableEntry)}
}

func generation(e *model.XRefTableEntry) int {
	if e.Generation == nil {
		return 0
	}
	return *e.Generation
}

func (g *Graph) entry(ref raw.ObjectRef) (*model.XRefTableEntry, error) {
	if _, staged := g.removed[ref.Num]; staged {
		return nil, fmt.Errorf("%s: %w", ref, raw.ErrObjectNotFound)
	}
	e, ok := g.ctx.Table[ref.Num]
	if !ok || e == nil || e.Free || e.Object == nil || generation(e) != ref.Gen {
		return nil, fmt.Errorf("%s: %w", ref, raw.ErrObjectNotFound)
	}
	return e, nil
}

// Refs lists every live object in ascending object number.
func (g *Graph) Refs() ([]raw.ObjectRef, error) {
	if g.ctx == nil || g.ctx.XRefTable == nil {
		return nil, errors.New("pdfcpu context has no xref table")
	}
	refs := make([]raw.ObjectRef, 0, len(g.ctx.Table))
	for num, e := range g.ctx.Table {
		if num == 0 || e == nil || e.Free || e.Object == nil {
			continue
		}
		if _, staged := g.removed[num]; staged {
			continue
		}
		refs = append(refs, raw.ObjectRef{Num: num, Gen: generation(e)})
	}
	raw.SortRefs(refs)
	return refs, nil
}

// Get returns a raw copy of the object under ref.
func (g *Graph) Get(ref raw.ObjectRef) (raw.Object, error) {
	e, err := g.entry(ref)
	if err != nil {
		return nil, err
	}
	return toRaw(e.Object), nil
}

// Put replaces the object under ref. A ref removed earlier in this session
// is restored from its staged entry and obj is ignored. A dictionary put
// over a stream replaces the stream dictionary and keeps the payload.
func (g *Graph) Put(ref raw.ObjectRef, obj raw.Object) error {
	if saved, staged := g.removed[ref.Num]; staged && generation(&saved) == ref.Gen {
		restored := saved
		g.ctx.Table[ref.Num] = &restored
		delete(g.removed, ref.Num)
		return nil
	}
	e, err := g.entry(ref)
	if err != nil {
		return err
	}

	sd, isStream := e.Object.(types.StreamDict)
	switch t := obj.(type) {
	case raw.Stream:
		if !isStream {
			return fmt.Errorf("put %s: %w", ref, ErrNewStream)
		}
		sd.Dict = fromRawDict(t.Dictionary())
		sd.Raw = t.RawData()
		e.Object = sd
	case raw.Dictionary:
		if isStream {
			sd.Dict = fromRawDict(t)
			e.Object = sd
			return nil
		}
		e.Object = fromRawDict(t)
	default:
		e.Object = fromRaw(obj)
	}
	return nil
}

// Remove hides ref from the graph. The xref entry is freed by Flush.
func (g *Graph) Remove(ref raw.ObjectRef) error {
	e, err := g.entry(ref)
	if err != nil {
		return err
	}
	g.removed[ref.Num] = *e
	return nil
}

// Pending returns the object numbers staged for removal, ascending.
func (g *Graph) Pending() []int {
	nums := make([]int, 0, len(g.removed))
	for n := range g.removed {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// Flush frees every staged removal in the xref table.
func (g *Graph) Flush() error {
	for _, n := range g.Pending() {
		if err := g.ctx.FreeObject(n); err != nil {
			return fmt.Errorf("free object %d: %w", n, err)
		}
		delete(g.removed, n)
	}
	return nil
}
