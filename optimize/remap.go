package optimize

import (
	"github.com/wudi/pdfdedup/ir/raw"
)

// RemapEntry redirects a removed duplicate to its canonical image.
type RemapEntry struct {
	Duplicate raw.ObjectRef `json:"duplicate"`
	Canonical raw.ObjectRef `json:"canonical"`
}

// RemapTable maps duplicate references to canonical ones. Keys are unique,
// no key maps to itself, and no canonical reference is ever a key.
type RemapTable struct {
	entries []RemapEntry
	index   map[raw.ObjectRef]raw.ObjectRef
}

func newRemapTable() *RemapTable {
	return &RemapTable{index: make(map[raw.ObjectRef]raw.ObjectRef)}
}

// Lookup returns the canonical reference for a remapped duplicate.
func (t *RemapTable) Lookup(ref raw.ObjectRef) (raw.ObjectRef, bool) {
	c, ok := t.index[ref]
	return c, ok
}

// Len returns the number of duplicates.
func (t *RemapTable) Len() int { return len(t.entries) }

// Entries returns the mappings in plan order.
func (t *RemapTable) Entries() []RemapEntry {
	out := make([]RemapEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

func (t *RemapTable) add(dup, canonical raw.ObjectRef) {
	if dup == canonical {
		return
	}
	if _, seen := t.index[dup]; seen {
		return
	}
	t.index[dup] = canonical
	t.entries = append(t.entries, RemapEntry{Duplicate: dup, Canonical: canonical})
}

// plan builds the remap table from the equality classes without touching the
// graph.
func plan(classes []*imageClass) *RemapTable {
	t := newRemapTable()
	for _, c := range classes {
		if c.size() < 2 {
			continue
		}
		for _, dup := range c.duplicates {
			t.add(dup, c.canonical.Origin)
		}
	}
	return t
}

// removeDuplicates deletes every remapped object, journaling each one before
// it goes.
func removeDuplicates(g Graph, t *RemapTable, j *journal) (int, error) {
	removed := 0
	for _, e := range t.entries {
		obj, err := g.Get(e.Duplicate)
		if err != nil {
			return removed, accessFault("read", e.Duplicate, err)
		}
		if err := g.Remove(e.Duplicate); err != nil {
			return removed, accessFault("remove", e.Duplicate, err)
		}
		j.record(e.Duplicate, obj)
		removed++
	}
	return removed, nil
}
