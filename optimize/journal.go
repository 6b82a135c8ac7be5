package optimize

import (
	"errors"

	"github.com/wudi/pdfdedup/ir/raw"
)

type undoEntry struct {
	ref raw.ObjectRef
	obj raw.Object
}

// journal remembers the prior state of every object the commit phase
// removes or replaces. A nil journal records nothing.
type journal struct {
	entries []undoEntry
}

func (j *journal) record(ref raw.ObjectRef, prior raw.Object) {
	if j == nil {
		return
	}
	j.entries = append(j.entries, undoEntry{ref: ref, obj: prior})
}

// rollback restores recorded objects newest first. It keeps going after a
// failed restore and reports every failure.
func (j *journal) rollback(g Graph) error {
	if j == nil {
		return nil
	}
	var errs []error
	for i := len(j.entries) - 1; i >= 0; i-- {
		e := j.entries[i]
		if err := g.Put(e.ref, e.obj); err != nil {
			errs = append(errs, accessFault("restore", e.ref, err))
		}
	}
	j.entries = nil
	return errors.Join(errs...)
}
