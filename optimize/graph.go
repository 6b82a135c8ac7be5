package optimize

import (
	"errors"
	"fmt"

	"github.com/wudi/pdfdedup/ir/raw"
)

// Graph is the mutable object graph a pass operates on. The caller owns it
// exclusively for the duration of a call.
//
// Refs must enumerate in a stable order; that order decides which member of
// a duplicate group survives. Get may return either the live object or a
// copy; passes always commit changes through Put.
type Graph interface {
	Refs() ([]raw.ObjectRef, error)
	Get(ref raw.ObjectRef) (raw.Object, error)
	Put(ref raw.ObjectRef, obj raw.Object) error
	Remove(ref raw.ObjectRef) error
}

var _ Graph = (*raw.Document)(nil)

var (
	// ErrGraphAccess matches every fault raised by the underlying graph.
	ErrGraphAccess = errors.New("graph access fault")
	// ErrNoStream marks an image object that carries no stream payload.
	ErrNoStream = errors.New("image object has no stream")
)

// GraphAccessError reports a failed graph operation. It matches
// ErrGraphAccess under errors.Is and unwraps to the backend error.
type GraphAccessError struct {
	Op  string
	Ref *raw.ObjectRef
	Err error
}

func (e *GraphAccessError) Error() string {
	if e.Ref != nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Ref, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *GraphAccessError) Unwrap() error { return e.Err }

func (e *GraphAccessError) Is(target error) bool { return target == ErrGraphAccess }

func accessFault(op string, ref raw.ObjectRef, err error) error {
	return &GraphAccessError{Op: op, Ref: &ref, Err: err}
}
