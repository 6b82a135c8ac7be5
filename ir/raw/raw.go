package raw

import (
	"errors"
	"fmt"
	"sort"
)

// ErrObjectNotFound is returned when a reference names no object in the document.
var ErrObjectNotFound = errors.New("object not found")

// ObjectRef uniquely identifies an indirect PDF object.
type ObjectRef struct {
	Num int
	Gen int
}

func (r ObjectRef) String() string { return fmt.Sprintf("%d %d R", r.Num, r.Gen) }

// MarshalText renders the reference in PDF syntax, e.g. "12 0 R".
func (r ObjectRef) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// UnmarshalText parses the form produced by MarshalText.
func (r *ObjectRef) UnmarshalText(text []byte) error {
	var num, gen int
	if _, err := fmt.Sscanf(string(text), "%d %d R", &num, &gen); err != nil {
		return fmt.Errorf("object reference %q: %w", text, err)
	}
	r.Num, r.Gen = num, gen
	return nil
}

// Less orders references by object number, then generation.
func (r ObjectRef) Less(o ObjectRef) bool {
	if r.Num != o.Num {
		return r.Num < o.Num
	}
	return r.Gen < o.Gen
}

// SortRefs sorts refs in enumeration order.
func SortRefs(refs []ObjectRef) {
	sort.Slice(refs, func(i, j int) bool { return refs[i].Less(refs[j]) })
}

// Object is the base interface for all raw PDF objects.
type Object interface {
	Type() string
	IsIndirect() bool
}

// Dictionary represents a PDF dictionary object.
type Dictionary interface {
	Object
	Get(key Name) (Object, bool)
	Set(key Name, value Object)
	Keys() []Name
	Len() int
}

// Array represents a PDF array object.
type Array interface {
	Object
	Get(index int) (Object, bool)
	Len() int
	Append(obj Object)
}

// Stream represents a raw (undecoded) PDF stream.
type Stream interface {
	Object
	Dictionary() Dictionary
	RawData() []byte
	Length() int64
}

// Name represents a PDF name object.
type Name interface {
	Object
	Value() string
}

// String represents a PDF string (literal or hex).
type String interface {
	Object
	Value() []byte
	IsHex() bool
}

// Number represents a PDF numeric value.
type Number interface {
	Object
	Int() int64
	Float() float64
	IsInteger() bool
}

// Boolean represents a PDF boolean.
type Boolean interface {
	Object
	Value() bool
}

// Null represents the PDF null object.
type Null interface{ Object }

// Reference represents an indirect object reference.
type Reference interface {
	Object
	Ref() ObjectRef
}

// Document is an in-memory indirect object graph. The zero value is not
// usable; construct with NewDocument or populate Objects directly.
type Document struct {
	Objects map[ObjectRef]Object
	Trailer Dictionary
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{Objects: make(map[ObjectRef]Object)}
}

// Refs returns every object reference in ascending (Num, Gen) order.
func (d *Document) Refs() ([]ObjectRef, error) {
	refs := make([]ObjectRef, 0, len(d.Objects))
	for ref := range d.Objects {
		refs = append(refs, ref)
	}
	SortRefs(refs)
	return refs, nil
}

// Get returns the live object stored under ref.
func (d *Document) Get(ref ObjectRef) (Object, error) {
	obj, ok := d.Objects[ref]
	if !ok {
		return nil, fmt.Errorf("%s: %w", ref, ErrObjectNotFound)
	}
	return obj, nil
}

// Put stores obj under ref, replacing any previous object.
func (d *Document) Put(ref ObjectRef, obj Object) error {
	if d.Objects == nil {
		d.Objects = make(map[ObjectRef]Object)
	}
	d.Objects[ref] = obj
	return nil
}

// Remove deletes the object stored under ref.
func (d *Document) Remove(ref ObjectRef) error {
	if _, ok := d.Objects[ref]; !ok {
		return fmt.Errorf("remove %s: %w", ref, ErrObjectNotFound)
	}
	delete(d.Objects, ref)
	return nil
}
