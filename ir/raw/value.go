package raw

// Kind tags the shape of a looked-up value.
type Kind uint8

const (
	KindAbsent Kind = iota
	KindNumber
	KindName
	KindDict
	KindStream
	KindRef
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindNumber:
		return "number"
	case KindName:
		return "name"
	case KindDict:
		return "dict"
	case KindStream:
		return "stream"
	case KindRef:
		return "ref"
	default:
		return "other"
	}
}

// Value is a tagged view over an Object.
type Value struct {
	Kind Kind
	Obj  Object
}

// ValueOf classifies obj. A nil object is absent.
func ValueOf(obj Object) Value {
	switch obj.(type) {
	case nil:
		return Value{Kind: KindAbsent}
	case Number:
		return Value{Kind: KindNumber, Obj: obj}
	case Name:
		return Value{Kind: KindName, Obj: obj}
	case Stream:
		return Value{Kind: KindStream, Obj: obj}
	case Dictionary:
		return Value{Kind: KindDict, Obj: obj}
	case Reference:
		return Value{Kind: KindRef, Obj: obj}
	default:
		return Value{Kind: KindOther, Obj: obj}
	}
}

// Lookup returns the tagged value stored under key in d. A nil dictionary
// yields an absent value.
func Lookup(d Dictionary, key string) Value {
	if d == nil {
		return Value{Kind: KindAbsent}
	}
	obj, ok := d.Get(NameLiteral(key))
	if !ok {
		return Value{Kind: KindAbsent}
	}
	return ValueOf(obj)
}

// Name returns the name string when v is a name.
func (v Value) Name() (string, bool) {
	if v.Kind != KindName {
		return "", false
	}
	return v.Obj.(Name).Value(), true
}

// Int returns v when it is an integer. Reals are not integers.
func (v Value) Int() (int64, bool) {
	if v.Kind != KindNumber {
		return 0, false
	}
	n := v.Obj.(Number)
	if !n.IsInteger() {
		return 0, false
	}
	return n.Int(), true
}

// Dict returns the dictionary when v is a direct dictionary. Streams are not
// treated as dictionaries here.
func (v Value) Dict() (Dictionary, bool) {
	if v.Kind != KindDict {
		return nil, false
	}
	return v.Obj.(Dictionary), true
}

// Ref returns the target when v is an indirect reference.
func (v Value) Ref() (ObjectRef, bool) {
	if v.Kind != KindRef {
		return ObjectRef{}, false
	}
	return v.Obj.(Reference).Ref(), true
}

// DictOf returns the dictionary carried by obj: the object itself for a
// dictionary, the stream dictionary for a stream.
func DictOf(obj Object) (Dictionary, bool) {
	switch t := obj.(type) {
	case Stream:
		d := t.Dictionary()
		return d, d != nil
	case Dictionary:
		return t, true
	}
	return nil, false
}

// HasName reports whether d maps key to the name want.
func HasName(d Dictionary, key, want string) bool {
	got, ok := Lookup(d, key).Name()
	return ok && got == want
}
