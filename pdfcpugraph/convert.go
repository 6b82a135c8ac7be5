package pdfcpugraph

import (
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/wudi/pdfdedup/ir/raw"
)

// opaque carries a pdfcpu value with no raw counterpart (object streams,
// xref streams) through a round trip unchanged.
type opaque struct{ native types.Object }

func (opaque) Type() string     { return "opaque" }
func (opaque) IsIndirect() bool { return false }

func toRaw(o types.Object) raw.Object {
	switch t := o.(type) {
	case nil:
		return raw.NullObj{}
	case types.Boolean:
		return raw.Bool(bool(t))
	case types.Integer:
		return raw.NumberInt(int64(t))
	case types.Float:
		return raw.NumberFloat(float64(t))
	case types.Name:
		return raw.NameLiteral(string(t))
	case types.StringLiteral:
		return raw.StringObj{Bytes: []byte(string(t))}
	case types.HexLiteral:
		return raw.StringObj{Bytes: []byte(string(t)), Hex: true}
	case types.IndirectRef:
		return raw.Ref(int(t.ObjectNumber), int(t.GenerationNumber))
	case types.Array:
		arr := &raw.ArrayObj{Items: make([]raw.Object, len(t))}
		for i, v := range t {
			arr.Items[i] = toRaw(v)
		}
		return arr
	case types.Dict:
		return toRawDict(t)
	case types.StreamDict:
		if t.Raw == nil {
			// payload not loaded: expose the dictionary only
			return toRawDict(t.Dict)
		}
		return raw.NewStream(toRawDict(t.Dict), t.Raw)
	default:
		return opaque{native: o}
	}
}

func toRawDict(d types.Dict) *raw.DictObj {
	out := raw.Dict()
	for k, v := range d {
		out.Set(raw.NameLiteral(k), toRaw(v))
	}
	return out
}

func fromRaw(o raw.Object) types.Object {
	switch t := o.(type) {
	case nil, raw.NullObj:
		return nil
	case opaque:
		return t.native
	case raw.Reference:
		r := t.Ref()
		return types.IndirectRef{ObjectNumber: types.Integer(r.Num), GenerationNumber: types.Integer(r.Gen)}
	case raw.Boolean:
		return types.Boolean(t.Value())
	case raw.Number:
		if t.IsInteger() {
			return types.Integer(int(t.Int()))
		}
		return types.Float(t.Float())
	case raw.Name:
		return types.Name(t.Value())
	case raw.String:
		if t.IsHex() {
			return types.HexLiteral(string(t.Value()))
		}
		return types.StringLiteral(string(t.Value()))
	case raw.Array:
		arr := make(types.Array, t.Len())
		for i := range arr {
			v, _ := t.Get(i)
			arr[i] = fromRaw(v)
		}
		return arr
	case raw.Dictionary:
		return fromRawDict(t)
	}
	return nil
}

func fromRawDict(d raw.Dictionary) types.Dict {
	out := types.Dict{}
	if d == nil {
		return out
	}
	for _, k := range d.Keys() {
		v, _ := d.Get(k)
		out[k.Value()] = fromRaw(v)
	}
	return out
}
