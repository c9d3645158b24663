package types

import (
	"kernelc/meta"
	"strconv"
	"strings"
)

// Kind is the target type category
type Kind int

const (
	Primitive Kind = iota
	Pointer
	Array
	Struct
)

// PrimKind is a target primitive
type PrimKind int

const (
	PrimVoid PrimKind = iota
	PrimChar
	PrimUChar
	PrimShort
	PrimUShort
	PrimInt
	PrimUInt
	PrimLong
	PrimULong
	PrimHalf
	PrimFloat
	PrimDouble
)

var primText = [...]string{
	PrimVoid:   "void",
	PrimChar:   "char",
	PrimUChar:  "uchar",
	PrimShort:  "short",
	PrimUShort: "ushort",
	PrimInt:    "int",
	PrimUInt:   "uint",
	PrimLong:   "long",
	PrimULong:  "ulong",
	PrimHalf:   "half",
	PrimFloat:  "float",
	PrimDouble: "double",
}

var primSize = [...]int{
	PrimVoid:   0,
	PrimChar:   1,
	PrimUChar:  1,
	PrimShort:  2,
	PrimUShort: 2,
	PrimInt:    4,
	PrimUInt:   4,
	PrimLong:   8,
	PrimULong:  8,
	PrimHalf:   2,
	PrimFloat:  4,
	PrimDouble: 8,
}

func (p PrimKind) String() string { return primText[p] }

// Type is a classified target type. Elem is set for Pointer and Array,
// Desc for Struct.
type Type struct {
	Kind Kind
	Prim PrimKind
	Elem *Type
	Desc *meta.TypeDesc
}

// Predefined primitives
var (
	Void    = Type{Kind: Primitive, Prim: PrimVoid}
	Int8    = Type{Kind: Primitive, Prim: PrimChar}
	UInt8   = Type{Kind: Primitive, Prim: PrimUChar}
	Int16   = Type{Kind: Primitive, Prim: PrimShort}
	UInt16  = Type{Kind: Primitive, Prim: PrimUShort}
	Int32   = Type{Kind: Primitive, Prim: PrimInt}
	UInt32  = Type{Kind: Primitive, Prim: PrimUInt}
	Int64   = Type{Kind: Primitive, Prim: PrimLong}
	UInt64  = Type{Kind: Primitive, Prim: PrimULong}
	Half    = Type{Kind: Primitive, Prim: PrimHalf}
	Float32 = Type{Kind: Primitive, Prim: PrimFloat}
	Float64 = Type{Kind: Primitive, Prim: PrimDouble}

	// Bool has no target counterpart and is carried as int
	Bool = Int32
)

// PointerTo returns a pointer to t
func PointerTo(t Type) Type { return Type{Kind: Pointer, Elem: &t} }

// ArrayOf returns an array of t
func ArrayOf(t Type) Type { return Type{Kind: Array, Elem: &t} }

// StructOf wraps a value type descriptor
func StructOf(desc *meta.TypeDesc) Type { return Type{Kind: Struct, Desc: desc} }

var hostPrims = map[meta.Prim]Type{
	meta.PrimVoid:   Void,
	meta.PrimBool:   Bool,
	meta.PrimSByte:  Int8,
	meta.PrimByte:   UInt8,
	meta.PrimShort:  Int16,
	meta.PrimUShort: UInt16,
	meta.PrimInt:    Int32,
	meta.PrimUInt:   UInt32,
	meta.PrimLong:   Int64,
	meta.PrimULong:  UInt64,
	meta.PrimHalf:   Half,
	meta.PrimFloat:  Float32,
	meta.PrimDouble: Float64,
}

// Classify maps a host type onto the target type model. Primitives,
// pointers, arrays and value types are accepted; everything else is
// E_UNSUPPORTED_TYPE.
func Classify(store *meta.Store, ref meta.TypeRef) (Type, error) {
	switch ref.Kind {
	case meta.KindPrimitive:
		if t, ok := hostPrims[ref.Prim]; ok {
			return t, nil
		}
		return Type{}, meta.TypeError(meta.E_UNSUPPORTED_TYPE, ref.String(), "no target primitive")
	case meta.KindPointer:
		elem, err := Classify(store, *ref.Elem)
		if err != nil {
			return Type{}, err
		}
		return PointerTo(elem), nil
	case meta.KindArray:
		elem, err := Classify(store, *ref.Elem)
		if err != nil {
			return Type{}, err
		}
		return ArrayOf(elem), nil
	case meta.KindValue:
		desc, err := store.Type(ref.Name)
		if err != nil {
			return Type{}, err
		}
		return StructOf(desc), nil
	default:
		return Type{}, meta.TypeError(meta.E_UNSUPPORTED_TYPE, ref.String(), "reference and generic types cannot run on the device")
	}
}

// String renders the type as target source text
func (t Type) String() string {
	switch t.Kind {
	case Pointer, Array:
		return t.Elem.String() + "*"
	case Struct:
		return StructName(t.Desc)
	default:
		return t.Prim.String()
	}
}

// StructName is the target name of a value type: the alias when declared,
// otherwise the sanitized name suffixed with the token.
func StructName(desc *meta.TypeDesc) string {
	if desc.Alias != "" {
		return desc.Alias
	}
	name := desc.Name
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	return Sanitize(name) + "_" + strconv.FormatUint(uint64(desc.Token), 10)
}

// Sanitize replaces every rune outside [A-Za-z0-9_] with '_'
func Sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

// Equal compares types structurally; structs compare by descriptor
func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case Pointer, Array:
		return t.Elem.Equal(*o.Elem)
	case Struct:
		return t.Desc == o.Desc
	default:
		return t.Prim == o.Prim
	}
}

// IsPointer is true for pointers and arrays, which both render as elem*
func (t Type) IsPointer() bool { return t.Kind == Pointer || t.Kind == Array }

func (t Type) IsStruct() bool    { return t.Kind == Struct }
func (t Type) IsPrimitive() bool { return t.Kind == Primitive }
func (t Type) IsVoid() bool      { return t.Kind == Primitive && t.Prim == PrimVoid }

// IsFloat reports half, float and double
func (t Type) IsFloat() bool {
	return t.Kind == Primitive && (t.Prim == PrimHalf || t.Prim == PrimFloat || t.Prim == PrimDouble)
}

// IsUnsigned reports the unsigned integer primitives
func (t Type) IsUnsigned() bool {
	if t.Kind != Primitive {
		return false
	}
	switch t.Prim {
	case PrimUChar, PrimUShort, PrimUInt, PrimULong:
		return true
	}
	return false
}

// Size is the kernel argument size: 8 for pointers, the primitive width
// otherwise. Struct sizes depend on layout and are computed from descriptors.
func (t Type) Size() int {
	switch t.Kind {
	case Pointer, Array:
		return 8
	case Primitive:
		return primSize[t.Prim]
	default:
		return 0
	}
}

// Promote picks the result type of an arithmetic operation:
// double, then float, then long, otherwise the left operand's type.
func Promote(l, r Type) Type {
	switch {
	case l.Equal(Float64) || r.Equal(Float64):
		return Float64
	case l.Equal(Float32) || r.Equal(Float32):
		return Float32
	case l.Equal(Int64) || r.Equal(Int64):
		return Int64
	default:
		return l
	}
}
