package meta

import (
	"fmt"
	"strings"
)

// TypeKind classifies a host type reference
type TypeKind int

const (
	KindPrimitive TypeKind = iota
	KindPointer
	KindArray
	KindValue
	KindClass
	KindGeneric
)

// Prim is a host primitive type
type Prim int

const (
	PrimVoid Prim = iota
	PrimBool
	PrimSByte
	PrimByte
	PrimShort
	PrimUShort
	PrimInt
	PrimUInt
	PrimLong
	PrimULong
	PrimHalf
	PrimFloat
	PrimDouble
	PrimChar
	PrimNativeInt
	PrimNativeUInt
)

var primNames = [...]string{
	PrimVoid:       "void",
	PrimBool:       "bool",
	PrimSByte:      "sbyte",
	PrimByte:       "byte",
	PrimShort:      "short",
	PrimUShort:     "ushort",
	PrimInt:        "int",
	PrimUInt:       "uint",
	PrimLong:       "long",
	PrimULong:      "ulong",
	PrimHalf:       "half",
	PrimFloat:      "float",
	PrimDouble:     "double",
	PrimChar:       "char",
	PrimNativeInt:  "nint",
	PrimNativeUInt: "nuint",
}

func (p Prim) String() string {
	if int(p) < len(primNames) {
		return primNames[p]
	}
	return fmt.Sprintf("prim(%d)", int(p))
}

// primAliases maps every accepted spelling (keyword, IL and System names)
var primAliases = map[string]Prim{
	"void": PrimVoid, "System.Void": PrimVoid,
	"bool": PrimBool, "System.Boolean": PrimBool,
	"sbyte": PrimSByte, "int8": PrimSByte, "System.SByte": PrimSByte,
	"byte": PrimByte, "uint8": PrimByte, "System.Byte": PrimByte,
	"short": PrimShort, "int16": PrimShort, "System.Int16": PrimShort,
	"ushort": PrimUShort, "uint16": PrimUShort, "System.UInt16": PrimUShort,
	"int": PrimInt, "int32": PrimInt, "System.Int32": PrimInt,
	"uint": PrimUInt, "uint32": PrimUInt, "System.UInt32": PrimUInt,
	"long": PrimLong, "int64": PrimLong, "System.Int64": PrimLong,
	"ulong": PrimULong, "uint64": PrimULong, "System.UInt64": PrimULong,
	"half": PrimHalf, "System.Half": PrimHalf,
	"float": PrimFloat, "float32": PrimFloat, "System.Single": PrimFloat,
	"double": PrimDouble, "float64": PrimDouble, "System.Double": PrimDouble,
	"char": PrimChar, "System.Char": PrimChar,
	"nint": PrimNativeInt, "native int": PrimNativeInt, "System.IntPtr": PrimNativeInt,
	"nuint": PrimNativeUInt, "native uint": PrimNativeUInt, "System.UIntPtr": PrimNativeUInt,
}

// classNames are reference types that may appear by keyword
var classNames = map[string]string{
	"string": "System.String", "System.String": "System.String",
	"object": "System.Object", "System.Object": "System.Object",
}

// TypeRef is a host type reference as written in a signature
type TypeRef struct {
	Kind TypeKind
	Prim Prim
	Elem *TypeRef
	Rank int
	Name string
}

// PrimRef returns a reference to a primitive
func PrimRef(p Prim) TypeRef { return TypeRef{Kind: KindPrimitive, Prim: p} }

// PointerTo returns a pointer (or managed reference) to elem
func PointerTo(elem TypeRef) TypeRef { return TypeRef{Kind: KindPointer, Elem: &elem} }

// ArrayOf returns an array of elem with the given rank
func ArrayOf(elem TypeRef, rank int) TypeRef {
	if rank < 1 {
		rank = 1
	}
	return TypeRef{Kind: KindArray, Elem: &elem, Rank: rank}
}

// ValueRef returns a reference to a named value type
func ValueRef(name string) TypeRef { return TypeRef{Kind: KindValue, Name: name} }

// Void is the void return type
var Void = PrimRef(PrimVoid)

// String renders the reference in manifest syntax
func (r TypeRef) String() string {
	switch r.Kind {
	case KindPrimitive:
		return r.Prim.String()
	case KindPointer:
		return r.Elem.String() + "*"
	case KindArray:
		return r.Elem.String() + "[" + strings.Repeat(",", r.Rank-1) + "]"
	case KindClass:
		if r.Name == "System.String" {
			return "string"
		}
		if r.Name == "System.Object" {
			return "object"
		}
		return "class " + r.Name
	default:
		return r.Name
	}
}

// Equal compares two references structurally
func (r TypeRef) Equal(o TypeRef) bool {
	if r.Kind != o.Kind {
		return false
	}
	switch r.Kind {
	case KindPrimitive:
		return r.Prim == o.Prim
	case KindPointer:
		return r.Elem.Equal(*o.Elem)
	case KindArray:
		return r.Rank == o.Rank && r.Elem.Equal(*o.Elem)
	default:
		return r.Name == o.Name
	}
}

// ParseTypeRef parses manifest type syntax:
//
//	int, float32, System.Single     primitives
//	float[]  int[,]                 arrays
//	float*   float&                 pointers and managed references
//	Samples.Particle                value types
//	class Foo, string, object       reference types
//	List<int>                       generics
func ParseTypeRef(s string) (TypeRef, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return TypeRef{}, Errorf(E_MANIFEST, "empty type")
	}

	switch {
	case strings.HasSuffix(s, "*") || strings.HasSuffix(s, "&"):
		elem, err := ParseTypeRef(s[:len(s)-1])
		if err != nil {
			return TypeRef{}, err
		}
		return PointerTo(elem), nil
	case strings.HasSuffix(s, "]"):
		open := strings.LastIndexByte(s, '[')
		if open < 0 {
			return TypeRef{}, Errorf(E_MANIFEST, "malformed array type %q", s)
		}
		dims := s[open+1 : len(s)-1]
		if strings.Trim(dims, ",") != "" {
			return TypeRef{}, Errorf(E_MANIFEST, "malformed array type %q", s)
		}
		elem, err := ParseTypeRef(s[:open])
		if err != nil {
			return TypeRef{}, err
		}
		return ArrayOf(elem, len(dims)+1), nil
	}

	if p, ok := primAliases[s]; ok {
		return PrimRef(p), nil
	}
	if name, ok := classNames[s]; ok {
		return TypeRef{Kind: KindClass, Name: name}, nil
	}
	if rest, ok := strings.CutPrefix(s, "class "); ok {
		return TypeRef{Kind: KindClass, Name: strings.TrimSpace(rest)}, nil
	}
	s = strings.TrimSpace(strings.TrimPrefix(s, "valuetype "))
	// compiler-generated names such as "<>c__DisplayClass0_0" are not generic
	if strings.Contains(s, "`") || strings.HasSuffix(s, ">") {
		return TypeRef{Kind: KindGeneric, Name: s}, nil
	}
	if strings.ContainsAny(s, " \t,()") {
		return TypeRef{}, Errorf(E_MANIFEST, "malformed type %q", s)
	}
	return ValueRef(s), nil
}

// MustTypeRef is ParseTypeRef for literals known to be valid
func MustTypeRef(s string) TypeRef {
	r, err := ParseTypeRef(s)
	if err != nil {
		panic(err)
	}
	return r
}
