package types

import (
	"kernelc/meta"
	"testing"
)

func newStore(t *testing.T) *meta.Store {
	t.Helper()
	store, err := meta.NewBuiltinStore()
	if err != nil {
		t.Fatalf("NewBuiltinStore: %v", err)
	}
	if err := store.AddType(&meta.TypeDesc{Namespace: "Samples", Name: "Particle", Token: 33554436}); err != nil {
		t.Fatalf("AddType: %v", err)
	}
	if err := store.AddType(&meta.TypeDesc{Namespace: "Samples", Name: "Program/<>c__DisplayClass0_0", Token: 33554440}); err != nil {
		t.Fatalf("AddType: %v", err)
	}
	return store
}

func TestClassifyPrimitives(t *testing.T) {
	store := newStore(t)
	tests := []struct {
		host string
		want string
	}{
		{"sbyte", "char"},
		{"byte", "uchar"},
		{"short", "short"},
		{"ushort", "ushort"},
		{"int", "int"},
		{"uint", "uint"},
		{"long", "long"},
		{"ulong", "ulong"},
		{"half", "half"},
		{"float", "float"},
		{"double", "double"},
		{"bool", "int"},
		{"void", "void"},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			got, err := Classify(store, meta.MustTypeRef(tt.host))
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if got.Kind != Primitive || got.String() != tt.want {
				t.Errorf("got %s (kind %d), want %s", got, got.Kind, tt.want)
			}
		})
	}
}

func TestClassifyCompound(t *testing.T) {
	store := newStore(t)
	tests := []struct {
		host string
		kind Kind
		want string
	}{
		{"float[]", Array, "float*"},
		{"int[,]", Array, "int*"},
		{"float*", Pointer, "float*"},
		{"int&", Pointer, "int*"},
		{"Samples.Particle", Struct, "Particle_33554436"},
		{"Samples.Particle[]", Array, "Particle_33554436*"},
		{"Samples.Program/<>c__DisplayClass0_0", Struct, "__c__DisplayClass0_0_33554440"},
		{"CL.Float4", Struct, "float4"},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			got, err := Classify(store, meta.MustTypeRef(tt.host))
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if got.Kind != tt.kind || got.String() != tt.want {
				t.Errorf("got %s (kind %d), want %s (kind %d)", got, got.Kind, tt.want, tt.kind)
			}
		})
	}
}

func TestClassifyErrors(t *testing.T) {
	store := newStore(t)
	tests := []struct {
		host string
		code meta.ErrorCode
	}{
		{"string", meta.E_UNSUPPORTED_TYPE},
		{"object[]", meta.E_UNSUPPORTED_TYPE},
		{"class Samples.Node", meta.E_UNSUPPORTED_TYPE},
		{"System.Collections.Generic.List`1<int>", meta.E_UNSUPPORTED_TYPE},
		{"char", meta.E_UNSUPPORTED_TYPE},
		{"Samples.Missing", meta.E_UNRESOLVED_TYPE},
		{"Samples.Missing*", meta.E_UNRESOLVED_TYPE},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			_, err := Classify(store, meta.MustTypeRef(tt.host))
			if meta.CodeOf(err) != tt.code {
				t.Errorf("got %v, want %s", err, tt.code)
			}
		})
	}
}

func TestStructNamesAreUnique(t *testing.T) {
	a := &meta.TypeDesc{Namespace: "A", Name: "Vec", Token: 33554433}
	b := &meta.TypeDesc{Namespace: "B", Name: "Vec", Token: 33554434}
	if StructName(a) == StructName(b) {
		t.Errorf("same display name produced the same struct name %q", StructName(a))
	}
	if got := Sanitize("get_Item<T>.x"); got != "get_Item_T__x" {
		t.Errorf("Sanitize = %q", got)
	}
}

func TestPromote(t *testing.T) {
	tests := []struct {
		name string
		l, r Type
		want Type
	}{
		{"double wins", Int32, Float64, Float64},
		{"double over float", Float32, Float64, Float64},
		{"float over long", Int64, Float32, Float32},
		{"long over int", Int32, Int64, Int64},
		{"left fallback", UInt32, Int32, UInt32},
		{"left fallback short", Int16, UInt8, Int16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Promote(tt.l, tt.r); !got.Equal(tt.want) {
				t.Errorf("Promote(%s, %s) = %s, want %s", tt.l, tt.r, got, tt.want)
			}
		})
	}
}

func TestPredicates(t *testing.T) {
	if !ArrayOf(Float32).IsPointer() || !PointerTo(Int32).IsPointer() {
		t.Error("arrays and pointers must both be pointer-like")
	}
	if !Bool.Equal(Int32) {
		t.Error("bool must be carried as int")
	}
	if !UInt64.IsUnsigned() || Int64.IsUnsigned() {
		t.Error("IsUnsigned")
	}
	if !Half.IsFloat() || Int32.IsFloat() {
		t.Error("IsFloat")
	}
	if ArrayOf(Float64).Size() != 8 || Int16.Size() != 2 || Float32.Size() != 4 {
		t.Error("Size")
	}
	if !Void.IsVoid() || Int32.IsVoid() {
		t.Error("IsVoid")
	}
}
