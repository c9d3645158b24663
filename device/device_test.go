package device

import (
	"testing"
)

func TestWorkDims(t *testing.T) {
	tests := []struct {
		dims  WorkDims
		ok    bool
		items int
		str   string
	}{
		{Dims(8), true, 8, "8"},
		{Dims(8, 4), true, 32, "8x4"},
		{WorkDims{Global: []int{8, 4}, Local: []int{4, 2}}, true, 32, "8x4/4x2"},
		{Dims(), false, 1, ""},
		{Dims(1, 1, 1, 1), false, 1, "1x1x1x1"},
		{Dims(0), false, 0, "0"},
		{WorkDims{Global: []int{8}, Local: []int{3}}, false, 8, "8/3"},
		{WorkDims{Global: []int{8}, Local: []int{4, 1}}, false, 8, "8/4x1"},
	}
	for _, tt := range tests {
		err := tt.dims.Validate()
		if (err == nil) != tt.ok {
			t.Errorf("%s: Validate() = %v, want ok=%v", tt.dims, err, tt.ok)
		}
		if tt.dims.Items() != tt.items {
			t.Errorf("%s: Items() = %d, want %d", tt.dims, tt.dims.Items(), tt.items)
		}
		if tt.dims.String() != tt.str {
			t.Errorf("String() = %q, want %q", tt.dims.String(), tt.str)
		}
	}

	d := WorkDims{Global: []int{8, 6}, Local: []int{2, 3}}
	if d.LocalSize(1) != 3 || Dims(8).LocalSize(0) != 8 {
		t.Error("LocalSize")
	}
}

func TestScalarArg(t *testing.T) {
	a := ScalarArg(0x1122334455667788, 4)
	if a.Size != 4 || len(a.Bytes) != 4 || a.Bytes[0] != 0x88 || a.Bytes[3] != 0x55 {
		t.Errorf("ScalarArg = % x", a.Bytes)
	}
	if a.Bits() != 0x55667788 {
		t.Errorf("Bits() = %#x", a.Bits())
	}
	if a.String() != "4:0x55667788" {
		t.Errorf("String() = %q", a.String())
	}

	b := BufferArg(NewBuffer([]int32{1, 2}))
	if b.Size != PointerSize || b.String() != "buffer[2]" {
		t.Errorf("BufferArg = %v", b)
	}
}

func TestSlice(t *testing.T) {
	data := []float32{1, 2, 3}
	buf := NewBuffer(data)

	if err := buf.Store(1, int32(7)); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if data[1] != 7 {
		t.Errorf("data = %v", data)
	}
	v, err := buf.Load(2)
	if err != nil || v.(float32) != 3 {
		t.Errorf("Load(2) = %v, %v", v, err)
	}
	if _, err := buf.Load(3); err == nil {
		t.Error("Load past the end")
	}
	if err := buf.Store(-1, float32(0)); err == nil {
		t.Error("Store before the start")
	}
	if err := buf.Store(0, "x"); err == nil {
		t.Error("stored a string")
	}

	ints := NewBuffer([]uint8{0})
	if err := ints.Store(0, float64(3.9)); err != nil || ints.Data[0] != 3 {
		t.Errorf("float to uint8 = %v, %v", ints.Data[0], err)
	}
}
