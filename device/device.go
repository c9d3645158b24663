// Package device is the boundary between the compiler and whatever builds and
// runs the generated translation unit.
package device

import (
	"context"
	"encoding/binary"
	"fmt"
	"kernelc/compiler"
	"kernelc/meta"
	"strconv"
	"strings"
)

// Builder turns a translation unit into a loaded program
type Builder interface {
	Build(ctx context.Context, src Source) (Program, error)
}

// Program is a built translation unit
type Program interface {
	Kernel(name string) (Kernel, error)
}

// Kernel is one entry point of a built program. Implementations serialize
// argument binding and dispatch per kernel.
type Kernel interface {
	Invoke(ctx context.Context, dims WorkDims, args []Arg) error
}

// Source is a translation unit. Text is the OpenCL C handed to real
// compilers; Functions and Wrappers carry the trees it was rendered from
// for devices that interpret them, and Store resolves their descriptors.
type Source struct {
	Entry     string
	Text      string
	Functions []*compiler.Result
	Wrappers  []Wrapper
	Store     *meta.Store
}

// Wrapper is a synthesized entry point that rebuilds a closure record from
// its flattened fields and calls Body with the record's address
type Wrapper struct {
	Name   string
	Record *meta.TypeDesc
	Body   *meta.MethodDesc
}

// WorkDims is the shape of a dispatch. Local defaults to Global, giving a
// single work group.
type WorkDims struct {
	Global []int
	Local  []int
}

// Dims builds a dispatch shape from global sizes
func Dims(global ...int) WorkDims {
	return WorkDims{Global: global}
}

// Validate checks 1 to 3 positive dimensions and that local sizes divide
// global sizes
func (d WorkDims) Validate() error {
	if len(d.Global) == 0 || len(d.Global) > 3 {
		return fmt.Errorf("work dimensions: need 1 to 3 global sizes, got %d", len(d.Global))
	}
	if d.Local != nil && len(d.Local) != len(d.Global) {
		return fmt.Errorf("work dimensions: %d local sizes for %d global sizes", len(d.Local), len(d.Global))
	}
	for i, g := range d.Global {
		if g <= 0 {
			return fmt.Errorf("work dimensions: global size %d is %d", i, g)
		}
		if d.Local != nil && (d.Local[i] <= 0 || g%d.Local[i] != 0) {
			return fmt.Errorf("work dimensions: local size %d does not divide %d", d.Local[i], g)
		}
	}
	return nil
}

// LocalSize returns the local size of dimension i
func (d WorkDims) LocalSize(i int) int {
	if d.Local == nil {
		return d.Global[i]
	}
	return d.Local[i]
}

// Items is the total number of work items
func (d WorkDims) Items() int {
	n := 1
	for _, g := range d.Global {
		n *= g
	}
	return n
}

func (d WorkDims) String() string {
	join := func(xs []int) string {
		parts := make([]string, len(xs))
		for i, x := range xs {
			parts[i] = strconv.Itoa(x)
		}
		return strings.Join(parts, "x")
	}
	if d.Local == nil {
		return join(d.Global)
	}
	return join(d.Global) + "/" + join(d.Local)
}

// Arg is one bound kernel argument. Scalars travel as little-endian bytes of
// the declared width; pointer arguments carry a buffer and count 8 bytes.
type Arg struct {
	Size   int
	Bytes  []byte
	Buffer Buffer
}

// PointerSize is the argument size of buffers and pointers
const PointerSize = 8

// BufferArg binds a buffer
func BufferArg(b Buffer) Arg {
	return Arg{Size: PointerSize, Buffer: b}
}

// ScalarArg binds the low size bytes of bits
func ScalarArg(bits uint64, size int) Arg {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], bits)
	return Arg{Size: size, Bytes: append([]byte(nil), buf[:size]...)}
}

// Bits returns the scalar payload zero-extended to 64 bits
func (a Arg) Bits() uint64 {
	var buf [8]byte
	copy(buf[:], a.Bytes)
	return binary.LittleEndian.Uint64(buf[:])
}

func (a Arg) String() string {
	if a.Buffer != nil {
		return fmt.Sprintf("buffer[%d]", a.Buffer.Len())
	}
	return fmt.Sprintf("%d:%#x", a.Size, a.Bits())
}
