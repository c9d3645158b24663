package program

import (
	"context"
	"kernelc/compiler"
	"kernelc/device"
	"kernelc/meta"
	"kernelc/trace"
	"kernelc/types"
	"math"

	"github.com/pkg/errors"
)

// Kernel is a compiled entry point
type Kernel struct {
	Name   string
	Params []compiler.Param

	prog    *Program
	closure *meta.Closure
}

// Closure returns the closure a wrapper kernel was built for, or nil
func (k *Kernel) Closure() *meta.Closure { return k.closure }

// Invoke converts args to the parameter types and dispatches the kernel on
// the program's last build. Buffers bind pointer parameters, numbers are
// converted to scalar parameters, and device.Arg values pass through.
func (k *Kernel) Invoke(ctx context.Context, dims device.WorkDims, args ...any) error {
	bound, err := k.Args(args...)
	if err != nil {
		return err
	}
	return k.Dispatch(ctx, dims, bound)
}

// Dispatch runs the kernel with already bound arguments
func (k *Kernel) Dispatch(ctx context.Context, dims device.WorkDims, args []device.Arg) error {
	if k.prog.dev == nil {
		return errors.Errorf("kernel %s: program was not built for a device", k.Name)
	}
	dk, err := k.prog.dev.Kernel(k.Name)
	if err != nil {
		return errors.Wrapf(err, "kernel %s", k.Name)
	}
	trace.Kernel(k.Name, dims, len(args))
	return errors.Wrapf(dk.Invoke(ctx, dims, args), "kernel %s", k.Name)
}

// Args binds host values to the kernel's parameters
func (k *Kernel) Args(values ...any) ([]device.Arg, error) {
	if len(values) != len(k.Params) {
		return nil, errors.Errorf("kernel %s takes %d arguments, got %d", k.Name, len(k.Params), len(values))
	}
	args := make([]device.Arg, len(values))
	for i, v := range values {
		a, err := encode(v, k.Params[i].Type)
		if err != nil {
			return nil, errors.Wrapf(err, "kernel %s: argument %s", k.Name, k.Params[i].Name)
		}
		args[i] = a
	}
	return args, nil
}

// ArgSize is the size a parameter of type t occupies in the argument list:
// 8 for pointers and arrays, the primitive width otherwise
func ArgSize(t types.Type) int {
	if t.IsPointer() {
		return device.PointerSize
	}
	return t.Size()
}

func encode(v any, t types.Type) (device.Arg, error) {
	if a, ok := v.(device.Arg); ok {
		return a, nil
	}
	if t.IsPointer() {
		b, ok := v.(device.Buffer)
		if !ok {
			return device.Arg{}, errors.Errorf("%s parameter needs a buffer, got %T", t, v)
		}
		return device.BufferArg(b), nil
	}
	if !t.IsPrimitive() || t.IsVoid() {
		return device.Arg{}, errors.Errorf("cannot pass %s arguments", t)
	}

	i, f, isFloat, ok := number(v)
	if !ok {
		return device.Arg{}, errors.Errorf("%s parameter needs a number, got %T", t, v)
	}
	var bits uint64
	switch t.Prim {
	case types.PrimFloat:
		if !isFloat {
			f = float64(i)
		}
		bits = uint64(math.Float32bits(float32(f)))
	case types.PrimDouble:
		if !isFloat {
			f = float64(i)
		}
		bits = math.Float64bits(f)
	case types.PrimHalf:
		return device.Arg{}, errors.New("half arguments are not supported")
	default:
		if isFloat {
			i = int64(f)
		}
		bits = uint64(i)
	}
	return device.ScalarArg(bits, ArgSize(t)), nil
}

func number(v any) (i int64, f float64, isFloat, ok bool) {
	switch x := v.(type) {
	case int:
		return int64(x), 0, false, true
	case int8:
		return int64(x), 0, false, true
	case int16:
		return int64(x), 0, false, true
	case int32:
		return int64(x), 0, false, true
	case int64:
		return x, 0, false, true
	case uint:
		return int64(x), 0, false, true
	case uint8:
		return int64(x), 0, false, true
	case uint16:
		return int64(x), 0, false, true
	case uint32:
		return int64(x), 0, false, true
	case uint64:
		return int64(x), 0, false, true
	case bool:
		if x {
			return 1, 0, false, true
		}
		return 0, 0, false, true
	case float32:
		return 0, float64(x), true, true
	case float64:
		return 0, x, true, true
	}
	return 0, 0, false, false
}

// PackClosure binds captured values in record field order. Scalars keep
// their exact bit pattern: floats through math.Float32bits/Float64bits,
// signed integers as their two's-complement bits, bool as 1 or 0. A value
// whose width differs from its field is an error, never converted.
func (p *Program) PackClosure(c *meta.Closure, values ...any) ([]device.Arg, error) {
	if err := validClosure(c); err != nil {
		return nil, err
	}
	if len(values) != len(c.Type.Fields) {
		return nil, errors.Errorf("closure %s captures %d fields, got %d values", c.Type.FullName(), len(c.Type.Fields), len(values))
	}

	args := make([]device.Arg, len(values))
	for i, v := range values {
		f := c.Type.Fields[i]
		ft, err := types.Classify(p.store, f.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "field %s", f.Name)
		}
		a, err := bitcast(v)
		if err != nil {
			return nil, errors.Wrapf(err, "field %s", f.Name)
		}
		if a.Size != ArgSize(ft) {
			return nil, errors.Errorf("field %s is %s (%d bytes), value %T is %d bytes", f.Name, ft, ArgSize(ft), v, a.Size)
		}
		if ft.IsPointer() != (a.Buffer != nil) {
			return nil, errors.Errorf("field %s is %s, got %T", f.Name, ft, v)
		}
		args[i] = a
	}
	return args, nil
}

func bitcast(v any) (device.Arg, error) {
	switch x := v.(type) {
	case device.Arg:
		return x, nil
	case device.Buffer:
		return device.BufferArg(x), nil
	case float32:
		return device.ScalarArg(uint64(math.Float32bits(x)), 4), nil
	case float64:
		return device.ScalarArg(math.Float64bits(x), 8), nil
	case int8:
		return device.ScalarArg(uint64(uint8(x)), 1), nil
	case int16:
		return device.ScalarArg(uint64(uint16(x)), 2), nil
	case int32:
		return device.ScalarArg(uint64(uint32(x)), 4), nil
	case int64:
		return device.ScalarArg(uint64(x), 8), nil
	case int:
		return device.ScalarArg(uint64(x), 8), nil
	case uint8:
		return device.ScalarArg(uint64(x), 1), nil
	case uint16:
		return device.ScalarArg(uint64(x), 2), nil
	case uint32:
		return device.ScalarArg(uint64(x), 4), nil
	case uint64:
		return device.ScalarArg(x, 8), nil
	case uint:
		return device.ScalarArg(uint64(x), 8), nil
	case bool:
		if x {
			return device.ScalarArg(1, 4), nil
		}
		return device.ScalarArg(0, 4), nil
	}
	return device.Arg{}, errors.Errorf("cannot pack %T", v)
}
