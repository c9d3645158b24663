package cpu

import (
	"fmt"
	"math"
)

// builtinFunc implements an alias function. Results are converted to the
// call's type by the caller.
type builtinFunc func(m *machine, args []any) (any, error)

// registry maps alias names to their host implementations
type registry struct {
	funcs map[string]builtinFunc
}

func newRegistry() *registry {
	r := &registry{funcs: make(map[string]builtinFunc)}

	// work items
	r.register("get_global_id", dimFunc(func(m *machine, d int) int { return m.gid[d] }))
	r.register("get_local_id", dimFunc(func(m *machine, d int) int { return m.gid[d] % m.dims.LocalSize(d) }))
	r.register("get_group_id", dimFunc(func(m *machine, d int) int { return m.gid[d] / m.dims.LocalSize(d) }))
	r.register("get_global_size", dimFunc(func(m *machine, d int) int { return m.dims.Global[d] }))
	r.register("get_local_size", dimFunc(func(m *machine, d int) int { return m.dims.LocalSize(d) }))
	r.register("get_num_groups", dimFunc(func(m *machine, d int) int { return m.dims.Global[d] / m.dims.LocalSize(d) }))
	r.register("get_work_dim", func(m *machine, args []any) (any, error) { return uint32(len(m.dims.Global)), nil })
	r.register("barrier", func(m *machine, args []any) (any, error) { return nil, nil })

	// math
	r.register("sqrt", mathFunc(math.Sqrt))
	r.register("rsqrt", mathFunc(func(x float64) float64 { return 1 / math.Sqrt(x) }))
	r.register("sin", mathFunc(math.Sin))
	r.register("cos", mathFunc(math.Cos))
	r.register("exp", mathFunc(math.Exp))
	r.register("log", mathFunc(math.Log))
	r.register("fabs", mathFunc(math.Abs))
	r.register("pow", mathFunc2(math.Pow))
	r.register("fmin", mathFunc2(math.Min))
	r.register("fmax", mathFunc2(math.Max))
	r.register("length", builtinLength)
	r.register("normalize", builtinNormalize)
	r.register("printf", builtinPrintf)

	// atomics
	r.register("atomic_add", atomicFunc(func(old, v int64) int64 { return old + v }))
	r.register("atomic_sub", atomicFunc(func(old, v int64) int64 { return old - v }))
	r.register("atomic_xchg", atomicFunc(func(old, v int64) int64 { return v }))
	r.register("atomic_inc", atomicFunc(func(old, _ int64) int64 { return old + 1 }))
	r.register("atomic_dec", atomicFunc(func(old, _ int64) int64 { return old - 1 }))
	return r
}

func (r *registry) register(name string, fn builtinFunc) {
	r.funcs[name] = fn
}

func (r *registry) lookup(name string) (builtinFunc, bool) {
	fn, ok := r.funcs[name]
	return fn, ok
}

func dimFunc(fn func(m *machine, d int) int) builtinFunc {
	return func(m *machine, args []any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("expected 1 argument, got %d", len(args))
		}
		d, err := toInt(args[0])
		if err != nil {
			return nil, err
		}
		if d < 0 || int(d) >= len(m.dims.Global) {
			// dimensions beyond the dispatch read as 0
			return int32(0), nil
		}
		return int32(fn(m, int(d))), nil
	}
}

func mathFunc(fn func(float64) float64) builtinFunc {
	return func(m *machine, args []any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("expected 1 argument, got %d", len(args))
		}
		x, err := toFloat(args[0])
		if err != nil {
			return nil, err
		}
		return fn(x), nil
	}
}

func mathFunc2(fn func(float64, float64) float64) builtinFunc {
	return func(m *machine, args []any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("expected 2 arguments, got %d", len(args))
		}
		x, err := toFloat(args[0])
		if err != nil {
			return nil, err
		}
		y, err := toFloat(args[1])
		if err != nil {
			return nil, err
		}
		return fn(x, y), nil
	}
}

func builtinLength(m *machine, args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("expected 1 argument, got %d", len(args))
	}
	return norm(args[0])
}

func builtinNormalize(m *machine, args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("expected 1 argument, got %d", len(args))
	}
	n, err := norm(args[0])
	if err != nil {
		return nil, err
	}
	src, ok := args[0].(*record)
	if !ok {
		x, _ := toFloat(args[0])
		return x / n, nil
	}
	r := src.clone()
	for _, name := range r.names {
		c, _ := toFloat(r.fields[name])
		r.fields[name] = float32(c / n)
	}
	return r, nil
}

func norm(v any) (float64, error) {
	r, ok := v.(*record)
	if !ok {
		return toFloat(v)
	}
	sum := 0.0
	for _, name := range r.names {
		c, err := toFloat(r.fields[name])
		if err != nil {
			return 0, err
		}
		sum += c * c
	}
	return math.Sqrt(sum), nil
}

func builtinPrintf(m *machine, args []any) (any, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("printf without a format")
	}
	format, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("printf format is %T", args[0])
	}
	n, err := fmt.Fprintf(m.out, format, args[1:]...)
	return int32(n), err
}

// atomicFunc applies fn to *args[0] and returns the old value. Work items run
// one at a time under the kernel lock, so a plain read-modify-write is atomic.
func atomicFunc(fn func(old, v int64) int64) builtinFunc {
	return func(m *machine, args []any) (any, error) {
		if len(args) == 0 {
			return nil, fmt.Errorf("atomic without a location")
		}
		p, ok := args[0].(pointer)
		if !ok {
			return nil, fmt.Errorf("atomic location is %T", args[0])
		}
		cur, err := p.load()
		if err != nil {
			return nil, err
		}
		old, err := toInt(cur)
		if err != nil {
			return nil, err
		}
		var v int64
		if len(args) > 1 {
			if v, err = toInt(args[1]); err != nil {
				return nil, err
			}
		}
		if err := p.store(int32(fn(old, v))); err != nil {
			return nil, err
		}
		return int32(old), nil
	}
}
