// Package cpu is a reference device. It interprets the compiled trees of a
// translation unit one work item at a time over host buffers, which makes
// kernels runnable in tests without an OpenCL platform.
package cpu

import (
	"context"
	"fmt"
	"io"
	"kernelc/ast"
	"kernelc/codegen"
	"kernelc/device"
	"kernelc/meta"
	"os"
	"sync"
)

// DefaultTickLimit bounds the statements one work item may execute
const DefaultTickLimit = 1 << 20

// Device builds programs for the interpreter
type Device struct {
	// Output receives printf output; stdout when nil
	Output io.Writer
	// TickLimit per work item; DefaultTickLimit when zero, unbounded when negative
	TickLimit int64

	builtins *registry
}

// New creates a CPU device
func New() *Device {
	return &Device{builtins: newRegistry()}
}

type program struct {
	dev      *Device
	store    *meta.Store
	byName   map[string]*function
	byMethod map[*meta.MethodDesc]*function
	wrappers map[string]device.Wrapper

	mu      sync.Mutex
	kernels map[string]*kernel
}

// Build links the functions of src. Every call must resolve to a function
// in the unit or to a builtin with a host implementation.
func (d *Device) Build(ctx context.Context, src device.Source) (device.Program, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.builtins == nil {
		d.builtins = newRegistry()
	}
	if src.Store == nil {
		return nil, fmt.Errorf("cpu: source carries no metadata store")
	}

	p := &program{
		dev:      d,
		store:    src.Store,
		byName:   make(map[string]*function),
		byMethod: make(map[*meta.MethodDesc]*function),
		wrappers: make(map[string]device.Wrapper),
		kernels:  make(map[string]*kernel),
	}
	for _, res := range src.Functions {
		name := codegen.FunctionName(res.Method)
		fn := newFunction(name, res)
		p.byName[name] = fn
		p.byMethod[res.Method] = fn
	}

	for _, fn := range p.byName {
		var err error
		ast.Inspect(fn.res.Body, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok || err != nil {
				return err == nil
			}
			switch {
			case !call.Method.IsAlias():
				if _, ok := p.byMethod[call.Method]; !ok {
					err = fmt.Errorf("cpu: %s calls undefined function %s", fn.name, codegen.FunctionName(call.Method))
				}
			case call.Method.Alias[0] == '(':
			default:
				if _, ok := d.builtins.lookup(call.Method.Alias); !ok {
					err = fmt.Errorf("cpu: %s calls %s, which has no host implementation", fn.name, call.Method.Alias)
				}
			}
			return err == nil
		})
		if err != nil {
			return nil, err
		}
	}

	for _, w := range src.Wrappers {
		if _, ok := p.byMethod[w.Body]; !ok {
			return nil, fmt.Errorf("cpu: wrapper %s calls undefined function %s", w.Name, codegen.FunctionName(w.Body))
		}
		p.wrappers[w.Name] = w
	}
	return p, nil
}

// Kernel returns the entry point called name. Repeated lookups share one
// kernel and so one dispatch lock.
func (p *program) Kernel(name string) (device.Kernel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if k, ok := p.kernels[name]; ok {
		return k, nil
	}
	k := &kernel{prog: p, name: name}
	if w, ok := p.wrappers[name]; ok {
		k.wrapper = &w
	} else if fn, ok := p.byName[name]; ok && fn.res.Method.Kernel {
		k.fn = fn
	} else {
		return nil, fmt.Errorf("cpu: no kernel %s", name)
	}
	p.kernels[name] = k
	return k, nil
}

type kernel struct {
	prog    *program
	name    string
	fn      *function
	wrapper *device.Wrapper

	mu sync.Mutex
}

// Invoke binds args and runs every work item of dims in order, x fastest
func (k *kernel) Invoke(ctx context.Context, dims device.WorkDims, args []device.Arg) error {
	if err := dims.Validate(); err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	entry, vals, err := k.bind(args)
	if err != nil {
		return fmt.Errorf("cpu: %s: %w", k.name, err)
	}

	dev := k.prog.dev
	m := &machine{prog: k.prog, dims: dims, out: dev.Output, limit: dev.TickLimit}
	if m.out == nil {
		m.out = os.Stdout
	}
	if m.limit == 0 {
		m.limit = DefaultTickLimit
	}

	size := [3]int{1, 1, 1}
	copy(size[:], dims.Global)
	for z := 0; z < size[2]; z++ {
		for y := 0; y < size[1]; y++ {
			for x := 0; x < size[0]; x++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				m.gid = [3]int{x, y, z}
				m.ticks = 0
				item := make([]any, len(vals))
				for i, v := range vals {
					item[i] = copyValue(v)
				}
				if _, err := m.call(entry, item); err != nil {
					return fmt.Errorf("cpu: %s at work item %v: %w", k.name, m.gid, err)
				}
			}
		}
	}
	return nil
}

// bind decodes args for the entry function. A wrapper rebuilds its closure
// record and passes the record's address.
func (k *kernel) bind(args []device.Arg) (*function, []any, error) {
	if k.wrapper == nil {
		vals, err := bind(k.fn.res.Params, args)
		return k.fn, vals, err
	}

	w := k.wrapper
	body := k.prog.byMethod[w.Body]
	rec, err := k.prog.newRecord(w.Record)
	if err != nil {
		return nil, nil, err
	}
	fields, err := codegen.StructFields(k.prog.store, w.Record)
	if err != nil {
		return nil, nil, err
	}
	if len(args) != len(fields) {
		return nil, nil, fmt.Errorf("%d arguments for %d captured fields", len(args), len(fields))
	}
	for i, f := range fields {
		v, err := bindOne(f.Type, args[i])
		if err != nil {
			return nil, nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		rec.fields[f.Name] = v
	}
	return body, []any{&cell{v: rec}}, nil
}
