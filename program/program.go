// Package program assembles compiled methods into one translation unit. It
// resolves the dependency closure of every entry point, renders the unit and
// hands it to a device builder.
package program

import (
	"context"
	"kernelc/codegen"
	"kernelc/compiler"
	"kernelc/device"
	"kernelc/meta"
	"kernelc/trace"
	"kernelc/types"

	"github.com/pkg/errors"
)

// Method is a compiled method owned by a Program
type Method struct {
	Desc   *meta.MethodDesc
	Result *compiler.Result
	Kernel bool
}

// Options configure a Program
type Options struct {
	// Comments keeps instruction text in the generated source
	Comments bool
	// Builder builds the unit after every successful compile. A nil
	// Builder only generates source.
	Builder device.Builder
}

// Program accumulates kernels into one translation unit. It is not safe for
// concurrent use.
type Program struct {
	store   *meta.Store
	cc      *compiler.Compiler
	gen     *codegen.Generator
	builder device.Builder

	unit     *unit
	text     string
	dev      device.Program
	kernels  map[*meta.MethodDesc]*Kernel
	closures map[*meta.Closure]*Kernel
}

// New creates an empty program over store
func New(store *meta.Store, opts Options) *Program {
	return &Program{
		store:    store,
		cc:       compiler.New(store),
		gen:      codegen.New(codegen.Options{Comments: opts.Comments}),
		builder:  opts.Builder,
		unit:     newUnit(),
		kernels:  make(map[*meta.MethodDesc]*Kernel),
		closures: make(map[*meta.Closure]*Kernel),
	}
}

// Store returns the metadata the program compiles against
func (p *Program) Store() *meta.Store { return p.store }

// Source returns the translation unit of everything compiled so far
func (p *Program) Source() string { return p.text }

// Methods returns the compiled methods, helpers before kernels
func (p *Program) Methods() []*Method { return p.unit.ordered() }

// Types returns the struct types the unit defines, in discovery order
func (p *Program) Types() []*meta.TypeDesc {
	return append([]*meta.TypeDesc(nil), p.unit.types...)
}

// Compile adds a kernel and everything it depends on. Compiling the same
// method again returns the first result. On any failure the program is left
// as it was.
func (p *Program) Compile(ctx context.Context, m *meta.MethodDesc) (*Kernel, error) {
	if k, ok := p.kernels[m]; ok {
		return k, nil
	}
	if !m.Static || !m.Kernel {
		return nil, &meta.Error{Code: meta.E_INVALID_KERNEL, Method: m.FullName(), Offset: -1,
			Msg: "an entry point must be a static method marked as a kernel"}
	}

	staged := p.unit.clone()
	if err := p.resolve(staged, m); err != nil {
		return nil, err
	}
	k := &Kernel{Name: codegen.FunctionName(m), Params: staged.methods[m].Result.Params, prog: p}
	if err := p.commit(ctx, staged, k.Name); err != nil {
		return nil, err
	}
	p.kernels[m] = k
	return k, nil
}

// CompileByName looks up Type::Name and compiles it
func (p *Program) CompileByName(ctx context.Context, name string) (*Kernel, error) {
	m, err := p.store.MethodByName(name)
	if err != nil {
		return nil, err
	}
	return p.Compile(ctx, m)
}

// CompileClosure adds an entry point for a closure. The record is emitted
// with __global pointer fields, and a wrapper kernel taking those fields
// rebuilds the record and calls the body with its address.
func (p *Program) CompileClosure(ctx context.Context, c *meta.Closure) (*Kernel, error) {
	if k, ok := p.closures[c]; ok {
		return k, nil
	}
	if err := validClosure(c); err != nil {
		return nil, err
	}

	staged := p.unit.clone()
	if staged.seen[c.Type] {
		return nil, invalidClosure(c, "record type %s is already emitted as a plain struct", c.Type.FullName())
	}
	staged.records[c.Type] = true

	fields, err := codegen.StructFields(p.store, c.Type)
	if err != nil {
		return nil, meta.Attach(err, meta.E_UNSUPPORTED_TYPE, c.Body.FullName(), -1)
	}
	params := make([]compiler.Param, len(fields))
	for i := range fields {
		if fields[i].Type.IsPointer() {
			fields[i].Qualifier = "__global"
		}
		if err := p.registerStruct(staged, fields[i].Type); err != nil {
			return nil, err
		}
		params[i] = compiler.Param{Name: fields[i].Name, Type: fields[i].Type}
	}

	if err := p.resolve(staged, c.Body); err != nil {
		return nil, err
	}
	ck := &closureKernel{
		closure: c,
		name:    codegen.FunctionName(c.Body) + "_kernel",
		record:  types.StructName(c.Type),
		fields:  fields,
	}
	staged.closures = append(staged.closures, ck)

	k := &Kernel{Name: ck.name, Params: params, prog: p, closure: c}
	if err := p.commit(ctx, staged, k.Name); err != nil {
		return nil, err
	}
	p.closures[c] = k
	return k, nil
}

func validClosure(c *meta.Closure) error {
	switch {
	case c == nil || c.Type == nil:
		return meta.Errorf(meta.E_INVALID_KERNEL, "closure without a record type")
	case c.Body == nil:
		return invalidClosure(c, "closure has no body method")
	case len(c.Type.Fields) == 0:
		return invalidClosure(c, "closure captures no fields")
	case c.Body.Static || c.Body.DeclaringType != c.Type.FullName():
		return invalidClosure(c, "body %s is not an instance method of the record", c.Body.FullName())
	}
	return nil
}

func invalidClosure(c *meta.Closure, format string, args ...any) error {
	e := meta.TypeError(meta.E_INVALID_KERNEL, c.Type.FullName(), format, args...)
	if c.Body != nil {
		e.Method = c.Body.FullName()
	}
	return e
}

// resolve compiles root and every non-alias method it reaches, registering
// each struct type found on the way
func (p *Program) resolve(u *unit, root *meta.MethodDesc) error {
	work := []*meta.MethodDesc{root}
	for len(work) > 0 {
		m := work[0]
		work = work[1:]
		if _, ok := u.methods[m]; ok {
			continue
		}

		res, err := p.cc.CompileMethod(m)
		if err != nil {
			return err
		}
		u.add(&Method{Desc: m, Result: res, Kernel: m.Kernel})

		for _, t := range res.Types {
			if err := p.registerType(u, t, map[*meta.TypeDesc]bool{}); err != nil {
				return meta.Attach(err, meta.E_UNSUPPORTED_TYPE, m.FullName(), -1)
			}
		}
		for _, callee := range res.Methods {
			if _, ok := u.methods[callee]; !ok {
				work = append(work, callee)
			}
		}
	}
	return nil
}

// registerType adds t after the struct types of its fields. Alias types and
// closure records are never added.
func (p *Program) registerType(u *unit, t *meta.TypeDesc, visiting map[*meta.TypeDesc]bool) error {
	if t.IsAlias() || u.seen[t] || u.records[t] || visiting[t] {
		return nil
	}
	visiting[t] = true
	for _, f := range t.Fields {
		ft, err := types.Classify(p.store, f.Type)
		if err != nil {
			return errors.Wrapf(err, "field %s.%s", t.FullName(), f.Name)
		}
		for ft.Elem != nil {
			ft = *ft.Elem
		}
		if ft.IsStruct() {
			if err := p.registerType(u, ft.Desc, visiting); err != nil {
				return err
			}
		}
	}
	u.seen[t] = true
	u.types = append(u.types, t)
	return nil
}

func (p *Program) registerStruct(u *unit, t types.Type) error {
	for t.Elem != nil {
		t = *t.Elem
	}
	if !t.IsStruct() {
		return nil
	}
	return p.registerType(u, t.Desc, map[*meta.TypeDesc]bool{})
}

// commit renders staged, builds it when a builder is set, and only then
// makes it the program's state
func (p *Program) commit(ctx context.Context, staged *unit, entry string) error {
	src, err := p.assemble(staged, entry)
	if err != nil {
		return err
	}
	trace.Emit(entry, len(staged.order), len(staged.types), len(src.Text))

	var built device.Program
	if p.builder != nil {
		built, err = p.builder.Build(ctx, src)
		if err != nil {
			return &meta.Error{Code: meta.E_BUILD_FAILED, Method: entry, Offset: -1, Err: err, Source: src.Text}
		}
	}

	p.unit = staged
	p.text = src.Text
	p.dev = built
	return nil
}
