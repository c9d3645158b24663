package cpu

import (
	"fmt"
	"io"
	"kernelc/ast"
	"kernelc/compiler"
	"kernelc/device"
	"kernelc/types"
	"strings"
)

// function is a compiled method prepared for interpretation: the flat
// statement list and the position of every label
type function struct {
	res    *compiler.Result
	name   string
	stmts  []ast.Stmt
	labels map[int]int
}

func newFunction(name string, res *compiler.Result) *function {
	fn := &function{res: res, name: name, stmts: res.Body.Stmts, labels: make(map[int]int)}
	for pc, s := range fn.stmts {
		if l, ok := s.(*ast.LabelStmt); ok {
			fn.labels[l.Offset] = pc
		}
	}
	return fn
}

// machine runs one work item at a time
type machine struct {
	prog  *program
	dims  device.WorkDims
	gid   [3]int
	out   io.Writer
	ticks int64
	limit int64
	depth int
}

// maxDepth bounds helper recursion per work item
const maxDepth = 256

// frame holds the variables of one active call
type frame struct {
	fn   *function
	vars map[string]*cell
}

// call runs fn with args bound in declaration order, the receiver first
func (m *machine) call(fn *function, args []any) (any, error) {
	m.depth++
	defer func() { m.depth-- }()
	if m.depth > maxDepth {
		return nil, fmt.Errorf("%s: call depth exceeds %d", fn.name, maxDepth)
	}

	res := fn.res
	f := &frame{fn: fn, vars: make(map[string]*cell)}
	want := len(res.Params)
	if res.This != nil && !res.Method.Constructor {
		want++
	}
	if len(args) != want {
		return nil, fmt.Errorf("%s: %d arguments for %d parameters", fn.name, len(args), want)
	}

	i := 0
	if res.This != nil && !res.Method.Constructor {
		f.vars["this"] = &cell{v: args[0]}
		i = 1
	}
	for _, p := range res.Params {
		v, err := convert(args[i], p.Type)
		if err != nil {
			return nil, fmt.Errorf("%s: parameter %s: %w", fn.name, p.Name, err)
		}
		f.vars[p.Name] = &cell{v: copyValue(v)}
		i++
	}

	var self *cell
	if res.Method.Constructor {
		v, err := m.prog.zero(res.Return)
		if err != nil {
			return nil, err
		}
		self = &cell{v: v}
		f.vars["this_value"] = self
		f.vars["this"] = &cell{v: self}
	}

	v, err := m.run(f)
	if err != nil {
		return nil, err
	}
	if self != nil && v == nil {
		return copyValue(self.v), nil
	}
	return v, nil
}

// run executes statements until a return or the end of the body
func (m *machine) run(f *frame) (any, error) {
	stmts := f.fn.stmts
	for pc := 0; pc < len(stmts); pc++ {
		m.ticks++
		if m.limit > 0 && m.ticks > m.limit {
			return nil, fmt.Errorf("%s: tick limit %d exceeded", f.fn.name, m.limit)
		}

		switch s := stmts[pc].(type) {
		case *ast.VarDecl:
			v, err := m.prog.zero(s.Typ)
			if err != nil {
				return nil, err
			}
			if s.Init != nil {
				if v, err = m.eval(f, s.Init); err != nil {
					return nil, err
				}
			}
			f.vars[s.Name] = &cell{v: copyValue(v)}
		case *ast.AssignStmt:
			if err := m.assign(f, s); err != nil {
				return nil, err
			}
		case *ast.ExprStmt:
			if _, err := m.eval(f, s.Expr); err != nil {
				return nil, err
			}
		case *ast.ReturnStmt:
			if s.Value == nil {
				return nil, nil
			}
			v, err := m.eval(f, s.Value)
			if err != nil {
				return nil, err
			}
			v, err = convert(v, f.fn.res.Return)
			return copyValue(v), err
		case *ast.BranchStmt:
			if s.Cond != nil {
				c, err := m.eval(f, s.Cond)
				if err != nil {
					return nil, err
				}
				if !truthy(c) {
					continue
				}
			}
			target, ok := f.fn.labels[s.Target]
			if !ok {
				return nil, fmt.Errorf("%s: no label %#x", f.fn.name, s.Target)
			}
			pc = target
		case *ast.LabelStmt, *ast.CommentStmt, *ast.NopStmt:
		default:
			return nil, fmt.Errorf("%s: unsupported statement %T", f.fn.name, s)
		}
	}
	return nil, nil
}

func (m *machine) assign(f *frame, s *ast.AssignStmt) error {
	p, err := m.lvalue(f, s.Target)
	if err != nil {
		return err
	}
	v, err := m.eval(f, s.Value)
	if err != nil {
		return err
	}
	if v, err = convert(v, s.Target.Type()); err != nil {
		return err
	}
	return p.store(v)
}

// lvalue resolves an assignable expression to its location
func (m *machine) lvalue(f *frame, e ast.Expr) (pointer, error) {
	switch n := e.(type) {
	case *ast.IdentExpr:
		c, ok := f.vars[n.Name]
		if !ok {
			return nil, fmt.Errorf("%s: undefined variable %s", f.fn.name, n.Name)
		}
		return c, nil
	case *ast.IndexExpr:
		base, err := m.eval(f, n.Array)
		if err != nil {
			return nil, err
		}
		el, ok := base.(*element)
		if !ok {
			return nil, fmt.Errorf("%s: indexing %T", f.fn.name, base)
		}
		iv, err := m.eval(f, n.Index)
		if err != nil {
			return nil, err
		}
		i, err := toInt(iv)
		if err != nil {
			return nil, err
		}
		return &element{buf: el.buf, index: el.index + int(i)}, nil
	case *ast.FieldExpr:
		rec, err := m.target(f, n)
		if err != nil {
			return nil, err
		}
		return &member{rec: rec, name: n.Name}, nil
	case *ast.DerefExpr:
		v, err := m.eval(f, n.Expr)
		if err != nil {
			return nil, err
		}
		p, ok := v.(pointer)
		if !ok {
			return nil, fmt.Errorf("%s: dereferencing %T", f.fn.name, v)
		}
		return p, nil
	}
	return nil, fmt.Errorf("%s: %T is not addressable", f.fn.name, e)
}

// target returns the record a field access reads or writes, following a
// pointer when the target expression is pointer-typed
func (m *machine) target(f *frame, n *ast.FieldExpr) (*record, error) {
	v, err := m.eval(f, n.Target)
	if err != nil {
		return nil, err
	}
	if n.Target.Type().IsPointer() {
		p, ok := v.(pointer)
		if !ok {
			return nil, fmt.Errorf("%s: field %s through %T", f.fn.name, n.Name, v)
		}
		if v, err = p.load(); err != nil {
			return nil, err
		}
	}
	rec, ok := v.(*record)
	if !ok {
		return nil, fmt.Errorf("%s: field %s of %T", f.fn.name, n.Name, v)
	}
	return rec, nil
}

func (m *machine) eval(f *frame, e ast.Expr) (any, error) {
	switch n := e.(type) {
	case *ast.LiteralExpr:
		if b, ok := n.Value.(bool); ok {
			return boolValue(b), nil
		}
		return n.Value, nil
	case *ast.IdentExpr, *ast.IndexExpr, *ast.DerefExpr:
		p, err := m.lvalue(f, e)
		if err != nil {
			return nil, err
		}
		return p.load()
	case *ast.FieldExpr:
		rec, err := m.target(f, n)
		if err != nil {
			return nil, err
		}
		if v, ok := rec.fields[n.Name]; ok {
			return v, nil
		}
		return m.swizzle(rec, n)
	case *ast.AddrOfExpr:
		return m.lvalue(f, n.Expr)
	case *ast.CastExpr:
		v, err := m.eval(f, n.Expr)
		if err != nil {
			return nil, err
		}
		return convert(v, n.Typ)
	case *ast.UnaryExpr:
		v, err := m.eval(f, n.Operand)
		if err != nil {
			return nil, err
		}
		return unary(n.Op, v, n.Typ)
	case *ast.BinaryExpr:
		l, err := m.eval(f, n.Left)
		if err != nil {
			return nil, err
		}
		r, err := m.eval(f, n.Right)
		if err != nil {
			return nil, err
		}
		return binary(n.Op, l, r, n.Typ)
	case *ast.CallExpr:
		return m.callExpr(f, n)
	}
	return nil, fmt.Errorf("%s: unsupported expression %T", f.fn.name, e)
}

// swizzle reads a multi-component alias such as xy or wzyx
func (m *machine) swizzle(rec *record, n *ast.FieldExpr) (any, error) {
	if !n.Typ.IsStruct() || len(n.Name) != len(n.Typ.Desc.Fields) {
		return nil, fmt.Errorf("no field %s", n.Name)
	}
	out, err := m.prog.newRecord(n.Typ.Desc)
	if err != nil {
		return nil, err
	}
	for i, c := range strings.Split(n.Name, "") {
		v, ok := rec.fields[c]
		if !ok {
			return nil, fmt.Errorf("no component %s in %s", c, n.Name)
		}
		out.fields[out.names[i]] = v
	}
	return out, nil
}

func (m *machine) callExpr(f *frame, n *ast.CallExpr) (any, error) {
	args := make([]any, len(n.Args))
	for i, a := range n.Args {
		v, err := m.eval(f, a)
		if err != nil {
			return nil, err
		}
		args[i] = copyValue(v)
	}

	target := n.Method
	if !target.IsAlias() {
		fn, ok := m.prog.byMethod[target]
		if !ok {
			return nil, fmt.Errorf("%s: undefined function %s", f.fn.name, target.FullName())
		}
		return m.call(fn, args)
	}

	// alias constructors such as (float4) build the vector from its components
	if strings.HasPrefix(target.Alias, "(") {
		if !n.Typ.IsStruct() {
			return nil, fmt.Errorf("constructor alias %s of %s", target.Alias, n.Typ)
		}
		rec, err := m.prog.newRecord(n.Typ.Desc)
		if err != nil {
			return nil, err
		}
		if len(args) != len(rec.names) {
			return nil, fmt.Errorf("%s with %d components", target.Alias, len(args))
		}
		for i, name := range rec.names {
			v, err := convert(args[i], typeOf(rec.fields[name]))
			if err != nil {
				return nil, err
			}
			rec.fields[name] = v
		}
		return rec, nil
	}

	fn, ok := m.prog.dev.builtins.lookup(target.Alias)
	if !ok {
		return nil, fmt.Errorf("%s: no host implementation of %s", f.fn.name, target.Alias)
	}
	v, err := fn(m, args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", target.Alias, err)
	}
	return convert(v, n.Typ)
}

// bind turns kernel arguments into parameter values
func bind(params []compiler.Param, args []device.Arg) ([]any, error) {
	if len(args) != len(params) {
		return nil, fmt.Errorf("%d arguments for %d parameters", len(args), len(params))
	}
	vals := make([]any, len(params))
	for i, p := range params {
		v, err := bindOne(p.Type, args[i])
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", p.Name, err)
		}
		vals[i] = v
	}
	return vals, nil
}

func bindOne(t types.Type, arg device.Arg) (any, error) {
	switch {
	case t.IsPointer():
		if arg.Buffer == nil {
			return nil, fmt.Errorf("pointer parameter needs a buffer")
		}
		return &element{buf: arg.Buffer}, nil
	case t.IsPrimitive():
		return decode(arg, t)
	}
	return nil, fmt.Errorf("cannot bind %s arguments", t)
}
