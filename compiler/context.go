package compiler

import (
	"kernelc/ast"
	"kernelc/meta"
	"kernelc/trace"
	"kernelc/types"
)

// Context is the state of one method compile: the evaluation stack, the
// argument and local identifiers, emitted statements and discovered
// dependencies. It is discarded once the block is produced.
type Context struct {
	Store  *meta.Store
	Method *meta.MethodDesc

	stack  []ast.Expr
	args   []*ast.IdentExpr
	byRef  map[int]bool // argument slots holding the address of a struct
	locals []*ast.IdentExpr
	stmts  []ast.Stmt

	types   []*meta.TypeDesc
	seenTy  map[*meta.TypeDesc]bool
	methods []*meta.MethodDesc
	seenMth map[*meta.MethodDesc]bool
}

func newContext(store *meta.Store, m *meta.MethodDesc) *Context {
	return &Context{
		Store:   store,
		Method:  m,
		byRef:   make(map[int]bool),
		seenTy:  make(map[*meta.TypeDesc]bool),
		seenMth: make(map[*meta.MethodDesc]bool),
	}
}

// Push puts e on top of the evaluation stack
func (c *Context) Push(e ast.Expr) {
	c.stack = append(c.stack, e)
}

// Pop removes the top of the stack
func (c *Context) Pop() (ast.Expr, error) {
	if len(c.stack) == 0 {
		return nil, meta.Errorf(meta.E_STACK_UNDERFLOW, "pop from empty evaluation stack")
	}
	e := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	return e, nil
}

// PopN removes n values and returns them in push order
func (c *Context) PopN(n int) ([]ast.Expr, error) {
	if n > len(c.stack) {
		return nil, meta.Errorf(meta.E_STACK_UNDERFLOW, "need %d values, stack holds %d", n, len(c.stack))
	}
	vals := make([]ast.Expr, n)
	copy(vals, c.stack[len(c.stack)-n:])
	c.stack = c.stack[:len(c.stack)-n]
	return vals, nil
}

// Peek returns the top of the stack without removing it
func (c *Context) Peek() (ast.Expr, error) {
	if len(c.stack) == 0 {
		return nil, meta.Errorf(meta.E_STACK_UNDERFLOW, "peek at empty evaluation stack")
	}
	return c.stack[len(c.stack)-1], nil
}

// Depth is the current stack height
func (c *Context) Depth() int { return len(c.stack) }

// Emit appends a statement to the method body
func (c *Context) Emit(s ast.Stmt) {
	c.stmts = append(c.stmts, s)
}

// Arg returns the identifier for argument slot i. Slot 0 is `this` for
// instance methods.
func (c *Context) Arg(i int) (*ast.IdentExpr, error) {
	if i < 0 || i >= len(c.args) {
		return nil, meta.Errorf(meta.E_UNSUPPORTED_INSTRUCTION, "argument %d out of range (%d arguments)", i, len(c.args))
	}
	return c.args[i], nil
}

// Local returns the identifier for local slot i
func (c *Context) Local(i int) (*ast.IdentExpr, error) {
	if i < 0 || i >= len(c.locals) {
		return nil, meta.Errorf(meta.E_UNSUPPORTED_INSTRUCTION, "local %d out of range (%d locals)", i, len(c.locals))
	}
	return c.locals[i], nil
}

// Classify maps a host type and records every struct it mentions as a
// type dependency.
func (c *Context) Classify(ref meta.TypeRef) (types.Type, error) {
	t, err := types.Classify(c.Store, ref)
	if err != nil {
		return types.Type{}, err
	}
	c.requireType(t)
	return t, nil
}

func (c *Context) requireType(t types.Type) {
	for t.Kind == types.Pointer || t.Kind == types.Array {
		t = *t.Elem
	}
	if t.Kind != types.Struct || c.seenTy[t.Desc] {
		return
	}
	c.seenTy[t.Desc] = true
	c.types = append(c.types, t.Desc)
	trace.Depend(c.Method.FullName(), "type", t.Desc.FullName())
}

// RequireMethod records a compiled callee. Alias methods are never compiled.
func (c *Context) RequireMethod(m *meta.MethodDesc) {
	if m.IsAlias() || c.seenMth[m] {
		return
	}
	c.seenMth[m] = true
	c.methods = append(c.methods, m)
	trace.Depend(c.Method.FullName(), "method", m.Signature())
}

// StructType classifies a declaring type name as a struct
func (c *Context) StructType(name string) (types.Type, error) {
	return c.Classify(meta.ValueRef(name))
}
