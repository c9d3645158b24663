package compiler

import (
	"fmt"
	"kernelc/ast"
	"kernelc/bytecode"
	"kernelc/meta"
	"kernelc/types"
)

func registerCalls(t *Table) {
	t.Register(opCall, bytecode.CALL, bytecode.CALLVIRT)
	t.Register(opNewObj, bytecode.NEWOBJ)
}

func resolve(c *Context, in bytecode.Instruction) (*meta.MethodDesc, error) {
	if in.Operand.Method == nil {
		return nil, meta.Errorf(meta.E_UNRESOLVED_METHOD, "missing method operand")
	}
	return c.Store.Method(*in.Operand.Method)
}

// address yields a pointer to v without taking the address of a pointer
func address(v ast.Expr) ast.Expr {
	if d, ok := v.(*ast.DerefExpr); ok {
		return d.Expr
	}
	if v.Type().IsPointer() {
		return v
	}
	return ast.AddrOf(v)
}

// arguments adapts popped values to the callee's parameters: struct values
// are passed by address unless the parameter is ByValue. Only value-type
// parameters are classified, so alias functions may declare host-only types
// such as string.
func arguments(c *Context, m *meta.MethodDesc, vals []ast.Expr) ([]ast.Expr, error) {
	out := make([]ast.Expr, len(vals))
	for i, v := range vals {
		p := m.Params[i]
		if p.Type.Kind == meta.KindValue {
			t, err := c.Classify(p.Type)
			if err != nil {
				return nil, err
			}
			if byAddress(t, p) {
				v = address(v)
			}
		}
		out[i] = v
	}
	return out, nil
}

// byAddress reports whether a parameter of type t is received as a pointer.
// Image handles carry an access qualifier and always travel by value.
func byAddress(t types.Type, p meta.ParamDesc) bool {
	return t.IsStruct() && !p.ByValue && t.Desc.Access == meta.AccessNone
}

func opCall(c *Context, in bytecode.Instruction) (ast.Stmt, error) {
	m, err := resolve(c, in)
	if err != nil {
		return nil, err
	}
	vals, err := c.PopN(m.Arity())
	if err != nil {
		return nil, err
	}
	ret, err := c.Classify(m.Return)
	if err != nil {
		return nil, err
	}
	if m.IsAlias() {
		if stmt, done, err := aliasForm(c, m, vals, ret); done {
			return stmt, err
		}
	} else {
		c.RequireMethod(m)
	}

	if m.Constructor && m.HasThis() {
		return constructInPlace(c, m, vals)
	}

	var args []ast.Expr
	params := vals
	if m.HasThis() {
		args = append(args, address(vals[0]))
		params = vals[1:]
	}
	rest, err := arguments(c, m, params)
	if err != nil {
		return nil, err
	}
	call := &ast.CallExpr{Method: m, Args: append(args, rest...), Typ: ret}
	if ret.IsVoid() {
		return &ast.ExprStmt{Expr: call}, nil
	}
	c.Push(call)
	return nil, nil
}

// constructInPlace handles a value-type constructor invoked on an address:
// the constructed value is assigned to the storage the address designates.
func constructInPlace(c *Context, m *meta.MethodDesc, vals []ast.Expr) (ast.Stmt, error) {
	st, err := c.StructType(m.DeclaringType)
	if err != nil {
		return nil, err
	}
	target, err := storage(vals[0], st)
	if err != nil {
		return nil, err
	}
	args, err := arguments(c, m, vals[1:])
	if err != nil {
		return nil, err
	}
	return &ast.AssignStmt{Target: target, Value: &ast.CallExpr{Method: m, Args: args, Typ: st}}, nil
}

// aliasForm rewrites accessor and operator aliases into field accesses and
// operators. done is false for aliases that stay calls.
func aliasForm(c *Context, m *meta.MethodDesc, vals []ast.Expr, ret types.Type) (stmt ast.Stmt, done bool, err error) {
	switch m.Accessor {
	case meta.AccessorGetter:
		if len(vals) != 1 || !m.HasThis() {
			return nil, true, &meta.Error{Code: meta.E_UNRESOLVED_METHOD, Method: m.Signature(), Offset: -1, Msg: "getter must take only the receiver"}
		}
		c.Push(&ast.FieldExpr{Target: receiver(vals[0]), Name: m.Alias, Typ: ret})
		return nil, true, nil

	case meta.AccessorSetter:
		if len(vals) != 2 || !m.HasThis() {
			return nil, true, &meta.Error{Code: meta.E_UNRESOLVED_METHOD, Method: m.Signature(), Offset: -1, Msg: "setter must take the receiver and one value"}
		}
		t, err := c.Classify(m.Params[0].Type)
		if err != nil {
			return nil, true, err
		}
		return &ast.AssignStmt{Target: &ast.FieldExpr{Target: receiver(vals[0]), Name: m.Alias, Typ: t}, Value: vals[1]}, true, nil
	}

	sym, ok := m.OperatorAlias()
	if !ok {
		return nil, false, nil
	}
	switch len(vals) {
	case 1:
		if op, ok := ast.UnaryOpFromSymbol(sym); ok {
			c.Push(&ast.UnaryExpr{Op: op, Operand: vals[0], Typ: ret})
			return nil, true, nil
		}
	case 2:
		if op, ok := ast.BinaryOpFromSymbol(sym); ok {
			c.Push(&ast.BinaryExpr{Op: op, Left: vals[0], Right: vals[1], Typ: ret})
			return nil, true, nil
		}
	}
	return nil, true, &meta.Error{
		Code:   meta.E_UNRESOLVED_METHOD,
		Method: m.Signature(),
		Offset: -1,
		Msg:    fmt.Sprintf("no %s operator taking %d operands", m.Alias, len(vals)),
	}
}

func opNewObj(c *Context, in bytecode.Instruction) (ast.Stmt, error) {
	m, err := resolve(c, in)
	if err != nil {
		return nil, err
	}
	if !m.Constructor {
		return nil, &meta.Error{Code: meta.E_UNRESOLVED_METHOD, Method: m.Signature(), Offset: -1, Msg: "newobj target is not a constructor"}
	}
	vals, err := c.PopN(len(m.Params))
	if err != nil {
		return nil, err
	}
	st, err := c.StructType(m.DeclaringType)
	if err != nil {
		return nil, err
	}
	c.RequireMethod(m)
	args, err := arguments(c, m, vals)
	if err != nil {
		return nil, err
	}
	c.Push(&ast.CallExpr{Method: m, Args: args, Typ: st})
	return nil, nil
}
