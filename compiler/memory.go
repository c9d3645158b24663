package compiler

import (
	"kernelc/ast"
	"kernelc/bytecode"
	"kernelc/meta"
	"kernelc/types"
)

// element and pointee types implied by the typed opcode forms
var accessTypes = map[bytecode.OpCode]types.Type{
	bytecode.LDELEM_I1: types.Int8,
	bytecode.LDELEM_U1: types.UInt8,
	bytecode.LDELEM_I2: types.Int16,
	bytecode.LDELEM_U2: types.UInt16,
	bytecode.LDELEM_I4: types.Int32,
	bytecode.LDELEM_U4: types.UInt32,
	bytecode.LDELEM_I8: types.Int64,
	bytecode.LDELEM_R4: types.Float32,
	bytecode.LDELEM_R8: types.Float64,
	bytecode.STELEM_I1: types.Int8,
	bytecode.STELEM_I2: types.Int16,
	bytecode.STELEM_I4: types.Int32,
	bytecode.STELEM_I8: types.Int64,
	bytecode.STELEM_R4: types.Float32,
	bytecode.STELEM_R8: types.Float64,
	bytecode.LDIND_I1:  types.Int8,
	bytecode.LDIND_U1:  types.UInt8,
	bytecode.LDIND_I2:  types.Int16,
	bytecode.LDIND_U2:  types.UInt16,
	bytecode.LDIND_I4:  types.Int32,
	bytecode.LDIND_U4:  types.UInt32,
	bytecode.LDIND_I8:  types.Int64,
	bytecode.LDIND_I:   types.Int32,
	bytecode.LDIND_R4:  types.Float32,
	bytecode.LDIND_R8:  types.Float64,
	bytecode.STIND_I1:  types.Int8,
	bytecode.STIND_I2:  types.Int16,
	bytecode.STIND_I4:  types.Int32,
	bytecode.STIND_I8:  types.Int64,
	bytecode.STIND_R4:  types.Float32,
	bytecode.STIND_R8:  types.Float64,
}

func registerFields(t *Table) {
	t.Register(opLdFld, bytecode.LDFLD)
	t.Register(opLdFldA, bytecode.LDFLDA)
	t.Register(opStFld, bytecode.STFLD)
}

func registerElements(t *Table) {
	t.Register(opLdElem,
		bytecode.LDELEM_I1, bytecode.LDELEM_U1, bytecode.LDELEM_I2, bytecode.LDELEM_U2,
		bytecode.LDELEM_I4, bytecode.LDELEM_U4, bytecode.LDELEM_I8, bytecode.LDELEM_R4,
		bytecode.LDELEM_R8, bytecode.LDELEM_REF, bytecode.LDELEM)
	t.Register(opLdElemA, bytecode.LDELEMA)
	t.Register(opStElem,
		bytecode.STELEM_I1, bytecode.STELEM_I2, bytecode.STELEM_I4, bytecode.STELEM_I8,
		bytecode.STELEM_R4, bytecode.STELEM_R8, bytecode.STELEM_REF, bytecode.STELEM)
}

func registerIndirect(t *Table) {
	t.Register(opLdInd,
		bytecode.LDIND_I1, bytecode.LDIND_U1, bytecode.LDIND_I2, bytecode.LDIND_U2,
		bytecode.LDIND_I4, bytecode.LDIND_U4, bytecode.LDIND_I8, bytecode.LDIND_I,
		bytecode.LDIND_R4, bytecode.LDIND_R8, bytecode.LDIND_REF, bytecode.LDOBJ)
	t.Register(opStInd,
		bytecode.STIND_I1, bytecode.STIND_I2, bytecode.STIND_I4, bytecode.STIND_I8,
		bytecode.STIND_R4, bytecode.STIND_R8, bytecode.STIND_REF, bytecode.STOBJ)
}

// receiver is the target of a member access through e. Addresses taken with
// AddrOf fold back to their operand; dereferenced pointers are accessed
// through the pointer.
func receiver(e ast.Expr) ast.Expr {
	switch v := e.(type) {
	case *ast.AddrOfExpr:
		return v.Expr
	case *ast.DerefExpr:
		return v.Expr
	}
	return e
}

// storage is what an address designates: the operand of an AddrOf, or a
// dereference of the pointer.
func storage(addr ast.Expr, t types.Type) (ast.Expr, error) {
	if a, ok := addr.(*ast.AddrOfExpr); ok {
		return a.Expr, nil
	}
	if at := addr.Type(); at.IsPointer() {
		t = *at.Elem
	}
	if t.IsVoid() {
		return nil, meta.TypeError(meta.E_UNSUPPORTED_TYPE, addr.Type().String(), "cannot dereference")
	}
	return &ast.DerefExpr{Expr: addr, Typ: t}, nil
}

// operandType classifies the type token of ldobj, stobj, ldelem and friends;
// the typed opcode forms carry their type in the opcode instead.
func operandType(c *Context, in bytecode.Instruction) (types.Type, error) {
	if t, ok := accessTypes[in.Op]; ok {
		return t, nil
	}
	if in.Operand.Type == "" {
		return types.Void, nil
	}
	ref, err := meta.ParseTypeRef(in.Operand.Type)
	if err != nil {
		return types.Type{}, err
	}
	return c.Classify(ref)
}

func field(c *Context, in bytecode.Instruction, obj ast.Expr) (*ast.FieldExpr, error) {
	if in.Operand.Field == nil {
		return nil, meta.Errorf(meta.E_UNRESOLVED_FIELD, "missing field operand")
	}
	decl, f, err := c.Store.Field(*in.Operand.Field)
	if err != nil {
		return nil, err
	}
	c.requireType(types.StructOf(decl))
	t, err := c.Classify(f.Type)
	if err != nil {
		return nil, err
	}
	return &ast.FieldExpr{Target: receiver(obj), Name: f.TargetName(), Typ: t}, nil
}

func opLdFld(c *Context, in bytecode.Instruction) (ast.Stmt, error) {
	obj, err := c.Pop()
	if err != nil {
		return nil, err
	}
	f, err := field(c, in, obj)
	if err != nil {
		return nil, err
	}
	c.Push(f)
	return nil, nil
}

func opLdFldA(c *Context, in bytecode.Instruction) (ast.Stmt, error) {
	obj, err := c.Pop()
	if err != nil {
		return nil, err
	}
	f, err := field(c, in, obj)
	if err != nil {
		return nil, err
	}
	c.Push(ast.AddrOf(f))
	return nil, nil
}

func opStFld(c *Context, in bytecode.Instruction) (ast.Stmt, error) {
	vals, err := c.PopN(2)
	if err != nil {
		return nil, err
	}
	f, err := field(c, in, vals[0])
	if err != nil {
		return nil, err
	}
	return &ast.AssignStmt{Target: f, Value: vals[1]}, nil
}

func element(c *Context, in bytecode.Instruction, array, index ast.Expr) (*ast.IndexExpr, error) {
	t, err := operandType(c, in)
	if err != nil {
		return nil, err
	}
	if at := array.Type(); at.IsPointer() {
		t = *at.Elem
	}
	if t.IsVoid() {
		return nil, meta.TypeError(meta.E_UNSUPPORTED_TYPE, array.Type().String(), "cannot index")
	}
	return &ast.IndexExpr{Array: array, Index: index, Typ: t}, nil
}

func opLdElem(c *Context, in bytecode.Instruction) (ast.Stmt, error) {
	vals, err := c.PopN(2)
	if err != nil {
		return nil, err
	}
	e, err := element(c, in, vals[0], vals[1])
	if err != nil {
		return nil, err
	}
	c.Push(e)
	return nil, nil
}

func opLdElemA(c *Context, in bytecode.Instruction) (ast.Stmt, error) {
	vals, err := c.PopN(2)
	if err != nil {
		return nil, err
	}
	e, err := element(c, in, vals[0], vals[1])
	if err != nil {
		return nil, err
	}
	c.Push(ast.AddrOf(e))
	return nil, nil
}

func opStElem(c *Context, in bytecode.Instruction) (ast.Stmt, error) {
	vals, err := c.PopN(3)
	if err != nil {
		return nil, err
	}
	e, err := element(c, in, vals[0], vals[1])
	if err != nil {
		return nil, err
	}
	return &ast.AssignStmt{Target: e, Value: vals[2]}, nil
}

func opLdInd(c *Context, in bytecode.Instruction) (ast.Stmt, error) {
	addr, err := c.Pop()
	if err != nil {
		return nil, err
	}
	t, err := operandType(c, in)
	if err != nil {
		return nil, err
	}
	v, err := storage(addr, t)
	if err != nil {
		return nil, err
	}
	c.Push(v)
	return nil, nil
}

func opStInd(c *Context, in bytecode.Instruction) (ast.Stmt, error) {
	vals, err := c.PopN(2)
	if err != nil {
		return nil, err
	}
	t, err := operandType(c, in)
	if err != nil {
		return nil, err
	}
	target, err := storage(vals[0], t)
	if err != nil {
		return nil, err
	}
	return &ast.AssignStmt{Target: target, Value: vals[1]}, nil
}
