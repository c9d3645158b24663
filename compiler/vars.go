package compiler

import (
	"kernelc/ast"
	"kernelc/bytecode"
)

func registerLoadStore(t *Table) {
	t.Register(opLdArg, bytecode.LDARG_0, bytecode.LDARG_1, bytecode.LDARG_2, bytecode.LDARG_3, bytecode.LDARG, bytecode.LDARG_S)
	t.Register(opLdArgA, bytecode.LDARGA, bytecode.LDARGA_S)
	t.Register(opStArg, bytecode.STARG, bytecode.STARG_S)
	t.Register(opLdLoc, bytecode.LDLOC_0, bytecode.LDLOC_1, bytecode.LDLOC_2, bytecode.LDLOC_3, bytecode.LDLOC, bytecode.LDLOC_S)
	t.Register(opLdLocA, bytecode.LDLOCA, bytecode.LDLOCA_S)
	t.Register(opStLoc, bytecode.STLOC_0, bytecode.STLOC_1, bytecode.STLOC_2, bytecode.STLOC_3, bytecode.STLOC, bytecode.STLOC_S)
}

// Struct parameters are received by address, so loading one reads through
// the pointer.
func opLdArg(c *Context, in bytecode.Instruction) (ast.Stmt, error) {
	arg, err := c.Arg(in.Operand.Index)
	if err != nil {
		return nil, err
	}
	if c.byRef[in.Operand.Index] {
		c.Push(&ast.DerefExpr{Expr: arg, Typ: *arg.Typ.Elem})
		return nil, nil
	}
	c.Push(arg)
	return nil, nil
}

// ldarga on a struct parameter yields the parameter itself, which is already
// a pointer unless the struct is passed by value.
func opLdArgA(c *Context, in bytecode.Instruction) (ast.Stmt, error) {
	arg, err := c.Arg(in.Operand.Index)
	if err != nil {
		return nil, err
	}
	if c.byRef[in.Operand.Index] {
		c.Push(arg)
		return nil, nil
	}
	c.Push(ast.AddrOf(arg))
	return nil, nil
}

func opStArg(c *Context, in bytecode.Instruction) (ast.Stmt, error) {
	arg, err := c.Arg(in.Operand.Index)
	if err != nil {
		return nil, err
	}
	v, err := c.Pop()
	if err != nil {
		return nil, err
	}
	if c.byRef[in.Operand.Index] {
		return &ast.AssignStmt{Target: &ast.DerefExpr{Expr: arg, Typ: *arg.Typ.Elem}, Value: v}, nil
	}
	return &ast.AssignStmt{Target: arg, Value: v}, nil
}

func opLdLoc(c *Context, in bytecode.Instruction) (ast.Stmt, error) {
	local, err := c.Local(in.Operand.Index)
	if err != nil {
		return nil, err
	}
	c.Push(local)
	return nil, nil
}

func opLdLocA(c *Context, in bytecode.Instruction) (ast.Stmt, error) {
	local, err := c.Local(in.Operand.Index)
	if err != nil {
		return nil, err
	}
	c.Push(ast.AddrOf(local))
	return nil, nil
}

func opStLoc(c *Context, in bytecode.Instruction) (ast.Stmt, error) {
	local, err := c.Local(in.Operand.Index)
	if err != nil {
		return nil, err
	}
	v, err := c.Pop()
	if err != nil {
		return nil, err
	}
	return &ast.AssignStmt{Target: local, Value: v}, nil
}
