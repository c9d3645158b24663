package compiler

import (
	"kernelc/ast"
	"kernelc/bytecode"
	"kernelc/types"
)

var arithOps = map[bytecode.OpCode]ast.BinaryOp{
	bytecode.ADD:    ast.OpAdd,
	bytecode.SUB:    ast.OpSub,
	bytecode.MUL:    ast.OpMul,
	bytecode.DIV:    ast.OpDiv,
	bytecode.DIV_UN: ast.OpDiv,
	bytecode.REM:    ast.OpRem,
	bytecode.REM_UN: ast.OpRem,
}

var bitwiseOps = map[bytecode.OpCode]ast.BinaryOp{
	bytecode.AND:    ast.OpAnd,
	bytecode.OR:     ast.OpOr,
	bytecode.XOR:    ast.OpXor,
	bytecode.SHL:    ast.OpShl,
	bytecode.SHR:    ast.OpShr,
	bytecode.SHR_UN: ast.OpShr,
}

var compareOps = map[bytecode.OpCode]ast.BinaryOp{
	bytecode.CEQ:    ast.OpEq,
	bytecode.CGT:    ast.OpGt,
	bytecode.CGT_UN: ast.OpGt,
	bytecode.CLT:    ast.OpLt,
	bytecode.CLT_UN: ast.OpLt,
}

// conversion targets; native ints map to the 32-bit primitives
var convTargets = map[bytecode.OpCode]types.Type{
	bytecode.CONV_I:         types.Int32,
	bytecode.CONV_I1:        types.Int8,
	bytecode.CONV_I2:        types.Int16,
	bytecode.CONV_I4:        types.Int32,
	bytecode.CONV_I8:        types.Int64,
	bytecode.CONV_U:         types.UInt32,
	bytecode.CONV_U1:        types.UInt8,
	bytecode.CONV_U2:        types.UInt16,
	bytecode.CONV_U4:        types.UInt32,
	bytecode.CONV_U8:        types.UInt64,
	bytecode.CONV_R4:        types.Float32,
	bytecode.CONV_R8:        types.Float64,
	bytecode.CONV_R_UN:      types.Float32,
	bytecode.CONV_OVF_I:     types.Int32,
	bytecode.CONV_OVF_I1:    types.Int8,
	bytecode.CONV_OVF_I2:    types.Int16,
	bytecode.CONV_OVF_I4:    types.Int32,
	bytecode.CONV_OVF_I8:    types.Int64,
	bytecode.CONV_OVF_U:     types.UInt32,
	bytecode.CONV_OVF_U1:    types.UInt8,
	bytecode.CONV_OVF_U2:    types.UInt16,
	bytecode.CONV_OVF_U4:    types.UInt32,
	bytecode.CONV_OVF_U8:    types.UInt64,
	bytecode.CONV_OVF_I_UN:  types.Int32,
	bytecode.CONV_OVF_I1_UN: types.Int8,
	bytecode.CONV_OVF_I2_UN: types.Int16,
	bytecode.CONV_OVF_I4_UN: types.Int32,
	bytecode.CONV_OVF_I8_UN: types.Int64,
	bytecode.CONV_OVF_U_UN:  types.UInt32,
	bytecode.CONV_OVF_U1_UN: types.UInt8,
	bytecode.CONV_OVF_U2_UN: types.UInt16,
	bytecode.CONV_OVF_U4_UN: types.UInt32,
	bytecode.CONV_OVF_U8_UN: types.UInt64,
}

func registerArith(t *Table) {
	for op := range arithOps {
		t.Register(opArith, op)
	}
	for op := range bitwiseOps {
		t.Register(opBitwise, op)
	}
	for op := range compareOps {
		t.Register(opCompare, op)
	}
	t.Register(opUnary, bytecode.NEG, bytecode.NOT)
}

func registerConv(t *Table) {
	for op := range convTargets {
		t.Register(opConv, op)
	}
}

func popPair(c *Context) (ast.Expr, ast.Expr, error) {
	vals, err := c.PopN(2)
	if err != nil {
		return nil, nil, err
	}
	return vals[0], vals[1], nil
}

func opArith(c *Context, in bytecode.Instruction) (ast.Stmt, error) {
	l, r, err := popPair(c)
	if err != nil {
		return nil, err
	}
	c.Push(&ast.BinaryExpr{Op: arithOps[in.Op], Left: l, Right: r, Typ: types.Promote(l.Type(), r.Type())})
	return nil, nil
}

func opBitwise(c *Context, in bytecode.Instruction) (ast.Stmt, error) {
	l, r, err := popPair(c)
	if err != nil {
		return nil, err
	}
	c.Push(&ast.BinaryExpr{Op: bitwiseOps[in.Op], Left: l, Right: r, Typ: l.Type()})
	return nil, nil
}

func opCompare(c *Context, in bytecode.Instruction) (ast.Stmt, error) {
	l, r, err := popPair(c)
	if err != nil {
		return nil, err
	}
	c.Push(&ast.BinaryExpr{Op: compareOps[in.Op], Left: l, Right: r, Typ: types.Bool})
	return nil, nil
}

func opUnary(c *Context, in bytecode.Instruction) (ast.Stmt, error) {
	v, err := c.Pop()
	if err != nil {
		return nil, err
	}
	op := ast.OpNeg
	if in.Op == bytecode.NOT {
		op = ast.OpBitNot
	}
	c.Push(&ast.UnaryExpr{Op: op, Operand: v, Typ: v.Type()})
	return nil, nil
}

func opConv(c *Context, in bytecode.Instruction) (ast.Stmt, error) {
	v, err := c.Pop()
	if err != nil {
		return nil, err
	}
	c.Push(&ast.CastExpr{Expr: v, Typ: convTargets[in.Op]})
	return nil, nil
}
