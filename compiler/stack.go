package compiler

import (
	"kernelc/ast"
	"kernelc/bytecode"
	"kernelc/meta"
	"math"
)

func registerStack(t *Table) {
	t.Register(opNop, bytecode.NOP)
	t.Register(opBox, bytecode.BOX)
	t.Register(opInitObj, bytecode.INITOBJ)
	t.Register(opDup, bytecode.DUP)
	t.Register(opPop, bytecode.POP)
	t.Register(opRet, bytecode.RET)
	t.Register(opLdStr, bytecode.LDSTR)
	t.Register(opLdcI4,
		bytecode.LDC_I4_M1, bytecode.LDC_I4_0, bytecode.LDC_I4_1, bytecode.LDC_I4_2,
		bytecode.LDC_I4_3, bytecode.LDC_I4_4, bytecode.LDC_I4_5, bytecode.LDC_I4_6,
		bytecode.LDC_I4_7, bytecode.LDC_I4_8, bytecode.LDC_I4, bytecode.LDC_I4_S)
	t.Register(opLdcI8, bytecode.LDC_I8)
	t.Register(opLdcR4, bytecode.LDC_R4)
	t.Register(opLdcR8, bytecode.LDC_R8)
}

func opNop(c *Context, in bytecode.Instruction) (ast.Stmt, error) {
	return &ast.NopStmt{}, nil
}

// box leaves the value where it is; there is no boxing on the device
func opBox(c *Context, in bytecode.Instruction) (ast.Stmt, error) {
	if c.Depth() == 0 {
		return nil, meta.Errorf(meta.E_STACK_UNDERFLOW, "box with empty stack")
	}
	return nil, nil
}

// initobj consumes the address and emits nothing. Locals are not zeroed.
func opInitObj(c *Context, in bytecode.Instruction) (ast.Stmt, error) {
	_, err := c.Pop()
	return nil, err
}

func opDup(c *Context, in bytecode.Instruction) (ast.Stmt, error) {
	top, err := c.Peek()
	if err != nil {
		return nil, err
	}
	c.Push(top)
	return nil, nil
}

func opPop(c *Context, in bytecode.Instruction) (ast.Stmt, error) {
	top, err := c.Pop()
	if err != nil {
		return nil, err
	}
	if call, ok := top.(*ast.CallExpr); ok {
		return &ast.ExprStmt{Expr: call}, nil
	}
	return nil, nil
}

func opRet(c *Context, in bytecode.Instruction) (ast.Stmt, error) {
	if c.Depth() == 0 {
		return &ast.ReturnStmt{}, nil
	}
	v, err := c.Pop()
	if err != nil {
		return nil, err
	}
	// kernels are void; calls inside the dropped value still run
	if c.Method.Kernel {
		if hasCall(v) {
			c.Emit(&ast.ExprStmt{Expr: v})
		}
		return &ast.ReturnStmt{}, nil
	}
	return &ast.ReturnStmt{Value: v}, nil
}

func hasCall(e ast.Expr) bool {
	found := false
	ast.Inspect(e, func(n ast.Node) bool {
		if _, ok := n.(*ast.CallExpr); ok {
			found = true
		}
		return !found
	})
	return found
}

func opLdStr(c *Context, in bytecode.Instruction) (ast.Stmt, error) {
	c.Push(ast.Str(in.Operand.Str))
	return nil, nil
}

func opLdcI4(c *Context, in bytecode.Instruction) (ast.Stmt, error) {
	if in.Operand.Int < math.MinInt32 || in.Operand.Int > math.MaxInt32 {
		return nil, meta.Errorf(meta.E_UNSUPPORTED_INSTRUCTION, "%s operand %d out of int32 range", in.Op, in.Operand.Int)
	}
	c.Push(ast.Int(int32(in.Operand.Int)))
	return nil, nil
}

func opLdcI8(c *Context, in bytecode.Instruction) (ast.Stmt, error) {
	c.Push(ast.Long(in.Operand.Int))
	return nil, nil
}

func opLdcR4(c *Context, in bytecode.Instruction) (ast.Stmt, error) {
	c.Push(ast.Float(float32(in.Operand.Float)))
	return nil, nil
}

func opLdcR8(c *Context, in bytecode.Instruction) (ast.Stmt, error) {
	c.Push(ast.Double(in.Operand.Float))
	return nil, nil
}
