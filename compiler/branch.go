package compiler

import (
	"kernelc/ast"
	"kernelc/bytecode"
	"kernelc/types"
)

var branchOps = map[bytecode.OpCode]ast.BinaryOp{
	bytecode.BEQ:      ast.OpEq,
	bytecode.BEQ_S:    ast.OpEq,
	bytecode.BNE_UN:   ast.OpNe,
	bytecode.BNE_UN_S: ast.OpNe,
	bytecode.BGE:      ast.OpGe,
	bytecode.BGE_S:    ast.OpGe,
	bytecode.BGE_UN:   ast.OpGe,
	bytecode.BGE_UN_S: ast.OpGe,
	bytecode.BGT:      ast.OpGt,
	bytecode.BGT_S:    ast.OpGt,
	bytecode.BGT_UN:   ast.OpGt,
	bytecode.BGT_UN_S: ast.OpGt,
	bytecode.BLE:      ast.OpLe,
	bytecode.BLE_S:    ast.OpLe,
	bytecode.BLE_UN:   ast.OpLe,
	bytecode.BLE_UN_S: ast.OpLe,
	bytecode.BLT:      ast.OpLt,
	bytecode.BLT_S:    ast.OpLt,
	bytecode.BLT_UN:   ast.OpLt,
	bytecode.BLT_UN_S: ast.OpLt,
}

func registerBranches(t *Table) {
	t.Register(opBr, bytecode.BR, bytecode.BR_S)
	t.Register(opBrTrue, bytecode.BRTRUE, bytecode.BRTRUE_S)
	t.Register(opBrFalse, bytecode.BRFALSE, bytecode.BRFALSE_S)
	for op := range branchOps {
		t.Register(opBrCompare, op)
	}
}

func opBr(c *Context, in bytecode.Instruction) (ast.Stmt, error) {
	return &ast.BranchStmt{Target: in.Operand.Target}, nil
}

func opBrTrue(c *Context, in bytecode.Instruction) (ast.Stmt, error) {
	cond, err := c.Pop()
	if err != nil {
		return nil, err
	}
	return &ast.BranchStmt{Cond: cond, Target: in.Operand.Target}, nil
}

func opBrFalse(c *Context, in bytecode.Instruction) (ast.Stmt, error) {
	cond, err := c.Pop()
	if err != nil {
		return nil, err
	}
	not := &ast.UnaryExpr{Op: ast.OpNot, Operand: cond, Typ: types.Bool}
	return &ast.BranchStmt{Cond: not, Target: in.Operand.Target}, nil
}

func opBrCompare(c *Context, in bytecode.Instruction) (ast.Stmt, error) {
	l, r, err := popPair(c)
	if err != nil {
		return nil, err
	}
	cond := &ast.BinaryExpr{Op: branchOps[in.Op], Left: l, Right: r, Typ: types.Bool}
	return &ast.BranchStmt{Cond: cond, Target: in.Operand.Target}, nil
}
