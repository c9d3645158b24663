package ast

import (
	"kernelc/meta"
	"kernelc/types"
)

// Node is the base interface for all AST nodes
type Node interface {
	Children() []Node
}

// Expr is an expression node with its classified type
type Expr interface {
	Node
	Type() types.Type
	exprNode()
}

// Stmt is a statement node
type Stmt interface {
	Node
	stmtNode()
}

// LiteralExpr holds a constant. Value is one of int32, uint32, int64,
// uint64, float32, float64, bool or string.
type LiteralExpr struct {
	Value any
	Typ   types.Type
}

func (e *LiteralExpr) Children() []Node { return nil }
func (e *LiteralExpr) Type() types.Type { return e.Typ }
func (e *LiteralExpr) exprNode()        {}

// Literal constructors
func Int(v int32) *LiteralExpr     { return &LiteralExpr{Value: v, Typ: types.Int32} }
func UInt(v uint32) *LiteralExpr   { return &LiteralExpr{Value: v, Typ: types.UInt32} }
func Long(v int64) *LiteralExpr    { return &LiteralExpr{Value: v, Typ: types.Int64} }
func ULong(v uint64) *LiteralExpr  { return &LiteralExpr{Value: v, Typ: types.UInt64} }
func Float(v float32) *LiteralExpr { return &LiteralExpr{Value: v, Typ: types.Float32} }
func Double(v float64) *LiteralExpr {
	return &LiteralExpr{Value: v, Typ: types.Float64}
}
func Bool(v bool) *LiteralExpr { return &LiteralExpr{Value: v, Typ: types.Bool} }
func Str(v string) *LiteralExpr {
	return &LiteralExpr{Value: v, Typ: types.PointerTo(types.Int8)}
}

// IdentExpr is a named variable or parameter
type IdentExpr struct {
	Name string
	Typ  types.Type
}

func (e *IdentExpr) Children() []Node { return nil }
func (e *IdentExpr) Type() types.Type { return e.Typ }
func (e *IdentExpr) exprNode()        {}

// BinaryExpr is an infix operation
type BinaryExpr struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
	Typ   types.Type
}

func (e *BinaryExpr) Children() []Node { return []Node{e.Left, e.Right} }
func (e *BinaryExpr) Type() types.Type { return e.Typ }
func (e *BinaryExpr) exprNode()        {}

// UnaryExpr is a prefix operation
type UnaryExpr struct {
	Op      UnaryOp
	Operand Expr
	Typ     types.Type
}

func (e *UnaryExpr) Children() []Node { return []Node{e.Operand} }
func (e *UnaryExpr) Type() types.Type { return e.Typ }
func (e *UnaryExpr) exprNode()        {}

// CallExpr calls a method. Aliased methods render under their alias,
// everything else under the compiled function name.
type CallExpr struct {
	Method *meta.MethodDesc
	Args   []Expr
	Typ    types.Type
}

func (e *CallExpr) Children() []Node {
	nodes := make([]Node, len(e.Args))
	for i, a := range e.Args {
		nodes[i] = a
	}
	return nodes
}
func (e *CallExpr) Type() types.Type { return e.Typ }
func (e *CallExpr) exprNode()        {}

// CastExpr converts to Typ
type CastExpr struct {
	Expr Expr
	Typ  types.Type
}

func (e *CastExpr) Children() []Node { return []Node{e.Expr} }
func (e *CastExpr) Type() types.Type { return e.Typ }
func (e *CastExpr) exprNode()        {}

// IndexExpr is array[index]
type IndexExpr struct {
	Array Expr
	Index Expr
	Typ   types.Type
}

func (e *IndexExpr) Children() []Node { return []Node{e.Array, e.Index} }
func (e *IndexExpr) Type() types.Type { return e.Typ }
func (e *IndexExpr) exprNode()        {}

// FieldExpr is target.name or target->name depending on Target's type
type FieldExpr struct {
	Target Expr
	Name   string
	Typ    types.Type
}

func (e *FieldExpr) Children() []Node { return []Node{e.Target} }
func (e *FieldExpr) Type() types.Type { return e.Typ }
func (e *FieldExpr) exprNode()        {}

// AddrOfExpr is &expr
type AddrOfExpr struct {
	Expr Expr
	Typ  types.Type
}

func (e *AddrOfExpr) Children() []Node { return []Node{e.Expr} }
func (e *AddrOfExpr) Type() types.Type { return e.Typ }
func (e *AddrOfExpr) exprNode()        {}

// AddrOf takes the address of e
func AddrOf(e Expr) *AddrOfExpr {
	return &AddrOfExpr{Expr: e, Typ: types.PointerTo(e.Type())}
}

// DerefExpr is *expr
type DerefExpr struct {
	Expr Expr
	Typ  types.Type
}

func (e *DerefExpr) Children() []Node { return []Node{e.Expr} }
func (e *DerefExpr) Type() types.Type { return e.Typ }
func (e *DerefExpr) exprNode()        {}

// VarDecl declares a local, optionally initialised
type VarDecl struct {
	Name string
	Typ  types.Type
	Init Expr
}

func (s *VarDecl) Children() []Node {
	if s.Init == nil {
		return nil
	}
	return []Node{s.Init}
}
func (s *VarDecl) stmtNode() {}

// AssignStmt is target = value
type AssignStmt struct {
	Target Expr
	Value  Expr
}

func (s *AssignStmt) Children() []Node { return []Node{s.Target, s.Value} }
func (s *AssignStmt) stmtNode()        {}

// ReturnStmt returns Value, which is nil for void returns
type ReturnStmt struct {
	Value Expr
}

func (s *ReturnStmt) Children() []Node {
	if s.Value == nil {
		return nil
	}
	return []Node{s.Value}
}
func (s *ReturnStmt) stmtNode() {}

// ExprStmt evaluates an expression for its side effects
type ExprStmt struct {
	Expr Expr
}

func (s *ExprStmt) Children() []Node { return []Node{s.Expr} }
func (s *ExprStmt) stmtNode()        {}

// BlockStmt is an ordered statement list
type BlockStmt struct {
	Stmts []Stmt
}

func (s *BlockStmt) Children() []Node {
	nodes := make([]Node, len(s.Stmts))
	for i, st := range s.Stmts {
		nodes[i] = st
	}
	return nodes
}
func (s *BlockStmt) stmtNode() {}

// NopStmt renders as nothing
type NopStmt struct{}

func (s *NopStmt) Children() []Node { return nil }
func (s *NopStmt) stmtNode()        {}

// LabelStmt marks an instruction offset
type LabelStmt struct {
	Offset int
}

func (s *LabelStmt) Children() []Node { return nil }
func (s *LabelStmt) stmtNode()        {}

// CommentStmt carries the source instruction text
type CommentStmt struct {
	Text string
}

func (s *CommentStmt) Children() []Node { return nil }
func (s *CommentStmt) stmtNode()        {}

// BranchStmt jumps to Target, conditionally when Cond is set
type BranchStmt struct {
	Cond   Expr
	Target int
}

func (s *BranchStmt) Children() []Node {
	if s.Cond == nil {
		return nil
	}
	return []Node{s.Cond}
}
func (s *BranchStmt) stmtNode() {}
