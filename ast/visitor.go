package ast

import "fmt"

// Visitor has one method per node variant
type Visitor[T any] interface {
	VisitLiteral(*LiteralExpr) T
	VisitIdent(*IdentExpr) T
	VisitBinary(*BinaryExpr) T
	VisitUnary(*UnaryExpr) T
	VisitCall(*CallExpr) T
	VisitCast(*CastExpr) T
	VisitIndex(*IndexExpr) T
	VisitField(*FieldExpr) T
	VisitAddrOf(*AddrOfExpr) T
	VisitDeref(*DerefExpr) T

	VisitVarDecl(*VarDecl) T
	VisitAssign(*AssignStmt) T
	VisitReturn(*ReturnStmt) T
	VisitExprStmt(*ExprStmt) T
	VisitBlock(*BlockStmt) T
	VisitNop(*NopStmt) T
	VisitLabel(*LabelStmt) T
	VisitComment(*CommentStmt) T
	VisitBranch(*BranchStmt) T
}

// Visit dispatches node to the matching Visitor method
func Visit[T any](v Visitor[T], node Node) T {
	switch n := node.(type) {
	case *LiteralExpr:
		return v.VisitLiteral(n)
	case *IdentExpr:
		return v.VisitIdent(n)
	case *BinaryExpr:
		return v.VisitBinary(n)
	case *UnaryExpr:
		return v.VisitUnary(n)
	case *CallExpr:
		return v.VisitCall(n)
	case *CastExpr:
		return v.VisitCast(n)
	case *IndexExpr:
		return v.VisitIndex(n)
	case *FieldExpr:
		return v.VisitField(n)
	case *AddrOfExpr:
		return v.VisitAddrOf(n)
	case *DerefExpr:
		return v.VisitDeref(n)
	case *VarDecl:
		return v.VisitVarDecl(n)
	case *AssignStmt:
		return v.VisitAssign(n)
	case *ReturnStmt:
		return v.VisitReturn(n)
	case *ExprStmt:
		return v.VisitExprStmt(n)
	case *BlockStmt:
		return v.VisitBlock(n)
	case *NopStmt:
		return v.VisitNop(n)
	case *LabelStmt:
		return v.VisitLabel(n)
	case *CommentStmt:
		return v.VisitComment(n)
	case *BranchStmt:
		return v.VisitBranch(n)
	default:
		panic(fmt.Sprintf("ast: unknown node type %T", node))
	}
}

// Inspect walks the tree depth-first in child order. fn returning false
// skips the children of that node.
func Inspect(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	for _, child := range node.Children() {
		Inspect(child, fn)
	}
}
