package codegen

import (
	"kernelc/ast"
	"kernelc/bytecode"
	"strings"
)

// Operator precedence levels (higher = tighter binding)
const (
	precedenceLowest = iota
	precedenceOr         // ||
	precedenceAnd        // &&
	precedenceBitOr      // |
	precedenceBitXor     // ^
	precedenceBitAnd     // &
	precedenceEquality   // == !=
	precedenceComparison // < <= > >=
	precedenceShift      // << >>
	precedenceAdditive   // + -
	precedenceMultiply   // * / %
	precedenceUnary      // - ! ~ & * casts
	precedencePostfix    // [] . -> calls
)

func binaryPrecedence(op ast.BinaryOp) int {
	switch op {
	case ast.OpLogicalOr:
		return precedenceOr
	case ast.OpLogicalAnd:
		return precedenceAnd
	case ast.OpOr:
		return precedenceBitOr
	case ast.OpXor:
		return precedenceBitXor
	case ast.OpAnd:
		return precedenceBitAnd
	case ast.OpEq, ast.OpNe:
		return precedenceEquality
	case ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		return precedenceComparison
	case ast.OpShl, ast.OpShr:
		return precedenceShift
	case ast.OpAdd, ast.OpSub:
		return precedenceAdditive
	default:
		return precedenceMultiply
	}
}

// renderer turns trees into target source. It is an ast.Visitor; parent
// carries the precedence of the enclosing expression.
type renderer struct {
	opts   Options
	ctor   bool // inside a constructor, where bare returns yield this_value
	parent int
}

func (r *renderer) expr(e ast.Expr, prec int) string {
	saved := r.parent
	r.parent = prec
	s := ast.Visit[string](r, e)
	r.parent = saved
	return s
}

func (r *renderer) stmt(s ast.Stmt) string {
	return ast.Visit[string](r, s)
}

func (r *renderer) wrap(s string, prec int) string {
	if prec < r.parent {
		return "(" + s + ")"
	}
	return s
}

func (r *renderer) args(args []ast.Expr) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = r.expr(a, precedenceLowest)
	}
	return strings.Join(parts, ", ")
}

func (r *renderer) VisitLiteral(n *ast.LiteralExpr) string {
	s := literal(n)
	if strings.HasPrefix(s, "-") {
		return r.wrap(s, precedenceUnary)
	}
	return s
}

func (r *renderer) VisitIdent(n *ast.IdentExpr) string { return n.Name }

func (r *renderer) VisitBinary(n *ast.BinaryExpr) string {
	prec := binaryPrecedence(n.Op)
	left := r.expr(n.Left, prec)
	right := r.expr(n.Right, prec+1)
	return r.wrap(left+" "+n.Op.Symbol()+" "+right, prec)
}

func (r *renderer) VisitUnary(n *ast.UnaryExpr) string {
	operand := r.expr(n.Operand, precedenceUnary)
	sym := n.Op.Symbol()
	// keep "- -x" from becoming a decrement
	if (sym == "-" || sym == "+") && (strings.HasPrefix(operand, "-") || strings.HasPrefix(operand, "+")) {
		operand = "(" + operand + ")"
	}
	return r.wrap(sym+operand, precedenceUnary)
}

func (r *renderer) VisitCall(n *ast.CallExpr) string {
	name := FunctionName(n.Method)
	call := name + "(" + r.args(n.Args) + ")"
	// alias constructors such as (float2) read as a cast
	if strings.HasPrefix(name, "(") {
		return r.wrap(call, precedenceUnary)
	}
	return call
}

func (r *renderer) VisitCast(n *ast.CastExpr) string {
	return r.wrap("("+n.Typ.String()+")"+r.expr(n.Expr, precedenceUnary), precedenceUnary)
}

func (r *renderer) VisitIndex(n *ast.IndexExpr) string {
	return r.expr(n.Array, precedencePostfix) + "[" + r.expr(n.Index, precedenceLowest) + "]"
}

func (r *renderer) VisitField(n *ast.FieldExpr) string {
	sep := "."
	if n.Target.Type().IsPointer() {
		sep = "->"
	}
	return r.expr(n.Target, precedencePostfix) + sep + n.Name
}

func (r *renderer) VisitAddrOf(n *ast.AddrOfExpr) string {
	return r.wrap("&"+r.expr(n.Expr, precedenceUnary), precedenceUnary)
}

func (r *renderer) VisitDeref(n *ast.DerefExpr) string {
	return r.wrap("*"+r.expr(n.Expr, precedenceUnary), precedenceUnary)
}

func (r *renderer) VisitVarDecl(n *ast.VarDecl) string {
	s := n.Typ.String() + " " + n.Name
	if n.Init != nil {
		s += " = " + r.expr(n.Init, precedenceLowest)
	}
	return s + ";"
}

func (r *renderer) VisitAssign(n *ast.AssignStmt) string {
	return r.expr(n.Target, precedenceLowest) + " = " + r.expr(n.Value, precedenceLowest) + ";"
}

func (r *renderer) VisitReturn(n *ast.ReturnStmt) string {
	switch {
	case n.Value != nil:
		return "return " + r.expr(n.Value, precedenceLowest) + ";"
	case r.ctor:
		return "return this_value;"
	default:
		return "return;"
	}
}

func (r *renderer) VisitExprStmt(n *ast.ExprStmt) string {
	return r.expr(n.Expr, precedenceLowest) + ";"
}

func (r *renderer) VisitBlock(n *ast.BlockStmt) string {
	var sb strings.Builder
	for _, s := range n.Stmts {
		line := r.stmt(s)
		if line == "" {
			continue
		}
		sb.WriteString(indent)
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (r *renderer) VisitNop(n *ast.NopStmt) string { return "" }

func (r *renderer) VisitLabel(n *ast.LabelStmt) string {
	return bytecode.Label(n.Offset) + ":;"
}

func (r *renderer) VisitComment(n *ast.CommentStmt) string {
	if !r.opts.Comments {
		return ""
	}
	return "// " + n.Text
}

func (r *renderer) VisitBranch(n *ast.BranchStmt) string {
	jump := "goto " + bytecode.Label(n.Target) + ";"
	if n.Cond == nil {
		return jump
	}
	return "if (" + r.expr(n.Cond, precedenceLowest) + ") " + jump
}
