package ast

import (
	"kernelc/types"
	"strings"
	"testing"
)

// countingVisitor counts the variants it sees, recursing through children
type countingVisitor struct {
	seen map[string]int
}

func (v *countingVisitor) hit(kind string, n Node) int {
	v.seen[kind]++
	for _, c := range n.Children() {
		Visit[int](v, c)
	}
	return v.seen[kind]
}

func (v *countingVisitor) VisitLiteral(n *LiteralExpr) int   { return v.hit("literal", n) }
func (v *countingVisitor) VisitIdent(n *IdentExpr) int       { return v.hit("ident", n) }
func (v *countingVisitor) VisitBinary(n *BinaryExpr) int     { return v.hit("binary", n) }
func (v *countingVisitor) VisitUnary(n *UnaryExpr) int       { return v.hit("unary", n) }
func (v *countingVisitor) VisitCall(n *CallExpr) int         { return v.hit("call", n) }
func (v *countingVisitor) VisitCast(n *CastExpr) int         { return v.hit("cast", n) }
func (v *countingVisitor) VisitIndex(n *IndexExpr) int       { return v.hit("index", n) }
func (v *countingVisitor) VisitField(n *FieldExpr) int       { return v.hit("field", n) }
func (v *countingVisitor) VisitAddrOf(n *AddrOfExpr) int     { return v.hit("addrof", n) }
func (v *countingVisitor) VisitDeref(n *DerefExpr) int       { return v.hit("deref", n) }
func (v *countingVisitor) VisitVarDecl(n *VarDecl) int       { return v.hit("vardecl", n) }
func (v *countingVisitor) VisitAssign(n *AssignStmt) int     { return v.hit("assign", n) }
func (v *countingVisitor) VisitReturn(n *ReturnStmt) int     { return v.hit("return", n) }
func (v *countingVisitor) VisitExprStmt(n *ExprStmt) int     { return v.hit("exprstmt", n) }
func (v *countingVisitor) VisitBlock(n *BlockStmt) int       { return v.hit("block", n) }
func (v *countingVisitor) VisitNop(n *NopStmt) int           { return v.hit("nop", n) }
func (v *countingVisitor) VisitLabel(n *LabelStmt) int       { return v.hit("label", n) }
func (v *countingVisitor) VisitComment(n *CommentStmt) int   { return v.hit("comment", n) }
func (v *countingVisitor) VisitBranch(n *BranchStmt) int     { return v.hit("branch", n) }

func sampleBlock() *BlockStmt {
	out := &IdentExpr{Name: "out", Typ: types.ArrayOf(types.Float32)}
	i := &IdentExpr{Name: "local0", Typ: types.Int32}
	return &BlockStmt{Stmts: []Stmt{
		&VarDecl{Name: "local0", Typ: types.Int32},
		&CommentStmt{Text: "IL_0000: ldc.i4.0"},
		&LabelStmt{Offset: 0},
		&AssignStmt{Target: i, Value: Int(0)},
		&NopStmt{},
		&BranchStmt{Cond: &BinaryExpr{Op: OpGe, Left: i, Right: UInt(8), Typ: types.Int32}, Target: 0x20},
		&AssignStmt{
			Target: &IndexExpr{Array: out, Index: i, Typ: types.Float32},
			Value:  &CastExpr{Expr: &UnaryExpr{Op: OpNeg, Operand: i, Typ: types.Int32}, Typ: types.Float32},
		},
		&ExprStmt{Expr: &CallExpr{Args: []Expr{AddrOf(i)}, Typ: types.Void}},
		&AssignStmt{Target: &FieldExpr{Target: &DerefExpr{Expr: AddrOf(i), Typ: types.Int32}, Name: "x", Typ: types.Float32}, Value: Float(1)},
		&BranchStmt{Target: 0},
		&ReturnStmt{},
	}}
}

func TestVisitDispatchesEveryVariant(t *testing.T) {
	v := &countingVisitor{seen: map[string]int{}}
	Visit[int](v, sampleBlock())

	for _, kind := range []string{
		"literal", "ident", "binary", "unary", "call", "cast", "index", "field", "addrof", "deref",
		"vardecl", "assign", "return", "exprstmt", "block", "nop", "label", "comment", "branch",
	} {
		if v.seen[kind] == 0 {
			t.Errorf("variant %s never visited", kind)
		}
	}
	if v.seen["assign"] != 3 || v.seen["branch"] != 2 {
		t.Errorf("assign=%d branch=%d", v.seen["assign"], v.seen["branch"])
	}
}

func TestInspect(t *testing.T) {
	var idents []string
	Inspect(sampleBlock(), func(n Node) bool {
		if id, ok := n.(*IdentExpr); ok {
			idents = append(idents, id.Name)
		}
		return true
	})
	if len(idents) != 7 {
		t.Errorf("got %d identifiers: %v", len(idents), idents)
	}

	visited := 0
	Inspect(sampleBlock(), func(n Node) bool {
		visited++
		_, isBlock := n.(*BlockStmt)
		return isBlock
	})
	if visited != 12 {
		t.Errorf("pruned walk visited %d nodes, want 12 (block + 11 statements)", visited)
	}
}

func TestChildren(t *testing.T) {
	if (&ReturnStmt{}).Children() != nil {
		t.Error("void return has children")
	}
	if got := len((&ReturnStmt{Value: Int(1)}).Children()); got != 1 {
		t.Errorf("return children = %d", got)
	}
	if (&BranchStmt{Target: 4}).Children() != nil {
		t.Error("unconditional branch has children")
	}
	addr := AddrOf(&IdentExpr{Name: "p", Typ: types.Int32})
	if !addr.Type().Equal(types.PointerTo(types.Int32)) {
		t.Errorf("AddrOf type = %s", addr.Type())
	}
}

func TestOperatorSymbols(t *testing.T) {
	for _, sym := range []string{"+", "-", "*", "/", "%", "&", "|", "^", "<<", ">>", "==", "!=", "<", "<=", ">", ">="} {
		op, ok := BinaryOpFromSymbol(sym)
		if !ok || op.Symbol() != sym {
			t.Errorf("BinaryOpFromSymbol(%q) = %v, %v", sym, op, ok)
		}
	}
	if _, ok := BinaryOpFromSymbol("<=>"); ok {
		t.Error("unknown binary symbol accepted")
	}
	if op, ok := UnaryOpFromSymbol("~"); !ok || op != OpBitNot {
		t.Errorf("UnaryOpFromSymbol(~) = %v, %v", op, ok)
	}
	if !OpLt.IsComparison() || OpAdd.IsComparison() {
		t.Error("IsComparison")
	}
}

func TestDump(t *testing.T) {
	out := Dump(sampleBlock())
	for _, want := range []string{"Block (11)", "  Label IL_0000", "Branch if IL_0020", "Literal 8 : uint", "Ident out : float*"} {
		if !strings.Contains(out, want) {
			t.Errorf("dump missing %q:\n%s", want, out)
		}
	}
}
