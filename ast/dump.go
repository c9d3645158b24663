package ast

import (
	"fmt"
	"strings"
)

// Dump renders a tree as indented S-expressions for debugging
func Dump(node Node) string {
	var sb strings.Builder
	dump(&sb, node, 0)
	return sb.String()
}

func dump(sb *strings.Builder, node Node, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(describe(node))
	sb.WriteByte('\n')
	for _, child := range node.Children() {
		dump(sb, child, depth+1)
	}
}

func describe(node Node) string {
	switch n := node.(type) {
	case *LiteralExpr:
		if str, ok := n.Value.(string); ok {
			return fmt.Sprintf("Literal %q : %s", str, n.Typ)
		}
		return fmt.Sprintf("Literal %v : %s", n.Value, n.Typ)
	case *IdentExpr:
		return fmt.Sprintf("Ident %s : %s", n.Name, n.Typ)
	case *BinaryExpr:
		return fmt.Sprintf("Binary %s : %s", n.Op, n.Typ)
	case *UnaryExpr:
		return fmt.Sprintf("Unary %s : %s", n.Op, n.Typ)
	case *CallExpr:
		name := "?"
		if n.Method != nil {
			name = n.Method.FullName()
		}
		return fmt.Sprintf("Call %s : %s", name, n.Typ)
	case *CastExpr:
		return fmt.Sprintf("Cast : %s", n.Typ)
	case *IndexExpr:
		return fmt.Sprintf("Index : %s", n.Typ)
	case *FieldExpr:
		return fmt.Sprintf("Field %s : %s", n.Name, n.Typ)
	case *AddrOfExpr:
		return fmt.Sprintf("AddrOf : %s", n.Typ)
	case *DerefExpr:
		return fmt.Sprintf("Deref : %s", n.Typ)
	case *VarDecl:
		return fmt.Sprintf("VarDecl %s : %s", n.Name, n.Typ)
	case *AssignStmt:
		return "Assign"
	case *ReturnStmt:
		return "Return"
	case *ExprStmt:
		return "ExprStmt"
	case *BlockStmt:
		return fmt.Sprintf("Block (%d)", len(n.Stmts))
	case *NopStmt:
		return "Nop"
	case *LabelStmt:
		return fmt.Sprintf("Label IL_%04x", n.Offset)
	case *CommentStmt:
		return "Comment " + n.Text
	case *BranchStmt:
		if n.Cond == nil {
			return fmt.Sprintf("Branch IL_%04x", n.Target)
		}
		return fmt.Sprintf("Branch if IL_%04x", n.Target)
	default:
		return fmt.Sprintf("%T", node)
	}
}
