package ast

// BinaryOp is an infix operator
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpRem
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpLogicalAnd
	OpLogicalOr
)

var binarySymbols = [...]string{
	OpAdd:        "+",
	OpSub:        "-",
	OpMul:        "*",
	OpDiv:        "/",
	OpRem:        "%",
	OpAnd:        "&",
	OpOr:         "|",
	OpXor:        "^",
	OpShl:        "<<",
	OpShr:        ">>",
	OpEq:         "==",
	OpNe:         "!=",
	OpLt:         "<",
	OpLe:         "<=",
	OpGt:         ">",
	OpGe:         ">=",
	OpLogicalAnd: "&&",
	OpLogicalOr:  "||",
}

// Symbol returns the operator as written in C
func (op BinaryOp) Symbol() string { return binarySymbols[op] }

func (op BinaryOp) String() string { return binarySymbols[op] }

// IsComparison reports operators yielding a truth value
func (op BinaryOp) IsComparison() bool {
	return op >= OpEq && op <= OpGe
}

// BinaryOpFromSymbol looks an operator up by its C spelling
func BinaryOpFromSymbol(sym string) (BinaryOp, bool) {
	for op, s := range binarySymbols {
		if s == sym {
			return BinaryOp(op), true
		}
	}
	return 0, false
}

// UnaryOp is a prefix operator
type UnaryOp int

const (
	OpNeg UnaryOp = iota
	OpBitNot
	OpNot
	OpPlus
)

var unarySymbols = [...]string{
	OpNeg:    "-",
	OpBitNot: "~",
	OpNot:    "!",
	OpPlus:   "+",
}

// Symbol returns the operator as written in C
func (op UnaryOp) Symbol() string { return unarySymbols[op] }

func (op UnaryOp) String() string { return unarySymbols[op] }

// UnaryOpFromSymbol looks an operator up by its C spelling
func UnaryOpFromSymbol(sym string) (UnaryOp, bool) {
	for op, s := range unarySymbols {
		if s == sym {
			return UnaryOp(op), true
		}
	}
	return 0, false
}
