package cpu

import (
	"fmt"
	"kernelc/ast"
	"kernelc/types"
	"math"
)

// ============================================================================
// UNARY OPERATORS
// ============================================================================

func unary(op ast.UnaryOp, v any, t types.Type) (any, error) {
	if r, ok := v.(*record); ok {
		out := r.clone()
		for _, name := range out.names {
			c, err := unary(op, out.fields[name], typeOf(out.fields[name]))
			if err != nil {
				return nil, err
			}
			out.fields[name] = c
		}
		return out, nil
	}

	switch op {
	case ast.OpNot:
		return boolValue(!truthy(v)), nil
	case ast.OpPlus:
		return convert(v, t)
	case ast.OpNeg:
		if t.IsFloat() {
			f, err := toFloat(v)
			if err != nil {
				return nil, err
			}
			return convert(-f, t)
		}
		i, err := toInt(v)
		if err != nil {
			return nil, err
		}
		return convert(-i, t)
	case ast.OpBitNot:
		i, err := toInt(v)
		if err != nil {
			return nil, err
		}
		return convert(^i, t)
	}
	return nil, fmt.Errorf("unknown unary operator %v", op)
}

// ============================================================================
// BINARY OPERATORS
// ============================================================================

// binary evaluates l op r with result type t. Struct operands (vector
// types) are combined component by component; a scalar operand is
// broadcast.
func binary(op ast.BinaryOp, l, r any, t types.Type) (any, error) {
	lr, lok := l.(*record)
	rr, rok := r.(*record)
	if lok || rok {
		shape := lr
		if !lok {
			shape = rr
		}
		out := shape.clone()
		for _, name := range out.names {
			lc, rc := l, r
			if lok {
				lc = lr.fields[name]
			}
			if rok {
				rc = rr.fields[name]
			}
			ct := types.Promote(typeOf(lc), typeOf(rc))
			c, err := binary(op, lc, rc, ct)
			if err != nil {
				return nil, err
			}
			out.fields[name] = c
		}
		return out, nil
	}

	switch {
	case op == ast.OpLogicalAnd:
		return boolValue(truthy(l) && truthy(r)), nil
	case op == ast.OpLogicalOr:
		return boolValue(truthy(l) || truthy(r)), nil
	case op.IsComparison():
		return compare(op, l, r)
	case op == ast.OpShl || op == ast.OpShr:
		return shift(op, l, r, t)
	}

	switch {
	case t.IsFloat():
		return floatArith(op, l, r, t)
	case t.IsUnsigned():
		return uintArith(op, l, r, t)
	default:
		return intArith(op, l, r, t)
	}
}

func compare(op ast.BinaryOp, l, r any) (any, error) {
	domain := types.Promote(typeOf(l), typeOf(r))
	var c int
	switch {
	case domain.IsFloat():
		a, err := toFloat(l)
		if err != nil {
			return nil, err
		}
		b, err := toFloat(r)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(a) || math.IsNaN(b) {
			return boolValue(op == ast.OpNe), nil
		}
		c = cmp3(a < b, a > b)
	case domain.IsUnsigned():
		a, err := toInt(l)
		if err != nil {
			return nil, err
		}
		b, err := toInt(r)
		if err != nil {
			return nil, err
		}
		c = cmp3(uint64(a) < uint64(b), uint64(a) > uint64(b))
	default:
		a, err := toInt(l)
		if err != nil {
			return nil, err
		}
		b, err := toInt(r)
		if err != nil {
			return nil, err
		}
		c = cmp3(a < b, a > b)
	}

	switch op {
	case ast.OpEq:
		return boolValue(c == 0), nil
	case ast.OpNe:
		return boolValue(c != 0), nil
	case ast.OpLt:
		return boolValue(c < 0), nil
	case ast.OpLe:
		return boolValue(c <= 0), nil
	case ast.OpGt:
		return boolValue(c > 0), nil
	default:
		return boolValue(c >= 0), nil
	}
}

func cmp3(less, greater bool) int {
	switch {
	case less:
		return -1
	case greater:
		return 1
	}
	return 0
}

func shift(op ast.BinaryOp, l, r any, t types.Type) (any, error) {
	a, err := toInt(l)
	if err != nil {
		return nil, err
	}
	n, err := toInt(r)
	if err != nil {
		return nil, err
	}
	// shift counts wrap at the operand width
	width := uint64(t.Size() * 8)
	if width == 0 {
		width = 32
	}
	count := uint64(n) % width
	if op == ast.OpShl {
		return convert(a<<count, t)
	}
	if t.IsUnsigned() {
		mask := uint64(math.MaxUint64) >> (64 - width)
		return convert((uint64(a)&mask)>>count, t)
	}
	return convert(a>>count, t)
}

func floatArith(op ast.BinaryOp, l, r any, t types.Type) (any, error) {
	a, err := toFloat(l)
	if err != nil {
		return nil, err
	}
	b, err := toFloat(r)
	if err != nil {
		return nil, err
	}
	var v float64
	switch op {
	case ast.OpAdd:
		v = a + b
	case ast.OpSub:
		v = a - b
	case ast.OpMul:
		v = a * b
	case ast.OpDiv:
		v = a / b
	case ast.OpRem:
		v = math.Mod(a, b)
	default:
		return nil, fmt.Errorf("operator %s on %s", op, t)
	}
	return convert(v, t)
}

func intArith(op ast.BinaryOp, l, r any, t types.Type) (any, error) {
	a, err := toInt(l)
	if err != nil {
		return nil, err
	}
	b, err := toInt(r)
	if err != nil {
		return nil, err
	}
	var v int64
	switch op {
	case ast.OpAdd:
		v = a + b
	case ast.OpSub:
		v = a - b
	case ast.OpMul:
		v = a * b
	case ast.OpDiv, ast.OpRem:
		if b == 0 {
			return nil, fmt.Errorf("integer division by zero")
		}
		if op == ast.OpDiv {
			v = a / b
		} else {
			v = a % b
		}
	case ast.OpAnd:
		v = a & b
	case ast.OpOr:
		v = a | b
	case ast.OpXor:
		v = a ^ b
	default:
		return nil, fmt.Errorf("operator %s on %s", op, t)
	}
	return convert(v, t)
}

func uintArith(op ast.BinaryOp, l, r any, t types.Type) (any, error) {
	ai, err := toInt(l)
	if err != nil {
		return nil, err
	}
	bi, err := toInt(r)
	if err != nil {
		return nil, err
	}
	a, b := uint64(ai), uint64(bi)
	var v uint64
	switch op {
	case ast.OpAdd:
		v = a + b
	case ast.OpSub:
		v = a - b
	case ast.OpMul:
		v = a * b
	case ast.OpDiv, ast.OpRem:
		if b == 0 {
			return nil, fmt.Errorf("integer division by zero")
		}
		if op == ast.OpDiv {
			v = a / b
		} else {
			v = a % b
		}
	case ast.OpAnd:
		v = a & b
	case ast.OpOr:
		v = a | b
	case ast.OpXor:
		v = a ^ b
	default:
		return nil, fmt.Errorf("operator %s on %s", op, t)
	}
	return convert(v, t)
}
