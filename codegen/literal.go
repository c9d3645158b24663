package codegen

import (
	"fmt"
	"kernelc/ast"
	"math"
	"strconv"
	"strings"
)

// literal renders a constant in target syntax
func literal(l *ast.LiteralExpr) string {
	switch v := l.Value.(type) {
	case int32:
		if v == math.MinInt32 {
			return "(-2147483647 - 1)"
		}
		return strconv.FormatInt(int64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10) + "u"
	case int64:
		if v == math.MinInt64 {
			return "(-9223372036854775807l - 1)"
		}
		return strconv.FormatInt(v, 10) + "l"
	case uint64:
		return strconv.FormatUint(v, 10) + "ul"
	case float32:
		return formatFloat(float64(v), 32)
	case float64:
		return formatFloat(v, 64)
	case bool:
		if v {
			return "1"
		}
		return "0"
	case string:
		return quote(v)
	default:
		return fmt.Sprintf("/* unknown literal %T */ 0", l.Value)
	}
}

// formatFloat always writes a decimal point; single precision gets the f
// suffix. Non-finite values use the target's INFINITY and NAN macros.
func formatFloat(v float64, bits int) string {
	var s string
	switch {
	case math.IsInf(v, 1):
		s = "INFINITY"
	case math.IsInf(v, -1):
		s = "-INFINITY"
	case math.IsNaN(v):
		s = "NAN"
	default:
		s = strconv.FormatFloat(v, 'g', -1, bits)
		mant, exp, hasExp := strings.Cut(s, "e")
		if !strings.Contains(mant, ".") {
			mant += ".0"
		}
		s = mant
		if hasExp {
			s += "e" + exp
		}
		if bits == 32 {
			return s + "f"
		}
		return s
	}
	if bits == 64 {
		return "(double)" + s
	}
	return s
}

// quote writes a C string literal. Bytes outside printable ASCII become
// octal escapes.
func quote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			if c < 0x20 || c >= 0x7f {
				fmt.Fprintf(&sb, `\%03o`, c)
			} else {
				sb.WriteByte(c)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
