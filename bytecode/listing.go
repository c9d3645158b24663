package bytecode

import (
	"bufio"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ParseListing reads a textual instruction listing, one instruction per line:
//
//	IL_0000: ldarg.0
//	IL_0001: ldc.r4 2
//	IL_0006: call float32 CL.BuiltIn::Sqrt(float32)
//	IL_000b: brtrue.s IL_0010   // comments run to end of line
//
// The IL_xxxx label is optional. Unlabelled instructions are placed right
// after the previous one using the encoded instruction size.
func ParseListing(text string) ([]Instruction, error) {
	var code []Instruction
	next := 0
	lineNo := 0

	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(stripComment(scanner.Text()))
		if line == "" {
			continue
		}

		offset := next
		if label, rest, ok := cutLabel(line); ok {
			offset = label
			line = rest
		}
		if len(code) > 0 && offset <= code[len(code)-1].Offset {
			return nil, errors.Errorf("line %d: offset %s is not after %s", lineNo, Label(offset), Label(code[len(code)-1].Offset))
		}

		mnemonic, operandText, _ := strings.Cut(line, " ")
		op, ok := Lookup(strings.ToLower(mnemonic))
		if !ok {
			return nil, errors.Errorf("line %d: unknown opcode %q", lineNo, mnemonic)
		}

		operand, err := parseOperand(op, strings.TrimSpace(operandText))
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: %s", lineNo, op)
		}

		code = append(code, New(offset, op, operand))
		next = offset + op.Size()
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return code, nil
}

// MustParseListing is ParseListing for listings known to be valid
func MustParseListing(text string) []Instruction {
	code, err := ParseListing(text)
	if err != nil {
		panic(err)
	}
	return code
}

// stripComment removes a trailing // comment outside string literals
func stripComment(line string) string {
	inString := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '\\':
			if inString {
				i++
			}
		case '"':
			inString = !inString
		case '/':
			if !inString && i+1 < len(line) && line[i+1] == '/' {
				return line[:i]
			}
		}
	}
	return line
}

func cutLabel(line string) (int, string, bool) {
	if !strings.HasPrefix(line, "IL_") {
		return 0, line, false
	}
	label, rest, ok := strings.Cut(line, ":")
	if !ok {
		return 0, line, false
	}
	offset, err := parseOffset(label)
	if err != nil {
		return 0, line, false
	}
	return offset, strings.TrimSpace(rest), true
}

func parseOffset(s string) (int, error) {
	if hex, ok := strings.CutPrefix(s, "IL_"); ok {
		v, err := strconv.ParseInt(hex, 16, 32)
		return int(v), err
	}
	v, err := strconv.ParseInt(s, 0, 32)
	return int(v), err
}

func parseOperand(op OpCode, s string) (Operand, error) {
	var operand Operand
	kind := op.Operand()
	if kind == OperandNone {
		if s != "" {
			return operand, errors.Errorf("unexpected operand %q", s)
		}
		return operand, nil
	}
	if s == "" {
		return operand, errors.New("missing operand")
	}

	switch kind {
	case OperandInt:
		v, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			return operand, errors.Wrap(err, "integer operand")
		}
		if lo, hi, ok := intRange(op); ok && (v < lo || v > hi) {
			return operand, errors.Errorf("integer operand %d out of range [%d, %d]", v, lo, hi)
		}
		operand.Int = v
	case OperandFloat:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			v, err = strconv.ParseFloat(strings.TrimSuffix(s, "f"), 64)
		}
		if err != nil {
			return operand, errors.Wrap(err, "float operand")
		}
		operand.Float = v
	case OperandString:
		v, err := strconv.Unquote(s)
		if err != nil {
			return operand, errors.Wrap(err, "string operand")
		}
		operand.Str = v
	case OperandLocal, OperandArg:
		v, err := strconv.Atoi(strings.TrimPrefix(s, "V_"))
		if err != nil {
			return operand, errors.Wrap(err, "slot operand")
		}
		operand.Index = v
	case OperandTarget:
		v, err := parseOffset(s)
		if err != nil {
			return operand, errors.Wrap(err, "branch target")
		}
		operand.Target = v
	case OperandField:
		decl, name, _, _, err := parseMember(s)
		if err != nil {
			return operand, err
		}
		operand.Field = &FieldRef{DeclaringType: decl, Name: name}
	case OperandMethod:
		decl, name, params, token, err := parseMember(s)
		if err != nil {
			return operand, err
		}
		operand.Method = &MethodRef{DeclaringType: decl, Name: name, Params: params, Token: token}
	case OperandType:
		operand.Type = strings.TrimSpace(strings.TrimPrefix(s, "valuetype "))
	}
	return operand, nil
}

// intRange bounds the integer operand of the short and 32-bit constant loads
func intRange(op OpCode) (lo, hi int64, ok bool) {
	switch op {
	case LDC_I4_S:
		return math.MinInt8, math.MaxInt8, true
	case LDC_I4:
		return math.MinInt32, math.MaxInt32, true
	}
	return 0, 0, false
}

// parseMember splits "[instance] [type] Decl.Type::Name[(params)][#token]"
func parseMember(s string) (decl, name string, params []string, token uint32, err error) {
	left, right, ok := strings.Cut(s, "::")
	if !ok {
		return "", "", nil, 0, errors.Errorf("member reference %q has no '::'", s)
	}
	words := strings.Fields(left)
	if len(words) == 0 {
		return "", "", nil, 0, errors.Errorf("member reference %q has no declaring type", s)
	}
	decl = words[len(words)-1]

	if i := strings.LastIndexByte(right, '#'); i >= 0 {
		v, perr := strconv.ParseUint(strings.TrimSpace(right[i+1:]), 0, 32)
		if perr != nil {
			return "", "", nil, 0, errors.Wrapf(perr, "token in %q", s)
		}
		token = uint32(v)
		right = right[:i]
	}

	if open := strings.IndexByte(right, '('); open >= 0 {
		closing := strings.LastIndexByte(right, ')')
		if closing < open {
			return "", "", nil, 0, errors.Errorf("unbalanced parameter list in %q", s)
		}
		params = []string{}
		for _, p := range strings.Split(right[open+1:closing], ",") {
			if p = strings.TrimSpace(p); p != "" {
				params = append(params, p)
			}
		}
		right = right[:open]
	}

	name = strings.TrimSpace(right)
	if name == "" {
		return "", "", nil, 0, errors.Errorf("member reference %q has no name", s)
	}
	return decl, name, params, token, nil
}
