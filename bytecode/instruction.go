package bytecode

import (
	"fmt"
	"strconv"
	"strings"
)

// FieldRef names a field through its declaring type
type FieldRef struct {
	DeclaringType string
	Name          string
}

func (f FieldRef) String() string { return f.DeclaringType + "::" + f.Name }

// MethodRef names a callee. Overloads are told apart by Token when it is
// non-zero, otherwise by Params when the listing spelled them out.
type MethodRef struct {
	DeclaringType string
	Name          string
	Token         uint32
	Params        []string
}

func (m MethodRef) String() string {
	s := m.DeclaringType + "::" + m.Name
	if m.Params != nil {
		s += "(" + strings.Join(m.Params, ",") + ")"
	}
	if m.Token != 0 {
		s += fmt.Sprintf("#0x%08x", m.Token)
	}
	return s
}

// Operand holds whichever value the opcode's OperandKind selects
type Operand struct {
	Int    int64
	Float  float64
	Str    string
	Index  int // local or argument slot
	Target int // branch target offset
	Field  *FieldRef
	Method *MethodRef
	Type   string
}

// Instruction is one decoded bytecode instruction at a byte offset
type Instruction struct {
	Offset  int
	Op      OpCode
	Operand Operand
}

// New creates an instruction, filling the implicit operand of the short
// forms (ldarg.1, stloc.3, ldc.i4.5, ...).
func New(offset int, op OpCode, operand Operand) Instruction {
	switch op {
	case LDARG_0, LDARG_1, LDARG_2, LDARG_3:
		operand.Index = int(op - LDARG_0)
	case LDLOC_0, LDLOC_1, LDLOC_2, LDLOC_3:
		operand.Index = int(op - LDLOC_0)
	case STLOC_0, STLOC_1, STLOC_2, STLOC_3:
		operand.Index = int(op - STLOC_0)
	case LDC_I4_M1:
		operand.Int = -1
	case LDC_I4_0, LDC_I4_1, LDC_I4_2, LDC_I4_3, LDC_I4_4, LDC_I4_5, LDC_I4_6, LDC_I4_7, LDC_I4_8:
		operand.Int = int64(op - LDC_I4_0)
	}
	return Instruction{Offset: offset, Op: op, Operand: operand}
}

// Label returns the conventional label text for an offset
func Label(offset int) string {
	return fmt.Sprintf("IL_%04x", offset)
}

// String renders the instruction in listing syntax
func (in Instruction) String() string {
	head := Label(in.Offset) + ": " + in.Op.String()
	switch in.Op.Operand() {
	case OperandInt:
		return head + " " + strconv.FormatInt(in.Operand.Int, 10)
	case OperandFloat:
		return head + " " + strconv.FormatFloat(in.Operand.Float, 'g', -1, 64)
	case OperandString:
		return head + " " + strconv.Quote(in.Operand.Str)
	case OperandLocal, OperandArg:
		return head + " " + strconv.Itoa(in.Operand.Index)
	case OperandTarget:
		return head + " " + Label(in.Operand.Target)
	case OperandField:
		if in.Operand.Field != nil {
			return head + " " + in.Operand.Field.String()
		}
	case OperandMethod:
		if in.Operand.Method != nil {
			return head + " " + in.Operand.Method.String()
		}
	case OperandType:
		return head + " " + in.Operand.Type
	}
	return head
}

// Disassemble renders a whole instruction sequence, one per line
func Disassemble(code []Instruction) string {
	var out []byte
	for _, in := range code {
		out = append(out, in.String()...)
		out = append(out, '\n')
	}
	return string(out)
}
