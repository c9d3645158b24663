package bytecode

import "fmt"

// OpCode identifies a host bytecode instruction
type OpCode uint16

// OperandKind describes what an instruction's operand holds
type OperandKind int

const (
	OperandNone   OperandKind = iota
	OperandInt                // integer constant
	OperandFloat              // floating point constant
	OperandString             // string literal
	OperandLocal              // local variable slot
	OperandArg                // argument slot
	OperandTarget             // branch target offset
	OperandField              // field reference
	OperandMethod             // method reference
	OperandType               // type reference
)

// Misc and stack operations
const (
	NOP OpCode = iota
	DUP
	POP
	LDNULL
	LDSTR
	BOX
	INITOBJ
	NEWARR
	LDLEN
)

// Argument operations
const (
	LDARG_0 OpCode = LDLEN + 1 + iota
	LDARG_1
	LDARG_2
	LDARG_3
	LDARG
	LDARG_S
	LDARGA
	LDARGA_S
	STARG
	STARG_S
)

// Local variable operations
const (
	LDLOC_0 OpCode = STARG_S + 1 + iota
	LDLOC_1
	LDLOC_2
	LDLOC_3
	LDLOC
	LDLOC_S
	LDLOCA
	LDLOCA_S
	STLOC_0
	STLOC_1
	STLOC_2
	STLOC_3
	STLOC
	STLOC_S
)

// Constants
const (
	LDC_I4_M1 OpCode = STLOC_S + 1 + iota
	LDC_I4_0
	LDC_I4_1
	LDC_I4_2
	LDC_I4_3
	LDC_I4_4
	LDC_I4_5
	LDC_I4_6
	LDC_I4_7
	LDC_I4_8
	LDC_I4
	LDC_I4_S
	LDC_I8
	LDC_R4
	LDC_R8
)

// Calls and returns
const (
	CALL OpCode = LDC_R8 + 1 + iota
	CALLVIRT
	NEWOBJ
	RET
)

// Branches
const (
	BR OpCode = RET + 1 + iota
	BR_S
	BRFALSE
	BRFALSE_S
	BRTRUE
	BRTRUE_S
	BEQ
	BEQ_S
	BNE_UN
	BNE_UN_S
	BGE
	BGE_S
	BGE_UN
	BGE_UN_S
	BGT
	BGT_S
	BGT_UN
	BGT_UN_S
	BLE
	BLE_S
	BLE_UN
	BLE_UN_S
	BLT
	BLT_S
	BLT_UN
	BLT_UN_S
	SWITCH
)

// Arithmetic, bitwise and comparison
const (
	ADD OpCode = SWITCH + 1 + iota
	SUB
	MUL
	DIV
	DIV_UN
	REM
	REM_UN
	AND
	OR
	XOR
	SHL
	SHR
	SHR_UN
	NEG
	NOT
	CEQ
	CGT
	CGT_UN
	CLT
	CLT_UN
)

// Conversions
const (
	CONV_I OpCode = CLT_UN + 1 + iota
	CONV_I1
	CONV_I2
	CONV_I4
	CONV_I8
	CONV_U
	CONV_U1
	CONV_U2
	CONV_U4
	CONV_U8
	CONV_R4
	CONV_R8
	CONV_R_UN
	CONV_OVF_I
	CONV_OVF_I1
	CONV_OVF_I2
	CONV_OVF_I4
	CONV_OVF_I8
	CONV_OVF_U
	CONV_OVF_U1
	CONV_OVF_U2
	CONV_OVF_U4
	CONV_OVF_U8
	CONV_OVF_I_UN
	CONV_OVF_I1_UN
	CONV_OVF_I2_UN
	CONV_OVF_I4_UN
	CONV_OVF_I8_UN
	CONV_OVF_U_UN
	CONV_OVF_U1_UN
	CONV_OVF_U2_UN
	CONV_OVF_U4_UN
	CONV_OVF_U8_UN
)

// Fields
const (
	LDFLD OpCode = CONV_OVF_U8_UN + 1 + iota
	LDFLDA
	STFLD
	LDSFLD
	STSFLD
)

// Array elements
const (
	LDELEM_I1 OpCode = STSFLD + 1 + iota
	LDELEM_U1
	LDELEM_I2
	LDELEM_U2
	LDELEM_I4
	LDELEM_U4
	LDELEM_I8
	LDELEM_R4
	LDELEM_R8
	LDELEM_REF
	LDELEM
	LDELEMA
	STELEM_I1
	STELEM_I2
	STELEM_I4
	STELEM_I8
	STELEM_R4
	STELEM_R8
	STELEM_REF
	STELEM
)

// Indirect memory access
const (
	LDIND_I1 OpCode = STELEM + 1 + iota
	LDIND_U1
	LDIND_I2
	LDIND_U2
	LDIND_I4
	LDIND_U4
	LDIND_I8
	LDIND_I
	LDIND_R4
	LDIND_R8
	LDIND_REF
	STIND_I1
	STIND_I2
	STIND_I4
	STIND_I8
	STIND_R4
	STIND_R8
	STIND_REF
	LDOBJ
	STOBJ
	opcodeCount
)

type opcodeInfo struct {
	name    string
	operand OperandKind
	// size is the encoded length of the opcode itself (1 or 2 bytes)
	size int
	// short is true when the operand uses the one-byte encoding
	short bool
}

var opcodeTable = [opcodeCount]opcodeInfo{
	NOP:     {"nop", OperandNone, 1, false},
	DUP:     {"dup", OperandNone, 1, false},
	POP:     {"pop", OperandNone, 1, false},
	LDNULL:  {"ldnull", OperandNone, 1, false},
	LDSTR:   {"ldstr", OperandString, 1, false},
	BOX:     {"box", OperandType, 1, false},
	INITOBJ: {"initobj", OperandType, 2, false},
	NEWARR:  {"newarr", OperandType, 1, false},
	LDLEN:   {"ldlen", OperandNone, 1, false},

	LDARG_0:  {"ldarg.0", OperandNone, 1, false},
	LDARG_1:  {"ldarg.1", OperandNone, 1, false},
	LDARG_2:  {"ldarg.2", OperandNone, 1, false},
	LDARG_3:  {"ldarg.3", OperandNone, 1, false},
	LDARG:    {"ldarg", OperandArg, 2, false},
	LDARG_S:  {"ldarg.s", OperandArg, 1, true},
	LDARGA:   {"ldarga", OperandArg, 2, false},
	LDARGA_S: {"ldarga.s", OperandArg, 1, true},
	STARG:    {"starg", OperandArg, 2, false},
	STARG_S:  {"starg.s", OperandArg, 1, true},

	LDLOC_0:  {"ldloc.0", OperandNone, 1, false},
	LDLOC_1:  {"ldloc.1", OperandNone, 1, false},
	LDLOC_2:  {"ldloc.2", OperandNone, 1, false},
	LDLOC_3:  {"ldloc.3", OperandNone, 1, false},
	LDLOC:    {"ldloc", OperandLocal, 2, false},
	LDLOC_S:  {"ldloc.s", OperandLocal, 1, true},
	LDLOCA:   {"ldloca", OperandLocal, 2, false},
	LDLOCA_S: {"ldloca.s", OperandLocal, 1, true},
	STLOC_0:  {"stloc.0", OperandNone, 1, false},
	STLOC_1:  {"stloc.1", OperandNone, 1, false},
	STLOC_2:  {"stloc.2", OperandNone, 1, false},
	STLOC_3:  {"stloc.3", OperandNone, 1, false},
	STLOC:    {"stloc", OperandLocal, 2, false},
	STLOC_S:  {"stloc.s", OperandLocal, 1, true},

	LDC_I4_M1: {"ldc.i4.m1", OperandNone, 1, false},
	LDC_I4_0:  {"ldc.i4.0", OperandNone, 1, false},
	LDC_I4_1:  {"ldc.i4.1", OperandNone, 1, false},
	LDC_I4_2:  {"ldc.i4.2", OperandNone, 1, false},
	LDC_I4_3:  {"ldc.i4.3", OperandNone, 1, false},
	LDC_I4_4:  {"ldc.i4.4", OperandNone, 1, false},
	LDC_I4_5:  {"ldc.i4.5", OperandNone, 1, false},
	LDC_I4_6:  {"ldc.i4.6", OperandNone, 1, false},
	LDC_I4_7:  {"ldc.i4.7", OperandNone, 1, false},
	LDC_I4_8:  {"ldc.i4.8", OperandNone, 1, false},
	LDC_I4:    {"ldc.i4", OperandInt, 1, false},
	LDC_I4_S:  {"ldc.i4.s", OperandInt, 1, true},
	LDC_I8:    {"ldc.i8", OperandInt, 1, false},
	LDC_R4:    {"ldc.r4", OperandFloat, 1, false},
	LDC_R8:    {"ldc.r8", OperandFloat, 1, false},

	CALL:     {"call", OperandMethod, 1, false},
	CALLVIRT: {"callvirt", OperandMethod, 1, false},
	NEWOBJ:   {"newobj", OperandMethod, 1, false},
	RET:      {"ret", OperandNone, 1, false},

	BR:        {"br", OperandTarget, 1, false},
	BR_S:      {"br.s", OperandTarget, 1, true},
	BRFALSE:   {"brfalse", OperandTarget, 1, false},
	BRFALSE_S: {"brfalse.s", OperandTarget, 1, true},
	BRTRUE:    {"brtrue", OperandTarget, 1, false},
	BRTRUE_S:  {"brtrue.s", OperandTarget, 1, true},
	BEQ:       {"beq", OperandTarget, 1, false},
	BEQ_S:     {"beq.s", OperandTarget, 1, true},
	BNE_UN:    {"bne.un", OperandTarget, 1, false},
	BNE_UN_S:  {"bne.un.s", OperandTarget, 1, true},
	BGE:       {"bge", OperandTarget, 1, false},
	BGE_S:     {"bge.s", OperandTarget, 1, true},
	BGE_UN:    {"bge.un", OperandTarget, 1, false},
	BGE_UN_S:  {"bge.un.s", OperandTarget, 1, true},
	BGT:       {"bgt", OperandTarget, 1, false},
	BGT_S:     {"bgt.s", OperandTarget, 1, true},
	BGT_UN:    {"bgt.un", OperandTarget, 1, false},
	BGT_UN_S:  {"bgt.un.s", OperandTarget, 1, true},
	BLE:       {"ble", OperandTarget, 1, false},
	BLE_S:     {"ble.s", OperandTarget, 1, true},
	BLE_UN:    {"ble.un", OperandTarget, 1, false},
	BLE_UN_S:  {"ble.un.s", OperandTarget, 1, true},
	BLT:       {"blt", OperandTarget, 1, false},
	BLT_S:     {"blt.s", OperandTarget, 1, true},
	BLT_UN:    {"blt.un", OperandTarget, 1, false},
	BLT_UN_S:  {"blt.un.s", OperandTarget, 1, true},
	SWITCH:    {"switch", OperandNone, 1, false},

	ADD:    {"add", OperandNone, 1, false},
	SUB:    {"sub", OperandNone, 1, false},
	MUL:    {"mul", OperandNone, 1, false},
	DIV:    {"div", OperandNone, 1, false},
	DIV_UN: {"div.un", OperandNone, 1, false},
	REM:    {"rem", OperandNone, 1, false},
	REM_UN: {"rem.un", OperandNone, 1, false},
	AND:    {"and", OperandNone, 1, false},
	OR:     {"or", OperandNone, 1, false},
	XOR:    {"xor", OperandNone, 1, false},
	SHL:    {"shl", OperandNone, 1, false},
	SHR:    {"shr", OperandNone, 1, false},
	SHR_UN: {"shr.un", OperandNone, 1, false},
	NEG:    {"neg", OperandNone, 1, false},
	NOT:    {"not", OperandNone, 1, false},
	CEQ:    {"ceq", OperandNone, 2, false},
	CGT:    {"cgt", OperandNone, 2, false},
	CGT_UN: {"cgt.un", OperandNone, 2, false},
	CLT:    {"clt", OperandNone, 2, false},
	CLT_UN: {"clt.un", OperandNone, 2, false},

	CONV_I:         {"conv.i", OperandNone, 1, false},
	CONV_I1:        {"conv.i1", OperandNone, 1, false},
	CONV_I2:        {"conv.i2", OperandNone, 1, false},
	CONV_I4:        {"conv.i4", OperandNone, 1, false},
	CONV_I8:        {"conv.i8", OperandNone, 1, false},
	CONV_U:         {"conv.u", OperandNone, 1, false},
	CONV_U1:        {"conv.u1", OperandNone, 1, false},
	CONV_U2:        {"conv.u2", OperandNone, 1, false},
	CONV_U4:        {"conv.u4", OperandNone, 1, false},
	CONV_U8:        {"conv.u8", OperandNone, 1, false},
	CONV_R4:        {"conv.r4", OperandNone, 1, false},
	CONV_R8:        {"conv.r8", OperandNone, 1, false},
	CONV_R_UN:      {"conv.r.un", OperandNone, 1, false},
	CONV_OVF_I:     {"conv.ovf.i", OperandNone, 1, false},
	CONV_OVF_I1:    {"conv.ovf.i1", OperandNone, 1, false},
	CONV_OVF_I2:    {"conv.ovf.i2", OperandNone, 1, false},
	CONV_OVF_I4:    {"conv.ovf.i4", OperandNone, 1, false},
	CONV_OVF_I8:    {"conv.ovf.i8", OperandNone, 1, false},
	CONV_OVF_U:     {"conv.ovf.u", OperandNone, 1, false},
	CONV_OVF_U1:    {"conv.ovf.u1", OperandNone, 1, false},
	CONV_OVF_U2:    {"conv.ovf.u2", OperandNone, 1, false},
	CONV_OVF_U4:    {"conv.ovf.u4", OperandNone, 1, false},
	CONV_OVF_U8:    {"conv.ovf.u8", OperandNone, 1, false},
	CONV_OVF_I_UN:  {"conv.ovf.i.un", OperandNone, 1, false},
	CONV_OVF_I1_UN: {"conv.ovf.i1.un", OperandNone, 1, false},
	CONV_OVF_I2_UN: {"conv.ovf.i2.un", OperandNone, 1, false},
	CONV_OVF_I4_UN: {"conv.ovf.i4.un", OperandNone, 1, false},
	CONV_OVF_I8_UN: {"conv.ovf.i8.un", OperandNone, 1, false},
	CONV_OVF_U_UN:  {"conv.ovf.u.un", OperandNone, 1, false},
	CONV_OVF_U1_UN: {"conv.ovf.u1.un", OperandNone, 1, false},
	CONV_OVF_U2_UN: {"conv.ovf.u2.un", OperandNone, 1, false},
	CONV_OVF_U4_UN: {"conv.ovf.u4.un", OperandNone, 1, false},
	CONV_OVF_U8_UN: {"conv.ovf.u8.un", OperandNone, 1, false},

	LDFLD:  {"ldfld", OperandField, 1, false},
	LDFLDA: {"ldflda", OperandField, 1, false},
	STFLD:  {"stfld", OperandField, 1, false},
	LDSFLD: {"ldsfld", OperandField, 1, false},
	STSFLD: {"stsfld", OperandField, 1, false},

	LDELEM_I1:  {"ldelem.i1", OperandNone, 1, false},
	LDELEM_U1:  {"ldelem.u1", OperandNone, 1, false},
	LDELEM_I2:  {"ldelem.i2", OperandNone, 1, false},
	LDELEM_U2:  {"ldelem.u2", OperandNone, 1, false},
	LDELEM_I4:  {"ldelem.i4", OperandNone, 1, false},
	LDELEM_U4:  {"ldelem.u4", OperandNone, 1, false},
	LDELEM_I8:  {"ldelem.i8", OperandNone, 1, false},
	LDELEM_R4:  {"ldelem.r4", OperandNone, 1, false},
	LDELEM_R8:  {"ldelem.r8", OperandNone, 1, false},
	LDELEM_REF: {"ldelem.ref", OperandNone, 1, false},
	LDELEM:     {"ldelem", OperandType, 1, false},
	LDELEMA:    {"ldelema", OperandType, 1, false},
	STELEM_I1:  {"stelem.i1", OperandNone, 1, false},
	STELEM_I2:  {"stelem.i2", OperandNone, 1, false},
	STELEM_I4:  {"stelem.i4", OperandNone, 1, false},
	STELEM_I8:  {"stelem.i8", OperandNone, 1, false},
	STELEM_R4:  {"stelem.r4", OperandNone, 1, false},
	STELEM_R8:  {"stelem.r8", OperandNone, 1, false},
	STELEM_REF: {"stelem.ref", OperandNone, 1, false},
	STELEM:     {"stelem", OperandType, 1, false},

	LDIND_I1:  {"ldind.i1", OperandNone, 1, false},
	LDIND_U1:  {"ldind.u1", OperandNone, 1, false},
	LDIND_I2:  {"ldind.i2", OperandNone, 1, false},
	LDIND_U2:  {"ldind.u2", OperandNone, 1, false},
	LDIND_I4:  {"ldind.i4", OperandNone, 1, false},
	LDIND_U4:  {"ldind.u4", OperandNone, 1, false},
	LDIND_I8:  {"ldind.i8", OperandNone, 1, false},
	LDIND_I:   {"ldind.i", OperandNone, 1, false},
	LDIND_R4:  {"ldind.r4", OperandNone, 1, false},
	LDIND_R8:  {"ldind.r8", OperandNone, 1, false},
	LDIND_REF: {"ldind.ref", OperandNone, 1, false},
	STIND_I1:  {"stind.i1", OperandNone, 1, false},
	STIND_I2:  {"stind.i2", OperandNone, 1, false},
	STIND_I4:  {"stind.i4", OperandNone, 1, false},
	STIND_I8:  {"stind.i8", OperandNone, 1, false},
	STIND_R4:  {"stind.r4", OperandNone, 1, false},
	STIND_R8:  {"stind.r8", OperandNone, 1, false},
	STIND_REF: {"stind.ref", OperandNone, 1, false},
	LDOBJ:     {"ldobj", OperandType, 1, false},
	STOBJ:     {"stobj", OperandType, 1, false},
}

// opcodeByName is the reverse of opcodeTable, built at init
var opcodeByName = func() map[string]OpCode {
	m := make(map[string]OpCode, opcodeCount)
	for op := OpCode(0); op < opcodeCount; op++ {
		if name := opcodeTable[op].name; name != "" {
			m[name] = op
		}
	}
	return m
}()

// String returns the mnemonic of an opcode
func (op OpCode) String() string {
	if op < opcodeCount && opcodeTable[op].name != "" {
		return opcodeTable[op].name
	}
	return fmt.Sprintf("OP_%d", uint16(op))
}

// Operand returns the kind of operand the opcode takes
func (op OpCode) Operand() OperandKind {
	if op < opcodeCount {
		return opcodeTable[op].operand
	}
	return OperandNone
}

// Valid reports whether op is a known opcode
func (op OpCode) Valid() bool {
	return op < opcodeCount && opcodeTable[op].name != ""
}

// Lookup finds an opcode by mnemonic (e.g. "ldarg.0")
func Lookup(name string) (OpCode, bool) {
	op, ok := opcodeByName[name]
	return op, ok
}

// Size returns the encoded size of an instruction with this opcode,
// operand included. Offsets assigned by the listing parser follow it.
func (op OpCode) Size() int {
	if !op.Valid() {
		return 1
	}
	info := opcodeTable[op]
	n := info.size
	switch info.operand {
	case OperandNone:
	case OperandInt:
		switch {
		case info.short:
			n++
		case op == LDC_I8:
			n += 8
		default:
			n += 4
		}
	case OperandFloat:
		if op == LDC_R8 {
			n += 8
		} else {
			n += 4
		}
	case OperandLocal, OperandArg:
		if info.short {
			n++
		} else {
			n += 2
		}
	case OperandTarget:
		if info.short {
			n++
		} else {
			n += 4
		}
	default:
		// metadata tokens
		n += 4
	}
	return n
}

// IsBranch reports whether op transfers control to an operand target
func (op OpCode) IsBranch() bool {
	return op.Operand() == OperandTarget
}
