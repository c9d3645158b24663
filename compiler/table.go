package compiler

import (
	"kernelc/ast"
	"kernelc/bytecode"
	"kernelc/meta"
	"sort"
	"sync"
)

// Handler turns one instruction into stack effects and at most one statement
type Handler func(c *Context, in bytecode.Instruction) (ast.Stmt, error)

// Table maps opcodes to their handlers
type Table struct {
	handlers map[bytecode.OpCode]Handler
}

// NewTable creates an empty table
func NewTable() *Table {
	return &Table{handlers: make(map[bytecode.OpCode]Handler)}
}

// Register installs h for every listed opcode, replacing earlier entries
func (t *Table) Register(h Handler, ops ...bytecode.OpCode) {
	for _, op := range ops {
		t.handlers[op] = h
	}
}

// Lookup returns the handler for op
func (t *Table) Lookup(op bytecode.OpCode) (Handler, error) {
	if h, ok := t.handlers[op]; ok {
		return h, nil
	}
	return nil, meta.Errorf(meta.E_UNSUPPORTED_INSTRUCTION, "no handler for %s", op)
}

// Opcodes lists the registered opcodes in numeric order
func (t *Table) Opcodes() []bytecode.OpCode {
	ops := make([]bytecode.OpCode, 0, len(t.handlers))
	for op := range t.handlers {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	return ops
}

// DefaultTable is built once per process from every handler group
var DefaultTable = sync.OnceValue(func() *Table {
	t := NewTable()
	registerStack(t)
	registerArith(t)
	registerConv(t)
	registerLoadStore(t)
	registerFields(t)
	registerElements(t)
	registerIndirect(t)
	registerBranches(t)
	registerCalls(t)
	return t
})
