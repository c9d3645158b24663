package compiler

import (
	"kernelc/ast"
	"kernelc/bytecode"
	"kernelc/meta"
	"kernelc/trace"
	"kernelc/types"
	"strconv"

	"github.com/pkg/errors"
)

// Param is a parameter as the generated function declares it. Struct
// parameters not passed by value already carry their pointer type.
type Param struct {
	Name       string
	Type       types.Type
	Qualifiers []meta.Qualifier
}

// Result is a compiled method body plus everything it depends on
type Result struct {
	Method *meta.MethodDesc
	This   *types.Type // receiver pointer type, nil for static methods
	Params []Param
	Return types.Type
	Body   *ast.BlockStmt

	// Types and Methods are deduplicated in discovery order
	Types   []*meta.TypeDesc
	Methods []*meta.MethodDesc
}

// Compiler reconstructs typed trees from stack bytecode
type Compiler struct {
	store *meta.Store
	table *Table
}

// New creates a compiler over store using the default dispatch table
func New(store *meta.Store) *Compiler {
	return NewWithTable(store, DefaultTable())
}

// NewWithTable creates a compiler with a custom dispatch table
func NewWithTable(store *meta.Store, table *Table) *Compiler {
	return &Compiler{store: store, table: table}
}

// Store returns the metadata store the compiler resolves against
func (cc *Compiler) Store() *meta.Store { return cc.store }

// CompileMethod decompiles one method. Any failure aborts the whole method.
func (cc *Compiler) CompileMethod(m *meta.MethodDesc) (*Result, error) {
	trace.Method(m.FullName(), len(m.Body), len(m.Locals))
	res, err := cc.compile(m)
	if err != nil {
		trace.Fail(m.FullName(), err)
		return nil, err
	}
	return res, nil
}

func (cc *Compiler) compile(m *meta.MethodDesc) (*Result, error) {
	name := m.FullName()
	ctx := newContext(cc.store, m)
	res := &Result{Method: m}

	if m.HasThis() {
		st, err := ctx.StructType(m.DeclaringType)
		if err != nil {
			return nil, meta.Attach(errors.Wrap(err, "receiver"), meta.E_UNRESOLVED_TYPE, name, -1)
		}
		this := types.PointerTo(st)
		res.This = &this
		ctx.args = append(ctx.args, &ast.IdentExpr{Name: "this", Typ: this})
	}

	for i, p := range m.Params {
		t, err := ctx.Classify(p.Type)
		if err != nil {
			return nil, meta.Attach(errors.Wrapf(err, "parameter %d", i), meta.E_UNSUPPORTED_TYPE, name, -1)
		}
		if byAddress(t, p) {
			t = types.PointerTo(t)
			ctx.byRef[len(ctx.args)] = true
		}
		param := Param{Name: paramName(p.Name, i), Type: t, Qualifiers: p.Qualifiers}
		res.Params = append(res.Params, param)
		ctx.args = append(ctx.args, &ast.IdentExpr{Name: param.Name, Typ: t})
	}

	if m.Constructor {
		st, err := ctx.StructType(m.DeclaringType)
		if err != nil {
			return nil, meta.Attach(err, meta.E_UNRESOLVED_TYPE, name, -1)
		}
		res.Return = st
	} else {
		ret, err := ctx.Classify(m.Return)
		if err != nil {
			return nil, meta.Attach(errors.Wrap(err, "return type"), meta.E_UNSUPPORTED_TYPE, name, -1)
		}
		res.Return = ret
	}
	if m.Kernel {
		res.Return = types.Void
	}

	for i, ref := range m.Locals {
		t, err := ctx.Classify(ref)
		if err != nil {
			return nil, meta.Attach(errors.Wrapf(err, "local %d", i), meta.E_UNSUPPORTED_TYPE, name, -1)
		}
		local := &ast.IdentExpr{Name: "local" + strconv.Itoa(i), Typ: t}
		ctx.locals = append(ctx.locals, local)
		ctx.Emit(&ast.VarDecl{Name: local.Name, Typ: t})
	}

	if err := checkTargets(m.Body); err != nil {
		return nil, meta.Attach(err, meta.E_UNSUPPORTED_INSTRUCTION, name, -1)
	}

	for _, in := range m.Body {
		trace.Instr(name, in.Offset, in.Op.String(), ctx.Depth())
		ctx.Emit(&ast.CommentStmt{Text: in.String()})
		ctx.Emit(&ast.LabelStmt{Offset: in.Offset})

		h, err := cc.table.Lookup(in.Op)
		if err != nil {
			return nil, meta.Attach(err, meta.E_UNSUPPORTED_INSTRUCTION, name, in.Offset)
		}
		stmt, err := h(ctx, in)
		if err != nil {
			return nil, meta.Attach(errors.Wrap(err, in.Op.String()), meta.E_UNSUPPORTED_INSTRUCTION, name, in.Offset)
		}
		if stmt != nil {
			ctx.Emit(stmt)
		}
	}

	res.Body = &ast.BlockStmt{Stmts: ctx.stmts}
	res.Types = ctx.types
	res.Methods = ctx.methods
	return res, nil
}

// checkTargets rejects branches to an offset no instruction starts at
func checkTargets(code []bytecode.Instruction) error {
	offsets := make(map[int]bool, len(code))
	for _, in := range code {
		offsets[in.Offset] = true
	}
	for _, in := range code {
		if in.Op.IsBranch() && !offsets[in.Operand.Target] {
			e := meta.Errorf(meta.E_UNSUPPORTED_INSTRUCTION, "%s targets %s, which is not an instruction", in.Op, bytecode.Label(in.Operand.Target))
			e.Offset = in.Offset
			return e
		}
	}
	return nil
}

func paramName(name string, i int) string {
	if name == "" {
		return "arg" + strconv.Itoa(i)
	}
	return types.Sanitize(name)
}
