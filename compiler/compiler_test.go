package compiler

import (
	"kernelc/ast"
	"kernelc/bytecode"
	"kernelc/meta"
	"kernelc/types"
	"testing"

	"github.com/pkg/errors"
)

const samplesManifest = `
name: samples
types:
  - name: Samples.Particle
    fields:
      - {name: position, type: CL.Float2}
      - {name: mass, type: float}
methods:
  - type: Samples.Kernels
    name: VectorAdd
    static: true
    kernel: true
    params:
      - {name: a, type: "float[]", qualifiers: [global, const]}
      - {name: b, type: "float[]", qualifiers: [global, const]}
      - {name: c, type: "float[]", qualifiers: [global]}
    locals: [int]
    body: |
      IL_0000: ldc.i4.0
      IL_0001: call int32 CL.BuiltIn::GetGlobalId(int32)
      IL_0006: stloc.0
      IL_0007: ldarg.2
      IL_0008: ldloc.0
      IL_0009: ldarg.0
      IL_000a: ldloc.0
      IL_000b: ldelem.r4
      IL_000c: ldarg.1
      IL_000d: ldloc.0
      IL_000e: ldelem.r4
      IL_000f: add
      IL_0010: stelem.r4
      IL_0011: ret
  - type: Samples.Physics
    name: Mass
    static: true
    params: [{name: p, type: Samples.Particle}]
    returns: float
    body: |
      ldarg.0
      ldfld float32 Samples.Particle::mass
      ret
  - type: Samples.Physics
    name: Move
    static: true
    kernel: true
    params: [{name: particles, type: "Samples.Particle[]", qualifiers: [global]}]
    locals: [float]
    body: |
      IL_0000: ldarg.0
      IL_0001: ldc.i4.0
      IL_0002: ldelem Samples.Particle
      IL_0007: call float32 Samples.Physics::Mass(valuetype Samples.Particle)
      IL_000c: stloc.0
      IL_000d: ldarg.0
      IL_000e: ldc.i4.1
      IL_000f: ldelema Samples.Particle
      IL_0014: ldloc.0
      IL_0015: stfld float32 Samples.Particle::mass
      IL_001a: ret
  - type: Samples.Kernels
    name: Vectors
    static: true
    kernel: true
    params: [{name: out, type: "CL.Float4[]", qualifiers: [global]}]
    locals: [CL.Float4, CL.Float2]
    body: |
      IL_0000: ldloca.s 0
      IL_0002: ldc.r4 1
      IL_0007: ldc.r4 2
      IL_000c: ldc.r4 3
      IL_0011: ldc.r4 4
      IL_0016: call instance void CL.Float4::.ctor(float32, float32, float32, float32)
      IL_001b: ldloca.s 0
      IL_001d: call instance valuetype CL.Float2 CL.Float4::get_XY()
      IL_0022: stloc.1
      IL_0023: ldarg.0
      IL_0024: ldc.i4.0
      IL_0025: ldloc.0
      IL_0026: ldloc.0
      IL_0027: call valuetype CL.Float4 CL.Float4::op_Addition(valuetype CL.Float4, valuetype CL.Float4)
      IL_002c: stelem CL.Float4
      IL_0031: ret
  - type: Samples.Kernels
    name: Count
    static: true
    kernel: true
    params:
      - {name: data, type: "int[]", qualifiers: [global]}
      - {name: n, type: int}
    locals: [int]
    body: |
      IL_0000: ldc.i4.0
      IL_0001: stloc.0
      IL_0002: br.s IL_000e
      IL_0004: ldarg.0
      IL_0005: ldloc.0
      IL_0006: ldloc.0
      IL_0007: stelem.i4
      IL_0008: ldloc.0
      IL_0009: ldc.i4.1
      IL_000a: add
      IL_000b: stloc.0
      IL_000c: nop
      IL_000d: nop
      IL_000e: ldloc.0
      IL_000f: ldarg.1
      IL_0010: blt.s IL_0004
      IL_0012: ldarg.1
      IL_0013: brfalse.s IL_0016
      IL_0015: nop
      IL_0016: ret
  - type: Samples.Kernels
    name: Tick
    static: true
    body: |
      ldc.i4.0
      call int32 CL.BuiltIn::GetGlobalId(int32)
      pop
      ldc.r4 2
      dup
      mul
      pop
      ret
  - type: Samples.Particle
    name: Heavier
    params: [{name: limit, type: float}]
    returns: bool
    body: |
      ldarg.0
      ldfld float32 Samples.Particle::mass
      ldarg.1
      cgt
      ret
`

func newStore(t *testing.T, docs ...string) *meta.Store {
	t.Helper()
	var manifests []*meta.Manifest
	for i, doc := range docs {
		m, err := meta.ParseManifest([]byte(doc), "doc"+string(rune('0'+i)))
		if err != nil {
			t.Fatalf("ParseManifest: %v", err)
		}
		manifests = append(manifests, m)
	}
	store, err := meta.NewStoreFrom(manifests...)
	if err != nil {
		t.Fatalf("NewStoreFrom: %v", err)
	}
	return store
}

func compileNamed(t *testing.T, store *meta.Store, name string) (*Result, error) {
	t.Helper()
	m, err := store.MethodByName(name)
	if err != nil {
		t.Fatalf("MethodByName(%s): %v", name, err)
	}
	return New(store).CompileMethod(m)
}

func mustCompile(t *testing.T, store *meta.Store, name string) *Result {
	t.Helper()
	res, err := compileNamed(t, store, name)
	if err != nil {
		t.Fatalf("CompileMethod(%s): %v", name, err)
	}
	return res
}

// effects drops declarations, comments and labels
func effects(res *Result) []ast.Stmt {
	var out []ast.Stmt
	for _, s := range res.Body.Stmts {
		switch s.(type) {
		case *ast.VarDecl, *ast.CommentStmt, *ast.LabelStmt:
			continue
		}
		out = append(out, s)
	}
	return out
}

func TestCompileVectorAdd(t *testing.T) {
	store := newStore(t, samplesManifest)
	res := mustCompile(t, store, "Samples.Kernels::VectorAdd")

	decl, ok := res.Body.Stmts[0].(*ast.VarDecl)
	if !ok || decl.Name != "local0" || !decl.Typ.Equal(types.Int32) {
		t.Fatalf("first statement = %#v, want local0 declaration", res.Body.Stmts[0])
	}

	// every instruction contributes a comment and a label at its offset
	m, _ := store.MethodByName("Samples.Kernels::VectorAdd")
	labels := 0
	for _, s := range res.Body.Stmts {
		if l, ok := s.(*ast.LabelStmt); ok {
			if l.Offset != m.Body[labels].Offset {
				t.Errorf("label %d at %#x, want %#x", labels, l.Offset, m.Body[labels].Offset)
			}
			labels++
		}
	}
	if labels != len(m.Body) {
		t.Errorf("got %d labels for %d instructions", labels, len(m.Body))
	}

	stmts := effects(res)
	if len(stmts) != 3 {
		t.Fatalf("got %d effect statements, want 3:\n%s", len(stmts), ast.Dump(res.Body))
	}

	idx := stmts[0].(*ast.AssignStmt)
	call, ok := idx.Value.(*ast.CallExpr)
	if !ok || call.Method.Alias != "get_global_id" {
		t.Errorf("local0 = %#v, want get_global_id call", idx.Value)
	}

	store0 := stmts[1].(*ast.AssignStmt)
	target, ok := store0.Target.(*ast.IndexExpr)
	if !ok || target.Array.(*ast.IdentExpr).Name != "c" {
		t.Fatalf("store target = %#v", store0.Target)
	}
	sum, ok := store0.Value.(*ast.BinaryExpr)
	if !ok || sum.Op != ast.OpAdd || !sum.Typ.Equal(types.Float32) {
		t.Errorf("stored value = %#v, want float addition", store0.Value)
	}

	if _, ok := stmts[2].(*ast.ReturnStmt); !ok {
		t.Errorf("last statement = %#v, want return", stmts[2])
	}
	if len(res.Types) != 0 || len(res.Methods) != 0 {
		t.Errorf("unexpected dependencies: types=%d methods=%d", len(res.Types), len(res.Methods))
	}
	if len(res.Params) != 3 || !res.Params[0].Type.Equal(types.ArrayOf(types.Float32)) {
		t.Errorf("params = %+v", res.Params)
	}
	if res.This != nil || !res.Return.IsVoid() {
		t.Errorf("kernel signature: this=%v return=%s", res.This, res.Return)
	}
}

func TestStructParametersByAddress(t *testing.T) {
	store := newStore(t, samplesManifest)

	mass := mustCompile(t, store, "Samples.Physics::Mass")
	if !mass.Params[0].Type.Equal(types.PointerTo(types.StructOf(mass.Types[0]))) {
		t.Errorf("struct param type = %s, want pointer", mass.Params[0].Type)
	}
	ret := effects(mass)[0].(*ast.ReturnStmt)
	f, ok := ret.Value.(*ast.FieldExpr)
	if !ok || f.Name != "mass" {
		t.Fatalf("return value = %#v", ret.Value)
	}
	if id, ok := f.Target.(*ast.IdentExpr); !ok || id.Name != "p" || !id.Typ.IsPointer() {
		t.Errorf("field target = %#v, want pointer parameter p", f.Target)
	}

	move := mustCompile(t, store, "Samples.Physics::Move")
	if len(move.Methods) != 1 || move.Methods[0].Name != "Mass" {
		t.Fatalf("methods = %v", move.Methods)
	}
	if len(move.Types) != 1 || move.Types[0].Name != "Particle" {
		t.Errorf("types = %v", move.Types)
	}

	stmts := effects(move)
	call := stmts[0].(*ast.AssignStmt).Value.(*ast.CallExpr)
	if _, ok := call.Args[0].(*ast.AddrOfExpr); !ok {
		t.Errorf("struct argument = %#v, want address", call.Args[0])
	}
	set := stmts[1].(*ast.AssignStmt)
	field := set.Target.(*ast.FieldExpr)
	if _, ok := field.Target.(*ast.IndexExpr); !ok {
		t.Errorf("stfld through ldelema not folded: %#v", field.Target)
	}
}

func TestAliasForms(t *testing.T) {
	store := newStore(t, samplesManifest)
	res := mustCompile(t, store, "Samples.Kernels::Vectors")
	stmts := effects(res)
	if len(stmts) != 4 {
		t.Fatalf("got %d statements:\n%s", len(stmts), ast.Dump(res.Body))
	}

	ctor := stmts[0].(*ast.AssignStmt)
	if id, ok := ctor.Target.(*ast.IdentExpr); !ok || id.Name != "local0" {
		t.Errorf("constructor target = %#v", ctor.Target)
	}
	if call := ctor.Value.(*ast.CallExpr); call.Method.Alias != "(float4)" || len(call.Args) != 4 {
		t.Errorf("constructor call = %s with %d args", call.Method.Alias, len(call.Args))
	}

	get := stmts[1].(*ast.AssignStmt).Value.(*ast.FieldExpr)
	if get.Name != "xy" || get.Target.(*ast.IdentExpr).Name != "local0" {
		t.Errorf("getter = %#v", get)
	}

	add := stmts[2].(*ast.AssignStmt).Value.(*ast.BinaryExpr)
	if add.Op != ast.OpAdd || add.Typ.String() != "float4" {
		t.Errorf("operator alias = %v : %s", add.Op, add.Typ)
	}
	if len(res.Methods) != 0 {
		t.Errorf("alias methods recorded as dependencies: %v", res.Methods)
	}
}

func TestBranches(t *testing.T) {
	store := newStore(t, samplesManifest)
	res := mustCompile(t, store, "Samples.Kernels::Count")

	var branches []*ast.BranchStmt
	for _, s := range effects(res) {
		if b, ok := s.(*ast.BranchStmt); ok {
			branches = append(branches, b)
		}
	}
	if len(branches) != 3 {
		t.Fatalf("got %d branches", len(branches))
	}
	if branches[0].Cond != nil || branches[0].Target != 0x0e {
		t.Errorf("br = %+v", branches[0])
	}
	if c, ok := branches[1].Cond.(*ast.BinaryExpr); !ok || c.Op != ast.OpLt || branches[1].Target != 0x04 {
		t.Errorf("blt = %+v", branches[1])
	}
	if c, ok := branches[2].Cond.(*ast.UnaryExpr); !ok || c.Op != ast.OpNot || branches[2].Target != 0x16 {
		t.Errorf("brfalse = %+v", branches[2])
	}

	labels := map[int]int{}
	for _, s := range res.Body.Stmts {
		if l, ok := s.(*ast.LabelStmt); ok {
			labels[l.Offset]++
		}
	}
	for _, b := range branches {
		if labels[b.Target] != 1 {
			t.Errorf("target %#x has %d labels", b.Target, labels[b.Target])
		}
	}
}

func TestPopAndDup(t *testing.T) {
	store := newStore(t, samplesManifest)
	stmts := effects(mustCompile(t, store, "Samples.Kernels::Tick"))

	exprStmts := 0
	for _, s := range stmts {
		if _, ok := s.(*ast.ExprStmt); ok {
			exprStmts++
		}
	}
	if exprStmts != 1 {
		t.Errorf("popped call produced %d expression statements, want 1", exprStmts)
	}
	if len(stmts) != 2 {
		t.Errorf("got %d statements, want the call and the return", len(stmts))
	}
}

func TestInstanceMethod(t *testing.T) {
	store := newStore(t, samplesManifest)
	res := mustCompile(t, store, "Samples.Particle::Heavier")
	if res.This == nil || !res.This.IsPointer() || res.This.Elem.Desc.Name != "Particle" {
		t.Fatalf("this = %v", res.This)
	}
	if res.Params[0].Name != "limit" || !res.Return.Equal(types.Bool) {
		t.Errorf("signature params=%+v return=%s", res.Params, res.Return)
	}
	cmp := effects(res)[0].(*ast.ReturnStmt).Value.(*ast.BinaryExpr)
	if cmp.Op != ast.OpGt || !cmp.Typ.Equal(types.Int32) {
		t.Errorf("comparison = %v : %s", cmp.Op, cmp.Typ)
	}
	if this := cmp.Left.(*ast.FieldExpr).Target.(*ast.IdentExpr); this.Name != "this" {
		t.Errorf("field read through %s, want this", this.Name)
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name   string
		method string
		code   meta.ErrorCode
		offset int
	}{
		{"underflow", "{type: T.M, name: A, static: true, body: \"IL_0000: nop\\nIL_0001: add\"}", meta.E_STACK_UNDERFLOW, 1},
		{"static field", "{type: T.M, name: A, static: true, body: \"IL_0000: ldsfld int32 T.M::counter\"}", meta.E_UNSUPPORTED_INSTRUCTION, 0},
		{"missing callee", "{type: T.M, name: A, static: true, body: \"IL_0000: nop\\nIL_0001: call void T.Nope::Run()\"}", meta.E_UNRESOLVED_METHOD, 1},
		{"missing field", "{type: T.M, name: A, static: true, params: [{name: p, type: Samples.Particle}], body: \"IL_0000: ldarg.0\\nIL_0001: ldfld int32 Samples.Particle::nope\"}", meta.E_UNRESOLVED_FIELD, 1},
		{"string local", "{type: T.M, name: A, static: true, locals: [string], body: \"IL_0000: ret\"}", meta.E_UNSUPPORTED_TYPE, -1},
		{"branch past the body", "{type: T.M, name: A, static: true, body: \"IL_0000: br IL_0099\\nIL_0005: ret\"}", meta.E_UNSUPPORTED_INSTRUCTION, 0},
		{"branch into an instruction", "{type: T.M, name: A, static: true, body: \"IL_0000: ldc.i4.1\\nIL_0001: brtrue.s IL_0002\\nIL_0003: ret\"}", meta.E_UNSUPPORTED_INSTRUCTION, 1},
		{"missing struct", "{type: T.M, name: A, static: true, params: [{name: p, type: Samples.Missing}], body: \"IL_0000: ret\"}", meta.E_UNRESOLVED_TYPE, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newStore(t, samplesManifest, "methods: ["+tt.method+"]")
			_, err := compileNamed(t, store, "T.M::A")
			if meta.CodeOf(err) != tt.code {
				t.Fatalf("got %v, want %s", err, tt.code)
			}
			var me *meta.Error
			if !errors.As(err, &me) || me.Offset != tt.offset {
				t.Errorf("offset = %d, want %d (%v)", me.Offset, tt.offset, err)
			}
		})
	}
}

func TestLdcI4OutOfRange(t *testing.T) {
	store := newStore(t, samplesManifest)
	m := &meta.MethodDesc{
		DeclaringType: "T.M",
		Name:          "A",
		Static:        true,
		Return:        meta.PrimRef(meta.PrimVoid),
		Body: []bytecode.Instruction{
			bytecode.New(0, bytecode.LDC_I4, bytecode.Operand{Int: 1 << 32}),
			bytecode.New(5, bytecode.POP, bytecode.Operand{}),
			bytecode.New(6, bytecode.RET, bytecode.Operand{}),
		},
	}
	_, err := New(store).CompileMethod(m)
	if meta.CodeOf(err) != meta.E_UNSUPPORTED_INSTRUCTION {
		t.Fatalf("got %v, want E_UNSUPPORTED_INSTRUCTION", err)
	}
	var me *meta.Error
	if !errors.As(err, &me) || me.Offset != 0 {
		t.Errorf("error %v does not carry offset 0", err)
	}
}

func TestTable(t *testing.T) {
	table := DefaultTable()
	if DefaultTable() != table {
		t.Error("DefaultTable rebuilt")
	}
	if _, err := table.Lookup(bytecode.ADD); err != nil {
		t.Errorf("add: %v", err)
	}
	for _, op := range []bytecode.OpCode{bytecode.SWITCH, bytecode.LDSFLD, bytecode.LDNULL, bytecode.NEWARR} {
		if _, err := table.Lookup(op); meta.CodeOf(err) != meta.E_UNSUPPORTED_INSTRUCTION {
			t.Errorf("%s: got %v", op, err)
		}
	}
	ops := table.Opcodes()
	for i := 1; i < len(ops); i++ {
		if ops[i-1] >= ops[i] {
			t.Fatalf("opcodes not sorted at %d", i)
		}
	}

	custom := NewTable()
	custom.Register(opNop, bytecode.NOP)
	store := newStore(t, "methods: [{type: T.M, name: A, static: true, body: \"IL_0000: nop\\nIL_0001: ret\"}]")
	m, _ := store.MethodByName("T.M::A")
	if _, err := NewWithTable(store, custom).CompileMethod(m); meta.CodeOf(err) != meta.E_UNSUPPORTED_INSTRUCTION {
		t.Errorf("custom table without ret: got %v", err)
	}
}
