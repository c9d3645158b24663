package cpu

import (
	"bytes"
	"context"
	"kernelc/codegen"
	"kernelc/compiler"
	"kernelc/device"
	"kernelc/meta"
	"strings"
	"testing"
)

const manifest = `
name: cpu
types:
  - name: Samples.Pair
    fields:
      - {name: a, type: int}
      - {name: b, type: int}
methods:
  - type: Samples.Kernels
    name: Sum
    static: true
    kernel: true
    params:
      - {name: out, type: "int[]", qualifiers: [global]}
      - {name: n, type: int}
    locals: [int, int]
    body: |
      IL_0000: ldc.i4.0
      IL_0001: stloc.0
      IL_0002: ldc.i4.0
      IL_0003: stloc.1
      IL_0004: br.s IL_000e
      IL_0006: ldloc.1
      IL_0007: ldloc.0
      IL_0008: add
      IL_0009: stloc.1
      IL_000a: ldloc.0
      IL_000b: ldc.i4.1
      IL_000c: add
      IL_000d: stloc.0
      IL_000e: ldloc.0
      IL_000f: ldarg.1
      IL_0010: blt.s IL_0006
      IL_0012: ldarg.0
      IL_0013: ldc.i4.0
      IL_0014: ldloc.1
      IL_0015: stelem.i4
      IL_0016: ret
  - type: Samples.Pair
    name: .ctor
    params: [{name: a, type: int}, {name: b, type: int}]
    body: |
      ldarg.0
      ldarg.1
      stfld int32 Samples.Pair::a
      ldarg.0
      ldarg.2
      stfld int32 Samples.Pair::b
      ret
  - type: Samples.Pair
    name: Product
    static: true
    returns: int
    locals: [Samples.Pair]
    body: |
      IL_0000: ldc.i4.3
      IL_0001: ldc.i4.4
      IL_0002: newobj instance void Samples.Pair::.ctor(int32, int32)
      IL_0007: stloc.0
      IL_0008: ldloca.s 0
      IL_000a: ldfld int32 Samples.Pair::a
      IL_000f: ldloca.s 0
      IL_0011: ldfld int32 Samples.Pair::b
      IL_0016: mul
      IL_0017: ret
  - type: Samples.Pair
    name: Run
    static: true
    kernel: true
    params: [{name: out, type: "int[]", qualifiers: [global]}]
    body: |
      ldarg.0
      ldc.i4.0
      call int32 Samples.Pair::Product()
      stelem.i4
      ret
  - type: Samples.Kernels
    name: Vectors
    static: true
    kernel: true
    params: [{name: out, type: "float[]", qualifiers: [global]}]
    locals: [CL.Float4, CL.Float2]
    body: |
      IL_0000: ldloca.s 0
      IL_0002: ldc.r4 1
      IL_0007: ldc.r4 2
      IL_000c: ldc.r4 3
      IL_0011: ldc.r4 4
      IL_0016: call instance void CL.Float4::.ctor(float32, float32, float32, float32)
      IL_001b: ldloca.s 0
      IL_001d: call instance valuetype CL.Float2 CL.Float4::get_ZW()
      IL_0022: ldloca.s 0
      IL_0024: call instance valuetype CL.Float2 CL.Float4::get_XY()
      IL_0029: call valuetype CL.Float2 CL.Float2::op_Addition(valuetype CL.Float2, valuetype CL.Float2)
      IL_002e: ldc.r4 2
      IL_0033: call valuetype CL.Float2 CL.Float2::op_Multiply(valuetype CL.Float2, float32)
      IL_0038: stloc.1
      IL_0039: ldarg.0
      IL_003a: ldc.i4.0
      IL_003b: ldloca.s 1
      IL_003d: ldfld float32 CL.Float2::X
      IL_0042: stelem.r4
      IL_0043: ldarg.0
      IL_0044: ldc.i4.1
      IL_0045: ldloca.s 1
      IL_0047: ldfld float32 CL.Float2::Y
      IL_004c: stelem.r4
      IL_004d: ret
  - type: Samples.Kernels
    name: Count
    static: true
    kernel: true
    params: [{name: counts, type: "int[]", qualifiers: [global]}]
    body: |
      ldarg.0
      ldc.i4.0
      ldelema int32
      call int32 CL.Atomic::Inc(int32&)
      pop
      ret
  - type: Samples.Kernels
    name: Groups
    static: true
    kernel: true
    params: [{name: out, type: "int[]", qualifiers: [global]}]
    locals: [int]
    body: |
      ldc.i4.0
      call int32 CL.BuiltIn::GetGlobalId(int32)
      stloc.0
      ldarg.0
      ldloc.0
      ldc.i4.0
      call int32 CL.BuiltIn::GetGroupId(int32)
      stelem.i4
      ret
  - type: Samples.Kernels
    name: Hello
    static: true
    kernel: true
    body: |
      ldstr "item %d\n"
      ldc.i4.0
      call int32 CL.BuiltIn::GetGlobalId(int32)
      call int32 CL.BuiltIn::Print(string, int32)
      pop
      ret
  - type: Samples.Kernels
    name: Divide
    static: true
    kernel: true
    params:
      - {name: out, type: "int[]", qualifiers: [global]}
      - {name: d, type: int}
    body: |
      ldarg.0
      ldc.i4.0
      ldc.i4.s 12
      ldarg.1
      div
      stelem.i4
      ret
  - type: Samples.Kernels
    name: Spin
    static: true
    kernel: true
    body: |
      IL_0000: br.s IL_0000
      IL_0002: ret
  - type: Samples.Deep
    name: Down
    static: true
    params: [{name: n, type: int}]
    returns: int
    body: |
      ldarg.0
      call int32 Samples.Deep::Down(int32)
      ret
  - type: Samples.Deep
    name: Dive
    static: true
    kernel: true
    body: |
      ldc.i4.0
      call int32 Samples.Deep::Down(int32)
      pop
      ret
`

// build compiles the named methods into one source and builds it on d
func build(t *testing.T, d *Device, names ...string) device.Program {
	t.Helper()
	m, err := meta.ParseManifest([]byte(manifest), "cpu.yaml")
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	store, err := meta.NewStoreFrom(m)
	if err != nil {
		t.Fatalf("NewStoreFrom: %v", err)
	}
	cc := compiler.New(store)
	src := device.Source{Store: store}
	for _, name := range names {
		desc, err := store.MethodByName(name)
		if err != nil {
			t.Fatalf("MethodByName(%s): %v", name, err)
		}
		res, err := cc.CompileMethod(desc)
		if err != nil {
			t.Fatalf("CompileMethod(%s): %v", name, err)
		}
		src.Functions = append(src.Functions, res)
	}
	prog, err := d.Build(context.Background(), src)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return prog
}

func kernelOf(t *testing.T, prog device.Program, name string) device.Kernel {
	t.Helper()
	for _, fn := range prog.(*program).byName {
		if fn.res.Method.FullName() == name {
			k, err := prog.Kernel(fn.name)
			if err != nil {
				t.Fatalf("Kernel(%s): %v", fn.name, err)
			}
			return k
		}
	}
	t.Fatalf("no function for %s", name)
	return nil
}

func TestLoop(t *testing.T) {
	prog := build(t, New(), "Samples.Kernels::Sum")
	k := kernelOf(t, prog, "Samples.Kernels::Sum")

	out := []int32{-1}
	args := []device.Arg{device.BufferArg(device.NewBuffer(out)), device.ScalarArg(10, 4)}
	if err := k.Invoke(context.Background(), device.Dims(1), args); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if out[0] != 45 {
		t.Errorf("sum = %d, want 45", out[0])
	}
}

func TestConstructorAndHelpers(t *testing.T) {
	prog := build(t, New(), "Samples.Pair::Run", "Samples.Pair::Product", "Samples.Pair::.ctor")
	k := kernelOf(t, prog, "Samples.Pair::Run")

	out := []int32{0}
	if err := k.Invoke(context.Background(), device.Dims(1), []device.Arg{device.BufferArg(device.NewBuffer(out))}); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if out[0] != 12 {
		t.Errorf("product = %d, want 12", out[0])
	}
}

func TestMissingHelper(t *testing.T) {
	m, _ := meta.ParseManifest([]byte(manifest), "cpu.yaml")
	store, _ := meta.NewStoreFrom(m)
	run, _ := store.MethodByName("Samples.Pair::Run")
	res, err := compiler.New(store).CompileMethod(run)
	if err != nil {
		t.Fatalf("CompileMethod: %v", err)
	}
	_, err = New().Build(context.Background(), device.Source{Store: store, Functions: []*compiler.Result{res}})
	if err == nil || !strings.Contains(err.Error(), "undefined function") {
		t.Errorf("Build = %v, want undefined function", err)
	}

	if _, err := New().Build(context.Background(), device.Source{}); err == nil {
		t.Error("built without a store")
	}
}

func TestVectors(t *testing.T) {
	prog := build(t, New(), "Samples.Kernels::Vectors")
	k := kernelOf(t, prog, "Samples.Kernels::Vectors")

	out := make([]float32, 2)
	if err := k.Invoke(context.Background(), device.Dims(1), []device.Arg{device.BufferArg(device.NewBuffer(out))}); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	// (zw + xy) * 2 of (1, 2, 3, 4)
	if out[0] != 8 || out[1] != 12 {
		t.Errorf("out = %v, want [8 12]", out)
	}
}

func TestAtomics(t *testing.T) {
	prog := build(t, New(), "Samples.Kernels::Count")
	k := kernelOf(t, prog, "Samples.Kernels::Count")

	counts := []int32{0}
	if err := k.Invoke(context.Background(), device.Dims(4, 4), []device.Arg{device.BufferArg(device.NewBuffer(counts))}); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if counts[0] != 16 {
		t.Errorf("count = %d, want 16", counts[0])
	}
}

func TestWorkGroups(t *testing.T) {
	prog := build(t, New(), "Samples.Kernels::Groups")
	k := kernelOf(t, prog, "Samples.Kernels::Groups")

	out := make([]int32, 8)
	dims := device.WorkDims{Global: []int{8}, Local: []int{4}}
	if err := k.Invoke(context.Background(), dims, []device.Arg{device.BufferArg(device.NewBuffer(out))}); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	want := []int32{0, 0, 0, 0, 1, 1, 1, 1}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("groups = %v, want %v", out, want)
		}
	}

	bad := device.WorkDims{Global: []int{8}, Local: []int{3}}
	if err := k.Invoke(context.Background(), bad, []device.Arg{device.BufferArg(device.NewBuffer(out))}); err == nil {
		t.Error("local size 3 accepted for 8 items")
	}
}

func TestPrintf(t *testing.T) {
	var out bytes.Buffer
	d := New()
	d.Output = &out
	prog := build(t, d, "Samples.Kernels::Hello")
	k := kernelOf(t, prog, "Samples.Kernels::Hello")

	if err := k.Invoke(context.Background(), device.Dims(3), nil); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if got := out.String(); got != "item 0\nitem 1\nitem 2\n" {
		t.Errorf("output = %q", got)
	}
}

func TestDivisionByZero(t *testing.T) {
	prog := build(t, New(), "Samples.Kernels::Divide")
	k := kernelOf(t, prog, "Samples.Kernels::Divide")

	out := []int32{0}
	buf := device.BufferArg(device.NewBuffer(out))
	if err := k.Invoke(context.Background(), device.Dims(1), []device.Arg{buf, device.ScalarArg(4, 4)}); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if out[0] != 3 {
		t.Errorf("12 / 4 = %d", out[0])
	}
	if err := k.Invoke(context.Background(), device.Dims(1), []device.Arg{buf, device.ScalarArg(0, 4)}); err == nil {
		t.Error("division by zero succeeded")
	}
}

func TestLimits(t *testing.T) {
	d := New()
	d.TickLimit = 100
	prog := build(t, d, "Samples.Kernels::Spin", "Samples.Deep::Dive", "Samples.Deep::Down")

	err := kernelOf(t, prog, "Samples.Kernels::Spin").Invoke(context.Background(), device.Dims(1), nil)
	if err == nil || !strings.Contains(err.Error(), "tick limit") {
		t.Errorf("Spin = %v, want tick limit", err)
	}

	d.TickLimit = -1
	err = kernelOf(t, prog, "Samples.Deep::Dive").Invoke(context.Background(), device.Dims(1), nil)
	if err == nil || !strings.Contains(err.Error(), "call depth") {
		t.Errorf("Dive = %v, want call depth", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := kernelOf(t, prog, "Samples.Kernels::Spin").Invoke(ctx, device.Dims(1), nil); err != context.Canceled {
		t.Errorf("cancelled Invoke = %v", err)
	}
}

func TestKernelLookup(t *testing.T) {
	prog := build(t, New(), "Samples.Pair::Run", "Samples.Pair::Product", "Samples.Pair::.ctor")
	if _, err := prog.Kernel("missing"); err == nil {
		t.Error("found a missing kernel")
	}
	for _, fn := range prog.(*program).byName {
		if fn.res.Method.Name == "Product" {
			if _, err := prog.Kernel(codegen.FunctionName(fn.res.Method)); err == nil {
				t.Error("helper returned as a kernel")
			}
		}
	}

	k1 := kernelOf(t, prog, "Samples.Pair::Run")
	k2 := kernelOf(t, prog, "Samples.Pair::Run")
	if k1 != k2 {
		t.Error("repeated lookups returned different kernels")
	}
	if err := k1.Invoke(context.Background(), device.Dims(1), nil); err == nil {
		t.Error("invoked without arguments")
	}
}
