package conformance

import (
	"context"
	"fmt"
	"io"
	"kernelc/device"
	"kernelc/device/cpu"
	"kernelc/meta"
	"kernelc/program"
	"strings"

	"github.com/pkg/errors"
)

// TestResult represents the outcome of running a single test
type TestResult struct {
	Test       LoadedTest
	Passed     bool
	Skipped    bool
	SkipReason string
	Error      error
	Source     string
}

// Runner executes conformance tests. Stores are built once per suite.
type Runner struct {
	stores map[*TestSuite]*meta.Store
	// Output receives printf output of runs; discarded when nil
	Output io.Writer
}

// NewRunner creates a new test runner
func NewRunner() *Runner {
	return &Runner{stores: make(map[*TestSuite]*meta.Store)}
}

func (r *Runner) store(suite *TestSuite) (*meta.Store, error) {
	if s, ok := r.stores[suite]; ok {
		return s, nil
	}
	s, err := meta.NewStoreFrom(&suite.Manifest)
	if err != nil {
		return nil, err
	}
	r.stores[suite] = s
	return s, nil
}

// Run compiles the test's entry point into a fresh program and checks the
// expectation
func (r *Runner) Run(ctx context.Context, test LoadedTest) TestResult {
	if skipped, reason := test.Test.IsSkipped(); skipped {
		return TestResult{Test: test, Skipped: true, SkipReason: reason}
	}
	fail := func(err error) TestResult {
		return TestResult{Test: test, Error: err}
	}

	store, err := r.store(test.Suite)
	if err != nil {
		return fail(errors.Wrap(err, "suite manifest"))
	}

	opts := program.Options{Comments: test.Test.Comments}
	if test.Test.Expect.Run != nil {
		d := cpu.New()
		d.Output = r.Output
		if d.Output == nil {
			d.Output = io.Discard
		}
		opts.Builder = d
	}
	p := program.New(store, opts)

	var k *program.Kernel
	switch {
	case test.Test.Kernel != "":
		k, err = p.CompileByName(ctx, test.Test.Kernel)
	case test.Test.Closure != "":
		c, cerr := closureOf(store, test.Test.Closure)
		if cerr != nil {
			return fail(cerr)
		}
		k, err = p.CompileClosure(ctx, c)
	default:
		return TestResult{Test: test, Skipped: true, SkipReason: "no kernel or closure"}
	}

	if err := checkError(test.Test.Expect, err); err != nil {
		return fail(err)
	}
	if err != nil {
		return TestResult{Test: test, Passed: true}
	}

	src := p.Source()
	if err := checkSource(test.Test.Expect, src); err != nil {
		return TestResult{Test: test, Error: err, Source: src}
	}
	if run := test.Test.Expect.Run; run != nil {
		if err := execute(ctx, k, run); err != nil {
			return TestResult{Test: test, Error: err, Source: src}
		}
	}
	return TestResult{Test: test, Passed: true, Source: src}
}

// RunAll executes all loaded tests
func (r *Runner) RunAll(ctx context.Context, tests []LoadedTest) []TestResult {
	results := make([]TestResult, len(tests))
	for i, test := range tests {
		results[i] = r.Run(ctx, test)
	}
	return results
}

func closureOf(store *meta.Store, typeName string) (*meta.Closure, error) {
	for _, c := range store.Closures() {
		if c.Type.FullName() == typeName {
			return c, nil
		}
	}
	return nil, fmt.Errorf("no closure over %s", typeName)
}

// checkError compares the compile error with the expected one. A nil
// return with a non-nil err means the expected failure happened.
func checkError(expect Expectation, err error) error {
	if expect.Error == "" {
		if err != nil {
			return fmt.Errorf("unexpected error: %w", err)
		}
		return nil
	}

	want, ok := meta.ErrorFromString(expect.Error)
	if !ok {
		return fmt.Errorf("unknown error code: %s", expect.Error)
	}
	if err == nil {
		return fmt.Errorf("expected error %s, compile succeeded", expect.Error)
	}
	var e *meta.Error
	if !errors.As(err, &e) || e.Code != want {
		return fmt.Errorf("expected error %s, got %v", expect.Error, err)
	}
	if expect.Method != "" && e.Method != expect.Method {
		return fmt.Errorf("expected error in %s, got %s", expect.Method, e.Method)
	}
	if expect.Offset != nil && e.Offset != *expect.Offset {
		return fmt.Errorf("expected error at offset %d, got %d", *expect.Offset, e.Offset)
	}
	return nil
}

func checkSource(expect Expectation, src string) error {
	for _, s := range expect.Contains {
		if !strings.Contains(src, s) {
			return fmt.Errorf("source does not contain %q", s)
		}
	}
	for _, s := range expect.Absent {
		if strings.Contains(src, s) {
			return fmt.Errorf("source contains %q", s)
		}
	}
	last, prev := -1, ""
	for _, s := range expect.Order {
		i := strings.Index(src, s)
		if i < 0 {
			return fmt.Errorf("source does not contain %q", s)
		}
		if i < last {
			return fmt.Errorf("%q appears before %q", s, prev)
		}
		last, prev = i, s
	}
	for s, n := range expect.Count {
		if got := strings.Count(src, s); got != n {
			return fmt.Errorf("%q appears %d times, want %d", s, got, n)
		}
	}
	return nil
}

// execute binds run's arguments, dispatches k and compares every buffer
// that declares its expected contents
func execute(ctx context.Context, k *program.Kernel, run *Run) error {
	values := make([]any, len(run.Args))
	buffers := make([]device.Buffer, len(run.Args))
	for i, a := range run.Args {
		switch {
		case a.Buffer != "":
			b, err := newBuffer(a.Buffer, a.Data)
			if err != nil {
				return errors.Wrapf(err, "argument %d", i)
			}
			buffers[i] = b
			values[i] = b
		case a.Scalar != nil:
			values[i] = *a.Scalar
		default:
			return fmt.Errorf("argument %d is neither a buffer nor a scalar", i)
		}
	}

	dims := device.WorkDims{Global: run.Global, Local: run.Local}
	if err := k.Invoke(ctx, dims, values...); err != nil {
		return err
	}

	for i, a := range run.Args {
		if a.Want == nil {
			continue
		}
		got, err := contents(buffers[i])
		if err != nil {
			return err
		}
		if len(got) != len(a.Want) {
			return fmt.Errorf("argument %d holds %d values, want %d", i, len(got), len(a.Want))
		}
		for j := range got {
			if got[j] != a.Want[j] {
				return fmt.Errorf("argument %d = %v, want %v", i, got, a.Want)
			}
		}
	}
	return nil
}

func newBuffer(kind string, data []float64) (device.Buffer, error) {
	switch kind {
	case "float":
		return device.NewBuffer(convertAll[float32](data)), nil
	case "double":
		return device.NewBuffer(convertAll[float64](data)), nil
	case "int":
		return device.NewBuffer(convertAll[int32](data)), nil
	case "uint":
		return device.NewBuffer(convertAll[uint32](data)), nil
	case "long":
		return device.NewBuffer(convertAll[int64](data)), nil
	case "ulong":
		return device.NewBuffer(convertAll[uint64](data)), nil
	}
	return nil, fmt.Errorf("unknown buffer type %q", kind)
}

func convertAll[T float32 | float64 | int32 | uint32 | int64 | uint64](data []float64) []T {
	out := make([]T, len(data))
	for i, v := range data {
		out[i] = T(v)
	}
	return out
}

func contents(b device.Buffer) ([]float64, error) {
	out := make([]float64, b.Len())
	for i := range out {
		v, err := b.Load(i)
		if err != nil {
			return nil, err
		}
		switch x := v.(type) {
		case float32:
			out[i] = float64(x)
		case float64:
			out[i] = x
		case int32:
			out[i] = float64(x)
		case uint32:
			out[i] = float64(x)
		case int64:
			out[i] = float64(x)
		case uint64:
			out[i] = float64(x)
		default:
			return nil, fmt.Errorf("unexpected element %T", v)
		}
	}
	return out, nil
}

// SummaryStats computes statistics from test results
type SummaryStats struct {
	Total   int
	Passed  int
	Failed  int
	Skipped int
}

// ComputeStats generates statistics from test results
func ComputeStats(results []TestResult) SummaryStats {
	stats := SummaryStats{Total: len(results)}
	for _, r := range results {
		if r.Skipped {
			stats.Skipped++
		} else if r.Passed {
			stats.Passed++
		} else {
			stats.Failed++
		}
	}
	return stats
}

// FormatStats returns a human-readable summary
func FormatStats(stats SummaryStats) string {
	return fmt.Sprintf("%d passed, %d failed, %d skipped (%d total)",
		stats.Passed, stats.Failed, stats.Skipped, stats.Total)
}
