package trace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Tracer writes compile and dispatch events for debugging
type Tracer struct {
	enabled bool
	filters []string
	writer  io.Writer
	mu      sync.Mutex
}

// Global tracer instance
var globalTracer *Tracer

// Init initializes the global tracer
func Init(enabled bool, filters []string, writer io.Writer) {
	if writer == nil {
		writer = os.Stderr
	}
	globalTracer = &Tracer{
		enabled: enabled,
		filters: filters,
		writer:  writer,
	}
}

// IsEnabled returns whether tracing is enabled
func IsEnabled() bool {
	if globalTracer == nil {
		return false
	}
	return globalTracer.enabled
}

// matchesFilter checks a method name ("Type::Name") against the glob filters
func (t *Tracer) matchesFilter(method string) bool {
	if len(t.filters) == 0 {
		return true // No filters = trace everything
	}

	for _, pattern := range t.filters {
		if matched, _ := filepath.Match(pattern, method); matched {
			return true
		}
	}
	return false
}

func (t *Tracer) printf(method, format string, args ...any) {
	if !t.enabled || !t.matchesFilter(method) {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(t.writer, format, args...)
}

// Method logs the start of a method compile
func (t *Tracer) Method(method string, instrs, locals int) {
	t.printf(method, "[TRACE] METHOD %s instrs=%d locals=%d\n", method, instrs, locals)
}

// Instr logs one decoded instruction with the stack depth before it runs
func (t *Tracer) Instr(method string, offset int, op string, depth int) {
	t.printf(method, "[TRACE]   INSTR IL_%04x %-12s depth=%d\n", offset, op, depth)
}

// Depend logs a discovered dependency ("type" or "method")
func (t *Tracer) Depend(method, kind, name string) {
	t.printf(method, "[TRACE]   DEPEND %s %s\n", kind, name)
}

// Fail logs a compile failure
func (t *Tracer) Fail(method string, err error) {
	t.printf(method, "[TRACE] FAIL %s %v\n", method, err)
}

// Emit logs the assembly of a translation unit for an entry point
func (t *Tracer) Emit(entry string, functions, structs, size int) {
	t.printf(entry, "[TRACE] EMIT %s functions=%d structs=%d bytes=%d\n", entry, functions, structs, size)
}

// Kernel logs a kernel dispatch
func (t *Tracer) Kernel(name string, dims fmt.Stringer, args int) {
	t.printf(name, "[TRACE] KERNEL %s dims=%s args=%d\n", name, dims, args)
}

// Global convenience functions

// Method logs a method compile using the global tracer
func Method(method string, instrs, locals int) {
	if globalTracer != nil {
		globalTracer.Method(method, instrs, locals)
	}
}

// Instr logs an instruction using the global tracer
func Instr(method string, offset int, op string, depth int) {
	if globalTracer != nil {
		globalTracer.Instr(method, offset, op, depth)
	}
}

// Depend logs a dependency using the global tracer
func Depend(method, kind, name string) {
	if globalTracer != nil {
		globalTracer.Depend(method, kind, name)
	}
}

// Fail logs a failure using the global tracer
func Fail(method string, err error) {
	if globalTracer != nil {
		globalTracer.Fail(method, err)
	}
}

// Emit logs unit assembly using the global tracer
func Emit(entry string, functions, structs, size int) {
	if globalTracer != nil {
		globalTracer.Emit(entry, functions, structs, size)
	}
}

// Kernel logs a dispatch using the global tracer
func Kernel(name string, dims fmt.Stringer, args int) {
	if globalTracer != nil {
		globalTracer.Kernel(name, dims, args)
	}
}
