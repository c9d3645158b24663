package conformance

import "kernelc/meta"

// TestSuite is one YAML file: a manifest and the entry points compiled
// against it
type TestSuite struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description,omitempty"`
	Manifest    meta.Manifest `yaml:"manifest"`
	Tests       []TestCase    `yaml:"tests"`
}

// TestCase compiles one kernel or closure into a fresh program
type TestCase struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description,omitempty"`
	Skip        interface{} `yaml:"skip,omitempty"` // bool or string
	Kernel      string      `yaml:"kernel,omitempty"`  // Type::Name
	Closure     string      `yaml:"closure,omitempty"` // record type of a manifest closure
	Comments    bool        `yaml:"comments,omitempty"`
	Expect      Expectation `yaml:"expect"`
}

// Expectation describes the outcome of a compile
type Expectation struct {
	Error  string `yaml:"error,omitempty"`  // E_STACK_UNDERFLOW, E_INVALID_KERNEL, etc.
	Method string `yaml:"method,omitempty"` // method the error names
	Offset *int   `yaml:"offset,omitempty"` // instruction offset of the error

	Contains []string       `yaml:"contains,omitempty"` // substrings of the source
	Absent   []string       `yaml:"absent,omitempty"`   // substrings that must not appear
	Order    []string       `yaml:"order,omitempty"`    // substrings in order of first appearance
	Count    map[string]int `yaml:"count,omitempty"`    // exact occurrence counts

	Run *Run `yaml:"run,omitempty"`
}

// Run dispatches the compiled kernel on the CPU device
type Run struct {
	Global []int `yaml:"global"`
	Local  []int `yaml:"local,omitempty"`
	Args   []Arg `yaml:"args"`
}

// Arg is a buffer of the named element type or a scalar
type Arg struct {
	Buffer string    `yaml:"buffer,omitempty"` // float, double, int, uint, long, ulong
	Data   []float64 `yaml:"data,omitempty"`
	Want   []float64 `yaml:"want,omitempty"` // buffer contents after the run
	Scalar *float64  `yaml:"scalar,omitempty"`
}

// IsSkipped returns true if this test should be skipped
func (tc *TestCase) IsSkipped() (bool, string) {
	if tc.Skip == nil {
		return false, ""
	}

	switch v := tc.Skip.(type) {
	case bool:
		if v {
			return true, "skipped"
		}
		return false, ""
	case string:
		return true, v
	default:
		return false, ""
	}
}

// HasExpectation reports whether the test checks anything
func (e *Expectation) HasExpectation() bool {
	return e.Error != "" || len(e.Contains) > 0 || len(e.Absent) > 0 ||
		len(e.Order) > 0 || len(e.Count) > 0 || e.Run != nil
}
