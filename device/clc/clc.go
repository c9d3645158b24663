// Package clc checks generated source with an external OpenCL C compiler.
// It builds only; its programs cannot run kernels.
package clc

import (
	"bytes"
	"context"
	"fmt"
	"kernelc/device"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// DefaultCommand compiles OpenCL C 1.2 with clang without producing output
var DefaultCommand = []string{"clang", "-x", "cl", "-cl-std=CL1.2", "-fsyntax-only", "-Xclang", "-finclude-default-header"}

// Compiler runs Command with the path of a temporary .cl file appended
type Compiler struct {
	Command []string
	// Dir holds the temporary source; the system temp dir when empty
	Dir string
}

// New creates a compiler running command, or DefaultCommand when empty
func New(command ...string) *Compiler {
	if len(command) == 0 {
		command = DefaultCommand
	}
	return &Compiler{Command: command}
}

// Parse splits a command line on whitespace, as KERNELC_CLC is written
func Parse(line string) *Compiler {
	return New(strings.Fields(line)...)
}

// Build writes src to disk and runs the compiler on it. The compiler's
// combined output is part of the error on failure.
func (c *Compiler) Build(ctx context.Context, src device.Source) (device.Program, error) {
	if len(c.Command) == 0 {
		return nil, fmt.Errorf("clc: no compiler command")
	}

	f, err := os.CreateTemp(c.Dir, "kernelc-*.cl")
	if err != nil {
		return nil, fmt.Errorf("clc: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.WriteString(src.Text); err != nil {
		f.Close()
		return nil, fmt.Errorf("clc: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("clc: %w", err)
	}

	args := append(append([]string(nil), c.Command[1:]...), path)
	cmd := exec.CommandContext(ctx, c.Command[0], args...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("clc: %s %s: %w: %s", c.Command[0], filepath.Base(path), err, strings.TrimSpace(output.String()))
	}
	return &checked{log: output.String()}, nil
}

// checked is a program that passed the external compiler
type checked struct {
	log string
}

// Log returns the compiler's output, usually warnings
func (p *checked) Log() string { return p.log }

func (p *checked) Kernel(name string) (device.Kernel, error) {
	return nil, fmt.Errorf("clc: %s: programs are checked, not loaded", name)
}
