package meta

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCode classifies compile failures
type ErrorCode int

const (
	E_NONE ErrorCode = iota
	E_UNSUPPORTED_INSTRUCTION
	E_UNRESOLVED_TYPE
	E_UNRESOLVED_METHOD
	E_UNRESOLVED_FIELD
	E_UNSUPPORTED_TYPE
	E_INVALID_KERNEL
	E_BUILD_FAILED
	E_STACK_UNDERFLOW
	E_MANIFEST
)

// String returns the code name
func (c ErrorCode) String() string {
	switch c {
	case E_NONE:
		return "E_NONE"
	case E_UNSUPPORTED_INSTRUCTION:
		return "E_UNSUPPORTED_INSTRUCTION"
	case E_UNRESOLVED_TYPE:
		return "E_UNRESOLVED_TYPE"
	case E_UNRESOLVED_METHOD:
		return "E_UNRESOLVED_METHOD"
	case E_UNRESOLVED_FIELD:
		return "E_UNRESOLVED_FIELD"
	case E_UNSUPPORTED_TYPE:
		return "E_UNSUPPORTED_TYPE"
	case E_INVALID_KERNEL:
		return "E_INVALID_KERNEL"
	case E_BUILD_FAILED:
		return "E_BUILD_FAILED"
	case E_STACK_UNDERFLOW:
		return "E_STACK_UNDERFLOW"
	case E_MANIFEST:
		return "E_MANIFEST"
	default:
		return fmt.Sprintf("E_%d", int(c))
	}
}

// ErrorFromString maps a code name back to its ErrorCode
func ErrorFromString(name string) (ErrorCode, bool) {
	for c := E_NONE; c <= E_MANIFEST; c++ {
		if c.String() == name {
			return c, true
		}
	}
	return E_NONE, false
}

// Error is a compile failure with the identity of what failed.
// Offset is -1 when no instruction is involved.
type Error struct {
	Code   ErrorCode
	Method string
	Type   string
	Offset int
	Msg    string
	Err    error

	// Source is the generated translation unit, kept for E_BUILD_FAILED.
	Source string
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Code.String())
	if e.Method != "" {
		sb.WriteString(" in ")
		sb.WriteString(e.Method)
	}
	if e.Offset >= 0 {
		fmt.Fprintf(&sb, " at IL_%04x", e.Offset)
	}
	if e.Type != "" {
		sb.WriteString(" (type ")
		sb.WriteString(e.Type)
		sb.WriteString(")")
	}
	if e.Msg != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Msg)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds an Error with no method or offset attached
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Offset: -1, Msg: fmt.Sprintf(format, args...)}
}

// TypeError builds an Error about a named type
func TypeError(code ErrorCode, typeName string, format string, args ...any) *Error {
	e := Errorf(code, format, args...)
	e.Type = typeName
	return e
}

// CodeOf returns the code of the first Error in err's chain
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return E_NONE
}

// Attach fills in the method identity and instruction offset of err when the
// chain holds an Error that does not carry them yet. Other errors are wrapped
// as code.
func Attach(err error, code ErrorCode, method string, offset int) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Method == "" {
			e.Method = method
		}
		if e.Offset < 0 {
			e.Offset = offset
		}
		return err
	}
	return &Error{Code: code, Method: method, Offset: offset, Err: err}
}
