package codegen

import (
	"kernelc/ast"
	"kernelc/compiler"
	"kernelc/meta"
	"kernelc/types"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const indent = "    "

// Options control rendering
type Options struct {
	// Comments keeps the source instruction text as line comments
	Comments bool
}

// Generator renders compiled methods and struct types as OpenCL C. It holds
// no state between calls.
type Generator struct {
	opts Options
}

// New creates a generator
func New(opts Options) *Generator {
	return &Generator{opts: opts}
}

// FunctionName is the target name of a method: the alias when declared,
// otherwise the sanitized name suffixed with the token.
func FunctionName(m *meta.MethodDesc) string {
	if m.IsAlias() {
		return m.Alias
	}
	return types.Sanitize(m.Name) + "_method_" + strconv.FormatUint(uint64(m.Token), 10)
}

var qualifierText = map[meta.Qualifier]string{
	meta.QualGlobal:    "__global",
	meta.QualLocal:     "__local",
	meta.QualConstant:  "__constant",
	meta.QualPrivate:   "__private",
	meta.QualConst:     "const",
	meta.QualReadOnly:  "read_only",
	meta.QualWriteOnly: "write_only",
}

// accessOf returns the image access qualifier carried by a struct type
func accessOf(t types.Type) string {
	if t.IsStruct() {
		return t.Desc.Access.String()
	}
	return ""
}

// Param renders one parameter declaration. Qualifiers keep annotation order;
// an image type adds its access qualifier unless one was annotated.
func Param(p compiler.Param) string {
	var parts []string
	hasAccess := false
	for _, q := range p.Qualifiers {
		parts = append(parts, qualifierText[q])
		if q == meta.QualReadOnly || q == meta.QualWriteOnly {
			hasAccess = true
		}
	}
	if access := accessOf(p.Type); access != "" && !hasAccess {
		parts = append(parts, access)
	}
	parts = append(parts, p.Type.String(), p.Name)
	return strings.Join(parts, " ")
}

// Signature renders the function header. Kernels are always void;
// constructors return their struct; instance methods take this first.
func (g *Generator) Signature(res *compiler.Result) string {
	m := res.Method
	var params []string
	if res.This != nil && !m.Constructor {
		params = append(params, res.This.String()+" this")
	}
	for _, p := range res.Params {
		params = append(params, Param(p))
	}

	ret := res.Return.String()
	if m.Kernel {
		ret = "__kernel void"
	}
	return ret + " " + FunctionName(m) + "(" + strings.Join(params, ", ") + ")"
}

// Declaration renders a forward declaration
func (g *Generator) Declaration(res *compiler.Result) string {
	return g.Signature(res) + ";"
}

// Function renders the full definition
func (g *Generator) Function(res *compiler.Result) string {
	r := &renderer{opts: g.opts, ctor: res.Method.Constructor}

	var sb strings.Builder
	sb.WriteString(g.Signature(res))
	sb.WriteString("\n{\n")
	if res.Method.Constructor {
		st := res.Return.String()
		sb.WriteString(indent + st + " this_value;\n")
		sb.WriteString(indent + st + "* this = &this_value;\n")
	}
	sb.WriteString(r.VisitBlock(res.Body))
	sb.WriteString("}\n")
	return sb.String()
}

// Expr renders a single expression
func (g *Generator) Expr(e ast.Expr) string {
	return (&renderer{opts: g.opts}).expr(e, precedenceLowest)
}

// Stmt renders a single statement; suppressed statements render as ""
func (g *Generator) Stmt(s ast.Stmt) string {
	return (&renderer{opts: g.opts}).stmt(s)
}

// Field is one member of a rendered struct
type Field struct {
	Name string
	Type types.Type
	// Qualifier prefixes the member, e.g. __global for closure pointers
	Qualifier string
}

// StructFields classifies the fields of a value type
func StructFields(store *meta.Store, desc *meta.TypeDesc) ([]Field, error) {
	fields := make([]Field, 0, len(desc.Fields))
	for _, f := range desc.Fields {
		t, err := types.Classify(store, f.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "field %s.%s", desc.FullName(), f.Name)
		}
		fields = append(fields, Field{Name: f.TargetName(), Type: t, Qualifier: accessOf(t)})
	}
	return fields, nil
}

// Struct renders the typedef of a value type
func (g *Generator) Struct(store *meta.Store, desc *meta.TypeDesc) (string, error) {
	fields, err := StructFields(store, desc)
	if err != nil {
		return "", err
	}
	return Typedef(types.StructName(desc), fields), nil
}

// Typedef renders `typedef struct N { ... } N;`. A struct without members
// gets a single int placeholder.
func Typedef(name string, fields []Field) string {
	if len(fields) == 0 {
		return "typedef struct " + name + " { int _dummy; } " + name + ";\n"
	}
	var sb strings.Builder
	sb.WriteString("typedef struct " + name + " {\n")
	for _, f := range fields {
		sb.WriteString(indent)
		if f.Qualifier != "" {
			sb.WriteString(f.Qualifier + " ")
		}
		sb.WriteString(f.Type.String() + " " + f.Name + ";\n")
	}
	sb.WriteString("} " + name + ";\n")
	return sb.String()
}

// Wrapper renders the entry point of a closure kernel. It takes the record
// fields as parameters, rebuilds the record locally and passes its address
// to the body function.
func (g *Generator) Wrapper(name, record string, fields []Field, body string) string {
	params := make([]string, len(fields))
	for i, f := range fields {
		params[i] = f.Type.String() + " " + f.Name
		if f.Qualifier != "" {
			params[i] = f.Qualifier + " " + params[i]
		}
	}

	var sb strings.Builder
	sb.WriteString("__kernel void " + name + "(" + strings.Join(params, ", ") + ")\n{\n")
	sb.WriteString(indent + record + " record;\n")
	for _, f := range fields {
		sb.WriteString(indent + "record." + f.Name + " = " + f.Name + ";\n")
	}
	sb.WriteString(indent + body + "(&record);\n}\n")
	return sb.String()
}
