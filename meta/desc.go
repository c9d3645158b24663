package meta

import (
	"kernelc/bytecode"
	"strings"
)

// Access is the image access qualifier declared on a type
type Access int

const (
	AccessNone Access = iota
	AccessReadOnly
	AccessWriteOnly
)

func (a Access) String() string {
	switch a {
	case AccessReadOnly:
		return "read_only"
	case AccessWriteOnly:
		return "write_only"
	default:
		return ""
	}
}

// Qualifier is a parameter annotation. Order of declaration is preserved.
type Qualifier int

const (
	QualGlobal Qualifier = iota + 1
	QualLocal
	QualConstant
	QualPrivate
	QualConst
	QualReadOnly
	QualWriteOnly
)

var qualifierNames = map[Qualifier]string{
	QualGlobal:    "global",
	QualLocal:     "local",
	QualConstant:  "constant",
	QualPrivate:   "private",
	QualConst:     "const",
	QualReadOnly:  "read_only",
	QualWriteOnly: "write_only",
}

func (q Qualifier) String() string {
	if name, ok := qualifierNames[q]; ok {
		return name
	}
	return "unknown"
}

// ParseQualifier accepts the annotation names used in manifests
func ParseQualifier(s string) (Qualifier, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "global":
		return QualGlobal, true
	case "local":
		return QualLocal, true
	case "constant":
		return QualConstant, true
	case "private":
		return QualPrivate, true
	case "const", "readonly":
		return QualConst, true
	case "read_only":
		return QualReadOnly, true
	case "write_only":
		return QualWriteOnly, true
	}
	return 0, false
}

// Accessor marks property accessor methods
type Accessor int

const (
	AccessorNone Accessor = iota
	AccessorGetter
	AccessorSetter
)

// FieldDesc describes one instance field of a value type
type FieldDesc struct {
	Name   string
	Type   TypeRef
	Offset int
	Alias  string
}

// TargetName is the name the field is emitted under
func (f *FieldDesc) TargetName() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

// TypeDesc describes a host value type
type TypeDesc struct {
	Namespace string
	Name      string
	Token     uint32
	Alias     string
	Access    Access
	Fields    []FieldDesc
}

// FullName returns the namespace-qualified name
func (t *TypeDesc) FullName() string {
	if t.Namespace == "" {
		return t.Name
	}
	return t.Namespace + "." + t.Name
}

// Field finds a field by its host name
func (t *TypeDesc) Field(name string) (*FieldDesc, bool) {
	for i := range t.Fields {
		if t.Fields[i].Name == name {
			return &t.Fields[i], true
		}
	}
	return nil, false
}

// IsAlias reports whether the type already exists in the target language
func (t *TypeDesc) IsAlias() bool { return t.Alias != "" }

// ParamDesc is one declared parameter
type ParamDesc struct {
	Name       string
	Type       TypeRef
	Qualifiers []Qualifier
	ByValue    bool
}

// MethodDesc describes a host method together with its bytecode body
type MethodDesc struct {
	DeclaringType string
	Name          string
	Token         uint32
	Static        bool
	Kernel        bool
	Constructor   bool
	Alias         string
	Accessor      Accessor
	Params        []ParamDesc
	Return        TypeRef
	Locals        []TypeRef
	Body          []bytecode.Instruction
}

// FullName returns Type::Name
func (m *MethodDesc) FullName() string {
	return m.DeclaringType + "::" + m.Name
}

// Signature returns Type::Name(param types), the overload-distinct name
func (m *MethodDesc) Signature() string {
	parts := make([]string, len(m.Params))
	for i, p := range m.Params {
		parts[i] = p.Type.String()
	}
	return m.FullName() + "(" + strings.Join(parts, ",") + ")"
}

// Ref returns a bytecode reference resolving to this method
func (m *MethodDesc) Ref() bytecode.MethodRef {
	return bytecode.MethodRef{DeclaringType: m.DeclaringType, Name: m.Name, Token: m.Token}
}

// HasThis reports whether argument 0 is the implicit receiver
func (m *MethodDesc) HasThis() bool { return !m.Static }

// ReturnsVoid reports whether the method produces no value
func (m *MethodDesc) ReturnsVoid() bool {
	return m.Return.Kind == KindPrimitive && m.Return.Prim == PrimVoid
}

// IsAlias reports whether calls render as the alias instead of a compiled function
func (m *MethodDesc) IsAlias() bool { return m.Alias != "" }

// OperatorAlias returns the operator symbol of an "operator<sym>" alias
func (m *MethodDesc) OperatorAlias() (string, bool) {
	if !strings.HasPrefix(m.Alias, "operator") {
		return "", false
	}
	sym := strings.TrimPrefix(m.Alias, "operator")
	return sym, sym != ""
}

// Arity counts the values a call pops, receiver included
func (m *MethodDesc) Arity() int {
	if m.HasThis() {
		return len(m.Params) + 1
	}
	return len(m.Params)
}

// Closure is a captured-variable record and the method run on it
type Closure struct {
	Type *TypeDesc
	Body *MethodDesc
}
