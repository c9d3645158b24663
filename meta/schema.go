package meta

// Manifest is one YAML descriptor file
type Manifest struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description,omitempty"`
	Types       []TypeSpec    `yaml:"types,omitempty"`
	Methods     []MethodSpec  `yaml:"methods,omitempty"`
	Closures    []ClosureSpec `yaml:"closures,omitempty"`

	// Source is the path the manifest was read from
	Source string `yaml:"-"`
}

// TypeSpec declares a value type
type TypeSpec struct {
	Name   string      `yaml:"name"` // namespace-qualified
	Token  uint32      `yaml:"token,omitempty"`
	Alias  string      `yaml:"alias,omitempty"`
	Access string      `yaml:"access,omitempty"` // read_only|write_only
	Fields []FieldSpec `yaml:"fields,omitempty"`
}

// FieldSpec declares one instance field
type FieldSpec struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Offset *int   `yaml:"offset,omitempty"` // sequential layout when omitted
	Alias  string `yaml:"alias,omitempty"`
}

// MethodSpec declares a method and its instruction listing
type MethodSpec struct {
	Type        string      `yaml:"type"`
	Name        string      `yaml:"name"`
	Token       uint32      `yaml:"token,omitempty"`
	Static      bool        `yaml:"static,omitempty"`
	Kernel      bool        `yaml:"kernel,omitempty"`
	Constructor bool        `yaml:"constructor,omitempty"`
	Alias       string      `yaml:"alias,omitempty"`
	Accessor    string      `yaml:"accessor,omitempty"` // getter|setter
	Params      []ParamSpec `yaml:"params,omitempty"`
	Returns     string      `yaml:"returns,omitempty"` // void when omitted
	Locals      []string    `yaml:"locals,omitempty"`
	Body        string      `yaml:"body,omitempty"`
}

// ParamSpec declares one parameter
type ParamSpec struct {
	Name       string   `yaml:"name"`
	Type       string   `yaml:"type"`
	Qualifiers []string `yaml:"qualifiers,omitempty"`
	ByValue    bool     `yaml:"by_value,omitempty"`
}

// ClosureSpec pairs a closure record type with its body method (Type::Name)
type ClosureSpec struct {
	Type string `yaml:"type"`
	Body string `yaml:"body"`
}
