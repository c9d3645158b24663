package program

import (
	"kernelc/codegen"
	"kernelc/compiler"
	"kernelc/device"
	"kernelc/meta"
	"strings"
)

// closureKernel is the wrapper entry point of a compiled closure
type closureKernel struct {
	closure *meta.Closure
	name    string
	record  string
	fields  []codegen.Field
}

// unit is the content of a translation unit. Compiles work on a clone and
// replace the program's unit only on success.
type unit struct {
	methods  map[*meta.MethodDesc]*Method
	order    []*Method
	types    []*meta.TypeDesc
	seen     map[*meta.TypeDesc]bool
	records  map[*meta.TypeDesc]bool
	closures []*closureKernel
}

func newUnit() *unit {
	return &unit{
		methods: make(map[*meta.MethodDesc]*Method),
		seen:    make(map[*meta.TypeDesc]bool),
		records: make(map[*meta.TypeDesc]bool),
	}
}

func (u *unit) clone() *unit {
	c := &unit{
		methods:  make(map[*meta.MethodDesc]*Method, len(u.methods)),
		order:    append([]*Method(nil), u.order...),
		types:    append([]*meta.TypeDesc(nil), u.types...),
		seen:     make(map[*meta.TypeDesc]bool, len(u.seen)),
		records:  make(map[*meta.TypeDesc]bool, len(u.records)),
		closures: append([]*closureKernel(nil), u.closures...),
	}
	for k, v := range u.methods {
		c.methods[k] = v
	}
	for k, v := range u.seen {
		c.seen[k] = v
	}
	for k, v := range u.records {
		c.records[k] = v
	}
	return c
}

func (u *unit) add(m *Method) {
	u.methods[m.Desc] = m
	u.order = append(u.order, m)
}

// ordered lists helpers in discovery order, then kernels in compile order
func (u *unit) ordered() []*Method {
	out := make([]*Method, 0, len(u.order))
	for _, m := range u.order {
		if !m.Kernel {
			out = append(out, m)
		}
	}
	for _, m := range u.order {
		if m.Kernel {
			out = append(out, m)
		}
	}
	return out
}

// assemble renders the unit: struct typedefs, closure records, forward
// declarations, definitions, closure wrappers. Sections are separated by a
// blank line.
func (p *Program) assemble(u *unit, entry string) (device.Source, error) {
	var sections []string

	var structs strings.Builder
	for _, t := range u.types {
		s, err := p.gen.Struct(p.store, t)
		if err != nil {
			return device.Source{}, meta.Attach(err, meta.E_UNSUPPORTED_TYPE, entry, -1)
		}
		structs.WriteString(s)
	}
	sections = append(sections, structs.String())

	var records strings.Builder
	for _, c := range u.closures {
		records.WriteString(codegen.Typedef(c.record, c.fields))
	}
	sections = append(sections, records.String())

	methods := u.ordered()
	results := make([]*compiler.Result, len(methods))
	var decls strings.Builder
	defs := make([]string, len(methods))
	for i, m := range methods {
		results[i] = m.Result
		decls.WriteString(p.gen.Declaration(m.Result) + "\n")
		defs[i] = p.gen.Function(m.Result)
	}
	sections = append(sections, decls.String(), strings.Join(defs, "\n"))

	wrappers := make([]string, len(u.closures))
	src := device.Source{Entry: entry, Functions: results, Store: p.store}
	for i, c := range u.closures {
		wrappers[i] = p.gen.Wrapper(c.name, c.record, c.fields, codegen.FunctionName(c.closure.Body))
		src.Wrappers = append(src.Wrappers, device.Wrapper{Name: c.name, Record: c.closure.Type, Body: c.closure.Body})
	}
	sections = append(sections, strings.Join(wrappers, "\n"))

	var sb strings.Builder
	for _, s := range sections {
		if s == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(s)
	}
	src.Text = sb.String()
	return src, nil
}
