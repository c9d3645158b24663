package meta

import (
	"io/fs"
	"kernelc/bytecode"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ParseManifest decodes a manifest document
func ParseManifest(data []byte, source string) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, &Error{Code: E_MANIFEST, Offset: -1, Msg: source, Err: err}
	}
	m.Source = source
	return &m, nil
}

// LoadManifest reads and decodes one manifest file
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read manifest")
	}
	return ParseManifest(data, path)
}

// LoadManifestDir loads every .yaml/.yml file under dir in lexical order
func LoadManifestDir(dir string) ([]*Manifest, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if ext := filepath.Ext(path); ext == ".yaml" || ext == ".yml" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	manifests := make([]*Manifest, 0, len(paths))
	for _, path := range paths {
		m, err := LoadManifest(path)
		if err != nil {
			return nil, err
		}
		manifests = append(manifests, m)
	}
	return manifests, nil
}

// NewStoreFrom builds a store holding the builtin library plus the manifests
func NewStoreFrom(manifests ...*Manifest) (*Store, error) {
	store, err := NewBuiltinStore()
	if err != nil {
		return nil, err
	}
	for _, m := range manifests {
		if err := m.Populate(store); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// Populate converts the manifest into descriptors and registers them.
// Types go first so field layouts and closures can refer to them.
func (m *Manifest) Populate(store *Store) error {
	for _, spec := range m.Types {
		t, err := spec.desc(store)
		if err != nil {
			return errors.Wrapf(err, "%s: type %s", m.Source, spec.Name)
		}
		if err := store.AddType(t); err != nil {
			return errors.Wrapf(err, "%s", m.Source)
		}
	}
	for _, spec := range m.Methods {
		md, err := spec.desc()
		if err != nil {
			return errors.Wrapf(err, "%s: method %s::%s", m.Source, spec.Type, spec.Name)
		}
		if err := store.AddMethod(md); err != nil {
			return errors.Wrapf(err, "%s", m.Source)
		}
	}
	for _, spec := range m.Closures {
		c, err := spec.resolve(store)
		if err != nil {
			return errors.Wrapf(err, "%s: closure %s", m.Source, spec.Type)
		}
		store.AddClosure(c)
	}
	return nil
}

// SplitTypeName separates the namespace from a qualified type name.
// Nested types ("Ns.Outer/Inner") keep the nesting in the name.
func SplitTypeName(full string) (namespace, name string) {
	head := full
	if i := strings.IndexByte(full, '/'); i >= 0 {
		head = full[:i]
	}
	i := strings.LastIndexByte(head, '.')
	if i < 0 {
		return "", full
	}
	return full[:i], full[i+1:]
}

func (spec TypeSpec) desc(store *Store) (*TypeDesc, error) {
	if spec.Name == "" {
		return nil, Errorf(E_MANIFEST, "type without a name")
	}
	ns, name := SplitTypeName(spec.Name)
	t := &TypeDesc{Namespace: ns, Name: name, Token: spec.Token, Alias: spec.Alias}

	switch spec.Access {
	case "":
	case "read_only":
		t.Access = AccessReadOnly
	case "write_only":
		t.Access = AccessWriteOnly
	default:
		return nil, TypeError(E_MANIFEST, spec.Name, "unknown access %q", spec.Access)
	}

	offset := 0
	for _, f := range spec.Fields {
		ref, err := ParseTypeRef(f.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "field %s", f.Name)
		}
		if f.Offset != nil {
			offset = *f.Offset
		}
		t.Fields = append(t.Fields, FieldDesc{Name: f.Name, Type: ref, Offset: offset, Alias: f.Alias})
		offset += SizeOf(store, ref)
	}
	return t, nil
}

func (spec MethodSpec) desc() (*MethodDesc, error) {
	if spec.Type == "" || spec.Name == "" {
		return nil, Errorf(E_MANIFEST, "method needs type and name")
	}
	m := &MethodDesc{
		DeclaringType: spec.Type,
		Name:          spec.Name,
		Token:         spec.Token,
		Static:        spec.Static,
		Kernel:        spec.Kernel,
		Constructor:   spec.Constructor || spec.Name == ".ctor",
		Alias:         spec.Alias,
		Return:        Void,
	}
	if m.Constructor && m.Static {
		return nil, Errorf(E_MANIFEST, "constructor cannot be static")
	}

	switch spec.Accessor {
	case "":
	case "getter":
		m.Accessor = AccessorGetter
	case "setter":
		m.Accessor = AccessorSetter
	default:
		return nil, Errorf(E_MANIFEST, "unknown accessor %q", spec.Accessor)
	}

	if spec.Returns != "" {
		ref, err := ParseTypeRef(spec.Returns)
		if err != nil {
			return nil, errors.Wrap(err, "return type")
		}
		m.Return = ref
	}

	for _, p := range spec.Params {
		ref, err := ParseTypeRef(p.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "parameter %s", p.Name)
		}
		param := ParamDesc{Name: p.Name, Type: ref, ByValue: p.ByValue}
		for _, q := range p.Qualifiers {
			qual, ok := ParseQualifier(q)
			if !ok {
				return nil, Errorf(E_MANIFEST, "parameter %s: unknown qualifier %q", p.Name, q)
			}
			param.Qualifiers = append(param.Qualifiers, qual)
		}
		m.Params = append(m.Params, param)
	}

	for i, l := range spec.Locals {
		ref, err := ParseTypeRef(l)
		if err != nil {
			return nil, errors.Wrapf(err, "local %d", i)
		}
		m.Locals = append(m.Locals, ref)
	}

	if strings.TrimSpace(spec.Body) != "" {
		code, err := bytecode.ParseListing(spec.Body)
		if err != nil {
			return nil, &Error{Code: E_MANIFEST, Method: m.FullName(), Offset: -1, Msg: "body", Err: err}
		}
		m.Body = code
	}
	return m, nil
}

func (spec ClosureSpec) resolve(store *Store) (*Closure, error) {
	t, err := store.Type(spec.Type)
	if err != nil {
		return nil, err
	}
	var body *MethodDesc
	if spec.Body != "" {
		body, err = store.MethodByName(spec.Body)
		if err != nil {
			return nil, err
		}
	}
	return &Closure{Type: t, Body: body}, nil
}

// SizeOf returns the size in bytes of a host type under sequential layout.
// Unknown value types count as zero.
func SizeOf(store *Store, ref TypeRef) int {
	switch ref.Kind {
	case KindPrimitive:
		switch ref.Prim {
		case PrimVoid:
			return 0
		case PrimBool, PrimSByte, PrimByte:
			return 1
		case PrimShort, PrimUShort, PrimHalf, PrimChar:
			return 2
		case PrimInt, PrimUInt, PrimFloat:
			return 4
		default:
			return 8
		}
	case KindValue:
		if store == nil {
			return 0
		}
		t, err := store.Type(ref.Name)
		if err != nil {
			return 0
		}
		size := 0
		for _, f := range t.Fields {
			if end := f.Offset + SizeOf(store, f.Type); end > size {
				size = end
			}
		}
		return size
	default:
		return 8
	}
}
