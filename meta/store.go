package meta

import (
	"kernelc/bytecode"
	"sort"
	"strings"
	"sync"
)

// Store holds the type and method descriptors visible to the compiler
type Store struct {
	mu        sync.RWMutex
	types     map[string]*TypeDesc
	typeOrder []*TypeDesc
	methods   map[string][]*MethodDesc // by Type::Name, overloads in declaration order
	byToken   map[uint32]*MethodDesc
	closures  []*Closure
}

// NewStore creates an empty descriptor store
func NewStore() *Store {
	return &Store{
		types:   make(map[string]*TypeDesc),
		methods: make(map[string][]*MethodDesc),
		byToken: make(map[uint32]*MethodDesc),
	}
}

// AddType registers a type. A zero Token is replaced by a derived one.
func (s *Store) AddType(t *TypeDesc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := t.FullName()
	if _, exists := s.types[name]; exists {
		return TypeError(E_MANIFEST, name, "type declared twice")
	}
	if t.Token == 0 {
		t.Token = DeriveToken(TableType, name)
	}
	for _, other := range s.typeOrder {
		if other.Token == t.Token {
			return TypeError(E_MANIFEST, name, "token %d already used by %s", t.Token, other.FullName())
		}
	}
	s.types[name] = t
	s.typeOrder = append(s.typeOrder, t)
	return nil
}

// AddMethod registers a method. A zero Token is replaced by a derived one.
func (s *Store) AddMethod(m *MethodDesc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := m.FullName()
	for _, other := range s.methods[key] {
		if other.Signature() == m.Signature() {
			return &Error{Code: E_MANIFEST, Method: key, Offset: -1, Msg: "method declared twice"}
		}
	}
	if m.Token == 0 {
		m.Token = DeriveToken(TableMethod, m.Signature())
	}
	if other, exists := s.byToken[m.Token]; exists {
		return &Error{Code: E_MANIFEST, Method: key, Offset: -1, Msg: "token already used by " + other.Signature()}
	}
	s.methods[key] = append(s.methods[key], m)
	s.byToken[m.Token] = m
	return nil
}

// AddClosure registers a closure record and its body method
func (s *Store) AddClosure(c *Closure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closures = append(s.closures, c)
}

// Type resolves a type by qualified name
func (s *Store) Type(name string) (*TypeDesc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, ok := s.types[name]; ok {
		return t, nil
	}
	return nil, TypeError(E_UNRESOLVED_TYPE, name, "type not found")
}

// Method resolves a call target. The token wins when present; otherwise the
// parameter list narrows overloads, and a remaining ambiguity is an error.
func (s *Store) Method(ref bytecode.MethodRef) (*MethodDesc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := ref.DeclaringType + "::" + ref.Name
	if ref.Token != 0 {
		if m, ok := s.byToken[ref.Token]; ok && m.FullName() == key {
			return m, nil
		}
		return nil, &Error{Code: E_UNRESOLVED_METHOD, Method: ref.String(), Offset: -1, Msg: "no method with this token"}
	}

	candidates := s.methods[key]
	if ref.Params != nil {
		var matched []*MethodDesc
		for _, m := range candidates {
			if paramsMatch(m, ref.Params) {
				matched = append(matched, m)
			}
		}
		candidates = matched
	}

	switch len(candidates) {
	case 0:
		return nil, &Error{Code: E_UNRESOLVED_METHOD, Method: ref.String(), Offset: -1, Msg: "method not found"}
	case 1:
		return candidates[0], nil
	default:
		return nil, &Error{Code: E_UNRESOLVED_METHOD, Method: ref.String(), Offset: -1, Msg: "ambiguous overload"}
	}
}

func paramsMatch(m *MethodDesc, params []string) bool {
	if len(m.Params) != len(params) {
		return false
	}
	for i, p := range params {
		ref, err := ParseTypeRef(p)
		if err != nil || !ref.Equal(m.Params[i].Type) {
			return false
		}
	}
	return true
}

// MethodByName resolves "Type::Name" when it names a single method
func (s *Store) MethodByName(fullName string) (*MethodDesc, error) {
	decl, name, ok := cutMember(fullName)
	if !ok {
		return nil, &Error{Code: E_UNRESOLVED_METHOD, Method: fullName, Offset: -1, Msg: "expected Type::Name"}
	}
	return s.Method(bytecode.MethodRef{DeclaringType: decl, Name: name})
}

// Field resolves a field reference to its declaring type and field
func (s *Store) Field(ref bytecode.FieldRef) (*TypeDesc, *FieldDesc, error) {
	t, err := s.Type(ref.DeclaringType)
	if err != nil {
		return nil, nil, err
	}
	f, ok := t.Field(ref.Name)
	if !ok {
		return nil, nil, TypeError(E_UNRESOLVED_FIELD, t.FullName(), "no field %q", ref.Name)
	}
	return t, f, nil
}

// Types returns all types in registration order
func (s *Store) Types() []*TypeDesc {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*TypeDesc(nil), s.typeOrder...)
}

// Methods returns all methods ordered by signature
func (s *Store) Methods() []*MethodDesc {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []*MethodDesc
	for _, overloads := range s.methods {
		all = append(all, overloads...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Signature() < all[j].Signature() })
	return all
}

// Kernels returns the kernel entry points ordered by signature
func (s *Store) Kernels() []*MethodDesc {
	var kernels []*MethodDesc
	for _, m := range s.Methods() {
		if m.Kernel {
			kernels = append(kernels, m)
		}
	}
	return kernels
}

// Closures returns the registered closures in registration order
func (s *Store) Closures() []*Closure {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Closure(nil), s.closures...)
}

func cutMember(s string) (string, string, bool) {
	decl, name, ok := strings.Cut(s, "::")
	return decl, name, ok && decl != "" && name != ""
}
