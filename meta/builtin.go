package meta

import (
	_ "embed"
	"sync"
)

//go:embed builtin.yaml
var builtinYAML []byte

var builtinManifest = sync.OnceValues(func() (*Manifest, error) {
	return ParseManifest(builtinYAML, "builtin.yaml")
})

// Builtins returns the embedded alias library
func Builtins() (*Manifest, error) {
	return builtinManifest()
}

// NewBuiltinStore returns a fresh store holding only the alias library
func NewBuiltinStore() (*Store, error) {
	m, err := Builtins()
	if err != nil {
		return nil, err
	}
	store := NewStore()
	if err := m.Populate(store); err != nil {
		return nil, err
	}
	return store, nil
}
