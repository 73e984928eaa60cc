package typesystem

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed builtin_types.yaml
var builtinTypesYAML []byte

// BuiltinTypes returns descriptors for the engine and runtime types scripts build on.
func BuiltinTypes() ([]*TypeDescriptor, error) {
	var types []*TypeDescriptor
	if err := yaml.Unmarshal(builtinTypesYAML, &types); err != nil {
		return nil, fmt.Errorf("decode builtin types: %w", err)
	}
	for _, t := range types {
		t.BuiltIn = true
	}
	return types, nil
}

// NewRegistryWithBuiltins creates a registry preloaded with BuiltinTypes.
func NewRegistryWithBuiltins() (*Registry, error) {
	types, err := BuiltinTypes()
	if err != nil {
		return nil, err
	}
	r := NewRegistry()
	for _, t := range types {
		r.Register(t)
	}
	return r, nil
}
