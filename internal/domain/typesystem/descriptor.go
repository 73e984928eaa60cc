// Package typesystem describes the classes declared by project scripts and the
// engine types they build on, and answers the serializer's questions about them:
// which fields are serialized, which types are events and which methods a
// persistent listener could call.
package typesystem

import "slices"

// Well-known type names.
const (
	TypeVoid   = "System.Void"
	TypeObject = "System.Object"
	TypeString = "System.String"
	TypeBool   = "System.Boolean"
	TypeInt    = "System.Int32"
	TypeFloat  = "System.Single"

	TypeUnityObject      = "UnityEngine.Object"
	TypeMonoBehaviour    = "UnityEngine.MonoBehaviour"
	TypeScriptableObject = "UnityEngine.ScriptableObject"
	TypeUnityEventBase   = "UnityEngine.Events.UnityEventBase"
	TypeUnityEvent       = "UnityEngine.Events.UnityEvent"
)

// Kind is the declaration kind of a type.
type Kind string

// Declaration kinds.
const (
	KindClass     Kind = "class"
	KindStruct    Kind = "struct"
	KindInterface Kind = "interface"
	KindEnum      Kind = "enum"
)

// FieldDescriptor describes a declared field.
type FieldDescriptor struct {
	Name                 string   `yaml:"name"`
	Type                 string   `yaml:"type"`
	Public               bool     `yaml:"public"`
	SerializeField       bool     `yaml:"serializeField"`
	Static               bool     `yaml:"static"`
	Const                bool     `yaml:"const"`
	ReadOnly             bool     `yaml:"readonly"`
	FormerlySerializedAs []string `yaml:"formerlySerializedAs"`
}

// IsSerialized reports whether the engine serializer writes this field.
func (f FieldDescriptor) IsSerialized() bool {
	return (f.Public || f.SerializeField) && !f.Static && !f.Const && !f.ReadOnly
}

// WasSerializedAs reports whether the field carries a rename record for name.
func (f FieldDescriptor) WasSerializedAs(name string) bool {
	return slices.Contains(f.FormerlySerializedAs, name)
}

// MethodDescriptor describes a declared method. Property setters are exposed
// as special methods named "set_<Property>".
type MethodDescriptor struct {
	Name          string   `yaml:"name"`
	Params        []string `yaml:"params"`
	Return        string   `yaml:"return"`
	Public        bool     `yaml:"public"`
	Static        bool     `yaml:"static"`
	Generic       bool     `yaml:"generic"`
	Obsolete      bool     `yaml:"obsolete"`
	Special       bool     `yaml:"special"`
	DeclaringType string   `yaml:"-"`
}

// ReturnsVoid reports whether the method has no return value.
func (m MethodDescriptor) ReturnsVoid() bool {
	return m.Return == "" || m.Return == TypeVoid
}

// Signature returns a display form such as "void SetHealth(System.Int32)".
func (m MethodDescriptor) Signature() string {
	ret := m.Return
	if m.ReturnsVoid() {
		ret = "void"
	}
	s := ret + " " + m.Name + "("
	for i, p := range m.Params {
		if i > 0 {
			s += ", "
		}
		s += p
	}
	return s + ")"
}

// PropertyDescriptor describes a declared property.
type PropertyDescriptor struct {
	Name         string `yaml:"name"`
	Type         string `yaml:"type"`
	PublicSetter bool   `yaml:"publicSetter"`
	Static       bool   `yaml:"static"`
	Obsolete     bool   `yaml:"obsolete"`
}

// Setter returns the property's setter as a method descriptor.
func (p PropertyDescriptor) Setter(declaringType string) MethodDescriptor {
	return MethodDescriptor{
		Name:          "set_" + p.Name,
		Params:        []string{p.Type},
		Return:        TypeVoid,
		Public:        p.PublicSetter,
		Static:        p.Static,
		Obsolete:      p.Obsolete,
		Special:       true,
		DeclaringType: declaringType,
	}
}

// Scope holds the name-resolution context a type was declared in.
type Scope struct {
	Namespace string
	Usings    []string
	Aliases   map[string]string
}

// TypeDescriptor describes a class, struct, interface or enum.
//
// FullName uses '+' between nested type names and a backtick arity suffix for
// generic definitions, e.g. "Game.Events.Holder+Payload" or "Game.TypedEvent`1".
type TypeDescriptor struct {
	FullName     string               `yaml:"name"`
	Assembly     string               `yaml:"assembly"`
	Kind         Kind                 `yaml:"kind"`
	Base         string               `yaml:"base"`
	Interfaces   []string             `yaml:"interfaces"`
	TypeParams   []string             `yaml:"typeParams"`
	Abstract     bool                 `yaml:"abstract"`
	Static       bool                 `yaml:"static"`
	Serializable bool                 `yaml:"serializable"`
	Fields       []FieldDescriptor    `yaml:"fields"`
	Methods      []MethodDescriptor   `yaml:"methods"`
	Properties   []PropertyDescriptor `yaml:"properties"`

	// BaseList holds the raw base-list spellings of a declaration that has
	// not been linked yet. The first entry naming a class becomes Base.
	BaseList   []string `yaml:"-"`
	Scope      *Scope   `yaml:"-"`
	SourceFile string   `yaml:"-"`
	BuiltIn    bool     `yaml:"-"`
}

// Name returns the simple name of the type without namespace or arity.
func (t *TypeDescriptor) Name() string {
	name := t.FullName
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' || name[i] == '+' {
			name = name[i+1:]
			break
		}
	}
	name, _ = splitArity(name)
	return name
}

// AssemblyQualifiedName returns "FullName, Assembly" as written by the serializer.
func (t *TypeDescriptor) AssemblyQualifiedName() string {
	if t.Assembly == "" {
		return t.FullName
	}
	return t.FullName + ", " + t.Assembly
}

// IsGenericDefinition reports whether the type declares type parameters.
func (t *TypeDescriptor) IsGenericDefinition() bool {
	return len(t.TypeParams) > 0
}

// Field returns the declared field with the given name.
func (t *TypeDescriptor) Field(name string) (FieldDescriptor, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDescriptor{}, false
}

func (t *TypeDescriptor) clone() *TypeDescriptor {
	c := *t
	c.Interfaces = slices.Clone(t.Interfaces)
	c.TypeParams = slices.Clone(t.TypeParams)
	c.Fields = slices.Clone(t.Fields)
	c.Methods = slices.Clone(t.Methods)
	c.Properties = slices.Clone(t.Properties)
	c.BaseList = slices.Clone(t.BaseList)
	return &c
}
