package typesystem

import (
	"slices"
	"strconv"
	"strings"
	"sync"
)

const maxBaseChainDepth = 64

// Registry holds type descriptors keyed by full name and answers
// relationship queries between them.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*TypeDescriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]*TypeDescriptor)}
}

// Register adds a descriptor. Partial declarations of the same type are merged.
func (r *Registry) Register(t *TypeDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.types[t.FullName]
	if !ok || existing.BuiltIn {
		r.types[t.FullName] = t.clone()
		return
	}
	existing.Fields = append(existing.Fields, t.Fields...)
	existing.Methods = append(existing.Methods, t.Methods...)
	existing.Properties = append(existing.Properties, t.Properties...)
	existing.BaseList = append(existing.BaseList, t.BaseList...)
	existing.Abstract = existing.Abstract || t.Abstract
	existing.Serializable = existing.Serializable || t.Serializable
	if existing.Base == "" {
		existing.Base = t.Base
	}
}

// Lookup returns the descriptor of a type. Generic instantiations resolve to
// their definition; arrays are not registered.
func (r *Registry) Lookup(name string) (*TypeDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookupLocked(parseTypeExpr(name))
}

func (r *Registry) lookupLocked(e typeExpr) (*TypeDescriptor, bool) {
	if e.array > 0 {
		return nil, false
	}
	t, ok := r.types[e.definitionName()]
	return t, ok
}

// LookupAssemblyQualified resolves a serialized "Namespace.Type, Assembly" name.
func (r *Registry) LookupAssemblyQualified(name string) (*TypeDescriptor, bool) {
	full := StripAssembly(name)
	// runtime spelling of generic instantiations: Name`1[[Arg, Asm]]
	if i := strings.Index(full, "[["); i > 0 {
		full = full[:i]
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[full]
	return t, ok
}

// Types returns all descriptors ordered by full name.
func (r *Registry) Types() []*TypeDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*TypeDescriptor, 0, len(r.types))
	for _, t := range r.types {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b *TypeDescriptor) int { return strings.Compare(a.FullName, b.FullName) })
	return out
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types)
}

// Link resolves the raw type spellings of every declaration registered with a
// Scope into full names, using keyword aliases, enclosing types, the namespace
// chain and using directives. Names that cannot be resolved are kept verbatim.
func (r *Registry) Link() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.types {
		if t.Scope == nil {
			continue
		}
		for i := range t.Fields {
			t.Fields[i].Type = r.resolveLocked(t.Fields[i].Type, t)
		}
		for i := range t.Methods {
			m := &t.Methods[i]
			m.Return = r.resolveLocked(m.Return, t)
			params := make([]string, len(m.Params))
			for j, p := range m.Params {
				params[j] = r.resolveLocked(p, t)
			}
			m.Params = params
		}
		for i := range t.Properties {
			t.Properties[i].Type = r.resolveLocked(t.Properties[i].Type, t)
		}
		r.linkBaseList(t)
		t.Scope = nil
	}
}

func (r *Registry) linkBaseList(t *TypeDescriptor) {
	var interfaces []string
	for i, raw := range t.BaseList {
		resolved := r.resolveLocked(raw, t)
		if t.Kind == KindEnum {
			continue
		}
		if t.Kind == KindClass && t.Base == "" && i == 0 && r.looksLikeClass(resolved) {
			t.Base = resolved
			continue
		}
		interfaces = append(interfaces, resolved)
	}
	t.Interfaces = append(t.Interfaces, interfaces...)
	t.BaseList = nil

	if t.Base != "" {
		return
	}
	switch t.Kind {
	case KindClass:
		t.Base = TypeObject
	case KindStruct:
		t.Base = "System.ValueType"
	case KindEnum:
		t.Base = "System.Enum"
	}
}

// looksLikeClass decides whether the first base-list entry is a base class.
// Unknown types follow the interface naming convention.
func (r *Registry) looksLikeClass(name string) bool {
	e := parseTypeExpr(name)
	if d, ok := r.types[e.definitionName()]; ok {
		return d.Kind == KindClass
	}
	simple := e.name
	if i := strings.LastIndexAny(simple, ".+"); i >= 0 {
		simple = simple[i+1:]
	}
	isInterfaceName := len(simple) > 1 && simple[0] == 'I' && simple[1] >= 'A' && simple[1] <= 'Z'
	return !isInterfaceName
}

func (r *Registry) resolveLocked(raw string, ctx *TypeDescriptor) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	byRef := strings.HasSuffix(raw, "&")
	e := r.resolveExpr(parseTypeExpr(strings.TrimSuffix(raw, "&")), ctx)
	if byRef {
		return e.String() + "&"
	}
	return e.String()
}

func (r *Registry) resolveExpr(e typeExpr, ctx *TypeDescriptor) typeExpr {
	out := typeExpr{array: e.array}
	for _, a := range e.args {
		out.args = append(out.args, r.resolveExpr(a, ctx))
	}
	if kw, ok := keywordTypes[e.name]; ok && len(e.args) == 0 {
		out.name = kw
		return out
	}
	out.name = r.resolveName(e.name, len(e.args), ctx)
	return out
}

func (r *Registry) resolveName(name string, arity int, ctx *TypeDescriptor) string {
	key := func(n string) string {
		if arity == 0 {
			return n
		}
		return n + "`" + strconv.Itoa(arity)
	}

	if ctx != nil && arity == 0 && r.isTypeParam(name, ctx) {
		return name
	}

	var scope Scope
	if ctx != nil && ctx.Scope != nil {
		scope = *ctx.Scope
	}
	if head, rest, found := strings.Cut(name, "."); len(scope.Aliases) > 0 {
		if target, ok := scope.Aliases[head]; ok {
			if !found {
				return target
			}
			name = target + "." + rest
		}
	}

	for _, candidate := range r.nameCandidates(name, ctx, scope) {
		if _, ok := r.types[key(candidate)]; ok {
			return candidate
		}
	}
	return name
}

// nameCandidates lists the full names a spelling may refer to, in C# lookup order.
func (r *Registry) nameCandidates(name string, ctx *TypeDescriptor, scope Scope) []string {
	variants := nestedVariants(name)
	var out []string

	if ctx != nil {
		nested := strings.ReplaceAll(name, ".", "+")
		for encl := ctx.FullName; encl != ""; encl = enclosingTypeName(encl) {
			out = append(out, encl+"+"+nested)
		}
	}

	parts := strings.Split(scope.Namespace, ".")
	if scope.Namespace == "" {
		parts = nil
	}
	for i := len(parts); i >= 0; i-- {
		prefix := strings.Join(parts[:i], ".")
		for _, v := range variants {
			if prefix == "" {
				out = append(out, v)
			} else {
				out = append(out, prefix+"."+v)
			}
		}
	}
	for _, u := range scope.Usings {
		for _, v := range variants {
			out = append(out, u+"."+v)
		}
	}
	return out
}

// nestedVariants returns a dotted name plus the forms where trailing segments
// name nested types: "A.B.C", "A.B+C", "A+B+C".
func nestedVariants(name string) []string {
	parts := strings.Split(name, ".")
	out := []string{name}
	for j := len(parts) - 1; j >= 1; j-- {
		out = append(out, strings.Join(parts[:j], ".")+"+"+strings.Join(parts[j:], "+"))
	}
	return out
}

func enclosingTypeName(fullName string) string {
	i := strings.LastIndexByte(fullName, '+')
	if i < 0 {
		return ""
	}
	return fullName[:i]
}

func (r *Registry) isTypeParam(name string, ctx *TypeDescriptor) bool {
	for t := ctx; t != nil; {
		if slices.Contains(t.TypeParams, name) {
			return true
		}
		outer, ok := r.types[enclosingTypeName(t.FullName)]
		if !ok {
			return false
		}
		t = outer
	}
	return false
}

// baseChain returns the type followed by its base classes, substituting
// generic arguments along the way.
func (r *Registry) baseChain(e typeExpr) []typeExpr {
	if e.array > 0 {
		return []typeExpr{e, {name: "System.Array"}, {name: TypeObject}}
	}
	var chain []typeExpr
	seen := make(map[string]bool)
	for range maxBaseChainDepth {
		key := e.String()
		if seen[key] {
			break
		}
		seen[key] = true
		chain = append(chain, e)

		d, ok := r.types[e.definitionName()]
		if !ok || d.Base == "" {
			break
		}
		e = parseTypeExpr(d.Base).substitute(bindingsFor(d, e))
	}
	return chain
}

func bindingsFor(d *TypeDescriptor, e typeExpr) map[string]typeExpr {
	if len(d.TypeParams) == 0 || len(d.TypeParams) != len(e.args) {
		return nil
	}
	b := make(map[string]typeExpr, len(d.TypeParams))
	for i, p := range d.TypeParams {
		b[p] = e.args[i]
	}
	return b
}

// BaseChain returns the type and its base classes, most-derived first.
func (r *Registry) BaseChain(name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for _, e := range r.baseChain(parseTypeExpr(name)) {
		out = append(out, e.String())
	}
	return out
}

// IsAssignableFrom reports whether a value of type source can be stored in a
// location of type target.
func (r *Registry) IsAssignableFrom(target, source string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isAssignableLocked(parseTypeExpr(target), parseTypeExpr(source))
}

func (r *Registry) isAssignableLocked(target, source typeExpr) bool {
	want := target.String()
	if want == source.String() {
		return true
	}
	if source.name == TypeVoid || source.name == "" || strings.HasSuffix(source.name, "&") {
		return false
	}
	if want == TypeObject {
		return true
	}
	for _, step := range r.baseChain(source) {
		if step.String() == want {
			return true
		}
		if r.implementsLocked(step, want, make(map[string]bool)) {
			return true
		}
	}
	return false
}

func (r *Registry) implementsLocked(e typeExpr, want string, visited map[string]bool) bool {
	d, ok := r.lookupLocked(e)
	if !ok {
		return false
	}
	bindings := bindingsFor(d, e)
	for _, raw := range d.Interfaces {
		iface := parseTypeExpr(raw).substitute(bindings)
		key := iface.String()
		if key == want {
			return true
		}
		if visited[key] {
			continue
		}
		visited[key] = true
		if r.implementsLocked(iface, want, visited) {
			return true
		}
	}
	return false
}

// Methods returns the public methods callable on a type, including inherited
// ones. Overridden and hidden base methods are omitted.
func (r *Registry) Methods(typeName string) []MethodDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var out []MethodDescriptor
	for _, step := range r.baseChain(parseTypeExpr(typeName)) {
		d, ok := r.lookupLocked(step)
		if !ok {
			continue
		}
		bindings := bindingsFor(d, step)
		for _, m := range d.Methods {
			if !m.Public {
				continue
			}
			m.Params = substituteAll(m.Params, bindings)
			sig := m.Name + "(" + strings.Join(m.Params, ",") + ")"
			if seen[sig] {
				continue
			}
			seen[sig] = true
			m.DeclaringType = d.FullName
			out = append(out, m)
		}
	}
	return out
}

// PropertySetters returns the public instance property setters of a type,
// including inherited ones.
func (r *Registry) PropertySetters(typeName string) []MethodDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var out []MethodDescriptor
	for _, step := range r.baseChain(parseTypeExpr(typeName)) {
		d, ok := r.lookupLocked(step)
		if !ok {
			continue
		}
		bindings := bindingsFor(d, step)
		for _, p := range d.Properties {
			if seen[p.Name] {
				continue
			}
			seen[p.Name] = true
			if !p.PublicSetter || p.Static {
				continue
			}
			setter := p.Setter(d.FullName)
			setter.Params = substituteAll(setter.Params, bindings)
			out = append(out, setter)
		}
	}
	return out
}

func substituteAll(types []string, bindings map[string]typeExpr) []string {
	if len(bindings) == 0 {
		return slices.Clone(types)
	}
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = parseTypeExpr(t).substitute(bindings).String()
	}
	return out
}

// IsEvent reports whether the type derives from the engine's event base.
func (r *Registry) IsEvent(typeName string) bool {
	return r.IsAssignableFrom(TypeUnityEventBase, typeName)
}

// EventArgumentTypes returns the parameter types of an event's Invoke method.
func (r *Registry) EventArgumentTypes(eventType string) ([]string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, step := range r.baseChain(parseTypeExpr(eventType)) {
		if step.name != TypeUnityEvent {
			continue
		}
		args := make([]string, 0, len(step.args))
		for _, a := range step.args {
			args = append(args, a.String())
		}
		return args, true
	}
	return nil, false
}

// IsAttachableScript reports whether instances of the type can be stored in
// assets: a concrete MonoBehaviour or ScriptableObject.
func (r *Registry) IsAttachableScript(typeName string) bool {
	d, ok := r.Lookup(typeName)
	if !ok || d.Kind != KindClass || d.Abstract || d.IsGenericDefinition() {
		return false
	}
	return r.IsAssignableFrom(TypeMonoBehaviour, typeName) || r.IsAssignableFrom(TypeScriptableObject, typeName)
}

// IsBuiltIn reports whether the type is provided by the engine or runtime.
func (r *Registry) IsBuiltIn(typeName string) bool {
	d, ok := r.Lookup(typeName)
	return ok && d.BuiltIn
}
