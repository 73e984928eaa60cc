package typesystem

import "strings"

// ResolvedField is a serialized field found by FindSerializedField.
type ResolvedField struct {
	Field FieldDescriptor
	// Owner is the type declaring the last path segment.
	Owner string
	// Path is the current field path, which differs from the requested one
	// when a segment was found through a rename record.
	Path string
}

// Renamed reports whether the field was found under a former name.
func (f ResolvedField) Renamed(requested string) bool {
	return strings.TrimSpace(requested) != f.Path
}

// FindSerializedField resolves a colon separated field path on a type. Each
// segment is looked up by name first and then through FormerlySerializedAs
// records; only fields visible to the serializer match.
func (r *Registry) FindSerializedField(typeName, path string) (ResolvedField, bool) {
	path = strings.TrimSpace(path)
	if path == "" {
		return ResolvedField{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	current := typeName
	var result ResolvedField
	names := make([]string, 0, strings.Count(path, ":")+1)
	for _, segment := range strings.Split(path, ":") {
		field, owner, ok := r.serializedFieldLocked(current, segment)
		if !ok {
			return ResolvedField{}, false
		}
		result.Field = field
		result.Owner = owner
		names = append(names, field.Name)
		current = field.Type
	}
	result.Path = strings.Join(names, ":")
	return result, true
}

type ownedField struct {
	FieldDescriptor
	owner string
}

func (r *Registry) serializedFieldLocked(typeName, name string) (FieldDescriptor, string, bool) {
	fields := r.fieldsLocked(typeName)
	for _, f := range fields {
		if f.Name == name && f.IsSerialized() {
			return f.FieldDescriptor, f.owner, true
		}
	}
	for _, f := range fields {
		if f.WasSerializedAs(name) && f.IsSerialized() {
			return f.FieldDescriptor, f.owner, true
		}
	}
	return FieldDescriptor{}, "", false
}

// fieldsLocked returns the fields declared on a type and its bases with
// generic parameters substituted.
func (r *Registry) fieldsLocked(typeName string) []ownedField {
	var out []ownedField
	for _, step := range r.baseChain(parseTypeExpr(typeName)) {
		d, ok := r.lookupLocked(step)
		if !ok {
			continue
		}
		bindings := bindingsFor(d, step)
		for _, f := range d.Fields {
			if len(bindings) > 0 {
				f.Type = parseTypeExpr(f.Type).substitute(bindings).String()
			}
			out = append(out, ownedField{FieldDescriptor: f, owner: d.FullName})
		}
	}
	return out
}

// HasEvents reports whether a concrete script type declares a serialized
// event field, directly or inside nested serializable types.
func (r *Registry) HasEvents(typeName string) bool {
	if !r.IsAttachableScript(typeName) {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hasEventsLocked(typeName, map[string]bool{typeName: true})
}

func (r *Registry) hasEventsLocked(typeName string, visited map[string]bool) bool {
	for _, f := range r.fieldsLocked(typeName) {
		if !f.IsSerialized() {
			continue
		}
		fieldType := parseTypeExpr(f.Type)
		if r.isAssignableLocked(typeExpr{name: TypeUnityEventBase}, fieldType) {
			return true
		}
		if visited[f.Type] {
			continue
		}
		visited[f.Type] = true

		d, ok := r.lookupLocked(fieldType)
		if !ok || d.BuiltIn || !d.Serializable {
			continue
		}
		if r.hasEventsLocked(f.Type, visited) {
			return true
		}
	}
	return false
}
