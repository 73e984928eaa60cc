// Package csharp reads type declarations from C# scripts and maintains the
// catalog that maps script guids to the classes they declare.
package csharp

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"eventtracker/internal/domain/typesystem"

	forest "github.com/alexaandru/go-sitter-forest"
	tree_sitter "github.com/alexaandru/go-tree-sitter-bare"
)

const (
	backingFieldFormat = "<%s>k__BackingField"
	grammarName        = "c_sharp"
)

var typeDeclarationKinds = map[string]typesystem.Kind{
	"class_declaration":     typesystem.KindClass,
	"record_declaration":    typesystem.KindClass,
	"struct_declaration":    typesystem.KindStruct,
	"interface_declaration": typesystem.KindInterface,
	"enum_declaration":      typesystem.KindEnum,
}

var modifierKeywords = map[string]bool{
	"public": true, "private": true, "protected": true, "internal": true,
	"static": true, "abstract": true, "sealed": true, "partial": true,
	"readonly": true, "const": true, "virtual": true, "override": true,
	"new": true, "extern": true, "unsafe": true, "volatile": true, "async": true,
}

var parameterModifiers = map[string]bool{
	"ref": true, "out": true, "in": true, "this": true, "params": true, "scoped": true,
}

// Scanner extracts type declarations from C# source. A Scanner is not safe
// for concurrent use.
type Scanner struct {
	parser *tree_sitter.Parser
}

// NewScanner creates a scanner with the C# grammar loaded.
func NewScanner() (*Scanner, error) {
	grammar := forest.GetLanguage(grammarName)
	if grammar == nil {
		return nil, errors.New("c# grammar not available")
	}
	parser := tree_sitter.NewParser()
	if !parser.SetLanguage(grammar) {
		return nil, errors.New("failed to set c# language in tree-sitter parser")
	}
	return &Scanner{parser: parser}, nil
}

// Scan returns the types declared in source. Declarations keep their raw
// type spellings and name-resolution scope; the registry links them.
func (s *Scanner) Scan(ctx context.Context, source []byte, file, assembly string) ([]*typesystem.TypeDescriptor, error) {
	tree, err := s.parser.ParseString(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parsing failed: %w", err)
	}
	if tree == nil {
		return nil, errors.New("tree-sitter returned no tree")
	}
	root := convertTreeSitterNode(tree.RootNode())
	tree.Close()

	w := &declarationWalker{src: source, file: file, assembly: assembly}
	w.walkContainer(root, &typesystem.Scope{Aliases: map[string]string{}}, "")
	return w.types, nil
}

type declarationWalker struct {
	src      []byte
	file     string
	assembly string
	types    []*typesystem.TypeDescriptor
}

// walkContainer visits a compilation unit, namespace body or file scoped
// namespace. Using directives apply to the declarations that follow them.
func (w *declarationWalker) walkContainer(n *node, scope *typesystem.Scope, enclosing string) {
	scope = cloneScope(scope)
	for _, c := range n.children {
		switch c.kind {
		case "using_directive":
			w.addUsing(c, scope)
		case "namespace_declaration":
			inner := cloneScope(scope)
			inner.Namespace = joinNamespace(scope.Namespace, w.name(c))
			if body := c.child("declaration_list"); body != nil {
				w.walkContainer(body, inner, "")
			}
		case "file_scoped_namespace_declaration":
			scope.Namespace = joinNamespace(scope.Namespace, w.name(c))
			w.walkContainer(c, scope, "")
		case "declaration_list":
			w.walkContainer(c, scope, enclosing)
		default:
			if kind, ok := typeDeclarationKinds[c.kind]; ok {
				w.walkType(c, kind, scope, enclosing)
			}
		}
	}
}

func (w *declarationWalker) addUsing(n *node, scope *typesystem.Scope) {
	var parts []*node
	for _, c := range n.children {
		if c.isPunctuation() || c.kind == "using" || c.kind == "global" || c.kind == "static" {
			continue
		}
		parts = append(parts, c)
	}
	if len(parts) == 0 {
		return
	}
	if n.indexOf("=") >= 0 && len(parts) >= 2 {
		scope.Aliases[parts[0].text(w.src)] = compact(parts[len(parts)-1].text(w.src))
		return
	}
	scope.Usings = append(scope.Usings, compact(parts[len(parts)-1].text(w.src)))
}

// name returns the identifier or qualified name child of a declaration.
func (w *declarationWalker) name(n *node) string {
	if c := n.child("qualified_name", "identifier"); c != nil {
		return compact(c.text(w.src))
	}
	return ""
}

func (w *declarationWalker) walkType(n *node, kind typesystem.Kind, scope *typesystem.Scope, enclosing string) {
	name := w.name(n)
	if name == "" {
		return
	}
	mods := w.modifiers(n)
	attrs := w.attributes(n, "")

	td := &typesystem.TypeDescriptor{
		Assembly:     w.assembly,
		Kind:         kind,
		Abstract:     mods["abstract"] || kind == typesystem.KindInterface,
		Static:       mods["static"],
		Serializable: attrs.has("Serializable"),
		Scope:        cloneScope(scope),
		SourceFile:   w.file,
	}
	if tpl := n.child("type_parameter_list"); tpl != nil {
		td.TypeParams = w.typeParameters(tpl)
	}

	full := name
	if len(td.TypeParams) > 0 {
		full = fmt.Sprintf("%s`%d", name, len(td.TypeParams))
	}
	switch {
	case enclosing != "":
		full = enclosing + "+" + full
	case scope.Namespace != "":
		full = scope.Namespace + "." + full
	}
	td.FullName = full

	if bl := n.child("base_list"); bl != nil {
		for _, c := range bl.children {
			if c.isPunctuation() || c.kind == "argument_list" {
				continue
			}
			if c.kind == "primary_constructor_base_type" && len(c.children) > 0 {
				c = c.children[0]
			}
			td.BaseList = append(td.BaseList, compact(c.text(w.src)))
		}
	}

	w.types = append(w.types, td)

	body := n.child("declaration_list")
	if body == nil {
		return
	}
	for _, member := range body.children {
		switch member.kind {
		case "field_declaration":
			td.Fields = append(td.Fields, w.fields(member)...)
		case "method_declaration":
			if m, ok := w.method(member, kind); ok {
				td.Methods = append(td.Methods, m)
			}
		case "property_declaration":
			if p, backing, ok := w.property(member, kind); ok {
				td.Properties = append(td.Properties, p)
				if backing != nil {
					td.Fields = append(td.Fields, *backing)
				}
			}
		default:
			if nestedKind, ok := typeDeclarationKinds[member.kind]; ok {
				w.walkType(member, nestedKind, scope, full)
			}
		}
	}
}

func (w *declarationWalker) typeParameters(n *node) []string {
	var out []string
	for _, tp := range n.childrenOf("type_parameter") {
		var name string
		for _, c := range tp.children {
			if c.kind == "identifier" {
				name = c.text(w.src)
			}
		}
		if name == "" {
			name = strings.TrimSpace(tp.text(w.src))
		}
		out = append(out, name)
	}
	return out
}

func (w *declarationWalker) modifiers(n *node) map[string]bool {
	mods := make(map[string]bool)
	for _, c := range n.children {
		switch {
		case c.kind == "modifier":
			mods[strings.TrimSpace(c.text(w.src))] = true
		case modifierKeywords[c.kind]:
			mods[c.kind] = true
		}
	}
	return mods
}

func (w *declarationWalker) fields(n *node) []typesystem.FieldDescriptor {
	decl := n.child("variable_declaration")
	if decl == nil {
		return nil
	}
	mods := w.modifiers(n)
	attrs := w.attributes(n, "")
	if attrs.has("NonSerialized") {
		return nil
	}

	var fieldType string
	for _, c := range decl.children {
		if c.kind != "variable_declarator" && !c.isPunctuation() {
			fieldType = compact(c.text(w.src))
			break
		}
	}

	var out []typesystem.FieldDescriptor
	for _, d := range decl.childrenOf("variable_declarator") {
		id := d.child("identifier")
		if id == nil {
			continue
		}
		out = append(out, typesystem.FieldDescriptor{
			Name:                 id.text(w.src),
			Type:                 fieldType,
			Public:               mods["public"],
			SerializeField:       attrs.has("SerializeField") || attrs.has("SerializeReference"),
			Static:               mods["static"],
			Const:                mods["const"],
			ReadOnly:             mods["readonly"],
			FormerlySerializedAs: attrs.args("FormerlySerializedAs"),
		})
	}
	return out
}

func (w *declarationWalker) method(n *node, owner typesystem.Kind) (typesystem.MethodDescriptor, bool) {
	paramsIdx := n.indexOf("parameter_list")
	if paramsIdx < 0 || n.child("explicit_interface_specifier") != nil {
		return typesystem.MethodDescriptor{}, false
	}

	var parts []*node
	generic := false
	for _, c := range n.children[:paramsIdx] {
		switch {
		case c.kind == "type_parameter_list":
			generic = true
		case c.kind == "attribute_list", c.kind == "modifier", modifierKeywords[c.kind], c.isPunctuation():
		default:
			parts = append(parts, c)
		}
	}
	if len(parts) < 2 {
		return typesystem.MethodDescriptor{}, false
	}

	mods := w.modifiers(n)
	attrs := w.attributes(n, "")
	return typesystem.MethodDescriptor{
		Name:     parts[len(parts)-1].text(w.src),
		Params:   w.parameters(n.children[paramsIdx]),
		Return:   compact(parts[len(parts)-2].text(w.src)),
		Public:   mods["public"] || owner == typesystem.KindInterface,
		Static:   mods["static"],
		Generic:  generic,
		Obsolete: attrs.has("Obsolete"),
	}, true
}

func (w *declarationWalker) parameters(n *node) []string {
	var out []string
	for _, p := range n.childrenOf("parameter") {
		byRef := false
		var parts []*node
		for _, c := range p.children {
			if c.kind == "=" || c.kind == "equals_value_clause" {
				break
			}
			text := strings.TrimSpace(c.text(w.src))
			switch {
			case c.kind == "attribute_list", c.isPunctuation():
			case c.kind == "modifier", c.kind == "parameter_modifier", parameterModifiers[c.kind]:
				if text == "ref" || text == "out" || text == "in" {
					byRef = true
				}
			default:
				parts = append(parts, c)
			}
		}
		if len(parts) < 2 {
			// __arglist and untyped lambda parameters
			continue
		}
		raw := strings.TrimSpace(parts[0].text(w.src))
		for _, prefix := range []string{"ref ", "out ", "in "} {
			if strings.HasPrefix(raw, prefix) {
				raw = raw[len(prefix):]
				byRef = true
			}
		}
		t := compact(raw)
		if byRef {
			t += "&"
		}
		out = append(out, t)
	}
	return out
}

// property reads a property declaration. Auto-properties marked
// [field: SerializeField] also yield their compiler generated backing field.
func (w *declarationWalker) property(n *node, owner typesystem.Kind) (typesystem.PropertyDescriptor, *typesystem.FieldDescriptor, bool) {
	var parts []*node
	for _, c := range n.children {
		if c.kind == "accessor_list" || c.kind == "arrow_expression_clause" || c.kind == "=" {
			break
		}
		switch {
		case c.kind == "attribute_list", c.kind == "modifier", modifierKeywords[c.kind], c.isPunctuation():
		case c.kind == "explicit_interface_specifier":
			return typesystem.PropertyDescriptor{}, nil, false
		default:
			parts = append(parts, c)
		}
	}
	if len(parts) < 2 {
		return typesystem.PropertyDescriptor{}, nil, false
	}

	mods := w.modifiers(n)
	public := mods["public"] || owner == typesystem.KindInterface
	prop := typesystem.PropertyDescriptor{
		Name:     parts[len(parts)-1].text(w.src),
		Type:     compact(parts[len(parts)-2].text(w.src)),
		Static:   mods["static"],
		Obsolete: w.attributes(n, "").has("Obsolete"),
	}

	accessors := n.child("accessor_list")
	auto := accessors != nil
	if accessors != nil {
		for _, acc := range accessors.childrenOf("accessor_declaration") {
			if acc.child("block", "arrow_expression_clause") != nil {
				auto = false
			}
			accMods := w.modifiers(acc)
			restricted := accMods["private"] || accMods["protected"] || accMods["internal"]
			if acc.child("set") != nil || strings.Contains(w.accessorKeyword(acc), "set") {
				prop.PublicSetter = public && !restricted
			}
		}
	}

	var backing *typesystem.FieldDescriptor
	fieldAttrs := w.attributes(n, "field")
	if auto && fieldAttrs.has("SerializeField") && !prop.Static {
		backing = &typesystem.FieldDescriptor{
			Name:                 fmt.Sprintf(backingFieldFormat, prop.Name),
			Type:                 prop.Type,
			SerializeField:       true,
			FormerlySerializedAs: fieldAttrs.args("FormerlySerializedAs"),
		}
	}
	return prop, backing, true
}

func (w *declarationWalker) accessorKeyword(acc *node) string {
	for _, c := range acc.children {
		switch c.kind {
		case "attribute_list", "modifier", "block", "arrow_expression_clause", ";":
			continue
		}
		return strings.TrimSpace(c.text(w.src))
	}
	return ""
}

// attributeSet holds attribute names, normalized to their last segment
// without the "Attribute" suffix, with their string arguments.
type attributeSet map[string][]string

func (a attributeSet) has(name string) bool {
	_, ok := a[name]
	return ok
}

func (a attributeSet) args(name string) []string {
	return slices.Clone(a[name])
}

// attributes collects the attributes of a declaration that apply to target;
// an empty target selects attributes without a target specifier.
func (w *declarationWalker) attributes(n *node, target string) attributeSet {
	set := attributeSet{}
	for _, list := range n.childrenOf("attribute_list") {
		listTarget := ""
		if spec := list.child("attribute_target_specifier"); spec != nil {
			listTarget = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(spec.text(w.src)), ":"))
		}
		if listTarget != target {
			continue
		}
		for _, attr := range list.childrenOf("attribute") {
			nameNode := attr.child("identifier", "qualified_name", "generic_name", "alias_qualified_name")
			if nameNode == nil {
				continue
			}
			name := nameNode.text(w.src)
			if i := strings.LastIndexAny(name, ".:"); i >= 0 {
				name = name[i+1:]
			}
			name = strings.TrimSuffix(strings.TrimSpace(name), "Attribute")

			args := set[name]
			if argList := attr.child("attribute_argument_list"); argList != nil {
				for _, arg := range argList.childrenOf("attribute_argument") {
					if s, ok := w.stringLiteral(arg); ok {
						args = append(args, s)
					}
				}
			}
			set[name] = args
		}
	}
	return set
}

func (w *declarationWalker) stringLiteral(n *node) (string, bool) {
	for _, c := range n.children {
		if c.kind == "string_literal" || c.kind == "verbatim_string_literal" || c.kind == "raw_string_literal" {
			return strings.Trim(c.text(w.src), `@"`), true
		}
	}
	return "", false
}

func joinNamespace(outer, inner string) string {
	if outer == "" {
		return inner
	}
	if inner == "" {
		return outer
	}
	return outer + "." + inner
}

func cloneScope(s *typesystem.Scope) *typesystem.Scope {
	aliases := make(map[string]string, len(s.Aliases))
	for k, v := range s.Aliases {
		aliases[k] = v
	}
	return &typesystem.Scope{
		Namespace: s.Namespace,
		Usings:    slices.Clone(s.Usings),
		Aliases:   aliases,
	}
}

// compact removes whitespace from a type spelling.
func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}
