package typesystem

import (
	"strconv"
	"strings"
)

// keywordTypes maps C# keyword aliases to their runtime type names.
var keywordTypes = map[string]string{
	"void":    TypeVoid,
	"object":  TypeObject,
	"string":  TypeString,
	"bool":    TypeBool,
	"int":     TypeInt,
	"float":   TypeFloat,
	"double":  "System.Double",
	"decimal": "System.Decimal",
	"long":    "System.Int64",
	"ulong":   "System.UInt64",
	"uint":    "System.UInt32",
	"short":   "System.Int16",
	"ushort":  "System.UInt16",
	"byte":    "System.Byte",
	"sbyte":   "System.SByte",
	"char":    "System.Char",
}

// typeExpr is a parsed type spelling such as "List<int>[]".
type typeExpr struct {
	name  string
	args  []typeExpr
	array int
}

// parseTypeExpr parses a type spelling. Nullable shorthand is expanded and
// whitespace is ignored.
func parseTypeExpr(s string) typeExpr {
	s = strings.Join(strings.Fields(s), "")
	s = strings.TrimPrefix(s, "global::")
	p := &typeExprParser{src: s}
	return p.parse()
}

type typeExprParser struct {
	src string
	pos int
}

func (p *typeExprParser) parse() typeExpr {
	start := p.pos
	for p.pos < len(p.src) && !strings.ContainsRune("<>,[]?", rune(p.src[p.pos])) {
		p.pos++
	}
	expr := typeExpr{name: p.src[start:p.pos]}

	if p.peek() == '<' {
		p.pos++
		for p.pos < len(p.src) {
			expr.args = append(expr.args, p.parse())
			if p.peek() == ',' {
				p.pos++
				continue
			}
			break
		}
		if p.peek() == '>' {
			p.pos++
		}
	}

	for p.pos < len(p.src) {
		switch {
		case strings.HasPrefix(p.src[p.pos:], "[]"):
			expr.array++
			p.pos += 2
		case p.peek() == '[':
			// multi-dimensional arrays count as one rank
			end := strings.IndexByte(p.src[p.pos:], ']')
			if end < 0 {
				p.pos = len(p.src)
				return expr
			}
			expr.array++
			p.pos += end + 1
		case p.peek() == '?':
			p.pos++
			expr = typeExpr{name: "System.Nullable", args: []typeExpr{expr}}
		default:
			return expr
		}
	}
	return expr
}

func (p *typeExprParser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

// definitionName returns the registry key of the generic definition, e.g. "UnityEvent`1".
func (e typeExpr) definitionName() string {
	if len(e.args) == 0 {
		return e.name
	}
	return e.name + "`" + strconv.Itoa(len(e.args))
}

// elementType returns the expression without array ranks.
func (e typeExpr) elementType() typeExpr {
	e.array = 0
	return e
}

func (e typeExpr) String() string {
	var b strings.Builder
	e.write(&b)
	return b.String()
}

func (e typeExpr) write(b *strings.Builder) {
	b.WriteString(e.name)
	if len(e.args) > 0 {
		b.WriteByte('<')
		for i, a := range e.args {
			if i > 0 {
				b.WriteString(", ")
			}
			a.write(b)
		}
		b.WriteByte('>')
	}
	for range e.array {
		b.WriteString("[]")
	}
}

// substitute replaces generic parameter names using the given bindings.
func (e typeExpr) substitute(bindings map[string]typeExpr) typeExpr {
	if len(bindings) == 0 {
		return e
	}
	if bound, ok := bindings[e.name]; ok && len(e.args) == 0 {
		bound.array += e.array
		return bound
	}
	out := typeExpr{name: e.name, array: e.array}
	for _, a := range e.args {
		out.args = append(out.args, a.substitute(bindings))
	}
	return out
}

// splitArity splits "Name`2" into "Name" and 2.
func splitArity(name string) (string, int) {
	i := strings.LastIndexByte(name, '`')
	if i < 0 {
		return name, 0
	}
	n, err := strconv.Atoi(name[i+1:])
	if err != nil {
		return name, 0
	}
	return name[:i], n
}

// StripAssembly removes the assembly part of an assembly-qualified type name.
func StripAssembly(assemblyQualified string) string {
	depth := 0
	for i, r := range assemblyQualified {
		switch r {
		case '[', '<':
			depth++
		case ']', '>':
			depth--
		case ',':
			if depth == 0 {
				return strings.TrimSpace(assemblyQualified[:i])
			}
		}
	}
	return strings.TrimSpace(assemblyQualified)
}
