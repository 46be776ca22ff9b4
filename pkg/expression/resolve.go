package expression

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Jeffail/gabs/v2"
)

// Lookup resolves a dotted path. The boolean is false when the path does not exist.
type Lookup interface {
	Resolve(path []string) (any, bool)
}

// Scope looks a path up in Globals first, then in the per-node outputs of Nodes
// (nodeId.field.sub).
type Scope struct {
	Globals map[string]any
	Nodes   map[string]any
}

func (s Scope) Resolve(path []string) (any, bool) {
	if len(path) == 0 {
		return nil, false
	}

	if root, ok := s.Globals[path[0]]; ok {
		return traverse(root, path[1:])
	}

	if root, ok := s.Nodes[path[0]]; ok {
		return traverse(root, path[1:])
	}

	return nil, false
}

// MapLookup resolves paths against a single flat map.
func MapLookup(vars map[string]any) Scope {
	return Scope{Globals: vars}
}

func traverse(root any, rest []string) (any, bool) {
	if len(rest) == 0 {
		return root, true
	}

	container := gabs.Wrap(root)
	if !container.Exists(rest...) {
		return nil, false
	}

	return container.Search(rest...).Data(), true
}

// ResolveString substitutes every placeholder in template.
func ResolveString(template string, lookup Lookup) string {
	return Parse(template).Execute(lookup)
}

// Execute renders the template. Placeholders that resolve to nothing keep their raw text.
func (t *Template) Execute(lookup Lookup) string {
	var out strings.Builder

	for _, n := range t.Nodes {
		switch node := n.(type) {
		case Text:
			out.WriteString(node.Value)
		case Placeholder:
			value, ok := Eval(node.Expr, lookup)
			if !ok || value == nil {
				out.WriteString(node.Raw)

				continue
			}

			out.WriteString(Format(value))
		}
	}

	return out.String()
}

// Eval evaluates an expression. The boolean is false when the result is undefined.
func Eval(e Expr, lookup Lookup) (any, bool) {
	switch expr := e.(type) {
	case LiteralExpr:
		return expr.Value, true
	case PathExpr:
		if lookup == nil {
			return nil, false
		}

		return lookup.Resolve(expr.Segments)
	case LengthExpr:
		value, _ := Eval(expr.Path, lookup)

		return Length(value), true
	case FallbackExpr:
		value, ok := Eval(expr.Left, lookup)
		if ok && !isEmpty(value) {
			return value, true
		}

		return Eval(expr.Right, lookup)
	default:
		return nil, false
	}
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}

	s, ok := v.(string)

	return ok && s == ""
}

// Length returns the length of arrays and strings, and 0 for anything else.
func Length(v any) int {
	switch value := v.(type) {
	case string:
		return utf8.RuneCountInString(value)
	case []any:
		return len(value)
	case []string:
		return len(value)
	case []map[string]any:
		return len(value)
	default:
		return 0
	}
}

// Format renders a resolved value as template text. Objects and arrays become indented JSON.
func Format(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(value), 'f', -1, 32)
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case bool:
		return strconv.FormatBool(value)
	default:
		return gabs.Wrap(value).StringIndent("", "  ")
	}
}
