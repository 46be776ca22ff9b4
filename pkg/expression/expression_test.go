package expression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveString_Fallback(t *testing.T) {
	tests := []struct {
		name     string
		template string
		vars     map[string]any
		expected string
	}{
		{name: "length of undefined falls to zero", template: "{{x.length || 0}}", vars: map[string]any{}, expected: "0"},
		{name: "length of array", template: "{{x.length || 0}}", vars: map[string]any{"x": []any{1.0, 2.0, 3.0}}, expected: "3"},
		{name: "length of string counts runes", template: "{{name.length}}", vars: map[string]any{"name": "Sí"}, expected: "2"},
		{name: "length of number is zero", template: "{{n.length}}", vars: map[string]any{"n": 12.0}, expected: "0"},
		{name: "length of object is zero", template: "{{m.length}}", vars: map[string]any{"m": map[string]any{"k": 1.0, "j": 2.0}}, expected: "0"},
		{name: "empty string uses quoted fallback", template: `{{name || "anon"}}`, vars: map[string]any{"name": ""}, expected: "anon"},
		{name: "missing uses single-quoted fallback", template: "{{name || 'anon'}}", vars: nil, expected: "anon"},
		{name: "fallback to another path", template: "{{nick || name}}", vars: map[string]any{"name": "Ana"}, expected: "Ana"},
		{name: "chain", template: "{{a || b || 7}}", vars: map[string]any{}, expected: "7"},
		{name: "zero is not empty", template: "{{count || 5}}", vars: map[string]any{"count": 0.0}, expected: "0"},
		{name: "all undefined keeps token", template: "{{a || b}}", vars: map[string]any{}, expected: "{{a || b}}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ResolveString(tt.template, MapLookup(tt.vars)))
		})
	}
}

func TestResolveString_Paths(t *testing.T) {
	scope := Scope{
		Globals: map[string]any{
			"city":  "South",
			"total": 12.5,
			"ok":    true,
		},
		Nodes: map[string]any{
			"search": map[string]any{
				"body": map[string]any{
					"items": []any{
						map[string]any{"name": "Clinic A"},
						map[string]any{"name": "Clinic B"},
					},
				},
			},
		},
	}

	assert.Equal(t, "South has 12.5 (true)", ResolveString("{{city}} has {{total}} ({{ok}})", scope))
	assert.Equal(t, "Clinic B", ResolveString("{{search.body.items.1.name}}", scope))
	assert.Equal(t, "2", ResolveString("{{search.body.items.length}}", scope))
	assert.Equal(t, "{{search.body.missing.name}}", ResolveString("{{search.body.missing.name}}", scope))
	assert.Equal(t, "{{unknown}} stays", ResolveString("{{unknown}} stays", scope))
}

func TestResolveString_ObjectsArePrettyPrinted(t *testing.T) {
	vars := map[string]any{"item": map[string]any{"id": "1"}}

	assert.Equal(t, "{\n  \"id\": \"1\"\n}", ResolveString("{{item}}", MapLookup(vars)))
}

func TestResolveString_NullLeavesToken(t *testing.T) {
	vars := map[string]any{"x": nil}

	assert.Equal(t, "value: {{x}}", ResolveString("value: {{x}}", MapLookup(vars)))
}

func TestParse_Literals(t *testing.T) {
	tmpl := Parse(`a {{b || "{{not a placeholder}}"}} c`)
	require.Len(t, tmpl.Nodes, 3)

	ph, ok := tmpl.Nodes[1].(Placeholder)
	require.True(t, ok)

	fb, ok := ph.Expr.(FallbackExpr)
	require.True(t, ok)
	assert.Equal(t, PathExpr{Segments: []string{"b"}}, fb.Left)
	assert.Equal(t, LiteralExpr{Value: "{{not a placeholder}}"}, fb.Right)

	assert.Equal(t, "a {{not a placeholder}} c", tmpl.Execute(MapLookup(nil)))
}

func TestParse_MalformedStaysLiteral(t *testing.T) {
	assert.Equal(t, "hello {{name", ResolveString("hello {{name", MapLookup(map[string]any{"name": "x"})))
	assert.Equal(t, "{{}} and {{a..b}}", ResolveString("{{}} and {{a..b}}", MapLookup(nil)))
	assert.Equal(t, "{{a b}}", ResolveString("{{a b}}", MapLookup(map[string]any{"a": "x"})))
}

func TestParse_UnclosedQuoteOnlyAffectsItsPlaceholder(t *testing.T) {
	vars := MapLookup(map[string]any{"b": "B"})

	assert.Equal(t, "{{a || 'x}} B", ResolveString("{{a || 'x}} {{b}}", vars))
	assert.Equal(t, `{{a || "x}} B and B`, ResolveString(`{{a || "x}} {{b}} and {{b}}`, vars))
}

func TestParseExpr(t *testing.T) {
	expr, err := ParseExpr(" items.length || -1 ")
	require.NoError(t, err)
	assert.Equal(t, FallbackExpr{
		Left:  LengthExpr{Path: PathExpr{Segments: []string{"items"}}},
		Right: LiteralExpr{Value: -1.0},
	}, expr)

	_, err = ParseExpr("")
	assert.ErrorIs(t, err, ErrEmptyExpression)

	_, err = ParseExpr(`"open`)
	assert.ErrorIs(t, err, ErrUnterminated)
}

func TestFormatAndLength(t *testing.T) {
	assert.Equal(t, "3", Format(3.0))
	assert.Equal(t, "7", Format(7))
	assert.Equal(t, "[\n  \"a\"\n]", Format([]any{"a"}))
	assert.Equal(t, 2, Length([]string{"a", "b"}))
	assert.Equal(t, 0, Length(map[string]any{"a": 1, "b": 2}))
	assert.Equal(t, 0, Length(nil))
}
