// Package expression resolves {{...}} placeholders in chat templates.
//
// A placeholder holds a path (city, node.field.sub), a length query (items.length),
// a literal ("text", 'text', 42) or a fallback chain (a || b || "none"). Paths that
// resolve to nothing leave the placeholder untouched in the output.
package expression

// Node is a piece of a parsed template.
type Node interface {
	node()
}

// Text is literal template text.
type Text struct {
	Value string
}

// Placeholder is one {{...}} span. Raw keeps the original token, braces included.
type Placeholder struct {
	Raw  string
	Expr Expr
}

func (Text) node()        {}
func (Placeholder) node() {}

// Expr is an expression inside a placeholder.
type Expr interface {
	expr()
}

// PathExpr is a dotted lookup.
type PathExpr struct {
	Segments []string
}

// LengthExpr is a path followed by .length.
type LengthExpr struct {
	Path PathExpr
}

// LiteralExpr is a quoted string or a bare number.
type LiteralExpr struct {
	Value any
}

// FallbackExpr evaluates Left and uses Right when Left is empty.
type FallbackExpr struct {
	Left  Expr
	Right Expr
}

func (PathExpr) expr()     {}
func (LengthExpr) expr()   {}
func (LiteralExpr) expr()  {}
func (FallbackExpr) expr() {}

// Template is a parsed template.
type Template struct {
	Nodes []Node
}
