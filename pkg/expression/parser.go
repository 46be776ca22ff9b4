package expression

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	openDelim  = "{{"
	closeDelim = "}}"
	lengthProp = "length"
)

var (
	ErrEmptyExpression = errors.New("empty expression")
	ErrUnterminated    = errors.New("unterminated string literal")
)

// Parse splits a template into text and placeholders. It never fails on the template
// itself: an unterminated {{ or an unparsable expression becomes literal text.
func Parse(template string) *Template {
	t := &Template{}

	var text strings.Builder

	flush := func() {
		if text.Len() > 0 {
			t.Nodes = append(t.Nodes, Text{Value: text.String()})
			text.Reset()
		}
	}

	rest := template
	for {
		start := strings.Index(rest, openDelim)
		if start < 0 {
			text.WriteString(rest)

			break
		}

		text.WriteString(rest[:start])

		end := findClose(rest, start+len(openDelim))
		if end < 0 {
			text.WriteString(rest[start:])

			break
		}

		raw := rest[start : end+len(closeDelim)]
		inner := rest[start+len(openDelim) : end]

		expr, err := ParseExpr(inner)
		if err != nil {
			text.WriteString(raw)
		} else {
			flush()
			t.Nodes = append(t.Nodes, Placeholder{Raw: raw, Expr: expr})
		}

		rest = rest[end+len(closeDelim):]
	}

	flush()

	return t
}

// findClose returns the index of the }} closing the placeholder opened before from,
// skipping over quoted literals. A quote that never closes falls back to the first }}
// so only that placeholder stays literal.
func findClose(s string, from int) int {
	var quote byte

	for i := from; i < len(s); i++ {
		c := s[i]

		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case strings.HasPrefix(s[i:], closeDelim):
			return i
		}
	}

	if quote == 0 {
		return -1
	}

	if i := strings.Index(s[from:], closeDelim); i >= 0 {
		return from + i
	}

	return -1
}

// ParseExpr parses the inside of a placeholder.
func ParseExpr(src string) (Expr, error) {
	p := &exprParser{src: src}

	expr, err := p.parseFallback()
	if err != nil {
		return nil, err
	}

	p.skipSpace()

	if p.pos < len(p.src) {
		return nil, fmt.Errorf("unexpected %q at offset %d", p.src[p.pos:], p.pos)
	}

	return expr, nil
}

type exprParser struct {
	src string
	pos int
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t' || p.src[p.pos] == '\n') {
		p.pos++
	}
}

// parseFallback is right-associative: a || b || c is a || (b || c).
func (p *exprParser) parseFallback() (Expr, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	p.skipSpace()

	if !strings.HasPrefix(p.src[p.pos:], "||") {
		return left, nil
	}

	p.pos += 2

	right, err := p.parseFallback()
	if err != nil {
		return nil, err
	}

	return FallbackExpr{Left: left, Right: right}, nil
}

func (p *exprParser) parseOperand() (Expr, error) {
	p.skipSpace()

	if p.pos >= len(p.src) {
		return nil, ErrEmptyExpression
	}

	switch c := p.src[p.pos]; {
	case c == '"' || c == '\'':
		return p.parseString(c)
	case c == '-' || (c >= '0' && c <= '9'):
		if lit, ok := p.parseNumber(); ok {
			return lit, nil
		}
	}

	return p.parsePath()
}

func (p *exprParser) parseString(quote byte) (Expr, error) {
	end := strings.IndexByte(p.src[p.pos+1:], quote)
	if end < 0 {
		return nil, ErrUnterminated
	}

	value := p.src[p.pos+1 : p.pos+1+end]
	p.pos += end + 2

	return LiteralExpr{Value: value}, nil
}

func (p *exprParser) parseNumber() (Expr, bool) {
	end := p.pos
	for end < len(p.src) && !isDelimiter(p.src[end]) {
		end++
	}

	n, err := strconv.ParseFloat(p.src[p.pos:end], 64)
	if err != nil {
		return nil, false
	}

	p.pos = end

	return LiteralExpr{Value: n}, true
}

func (p *exprParser) parsePath() (Expr, error) {
	end := p.pos
	for end < len(p.src) && !isDelimiter(p.src[end]) {
		end++
	}

	token := p.src[p.pos:end]
	if token == "" {
		return nil, fmt.Errorf("unexpected %q at offset %d", p.src[p.pos:], p.pos)
	}

	segments := strings.Split(token, ".")
	for _, seg := range segments {
		if seg == "" {
			return nil, fmt.Errorf("empty path segment in %q", token)
		}
	}

	p.pos = end

	if len(segments) > 1 && segments[len(segments)-1] == lengthProp {
		return LengthExpr{Path: PathExpr{Segments: segments[:len(segments)-1]}}, nil
	}

	return PathExpr{Segments: segments}, nil
}

func isDelimiter(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '|' || c == '"' || c == '\''
}
