package expr

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/quadtile/stylemap/internal/ir"
)

// ParseString compiles the constrained string grammar into an expression
// tree. The grammar covers boolean/comparison conditions as they appear in
// theme "when" fields:
//
//	condition := term ("||" term)*
//	term      := factor ("&&" factor)*
//	factor    := "!" factor | comparison
//	comparison:= operand (("=="|"!="|"<"|"<="|">"|">=") operand)?
//	operand   := "(" condition ")" | "has" "(" name ")" | literal | name
//
// Literals are single- or double-quoted strings, numbers, true, false, and
// null. Names may include the pseudo-attribute prefix "$".
//
// The result is the same tree shape the array form produces: "&&" compiles
// to "all", "||" to "any", names to variable references.
func ParseString(src string) (Expr, error) {
	lx := &lexer{src: src}
	if err := lx.tokenize(); err != nil {
		return nil, err
	}
	p := &stringParser{src: src, tokens: lx.tokens}
	e, err := p.condition()
	if err != nil {
		return nil, err
	}
	if !p.atEnd() {
		return nil, &ParseError{Message: "unexpected trailing input", Source: src, Pos: p.peek().pos}
	}
	return e, nil
}

type tokenKind int

const (
	tokName tokenKind = iota
	tokString
	tokNumber
	tokOp    // == != < <= > >= && || !
	tokPunct // ( )
	tokEOF
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

type lexer struct {
	src    string
	tokens []token
}

func (lx *lexer) tokenize() error {
	src := lx.src
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(' || c == ')':
			lx.tokens = append(lx.tokens, token{tokPunct, string(c), i})
			i++
		case c == '&' || c == '|':
			if i+1 >= len(src) || src[i+1] != c {
				return &ParseError{Message: "expected " + string(c) + string(c), Source: src, Pos: i}
			}
			lx.tokens = append(lx.tokens, token{tokOp, string(c) + string(c), i})
			i += 2
		case c == '=' || c == '!' || c == '<' || c == '>':
			if i+1 < len(src) && src[i+1] == '=' {
				lx.tokens = append(lx.tokens, token{tokOp, string(c) + "=", i})
				i += 2
			} else if c == '=' {
				return &ParseError{Message: "single = is not an operator, use ==", Source: src, Pos: i}
			} else {
				lx.tokens = append(lx.tokens, token{tokOp, string(c), i})
				i++
			}
		case c == '\'' || c == '"':
			end := strings.IndexByte(src[i+1:], c)
			if end < 0 {
				return &ParseError{Message: "unterminated string literal", Source: src, Pos: i}
			}
			lx.tokens = append(lx.tokens, token{tokString, src[i+1 : i+1+end], i})
			i += end + 2
		case c >= '0' && c <= '9' || c == '-' || c == '.':
			start := i
			if c == '-' {
				i++
			}
			for i < len(src) && (src[i] >= '0' && src[i] <= '9' || src[i] == '.' || src[i] == 'e' || src[i] == 'E') {
				i++
			}
			text := src[start:i]
			if _, err := strconv.ParseFloat(text, 64); err != nil {
				return &ParseError{Message: "malformed number " + strconv.Quote(text), Source: src, Pos: start}
			}
			lx.tokens = append(lx.tokens, token{tokNumber, text, start})
		case isNameStart(rune(c)):
			start := i
			for i < len(src) && isNameRune(rune(src[i])) {
				i++
			}
			lx.tokens = append(lx.tokens, token{tokName, src[start:i], start})
		default:
			return &ParseError{Message: "unexpected character " + strconv.QuoteRune(rune(c)), Source: src, Pos: i}
		}
	}
	lx.tokens = append(lx.tokens, token{tokEOF, "", len(src)})
	return nil
}

func isNameStart(r rune) bool {
	return r == '$' || r == '_' || unicode.IsLetter(r)
}

func isNameRune(r rune) bool {
	return isNameStart(r) || unicode.IsDigit(r) || r == ':' || r == '-'
}

type stringParser struct {
	src    string
	tokens []token
	i      int
}

func (p *stringParser) peek() token { return p.tokens[p.i] }

func (p *stringParser) next() token {
	t := p.tokens[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *stringParser) atEnd() bool { return p.peek().kind == tokEOF }

func (p *stringParser) errAt(t token, msg string) error {
	return &ParseError{Message: msg, Source: p.src, Pos: t.pos}
}

func (p *stringParser) condition() (Expr, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	args := []Expr{left}
	for p.peek().kind == tokOp && p.peek().text == "||" {
		p.next()
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		args = append(args, right)
	}
	if len(args) == 1 {
		return left, nil
	}
	return &Call{Op: "any", Args: args}, nil
}

func (p *stringParser) term() (Expr, error) {
	left, err := p.factor()
	if err != nil {
		return nil, err
	}
	args := []Expr{left}
	for p.peek().kind == tokOp && p.peek().text == "&&" {
		p.next()
		right, err := p.factor()
		if err != nil {
			return nil, err
		}
		args = append(args, right)
	}
	if len(args) == 1 {
		return left, nil
	}
	return &Call{Op: "all", Args: args}, nil
}

func (p *stringParser) factor() (Expr, error) {
	if p.peek().kind == tokOp && p.peek().text == "!" {
		p.next()
		inner, err := p.factor()
		if err != nil {
			return nil, err
		}
		return &Call{Op: "!", Args: []Expr{inner}}, nil
	}
	return p.comparison()
}

func (p *stringParser) comparison() (Expr, error) {
	left, err := p.operand()
	if err != nil {
		return nil, err
	}
	t := p.peek()
	if t.kind != tokOp {
		return left, nil
	}
	switch t.text {
	case "==", "!=", "<", "<=", ">", ">=":
		p.next()
		right, err := p.operand()
		if err != nil {
			return nil, err
		}
		return &Call{Op: t.text, Args: []Expr{left, right}}, nil
	default:
		return left, nil
	}
}

func (p *stringParser) operand() (Expr, error) {
	t := p.next()
	switch t.kind {
	case tokPunct:
		if t.text != "(" {
			return nil, p.errAt(t, "unexpected )")
		}
		inner, err := p.condition()
		if err != nil {
			return nil, err
		}
		closing := p.next()
		if closing.kind != tokPunct || closing.text != ")" {
			return nil, p.errAt(closing, "expected )")
		}
		return inner, nil
	case tokString:
		return &Literal{Value: ir.String(t.text)}, nil
	case tokNumber:
		f, _ := strconv.ParseFloat(t.text, 64)
		return &Literal{Value: ir.Number(f)}, nil
	case tokName:
		switch t.text {
		case "true":
			return &Literal{Value: ir.Bool(true)}, nil
		case "false":
			return &Literal{Value: ir.Bool(false)}, nil
		case "null":
			return &Literal{Value: ir.Null{}}, nil
		case "has":
			if p.peek().kind == tokPunct && p.peek().text == "(" {
				p.next()
				name := p.next()
				if name.kind != tokName {
					return nil, p.errAt(name, "has() needs an attribute name")
				}
				closing := p.next()
				if closing.kind != tokPunct || closing.text != ")" {
					return nil, p.errAt(closing, "expected ) after has(name")
				}
				return &Call{Op: "has", Args: []Expr{&Literal{Value: ir.String(name.text)}}}, nil
			}
			return &Var{Name: t.text}, nil
		default:
			return &Var{Name: t.text}, nil
		}
	case tokEOF:
		return nil, p.errAt(t, "unexpected end of expression")
	default:
		return nil, p.errAt(t, "unexpected token "+strconv.Quote(t.text))
	}
}
