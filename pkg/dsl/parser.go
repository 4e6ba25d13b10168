package dsl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/registry"
)

// Parse parses a single P-expression.
//
// Grammar:
//
//	Expr    ::= ( '{' Ident '}' )? Primary
//	Primary ::= Ident '?'{0,2} ( '(' Args? ')' )? | Number | String | '$' Ident | '$' '#' Number
//	Args    ::= Arg ( ',' Arg )*
//	Arg     ::= '^' Ident | Ident '=' Expr | Expr
//
// Positional arguments are named pos1, pos2, ... in order of appearance.
// A bare identifier without '?' or parentheses is a word literal.
func Parse(src string) (*Expr, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.typ != tokenEOF {
		return nil, &SyntaxError{Pos: tok.pos, Msg: fmt.Sprintf("trailing tokens after expression: %q", tok.lit)}
	}
	return e, nil
}

// MustParse is Parse for expressions known at compile time.
func MustParse(src string) *Expr {
	e, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return e
}

type parser struct {
	toks []token
	i    int
}

func (p *parser) peek() token {
	return p.toks[p.i]
}

func (p *parser) peekAt(n int) token {
	if p.i+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i+n]
}

func (p *parser) next() token {
	tok := p.toks[p.i]
	if tok.typ != tokenEOF {
		p.i++
	}
	return tok
}

func (p *parser) isSymbol(sym string) bool {
	tok := p.peek()
	return tok.typ == tokenSymbol && tok.lit == sym
}

func (p *parser) expectSymbol(sym string) error {
	tok := p.next()
	if tok.typ != tokenSymbol || tok.lit != sym {
		return &SyntaxError{Pos: tok.pos, Msg: fmt.Sprintf("expected %q, got %q", sym, tok.lit)}
	}
	return nil
}

func (p *parser) expectIdent() (token, error) {
	tok := p.next()
	if tok.typ != tokenIdent {
		return tok, &SyntaxError{Pos: tok.pos, Msg: fmt.Sprintf("expected identifier, got %q", tok.lit)}
	}
	return tok, nil
}

func (p *parser) parseExpr() (*Expr, error) {
	var assign string
	if p.isSymbol("{") {
		p.next()
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if err := p.expectSymbol("}"); err != nil {
			return nil, err
		}
		assign = name.lit
	}
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if assign != "" {
		if e.Kind == KindRef || e.Kind == KindNodeRef {
			return nil, &SyntaxError{Pos: e.Pos, Msg: "cannot assign a reference"}
		}
		e.Assign = assign
	}
	return e, nil
}

func (p *parser) parsePrimary() (*Expr, error) {
	tok := p.next()
	switch tok.typ {
	case tokenNumber:
		return parseNumber(tok)
	case tokenString:
		return &Expr{Kind: KindString, Str: tok.lit, Pos: tok.pos}, nil
	case tokenSymbol:
		if tok.lit == "$" {
			return p.parseRef(tok)
		}
		return nil, &SyntaxError{Pos: tok.pos, Msg: fmt.Sprintf("unexpected %q", tok.lit)}
	case tokenIdent:
		return p.parseCall(tok)
	default:
		return nil, &SyntaxError{Pos: tok.pos, Msg: "unexpected end of input"}
	}
}

func (p *parser) parseRef(dollar token) (*Expr, error) {
	if p.isSymbol("#") {
		p.next()
		num := p.next()
		id, err := strconv.Atoi(num.lit)
		if num.typ != tokenNumber || err != nil || id <= 0 {
			return nil, &SyntaxError{Pos: num.pos, Msg: fmt.Sprintf("invalid node reference %q", num.lit)}
		}
		return &Expr{Kind: KindNodeRef, NodeID: domain.NodeID(id), Pos: dollar.pos}, nil
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	return &Expr{Kind: KindRef, Name: name.lit, Pos: dollar.pos}, nil
}

func (p *parser) parseCall(name token) (*Expr, error) {
	e := &Expr{Kind: KindCall, Name: name.lit, Pos: name.pos}
	for p.isSymbol("?") {
		p.next()
		e.Level++
	}
	if e.Level > domain.LevelPartial {
		return nil, &SyntaxError{Pos: name.pos, Msg: "at most two '?' allowed"}
	}
	if !p.isSymbol("(") {
		if e.Level > domain.LevelObject {
			return e, nil
		}
		switch name.lit {
		case "true", "false":
			return &Expr{Kind: KindBool, Bool: name.lit == "true", Pos: name.pos}, nil
		}
		return &Expr{Kind: KindWord, Name: name.lit, Pos: name.pos}, nil
	}
	p.next()
	if p.isSymbol(")") {
		p.next()
		return e, nil
	}
	pos := 0
	seen := make(map[string]bool)
	for {
		if err := p.parseArg(e, &pos, seen); err != nil {
			return nil, err
		}
		if p.isSymbol(",") {
			p.next()
			continue
		}
		if err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
		return e, nil
	}
}

func (p *parser) parseArg(e *Expr, pos *int, seen map[string]bool) error {
	if p.isSymbol("^") {
		p.next()
		tag, err := p.expectIdent()
		if err != nil {
			return err
		}
		e.Tags = append(e.Tags, tag.lit)
		return nil
	}
	if tok := p.peek(); tok.typ == tokenIdent && p.peekAt(1).typ == tokenSymbol && p.peekAt(1).lit == "=" {
		p.next()
		p.next()
		if seen[tok.lit] {
			return &SyntaxError{Pos: tok.pos, Msg: fmt.Sprintf("duplicate argument %q", tok.lit)}
		}
		v, err := p.parseExpr()
		if err != nil {
			return err
		}
		seen[tok.lit] = true
		e.Args = append(e.Args, Arg{Name: tok.lit, Value: v})
		return nil
	}
	v, err := p.parseExpr()
	if err != nil {
		return err
	}
	*pos++
	name := registry.PosName(*pos)
	if seen[name] {
		return &SyntaxError{Pos: v.Pos, Msg: fmt.Sprintf("duplicate argument %q", name)}
	}
	seen[name] = true
	e.Args = append(e.Args, Arg{Name: name, Value: v, Positional: true})
	return nil
}

func parseNumber(tok token) (*Expr, error) {
	if !strings.ContainsAny(tok.lit, ".eE") {
		v, err := strconv.ParseInt(tok.lit, 10, 64)
		if err == nil {
			return &Expr{Kind: KindInt, Int: v, Pos: tok.pos}, nil
		}
	}
	v, err := strconv.ParseFloat(tok.lit, 64)
	if err != nil {
		return nil, &SyntaxError{Pos: tok.pos, Msg: fmt.Sprintf("invalid number %q", tok.lit)}
	}
	return &Expr{Kind: KindFloat, Float: v, Pos: tok.pos}, nil
}
