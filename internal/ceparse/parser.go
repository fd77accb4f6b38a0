// Package ceparse turns constraint-expression text into a ceast tree.
//
// Grammar:
//
//	constraint := [clause (';' clause)*]
//	clause     := NAME '=' slice | segment ['|' filter]
//	segment    := NAME slice* ['.' segment | '{' segment ((';'|',') segment)* '}']
//	slice      := '[' ']' | '[' INT [':' [INT [':' [INT]]]] ']'
//	filter     := compare ((',' | '&&') compare)*
//	compare    := operand OP operand
//	operand    := NAME | INT | FLOAT | STRING | 'true' | 'false'
//
// Slices are written start:stop or start:stride:stop with an exclusive stop.
package ceparse

import (
	"strconv"

	"github.com/roach88/dap4/internal/ceast"
	"github.com/roach88/dap4/internal/ceerr"
	"github.com/roach88/dap4/internal/slice"
)

// Parser is a recursive-descent parser over lexed tokens.
type Parser struct {
	lexer *Lexer
}

// NewParser creates a parser reading from lexer.
func NewParser(lexer *Lexer) *Parser {
	return &Parser{lexer: lexer}
}

// Parse parses constraint text. Empty text yields a constraint with no
// clauses. Every error is a ceerr syntax error.
func Parse(input string) (*ceast.Constraint, error) {
	lexer := NewLexer(input)
	if err := lexer.Lex(); err != nil {
		return nil, err
	}
	c, err := NewParser(lexer).Parse()
	if err != nil {
		return nil, err
	}
	if err := ceast.Check(c); err != nil {
		return nil, err
	}
	return c, nil
}

// MustParse is like Parse but panics on error. For tests and fixed tables.
func MustParse(input string) *ceast.Constraint {
	c, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return c
}

// Parse reads a whole constraint.
func (p *Parser) Parse() (*ceast.Constraint, error) {
	c := &ceast.Constraint{}
	if p.peek().Type == TokenEOF {
		return c, nil
	}
	for {
		clause, err := p.clause()
		if err != nil {
			return nil, err
		}
		c.Clauses = append(c.Clauses, clause)

		tok := p.lexer.NextToken()
		switch tok.Type {
		case TokenEOF:
			return c, nil
		case TokenSemicolon:
			// A trailing ';' is tolerated.
			if p.peek().Type == TokenEOF {
				return c, nil
			}
		default:
			return nil, unexpected(tok, "';' or end of input")
		}
	}
}

func (p *Parser) clause() (ceast.Node, error) {
	name, err := p.expect(TokenName)
	if err != nil {
		return nil, err
	}
	if p.peek().Type == TokenAssign {
		p.lexer.NextToken()
		s, err := p.slice()
		if err != nil {
			return nil, err
		}
		return &ceast.Define{Name: name.Value, Slice: s}, nil
	}

	seg, err := p.segmentAfter(name)
	if err != nil {
		return nil, err
	}
	if p.peek().Type != TokenBar {
		return &ceast.Projection{Tree: seg}, nil
	}
	p.lexer.NextToken()
	filter, err := p.filter()
	if err != nil {
		return nil, err
	}
	return &ceast.Selection{Projection: seg, Filter: filter}, nil
}

func (p *Parser) segment() (*ceast.Segment, error) {
	name, err := p.expect(TokenName)
	if err != nil {
		return nil, err
	}
	return p.segmentAfter(name)
}

func (p *Parser) segmentAfter(name Token) (*ceast.Segment, error) {
	seg := &ceast.Segment{Name: name.Value}
	for p.peek().Type == TokenLeftBracket {
		s, err := p.slice()
		if err != nil {
			return nil, err
		}
		seg.Slices = append(seg.Slices, s)
	}

	switch p.peek().Type {
	case TokenDot:
		p.lexer.NextToken()
		sub, err := p.segment()
		if err != nil {
			return nil, err
		}
		seg.Subnodes = []*ceast.Segment{sub}
	case TokenLeftBrace:
		p.lexer.NextToken()
		for {
			sub, err := p.segment()
			if err != nil {
				return nil, err
			}
			seg.Subnodes = append(seg.Subnodes, sub)
			tok := p.lexer.NextToken()
			if tok.Type == TokenRightBrace {
				break
			}
			if tok.Type != TokenSemicolon && tok.Type != TokenComma {
				return nil, unexpected(tok, "';' or '}'")
			}
		}
	}
	return seg, nil
}

func (p *Parser) slice() (slice.Slice, error) {
	if _, err := p.expect(TokenLeftBracket); err != nil {
		return slice.Slice{}, err
	}
	if p.peek().Type == TokenRightBracket {
		p.lexer.NextToken()
		return slice.Whole(), nil
	}

	var nums []int64
	for {
		n, err := p.integer()
		if err != nil {
			return slice.Slice{}, err
		}
		nums = append(nums, n)

		tok := p.lexer.NextToken()
		if tok.Type == TokenRightBracket {
			break
		}
		if tok.Type != TokenColon {
			return slice.Slice{}, unexpected(tok, "':' or ']'")
		}
		if len(nums) == 3 {
			return slice.Slice{}, ceerr.Syntax("too many ':' in slice at offset %d", tok.Pos)
		}
		if p.peek().Type == TokenRightBracket {
			// open-ended: [start:] or [start:stride:]
			p.lexer.NextToken()
			if len(nums) == 1 {
				return slice.Open(nums[0], 1), nil
			}
			return slice.Open(nums[0], nums[1]), nil
		}
	}

	switch len(nums) {
	case 1:
		return slice.Index(nums[0]), nil
	case 2:
		return slice.New(nums[0], 1, nums[1]), nil
	default:
		return slice.New(nums[0], nums[1], nums[2]), nil
	}
}

func (p *Parser) integer() (int64, error) {
	tok := p.lexer.NextToken()
	if tok.Type != TokenInt {
		return 0, unexpected(tok, "integer")
	}
	n, err := strconv.ParseInt(tok.Value, 10, 64)
	if err != nil {
		return 0, ceerr.Syntax("bad integer %q at offset %d", tok.Value, tok.Pos)
	}
	return n, nil
}

func (p *Parser) filter() (*ceast.Expr, error) {
	first, err := p.compare()
	if err != nil {
		return nil, err
	}
	var rest []*ceast.Expr
	for p.peek().Type == TokenComma {
		p.lexer.NextToken()
		e, err := p.compare()
		if err != nil {
			return nil, err
		}
		rest = append(rest, e)
	}
	return ceast.And(first, rest...), nil
}

func (p *Parser) compare() (*ceast.Expr, error) {
	lhs, err := p.operand()
	if err != nil {
		return nil, err
	}
	tok := p.lexer.NextToken()
	var op ceast.Operator
	switch {
	case tok.Type == TokenAssign:
		op = ceast.EQ
	case tok.Type == TokenOp:
		op = operators[tok.Value]
	default:
		return nil, unexpected(tok, "comparison operator")
	}
	rhs, err := p.operand()
	if err != nil {
		return nil, err
	}
	return ceast.Compare(lhs, op, rhs), nil
}

var operators = map[string]ceast.Operator{
	"<":  ceast.LT,
	"<=": ceast.LE,
	">":  ceast.GT,
	">=": ceast.GE,
	"==": ceast.EQ,
	"!=": ceast.NEQ,
	"~=": ceast.REQ,
}

func (p *Parser) operand() (ceast.Node, error) {
	tok := p.lexer.NextToken()
	switch tok.Type {
	case TokenName:
		switch tok.Value {
		case "true":
			return ceast.BoolConst(true), nil
		case "false":
			return ceast.BoolConst(false), nil
		}
		return ceast.Field(tok.Value), nil
	case TokenInt:
		n, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			return nil, ceerr.Syntax("bad integer %q at offset %d", tok.Value, tok.Pos)
		}
		return ceast.LongConst(n), nil
	case TokenFloat:
		f, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, ceerr.Syntax("bad number %q at offset %d", tok.Value, tok.Pos)
		}
		return ceast.DoubleConst(f), nil
	case TokenString:
		return ceast.StringConst(tok.Value), nil
	}
	return nil, unexpected(tok, "field name or constant")
}

func (p *Parser) peek() Token { return p.lexer.PeekToken() }

func (p *Parser) expect(t TokenType) (Token, error) {
	tok := p.lexer.NextToken()
	if tok.Type != t {
		return tok, unexpected(tok, t.String())
	}
	return tok, nil
}

func unexpected(tok Token, want string) error {
	if tok.Type == TokenEOF {
		return ceerr.Syntax("unexpected end of input, expected %s", want)
	}
	return ceerr.Syntax("unexpected %s %q at offset %d, expected %s", tok.Type, tok.Value, tok.Pos, want)
}
