// Package parser implements a recursive-descent, precedence-climbing parser
// that transforms Lit source into an abstract syntax tree (ast.Chunk).
package parser

import (
	"errors"

	"github.com/mna/lit/lang/ast"
	"github.com/mna/lit/lang/errcode"
	"github.com/mna/lit/lang/scanner"
	"github.com/mna/lit/lang/token"
)

// precedence mirrors the original implementation's LITPREC_* ladder, lowest
// to highest.
type precedence int

const (
	precNone precedence = iota
	precAssignment
	precOr
	precAnd
	precBitOr  // | ^
	precBitAnd // &
	precShift  // << >>
	precEquality
	precComparison
	precCompound // += -= *= /= ++ --
	precTerm     // + -
	precFactor   // * / % //
	precIs       // is in
	precRange    // ..
	precUnary    // ! - ~ ref not new
	precNullCoalesce
	precCall // . () []
	precPrimary
)

var binPrec = map[token.Token]precedence{
	token.OR:                precOr,
	token.AND:               precAnd,
	token.PIPE:              precBitOr,
	token.CARET:             precBitOr,
	token.AMP:               precBitAnd,
	token.LESS_LESS:         precShift,
	token.GREATER_GREATER:   precShift,
	token.EQUAL_EQUAL:       precEquality,
	token.BANG_EQUAL:        precEquality,
	token.LESS:              precComparison,
	token.LESS_EQUAL:        precComparison,
	token.GREATER:           precComparison,
	token.GREATER_EQUAL:     precComparison,
	token.PLUS:              precTerm,
	token.MINUS:             precTerm,
	token.STAR:              precFactor,
	token.SLASH:             precFactor,
	token.SLASH_SLASH:       precFactor,
	token.PERCENT:           precFactor,
	token.STAR_STAR:         precFactor,
	token.IS:                precIs,
	token.IN:                precIs,
	token.DOTDOT:            precRange,
	token.QUESTION_QUESTION: precNullCoalesce,
}

// Parser consumes a token stream from the scanner and builds an ast.Chunk,
// recovering from syntax errors at statement boundaries so that a single
// file can report more than one error.
type Parser struct {
	s       scanner.Scanner
	errs    []error
	onError ErrorHandler

	cur  scanner.Tok
	prev scanner.Tok
}

// ErrorHandler receives each syntax error as it is recorded.
type ErrorHandler func(pos token.Position, code errcode.Code, msg string)

// ErrSyntax is returned by Parse when one or more syntax errors were
// recorded; the individual errors were already reported to the
// ErrorHandler (if any) as they were found.
var ErrSyntax = errors.New("syntax error")

// errPanic unwinds parsing of the current statement back to parseStmt's
// recover, which then synchronizes to the next statement boundary.
var errPanic = errors.New("parser: panic mode")

// Parse scans and parses a complete chunk from src, associated with file in
// fset for position reporting. onError, if non-nil, is invoked for every
// syntax error encountered; parsing continues past the error by
// synchronizing to the next statement.
func Parse(file *token.File, src []byte, onError ErrorHandler) (*ast.Chunk, error) {
	var p Parser
	p.onError = onError
	p.s.Init(file, src, func(pos token.Position, code errcode.Code, msg string) {
		p.reportAt(pos, code, msg)
	})
	p.advance()

	chunk := &ast.Chunk{Name: file.Name()}
	for p.cur.Type != token.EOF {
		if st := p.parseStmt(); st != nil {
			chunk.Stmts = append(chunk.Stmts, st)
		}
	}
	chunk.End = p.cur.Pos
	if len(p.errs) > 0 {
		return chunk, ErrSyntax
	}
	return chunk, nil
}

func (p *Parser) advance() {
	p.prev = p.cur
	p.cur = p.s.Scan()
}

func (p *Parser) check(t token.Token) bool { return p.cur.Type == t }

func (p *Parser) match(t token.Token) bool {
	if !p.check(t) {
		return false
	}
	p.advance()
	return true
}

// expect consumes the current token if it matches t, otherwise records a
// syntax error and panics with errPanic, unwound by parseStmt's recover.
func (p *Parser) expect(t token.Token, code errcode.Code, msg string) scanner.Tok {
	if p.cur.Type != t {
		p.error(code, msg)
		panic(errPanic)
	}
	tk := p.cur
	p.advance()
	return tk
}

func (p *Parser) error(code errcode.Code, msg string) {
	p.reportAt(p.cur.Pos, code, msg)
}

func (p *Parser) reportAt(pos token.Position, code errcode.Code, msg string) {
	p.errs = append(p.errs, errors.New(msg))
	if p.onError != nil {
		p.onError(pos, code, msg)
	}
}

// syncAfterError advances past tokens until it finds one that plausibly
// starts a new statement, so that a single syntax error does not cascade
// into spurious follow-on errors for the rest of the file.
func (p *Parser) syncAfterError() {
	for p.cur.Type != token.EOF {
		if p.prev.Type == token.SEMI {
			return
		}
		switch p.cur.Type {
		case token.CLASS, token.FUNCTION, token.VAR, token.CONST, token.FOR,
			token.IF, token.WHILE, token.RETURN, token.BREAK, token.CONTINUE, token.RBRACE:
			return
		}
		p.advance()
	}
}
