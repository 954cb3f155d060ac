// Package scanner tokenizes Lit source text into the stream of tokens
// consumed by the parser. It understands numeric literals in decimal, hex
// and binary form, single- and double-quoted strings with interpolation,
// line and block comments, and the full punctuation set of the language.
//
// The scanner never stops at the first error: errors are reported through
// the error callback and scanning goes on. An unexpected character becomes
// a token of type token.ILLEGAL, while an unterminated string or a
// malformed number keeps its STRING or NUMBER type, so that the parser can
// keep going and collect as many diagnostics as possible in one pass.
package scanner

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mna/lit/lang/errcode"
	"github.com/mna/lit/lang/token"
)

// MaxInterpolationNesting is the maximum number of nested string
// interpolations the scanner will track (spec §4.3,
// LIT_MAX_INTERPOLATION_NESTING). It is a variable, not a constant, so that
// embedders may raise or lower it (SPEC_FULL.md domain stack); the default
// matches the original implementation.
var MaxInterpolationNesting = 4

// ErrorHandler is called once per malformed token, in source order.
type ErrorHandler func(pos token.Position, code errcode.Code, msg string)

type interpFrame struct {
	quote      byte
	braceDepth int
}

// Scanner tokenizes a single source file.
type Scanner struct {
	file *token.File
	src  []byte
	err  ErrorHandler

	sb strings.Builder

	cur  rune // current rune
	off  int  // byte offset of cur
	roff int  // offset just after cur

	interp []interpFrame
}

// Init prepares s to scan src, whose line boundaries will be recorded into
// file as they are discovered. errHandler, if non-nil, is invoked for every
// malformed token.
func (s *Scanner) Init(file *token.File, src []byte, errHandler ErrorHandler) {
	s.file = file
	s.src = src
	s.err = errHandler
	s.sb.Reset()
	s.interp = s.interp[:0]
	s.cur = ' '
	s.off = 0
	s.roff = 0
	s.advance()
}

func (s *Scanner) error(off int, code errcode.Code, msg string) {
	if s.err != nil {
		s.err(s.file.Position(off), code, msg)
	}
}

func (s *Scanner) errorf(off int, code errcode.Code, format string, args ...any) {
	s.error(off, code, fmt.Sprintf(format, args...))
}

func (s *Scanner) advance() {
	if s.roff >= len(s.src) {
		s.off = len(s.src)
		if s.cur == '\n' {
			s.file.AddLine(s.off)
		}
		s.cur = -1
		return
	}
	s.off = s.roff
	if s.cur == '\n' {
		s.file.AddLine(s.off)
	}
	r, w := rune(s.src[s.roff]), 1
	if r >= utf8.RuneSelf {
		r, w = utf8.DecodeRune(s.src[s.roff:])
		if r == utf8.RuneError && w == 1 {
			s.error(s.off, errcode.UnexpectedChar, "illegal UTF-8 encoding")
		}
	}
	s.roff += w
	s.cur = r
}

func (s *Scanner) peek() byte {
	if s.roff < len(s.src) {
		return s.src[s.roff]
	}
	return 0
}

func (s *Scanner) advanceIf(c byte) bool {
	if s.cur == rune(c) {
		s.advance()
		return true
	}
	return false
}

// Scan returns the next token in the source. At end of input it returns a
// token of type token.EOF forever after.
func (s *Scanner) Scan() Tok {
	s.skipWhitespaceAndComments()

	pos := s.file.Position(s.off)
	start := s.off

	switch cur := s.cur; {
	case isLetter(cur):
		lit := s.ident()
		return Tok{Type: token.LookupIdent(lit), Lexeme: lit, Pos: pos}

	case isDigit(cur):
		return s.number(pos, start)

	case cur == '"' || cur == '\'':
		s.advance()
		return s.stringBody(byte(cur), pos, start, false)
	}

	switch cur := s.cur; cur {
	case -1:
		return Tok{Type: token.EOF, Pos: pos}

	case '(':
		s.advance()
		return tok(token.LPAREN, "(", pos)
	case ')':
		s.advance()
		return tok(token.RPAREN, ")", pos)
	case '{':
		s.advance()
		if len(s.interp) > 0 {
			s.interp[len(s.interp)-1].braceDepth++
		}
		return tok(token.LBRACE, "{", pos)
	case '}':
		s.advance()
		if n := len(s.interp); n > 0 {
			top := &s.interp[n-1]
			if top.braceDepth > 0 {
				top.braceDepth--
				return tok(token.RBRACE, "}", pos)
			}
			quote := top.quote
			s.interp = s.interp[:n-1]
			return s.stringBody(quote, pos, s.off, true)
		}
		return tok(token.RBRACE, "}", pos)
	case '[':
		s.advance()
		return tok(token.LBRACK, "[", pos)
	case ']':
		s.advance()
		return tok(token.RBRACK, "]", pos)
	case ',':
		s.advance()
		return tok(token.COMMA, ",", pos)
	case ';':
		s.advance()
		return tok(token.SEMI, ";", pos)
	case ':':
		s.advance()
		return tok(token.COLON, ":", pos)
	case '.':
		s.advance()
		if s.advanceIf('.') {
			if s.advanceIf('.') {
				return tok(token.DOTDOTDOT, "...", pos)
			}
			return tok(token.DOTDOT, "..", pos)
		}
		return tok(token.DOT, ".", pos)
	case '!':
		s.advance()
		if s.advanceIf('=') {
			return tok(token.BANG_EQUAL, "!=", pos)
		}
		return tok(token.BANG, "!", pos)
	case '=':
		s.advance()
		if s.advanceIf('=') {
			return tok(token.EQUAL_EQUAL, "==", pos)
		}
		if s.advanceIf('>') {
			return tok(token.ARROW, "=>", pos)
		}
		return tok(token.EQUAL, "=", pos)
	case '>':
		s.advance()
		if s.advanceIf('=') {
			return tok(token.GREATER_EQUAL, ">=", pos)
		}
		if s.advanceIf('>') {
			return tok(token.GREATER_GREATER, ">>", pos)
		}
		return tok(token.GREATER, ">", pos)
	case '<':
		s.advance()
		if s.advanceIf('=') {
			return tok(token.LESS_EQUAL, "<=", pos)
		}
		if s.advanceIf('<') {
			return tok(token.LESS_LESS, "<<", pos)
		}
		return tok(token.LESS, "<", pos)
	case '+':
		s.advance()
		if s.advanceIf('=') {
			return tok(token.PLUS_EQUAL, "+=", pos)
		}
		if s.advanceIf('+') {
			return tok(token.PLUS_PLUS, "++", pos)
		}
		return tok(token.PLUS, "+", pos)
	case '-':
		s.advance()
		if s.advanceIf('=') {
			return tok(token.MINUS_EQUAL, "-=", pos)
		}
		if s.advanceIf('-') {
			return tok(token.MINUS_MINUS, "--", pos)
		}
		return tok(token.MINUS, "-", pos)
	case '*':
		s.advance()
		if s.advanceIf('*') {
			return tok(token.STAR_STAR, "**", pos)
		}
		if s.advanceIf('=') {
			return tok(token.STAR_EQUAL, "*=", pos)
		}
		return tok(token.STAR, "*", pos)
	case '/':
		s.advance()
		if s.advanceIf('/') {
			return tok(token.SLASH_SLASH, "//", pos)
		}
		if s.advanceIf('=') {
			return tok(token.SLASH_EQUAL, "/=", pos)
		}
		return tok(token.SLASH, "/", pos)
	case '%':
		s.advance()
		if s.advanceIf('=') {
			return tok(token.PERCENT_EQUAL, "%=", pos)
		}
		return tok(token.PERCENT, "%", pos)
	case '&':
		s.advance()
		if s.advanceIf('&') {
			return tok(token.AMP_AMP, "&&", pos)
		}
		return tok(token.AMP, "&", pos)
	case '|':
		s.advance()
		if s.advanceIf('|') {
			return tok(token.PIPE_PIPE, "||", pos)
		}
		return tok(token.PIPE, "|", pos)
	case '^':
		s.advance()
		return tok(token.CARET, "^", pos)
	case '~':
		s.advance()
		return tok(token.TILDE, "~", pos)
	case '?':
		s.advance()
		if s.advanceIf('?') {
			return tok(token.QUESTION_QUESTION, "??", pos)
		}
		if s.advanceIf('.') {
			return tok(token.QUESTION_DOT, "?.", pos)
		}
		return tok(token.QUESTION, "?", pos)

	default:
		s.advance()
		msg := "unexpected character " + strconv.QuoteRune(cur)
		s.error(start, errcode.UnexpectedChar, msg)
		return Tok{Type: token.ILLEGAL, Lexeme: string(cur), Pos: pos, Err: msg, Code: errcode.UnexpectedChar}
	}
}

func tok(ty token.Token, lexeme string, pos token.Position) Tok {
	return Tok{Type: ty, Lexeme: lexeme, Pos: pos}
}

func (s *Scanner) ident() string {
	start := s.off
	for isLetter(s.cur) || isDigit(s.cur) {
		s.advance()
	}
	return string(s.src[start:s.off])
}

func (s *Scanner) skipWhitespaceAndComments() {
	for {
		switch {
		case s.cur == ' ' || s.cur == '\t' || s.cur == '\n' || s.cur == '\r':
			s.advance()
		case s.cur == '/' && s.peek() == '/':
			for s.cur != '\n' && s.cur != -1 {
				s.advance()
			}
		case s.cur == '/' && s.peek() == '*':
			s.advance()
			s.advance()
			for {
				if s.cur == -1 {
					s.error(s.off, errcode.UnexpectedChar, "unterminated block comment")
					return
				}
				if s.cur == '*' && s.peek() == '/' {
					s.advance()
					s.advance()
					break
				}
				s.advance()
			}
		default:
			return
		}
	}
}

func isLetter(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
