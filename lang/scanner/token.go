package scanner

import (
	"github.com/mna/lit/lang/errcode"
	"github.com/mna/lit/lang/token"
)

// Tok is one lexical token produced by the Scanner, combining its kind with
// any decoded literal value and source position.
type Tok struct {
	Type   token.Token
	Lexeme string // raw source text covered by the token
	Pos    token.Position

	// Literal values, populated depending on Type.
	Int   int64   // NUMBER (integral)
	Float float64 // NUMBER (fractional)
	IsInt bool    // true if NUMBER decoded to Int rather than Float
	Str   string  // STRING, INTERPOLATION: decoded text

	// Err, if non-empty, is a human readable message for an ILLEGAL token.
	Err  string
	Code errcode.Code
}
