package scanner

import (
	"strconv"
	"strings"

	"github.com/mna/lit/lang/errcode"
	"github.com/mna/lit/lang/token"
)

// number scans a decimal, hexadecimal (0x) or binary (0b) literal, integer
// or floating point, starting at the current rune which is known to be a
// decimal digit.
func (s *Scanner) number(pos token.Position, start int) Tok {
	base := 10
	isFloat := false

	if s.cur == '0' {
		switch s.cur2() {
		case 'x', 'X':
			base = 16
			s.advance()
			s.advance()
		case 'b', 'B':
			base = 2
			s.advance()
			s.advance()
		}
	}

	digits := func() {
		for isHexDigit(s.cur) && hexDigitFitsBase(s.cur, base) {
			s.advance()
		}
	}
	digits()

	if base == 10 && s.cur == '.' && isDigit(rune(s.peek())) {
		isFloat = true
		s.advance()
		digits()
	}
	if base == 10 && (s.cur == 'e' || s.cur == 'E') {
		isFloat = true
		s.advance()
		if s.cur == '+' || s.cur == '-' {
			s.advance()
		}
		digits()
	}

	lit := string(s.src[start:s.off])
	t := Tok{Type: token.NUMBER, Lexeme: lit, Pos: pos}

	if isFloat {
		v, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			s.errorf(start, errcode.NumberIsTooBig, "invalid float literal %q: %s", lit, err)
		}
		t.Float = v
		return t
	}

	digitsPart := lit
	switch base {
	case 16:
		digitsPart = strings.TrimPrefix(strings.TrimPrefix(lit, "0x"), "0X")
	case 2:
		digitsPart = strings.TrimPrefix(strings.TrimPrefix(lit, "0b"), "0B")
	}
	if digitsPart == "" {
		s.error(start, errcode.UnexpectedChar, "malformed number literal "+lit)
		digitsPart = "0"
	}
	v, err := strconv.ParseInt(digitsPart, base, 64)
	if err != nil {
		if strings.Contains(err.Error(), "value out of range") {
			s.error(start, errcode.NumberIsTooBig, "integer literal out of range: "+lit)
		} else {
			s.error(start, errcode.UnexpectedChar, "invalid integer literal "+lit)
		}
	}
	t.Int = v
	t.IsInt = true
	return t
}

// cur2 returns the rune following cur, without advancing, assuming cur is
// ASCII (used only to peek at radix prefixes after a leading '0').
func (s *Scanner) cur2() rune {
	return rune(s.peek())
}

func isHexDigit(r rune) bool {
	return r >= '0' && r <= '9' || r >= 'a' && r <= 'f' || r >= 'A' && r <= 'F'
}

func hexDigitFitsBase(r rune, base int) bool {
	switch base {
	case 2:
		return r == '0' || r == '1'
	case 16:
		return isHexDigit(r)
	default:
		return r >= '0' && r <= '9'
	}
}
