package scanner

import (
	"github.com/mna/lit/lang/errcode"
	"github.com/mna/lit/lang/token"
)

// stringBody scans the contents of a (possibly interpolated) string literal
// starting right after the opening quote (or, when resuming is true, right
// after the '}' that closed an embedded expression). It stops at the
// closing quote (producing a STRING token) or at an unescaped '{' (producing
// an INTERPOLATION token and pushing an interpolation frame so the caller
// resumes tokenizing the embedded expression).
func (s *Scanner) stringBody(quote byte, pos token.Position, start int, resuming bool) Tok {
	s.sb.Reset()
	ty := token.STRING

	for {
		switch {
		case s.cur == -1 || s.cur == '\n':
			s.error(start, errcode.UnterminatedString, "string literal not terminated")
			ty = token.STRING
			goto done
		case s.cur == rune(quote):
			s.advance()
			goto done
		case s.cur == '\\':
			s.advance()
			s.escape()
		case s.cur == '{':
			if len(s.interp) >= MaxInterpolationNesting {
				s.error(s.off, errcode.InterpolationNestingTooDeep,
					"string interpolation nesting too deep")
				// keep scanning as a literal '{' to avoid runaway recursion
				s.sb.WriteRune(s.cur)
				s.advance()
				continue
			}
			s.advance()
			s.interp = append(s.interp, interpFrame{quote: quote})
			ty = token.INTERPOLATION
			goto done
		default:
			s.sb.WriteRune(s.cur)
			s.advance()
		}
	}

done:
	lit := string(s.src[start:s.off])
	if !resuming {
		lit = string(quote) + lit
	}
	return Tok{Type: ty, Lexeme: lit, Pos: pos, Str: s.sb.String()}
}

var simpleEscapes = map[rune]rune{
	'n':  '\n',
	't':  '\t',
	'r':  '\r',
	'b':  '\b',
	'f':  '\f',
	'a':  '\a',
	'v':  '\v',
	'e':  '\x1b',
	'\\': '\\',
	'"':  '"',
	'\'': '\'',
	'0':  0,
	'{':  '{',
}

// escape decodes a single escape sequence, the leading backslash already
// consumed. It supports the simple C-like escapes, octal byte escapes
// (\NNN, one to three octal digits) and passes through unknown sequences
// with an error (spec §4.3).
func (s *Scanner) escape() {
	start := s.off
	cur := s.cur

	if r, ok := simpleEscapes[cur]; ok {
		s.sb.WriteRune(r)
		s.advance()
		return
	}

	if isOctalDigit(cur) {
		val := 0
		n := 0
		for n < 3 && isOctalDigit(s.cur) {
			val = val*8 + int(s.cur-'0')
			s.advance()
			n++
		}
		s.sb.WriteByte(byte(val))
		return
	}

	if cur == -1 {
		s.error(start, errcode.InvalidEscapeChar, "escape sequence not terminated")
		return
	}
	s.errorf(start, errcode.InvalidEscapeChar, "invalid escape character %q", cur)
	s.sb.WriteRune(cur)
	s.advance()
}

func isOctalDigit(r rune) bool { return r >= '0' && r <= '7' }
