// Package preprocess implements the text-level #define/#ifdef pass that
// runs before the scanner sees any source (spec §4.3's preprocessor
// contract, grounded on original_source/ccpre.cpp): #define/#undef toggle
// a flat set of names, #ifdef/#ifndef/#else/#endif conditionally blank
// out a branch of the source, and every character removed is replaced
// with a space rather than deleted outright, so byte offsets - and the
// line numbers the scanner derives from them - never shift.
package preprocess

import (
	"fmt"

	"github.com/mna/lit/lang/errcode"
	"github.com/mna/lit/lang/token"
)

// ErrorHandler is called once per malformed or unclosed macro directive.
type ErrorHandler func(pos token.Position, code errcode.Code, msg string)

// Preprocessor holds the set of names currently #define'd. The zero value
// is ready to use with nothing defined.
type Preprocessor struct {
	defined map[string]bool
}

// Define adds name to the defined set, as if source had contained a
// top-level `#define name` before any #ifdef referencing it (the
// embedding API's equivalent of original_source's lit_add_definition,
// used to seed flags like a build configuration before running a file).
func (p *Preprocessor) Define(name string) {
	if p.defined == nil {
		p.defined = make(map[string]bool)
	}
	p.defined[name] = true
}

type openIf struct {
	start int // byte offset of the '#' that opened this ifdef/ifndef
	depth int
}

// Process scans src for preprocessor directives and returns a new byte
// slice of the same length with every directive line, and every line
// inside a branch whose condition was false, replaced with spaces
// (newlines are preserved). file is used only to turn byte offsets into
// line:column positions for diagnostics; Process does not mutate it.
func (p *Preprocessor) Process(file *token.File, src []byte, onError ErrorHandler) ([]byte, bool) {
	if p.defined == nil {
		p.defined = make(map[string]bool)
	}
	out := append([]byte(nil), src...)

	report := func(off int, code errcode.Code, msg string) {
		if onError != nil {
			onError(file.Position(off), code, msg)
		}
	}

	var (
		openIfs     []openIf
		ignoreDepth = -1
		depth       = 0
		onNewLine   = true
		inMacro     = false
		macroStart  = 0
	)

	blank := func(from, to int) {
		for i := from; i < to; i++ {
			if out[i] != '\n' {
				out[i] = ' '
			}
		}
	}

	i := 0
	ok := true
	for i < len(src) {
		c := src[i]

		if c == '/' && i+1 < len(src) && src[i+1] == '/' {
			for i < len(src) && src[i] != '\n' {
				i++
			}
			inMacro = false
			onNewLine = true
			continue
		}
		if c == '/' && i+1 < len(src) && src[i+1] == '*' {
			i += 2
			for i < len(src) && !(src[i] == '*' && i+1 < len(src) && src[i+1] == '/') {
				i++
			}
			if i < len(src) {
				i += 2
			}
			inMacro = false
			onNewLine = true
			continue
		}

		if inMacro {
			nameEnd := i
			for nameEnd < len(src) && isIdentByte(src[nameEnd], nameEnd == macroStart) {
				nameEnd++
			}
			directive := string(src[macroStart:nameEnd])
			i = nameEnd

			switch directive {
			case "define", "undef":
				argStart, argEnd := scanArg(src, i)
				name := string(src[argStart:argEnd])
				if ignoreDepth < 0 {
					if directive == "undef" {
						delete(p.defined, name)
					} else {
						p.defined[name] = true
					}
				}
				blank(macroStart-1, argEnd)
				i = argEnd
				inMacro = false

			case "ifdef", "ifndef":
				argStart, argEnd := scanArg(src, i)
				name := string(src[argStart:argEnd])
				depth++
				if ignoreDepth < 0 {
					want := directive == "ifdef"
					if p.defined[name] != want {
						ignoreDepth = depth
					}
					openIfs = append(openIfs, openIf{start: macroStart, depth: depth})
				}
				// the directive line itself is never valid source, whether
				// or not its branch ends up ignored (an ignored branch's
				// body is blanked later, in bulk, when its #else/#endif is
				// reached).
				blank(macroStart-1, argEnd)
				i = argEnd
				inMacro = false

			case "else":
				if ignoreDepth < 0 || depth <= ignoreDepth {
					if ignoreDepth == depth {
						branch := openIfs[len(openIfs)-1].start
						blank(branch-1, i)
						ignoreDepth = -1
					} else {
						openIfs[len(openIfs)-1].start = macroStart
						ignoreDepth = depth
					}
				}
				inMacro = false

			case "endif":
				depth--
				if ignoreDepth > -1 {
					branch := openIfs[len(openIfs)-1].start
					blank(branch-1, i)
					if ignoreDepth == depth+1 {
						ignoreDepth = -1
						openIfs = openIfs[:len(openIfs)-1]
					}
				} else {
					if len(openIfs) > 0 {
						openIfs = openIfs[:len(openIfs)-1]
					}
					blank(macroStart-1, i)
				}
				inMacro = false

			default:
				report(macroStart-1, errcode.UnknownMacro, fmt.Sprintf("unknown macro '#%s'", directive))
				return out, false
			}
			continue
		}

		switch c {
		case '\n':
			onNewLine = true
		case '\t', ' ':
			// stay on the current line's leading-whitespace run
		case '#':
			if onNewLine {
				inMacro = true
				macroStart = i + 1
			}
			onNewLine = false
		default:
			onNewLine = false
		}
		i++
	}

	if inMacro || len(openIfs) > 0 || depth > 0 {
		report(len(src), errcode.UnclosedMacro, "unclosed macro")
		ok = false
	}
	return out, ok
}

func isIdentByte(c byte, first bool) bool {
	if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_' {
		return true
	}
	if !first && c >= '0' && c <= '9' {
		return true
	}
	return false
}

// scanArg consumes the whitespace-delimited argument (a bare identifier)
// following a #define/#undef/#ifdef/#ifndef directive name, returning the
// [start,end) byte range of the identifier itself.
func scanArg(src []byte, from int) (start, end int) {
	i := from
	for i < len(src) && (src[i] == ' ' || src[i] == '\t') {
		i++
	}
	start = i
	for i < len(src) && isIdentByte(src[i], i == start) {
		i++
	}
	return start, i
}
