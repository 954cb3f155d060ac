package value

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"unicode/utf8"
)

func hashString(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

// InternString returns the Value of the canonical StringObj for s,
// allocating it on first sight. Two strings with equal content always
// share one handle afterwards (spec §8: "content-equality implies
// pointer-equality after interning").
func (h *Heap) InternString(s string) Value {
	if v, ok := h.strings[s]; ok {
		return v
	}
	obj := &StringObj{Bytes: s, Hash: hashString(s)}
	v := h.allocate(KindString, obj)
	h.strings[s] = v
	return v
}

// StringOf returns the StringObj referenced by v. Panics if v is not a
// string; callers are expected to type-check first (mirrors the
// original's unchecked cast convention for hot paths).
func (h *Heap) StringOf(v Value) *StringObj {
	return h.Object(v).(*StringObj)
}

// Format implements spec §4.2's `String::format`: `$` substitutes the
// contents of a string Value (every argument is a Value; there is no raw
// Go-string argument), `@` substitutes a Value via toString, `#`
// substitutes a formatted number.
func (h *Heap) Format(toString func(Value) string, format string, args ...Value) (string, error) {
	var b strings.Builder
	argi := 0
	next := func() (Value, error) {
		if argi >= len(args) {
			return Value(0), fmt.Errorf("format: not enough arguments for %q", format)
		}
		v := args[argi]
		argi++
		return v, nil
	}

	for i := 0; i < len(format); i++ {
		c := format[i]
		switch c {
		case '$':
			v, err := next()
			if err != nil {
				return "", err
			}
			b.WriteString(h.StringOf(v).Bytes)
		case '@':
			v, err := next()
			if err != nil {
				return "", err
			}
			b.WriteString(toString(v))
		case '#':
			v, err := next()
			if err != nil {
				return "", err
			}
			b.WriteString(formatNumber(v.AsFloat()))
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// FromRange returns the UTF-8-aware substring of s starting at rune
// index start, spanning count runes (spec §4.2's `from_range`).
func FromRange(s string, start, count int) string {
	if count <= 0 {
		return ""
	}
	runes := []rune(s)
	if start < 0 {
		start += len(runes)
	}
	if start < 0 {
		start = 0
	}
	if start >= len(runes) {
		return ""
	}
	end := start + count
	if end > len(runes) {
		end = len(runes)
	}
	return string(runes[start:end])
}

// Split splits s on sep, optionally keeping empty fields (spec §4.2's
// `split`).
func Split(s, sep string, keepBlanks bool) []string {
	var parts []string
	if sep == "" {
		for _, r := range s {
			parts = append(parts, string(r))
		}
	} else {
		parts = strings.Split(s, sep)
	}
	if keepBlanks {
		return parts
	}
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// RuneCount returns the number of UTF-8 runes in s.
func RuneCount(s string) int { return utf8.RuneCountInString(s) }
