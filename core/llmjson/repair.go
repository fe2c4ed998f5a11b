package llmjson

import (
	"regexp"
	"strings"
	"unicode"
)

var numberRe = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)

// StripTrailingCommas removes commas directly followed (modulo whitespace) by '}' or ']'.
// Commas inside strings are kept.
func StripTrailingCommas(s string) string {
	var (
		b        strings.Builder
		inString bool
		escaped  bool
	)
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			b.WriteByte(c)
			continue
		}
		if c == '"' {
			inString = true
		} else if c == ',' && closesNext(s, i+1) {
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func closesNext(s string, from int) bool {
	for j := from; j < len(s); j++ {
		switch s[j] {
		case ' ', '\t', '\n', '\r':
			continue
		case '}', ']':
			return true
		}
		return false
	}
	return false
}

// RepairTruncated closes a document that was cut off mid-stream.
//
// An open string is closed (a dangling escape is dropped first), then any trailing
// comma, an incomplete `"key":` fragment, a lone key or a partial literal is removed,
// and finally every open array and object is closed in reverse order.
func RepairTruncated(s string) string {
	s = strings.TrimRightFunc(s, unicode.IsSpace)

	if st := scan(s); st.inString {
		if st.escaped {
			s = s[:len(s)-1]
		}
		s = trimPartialUnicodeEscape(s) + `"`
	}
	s = trimDangling(s)

	st := scan(s)
	if len(st.stack) == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + len(st.stack))
	b.WriteString(s)
	for i := len(st.stack) - 1; i >= 0; i-- {
		if st.stack[i] == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
	return b.String()
}

// trimPartialUnicodeEscape drops a trailing `\u` escape with fewer than four hex digits.
func trimPartialUnicodeEscape(s string) string {
	for n := 0; n <= 3 && n+2 <= len(s); n++ {
		i := len(s) - n - 2 // index of the backslash
		if s[i] != '\\' || s[i+1] != 'u' || isEscaped(s, i) {
			continue
		}
		if isHex(s[i+2:]) {
			return s[:i]
		}
	}
	return s
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return false
		}
	}
	return true
}

// trimDangling removes trailing tokens that cannot end a value inside an open container.
func trimDangling(s string) string {
	for {
		s = strings.TrimRightFunc(s, unicode.IsSpace)
		if s == "" {
			return s
		}

		switch last := s[len(s)-1]; {
		case last == ',':
			s = s[:len(s)-1]

		case last == ':':
			s = strings.TrimRightFunc(s[:len(s)-1], unicode.IsSpace)
			start := stringStart(s)
			if start == -1 {
				return s
			}
			s = s[:start]

		case last == '"':
			start := stringStart(s)
			if start == -1 || !isKeyPosition(s, start) {
				return s
			}
			s = s[:start]

		case isLiteralByte(last):
			start := len(s) - 1
			for start > 0 && isLiteralByte(s[start-1]) {
				start--
			}
			if isCompleteLiteral(s[start:]) {
				return s
			}
			s = s[:start]

		default:
			return s
		}
	}
}

// isKeyPosition reports whether the string starting at start is an object key with no colon yet.
func isKeyPosition(s string, start int) bool {
	before := s[:start]
	st := scan(before)
	if n := len(st.stack); n == 0 || st.stack[n-1] != '{' {
		return false
	}
	prev := lastNonSpace(before)
	return prev == '{' || prev == ','
}

func isLiteralByte(c byte) bool {
	return 'a' <= c && c <= 'z' || '0' <= c && c <= '9' || c == '.' || c == '-' || c == '+' || c == 'E'
}

func isCompleteLiteral(lit string) bool {
	switch lit {
	case "true", "false", "null":
		return true
	}
	return numberRe.MatchString(lit)
}
