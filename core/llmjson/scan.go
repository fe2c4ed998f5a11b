package llmjson

type span struct {
	start, end int // end is exclusive
}

// matchBrace returns the index of the brace closing the one at start,
// or -1 when the text ends first. Braces inside strings are ignored.
func matchBrace(s string, start int) int {
	var (
		depth    int
		inString bool
		escaped  bool
	)
	for i := start; i < len(s); i++ {
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
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// topLevelSpans lists every top-level {...} span of s in order.
// Quotes outside of any object are prose and do not open strings.
// An unterminated last span runs to the end of s.
func topLevelSpans(s string) []span {
	var spans []span
	for i := 0; i < len(s); i++ {
		if s[i] != '{' {
			continue
		}
		end := matchBrace(s, i)
		if end == -1 {
			spans = append(spans, span{start: i, end: len(s)})
			break
		}
		spans = append(spans, span{start: i, end: end + 1})
		i = end
	}
	return spans
}

type scanState struct {
	inString bool
	escaped  bool   // the text ends right after a backslash inside a string
	stack    []byte // open '{' and '[' in order
}

func scan(s string) scanState {
	var st scanState
	for i := 0; i < len(s); i++ {
		c := s[i]
		if st.inString {
			switch {
			case st.escaped:
				st.escaped = false
			case c == '\\':
				st.escaped = true
			case c == '"':
				st.inString = false
			}
			continue
		}
		switch c {
		case '"':
			st.inString = true
		case '{', '[':
			st.stack = append(st.stack, c)
		case '}', ']':
			if n := len(st.stack); n > 0 {
				st.stack = st.stack[:n-1]
			}
		}
	}
	return st
}

// isEscaped reports whether s[i] is preceded by an odd number of backslashes.
func isEscaped(s string, i int) bool {
	n := 0
	for j := i - 1; j >= 0 && s[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}

// stringStart returns the index of the opening quote of the string closed by the last byte of s.
func stringStart(s string) int {
	if s == "" || s[len(s)-1] != '"' {
		return -1
	}
	for j := len(s) - 2; j >= 0; j-- {
		if s[j] == '"' && !isEscaped(s, j) {
			return j
		}
	}
	return -1
}

// lastNonSpace returns the last non whitespace byte of s, or 0.
func lastNonSpace(s string) byte {
	for j := len(s) - 1; j >= 0; j-- {
		switch s[j] {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return s[j]
	}
	return 0
}
