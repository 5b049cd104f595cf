package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON pulls a JSON value of type T out of raw model text. Model
// output is rarely clean JSON: it arrives wrapped in markdown fences, with
// prose before or after, occasionally with stray comments or ".5"-style
// number literals. The extraction tolerates all of that. Anything that still
// fails to unmarshal or validate surfaces as ErrGenerationParse.
func ExtractJSON[T any](raw string, validate func(*T) error) (*T, error) {
	block := firstJSONObject(stripFences(raw))
	if block == "" {
		return nil, fmt.Errorf("%w: no JSON object in response", ErrGenerationParse)
	}
	block = sanitizeJSON(block)

	out := new(T)
	if err := json.Unmarshal([]byte(block), out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationParse, err)
	}
	if validate != nil {
		if err := validate(out); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrGenerationParse, err)
		}
	}
	return out, nil
}

// stripFences drops markdown fence lines (``` or ```json) so the object scan
// sees the fenced content as plain text.
func stripFences(s string) string {
	if !strings.Contains(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// firstJSONObject returns the first balanced {...} block, honoring string
// literals and escapes, or "" when none exists.
func firstJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth, inString, escaped := 0, false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString:
			if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
		case c == '"':
			inString = true
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// sanitizeJSON repairs the two malformations models actually emit: comments
// (// and /* */) outside string values, and numbers written without a
// leading zero (".5", "-.5").
func sanitizeJSON(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]

		if inString {
			b.WriteByte(c)
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}

		switch {
		case c == '"':
			inString = true
			b.WriteByte(c)
		case c == '/' && i+1 < len(s) && s[i+1] == '/':
			for i+1 < len(s) && s[i+1] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(s) && s[i+1] == '*':
			i += 2
			for i+1 < len(s) && !(s[i] == '*' && s[i+1] == '/') {
				i++
			}
			i++
		case c == '.' && i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '9' && atValueStart(s, i):
			b.WriteByte('0')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// atValueStart reports whether position i sits where a JSON value may begin,
// so ".5" gets repaired but "1.5" stays untouched.
func atValueStart(s string, i int) bool {
	for j := i - 1; j >= 0; j-- {
		switch s[j] {
		case ' ', '\t', '\n', '\r':
			continue
		case ':', ',', '[', '{', '-':
			return true
		default:
			return false
		}
	}
	return true
}
