package markdown

import (
	"bytes"
	"strings"
	"unicode"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SplitFrontMatter separates a leading metadata block from the Markdown body.
//
// The block opens with a "---" line at the very start of the document and
// closes with "---" or "...". Every non-blank line inside must be a
// "key: value" pair (keys are single words); keys are lowercased and values
// unquoted. A block that is unclosed, has no pairs, or holds any other line
// is ordinary Markdown (a thematic break), and the input is returned
// unchanged with nil metadata.
func SplitFrontMatter(src []byte) (map[string]string, []byte) {
	src = bytes.TrimPrefix(src, utf8BOM)

	first, rest := nextLine(src)
	if strings.TrimRight(string(first), " \t") != "---" {
		return nil, src
	}

	meta := make(map[string]string)
	for len(rest) > 0 {
		var line []byte
		line, rest = nextLine(rest)

		trimmed := strings.TrimSpace(string(line))
		if trimmed == "---" || trimmed == "..." {
			if len(meta) == 0 {
				return nil, src
			}
			return meta, rest
		}
		if trimmed == "" {
			continue
		}

		key, value, ok := strings.Cut(trimmed, ":")
		key = strings.TrimSpace(key)
		if !ok || !isMetaKey(key) {
			return nil, src
		}
		meta[strings.ToLower(key)] = strings.Trim(strings.TrimSpace(value), `"'`)
	}

	return nil, src
}

// isMetaKey reports whether s is a single word of letters, digits, '-' or '_'.
func isMetaKey(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
			return false
		}
	}
	return true
}

// nextLine splits off the first line (without its terminator).
func nextLine(b []byte) (line, rest []byte) {
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		return bytes.TrimSuffix(b[:i], []byte("\r")), b[i+1:]
	}
	return bytes.TrimSuffix(b, []byte("\r")), nil
}
