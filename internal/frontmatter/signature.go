package frontmatter

import (
	"bytes"
	"fmt"
	"regexp"
)

// sigLinePattern matches "KEY: value" where value is one of: a bare 8-hex
// digit token, that token single- or double-quoted, or an explicit empty
// string in either quote style. Anything else on a signature line is
// considered corrupted.
func sigLinePattern(key string) *regexp.Regexp {
	return regexp.MustCompile(`^(\s*)` + regexp.QuoteMeta(key) + `:\s*("[0-9a-f]{8}"|'[0-9a-f]{8}'|[0-9a-f]{8}|""|'')?\s*$`)
}

// RepairSignatures scans the frontmatter block of a Markdown file for the
// given signature keys and rewrites any line that fails the strict
// signature pattern to `KEY: ""`, leaving every other line untouched. It
// operates purely on the raw block text, never round-tripping through YAML
// decode/encode, so unrelated fields keep their original formatting.
func RepairSignatures(data []byte, keys []string) ([]byte, bool) {
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return data, false
	}
	leadingNL := len(data) - len(trimmed)

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return data, false
	}

	blockStart := leadingNL + len(delim)
	blockEnd := blockStart + idx // exclusive, points at the "\n---" separator's newline
	block := data[blockStart:blockEnd]

	patterns := make([]*regexp.Regexp, len(keys))
	for i, k := range keys {
		patterns[i] = sigLinePattern(k)
	}

	lines := bytes.Split(block, []byte("\n"))
	changed := false
	for i, line := range lines {
		for j, key := range keys {
			// Only lines that look like an assignment to this key are
			// candidates; skip lines belonging to other fields entirely.
			if !bytes.Contains(line, []byte(key+":")) {
				continue
			}
			if patterns[j].Match(line) {
				continue
			}
			lines[i] = []byte(fmt.Sprintf("%s: \"\"", key))
			changed = true
		}
	}
	if !changed {
		return data, false
	}

	newBlock := bytes.Join(lines, []byte("\n"))
	out := make([]byte, 0, len(data))
	out = append(out, data[:blockStart]...)
	out = append(out, newBlock...)
	out = append(out, data[blockEnd:]...)
	return out, true
}
