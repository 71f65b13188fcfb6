// Package frontmatter provides tolerant reads and strict writes over a
// Markdown file's YAML frontmatter block, keyed through a configurable
// PropNames table with legacy-key fallback.
package frontmatter

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/taskvault/internal/models"
)

const delim = "---"

// Split separates the YAML frontmatter block from the Markdown body. If no
// frontmatter block is found, fm is nil and body is the entire input.
func Split(data []byte) (fm models.Frontmatter, body string, err error) {
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data), nil
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body = strings.TrimLeft(string(afterDelim), "\n\r")

	var raw map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &raw); err != nil {
		// Malformed YAML: treat as no frontmatter rather than failing the
		// whole read; signature repair recovers this class of corruption
		// on a later pass.
		return nil, string(data), nil
	}
	return models.Frontmatter(raw), body, nil
}

// SplitOrdered is Split plus the original top-level key order, so a
// read-modify-write caller (storage.ProcessFrontmatter) can write back a
// superset of the original map without reshuffling untouched fields: a
// write that changes nothing should leave the file byte-for-byte as it was.
func SplitOrdered(data []byte) (order []string, fm models.Frontmatter, body string, err error) {
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, nil, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, nil, string(data), nil
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body = strings.TrimLeft(string(afterDelim), "\n\r")

	var node yaml.Node
	if err := yaml.Unmarshal(yamlBlock, &node); err != nil || len(node.Content) == 0 {
		return nil, nil, string(data), nil
	}
	mapping := node.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return nil, nil, string(data), nil
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &raw); err != nil {
		return nil, nil, string(data), nil
	}

	for i := 0; i+1 < len(mapping.Content); i += 2 {
		order = append(order, mapping.Content[i].Value)
	}
	return order, models.Frontmatter(raw), body, nil
}

// kv is one ordered frontmatter entry for Render.
type kv struct {
	key   string
	value interface{}
}

// Doc accumulates ordered frontmatter entries for serialization.
type Doc struct {
	entries []kv
}

// NewDoc returns an empty ordered frontmatter document.
func NewDoc() *Doc { return &Doc{} }

// Set appends (or, if the key was already set, overwrites in place) a
// frontmatter entry, preserving insertion order.
func (d *Doc) Set(key string, value interface{}) {
	for i, e := range d.entries {
		if e.key == key {
			d.entries[i].value = value
			return
		}
	}
	d.entries = append(d.entries, kv{key, value})
}

// Render serializes the document as a YAML frontmatter block followed by
// body, preserving field insertion order. Writes are always strict: the
// output is the canonical shape regardless of how the input was formatted.
func (d *Doc) Render(body string) ([]byte, error) {
	mapping := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range d.entries {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: e.key}
		valNode := &yaml.Node{}
		if err := valNode.Encode(e.value); err != nil {
			return nil, fmt.Errorf("frontmatter: encode %s: %w", e.key, err)
		}
		mapping.Content = append(mapping.Content, keyNode, valNode)
	}
	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{mapping}}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("frontmatter: encode document: %w", err)
	}
	_ = enc.Close()

	out := bytes.Buffer{}
	out.WriteString(delim + "\n")
	out.Write(buf.Bytes())
	out.WriteString(delim + "\n")
	if body != "" {
		out.WriteString("\n")
		out.WriteString(body)
	}
	return out.Bytes(), nil
}

// GetString reads key, falling back to its legacy key if key is absent.
// The result is trimmed.
func GetString(fm models.Frontmatter, key string) string {
	if fm == nil {
		return ""
	}
	if v, ok := fm[key]; ok {
		return trimAny(v)
	}
	if lk := legacyFor(key); lk != "" {
		if v, ok := fm[lk]; ok {
			return trimAny(v)
		}
	}
	return ""
}

// GetIDString reads an identity field that may be stored as a YAML string or
// number, returning its canonical string form: a remote_task_id stored as a
// bare number indexes identically to the same number quoted.
func GetIDString(fm models.Frontmatter, key string) string {
	if fm == nil {
		return ""
	}
	raw, ok := fm[key]
	if !ok {
		if lk := legacyFor(key); lk != "" {
			raw, ok = fm[lk]
		}
	}
	if !ok {
		return ""
	}
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// GetBool accepts bool or the strings "true"/"false" (any case).
func GetBool(fm models.Frontmatter, key string) bool {
	if fm == nil {
		return false
	}
	raw, ok := fm[key]
	if !ok {
		if lk := legacyFor(key); lk != "" {
			raw, ok = fm[lk]
		}
	}
	if !ok {
		return false
	}
	switch v := raw.(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(strings.ToLower(v)))
		return b
	default:
		return false
	}
}

// GetInt reads an integer field, tolerating a float64 decode (YAML numbers
// decode as float64 in some paths) or a numeric string.
func GetInt(fm models.Frontmatter, key string) int {
	if fm == nil {
		return 0
	}
	raw, ok := fm[key]
	if !ok {
		return 0
	}
	switch v := raw.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(v))
		return n
	default:
		return 0
	}
}

// GetStringSlice normalizes a frontmatter list field to []string, accepting
// a YAML sequence, a single string, or an absent key (nil result).
func GetStringSlice(fm models.Frontmatter, key string) []string {
	if fm == nil {
		return nil
	}
	raw, ok := fm[key]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s := trimAny(item)
			if s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil
		}
		return []string{s}
	default:
		return nil
	}
}

// GetWikilinkPath reads a field holding a "[[path|title]]" token (as written
// by the cross-reference fields: parent_task_link, parent_project_link,
// child_tasks) and returns just the path, or "" if the field is absent or
// not a wikilink.
func GetWikilinkPath(fm models.Frontmatter, key string) string {
	return wikilinkPath(GetString(fm, key))
}

func wikilinkPath(token string) string {
	if !strings.HasPrefix(token, "[[") || !strings.HasSuffix(token, "]]") {
		return ""
	}
	inner := token[2 : len(token)-2]
	path, _, _ := strings.Cut(inner, "|")
	return strings.TrimSpace(path)
}

func trimAny(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case fmt.Stringer:
		return strings.TrimSpace(t.String())
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", t))
	}
}
