// Package note defines the domain types shared across the processing
// pipeline.
package note

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Metadata is the ordered frontmatter mapping of a note. Insertion order is
// preserved through parsing, enrichment, and serialization so rewrites stay
// diff-friendly.
type Metadata = orderedmap.OrderedMap[string, any]

// NewMetadata returns an empty ordered metadata map.
func NewMetadata() *Metadata {
	return orderedmap.New[string, any]()
}

// Snapshot returns a plain-map copy of m for read-only consumers. A nil m
// yields nil.
func Snapshot(m *Metadata) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, m.Len())
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		out[pair.Key] = pair.Value
	}
	return out
}

// Note is a Markdown file in the vault, split into frontmatter fields and
// body.
type Note struct {
	// Path is the vault-relative path of the file.
	Path string

	// Title is derived from the frontmatter title or the first heading.
	Title string

	// Fields holds the ordered frontmatter mapping; nil when the file has
	// no frontmatter.
	Fields *Metadata

	// Body is the Markdown content after the frontmatter block.
	Body string
}

// TemplateType returns the template type declared in the note's
// frontmatter, or the empty string when none is declared.
func (n *Note) TemplateType() string {
	return stringField(n, "template-type")
}

// Tags returns the frontmatter tags list. Non-string entries are skipped.
func (n *Note) Tags() []string {
	if n == nil || n.Fields == nil {
		return nil
	}
	raw, ok := n.Fields.Get("tags")
	if !ok {
		return nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	var tags []string
	for _, item := range list {
		if s, ok := item.(string); ok && s != "" {
			tags = append(tags, s)
		}
	}
	return tags
}

func stringField(n *Note, key string) string {
	if n == nil || n.Fields == nil {
		return ""
	}
	v, ok := n.Fields.Get(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
