// Package frontmatter splits and reassembles YAML frontmatter around
// Markdown bodies. Field order is preserved in both directions so enriched
// notes rewrite with minimal diffs.
package frontmatter

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/othala/internal/note"
)

const delimiter = "---"

// Parse extracts ordered frontmatter fields, the body, and a derived title
// from raw Markdown content. A missing or malformed frontmatter block is
// tolerated: the whole input becomes the body, matching how editors treat
// such files.
func Parse(content []byte) (*note.Note, error) {
	fields, body := split(content)
	n := &note.Note{Fields: fields, Body: body}
	n.Title = deriveTitle(n)
	return n, nil
}

// Compose serializes fields and body back into a Markdown document. Field
// order follows the map's insertion order. Nil or empty fields yield the
// bare body.
func Compose(fields *note.Metadata, body string) ([]byte, error) {
	if fields == nil || fields.Len() == 0 {
		return []byte(body), nil
	}

	mapping := &yaml.Node{Kind: yaml.MappingNode}
	for pair := fields.Oldest(); pair != nil; pair = pair.Next() {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: pair.Key}
		valueNode := &yaml.Node{}
		if err := valueNode.Encode(pair.Value); err != nil {
			return nil, fmt.Errorf("frontmatter: encode field %s: %w", pair.Key, err)
		}
		mapping.Content = append(mapping.Content, keyNode, valueNode)
	}
	block, err := yaml.Marshal(mapping)
	if err != nil {
		return nil, fmt.Errorf("frontmatter: marshal: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(delimiter + "\n")
	buf.Write(block)
	buf.WriteString(delimiter + "\n")
	if body != "" {
		buf.WriteString("\n")
		buf.WriteString(body)
	}
	return buf.Bytes(), nil
}

// split separates the frontmatter block from the body. It returns nil
// fields when the content has no valid block.
func split(content []byte) (*note.Metadata, string) {
	trimmed := bytes.TrimLeft(content, "\r\n")
	if !bytes.HasPrefix(trimmed, []byte(delimiter)) {
		return nil, string(content)
	}

	rest := trimmed[len(delimiter):]
	end := bytes.Index(rest, []byte("\n"+delimiter))
	if end < 0 {
		return nil, string(content)
	}

	block := rest[:end]
	after := rest[end+1+len(delimiter):]
	body := strings.TrimLeft(string(after), "\r\n")

	fields, err := decodeFields(block)
	if err != nil {
		return nil, string(content)
	}
	return fields, body
}

// decodeFields unmarshals a YAML mapping into an ordered metadata map by
// walking the document node pairwise, since plain map decoding loses key
// order.
func decodeFields(block []byte) (*note.Metadata, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(block, &root); err != nil {
		return nil, err
	}
	if len(root.Content) == 0 {
		return note.NewMetadata(), nil
	}
	mapping := root.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("frontmatter: block is not a mapping")
	}

	fields := note.NewMetadata()
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		var value any
		if err := mapping.Content[i+1].Decode(&value); err != nil {
			return nil, err
		}
		fields.Set(mapping.Content[i].Value, value)
	}
	return fields, nil
}

// deriveTitle prefers the frontmatter title, then the first level-one
// heading of the body.
func deriveTitle(n *note.Note) string {
	if n.Fields != nil {
		if v, ok := n.Fields.Get("title"); ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	for _, line := range strings.Split(n.Body, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return ""
}
