// Package schema loads the declarative template-type document and resolves
// template-type inheritance into fully expanded field sets.
//
// A schema document declares template types (named field sets with defaults
// and resolver references), the universal fields shared by every type, the
// reserved structural tags, and the alias mapping from note and index types
// to canonical template-type names.
package schema

import (
	"fmt"
	"os"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// UniversalFieldsBase is the pseudo base type that expands to the universal
// field set instead of another template type.
const UniversalFieldsBase = "universal-fields"

// FieldSpec describes a single metadata field of a template type. A field
// may carry a static default, the name of a resolver that computes its
// value, both, or neither.
type FieldSpec struct {
	Default  any    `yaml:"Default,omitempty"`
	Resolver string `yaml:"Resolver,omitempty"`
}

func (s *FieldSpec) clone() *FieldSpec {
	if s == nil {
		return &FieldSpec{}
	}
	c := *s
	return &c
}

// TemplateType describes one class of note: its required fields, the base
// types it inherits from, and its own field specifications.
type TemplateType struct {
	Type           string                `yaml:"Type,omitempty"`
	RequiredFields []string              `yaml:"RequiredFields,omitempty"`
	BaseTypes      []string              `yaml:"BaseTypes,omitempty"`
	Fields         map[string]*FieldSpec `yaml:"Fields,omitempty"`

	resolved bool
}

// Document is a loaded template-type schema.
type Document struct {
	TemplateTypes   map[string]*TemplateType `yaml:"TemplateTypes"`
	UniversalFields []string                 `yaml:"UniversalFields,omitempty"`
	TypeMapping     map[string]string        `yaml:"TypeMapping,omitempty"`
	ReservedTags    []string                 `yaml:"ReservedTags,omitempty"`
}

// Load reads, validates, and resolves a schema document from a YAML file.
// Any read, parse, validation, or inheritance failure is fatal: no partial
// document is ever returned.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", path, err)
	}
	doc := &Document{}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("schema: parse %s: %w", path, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("schema: validate %s: %w", path, err)
	}
	if err := doc.ResolveAll(); err != nil {
		return nil, fmt.Errorf("schema: resolve %s: %w", path, err)
	}
	return doc, nil
}

// Validate checks the structural integrity of the document and normalises
// template types whose Type field was omitted to their map key.
func (d *Document) Validate() error {
	if err := validation.ValidateStruct(d,
		validation.Field(&d.TemplateTypes, validation.Required),
	); err != nil {
		return err
	}
	for name, tt := range d.TemplateTypes {
		if tt == nil {
			return fmt.Errorf("template type %q has no body", name)
		}
		if tt.Type == "" {
			tt.Type = name
		}
	}
	for alias, target := range d.TypeMapping {
		if target == "" {
			return fmt.Errorf("type mapping %q has an empty target", alias)
		}
		if _, ok := d.TemplateTypes[target]; !ok {
			return fmt.Errorf("type mapping %q targets unknown template type %q", alias, target)
		}
	}
	return nil
}

// Canonical maps a note or index type alias to its canonical template-type
// name. Unmapped names pass through unchanged.
func (d *Document) Canonical(alias string) string {
	if d == nil {
		return alias
	}
	if canonical, ok := d.TypeMapping[alias]; ok {
		return canonical
	}
	return alias
}

// Type returns the template type registered under name.
func (d *Document) Type(name string) (*TemplateType, bool) {
	if d == nil {
		return nil, false
	}
	tt, ok := d.TemplateTypes[name]
	if !ok || tt == nil {
		return nil, false
	}
	return tt, true
}

// TypeNames returns the template-type names sorted alphabetically.
func (d *Document) TypeNames() []string {
	names := make([]string, 0, len(d.TemplateTypes))
	for name := range d.TemplateTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// universalFieldNames returns the expansion of the universal-fields pseudo
// base: the declared universal fields plus the reserved structural tags,
// deduplicated, in declaration order.
func (d *Document) universalFieldNames() []string {
	seen := make(map[string]struct{}, len(d.UniversalFields)+len(d.ReservedTags))
	var out []string
	for _, list := range [][]string{d.UniversalFields, d.ReservedTags} {
		for _, field := range list {
			if field == "" {
				continue
			}
			if _, dup := seen[field]; dup {
				continue
			}
			seen[field] = struct{}{}
			out = append(out, field)
		}
	}
	return out
}
