package schema

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeSchema(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "metadata.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write schema: %v", err)
	}
	return path
}

func TestResolveMultiBaseInheritance(t *testing.T) {
	doc := &Document{
		UniversalFields: []string{"title", "date-created"},
		ReservedTags:    []string{"program", "template-type"},
		TemplateTypes: map[string]*TemplateType{
			"base-a": {
				Fields: map[string]*FieldSpec{
					"alpha":  {Default: "from-a"},
					"shared": {Default: "a-wins"},
				},
			},
			"base-b": {
				Fields: map[string]*FieldSpec{
					"beta":   {Default: "from-b"},
					"shared": {Default: "b-loses"},
				},
			},
			"child": {
				BaseTypes: []string{UniversalFieldsBase, "base-a", "base-b"},
				Fields: map[string]*FieldSpec{
					"own":   {Default: "mine"},
					"alpha": {Default: "overridden"},
				},
			},
		},
	}
	if err := doc.ResolveAll(); err != nil {
		t.Fatalf("ResolveAll: %v", err)
	}

	child := doc.TemplateTypes["child"]

	// Universal fields expand to UniversalFields plus ReservedTags.
	for _, field := range []string{"title", "date-created", "program", "template-type"} {
		if _, ok := child.Fields[field]; !ok {
			t.Errorf("universal field %q missing", field)
		}
	}

	// The subtype's own declarations always win.
	if got := child.Fields["alpha"].Default; got != "overridden" {
		t.Errorf("alpha default = %v, want overridden", got)
	}
	if got := child.Fields["own"].Default; got != "mine" {
		t.Errorf("own default = %v, want mine", got)
	}

	// Earlier bases win ties between bases.
	if got := child.Fields["shared"].Default; got != "a-wins" {
		t.Errorf("shared default = %v, want a-wins", got)
	}
	if got := child.Fields["beta"].Default; got != "from-b" {
		t.Errorf("beta default = %v, want from-b", got)
	}
}

func TestResolveUnknownBaseSkipped(t *testing.T) {
	doc := &Document{
		TemplateTypes: map[string]*TemplateType{
			"child": {
				BaseTypes: []string{"no-such-base"},
				Fields:    map[string]*FieldSpec{"own": {Default: 1}},
			},
		},
	}
	if err := doc.ResolveAll(); err != nil {
		t.Fatalf("ResolveAll: %v", err)
	}
	if len(doc.TemplateTypes["child"].Fields) != 1 {
		t.Fatalf("fields = %v, want only own", doc.TemplateTypes["child"].Fields)
	}
}

func TestResolveDiamond(t *testing.T) {
	doc := &Document{
		TemplateTypes: map[string]*TemplateType{
			"top": {
				Fields: map[string]*FieldSpec{"root-field": {Default: "top"}},
			},
			"left": {
				BaseTypes: []string{"top"},
				Fields:    map[string]*FieldSpec{"root-field": {Default: "left"}},
			},
			"right": {
				BaseTypes: []string{"top"},
			},
			"bottom": {
				BaseTypes: []string{"left", "right"},
			},
		},
	}
	if err := doc.ResolveAll(); err != nil {
		t.Fatalf("ResolveAll: %v", err)
	}

	bottom := doc.TemplateTypes["bottom"]
	if len(bottom.Fields) != 1 {
		t.Fatalf("bottom fields = %v, want exactly root-field", bottom.Fields)
	}
	// left is listed first, so its copy of root-field wins.
	if got := bottom.Fields["root-field"].Default; got != "left" {
		t.Errorf("root-field default = %v, want left", got)
	}
}

func TestResolveCycle(t *testing.T) {
	doc := &Document{
		TemplateTypes: map[string]*TemplateType{
			"a": {BaseTypes: []string{"b"}},
			"b": {BaseTypes: []string{"a"}},
		},
	}
	err := doc.ResolveAll()
	if !errors.Is(err, ErrInheritanceCycle) {
		t.Fatalf("err = %v, want ErrInheritanceCycle", err)
	}
}

func TestResolveIdempotent(t *testing.T) {
	doc := &Document{
		TemplateTypes: map[string]*TemplateType{
			"base":  {Fields: map[string]*FieldSpec{"f": {Default: 1}}},
			"child": {BaseTypes: []string{"base"}},
		},
	}
	if err := doc.ResolveAll(); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	before := len(doc.TemplateTypes["child"].Fields)

	if err := doc.ResolveType("child"); err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if after := len(doc.TemplateTypes["child"].Fields); after != before {
		t.Fatalf("field count changed on re-resolve: %d -> %d", before, after)
	}
}

func TestLoad(t *testing.T) {
	path := writeSchema(t, `
TemplateTypes:
  base-note:
    RequiredFields:
      - title
    Fields:
      title: {}
      status:
        Default: draft
  reading:
    Type: reading
    BaseTypes:
      - base-note
    Fields:
      source-file:
        Resolver: pdf
UniversalFields:
  - title
TypeMapping:
  pdf: reading
ReservedTags:
  - template-type
`)
	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	reading, ok := doc.Type("reading")
	if !ok {
		t.Fatal("reading type missing")
	}
	if _, ok := reading.Fields["status"]; !ok {
		t.Fatal("inherited status field missing; Load must resolve inheritance")
	}
	if got := reading.Fields["source-file"].Resolver; got != "pdf" {
		t.Fatalf("source-file resolver = %q, want pdf", got)
	}
	if got := doc.Canonical("pdf"); got != "reading" {
		t.Fatalf("Canonical(pdf) = %q, want reading", got)
	}
	// Unmapped aliases pass through unchanged.
	if got := doc.Canonical("lecture"); got != "lecture" {
		t.Fatalf("Canonical(lecture) = %q, want lecture", got)
	}
}

func TestLoadMalformed(t *testing.T) {
	path := writeSchema(t, "TemplateTypes: [not: a: mapping")
	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted malformed YAML")
	}
}

func TestLoadRejectsCycle(t *testing.T) {
	path := writeSchema(t, `
TemplateTypes:
  a:
    BaseTypes: [b]
  b:
    BaseTypes: [a]
`)
	_, err := Load(path)
	if !errors.Is(err, ErrInheritanceCycle) {
		t.Fatalf("err = %v, want ErrInheritanceCycle", err)
	}
}

func TestLoadRejectsDanglingMapping(t *testing.T) {
	path := writeSchema(t, `
TemplateTypes:
  note: {}
TypeMapping:
  pdf: no-such-type
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted a mapping to an unknown template type")
	}
}

func TestDefaultDocument(t *testing.T) {
	doc := Default()

	pdf, ok := doc.Type("pdf-reference")
	if !ok {
		t.Fatal("pdf-reference missing from default document")
	}
	// Inherited through reference-base and universal-fields.
	for _, field := range []string{"title", "date-created", "note-id", "source-file", "template-type"} {
		if _, ok := pdf.Fields[field]; !ok {
			t.Errorf("pdf-reference missing field %q", field)
		}
	}
	if got := pdf.Fields["template-type"].Default; got != "pdf-reference" {
		t.Errorf("template-type default = %v, want pdf-reference", got)
	}
	if got := doc.Canonical("reading"); got != "pdf-reference" {
		t.Errorf("Canonical(reading) = %q, want pdf-reference", got)
	}

	for _, alias := range []string{"main", "program", "course", "class", "module", "lesson"} {
		canonical := doc.Canonical(alias)
		if _, ok := doc.Type(canonical); !ok {
			t.Errorf("alias %q maps to unknown type %q", alias, canonical)
		}
	}
}
