package schema

import "fmt"

// Default returns the built-in schema document used when no schema file is
// configured. It models a standard course vault: one index type per
// hierarchy tier, a plain note type, and reference types for PDF and video
// content, all sharing a universal field set.
func Default() *Document {
	doc := &Document{
		UniversalFields: []string{
			"title",
			"auto-generated-state",
			"date-created",
			"date-modified",
		},
		ReservedTags: []string{
			"program",
			"course",
			"class",
			"module",
			"lesson",
			"template-type",
		},
		TypeMapping: map[string]string{
			"main":    "main",
			"program": "program-index",
			"course":  "course-index",
			"class":   "class-index",
			"module":  "module-index",
			"lesson":  "lesson-index",
			"note":    "note",
			"pdf":     "pdf-reference",
			"reading": "pdf-reference",
			"video":   "video-reference",
		},
		TemplateTypes: map[string]*TemplateType{
			"base-index": {
				BaseTypes:      []string{UniversalFieldsBase},
				RequiredFields: []string{"title", "template-type"},
				Fields: map[string]*FieldSpec{
					"note-id":              {Resolver: "note-id"},
					"auto-generated-state": {Default: "writable"},
					"date-created":         {Resolver: "date-created"},
					"date-modified":        {Resolver: "date-modified"},
					"banner":               {Default: "banner.png"},
				},
			},
			"main": {
				BaseTypes:      []string{"base-index"},
				RequiredFields: []string{"title", "template-type"},
				Fields: map[string]*FieldSpec{
					"template-type": {Default: "main"},
				},
			},
			"program-index": {
				BaseTypes:      []string{"base-index"},
				RequiredFields: []string{"title", "template-type"},
				Fields: map[string]*FieldSpec{
					"template-type": {Default: "program-index"},
				},
			},
			"course-index": {
				BaseTypes:      []string{"base-index"},
				RequiredFields: []string{"title", "template-type"},
				Fields: map[string]*FieldSpec{
					"template-type": {Default: "course-index"},
				},
			},
			"class-index": {
				BaseTypes:      []string{"base-index"},
				RequiredFields: []string{"title", "template-type"},
				Fields: map[string]*FieldSpec{
					"template-type": {Default: "class-index"},
				},
			},
			"module-index": {
				BaseTypes:      []string{"base-index"},
				RequiredFields: []string{"title", "template-type"},
				Fields: map[string]*FieldSpec{
					"template-type": {Default: "module-index"},
				},
			},
			"lesson-index": {
				BaseTypes:      []string{"base-index"},
				RequiredFields: []string{"title", "template-type"},
				Fields: map[string]*FieldSpec{
					"template-type": {Default: "lesson-index"},
				},
			},
			"note": {
				BaseTypes:      []string{UniversalFieldsBase},
				RequiredFields: []string{"title"},
				Fields: map[string]*FieldSpec{
					"template-type": {Default: "note"},
					"date-modified": {Resolver: "date-modified"},
				},
			},
			"reference-base": {
				BaseTypes:      []string{UniversalFieldsBase},
				RequiredFields: []string{"title", "source-file"},
				Fields: map[string]*FieldSpec{
					"title":                {Resolver: "friendly-title"},
					"note-id":              {Resolver: "note-id"},
					"auto-generated-state": {Default: "auto"},
					"date-created":         {Resolver: "date-created"},
				},
			},
			"pdf-reference": {
				BaseTypes:      []string{"reference-base"},
				RequiredFields: []string{"title", "source-file"},
				Fields: map[string]*FieldSpec{
					"template-type": {Default: "pdf-reference"},
					"source-file":   {Resolver: "pdf"},
					"file-size":     {Resolver: "pdf"},
				},
			},
			"video-reference": {
				BaseTypes:      []string{"reference-base"},
				RequiredFields: []string{"title", "source-file"},
				Fields: map[string]*FieldSpec{
					"template-type":    {Default: "video-reference"},
					"source-file":      {Resolver: "video"},
					"file-size":        {Resolver: "video"},
					"video-duration":   {Resolver: "video"},
					"video-resolution": {Resolver: "video"},
				},
			},
		},
	}
	if err := doc.Validate(); err != nil {
		panic(fmt.Sprintf("schema: default document: %v", err))
	}
	if err := doc.ResolveAll(); err != nil {
		panic(fmt.Sprintf("schema: default document: %v", err))
	}
	return doc
}
