package enrich

import (
	"io"
	"log/slog"
	"testing"

	"github.com/starford/othala/internal/hierarchy"
	"github.com/starford/othala/internal/note"
	"github.com/starford/othala/internal/resolve"
	"github.com/starford/othala/internal/schema"
	"github.com/starford/othala/pkg/resolver"
)

type staticResolver struct{ value any }

func (s staticResolver) Resolve(string, *resolver.Context) (any, error) {
	return s.value, nil
}

func testEnricher(t *testing.T) *Enricher {
	t.Helper()
	doc := &schema.Document{
		TemplateTypes: map[string]*schema.TemplateType{
			"module-index": {
				Fields: map[string]*schema.FieldSpec{
					"template-type":        {Default: "module-index"},
					"auto-generated-state": {Default: "writable"},
					"stamp":                {Resolver: "stamp"},
				},
			},
			"lesson-index": {
				Fields: map[string]*schema.FieldSpec{
					"template-type": {Default: "lesson-index"},
				},
			},
			"note": {
				Fields: map[string]*schema.FieldSpec{
					"template-type": {Default: "note"},
				},
			},
		},
		TypeMapping: map[string]string{
			"module": "module-index",
			"lesson": "lesson-index",
		},
	}
	if err := doc.ResolveAll(); err != nil {
		t.Fatalf("resolve doc: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := resolve.NewRegistry(doc, logger)
	registry.Register("stamp", staticResolver{value: "stamped"})
	return New(doc, registry, logger)
}

func keysOf(m *note.Metadata) []string {
	var keys []string
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

func TestEnrichModuleIndex(t *testing.T) {
	e := testEnricher(t)
	info := hierarchy.Info{Program: "MBA", Course: "Finance", Class: "Accounting", Module: "Week1"}

	meta := e.Enrich(nil, "MBA/Finance/Accounting/Week1/index.md", "module", info)

	for key, want := range map[string]string{
		"program": "MBA",
		"course":  "Finance",
		"class":   "Accounting",
		"module":  "Week1",
	} {
		if got, _ := meta.Get(key); got != want {
			t.Errorf("%s = %v, want %v", key, got, want)
		}
	}
	if _, ok := meta.Get("lesson"); ok {
		t.Error("module-index must not receive a lesson key")
	}
	if got, _ := meta.Get("template-type"); got != "module-index" {
		t.Errorf("template-type = %v, want module-index", got)
	}
	if got, _ := meta.Get("stamp"); got != "stamped" {
		t.Errorf("stamp = %v, want resolver output", got)
	}
}

func TestEnrichNeverOverwrites(t *testing.T) {
	e := testEnricher(t)
	info := hierarchy.Info{Program: "MBA", Course: "Finance"}

	meta := note.NewMetadata()
	meta.Set("program", "Custom Program")
	meta.Set("template-type", "hand-set")

	e.Enrich(meta, "MBA/Finance/index.md", "module", info)

	if got, _ := meta.Get("program"); got != "Custom Program" {
		t.Errorf("program = %v, want the pre-existing value", got)
	}
	if got, _ := meta.Get("template-type"); got != "hand-set" {
		t.Errorf("template-type = %v, want the pre-existing value", got)
	}
	// Non-conflicting keys are still added.
	if got, _ := meta.Get("course"); got != "Finance" {
		t.Errorf("course = %v, want Finance", got)
	}
}

func TestEnrichSkipsEmptyLevels(t *testing.T) {
	e := testEnricher(t)
	info := hierarchy.Info{Program: "MBA"}

	meta := e.Enrich(nil, "MBA/index.md", "module", info)

	for _, key := range []string{"course", "class", "module"} {
		if _, ok := meta.Get(key); ok {
			t.Errorf("empty level %q was injected", key)
		}
	}
	if got, _ := meta.Get("program"); got != "MBA" {
		t.Errorf("program = %v, want MBA", got)
	}
}

func TestEnrichLessonIndexIncludesLesson(t *testing.T) {
	e := testEnricher(t)
	info := hierarchy.Info{Program: "P", Course: "C", Class: "K", Module: "M", Lesson: "L1"}

	meta := e.Enrich(nil, "P/C/K/M/L1/index.md", "lesson", info)

	if got, _ := meta.Get("lesson"); got != "L1" {
		t.Errorf("lesson = %v, want L1", got)
	}
}

func TestEnrichUnknownTypeStillInjectsHierarchy(t *testing.T) {
	e := testEnricher(t)
	info := hierarchy.Info{Program: "P", Course: "C"}

	meta := e.Enrich(nil, "P/C/x.md", "mystery-type", info)

	if got, _ := meta.Get("program"); got != "P" {
		t.Errorf("program = %v, want P", got)
	}
	if _, ok := meta.Get("template-type"); ok {
		t.Error("unknown type must not gain schema fields")
	}
}

func TestEnrichContentTypeGetsAllLevels(t *testing.T) {
	e := testEnricher(t)
	info := hierarchy.Info{Program: "P", Course: "C", Class: "K", Module: "M"}

	meta := e.Enrich(nil, "P/C/K/M/notes.md", "note", info)

	for _, key := range []string{"program", "course", "class", "module"} {
		if _, ok := meta.Get(key); !ok {
			t.Errorf("content note missing level %q", key)
		}
	}
}

func TestEnrichOrdering(t *testing.T) {
	e := testEnricher(t)
	info := hierarchy.Info{Program: "P", Course: "C", Class: "K", Module: "M"}

	meta := e.Enrich(nil, "P/C/K/M/index.md", "module", info)

	want := []string{
		// Hierarchy first, outermost level first.
		"program", "course", "class", "module",
		// Then schema fields, sorted by name.
		"auto-generated-state", "stamp", "template-type",
	}
	got := keysOf(meta)
	if len(got) != len(want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("keys = %v, want %v", got, want)
		}
	}
}

func TestEnrichDeterministic(t *testing.T) {
	e := testEnricher(t)
	info := hierarchy.Info{Program: "P", Course: "C", Class: "K", Module: "M"}

	first := keysOf(e.Enrich(nil, "p.md", "module", info))
	for i := 0; i < 5; i++ {
		again := keysOf(e.Enrich(nil, "p.md", "module", info))
		if len(again) != len(first) {
			t.Fatalf("run %d keys = %v, want %v", i, again, first)
		}
		for j := range first {
			if again[j] != first[j] {
				t.Fatalf("run %d keys = %v, want %v", i, again, first)
			}
		}
	}
}
