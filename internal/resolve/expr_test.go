package resolve

import (
	"testing"
	"time"

	"github.com/starford/othala/pkg/resolver"
)

func TestExprResolver(t *testing.T) {
	ctx := &resolver.Context{
		Path:         "MBA/Finance/Week1/notes.md",
		TemplateType: "module-index",
		Levels:       map[string]string{"course": "Finance", "module": "Week1"},
		Metadata:     map[string]any{"title": "Notes"},
		Now:          time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name   string
		source string
		want   any
	}{
		{"levels", `levels.course + " / " + levels.module`, "Finance / Week1"},
		{"today", `"reviewed-" + today`, "reviewed-2026-01-02"},
		{"metadata", `metadata.title`, "Notes"},
		{"template type", `templateType`, "module-index"},
		{"field name", `field`, "breadcrumb"},
		{"basename helper", `basename(path)`, "notes"},
		{"title helper", `title(path)`, "Notes"},
		{"undefined variable", `missing`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewExprResolver(tt.name, tt.source)
			if err != nil {
				t.Fatalf("NewExprResolver: %v", err)
			}
			got, err := r.Resolve("breadcrumb", ctx)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExprResolverCompileError(t *testing.T) {
	if _, err := NewExprResolver("bad", `levels. +`); err == nil {
		t.Fatal("compile accepted a malformed expression")
	}
	if _, err := NewExprResolver("blank", "   "); err == nil {
		t.Fatal("compile accepted an empty expression")
	}
}

func TestExprResolverNilContext(t *testing.T) {
	r, err := NewExprResolver("t", `templateType`)
	if err != nil {
		t.Fatalf("NewExprResolver: %v", err)
	}
	got, err := r.Resolve("f", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "" {
		t.Fatalf("got %v, want empty type for nil context", got)
	}
}
