// Package enrich merges hierarchy labels and schema-derived field values
// into note metadata. Enrichment is strictly additive: a key already
// present in the metadata is never overwritten, whatever its value.
package enrich

import (
	"log/slog"
	"sort"
	"time"

	"github.com/starford/othala/internal/hierarchy"
	"github.com/starford/othala/internal/note"
	"github.com/starford/othala/internal/resolve"
	"github.com/starford/othala/internal/schema"
	"github.com/starford/othala/pkg/resolver"
)

// indexInclusion lists the hierarchy levels injected for each index type.
// Content types not listed here receive every populated level.
var indexInclusion = map[string][]hierarchy.Level{
	"main":          {hierarchy.LevelProgram},
	"program-index": {hierarchy.LevelProgram},
	"course-index":  {hierarchy.LevelProgram, hierarchy.LevelCourse},
	"class-index":   {hierarchy.LevelProgram, hierarchy.LevelCourse, hierarchy.LevelClass},
	"module-index":  {hierarchy.LevelProgram, hierarchy.LevelCourse, hierarchy.LevelClass, hierarchy.LevelModule},
	"lesson-index":  {hierarchy.LevelProgram, hierarchy.LevelCourse, hierarchy.LevelClass, hierarchy.LevelModule, hierarchy.LevelLesson},
}

var allLevels = []hierarchy.Level{
	hierarchy.LevelProgram,
	hierarchy.LevelCourse,
	hierarchy.LevelClass,
	hierarchy.LevelModule,
	hierarchy.LevelLesson,
}

// Enricher injects hierarchy labels and schema field values into metadata.
type Enricher struct {
	doc      *schema.Document
	registry *resolve.Registry
	logger   *slog.Logger
}

// New returns an Enricher over the given schema document and resolver
// registry.
func New(doc *schema.Document, registry *resolve.Registry, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{doc: doc, registry: registry, logger: logger}
}

// Enrich adds hierarchy labels and schema-derived field values to meta for
// the note at path. noteType may be an alias; it is canonicalised through
// the schema's type mapping. The caller's map is mutated in place and
// returned; a nil meta allocates a fresh one.
//
// Hierarchy labels are injected first, in program→lesson order, skipping
// levels with empty values. Schema fields follow in sorted name order. An
// unknown template type still receives hierarchy labels.
func (e *Enricher) Enrich(meta *note.Metadata, path, noteType string, info hierarchy.Info) *note.Metadata {
	if meta == nil {
		meta = note.NewMetadata()
	}
	canonical := e.doc.Canonical(noteType)

	for _, level := range levelsFor(canonical) {
		value := info.Get(level)
		if value == "" {
			continue
		}
		key := level.String()
		if _, exists := meta.Get(key); exists {
			continue
		}
		meta.Set(key, value)
	}

	tt, ok := e.doc.Type(canonical)
	if !ok {
		e.logger.Debug("enrich: unknown template type",
			slog.String("type", canonical),
			slog.String("path", path))
		return meta
	}

	ctx := &resolver.Context{
		Path:         path,
		TemplateType: canonical,
		Levels:       info.Map(),
		Metadata:     note.Snapshot(meta),
		Now:          time.Now(),
	}
	fields := make([]string, 0, len(tt.Fields))
	for name := range tt.Fields {
		fields = append(fields, name)
	}
	sort.Strings(fields)

	for _, field := range fields {
		if _, exists := meta.Get(field); exists {
			continue
		}
		value, ok := e.registry.ResolveFieldValue(canonical, field, ctx)
		if !ok {
			continue
		}
		meta.Set(field, value)
	}
	return meta
}

// levelsFor returns the hierarchy levels injected for a canonical type.
func levelsFor(canonical string) []hierarchy.Level {
	if levels, ok := indexInclusion[canonical]; ok {
		return levels
	}
	return allLevels
}
