// Package resolve implements the field-value resolver registry and the
// built-in resolver set.
//
// A registry is constructed next to the schema document and injected into
// every consumer; there is no package-level instance. Named resolvers are
// looked up by schema field specifications, file-type resolvers by the
// reference-note generator.
package resolve

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/starford/othala/internal/schema"
	"github.com/starford/othala/pkg/resolver"
)

// Registry is the catalog of field-value resolvers. Registration and lookup
// may race with each other (plugins load while enrichment runs), so access
// is mutex-guarded.
type Registry struct {
	mu         sync.RWMutex
	doc        *schema.Document
	logger     *slog.Logger
	byName     map[string]resolver.Resolver
	byFileType map[string]resolver.Resolver
}

// NewRegistry returns an empty registry bound to the given schema document.
func NewRegistry(doc *schema.Document, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		doc:        doc,
		logger:     logger,
		byName:     make(map[string]resolver.Resolver),
		byFileType: make(map[string]resolver.Resolver),
	}
}

// Register stores r under name. When r also implements resolver.FileTyped
// it is additionally indexed under its file type. Empty names and nil
// resolvers are ignored.
func (g *Registry) Register(name string, r resolver.Resolver) {
	if name == "" || r == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.byName[name] = r
	if ft, ok := r.(resolver.FileTyped); ok {
		if t := normalizeFileType(ft.FileType()); t != "" {
			g.byFileType[t] = r
		}
	}
}

// RegisterFileTypeResolver indexes r under fileType in both tables, using
// the file type as the registry name.
func (g *Registry) RegisterFileTypeResolver(fileType string, r resolver.Resolver) {
	t := normalizeFileType(fileType)
	if t == "" || r == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.byName[t] = r
	g.byFileType[t] = r
}

// Get returns the resolver registered under name, tolerating qualified and
// short-name aliases.
func (g *Registry) Get(name string) (resolver.Resolver, bool) {
	return g.lookup(name)
}

// GetFileTypeResolver returns the resolver indexed under fileType.
func (g *Registry) GetFileTypeResolver(fileType string) (resolver.Resolver, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.byFileType[normalizeFileType(fileType)]
	return r, ok
}

// GetAllFileTypeResolvers returns a copy of the file-type table.
func (g *Registry) GetAllFileTypeResolvers() map[string]resolver.Resolver {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[string]resolver.Resolver, len(g.byFileType))
	for t, r := range g.byFileType {
		out[t] = r
	}
	return out
}

// Names returns the registered resolver names sorted alphabetically.
func (g *Registry) Names() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	names := make([]string, 0, len(g.byName))
	for name := range g.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveFieldValue produces the value for one field of a template type:
// the named resolver's output when one is registered and succeeds,
// otherwise the field's static default. The boolean is false when the type
// or field is unknown or no value could be produced; the method itself
// never fails.
func (g *Registry) ResolveFieldValue(templateType, field string, ctx *resolver.Context) (any, bool) {
	if g.doc == nil {
		return nil, false
	}
	tt, ok := g.doc.Type(templateType)
	if !ok {
		return nil, false
	}
	spec, ok := tt.Fields[field]
	if !ok || spec == nil {
		return nil, false
	}

	if spec.Resolver != "" {
		if r, found := g.lookup(spec.Resolver); found {
			value, err := r.Resolve(field, ctx)
			if err != nil {
				g.logger.Warn("resolve: resolver failed, falling back to default",
					slog.String("resolver", spec.Resolver),
					slog.String("field", field),
					slog.String("error", err.Error()))
			} else if value != nil {
				return value, true
			}
		}
	}
	if spec.Default != nil {
		return spec.Default, true
	}
	return nil, false
}

// lookup finds a resolver by exact name, then by dot-suffix alias: a schema
// may reference a plugin resolver by its short type name, and a short-named
// builtin may be referenced through a qualified alias.
func (g *Registry) lookup(name string) (resolver.Resolver, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if r, ok := g.byName[name]; ok {
		return r, true
	}
	short := shortName(name)
	if r, ok := g.byName[short]; ok {
		return r, true
	}
	// Scan qualified keys in sorted order so alias hits are deterministic.
	keys := make([]string, 0, len(g.byName))
	for k := range g.byName {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if k != short && shortName(k) == short {
			return g.byName[k], true
		}
	}
	return nil, false
}

func shortName(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}

func normalizeFileType(t string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(t), "."))
}
