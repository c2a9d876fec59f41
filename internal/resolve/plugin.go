package resolve

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"plugin"
	"reflect"

	"github.com/starford/othala/pkg/resolver"
)

// LoadFromDirectory loads resolver plugins (shared objects built with
// -buildmode=plugin) from dir and registers every resolver they contribute
// under its fully qualified type name.
//
// Each plugin must export
//
//	NewResolvers func() []resolver.Resolver
//
// A binary that fails to open or exports the wrong symbol shape is logged
// and skipped; the scan continues. A missing directory is a no-op.
func (g *Registry) LoadFromDirectory(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			g.logger.Warn("resolve: plugin directory missing", slog.String("dir", dir))
			return nil
		}
		return fmt.Errorf("resolve: read plugin dir %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".so" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := g.loadPlugin(path); err != nil {
			g.logger.Warn("resolve: skipping plugin",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

func (g *Registry) loadPlugin(path string) error {
	p, err := plugin.Open(path)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	sym, err := p.Lookup(resolver.NewResolversSymbol)
	if err != nil {
		return fmt.Errorf("lookup %s: %w", resolver.NewResolversSymbol, err)
	}
	factory, ok := sym.(func() []resolver.Resolver)
	if !ok {
		return fmt.Errorf("symbol %s has type %T, want func() []resolver.Resolver",
			resolver.NewResolversSymbol, sym)
	}
	g.registerFactory(factory, path)
	return nil
}

// registerFactory registers every resolver a plugin factory yields, keyed
// by fully qualified type name.
func (g *Registry) registerFactory(factory func() []resolver.Resolver, source string) {
	for _, r := range factory() {
		if r == nil {
			continue
		}
		name := qualifiedName(r)
		g.Register(name, r)
		g.logger.Info("resolve: registered resolver",
			slog.String("name", name),
			slog.String("source", source))
	}
}

// qualifiedName derives the registry key for a resolver from its concrete
// type: import path, dot, type name.
func qualifiedName(r resolver.Resolver) string {
	t := reflect.TypeOf(r)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() != "" && t.Name() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}
