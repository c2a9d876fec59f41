package resolve

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/starford/othala/pkg/resolver"
)

// ExprResolver evaluates a configured expression against the enrichment
// context. Expressions let operators add computed fields without writing a
// plugin, e.g.
//
//	levels.course + " / " + levels.module
//	"reviewed-" + today
type ExprResolver struct {
	name    string
	program *vm.Program
}

// NewExprResolver compiles source into a resolver. Compilation failures are
// returned to the caller; configured expressions are trusted input, so a
// bad one should fail startup.
func NewExprResolver(name, source string) (*ExprResolver, error) {
	if strings.TrimSpace(source) == "" {
		return nil, fmt.Errorf("resolve: expression %q is empty", name)
	}
	options := []expr.Option{
		expr.Env(map[string]any{}),
		expr.AllowUndefinedVariables(),
	}
	program, err := expr.Compile(source, options...)
	if err != nil {
		return nil, fmt.Errorf("resolve: compile expression %q: %w", name, err)
	}
	return &ExprResolver{name: name, program: program}, nil
}

// Name returns the name the resolver was configured under.
func (e *ExprResolver) Name() string {
	return e.name
}

// Resolve implements resolver.Resolver.
func (e *ExprResolver) Resolve(field string, ctx *resolver.Context) (any, error) {
	out, err := expr.Run(e.program, exprEnv(field, ctx))
	if err != nil {
		return nil, fmt.Errorf("resolve: expression %q: %w", e.name, err)
	}
	return out, nil
}

// exprEnv builds the evaluation environment: the enrichment context plus a
// few convenience helpers.
func exprEnv(field string, ctx *resolver.Context) map[string]any {
	env := map[string]any{
		"field":        field,
		"path":         "",
		"templateType": "",
		"levels":       map[string]string{},
		"metadata":     map[string]any{},
		"now":          ctx.Timestamp(),
		"today":        ctx.Timestamp().Format(dateLayout),
		"basename": func(p string) string {
			base := filepath.Base(filepath.FromSlash(p))
			return strings.TrimSuffix(base, filepath.Ext(base))
		},
		"title": FriendlyTitle,
	}
	if ctx == nil {
		return env
	}
	env["path"] = ctx.Path
	env["templateType"] = ctx.TemplateType
	if ctx.Levels != nil {
		env["levels"] = ctx.Levels
	}
	if ctx.Metadata != nil {
		env["metadata"] = ctx.Metadata
	}
	return env
}
