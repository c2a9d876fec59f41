// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/starford/othala/internal/catalog"
	"github.com/starford/othala/internal/enrich"
	"github.com/starford/othala/internal/hierarchy"
	"github.com/starford/othala/internal/mcpserver"
	"github.com/starford/othala/internal/pipeline"
	"github.com/starford/othala/internal/resolve"
	"github.com/starford/othala/internal/schema"
	"github.com/starford/othala/internal/vault"
	"github.com/starford/othala/internal/watch"
)

// Run wires the engine from the given options and executes the selected
// mode.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{mode: ModeProcess}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger. MCP mode speaks the protocol on
	// stdout, so logs move to stderr there.
	logOut := os.Stdout
	if app.mode == ModeMCP {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("mode", string(app.mode)),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("catalog_path", cfg.Catalog.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return fmt.Errorf("create vault dir: %w", err)
	}

	// Initialize vault storage.
	store, err := vault.NewFS(cfg.Vault.Path, cfg.Vault.MediaExtensions)
	if err != nil {
		return fmt.Errorf("init vault: %w", err)
	}

	// Initialize SQLite catalog.
	db, err := catalog.Open(cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("init catalog: %w", err)
	}
	defer db.Close()

	// Load the template-type schema.
	doc := schema.Default()
	if cfg.Schema.Path != "" {
		doc, err = schema.Load(cfg.Schema.Path)
		if err != nil {
			return fmt.Errorf("load schema: %w", err)
		}
		logger.Info("Schema loaded",
			slog.String("path", cfg.Schema.Path),
			slog.Int("types", len(doc.TemplateTypes)))
	}

	// Build the resolver registry: builtins, configured expressions, then
	// plugins.
	registry := resolve.NewRegistry(doc, logger)
	resolve.RegisterBuiltins(registry, store)

	exprNames := make([]string, 0, len(cfg.Resolvers.Expressions))
	for name := range cfg.Resolvers.Expressions {
		exprNames = append(exprNames, name)
	}
	sort.Strings(exprNames)
	for _, name := range exprNames {
		r, exprErr := resolve.NewExprResolver(name, cfg.Resolvers.Expressions[name])
		if exprErr != nil {
			return fmt.Errorf("compile resolver %s: %w", name, exprErr)
		}
		registry.Register(name, r)
		logger.Info("Expression resolver registered", slog.String("name", name))
	}

	if cfg.Resolvers.PluginDir != "" {
		if err := registry.LoadFromDirectory(cfg.Resolvers.PluginDir); err != nil {
			return fmt.Errorf("load resolver plugins: %w", err)
		}
	}

	classifier := hierarchy.NewClassifier(store.Root())
	enricher := enrich.New(doc, registry, logger)
	svc := pipeline.New(store, db, classifier, enricher, doc, logger)
	svc.SetWorkers(cfg.App.Workers)
	svc.SetDryRun(app.dryRun)

	switch app.mode {
	case ModeProcess:
		return runProcess(ctx, svc, app, logger)
	case ModeClassify:
		return runClassify(classifier, doc, app.target)
	case ModeLint:
		return runLint(ctx, svc, app.target, logger)
	case ModeWatch:
		return runWatch(ctx, svc, store, logger)
	case ModeMCP:
		logger.Info("MCP server starting on stdio")
		srv := mcpserver.New(svc, db, classifier, enricher, doc)
		if err := srv.ServeStdio(); err != nil {
			return fmt.Errorf("mcp server: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown mode: %s", app.mode)
	}
}

func runProcess(ctx context.Context, svc *pipeline.Service, app *application, logger *slog.Logger) error {
	sum, err := svc.ProcessVault(ctx, app.target)
	if err != nil {
		return fmt.Errorf("process vault: %w", err)
	}
	logger.Info("Vault processed",
		slog.Int("processed", sum.Processed),
		slog.Int("changed", sum.Changed),
		slog.Int("skipped", sum.Skipped),
		slog.Int("failed", sum.Failed),
		slog.Int("findings", sum.Findings),
		slog.Bool("dry_run", app.dryRun))
	return nil
}

func runClassify(classifier *hierarchy.Classifier, doc *schema.Document, target string) error {
	cls, err := classifier.Classify(target)
	if err != nil {
		return fmt.Errorf("classify: %w", err)
	}
	out, err := json.MarshalIndent(struct {
		Path      string            `json:"path"`
		Depth     int               `json:"depth"`
		Level     string            `json:"level"`
		IndexType string            `json:"index_type"`
		Hierarchy map[string]string `json:"hierarchy"`
	}{target, cls.Depth, cls.Level.String(), doc.Canonical(cls.IndexType), cls.Info.Map()}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(out))
	return nil
}

func runLint(ctx context.Context, svc *pipeline.Service, target string, logger *slog.Logger) error {
	results, err := svc.Lint(ctx, target)
	if err != nil {
		return fmt.Errorf("lint: %w", err)
	}
	if len(results) == 0 {
		logger.Info("Lint clean")
		return nil
	}
	out, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(out))
	return fmt.Errorf("lint: %d notes with findings", len(results))
}

func runWatch(ctx context.Context, svc *pipeline.Service, store vault.Provider, logger *slog.Logger) error {
	// Bring the vault up to date before watching.
	if _, err := svc.ProcessVault(ctx, ""); err != nil {
		logger.Warn("initial vault pass failed", slog.String("error", err.Error()))
	}

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(watchCtx)

	// Start file watcher.
	g.Go(func() error {
		return watch.Watch(gCtx, svc, store, store.Root(), logger, nil)
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
			cancel()
		case <-gCtx.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Watch error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Watcher stopped successfully")
	return nil
}
