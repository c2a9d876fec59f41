package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/othala/internal"
	pkgconfig "github.com/starford/othala/pkg/config"
)

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}
}

// loadConfig builds the effective configuration. A config file named
// explicitly must exist; the default location is optional and falls back
// to built-in defaults.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	path := cmd.String("config")
	cfg := internal.NewDefaultConfig()

	var err error
	if cmd.IsSet("config") {
		err = pkgconfig.Load(path, cfg)
	} else {
		err = pkgconfig.LoadIfExists(path, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func runMode(ctx context.Context, cmd *cli.Command, mode internal.Mode, extra ...internal.Option) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts := append([]internal.Option{
		internal.WithConfig(cfg),
		internal.WithMode(mode),
	}, extra...)
	return internal.Run(ctx, opts...)
}

func main() {
	cmd := &cli.Command{
		Name:  "othala",
		Usage: "Course vault engine: classifies notes by hierarchy, enriches frontmatter from template-type schemas, and generates reference notes for media",
		Commands: []*cli.Command{
			{
				Name:      "process",
				Usage:     "Process the vault (or a subdirectory): classify, enrich, and catalog every note",
				ArgsUsage: "[DIR]",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Report changes without writing them",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runMode(ctx, cmd, internal.ModeProcess,
						internal.WithTarget(cmd.Args().First()),
						internal.WithDryRun(cmd.Bool("dry-run")))
				},
			},
			{
				Name:  "watch",
				Usage: "Process the vault, then keep it up to date by watching for file changes",
				Flags: []cli.Flag{configFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runMode(ctx, cmd, internal.ModeWatch)
				},
			},
			{
				Name:      "classify",
				Usage:     "Classify a vault path and print its hierarchy tier as JSON",
				ArgsUsage: "PATH",
				Flags:     []cli.Flag{configFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() != 1 {
						return fmt.Errorf("classify requires exactly one PATH argument")
					}
					return runMode(ctx, cmd, internal.ModeClassify,
						internal.WithTarget(cmd.Args().First()))
				},
			},
			{
				Name:      "lint",
				Usage:     "Audit notes without writing: report missing required fields and misused reserved tags",
				ArgsUsage: "[DIR]",
				Flags:     []cli.Flag{configFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runMode(ctx, cmd, internal.ModeLint,
						internal.WithTarget(cmd.Args().First()))
				},
			},
			{
				Name:  "mcp",
				Usage: "Serve the engine over the Model Context Protocol on stdio",
				Flags: []cli.Flag{configFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runMode(ctx, cmd, internal.ModeMCP)
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
