package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/giuthas/patkit/internal"
	"github.com/giuthas/patkit/internal/dataimport"
	"github.com/giuthas/patkit/internal/saveload"
	"github.com/giuthas/patkit/internal/storage"
)

func run(ctx context.Context, cmd *cli.Command) error {
	dataDir := cmd.Args().First()
	if dataDir == "" {
		dataDir = "."
	}

	globalPath := cmd.String("config")
	if globalPath == "" && !cmd.Bool("no-global-config") {
		resolved, err := internal.GlobalConfigPath()
		if err == nil {
			globalPath = resolved
		}
	}

	cfg, err := internal.ResolveConfig(globalPath, dataDir)
	if err != nil {
		return fmt.Errorf("failed to resolve config: %w", err)
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithDataDir(dataDir),
		internal.WithMCPMode(cmd.Bool("mcp")),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

// runImport reads an AAA export in place and writes the metadata
// files that make it loadable as a recording session.
func runImport(ctx context.Context, cmd *cli.Command) error {
	dataDir := cmd.Args().First()
	if dataDir == "" {
		dataDir = "."
	}

	cfg, err := internal.ResolveConfig("", dataDir)
	if err != nil {
		return fmt.Errorf("failed to resolve config: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.General.LogLevel,
	}))

	store, err := storage.NewFS(dataDir)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	session, err := dataimport.NewImporter(store, logger).ImportSession("")
	if err != nil {
		return err
	}
	if err := saveload.NewSaver(store, logger).SaveSession(session); err != nil {
		return err
	}
	logger.Info("session imported",
		slog.String("session", session.Meta.Name),
		slog.Int("recordings", len(session.Recordings)))
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:      "patkit",
		Usage:     "Phonetics data management: modular persistence, indexing, and browsing for articulatory recordings",
		Action:    run,
		ArgsUsage: "[data-directory]",
		Commands: []*cli.Command{
			{
				Name:      "import",
				Usage:     "Import an AAA export directory as a recording session",
				Action:    runImport,
				ArgsUsage: "[data-directory]",
			},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the global config file (overrides the user config dir lookup)",
				Sources: cli.EnvVars("PATKIT_CONFIG_FILE"),
			},
			&cli.BoolFlag{
				Name:  "no-global-config",
				Usage: "Skip the user-level config file entirely",
			},
			&cli.BoolFlag{
				Name:  "mcp",
				Usage: "Run as an MCP stdio server instead of the HTTP server",
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
