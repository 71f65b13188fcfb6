package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/taskvault/internal"
	pkgconfig "github.com/starford/taskvault/pkg/config"
)

var configFlag = &cli.StringFlag{
	Name:        "config",
	Aliases:     []string{"c"},
	Usage:       "Path to config file",
	DefaultText: "config/config.yaml",
	Value:       "config/config.yaml",
	Sources:     cli.EnvVars("APP_CONFIG_FILE"),
}

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func syncAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	summary, err := internal.RunSync(ctx, internal.WithConfig(cfg), internal.WithDryRun(cmd.Bool("dry-run")))
	if err != nil {
		return fmt.Errorf("sync error: %w", err)
	}
	out, _ := json.MarshalIndent(summary, "", "  ")
	fmt.Println(string(out))
	for _, id := range summary.Duplicates {
		fmt.Fprintf(os.Stderr, "warning: duplicate remote_task_id in vault: %s\n", id)
	}
	for _, c := range summary.Cycles {
		fmt.Fprintf(os.Stderr, "warning: parent-chain cycle detected: %s\n", c)
	}
	if summary.Errored > 0 {
		return fmt.Errorf("sync completed with %d error(s)", summary.Errored)
	}
	return nil
}

func mcpAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("mcp server error: %w", err)
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "taskvault",
		Usage: "Bidirectional reconciliation between Todoist and a local Markdown vault",
		Flags: []cli.Flag{configFlag},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, vault watcher, and scheduler",
				Flags:  []cli.Flag{configFlag},
				Action: serveAction,
			},
			{
				Name:  "sync",
				Usage: "Run a single reconciliation pass and print its summary",
				Flags: []cli.Flag{
					configFlag,
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Compute the run's summary without writing to the vault",
					},
				},
				Action: syncAction,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tool set over stdio",
				Flags:  []cli.Flag{configFlag},
				Action: mcpAction,
			},
		},
		Action: serveAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
