// Command graylogic runs the home automation hub: the action registry,
// the trigger scheduler, the MQTT module bus and the HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"github.com/nerrad567/gray-logic-automation/internal/infrastructure/config"
	_ "github.com/nerrad567/gray-logic-automation/migrations"
)

// Set at build time:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "graylogic",
		Usage:   "Gray Logic home automation hub",
		Version: fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the YAML configuration file",
				Value:   defaultConfigPath,
				Sources: cli.EnvVars("GRAYLOGIC_CONFIG"),
			},
		},
		Commands: []*cli.Command{
			newServeCommand(),
			newMigrateCommand(),
			newValidateCommand(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd.String("config"))
			if err != nil {
				return err
			}
			return serve(ctx, cfg)
		},
	}
}

// loadConfig reads the configuration file. A missing file at the default
// path falls back to built-in defaults; any other path must exist.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if path == defaultConfigPath && errors.Is(err, os.ErrNotExist) {
		cfg = config.Default()
		if verr := cfg.Validate(); verr != nil {
			return nil, fmt.Errorf("validating default config: %w", verr)
		}
		return cfg, nil
	}
	return nil, fmt.Errorf("loading config: %w", err)
}
