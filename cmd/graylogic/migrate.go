package main

import (
	"context"
	"fmt"
	"io"

	cli "github.com/urfave/cli/v3"

	"github.com/nerrad567/gray-logic-automation/internal/infrastructure/database"
)

func newMigrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply pending schema migrations",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "down", Usage: "roll back the most recent migration"},
			&cli.BoolFlag{Name: "status", Usage: "list applied and pending migrations"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd.String("config"))
			if err != nil {
				return err
			}
			db, err := database.Open(database.Config{
				Driver:      cfg.Database.Driver,
				Path:        cfg.Database.Path,
				DSN:         cfg.Database.DSN,
				WALMode:     cfg.Database.WALMode,
				BusyTimeout: cfg.Database.BusyTimeout,
			})
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()

			switch {
			case cmd.Bool("status"):
				return printMigrationStatus(ctx, db, cmd.Root().Writer)
			case cmd.Bool("down"):
				if err := db.MigrateDown(ctx); err != nil {
					return fmt.Errorf("rolling back: %w", err)
				}
				fmt.Fprintln(cmd.Root().Writer, "rolled back one migration")
				return nil
			default:
				if err := db.Migrate(ctx); err != nil {
					return fmt.Errorf("migrating: %w", err)
				}
				return printMigrationStatus(ctx, db, cmd.Root().Writer)
			}
		},
	}
}

func printMigrationStatus(ctx context.Context, db *database.DB, w io.Writer) error {
	applied, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		return fmt.Errorf("reading migration status: %w", err)
	}
	for _, m := range applied {
		fmt.Fprintf(w, "applied  %s  %s\n", m.Version, m.AppliedAt.Format("2006-01-02 15:04:05"))
	}
	for _, m := range pending {
		fmt.Fprintf(w, "pending  %s  %s\n", m.Version, m.Name)
	}
	return nil
}
