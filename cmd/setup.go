package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/urfave/cli/v3"
)

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize configuration and database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

func migrateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Run pending database migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
			},
			&cli.BoolFlag{
				Name:  "rollback",
				Usage: "Roll back the most recent migration",
			},
		},
		Action: r.Migrate,
	}
}

// Setup scaffolds a config file when one is missing, then initializes the
// database and runs migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); err == nil {
		r.logger.Info("config file exists", "path", configPath)
		r.reloadConfig(configPath)
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		} else {
			r.logger.Info("config file created", "path", configPath)
			r.reloadConfig(configPath)
		}
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return r.writePlain("%s setup complete for database: %s\n", r.palette.OK("✓"), r.config.Database.Path)
}

// Migrate applies pending migrations, or rolls back the most recent one.
func (r *Runner) Migrate(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if cmd.Bool("rollback") {
		if err := shared.RollbackMigration(db); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		return r.writePlain("%s rolled back most recent migration\n", r.palette.OK("✓"))
	}

	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	return r.writePlain("%s migrations up to date\n", r.palette.OK("✓"))
}
