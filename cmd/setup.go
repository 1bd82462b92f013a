package main

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file from the embedded template when missing, then initializes the
// database and runs migrations. With --reset the schema is rolled back first.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	if r.configPath != "" {
		if _, err := os.Stat(r.configPath); os.IsNotExist(err) {
			r.logger.Info("config file not found, creating from template", "path", r.configPath)
			if err := shared.CreateConfigFile(r.configPath); err != nil {
				r.logger.Warn("failed to create config file, using defaults", "error", err)
			} else {
				r.logger.Info("config file created", "path", r.configPath)
				r.writePlain("✓ Wrote %s\n", r.configPath)
			}
		}
	}

	config := r.cfg()
	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	if cmd.Bool("reset") {
		r.logger.Warn("resetting cache schema", "path", config.Database.Path)
		if err := shared.RollbackMigration(db); err != nil {
			return errors.Wrap(err, "failed to roll back schema")
		}
		if _, err := shared.RunMigrations(db); err != nil {
			return errors.Wrap(err, "failed to run migrations")
		}
	}

	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	r.writePlain("✓ Database ready: %s\n", config.Database.Path)
	return nil
}
