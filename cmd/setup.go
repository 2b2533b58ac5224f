package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/splitx/internal/shared"
)

// SetupConfig writes the configuration template to the config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	if _, err := os.Stat(r.configPath); err == nil {
		r.logger.Info("config file already exists", "path", r.configPath)
		return r.writePlain("Config file already exists at %s\n", r.configPath)
	}

	if err := shared.CreateConfigFile(r.configPath); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", r.configPath)

	r.writePlain("✓ Created %s\n", r.configPath)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set credentials.spotify.client_id and client_secret (or SPOTIFY_CLIENT_ID / SPOTIFY_CLIENT_SECRET)\n")
	r.writePlain("2. Optionally set credentials.gemini.api_key to enable genre inference and cover images\n")
	r.writePlain("3. Run 'splitx auth' to authorize the CLI\n")
	return nil
}

// SetupDatabase initializes the session database and runs migrations. With --reset every applied migration is
// rolled back first, which drops stored sessions.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	dbConfig := r.config.Database
	if shared.IsMemoryDSN(dbConfig.Path) {
		r.logger.Warn("database path is in-memory, migrations will not persist", "path", dbConfig.Path)
	}

	r.logger.Info("initializing database", "path", dbConfig.Path)
	db, err := shared.NewDatabase(dbConfig.Path)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}
	defer db.Close()

	if cmd.Bool("reset") {
		reverted, err := shared.ResetMigrations(db)
		if err != nil {
			return fmt.Errorf("failed to reset database: %w", err)
		}
		r.logger.Warn("database reset", "path", dbConfig.Path, "reverted", reverted)
	}

	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	version, err := shared.CurrentVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", dbConfig.Path)
	return r.writePlain("✓ Database ready at %s (schema version %d)\n", dbConfig.Path, version)
}
