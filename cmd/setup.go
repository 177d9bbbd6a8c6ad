package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"tracktalk/internal/repositories"
	"tracktalk/internal/shared"
)

// Setup writes a starter config file and initializes the archive database.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	force := cmd.Bool("force")

	if _, err := os.Stat(configPath); err == nil && !force {
		r.writePlain("Config already exists at %s (use --force to overwrite)\n", configPath)
	} else {
		if force {
			if err := os.Remove(configPath); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to remove existing config: %w", err)
			}
		}
		if err := shared.CreateConfigFile(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		r.writePlain("✓ Created %s\n", configPath)
		r.writePlain("  Fill in your Spotify and OpenAI credentials, then run: tracktalk auth login\n")
	}

	if r.db == nil {
		db, err := shared.NewDatabase(r.config.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		r.db = db
	}

	if err := repositories.InitSchema(r.db); err != nil {
		return err
	}

	r.writePlain("✓ Archive database ready at %s\n", r.config.Database.Path)
	return nil
}
