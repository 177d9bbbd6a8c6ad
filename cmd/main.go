package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"tracktalk/internal/repositories"
	"tracktalk/internal/services"
	"tracktalk/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	configPath := "config.toml"
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "err", err)
		}
	}

	var music services.MusicService
	if config.Credentials.Spotify.ClientID != "" && config.Credentials.Spotify.ClientSecret != "" {
		if svc, err := services.NewSpotifyService(config.Credentials.Spotify.Map()); err == nil {
			music = svc
		} else {
			logger.Warn("Spotify service unavailable", "err", err)
		}
	}

	var model services.LanguageModel
	if config.Credentials.OpenAI.APIKey != "" {
		if svc, err := services.NewOpenAIService(services.OpenAIOpts{
			APIKey:      config.Credentials.OpenAI.APIKey,
			OrgID:       config.Credentials.OpenAI.OrgID,
			Model:       config.Recommender.Model,
			MaxTokens:   config.Recommender.MaxTokens,
			Temperature: config.Recommender.Temperature,
		}); err == nil {
			model = svc
		} else {
			logger.Warn("OpenAI service unavailable", "err", err)
		}
	}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		logger.Warn("recommendation archive unavailable", "err", err)
	} else {
		shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)
		if err := repositories.InitSchema(db); err != nil {
			logger.Warn("failed to initialize archive schema", "err", err)
			db.Close()
			db = nil
		}
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Music:      music,
		Model:      model,
		DB:         db,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "tracktalk",
		Usage:    "Chat with an AI about your Spotify library and get recommendations",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
