package main

import (
	"fmt"

	"github.com/AaronLay10/Choreo/internal/config"
	"github.com/AaronLay10/Choreo/internal/storage"
	"github.com/AaronLay10/Choreo/internal/storage/postgres"
	"github.com/AaronLay10/Choreo/internal/storage/sqlite"
)

const defaultJournalPath = "choreo.db"

// openJournal opens the configured journal scoped to levelID. An empty
// driver or "none" returns nil, nil.
func openJournal(cfg *config.EngineConfig, env *config.Env, levelID string) (storage.Journal, error) {
	switch cfg.Journal.Driver {
	case "", "none":
		return nil, nil
	case "sqlite":
		path := cfg.Journal.Path
		if path == "" {
			path = defaultJournalPath
		}
		store, err := sqlite.Open(path, levelID)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "postgres":
		password, err := env.PGPassword()
		if err != nil {
			return nil, err
		}
		client, err := postgres.New(postgres.Config{
			Host:     env.PGHost,
			Port:     env.PGPort,
			User:     env.PGUser,
			Database: env.PGDatabase,
			Password: password,
			SSLMode:  env.PGSSLMode,
		}, levelID)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown journal driver %q (want sqlite, postgres or none)", cfg.Journal.Driver)
	}
}

// loadConfig resolves engine.yaml and the environment. The --config flag
// wins over CHOREO_CONFIG.
func loadConfig() (*config.EngineConfig, *config.Env, error) {
	env, err := config.LoadEnv()
	if err != nil {
		return nil, nil, err
	}
	path := flagConfig
	if path == "" {
		path = env.ConfigPath
	}
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	env.Apply(cfg)
	return cfg, env, nil
}
