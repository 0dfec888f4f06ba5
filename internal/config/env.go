package config

import (
	"fmt"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// Env holds the operational settings read from the environment.
type Env struct {
	LogLevel       string `env:"CLAIM_LOG_LEVEL"       envDefault:"info"`
	LogDevelopment bool   `env:"CLAIM_LOG_DEV"`
	ConfigPath     string `env:"CLAIM_CONFIG"          envDefault:"configs/territory.yaml"`
	SchemaPath     string `env:"CLAIM_SNAPSHOT_SCHEMA" envDefault:"schemas/territory.schema.json"`
	DataDir        string `env:"CLAIM_DATA_DIR"        envDefault:"data"`
	SQLitePath     string `env:"CLAIM_SQLITE_PATH"`
	RedisAddr      string `env:"CLAIM_REDIS_ADDR"`
	RedisDB        int    `env:"CLAIM_REDIS_DB"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func LoadEnv() (Env, error) {
	var e Env
	err := ParseEnv(&e)
	return e, err
}

func (e Env) JournalDir() string  { return filepath.Join(e.DataDir, "journal") }
func (e Env) SnapshotDir() string { return filepath.Join(e.DataDir, "snapshots") }
func (e Env) ArchiveDir() string  { return filepath.Join(e.DataDir, "archives") }

// IndexPath is CLAIM_SQLITE_PATH, or a file under the data directory.
func (e Env) IndexPath() string {
	if e.SQLitePath != "" {
		return e.SQLitePath
	}
	return filepath.Join(e.DataDir, "index", "territories.sqlite")
}
