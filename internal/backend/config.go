package backend

import (
	"fmt"

	"finwell/internal/config"
	"finwell/internal/storage"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:         backendType,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		DatabaseURL:  appConfig.DatabaseURL,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case PostgresBackend:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database URL is required for postgres backend")
		}
	}
	return nil
}

// Migration returns the dialect and DSN for schema migrations. The memory
// backend has no schema.
func (c Config) Migration() (storage.Dialect, string, error) {
	switch c.Type {
	case SQLiteBackend:
		return storage.DialectSQLite, c.SQLiteDBPath, nil
	case PostgresBackend:
		return storage.DialectPostgres, c.DatabaseURL, nil
	}
	return "", "", fmt.Errorf("backend %s has no migrations", c.Type)
}
