package migration

import (
	"fmt"

	"github.com/BaSui01/vidflow/storage"
)

// NewMigratorFromStoreConfig creates a migrator for the SQL report store's
// database, reusing its driver name and DSN.
func NewMigratorFromStoreConfig(cfg storage.SQLStoreConfig) (*DefaultMigrator, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("storage.sql.dsn is required")
	}
	return NewMigratorFromURL(cfg.Driver, cfg.DSN)
}

// NewMigratorFromURL creates a migrator from a driver name and DSN.
func NewMigratorFromURL(dbType, dbURL string) (*DefaultMigrator, error) {
	dt, err := ParseDatabaseType(dbType)
	if err != nil {
		return nil, err
	}
	return NewMigrator(&Config{
		DatabaseType: dt,
		DatabaseURL:  dbURL,
		TableName:    DefaultTableName,
	})
}
