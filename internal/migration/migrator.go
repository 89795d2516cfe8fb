package migration

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// =============================================================================
// Embedded Migration Files
// =============================================================================

//go:embed migrations/postgres/*.sql migrations/mysql/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// DefaultTableName is the version table used when Config leaves it empty.
const DefaultTableName = "vidflow_schema_migrations"

// =============================================================================
// Types and Interfaces
// =============================================================================

// DatabaseType is the SQL dialect the report table lives in.
type DatabaseType string

const (
	DatabaseTypePostgres DatabaseType = "postgres"
	DatabaseTypeMySQL    DatabaseType = "mysql"
	DatabaseTypeSQLite   DatabaseType = "sqlite"
)

// MigrationStatus represents the status of one migration file.
type MigrationStatus struct {
	Version uint
	Name    string
	Applied bool
	Dirty   bool
}

// MigrationInfo summarizes the migration state of a database.
type MigrationInfo struct {
	CurrentVersion    uint
	Dirty             bool
	TotalMigrations   int
	AppliedMigrations int
	PendingMigrations int
}

// Config holds the configuration for the migrator.
type Config struct {
	DatabaseType DatabaseType

	// DatabaseURL is the same DSN the SQL report store uses.
	DatabaseURL string

	// TableName defaults to DefaultTableName.
	TableName string

	// LockTimeout bounds how long Up/Down wait for the migration lock.
	LockTimeout time.Duration
}

// Migrator manages the versioned schema of the batch report table.
type Migrator interface {
	// Up applies all pending migrations
	Up(ctx context.Context) error

	// Down rolls back the last migration
	Down(ctx context.Context) error

	// DownAll rolls back all migrations
	DownAll(ctx context.Context) error

	// Steps applies (n > 0) or rolls back (n < 0) n migrations
	Steps(ctx context.Context, n int) error

	// Force sets the version without running migrations
	Force(ctx context.Context, version int) error

	// Version returns the current version; 0 when nothing is applied
	Version(ctx context.Context) (uint, bool, error)

	Status(ctx context.Context) ([]MigrationStatus, error)
	Info(ctx context.Context) (*MigrationInfo, error)
	Close() error
}

// =============================================================================
// Default Migrator Implementation
// =============================================================================

// DefaultMigrator implements Migrator with golang-migrate.
type DefaultMigrator struct {
	config  *Config
	migrate *migrate.Migrate
	db      *sql.DB
}

var _ Migrator = (*DefaultMigrator)(nil)

// NewMigrator opens the database and prepares the embedded migrations for
// its dialect.
func NewMigrator(cfg *Config) (*DefaultMigrator, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required")
	}
	if _, _, err := migrationsDir(cfg.DatabaseType); err != nil {
		return nil, err
	}
	if cfg.TableName == "" {
		cfg.TableName = DefaultTableName
	}
	if cfg.LockTimeout == 0 {
		cfg.LockTimeout = 15 * time.Second
	}

	m := &DefaultMigrator{config: cfg}
	if err := m.init(); err != nil {
		return nil, fmt.Errorf("failed to initialize migrator: %w", err)
	}
	return m, nil
}

func (m *DefaultMigrator) init() error {
	db, err := m.openDatabase()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	m.db = db

	dbDriver, err := m.databaseDriver()
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	fsys, dir, _ := migrationsDir(m.config.DatabaseType)
	sourceDriver, err := iofs.New(fsys, dir)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to create source driver: %w", err)
	}

	m.migrate, err = migrate.NewWithInstance("iofs", sourceDriver, string(m.config.DatabaseType), dbDriver)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.migrate.LockTimeout = m.config.LockTimeout
	return nil
}

func (m *DefaultMigrator) openDatabase() (*sql.DB, error) {
	var driverName string
	switch m.config.DatabaseType {
	case DatabaseTypePostgres:
		driverName = "postgres"
	case DatabaseTypeMySQL:
		driverName = "mysql"
	case DatabaseTypeSQLite:
		driverName = "sqlite3"
	}

	db, err := sql.Open(driverName, m.config.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func (m *DefaultMigrator) databaseDriver() (database.Driver, error) {
	switch m.config.DatabaseType {
	case DatabaseTypePostgres:
		return postgres.WithInstance(m.db, &postgres.Config{MigrationsTable: m.config.TableName})
	case DatabaseTypeMySQL:
		return mysql.WithInstance(m.db, &mysql.Config{MigrationsTable: m.config.TableName})
	default:
		return sqlite3.WithInstance(m.db, &sqlite3.Config{MigrationsTable: m.config.TableName})
	}
}

// ignoreNoChange treats "already at the requested version" as success.
func ignoreNoChange(op string, err error) error {
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration %s failed: %w", op, err)
	}
	return nil
}

// Up applies all pending migrations.
func (m *DefaultMigrator) Up(ctx context.Context) error {
	return ignoreNoChange("up", m.migrate.Up())
}

// Down rolls back the last migration.
func (m *DefaultMigrator) Down(ctx context.Context) error {
	return ignoreNoChange("down", m.migrate.Steps(-1))
}

// DownAll rolls back all migrations.
func (m *DefaultMigrator) DownAll(ctx context.Context) error {
	return ignoreNoChange("down all", m.migrate.Down())
}

// Steps applies or rolls back n migrations.
func (m *DefaultMigrator) Steps(ctx context.Context, n int) error {
	return ignoreNoChange("steps", m.migrate.Steps(n))
}

// Force sets the migration version without running migrations.
func (m *DefaultMigrator) Force(ctx context.Context, version int) error {
	if err := m.migrate.Force(version); err != nil {
		return fmt.Errorf("migration force failed: %w", err)
	}
	return nil
}

// Version returns the current migration version.
func (m *DefaultMigrator) Version(ctx context.Context) (uint, bool, error) {
	version, dirty, err := m.migrate.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get version: %w", err)
	}
	return version, dirty, nil
}

// Status lists every embedded migration and whether it is applied.
func (m *DefaultMigrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	current, dirty, err := m.Version(ctx)
	if err != nil {
		return nil, err
	}
	files, err := AvailableMigrations(m.config.DatabaseType)
	if err != nil {
		return nil, err
	}
	return statusOf(files, current, dirty), nil
}

// Info summarizes the migration state.
func (m *DefaultMigrator) Info(ctx context.Context) (*MigrationInfo, error) {
	current, dirty, err := m.Version(ctx)
	if err != nil {
		return nil, err
	}
	files, err := AvailableMigrations(m.config.DatabaseType)
	if err != nil {
		return nil, err
	}
	return infoOf(statusOf(files, current, dirty), current, dirty), nil
}

// Close releases the source, the database driver and the connection.
func (m *DefaultMigrator) Close() error {
	var errs []error
	if m.migrate != nil {
		sourceErr, dbErr := m.migrate.Close()
		errs = append(errs, sourceErr, dbErr)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to close migrator: %w", err)
	}
	return nil
}

// =============================================================================
// Embedded file helpers
// =============================================================================

// MigrationFile is one versioned migration shipped with the binary.
type MigrationFile struct {
	Version uint
	Name    string
}

func migrationsDir(dbType DatabaseType) (fs.FS, string, error) {
	switch dbType {
	case DatabaseTypePostgres, DatabaseTypeMySQL, DatabaseTypeSQLite:
		return migrationsFS, "migrations/" + string(dbType), nil
	default:
		return nil, "", fmt.Errorf("unsupported database type: %s", dbType)
	}
}

// AvailableMigrations lists the embedded migrations for dbType by version.
func AvailableMigrations(dbType DatabaseType) ([]MigrationFile, error) {
	fsys, dir, err := migrationsDir(dbType)
	if err != nil {
		return nil, err
	}
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var files []MigrationFile
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		// 000001_create_batch_reports.up.sql
		version, rest, ok := strings.Cut(name, "_")
		if !ok {
			continue
		}
		v, err := strconv.ParseUint(version, 10, 32)
		if err != nil {
			continue
		}
		files = append(files, MigrationFile{
			Version: uint(v),
			Name:    strings.TrimSuffix(rest, ".up.sql"),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Version < files[j].Version })
	return files, nil
}

func statusOf(files []MigrationFile, current uint, dirty bool) []MigrationStatus {
	statuses := make([]MigrationStatus, 0, len(files))
	for _, f := range files {
		statuses = append(statuses, MigrationStatus{
			Version: f.Version,
			Name:    f.Name,
			Applied: f.Version <= current,
			Dirty:   dirty && f.Version == current,
		})
	}
	return statuses
}

func infoOf(statuses []MigrationStatus, current uint, dirty bool) *MigrationInfo {
	applied := 0
	for _, s := range statuses {
		if s.Applied {
			applied++
		}
	}
	return &MigrationInfo{
		CurrentVersion:    current,
		Dirty:             dirty,
		TotalMigrations:   len(statuses),
		AppliedMigrations: applied,
		PendingMigrations: len(statuses) - applied,
	}
}

// ParseDatabaseType parses a driver name as used in the SQL store config.
func ParseDatabaseType(s string) (DatabaseType, error) {
	switch strings.ToLower(s) {
	case "postgres", "postgresql", "pg":
		return DatabaseTypePostgres, nil
	case "mysql", "mariadb":
		return DatabaseTypeMySQL, nil
	case "sqlite", "sqlite3":
		return DatabaseTypeSQLite, nil
	default:
		return "", fmt.Errorf("unsupported database type: %s", s)
	}
}
