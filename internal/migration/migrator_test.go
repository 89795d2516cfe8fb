package migration

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/vidflow/storage"
)

func TestParseDatabaseType(t *testing.T) {
	tests := []struct {
		input    string
		expected DatabaseType
		wantErr  bool
	}{
		{"postgres", DatabaseTypePostgres, false},
		{"PostgreSQL", DatabaseTypePostgres, false},
		{"pg", DatabaseTypePostgres, false},
		{"mysql", DatabaseTypeMySQL, false},
		{"mariadb", DatabaseTypeMySQL, false},
		{"sqlite", DatabaseTypeSQLite, false},
		{"sqlite3", DatabaseTypeSQLite, false},
		{"oracle", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDatabaseType(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestAvailableMigrations(t *testing.T) {
	for _, dt := range []DatabaseType{DatabaseTypePostgres, DatabaseTypeMySQL, DatabaseTypeSQLite} {
		t.Run(string(dt), func(t *testing.T) {
			files, err := AvailableMigrations(dt)
			require.NoError(t, err)
			require.Len(t, files, 2)
			assert.Equal(t, MigrationFile{Version: 1, Name: "create_batch_reports"}, files[0])
			assert.Equal(t, MigrationFile{Version: 2, Name: "add_batch_reports_cost_index"}, files[1])
		})
	}

	_, err := AvailableMigrations("oracle")
	assert.ErrorContains(t, err, "unsupported database type")
}

func TestEmbeddedMigrationsHaveDownFiles(t *testing.T) {
	for _, dt := range []DatabaseType{DatabaseTypePostgres, DatabaseTypeMySQL, DatabaseTypeSQLite} {
		files, err := AvailableMigrations(dt)
		require.NoError(t, err)
		for _, f := range files {
			name := fmt.Sprintf("migrations/%s/%06d_%s.down.sql", dt, f.Version, f.Name)
			data, err := migrationsFS.ReadFile(name)
			require.NoError(t, err, name)
			assert.Contains(t, string(data), "DROP")
		}
	}
}

func TestNewMigrator_InvalidConfig(t *testing.T) {
	_, err := NewMigrator(nil)
	assert.ErrorContains(t, err, "config is required")

	_, err = NewMigrator(&Config{DatabaseType: DatabaseTypeSQLite})
	assert.ErrorContains(t, err, "database URL is required")

	_, err = NewMigrator(&Config{DatabaseType: "oracle", DatabaseURL: "x"})
	assert.ErrorContains(t, err, "unsupported database type")
}

func TestNewMigratorFromStoreConfig_RequiresDSN(t *testing.T) {
	_, err := NewMigratorFromStoreConfig(storage.SQLStoreConfig{Driver: "sqlite"})
	assert.ErrorContains(t, err, "storage.sql.dsn is required")

	_, err = NewMigratorFromURL("oracle", "x")
	assert.Error(t, err)
}

func TestStatusAndInfo(t *testing.T) {
	files := []MigrationFile{{1, "a"}, {2, "b"}, {3, "c"}}

	statuses := statusOf(files, 2, true)
	require.Len(t, statuses, 3)
	assert.True(t, statuses[0].Applied)
	assert.True(t, statuses[1].Applied)
	assert.True(t, statuses[1].Dirty)
	assert.False(t, statuses[2].Applied)

	info := infoOf(statuses, 2, true)
	assert.Equal(t, &MigrationInfo{
		CurrentVersion:    2,
		Dirty:             true,
		TotalMigrations:   3,
		AppliedMigrations: 2,
		PendingMigrations: 1,
	}, info)
}

func TestMigrator_SQLite_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	dbPath := filepath.Join(t.TempDir(), "reports.db")
	migrator, err := NewMigratorFromStoreConfig(storage.SQLStoreConfig{Driver: "sqlite", DSN: "file:" + dbPath})
	if err != nil && strings.Contains(err.Error(), "CGO_ENABLED") {
		t.Skip("sqlite3 migrations need cgo")
	}
	require.NoError(t, err)
	defer migrator.Close()

	ctx := context.Background()

	version, dirty, err := migrator.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
	assert.False(t, dirty)

	require.NoError(t, migrator.Up(ctx))
	require.NoError(t, migrator.Up(ctx), "second up is a no-op")

	info, err := migrator.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(2), info.CurrentVersion)
	assert.Equal(t, 0, info.PendingMigrations)

	require.NoError(t, migrator.Down(ctx))
	version, _, err = migrator.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
}

// fakeMigrator records calls for CLI tests.
type fakeMigrator struct {
	version uint
	dirty   bool
	files   []MigrationFile
	err     error
	calls   []string
}

func (f *fakeMigrator) record(name string) error {
	f.calls = append(f.calls, name)
	return f.err
}

func (f *fakeMigrator) Up(context.Context) error {
	if err := f.record("up"); err != nil {
		return err
	}
	f.version = uint(len(f.files))
	return nil
}

func (f *fakeMigrator) Down(context.Context) error {
	if err := f.record("down"); err != nil {
		return err
	}
	if f.version > 0 {
		f.version--
	}
	return nil
}

func (f *fakeMigrator) DownAll(context.Context) error {
	f.version = 0
	return f.record("down_all")
}

func (f *fakeMigrator) Steps(_ context.Context, n int) error {
	f.version = uint(int(f.version) + n)
	return f.record("steps")
}

func (f *fakeMigrator) Force(_ context.Context, v int) error {
	f.version = uint(v)
	return f.record("force")
}

func (f *fakeMigrator) Version(context.Context) (uint, bool, error) {
	return f.version, f.dirty, nil
}

func (f *fakeMigrator) Status(context.Context) ([]MigrationStatus, error) {
	return statusOf(f.files, f.version, f.dirty), nil
}

func (f *fakeMigrator) Info(context.Context) (*MigrationInfo, error) {
	return infoOf(statusOf(f.files, f.version, f.dirty), f.version, f.dirty), nil
}

func (f *fakeMigrator) Close() error { return nil }

func newFakeCLI() (*CLI, *fakeMigrator, *bytes.Buffer) {
	fake := &fakeMigrator{files: []MigrationFile{{1, "create_batch_reports"}, {2, "add_batch_reports_cost_index"}}}
	var out bytes.Buffer
	cli := NewCLI(fake)
	cli.SetOutput(&out)
	return cli, fake, &out
}

func TestCLI_UpDownStatus(t *testing.T) {
	cli, fake, out := newFakeCLI()
	ctx := context.Background()

	require.NoError(t, cli.RunVersion(ctx))
	assert.Contains(t, out.String(), "No migrations applied yet")

	require.NoError(t, cli.RunUp(ctx))
	assert.Contains(t, out.String(), "Migrations complete. Current version: 2")

	out.Reset()
	require.NoError(t, cli.RunDown(ctx))
	assert.Contains(t, out.String(), "Rollback complete. Current version: 1")

	out.Reset()
	require.NoError(t, cli.RunStatus(ctx))
	assert.Contains(t, out.String(), "000001")
	assert.Contains(t, out.String(), "create_batch_reports")
	assert.Contains(t, out.String(), "Applied")
	assert.Contains(t, out.String(), "Pending")
	assert.Contains(t, out.String(), "Total: 2, Applied: 1, Pending: 1")

	assert.Equal(t, []string{"up", "down"}, fake.calls)
}

func TestCLI_VersionDirty(t *testing.T) {
	cli, fake, out := newFakeCLI()
	fake.version, fake.dirty = 2, true

	require.NoError(t, cli.RunVersion(context.Background()))
	assert.Equal(t, "Current version: 2 (dirty)\n", out.String())
}

func TestCLI_Errors(t *testing.T) {
	cli, fake, _ := newFakeCLI()
	fake.err = errors.New("locked")
	ctx := context.Background()

	assert.ErrorContains(t, cli.RunUp(ctx), "migration failed: locked")
	assert.ErrorContains(t, cli.RunDown(ctx), "rollback failed: locked")
	assert.ErrorContains(t, cli.RunReset(ctx), "rollback failed: locked")
	assert.ErrorContains(t, cli.RunForce(ctx, 1), "force failed: locked")
	assert.ErrorContains(t, cli.RunSteps(ctx, 0), "must not be zero")
}
