package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"

	"github.com/BaSui01/vidflow/config"
	"github.com/BaSui01/vidflow/internal/migration"
)

// =============================================================================
// 🗄️ migrate 命令
// =============================================================================

func printMigrateUsage(w io.Writer) {
	fmt.Fprint(w, `SQL report store migrations

Usage:
  vidflow migrate <subcommand> [options]

Subcommands:
  up             Apply all pending migrations
  down           Roll back the last migration
  steps <n>      Apply (n > 0) or roll back (n < 0) n migrations
  status         Show migration status
  version        Show current migration version
  force <v>      Force set migration version (use with caution)
  reset          Roll back all migrations

Options:
  --config <path>   Configuration file (storage.sql.driver / storage.sql.dsn)
  --db-type <type>  postgres, mysql or sqlite (overrides config)
  --db-url <dsn>    Database DSN (overrides config)
`)
}

// runMigrate 执行迁移子命令，返回进程退出码
func runMigrate(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printMigrateUsage(stderr)
		return 1
	}
	sub, rest := args[0], args[1:]
	if sub == "help" || sub == "-h" || sub == "--help" {
		printMigrateUsage(stdout)
		return 0
	}

	fs := flag.NewFlagSet("migrate "+sub, flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "configuration file path")
	dbType := fs.String("db-type", "", "database type")
	dbURL := fs.String("db-url", "", "database DSN")
	if err := fs.Parse(rest); err != nil {
		return 1
	}

	var arg int
	switch sub {
	case "up", "down", "status", "version", "reset":
	case "steps", "force":
		n, err := strconv.Atoi(fs.Arg(0))
		if err != nil {
			fmt.Fprintf(stderr, "Error: %s requires an integer argument\n", sub)
			return 1
		}
		arg = n
	default:
		fmt.Fprintf(stderr, "Unknown migrate subcommand: %s\n", sub)
		printMigrateUsage(stderr)
		return 1
	}

	migrator, err := createMigrator(*configPath, *dbType, *dbURL)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to create migrator: %v\n", err)
		return 1
	}
	defer migrator.Close()

	cli := migration.NewCLI(migrator)
	cli.SetOutput(stdout)

	switch sub {
	case "up":
		err = cli.RunUp(ctx)
	case "down":
		err = cli.RunDown(ctx)
	case "steps":
		err = cli.RunSteps(ctx, arg)
	case "status":
		err = cli.RunStatus(ctx)
	case "version":
		err = cli.RunVersion(ctx)
	case "force":
		err = cli.RunForce(ctx, arg)
	case "reset":
		err = cli.RunReset(ctx)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// createMigrator 优先使用命令行给出的 driver/dsn，否则读取 storage.sql 配置
func createMigrator(configPath, dbType, dbURL string) (*migration.DefaultMigrator, error) {
	if dbType != "" && dbURL != "" {
		return migration.NewMigratorFromURL(dbType, dbURL)
	}

	loader := config.NewLoader()
	if configPath != "" {
		loader = loader.WithConfigPath(configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	sqlCfg := cfg.Storage.SQL
	if dbType != "" {
		sqlCfg.Driver = dbType
	}
	if dbURL != "" {
		sqlCfg.DSN = dbURL
	}
	if sqlCfg.Driver == "" {
		return nil, errors.New("storage.sql.driver is required")
	}
	return migration.NewMigratorFromStoreConfig(sqlCfg)
}
