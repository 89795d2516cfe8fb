// =============================================================================
// VidFlow 主入口
// =============================================================================
// 批量视频生成命令行，读取任务文件、并发调用生成服务并输出批次报告
//
// 使用方法:
//
//	vidflow run jobs.json                      # 使用默认配置运行
//	vidflow run --config vidflow.yaml jobs.json
//	vidflow run -c 3 -r 1 -o ./out jobs.yaml   # 覆盖并发数、重试次数与输出目录
//	vidflow run --filter 'model == "wan"' jobs.json
//	vidflow migrate up --config vidflow.yaml   # 为 SQL 报告存储建表
//	vidflow reports list --limit 10            # 列出已保存的批次报告
//	vidflow reports show <id> --json           # 查看单个批次报告
//	vidflow version                            # 显示版本信息
// =============================================================================
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/vidflow/config"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		code := run(ctx, os.Args[2:], os.Stdout, os.Stderr)
		stop()
		os.Exit(code)
	case "migrate":
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		code := runMigrate(ctx, os.Args[2:], os.Stdout, os.Stderr)
		stop()
		os.Exit(code)
	case "reports":
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		code := runReports(ctx, os.Args[2:], os.Stdout, os.Stderr)
		stop()
		os.Exit(code)
	case "version":
		printVersion(os.Stdout)
	case "help", "-h", "--help":
		printUsage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage(os.Stderr)
		os.Exit(1)
	}
}

// =============================================================================
// 📋 版本 & 帮助
// =============================================================================

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "VidFlow %s\n", Version)
	fmt.Fprintf(w, "  Build Time: %s\n", BuildTime)
	fmt.Fprintf(w, "  Git Commit: %s\n", GitCommit)
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `VidFlow - batch video generation

Usage:
  vidflow run [options] <jobs.json|jobs.yaml>
  vidflow migrate <up|down|steps|status|version|force|reset> [options]
  vidflow reports <list|show <id>> [options]
  vidflow version
  vidflow help

Run options:
  --config <path>        Configuration file (YAML)
  -c, --concurrent <n>   Maximum concurrent generations
  -r, --retries <n>      Retries per job after the first failure
  -o, --output <dir>     Output directory for videos and reports
  --filter <expr>        CEL expression selecting jobs
  --metrics-addr <addr>  Serve Prometheus metrics on addr

Environment:
  VIDFLOW_* variables override the configuration file,
  e.g. VIDFLOW_BATCH_MAX_CONCURRENT=3, VIDFLOW_PROVIDERS_FAL_API_KEY=...
`)
}

// =============================================================================
// 📝 日志初始化
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}

	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       cfg.Format == "console",
		Encoding:          "json",
		EncoderConfig:     encoderConfig,
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     !cfg.EnableCaller,
		DisableStacktrace: !cfg.EnableStacktrace,
	}
	if cfg.Format == "console" {
		zapConfig.Encoding = "console"
	}

	logger, err := zapConfig.Build()
	if err != nil {
		// 回退到基本 logger
		logger, _ = zap.NewProduction()
	}
	return logger
}
