package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/BaSui01/vidflow/batch"
	"github.com/BaSui01/vidflow/budget"
	"github.com/BaSui01/vidflow/config"
	"github.com/BaSui01/vidflow/internal/console"
	"github.com/BaSui01/vidflow/internal/metrics"
	"github.com/BaSui01/vidflow/internal/server"
	"github.com/BaSui01/vidflow/internal/telemetry"
	"github.com/BaSui01/vidflow/storage"
	"github.com/BaSui01/vidflow/video"
)

// =============================================================================
// 🚀 run 命令
// =============================================================================

type runOptions struct {
	configPath  string
	concurrent  int
	retries     int
	output      string
	filter      string
	metricsAddr string
	jobFile     string
	set         map[string]bool
}

// parseRunArgs 解析 run 参数，允许选项与任务文件交错出现
func parseRunArgs(args []string, stderr io.Writer) (*runOptions, error) {
	opts := &runOptions{set: make(map[string]bool)}

	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printUsage(stderr) }
	fs.StringVar(&opts.configPath, "config", "", "configuration file path")
	fs.IntVar(&opts.concurrent, "concurrent", 0, "maximum concurrent generations")
	fs.IntVar(&opts.concurrent, "c", 0, "shorthand for --concurrent")
	fs.IntVar(&opts.retries, "retries", 0, "retries per job")
	fs.IntVar(&opts.retries, "r", 0, "shorthand for --retries")
	fs.StringVar(&opts.output, "output", "", "output directory")
	fs.StringVar(&opts.output, "o", "", "shorthand for --output")
	fs.StringVar(&opts.filter, "filter", "", "CEL job filter")
	fs.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on addr")

	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			break
		}
		positional = append(positional, args[0])
		args = args[1:]
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "c":
			opts.set["concurrent"] = true
		case "r":
			opts.set["retries"] = true
		case "o":
			opts.set["output"] = true
		default:
			opts.set[f.Name] = true
		}
	})

	switch len(positional) {
	case 0:
		return nil, errors.New("missing job file")
	case 1:
		opts.jobFile = positional[0]
	default:
		return nil, fmt.Errorf("expected one job file, got %d", len(positional))
	}
	return opts, nil
}

// apply 用命令行显式设置的选项覆盖配置
func (o *runOptions) apply(cfg *config.Config) {
	if o.set["concurrent"] {
		cfg.Batch.MaxConcurrent = o.concurrent
	}
	if o.set["retries"] {
		cfg.Batch.RetryCount = o.retries
	}
	if o.set["output"] {
		cfg.Batch.OutputDir = o.output
		cfg.Storage.BaseDir = o.output
	}
	if o.set["filter"] {
		cfg.Batch.Filter = o.filter
	}
	if o.set["metrics-addr"] {
		cfg.Metrics.Enabled = o.metricsAddr != ""
		cfg.Metrics.Addr = o.metricsAddr
	}
}

// run 执行一个批次。批次完成即返回 0，即使所有任务都失败；
// 只有配置或加载错误返回非零。
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	printer := console.NewPrinter(stdout)

	opts, err := parseRunArgs(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}

	loader := config.NewLoader()
	if opts.configPath != "" {
		loader = loader.WithConfigPath(opts.configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return 1
	}
	opts.apply(cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Invalid configuration: %v\n", err)
		return 1
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	tel, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("telemetry init failed, continuing without it", zap.Error(err))
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tel.Shutdown(shutdownCtx); err != nil {
				logger.Warn("telemetry shutdown failed", zap.Error(err))
			}
		}()
	}

	jobs, err := batch.LoadJobFile(opts.jobFile)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	printer.Loaded(len(jobs), opts.jobFile)

	if cfg.Batch.Filter != "" {
		selector, err := batch.NewSelector(cfg.Batch.Filter)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		total := len(jobs)
		if jobs, err = selector.Select(jobs); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		printer.Filtered(len(jobs), total, cfg.Batch.Filter)
	}

	store, err := storage.NewReportStore(cfg.Storage, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to open report store: %v\n", err)
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("close report store", zap.Error(err))
		}
	}()

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(cfg.Metrics.Namespace, registry, logger)
	if cfg.Metrics.Enabled {
		srvCfg := server.DefaultConfig()
		srvCfg.Addr = cfg.Metrics.Addr
		srv := server.NewManager(server.MetricsHandler(registry), srvCfg, logger)
		if err := srv.Start(); err != nil {
			fmt.Fprintf(stderr, "Failed to start metrics server: %v\n", err)
			return 1
		}
		defer func() { _ = srv.Shutdown(context.Background()) }()
	}

	costs := budget.NewCostTracker(cfg.Budget, logger)
	costs.OnAlert(func(alert budget.Alert) {
		logger.Warn("cost alert",
			zap.String("message", alert.Message),
			zap.Float64("threshold", alert.Threshold),
			zap.Float64("current", alert.Current))
		collector.RecordBudgetAlert()
	})

	generator := newGenerator(cfg, costs, logger)

	pipeline := batch.NewPipeline(cfg.Batch.Pipeline(), generator,
		batch.WithSink(store),
		batch.WithObserver(collector),
		batch.WithProgress(printer.Progress),
		batch.WithLogger(logger),
	)

	report, err := pipeline.Run(ctx, jobs)
	if report == nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	persisted := err == nil
	collector.RecordBatch(report, persisted)
	printer.Summary(report)
	if persisted {
		printer.Saved(report.Location)
	} else {
		logger.Error("batch report not saved", zap.Error(err))
		printer.Warn(fmt.Sprintf("report not saved: %v", err))
	}
	return 0
}

// newGenerator 注册已配置 API Key 的视频生成服务
func newGenerator(cfg *config.Config, costs video.CostRecorder, logger *zap.Logger) *video.Generator {
	p := cfg.Providers
	opts := []video.GeneratorOption{
		video.WithDownloader(video.NewDownloader(cfg.Batch.OutputDir, nil, logger)),
		video.WithCostRecorder(costs),
		video.WithGeneratorLogger(logger),
	}
	if p.Fal.APIKey != "" {
		opts = append(opts,
			video.WithProvider(video.NewFalProvider(p.Fal, logger)),
			video.WithRateLimit(video.ProviderFal, p.Fal.RateLimit, 1))
	}
	if p.Replicate.APIKey != "" {
		opts = append(opts,
			video.WithProvider(video.NewReplicateProvider(p.Replicate, logger)),
			video.WithRateLimit(video.ProviderReplicate, p.Replicate.RateLimit, 1))
	}
	if p.Runway.APIKey != "" {
		opts = append(opts,
			video.WithProvider(video.NewRunwayProvider(p.Runway, logger)),
			video.WithRateLimit(video.ProviderRunway, p.Runway.RateLimit, 1))
	}
	return video.NewGenerator(opts...)
}
