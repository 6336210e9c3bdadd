package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/stockpile"
	"github.com/BaSui01/stockpile/config"
	"github.com/BaSui01/stockpile/connection"
	"github.com/BaSui01/stockpile/internal/health"
	"github.com/BaSui01/stockpile/internal/metrics"
	"github.com/BaSui01/stockpile/internal/server"
	"github.com/BaSui01/stockpile/internal/telemetry"
)

// oneShot 单次命令的公共准备：解析 -config、加载配置、创建日志与 Stockpile
type oneShot struct {
	cfg    *config.Config
	logger *zap.Logger
	sp     *stockpile.Stockpile
	args   []string
}

func prepare(ctx context.Context, name string, args []string) (*oneShot, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.String("config", "", "Path to config file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return nil, err
	}

	// 标准输出留给命令结果
	logCfg := cfg.Log
	logCfg.OutputPaths = append([]string(nil), cfg.Log.OutputPaths...)
	for i, p := range logCfg.OutputPaths {
		if p == "stdout" {
			logCfg.OutputPaths[i] = "stderr"
		}
	}
	logger := initLogger(logCfg)

	sp, err := stockpile.FromConfig(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	return &oneShot{cfg: cfg, logger: logger, sp: sp, args: fs.Args()}, nil
}

func (o *oneShot) close(ctx context.Context) {
	if err := o.sp.Disconnect(ctx, connection.Name(connection.All)); err != nil {
		o.logger.Warn("disconnect failed", zap.Error(err))
	}
	_ = o.logger.Sync()
}

func (o *oneShot) conn(ctx context.Context, client string) (connection.Conn, error) {
	if client == PrimaryArg {
		return o.sp.Connection(), nil
	}
	conn, err := o.sp.ConnectionFor(ctx, client, nil)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, fmt.Errorf("%w: %q does not name a single client", connection.ErrConfiguration, client)
	}
	return conn, nil
}

// =============================================================================
// 🏥 check 命令
// =============================================================================

func runCheck(args []string, stdout io.Writer) error {
	ctx := context.Background()
	o, err := prepare(ctx, "check", args)
	if err != nil {
		return err
	}
	defer o.close(ctx)

	watcher := health.NewWatcher(o.sp, health.Config{Timeout: o.cfg.Health.Timeout}, nil, o.logger)
	report := watcher.Check(ctx)

	fmt.Fprintf(stdout, "width: %s\n", o.sp.Width())
	for _, st := range report.Statuses {
		name := st.Client
		if name == health.PrimarySlot {
			name = "(primary)"
		}
		state := "OK"
		if !st.Healthy {
			state = "FAIL " + st.Error
		}
		fmt.Fprintf(stdout, "%-20s %-36s %s\n", name, st.ConnID, state)
	}

	if !report.Healthy() {
		return fmt.Errorf("unhealthy clients: %v", report.Failed())
	}
	return nil
}

// =============================================================================
// 🔑 get / set 命令
// =============================================================================

func runGet(args []string, stdout io.Writer) error {
	ctx := context.Background()
	o, err := prepare(ctx, "get", args)
	if err != nil {
		return err
	}
	defer o.close(ctx)

	if len(o.args) != 2 {
		return errors.New("usage: stockpile get [-config f] <client|-> <key>")
	}

	conn, err := o.conn(ctx, o.args[0])
	if err != nil {
		return err
	}
	value, err := conn.Get(ctx, o.args[1])
	if connection.IsNil(err) {
		return fmt.Errorf("key %q not found", o.args[1])
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, value)
	return nil
}

func runSet(args []string, stdout io.Writer) error {
	ctx := context.Background()
	o, err := prepare(ctx, "set", args)
	if err != nil {
		return err
	}
	defer o.close(ctx)

	if len(o.args) != 3 {
		return errors.New("usage: stockpile set [-config f] <client|-> <key> <value>")
	}

	conn, err := o.conn(ctx, o.args[0])
	if err != nil {
		return err
	}
	if err := conn.Set(ctx, o.args[1], o.args[2]); err != nil {
		return err
	}

	fmt.Fprintln(stdout, "OK")
	return nil
}

// =============================================================================
// 👀 watch 命令
// =============================================================================

func runWatch(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	logger.Info("starting stockpile watch",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return watch(ctx, cfg, *configPath, logger)
}

// watch 运行直到 ctx 取消
func watch(ctx context.Context, cfg *config.Config, configPath string, logger *zap.Logger) error {
	providers, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	var collector *metrics.Collector
	wrappers := []stockpile.BackendWrapper{
		func(b connection.Backend) connection.Backend { return telemetry.TraceBackend(b, providers.Tracer()) },
	}
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Metrics.Namespace, logger)
		wrappers = append(wrappers, func(b connection.Backend) connection.Backend {
			return metrics.InstrumentBackend(b, collector)
		})
	}

	sp, err := stockpile.FromConfig(ctx, cfg, logger, wrappers...)
	if err != nil {
		return err
	}
	defer func() {
		if err := sp.Disconnect(context.Background(), connection.Name(connection.All)); err != nil {
			logger.Warn("disconnect failed", zap.Error(err))
		}
	}()

	watcher := health.NewWatcher(sp, health.Config{
		Interval:    cfg.Health.Interval,
		Timeout:     cfg.Health.Timeout,
		Reconnect:   true,
		HealBackoff: cfg.Health.HealBackoff,
		Concurrency: cfg.Health.Concurrency,
	}, collector, logger)
	watcher.Check(ctx)

	if cfg.Metrics.Enabled {
		srvCfg := server.DefaultConfig()
		srvCfg.Addr = cfg.Metrics.Addr
		srv := server.NewManager(server.NewHandler(watcher, nil), srvCfg, logger)
		if err := srv.Start(); err != nil {
			return err
		}
		defer func() { _ = srv.Shutdown(context.Background()) }()

		go func() {
			select {
			case err := <-srv.Errors():
				logger.Error("metrics server exited", zap.Error(err))
			case <-ctx.Done():
			}
		}()
	}

	if configPath != "" {
		fw, err := config.NewFileWatcher(configPath, newLoader(), config.WithWatcherLogger(logger))
		if err != nil {
			return err
		}
		fw.OnReload(func(next *config.Config) {
			if _, err := sp.Connect(ctx, next.Clients...); err != nil {
				logger.Warn("failed to connect reloaded clients", zap.Error(err))
				return
			}
			logger.Info("clients updated from config", zap.Strings("clients", sp.Clients()))
		})
		if err := fw.Start(ctx); err != nil {
			return err
		}
		defer fw.Stop()
	}

	err = watcher.Run(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info("stockpile watch stopped")
		return nil
	}
	return err
}
