// =============================================================================
// stockpile 命令行入口
// =============================================================================
//
// 使用方法:
//
//	stockpile check -config stockpile.yaml        # 检查所有连接
//	stockpile get rollout feature:x               # 读取命名客户端的键
//	stockpile set - answer 42                     # 通过主连接写入
//	stockpile watch -config stockpile.yaml        # 健康监控与指标端点
//	stockpile version                             # 显示版本信息
// =============================================================================
package main

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/stockpile/config"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// PrimaryArg 命令行中表示主连接的客户端参数
const PrimaryArg = "-"

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}

	var err error
	switch args[0] {
	case "check":
		err = runCheck(args[1:], stdout)
	case "get":
		err = runGet(args[1:], stdout)
	case "set":
		err = runSet(args[1:], stdout)
	case "watch":
		err = runWatch(args[1:])
	case "version":
		printVersion(stdout)
	case "help", "-h", "--help":
		printUsage(stdout)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		printUsage(stderr)
		return 1
	}

	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "stockpile %s\n", Version)
	fmt.Fprintf(w, "  Build Time: %s\n", BuildTime)
	fmt.Fprintf(w, "  Git Commit: %s\n", GitCommit)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `stockpile - named Redis connection manager

Usage:
  stockpile <command> [options]

Commands:
  check     Connect every configured client and ping it
  get       Read a key:   get [-config f] <client|-> <key>
  set       Write a key:  set [-config f] <client|-> <key> <value>
  watch     Run health checks and serve /metrics and /healthz
  version   Show version information
  help      Show this help message

The client "-" is the primary connection.

Options:
  -config <path>   Path to configuration file (YAML)

Environment:
  STOCKPILE_CONNECTION_WIDTH=narrow   share one connection between all clients
  STOCKPILE_<SECTION>_<KEY>           override any configuration key`)
}

// =============================================================================
// 🔧 配置与日志
// =============================================================================

func newLoader() *config.Loader {
	return config.NewLoader().WithValidator(func(c *config.Config) error { return c.Validate() })
}

func loadConfig(path string) (*config.Config, error) {
	loader := newLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
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
		Development:       encoding == "console",
		Encoding:          encoding,
		EncoderConfig:     encoderConfig,
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     !cfg.EnableCaller,
		DisableStacktrace: !cfg.EnableStacktrace,
	}

	logger, err := zapConfig.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
