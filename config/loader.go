// =============================================================================
// 📦 stockpile 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("stockpile.yaml").
//	    WithEnvPrefix("STOCKPILE").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BaSui01/stockpile/backend/redis"
	"github.com/BaSui01/stockpile/connection"
)

// 支持的后端类型
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 stockpile 的完整配置结构
type Config struct {
	// 连接宽度: narrow, wide；为空时由 STOCKPILE_CONNECTION_WIDTH 决定
	ConnectionWidth string `yaml:"connection_width" env:"CONNECTION_WIDTH"`

	// 后端类型: redis, memory
	Backend string `yaml:"backend" env:"BACKEND"`

	// 键命名空间，优先于 redis.namespace
	Namespace string `yaml:"namespace" env:"NAMESPACE"`

	// 构造时连接的命名客户端
	Clients ClientList `yaml:"clients" env:"CLIENTS"`

	// Redis 配置
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Metrics 指标配置
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`

	// Health 健康检查配置
	Health HealthConfig `yaml:"health" env:"HEALTH"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 地址
	Addr string `yaml:"addr" env:"ADDR"`
	// redis:// 或 rediss:// URL
	URL string `yaml:"url" env:"URL"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库编号
	DB int `yaml:"db" env:"DB"`
	// 键命名空间
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
	// 连接池大小
	PoolSize int `yaml:"pool_size" env:"POOL_SIZE"`
	// 最小空闲连接
	MinIdleConns int `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
	// 最大重试次数
	MaxRetries int `yaml:"max_retries" env:"MAX_RETRIES"`
	// 拨号超时
	DialTimeout time.Duration `yaml:"dial_timeout" env:"DIAL_TIMEOUT"`
	// 是否启用 TLS
	TLS bool `yaml:"tls" env:"TLS"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// MetricsConfig Prometheus 指标配置
type MetricsConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 指标命名空间
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
	// watch 命令暴露 /metrics 的监听地址
	Addr string `yaml:"addr" env:"ADDR"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// HealthConfig 健康检查配置
type HealthConfig struct {
	// 检查间隔
	Interval time.Duration `yaml:"interval" env:"INTERVAL"`
	// 单次 Ping 超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 两次自动重连的最小间隔
	HealBackoff time.Duration `yaml:"heal_backoff" env:"HEAL_BACKOFF"`
	// 并发 Ping 上限
	Concurrency int `yaml:"concurrency" env:"CONCURRENCY"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	lookupEnv  func(string) (string, bool)
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "STOCKPILE",
		lookupEnv:  os.LookupEnv,
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithLookupEnv 替换环境变量查找函数
func (l *Loader) WithLookupEnv(lookup func(string) (string, bool)) *Loader {
	if lookup != nil {
		l.lookupEnv = lookup
	}
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置，文件不存在时保留默认值
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// envDecoder 自定义环境变量解析
type envDecoder interface {
	DecodeEnv(value string) error
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue, ok := l.lookupEnv(envKey)
		if !ok || envValue == "" {
			continue
		}

		if d, ok := field.Addr().Interface().(envDecoder); ok {
			if err := d.DecodeEnv(envValue); err != nil {
				return fmt.Errorf("failed to set %s: %w", envKey, err)
			}
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			field.Set(reflect.ValueOf(splitList(value)))
		}
	}

	return nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	switch c.Backend {
	case BackendRedis, BackendMemory:
	default:
		errs = append(errs, fmt.Sprintf("unknown backend %q", c.Backend))
	}

	for _, spec := range c.Clients {
		for name := range spec {
			switch name {
			case "":
				errs = append(errs, "client name must not be empty")
			case connection.All:
				errs = append(errs, fmt.Sprintf("client name %q is reserved", connection.All))
			}
		}
	}

	if c.Redis.DB < 0 {
		errs = append(errs, "redis db must not be negative")
	}
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		errs = append(errs, "metrics namespace is required when metrics are enabled")
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, "telemetry sample_rate must be between 0 and 1")
	}
	if c.Health.Interval <= 0 {
		errs = append(errs, "health interval must be positive")
	}
	if c.Health.HealBackoff < 0 {
		errs = append(errs, "health heal_backoff must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Width 返回配置的连接宽度，未配置时返回 connection.WidthDefault
func (c *Config) Width() connection.Width {
	if c.ConnectionWidth == "" {
		return connection.WidthDefault
	}
	return connection.ParseWidth(c.ConnectionWidth)
}

// ResolvedNamespace 依次使用 namespace、redis.namespace、$REDIS_NAMESPACE、$RACK_ENV
func (c *Config) ResolvedNamespace(getenv func(string) string) string {
	explicit := c.Namespace
	if explicit == "" {
		explicit = c.Redis.Namespace
	}
	return redis.ResolveNamespace(explicit, getenv)
}

// RedisBackend 将 Redis 配置转换为 redis 后端配置
func (c *Config) RedisBackend(getenv func(string) string) redis.Config {
	rc := redis.DefaultConfig()
	rc.Addr = c.Redis.Addr
	rc.URL = c.Redis.URL
	rc.Password = c.Redis.Password
	rc.DB = c.Redis.DB
	rc.Namespace = c.ResolvedNamespace(getenv)
	rc.PoolSize = c.Redis.PoolSize
	rc.MinIdleConns = c.Redis.MinIdleConns
	rc.MaxRetries = c.Redis.MaxRetries
	if c.Redis.DialTimeout > 0 {
		rc.DialTimeout = c.Redis.DialTimeout
	}
	rc.TLS = c.Redis.TLS
	return rc
}
