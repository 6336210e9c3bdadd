// Package redis provides the go-redis backed connection backend.
// This package wraps github.com/redis/go-redis/v9 and should be the default
// backend for production use.
package redis

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/stockpile/connection"
	"github.com/BaSui01/stockpile/internal/tlsutil"
)

// 调用级选项中被识别的键
const (
	OptionURL       = "url"
	OptionAddr      = "addr"
	OptionPassword  = "password"
	OptionDB        = "db"
	OptionNamespace = "namespace"
)

// ResqueClient 使用独立 resque 命名空间的客户端名
const ResqueClient = "resque"

// =============================================================================
// ⚙️ 配置
// =============================================================================

// Config Redis 后端配置
type Config struct {
	// Redis 地址，URL 为空时使用
	Addr string `yaml:"addr" json:"addr"`

	// redis:// 或 rediss:// URL，优先于 Addr/Password/DB
	URL string `yaml:"url" json:"url"`

	// 密码
	Password string `yaml:"password" json:"password"`

	// 数据库编号
	DB int `yaml:"db" json:"db"`

	// 键命名空间，为空时不加前缀
	Namespace string `yaml:"namespace" json:"namespace"`

	// 连接池大小
	PoolSize int `yaml:"pool_size" json:"pool_size"`

	// 最小空闲连接数
	MinIdleConns int `yaml:"min_idle_conns" json:"min_idle_conns"`

	// 最大重试次数
	MaxRetries int `yaml:"max_retries" json:"max_retries"`

	// 拨号超时
	DialTimeout time.Duration `yaml:"dial_timeout" json:"dial_timeout"`

	// 建连与重连时 Ping 的超时
	PingTimeout time.Duration `yaml:"ping_timeout" json:"ping_timeout"`

	// 是否启用 TLS
	TLS bool `yaml:"tls" json:"tls"`
}

// DefaultConfig 返回默认 Redis 配置
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		PingTimeout:  5 * time.Second,
	}
}

// ResolveNamespace 依次使用 explicit、$REDIS_NAMESPACE、$RACK_ENV 作为命名空间
func ResolveNamespace(explicit string, getenv func(string) string) string {
	if explicit != "" {
		return explicit
	}
	if getenv == nil {
		return ""
	}
	for _, key := range []string{"REDIS_NAMESPACE", "RACK_ENV"} {
		if v := getenv(key); v != "" {
			return v
		}
	}
	return ""
}

// =============================================================================
// 🔌 连接句柄
// =============================================================================

// Conn Redis 连接句柄。重连时替换底层 *redis.Client，句柄本身保持不变。
type Conn struct {
	id        string
	name      string
	namespace string
	options   *goredis.Options

	mu        sync.RWMutex
	client    *goredis.Client
	connected bool
}

var _ connection.Conn = (*Conn)(nil)

// ID 句柄标识
func (c *Conn) ID() string { return c.id }

// Name 客户端名，主连接为空
func (c *Conn) Name() string { return c.name }

// Namespace 键命名空间
func (c *Conn) Namespace() string { return c.namespace }

// Addr 连接地址
func (c *Conn) Addr() string { return c.options.Addr }

// DB 数据库编号
func (c *Conn) DB() int { return c.options.DB }

// Client 返回当前底层客户端，断开后返回 nil
func (c *Conn) Client() *goredis.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.connected {
		return nil
	}
	return c.client
}

// Connected 是否已连接
func (c *Conn) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Ping 检查 Redis 连接
func (c *Conn) Ping(ctx context.Context) error {
	client, err := c.active()
	if err != nil {
		return err
	}
	return translate(client.Ping(ctx).Err())
}

// Get 获取缓存值
func (c *Conn) Get(ctx context.Context, key string) (string, error) {
	client, err := c.active()
	if err != nil {
		return "", err
	}
	val, err := client.Get(ctx, c.key(key)).Result()
	return val, translate(err)
}

// Set 设置缓存值，不设置过期时间
func (c *Conn) Set(ctx context.Context, key, value string) error {
	client, err := c.active()
	if err != nil {
		return err
	}
	return translate(client.Set(ctx, c.key(key), value, 0).Err())
}

// HGet 获取哈希字段
func (c *Conn) HGet(ctx context.Context, key, field string) (string, error) {
	client, err := c.active()
	if err != nil {
		return "", err
	}
	val, err := client.HGet(ctx, c.key(key), field).Result()
	return val, translate(err)
}

// HSet 设置哈希字段
func (c *Conn) HSet(ctx context.Context, key, field, value string) error {
	client, err := c.active()
	if err != nil {
		return err
	}
	return translate(client.HSet(ctx, c.key(key), field, value).Err())
}

func (c *Conn) active() (*goredis.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.connected {
		return nil, connection.ErrNotConnected
	}
	return c.client, nil
}

func (c *Conn) key(k string) string {
	if c.namespace == "" {
		return k
	}
	return c.namespace + ":" + k
}

// translate 将 go-redis 错误映射为 connection 包的哨兵错误
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case err == goredis.Nil:
		return connection.ErrNil
	case strings.HasPrefix(err.Error(), "WRONGTYPE"):
		return fmt.Errorf("%w: %v", connection.ErrWrongType, err)
	default:
		return err
	}
}

// =============================================================================
// 🏭 Backend
// =============================================================================

// Backend Redis 连接后端，每个槽位一个 *redis.Client
type Backend struct {
	config Config
	logger *zap.Logger
}

var _ connection.Backend = (*Backend)(nil)

// NewBackend 创建 Redis 后端
func NewBackend(config Config, logger *zap.Logger) *Backend {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.PingTimeout <= 0 {
		config.PingTimeout = DefaultConfig().PingTimeout
	}
	return &Backend{
		config: config,
		logger: logger.With(zap.String("component", "redis_backend")),
	}
}

// CreatePrimary 创建主连接
func (b *Backend) CreatePrimary(ctx context.Context, opts connection.Options) (connection.Conn, error) {
	c, err := b.create(ctx, "", opts)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// CreateNamed 创建命名连接；名为 resque 的客户端使用 <namespace>:resque 命名空间
func (b *Backend) CreateNamed(ctx context.Context, name string, opts connection.Options) (connection.Conn, error) {
	c, err := b.create(ctx, name, opts)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Reconnect 关闭旧客户端并以相同配置重新建立连接
func (b *Backend) Reconnect(ctx context.Context, conn connection.Conn) error {
	c, err := own(conn)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil && c.connected {
		if err := c.client.Close(); err != nil {
			b.logger.Debug("closing stale redis client failed", zap.String("conn_id", c.id), zap.Error(err))
		}
	}

	options := *c.options
	c.client = goredis.NewClient(&options)
	c.connected = false

	if err := b.ping(ctx, c.client); err != nil {
		_ = c.client.Close()
		return fmt.Errorf("failed to reconnect to redis: %w", err)
	}

	c.connected = true
	b.logger.Debug("redis connection reconnected", zap.String("client", c.name), zap.String("conn_id", c.id))
	return nil
}

// Disconnect 关闭底层客户端，可重复调用
func (b *Backend) Disconnect(_ context.Context, conn connection.Conn) error {
	c, err := own(conn)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil
	}
	c.connected = false

	if err := c.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}

	b.logger.Debug("redis connection closed", zap.String("client", c.name), zap.String("conn_id", c.id))
	return nil
}

func (b *Backend) create(ctx context.Context, name string, opts connection.Options) (*Conn, error) {
	options, err := b.clientOptions(opts)
	if err != nil {
		return nil, err
	}

	namespace := b.config.Namespace
	if ns, ok := opts.String(OptionNamespace); ok {
		namespace = ns
	}
	if name == ResqueClient {
		namespace = resqueNamespace(namespace)
	}

	client := goredis.NewClient(options)
	if err := b.ping(ctx, client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	c := &Conn{
		id:        uuid.NewString(),
		name:      name,
		namespace: namespace,
		options:   options,
		client:    client,
		connected: true,
	}

	b.logger.Info("redis connection established",
		zap.String("client", name),
		zap.String("conn_id", c.id),
		zap.String("addr", options.Addr),
		zap.Int("db", options.DB),
		zap.String("namespace", namespace),
	)

	return c, nil
}

// clientOptions 以后端配置为基础，叠加调用级选项
func (b *Backend) clientOptions(opts connection.Options) (*goredis.Options, error) {
	url := b.config.URL
	if u, ok := opts.String(OptionURL); ok {
		url = u
	}

	var options *goredis.Options
	if url != "" {
		parsed, err := goredis.ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		options = parsed
		if options.TLSConfig != nil {
			options.TLSConfig = tlsutil.Harden(options.TLSConfig)
		}
	} else {
		options = &goredis.Options{
			Addr:     b.config.Addr,
			Password: b.config.Password,
			DB:       b.config.DB,
		}
	}

	if addr, ok := opts.String(OptionAddr); ok {
		options.Addr = addr
	}
	if password, ok := opts.String(OptionPassword); ok {
		options.Password = password
	}
	if db, ok := opts.Int(OptionDB); ok {
		options.DB = db
	}

	options.PoolSize = b.config.PoolSize
	options.MinIdleConns = b.config.MinIdleConns
	options.MaxRetries = b.config.MaxRetries
	if b.config.DialTimeout > 0 {
		options.DialTimeout = b.config.DialTimeout
	}
	if b.config.TLS && options.TLSConfig == nil {
		options.TLSConfig = tlsutil.ForAddr(options.Addr)
	}

	return options, nil
}

func (b *Backend) ping(ctx context.Context, client *goredis.Client) error {
	ctx, cancel := context.WithTimeout(ctx, b.config.PingTimeout)
	defer cancel()
	return client.Ping(ctx).Err()
}

func resqueNamespace(namespace string) string {
	switch {
	case namespace == "":
		return ResqueClient
	case strings.HasSuffix(namespace, ":"+ResqueClient):
		return namespace
	default:
		return namespace + ":" + ResqueClient
	}
}

func own(conn connection.Conn) (*Conn, error) {
	c, ok := conn.(*Conn)
	if !ok {
		return nil, fmt.Errorf("redis backend: foreign connection %T", conn)
	}
	return c, nil
}
