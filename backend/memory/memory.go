// Package memory provides an in-process connection backend. It is a complete
// example of a stockpile backend and the default double in tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/stockpile/connection"
)

// =============================================================================
// 🗃️ 共享存储
// =============================================================================

// Store 进程内键值存储，由同一个 Backend 创建的所有连接共享
type Store struct {
	mu     sync.RWMutex
	values map[string]string
	hashes map[string]map[string]string
}

// NewStore 创建空存储
func NewStore() *Store {
	return &Store{
		values: make(map[string]string),
		hashes: make(map[string]map[string]string),
	}
}

// Reset 清空存储
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]string)
	s.hashes = make(map[string]map[string]string)
}

// Len 键数量
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values) + len(s.hashes)
}

// =============================================================================
// 🔌 连接句柄
// =============================================================================

// Conn 内存连接句柄
type Conn struct {
	id        string
	name      string
	options   connection.Options
	store     *Store
	connected atomic.Bool
}

// ID 句柄标识
func (c *Conn) ID() string { return c.id }

// Name 客户端名，主连接为空
func (c *Conn) Name() string { return c.name }

// Options 创建连接时收到的选项
func (c *Conn) Options() connection.Options { return c.options }

// Connected 是否已连接
func (c *Conn) Connected() bool { return c.connected.Load() }

// Ping 探测连接
func (c *Conn) Ping(context.Context) error {
	return c.checkConnected()
}

// Get 读取字符串值
func (c *Conn) Get(_ context.Context, key string) (string, error) {
	if err := c.checkConnected(); err != nil {
		return "", err
	}

	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	if _, isHash := c.store.hashes[key]; isHash {
		return "", connection.ErrWrongType
	}
	v, ok := c.store.values[key]
	if !ok {
		return "", connection.ErrNil
	}
	return v, nil
}

// Set 写入字符串值，覆盖同名哈希
func (c *Conn) Set(_ context.Context, key, value string) error {
	if err := c.checkConnected(); err != nil {
		return err
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	delete(c.store.hashes, key)
	c.store.values[key] = value
	return nil
}

// HGet 读取哈希字段
func (c *Conn) HGet(_ context.Context, key, field string) (string, error) {
	if err := c.checkConnected(); err != nil {
		return "", err
	}

	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	if _, isString := c.store.values[key]; isString {
		return "", connection.ErrWrongType
	}
	v, ok := c.store.hashes[key][field]
	if !ok {
		return "", connection.ErrNil
	}
	return v, nil
}

// HSet 写入哈希字段
func (c *Conn) HSet(_ context.Context, key, field, value string) error {
	if err := c.checkConnected(); err != nil {
		return err
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	if _, isString := c.store.values[key]; isString {
		return connection.ErrWrongType
	}
	h, ok := c.store.hashes[key]
	if !ok {
		h = make(map[string]string)
		c.store.hashes[key] = h
	}
	h[field] = value
	return nil
}

func (c *Conn) checkConnected() error {
	if !c.connected.Load() {
		return connection.ErrNotConnected
	}
	return nil
}

// =============================================================================
// 🏭 Backend
// =============================================================================

// Backend 内存连接后端
type Backend struct {
	store  *Store
	logger *zap.Logger
}

var _ connection.Backend = (*Backend)(nil)

// NewBackend 创建内存后端，store 为 nil 时新建一个
func NewBackend(store *Store, logger *zap.Logger) *Backend {
	if store == nil {
		store = NewStore()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backend{
		store:  store,
		logger: logger.With(zap.String("component", "memory_backend")),
	}
}

// Store 返回共享存储
func (b *Backend) Store() *Store {
	return b.store
}

// CreatePrimary 创建主连接
func (b *Backend) CreatePrimary(_ context.Context, opts connection.Options) (connection.Conn, error) {
	return b.newConn("", opts), nil
}

// CreateNamed 创建命名连接
func (b *Backend) CreateNamed(_ context.Context, name string, opts connection.Options) (connection.Conn, error) {
	return b.newConn(name, opts), nil
}

// Reconnect 将句柄恢复为已连接
func (b *Backend) Reconnect(_ context.Context, conn connection.Conn) error {
	c, err := b.own(conn)
	if err != nil {
		return err
	}
	c.connected.Store(true)
	return nil
}

// Disconnect 将句柄置为断开
func (b *Backend) Disconnect(_ context.Context, conn connection.Conn) error {
	c, err := b.own(conn)
	if err != nil {
		return err
	}
	c.connected.Store(false)
	return nil
}

func (b *Backend) newConn(name string, opts connection.Options) *Conn {
	c := &Conn{
		id:      uuid.NewString(),
		name:    name,
		options: opts,
		store:   b.store,
	}
	c.connected.Store(true)
	b.logger.Debug("memory connection created", zap.String("client", name), zap.String("conn_id", c.id))
	return c
}

func (b *Backend) own(conn connection.Conn) (*Conn, error) {
	c, ok := conn.(*Conn)
	if !ok || c.store != b.store {
		return nil, fmt.Errorf("memory backend: foreign connection %T", conn)
	}
	return c, nil
}
