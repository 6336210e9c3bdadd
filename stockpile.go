package stockpile

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/stockpile/connection"
)

// Version 当前版本
const Version = "1.1.0"

// ErrNoBackend 既没有提供 Backend 也没有 DefaultBackend
var ErrNoBackend = fmt.Errorf("%w: no backend provided or set as default", connection.ErrConfiguration)

// Options Stockpile 构造参数
type Options struct {
	// Backend 使用的连接后端
	Backend connection.Backend

	// DefaultBackend Backend 为空时使用
	DefaultBackend connection.Backend

	// Width 连接宽度，WidthDefault 时读取 STOCKPILE_CONNECTION_WIDTH
	Width connection.Width

	// Clients 构造时连接的命名客户端
	Clients []connection.ClientSpec

	// Defaults 转发给后端的选项
	Defaults connection.Options

	Logger *zap.Logger
}

// Stockpile 连接管理门面
type Stockpile struct {
	manager *connection.Manager
	logger  *zap.Logger

	mu       sync.RWMutex
	adapters []Adapter
}

// New 创建 Stockpile：选择后端、连接主连接与 Clients，然后依次执行 init。
// 任何一步失败时断开已建立的连接并返回错误。
func New(ctx context.Context, opts Options, init ...func(*Stockpile) error) (*Stockpile, error) {
	backend := opts.Backend
	if backend == nil {
		backend = opts.DefaultBackend
	}
	if backend == nil {
		return nil, ErrNoBackend
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Stockpile{
		manager: connection.NewManager(backend, connection.Config{
			Width:   opts.Width,
			Options: opts.Defaults,
		}, logger),
		logger: logger.With(zap.String("component", "stockpile")),
	}

	if _, err := s.manager.Connect(ctx, opts.Clients...); err != nil {
		s.abandon(ctx)
		return nil, fmt.Errorf("failed to connect clients: %w", err)
	}

	for _, fn := range init {
		if err := fn(s); err != nil {
			s.abandon(ctx)
			return nil, fmt.Errorf("stockpile init failed: %w", err)
		}
	}

	s.logger.Debug("stockpile ready",
		zap.String("width", s.manager.Width().String()),
		zap.Strings("clients", s.manager.Clients()),
	)

	return s, nil
}

func (s *Stockpile) abandon(ctx context.Context) {
	if err := s.manager.Disconnect(ctx, connection.Name(connection.All)); err != nil {
		s.logger.Warn("disconnect after failed construction", zap.Error(err))
	}
}

// =============================================================================
// 委托给 connection.Manager
// =============================================================================

// Manager 返回底层连接管理器
func (s *Stockpile) Manager() *connection.Manager { return s.manager }

// Width 已解析的连接宽度
func (s *Stockpile) Width() connection.Width { return s.manager.Width() }

// Narrow 是否共享主连接
func (s *Stockpile) Narrow() bool { return s.manager.Narrow() }

// Connection 主连接，尚未创建时为 nil
func (s *Stockpile) Connection() connection.Conn { return s.manager.Connection() }

// Clients 已注册的命名客户端
func (s *Stockpile) Clients() []string { return s.manager.Clients() }

// Lookup 返回已注册客户端的连接
func (s *Stockpile) Lookup(name string) (connection.Conn, bool) { return s.manager.Lookup(name) }

// Connect 见 connection.Manager.Connect
func (s *Stockpile) Connect(ctx context.Context, specs ...connection.ClientSpec) (connection.Conn, error) {
	return s.manager.Connect(ctx, specs...)
}

// ConnectionFor 见 connection.Manager.ConnectionFor
func (s *Stockpile) ConnectionFor(ctx context.Context, name string, opts connection.Options) (connection.Conn, error) {
	return s.manager.ConnectionFor(ctx, name, opts)
}

// Reconnect 见 connection.Manager.Reconnect
func (s *Stockpile) Reconnect(ctx context.Context, specs ...connection.ClientSpec) (connection.Conn, error) {
	return s.manager.Reconnect(ctx, specs...)
}

// Disconnect 见 connection.Manager.Disconnect
func (s *Stockpile) Disconnect(ctx context.Context, specs ...connection.ClientSpec) error {
	return s.manager.Disconnect(ctx, specs...)
}

// =============================================================================
// 适配器
// =============================================================================

// Adapter 挂载到 Stockpile 上的扩展
type Adapter interface {
	Attach(s *Stockpile) error
}

// Adapt 挂载适配器；Attach 失败时不记录
func (s *Stockpile) Adapt(a Adapter) error {
	if err := a.Attach(s); err != nil {
		return fmt.Errorf("failed to attach adapter %T: %w", a, err)
	}

	s.mu.Lock()
	s.adapters = append(s.adapters, a)
	s.mu.Unlock()

	s.logger.Debug("adapter attached", zap.String("adapter", fmt.Sprintf("%T", a)))
	return nil
}

// Adapters 已挂载的适配器，按挂载顺序
func (s *Stockpile) Adapters() []Adapter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Adapter, len(s.adapters))
	copy(out, s.adapters)
	return out
}

// AdapterOf 返回最近挂载的 T 类型适配器
func AdapterOf[T Adapter](s *Stockpile) (T, bool) {
	adapters := s.Adapters()
	for i := len(adapters) - 1; i >= 0; i-- {
		if a, ok := adapters[i].(T); ok {
			return a, true
		}
	}
	var zero T
	return zero, false
}
