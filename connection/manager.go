package connection

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// =============================================================================
// 🔗 连接管理器
// =============================================================================

// Manager 多客户端连接管理器
//
// 所有公开方法由同一把互斥锁串行化（包括对 Backend 的调用），
// 因此 ConnectionFor 的「检查-创建」是原子的。锁不改变单个调用方
// 看到的 Backend 调用顺序。
type Manager struct {
	backend  Backend
	width    Width
	defaults Options
	logger   *zap.Logger

	mu      sync.Mutex
	primary Conn
	named   map[string]Conn
	order   []string
}

// Config 管理器配置
type Config struct {
	// 连接宽度，WidthDefault 时读取 STOCKPILE_CONNECTION_WIDTH
	Width Width

	// 透传给 Backend 的默认选项；OptionNarrow 键由 Manager 消费
	Options Options
}

// NewManager 创建连接管理器。backend 为 nil 时所有生命周期操作
// 都会返回 ErrNotImplemented。
func NewManager(backend Backend, config Config, logger *zap.Logger) *Manager {
	if backend == nil {
		backend = UnimplementedBackend{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	defaults := config.Options.Clone()
	width := config.Width
	if narrow, ok := defaults.Bool(OptionNarrow); ok && width == WidthDefault {
		if narrow {
			width = Narrow
		} else {
			width = Wide
		}
	}
	delete(defaults, OptionNarrow)
	width = width.resolve()

	return &Manager{
		backend:  backend,
		width:    width,
		defaults: defaults,
		logger:   logger.With(zap.String("component", "connection_manager"), zap.Stringer("width", width)),
		named:    make(map[string]Conn),
	}
}

// Width 返回连接宽度
func (m *Manager) Width() Width {
	return m.width
}

// Narrow 是否为 Narrow 宽度
func (m *Manager) Narrow() bool {
	return m.width == Narrow
}

// Connection 返回主连接，尚未连接时返回 nil
func (m *Manager) Connection() Conn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.primary
}

// Clients 按注册顺序返回已知的客户端名
func (m *Manager) Clients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Lookup 返回已知客户端的连接，不会创建连接
func (m *Manager) Lookup(name string) (Conn, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn, ok := m.named[name]
	return conn, ok
}

// =============================================================================
// 🎯 核心方法
// =============================================================================

// Connect 在尚未连接时建立主连接，并为 specs 中的每个客户端调用
// ConnectionFor。返回主连接。重复调用不会创建新的物理连接。
//
//	m.Connect(ctx)
//	m.ConnectionFor(ctx, "bar", nil)
//
//	// 与上面等价
//	m.Connect(ctx, connection.Name("bar"))
func (m *Manager) Connect(ctx context.Context, specs ...ClientSpec) (Conn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	clients := Normalize(specs...)
	if clients.Has(All) {
		return nil, fmt.Errorf("%w: client name %q is reserved", ErrConfiguration, All)
	}

	if err := m.ensurePrimary(ctx); err != nil {
		return nil, err
	}

	for _, name := range clients.Names() {
		if _, err := m.connectionFor(ctx, name, clients.Options(name)); err != nil {
			return nil, err
		}
	}

	return m.primary, nil
}

// ConnectionFor 返回客户端 name 的连接，不存在时创建。
// name 为 All 时永远返回 nil。
//
// Narrow 模式下返回主连接并以 name 登记；Wide 模式下以默认选项
// 合并 opts 创建独立连接。结果会缓存，重复调用返回同一句柄。
func (m *Manager) ConnectionFor(ctx context.Context, name string, opts Options) (Conn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.connectionFor(ctx, name, opts)
}

// Reconnect 重连主连接；Wide 模式下再重连 specs 中已知的客户端。
// specs 为单独的 All 时作用于全部已知客户端，未知客户端被忽略。
// 尚未连接时什么都不做并返回 nil。
func (m *Manager) Reconnect(ctx context.Context, specs ...ClientSpec) (Conn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.primary == nil {
		return nil, nil
	}

	if err := m.backend.Reconnect(ctx, m.primary); err != nil {
		m.logger.Warn("primary reconnect failed", zap.String("conn_id", m.primary.ID()), zap.Error(err))
		return nil, err
	}
	m.logger.Debug("primary reconnected", zap.String("conn_id", m.primary.ID()))

	if m.width == Narrow {
		return m.primary, nil
	}

	for _, name := range m.resolve(specs) {
		conn := m.named[name]
		if err := m.backend.Reconnect(ctx, conn); err != nil {
			m.logger.Warn("client reconnect failed", zap.String("client", name), zap.Error(err))
			return nil, err
		}
		m.logger.Debug("client reconnected", zap.String("client", name), zap.String("conn_id", conn.ID()))
	}

	return m.primary, nil
}

// Disconnect 与 Reconnect 对称但顺序相反：Wide 模式下先断开 specs 中
// 已知的客户端，最后断开主连接。尚未连接时什么都不做。
// 断开的槽位仍然保留，可以再次 Reconnect。
func (m *Manager) Disconnect(ctx context.Context, specs ...ClientSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.primary == nil {
		return nil
	}

	if m.width == Wide {
		for _, name := range m.resolve(specs) {
			conn := m.named[name]
			if err := m.backend.Disconnect(ctx, conn); err != nil {
				m.logger.Warn("client disconnect failed", zap.String("client", name), zap.Error(err))
				return err
			}
			m.logger.Debug("client disconnected", zap.String("client", name), zap.String("conn_id", conn.ID()))
		}
	}

	if err := m.backend.Disconnect(ctx, m.primary); err != nil {
		m.logger.Warn("primary disconnect failed", zap.String("conn_id", m.primary.ID()), zap.Error(err))
		return err
	}
	m.logger.Debug("primary disconnected", zap.String("conn_id", m.primary.ID()))

	return nil
}

// =============================================================================
// 🔧 内部方法（调用方必须持有锁）
// =============================================================================

func (m *Manager) ensurePrimary(ctx context.Context) error {
	if m.primary != nil {
		return nil
	}

	conn, err := m.backend.CreatePrimary(ctx, m.defaults.Clone())
	if err != nil {
		m.logger.Warn("primary connect failed", zap.Error(err))
		return err
	}

	m.primary = conn
	m.logger.Debug("primary connected", zap.String("conn_id", conn.ID()))
	return nil
}

func (m *Manager) connectionFor(ctx context.Context, name string, opts Options) (Conn, error) {
	if name == All {
		return nil, nil
	}
	if name == "" {
		return nil, fmt.Errorf("%w: empty client name", ErrConfiguration)
	}

	if err := m.ensurePrimary(ctx); err != nil {
		return nil, err
	}

	if conn, ok := m.named[name]; ok {
		return conn, nil
	}

	conn := m.primary
	if m.width == Wide {
		created, err := m.backend.CreateNamed(ctx, name, m.defaults.Merge(opts))
		if err != nil {
			m.logger.Warn("client connect failed", zap.String("client", name), zap.Error(err))
			return nil, err
		}
		conn = created
	}

	m.named[name] = conn
	m.order = append(m.order, name)
	m.logger.Debug("client registered", zap.String("client", name), zap.String("conn_id", conn.ID()))

	return conn, nil
}

// resolve 将 specs 解析为已知客户端名列表
func (m *Manager) resolve(specs []ClientSpec) []string {
	if IsWildcard(specs) {
		out := make([]string, len(m.order))
		copy(out, m.order)
		return out
	}

	var out []string
	for _, name := range Normalize(specs...).Names() {
		if _, ok := m.named[name]; ok {
			out = append(out, name)
		}
	}
	return out
}
