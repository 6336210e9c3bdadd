// MockBackend 连接后端的测试模拟实现。
//
// 默认委托给内存后端，支持按客户端注入错误并记录每次调用。
package mocks

import (
	"context"
	"sync"

	"github.com/BaSui01/stockpile/backend/memory"
	"github.com/BaSui01/stockpile/connection"
)

// 记录的方法名
const (
	MethodCreatePrimary = "CreatePrimary"
	MethodCreateNamed   = "CreateNamed"
	MethodReconnect     = "Reconnect"
	MethodDisconnect    = "Disconnect"
)

// --- MockBackend 结构 ---

// MockBackend 是 connection.Backend 的模拟实现
type MockBackend struct {
	mu sync.Mutex

	next connection.Backend

	// 错误注入，键为客户端名，主连接为空字符串
	createErrs     map[string]error
	reconnectErrs  map[string]error
	disconnectErrs map[string]error

	// 连接 ID 到客户端名
	names map[string]string

	calls []MockBackendCall
}

// MockBackendCall 记录单次调用
type MockBackendCall struct {
	Method string
	Client string
	ConnID string
	Error  error
}

var _ connection.Backend = (*MockBackend)(nil)

// --- 构造函数和 Builder 方法 ---

// NewMockBackend 创建委托给内存后端的 MockBackend
func NewMockBackend() *MockBackend {
	return &MockBackend{
		next:           memory.NewBackend(nil, nil),
		createErrs:     make(map[string]error),
		reconnectErrs:  make(map[string]error),
		disconnectErrs: make(map[string]error),
		names:          make(map[string]string),
	}
}

// WithBackend 替换被委托的后端
func (m *MockBackend) WithBackend(next connection.Backend) *MockBackend {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next = next
	return m
}

// WithCreateError 让指定客户端的建连失败；name 为空表示主连接
func (m *MockBackend) WithCreateError(name string, err error) *MockBackend {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createErrs[name] = err
	return m
}

// WithReconnectError 让指定客户端的重连失败
func (m *MockBackend) WithReconnectError(name string, err error) *MockBackend {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconnectErrs[name] = err
	return m
}

// WithDisconnectError 让指定客户端的断开失败
func (m *MockBackend) WithDisconnectError(name string, err error) *MockBackend {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnectErrs[name] = err
	return m
}

// ClearErrors 清除所有注入的错误
func (m *MockBackend) ClearErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createErrs = make(map[string]error)
	m.reconnectErrs = make(map[string]error)
	m.disconnectErrs = make(map[string]error)
}

// --- connection.Backend 实现 ---

// CreatePrimary 创建主连接
func (m *MockBackend) CreatePrimary(ctx context.Context, opts connection.Options) (connection.Conn, error) {
	return m.create(ctx, MethodCreatePrimary, "", opts)
}

// CreateNamed 创建命名连接
func (m *MockBackend) CreateNamed(ctx context.Context, name string, opts connection.Options) (connection.Conn, error) {
	return m.create(ctx, MethodCreateNamed, name, opts)
}

// Reconnect 重连
func (m *MockBackend) Reconnect(ctx context.Context, conn connection.Conn) error {
	return m.lifecycle(ctx, MethodReconnect, conn, m.reconnectErrs, m.next.Reconnect)
}

// Disconnect 断开
func (m *MockBackend) Disconnect(ctx context.Context, conn connection.Conn) error {
	return m.lifecycle(ctx, MethodDisconnect, conn, m.disconnectErrs, m.next.Disconnect)
}

func (m *MockBackend) create(ctx context.Context, method, name string, opts connection.Options) (connection.Conn, error) {
	m.mu.Lock()
	injected := m.createErrs[name]
	next := m.next
	m.mu.Unlock()

	if injected != nil {
		m.record(MockBackendCall{Method: method, Client: name, Error: injected})
		return nil, injected
	}

	var (
		conn connection.Conn
		err  error
	)
	if method == MethodCreatePrimary {
		conn, err = next.CreatePrimary(ctx, opts)
	} else {
		conn, err = next.CreateNamed(ctx, name, opts)
	}

	call := MockBackendCall{Method: method, Client: name, Error: err}
	if conn != nil {
		call.ConnID = conn.ID()
		m.mu.Lock()
		m.names[conn.ID()] = name
		m.mu.Unlock()
	}
	m.record(call)
	return conn, err
}

func (m *MockBackend) lifecycle(
	ctx context.Context,
	method string,
	conn connection.Conn,
	errs map[string]error,
	do func(context.Context, connection.Conn) error,
) error {
	call := MockBackendCall{Method: method}
	if conn != nil {
		call.ConnID = conn.ID()
	}

	m.mu.Lock()
	call.Client = m.names[call.ConnID]
	injected := errs[call.Client]
	m.mu.Unlock()

	if injected != nil {
		call.Error = injected
	} else {
		call.Error = do(ctx, conn)
	}
	m.record(call)
	return call.Error
}

func (m *MockBackend) record(call MockBackendCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

// --- 调用记录 ---

// Calls 返回调用记录副本
func (m *MockBackend) Calls() []MockBackendCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockBackendCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount 返回某方法的调用次数
func (m *MockBackend) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Reset 清空调用记录
func (m *MockBackend) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}
