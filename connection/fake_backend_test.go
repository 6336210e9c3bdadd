package connection

import (
	"context"
	"fmt"
	"sync"
)

// fakeConn 记录连接状态的测试句柄
type fakeConn struct {
	id        string
	name      string
	opts      Options
	connected bool
}

func (c *fakeConn) ID() string      { return c.id }
func (c *fakeConn) Connected() bool { return c.connected }

func (c *fakeConn) Ping(context.Context) error {
	if !c.connected {
		return ErrNotConnected
	}
	return nil
}

func (c *fakeConn) Get(context.Context, string) (string, error)         { return "", ErrNil }
func (c *fakeConn) Set(context.Context, string, string) error           { return nil }
func (c *fakeConn) HGet(context.Context, string, string) (string, error) { return "", ErrNil }
func (c *fakeConn) HSet(context.Context, string, string, string) error  { return nil }

// fakeBackend 记录所有调用并支持错误注入
type fakeBackend struct {
	mu    sync.Mutex
	seq   int
	calls []string

	createPrimaryCalls int
	createNamedCalls   map[string]int

	createErr     map[string]error // key: 客户端名，"" 表示主连接
	reconnectErr  map[string]error // key: 连接 ID
	disconnectErr map[string]error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		createNamedCalls: make(map[string]int),
		createErr:        make(map[string]error),
		reconnectErr:     make(map[string]error),
		disconnectErr:    make(map[string]error),
	}
}

func (b *fakeBackend) CreatePrimary(_ context.Context, opts Options) (Conn, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls = append(b.calls, "create:primary")
	if err := b.createErr[""]; err != nil {
		return nil, err
	}
	b.createPrimaryCalls++
	b.seq++
	return &fakeConn{id: fmt.Sprintf("conn-%d", b.seq), opts: opts, connected: true}, nil
}

func (b *fakeBackend) CreateNamed(_ context.Context, name string, opts Options) (Conn, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls = append(b.calls, "create:"+name)
	if err := b.createErr[name]; err != nil {
		return nil, err
	}
	b.createNamedCalls[name]++
	b.seq++
	return &fakeConn{id: fmt.Sprintf("conn-%d", b.seq), name: name, opts: opts, connected: true}, nil
}

func (b *fakeBackend) Reconnect(_ context.Context, conn Conn) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls = append(b.calls, "reconnect:"+conn.ID())
	if err := b.reconnectErr[conn.ID()]; err != nil {
		return err
	}
	conn.(*fakeConn).connected = true
	return nil
}

func (b *fakeBackend) Disconnect(_ context.Context, conn Conn) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls = append(b.calls, "disconnect:"+conn.ID())
	if err := b.disconnectErr[conn.ID()]; err != nil {
		return err
	}
	conn.(*fakeConn).connected = false
	return nil
}

func (b *fakeBackend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]string, len(b.calls))
	copy(out, b.calls)
	return out
}

func (b *fakeBackend) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = nil
}
