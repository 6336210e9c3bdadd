package connection

import (
	"context"
	"fmt"
)

// =============================================================================
// 🔌 协作者契约
// =============================================================================

// Conn 连接句柄
//
// 句柄只归属于 Manager 的一个槽位（主连接或某个命名客户端）；
// Narrow 模式下所有槽位指向同一个句柄。调用方持有的引用不应
// 在对应槽位被 Disconnect 后继续使用。
type Conn interface {
	// ID 句柄的唯一标识，用于日志与指标
	ID() string

	// Connected 当前是否处于已连接状态
	Connected() bool

	// Ping 探测连接可用性
	Ping(ctx context.Context) error

	// 透传的数据操作
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	HGet(ctx context.Context, key, field string) (string, error)
	HSet(ctx context.Context, key, field, value string) error
}

// Backend 负责物理连接的创建、重连与断开
//
// CreatePrimary/CreateNamed 必须返回已连接的句柄；Reconnect 对已连接的
// 句柄也必须安全（幂等）；Disconnect 可以重复调用。Manager 用同一个
// Reconnect/Disconnect 处理主连接和命名连接。
type Backend interface {
	CreatePrimary(ctx context.Context, opts Options) (Conn, error)
	CreateNamed(ctx context.Context, name string, opts Options) (Conn, error)
	Reconnect(ctx context.Context, conn Conn) error
	Disconnect(ctx context.Context, conn Conn) error
}

// UnimplementedBackend 所有操作都返回 ErrNotImplemented。
// 可嵌入到只实现部分操作的 Backend 中。
type UnimplementedBackend struct{}

// CreatePrimary 未实现
func (UnimplementedBackend) CreatePrimary(context.Context, Options) (Conn, error) {
	return nil, fmt.Errorf("%w: CreatePrimary", ErrNotImplemented)
}

// CreateNamed 未实现
func (UnimplementedBackend) CreateNamed(_ context.Context, name string, _ Options) (Conn, error) {
	return nil, fmt.Errorf("%w: CreateNamed(%s)", ErrNotImplemented, name)
}

// Reconnect 未实现
func (UnimplementedBackend) Reconnect(context.Context, Conn) error {
	return fmt.Errorf("%w: Reconnect", ErrNotImplemented)
}

// Disconnect 未实现
func (UnimplementedBackend) Disconnect(context.Context, Conn) error {
	return fmt.Errorf("%w: Disconnect", ErrNotImplemented)
}
