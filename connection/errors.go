package connection

import "errors"

var (
	// ErrConfiguration 构造或调用参数配置错误，不可重试
	ErrConfiguration = errors.New("stockpile: configuration error")

	// ErrNotImplemented Backend 未实现所需的生命周期操作，属于集成缺陷
	ErrNotImplemented = errors.New("stockpile: backend operation not implemented")

	// ErrNil 键不存在
	ErrNil = errors.New("stockpile: nil reply")

	// ErrNotConnected 连接句柄处于断开状态
	ErrNotConnected = errors.New("stockpile: connection is not connected")

	// ErrWrongType 对错误类型的值执行操作
	ErrWrongType = errors.New("stockpile: operation against a key holding the wrong kind of value")
)

// IsNil 判断是否为键不存在
func IsNil(err error) bool {
	return errors.Is(err, ErrNil)
}
