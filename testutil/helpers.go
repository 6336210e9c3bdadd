// =============================================================================
// 🧪 测试辅助函数
// =============================================================================
// 提供通用的测试辅助函数和断言
//
// 使用方法:
//
//	mr := testutil.StartRedis(t)
//	testutil.AssertConnected(t, conn)
//	testutil.AssertEventuallyTrue(t, func() bool { return condition }, 5*time.Second)
// =============================================================================
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/BaSui01/stockpile/connection"
)

// =============================================================================
// 🎯 上下文辅助
// =============================================================================

// TestContext 返回带超时的测试上下文
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestContextWithTimeout 返回带自定义超时的测试上下文
func TestContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// CancelledContext 返回已取消的上下文
func CancelledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

// =============================================================================
// 🗄️ Redis 辅助
// =============================================================================

// StartRedis 启动一个 miniredis 实例，测试结束时自动关闭
func StartRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return mr
}

// =============================================================================
// 🔍 连接断言
// =============================================================================

// AssertConnected 断言句柄非空且处于已连接状态
func AssertConnected(t *testing.T, conn connection.Conn) {
	t.Helper()
	if conn == nil {
		t.Error("expected a connection, got nil")
		return
	}
	if !conn.Connected() {
		t.Errorf("connection %s is not connected", conn.ID())
	}
}

// AssertDisconnected 断言句柄已断开
func AssertDisconnected(t *testing.T, conn connection.Conn) {
	t.Helper()
	if conn == nil {
		t.Error("expected a connection, got nil")
		return
	}
	if conn.Connected() {
		t.Errorf("connection %s is still connected", conn.ID())
	}
}

// AssertSameConn 断言两个句柄是同一条物理连接
func AssertSameConn(t *testing.T, expected, actual connection.Conn) {
	t.Helper()
	if expected == nil || actual == nil {
		t.Errorf("expected two connections, got %v and %v", expected, actual)
		return
	}
	if expected.ID() != actual.ID() {
		t.Errorf("connection mismatch: expected %s, got %s", expected.ID(), actual.ID())
	}
}

// =============================================================================
// ⏳ 异步断言
// =============================================================================

// AssertEventuallyTrue 断言条件最终为真
func AssertEventuallyTrue(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()

	if !WaitFor(condition, timeout) {
		t.Errorf("condition not met within %v", timeout)
	}
}

// WaitFor 轮询等待条件满足，超时返回 false
func WaitFor(condition func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return condition()
}

// WaitForChannel 等待通道接收值
func WaitForChannel[T any](ch <-chan T, timeout time.Duration) (T, bool) {
	select {
	case v := <-ch:
		return v, true
	case <-time.After(timeout):
		var zero T
		return zero, false
	}
}
