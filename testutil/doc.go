/*
Package testutil 提供 stockpile 测试的共享工具和辅助函数。

# 概述

testutil 包为各包的单元测试提供统一的辅助能力，
避免重复实现 miniredis 启动、连接状态断言等基础设施。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - Redis 辅助: StartRedis 启动 miniredis 并在测试结束时关闭
  - 连接断言: AssertConnected / AssertDisconnected / AssertSameConn
  - 异步断言: AssertEventuallyTrue / WaitFor / WaitForChannel

# 子包

  - testutil/mocks: MockBackend，委托给内存后端，
    支持按客户端注入建连、重连、断开错误并记录调用

# 使用示例

	ctx := testutil.TestContext(t)
	backend := mocks.NewMockBackend().WithCreateError("rollout", errBoom)
	sp, err := stockpile.New(ctx, stockpile.Options{Backend: backend})
*/
package testutil
