// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 stockpile 是命名客户端连接管理的顶层入口。

# 概述

Stockpile 包装一个 connection.Manager：构造时选择后端、
连接初始客户端，并执行初始化回调。之后所有连接操作都委托给管理器。
连接宽度决定命名客户端是共享主连接（Narrow）还是各自拥有物理连接（Wide）。

# 核心类型

  - Stockpile：门面，委托 Connect、ConnectionFor、Reconnect、Disconnect。
  - Options：后端、默认后端、宽度、初始客户端与转发给后端的选项。
  - Holder：惰性创建 Stockpile，并在首次创建后一次性挂载排队的适配器。
  - Adapter：在 Stockpile 之上提供领域操作的扩展，例如 adapter/lastrun。

# 使用方式

	sp, err := stockpile.New(ctx, stockpile.Options{
	    Backend: redis.NewBackend(redis.DefaultConfig(), logger),
	    Clients: connection.Names("rollout", "resque"),
	    Logger:  logger,
	})

FromConfig 按 config.Config 选择 redis 或 memory 后端并完成同样的构造。
*/
package stockpile
