// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 connection 提供缓存连接的生命周期管理，决定多个命名客户端
（named client）是共享同一条物理连接，还是各自持有独立连接。

# 概述

Manager 持有一条主连接（primary）以及「客户端名 → 连接」的映射。
主连接在第一次 Connect 或 ConnectionFor 时惰性创建；命名客户端
在首次请求时创建并缓存，之后重复请求返回同一个句柄。

连接宽度（Width）决定共享策略：

  - Narrow：所有命名客户端都是主连接的别名，不会创建新的物理连接。
  - Wide：每个命名客户端拥有独立的物理连接。

# 核心类型

  - Manager：连接管理器，实现 Connect/ConnectionFor/Reconnect/Disconnect。
  - Backend：协作者契约，负责真正的建立、重连与断开。
  - Conn：连接句柄，暴露连接状态与透传的数据操作。
  - ClientSpec / ClientSet：调用参数的规范化表示。
  - UnimplementedBackend：所有方法均返回 ErrNotImplemented 的空实现。

# 通配符

客户端名 All（"all"）是保留名：ConnectionFor(All) 永远返回 nil，
Reconnect(Name(All)) 与 Disconnect(Name(All)) 作用于所有已知客户端，
Connect 中使用 All 会返回 ErrConfiguration。

# 错误语义

Backend 返回的错误原样返回给调用方，不做包装、重试或回滚；
Wide 模式下部分重连成功后失败，已重连的连接保持重连状态。
*/
package connection
