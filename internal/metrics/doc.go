// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的连接生命周期指标采集能力。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
自动注册机制，避免手动管理 Registry。所有指标按 namespace 隔离。
InstrumentBackend 以装饰器方式包装 connection.Backend，
对建连、重连、断开操作计数并记录耗时，不改变被包装后端的行为与错误。

# 核心类型

  - Collector：指标收集器，持有 Counter、Histogram、Gauge 向量指标。
  - InstrumentBackend：返回带指标采集的 connection.Backend。

# 主要能力

  - 生命周期指标：操作总数（按 operation/status 分组）与操作耗时。
  - 连接指标：按 client 分组的已创建连接计数。
  - 健康指标：按 client 分组的健康状态 Gauge 与 Ping 耗时。
*/
package metrics
