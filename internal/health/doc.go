// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 health 为连接管理器提供后台健康检查与自动重连。

# 概述

Watcher 按固定间隔 Ping 主连接与每个已注册的命名客户端，
将结果写入 zap 日志与 Prometheus 指标，并通过管理器重连失败的槽位。
Narrow 模式下所有客户端共享主连接，同一句柄每轮只 Ping 一次。
不同句柄通过 errgroup 并发 Ping，并发数由 Config.Concurrency 限制；
重连由 rate.Limiter 按 Config.HealBackoff 节流。

# 核心类型

  - Target：被检查的对象，*connection.Manager 与 *stockpile.Stockpile 均满足。
  - Watcher：健康检查器，提供 Check、Heal 与后台 Run 循环。
  - Report：一轮检查结果，每个槽位一条 Status。
*/
package health
