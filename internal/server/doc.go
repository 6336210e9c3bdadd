// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 提供 stockpile watch 命令的观测端点与 HTTP 服务器生命周期管理。

# 概述

Manager 封装 net/http.Server，负责非阻塞启动、优雅关闭与错误传播。
NewHandler 组装观测路由：/metrics 暴露 Prometheus 指标，
/healthz 以 JSON 返回最近一轮连接健康检查结果。

# 核心类型

  - Manager：HTTP 服务器管理器，提供 Start/Shutdown/Errors。
  - Config：监听地址、读写超时与优雅关闭超时。
  - ReportSource：提供最近一轮健康检查结果，*health.Watcher 满足。
*/
package server
