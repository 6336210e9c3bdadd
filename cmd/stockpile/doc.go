// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 stockpile 命令行程序入口。

# 概述

cmd/stockpile 按 YAML 配置与 STOCKPILE_ 环境变量构造连接管理器，
提供连接检查、按客户端读写键以及长期运行的健康监控。

# 主要能力

  - 子命令：check（检查所有连接）、get、set、watch、version
  - watch：定时健康检查与自动重连、/metrics 与 /healthz 端点、
    配置文件变更时连接新增客户端、OpenTelemetry 追踪
  - 结构化日志（zap），级别与格式来自 log 配置
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
