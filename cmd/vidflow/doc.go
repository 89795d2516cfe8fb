// Copyright (c) VidFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 VidFlow 批量视频生成命令行入口。

# 概述

cmd/vidflow 读取 JSON 或 YAML 任务文件，按优先级排序后在并发上限内
调用视频生成服务，带指数退避重试，最后汇总为批次报告并写入配置的
报告存储（文件、Redis、SQL、S3、MongoDB 或内存）。

# 子命令

  - run: 执行一个批次，参数与任务文件可交错出现
  - migrate: 管理 SQL 报告存储的 batch_reports 表结构
  - reports: 列出或查看报告存储中已保存的批次报告（表格或 JSON）
  - version: 显示构建注入的版本信息
  - help: 显示帮助

# 退出码

批次完成即返回 0，即使所有任务都失败；配置错误、任务文件无法读取或
过滤表达式非法时返回 1。报告保存失败只打印警告，不影响退出码。

# 主要能力

  - 配置：默认值 → YAML → VIDFLOW_* 环境变量 → 命令行选项
  - 日志：zap，json 或 console 编码
  - 指标：--metrics-addr 或 metrics.enabled 时在独立端口暴露 /metrics
  - 遥测：telemetry.enabled 时通过 OTLP gRPC 导出 trace 与 metrics
  - 中断：SIGINT/SIGTERM 取消尚未开始的任务，已完成的结果仍写入报告
*/
package main
