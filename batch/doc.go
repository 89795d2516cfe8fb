// 版权所有 2024 VidFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 batch 提供视频生成任务的有界并发批处理流水线：优先级排序、并发限流、
单任务指数退避重试以及结果聚合与报告。

# 概述

Pipeline 接收一组相互独立的 Job，按 Priority 降序（同优先级保持输入顺序）
派发，每个 Job 在 Limiter 许可下由 Executor 调用 GenerationProvider，
失败时按 2^a 个退避单位等待后重试。每个 Job 恰好产生一个 JobResult，
由 Aggregator 单写者汇总为 BatchReport 并交给 ReportSink 持久化。

# 核心接口

  - GenerationProvider：外部生成服务的最小契约。
  - Limiter：基于 x/sync/semaphore 的计数闸门。
  - Executor：单 Job 重试执行器。
  - Aggregator：结果汇总、进度计数与报告构建。
  - Pipeline：编排入口，Run 返回 BatchReport。
  - Selector：基于 CEL 表达式的 Job 过滤。

# 失败隔离

单个 Job 的失败（包括重试耗尽）不会中止批次，也不会影响其他 Job。
配置错误（并发数非法、重复 ID）在任何任务启动前返回。
*/
package batch
