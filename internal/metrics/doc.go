// 版权所有 2024 VidFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的批处理指标采集。

# 概述

Collector 实现 batch.Observer，通过 WithObserver 挂到 Pipeline 上即可
记录任务与生成调用指标。指标注册到调用方传入的 Registerer（promauto.With），
便于测试隔离和自定义 /metrics 端点。

# 主要指标

  - 任务：启动数、完成数（按 model/status）、占用槽位的在途任务数、
    每个任务的调用次数分布、成功任务成本。
  - 生成调用：调用总数（按 model 与错误码归类的 outcome）、调用耗时。
  - 批次：完成批次数（按报告是否持久化）、最近一批的任务数与总成本、
    成本告警次数。
*/
package metrics
