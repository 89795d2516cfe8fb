// Copyright (c) VidFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 VidFlow 的结构化错误体系。

types 是最底层的公共包，不依赖任何内部包。批处理、视频服务、预算与
存储都通过 Error / ErrorCode 表达失败原因，重试器据此判断是否重试。

# 核心类型

  - Error: 错误码、消息、HTTP 状态、Retryable、Provider 与 Cause
  - ErrorCode: INVALID_JOB、MODEL_NOT_FOUND、UPSTREAM_ERROR、RATE_LIMITED 等

# 重试语义

  - 任务校验类错误（INVALID_JOB、MODEL_NOT_FOUND、BUDGET_EXCEEDED）从不重试
  - 服务端与传输错误默认可重试，Upstream 按 HTTP 状态细分
  - 非 types.Error 的普通错误视为瞬时错误；context 取消从不重试
*/
package types
