// 版权所有 2024 VidFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 retry 提供基于指数退避的通用重试能力。

# 概述

RetryPolicy 描述最大重试次数、退避单位与倍增因子；第 a 次（从 0 开始）
尝试失败后等待 InitialDelay * Multiplier^a。等待通过 Sleep 注入，默认
SleepContext 只挂起当前 goroutine，并在 context 取消时立即返回。

# 核心接口

  - Retryer：Do / DoWithResult，回调接收当前尝试序号。
  - ExhaustedError：所有尝试均失败时返回，Err 为最后一次失败。
  - DoWithResultTyped：泛型包装，免去类型断言。
*/
package retry
