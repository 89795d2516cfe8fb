// 版权所有 2024 VidFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 budget 提供视频生成的成本跟踪与告警能力。

# 概述

每次成功生成都按模型计价（按条或按秒）。CostTracker 以原子计数累计
花费，累计值首次超过 AlertThreshold（默认 $50）时触发一次告警；
可选的 MaxTotalCost 在调用前通过 CheckBudget 拒绝超支请求。

# 核心接口

  - CostTracker：记录花费、查询累计值与按模型汇总。
  - CostConfig：告警阈值与总成本上限。
  - AlertHandler：告警回调，异步调用。
*/
package budget
