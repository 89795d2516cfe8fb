// 版权所有 2024 VidFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 video 提供视频生成服务商适配、模型目录与成品下载，并通过 Generator
实现 batch.GenerationProvider。

# 概述

Generator 按模型名在 Catalog 中查找 ModelSpec，得到服务商、服务商侧模型
ID 与计价方式，再把请求交给对应 Provider。服务商均为异步任务模型：
提交任务后轮询状态，完成后取得视频 URL，由 Downloader 保存到本地。

# 核心接口

  - Provider：服务商统一抽象，Generate() 与 Name()。
  - Catalog / ModelSpec：模型目录与计价（按条或按秒）。
  - Generator：路由、限流（x/time/rate）、预算检查、下载与成本记录。
  - Downloader：按 <model>_<时间戳>_<提示词>.mp4 保存成品。

# 服务商

  - fal.ai：FalProvider，队列 API（Kling、LTX、MiniMax/Hailuo）。
  - Replicate：ReplicateProvider，预测 API（Wan 2.1）。
  - Runway：RunwayProvider，Gen-4 文生视频与图生视频。

# 错误语义

HTTP 与传输错误映射为可重试的 types.Error（401/403 除外）；未知模型、
缺少图像、服务商未配置与预算超限均不可重试。context 取消原样返回。
*/
package video
