// 版权所有 2024 VidFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 在批次运行期间暴露 Prometheus 指标。

# 核心类型

  - Manager：持有 http.Server 与 net.Listener，提供非阻塞 Start、
    可重复调用的 Shutdown 以及异步错误通道 Errors()。
  - Config：监听地址、请求头超时与优雅关闭超时。
  - MetricsHandler：为给定 Registry 路由 /metrics 与 /healthz。

监听地址为 ":0" 时使用随机端口，Addr() 返回实际地址。
*/
package server
