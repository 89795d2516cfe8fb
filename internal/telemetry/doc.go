// Package telemetry 封装 OpenTelemetry SDK 初始化逻辑，
// 为 VidFlow 提供集中式的 TracerProvider 和 MeterProvider 配置。
// 批处理的 batch.run / batch.job span 通过全局 TracerProvider 导出。
// 当遥测功能禁用时，使用 noop 实现，不连接任何外部服务。
package telemetry
