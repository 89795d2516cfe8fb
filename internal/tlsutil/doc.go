// Package tlsutil 提供集中式 TLS 配置，
// 为视频服务 HTTP 客户端、产物下载与 Redis 报告存储提供安全加固的 TLS 设置（TLS 1.2+，仅 AEAD 密码套件）。
package tlsutil
