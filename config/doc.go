// Package config 提供 VidFlow 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量（默认前缀 VIDFLOW）的顺序合并，
// 命令行参数由调用方在加载后覆盖。Validate 一次性返回所有问题。
package config
