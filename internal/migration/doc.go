// 版权所有 2024 VidFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 migration 管理 SQL 报告存储（batch_reports 表）的版本化 Schema，
支持 PostgreSQL、MySQL 与 SQLite，基于 golang-migrate 实现。

# 概述

各方言的 SQL 迁移文件通过 embed.FS 内嵌在二进制中，表结构与
storage.SQLStore 的 gorm 模型一致。运维可以用 `vidflow migrate up`
显式建表，而不依赖 SQLStore 启动时的 AutoMigrate。

# 核心接口与类型

  - Migrator：Up/Down/DownAll/Steps/Force/Version/Status/Info/Close。
  - DefaultMigrator：封装 golang-migrate 实例与数据库连接。
  - Config：数据库类型、DSN、版本表名（默认 vidflow_schema_migrations）与锁超时。
  - CLI：为终端格式化输出迁移结果与状态表。

# 工厂函数

  - NewMigratorFromStoreConfig：复用 storage.sql 的 driver 与 dsn。
  - NewMigratorFromURL：直接指定 driver 与 dsn。
*/
package migration
