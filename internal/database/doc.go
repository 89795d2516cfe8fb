// 版权所有 2024 VidFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 database 提供基于 GORM 的数据库连接管理，供 SQL 报告存储使用。

# 核心类型

  - PoolManager：持有 GORM DB 实例与底层 sql.DB，提供 DB()、Ping()、
    Stats()、Close() 等生命周期方法。
  - PoolConfig：最大空闲连接数、最大打开连接数与连接生命周期。
  - TransactionFunc：事务回调函数类型。

# 驱动

Open 按驱动名选择方言：postgres、mysql 与 sqlite（纯 Go 实现，无需 CGO）。

# 事务

WithTransaction 执行单次事务；WithTransactionRetry 基于 retry 包的指数退避，
在死锁、序列化失败、SQLite 忙等场景下重试。
*/
package database
