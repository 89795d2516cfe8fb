// Copyright 2026 VidFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 VidFlow 测试的共享工具和辅助函数。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 断言工具: AssertJSONEqual / AssertContains / AssertEventuallyTrue
  - 等待工具: WaitFor / WaitForChannel，在超时内轮询条件或等待通道
  - 退避辅助: SleepRecorder 记录重试等待而不真正休眠
  - 数据工具: MustJSON / MustParseJSON

# 子包

  - testutil/mocks: MockProvider（脚本化 GenerationProvider）与
    MockReportSink（报告持久化，支持错误注入）

# 使用示例

	provider := mocks.NewMockProvider().
		Script("a", mocks.Outcome{Err: errors.New("boom")}, mocks.Outcome{Generation: gen})
	sleeps := testutil.NewSleepRecorder()
	p := batch.NewPipeline(cfg, provider, batch.WithSleep(sleeps.Sleep))
*/
package testutil
