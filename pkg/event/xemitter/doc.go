// Package xemitter 提供同步事件发射器及其作用域绑定集成。
//
// Emitter 是一个并发安全的监听器注册/分发器：按注册顺序同步分发事件，
// 支持追加（On）、一次性（Once）、前置（Prepend/PrependOnce）四种注册变体，
// 注册函数返回对应的移除函数。
//
// 与 xscope 的集成通过注册拦截器实现：BindScope 捕获调用时刻的活跃作用域，
// 并重写发射器的监听器注册面——此后注册的每个监听器都会在该作用域内执行
// （live 或 snapshot 语义由调用方显式选择）；绑定之前已注册的监听器不受影响。
//
// # 分发语义
//
//   - Emit 同步分发：在调用方 goroutine 中按注册顺序依次执行
//   - Once 监听器在分发前被摘除，保证并发 Emit 下至多执行一次
//   - 监听器 panic 原样向调用方传播，不被吞掉
//   - EmitParallel 并行分发，返回前等待全部监听器完成
package xemitter
