// Package xscope 提供作用域化的环境状态传播（ambient state propagation）。
//
// 在一次逻辑操作（如一个入站请求）的入口建立"当前作用域"，作用域内任意深度的
// 调用链——包括跨 goroutine、跨异步恢复点的代码——都可以读取和更新同一份
// 键值状态（Store），而无需在每个函数签名中显式透传。
//
// 传播基座是 Go 原生的 context.Context：每个 Engine 持有自己的私有 context key，
// 多个独立的 Engine 互不干扰。作用域的恢复是结构性的——Run/With 只在派生的
// context 上关联 Store，调用方自己的 context 不受影响，因此无论正常返回、
// 返回错误还是 panic，退出作用域后先前的关联总是完好的。
//
// # 核心概念
//
// Store - 一个作用域关联的可变键值状态：
//   - 深拷贝进入：Run/With 先 Clone 再关联，调用方持有的数据永不被别名
//   - 原地可变：Set 在单元（cell）内替换字段，所有别名该单元的读取方立即可见
//   - 作用域隔离：兄弟作用域、并发作用域之间不共享 Store 对象
//
// Scope - 一段动态范围（一个函数体及其同步/异步传递调用的全部代码）：
//   - Run 开启独立作用域（与外层无关）
//   - With 开启派生作用域（merge(父, patch) 后深拷贝）
//   - 嵌套遵循后进先出：内层看到内层的 Store，退出即恢复外层
//
// Binding - 把当前作用域捕获到一个稍后调用的回调上：
//   - BindLive：别名同一 Store 单元，捕获后的 Set 对绑定可见
//   - BindSnapshot：捕获时刻的独立深拷贝，之后完全隔离
//
// # 命名约定
//
//	Has(ctx)              - 是否存在活跃作用域，永不失败
//	Get(ctx)              - 读取整个 Store（深拷贝视图），无作用域返回 nil
//	Value/Lookup(ctx, k)  - 读取单个字段，无作用域返回零值
//	Set(ctx, patch)       - 原地合并更新，无作用域时静默 no-op
//	Use(ctx)              - 强制读取：无作用域返回 ErrNoActiveScope
//	Run/With(ctx, .., fn) - 作用域生命周期
//	Capture/Bind          - 作用域再关联（回调绑定）
//
// # 哨兵错误
//
//	ErrNilContext    - context 为 nil
//	ErrNoActiveScope - 无活跃作用域（仅 Use 返回）
//	ErrNilFunc       - 传入的函数为 nil
//
// # 读取语义
//
// Get/Value/Use 返回的都是深拷贝视图。这是有意的设计选择：Go 的调度是真并行，
// 直接交出内部 map 无法保证数据竞争安全；写入必须通过 Set 完成。
// 需要多字段原子更新时，把完整 patch 交给一次 Set 调用——Engine 不保证
// 多次 Set 与其他读取方交错时的跨调用原子性。
package xscope
