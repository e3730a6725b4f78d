package xscope

import "context"

// =============================================================================
// BindMode：绑定模式
// =============================================================================

// BindMode 绑定模式，显式二值枚举。
//
// 设计决策: 不提供默认模式——零值 BindMode 是非法的，Capture/Bind 对非法
// 模式退化为"无可绑定"。live/snapshot 两种语义差异巨大（别名 vs 隔离），
// 由调用方显式选择比猜测默认值更不易出错，且两种状态完全对称。
type BindMode int

const (
	// BindLive 别名模式：绑定指向原作用域的 Store 单元本身。
	// 捕获之后通过原作用域（或其他 live 绑定）执行的 Set 对本绑定可见；
	// 反过来，通过本绑定执行的 Set 也会被原作用域观察到。
	BindLive BindMode = iota + 1

	// BindSnapshot 快照模式：绑定持有捕获时刻的独立深拷贝。
	// 捕获之后任何一方的修改都不会影响另一方。
	BindSnapshot
)

// Valid 判断模式是否为两个合法值之一。
func (m BindMode) Valid() bool {
	return m == BindLive || m == BindSnapshot
}

// String 返回模式的可读名称。
func (m BindMode) String() string {
	switch m {
	case BindLive:
		return "live"
	case BindSnapshot:
		return "snapshot"
	default:
		return "invalid"
	}
}

// =============================================================================
// Binding：捕获的作用域
// =============================================================================

// Binding 一次作用域捕获。
//
// 零值 Binding 无效（Bind 退化为恒等）。Binding 按值传递是安全的，
// 同一个 Binding 可以被任意多次、从任意动态范围（包括并发地）Bind：
// 每次 Bind 只是在调用方的 context 上叠加一层关联，互不影响。
// live 绑定的并发调用方共享同一个 Store 单元，写入顺序由调用方自行协调。
type Binding struct {
	key *scopeKey
	c   *cell
}

// Capture 捕获当前活跃作用域。
//
// 无活跃作用域或模式非法时返回 (零值, false)——没有可绑定的东西。
// BindSnapshot 模式在捕获时刻完成深拷贝，之后与原作用域完全隔离。
func (e *Engine) Capture(ctx context.Context, mode BindMode) (Binding, bool) {
	if !mode.Valid() {
		return Binding{}, false
	}
	c := e.cell(ctx)
	if c == nil {
		return Binding{}, false
	}
	if mode == BindSnapshot {
		c = &cell{store: c.snapshot()}
	}
	return Binding{key: e.key, c: c}, true
}

// Valid 判断 Binding 是否持有已捕获的作用域。
func (b Binding) Valid() bool {
	return b.c != nil
}

// Bind 把捕获的作用域关联到 ctx 上，返回派生 context。
//
// 无效 Binding 原样返回 ctx；nil ctx 归一化为 context.Background()。
// 返回的 context 仅在调用方持有期间生效，调用方自己的 ctx 不受影响——
// 这正是"调用结束恢复调用方原有关联"的结构性保证。
func (b Binding) Bind(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.c == nil {
		return ctx
	}
	return context.WithValue(ctx, b.key, b.c)
}

// =============================================================================
// 函数绑定
// =============================================================================

// Bind 把当前活跃作用域绑定到 fn 上，返回包装后的函数。
//
// 包装函数被调用时（可以是零次、一次或多次，来自任何动态范围，包括并发），
// 以捕获的作用域为活跃作用域执行 fn，fn 的错误原样返回；调用方 context
// 中原有的作用域关联在调用结束后完好如初。
//
// 无活跃作用域或模式非法时返回 fn 本身（恒等透传——没有可绑定的东西）。
// fn 为 nil 时返回 nil。
func (e *Engine) Bind(ctx context.Context, fn func(context.Context) error, mode BindMode) func(context.Context) error {
	if fn == nil {
		return nil
	}
	b, ok := e.Capture(ctx, mode)
	if !ok {
		return fn
	}
	return func(callCtx context.Context) error {
		return fn(b.Bind(callCtx))
	}
}
