package xemitter

import (
	"context"

	"github.com/omeyang/scopekit/pkg/scope/xscope"
)

// =============================================================================
// 作用域绑定
// =============================================================================

// BindScope 把 ctx 中 eng 的活跃作用域绑定到发射器的监听器注册面上。
//
// 调用成功后，此后注册的每个监听器都会在捕获的作用域内执行：
//   - xscope.BindLive：监听器别名原作用域的 Store 单元，绑定之后通过原作用域
//     （或其他 live 绑定）的 Set 对监听器可见，反之亦然
//   - xscope.BindSnapshot：监听器看到绑定时刻的独立快照
//
// 绑定之前已注册的监听器不受影响——它们收到的仍是 Emit 调用方的原始 ctx。
// 分发语义（顺序、同步性、panic 传播）不因绑定而改变。
//
// 再次调用 BindScope 会整体替换之前的绑定。无活跃作用域、模式非法或
// 参数为 nil 时不安装任何包装并返回 false——没有可绑定的东西。
func BindScope(ctx context.Context, eng *xscope.Engine, em *Emitter, mode xscope.BindMode) bool {
	if eng == nil || em == nil {
		return false
	}
	b, ok := eng.Capture(ctx, mode)
	if !ok {
		return false
	}
	em.WrapNew(func(l Listener) Listener {
		return func(callCtx context.Context, ev Event) {
			l(b.Bind(callCtx), ev)
		}
	})
	return true
}

// UnbindScope 清除 BindScope 安装的注册拦截器。
//
// 只影响之后注册的监听器；已经被包装的监听器保持其绑定。
func UnbindScope(em *Emitter) {
	if em == nil {
		return
	}
	em.WrapNew(nil)
}
