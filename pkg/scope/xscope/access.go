package xscope

import "context"

// =============================================================================
// Store 读取
// =============================================================================

// Has 判断当前是否存在本 Engine 的活跃作用域。
//
// 无副作用，永不失败；nil ctx 返回 false。
func (e *Engine) Has(ctx context.Context) bool {
	return e.cell(ctx) != nil
}

// Get 返回活跃 Store 的深拷贝视图，无活跃作用域返回 nil。
//
// 返回值是读取时刻的快照：修改它不会影响作用域状态，写入请使用 Set。
// 与 Use 的区别仅在于无作用域时的行为（nil vs 错误）。
func (e *Engine) Get(ctx context.Context) Store {
	c := e.cell(ctx)
	if c == nil {
		return nil
	}
	return c.snapshot()
}

// Value 返回活跃 Store 中单个字段的值，字段不存在或无作用域返回 nil。
//
// 需要区分"字段值为 nil"和"字段不存在"时请使用 Lookup。
func (e *Engine) Value(ctx context.Context, key string) any {
	v, _ := e.Lookup(ctx, key)
	return v
}

// Lookup 返回活跃 Store 中单个字段的值及其存在性。
//
// 返回的值是深拷贝（嵌套 map/slice 不会别名作用域内部状态）。
func (e *Engine) Lookup(ctx context.Context, key string) (any, bool) {
	c := e.cell(ctx)
	if c == nil {
		return nil, false
	}
	return c.lookup(key)
}

// Use 返回活跃 Store 的深拷贝视图，无活跃作用域返回 ErrNoActiveScope。
//
// 适用于对作用域存在性有硬依赖的代码；可容忍缺席的代码请使用 Get。
// nil ctx 返回 ErrNilContext。
func (e *Engine) Use(ctx context.Context) (Store, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	c := e.cell(ctx)
	if c == nil {
		return nil, ErrNoActiveScope
	}
	return c.snapshot(), nil
}

// =============================================================================
// Store 更新
// =============================================================================

// Set 把 patch 按合并策略更新进活跃 Store，返回是否实际执行了更新。
//
// 无活跃作用域时静默 no-op 返回 false——这是有意的宽容设计，被插桩的代码
// 不必在每个调用点防御性检查作用域是否存在。
//
// 更新是原地的：Store 单元身份不变，本作用域尚未执行的代码、live 绑定和
// live 绑定的监听器都会观察到更新后的值。patch 会先被深拷贝，调用方持有的
// 数据不会被别名进作用域。
//
// 合并与替换在一次写锁内完成；但多次 Set 调用之间与其他读取方的交错顺序
// 不做保证，需要多字段原子更新时请把完整 patch 交给一次 Set。
func (e *Engine) Set(ctx context.Context, patch Store) bool {
	c := e.cell(ctx)
	if c == nil {
		return false
	}
	cloned := patch.Clone()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = e.merge(c.store, cloned)
	return true
}
