package xscope

import (
	"context"
	"sync"
)

// =============================================================================
// cell：Store 的可变单元
// =============================================================================

// cell 持有一个作用域的活跃 Store。
//
// 设计决策: Store 不直接挂在 context 上，而是包一层可变单元。Set 在单元内
// 整体替换 store 字段，所有别名该单元的引用方（本作用域的后续代码、live
// 绑定、live 绑定的监听器）立即观察到更新——这是 live 语义的实现基础。
// 读写锁防护真并行下的字段级竞争；跨多次 Set 的原子性不做保证。
type cell struct {
	mu    sync.RWMutex
	store Store
}

// snapshot 返回当前 Store 的深拷贝。
func (c *cell) snapshot() Store {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store.Clone()
}

// lookup 返回单个字段值的深拷贝。
func (c *cell) lookup(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.store[key]
	if !ok {
		return nil, false
	}
	return cloneValue(v), true
}

// =============================================================================
// Engine
// =============================================================================

// Engine 作用域引擎。
//
// 每个 Engine 实例持有独享的 context key 和一个合并策略。
// 多个 Engine 互不干扰：一个 Engine 开启的作用域对另一个 Engine 不可见。
// Engine 的所有方法都是并发安全的。
type Engine struct {
	key   *scopeKey
	merge MergeFunc
}

// Option Engine 选项。
type Option func(*Engine)

// WithMerge 设置合并策略。
//
// fn 必须是纯函数（不修改入参）。传入 nil 时保留默认的 ShallowMerge。
func WithMerge(fn MergeFunc) Option {
	return func(e *Engine) {
		if fn != nil {
			e.merge = fn
		}
	}
}

// WithName 设置 Engine 名称。
//
// 仅用于调试输出（context key 的可读标识），不影响任何行为。
func WithName(name string) Option {
	return func(e *Engine) {
		if name != "" {
			e.key.name = name
		}
	}
}

// New 创建作用域引擎。
//
// 默认合并策略为 ShallowMerge。nil Option 会被静默跳过。
func New(opts ...Option) *Engine {
	e := &Engine{
		key:   &scopeKey{name: "xscope"},
		merge: ShallowMerge,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Name 返回 Engine 名称。
func (e *Engine) Name() string {
	return e.key.name
}

// cell 从 context 取出本 Engine 的活跃单元，无作用域或 nil ctx 返回 nil。
func (e *Engine) cell(ctx context.Context) *cell {
	if ctx == nil {
		return nil
	}
	c, _ := ctx.Value(e.key).(*cell)
	return c
}

// =============================================================================
// 作用域生命周期
// =============================================================================

// Run 以 initial 为初始状态开启独立作用域并执行 fn。
//
// initial 先被深拷贝再关联，调用方持有的 map 永不被别名——并发复用同一个
// initial 开启多个作用域是安全的。fn 收到的 context 关联了新作用域；
// fn 的错误原样返回。
//
// 在已有作用域内嵌套 Run 开启的是与外层无关的兄弟独立作用域（初始状态
// 只来自 initial）；需要派生语义请使用 With。
//
// 退出恢复是结构性的：调用方自己的 ctx 从未被修改，无论 fn 正常返回、
// 返回错误还是 panic，Run 返回后外层作用域（如有）原样可用。
func (e *Engine) Run(ctx context.Context, initial Store, fn func(context.Context) error) error {
	if ctx == nil {
		return ErrNilContext
	}
	if fn == nil {
		return ErrNilFunc
	}
	c := &cell{store: initial.Clone()}
	return fn(context.WithValue(ctx, e.key, c))
}

// With 以 merge(当前, patch) 为初始状态开启派生作用域并执行 fn。
//
// 无活跃作用域时当前状态视为空 Store。合并结果会被深拷贝：fn 内通过 Set
// 的修改只作用于派生作用域，绝不会传播回外层；外层在派生之后的修改也不会
// 影响已开启的派生作用域（派生时刻按值捕获）。
//
// 典型用法是为一段有界子操作临时覆盖部分字段（shadow/override）。
func (e *Engine) With(ctx context.Context, patch Store, fn func(context.Context) error) error {
	if ctx == nil {
		return ErrNilContext
	}
	if fn == nil {
		return ErrNilFunc
	}
	parent := Store{}
	if c := e.cell(ctx); c != nil {
		parent = c.snapshot()
	}
	merged := e.merge(parent, patch)
	c := &cell{store: merged.Clone()}
	return fn(context.WithValue(ctx, e.key, c))
}

// RunValue 与 Engine.Run 相同，但 fn 可以携带返回值。
//
// 设计决策: Go 方法不支持类型参数，带返回值的变体以包级泛型函数提供。
func RunValue[T any](e *Engine, ctx context.Context, initial Store, fn func(context.Context) (T, error)) (T, error) {
	var out T
	if fn == nil {
		return out, ErrNilFunc
	}
	err := e.Run(ctx, initial, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	return out, err
}

// WithValue 与 Engine.With 相同，但 fn 可以携带返回值。
func WithValue[T any](e *Engine, ctx context.Context, patch Store, fn func(context.Context) (T, error)) (T, error) {
	var out T
	if fn == nil {
		return out, ErrNilFunc
	}
	err := e.With(ctx, patch, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	return out, err
}
