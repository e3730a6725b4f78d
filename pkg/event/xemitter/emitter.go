package xemitter

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// =============================================================================
// 类型定义
// =============================================================================

// Event 一次事件分发的载荷。
type Event struct {
	// Name 事件名称。
	Name string

	// Payload 事件载荷，类型由发射方与监听方约定。
	Payload any
}

// Listener 事件监听器。
//
// ctx 来自 Emit 调用方；若发射器被 BindScope 绑定，
// 注册晚于绑定的监听器收到的是关联了捕获作用域的派生 ctx。
type Listener func(ctx context.Context, ev Event)

// WrapFunc 监听器注册拦截器。
type WrapFunc func(Listener) Listener

// entry 一条注册记录。
type entry struct {
	l    Listener
	once bool
}

// =============================================================================
// Emitter
// =============================================================================

// Emitter 并发安全的同步事件发射器。
//
// 零值不可用，请使用 New 创建。
type Emitter struct {
	mu        sync.Mutex
	listeners map[string][]*entry
	wrap      WrapFunc
}

// New 创建事件发射器。
func New() *Emitter {
	return &Emitter{
		listeners: make(map[string][]*entry),
	}
}

// WrapNew 安装监听器注册拦截器。
//
// 拦截器只作用于安装之后注册的监听器，已注册的监听器不受影响。
// 再次调用会整体替换之前的拦截器；传入 nil 清除拦截器。
func (e *Emitter) WrapNew(w WrapFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.wrap = w
}

// add 统一的注册入口。返回移除函数。
//
// 设计决策: Go 的函数值不可比较，无法按监听器本身移除，
// 因此注册函数返回闭包捕获 *entry 的移除函数——按记录身份精确摘除。
func (e *Emitter) add(name string, l Listener, once, prepend bool) func() {
	if l == nil {
		return func() {}
	}

	e.mu.Lock()
	if e.wrap != nil {
		l = e.wrap(l)
	}
	ent := &entry{l: l, once: once}
	if prepend {
		e.listeners[name] = append([]*entry{ent}, e.listeners[name]...)
	} else {
		e.listeners[name] = append(e.listeners[name], ent)
	}
	e.mu.Unlock()

	return func() {
		e.remove(name, ent)
	}
}

// remove 按记录身份摘除一条注册。
func (e *Emitter) remove(name string, ent *entry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	entries := e.listeners[name]
	for i, cur := range entries {
		if cur == ent {
			e.listeners[name] = append(entries[:i:i], entries[i+1:]...)
			break
		}
	}
	if len(e.listeners[name]) == 0 {
		delete(e.listeners, name)
	}
}

// On 追加注册监听器，返回移除函数。
//
// nil 监听器被静默忽略（返回的移除函数是 no-op）。
func (e *Emitter) On(name string, l Listener) func() {
	return e.add(name, l, false, false)
}

// Once 追加注册一次性监听器：首次分发后自动摘除。
func (e *Emitter) Once(name string, l Listener) func() {
	return e.add(name, l, true, false)
}

// Prepend 前置注册监听器：排在当前所有监听器之前分发。
func (e *Emitter) Prepend(name string, l Listener) func() {
	return e.add(name, l, false, true)
}

// PrependOnce 前置注册一次性监听器。
func (e *Emitter) PrependOnce(name string, l Listener) func() {
	return e.add(name, l, true, true)
}

// Off 移除指定事件名下的全部监听器。
func (e *Emitter) Off(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.listeners, name)
}

// RemoveAll 移除全部监听器。
func (e *Emitter) RemoveAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = make(map[string][]*entry)
}

// ListenerCount 返回指定事件名下的监听器数量。
func (e *Emitter) ListenerCount(name string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners[name])
}

// Names 返回按字典序排序的、当前有监听器的事件名列表。
func (e *Emitter) Names() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.listeners) == 0 {
		return nil
	}
	names := make([]string, 0, len(e.listeners))
	for name := range e.listeners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// snapshotFor 取出一次分发的监听器快照，并在同一临界区内摘除 once 记录。
//
// 在锁外分发、锁内摘除：保证 once 监听器在并发 Emit 下至多执行一次，
// 同时监听器执行期间可以安全地注册/移除监听器（只影响后续分发）。
func (e *Emitter) snapshotFor(name string) []Listener {
	e.mu.Lock()
	defer e.mu.Unlock()

	entries := e.listeners[name]
	if len(entries) == 0 {
		return nil
	}

	out := make([]Listener, 0, len(entries))
	kept := entries[:0:0]
	for _, ent := range entries {
		out = append(out, ent.l)
		if !ent.once {
			kept = append(kept, ent)
		}
	}
	if len(kept) == 0 {
		delete(e.listeners, name)
	} else {
		e.listeners[name] = kept
	}
	return out
}

// Emit 同步分发事件。
//
// 监听器在调用方 goroutine 中按注册顺序依次执行；监听器 panic 原样传播。
// nil ctx 归一化为 context.Background()。返回本次分发到的监听器数量。
func (e *Emitter) Emit(ctx context.Context, name string, payload any) int {
	if ctx == nil {
		ctx = context.Background()
	}
	listeners := e.snapshotFor(name)
	ev := Event{Name: name, Payload: payload}
	for _, l := range listeners {
		l(ctx, ev)
	}
	return len(listeners)
}

// EmitParallel 并行分发事件，返回前等待全部监听器完成。
//
// 监听器之间的执行顺序不确定；需要顺序保证时请使用 Emit。
// 返回本次分发到的监听器数量。
func (e *Emitter) EmitParallel(ctx context.Context, name string, payload any) int {
	if ctx == nil {
		ctx = context.Background()
	}
	listeners := e.snapshotFor(name)
	ev := Event{Name: name, Payload: payload}

	g := new(errgroup.Group)
	for _, l := range listeners {
		g.Go(func() error {
			l(ctx, ev)
			return nil
		})
	}
	_ = g.Wait()
	return len(listeners)
}
