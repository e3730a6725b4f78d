package xscope

import "errors"

// =============================================================================
// Context Key 类型定义
// =============================================================================

// 设计决策: scopeKey 使用指针身份而非字符串值做 context key——每个 Engine 在
// New 时分配一个独享的 *scopeKey，多个 Engine 即使同名也互不干扰（指针比较）。
// name 字段仅用于调试输出，不参与键比较。
type scopeKey struct {
	name string
}

// =============================================================================
// 哨兵错误
// =============================================================================

var (
	// ErrNilContext 表示传入的 context 为 nil。
	ErrNilContext = errors.New("xscope: nil context")

	// ErrNoActiveScope 无活跃作用域。
	// 仅由强制读取函数 Use 返回；其余读取函数在无作用域时退化为零值/no-op。
	ErrNoActiveScope = errors.New("xscope: no active scope (open one with Engine.Run or Engine.With before calling Use)")

	// ErrNilFunc 传入的函数为 nil。
	ErrNilFunc = errors.New("xscope: nil fn")
)
