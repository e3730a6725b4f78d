package xscope

import (
	"context"
	"log/slog"
)

// =============================================================================
// slog 集成
// =============================================================================

// AppendAttrs 把活跃 Store 的字段追加到现有的 slog 属性切片。
//
// 字段按字典序追加，保证日志输出确定性。值是深拷贝——日志管线持有属性期间
// 作用域内的后续 Set 不会造成数据竞争。无活跃作用域时原样返回 attrs。
func (e *Engine) AppendAttrs(attrs []slog.Attr, ctx context.Context) []slog.Attr {
	c := e.cell(ctx)
	if c == nil {
		return attrs
	}
	snap := c.snapshot()
	for _, k := range snap.Keys() {
		attrs = append(attrs, slog.Any(k, snap[k]))
	}
	return attrs
}

// Attrs 把活跃 Store 的字段转换为 slog 属性切片。
//
// 无活跃作用域或 Store 为空时返回 nil。每次调用分配新切片，
// 热路径建议配合预分配切片使用 AppendAttrs。
func (e *Engine) Attrs(ctx context.Context) []slog.Attr {
	c := e.cell(ctx)
	if c == nil {
		return nil
	}
	snap := c.snapshot()
	if snap.Len() == 0 {
		return nil
	}
	attrs := make([]slog.Attr, 0, snap.Len())
	for _, k := range snap.Keys() {
		attrs = append(attrs, slog.Any(k, snap[k]))
	}
	return attrs
}
