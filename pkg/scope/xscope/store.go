package xscope

import (
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// =============================================================================
// Store 类型定义
// =============================================================================

// Store 一个作用域关联的键值状态。
//
// Store 是普通的结构化数据，除字段外没有身份：相等性按字段值观察。
// 嵌套值中只有 map[string]any、Store 和 []any 会被 Clone 递归拷贝，
// 其余类型按赋值拷贝（视为不可变的叶子值）。
type Store map[string]any

// Len 返回字段数量。nil Store 返回 0。
func (s Store) Len() int {
	return len(s)
}

// Keys 返回按字典序排序的字段名列表。
//
// 排序保证确定性输出，便于日志和测试比对。每次调用返回新切片。
func (s Store) Keys() []string {
	if len(s) == 0 {
		return nil
	}
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone 返回 Store 的完整深拷贝。
//
// nil Store 返回空 Store（非 nil），使调用方无需区分两种空值形态。
// 深拷贝覆盖嵌套的 map[string]any、Store 和 []any；其余值按赋值拷贝。
func (s Store) Clone() Store {
	out := make(Store, len(s))
	for k, v := range s {
		out[k] = cloneValue(v)
	}
	return out
}

// cloneValue 递归拷贝单个值。
func cloneValue(v any) any {
	switch val := v.(type) {
	case Store:
		return val.Clone()
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// =============================================================================
// Fingerprint：内容指纹
// =============================================================================

// Fingerprint 计算 Store 内容的 64 位指纹。
//
// 指纹基于键排序后的规范化编码，对字段顺序不敏感：字段值相同的两个 Store
// 指纹必然相同。用于廉价的变更检测（如中间件记录请求期间 Store 是否被修改），
// 不用于安全目的。
func (s Store) Fingerprint() uint64 {
	d := xxhash.New()
	writeMap(d, s)
	return d.Sum64()
}

func writeMap(d *xxhash.Digest, m map[string]any) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		_, _ = d.WriteString(k)
		_, _ = d.WriteString("=")
		writeValue(d, m[k])
		_, _ = d.WriteString(";")
	}
}

func writeValue(d *xxhash.Digest, v any) {
	switch val := v.(type) {
	case Store:
		_, _ = d.WriteString("{")
		writeMap(d, val)
		_, _ = d.WriteString("}")
	case map[string]any:
		_, _ = d.WriteString("{")
		writeMap(d, val)
		_, _ = d.WriteString("}")
	case []any:
		_, _ = d.WriteString("[")
		for _, item := range val {
			writeValue(d, item)
			_, _ = d.WriteString(",")
		}
		_, _ = d.WriteString("]")
	default:
		// 设计决策: 编码中带上动态类型名，避免 int(1) 与 string("1") 等
		// 跨类型的 %v 表示碰撞产生相同指纹。
		_, _ = fmt.Fprintf(d, "%T:%v", v, v)
	}
}

// =============================================================================
// 合并策略
// =============================================================================

// MergeFunc 合并策略函数。
//
// 纯函数：不得修改 prev 和 patch，返回新的 Store。
// 通过 WithMerge 按 Engine 实例定制，默认为 ShallowMerge。
type MergeFunc func(prev, patch Store) Store

// ShallowMerge 默认合并策略：字段级浅覆盖。
//
// patch 中出现的字段整体替换 prev 的同名字段（嵌套结构不递归合并）；
// patch 中不存在的字段原样保留。这是有意的浅合并——需要深合并语义的
// 调用方应通过 WithMerge 注入自己的策略。
func ShallowMerge(prev, patch Store) Store {
	out := make(Store, len(prev)+len(patch))
	for k, v := range prev {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}
