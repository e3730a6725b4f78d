package xscopegrpc

import (
	"context"
	"log/slog"

	"github.com/omeyang/scopekit/pkg/scope/xscope"
)

// =============================================================================
// 钩子类型
// =============================================================================

// InitFunc 构建 RPC 的初始 Store。
//
// ctx 是拦截器收到的原始 context（作用域尚未开启），可从中读取 metadata。
// 返回错误时作用域不会开启，RPC 以 codes.Internal 失败。
type InitFunc func(ctx context.Context, fullMethod string) (xscope.Store, error)

// HookFunc 作用域生命周期钩子。
//
// onStart 收到作用域开启时刻的状态，onFinish 收到调用时刻的最新状态。
type HookFunc func(ctx context.Context, fullMethod string, store xscope.Store)

// =============================================================================
// 拦截器选项
// =============================================================================

// Option 拦截器选项。
//
// 设计决策: 与 xscopehttp 的选项字段相同但独立定义，保持 HTTP 和 gRPC
// 协议选项的类型独立，允许各自独立演进。
type Option func(*interceptorConfig)

type interceptorConfig struct {
	init     InitFunc
	onStart  HookFunc
	onFinish HookFunc
	logger   *slog.Logger
}

func defaultConfig() *interceptorConfig {
	return &interceptorConfig{
		logger: slog.Default(),
	}
}

// WithInit 设置初始 Store 构建钩子。省略时初始 Store 为空。
func WithInit(fn InitFunc) Option {
	return func(cfg *interceptorConfig) {
		cfg.init = fn
	}
}

// WithOnStart 设置作用域开启钩子。
func WithOnStart(fn HookFunc) Option {
	return func(cfg *interceptorConfig) {
		cfg.onStart = fn
	}
}

// WithOnFinish 设置 RPC 收尾钩子。
//
// 正常返回和客户端取消各触发一次尝试，先到者生效（恰好执行一次）。
// 钩子内的 panic 被记录日志后吞掉。
func WithOnFinish(fn HookFunc) Option {
	return func(cfg *interceptorConfig) {
		cfg.onFinish = fn
	}
}

// WithLogger 设置日志器。传入 nil 时保留 slog.Default()。
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *interceptorConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}
