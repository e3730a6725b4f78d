package xscopehttp

import (
	"log/slog"
	"net/http"

	"github.com/omeyang/scopekit/pkg/scope/xscope"
)

// =============================================================================
// Store 字段与 Header 常量
// =============================================================================

// 惯用的 Store 字段名（下划线分隔，与日志属性命名约定一致）
const (
	KeyRequestID = "request_id"
	KeyTraceID   = "trace_id"
	KeySpanID    = "span_id"
)

// HeaderRequestID 默认的请求 ID Header（遵循 X- 前缀约定）。
const HeaderRequestID = "X-Request-ID"

// =============================================================================
// 钩子类型
// =============================================================================

// InitFunc 构建请求的初始 Store。
//
// 在作用域开启之前执行，允许阻塞（如按请求查库）。返回错误时作用域不会
// 开启，中间件走宿主错误路径。返回 nil Store 等价于空 Store。
type InitFunc func(r *http.Request) (xscope.Store, error)

// HookFunc 作用域生命周期钩子。
//
// store 是深拷贝视图：onStart 收到作用域开启时刻的状态，
// onFinish 收到调用时刻的最新状态（live 绑定读取）。
type HookFunc func(w http.ResponseWriter, r *http.Request, store xscope.Store)

// =============================================================================
// 中间件选项
// =============================================================================

// Option 中间件选项。
type Option func(*middlewareConfig)

type middlewareConfig struct {
	init            InitFunc
	onStart         HookFunc
	onFinish        HookFunc
	logger          *slog.Logger
	requestIDHeader string
	traceSeed       bool
}

func defaultConfig() *middlewareConfig {
	return &middlewareConfig{
		logger: slog.Default(),
	}
}

// WithInit 设置初始 Store 构建钩子。
//
// 省略时初始 Store 为空。
func WithInit(fn InitFunc) Option {
	return func(cfg *middlewareConfig) {
		cfg.init = fn
	}
}

// WithOnStart 设置作用域开启钩子。
//
// 在作用域开启后、next 之前同步执行。
func WithOnStart(fn HookFunc) Option {
	return func(cfg *middlewareConfig) {
		cfg.onStart = fn
	}
}

// WithOnFinish 设置请求收尾钩子。
//
// 正常完成和客户端提前断开各触发一次尝试，先到者生效（恰好执行一次）。
// 钩子内的 panic 被记录日志后吞掉。
func WithOnFinish(fn HookFunc) Option {
	return func(cfg *middlewareConfig) {
		cfg.onFinish = fn
	}
}

// WithLogger 设置日志器。
//
// 用于 init 失败和 onFinish panic 的记录。传入 nil 时保留 slog.Default()。
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *middlewareConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithRequestID 启用请求 ID 种子。
//
// 作用域开启后，若 Store 缺少 request_id 字段：优先取请求 Header 的值，
// 否则生成新的 UUID；并把最终值回显到响应 Header。
// header 为空字符串时使用 HeaderRequestID。
func WithRequestID(header string) Option {
	return func(cfg *middlewareConfig) {
		if header == "" {
			header = HeaderRequestID
		}
		cfg.requestIDHeader = header
	}
}

// WithTraceSeed 启用链路追踪种子。
//
// 作用域开启后，若请求 context 携带有效的 OpenTelemetry span 且 Store
// 缺少 trace_id 字段，把 trace_id/span_id 写入 Store，供日志属性和
// 下游业务读取。只读取 span context，不创建 span、不接出口。
func WithTraceSeed() Option {
	return func(cfg *middlewareConfig) {
		cfg.traceSeed = true
	}
}
