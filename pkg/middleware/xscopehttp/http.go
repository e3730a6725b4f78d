package xscopehttp

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/omeyang/scopekit/pkg/scope/xscope"
)

// =============================================================================
// 中间件
// =============================================================================

// Middleware 返回 HTTP 中间件：一个入站请求开启一个 eng 的作用域。
//
// eng 为 nil 时返回恒等中间件（不开启作用域，直接透传）。
func Middleware(eng *xscope.Engine, opts ...Option) func(http.Handler) http.Handler {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	return func(next http.Handler) http.Handler {
		if eng == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			store, err := buildInitialStore(r, cfg)
			if err != nil {
				// init 失败：作用域不开启，错误走宿主标准错误路径。
				// 错误详情只进日志，响应体不回显内部信息。
				cfg.logger.Error("xscopehttp: init hook failed",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Any("error", err),
				)
				http.Error(w, "scope init failed", http.StatusInternalServerError)
				return
			}

			_ = eng.Run(r.Context(), store, func(ctx context.Context) error {
				seedRequestID(ctx, eng, cfg, w, r)
				seedTrace(ctx, eng, cfg, r)

				if cfg.onStart != nil {
					cfg.onStart(w, r, eng.Get(ctx))
				}

				finish := finishFunc(ctx, eng, cfg, w, r)
				var once sync.Once

				// 收尾触发源有两个：处理函数返回（含 panic 展开）和客户端
				// 提前断开。done 先注册后关闭（defer LIFO），保证 watcher
				// 在 finish 之后退出，不泄漏 goroutine。
				done := make(chan struct{})
				defer close(done)
				defer once.Do(finish)
				go func() {
					select {
					case <-ctx.Done():
						once.Do(finish)
					case <-done:
					}
				}()

				next.ServeHTTP(w, r.WithContext(ctx))
				return nil
			})
		})
	}
}

// buildInitialStore 执行 init 钩子，作用域开启前的唯一失败点。
func buildInitialStore(r *http.Request, cfg *middlewareConfig) (xscope.Store, error) {
	if cfg.init == nil {
		return xscope.Store{}, nil
	}
	store, err := cfg.init(r)
	if err != nil {
		return nil, err
	}
	if store == nil {
		store = xscope.Store{}
	}
	return store, nil
}

// seedRequestID 补种请求 ID 并回显响应 Header。
//
// init 已提供的 request_id 优先；其次取请求 Header；最后生成 UUID。
func seedRequestID(ctx context.Context, eng *xscope.Engine, cfg *middlewareConfig, w http.ResponseWriter, r *http.Request) {
	if cfg.requestIDHeader == "" {
		return
	}
	rid, _ := eng.Value(ctx, KeyRequestID).(string)
	if rid == "" {
		rid = strings.TrimSpace(r.Header.Get(cfg.requestIDHeader))
		if rid == "" {
			rid = uuid.NewString()
		}
		eng.Set(ctx, xscope.Store{KeyRequestID: rid})
	}
	w.Header().Set(cfg.requestIDHeader, rid)
}

// seedTrace 从请求 context 中的 OpenTelemetry span 补种追踪字段。
func seedTrace(ctx context.Context, eng *xscope.Engine, cfg *middlewareConfig, r *http.Request) {
	if !cfg.traceSeed {
		return
	}
	if _, ok := eng.Lookup(ctx, KeyTraceID); ok {
		return
	}
	sc := trace.SpanContextFromContext(r.Context())
	if !sc.IsValid() {
		return
	}
	eng.Set(ctx, xscope.Store{
		KeyTraceID: sc.TraceID().String(),
		KeySpanID:  sc.SpanID().String(),
	})
}

// finishFunc 构造收尾闭包。
//
// onFinish 通过 live 绑定读取调用时刻的最新 Store——请求期间的全部 Set
// 都可见，而非作用域开启时的快照。钩子内的 panic 被记录后吞掉：收尾阶段
// 没有任何调用方能处理它。
func finishFunc(ctx context.Context, eng *xscope.Engine, cfg *middlewareConfig, w http.ResponseWriter, r *http.Request) func() {
	if cfg.onFinish == nil {
		return func() {}
	}

	b, ok := eng.Capture(ctx, xscope.BindLive)
	if !ok { // 不可达：本函数只在作用域内调用
		return func() {}
	}
	openFP := eng.Get(ctx).Fingerprint()

	return func() {
		defer func() {
			if rec := recover(); rec != nil {
				cfg.logger.Error("xscopehttp: onFinish hook panicked",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Any("panic", rec),
				)
			}
		}()

		store := eng.Get(b.Bind(context.Background()))
		cfg.logger.Debug("xscopehttp: request scope closing",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Bool("store_changed", store.Fingerprint() != openFP),
		)
		cfg.onFinish(w, r, store)
	}
}
