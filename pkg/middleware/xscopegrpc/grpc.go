package xscopegrpc

import (
	"context"
	"log/slog"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/omeyang/scopekit/pkg/scope/xscope"
)

// =============================================================================
// 一元拦截器
// =============================================================================

// UnaryServerInterceptor 返回 gRPC 一元拦截器：一次 RPC 开启一个 eng 的作用域。
//
// eng 为 nil 时返回恒等拦截器（不开启作用域，直接透传）。
func UnaryServerInterceptor(eng *xscope.Engine, opts ...Option) grpc.UnaryServerInterceptor {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if eng == nil {
			return handler(ctx, req)
		}

		store, err := buildInitialStore(ctx, info.FullMethod, cfg)
		if err != nil {
			return nil, err
		}

		var resp any
		runErr := eng.Run(ctx, store, func(scopeCtx context.Context) error {
			cleanup := openScope(scopeCtx, eng, cfg, info.FullMethod)
			defer cleanup()

			var err error
			resp, err = handler(scopeCtx, req)
			return err
		})
		return resp, runErr
	}
}

// =============================================================================
// 流式拦截器
// =============================================================================

// StreamServerInterceptor 返回 gRPC 流式拦截器。
//
// 作用域覆盖整个流的生命周期：流处理函数及其全部消息收发都在作用域内。
func StreamServerInterceptor(eng *xscope.Engine, opts ...Option) grpc.StreamServerInterceptor {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		if eng == nil {
			return handler(srv, ss)
		}

		store, err := buildInitialStore(ss.Context(), info.FullMethod, cfg)
		if err != nil {
			return err
		}

		return eng.Run(ss.Context(), store, func(scopeCtx context.Context) error {
			cleanup := openScope(scopeCtx, eng, cfg, info.FullMethod)
			defer cleanup()
			return handler(srv, &wrappedServerStream{ServerStream: ss, ctx: scopeCtx})
		})
	}
}

// wrappedServerStream 包装 ServerStream 以覆盖 Context。
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context 返回关联了作用域的 context。
func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}

// =============================================================================
// 生命周期实现
// =============================================================================

// buildInitialStore 执行 init 钩子，作用域开启前的唯一失败点。
//
// init 失败以 codes.Internal 走 RPC 原生错误通道；错误详情只进日志。
func buildInitialStore(ctx context.Context, fullMethod string, cfg *interceptorConfig) (xscope.Store, error) {
	if cfg.init == nil {
		return xscope.Store{}, nil
	}
	store, err := cfg.init(ctx, fullMethod)
	if err != nil {
		cfg.logger.Error("xscopegrpc: init hook failed",
			slog.String("method", fullMethod),
			slog.Any("error", err),
		)
		return nil, status.Error(codes.Internal, "scope init failed")
	}
	if store == nil {
		store = xscope.Store{}
	}
	return store, nil
}

// openScope 执行 onStart 并装配收尾触发：处理函数返回（含 panic 展开）
// 和客户端取消，先到者生效。返回的 cleanup 必须 defer 调用。
func openScope(scopeCtx context.Context, eng *xscope.Engine, cfg *interceptorConfig, fullMethod string) func() {
	if cfg.onStart != nil {
		cfg.onStart(scopeCtx, fullMethod, eng.Get(scopeCtx))
	}

	finish := finishFunc(scopeCtx, eng, cfg, fullMethod)
	var once sync.Once
	done := make(chan struct{})
	go func() {
		select {
		case <-scopeCtx.Done():
			once.Do(finish)
		case <-done:
		}
	}()

	return func() {
		once.Do(finish)
		close(done)
	}
}

// finishFunc 构造收尾闭包：live 绑定读取最新状态，panic 被吞掉。
func finishFunc(scopeCtx context.Context, eng *xscope.Engine, cfg *interceptorConfig, fullMethod string) func() {
	if cfg.onFinish == nil {
		return func() {}
	}

	b, ok := eng.Capture(scopeCtx, xscope.BindLive)
	if !ok { // 不可达：本函数只在作用域内调用
		return func() {}
	}

	return func() {
		defer func() {
			if rec := recover(); rec != nil {
				cfg.logger.Error("xscopegrpc: onFinish hook panicked",
					slog.String("method", fullMethod),
					slog.Any("panic", rec),
				)
			}
		}()
		cfg.onFinish(scopeCtx, fullMethod, eng.Get(b.Bind(context.Background())))
	}
}
