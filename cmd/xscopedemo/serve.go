package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/omeyang/scopekit/pkg/config/xscopeconf"
	"github.com/omeyang/scopekit/pkg/middleware/xscopehttp"
	"github.com/omeyang/scopekit/pkg/scope/xscope"
)

// shutdownTimeout 优雅关闭的等待上限。
const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	configPath string
	addr       string
	profile    string
}

// cmdServe 启动演示 HTTP 服务。
//
// 每个请求开启一个作用域，初始状态来自指定档案。配置文件被监视，
// 变更后新请求立即使用新档案，在途请求不受影响。
func cmdServe(ctx context.Context, opts serveOptions) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	profiles, err := xscopeconf.New(opts.configPath)
	if err != nil {
		return err
	}
	if _, ok := profiles.Profile(opts.profile); !ok {
		return fmt.Errorf("profile %q not found in %s", opts.profile, opts.configPath)
	}

	watcher, err := xscopeconf.Watch(profiles, func(_ xscopeconf.Profiles, err error) {
		if err != nil {
			logger.Error("profile reload failed", slog.Any("error", err))
			return
		}
		logger.Info("profiles reloaded")
	})
	if err != nil {
		return err
	}
	watcher.StartAsync()
	defer func() { _ = watcher.Stop() }()

	eng := xscope.New(xscope.WithName("xscopedemo"))

	middleware := xscopehttp.Middleware(eng,
		xscopehttp.WithTraceSeed(),
		xscopehttp.WithInit(func(*http.Request) (xscope.Store, error) {
			// Profile 每次返回深拷贝，热更新后新请求自动拿到新档案
			store, _ := profiles.Profile(opts.profile)
			return store, nil
		}),
		xscopehttp.WithOnFinish(func(_ http.ResponseWriter, r *http.Request, store xscope.Store) {
			logger.Info("request finished",
				slog.String("path", r.URL.Path),
				slog.Any("scope", map[string]any(store)),
			)
		}),
	)

	mux := http.NewServeMux()
	mux.Handle("/scope", middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleScope(eng, w, r)
	})))

	srv := &http.Server{
		Addr:              opts.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		logger.Info("listening", slog.String("addr", opts.addr), slog.String("profile", opts.profile))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// handleScope 回显当前作用域。演示处理函数内的读写。
func handleScope(eng *xscope.Engine, w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// 请求可通过 ?set=key:value 修改作用域，onFinish 日志会看到修改
	if kv := r.URL.Query().Get("set"); kv != "" {
		if k, v, ok := splitKV(kv); ok {
			eng.Set(ctx, xscope.Store{k: v})
		}
	}

	store, err := eng.Use(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any(store))
}

func splitKV(s string) (key, value string, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			return s[:i], s[i+1:], i > 0
		}
	}
	return "", "", false
}
