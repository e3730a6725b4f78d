package xscope_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/omeyang/scopekit/pkg/scope/xscope"
)

// =============================================================================
// Run 测试
// =============================================================================

func TestEngine_Run(t *testing.T) {
	t.Run("作用域内可读初始Store", func(t *testing.T) {
		eng := xscope.New()
		initial := xscope.Store{"a": 1, "b": map[string]any{"x": 1}}

		err := eng.Run(context.Background(), initial, func(ctx context.Context) error {
			got := eng.Get(ctx)
			if !reflect.DeepEqual(got, initial) {
				t.Errorf("Get() = %v, want %v", got, initial)
			}
			if v := eng.Value(ctx, "a"); v != 1 {
				t.Errorf("Value(a) = %v, want 1", v)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	})

	t.Run("初始Store被深拷贝", func(t *testing.T) {
		eng := xscope.New()
		initial := xscope.Store{"b": map[string]any{"x": 1}}

		_ = eng.Run(context.Background(), initial, func(ctx context.Context) error {
			// 作用域开启后修改调用方持有的 map，不应透入作用域
			initial["b"].(map[string]any)["x"] = 99
			if got := eng.Get(ctx)["b"].(map[string]any)["x"]; got != 1 {
				t.Errorf("作用域观察到调用方数据的修改: b.x = %v, want 1", got)
			}
			return nil
		})
	})

	t.Run("fn错误原样返回", func(t *testing.T) {
		eng := xscope.New()
		wantErr := errors.New("boom")
		err := eng.Run(context.Background(), nil, func(ctx context.Context) error {
			return wantErr
		})
		if !errors.Is(err, wantErr) {
			t.Errorf("Run() error = %v, want %v", err, wantErr)
		}
	})

	t.Run("退出后外层无作用域", func(t *testing.T) {
		eng := xscope.New()
		ctx := context.Background()
		_ = eng.Run(ctx, xscope.Store{"a": 1}, func(context.Context) error { return nil })
		if eng.Has(ctx) {
			t.Error("Run 返回后调用方 ctx 仍有作用域")
		}
	})

	t.Run("fn panic后外层状态完好", func(t *testing.T) {
		eng := xscope.New()
		outer := xscope.Store{"a": 1}

		_ = eng.Run(context.Background(), outer, func(ctx context.Context) error {
			func() {
				defer func() { _ = recover() }()
				_ = eng.Run(ctx, xscope.Store{"a": 99}, func(context.Context) error {
					panic("inner blew up")
				})
			}()
			// 内层 panic 后外层 Store 原样可用
			if got := eng.Value(ctx, "a"); got != 1 {
				t.Errorf("panic 后外层 a = %v, want 1", got)
			}
			return nil
		})
	})

	t.Run("嵌套Run是兄弟独立作用域", func(t *testing.T) {
		eng := xscope.New()
		_ = eng.Run(context.Background(), xscope.Store{"a": 1, "k": "outer"}, func(ctx context.Context) error {
			return eng.Run(ctx, xscope.Store{"b": 2}, func(inner context.Context) error {
				got := eng.Get(inner)
				if _, ok := got["a"]; ok {
					t.Error("嵌套 Run 继承了外层字段，want 独立作用域")
				}
				if got["b"] != 2 {
					t.Errorf("b = %v, want 2", got["b"])
				}
				return nil
			})
		})
	})

	t.Run("nil context返回ErrNilContext", func(t *testing.T) {
		eng := xscope.New()
		var nilCtx context.Context
		err := eng.Run(nilCtx, nil, func(context.Context) error { return nil })
		if !errors.Is(err, xscope.ErrNilContext) {
			t.Errorf("Run(nil ctx) error = %v, want ErrNilContext", err)
		}
	})

	t.Run("nil fn返回ErrNilFunc", func(t *testing.T) {
		eng := xscope.New()
		err := eng.Run(context.Background(), nil, nil)
		if !errors.Is(err, xscope.ErrNilFunc) {
			t.Errorf("Run(nil fn) error = %v, want ErrNilFunc", err)
		}
	})
}

// =============================================================================
// With 测试
// =============================================================================

func TestEngine_With(t *testing.T) {
	t.Run("派生作用域合并patch", func(t *testing.T) {
		eng := xscope.New()
		_ = eng.Run(context.Background(), xscope.Store{"a": 1, "b": 2}, func(ctx context.Context) error {
			return eng.With(ctx, xscope.Store{"b": 3}, func(inner context.Context) error {
				want := xscope.Store{"a": 1, "b": 3}
				if got := eng.Get(inner); !reflect.DeepEqual(got, want) {
					t.Errorf("Get() = %v, want %v", got, want)
				}
				return nil
			})
		})
	})

	t.Run("内层Set不传播到外层", func(t *testing.T) {
		eng := xscope.New()
		_ = eng.Run(context.Background(), xscope.Store{"a": 1, "b": 2}, func(ctx context.Context) error {
			_ = eng.With(ctx, xscope.Store{"b": 3}, func(inner context.Context) error {
				eng.Set(inner, xscope.Store{"a": 10})
				want := xscope.Store{"a": 10, "b": 3}
				if got := eng.Get(inner); !reflect.DeepEqual(got, want) {
					t.Errorf("内层 Get() = %v, want %v", got, want)
				}
				return nil
			})
			want := xscope.Store{"a": 1, "b": 2}
			if got := eng.Get(ctx); !reflect.DeepEqual(got, want) {
				t.Errorf("外层 Get() = %v, want %v", got, want)
			}
			return nil
		})
	})

	t.Run("fn抛错后外层字段原样", func(t *testing.T) {
		eng := xscope.New()
		boom := errors.New("boom")
		_ = eng.Run(context.Background(), xscope.Store{"a": 1}, func(ctx context.Context) error {
			err := eng.With(ctx, xscope.Store{"a": 99}, func(inner context.Context) error {
				eng.Set(inner, xscope.Store{"a": 100})
				return boom
			})
			if !errors.Is(err, boom) {
				t.Errorf("With() error = %v, want %v", err, boom)
			}
			if got := eng.Value(ctx, "a"); got != 1 {
				t.Errorf("With 抛错后外层 a = %v, want 1", got)
			}
			return nil
		})
	})

	t.Run("无外层作用域时视为空Store", func(t *testing.T) {
		eng := xscope.New()
		err := eng.With(context.Background(), xscope.Store{"a": 1}, func(ctx context.Context) error {
			want := xscope.Store{"a": 1}
			if got := eng.Get(ctx); !reflect.DeepEqual(got, want) {
				t.Errorf("Get() = %v, want %v", got, want)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("With() error = %v", err)
		}
	})

	t.Run("派生后父作用域的修改不影响子作用域", func(t *testing.T) {
		eng := xscope.New()
		_ = eng.Run(context.Background(), xscope.Store{"a": 1}, func(ctx context.Context) error {
			entered := make(chan struct{})
			release := make(chan struct{})
			done := make(chan struct{})

			go func() {
				defer close(done)
				_ = eng.With(ctx, xscope.Store{"b": 2}, func(inner context.Context) error {
					close(entered)
					<-release
					// 父作用域在派生之后的 Set 不应影响已派生的子作用域
					if got := eng.Value(inner, "a"); got != 1 {
						t.Errorf("子作用域观察到父的后续修改: a = %v, want 1", got)
					}
					return nil
				})
			}()

			<-entered
			eng.Set(ctx, xscope.Store{"a": 99})
			close(release)
			<-done
			return nil
		})
	})
}

// =============================================================================
// 泛型变体测试
// =============================================================================

func TestRunValue(t *testing.T) {
	t.Run("返回fn结果", func(t *testing.T) {
		eng := xscope.New()
		got, err := xscope.RunValue(eng, context.Background(), xscope.Store{"a": 41}, func(ctx context.Context) (int, error) {
			return eng.Value(ctx, "a").(int) + 1, nil
		})
		if err != nil {
			t.Fatalf("RunValue() error = %v", err)
		}
		if got != 42 {
			t.Errorf("RunValue() = %d, want 42", got)
		}
	})

	t.Run("fn错误时返回零值", func(t *testing.T) {
		eng := xscope.New()
		boom := errors.New("boom")
		got, err := xscope.RunValue(eng, context.Background(), nil, func(context.Context) (string, error) {
			return "partial", boom
		})
		if !errors.Is(err, boom) {
			t.Errorf("RunValue() error = %v, want %v", err, boom)
		}
		_ = got
	})

	t.Run("nil fn返回ErrNilFunc", func(t *testing.T) {
		eng := xscope.New()
		_, err := xscope.RunValue[int](eng, context.Background(), nil, nil)
		if !errors.Is(err, xscope.ErrNilFunc) {
			t.Errorf("RunValue(nil fn) error = %v, want ErrNilFunc", err)
		}
	})
}

func TestWithValue(t *testing.T) {
	eng := xscope.New()
	_ = eng.Run(context.Background(), xscope.Store{"who": "outer"}, func(ctx context.Context) error {
		got, err := xscope.WithValue(eng, ctx, xscope.Store{"who": "inner"}, func(inner context.Context) (string, error) {
			return eng.Value(inner, "who").(string), nil
		})
		if err != nil {
			t.Fatalf("WithValue() error = %v", err)
		}
		if got != "inner" {
			t.Errorf("WithValue() = %q, want %q", got, "inner")
		}
		return nil
	})
}

// =============================================================================
// 隔离性测试
// =============================================================================

func TestEngine_ScopeIsolation(t *testing.T) {
	t.Run("并发作用域互不可见", func(t *testing.T) {
		eng := xscope.New()
		g := new(errgroup.Group)

		for i := 0; i < 16; i++ {
			id := fmt.Sprintf("scope-%d", i)
			g.Go(func() error {
				return eng.Run(context.Background(), xscope.Store{"id": id}, func(ctx context.Context) error {
					for j := 0; j < 100; j++ {
						eng.Set(ctx, xscope.Store{"seq": j})
						if got := eng.Value(ctx, "id"); got != id {
							return fmt.Errorf("作用域串扰: id = %v, want %v", got, id)
						}
					}
					return nil
				})
			})
		}
		if err := g.Wait(); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("共享同一initial的并发作用域互不影响", func(t *testing.T) {
		eng := xscope.New()
		shared := xscope.Store{"n": 0}
		g := new(errgroup.Group)

		for i := 0; i < 8; i++ {
			n := i
			g.Go(func() error {
				return eng.Run(context.Background(), shared, func(ctx context.Context) error {
					eng.Set(ctx, xscope.Store{"n": n})
					if got := eng.Value(ctx, "n"); got != n {
						return fmt.Errorf("n = %v, want %v", got, n)
					}
					return nil
				})
			})
		}
		if err := g.Wait(); err != nil {
			t.Fatal(err)
		}
		if shared["n"] != 0 {
			t.Errorf("调用方持有的 initial 被修改: n = %v, want 0", shared["n"])
		}
	})

	t.Run("多个Engine互不干扰", func(t *testing.T) {
		engA := xscope.New(xscope.WithName("engine-a"))
		engB := xscope.New(xscope.WithName("engine-b"))

		_ = engA.Run(context.Background(), xscope.Store{"who": "a"}, func(ctx context.Context) error {
			if engB.Has(ctx) {
				t.Error("Engine B 看到了 Engine A 的作用域")
			}
			return engB.Run(ctx, xscope.Store{"who": "b"}, func(ctx context.Context) error {
				if got := engA.Value(ctx, "who"); got != "a" {
					t.Errorf("engA.Value(who) = %v, want a", got)
				}
				if got := engB.Value(ctx, "who"); got != "b" {
					t.Errorf("engB.Value(who) = %v, want b", got)
				}
				return nil
			})
		})
	})
}

// =============================================================================
// 合并策略定制测试
// =============================================================================

func TestEngine_WithMerge(t *testing.T) {
	t.Run("定制合并策略生效", func(t *testing.T) {
		// 只保留 patch 字段的极端策略，验证策略确实可替换
		replaceAll := func(prev, patch xscope.Store) xscope.Store {
			return patch.Clone()
		}
		eng := xscope.New(xscope.WithMerge(replaceAll))

		_ = eng.Run(context.Background(), xscope.Store{"a": 1, "b": 2}, func(ctx context.Context) error {
			eng.Set(ctx, xscope.Store{"c": 3})
			want := xscope.Store{"c": 3}
			if got := eng.Get(ctx); !reflect.DeepEqual(got, want) {
				t.Errorf("Get() = %v, want %v", got, want)
			}
			return nil
		})
	})

	t.Run("nil策略保留默认", func(t *testing.T) {
		eng := xscope.New(xscope.WithMerge(nil))
		_ = eng.Run(context.Background(), xscope.Store{"a": 1}, func(ctx context.Context) error {
			eng.Set(ctx, xscope.Store{"b": 2})
			want := xscope.Store{"a": 1, "b": 2}
			if got := eng.Get(ctx); !reflect.DeepEqual(got, want) {
				t.Errorf("Get() = %v, want %v", got, want)
			}
			return nil
		})
	})
}

func TestEngine_Name(t *testing.T) {
	if got := xscope.New().Name(); got != "xscope" {
		t.Errorf("默认 Name() = %q, want %q", got, "xscope")
	}
	if got := xscope.New(xscope.WithName("req")).Name(); got != "req" {
		t.Errorf("Name() = %q, want %q", got, "req")
	}
}
