// Package xscopegrpc 提供 gRPC 服务端拦截器：一次 RPC 开启一个作用域。
//
// 控制流契约与 xscopehttp 一致：init 先于作用域执行且失败时作用域不开启
// （错误以 codes.Internal 走 RPC 的原生错误通道）；处理函数总是在已开启的
// 作用域内被调用；onFinish 每次 RPC 恰好执行一次（正常返回或客户端取消，
// 先到者生效），通过 live 绑定读取调用时刻的最新状态，内部 panic 被吞掉。
//
// 流式 RPC 通过包装 grpc.ServerStream 覆盖 Context() 实现作用域注入。
// 不做跨进程的状态传播——Store 只存在于本进程的动态范围内。
package xscopegrpc
