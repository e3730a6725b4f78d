// Package xscopehttp 提供 net/http 中间件：一个入站请求开启一个作用域。
//
// 中间件的控制流契约：
//   - init 钩子先于作用域执行，可以阻塞（如查库构建初始状态）；init 失败时
//     作用域根本不会开启，错误走宿主的标准错误路径（500 响应 + 日志）
//   - next 总是在已开启的作用域内被同步调用，一个请求恰好一个作用域
//   - onStart 在作用域开启后立即同步执行
//   - onFinish 每个请求恰好执行一次：正常完成或客户端提前断开，先到者生效；
//     通过 live 绑定调用，看到的是调用时刻的最新状态（包含请求期间的全部
//     Set），而非作用域开启时的快照
//   - onFinish 内的 panic 被完全吞掉（记录日志），绝不让请求收尾击穿宿主；
//     处理函数自身的 panic 则在 onFinish 执行后原样向宿主传播
//
// 可选的请求 ID 与链路追踪种子（X-Request-ID 回显、OpenTelemetry span 提取）
// 通过 Option 启用。
package xscopehttp
