// xscopedemo 是 scopekit 的演示服务。
//
// 用法:
//
//	xscopedemo [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	-c, --config   档案配置文件路径 (默认: profiles.yaml)
//
// 命令:
//
//	serve          启动演示 HTTP 服务（每个请求一个作用域）
//	profiles       列出配置文件中的档案
//	help           显示帮助信息
//
// 退出码:
//
//	0: 命令执行成功
//	1: 命令执行失败
//	2: 参数错误（未知命令、无效 flag 等）
//
// 示例:
//
//	xscopedemo profiles                       # 列出档案
//	xscopedemo serve                          # 以 web 档案启动服务
//	xscopedemo serve --profile batch          # 指定档案
//	xscopedemo -c /etc/app/profiles.yaml serve --addr :9090
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

// 版本信息（可通过 -ldflags 注入）。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run())
}

// createApp 创建 CLI 应用。
func createApp() *cli.Command {
	return &cli.Command{
		Name:    "xscopedemo",
		Usage:   "scopekit 请求作用域演示服务",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "档案配置文件路径",
				Value:   "profiles.yaml",
			},
		},
		Commands:       createCommands(),
		DefaultCommand: "help",
		// 退出码映射由 run() 统一处理，禁止框架直接 os.Exit
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(os.Stderr, err)
			}
		},
	}
}

func run() int {
	app := createApp()

	if err := app.Run(context.Background(), os.Args); err != nil {
		if _, ok := err.(cli.ExitCoder); ok {
			return 2
		}
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		return 1
	}

	return 0
}
