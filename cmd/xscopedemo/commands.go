package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/scopekit/pkg/config/xscopeconf"
)

// 创建所有子命令。
func createCommands() []*cli.Command {
	return []*cli.Command{
		createServeCommand(),
		createProfilesCommand(),
	}
}

// createServeCommand 创建 serve 子命令。
func createServeCommand() *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "启动演示 HTTP 服务",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Aliases: []string{"a"},
				Usage:   "监听地址",
				Value:   ":8080",
			},
			&cli.StringFlag{
				Name:    "profile",
				Aliases: []string{"p"},
				Usage:   "服务使用的档案名",
				Value:   "web",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cmdServe(ctx, serveOptions{
				configPath: cmd.String("config"),
				addr:       cmd.String("addr"),
				profile:    cmd.String("profile"),
			})
		},
	}
}

// createProfilesCommand 创建 profiles 子命令。
func createProfilesCommand() *cli.Command {
	return &cli.Command{
		Name:    "profiles",
		Aliases: []string{"ls"},
		Usage:   "列出配置文件中的档案",
		Action: func(_ context.Context, cmd *cli.Command) error {
			return cmdProfiles(os.Stdout, cmd.String("config"))
		},
	}
}

// cmdProfiles 打印档案名及合并后的键值。
func cmdProfiles(w io.Writer, configPath string) error {
	p, err := xscopeconf.New(configPath)
	if err != nil {
		return err
	}

	names := p.Names()
	if len(names) == 0 {
		fmt.Fprintln(w, "(no profiles)")
		return nil
	}

	for _, name := range names {
		store, _ := p.Profile(name)
		fmt.Fprintf(w, "%s:\n", name)

		for _, k := range store.Keys() {
			fmt.Fprintf(w, "  %s = %v\n", k, store[k])
		}
	}
	return nil
}
