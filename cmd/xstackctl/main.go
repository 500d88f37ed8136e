// xstackctl 是云会话层的命令行诊断工具。
//
// 用法:
//
//	xstackctl [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	-c, --cloud       clouds 文件中的云名称（未设置时读取 OS_* 环境变量）
//	    --config      clouds 文件路径（默认按标准位置查找）
//	-r, --region      覆盖配置中的 Region
//	-i, --interface   覆盖配置中的接口类型 (public/internal/admin)
//	-t, --timeout     命令超时时间 (默认: 60s)
//	    --log-level   日志级别 (debug/info/warn/error，默认: warn)
//	    --log-file    日志文件路径，按大小轮转（默认输出到 stderr）
//
// 命令:
//
//	clouds                     列出 clouds 文件中的云
//	token                      认证并显示令牌信息
//	catalog                    显示服务目录
//	endpoint <service>         解析服务端点
//	request <method> <service> <path>
//	                           发送请求并输出响应体
//
// 退出码:
//
//	0: 成功
//	1: 执行失败（认证失败、服务端错误等）
//	2: 参数错误
//
// 示例:
//
//	xstackctl --cloud devstack token
//	xstackctl -c devstack endpoint compute --min-version 2.1
//	xstackctl -c devstack request GET compute /servers/detail
//	OS_CLOUD=devstack xstackctl catalog --json
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v3"
)

// defaultTimeout 默认超时时间。
const defaultTimeout = 60 * time.Second

// 版本信息（可通过 -ldflags 注入，例如:
//
//	go build -ldflags "-X main.Version=1.0.0 -X main.GitCommit=$(git rev-parse --short HEAD)"
//
// ）。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignalHandler(cancel)

	code := run(ctx, os.Args, os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// createApp 创建 CLI 应用。
func createApp(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "xstackctl",
		Usage:     "云会话层命令行诊断工具",
		Version:   fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "cloud",
				Aliases: []string{"c"},
				Usage:   "clouds 文件中的云名称，未设置时读取 OS_* 环境变量",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "clouds 文件路径",
			},
			&cli.StringFlag{
				Name:    "region",
				Aliases: []string{"r"},
				Usage:   "覆盖配置中的 Region",
			},
			&cli.StringFlag{
				Name:    "interface",
				Aliases: []string{"i"},
				Usage:   "覆盖配置中的接口类型 (public/internal/admin)",
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Aliases: []string{"t"},
				Usage:   "命令超时时间",
				Value:   defaultTimeout,
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "日志级别 (debug/info/warn/error)",
				Value: "warn",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "日志文件路径（按大小轮转）",
			},
		},
		Commands:       createCommands(),
		DefaultCommand: "help",
		Authors: []any{
			"XStack Team",
		},
		// 退出码由 run 统一映射，不让 urfave/cli 直接 os.Exit。
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(stderr, err)
			}
		},
	}
}

// run 执行命令并返回退出码。
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	app := createApp(stdout, stderr)

	if err := app.Run(ctx, args); err != nil {
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			fmt.Fprintf(stderr, "参数错误: %v\n", usageErr)
			return 2
		}
		if isCLIUsageError(err) {
			return 2
		}
		fmt.Fprintf(stderr, "错误: %v\n", err)
		return 1
	}
	return 0
}
