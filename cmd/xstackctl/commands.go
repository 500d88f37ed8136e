package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xstack/pkg/cloud/xcatalog"
	"github.com/omeyang/xstack/pkg/cloud/xcloudconfig"
	"github.com/omeyang/xstack/pkg/cloud/xsession"
)

// usageError 表示参数错误，退出码 2。
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// 创建所有子命令。
func createCommands() []*cli.Command {
	return []*cli.Command{
		createCloudsCommand(),
		createTokenCommand(),
		createCatalogCommand(),
		createEndpointCommand(),
		createRequestCommand(),
	}
}

// createCloudsCommand 创建 clouds 子命令。
func createCloudsCommand() *cli.Command {
	return &cli.Command{
		Name:  "clouds",
		Usage: "列出 clouds 文件中的云",
		Action: func(_ context.Context, cmd *cli.Command) error {
			var opts []xcloudconfig.Option
			if path := cmd.String("config"); path != "" {
				opts = append(opts, xcloudconfig.WithConfigFile(path))
			}
			f, err := xcloudconfig.Load(opts...)
			if err != nil {
				return err
			}
			out := cmd.Root().Writer
			fmt.Fprintf(out, "# %s\n", f.Path())
			for _, name := range f.Names() {
				fmt.Fprintln(out, name)
			}
			return nil
		},
	}
}

// createTokenCommand 创建 token 子命令。
func createTokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "认证并显示令牌信息",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "reveal",
				Usage: "输出令牌原文",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withSession(ctx, cmd, func(ctx context.Context, cfg *xcloudconfig.CloudConfig, sess *xsession.Session) error {
				return cmdToken(ctx, cmd.Root().Writer, cfg, sess, cmd.Bool("reveal"))
			})
		},
	}
}

// createCatalogCommand 创建 catalog 子命令。
func createCatalogCommand() *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "显示服务目录",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "以 JSON 输出",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withSession(ctx, cmd, func(ctx context.Context, _ *xcloudconfig.CloudConfig, sess *xsession.Session) error {
				return cmdCatalog(ctx, cmd.Root().Writer, sess, cmd.Bool("json"))
			})
		},
	}
}

// createEndpointCommand 创建 endpoint 子命令。
func createEndpointCommand() *cli.Command {
	return &cli.Command{
		Name:      "endpoint",
		Usage:     "解析服务端点",
		ArgsUsage: "<service>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "min-version",
				Usage: "最低 API 版本，例如 2.1",
			},
			&cli.StringFlag{
				Name:  "max-version",
				Usage: "最高 API 版本",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return usagef("endpoint 需要且仅需要一个服务类型参数")
			}
			query, err := endpointQuery(cmd.Args().First(), cmd.String("min-version"), cmd.String("max-version"))
			if err != nil {
				return err
			}
			return withSession(ctx, cmd, func(ctx context.Context, _ *xcloudconfig.CloudConfig, sess *xsession.Session) error {
				ep, err := sess.Endpoint(ctx, query)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.Root().Writer, ep.URL)
				return nil
			})
		},
	}
}

// createRequestCommand 创建 request 子命令。
func createRequestCommand() *cli.Command {
	return &cli.Command{
		Name:      "request",
		Usage:     "发送请求并输出响应体",
		ArgsUsage: "<method> <service|-> <path>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "请求体，以 @ 开头时读取文件",
			},
			&cli.StringSliceFlag{
				Name:    "header",
				Aliases: []string{"H"},
				Usage:   "请求头，格式 \"Name: value\"",
			},
			&cli.StringSliceFlag{
				Name:    "query",
				Aliases: []string{"q"},
				Usage:   "查询参数，格式 key=value",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			req, err := buildRequest(cmd.Args().Slice(), cmd.String("data"), cmd.StringSlice("header"), cmd.StringSlice("query"))
			if err != nil {
				return err
			}
			return withSession(ctx, cmd, func(ctx context.Context, _ *xcloudconfig.CloudConfig, sess *xsession.Session) error {
				return cmdRequest(ctx, cmd.Root().Writer, cmd.Root().ErrWriter, sess, req)
			})
		},
	}
}

// =============================================================================
// 命令实现
// =============================================================================

// withSession 构造日志、配置与会话后执行 fn，返回前关闭会话与日志文件。
func withSession(ctx context.Context, cmd *cli.Command, fn func(context.Context, *xcloudconfig.CloudConfig, *xsession.Session) error) error {
	timeout := cmd.Duration("timeout")
	if timeout <= 0 {
		return usagef("无效的超时时间: %s", timeout)
	}

	logger, closeLog, err := newLogger(cmd.String("log-level"), cmd.String("log-file"), cmd.Root().ErrWriter)
	if err != nil {
		return err
	}
	defer closeLog()

	cfg, err := loadCloud(cmd, logger)
	if err != nil {
		return err
	}

	sess, err := xcloudconfig.NewSession(cfg, xcloudconfig.WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return fn(ctx, cfg, sess)
}

// loadCloud 按 --cloud 读取 clouds 文件，未指定时读取环境变量，并应用命令行覆盖。
func loadCloud(cmd *cli.Command, logger *slog.Logger) (*xcloudconfig.CloudConfig, error) {
	opts := []xcloudconfig.Option{xcloudconfig.WithLogger(logger)}
	if path := cmd.String("config"); path != "" {
		opts = append(opts, xcloudconfig.WithConfigFile(path))
	}

	var (
		cfg *xcloudconfig.CloudConfig
		err error
	)
	if name := cmd.String("cloud"); name != "" {
		cfg, err = xcloudconfig.LoadCloud(name, opts...)
	} else {
		cfg, err = xcloudconfig.FromEnv(opts...)
	}
	if err != nil {
		return nil, err
	}

	if region := cmd.String("region"); region != "" {
		cfg.RegionName = region
	}
	if iface := cmd.String("interface"); iface != "" {
		if _, err := xcatalog.ParseInterface(iface); err != nil {
			return nil, usagef("%v", err)
		}
		cfg.Interface = iface
	}
	return cfg, nil
}

func cmdToken(ctx context.Context, out io.Writer, cfg *xcloudconfig.CloudConfig, sess *xsession.Session, reveal bool) error {
	cred, err := sess.Credential(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "cloud:       %s\n", cfg.Name)
	fmt.Fprintf(out, "auth_type:   %s\n", cfg.AuthType)
	if cred.Token.IsZero() {
		fmt.Fprintln(out, "token:       (none)")
		return nil
	}
	fmt.Fprintf(out, "expires_at:  %s\n", cred.Token.ExpiresAt().UTC().Format(time.RFC3339))
	fmt.Fprintf(out, "ttl:         %s\n", cred.Token.TTL(time.Now()).Truncate(time.Second))
	if cred.UserID != "" {
		fmt.Fprintf(out, "user_id:     %s\n", cred.UserID)
	}
	if cred.ProjectID != "" {
		fmt.Fprintf(out, "project_id:  %s\n", cred.ProjectID)
	}
	fmt.Fprintf(out, "services:    %d\n", cred.Catalog.Len())
	if reveal {
		fmt.Fprintf(out, "token:       %s\n", cred.Token.Value())
	}
	return nil
}

func cmdCatalog(ctx context.Context, out io.Writer, sess *xsession.Session, asJSON bool) error {
	cred, err := sess.Credential(ctx)
	if err != nil {
		return err
	}
	services := cred.Catalog.Services()

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(services)
	}
	for _, svc := range services {
		for _, ep := range svc.Endpoints {
			region := ep.Region
			if region == "" {
				region = "*"
			}
			fmt.Fprintf(out, "%-16s %-9s %-12s %s\n", svc.Type, ep.Interface, region, ep.URL)
		}
	}
	return nil
}

func cmdRequest(ctx context.Context, out, errOut io.Writer, sess *xsession.Session, req *xsession.Request) error {
	resp, err := sess.Do(ctx, req)
	if err != nil {
		if apiErr, ok := xsession.IsAPIError(err); ok && len(apiErr.Body) > 0 {
			fmt.Fprintf(errOut, "%s\n", apiErr.Body)
		}
		return err
	}
	defer func() { _ = resp.Close() }()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("读取响应体: %w", err)
	}
	return nil
}

// =============================================================================
// 参数解析
// =============================================================================

func endpointQuery(service, minVersion, maxVersion string) (xcatalog.EndpointQuery, error) {
	q := xcatalog.EndpointQuery{ServiceType: service}
	if minVersion != "" {
		v, err := xcatalog.ParseVersion(minVersion)
		if err != nil {
			return q, usagef("%v", err)
		}
		q.Version.Min = v
	}
	if maxVersion != "" {
		v, err := xcatalog.ParseVersion(maxVersion)
		if err != nil {
			return q, usagef("%v", err)
		}
		q.Version.Max = v
	}
	return q, nil
}

// buildRequest 把 request 子命令参数转换为会话请求。服务类型为 "-" 时 path 须为完整 URL。
func buildRequest(args []string, data string, headers, query []string) (*xsession.Request, error) {
	if len(args) != 3 {
		return nil, usagef("request 需要 <method> <service|-> <path> 三个参数")
	}
	req := &xsession.Request{
		Method:  strings.ToUpper(args[0]),
		Service: args[1],
		Path:    args[2],
		Header:  make(http.Header, len(headers)),
	}
	if req.Service == "-" {
		req.Service = ""
	}

	for _, h := range headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, usagef("无效的请求头 %q，格式应为 \"Name: value\"", h)
		}
		req.Header.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	if len(query) > 0 {
		req.Query = make(url.Values, len(query))
		for _, kv := range query {
			k, v, ok := strings.Cut(kv, "=")
			if !ok || k == "" {
				return nil, usagef("无效的查询参数 %q，格式应为 key=value", kv)
			}
			req.Query.Add(k, v)
		}
	}

	if data != "" {
		if path, ok := strings.CutPrefix(data, "@"); ok {
			body, err := os.ReadFile(path)
			if err != nil {
				return nil, usagef("读取请求体文件: %v", err)
			}
			req.Body = body
		} else {
			req.Body = []byte(data)
		}
	}
	return req, nil
}

// isCLIUsageError 判断是否为 CLI 框架产生的参数错误（未知 flag、flag 值无效等）。
func isCLIUsageError(err error) bool {
	if err == nil {
		return false
	}
	var usageErr *usageError
	if errors.As(err, &usageErr) {
		return true
	}
	msg := err.Error()
	for _, marker := range []string{
		"flag provided but not defined",
		"invalid value",
		"No help topic for",
		"Required flag",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// setupSignalHandler 设置信号处理。
// 第一次信号取消 context，第二次信号强制退出（退出码 130 = 128 + SIGINT）。
func setupSignalHandler(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()

		<-sigCh
		signal.Stop(sigCh)
		os.Exit(130)
	}()
}
