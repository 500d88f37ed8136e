package main

import (
	"io"
	"log/slog"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// 日志文件轮转参数。
const (
	logMaxSizeMB  = 10
	logMaxBackups = 3
	logMaxAgeDays = 7
)

// newLogger 创建文本格式的 slog 日志器。
// file 非空时写入按大小轮转的文件，否则写入 stderr。返回的 close 函数释放文件句柄。
func newLogger(level, file string, stderr io.Writer) (*slog.Logger, func(), error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, nil, usagef("无效的日志级别 %q", level)
	}

	w := stderr
	closeFn := func() {}
	if file != "" {
		rotator := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    logMaxSizeMB,
			MaxBackups: logMaxBackups,
			MaxAge:     logMaxAgeDays,
			Compress:   true,
		}
		w = rotator
		closeFn = func() { _ = rotator.Close() }
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler), closeFn, nil
}
