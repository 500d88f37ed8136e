package xcloudconfig

import "errors"

var (
	// ErrInvalidConfig 表示配置文件缺失、无法解析或内容不完整。
	ErrInvalidConfig = errors.New("xcloudconfig: invalid config")

	// ErrNotFound 表示在任何查找位置都没有找到 clouds 文件。
	// 总是与 ErrInvalidConfig 一起包装返回。
	ErrNotFound = errors.New("xcloudconfig: clouds file not found")

	// ErrUnknownCloud 表示 clouds 文件中没有指定名称的云。
	// 总是与 ErrInvalidConfig 一起包装返回。
	ErrUnknownCloud = errors.New("xcloudconfig: unknown cloud")

	// ErrMissingEnv 表示缺少必需的环境变量。
	ErrMissingEnv = errors.New("xcloudconfig: missing environment variables")

	// ErrUnsupportedAuthType 表示 auth_type 不受支持。
	ErrUnsupportedAuthType = errors.New("xcloudconfig: unsupported auth type")

	// ErrUnsupportedFormat 表示文件扩展名不是 yaml/yml/json。
	ErrUnsupportedFormat = errors.New("xcloudconfig: unsupported file format")
)
