package xcloudconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// 环境变量。
const (
	EnvCloud            = "OS_CLOUD"
	EnvClientConfigFile = "OS_CLIENT_CONFIG_FILE"
	EnvClientSecureFile = "OS_CLIENT_SECURE_FILE"
)

// keyDelim koanf 键分隔符。云名称常含 "."，因此不用默认的 "."。
const keyDelim = "/"

// 支持的文件扩展名，按优先级排列。
var extensions = []string{".yaml", ".yml", ".json"}

// =============================================================================
// File
// =============================================================================

// File 是已加载（并合并 secure 文件）的 clouds 配置。
type File struct {
	k          *koanf.Koanf
	path       string
	securePath string
}

// Load 查找并加载 clouds 文件与 secure 文件。
// 找不到 clouds 文件时返回同时匹配 ErrInvalidConfig 与 ErrNotFound 的错误。
func Load(opts ...Option) (*File, error) {
	o := applyOptions(opts)

	path := o.configFile
	if path == "" {
		path = o.env(EnvClientConfigFile)
	}
	if path == "" {
		path = findFile(o.searchDirs, "clouds")
	}
	if path == "" {
		return nil, fmt.Errorf("%w: %w: searched %s", ErrInvalidConfig, ErrNotFound, strings.Join(o.searchDirs, ", "))
	}

	k := koanf.New(keyDelim)
	if err := loadFile(k, path); err != nil {
		return nil, err
	}

	securePath := o.secureFile
	if securePath == "" {
		securePath = o.env(EnvClientSecureFile)
	}
	if securePath == "" {
		securePath = findFile(o.searchDirs, "secure")
	}
	if securePath != "" {
		if err := loadFile(k, securePath); err != nil {
			return nil, err
		}
	}

	o.logger.Debug("xcloudconfig: clouds file loaded",
		slog.String("path", path),
		slog.String("secure", securePath),
	)
	return &File{k: k, path: path, securePath: securePath}, nil
}

// LoadFromBytes 从内存数据加载，适用于 ConfigMap 等场景。
// secure 为空时不合并。
func LoadFromBytes(clouds []byte, format Format, secure []byte) (*File, error) {
	k := koanf.New(keyDelim)
	if err := loadData(k, clouds, format); err != nil {
		return nil, err
	}
	if len(secure) > 0 {
		if err := loadData(k, secure, format); err != nil {
			return nil, err
		}
	}
	return &File{k: k}, nil
}

// Path 返回 clouds 文件路径。
func (f *File) Path() string {
	return f.path
}

// SecurePath 返回合并的 secure 文件路径，未合并时为空。
func (f *File) SecurePath() string {
	return f.securePath
}

// Names 返回文件中定义的云名称（已排序）。
func (f *File) Names() []string {
	names := f.k.MapKeys("clouds")
	slices.Sort(names)
	return names
}

// Cloud 返回指定名称的云配置，已补全默认值并通过校验。
func (f *File) Cloud(name string) (*CloudConfig, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty cloud name", ErrInvalidConfig)
	}
	key := "clouds" + keyDelim + name
	if !slices.Contains(f.k.MapKeys("clouds"), name) {
		return nil, fmt.Errorf("%w: %w: %q", ErrInvalidConfig, ErrUnknownCloud, name)
	}

	cfg := &CloudConfig{}
	if err := f.k.UnmarshalWithConf(key, cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: cloud %q: %w", ErrInvalidConfig, name, err)
	}
	cfg.Name = name
	cfg.Source = f.path
	cfg.EndpointOverrides = f.endpointOverrides(key)

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// endpointOverrides 收集云配置下 "<service>_endpoint_override" 形式的键。
// 服务类型中的 "_" 与 "-" 等价，统一转换为 "-"（如 volumev3、object-store）。
func (f *File) endpointOverrides(key string) map[string]string {
	overrides := map[string]string{}
	for _, field := range f.k.MapKeys(key) {
		service, ok := strings.CutSuffix(field, endpointOverrideSuffix)
		if !ok || service == "" {
			continue
		}
		if url := f.k.String(key + keyDelim + field); url != "" {
			overrides[strings.ReplaceAll(service, "_", "-")] = url
		}
	}
	return overrides
}

// LoadCloud 查找 clouds 文件并返回指定名称的云配置。
func LoadCloud(name string, opts ...Option) (*CloudConfig, error) {
	f, err := Load(opts...)
	if err != nil {
		return nil, err
	}
	return f.Cloud(name)
}

// =============================================================================
// 内部辅助函数
// =============================================================================

// defaultSearchDirs 返回默认查找目录：当前目录、用户配置目录、/etc/openstack。
func defaultSearchDirs() []string {
	dirs := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", "openstack"))
	}
	return append(dirs, "/etc/openstack")
}

// findFile 按目录、扩展名顺序返回第一个存在的普通文件。
func findFile(dirs []string, base string) string {
	for _, dir := range dirs {
		for _, ext := range extensions {
			path := filepath.Join(dir, base+ext)
			info, err := os.Stat(path)
			if err == nil && info.Mode().IsRegular() {
				return path
			}
		}
	}
	return ""
}

func loadFile(k *koanf.Koanf, path string) error {
	format, err := detectFormat(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %w: %s", ErrInvalidConfig, ErrNotFound, path)
		}
		return fmt.Errorf("%w: read %s: %w", ErrInvalidConfig, path, err)
	}
	if err := loadData(k, data, format); err != nil {
		return fmt.Errorf("%w (%s)", err, path)
	}
	return nil
}

// Format 配置文件格式。
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// detectFormat 根据文件扩展名检测格式。
func detectFormat(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %w: unknown extension %q", ErrInvalidConfig, ErrUnsupportedFormat, ext)
	}
}

// loadData 解析数据并合并到 k。
func loadData(k *koanf.Koanf, data []byte, format Format) error {
	var parser koanf.Parser
	switch format {
	case FormatYAML:
		parser = yaml.Parser()
	case FormatJSON:
		parser = json.Parser()
	default:
		return fmt.Errorf("%w: %w: %q", ErrInvalidConfig, ErrUnsupportedFormat, format)
	}
	if len(data) == 0 {
		return nil
	}
	if err := k.Load(rawbytes.Provider(data), parser); err != nil {
		return fmt.Errorf("%w: parse: %w", ErrInvalidConfig, err)
	}
	return nil
}
