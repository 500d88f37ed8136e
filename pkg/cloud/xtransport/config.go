package xtransport

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"time"
)

const (
	// DefaultTimeout 默认单次请求超时时间。
	DefaultTimeout = 60 * time.Second

	// DefaultMaxIdleConnsPerHost 每个主机的默认空闲连接数。
	DefaultMaxIdleConnsPerHost = 10
)

// ErrInvalidTimeout 表示超时配置无效。
var ErrInvalidTimeout = errors.New("xtransport: invalid timeout")

// HTTPConfig 定义 HTTP 传输配置。
type HTTPConfig struct {
	// Timeout 单次请求超时时间（包含读取响应头）。
	// 默认 60 秒。
	Timeout time.Duration

	// MaxIdleConnsPerHost 每个主机的最大空闲连接数。
	// 默认 10。
	MaxIdleConnsPerHost int

	// TLS TLS 配置，为 nil 时启用证书校验、最低 TLS 1.2。
	TLS *TLSConfig
}

// TLSConfig TLS 配置。
type TLSConfig struct {
	// InsecureSkipVerify 是否跳过证书验证。
	// 仅用于开发/测试环境，生产环境请勿启用。
	InsecureSkipVerify bool

	// RootCAFile CA 证书文件路径。
	RootCAFile string

	// CertFile 客户端证书文件路径。
	CertFile string

	// KeyFile 客户端密钥文件路径。
	KeyFile string
}

// Validate 验证配置有效性。
func (c *HTTPConfig) Validate() error {
	if c.Timeout < 0 {
		return ErrInvalidTimeout
	}
	return nil
}

// ApplyDefaults 应用默认值。
func (c *HTTPConfig) ApplyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxIdleConnsPerHost <= 0 {
		c.MaxIdleConnsPerHost = DefaultMaxIdleConnsPerHost
	}
}

// Clone 创建配置的深拷贝。
func (c *HTTPConfig) Clone() *HTTPConfig {
	if c == nil {
		return &HTTPConfig{}
	}
	clone := *c
	if c.TLS != nil {
		tlsCopy := *c.TLS
		clone.TLS = &tlsCopy
	}
	return &clone
}

// BuildTLSConfig 构建 *tls.Config。nil 接收者返回默认安全配置。
func (c *TLSConfig) BuildTLSConfig() (*tls.Config, error) {
	if c == nil {
		return &tls.Config{MinVersion: tls.VersionTLS12}, nil
	}

	//nolint:gosec // G402: InsecureSkipVerify 由用户显式配置
	tlsConfig := &tls.Config{
		InsecureSkipVerify: c.InsecureSkipVerify,
		MinVersion:         tls.VersionTLS12,
	}

	if c.RootCAFile != "" {
		caCert, err := os.ReadFile(c.RootCAFile)
		if err != nil {
			return nil, fmt.Errorf("xtransport: read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("xtransport: parse CA certificate %s", c.RootCAFile)
		}
		tlsConfig.RootCAs = pool
	}

	if c.CertFile != "" && c.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("xtransport: load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}
