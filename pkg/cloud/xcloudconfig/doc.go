// Package xcloudconfig 从 clouds.yaml 与 OS_* 环境变量构造云会话。
//
// # 文件查找
//
// 依次尝试（首个存在的文件生效）：
//
//  1. $OS_CLIENT_CONFIG_FILE
//  2. ./clouds.{yaml,yml,json}
//  3. $HOME/.config/openstack/clouds.{yaml,yml,json}
//  4. /etc/openstack/clouds.{yaml,yml,json}
//
// secure 文件（$OS_CLIENT_SECURE_FILE 或同一组目录下的 secure.{yaml,yml,json}）
// 会合并覆盖到 clouds 文件之上，通常用于存放密码等敏感字段。
//
// # 认证方式
//
// auth_type 映射到 xidentity 的认证策略：
//
//	""、password、v3password                     → Password
//	token、v3token                               → TokenAuth
//	application_credential、v3applicationcredential → ApplicationCredential
//	none、noauth                                 → NoAuth
//
// 以名称引用用户或 project 而未给出 domain 时，domain 默认为 "Default"。
//
// # 环境变量
//
// FromEnv 在设置了 OS_CLOUD 时等价于 LoadCloud(OS_CLOUD)；
// 否则从 OS_AUTH_URL、OS_USERNAME、OS_PASSWORD 等变量构造配置，
// 缺少必需变量时返回 ErrMissingEnv。
package xcloudconfig
