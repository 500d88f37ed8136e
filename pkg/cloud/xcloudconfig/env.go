package xcloudconfig

import (
	"fmt"
	"strconv"
	"strings"
)

// EnvCloudName 环境变量来源的云名称。
const EnvCloudName = "envvars"

// FromEnv 从 OS_* 环境变量构造云配置。
//
// 设置了 OS_CLOUD 时委托给 LoadCloud。否则按认证方式检查必需变量：
//
//	password               OS_AUTH_URL、OS_USERNAME 或 OS_USER_ID、OS_PASSWORD
//	token                  OS_AUTH_URL、OS_TOKEN
//	application_credential OS_AUTH_URL、OS_APPLICATION_CREDENTIAL_SECRET、ID 或 NAME
//	none                   OS_ENDPOINT
//
// OS_AUTH_TYPE 未设置时按已设置的变量推断：OS_TOKEN → token，
// OS_APPLICATION_CREDENTIAL_SECRET → application_credential，否则 password。
// project 作用域可选，未设置时得到无作用域令牌。
func FromEnv(opts ...Option) (*CloudConfig, error) {
	o := applyOptions(opts)
	if name := o.env(EnvCloud); name != "" {
		return LoadCloud(name, opts...)
	}

	cfg := &CloudConfig{
		Name:       EnvCloudName,
		Source:     "env",
		AuthType:   o.env("OS_AUTH_TYPE"),
		RegionName: o.env("OS_REGION_NAME"),
		Interface:  o.env("OS_INTERFACE"),
		CACert:     o.env("OS_CACERT"),
		Cert:       o.env("OS_CERT"),
		Key:        o.env("OS_KEY"),
		Auth: AuthConfig{
			AuthURL:                     o.env("OS_AUTH_URL"),
			Username:                    o.env("OS_USERNAME"),
			UserID:                      o.env("OS_USER_ID"),
			Password:                    o.env("OS_PASSWORD"),
			UserDomainName:              o.env("OS_USER_DOMAIN_NAME"),
			UserDomainID:                o.env("OS_USER_DOMAIN_ID"),
			ProjectName:                 firstNonEmpty(o.env("OS_PROJECT_NAME"), o.env("OS_TENANT_NAME")),
			ProjectID:                   firstNonEmpty(o.env("OS_PROJECT_ID"), o.env("OS_TENANT_ID")),
			ProjectDomainName:           o.env("OS_PROJECT_DOMAIN_NAME"),
			ProjectDomainID:             o.env("OS_PROJECT_DOMAIN_ID"),
			DomainName:                  o.env("OS_DOMAIN_NAME"),
			DomainID:                    o.env("OS_DOMAIN_ID"),
			Token:                       o.env("OS_TOKEN"),
			ApplicationCredentialID:     o.env("OS_APPLICATION_CREDENTIAL_ID"),
			ApplicationCredentialName:   o.env("OS_APPLICATION_CREDENTIAL_NAME"),
			ApplicationCredentialSecret: o.env("OS_APPLICATION_CREDENTIAL_SECRET"),
			Endpoint:                    o.env("OS_ENDPOINT"),
		},
	}
	if cfg.AuthType == "" {
		cfg.AuthType = inferAuthType(cfg.Auth)
	}
	if raw := o.env("OS_INSECURE"); raw != "" {
		insecure, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: OS_INSECURE=%q: %w", ErrInvalidConfig, raw, err)
		}
		verify := !insecure
		cfg.Verify = &verify
	}
	if raw := o.env("OS_API_TIMEOUT"); raw != "" {
		timeout, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: OS_API_TIMEOUT=%q: %w", ErrInvalidConfig, raw, err)
		}
		cfg.APITimeout = timeout
	}

	cfg.ApplyDefaults()
	if missing := missingEnv(cfg); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(missing, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func inferAuthType(a AuthConfig) string {
	switch {
	case a.Token != "":
		return AuthTypeToken
	case a.ApplicationCredentialSecret != "":
		return AuthTypeApplicationCredential
	case a.AuthURL == "" && a.Endpoint != "":
		return AuthTypeNone
	default:
		return AuthTypePassword
	}
}

// missingEnv 返回当前认证方式缺少的必需变量。
func missingEnv(cfg *CloudConfig) []string {
	a := cfg.Auth
	var missing []string
	need := func(ok bool, name string) {
		if !ok {
			missing = append(missing, name)
		}
	}
	switch cfg.AuthType {
	case AuthTypePassword:
		need(a.AuthURL != "", "OS_AUTH_URL")
		need(a.Username != "" || a.UserID != "", "OS_USERNAME")
		need(a.Password != "", "OS_PASSWORD")
	case AuthTypeToken:
		need(a.AuthURL != "", "OS_AUTH_URL")
		need(a.Token != "", "OS_TOKEN")
	case AuthTypeApplicationCredential:
		need(a.AuthURL != "", "OS_AUTH_URL")
		need(a.ApplicationCredentialSecret != "", "OS_APPLICATION_CREDENTIAL_SECRET")
		need(a.ApplicationCredentialID != "" || a.ApplicationCredentialName != "", "OS_APPLICATION_CREDENTIAL_ID")
	case AuthTypeNone:
		need(a.Endpoint != "", "OS_ENDPOINT")
	}
	return missing
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
