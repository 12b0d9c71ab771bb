package config

import (
	"os"
	"strings"
)

// GetSecretOrEnv 从 Docker Secret 文件或环境变量读取敏感信息
// 优先级: {NAME}_FILE 指定的文件 > {NAME} 环境变量 > 默认值
func GetSecretOrEnv(name string, defaultValue string) string {
	if filePath := os.Getenv(name + "_FILE"); filePath != "" {
		if data, err := os.ReadFile(filePath); err == nil {
			return strings.TrimSpace(string(data))
		}
	}
	if value := os.Getenv(name); value != "" {
		return value
	}
	return defaultValue
}

// SecretDefinition Secret 定义
type SecretDefinition struct {
	Name     string  // Secret 名称 (如 TOKEN_SECRET)
	Target   *string // 目标字段指针
	Default  string  // 默认值
	Required bool    // 是否必需
}

// SecretNotFoundError Secret 未找到错误
type SecretNotFoundError struct {
	Name string
}

func (e *SecretNotFoundError) Error() string {
	return "required secret not found: " + e.Name
}

// ApplySecrets 将 Secrets 写入目标字段，已有非空值且未找到 Secret 时保留原值
func ApplySecrets(secrets []SecretDefinition) error {
	for _, s := range secrets {
		value := GetSecretOrEnv(s.Name, s.Default)
		if value == "" && s.Target != nil {
			value = *s.Target
		}
		if s.Required && value == "" {
			return &SecretNotFoundError{Name: s.Name}
		}
		if s.Target != nil {
			*s.Target = value
		}
	}
	return nil
}

// LoadConfigWithSecrets 先加载 YAML 配置，再注入 Secrets
//
//	cfg := &config.Config{}
//	err := config.LoadConfigWithSecrets(cfg, []config.SecretDefinition{
//	    {Name: "TOKEN_SECRET", Target: &cfg.Token.SecretKey, Required: true},
//	    {Name: "REDIS_PASSWORD", Target: &cfg.Redis.Password},
//	})
func LoadConfigWithSecrets(cfg any, secrets []SecretDefinition, opts ...LoadOptions) error {
	if err := LoadConfig(cfg, opts...); err != nil {
		return err
	}
	return ApplySecrets(secrets)
}
