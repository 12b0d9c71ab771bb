package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Defaulter 由支持默认值的配置结构实现
type Defaulter interface {
	ApplyDefaults()
}

// LoadOptions 加载配置选项
type LoadOptions struct {
	ConfigPath    string // 配置文件目录，默认 "./configs"
	ConfigName    string // 配置文件名前缀，默认 "config"，实际读取 {name}_{APP_ENV}.yaml
	EnvPrefix     string // 环境变量前缀，用于 viper.AutomaticEnv
	AllowNoConfig bool   // 允许没有配置文件，纯环境变量配置
}

func (o *LoadOptions) applyDefaults() {
	if o.ConfigPath == "" {
		o.ConfigPath = "./configs"
	}
	if o.ConfigName == "" {
		o.ConfigName = "config"
	}
}

// LoadConfig 通用配置加载函数
// cfg 必须是指向配置结构体的指针
func LoadConfig(cfg any, opts ...LoadOptions) error {
	var opt LoadOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	opt.applyDefaults()

	if err := loadDotEnv(); err != nil {
		return err
	}

	v := viper.New()
	v.SetConfigName(fmt.Sprintf("%s_%s", opt.ConfigName, GetEnv()))
	v.SetConfigType("yaml")
	v.AddConfigPath(opt.ConfigPath)

	// 配置环境变量支持
	if opt.EnvPrefix != "" {
		v.SetEnvPrefix(opt.EnvPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || !opt.AllowNoConfig {
			return fmt.Errorf("read config failed: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unmarshal config failed: %w", err)
	}

	if d, ok := cfg.(Defaulter); ok {
		d.ApplyDefaults()
	}
	return nil
}

// loadDotEnv 加载 ENV_FILE 指定的文件，未指定时加载 ./.env，文件不存在不报错
func loadDotEnv() error {
	envFile := os.Getenv("ENV_FILE")
	var err error
	if envFile != "" {
		err = godotenv.Load(envFile)
	} else {
		envFile = ".env"
		err = godotenv.Load()
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s failed: %w", envFile, err)
	}
	return nil
}

// GetEnv 获取当前环境，默认为 "dev"
func GetEnv() string {
	env := os.Getenv("APP_ENV")
	if env == "" {
		return "dev"
	}
	return env
}

// GetNodeID 获取节点 ID，按顺序尝试多个环境变量，最后回退到 HOSTNAME
func GetNodeID(envKeys ...string) string {
	for _, key := range envKeys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return os.Getenv("HOSTNAME")
}
