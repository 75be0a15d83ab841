package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix 环境变量前缀，例如 TYPESET_REDIS_PASSWORD
const EnvPrefix = "typeset"

// Config 应用配置
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Redis   RedisConfig   `yaml:"redis"`
	Typeset TypesetConfig `yaml:"typeset"`
	CORS    CORSConfig    `yaml:"cors"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port int    `yaml:"port"`
	Name string `yaml:"name"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Password    string `yaml:"password"`
	DB          int    `yaml:"db"`
	SettingsKey string `yaml:"settingsKey" split_words:"true"`
}

// TypesetConfig 排版请求配置
type TypesetConfig struct {
	// Timeout 单次排版的总时限，0 表示由 HTTP 客户端决定
	Timeout time.Duration `yaml:"timeout"`
	// HTTPTimeout 调用模型服务的 HTTP 客户端超时
	HTTPTimeout time.Duration `yaml:"httpTimeout" split_words:"true"`
	// Defaults 写入空存储的初始设置，键同扩展设置
	Defaults map[string]string `yaml:"defaults" ignored:"true"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowedOrigins" split_words:"true"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// LoadConfig 加载配置文件，${VAR:default} 会先替换，随后环境变量覆盖
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("读取环境变量失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default 默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: 8090, Name: "typeset-server"},
		Redis: RedisConfig{
			Enabled:     true,
			Host:        "127.0.0.1",
			Port:        6379,
			SettingsKey: "typeset:settings",
		},
		Typeset: TypesetConfig{
			Timeout:     0,
			HTTPTimeout: 120 * time.Second,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port 无效: %d", c.Server.Port)
	}
	if c.Redis.Enabled && c.Redis.Host == "" {
		return fmt.Errorf("redis.host 不能为空")
	}
	if c.Typeset.Timeout < 0 || c.Typeset.HTTPTimeout < 0 {
		return fmt.Errorf("typeset 超时不能为负数")
	}
	return nil
}

var envPattern = regexp.MustCompile(`\$\{(\w+)(:([^}]*))?\}`)

// expandEnv 替换 ${VAR} 和 ${VAR:default}，未定义且无默认值时保留原样
func expandEnv(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		sub := envPattern.FindStringSubmatch(match)
		if val, ok := os.LookupEnv(sub[1]); ok {
			return val
		}
		if sub[2] != "" {
			return sub[3]
		}
		return match
	})
}
